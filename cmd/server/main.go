/*
main.go - HTTP server entry point

PURPOSE:
  Starts the occurrence-engine run API: loads the ocean region dataset and
  the species catalog, opens the SQLite store, assembles the pipeline and
  serves the run endpoints with graceful shutdown.

COMMAND-LINE FLAGS:
  -port     HTTP server port (default: 8080)
  -db       SQLite database path (default: occurrences.db); ":memory:" works
  -regions  GeoJSON file of named ocean region polygons (required)
  -data     Directory of staged response pages, one subdirectory per species
  -catalog  Species catalog JSON (optional; enables species validation and
            vernacular fill-in)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait up to 30s for active
  requests, close the store.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pelagos/occurrence-engine/api"
	"github.com/pelagos/occurrence-engine/factory"
	"github.com/pelagos/occurrence-engine/geo"
	"github.com/pelagos/occurrence-engine/pipeline"
	"github.com/pelagos/occurrence-engine/store/sqlite"
)

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "occurrences.db", "SQLite database path")
	regionsPath := flag.String("regions", "data/goas_v01.geojson", "ocean region GeoJSON file")
	dataDir := flag.String("data", "data", "staged response page directory")
	catalogPath := flag.String("catalog", "", "species catalog JSON (optional)")
	flag.Parse()

	// The region dataset is the expensive resource: load it once, up front.
	// Failure here is fatal before any record is processed.
	log.Printf("Loading ocean regions from %s...", *regionsPath)
	regions, err := geo.Load(*regionsPath)
	if err != nil {
		log.Fatalf("Failed to load ocean regions: %v", err)
	}
	log.Printf("Loaded %d region polygon(s)", regions.Len())

	var catalog *factory.Catalog
	if *catalogPath != "" {
		catalog, err = factory.LoadCatalog(*catalogPath)
		if err != nil {
			log.Fatalf("Failed to load species catalog: %v", err)
		}
	}

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	p := pipeline.New(regions, store, catalog)
	handler := api.NewHandler(store, p, catalog, *dataDir)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Minute, // runs over large batches take a while
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
