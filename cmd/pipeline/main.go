/*
main.go - One-shot pipeline CLI

PURPOSE:
  Runs the full validation -> cleaning -> enrichment -> load pipeline over
  staged response pages for one species, without standing up the HTTP
  server. Intended for cron jobs and manual backfills.

EXAMPLES:
  pipeline run --species blue_whale --regions data/goas_v01.geojson
  pipeline run --species sperm_whale --start 1990-01-01 --end 1999-12-31
*/
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/pelagos/occurrence-engine/factory"
	"github.com/pelagos/occurrence-engine/geo"
	"github.com/pelagos/occurrence-engine/ingest"
	"github.com/pelagos/occurrence-engine/pipeline"
	"github.com/pelagos/occurrence-engine/store/sqlite"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pipeline",
		Short:         "Species occurrence loading pipeline",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		species     string
		startDate   string
		endDate     string
		dbPath      string
		regionsPath string
		dataDir     string
		catalogPath string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline for one species over staged pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var catalog *factory.Catalog
			if catalogPath != "" {
				var err error
				catalog, err = factory.LoadCatalog(catalogPath)
				if err != nil {
					return err
				}
				if !catalog.Has(species) {
					return fmt.Errorf("unknown species %q, known: %v", species, catalog.Slugs())
				}
			}

			log.Printf("Loading ocean regions from %s...", regionsPath)
			regions, err := geo.Load(regionsPath)
			if err != nil {
				return err
			}

			store, err := sqlite.New(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			source := ingest.FileSource{
				DataDir:   dataDir,
				Species:   species,
				StartDate: startDate,
				EndDate:   endDate,
			}
			raws, err := source.Fetch(ctx)
			if err != nil {
				return err
			}

			report, err := pipeline.New(regions, store, catalog).Run(ctx, species, raws)
			if err != nil {
				return fmt.Errorf("run %s failed: %w", report.ID, err)
			}

			log.Printf("Run %s: %d input, %d valid, %d rejected, %d duplicates removed, %d loaded",
				report.ID, report.Input, report.Valid, len(report.Errors), report.Duplicates, report.Loaded)
			return nil
		},
	}

	cmd.Flags().StringVar(&species, "species", "", "species slug, names the staged page directory (required)")
	cmd.Flags().StringVar(&startDate, "start", "", "start date bound, YYYY-MM-DD")
	cmd.Flags().StringVar(&endDate, "end", "", "end date bound, YYYY-MM-DD")
	cmd.Flags().StringVar(&dbPath, "db", "occurrences.db", "SQLite database path")
	cmd.Flags().StringVar(&regionsPath, "regions", "data/goas_v01.geojson", "ocean region GeoJSON file")
	cmd.Flags().StringVar(&dataDir, "data", "data", "staged response page directory")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "species catalog JSON (optional)")
	cobra.CheckErr(cmd.MarkFlagRequired("species"))

	return cmd
}
