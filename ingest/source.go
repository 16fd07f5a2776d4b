/*
Package ingest is the boundary to the ingestion collaborator.

The component that talks to the external biodiversity API (pagination, retry,
rate limits) is out of scope here; it stages raw response pages as JSON files
named "<start>--<end>.json" under a per-species directory. FileSource reads
those staged pages back and hands the pipeline a single flat batch of raw
records. Anything that needs records pulls them through the Source interface,
so a live API client can be swapped in without touching the pipeline.
*/
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/pelagos/occurrence-engine/occurrence"
)

// Source supplies raw occurrence records, already materialized in memory.
type Source interface {
	Fetch(ctx context.Context) ([]occurrence.RawRecord, error)
}

// Staged page files are named 2001-01-01--2005-12-31.json.
var pagePattern = regexp.MustCompile(`(\d{4})-\d{2}-\d{2}--(\d{4})-\d{2}-\d{2}\.json$`)

// page is the raw response shape: a results array plus fields we ignore.
type page struct {
	Results []occurrence.RawRecord `json:"results"`
}

// FileSource reads staged response pages for one species from DataDir.
// StartDate and EndDate (YYYY-MM-DD, either may be empty) bound the page
// files by the years in their names, matching how the fetcher splits ranges.
type FileSource struct {
	DataDir   string
	Species   string
	StartDate string
	EndDate   string
}

// Fetch loads every matching page and concatenates the results arrays,
// in lexical file order so batches are deterministic.
func (s FileSource) Fetch(ctx context.Context) ([]occurrence.RawRecord, error) {
	dir := filepath.Join(s.DataDir, s.Species)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read staged pages for %s: %w", s.Species, err)
	}

	startYear, err := boundYear(s.StartDate, 0)
	if err != nil {
		return nil, err
	}
	endYear, err := boundYear(s.EndDate, 9999)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := pagePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		fileStart, _ := strconv.Atoi(m[1])
		fileEnd, _ := strconv.Atoi(m[2])
		if fileStart >= startYear && fileEnd <= endYear {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no staged pages for %s in range, fetch from the provider first", s.Species)
	}
	sort.Strings(files)

	var records []occurrence.RawRecord
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read page %s: %w", file, err)
		}
		var p page
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parse page %s: %w", file, err)
		}
		records = append(records, p.Results...)
	}
	log.Printf("ingest: %d record(s) from %d staged page(s)", len(records), len(files))
	return records, nil
}

// boundYear extracts the year of a YYYY-MM-DD bound, or def when empty.
func boundYear(date string, def int) (int, error) {
	if date == "" {
		return def, nil
	}
	if len(date) < 4 {
		return 0, fmt.Errorf("bad date bound %q, want YYYY-MM-DD", date)
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0, fmt.Errorf("bad date bound %q, want YYYY-MM-DD", date)
	}
	return y, nil
}

// Static is a Source over an in-memory batch, for tests and embedding.
type Static []occurrence.RawRecord

func (s Static) Fetch(context.Context) ([]occurrence.RawRecord, error) { return s, nil }
