/*
Package pipeline wires the occurrence stages into one batch run.

FLOW:
  raw records -> validate -> normalize dates -> deduplicate -> spatial enrich
  -> resolve dimension keys -> load (one transaction)

Each stage consumes the previous stage's full in-memory batch. The volumes
involved (thousands to low tens of thousands of rows per run) make this
simpler and faster than streaming, because the expensive resource - the
region polygon index - is loaded once and shared by the whole batch.

Per-record problems (validation failures, bad dates) never abort the run;
per-batch problems (dimension conflicts, load violations) abort it with full
context and nothing committed. Every invocation produces a persisted Report.
*/
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/pelagos/occurrence-engine/factory"
	"github.com/pelagos/occurrence-engine/geo"
	"github.com/pelagos/occurrence-engine/occurrence"
)

// Store is everything the pipeline needs from persistence: a transactional
// batch store for the load stage and a run log for reports.
type Store interface {
	occurrence.TxStore
	RunStore
}

// Pipeline executes validation, cleaning, enrichment and loading as a single
// sequential control flow per invocation.
type Pipeline struct {
	Regions *geo.Index
	Store   Store
	Catalog *factory.Catalog // optional; fills in missing vernacular names
}

func New(regions *geo.Index, store Store, catalog *factory.Catalog) *Pipeline {
	return &Pipeline{Regions: regions, Store: store, Catalog: catalog}
}

// Run processes one raw batch end to end and persists a report either way.
// The returned error is the batch-fatal error, if any; the report always
// carries the counts accumulated up to the failure.
func (p *Pipeline) Run(ctx context.Context, species string, raws []occurrence.RawRecord) (Report, error) {
	report := Report{
		ID:        uuid.NewString(),
		Species:   species,
		StartedAt: time.Now().UTC(),
		Input:     len(raws),
	}

	valid, verrs := occurrence.Validate(raws)
	report.Valid = len(valid)
	report.Errors = verrs
	log.Printf("pipeline %s: validated %d record(s), %d rejected", report.ID, len(valid), len(verrs))

	for i := range valid {
		valid[i].Event = occurrence.NormalizeDate(valid[i].EventDate)
		if valid[i].VernacularName == "" && p.Catalog != nil {
			if common, ok := p.Catalog.VernacularFor(valid[i].Species); ok {
				valid[i].VernacularName = common
			}
		}
	}

	records, removed := occurrence.Deduplicate(valid)
	report.Duplicates = removed
	log.Printf("pipeline %s: %d duplicate record(s) removed", report.ID, removed)

	records = p.Regions.Enrich(records)

	var loaded int
	err := p.Store.WithTx(ctx, func(bs occurrence.BatchStore) error {
		var txErr error
		loaded, txErr = loadBatch(ctx, bs, records)
		return txErr
	})

	report.FinishedAt = time.Now().UTC()
	if err != nil {
		report.Status = StatusFailed
		report.Failure = err.Error()
	} else {
		report.Status = StatusSucceeded
		report.Loaded = loaded
		log.Printf("pipeline %s: loaded %d row(s)", report.ID, loaded)
	}

	if saveErr := p.Store.SaveRun(ctx, report); saveErr != nil {
		if err == nil {
			err = fmt.Errorf("save run report: %w", saveErr)
		} else {
			log.Printf("pipeline %s: save run report: %v", report.ID, saveErr)
		}
	}
	return report, err
}
