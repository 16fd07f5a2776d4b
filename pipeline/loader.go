/*
loader.go - Transactional fact load

PURPOSE:
  Persists a fully-enriched batch into the fact table within one transaction:
  dimension resolution first (so foreign keys are satisfied before any fact
  insert), then a collision pre-check, then the inserts. On any violation the
  whole batch rolls back - partial loads are not permitted - and the error
  names every colliding natural identifier so the operator knows exactly what
  a rerun collided with.
*/
package pipeline

import (
	"context"
	"fmt"

	"github.com/pelagos/occurrence-engine/occurrence"
)

// loadBatch runs inside one store transaction. It resolves both dimensions
// for every record and appends the records to the fact table. Returns the
// number of rows inserted.
func loadBatch(ctx context.Context, bs occurrence.BatchStore, records []occurrence.Record) (int, error) {
	resolver := occurrence.NewResolver(bs)

	for i := range records {
		locKey, err := resolver.ResolveLocation(ctx, records[i].WaterBody)
		if err != nil {
			return 0, fmt.Errorf("resolve location for %s: %w", records[i].ID, err)
		}
		records[i].WaterBodyKey = &locKey

		spKey, err := resolver.ResolveSpecies(ctx, records[i].SpeciesID, records[i].Species, records[i].VernacularName)
		if err != nil {
			return 0, fmt.Errorf("resolve species for %s: %w", records[i].ID, err)
		}
		records[i].SpeciesKey = &spKey
	}

	// Name every collision up front instead of failing on the first insert.
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	existing, err := bs.ExistingOccurrenceIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("check existing occurrences: %w", err)
	}
	if len(existing) > 0 {
		return 0, &occurrence.LoadViolationError{IDs: existing}
	}

	for _, rec := range records {
		if err := bs.InsertOccurrence(ctx, rec); err != nil {
			return 0, fmt.Errorf("insert occurrence %s: %w", rec.ID, err)
		}
	}
	return len(records), nil
}
