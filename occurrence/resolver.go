/*
resolver.go - Dimension surrogate-key resolution

PURPOSE:
  Resolves natural dimension values (water-body names, source species ids) to
  stable surrogate keys, inserting new dimension rows on first sight and
  reusing existing keys otherwise. Resolving the same value twice - in one run
  or across runs - always returns the same key.

LOCATION KEYS:
  Keys are dense integers assigned from 0. The original system computed
  1 + MAX(id) inside a stored procedure on every miss; two concurrent misses
  could read the same maximum and mint the same key. Here the counter is
  seeded from MAX(id) once per transaction and then incremented in memory
  under a mutex, so every resolution within a run is serialized and the
  enclosing transaction serializes runs against each other. This is a
  correctness constraint, not an optimization.

NULL REGION:
  A nil water-body name (point outside every known region) resolves to the
  single reserved unknown row. At most one null-named row ever exists.

SPECIES KEYS:
  The external source supplies the key. Resolution is a plain upsert on that
  id, overwriting the name fields, and always succeeds.
*/
package occurrence

import (
	"context"
	"fmt"
	"sync"
)

// cache key standing in for the nil water-body name; real names are plain
// strings and can never collide with it.
const nilNameKey = "\x00unknown-region"

// Resolver assigns dimension surrogate keys within one load transaction.
// Create one per transaction with NewResolver; it is not reusable across
// transactions because the seeded counter would go stale.
type Resolver struct {
	store DimensionStore

	mu      sync.Mutex
	seeded  bool
	next    int64
	names   map[string]int64
	species map[int64]struct{}
}

func NewResolver(store DimensionStore) *Resolver {
	return &Resolver{
		store:   store,
		names:   make(map[string]int64),
		species: make(map[int64]struct{}),
	}
}

// ResolveLocation returns the surrogate key for a water-body name, minting a
// new dense key when the name has never been seen. All calls are serialized.
func (r *Resolver) ResolveLocation(ctx context.Context, name *string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ck := nilNameKey
	if name != nil {
		ck = *name
	}
	if key, ok := r.names[ck]; ok {
		return key, nil
	}

	key, ok, err := r.store.LookupLocation(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("lookup location: %w", err)
	}
	if ok {
		r.names[ck] = key
		return key, nil
	}

	if !r.seeded {
		max, err := r.store.MaxLocationKey(ctx)
		if err != nil {
			return 0, fmt.Errorf("seed location counter: %w", err)
		}
		r.next = max + 1
		r.seeded = true
	}

	key = r.next
	if err := r.store.InsertLocation(ctx, key, name); err != nil {
		return 0, fmt.Errorf("insert location %d: %w", key, err)
	}
	r.next++
	r.names[ck] = key
	return key, nil
}

// ResolveSpecies upserts the species row and returns its key (the supplied
// id). Repeated resolutions of the same id within a run hit the store once.
func (r *Resolver) ResolveSpecies(ctx context.Context, id int64, name, vernacular string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, done := r.species[id]; done {
		return id, nil
	}
	if err := r.store.UpsertSpecies(ctx, id, name, vernacular); err != nil {
		return 0, fmt.Errorf("upsert species %d: %w", id, err)
	}
	r.species[id] = struct{}{}
	return id, nil
}
