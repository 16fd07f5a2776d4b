// Package store provides BatchStore implementations.
package store

import (
	"context"
	"sync"

	"github.com/pelagos/occurrence-engine/occurrence"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements occurrence.BatchStore and occurrence.TxStore entirely in
// memory. WithTx snapshots state before running fn and restores it on error,
// giving the same commit-or-rollback semantics as the SQLite store.
type Memory struct {
	mu        sync.Mutex
	locations map[int64]*string // key -> name (nil for the unknown row)
	species   map[int64][2]string
	facts     map[string]occurrence.Record
	factOrder []string
}

func NewMemory() *Memory {
	return &Memory{
		locations: make(map[int64]*string),
		species:   make(map[int64][2]string),
		facts:     make(map[string]occurrence.Record),
	}
}

// WithTx serializes callers with the store mutex and rolls back all state on
// error.
func (m *Memory) WithTx(_ context.Context, fn func(occurrence.BatchStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn((*memoryTx)(m)); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *Memory) snapshot() *Memory {
	snap := NewMemory()
	for k, v := range m.locations {
		snap.locations[k] = v
	}
	for k, v := range m.species {
		snap.species[k] = v
	}
	for k, v := range m.facts {
		snap.facts[k] = v
	}
	snap.factOrder = append([]string(nil), m.factOrder...)
	return snap
}

func (m *Memory) restore(snap *Memory) {
	m.locations = snap.locations
	m.species = snap.species
	m.facts = snap.facts
	m.factOrder = snap.factOrder
}

// Locations returns a copy of the location dimension, for assertions.
func (m *Memory) Locations() map[int64]*string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]*string, len(m.locations))
	for k, v := range m.locations {
		out[k] = v
	}
	return out
}

// Facts returns loaded records in insertion order.
func (m *Memory) Facts() []occurrence.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]occurrence.Record, 0, len(m.factOrder))
	for _, id := range m.factOrder {
		out = append(out, m.facts[id])
	}
	return out
}

// memoryTx is the transaction-scoped view handed to WithTx callbacks. The
// enclosing WithTx already holds the mutex.
type memoryTx Memory

func (t *memoryTx) LookupLocation(_ context.Context, name *string) (int64, bool, error) {
	for key, bound := range t.locations {
		if sameName(bound, name) {
			return key, true, nil
		}
	}
	return 0, false, nil
}

func (t *memoryTx) MaxLocationKey(_ context.Context) (int64, error) {
	max := int64(-1)
	for key := range t.locations {
		if key > max {
			max = key
		}
	}
	return max, nil
}

func (t *memoryTx) InsertLocation(_ context.Context, key int64, name *string) error {
	if _, taken := t.locations[key]; taken {
		return &occurrence.DimensionConflictError{Table: "locations", Key: key}
	}
	t.locations[key] = name
	return nil
}

func (t *memoryTx) UpsertSpecies(_ context.Context, id int64, name, vernacular string) error {
	t.species[id] = [2]string{name, vernacular}
	return nil
}

func (t *memoryTx) ExistingOccurrenceIDs(_ context.Context, ids []string) ([]string, error) {
	var existing []string
	for _, id := range ids {
		if _, ok := t.facts[id]; ok {
			existing = append(existing, id)
		}
	}
	return existing, nil
}

func (t *memoryTx) InsertOccurrence(_ context.Context, rec occurrence.Record) error {
	if _, dup := t.facts[rec.ID]; dup {
		return &occurrence.LoadViolationError{IDs: []string{rec.ID}}
	}
	t.facts[rec.ID] = rec
	t.factOrder = append(t.factOrder, rec.ID)
	return nil
}

func sameName(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
