/*
store.go - Persistence interfaces between the engine and the database

PURPOSE:
  Defines the narrow surface the pipeline needs from a relational store. The
  resolver and loader are written against these interfaces so their semantics
  are testable without any particular database; store/sqlite provides the
  production implementation and occurrence/store a memory one for tests.

TRANSACTION BOUNDARY:
  The fact-table load is the only operation requiring a database transaction.
  WithTx scopes a BatchStore to a single transaction: dimension resolution and
  the fact inserts for one batch all execute inside it and commit or roll back
  as a unit. Implementations must serialize WithTx callers - the location key
  counter depends on it (see resolver.go).
*/
package occurrence

import "context"

// =============================================================================
// DIMENSION STORE - Atomic read/insert primitives for the dimension tables
// =============================================================================

// DimensionStore exposes the primitives the resolver composes into upserts.
// The upsert logic itself lives in the resolver, not in the store.
type DimensionStore interface {
	// LookupLocation returns the surrogate key bound to a water-body name.
	// A nil name addresses the single reserved unknown-region row.
	LookupLocation(ctx context.Context, name *string) (key int64, ok bool, err error)

	// MaxLocationKey returns the largest assigned location key, or -1 when
	// the table is empty.
	MaxLocationKey(ctx context.Context) (int64, error)

	// InsertLocation binds key to name. Fails with a DimensionConflictError
	// if the key is already taken.
	InsertLocation(ctx context.Context, key int64, name *string) error

	// UpsertSpecies inserts the species row or overwrites its name fields.
	// The key is the source-supplied identifier; this always succeeds.
	UpsertSpecies(ctx context.Context, id int64, name, vernacular string) error
}

// =============================================================================
// FACT STORE - Occurrence inserts
// =============================================================================

type FactStore interface {
	// ExistingOccurrenceIDs returns the subset of ids already present in the
	// fact table. Used to name every collision before any insert happens.
	ExistingOccurrenceIDs(ctx context.Context, ids []string) ([]string, error)

	// InsertOccurrence appends one fully-resolved record to the fact table.
	// Surrogate keys must already satisfy the foreign-key constraints.
	InsertOccurrence(ctx context.Context, rec Record) error
}

// BatchStore is the store surface available inside one load transaction.
type BatchStore interface {
	DimensionStore
	FactStore
}

// TxStore executes fn within a single serialized transaction. If fn returns
// an error the transaction is rolled back, otherwise committed.
type TxStore interface {
	WithTx(ctx context.Context, fn func(BatchStore) error) error
}
