/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements occurrence.TxStore/BatchStore and pipeline.RunStore using SQLite.
  In production the same patterns apply to MySQL/PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  locations:      location dimension (dense surrogate keys from 0; at most one
                  row with a NULL waterBody, the reserved unknown region)
  species:        species dimension (source-supplied keys, upserted)
  occurrences:    fact table, one row per occurrence event
  pipeline_runs:  one row per pipeline invocation (the run log)

REFERENTIAL INTEGRITY:
  Opened with _foreign_keys=on, so the fact table's references to the
  dimension tables are enforced by the database, not just by convention.
  Dimension keys cascade on update and are never deleted once referenced.

CONCURRENCY:
  WithTx holds a mutex for the duration of the transaction. Dimension key
  resolution computes keys from the current table maximum, so two interleaved
  load transactions could mint the same key; serializing the whole load is a
  correctness requirement (see occurrence/resolver.go), not an optimization.

WAL MODE:
  SQLite is opened with WAL so the read-only consumers of the final tables
  (the visualization side) don't block a running load.
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mattn/go-sqlite3"

	"github.com/pelagos/occurrence-engine/occurrence"
)

// Store implements occurrence.TxStore and pipeline.RunStore.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a SQLite store at the given path and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: writes are serialized anyway, and a ":memory:" database
	// exists per connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Location dimension. Keys are assigned densely from 0 by the resolver.
	-- UNIQUE does not constrain NULLs in SQLite; the single unknown-region
	-- row is enforced by the resolver's null lookup.
	CREATE TABLE IF NOT EXISTS locations (
		id INTEGER PRIMARY KEY,
		waterBody VARCHAR UNIQUE
	);

	-- Species dimension. Keys come from the external source.
	CREATE TABLE IF NOT EXISTS species (
		id INTEGER PRIMARY KEY,
		speciesName VARCHAR NOT NULL,
		vernacularName VARCHAR
	);

	-- Fact table: one row per occurrence event.
	CREATE TABLE IF NOT EXISTS occurrences (
		id VARCHAR PRIMARY KEY,
		eventDate VARCHAR NOT NULL,
		waterBodyId INTEGER REFERENCES locations(id) ON UPDATE CASCADE,
		latitude DECIMAL(9,7) NOT NULL,
		longitude DECIMAL(10,7) NOT NULL,
		speciesId INTEGER REFERENCES species(id) ON UPDATE CASCADE,
		individualCount INTEGER NOT NULL,
		start_year INTEGER NOT NULL,
		start_month INTEGER NOT NULL,
		start_day INTEGER NOT NULL,
		end_year INTEGER NOT NULL,
		end_month INTEGER NOT NULL,
		end_day INTEGER NOT NULL,
		date_is_valid BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_occurrences_species
		ON occurrences(speciesId);
	CREATE INDEX IF NOT EXISTS idx_occurrences_water_body
		ON occurrences(waterBodyId);
	CREATE INDEX IF NOT EXISTS idx_occurrences_start_year
		ON occurrences(start_year);

	-- Run log: one row per pipeline invocation.
	CREATE TABLE IF NOT EXISTS pipeline_runs (
		id TEXT PRIMARY KEY,
		species TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		input_count INTEGER NOT NULL,
		valid_count INTEGER NOT NULL,
		duplicate_count INTEGER NOT NULL,
		loaded_count INTEGER NOT NULL,
		errors_json TEXT,
		failure TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at
		ON pipeline_runs(started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// WithTx executes fn within a single serialized transaction. Dimension
// resolution and the fact load for one batch always share one transaction.
func (s *Store) WithTx(ctx context.Context, fn func(occurrence.BatchStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&txStore{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// =============================================================================
// TRANSACTION-SCOPED STORE
// =============================================================================

// txStore implements occurrence.BatchStore against one open transaction.
type txStore struct {
	tx *sql.Tx
}

func (t *txStore) LookupLocation(ctx context.Context, name *string) (int64, bool, error) {
	var (
		key int64
		err error
	)
	if name == nil {
		err = t.tx.QueryRowContext(ctx,
			`SELECT id FROM locations WHERE waterBody IS NULL`).Scan(&key)
	} else {
		err = t.tx.QueryRowContext(ctx,
			`SELECT id FROM locations WHERE waterBody = ?`, *name).Scan(&key)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return key, true, nil
}

func (t *txStore) MaxLocationKey(ctx context.Context) (int64, error) {
	var max int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(id), -1) FROM locations`).Scan(&max)
	return max, err
}

func (t *txStore) InsertLocation(ctx context.Context, key int64, name *string) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO locations (id, waterBody) VALUES (?, ?)`, key, name)
	if isConstraint(err) {
		return &occurrence.DimensionConflictError{Table: "locations", Key: key}
	}
	return err
}

func (t *txStore) UpsertSpecies(ctx context.Context, id int64, name, vernacular string) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO species (id, speciesName, vernacularName)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			speciesName = excluded.speciesName,
			vernacularName = excluded.vernacularName`,
		id, name, vernacular)
	return err
}

func (t *txStore) ExistingOccurrenceIDs(ctx context.Context, ids []string) ([]string, error) {
	// SQLite caps bound variables; chunk the IN lists.
	const chunkSize = 500

	var existing []string
	for start := 0; start < len(ids); start += chunkSize {
		end := start + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}

		rows, err := t.tx.QueryContext(ctx,
			`SELECT id FROM occurrences WHERE id IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, err
			}
			existing = append(existing, id)
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return existing, nil
}

func (t *txStore) InsertOccurrence(ctx context.Context, rec occurrence.Record) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO occurrences
			(id, eventDate, waterBodyId, latitude, longitude, speciesId, individualCount,
			 start_year, start_month, start_day, end_year, end_month, end_day, date_is_valid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.EventDate, rec.WaterBodyKey,
		rec.Latitude.String(), rec.Longitude.String(),
		rec.SpeciesKey, rec.IndividualCount,
		rec.Event.StartYear, rec.Event.StartMonth, rec.Event.StartDay,
		rec.Event.EndYear, rec.Event.EndMonth, rec.Event.EndDay,
		rec.Event.Valid)
	if isConstraint(err) {
		return &occurrence.LoadViolationError{IDs: []string{rec.ID}}
	}
	return err
}

// isConstraint reports whether err is a SQLite constraint violation
// (primary key, unique, or foreign key).
func isConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}
