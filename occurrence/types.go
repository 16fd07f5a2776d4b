/*
Package occurrence contains the core record model and the in-memory stages of
the loading pipeline.

PURPOSE:
  This package is the engine: it turns a heterogeneous batch of raw JSON
  occurrence records into a consistent, deduplicated, referentially-valid set
  of rows ready for the relational store. Everything here is pure in-memory
  computation except the dimension resolver, which talks to the store through
  small interfaces.

KEY CONCEPTS IN THIS FILE (types.go):
  - RawRecord: one record as delivered by the ingestion collaborator.
    Numeric fields stay as raw JSON until validation so that one malformed
    record can never poison the rest of its page.
  - Record: a validated record with typed fields and the derived columns
    the pipeline fills in (event span, dimension keys).
  - EventSpan: normalized start/end date fields plus a validity flag.

DESIGN PRINCIPLES:
  1. Precision: coordinates are decimal.Decimal, never float64. The source
     ships seven fractional digits and we keep all of them.
  2. Isolation: validation of one record never affects another.
  3. Nothing is silently dropped: every excluded record is counted and
     reported with field-level reasons.

SEE ALSO:
  - validate.go: RawRecord -> Record partition
  - dates.go:    EventSpan normalization
  - dedupe.go:   exact-duplicate removal
  - resolver.go: dimension surrogate keys
*/
package occurrence

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RAW RECORD - As delivered by the ingestion collaborator
// =============================================================================

// RawRecord mirrors one entry of a raw results page.
//
// The numeric fields are kept as json.RawMessage on purpose: the external
// provider occasionally ships strings where numbers belong (and vice versa),
// and decoding them strictly at page level would abort the whole page. The
// validator parses them per record instead.
type RawRecord struct {
	ID               string          `json:"id"`
	EventDate        string          `json:"eventDate"`
	WaterBody        *string         `json:"waterBody"`
	DecimalLatitude  json.RawMessage `json:"decimalLatitude"`
	DecimalLongitude json.RawMessage `json:"decimalLongitude"`
	Species          string          `json:"species"`
	SpeciesID        json.RawMessage `json:"speciesID"`
	VernacularName   string          `json:"vernacularName"`
	IndividualCount  json.RawMessage `json:"individualCount"`
}

// =============================================================================
// RECORD - Validated, typed, enriched by the pipeline stages
// =============================================================================

// Record is a validated occurrence. The source-origin fields are set by the
// validator; WaterBody is overwritten by the spatial enricher; Event by the
// date normalizer; the surrogate keys by the dimension resolver.
type Record struct {
	ID              string
	EventDate       string
	Latitude        decimal.Decimal
	Longitude       decimal.Decimal
	Species         string
	SpeciesID       int64
	VernacularName  string
	IndividualCount int64

	// Derived fields.
	WaterBody    *string // enclosing ocean region name, nil when unresolved
	WaterBodyKey *int64  // locations surrogate key
	SpeciesKey   *int64  // species surrogate key (source-supplied id)
	Event        EventSpan
}

// NaturalKey is the composite duplicate key: the full tuple of source-origin
// fields. Two records with equal NaturalKey are byte-for-byte identical as far
// as the provider is concerned.
func (r Record) NaturalKey() string {
	parts := []string{
		r.ID,
		r.EventDate,
		r.Latitude.String(),
		r.Longitude.String(),
		strconv.FormatInt(r.SpeciesID, 10),
		strconv.FormatInt(r.IndividualCount, 10),
	}
	return strings.Join(parts, "\x1f")
}

// =============================================================================
// EVENT SPAN - Normalized date fields
// =============================================================================

// EventSpan holds the structured start/end date of an occurrence event.
// The zero value is the sentinel for an unparseable date: all fields zero,
// Valid false. Records with an invalid span are retained; date quality is
// orthogonal to geospatial and taxonomic validity.
type EventSpan struct {
	StartYear  int
	StartMonth int
	StartDay   int
	EndYear    int
	EndMonth   int
	EndDay     int
	Valid      bool
}
