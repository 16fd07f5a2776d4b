/*
validate.go - Structural schema validation for raw records

PURPOSE:
  Partitions a raw batch into valid records and per-record validation errors.
  Validation of one record never touches another; input order is preserved on
  both sides of the partition, and

    len(valid) + len(errors) == len(input)

  always holds.

CHECKS:
  id               non-empty string
  eventDate        present (format quality is the date normalizer's business)
  decimalLatitude  numeric, within [-90, 90]
  decimalLongitude numeric, within [-180, 180]
  species          non-empty scientific name
  speciesID        integer
  individualCount  integer >= 0; missing means 1 (the provider omits the count
                   for single sightings)

A record failing any check is excluded and reported with every reason found,
not just the first.
*/
package occurrence

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	maxLatitude  = decimal.NewFromInt(90)
	maxLongitude = decimal.NewFromInt(180)
)

// Validate checks each raw record against the structural schema and splits the
// batch into typed records and validation errors. No cross-record state.
func Validate(raws []RawRecord) ([]Record, []ValidationError) {
	valid := make([]Record, 0, len(raws))
	var errs []ValidationError

	for _, raw := range raws {
		rec, fields := validateOne(raw)
		if len(fields) > 0 {
			errs = append(errs, ValidationError{RecordID: raw.ID, Fields: fields})
			continue
		}
		valid = append(valid, rec)
	}
	return valid, errs
}

func validateOne(raw RawRecord) (Record, []FieldError) {
	var fields []FieldError
	fail := func(field string, code ReasonCode, msg string) {
		fields = append(fields, FieldError{Field: field, Code: code, Message: msg})
	}

	if raw.ID == "" {
		fail("id", ReasonEmpty, "identifier must be non-empty")
	}
	if raw.EventDate == "" {
		fail("eventDate", ReasonMissing, "event date is required")
	}
	if raw.Species == "" {
		fail("species", ReasonEmpty, "scientific name is required")
	}

	lat, ferr := parseCoordinate(raw.DecimalLatitude, "decimalLatitude", maxLatitude)
	if ferr != nil {
		fields = append(fields, *ferr)
	}
	lon, ferr := parseCoordinate(raw.DecimalLongitude, "decimalLongitude", maxLongitude)
	if ferr != nil {
		fields = append(fields, *ferr)
	}

	speciesID, ferr := parseInteger(raw.SpeciesID, "speciesID")
	if ferr != nil {
		fields = append(fields, *ferr)
	}

	// Missing count means a single sighting. A present negative count is junk.
	count := int64(1)
	if raw.IndividualCount != nil {
		count, ferr = parseInteger(raw.IndividualCount, "individualCount")
		if ferr != nil {
			fields = append(fields, *ferr)
		} else if count < 0 {
			fail("individualCount", ReasonNegative, fmt.Sprintf("count %d is negative", count))
		}
	}

	if len(fields) > 0 {
		return Record{}, fields
	}

	return Record{
		ID:              raw.ID,
		EventDate:       raw.EventDate,
		Latitude:        lat,
		Longitude:       lon,
		Species:         raw.Species,
		SpeciesID:       speciesID,
		VernacularName:  raw.VernacularName,
		IndividualCount: count,
		WaterBody:       raw.WaterBody,
	}, nil
}

// parseCoordinate parses a raw JSON value into a decimal and range-checks it
// against [-limit, limit].
func parseCoordinate(raw json.RawMessage, field string, limit decimal.Decimal) (decimal.Decimal, *FieldError) {
	s, ferr := rawNumber(raw, field)
	if ferr != nil {
		return decimal.Zero, ferr
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &FieldError{Field: field, Code: ReasonNotANumber, Message: fmt.Sprintf("%q is not a number", s)}
	}
	if d.Abs().GreaterThan(limit) {
		return decimal.Zero, &FieldError{Field: field, Code: ReasonOutOfRange, Message: fmt.Sprintf("%s outside [-%s, %s]", d, limit, limit)}
	}
	return d, nil
}

func parseInteger(raw json.RawMessage, field string) (int64, *FieldError) {
	s, ferr := rawNumber(raw, field)
	if ferr != nil {
		return 0, ferr
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() {
		return 0, &FieldError{Field: field, Code: ReasonNotAnInt, Message: fmt.Sprintf("%q is not an integer", s)}
	}
	return d.IntPart(), nil
}

// rawNumber extracts the textual form of a raw JSON value that should be a
// number. The provider sometimes quotes numbers, so JSON strings are accepted
// and parsed like the rest.
func rawNumber(raw json.RawMessage, field string) (string, *FieldError) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", &FieldError{Field: field, Code: ReasonMissing, Message: "value is required"}
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return num.String(), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	return "", &FieldError{Field: field, Code: ReasonNotANumber, Message: fmt.Sprintf("unexpected JSON value %s", raw)}
}
