package occurrence_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelagos/occurrence-engine/occurrence"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func num(s string) json.RawMessage { return json.RawMessage(s) }

// goodRaw returns a raw record passing every check. Tests mutate single fields.
func goodRaw(id string) occurrence.RawRecord {
	return occurrence.RawRecord{
		ID:               id,
		EventDate:        "2001-05-01",
		DecimalLatitude:  num("-12.3456789"),
		DecimalLongitude: num("45.0000001"),
		Species:          "Balaenoptera musculus",
		SpeciesID:        num("137090"),
		VernacularName:   "Blue Whale",
		IndividualCount:  num("2"),
	}
}

func fieldCodes(ve occurrence.ValidationError) map[string]occurrence.ReasonCode {
	out := make(map[string]occurrence.ReasonCode, len(ve.Fields))
	for _, f := range ve.Fields {
		out[f.Field] = f.Code
	}
	return out
}

// =============================================================================
// PARTITION TESTS
// =============================================================================

func TestValidate_AllValid(t *testing.T) {
	valid, errs := occurrence.Validate([]occurrence.RawRecord{goodRaw("a"), goodRaw("b")})

	require.Len(t, valid, 2)
	assert.Empty(t, errs)
	assert.Equal(t, "a", valid[0].ID)
	assert.Equal(t, "b", valid[1].ID)
	assert.Equal(t, int64(137090), valid[0].SpeciesID)
	assert.Equal(t, int64(2), valid[0].IndividualCount)
	assert.Equal(t, "-12.3456789", valid[0].Latitude.String(), "coordinate precision must survive parsing")
}

func TestValidate_PartitionIsComplete(t *testing.T) {
	// GIVEN: A batch mixing good and bad records
	bad := goodRaw("bad-1")
	bad.DecimalLatitude = num(`"oops"`)
	input := []occurrence.RawRecord{goodRaw("a"), bad, goodRaw("b")}

	// WHEN: Validating
	valid, errs := occurrence.Validate(input)

	// THEN: Every input record is either valid or reported, never both or neither
	assert.Equal(t, len(input), len(valid)+len(errs))
	require.Len(t, valid, 2)
	assert.Equal(t, []string{"a", "b"}, []string{valid[0].ID, valid[1].ID}, "input order preserved")
	require.Len(t, errs, 1)
	assert.Equal(t, "bad-1", errs[0].RecordID)
}

func TestValidate_IsolationAcrossRecords(t *testing.T) {
	// A malformed record must not affect the validity of its neighbors.
	bad := goodRaw("poison")
	bad.SpeciesID = num(`{"unexpected":"object"}`)

	valid, errs := occurrence.Validate([]occurrence.RawRecord{bad, goodRaw("clean")})

	require.Len(t, valid, 1)
	assert.Equal(t, "clean", valid[0].ID)
	require.Len(t, errs, 1)
}

// =============================================================================
// FIELD CHECKS
// =============================================================================

func TestValidate_CollectsEveryFailedCheck(t *testing.T) {
	raw := occurrence.RawRecord{
		// id, eventDate, species all missing; both coordinates missing;
		// speciesID fractional; count negative.
		SpeciesID:       num("1.5"),
		IndividualCount: num("-3"),
	}

	_, errs := occurrence.Validate([]occurrence.RawRecord{raw})
	require.Len(t, errs, 1)

	codes := fieldCodes(errs[0])
	assert.Equal(t, occurrence.ReasonEmpty, codes["id"])
	assert.Equal(t, occurrence.ReasonMissing, codes["eventDate"])
	assert.Equal(t, occurrence.ReasonEmpty, codes["species"])
	assert.Equal(t, occurrence.ReasonMissing, codes["decimalLatitude"])
	assert.Equal(t, occurrence.ReasonMissing, codes["decimalLongitude"])
	assert.Equal(t, occurrence.ReasonNotAnInt, codes["speciesID"])
	assert.Equal(t, occurrence.ReasonNegative, codes["individualCount"])
}

func TestValidate_CoordinateRange(t *testing.T) {
	tests := []struct {
		name  string
		lat   string
		lon   string
		valid bool
	}{
		{"at latitude limit", "90", "0", true},
		{"over latitude limit", "90.0000001", "0", false},
		{"at longitude limit", "0", "-180", true},
		{"over longitude limit", "0", "180.5", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := goodRaw("r")
			raw.DecimalLatitude = num(tt.lat)
			raw.DecimalLongitude = num(tt.lon)

			valid, errs := occurrence.Validate([]occurrence.RawRecord{raw})
			if tt.valid {
				assert.Len(t, valid, 1)
			} else {
				require.Len(t, errs, 1)
				require.Len(t, errs[0].Fields, 1)
				assert.Equal(t, occurrence.ReasonOutOfRange, errs[0].Fields[0].Code)
			}
		})
	}
}

func TestValidate_QuotedNumbersAccepted(t *testing.T) {
	// The provider sometimes ships numbers as JSON strings.
	raw := goodRaw("quoted")
	raw.DecimalLatitude = num(`"12.5"`)
	raw.SpeciesID = num(`"137090"`)

	valid, errs := occurrence.Validate([]occurrence.RawRecord{raw})

	require.Empty(t, errs)
	require.Len(t, valid, 1)
	assert.Equal(t, "12.5", valid[0].Latitude.String())
	assert.Equal(t, int64(137090), valid[0].SpeciesID)
}

func TestValidate_MissingCountDefaultsToOne(t *testing.T) {
	raw := goodRaw("single")
	raw.IndividualCount = nil

	valid, errs := occurrence.Validate([]occurrence.RawRecord{raw})

	require.Empty(t, errs)
	assert.Equal(t, int64(1), valid[0].IndividualCount)
}

func TestValidate_NullCountIsMissingValue(t *testing.T) {
	// Explicit JSON null is present-but-empty, not an omitted field.
	raw := goodRaw("null-count")
	raw.IndividualCount = num("null")

	_, errs := occurrence.Validate([]occurrence.RawRecord{raw})

	require.Len(t, errs, 1)
	assert.Equal(t, occurrence.ReasonMissing, fieldCodes(errs[0])["individualCount"])
}

func TestValidate_ZeroCountAllowed(t *testing.T) {
	raw := goodRaw("absence")
	raw.IndividualCount = num("0")

	valid, errs := occurrence.Validate([]occurrence.RawRecord{raw})

	require.Empty(t, errs)
	assert.Equal(t, int64(0), valid[0].IndividualCount)
}

func TestValidate_WaterBodyPassesThrough(t *testing.T) {
	name := "North Atlantic"
	raw := goodRaw("wb")
	raw.WaterBody = &name

	valid, _ := occurrence.Validate([]occurrence.RawRecord{raw})

	require.Len(t, valid, 1)
	require.NotNil(t, valid[0].WaterBody)
	assert.Equal(t, "North Atlantic", *valid[0].WaterBody)
}
