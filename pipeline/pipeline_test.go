package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelagos/occurrence-engine/factory"
	"github.com/pelagos/occurrence-engine/geo"
	"github.com/pelagos/occurrence-engine/occurrence"
	"github.com/pelagos/occurrence-engine/occurrence/store"
	"github.com/pelagos/occurrence-engine/pipeline"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// testStore is the in-memory batch store plus a run-report recorder.
type testStore struct {
	*store.Memory

	mu      sync.Mutex
	saved   []pipeline.Report
	saveErr error
}

func newTestStore() *testStore {
	return &testStore{Memory: store.NewMemory()}
}

func (s *testStore) SaveRun(_ context.Context, r pipeline.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, r)
	return nil
}

func (s *testStore) savedRuns() []pipeline.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pipeline.Report(nil), s.saved...)
}

// testIndex loads a region index with one box: "Test Sea" covering
// lat/lon [0,10]x[0,10].
func testIndex(t *testing.T) *geo.Index {
	t.Helper()
	path := filepath.Join(t.TempDir(), "regions.geojson")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"type": "FeatureCollection",
		"features": [{
			"type": "Feature",
			"properties": {"name": "Test Sea"},
			"geometry": {"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]}
		}]
	}`), 0o644))
	ix, err := geo.Load(path)
	require.NoError(t, err)
	return ix
}

func raw(id, lat, lon string) occurrence.RawRecord {
	return occurrence.RawRecord{
		ID:               id,
		EventDate:        "2001-05-01",
		DecimalLatitude:  json.RawMessage(lat),
		DecimalLongitude: json.RawMessage(lon),
		Species:          "Balaenoptera musculus",
		SpeciesID:        json.RawMessage("137090"),
		IndividualCount:  json.RawMessage("1"),
	}
}

// =============================================================================
// END-TO-END RUNS
// =============================================================================

func TestRun_EndToEnd(t *testing.T) {
	// GIVEN: A batch with a record inside the region, one outside, one exact
	// duplicate, and one with an out-of-range latitude
	ctx := context.Background()
	st := newTestStore()
	p := pipeline.New(testIndex(t), st, nil)

	inSea := raw("in-sea", "5", "5")
	openOcean := raw("open-ocean", "50", "50")
	invalid := raw("bad", "95", "5")

	// WHEN: Running the pipeline
	report, err := p.Run(ctx, "blue_whale", []occurrence.RawRecord{inSea, inSea, openOcean, invalid})

	// THEN: The report accounts for every input record
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusSucceeded, report.Status)
	assert.Equal(t, "blue_whale", report.Species)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, 4, report.Input)
	assert.Equal(t, 3, report.Valid)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 2, report.Loaded)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "bad", report.Errors[0].RecordID)
	assert.Equal(t, report.Input, report.Valid+len(report.Errors))

	// Loaded rows carry the enrichment and both dimension keys.
	facts := st.Facts()
	require.Len(t, facts, 2)

	first := facts[0]
	assert.Equal(t, "in-sea", first.ID)
	require.NotNil(t, first.WaterBody)
	assert.Equal(t, "Test Sea", *first.WaterBody)
	require.NotNil(t, first.WaterBodyKey)
	require.NotNil(t, first.SpeciesKey)
	assert.Equal(t, int64(137090), *first.SpeciesKey)
	assert.True(t, first.Event.Valid)
	assert.Equal(t, 2001, first.Event.StartYear)

	second := facts[1]
	assert.Equal(t, "open-ocean", second.ID)
	assert.Nil(t, second.WaterBody)
	require.NotNil(t, second.WaterBodyKey)
	assert.NotEqual(t, *first.WaterBodyKey, *second.WaterBodyKey,
		"unknown region resolves to its own reserved row")

	// The report was persisted.
	runs := st.savedRuns()
	require.Len(t, runs, 1)
	assert.Equal(t, report.ID, runs[0].ID)
}

func TestRun_RerunCollisionRollsBackEverything(t *testing.T) {
	// GIVEN: A committed first run
	ctx := context.Background()
	st := newTestStore()
	p := pipeline.New(testIndex(t), st, nil)

	_, err := p.Run(ctx, "blue_whale", []occurrence.RawRecord{raw("occ-1", "5", "5")})
	require.NoError(t, err)

	// WHEN: A second run includes a fresh record plus an already-loaded one
	report, err := p.Run(ctx, "blue_whale", []occurrence.RawRecord{
		raw("occ-2", "6", "6"),
		raw("occ-1", "5", "5"),
	})

	// THEN: The run fails naming the collision, and nothing new committed
	require.Error(t, err)
	assert.ErrorIs(t, err, occurrence.ErrLoadViolation)
	var lv *occurrence.LoadViolationError
	require.ErrorAs(t, err, &lv)
	assert.Equal(t, []string{"occ-1"}, lv.IDs)

	assert.Equal(t, pipeline.StatusFailed, report.Status)
	assert.NotEmpty(t, report.Failure)
	assert.Equal(t, 0, report.Loaded)

	facts := st.Facts()
	require.Len(t, facts, 1, "occ-2 must not be committed")
	assert.Equal(t, "occ-1", facts[0].ID)

	// The failed run still left its report behind.
	runs := st.savedRuns()
	require.Len(t, runs, 2)
	assert.Equal(t, pipeline.StatusFailed, runs[1].Status)
}

func TestRun_EmptyBatch(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	p := pipeline.New(testIndex(t), st, nil)

	report, err := p.Run(ctx, "blue_whale", nil)

	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusSucceeded, report.Status)
	assert.Zero(t, report.Input)
	assert.Zero(t, report.Loaded)
}

func TestRun_FillsVernacularFromCatalog(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()

	catalogPath := filepath.Join(t.TempDir(), "species.json")
	require.NoError(t, os.WriteFile(catalogPath, []byte(`{
		"blue_whale": {"scientificName": "Balaenoptera musculus", "vernacularName": "Blue Whale"}
	}`), 0o644))
	catalog, err := factory.LoadCatalog(catalogPath)
	require.NoError(t, err)

	p := pipeline.New(testIndex(t), st, catalog)

	r := raw("occ-1", "5", "5")
	r.VernacularName = ""
	_, err = p.Run(ctx, "blue_whale", []occurrence.RawRecord{r})
	require.NoError(t, err)

	facts := st.Facts()
	require.Len(t, facts, 1)
	assert.Equal(t, "Blue Whale", facts[0].VernacularName)
}

func TestRun_SaveReportFailureSurfaces(t *testing.T) {
	// A run that loads fine but cannot persist its report is still a failure:
	// an unrecorded run is invisible to operators.
	ctx := context.Background()
	st := newTestStore()
	st.saveErr = errors.New("disk full")
	p := pipeline.New(testIndex(t), st, nil)

	_, err := p.Run(ctx, "blue_whale", []occurrence.RawRecord{raw("occ-1", "5", "5")})
	assert.Error(t, err)
}
