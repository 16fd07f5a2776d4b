/*
Package geo maps coordinates to named ocean regions.

PURPOSE:
  The spatial enricher assigns each occurrence the name of the ocean region
  its point falls in, from a GeoJSON dataset of named region polygons (the
  Global Oceans and Seas dataset in production). Loading the dataset is the
  expensive part, so an Index is built once per run and reused for every
  record in the batch - this reuse is why the pipeline is batch-oriented.

DETERMINISM:
  Features are tested in the order they appear in the file. When regions
  overlap (a known data artifact along some seams), the first containing
  feature wins, and that choice is stable across runs.

BOUNDARIES:
  Points exactly on a polygon boundary are decided by orb's planar
  containment test; no special casing here.
*/
package geo

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/shopspring/decimal"

	"github.com/pelagos/occurrence-engine/occurrence"
)

// nameProperty is the feature property holding the region name.
const nameProperty = "name"

// Index is a loaded, ordered collection of named region polygons.
type Index struct {
	features []*geojson.Feature
}

// Load reads a GeoJSON FeatureCollection of region polygons. A failure here
// is fatal for the run: without regions no record can be enriched.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read region dataset %s: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse region dataset %s: %w", path, err)
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("region dataset %s contains no features", path)
	}
	return &Index{features: fc.Features}, nil
}

// Len returns the number of region features.
func (ix *Index) Len() int { return len(ix.features) }

// Locate returns the name of the first region containing the point, in the
// dataset's feature order. ok is false when no region contains it (open
// ocean outside the dataset, or land).
func (ix *Index) Locate(lat, lon decimal.Decimal) (name string, ok bool) {
	point := orb.Point{lon.InexactFloat64(), lat.InexactFloat64()}

	for _, f := range ix.features {
		if !contains(f.Geometry, point) {
			continue
		}
		if n, ok := f.Properties[nameProperty].(string); ok {
			return n, true
		}
		// Unnamed feature: the point is accounted for but unresolvable.
		return "", false
	}
	return "", false
}

// Enrich overwrites each record's water body with the enclosing region name,
// or nil when the point is in no known region. Source-provided water-body
// values are deliberately replaced: the provider's naming is inconsistent and
// the whole point of this stage is a uniform vocabulary.
func (ix *Index) Enrich(records []occurrence.Record) []occurrence.Record {
	for i := range records {
		if name, ok := ix.Locate(records[i].Latitude, records[i].Longitude); ok {
			n := name
			records[i].WaterBody = &n
		} else {
			records[i].WaterBody = nil
		}
	}
	return records
}

func contains(g orb.Geometry, p orb.Point) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(geom, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geom, p)
	default:
		return false
	}
}
