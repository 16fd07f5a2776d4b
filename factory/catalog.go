/*
Package factory builds domain values from JSON configuration.

The species catalog names the species the pipeline knows how to ingest: a map
of directory slugs ("blue_whale") to scientific and common names. It backs
CLI/API species validation and fills in missing vernacular names on records.
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// SpeciesJSON is the on-disk shape of one catalog entry.
type SpeciesJSON struct {
	ScientificName string `json:"scientificName"`
	VernacularName string `json:"vernacularName,omitempty"`
}

// Catalog maps species slugs to their names.
type Catalog struct {
	entries map[string]SpeciesJSON
}

// LoadCatalog reads a catalog file of the form
//
//	{"blue_whale": {"scientificName": "Balaenoptera musculus"}, ...}
//
// Entries without a vernacular name get one derived from the slug
// ("blue_whale" -> "Blue Whale").
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read species catalog %s: %w", path, err)
	}
	var entries map[string]SpeciesJSON
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse species catalog %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("species catalog %s is empty", path)
	}

	for slug, e := range entries {
		if e.ScientificName == "" {
			return nil, fmt.Errorf("species catalog %s: %q has no scientificName", path, slug)
		}
		if e.VernacularName == "" {
			e.VernacularName = displayName(slug)
			entries[slug] = e
		}
	}
	return &Catalog{entries: entries}, nil
}

// Has reports whether a slug is a known species.
func (c *Catalog) Has(slug string) bool {
	_, ok := c.entries[slug]
	return ok
}

// Slugs returns all known species slugs, sorted.
func (c *Catalog) Slugs() []string {
	out := make([]string, 0, len(c.entries))
	for slug := range c.entries {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}

// VernacularFor returns the common name for a scientific name.
func (c *Catalog) VernacularFor(scientificName string) (string, bool) {
	for _, e := range c.entries {
		if e.ScientificName == scientificName {
			return e.VernacularName, true
		}
	}
	return "", false
}

// displayName turns "blue_whale" into "Blue Whale".
func displayName(slug string) string {
	words := strings.Split(strings.ReplaceAll(slug, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
