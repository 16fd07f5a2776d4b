package factory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelagos/occurrence-engine/factory"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "species.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCatalog(t *testing.T) {
	c, err := factory.LoadCatalog(writeCatalog(t, `{
		"blue_whale": {"scientificName": "Balaenoptera musculus", "vernacularName": "Blue Whale"},
		"gray_whale": {"scientificName": "Eschrichtius robustus"}
	}`))
	require.NoError(t, err)

	assert.True(t, c.Has("blue_whale"))
	assert.False(t, c.Has("narwhal"))
	assert.Equal(t, []string{"blue_whale", "gray_whale"}, c.Slugs())
}

func TestLoadCatalog_DerivesVernacularFromSlug(t *testing.T) {
	c, err := factory.LoadCatalog(writeCatalog(t, `{
		"north_atlantic_right_whale": {"scientificName": "Eubalaena glacialis"}
	}`))
	require.NoError(t, err)

	name, ok := c.VernacularFor("Eubalaena glacialis")
	require.True(t, ok)
	assert.Equal(t, "North Atlantic Right Whale", name)
}

func TestLoadCatalog_VernacularFor(t *testing.T) {
	c, err := factory.LoadCatalog(writeCatalog(t, `{
		"blue_whale": {"scientificName": "Balaenoptera musculus", "vernacularName": "Blue Whale"}
	}`))
	require.NoError(t, err)

	name, ok := c.VernacularFor("Balaenoptera musculus")
	require.True(t, ok)
	assert.Equal(t, "Blue Whale", name)

	_, ok = c.VernacularFor("Orcinus orca")
	assert.False(t, ok)
}

func TestLoadCatalog_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty object", `{}`},
		{"missing scientific name", `{"blue_whale": {"vernacularName": "Blue Whale"}}`},
		{"not json", `also not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.LoadCatalog(writeCatalog(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	_, err := factory.LoadCatalog(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
