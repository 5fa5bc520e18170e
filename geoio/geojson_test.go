package geoio

import (
	"path/filepath"
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "geometry": {"type": "Polygon", "coordinates": [[[0,0],[4,0],[4,4],[0,4],[0,0]]]},
      "properties": {"UNIQUE_ID": 1001, "k": 0.5, "area_m2": 1000.0}
    },
    {
      "type": "Feature",
      "geometry": {"type": "Point", "coordinates": [2, 2]},
      "properties": {"UNIQUE_ID": "loc-2", "k": 0.25}
    }
  ]
}`

func TestDecode(t *testing.T) {
	ds, err := Decode([]byte(sample))
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())

	poly, ok := ds.Features[0].Geometry.(geom.Polygon)
	require.True(t, ok)
	assert.Len(t, poly[0], 5)

	// Integer-valued JSON numbers read back as clean identifier strings.
	assert.Equal(t, "1001", ds.Features[0].String("UNIQUE_ID"))
	assert.Equal(t, "loc-2", ds.Features[1].String("UNIQUE_ID"))

	k, ok := ds.Features[0].Float("k")
	require.True(t, ok)
	assert.Equal(t, 0.5, k)

	_, ok = ds.Features[1].Float("area_m2")
	assert.False(t, ok)

	pt, ok := ds.Features[1].Geometry.(geom.Point)
	require.True(t, ok)
	assert.Equal(t, geom.Point{X: 2, Y: 2}, pt)
}

func TestDecodeRejectsNonCollection(t *testing.T) {
	_, err := Decode([]byte(`{"type": "Feature"}`))
	assert.ErrorContains(t, err, "FeatureCollection")
}

func TestDecodeRejectsUnknownGeometry(t *testing.T) {
	_, err := Decode([]byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]},"properties":{}}]}`))
	assert.ErrorContains(t, err, "LineString")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ds, err := Decode([]byte(sample))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.geojson")
	require.NoError(t, Save(path, ds))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ds.Len(), got.Len())
	assert.Equal(t, ds.Features[0].Geometry, got.Features[0].Geometry)
	assert.Equal(t, "loc-2", got.Features[1].String("UNIQUE_ID"))
}
