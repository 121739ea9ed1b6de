package mbtiles

import "testing"

func TestBuildTileJSONReadsMetadata(t *testing.T) {
	meta := map[string]string{
		"name":        "roads",
		"attribution": "OSM",
		"minzoom":     "2",
		"maxzoom":     "12",
		"bounds":      "-10.5,40.0,10.5,50.0",
	}
	tj := buildTileJSON("roads_src", meta)

	if tj.Name != "roads" {
		t.Errorf("expected name override, got %q", tj.Name)
	}
	if tj.MinZoom != 2 || tj.MaxZoom != 12 {
		t.Errorf("expected zoom range [2,12], got [%d,%d]", tj.MinZoom, tj.MaxZoom)
	}
	want := [4]float64{-10.5, 40.0, 10.5, 50.0}
	if tj.Bounds != want {
		t.Errorf("expected bounds %v, got %v", want, tj.Bounds)
	}
}

func TestBuildTileJSONDefaultsWithoutMetadata(t *testing.T) {
	tj := buildTileJSON("id", map[string]string{})
	if tj.Name != "id" {
		t.Errorf("expected fallback name %q, got %q", "id", tj.Name)
	}
	if tj.MinZoom != 0 || tj.MaxZoom != 22 {
		t.Errorf("expected default zoom range [0,22], got [%d,%d]", tj.MinZoom, tj.MaxZoom)
	}
}

func TestParseBoundsRejectsMalformed(t *testing.T) {
	if _, ok := parseBounds("1,2,3"); ok {
		t.Error("expected malformed bounds (3 fields) to be rejected")
	}
	if _, ok := parseBounds("a,b,c,d"); ok {
		t.Error("expected non-numeric bounds to be rejected")
	}
}
