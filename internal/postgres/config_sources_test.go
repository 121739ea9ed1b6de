package postgres

import "testing"

func TestTableSourceFromConfigAppliesOverrides(t *testing.T) {
	ts, err := TableSourceFromConfig(nil, map[string]any{
		"id":              "parcels",
		"schema":          "public",
		"table":           "parcels",
		"geometry_column": "the_geom",
		"srid":            float64(3857),
		"extent":          float64(2048),
		"buffer":          float64(32),
		"clip_geometry":   false,
		"properties": []any{
			map[string]any{"name": "owner", "type": "text"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts.ID() != "parcels" || ts.Schema != "public" || ts.GeometryCol != "the_geom" || ts.SRID != 3857 {
		t.Errorf("unexpected table source: %+v", ts)
	}
	if ts.Extent != 2048 || ts.Buffer != 32 || ts.ClipGeometry {
		t.Errorf("expected overrides to apply, got extent=%d buffer=%d clip=%v", ts.Extent, ts.Buffer, ts.ClipGeometry)
	}
	if len(ts.Properties) != 1 || ts.Properties[0].Name != "owner" {
		t.Errorf("expected owner property, got %v", ts.Properties)
	}
}

func TestTableSourceFromConfigRequiresSchemaAndTable(t *testing.T) {
	if _, err := TableSourceFromConfig(nil, map[string]any{"schema": "public"}); err == nil {
		t.Error("expected error for missing table")
	}
}

func TestFunctionSourceFromConfigDefaultsID(t *testing.T) {
	fs, err := FunctionSourceFromConfig(nil, map[string]any{
		"schema":   "public",
		"function": "tile_fn",
		"output":   "record_bytea_text",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.ID() != "public.tile_fn" {
		t.Errorf("expected default id %q, got %q", "public.tile_fn", fs.ID())
	}
	if fs.Output != OutputRecordByteaText {
		t.Errorf("expected OutputRecordByteaText, got %v", fs.Output)
	}
}
