package postgres

import "testing"

func TestMergeCommentMetadataOverridesDescriptor(t *testing.T) {
	fs := NewFunctionSource(nil, "public.tile_fn", "public", "tile_fn", true, OutputBytea)

	fs.MergeCommentMetadata(map[string]any{
		"name":        "Parcels",
		"attribution": "County GIS",
		"minzoom":     float64(4),
		"maxzoom":     float64(16),
	})

	d := fs.Descriptor()
	if d.Name != "Parcels" {
		t.Errorf("expected name override, got %q", d.Name)
	}
	if d.Attribution != "County GIS" {
		t.Errorf("expected attribution override, got %q", d.Attribution)
	}
	if d.MinZoom != 4 || d.MaxZoom != 16 {
		t.Errorf("expected zoom range [4,16], got [%d,%d]", d.MinZoom, d.MaxZoom)
	}
}

func TestMergeCommentMetadataIgnoresUnknownOrWrongTypedKeys(t *testing.T) {
	fs := NewFunctionSource(nil, "public.tile_fn", "public", "tile_fn", false, OutputBytea)

	fs.MergeCommentMetadata(map[string]any{
		"minzoom": "not-a-number",
		"unknown": "whatever",
	})

	d := fs.Descriptor()
	if d.MinZoom != 0 || d.MaxZoom != 22 {
		t.Errorf("expected defaults to survive a malformed patch, got [%d,%d]", d.MinZoom, d.MaxZoom)
	}
}
