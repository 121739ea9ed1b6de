package pmtiles

import "github.com/tileserv/tileserv/internal/catalog"

// buildTileJSON merges the archive's header bounds/zoom/center with its
// JSON metadata blob into a catalog.TileJSON, following the real
// protomaps/go-pmtiles GetTilejson (pmtiles-tilejson.go): header fields
// are authoritative for zoom/bounds/center, the metadata blob supplies
// name/attribution/vector_layers. Other metadata keys, such as
// description, are not carried into the TileJSON.
func buildTileJSON(id string, h HeaderV3, metadata map[string]any) catalog.TileJSON {
	tj := catalog.TileJSON{
		Name:    id,
		MinZoom: int(h.MinZoom),
		MaxZoom: int(h.MaxZoom),
		Format:  tileTypeToFormat(h.TileType).String(),
		Bounds: [4]float64{
			float64(h.MinLonE7) / 1e7,
			float64(h.MinLatE7) / 1e7,
			float64(h.MaxLonE7) / 1e7,
			float64(h.MaxLatE7) / 1e7,
		},
		Center: [3]float64{
			float64(h.CenterLonE7) / 1e7,
			float64(h.CenterLatE7) / 1e7,
			float64(h.CenterZoom),
		},
	}

	if name, ok := metadata["name"].(string); ok {
		tj.Name = name
	}
	if attr, ok := metadata["attribution"].(string); ok {
		tj.Attribution = attr
	}
	if layers, ok := metadata["vector_layers"].([]any); ok {
		for _, l := range layers {
			lm, ok := l.(map[string]any)
			if !ok {
				continue
			}
			id, _ := lm["id"].(string)
			fields, _ := lm["fields"].(map[string]any)
			tj.VectorLayers = append(tj.VectorLayers, catalog.VectorLayer{ID: id, Fields: fields})
		}
	}
	return tj
}
