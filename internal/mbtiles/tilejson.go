package mbtiles

import (
	"strconv"
	"strings"

	"github.com/tileserv/tileserv/internal/catalog"
)

// buildTileJSON builds a catalog.TileJSON from the metadata table's
// key/value rows, following the shape of
// other_examples/28a14a10_tarkov-database-tileserver__model-tile.go.go's
// GetTileJSON.
func buildTileJSON(id string, meta map[string]string) catalog.TileJSON {
	tj := catalog.TileJSON{
		Name:    id,
		MinZoom: 0,
		MaxZoom: 22,
		Format:  "pbf",
		Bounds:  [4]float64{-180, -85.0511, 180, 85.0511},
	}
	if name, ok := meta["name"]; ok {
		tj.Name = name
	}
	if attr, ok := meta["attribution"]; ok {
		tj.Attribution = attr
	}
	if minz, ok := meta["minzoom"]; ok {
		if v, err := strconv.Atoi(minz); err == nil {
			tj.MinZoom = v
		}
	}
	if maxz, ok := meta["maxzoom"]; ok {
		if v, err := strconv.Atoi(maxz); err == nil {
			tj.MaxZoom = v
		}
	}
	if bounds, ok := meta["bounds"]; ok {
		if b, ok := parseBounds(bounds); ok {
			tj.Bounds = b
		}
	}
	return tj
}

func parseBounds(s string) ([4]float64, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return [4]float64{}, false
	}
	var out [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return [4]float64{}, false
		}
		out[i] = v
	}
	return out, true
}
