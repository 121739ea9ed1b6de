package tileutil

import (
	"github.com/paulmach/orb/encoding/mvt"

	"github.com/tileserv/tileserv/internal/errs"
)

// MergeMVT decodes each uncompressed MVT tile in tiles (in order),
// concatenates their vector layers preserving order, and re-encodes a
// single MVT. Gzip-wrapped input is not unwrapped here; callers decode
// it first. On a duplicate layer name, the later source's layer
// replaces the earlier one at the earlier one's position. Each layer
// keeps the extent it was decoded with. The result is nil when no tile
// contributes a layer.
func MergeMVT(tiles [][]byte) ([]byte, error) {
	merged := make(mvt.Layers, 0)
	byName := make(map[string]int)

	for _, raw := range tiles {
		if len(raw) == 0 {
			continue
		}
		layers, err := mvt.Unmarshal(raw)
		if err != nil {
			return nil, errs.MalformedTile("mvt decode: " + err.Error())
		}
		for _, l := range layers {
			if idx, ok := byName[l.Name]; ok {
				merged[idx] = l
			} else {
				byName[l.Name] = len(merged)
				merged = append(merged, l)
			}
		}
	}

	if len(merged) == 0 {
		return nil, nil
	}

	out, err := mvt.Marshal(merged)
	if err != nil {
		return nil, errs.MalformedTile("mvt encode: " + err.Error())
	}
	return out, nil
}
