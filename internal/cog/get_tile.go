package cog

import (
	"context"

	"github.com/tileserv/tileserv/internal/errs"
	"github.com/tileserv/tileserv/internal/tileutil"
)

// GetTile maps z to the overview subfile whose horizontal resolution
// best covers the requested tile, then locates (x, y) within that
// subfile's own tile index (§4.7). Out-of-range requests return empty.
func (s *Source) GetTile(ctx context.Context, z uint8, x, y uint32, _ map[string]any) (tileutil.Tile, error) {
	if !tileutil.ValidCoord(z, x, y) {
		return tileutil.Tile{}, errs.MalformedRequest("coordinate out of range")
	}

	sf := s.selectSubfile(z)
	if sf == nil {
		return tileutil.Tile{Info: s.TileInfo(), Bytes: nil}, nil
	}

	tilesAcross := (sf.width + sf.tileWidth - 1) / sf.tileWidth
	tilesDown := (sf.height + sf.tileLength - 1) / sf.tileLength
	if x >= tilesAcross || y >= tilesDown {
		return tileutil.Tile{Info: s.TileInfo(), Bytes: nil}, nil
	}

	idx := y*tilesAcross + x
	if int(idx) >= len(sf.tileOffsets) || int(idx) >= len(sf.tileByteCounts) {
		return tileutil.Tile{Info: s.TileInfo(), Bytes: nil}, nil
	}

	data := make([]byte, sf.tileByteCounts[idx])
	if _, err := s.r.ReadAt(data, int64(sf.tileOffsets[idx])); err != nil {
		return tileutil.Tile{}, errs.Upstream("reading cog tile", err)
	}
	return tileutil.Tile{Info: s.TileInfo(), Bytes: data}, nil
}

// selectSubfile picks the overview whose resolution best matches
// requested zoom z, approximating "256 << z" pixels across the full
// world as the target resolution and choosing the narrowest subfile
// that is at least that wide, falling back to the highest-resolution
// subfile available.
func (s *Source) selectSubfile(z uint8) *subfile {
	target := uint32(256) << z
	var best *subfile
	for i := range s.subfiles {
		sf := &s.subfiles[i]
		if sf.width >= target && (best == nil || sf.width < best.width) {
			best = sf
		}
	}
	if best == nil {
		for i := range s.subfiles {
			sf := &s.subfiles[i]
			if best == nil || sf.width > best.width {
				best = sf
			}
		}
	}
	return best
}
