package pmtiles

// ZXYToTileID is an alias for ZxyToID kept for readability at call
// sites that think in (z,x,y) order; both are the same Hilbert-curve
// bijection from §3's "Hilbert tile ID" glossary entry.
func ZXYToTileID(z uint8, x, y uint32) uint64 { return ZxyToID(z, x, y) }

// TileIDToZXY is the inverse Hilbert mapping, grounded on
// pspoerri-geotiff2pmtiles/internal/pmtiles/directory.go's
// TileIDToZXY/hilbertToXY (the teacher's pmtiles.go only implements the
// forward direction).
func TileIDToZXY(id uint64) (z uint8, x, y uint32) {
	var acc uint64
	z = 0
	for {
		numTiles := uint64(1) << (z * 2)
		if acc+numTiles > id {
			break
		}
		acc += numTiles
		z++
		if z > 31 {
			return 0, 0, 0
		}
	}
	pos := id - acc
	x, y = hilbertToXY(z, pos)
	return z, x, y
}

func hilbertToXY(z uint8, pos uint64) (uint32, uint32) {
	var x, y uint32
	t := pos
	for s := uint64(1); s < (uint64(1) << z); s *= 2 {
		rx := uint32(1 & (t / 2))
		ry := uint32(1 & (t ^ uint64(rx)))
		x, y = rotateInverse(uint32(s), x, y, rx, ry)
		x += uint32(s) * rx
		y += uint32(s) * ry
		t /= 4
	}
	return x, y
}

func rotateInverse(n, x, y, rx, ry uint32) (uint32, uint32) {
	if ry == 0 {
		if rx == 1 {
			x = n - 1 - x
			y = n - 1 - y
		}
		return y, x
	}
	return x, y
}
