package tileutil

import "math"

const earthRadiusMeters = 6378137.0
const originShift = math.Pi * earthRadiusMeters

// XYZToTMSY converts between XYZ (top-origin) and TMS (bottom-origin)
// row numbering at zoom z. It is its own inverse.
func XYZToTMSY(z uint8, y uint32) uint32 {
	return (uint32(1)<<z - 1) - y
}

// ValidCoord reports whether (z, x, y) satisfies the coordinate
// invariants: z <= 30 and x, y < 2^z.
func ValidCoord(z uint8, x, y uint32) bool {
	if z > 30 {
		return false
	}
	max := uint32(1) << z
	return x < max && y < max
}

// TileBounds3857 returns the (xmin, ymin, xmax, ymax) envelope of tile
// (z, x, y) in Web Mercator meters, top-origin (XYZ) y convention.
func TileBounds3857(z uint8, x, y uint32) (xmin, ymin, xmax, ymax float64) {
	n := float64(uint32(1) << z)
	tileSize := 2 * originShift / n
	xmin = -originShift + float64(x)*tileSize
	xmax = xmin + tileSize
	ymax = originShift - float64(y)*tileSize
	ymin = ymax - tileSize
	return
}
