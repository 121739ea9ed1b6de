package tileutil

import "testing"

func TestXYZToTMSYInvolution(t *testing.T) {
	cases := []struct {
		z uint8
		y uint32
	}{
		{0, 0},
		{1, 0},
		{1, 1},
		{5, 17},
		{20, 524287},
	}
	for _, c := range cases {
		got := XYZToTMSY(c.z, XYZToTMSY(c.z, c.y))
		if got != c.y {
			t.Errorf("XYZToTMSY(%d, XYZToTMSY(%d, %d)) = %d, want %d", c.z, c.z, c.y, got, c.y)
		}
	}
}

func TestValidCoord(t *testing.T) {
	cases := []struct {
		z    uint8
		x, y uint32
		want bool
	}{
		{0, 0, 0, true},
		{5, 40, 0, false},
		{31, 0, 0, false},
		{5, 31, 31, true},
		{5, 32, 0, false},
	}
	for _, c := range cases {
		if got := ValidCoord(c.z, c.x, c.y); got != c.want {
			t.Errorf("ValidCoord(%d,%d,%d) = %v, want %v", c.z, c.x, c.y, got, c.want)
		}
	}
}

func TestTileBounds3857Zoom0(t *testing.T) {
	xmin, ymin, xmax, ymax := TileBounds3857(0, 0, 0)
	if xmin != -originShift || ymin != -originShift {
		t.Errorf("zoom 0 tile should cover the full world, got min (%f, %f)", xmin, ymin)
	}
	if xmax != originShift || ymax != originShift {
		t.Errorf("zoom 0 tile should cover the full world, got max (%f, %f)", xmax, ymax)
	}
}
