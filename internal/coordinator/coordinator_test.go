package coordinator

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/tileserv/tileserv/internal/tileutil"
)

func TestParsePath(t *testing.T) {
	cases := []struct {
		path       string
		wantLookup string
		wantCoord  TileCoord
		wantOK     bool
	}{
		{"/water/3/4/5", "water", TileCoord{3, 4, 5}, true},
		{"/water/3/4/5.mvt", "water", TileCoord{3, 4, 5}, true},
		{"/water,boundaries/3/4/5.pbf", "water,boundaries", TileCoord{3, 4, 5}, true},
		{"/water/3/4", "", TileCoord{}, false},
		{"/water/x/4/5", "", TileCoord{}, false},
	}
	for _, c := range cases {
		lookup, coord, ok := parsePath(c.path)
		if ok != c.wantOK {
			t.Errorf("parsePath(%q) ok=%v, want %v", c.path, ok, c.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if lookup != c.wantLookup || coord != c.wantCoord {
			t.Errorf("parsePath(%q) = (%q, %+v), want (%q, %+v)", c.path, lookup, coord, c.wantLookup, c.wantCoord)
		}
	}
}

func TestQueryHashStableAcrossKeyOrder(t *testing.T) {
	a := QueryHash(map[string]any{"status": "open", "year": 2024.0})
	b := QueryHash(map[string]any{"year": 2024.0, "status": "open"})
	if a != b {
		t.Errorf("QueryHash should be order-independent: %d != %d", a, b)
	}
	if QueryHash(nil) != 0 {
		t.Errorf("empty query should hash to 0")
	}
}

func TestAcceptsEncoding(t *testing.T) {
	if !acceptsEncoding("gzip, deflate, br", tileutil.EncodingBrotli) {
		t.Error("expected br to be accepted")
	}
	if acceptsEncoding("gzip, deflate", tileutil.EncodingBrotli) {
		t.Error("expected br to be rejected")
	}
	if !acceptsEncoding("", tileutil.EncodingIdentity) {
		t.Error("identity is always accepted")
	}
}

func TestNegotiateEncodingNeverTranscodesOpaqueRaster(t *testing.T) {
	tile := tileutil.Tile{
		Info:  tileutil.Info{Format: tileutil.FormatPNG, Encoding: tileutil.EncodingIdentity},
		Bytes: []byte("\x89PNG fake bytes"),
	}
	r := &http.Request{Header: http.Header{"Accept-Encoding": []string{"gzip, br, zstd"}}, URL: &url.URL{}}
	body, enc, err := negotiateEncoding(r, tile, tileutil.EncodingGzip)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if enc != tileutil.EncodingIdentity {
		t.Errorf("opaque raster tile should never be re-encoded, got %v", enc)
	}
	if string(body) != string(tile.Bytes) {
		t.Errorf("opaque raster tile body should be returned untouched")
	}
}

func TestNegotiateEncodingFallsBackToIdentity(t *testing.T) {
	tile := tileutil.Tile{
		Info:  tileutil.Info{Format: tileutil.FormatMVT, Encoding: tileutil.EncodingIdentity},
		Bytes: []byte("hello"),
	}
	r := &http.Request{Header: http.Header{"Accept-Encoding": []string{"identity"}}, URL: &url.URL{}}
	body, enc, err := negotiateEncoding(r, tile, tileutil.EncodingGzip)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if enc != tileutil.EncodingIdentity {
		t.Errorf("expected fallback to identity, got %v", enc)
	}
	if string(body) != "hello" {
		t.Errorf("expected untouched body, got %q", body)
	}
}
