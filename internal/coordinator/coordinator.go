// Package coordinator implements the tile request coordinator (C9): path
// parsing, coordinate validation, tile-cache lookup, dispatch to a single
// source or the composite engine, encoding negotiation, and the
// errs.Kind-to-HTTP-status mapping every endpoint shares.
//
// Grounded on the teacher's internal/server/server.go handleTiles (raw
// http.ServeMux byte-serving handler with CORS headers), generalized
// from static-file serving to dynamic backend dispatch.
package coordinator

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/tileserv/tileserv/internal/cache"
	"github.com/tileserv/tileserv/internal/catalog"
	"github.com/tileserv/tileserv/internal/composite"
	"github.com/tileserv/tileserv/internal/errs"
	"github.com/tileserv/tileserv/internal/metrics"
	"github.com/tileserv/tileserv/internal/tileutil"
)

// TileCoord is a single tile's zoom/column/row address.
type TileCoord struct {
	Z uint8
	X uint32
	Y uint32
}

// TileKey identifies a cached tile: the source ID (or comma-joined
// composite key, preserving request order per composite.CacheKeyString),
// the coordinate, and the hash of any URL query consumed by the source.
type TileKey struct {
	Lookup    string
	Coord     TileCoord
	QueryHash uint64
}

func keyString(k TileKey) string {
	return fmt.Sprintf("%s/%d/%d/%d?%x", k.Lookup, k.Coord.Z, k.Coord.X, k.Coord.Y, k.QueryHash)
}

// TileCache is the shared, byte-budget-bounded, single-flight tile
// cache (§4.3).
type TileCache = cache.Cache[TileKey, tileutil.Tile]

// NewTileCache builds a TileCache bounded by budgetBytes, costed by tile
// body length.
func NewTileCache(budgetBytes int) *TileCache {
	return cache.New[TileKey, tileutil.Tile](budgetBytes, func(t tileutil.Tile) int {
		return len(t.Bytes)
	}, keyString)
}

// Coordinator dispatches tile requests against a Catalog, consulting a
// shared TileCache and negotiating the response encoding.
type Coordinator struct {
	Catalog           *catalog.Catalog
	Cache             *TileCache
	PreferredEncoding tileutil.Encoding
	Metrics           *metrics.Metrics
}

// New builds a Coordinator.
func New(cat *catalog.Catalog, tc *TileCache, preferred tileutil.Encoding, m *metrics.Metrics) *Coordinator {
	return &Coordinator{Catalog: cat, Cache: tc, PreferredEncoding: preferred, Metrics: m}
}

// ServeHTTP handles GET /{sourceId}/{z}/{x}/{y}[.ext] and
// GET /{id1,id2,...}/{z}/{x}/{y}[.ext] (§4.8, §6).
func (c *Coordinator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	lookup, coord, ok := parsePath(r.URL.Path)
	if !ok {
		writeError(w, errs.MalformedRequest("malformed tile path: "+r.URL.Path))
		return
	}

	ids := composite.ParseSourceList(lookup)
	query := ParseQueryJSON(r.URL.Query())
	qHash := QueryHash(query)

	tile, err := c.fetch(r.Context(), lookup, ids, coord, query, qHash)
	if err != nil {
		writeError(w, err)
		return
	}
	c.writeTile(w, r, tile)
}

func (c *Coordinator) fetch(ctx context.Context, lookup string, ids []string, coord TileCoord, query map[string]any, qHash uint64) (tileutil.Tile, error) {
	if len(ids) == 1 {
		if src, ok := c.Catalog.Lookup(ids[0]); ok && !src.SupportsURLQuery() {
			qHash = 0
		}
	}
	key := TileKey{Lookup: lookup, Coord: coord, QueryHash: qHash}

	tile, err, hit := c.Cache.GetOrCompute(key, func() (tileutil.Tile, error) {
		if len(ids) == 1 {
			src, ok := c.Catalog.Lookup(ids[0])
			if !ok {
				return tileutil.Tile{}, errs.NotFound("unknown source: " + ids[0])
			}
			if !tileutil.ValidCoord(coord.Z, coord.X, coord.Y) {
				return tileutil.Tile{}, errs.MalformedRequest("coordinate out of range")
			}
			if !src.SupportsURLQuery() {
				query = nil
			}
			return src.GetTile(ctx, coord.Z, coord.X, coord.Y, query)
		}

		sources, err := composite.Resolve(c.Catalog, ids)
		if err != nil {
			return tileutil.Tile{}, err
		}
		if !tileutil.ValidCoord(coord.Z, coord.X, coord.Y) {
			return tileutil.Tile{}, errs.MalformedRequest("coordinate out of range")
		}
		return composite.Fetch(ctx, sources, coord.Z, coord.X, coord.Y, query)
	})

	if c.Metrics != nil {
		if hit {
			c.Metrics.TileCacheHits.Inc()
		} else {
			c.Metrics.TileCacheMisses.Inc()
		}
	}
	return tile, err
}

func (c *Coordinator) writeTile(w http.ResponseWriter, r *http.Request, tile tileutil.Tile) {
	if len(tile.Bytes) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	body, enc, err := negotiateEncoding(r, tile, c.PreferredEncoding)
	if err != nil {
		writeError(w, err)
		return
	}

	etag := tile.ETag
	if etag == "" {
		etag = fmt.Sprintf(`"%x"`, xxhash.Sum64(tile.Bytes))
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", tile.Info.Format.ContentType())
	if enc != tileutil.EncodingIdentity {
		w.Header().Set("Content-Encoding", enc.String())
	}
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Write(body)
}

// negotiateEncoding transcodes tile.Bytes to the best encoding the
// client accepts, preferring preferred when the client places no
// ordering on it. Opaque raster formats (PNG, JPEG, WebP, GIF) are
// already compressed at the pixel level and are never re-encoded;
// they're returned as stored, with their own declared encoding.
func negotiateEncoding(r *http.Request, tile tileutil.Tile, preferred tileutil.Encoding) ([]byte, tileutil.Encoding, error) {
	if isOpaqueFormat(tile.Info.Format) {
		return tile.Bytes, tile.Info.Encoding, nil
	}

	accept := r.Header.Get("Accept-Encoding")
	want := preferred
	if accept != "" && !acceptsEncoding(accept, preferred) {
		want = tileutil.EncodingIdentity
		if acceptsEncoding(accept, tileutil.EncodingGzip) {
			want = tileutil.EncodingGzip
		}
	}
	body, err := tileutil.Transcode(tile.Bytes, tile.Info.Encoding, want)
	if err != nil {
		return nil, tileutil.EncodingIdentity, err
	}
	return body, want, nil
}

func isOpaqueFormat(f tileutil.Format) bool {
	switch f {
	case tileutil.FormatPNG, tileutil.FormatJPEG, tileutil.FormatWebP, tileutil.FormatGIF:
		return true
	default:
		return false
	}
}

func acceptsEncoding(header string, enc tileutil.Encoding) bool {
	if enc == tileutil.EncodingIdentity {
		return true
	}
	for _, tok := range strings.Split(header, ",") {
		tok = strings.TrimSpace(strings.SplitN(tok, ";", 2)[0])
		if tok == enc.String() || tok == "*" {
			return true
		}
	}
	return false
}

// parsePath splits "/{lookup}/{z}/{x}/{y}[.ext]" into the lookup
// component and the coordinate. Trailing extensions (".mvt", ".pbf",
// ".png", ...) are accepted and ignored; the source's own declared
// format governs Content-Type.
func parsePath(path string) (lookup string, coord TileCoord, ok bool) {
	path = strings.TrimPrefix(path, "/")
	parts := strings.Split(path, "/")
	if len(parts) < 4 {
		return "", TileCoord{}, false
	}
	lookup = strings.Join(parts[:len(parts)-3], "/")
	zs, xs, ys := parts[len(parts)-3], parts[len(parts)-2], parts[len(parts)-1]
	if i := strings.LastIndexByte(ys, '.'); i > 0 {
		ys = ys[:i]
	}

	z, err1 := strconv.ParseUint(zs, 10, 8)
	x, err2 := strconv.ParseUint(xs, 10, 32)
	y, err3 := strconv.ParseUint(ys, 10, 32)
	if err1 != nil || err2 != nil || err3 != nil || lookup == "" {
		return "", TileCoord{}, false
	}
	return lookup, TileCoord{Z: uint8(z), X: uint32(x), Y: uint32(y)}, true
}

// writeError maps an errs.Kind to an HTTP status per §4.9 and writes a
// JSON error body.
func writeError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case errs.KindNotFound:
		status = http.StatusNotFound
	case errs.KindMalformedRequest:
		status = http.StatusBadRequest
	case errs.KindTimeout:
		status = http.StatusGatewayTimeout
	case errs.KindUpstream, errs.KindMalformedTile:
		status = http.StatusInternalServerError
	case errs.KindConfig:
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q}`, err.Error())
}
