// Package catalog defines the uniform Source capability set and the
// immutable, name-resolved Catalog built from it at startup.
package catalog

import (
	"context"

	"github.com/tileserv/tileserv/internal/tileutil"
)

// TileJSON is the descriptor published for a source.
type TileJSON struct {
	Name        string            `json:"name"`
	Attribution string            `json:"attribution,omitempty"`
	MinZoom     int               `json:"minzoom"`
	MaxZoom     int               `json:"maxzoom"`
	Bounds      [4]float64        `json:"bounds,omitempty"`
	Center      [3]float64        `json:"center,omitempty"`
	Format      string            `json:"format"`
	Encoding    string            `json:"encoding,omitempty"`
	VectorLayers []VectorLayer    `json:"vector_layers,omitempty"`
	Extra       map[string]any    `json:"-"`
}

// VectorLayer describes one MVT layer advertised by a source.
type VectorLayer struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Source is the uniform capability set every backend must expose. It
// mirrors spec §4.2's trait: a tagged-variant implementation per
// backend, accessed only through this interface.
type Source interface {
	// ID returns the source's assigned identifier.
	ID() string
	// TileInfo returns the declared (format, encoding) for tiles this
	// source produces.
	TileInfo() tileutil.Info
	// Descriptor returns the source's TileJSON view.
	Descriptor() TileJSON
	// GetTile fetches a tile, returning a *errs.Error of kind NotFound,
	// MalformedRequest, or Upstream on failure. A nil error with an
	// empty Bytes slice is the valid "blank tile" result and MUST be
	// cached by the caller.
	GetTile(ctx context.Context, z uint8, x, y uint32, query map[string]any) (tileutil.Tile, error)
	// SupportsURLQuery reports whether this source consumes the query
	// parameter; sources that return false MUST ignore it.
	SupportsURLQuery() bool
	// IsEmptyOkayOnZoom reports whether an absent tile at z is expected
	// (not a fatal condition for composite requests). Defaults to false
	// unless a backend overrides it.
	IsEmptyOkayOnZoom(z uint8) bool
}
