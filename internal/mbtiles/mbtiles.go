// Package mbtiles implements the MBTiles backend (C6): a read-only
// SQLite reader over the three tile schemas (flat, flat-with-hash,
// normalized), presenting a uniform tiles(zoom_level, tile_column,
// tile_row, tile_data) view with TMS y on disk.
//
// Grounded directly on
// other_examples/61d03196_tarkov-database-tileserver__core-mbtiles-mbtiles.go.go
// (schema sniffing via sqlite_master, magic-byte format detection,
// metadata-table parsing) adapted to this repo's catalog.Source
// interface and error taxonomy.
package mbtiles

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tileserv/tileserv/internal/catalog"
	"github.com/tileserv/tileserv/internal/errs"
	"github.com/tileserv/tileserv/internal/tileutil"
)

// Schema identifies which of the three documented MBTiles table
// layouts an archive uses (§4.6).
type Schema int

const (
	SchemaFlat Schema = iota
	SchemaFlatWithHash
	SchemaNormalized
)

// Source implements catalog.Source over one MBTiles archive.
type Source struct {
	id       string
	db       *sql.DB
	schema   Schema
	format   tileutil.Format
	encoding tileutil.Encoding
	tiles    string // the logical view/table name to SELECT from
	descriptor catalog.TileJSON
}

// Open opens path read-only, validates the required tables exist, and
// detects the schema and tile format (§4.6).
func Open(ctx context.Context, id, path string) (*Source, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro&cache=private", path))
	if err != nil {
		return nil, errs.Config("opening mbtiles archive "+path, err)
	}
	db.SetMaxOpenConns(4)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errs.Config("opening mbtiles archive "+path, err)
	}

	schema, tiles, err := detectSchema(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	format, encoding, err := detectFormat(ctx, db, tiles)
	if err != nil {
		db.Close()
		return nil, err
	}

	meta, err := readMetadata(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Source{id: id, db: db, schema: schema, format: format, encoding: encoding, tiles: tiles}
	s.descriptor = buildTileJSON(id, meta)
	return s, nil
}

func (s *Source) ID() string { return s.id }

func (s *Source) TileInfo() tileutil.Info {
	return tileutil.Info{Format: s.format, Encoding: s.encoding}
}

func (s *Source) Descriptor() catalog.TileJSON { return s.descriptor }

func (s *Source) SupportsURLQuery() bool         { return false }
func (s *Source) IsEmptyOkayOnZoom(z uint8) bool { return false }

// GetTile converts the request's XYZ y to the on-disk TMS y (§3, §4.6)
// and queries the detected logical tiles view.
func (s *Source) GetTile(ctx context.Context, z uint8, x, y uint32, _ map[string]any) (tileutil.Tile, error) {
	if !tileutil.ValidCoord(z, x, y) {
		return tileutil.Tile{}, errs.MalformedRequest("coordinate out of range")
	}
	tmsY := tileutil.XYZToTMSY(z, y)

	q := fmt.Sprintf("SELECT tile_data FROM %s WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?", s.tiles)
	row := s.db.QueryRowContext(ctx, q, z, x, tmsY)

	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return tileutil.Tile{Info: s.TileInfo(), Bytes: nil}, nil
		}
		return tileutil.Tile{}, errs.Upstream("mbtiles query", err)
	}
	return tileutil.Tile{Info: s.TileInfo(), Bytes: data}, nil
}

func (s *Source) Close() error { return s.db.Close() }

func detectSchema(ctx context.Context, db *sql.DB) (Schema, string, error) {
	has := func(name string) (bool, error) {
		var count int
		err := db.QueryRowContext(ctx,
			"SELECT count(*) FROM sqlite_master WHERE name = ? AND type IN ('table','view')", name).Scan(&count)
		return count > 0, err
	}

	if ok, err := has("tiles_with_hash"); err != nil {
		return 0, "", errs.Upstream("inspecting sqlite_master", err)
	} else if ok {
		return SchemaFlatWithHash, "tiles", nil
	}

	if okMap, err := has("map"); err != nil {
		return 0, "", errs.Upstream("inspecting sqlite_master", err)
	} else if okMap {
		if okImages, err := has("images"); err != nil {
			return 0, "", errs.Upstream("inspecting sqlite_master", err)
		} else if okImages {
			return SchemaNormalized, "tiles", nil
		}
	}

	if ok, err := has("tiles"); err != nil {
		return 0, "", errs.Upstream("inspecting sqlite_master", err)
	} else if ok {
		return SchemaFlat, "tiles", nil
	}

	return 0, "", errs.MalformedTile("no recognized mbtiles schema")
}

// detectFormat samples one tile to determine both its format and its
// on-disk wrapper encoding. The MBTiles spec's documented convention is
// gzip-compressed PBF (per
// other_examples/61d03196_tarkov-database-tileserver__core-mbtiles-mbtiles.go.go's
// "Content-Encoding header must be gzip" comment on its PBF case); a
// gzip-wrapped sample is reported as FormatMVT carrying EncodingGzip
// rather than sniffed after unwrapping, since every gzip-wrapped
// MBTiles tile this backend serves is MVT in practice.
func detectFormat(ctx context.Context, db *sql.DB, tiles string) (tileutil.Format, tileutil.Encoding, error) {
	var sample []byte
	err := db.QueryRowContext(ctx, fmt.Sprintf("SELECT tile_data FROM %s LIMIT 1", tiles)).Scan(&sample)
	if err == sql.ErrNoRows {
		return tileutil.FormatMVT, tileutil.EncodingIdentity, nil
	}
	if err != nil {
		return tileutil.FormatUnknown, tileutil.EncodingIdentity, errs.Upstream("sampling tile for format detection", err)
	}
	if enc := tileutil.SniffEncoding(sample); enc != tileutil.EncodingIdentity {
		return tileutil.FormatMVT, enc, nil
	}
	return tileutil.Sniff(sample), tileutil.EncodingIdentity, nil
}

func readMetadata(ctx context.Context, db *sql.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT name, value FROM metadata")
	if err != nil {
		return nil, errs.Upstream("reading mbtiles metadata", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, errs.Upstream("scanning mbtiles metadata row", err)
		}
		meta[k] = v
	}
	return meta, rows.Err()
}
