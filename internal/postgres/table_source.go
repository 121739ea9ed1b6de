package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/tileserv/tileserv/internal/catalog"
	"github.com/tileserv/tileserv/internal/errs"
	"github.com/tileserv/tileserv/internal/tileutil"
)

// Column is a non-geometry property column carried through to MVT
// feature properties.
type Column struct {
	Name string
	Type string
}

// TableSource serves tiles from a spatial table via ST_AsMVT (§4.4.3).
// It is immutable once constructed during auto-discovery or from
// configuration (§3).
type TableSource struct {
	pool *Pool

	sourceID      string
	Schema        string
	Table         string
	GeometryCol   string
	SRID          int
	GeometryType  string
	Properties    []Column
	IDColumn      string
	Extent        int
	Buffer        int
	ClipGeometry  bool
	LayerName     string
	MaxFeatureCnt int
	bounds        [4]float64
}

// NewTableSource builds a TableSource with spec-documented defaults
// (extent 4096, buffer 64, clip enabled, layer name = table name).
func NewTableSource(pool *Pool, sourceID string, schema, table, geomCol string, srid int, geomType string, props []Column) *TableSource {
	return &TableSource{
		pool:         pool,
		sourceID:     sourceID,
		Schema:       schema,
		Table:        table,
		GeometryCol:  geomCol,
		SRID:         srid,
		GeometryType: geomType,
		Properties:   props,
		Extent:       4096,
		Buffer:       64,
		ClipGeometry: true,
		LayerName:    table,
		bounds:       [4]float64{-180, -85.0511, 180, 85.0511},
	}
}

func (t *TableSource) ID() string { return t.sourceID }

func (t *TableSource) TileInfo() tileutil.Info {
	return tileutil.Info{Format: tileutil.FormatMVT, Encoding: tileutil.EncodingIdentity}
}

func (t *TableSource) Descriptor() catalog.TileJSON {
	fields := make(map[string]any, len(t.Properties))
	for _, c := range t.Properties {
		fields[c.Name] = c.Type
	}
	return catalog.TileJSON{
		Name:    t.sourceID,
		MinZoom: 0,
		MaxZoom: 22,
		Bounds:  t.bounds,
		Format:  "pbf",
		VectorLayers: []catalog.VectorLayer{
			{ID: t.LayerName, Fields: fields},
		},
	}
}

func (t *TableSource) SupportsURLQuery() bool         { return false }
func (t *TableSource) IsEmptyOkayOnZoom(z uint8) bool { return false }

// SetBounds overrides the default world bounds, e.g. from a
// ST_EstimatedExtent computation (§4.4.4).
func (t *TableSource) SetBounds(b [4]float64) { t.bounds = b }

// GetTile executes the ST_AsMVT query for (z, x, y). query is unused:
// table sources do not consume the request query parameter.
func (t *TableSource) GetTile(ctx context.Context, z uint8, x, y uint32, query map[string]any) (tileutil.Tile, error) {
	if !tileutil.ValidCoord(z, x, y) {
		return tileutil.Tile{}, errs.MalformedRequest("coordinate out of range")
	}

	sqlText, args := t.buildQuery(z, x, y)
	row := t.pool.QueryRowContext(ctx, sqlText, args...)

	var body []byte
	if err := row.Scan(&body); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return tileutil.Tile{Info: t.TileInfo(), Bytes: nil}, nil
		}
		return tileutil.Tile{}, errs.Upstream("table source query", err)
	}
	return tileutil.Tile{Info: t.TileInfo(), Bytes: body}, nil
}

// buildQuery constructs the ST_AsMVT statement described in §4.4.3:
// tile envelope via ST_TileEnvelope, reprojection via ST_Transform(
// ST_CurveToLine(geom), 3857), the bbox predicate, ST_AsMVTGeom with
// (extent, buffer, clip_geom), and the configured property columns.
func (t *TableSource) buildQuery(z uint8, x, y uint32) (string, []any) {
	propNames := make([]string, 0, len(t.Properties))
	for _, c := range t.Properties {
		propNames = append(propNames, quoteIdent(c.Name))
	}
	propList := ""
	if len(propNames) > 0 {
		propList = ", " + strings.Join(propNames, ", ")
	}

	idExpr := ""
	if t.IDColumn != "" {
		idExpr = fmt.Sprintf(", %s AS feature_id", quoteIdent(t.IDColumn))
	}

	limitClause := ""
	if t.MaxFeatureCnt > 0 {
		limitClause = fmt.Sprintf(" LIMIT %d", t.MaxFeatureCnt)
	}

	q := fmt.Sprintf(`
WITH bounds AS (SELECT ST_TileEnvelope($1, $2, $3) AS env),
mvtgeom AS (
  SELECT ST_AsMVTGeom(
           ST_Transform(ST_CurveToLine(t.%s), 3857),
           bounds.env,
           %d, %d, %t
         ) AS geom%s%s
  FROM %s.%s t, bounds
  WHERE ST_Transform(ST_CurveToLine(t.%s), 3857) && bounds.env%s
)
SELECT ST_AsMVT(mvtgeom.*, %s, %d, 'geom') FROM mvtgeom`,
		quoteIdent(t.GeometryCol),
		t.Extent, t.Buffer, t.ClipGeometry,
		propList, idExpr,
		quoteIdent(t.Schema), quoteIdent(t.Table),
		quoteIdent(t.GeometryCol),
		limitClause,
		quoteLiteral(t.LayerName), t.Extent,
	)
	return q, []any{int(z), int(x), int(y)}
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
