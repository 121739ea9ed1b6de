package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/tileserv/tileserv/internal/errs"
)

// ComputeBounds applies §4.4.4's three policies when a table source has
// no explicitly configured bounds. quick cancels the ST_EstimatedExtent
// query after 5 seconds and falls back to the full world; calc has no
// timeout; skip always returns the full world without querying.
func ComputeBounds(ctx context.Context, pool *Pool, ts *TableSource, policy BoundsPolicy) [4]float64 {
	world := [4]float64{-180, -85.0511, 180, 85.0511}
	if policy == BoundsSkip {
		return world
	}

	queryCtx := ctx
	var cancel context.CancelFunc
	if policy == BoundsQuick {
		queryCtx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	q := fmt.Sprintf(`
SELECT ST_XMin(e), ST_YMin(e), ST_XMax(e), ST_YMax(e)
FROM (
  SELECT ST_Transform(ST_SetSRID(ST_EstimatedExtent($1, $2, $3), %d), 4326) AS e
) sub`, ts.SRID)

	var xmin, ymin, xmax, ymax float64
	row := pool.db.QueryRowContext(queryCtx, q, ts.Schema, ts.Table, ts.GeometryCol)
	if err := row.Scan(&xmin, &ymin, &xmax, &ymax); err != nil {
		// Non-fatal: bounds computation failing demotes to the full
		// world bound rather than aborting source registration
		// (errs.Upstream is not surfaced here since discovery of this
		// source has already succeeded).
		_ = errs.Upstream("estimating extent for "+ts.Table, err)
		return world
	}
	return [4]float64{xmin, ymin, xmax, ymax}
}
