package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tileserv/tileserv/internal/errs"
)

// BoundsPolicy controls §4.4.4's bounds-computation behavior.
type BoundsPolicy string

const (
	BoundsQuick BoundsPolicy = "quick"
	BoundsCalc  BoundsPolicy = "calc"
	BoundsSkip  BoundsPolicy = "skip"
)

// DiscoveryResult is one successfully discovered candidate, paired
// with the default ID it would claim absent collisions.
type DiscoveryResult struct {
	DefaultID string
	Table     *TableSource
	Function  *FunctionSource
}

// DiscoverTables implements §4.4.2.1: scans geometry_columns for rows
// with a non-zero (or defaulted) SRID, builds a TableSource per row,
// and populates its Properties from the table's non-geometry columns.
// A failing row is skipped with the error returned alongside (the
// caller logs it as a warning and continues per §4.4.2's "non-fatal
// per source" rule).
func DiscoverTables(ctx context.Context, pool *Pool, defaultSRID int, idFormat string) ([]DiscoveryResult, []error) {
	rows, err := pool.db.QueryContext(ctx, `
SELECT f_table_schema, f_table_name, f_geometry_column, srid, type
FROM geometry_columns`)
	if err != nil {
		return nil, []error{errs.Upstream("geometry_columns discovery", err)}
	}
	defer rows.Close()

	var results []DiscoveryResult
	var warnings []error

	for rows.Next() {
		var schema, table, geomCol, geomType string
		var srid int
		if err := rows.Scan(&schema, &table, &geomCol, &srid, &geomType); err != nil {
			warnings = append(warnings, errs.Upstream("scanning geometry_columns row", err))
			continue
		}
		if srid == 0 {
			if defaultSRID == 0 {
				warnings = append(warnings, errs.Config(
					fmt.Sprintf("skipping %s.%s: srid=0 and no default_srid configured", schema, table), nil))
				continue
			}
			srid = defaultSRID
		}

		props, err := discoverColumns(ctx, pool.db, schema, table, geomCol)
		if err != nil {
			warnings = append(warnings, errs.Upstream(fmt.Sprintf("discovering columns for %s.%s", schema, table), err))
			continue
		}

		id := formatID(idFormat, schema, table, geomCol)
		ts := NewTableSource(pool, id, schema, table, geomCol, srid, geomType, props)
		results = append(results, DiscoveryResult{DefaultID: id, Table: ts})
	}
	return results, warnings
}

func formatID(format, schema, table, column string) string {
	if format == "" {
		return table
	}
	r := strings.NewReplacer("{schema}", schema, "{table}", table, "{column}", column)
	return r.Replace(format)
}

func discoverColumns(ctx context.Context, db *sql.DB, schema, table, geomCol string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, `
SELECT column_name, data_type
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2 AND column_name <> $3
  AND udt_name <> 'geometry'
ORDER BY ordinal_position`, schema, table, geomCol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// DiscoverFunctions implements §4.4.2.2: scans
// information_schema.routines + parameters for functions accepting
// (integer, integer, integer) named (z|zoom), x, y, optionally
// followed by one json/jsonb parameter, and returning bytea,
// record{bytea}, or record{bytea, text}. The IN parameters (the tile
// signature) and the OUT parameters (which distinguish record{bytea}
// from record{bytea, text}) are aggregated separately, since a
// record-returning function's OUT columns share the same parameter
// list and ordinal sequence as its IN arguments.
func DiscoverFunctions(ctx context.Context, pool *Pool) ([]DiscoveryResult, []error) {
	rows, err := pool.db.QueryContext(ctx, `
SELECT r.routine_schema, r.routine_name, r.data_type,
       array_agg(p.parameter_name ORDER BY p.ordinal_position)
         FILTER (WHERE p.parameter_mode = 'IN'),
       array_agg(p.data_type ORDER BY p.ordinal_position)
         FILTER (WHERE p.parameter_mode = 'IN'),
       count(*) FILTER (WHERE p.parameter_mode = 'OUT')
FROM information_schema.routines r
JOIN information_schema.parameters p
  ON p.specific_schema = r.specific_schema AND p.specific_name = r.specific_name
WHERE r.routine_type = 'FUNCTION'
GROUP BY r.routine_schema, r.routine_name, r.data_type, r.specific_name`)
	if err != nil {
		return nil, []error{errs.Upstream("routine discovery", err)}
	}
	defer rows.Close()

	var results []DiscoveryResult
	var warnings []error

	for rows.Next() {
		var schema, name, returnType string
		var paramNames, paramTypes stringArray
		var outParamCount int
		if err := rows.Scan(&schema, &name, &returnType, &paramNames, &paramTypes, &outParamCount); err != nil {
			warnings = append(warnings, errs.Upstream("scanning routine row", err))
			continue
		}

		hasQuery, ok := matchesTileSignature(paramNames, paramTypes)
		if !ok {
			continue
		}
		output, ok := matchesTileOutput(returnType, outParamCount)
		if !ok {
			continue
		}

		id := fmt.Sprintf("%s.%s", schema, name)
		fs := NewFunctionSource(pool, id, schema, name, hasQuery, output)
		if patch, err := functionCommentMetadata(ctx, pool.db, schema, name); err != nil {
			warnings = append(warnings, errs.Upstream(fmt.Sprintf("reading comment for %s", id), err))
		} else if patch != nil {
			fs.MergeCommentMetadata(patch)
		}
		results = append(results, DiscoveryResult{DefaultID: id, Function: fs})
	}
	return results, warnings
}

// matchesTileSignature checks the first three parameters are integer
// typed and named z/zoom, x, y (case-insensitive), with an optional
// fourth json/jsonb parameter.
func matchesTileSignature(names, types []string) (hasQuery bool, ok bool) {
	if len(names) < 3 || len(types) < 3 {
		return false, false
	}
	isInt := func(t string) bool { return t == "integer" || t == "int4" || t == "bigint" }
	z := strings.ToLower(names[0])
	if (z != "z" && z != "zoom") || !isInt(types[0]) {
		return false, false
	}
	if strings.ToLower(names[1]) != "x" || !isInt(types[1]) {
		return false, false
	}
	if strings.ToLower(names[2]) != "y" || !isInt(types[2]) {
		return false, false
	}
	if len(names) == 3 {
		return false, true
	}
	if len(names) == 4 {
		t := strings.ToLower(types[3])
		if t == "json" || t == "jsonb" {
			return true, true
		}
	}
	return false, false
}

// functionCommentMetadata reads a function's SQL comment and, when it
// is a valid JSON object, returns it for MergeCommentMetadata (§4.4.2).
// A missing or non-JSON comment is not an error: it returns (nil, nil).
func functionCommentMetadata(ctx context.Context, db *sql.DB, schema, name string) (map[string]any, error) {
	var comment sql.NullString
	err := db.QueryRowContext(ctx, `
SELECT obj_description(p.oid, 'pg_proc')
FROM pg_proc p
JOIN pg_namespace n ON p.pronamespace = n.oid
WHERE n.nspname = $1 AND p.proname = $2
LIMIT 1`, schema, name).Scan(&comment)
	if err != nil {
		return nil, err
	}
	if !comment.Valid || comment.String == "" {
		return nil, nil
	}
	var patch map[string]any
	if err := json.Unmarshal([]byte(comment.String), &patch); err != nil {
		return nil, nil
	}
	return patch, nil
}

// matchesTileOutput classifies a candidate function's return shape.
// outParamCount is the number of information_schema.parameters rows
// with parameter_mode = 'OUT' for this function: a plain `bytea`
// return has none, `record{bytea}` has one, and the ETag-bearing
// `record{bytea, text}` shape (§4.4.2's third documented output) has
// two.
func matchesTileOutput(returnType string, outParamCount int) (FunctionOutput, bool) {
	switch returnType {
	case "bytea":
		return OutputBytea, true
	case "record":
		if outParamCount >= 2 {
			return OutputRecordByteaText, true
		}
		return OutputRecordBytea, true
	default:
		return 0, false
	}
}
