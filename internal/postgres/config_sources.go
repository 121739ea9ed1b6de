package postgres

import (
	"fmt"

	"github.com/tileserv/tileserv/internal/errs"
)

// TableSourceFromConfig builds a TableSource from one entry of
// postgres.tables (§6): explicit declarations take precedence over
// auto-discovery (§4.2) and so need to go through the same
// catalog.Builder.Add(..., true) path the PMTiles/MBTiles/COG loops
// use, rather than being silently skipped.
func TableSourceFromConfig(pool *Pool, m map[string]any) (*TableSource, error) {
	id, _ := m["id"].(string)
	schema, _ := m["schema"].(string)
	table, _ := m["table"].(string)
	geomCol, _ := m["geometry_column"].(string)
	geomType, _ := m["geometry_type"].(string)
	if schema == "" || table == "" {
		return nil, errs.Config(fmt.Sprintf("postgres.tables entry missing schema/table: %v", m), nil)
	}
	if geomCol == "" {
		geomCol = "geom"
	}
	if id == "" {
		id = table
	}

	srid := 0
	switch v := m["srid"].(type) {
	case int:
		srid = v
	case float64:
		srid = int(v)
	}

	var props []Column
	if rawProps, ok := m["properties"].([]any); ok {
		for _, rp := range rawProps {
			pm, ok := rp.(map[string]any)
			if !ok {
				continue
			}
			name, _ := pm["name"].(string)
			typ, _ := pm["type"].(string)
			if name != "" {
				props = append(props, Column{Name: name, Type: typ})
			}
		}
	}

	ts := NewTableSource(pool, id, schema, table, geomCol, srid, geomType, props)
	if extent, ok := intField(m, "extent"); ok {
		ts.Extent = extent
	}
	if buffer, ok := intField(m, "buffer"); ok {
		ts.Buffer = buffer
	}
	if clip, ok := m["clip_geometry"].(bool); ok {
		ts.ClipGeometry = clip
	}
	if layer, ok := m["layer_name"].(string); ok && layer != "" {
		ts.LayerName = layer
	}
	return ts, nil
}

// FunctionSourceFromConfig builds a FunctionSource from one entry of
// postgres.functions (§6), mirroring TableSourceFromConfig.
func FunctionSourceFromConfig(pool *Pool, m map[string]any) (*FunctionSource, error) {
	id, _ := m["id"].(string)
	schema, _ := m["schema"].(string)
	function, _ := m["function"].(string)
	if schema == "" || function == "" {
		return nil, errs.Config(fmt.Sprintf("postgres.functions entry missing schema/function: %v", m), nil)
	}
	if id == "" {
		id = fmt.Sprintf("%s.%s", schema, function)
	}

	hasQuery, _ := m["has_query"].(bool)
	output := OutputBytea
	switch s, _ := m["output"].(string); s {
	case "record_bytea":
		output = OutputRecordBytea
	case "record_bytea_text":
		output = OutputRecordByteaText
	}

	return NewFunctionSource(pool, id, schema, function, hasQuery, output), nil
}

func intField(m map[string]any, key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
