package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tileserv/tileserv/internal/catalog"
	"github.com/tileserv/tileserv/internal/errs"
	"github.com/tileserv/tileserv/internal/tileutil"
)

// FunctionOutput is the output shape of a discovered MVT function
// (§3, §4.4.2).
type FunctionOutput int

const (
	OutputBytea FunctionOutput = iota
	OutputRecordBytea
	OutputRecordByteaText
)

// FunctionSource serves tiles by invoking an MVT-returning PL/pgSQL
// function (§4.4.3).
type FunctionSource struct {
	pool *Pool

	sourceID   string
	Schema     string
	Function   string
	HasQuery   bool
	Output     FunctionOutput
	descriptor catalog.TileJSON
}

// NewFunctionSource builds a FunctionSource from its discovered
// signature.
func NewFunctionSource(pool *Pool, sourceID, schema, function string, hasQuery bool, output FunctionOutput) *FunctionSource {
	return &FunctionSource{
		pool:       pool,
		sourceID:   sourceID,
		Schema:     schema,
		Function:   function,
		HasQuery:   hasQuery,
		Output:     output,
		descriptor: catalog.TileJSON{Name: sourceID, MinZoom: 0, MaxZoom: 22, Format: "pbf"},
	}
}

func (f *FunctionSource) ID() string { return f.sourceID }

func (f *FunctionSource) TileInfo() tileutil.Info {
	return tileutil.Info{Format: tileutil.FormatMVT, Encoding: tileutil.EncodingIdentity}
}

func (f *FunctionSource) Descriptor() catalog.TileJSON { return f.descriptor }

// MergeCommentMetadata applies an object decoded from the function's
// SQL comment to the descriptor. Only the name, attribution, minzoom
// and maxzoom keys are applied, each only when it has the expected JSON
// type; other keys are ignored, and a null value does not clear a field.
func (f *FunctionSource) MergeCommentMetadata(patch map[string]any) {
	if name, ok := patch["name"].(string); ok {
		f.descriptor.Name = name
	}
	if attr, ok := patch["attribution"].(string); ok {
		f.descriptor.Attribution = attr
	}
	if minz, ok := patch["minzoom"].(float64); ok {
		f.descriptor.MinZoom = int(minz)
	}
	if maxz, ok := patch["maxzoom"].(float64); ok {
		f.descriptor.MaxZoom = int(maxz)
	}
}

func (f *FunctionSource) SupportsURLQuery() bool         { return f.HasQuery }
func (f *FunctionSource) IsEmptyOkayOnZoom(z uint8) bool { return false }

// GetTile invokes schema.function(z, x, y[, query_json]) per §4.4.3.
// query is JSON-encoded as-is (already parsed from URL parameters by
// the coordinator); when the function has no declared query parameter
// it is ignored, and when the request supplies none a JSON null is
// passed.
func (f *FunctionSource) GetTile(ctx context.Context, z uint8, x, y uint32, query map[string]any) (tileutil.Tile, error) {
	if !tileutil.ValidCoord(z, x, y) {
		return tileutil.Tile{}, errs.MalformedRequest("coordinate out of range")
	}

	var sqlText string
	var args []any
	if f.HasQuery {
		var queryJSON []byte
		if query == nil {
			queryJSON = []byte("null")
		} else {
			b, err := json.Marshal(query)
			if err != nil {
				return tileutil.Tile{}, errs.MalformedRequest("invalid query parameter: " + err.Error())
			}
			queryJSON = b
		}
		sqlText = fmt.Sprintf("SELECT * FROM %s.%s($1, $2, $3, $4)", quoteIdent(f.Schema), quoteIdent(f.Function))
		args = []any{int(z), int(x), int(y), string(queryJSON)}
	} else {
		sqlText = fmt.Sprintf("SELECT * FROM %s.%s($1, $2, $3)", quoteIdent(f.Schema), quoteIdent(f.Function))
		args = []any{int(z), int(x), int(y)}
	}

	row := f.pool.QueryRowContext(ctx, sqlText, args...)

	var body []byte
	var etag string
	var scanErr error
	switch f.Output {
	case OutputBytea:
		scanErr = row.Scan(&body)
	case OutputRecordBytea:
		scanErr = row.Scan(&body)
	case OutputRecordByteaText:
		scanErr = row.Scan(&body, &etag)
	}

	if scanErr != nil {
		if scanErr.Error() == "sql: no rows in result set" {
			return tileutil.Tile{Info: f.TileInfo(), Bytes: nil}, nil
		}
		return tileutil.Tile{}, errs.Upstream("function source query", scanErr)
	}

	return tileutil.Tile{Info: f.TileInfo(), Bytes: body, ETag: etag}, nil
}
