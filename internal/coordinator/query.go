package coordinator

import (
	"encoding/json"
	"net/url"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ParseQueryJSON builds the JSON-typed query object passed to function
// sources (§4.4.3): values parseable as JSON literals (numbers,
// booleans, arrays, objects) are kept as such; everything else is a
// string.
func ParseQueryJSON(values url.Values) map[string]any {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]any, len(values))
	for k, vs := range values {
		if len(vs) == 0 {
			continue
		}
		out[k] = parseJSONLiteralOrString(vs[0])
	}
	return out
}

func parseJSONLiteralOrString(s string) any {
	if s == "true" {
		return true
	}
	if s == "false" {
		return false
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		var n json.Number
		if err := json.Unmarshal([]byte(s), &n); err == nil {
			f, _ := n.Float64()
			return f
		}
	}
	if len(s) > 0 && (s[0] == '[' || s[0] == '{') {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}
	return s
}

// QueryHash computes the 64-bit hash of the canonicalized query
// parameter (§3 "query_hash"): keys sorted, values JSON-encoded. Zero
// is reserved for "no query" (a source that does not consume queries).
func QueryHash(q map[string]any) uint64 {
	if len(q) == 0 {
		return 0
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := xxhash.New()
	for _, k := range keys {
		h.WriteString(k)
		h.WriteString("=")
		b, _ := json.Marshal(q[k])
		h.Write(b)
		h.WriteString(";")
	}
	return h.Sum64()
}
