package postgres

import (
	"fmt"
	"strings"
)

// stringArray scans a Postgres text[]/array_agg(...) result in its
// default {a,b,c} literal wire representation. pgx's stdlib driver
// returns array columns as driver.Value strings in this form when no
// richer scan target is supplied, so a small literal parser is enough
// here without pulling in pgtype's array machinery for a single
// discovery query.
type stringArray []string

func (a *stringArray) Scan(src any) error {
	if src == nil {
		*a = nil
		return nil
	}
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("stringArray: unsupported scan type %T", src)
	}
	*a = parsePGArrayLiteral(s)
	return nil
}

func parsePGArrayLiteral(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.Trim(p, `"`)
		if p == "NULL" {
			p = ""
		}
		out[i] = p
	}
	return out
}
