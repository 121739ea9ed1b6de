package postgres

import (
	"strings"
	"testing"
)

func TestBuildQueryIncludesMVTPrimitives(t *testing.T) {
	ts := NewTableSource(nil, "points", "public", "points", "geom", 4326, "Point",
		[]Column{{Name: "name", Type: "text"}})

	sqlText, args := ts.buildQuery(3, 4, 5)

	for _, want := range []string{"ST_TileEnvelope", "ST_AsMVTGeom", "ST_AsMVT", "ST_Transform", "ST_CurveToLine"} {
		if !strings.Contains(sqlText, want) {
			t.Errorf("expected query to contain %q:\n%s", want, sqlText)
		}
	}
	if len(args) != 3 || args[0] != 3 || args[1] != 4 || args[2] != 5 {
		t.Errorf("expected args [z x y] = [3 4 5], got %v", args)
	}
}

func TestBuildQueryAppliesMaxFeatureCount(t *testing.T) {
	ts := NewTableSource(nil, "points", "public", "points", "geom", 4326, "Point", nil)
	ts.MaxFeatureCnt = 100

	sqlText, _ := ts.buildQuery(0, 0, 0)
	if !strings.Contains(sqlText, "LIMIT 100") {
		t.Errorf("expected LIMIT 100 in query:\n%s", sqlText)
	}
}

func TestParsePGArrayLiteral(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"{z,x,y}", []string{"z", "x", "y"}},
		{"{}", nil},
		{`{"z","x","y"}`, []string{"z", "x", "y"}},
	}
	for _, c := range cases {
		got := parsePGArrayLiteral(c.in)
		if len(got) != len(c.want) {
			t.Errorf("parsePGArrayLiteral(%q) = %v, want %v", c.in, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("parsePGArrayLiteral(%q)[%d] = %q, want %q", c.in, i, got[i], c.want[i])
			}
		}
	}
}

func TestMatchesTileSignature(t *testing.T) {
	hasQuery, ok := matchesTileSignature([]string{"z", "x", "y"}, []string{"integer", "integer", "integer"})
	if !ok || hasQuery {
		t.Errorf("expected plain z,x,y match without query, got ok=%v hasQuery=%v", ok, hasQuery)
	}

	hasQuery, ok = matchesTileSignature([]string{"zoom", "x", "y", "q"}, []string{"integer", "integer", "integer", "json"})
	if !ok || !hasQuery {
		t.Errorf("expected zoom,x,y,json match with query, got ok=%v hasQuery=%v", ok, hasQuery)
	}

	_, ok = matchesTileSignature([]string{"a", "b"}, []string{"integer", "integer"})
	if ok {
		t.Error("expected short signature to be rejected")
	}
}
