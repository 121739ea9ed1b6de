package postgres

import "testing"

func TestMatchesTileOutputClassifiesByOutParamCount(t *testing.T) {
	cases := []struct {
		returnType    string
		outParamCount int
		want          FunctionOutput
		ok            bool
	}{
		{"bytea", 0, OutputBytea, true},
		{"record", 1, OutputRecordBytea, true},
		{"record", 2, OutputRecordByteaText, true},
		{"void", 0, 0, false},
	}
	for _, c := range cases {
		got, ok := matchesTileOutput(c.returnType, c.outParamCount)
		if ok != c.ok {
			t.Errorf("matchesTileOutput(%q, %d): ok=%v, want %v", c.returnType, c.outParamCount, ok, c.ok)
			continue
		}
		if ok && got != c.want {
			t.Errorf("matchesTileOutput(%q, %d) = %v, want %v", c.returnType, c.outParamCount, got, c.want)
		}
	}
}

func TestMatchesTileSignatureAcceptsZoomAliasAndOptionalQuery(t *testing.T) {
	hasQuery, ok := matchesTileSignature(
		[]string{"zoom", "x", "y"},
		[]string{"integer", "integer", "integer"},
	)
	if !ok || hasQuery {
		t.Errorf("expected 3-arg match without query, got ok=%v hasQuery=%v", ok, hasQuery)
	}

	hasQuery, ok = matchesTileSignature(
		[]string{"z", "x", "y", "query_params"},
		[]string{"integer", "integer", "integer", "jsonb"},
	)
	if !ok || !hasQuery {
		t.Errorf("expected 4-arg match with query, got ok=%v hasQuery=%v", ok, hasQuery)
	}
}

func TestMatchesTileSignatureRejectsWrongTypes(t *testing.T) {
	if _, ok := matchesTileSignature(
		[]string{"z", "x", "y"},
		[]string{"text", "integer", "integer"},
	); ok {
		t.Error("expected rejection for non-integer z")
	}
}
