package catalog

import (
	"context"
	"testing"

	"github.com/tileserv/tileserv/internal/tileutil"
)

type stubSource struct {
	id string
}

func (s stubSource) ID() string                  { return s.id }
func (s stubSource) TileInfo() tileutil.Info      { return tileutil.Info{Format: tileutil.FormatMVT} }
func (s stubSource) Descriptor() TileJSON         { return TileJSON{Name: s.id} }
func (s stubSource) SupportsURLQuery() bool       { return false }
func (s stubSource) IsEmptyOkayOnZoom(z uint8) bool { return false }
func (s stubSource) GetTile(ctx context.Context, z uint8, x, y uint32, q map[string]any) (tileutil.Tile, error) {
	return tileutil.Tile{}, nil
}

func TestBuilderDisambiguatesDuplicateIDs(t *testing.T) {
	b := NewBuilder()
	id1 := b.Add(stubSource{id: "points"}, false)
	id2 := b.Add(stubSource{id: "points"}, false)

	if id1 != "points" {
		t.Errorf("first registration should keep bare id, got %q", id1)
	}
	if id2 != "points.1" {
		t.Errorf("second registration should get suffix .1, got %q", id2)
	}

	cat := b.Build()
	if cat.Len() != 2 {
		t.Fatalf("expected 2 sources, got %d", cat.Len())
	}
	if _, ok := cat.Lookup("points"); !ok {
		t.Error("expected points to resolve")
	}
	if _, ok := cat.Lookup("points.1"); !ok {
		t.Error("expected points.1 to resolve")
	}
}

func TestBuilderRejectsReservedIDs(t *testing.T) {
	b := NewBuilder()
	id := b.Add(stubSource{id: "health"}, false)
	if id == "health" {
		t.Errorf("reserved id must not be assigned bare, got %q", id)
	}
	if Reserved[id] {
		t.Errorf("resolved id %q must not itself be reserved", id)
	}
}

func TestBuilderConfigTakesPrecedence(t *testing.T) {
	b := NewBuilder()
	b.Add(stubSource{id: "roads"}, false) // auto-discovered, gets bare "roads"
	id := b.Add(stubSource{id: "roads"}, true) // config-declared, should win the bare id

	if id != "roads" {
		t.Errorf("config-declared source should win the bare id, got %q", id)
	}
	cat := b.Build()
	if _, ok := cat.Lookup("roads.1"); !ok {
		t.Error("displaced auto-discovered source should be reachable at roads.1")
	}
}
