package composite

import (
	"context"
	"testing"

	"github.com/tileserv/tileserv/internal/catalog"
	"github.com/tileserv/tileserv/internal/tileutil"
)

type fixedSource struct {
	id   string
	tile tileutil.Tile
	err  error
}

func (s fixedSource) ID() string                  { return s.id }
func (s fixedSource) TileInfo() tileutil.Info      { return s.tile.Info }
func (s fixedSource) Descriptor() catalog.TileJSON { return catalog.TileJSON{Name: s.id} }
func (s fixedSource) SupportsURLQuery() bool       { return false }
func (s fixedSource) IsEmptyOkayOnZoom(z uint8) bool { return false }
func (s fixedSource) GetTile(ctx context.Context, z uint8, x, y uint32, q map[string]any) (tileutil.Tile, error) {
	return s.tile, s.err
}

func TestParseSourceList(t *testing.T) {
	got := ParseSourceList("a,b,c")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestResolveRejectsMixedRasterComposite(t *testing.T) {
	b := catalog.NewBuilder()
	b.Add(fixedSource{id: "raster1", tile: tileutil.Tile{Info: tileutil.Info{Format: tileutil.FormatPNG}}}, false)
	b.Add(fixedSource{id: "raster2", tile: tileutil.Tile{Info: tileutil.Info{Format: tileutil.FormatPNG}}}, false)
	cat := b.Build()

	_, err := Resolve(cat, []string{"raster1", "raster2"})
	if err == nil {
		t.Fatal("expected an error compositing two raster sources")
	}
}

func TestResolveRejectsUnknownSource(t *testing.T) {
	cat := catalog.NewBuilder().Build()
	_, err := Resolve(cat, []string{"nosuch"})
	if err == nil {
		t.Fatal("expected NotFound for unknown composite component")
	}
}

func TestCacheKeyStringPreservesOrder(t *testing.T) {
	if got := CacheKeyString([]string{"b", "a"}); got != "b,a" {
		t.Errorf("expected order-preserving join, got %q", got)
	}
}
