package pmtiles

import "testing"

func TestHeaderRoundTrip(t *testing.T) {
	h := HeaderV3{
		SpecVersion:         3,
		RootOffset:          127,
		RootLength:          1000,
		MetadataOffset:      1127,
		MetadataLength:      200,
		LeafDirectoryOffset: 1327,
		LeafDirectoryLength: 500,
		TileDataOffset:      1827,
		TileDataLength:      99999,
		AddressedTilesCount: 100,
		TileEntriesCount:    90,
		TileContentsCount:   80,
		Clustered:           true,
		InternalCompression: Gzip,
		TileCompression:     Gzip,
		TileType:            Mvt,
		MinZoom:             0,
		MaxZoom:             14,
		MinLonE7:            -1800000000,
		MinLatE7:            -850000000,
		MaxLonE7:            1800000000,
		MaxLatE7:            850000000,
		CenterZoom:          5,
		CenterLonE7:         0,
		CenterLatE7:         0,
	}

	b := SerializeHeader(h)
	if len(b) != HeaderV3LenBytes {
		t.Fatalf("expected %d bytes, got %d", HeaderV3LenBytes, len(b))
	}

	got, err := DeserializeHeader(b)
	if err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Errorf("round trip mismatch:\n got: %+v\nwant: %+v", got, h)
	}
}

func TestDirectoryRoundTrip(t *testing.T) {
	entries := []EntryV3{
		{TileID: 0, Offset: 0, Length: 100, RunLength: 1},
		{TileID: 1, Offset: 100, Length: 200, RunLength: 1},
		{TileID: 5, Offset: 300, Length: 50, RunLength: 3},
	}

	encoded := SerializeEntries(entries, Gzip)
	decoded, err := DeserializeEntries(encoded, Gzip)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != len(entries) {
		t.Fatalf("expected %d entries, got %d", len(entries), len(decoded))
	}
	for i, e := range entries {
		if decoded[i] != e {
			t.Errorf("entry %d: got %+v, want %+v", i, decoded[i], e)
		}
	}
}

func TestDirectoryFindTileEntry(t *testing.T) {
	dir := Directory{
		{TileID: 0, Offset: 0, Length: 10, RunLength: 1},
		{TileID: 5, Offset: 10, Length: 20, RunLength: 3}, // covers 5,6,7
	}

	e, ok := dir.Find(6)
	if !ok || e.IsLeaf() {
		t.Fatalf("expected a tile entry covering id 6, got %+v ok=%v", e, ok)
	}
	if e.TileID != 5 {
		t.Errorf("expected matching entry at TileID 5, got %d", e.TileID)
	}

	_, ok = dir.Find(100)
	if ok {
		t.Error("expected no match for an id beyond any run")
	}

	_, ok = dir.Find(1) // between entry 0's run end (1) and entry 5's start
	if ok {
		t.Error("expected no match in the gap between runs")
	}
}

func TestDirectoryFindLeafPointer(t *testing.T) {
	dir := Directory{
		{TileID: 0, Offset: 0, Length: 64, RunLength: 0}, // leaf pointer
	}
	e, ok := dir.Find(12345)
	if !ok {
		t.Fatal("expected leaf pointer to be returned as a candidate")
	}
	if !e.IsLeaf() {
		t.Error("expected IsLeaf() to be true for a RunLength-0 entry")
	}
}

func TestZxyToIDAndInverse(t *testing.T) {
	cases := []struct {
		z    uint8
		x, y uint32
	}{
		{0, 0, 0},
		{1, 0, 0},
		{1, 1, 1},
		{3, 4, 5},
	}
	for _, c := range cases {
		id := ZxyToID(c.z, c.x, c.y)
		gotZ, gotX, gotY := TileIDToZXY(id)
		if gotZ != c.z || gotX != c.x || gotY != c.y {
			t.Errorf("TileIDToZXY(ZxyToID(%d,%d,%d)) = (%d,%d,%d)", c.z, c.x, c.y, gotZ, gotX, gotY)
		}
	}
}
