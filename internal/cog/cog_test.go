package cog

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"
)

// buildSingleTileTIFF constructs the smallest valid tiled TIFF this
// package understands: one IFD, one 256x256 tile, no overviews.
func buildSingleTileTIFF(tileData []byte) []byte {
	bo := binary.LittleEndian
	var buf bytes.Buffer

	// Header: byte-order mark, magic 42, offset to first IFD.
	buf.WriteString("II")
	binary.Write(&buf, bo, uint16(42))
	binary.Write(&buf, bo, uint32(8))

	entries := []struct {
		tag   uint16
		typ   uint16
		count uint32
		val   uint32
	}{
		{tagImageWidth, 4, 1, 256},
		{tagImageLength, 4, 1, 256},
		{tagTileWidth, 4, 1, 256},
		{tagTileLength, 4, 1, 256},
		{tagCompression, 3, 1, 1},
		{tagTileOffsets, 4, 1, 0},    // patched below
		{tagTileByteCounts, 4, 1, uint32(len(tileData))},
	}

	binary.Write(&buf, bo, uint16(len(entries)))
	entryOffsets := make([]int, len(entries))
	for i, e := range entries {
		entryOffsets[i] = buf.Len()
		binary.Write(&buf, bo, e.tag)
		binary.Write(&buf, bo, e.typ)
		binary.Write(&buf, bo, e.count)
		binary.Write(&buf, bo, e.val)
	}
	binary.Write(&buf, bo, uint32(0)) // next IFD offset: none

	tileOffset := uint32(buf.Len())
	buf.Write(tileData)

	out := buf.Bytes()
	// patch the TileOffsets entry's inline value with the real offset
	for i, e := range entries {
		if e.tag == tagTileOffsets {
			binary.LittleEndian.PutUint32(out[entryOffsets[i]+8:entryOffsets[i]+12], tileOffset)
		}
	}
	return out
}

func TestOpenWalksSingleIFD(t *testing.T) {
	data := []byte("fake-png-bytes")
	raw := buildSingleTileTIFF(data)

	src, err := Open(bytes.NewReader(raw), "ortho")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if src.ID() != "ortho" {
		t.Errorf("expected id %q, got %q", "ortho", src.ID())
	}
	if len(src.subfiles) != 1 {
		t.Fatalf("expected 1 subfile, got %d", len(src.subfiles))
	}
}

func TestGetTileReturnsStoredBytes(t *testing.T) {
	data := []byte("fake-png-bytes")
	raw := buildSingleTileTIFF(data)

	src, err := Open(bytes.NewReader(raw), "ortho")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	tile, err := src.GetTile(context.Background(), 0, 0, 0, nil)
	if err != nil {
		t.Fatalf("GetTile: %v", err)
	}
	if string(tile.Bytes) != string(data) {
		t.Errorf("expected %q, got %q", data, tile.Bytes)
	}
}

func TestGetTileOutOfRangeReturnsEmpty(t *testing.T) {
	data := []byte("fake-png-bytes")
	raw := buildSingleTileTIFF(data)

	src, err := Open(bytes.NewReader(raw), "ortho")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// (1,1,1) is a valid tile coordinate, but the only subfile holds a
	// single 256x256 tile, so column 1 lies outside its tile index.
	tile, err := src.GetTile(context.Background(), 1, 1, 1, nil)
	if err != nil {
		t.Fatalf("GetTile: %v", err)
	}
	if len(tile.Bytes) != 0 {
		t.Errorf("expected empty tile for out-of-range coordinate, got %d bytes", len(tile.Bytes))
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	if _, err := Open(bytes.NewReader([]byte("not a tiff at all............")), "bad"); err == nil {
		t.Error("expected error for non-TIFF input")
	}
}
