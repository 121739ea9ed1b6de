package pmtiles

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"io"
	"sort"

	"github.com/tileserv/tileserv/internal/errs"
)

// Directory is a decoded, tile_id-sorted slice of directory entries
// (§3's "PMTiles directory entry", §4.5.3).
type Directory []EntryV3

// DeserializeEntries decodes a directory byte blob (optionally
// internal_compression-wrapped) back into entries, reversing
// SerializeEntries's delta-varint columnar layout. Grounded on
// pspoerri-geotiff2pmtiles/internal/pmtiles/directory.go's
// DeserializeDirectory and the real protomaps/go-pmtiles reader.
func DeserializeEntries(data []byte, compression Compression) (Directory, error) {
	var r io.Reader = bytes.NewReader(data)
	if compression == Gzip {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, errs.MalformedTile("directory gzip: " + err.Error())
		}
		defer gz.Close()
		r = gz
	} else if compression != NoCompression && compression != UnknownCompression {
		return nil, errs.MalformedTile("unsupported directory compression")
	}

	br := byteReader{r: r}

	numEntries, err := binary.ReadUvarint(&br)
	if err != nil {
		return nil, errs.MalformedTile("directory entry count: " + err.Error())
	}

	entries := make(Directory, numEntries)

	var lastID uint64
	for i := range entries {
		delta, err := binary.ReadUvarint(&br)
		if err != nil {
			return nil, errs.MalformedTile("directory tile id: " + err.Error())
		}
		lastID += delta
		entries[i].TileID = lastID
	}
	for i := range entries {
		v, err := binary.ReadUvarint(&br)
		if err != nil {
			return nil, errs.MalformedTile("directory run length: " + err.Error())
		}
		entries[i].RunLength = uint32(v)
	}
	for i := range entries {
		v, err := binary.ReadUvarint(&br)
		if err != nil {
			return nil, errs.MalformedTile("directory length: " + err.Error())
		}
		entries[i].Length = uint32(v)
	}
	for i := range entries {
		v, err := binary.ReadUvarint(&br)
		if err != nil {
			return nil, errs.MalformedTile("directory offset: " + err.Error())
		}
		if v == 0 {
			if i == 0 {
				return nil, errs.MalformedTile("directory offset contiguity sentinel at index 0")
			}
			entries[i].Offset = entries[i-1].Offset + uint64(entries[i-1].Length)
		} else {
			entries[i].Offset = v - 1
		}
	}
	return entries, nil
}

// byteReader adapts an io.Reader to io.ByteReader for binary.ReadUvarint.
type byteReader struct {
	r   io.Reader
	buf [1]byte
}

func (b *byteReader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(b.r, b.buf[:]); err != nil {
		return 0, err
	}
	return b.buf[0], nil
}

// Find performs the binary search described in §4.5.3: returns the
// entry whose run covers tileID, or a leaf-pointer entry to recurse
// into, or (zero value, false) if no entry could possibly cover it.
func (d Directory) Find(tileID uint64) (EntryV3, bool) {
	i := sort.Search(len(d), func(i int) bool { return d[i].TileID > tileID })
	if i == 0 {
		return EntryV3{}, false
	}
	e := d[i-1]
	if e.RunLength == 0 {
		// Leaf pointer: always a candidate to recurse into, regardless
		// of tileID since a leaf directory covers a contiguous range
		// implied by its position, not by RunLength.
		return e, true
	}
	if tileID >= e.TileID && tileID < e.TileID+uint64(e.RunLength) {
		return e, true
	}
	return EntryV3{}, false
}

// IsLeaf reports whether an entry found by Find is a leaf-directory
// pointer rather than a tile entry.
func (e EntryV3) IsLeaf() bool { return e.RunLength == 0 }

// SizeBytes approximates the in-memory cost of a decoded directory for
// cache accounting purposes (cost = entry count per §3).
func (d Directory) SizeBytes() int { return len(d) }
