package tileutil

import "bytes"

var (
	pngMagic  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	gifMagic  = []byte("GIF8")
	gzipMagic = []byte{0x1f, 0x8b}
)

// Sniff identifies the format of b. MVT detection attempts a shallow
// protobuf tag-0 scan (MVT layers are field 3, length-delimited
// messages at the tile root); PNG/JPEG/GIF/WebP are detected by magic
// bytes, JSON by leading whitespace then '{' or '[', else plain.
//
// Compressed bytes (gzip/brotli/zstd magic) are reported as their
// wrapper's own sniff would suggest is not attempted here: callers
// detect a wrapper encoding separately via SniffEncoding and sniff the
// decompressed body.
func Sniff(b []byte) Format {
	if len(b) == 0 {
		return FormatUnknown
	}
	switch {
	case bytes.HasPrefix(b, pngMagic):
		return FormatPNG
	case bytes.HasPrefix(b, jpegMagic):
		return FormatJPEG
	case bytes.HasPrefix(b, gifMagic):
		return FormatGIF
	case len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WEBP")):
		return FormatWebP
	}
	if looksLikeJSON(b) {
		return FormatJSON
	}
	if looksLikeMVT(b) {
		return FormatMVT
	}
	return FormatPlain
}

func looksLikeJSON(b []byte) bool {
	i := 0
	for i < len(b) && (b[i] == ' ' || b[i] == '\t' || b[i] == '\n' || b[i] == '\r') {
		i++
	}
	if i >= len(b) {
		return false
	}
	return b[i] == '{' || b[i] == '['
}

// looksLikeMVT performs a minimal structural check on the first byte
// only: it must be a protobuf tag with a non-zero field number and wire
// type 0, 1, 2 or 5 (an MVT layer tag is 0x1A: field 3, wire type 2).
// Lengths and later fields are not checked.
func looksLikeMVT(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	tag := b[0]
	wireType := tag & 0x07
	fieldNum := tag >> 3
	if fieldNum == 0 {
		return false
	}
	switch wireType {
	case 0, 1, 2, 5:
		return true
	default:
		return false
	}
}

// SniffEncoding detects a wrapper compression by magic bytes.
func SniffEncoding(b []byte) Encoding {
	switch {
	case len(b) >= 2 && bytes.Equal(b[:2], gzipMagic):
		return EncodingGzip
	case len(b) >= 4 && b[0] == 0x28 && b[1] == 0xB5 && b[2] == 0x2F && b[3] == 0xFD:
		return EncodingZstd
	case len(b) >= 1 && isLikelyBrotli(b):
		return EncodingBrotli
	default:
		return EncodingIdentity
	}
}

// isLikelyBrotli always returns false: brotli has no fixed magic
// number, so brotli-wrapped bytes are recognized only through a
// source's declared encoding.
func isLikelyBrotli(b []byte) bool {
	return false
}
