// Package tileutil holds the pure, side-effect-free tile primitives
// shared by every backend: coordinate math, format sniffing,
// compression adapters, and MVT layer merge.
package tileutil

// Format identifies the content carried by a tile body.
type Format int

const (
	FormatUnknown Format = iota
	FormatMVT
	FormatPNG
	FormatJPEG
	FormatWebP
	FormatGIF
	FormatJSON
	FormatPlain
)

func (f Format) String() string {
	switch f {
	case FormatMVT:
		return "mvt"
	case FormatPNG:
		return "png"
	case FormatJPEG:
		return "jpeg"
	case FormatWebP:
		return "webp"
	case FormatGIF:
		return "gif"
	case FormatJSON:
		return "json"
	case FormatPlain:
		return "plain"
	default:
		return "unknown"
	}
}

// ContentType returns the HTTP Content-Type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatMVT:
		return "application/x-protobuf"
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	case FormatWebP:
		return "image/webp"
	case FormatGIF:
		return "image/gif"
	case FormatJSON:
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// Encoding identifies a lossless wrapper compression applied to a tile
// body.
type Encoding int

const (
	EncodingIdentity Encoding = iota
	EncodingGzip
	EncodingBrotli
	EncodingZstd
)

func (e Encoding) String() string {
	switch e {
	case EncodingGzip:
		return "gzip"
	case EncodingBrotli:
		return "br"
	case EncodingZstd:
		return "zstd"
	default:
		return "identity"
	}
}

// ParseEncoding maps an HTTP Content-Encoding / config token to an
// Encoding, defaulting to identity for anything unrecognized.
func ParseEncoding(s string) Encoding {
	switch s {
	case "gzip":
		return EncodingGzip
	case "br", "brotli":
		return EncodingBrotli
	case "zstd":
		return EncodingZstd
	default:
		return EncodingIdentity
	}
}

// Info is the declared (format, encoding) pair describing a tile body.
type Info struct {
	Format   Format
	Encoding Encoding
}

// Tile pairs a tile's metadata with its bytes. An empty Bytes slice is
// the valid "blank tile" signal. ETag is set only by sources that can
// supply one verbatim (PG function sources returning record{bytea,
// text}, whose text column is the ETag, §4.4.3); when empty the
// coordinator computes xxhash64(Bytes).
type Tile struct {
	Info  Info
	Bytes []byte
	ETag  string
}
