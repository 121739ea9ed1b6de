package tileutil

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/tileserv/tileserv/internal/errs"
)

// Encode applies enc to b, returning the wrapped bytes.
func Encode(b []byte, enc Encoding) ([]byte, error) {
	switch enc {
	case EncodingIdentity:
		return b, nil
	case EncodingGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(b); err != nil {
			return nil, errs.MalformedTile("gzip encode: " + err.Error())
		}
		if err := w.Close(); err != nil {
			return nil, errs.MalformedTile("gzip encode: " + err.Error())
		}
		return buf.Bytes(), nil
	case EncodingBrotli:
		var buf bytes.Buffer
		w := brotli.NewWriter(&buf)
		if _, err := w.Write(b); err != nil {
			return nil, errs.MalformedTile("brotli encode: " + err.Error())
		}
		if err := w.Close(); err != nil {
			return nil, errs.MalformedTile("brotli encode: " + err.Error())
		}
		return buf.Bytes(), nil
	case EncodingZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, errs.MalformedTile("zstd encode: " + err.Error())
		}
		defer enc.Close()
		return enc.EncodeAll(b, nil), nil
	default:
		return nil, errs.MalformedTile("unsupported encoding")
	}
}

// Decode reverses Encode.
func Decode(b []byte, enc Encoding) ([]byte, error) {
	switch enc {
	case EncodingIdentity:
		return b, nil
	case EncodingGzip:
		r, err := gzip.NewReader(bytes.NewReader(b))
		if err != nil {
			return nil, errs.MalformedTile("gzip decode: " + err.Error())
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, errs.MalformedTile("gzip decode: " + err.Error())
		}
		return out, nil
	case EncodingBrotli:
		r := brotli.NewReader(bytes.NewReader(b))
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, errs.MalformedTile("brotli decode: " + err.Error())
		}
		return out, nil
	case EncodingZstd:
		dec, err := zstd.NewReader(bytes.NewReader(b))
		if err != nil {
			return nil, errs.MalformedTile("zstd decode: " + err.Error())
		}
		defer dec.Close()
		out, err := io.ReadAll(dec)
		if err != nil {
			return nil, errs.MalformedTile("zstd decode: " + err.Error())
		}
		return out, nil
	default:
		return nil, errs.MalformedTile("unsupported encoding")
	}
}

// Transcode decodes b from from, then re-encodes it as to. It is a
// no-op when from == to.
func Transcode(b []byte, from, to Encoding) ([]byte, error) {
	if from == to {
		return b, nil
	}
	raw, err := Decode(b, from)
	if err != nil {
		return nil, err
	}
	return Encode(raw, to)
}
