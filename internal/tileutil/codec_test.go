package tileutil

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog, repeated: the quick brown fox jumps over the lazy dog")
	for _, enc := range []Encoding{EncodingIdentity, EncodingGzip, EncodingBrotli, EncodingZstd} {
		wrapped, err := Encode(payload, enc)
		if err != nil {
			t.Fatalf("Encode(%v): %v", enc, err)
		}
		got, err := Decode(wrapped, enc)
		if err != nil {
			t.Fatalf("Decode(%v): %v", enc, err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("round trip mismatch for %v", enc)
		}
	}
}

func TestSniffEncodingGzip(t *testing.T) {
	wrapped, err := Encode([]byte("hello"), EncodingGzip)
	if err != nil {
		t.Fatal(err)
	}
	if SniffEncoding(wrapped) != EncodingGzip {
		t.Errorf("expected gzip magic to be detected")
	}
}

func TestSniffFormats(t *testing.T) {
	cases := []struct {
		name string
		b    []byte
		want Format
	}{
		{"png", pngMagic, FormatPNG},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, FormatJPEG},
		{"gif", []byte("GIF89a"), FormatGIF},
		{"json object", []byte(`{"a":1}`), FormatJSON},
		{"json array", []byte(`  [1,2]`), FormatJSON},
		{"empty", nil, FormatUnknown},
	}
	for _, c := range cases {
		if got := Sniff(c.b); got != c.want {
			t.Errorf("%s: Sniff() = %v, want %v", c.name, got, c.want)
		}
	}
}
