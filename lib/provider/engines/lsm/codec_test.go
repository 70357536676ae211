package lsm

import (
	"bytes"
	"errors"
	"testing"
)

func TestCodec(t *testing.T) {
	inputs := map[string][]byte{
		"empty":        {},
		"short":        []byte("A"),
		"transaction":  bytes.Repeat([]byte("9"), 2673),
		"mixed-trytes": bytes.Repeat([]byte("ABC9XYZ"), 400),
	}

	for _, compression := range []Compression{CompressionNone, CompressionSnappy, CompressionZstd} {
		t.Run(compression.String(), func(t *testing.T) {
			c, err := newCodec(compression)
			if err != nil {
				t.Fatalf("Unexpected error creating codec: %v", err)
			}
			defer c.close()

			for name, raw := range inputs {
				enc := c.encode(raw)
				dec, err := c.decode(enc)
				if err != nil {
					t.Errorf("%s: unexpected decode error: %v", name, err)
					continue
				}
				if !bytes.Equal(dec, raw) {
					t.Errorf("%s: value mismatch after decode", name)
				}
			}

			// compressible values shrink
			if compression != CompressionNone {
				raw := inputs["transaction"]
				if enc := c.encode(raw); len(enc) >= len(raw) {
					t.Errorf("Expected %s to compress a transaction, got %d bytes", compression, len(enc))
				}
			}
		})
	}
}

func TestCodecReadsOtherCompressions(t *testing.T) {
	zc, _ := newCodec(CompressionZstd)
	defer zc.close()
	nc, _ := newCodec(CompressionNone)
	defer nc.close()

	raw := bytes.Repeat([]byte("TANGLE"), 100)
	dec, err := nc.decode(zc.encode(raw))
	if err != nil || !bytes.Equal(dec, raw) {
		t.Errorf("Records must stay readable after the compression setting changes (err=%v)", err)
	}
}

func TestCodecErrors(t *testing.T) {
	c, _ := newCodec(CompressionNone)
	defer c.close()

	if _, err := c.decode([]byte{0, 1, 2}); !errors.Is(err, errShortRecord) {
		t.Errorf("Expected errShortRecord, got %v", err)
	}

	enc := c.encode([]byte("value"))
	enc[envelopeHeader] ^= 0x01
	if _, err := c.decode(enc); !errors.Is(err, errChecksum) {
		t.Errorf("Expected errChecksum, got %v", err)
	}

	enc = c.encode([]byte("value"))
	enc[0] = 42
	if _, err := c.decode(enc); !errors.Is(err, errUnknownCodec) {
		t.Errorf("Expected errUnknownCodec, got %v", err)
	}

	if _, err := ParseCompression("lz4"); !errors.Is(err, errUnknownCodec) {
		t.Errorf("Expected errUnknownCodec for lz4, got %v", err)
	}
	if c, err := ParseCompression(" ZSTD "); err != nil || c != CompressionZstd {
		t.Errorf("Expected zstd, got %v (err=%v)", c, err)
	}
}
