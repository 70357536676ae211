package lsm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
)

// Compression selects how record values are encoded before they reach the engine.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionSnappy
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionSnappy:
		return "snappy"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses the name of a compression codec ("" = none).
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "snappy":
		return CompressionSnappy, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("%w: %q", errUnknownCodec, s)
	}
}

var (
	errUnknownCodec = errors.New("unknown compression codec")
	errChecksum     = errors.New("checksum mismatch")
	errShortRecord  = errors.New("record too short")
)

// envelopeHeader is the codec byte followed by the xxhash64 of the raw value.
const envelopeHeader = 1 + 8

// codec encodes values into the envelope [codec:1][xxhash64(raw):8][encoded].
// The zstd encoder and decoder are safe for concurrent EncodeAll/DecodeAll calls.
type codec struct {
	compression Compression
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
}

func newCodec(c Compression) (*codec, error) {
	if c > CompressionZstd {
		return nil, fmt.Errorf("%w: %v", errUnknownCodec, c)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ZSTD encoder: %w", err)
	}
	// the decoder is always needed: records written with another setting must stay readable
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("failed to create ZSTD decoder: %w", err)
	}

	return &codec{
		compression: c,
		zstdEncoder: enc,
		zstdDecoder: dec,
	}, nil
}

func (c *codec) encode(raw []byte) []byte {
	var body []byte
	used := c.compression
	switch c.compression {
	case CompressionSnappy:
		body = snappy.Encode(nil, raw)
	case CompressionZstd:
		body = c.zstdEncoder.EncodeAll(raw, nil)
	default:
		body = raw
	}
	// keep small values raw when compression does not pay off
	if used != CompressionNone && len(body) >= len(raw) {
		body, used = raw, CompressionNone
	}

	out := make([]byte, envelopeHeader+len(body))
	out[0] = byte(used)
	binary.LittleEndian.PutUint64(out[1:envelopeHeader], xxhash.Sum64(raw))
	copy(out[envelopeHeader:], body)
	return out
}

// decode returns a newly allocated raw value. The input is not retained.
func (c *codec) decode(data []byte) ([]byte, error) {
	if len(data) < envelopeHeader {
		return nil, errShortRecord
	}
	sum := binary.LittleEndian.Uint64(data[1:envelopeHeader])
	body := data[envelopeHeader:]

	var raw []byte
	var err error
	switch Compression(data[0]) {
	case CompressionNone:
		raw = make([]byte, len(body))
		copy(raw, body)
	case CompressionSnappy:
		raw, err = snappy.Decode(nil, body)
	case CompressionZstd:
		raw, err = c.zstdDecoder.DecodeAll(body, nil)
	default:
		return nil, fmt.Errorf("%w: %d", errUnknownCodec, data[0])
	}
	if err != nil {
		return nil, err
	}
	if raw == nil {
		raw = []byte{}
	}

	if xxhash.Sum64(raw) != sum {
		return nil, errChecksum
	}
	return raw, nil
}

func (c *codec) close() {
	c.zstdEncoder.Close()
	c.zstdDecoder.Close()
}
