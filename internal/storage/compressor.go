package storage

import (
	"bytes"
	"fmt"
	"io"
	"spd/internal/storage/interfaces"
	"spd/internal/structures"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const (
	EncodingIdentity = "identity"
	EncodingZstd     = "zstd"
	EncodingGzip     = "gzip"
)

type ZstdCompression struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func (z *ZstdCompression) Compress(val []byte) ([]byte, error) {
	return z.encoder.EncodeAll(val, make([]byte, 0, len(val)/2)), nil
}

func (z *ZstdCompression) Decompress(val []byte) ([]byte, error) {
	return z.decoder.DecodeAll(val, nil)
}

func (z *ZstdCompression) Encoding() string {
	return EncodingZstd
}

func (z *ZstdCompression) Close() {
	_ = z.encoder.Close()
	z.decoder.Close()
}

func NewZstdCompressor() (interfaces.CompressorInterface, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &ZstdCompression{encoder: encoder, decoder: decoder}, nil
}

type GzipCompression struct {
	level int
}

func (g *GzipCompression) Compress(val []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, g.level)
	if err != nil {
		return nil, err
	}
	if _, err = w.Write(val); err != nil {
		return nil, err
	}
	if err = w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *GzipCompression) Decompress(val []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(val))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (g *GzipCompression) Encoding() string {
	return EncodingGzip
}

func (g *GzipCompression) Close() {}

func NewGzipCompressor() interfaces.CompressorInterface {
	return &GzipCompression{level: gzip.DefaultCompression}
}

// NoopCompression stores the collection as plain JSON.
type NoopCompression struct{}

func (n *NoopCompression) Compress(val []byte) ([]byte, error)   { return val, nil }
func (n *NoopCompression) Decompress(val []byte) ([]byte, error) { return val, nil }
func (n *NoopCompression) Encoding() string                      { return EncodingIdentity }
func (n *NoopCompression) Close()                                {}

// NewCompressor returns the compressor for the collection file.
func NewCompressor(conf *structures.Config) (interfaces.CompressorInterface, error) {
	switch conf.Persistence.Compression {
	case "", "none":
		return &NoopCompression{}, nil
	case EncodingZstd:
		return NewZstdCompressor()
	case EncodingGzip:
		return NewGzipCompressor(), nil
	default:
		return nil, fmt.Errorf("unknown compression %q", conf.Persistence.Compression)
	}
}

// ResponseEncoders holds the content-codings offered to HTTP clients, in
// order of preference.
type ResponseEncoders struct {
	encoders []interfaces.CompressorInterface
}

func (re *ResponseEncoders) List() []interfaces.CompressorInterface {
	return re.encoders
}

func (re *ResponseEncoders) Close() {
	for _, e := range re.encoders {
		e.Close()
	}
}

func NewResponseEncoders() (*ResponseEncoders, error) {
	zstdCompressor, err := NewZstdCompressor()
	if err != nil {
		return nil, err
	}
	return &ResponseEncoders{
		encoders: []interfaces.CompressorInterface{zstdCompressor, NewGzipCompressor()},
	}, nil
}
