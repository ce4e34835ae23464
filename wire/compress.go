package wire

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Compressor zstd-compresses marshaled frames. Tile payloads are already
// entropy coded; compression mostly pays off on frames with many small
// static tiles.
type Compressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewCompressor creates a Compressor using the given zstd level.
func NewCompressor(level zstd.EncoderLevel) (*Compressor, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &Compressor{enc: enc, dec: dec}, nil
}

// Compress appends the compressed form of src to dst.
func (c *Compressor) Compress(dst, src []byte) []byte {
	return c.enc.EncodeAll(src, dst)
}

// Decompress appends the decompressed form of src to dst.
func (c *Compressor) Decompress(dst, src []byte) ([]byte, error) {
	out, err := c.dec.DecodeAll(src, dst)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return out, nil
}

// MarshalFrame marshals f, compressing it when c is not nil.
func (c *Compressor) MarshalFrame(f *Frame) []byte {
	raw := f.Marshal()
	if c == nil {
		return raw
	}
	return c.Compress(nil, raw)
}

// UnmarshalFrame reverses MarshalFrame.
func (c *Compressor) UnmarshalFrame(b []byte) (*Frame, error) {
	if c != nil {
		var err error
		if b, err = c.Decompress(nil, b); err != nil {
			return nil, err
		}
	}
	f := &Frame{}
	if err := f.Unmarshal(b); err != nil {
		return nil, err
	}
	return f, nil
}

// Close releases the zstd resources.
func (c *Compressor) Close() {
	c.enc.Close()
	c.dec.Close()
}
