package blockcodec

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// LZ4Name identifies the LZ4 block-mode codec, the default compressor: a
// dictionary-free, single-block coder with no cross-block state, matching
// the container's per-block independence requirement.
const LZ4Name = "lz4"

type lz4Codec struct{}

// NewLZ4 returns the default block codec, wrapping pierrec/lz4's block-mode
// API (not the frame/stream API — the container format supplies its own
// framing, so only CompressBlock/UncompressBlock are needed).
func NewLZ4() Codec { return lz4Codec{} }

func (lz4Codec) Name() string { return LZ4Name }

// lz4HCThreshold is the level at and above which the high-compression
// variant is used. Levels below it use the fast single-pass compressor.
const lz4HCThreshold = 9

func (lz4Codec) Compress(block []byte, level int) (Result, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(block)))
	return Measure(len(block), func() ([]byte, error) {
		var n int
		var err error
		if level >= lz4HCThreshold {
			var c lz4.CompressorHC
			c.Level = lz4.CompressionLevel(level)
			n, err = c.CompressBlock(block, dst)
		} else {
			var c lz4.Compressor
			n, err = c.CompressBlock(block, dst)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: lz4 compress: %v", ErrCompressFailed, err)
		}
		if n == 0 {
			// Data declined to shrink (too small, or incompressible); fall
			// back to a minimal literal-only LZ4 sequence, which is still a
			// valid block that UncompressBlock can restore.
			return literalBlock(block), nil
		}
		return append([]byte(nil), dst[:n]...), nil
	})
}

func (lz4Codec) Decompress(compressed []byte, originalSize int) ([]byte, error) {
	if originalSize == 0 {
		return []byte{}, nil
	}
	dst := make([]byte, originalSize)
	n, err := lz4.UncompressBlock(compressed, dst)
	if err != nil {
		return nil, fmt.Errorf("%w: lz4 decompress: %v", ErrDecompressFailed, err)
	}
	if n != originalSize {
		return nil, wrongLengthError(LZ4Name, n, originalSize)
	}
	return dst, nil
}

// literalBlock encodes src as a single LZ4 sequence with no match part: a
// token whose high nibble carries the literal-length code, optional
// continuation length bytes, then the literal bytes themselves. A
// match-free final sequence is valid LZ4 block syntax.
func literalBlock(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	n := len(src)
	var out []byte
	if n < 0xF {
		out = append(out, byte(n<<4))
	} else {
		out = append(out, 0xF0)
		rem := n - 0xF
		for rem >= 0xFF {
			out = append(out, 0xFF)
			rem -= 0xFF
		}
		out = append(out, byte(rem))
	}
	return append(out, src...)
}
