// Package container implements the framed, unsealed byte layout that the
// core orchestrator compresses into and decompresses out of: a magic tag,
// a block count, and a sequence of self-describing block records.
//
// Blocks are split and compressed sequentially, driven by a bandit.Policy:
// each block's measured ratio and speed feed the policy before the next
// block size is chosen, so this package cannot parallelize across blocks
// without changing which policy family it can drive (Full learns through
// Observe and OneShot through the history window, and both need block n's
// measurement before block n+1's size is chosen).
package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/falk/fastlog/internal/bandit"
	"github.com/falk/fastlog/internal/blockcodec"
)

// Magic is the fixed 8-byte container tag.
const Magic = "FASTLOG2"

// MaxBlockCount bounds the decoder's block-count allocation. A sealed blob
// claiming more blocks than this is rejected before any allocation happens.
const MaxBlockCount = 1 << 32

// DefaultMaxOriginalSize bounds per-block decoder allocation: a blob
// claiming a larger pre-compression size for any one block is rejected.
const DefaultMaxOriginalSize = 64 << 20 // 64 MiB

var (
	// ErrInvalidContainer reports a missing or mismatched magic prefix.
	ErrInvalidContainer = errors.New("container: invalid magic")
	// ErrMalformed reports any structural corruption short of an auth
	// failure: truncated headers, truncated payloads, trailing bytes, a
	// block count or per-block size over the configured ceiling.
	ErrMalformed = errors.New("container: malformed")
)

const blockHeaderSize = 12 // original_size, compressed_size, level: 3 * uint32, little-endian
const containerHeaderSize = 8 + 8 // magic + u64 block count

// Options configures Encode beyond the wire format itself. MaxOriginalSize
// is not read by Encode; Decode takes its per-block cap as a parameter.
type Options struct {
	Codec          blockcodec.Codec
	Level          int
	Candidates     []int
	Bandit         bandit.Policy
	MaxOriginalSize int // 0 = DefaultMaxOriginalSize
}

// Encode splits raw into blocks chosen by opts.Bandit, compresses each with
// opts.Codec at opts.Level, and frames the result per the wire layout.
func Encode(raw []byte, opts Options) ([]byte, error) {
	codec := opts.Codec
	if codec == nil {
		codec = blockcodec.NewLZ4()
	}
	candidates := opts.Candidates
	policy := opts.Bandit
	if policy == nil {
		policy = bandit.New(bandit.OneShot, 0, bandit.Weights{})
	}

	type record struct {
		original, level uint32
		compressed      []byte
	}
	var records []record
	var history []bandit.Entry

	offset := 0
	for offset < len(raw) {
		bs := policy.Choose(candidates, history)
		if bs <= 0 {
			return nil, fmt.Errorf("%w: bandit chose non-positive block size %d", ErrMalformed, bs)
		}
		end := offset + bs
		if end > len(raw) {
			end = len(raw)
		}
		block := raw[offset:end]

		res, err := codec.Compress(block, opts.Level)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", blockcodec.ErrCompressFailed, err)
		}

		policy.Observe(bs, res.Elapsed.Seconds(), res.Ratio)
		if len(history) < len(candidates) {
			history = append(history, bandit.Entry{BlockSize: bs, Ratio: res.Ratio, Speed: res.Speed})
		}

		records = append(records, record{
			original:   uint32(len(block)),
			level:      uint32(opts.Level),
			compressed: res.Compressed,
		})
		offset = end
	}

	var buf bytes.Buffer
	buf.WriteString(Magic)
	var countBuf [8]byte
	binary.LittleEndian.PutUint64(countBuf[:], uint64(len(records)))
	buf.Write(countBuf[:])

	for _, r := range records {
		var hdr [blockHeaderSize]byte
		binary.LittleEndian.PutUint32(hdr[0:4], r.original)
		binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(r.compressed)))
		binary.LittleEndian.PutUint32(hdr[8:12], r.level)
		buf.Write(hdr[:])
		buf.Write(r.compressed)
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode: it never consults a bandit, since the container
// is fully self-describing.
func Decode(framed []byte, codec blockcodec.Codec, maxOriginalSize int) ([]byte, error) {
	if codec == nil {
		codec = blockcodec.NewLZ4()
	}
	if maxOriginalSize <= 0 {
		maxOriginalSize = DefaultMaxOriginalSize
	}

	if len(framed) < containerHeaderSize || string(framed[:8]) != Magic {
		return nil, ErrInvalidContainer
	}
	blockCount := binary.LittleEndian.Uint64(framed[8:16])
	if blockCount > MaxBlockCount {
		return nil, fmt.Errorf("%w: block count %d exceeds ceiling %d", ErrMalformed, blockCount, MaxBlockCount)
	}

	cursor := containerHeaderSize
	var out bytes.Buffer
	for i := uint64(0); i < blockCount; i++ {
		if len(framed)-cursor < blockHeaderSize {
			return nil, fmt.Errorf("%w: truncated block header at block %d", ErrMalformed, i)
		}
		original := binary.LittleEndian.Uint32(framed[cursor : cursor+4])
		compressed := binary.LittleEndian.Uint32(framed[cursor+4 : cursor+8])
		// level is carried for forward-describability but not needed to
		// decode: the decompressor is chosen by the caller, not this field.
		cursor += blockHeaderSize

		if int(original) > maxOriginalSize {
			return nil, fmt.Errorf("%w: block %d original_size %d exceeds cap %d", ErrMalformed, i, original, maxOriginalSize)
		}
		if uint64(len(framed)-cursor) < uint64(compressed) {
			return nil, fmt.Errorf("%w: truncated payload at block %d", ErrMalformed, i)
		}
		payload := framed[cursor : cursor+int(compressed)]
		cursor += int(compressed)

		block, err := codec.Decompress(payload, int(original))
		if err != nil {
			return nil, err
		}
		out.Write(block)
	}

	if cursor != len(framed) {
		return nil, fmt.Errorf("%w: %d trailing bytes after last block", ErrMalformed, len(framed)-cursor)
	}
	return out.Bytes(), nil
}
