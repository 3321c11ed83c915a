package blockcodec

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ZstdName identifies the zstd codec: not the default compressor (LZ4 is),
// but exercised by cmd/fastlog's bench subcommand and available behind the
// same Codec interface so a second compressor can share the container
// format without a parallel code path.
const ZstdName = "zstd"

var (
	zstdDecoder, _ = zstd.NewReader(nil)

	zstdEncoderPools   = make(map[int]*sync.Pool)
	zstdEncoderPoolsMu sync.RWMutex
)

func zstdEncoderPool(level int) *sync.Pool {
	zstdEncoderPoolsMu.RLock()
	pool, ok := zstdEncoderPools[level]
	zstdEncoderPoolsMu.RUnlock()
	if ok {
		return pool
	}

	zstdEncoderPoolsMu.Lock()
	defer zstdEncoderPoolsMu.Unlock()
	if pool, ok = zstdEncoderPools[level]; ok {
		return pool
	}
	pool = &sync.Pool{
		New: func() any {
			enc, _ := zstd.NewWriter(nil,
				zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
				zstd.WithEncoderConcurrency(1),
			)
			return enc
		},
	}
	zstdEncoderPools[level] = pool
	return pool
}

type zstdCodec struct{}

// NewZstd returns the alternate codec, selectable with --codec zstd in
// every cmd/fastlog subcommand.
func NewZstd() Codec { return zstdCodec{} }

func (zstdCodec) Name() string { return ZstdName }

func (zstdCodec) Compress(block []byte, level int) (Result, error) {
	pool := zstdEncoderPool(level)
	enc := pool.Get().(*zstd.Encoder)
	defer pool.Put(enc)

	return Measure(len(block), func() ([]byte, error) {
		return enc.EncodeAll(block, make([]byte, 0, len(block))), nil
	})
}

func (zstdCodec) Decompress(compressed []byte, originalSize int) ([]byte, error) {
	if originalSize == 0 {
		return []byte{}, nil
	}
	out, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, originalSize))
	if err != nil {
		return nil, fmt.Errorf("%w: zstd decompress: %v", ErrDecompressFailed, err)
	}
	if len(out) != originalSize {
		return nil, wrongLengthError(ZstdName, len(out), originalSize)
	}
	return out, nil
}
