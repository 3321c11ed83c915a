// Package fastlog implements a self-describing, block-compressed,
// authenticated-encryption log-blob codec: Encode splits a payload into
// blocks whose size is chosen by a multi-armed-bandit policy, compresses
// each block independently, frames them into a container, and seals the
// whole container with AES-GCM-256. Decode reverses the process.
package fastlog

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/falk/fastlog/internal/bandit"
	"github.com/falk/fastlog/internal/blockcodec"
	"github.com/falk/fastlog/internal/container"
	"github.com/falk/fastlog/internal/envelope"
)

// DefaultCandidates is the block-size candidate set used when no override
// is supplied: strictly increasing, with the middle element used by
// OneShot's bootstrap.
var DefaultCandidates = []int{262144, 1048576, 4194304}

// DefaultLevel is the compression level passed through to the codec when
// no override is supplied.
const DefaultLevel = 9

// ErrBadConfig reports an invalid construction-time option: a key that is
// not 32 bytes, an empty or non-monotonic candidate set, or a duplicate
// candidate.
var ErrBadConfig = errors.New("fastlog: bad config")

// Re-exported error kinds, so callers can errors.Is against this package
// alone rather than reaching into internal/*.
var (
	ErrAuthFailed         = envelope.ErrAuthFailed
	ErrInvalidContainer   = container.ErrInvalidContainer
	ErrMalformed          = container.ErrMalformed
	ErrCompressorFailed   = blockcodec.ErrCompressFailed
	ErrDecompressorFailed = blockcodec.ErrDecompressFailed
)

// Orchestrator owns one session's key and bandit state. The bandit policy
// is constructed once in New and persists across every subsequent Encode
// call, so a Full policy's learned means (and a OneShot policy's latch)
// carry from one encode to the next; only the per-encode bootstrap history
// window is local to a single Encode. It composes the container codec and
// envelope cipher: encode compresses then seals, decode authenticates then
// decompresses. One Orchestrator is not safe for concurrent Encode calls —
// the bandit state mutates across an encode, and two interleaved encodes
// would race on the shared policy state.
type Orchestrator struct {
	key             []byte
	sealer          *envelope.Sealer
	codec           blockcodec.Codec
	level           int
	candidates      []int
	policy          bandit.Policy
	maxOriginalSize int
	log             zerolog.Logger
}

// Option configures an Orchestrator at construction time.
type Option func(*config)

type config struct {
	key             []byte
	codec           blockcodec.Codec
	level           int
	candidates      []int
	banditMode      bandit.Mode
	weights         bandit.Weights
	maxOriginalSize int
	log             zerolog.Logger
}

// WithKey supplies a 32-byte session key instead of generating one.
func WithKey(key []byte) Option {
	return func(c *config) { c.key = key }
}

// WithBandit selects the block-size policy. Default: OneShot.
func WithBandit(mode bandit.Mode) Option {
	return func(c *config) { c.banditMode = mode }
}

// WithRewardWeights overrides the bandit's ratio/speed weights and, for
// Full, its exploration probability.
func WithRewardWeights(w bandit.Weights) Option {
	return func(c *config) { c.weights = w }
}

// WithLevel overrides the compression level passthrough. Default: 9.
func WithLevel(level int) Option {
	return func(c *config) { c.level = level }
}

// WithCandidates overrides the block-size candidate set. Must be
// non-empty, strictly increasing, positive.
func WithCandidates(candidates []int) Option {
	return func(c *config) { c.candidates = candidates }
}

// WithCodec overrides the block compressor. Default: LZ4 block mode.
func WithCodec(codec blockcodec.Codec) Option {
	return func(c *config) { c.codec = codec }
}

// WithMaxOriginalSize overrides the decoder's per-block allocation cap.
// Default: 64 MiB.
func WithMaxOriginalSize(n int) Option {
	return func(c *config) { c.maxOriginalSize = n }
}

// WithLogger attaches a structured logger. Default: zerolog's disabled
// logger, which discards every event without the caller needing a nil
// check.
func WithLogger(log zerolog.Logger) Option {
	return func(c *config) { c.log = log }
}

// New builds an Orchestrator. A fresh 256-bit key is generated unless
// WithKey supplies one.
func New(opts ...Option) (*Orchestrator, error) {
	c := config{
		level:      DefaultLevel,
		candidates: DefaultCandidates,
		banditMode: bandit.OneShot,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&c)
	}

	if err := validateCandidates(c.candidates); err != nil {
		return nil, err
	}

	key := c.key
	if key == nil {
		key = make([]byte, envelope.KeySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("fastlog: generating session key: %w", err)
		}
	} else if len(key) != envelope.KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", ErrBadConfig, envelope.KeySize, len(key))
	}

	sealer, err := envelope.New(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadConfig, err)
	}

	codec := c.codec
	if codec == nil {
		codec = blockcodec.NewLZ4()
	}

	policy := bandit.New(c.banditMode, c.candidates[len(c.candidates)/2], c.weights)

	return &Orchestrator{
		key:             key,
		sealer:          sealer,
		codec:           codec,
		level:           c.level,
		candidates:      c.candidates,
		policy:          policy,
		maxOriginalSize: c.maxOriginalSize,
		log:             c.log,
	}, nil
}

func validateCandidates(candidates []int) error {
	if len(candidates) == 0 {
		return fmt.Errorf("%w: candidate set must be non-empty", ErrBadConfig)
	}
	seen := make(map[int]bool, len(candidates))
	for i, c := range candidates {
		if c <= 0 {
			return fmt.Errorf("%w: candidate %d is non-positive", ErrBadConfig, c)
		}
		if seen[c] {
			return fmt.Errorf("%w: duplicate candidate %d", ErrBadConfig, c)
		}
		seen[c] = true
		if i > 0 && c <= candidates[i-1] {
			return fmt.Errorf("%w: candidates must be strictly increasing", ErrBadConfig)
		}
	}
	return nil
}

// Key returns a copy of the session key. Callers must not assume the
// returned slice aliases the Orchestrator's own storage.
func (o *Orchestrator) Key() []byte {
	cp := make([]byte, len(o.key))
	copy(cp, o.key)
	return cp
}

// Encode compresses raw into a framed container, chosen block-by-block by
// the orchestrator's bandit policy, then seals it under the session key.
func (o *Orchestrator) Encode(raw []byte) ([]byte, error) {
	id := uuid.New()
	o.log.Info().Str("op", "encode").Str("id", id.String()).Int("input_bytes", len(raw)).Msg("fastlog encode start")

	framed, err := container.Encode(raw, container.Options{
		Codec:      o.codec,
		Level:      o.level,
		Candidates: o.candidates,
		Bandit:     o.policy,
	})
	if err != nil {
		o.log.Error().Str("op", "encode").Str("id", id.String()).Err(err).Msg("fastlog encode failed")
		return nil, err
	}

	sealed, err := o.sealer.Seal(framed)
	if err != nil {
		o.log.Error().Str("op", "encode").Str("id", id.String()).Err(err).Msg("fastlog seal failed")
		return nil, err
	}
	o.log.Info().Str("op", "encode").Str("id", id.String()).Int("sealed_bytes", len(sealed)).Msg("fastlog encode done")
	return sealed, nil
}

// Decode authenticates sealed under the session key, then unframes the
// contained blocks back into the original bytes. Authentication is always
// checked before any container parsing is attempted.
func (o *Orchestrator) Decode(sealed []byte) ([]byte, error) {
	id := uuid.New()
	o.log.Info().Str("op", "decode").Str("id", id.String()).Int("sealed_bytes", len(sealed)).Msg("fastlog decode start")

	framed, err := o.sealer.Open(sealed)
	if err != nil {
		o.log.Error().Str("op", "decode").Str("id", id.String()).Err(err).Msg("fastlog open failed")
		return nil, err
	}

	raw, err := container.Decode(framed, o.codec, o.maxOriginalSize)
	if err != nil {
		o.log.Error().Str("op", "decode").Str("id", id.String()).Err(err).Msg("fastlog decode failed")
		return nil, err
	}
	o.log.Info().Str("op", "decode").Str("id", id.String()).Int("output_bytes", len(raw)).Msg("fastlog decode done")
	return raw, nil
}
