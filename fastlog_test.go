package fastlog

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/falk/fastlog/internal/bandit"
)

func TestEncodeDecode_EmptyInput(t *testing.T) {
	o, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sealed, err := o.Encode(nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(sealed) != 12+16+16 {
		t.Fatalf("sealed length = %d, want 44", len(sealed))
	}
	raw, err := o.Decode(sealed)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(raw) != 0 {
		t.Fatalf("Decode empty input = %v, want empty", raw)
	}
}

func TestEncodeDecode_RoundTripAcrossBanditModes(t *testing.T) {
	payloads := [][]byte{
		nil,
		{0x42},
		bytes.Repeat([]byte("Hello FASTLOG"), 1),
		bytes.Repeat([]byte("abcdefgh"), 1<<17), // exactly the 1 MiB candidate size
	}
	for _, mode := range []bandit.Mode{bandit.Off, bandit.OneShot, bandit.Full} {
		o, err := New(WithBandit(mode))
		if err != nil {
			t.Fatalf("New(%s): %v", mode, err)
		}
		for _, raw := range payloads {
			sealed, err := o.Encode(raw)
			if err != nil {
				t.Fatalf("[%s] Encode: %v", mode, err)
			}
			got, err := o.Decode(sealed)
			if err != nil {
				t.Fatalf("[%s] Decode: %v", mode, err)
			}
			if !bytes.Equal(got, raw) {
				t.Fatalf("[%s] round-trip mismatch", mode)
			}
		}
	}
}

func TestEncode_NonDeterministic(t *testing.T) {
	o, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	raw := []byte("same input every time")
	a, err := o.Encode(raw)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b, err := o.Encode(raw)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("two encodes of the same input produced identical sealed blobs")
	}
}

func TestDecode_Deterministic(t *testing.T) {
	o, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sealed, err := o.Encode([]byte("deterministic decode"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	a, err := o.Decode(sealed)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	b, err := o.Decode(sealed)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("repeated Decode of the same blob produced different output")
	}
}

func TestDecode_TamperedByteFailsAuth(t *testing.T) {
	o, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sealed, err := o.Encode([]byte("tamper me"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	tampered := append([]byte(nil), sealed...)
	tampered[15] ^= 0x01
	if _, err := o.Decode(tampered); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("Decode(tampered) err = %v, want ErrAuthFailed", err)
	}
}

func TestDecode_WrongKeyFailsAuth(t *testing.T) {
	key1 := make([]byte, 32)
	key2 := make([]byte, 32)
	key2[0] = 0xFF
	o1, err := New(WithKey(key1))
	if err != nil {
		t.Fatalf("New(key1): %v", err)
	}
	o2, err := New(WithKey(key2))
	if err != nil {
		t.Fatalf("New(key2): %v", err)
	}
	sealed, err := o1.Encode([]byte("secret payload"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := o2.Decode(sealed); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("Decode with wrong key err = %v, want ErrAuthFailed", err)
	}
}

func TestNew_BadConfig(t *testing.T) {
	cases := []struct {
		name string
		opts []Option
	}{
		{"short key", []Option{WithKey(make([]byte, 16))}},
		{"empty candidates", []Option{WithCandidates(nil)}},
		{"non-increasing candidates", []Option{WithCandidates([]int{100, 100, 200})}},
		{"non-positive candidate", []Option{WithCandidates([]int{0, 100})}},
		{"decreasing candidates", []Option{WithCandidates([]int{300, 200, 100})}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.opts...); !errors.Is(err, ErrBadConfig) {
				t.Fatalf("New() err = %v, want ErrBadConfig", err)
			}
		})
	}
}

func TestBoundarySizing_ExactlyOneCandidateBlock(t *testing.T) {
	o, err := New(WithBandit(bandit.Off))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	raw := make([]byte, 1048576)
	sealed, err := o.Encode(raw)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := o.Decode(sealed)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != len(raw) {
		t.Fatalf("decoded length = %d, want %d", len(got), len(raw))
	}
	framed, err := o.sealer.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if count := binary.LittleEndian.Uint64(framed[8:16]); count != 1 {
		t.Fatalf("block count = %d, want 1", count)
	}
}

func TestKey_ReturnsDefensiveCopy(t *testing.T) {
	o, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	k := o.Key()
	k[0] ^= 0xFF
	k2 := o.Key()
	if bytes.Equal(k, k2) {
		t.Fatal("mutating the returned key copy affected a later Key() call")
	}
}
