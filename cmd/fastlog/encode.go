package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/falk/fastlog"
	"github.com/falk/fastlog/internal/bandit"
	"github.com/falk/fastlog/internal/blockcodec"
)

func runEncode(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	banditFlag := fs.String("bandit", "one", "bandit policy: one, full, off")
	codecFlag := fs.String("codec", blockcodec.LZ4Name, "block codec: lz4, zstd")
	level := fs.Int("level", fastlog.DefaultLevel, "compression level")
	keyHex := fs.String("key", "", "32-byte session key, hex-encoded (generated and printed if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: fastlog encode <in> <out> [flags]")
	}
	in, out := fs.Arg(0), fs.Arg(1)

	codec := blockcodec.ByName(*codecFlag)
	if codec == nil {
		return fmt.Errorf("unknown codec %q", *codecFlag)
	}
	mode, err := parseBanditMode(*banditFlag)
	if err != nil {
		return err
	}

	opts := []fastlog.Option{
		fastlog.WithBandit(mode),
		fastlog.WithCodec(codec),
		fastlog.WithLevel(*level),
	}
	if *keyHex != "" {
		key, err := hex.DecodeString(*keyHex)
		if err != nil {
			return fmt.Errorf("decoding --key: %w", err)
		}
		opts = append(opts, fastlog.WithKey(key))
	}

	o, err := fastlog.New(opts...)
	if err != nil {
		return fmt.Errorf("constructing orchestrator: %w", err)
	}

	raw, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("reading %s: %w", in, err)
	}

	sealed, err := o.Encode(raw)
	if err != nil {
		return fmt.Errorf("encoding: %w", err)
	}

	if err := os.WriteFile(out, sealed, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}

	fmt.Printf("%s -> %s: %d bytes -> %d bytes (%s, %s)\n", in, out, len(raw), len(sealed), mode, codec.Name())
	if *keyHex == "" {
		fmt.Fprintf(os.Stderr, "session key: %s\n", hex.EncodeToString(o.Key()))
	}
	return nil
}

func parseBanditMode(s string) (bandit.Mode, error) {
	switch bandit.Mode(s) {
	case bandit.Off, bandit.OneShot, bandit.Full:
		return bandit.Mode(s), nil
	default:
		return "", fmt.Errorf("unknown bandit mode %q (want one, full, off)", s)
	}
}
