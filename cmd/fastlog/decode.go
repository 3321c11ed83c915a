package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/falk/fastlog"
	"github.com/falk/fastlog/internal/blockcodec"
)

func runDecode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	codecFlag := fs.String("codec", blockcodec.LZ4Name, "block codec: lz4, zstd")
	keyHex := fs.String("key", "", "32-byte session key, hex-encoded (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: fastlog decode <in> <out> [flags]")
	}
	if *keyHex == "" {
		return fmt.Errorf("--key is required to decode")
	}
	in, out := fs.Arg(0), fs.Arg(1)

	codec := blockcodec.ByName(*codecFlag)
	if codec == nil {
		return fmt.Errorf("unknown codec %q", *codecFlag)
	}
	key, err := hex.DecodeString(*keyHex)
	if err != nil {
		return fmt.Errorf("decoding --key: %w", err)
	}

	o, err := fastlog.New(fastlog.WithKey(key), fastlog.WithCodec(codec))
	if err != nil {
		return fmt.Errorf("constructing orchestrator: %w", err)
	}

	sealed, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("reading %s: %w", in, err)
	}

	raw, err := o.Decode(sealed)
	if err != nil {
		return fmt.Errorf("decoding: %w", err)
	}

	if err := os.WriteFile(out, raw, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}

	fmt.Printf("%s -> %s: %d bytes -> %d bytes\n", in, out, len(sealed), len(raw))
	return nil
}
