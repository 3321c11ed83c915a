package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/falk/fastlog"
	"github.com/falk/fastlog/internal/blockcodec"
)

func runBench(args []string) error {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	codecFlag := fs.String("codec", "", "block codec: lz4, zstd (both if omitted)")
	level := fs.Int("level", fastlog.DefaultLevel, "compression level")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: fastlog bench <file> [flags]")
	}

	raw, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("reading %s: %w", fs.Arg(0), err)
	}

	codecs := []blockcodec.Codec{blockcodec.NewLZ4(), blockcodec.NewZstd()}
	if *codecFlag != "" {
		c := blockcodec.ByName(*codecFlag)
		if c == nil {
			return fmt.Errorf("unknown codec %q", *codecFlag)
		}
		codecs = []blockcodec.Codec{c}
	}

	fmt.Printf("%-8s %10s %12s %10s %10s\n", "codec", "block", "compressed", "ratio", "MB/s")
	for _, codec := range codecs {
		for _, size := range fastlog.DefaultCandidates {
			block := raw
			if len(block) > size {
				block = block[:size]
			}
			res, err := codec.Compress(block, *level)
			if err != nil {
				return fmt.Errorf("%s at block size %d: %w", codec.Name(), size, err)
			}
			mbPerSec := 0.0
			if secs := res.Elapsed.Seconds(); secs > 0 {
				mbPerSec = float64(len(block)) / secs / (1 << 20)
			}
			fmt.Printf("%-8s %10d %12d %10.4f %10.2f\n", codec.Name(), len(block), len(res.Compressed), res.Ratio, mbPerSec)
		}
	}
	return nil
}
