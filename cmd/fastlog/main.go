package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "encode":
		err = runEncode(os.Args[2:])
	case "decode":
		err = runDecode(os.Args[2:])
	case "bench":
		err = runBench(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "fastlog: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("fastlog: block-compressed, authenticated log-blob codec")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  fastlog encode <in> <out> [--bandit one|full|off] [--codec lz4|zstd] [--level N]")
	fmt.Println("  fastlog decode <in> <out> --key HEX [--codec lz4|zstd]")
	fmt.Println("  fastlog bench <file> [--codec lz4|zstd]")
}
