package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "run":
		runMain(os.Args[2:])
	case "status":
		statusMain(os.Args[2:])
	case "validate":
		validateMain(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  scfchain run --config <run.yaml> --structure <structure.json> [--run-id <id>] [--logs-root <dir>]")
	fmt.Fprintln(os.Stderr, "  scfchain status --logs-root <dir>")
	fmt.Fprintln(os.Stderr, "  scfchain validate --config <run.yaml>")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(2)
}
