package main

import (
	"fmt"
	"os"

	"github.com/scfchain/scfchain/internal/config"
)

func validateMain(args []string) {
	var configPath string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			i++
			if i >= len(args) {
				fatalf("--config requires a value")
			}
			configPath = args[i]
		default:
			fatalf("unknown flag: %s", args[i])
		}
	}
	if configPath == "" {
		usage()
		os.Exit(2)
	}

	if _, err := config.Load(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("ok")
}
