package main

import (
	"fmt"
	"os"

	"github.com/scfchain/scfchain/internal/runstate"
)

func statusMain(args []string) {
	var logsRoot string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--logs-root":
			i++
			if i >= len(args) {
				fatalf("--logs-root requires a value")
			}
			logsRoot = args[i]
		default:
			fatalf("unknown flag: %s", args[i])
		}
	}
	if logsRoot == "" {
		usage()
		os.Exit(2)
	}

	snap, err := runstate.LoadSnapshot(logsRoot)
	if err != nil {
		fatalf("load snapshot: %v", err)
	}

	fmt.Printf("run:      %s\n", emptyDash(snap.RunID))
	fmt.Printf("state:    %s\n", snap.State)
	if snap.State == runstate.StateFail {
		fmt.Printf("exit:     %d\n", snap.ExitCode)
		fmt.Printf("message:  %s\n", emptyDash(snap.Message))
	}
	fmt.Printf("attempts: %d\n", snap.Attempts)

	history, err := runstate.LoadAttempts(logsRoot)
	if err != nil {
		fatalf("load attempt history: %v", err)
	}
	for _, rec := range history {
		if rec.OK {
			fmt.Printf("  #%d %s: success\n", rec.Index, rec.AttemptID)
			continue
		}
		fmt.Printf("  #%d %s: exit status %d (%s) handled by %s\n",
			rec.Index, rec.AttemptID, rec.ExitStatus, rec.Class, emptyDash(rec.Handler))
	}

	if snap.State == runstate.StateFail {
		os.Exit(1)
	}
}

func emptyDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
