package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/scfchain/scfchain/internal/config"
	"github.com/scfchain/scfchain/internal/runner"
	"github.com/scfchain/scfchain/internal/runstate"
	"github.com/scfchain/scfchain/internal/structure"
	"github.com/scfchain/scfchain/internal/workchain"
)

func runMain(args []string) {
	var configPath string
	var structurePath string
	var runID string
	var logsRoot string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			i++
			if i >= len(args) {
				fatalf("--config requires a value")
			}
			configPath = args[i]
		case "--structure":
			i++
			if i >= len(args) {
				fatalf("--structure requires a value")
			}
			structurePath = args[i]
		case "--run-id":
			i++
			if i >= len(args) {
				fatalf("--run-id requires a value")
			}
			runID = args[i]
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
	if configPath == "" || structurePath == "" {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fatalf("load config: %v", err)
	}
	geometry, err := loadStructure(structurePath)
	if err != nil {
		fatalf("load structure: %v", err)
	}

	if runID == "" {
		runID = workchain.NewRunID()
	}
	if logsRoot == "" {
		logsRoot = cfg.LogsRoot
	}
	if logsRoot == "" {
		logsRoot = defaultLogsRoot(runID)
	}

	local := &runner.Local{
		Executable: cfg.Pyscf.Executable,
		LogsRoot:   logsRoot,
		Walltime:   time.Duration(cfg.Job.WalltimeMS) * time.Millisecond,
	}
	engine, err := workchain.New(local, workchain.Options{
		RunID:       runID,
		MaxAttempts: cfg.Workchain.MaxAttempts,
		LogsRoot:    logsRoot,
		Backoff: workchain.BackoffConfig{
			InitialDelayMS: cfg.Workchain.Backoff.InitialDelayMS,
			BackoffFactor:  cfg.Workchain.Backoff.BackoffFactor,
			MaxDelayMS:     cfg.Workchain.Backoff.MaxDelayMS,
			Jitter:         cfg.Workchain.Backoff.Jitter,
		},
	})
	if err != nil {
		fatalf("configure work chain: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := engine.Run(ctx, runner.NewInputContext(geometry, &cfg.Parameters))
	if err != nil {
		fatalf("run: %v", err)
	}

	status := runstate.StateFail
	if result.OK {
		status = runstate.StateSuccess
	}
	final := &runstate.FinalOutcome{
		Timestamp: time.Now().UTC(),
		Status:    status,
		RunID:     runID,
		ExitCode:  result.ExitCode,
		Message:   result.Message,
	}
	if err := final.Save(logsRoot); err != nil {
		fmt.Fprintf(os.Stderr, "warning: save final outcome: %v\n", err)
	}
	if err := runstate.SaveAttempts(logsRoot, result.History); err != nil {
		fmt.Fprintf(os.Stderr, "warning: save attempt history: %v\n", err)
	}

	fmt.Printf("run %s finished after %d attempt(s): exit code %d (%s)\n", runID, len(result.History), result.ExitCode, result.Message)
	if !result.OK {
		os.Exit(1)
	}
}

func loadStructure(path string) (*structure.Structure, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s structure.Structure
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func defaultLogsRoot(runID string) string {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			base = "."
		} else {
			base = filepath.Join(home, ".local", "state")
		}
	}
	return filepath.Join(base, "scfchain", "runs", runID)
}
