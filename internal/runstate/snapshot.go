// Package runstate persists and inspects the on-disk record of a work chain
// run: a terminal final.json, an append-only progress.ndjson event feed, and
// a binary attempt-history snapshot.
package runstate

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type State string

const (
	StateUnknown State = "unknown"
	StateRunning State = "running"
	StateSuccess State = "success"
	StateFail    State = "fail"
)

// FinalOutcome is the terminal record written once per run.
type FinalOutcome struct {
	Timestamp time.Time `json:"timestamp"`
	Status    State     `json:"status"`
	RunID     string    `json:"run_id"`
	ExitCode  int       `json:"exit_code"`
	Message   string    `json:"message,omitempty"`
}

func (fo *FinalOutcome) Save(logsRoot string) error {
	if fo == nil {
		return fmt.Errorf("final outcome is nil")
	}
	if err := os.MkdirAll(logsRoot, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(fo, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(logsRoot, "final.json"), b, 0o644)
}

// Snapshot is a compact summary of a run directory.
type Snapshot struct {
	LogsRoot  string
	RunID     string
	State     State
	ExitCode  int
	Message   string
	LastEvent string
	Attempts  int
}

// LoadSnapshot reads run artifacts in logsRoot. A terminal final.json is
// authoritative; the progress feed is a best-effort activity trail and never
// overrides terminal state.
func LoadSnapshot(logsRoot string) (*Snapshot, error) {
	root := strings.TrimSpace(logsRoot)
	if root == "" {
		return nil, fmt.Errorf("logs root is required")
	}

	s := &Snapshot{LogsRoot: root, State: StateUnknown}

	if err := applyFinalOutcome(s); err != nil {
		return nil, err
	}
	terminal := s.State == StateSuccess || s.State == StateFail

	if err := applyProgress(s, terminal); err != nil {
		return nil, err
	}
	if s.State == StateUnknown && s.LastEvent != "" {
		s.State = StateRunning
	}
	return s, nil
}

func applyFinalOutcome(s *Snapshot) error {
	path := filepath.Join(s.LogsRoot, "final.json")
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	var doc FinalOutcome
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if rid := strings.TrimSpace(doc.RunID); rid != "" {
		s.RunID = rid
	}
	switch doc.Status {
	case StateSuccess, StateFail:
		s.State = doc.Status
		s.ExitCode = doc.ExitCode
		s.Message = doc.Message
	}
	return nil
}

func applyProgress(s *Snapshot, terminal bool) error {
	path := filepath.Join(s.LogsRoot, "progress.ndjson")
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	attempts := map[float64]bool{}
	var last map[string]any
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var event map[string]any
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}
		last = event
		if n, ok := event["attempt"].(float64); ok {
			attempts[n] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if last == nil {
		return nil
	}

	s.Attempts = len(attempts)
	if terminal {
		return nil
	}
	if e, ok := last["event"].(string); ok {
		s.LastEvent = e
	}
	if s.RunID == "" {
		if rid, ok := last["run_id"].(string); ok {
			s.RunID = rid
		}
	}
	return nil
}
