package workchain

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Runner submits one attempt to the external computation and blocks until a
// terminal outcome is observed. It reads the reserved restart keys from the
// context and must not mutate it. Submit returns an error only for transport
// or host-level problems; expected job failures are expressed as a failed
// Outcome.
type Runner interface {
	Submit(ctx context.Context, attemptID string, inputs *Context) (Outcome, error)
}

// Options configures one engine instance.
type Options struct {
	// RunID is a globally unique filesystem-safe identifier. If empty, one
	// is generated (ULID).
	RunID string

	// MaxAttempts bounds the retry loop. Defaults to 5, the host policy
	// default for restart work chains.
	MaxAttempts int

	// LogsRoot, when set, receives a progress.ndjson event feed.
	LogsRoot string

	Backoff BackoffConfig

	// Report receives human-readable diagnostics. Defaults to stderr.
	Report func(format string, args ...any)
}

const defaultMaxAttempts = 5

func (o *Options) applyDefaults() {
	if o.RunID == "" {
		o.RunID = NewRunID()
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.Report == nil {
		o.Report = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}
}

// NewRunID returns a ULID suitable for run and attempt identifiers.
func NewRunID() string {
	return ulid.Make().String()
}

// FinalResult is the terminal status surfaced to the host workflow.
type FinalResult struct {
	OK         bool
	ExitCode   int
	ExitStatus int
	Message    string
	Outputs    map[string]any
	History    []AttemptRecord
}

// Engine drives a bounded retry loop around a single long-running external
// computation, classifying each failure and deciding whether and how to
// resubmit. Attempts run strictly sequentially; the Submit call is the only
// suspension point.
type Engine struct {
	runner   Runner
	registry *Registry
	opts     Options

	progressMu sync.Mutex
}

func New(runner Runner, opts Options) (*Engine, error) {
	if runner == nil {
		return nil, configErrorf("runner is required")
	}
	opts.applyDefaults()
	e := &Engine{
		runner:   runner,
		registry: NewRegistry(),
		opts:     opts,
	}
	for _, rule := range builtinRules(opts.Report) {
		if err := e.registry.Register(rule); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// NewWithRegistry builds an engine around a caller-assembled rule set. An
// empty registry is a configuration error: an engine that cannot classify
// any failure is useless.
func NewWithRegistry(runner Runner, registry *Registry, opts Options) (*Engine, error) {
	if runner == nil {
		return nil, configErrorf("runner is required")
	}
	if registry == nil || registry.Len() == 0 {
		return nil, configErrorf("at least one handler rule must be registered")
	}
	opts.applyDefaults()
	return &Engine{runner: runner, registry: registry, opts: opts}, nil
}

// Register adds a handler rule on top of the built-in set. Like the built-in
// rules it is consulted in priority order, stable on ties.
func (e *Engine) Register(rule HandlerRule) error {
	return e.registry.Register(rule)
}

func (e *Engine) RunID() string {
	return e.opts.RunID
}

// Run executes the retry loop until the job succeeds, a handler halts the
// chain, a failure cannot be classified, or the attempt ceiling is reached.
// Expected failure classifications never surface as errors; the returned
// error is reserved for cancellation and runner transport faults.
func (e *Engine) Run(ctx context.Context, initial map[string]any) (FinalResult, error) {
	wctx := NewContext(initial)
	lastStatus := 0

	for index := 0; index < e.opts.MaxAttempts; index++ {
		if err := ctx.Err(); err != nil {
			return FinalResult{}, err
		}

		attemptID := ulid.Make().String()
		e.appendProgress(map[string]any{
			"event":      "attempt_start",
			"run_id":     e.opts.RunID,
			"attempt_id": attemptID,
			"attempt":    index,
			"max":        e.opts.MaxAttempts,
		})

		out, err := e.runner.Submit(ctx, attemptID, wctx)
		if err != nil {
			return FinalResult{}, fmt.Errorf("submit attempt %d: %w", index, err)
		}
		if err := out.Validate(); err != nil {
			return FinalResult{}, fmt.Errorf("attempt %d returned a malformed outcome: %w", index, err)
		}

		rec := AttemptRecord{
			Index:      index,
			AttemptID:  attemptID,
			OK:         out.OK,
			ExitStatus: out.ExitStatus,
			Class:      out.Classification,
		}
		lastStatus = out.ExitStatus

		if out.OK {
			wctx.recordAttempt(rec)
			e.appendProgress(map[string]any{
				"event":      "attempt_end",
				"run_id":     e.opts.RunID,
				"attempt_id": attemptID,
				"attempt":    index,
				"status":     "success",
			})
			return FinalResult{
				OK:       true,
				ExitCode: ExitOK,
				Message:  ExitCodeMessage(ExitOK),
				Outputs:  out.Outputs,
				History:  wctx.Attempts(),
			}, nil
		}

		rule, matched := e.registry.match(out.Classification)
		if matched {
			rec.Handler = rule.Name
		}
		e.appendProgress(map[string]any{
			"event":          "attempt_end",
			"run_id":         e.opts.RunID,
			"attempt_id":     attemptID,
			"attempt":        index,
			"status":         "fail",
			"exit_status":    out.ExitStatus,
			"classification": string(out.Classification),
			"handler":        rec.Handler,
		})

		if !matched {
			wctx.recordAttempt(rec)
			e.opts.Report("attempt %d failed with unclassified exit status %d: %s", index, out.ExitStatus, out.Message)
			return e.finalize(wctx, ExitUnrecoverableFailure, out.ExitStatus), nil
		}

		decision := rule.Action(rec, out, wctx)
		wctx.recordAttempt(rec)

		if decision.Halt {
			e.appendProgress(map[string]any{
				"event":     "handler_halt",
				"run_id":    e.opts.RunID,
				"attempt":   index,
				"handler":   rule.Name,
				"exit_code": decision.ExitCode,
			})
			return e.finalize(wctx, decision.ExitCode, out.ExitStatus), nil
		}

		delay := DelayForAttempt(index+1, e.opts.Backoff, backoffSeed(e.opts.RunID, index+1))
		if delay > 0 {
			e.appendProgress(map[string]any{
				"event":    "retry_sleep",
				"run_id":   e.opts.RunID,
				"attempt":  index,
				"delay_ms": delay.Milliseconds(),
			})
			if !sleepWithContext(ctx, delay) {
				return FinalResult{}, ctx.Err()
			}
		}
	}

	e.opts.Report("giving up after %d attempts", e.opts.MaxAttempts)
	return e.finalize(wctx, ExitMaxAttemptsExceeded, lastStatus), nil
}

func (e *Engine) finalize(wctx *Context, exitCode, lastStatus int) FinalResult {
	return FinalResult{
		ExitCode:   exitCode,
		ExitStatus: lastStatus,
		Message:    ExitCodeMessage(exitCode),
		History:    wctx.Attempts(),
	}
}

func (e *Engine) appendProgress(event map[string]any) {
	if e.opts.LogsRoot == "" {
		return
	}
	event["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	b, err := json.Marshal(event)
	if err != nil {
		return
	}
	e.progressMu.Lock()
	defer e.progressMu.Unlock()
	if err := os.MkdirAll(e.opts.LogsRoot, 0o755); err != nil {
		return
	}
	f, err := os.OpenFile(filepath.Join(e.opts.LogsRoot, "progress.ndjson"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.Write(append(b, '\n'))
}

func sleepWithContext(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return true
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
