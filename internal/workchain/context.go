package workchain

import (
	"sort"

	"github.com/scfchain/scfchain/internal/structure"
)

// Reserved input-context keys handlers may set between attempts. The runner
// treats the rest of the context as opaque.
const (
	KeyRestartCheckpoint = "restart.checkpoint"
	KeyGeometry          = "structure"
)

// AttemptRecord is the immutable summary of one completed loop iteration.
type AttemptRecord struct {
	Index      int            `json:"index" msgpack:"index"`
	AttemptID  string         `json:"attempt_id" msgpack:"attempt_id"`
	OK         bool           `json:"ok" msgpack:"ok"`
	ExitStatus int            `json:"exit_status" msgpack:"exit_status"`
	Class      Classification `json:"classification,omitempty" msgpack:"classification,omitempty"`
	Handler    string         `json:"handler,omitempty" msgpack:"handler,omitempty"`
}

// Context is the mutable per-run state threaded through handler invocations:
// the input context for the next attempt plus the accumulated attempt
// history. It is exclusively owned by one running work chain, so there is no
// locking at this layer.
//
// Mutations are monotonic: keys are added or overwritten, never deleted, so a
// value one handler injected cannot silently disappear before a later handler
// reads it.
type Context struct {
	values   map[string]any
	attempts []AttemptRecord
}

func NewContext(initial map[string]any) *Context {
	c := &Context{values: map[string]any{}}
	for k, v := range initial {
		c.values[k] = v
	}
	return c
}

func (c *Context) Set(key string, value any) {
	if c.values == nil {
		c.values = map[string]any{}
	}
	c.values[key] = value
}

func (c *Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

func (c *Context) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a shallow copy of the current input context, used when
// recording what an attempt was submitted with.
func (c *Context) Snapshot() map[string]any {
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

func (c *Context) SetCheckpoint(ref *CheckpointRef) {
	if ref == nil {
		return
	}
	c.Set(KeyRestartCheckpoint, ref)
}

func (c *Context) Checkpoint() *CheckpointRef {
	v, ok := c.values[KeyRestartCheckpoint]
	if !ok {
		return nil
	}
	ref, ok := v.(*CheckpointRef)
	if !ok {
		return nil
	}
	return ref
}

func (c *Context) SetGeometry(s *structure.Structure) {
	if s == nil {
		return
	}
	c.Set(KeyGeometry, s)
}

func (c *Context) Geometry() *structure.Structure {
	v, ok := c.values[KeyGeometry]
	if !ok {
		return nil
	}
	s, ok := v.(*structure.Structure)
	if !ok {
		return nil
	}
	return s
}

func (c *Context) Attempts() []AttemptRecord {
	out := make([]AttemptRecord, len(c.attempts))
	copy(out, c.attempts)
	return out
}

func (c *Context) recordAttempt(rec AttemptRecord) {
	c.attempts = append(c.attempts, rec)
}
