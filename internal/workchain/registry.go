package workchain

import "sort"

// Decision is what a handler action returns: halt the work chain with a
// terminal exit code, or resubmit with the context it just mutated.
type Decision struct {
	Halt     bool
	ExitCode int
}

func Retry() Decision {
	return Decision{}
}

func Stop(exitCode int) Decision {
	return Decision{Halt: true, ExitCode: exitCode}
}

// Action inspects a failed attempt and prepares the context for the next one.
// Actions never return errors for expected classifications; anything they
// cannot act on is for the engine to escalate.
type Action func(attempt AttemptRecord, out Outcome, ctx *Context) Decision

// HandlerRule binds an action to the failure classifications it recognizes.
// Higher priorities are consulted first; rules sharing a priority keep their
// registration order.
type HandlerRule struct {
	Name            string
	Priority        int
	Classifications []Classification
	Action          Action
}

func (r HandlerRule) applies(class Classification) bool {
	for _, c := range r.Classifications {
		if c == class {
			return true
		}
	}
	return false
}

// Registry holds the ordered handler rules of one engine.
type Registry struct {
	rules []HandlerRule
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Register(rule HandlerRule) error {
	if rule.Action == nil {
		return configErrorf("handler %q has a nil action", rule.Name)
	}
	if len(rule.Classifications) == 0 {
		return configErrorf("handler %q declares no applicable classifications", rule.Name)
	}
	for _, c := range rule.Classifications {
		if !c.Valid() {
			return configErrorf("handler %q declares invalid classification %q", rule.Name, c)
		}
	}
	r.rules = append(r.rules, rule)
	// Stable sort: registration order breaks priority ties.
	sort.SliceStable(r.rules, func(i, j int) bool {
		return r.rules[i].Priority > r.rules[j].Priority
	})
	return nil
}

func (r *Registry) Len() int {
	return len(r.rules)
}

func (r *Registry) Rules() []HandlerRule {
	out := make([]HandlerRule, len(r.rules))
	copy(out, r.rules)
	return out
}

// match returns the highest-priority rule recognizing the classification.
// At most one handler fires per attempt; lower-priority rules are never
// consulted once a match is found.
func (r *Registry) match(class Classification) (HandlerRule, bool) {
	for _, rule := range r.rules {
		if rule.applies(class) {
			return rule, true
		}
	}
	return HandlerRule{}, false
}
