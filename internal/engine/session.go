package engine

import (
	"io"
	"log/slog"

	"github.com/roach88/unnest/internal/ir"
)

// Session is the builder context threaded through every plan constructor.
//
// It owns the column id allocator, the rule configuration and a trace of
// the local rewrites applied so far. One Session builds one plan (or a
// family of plans that share column ids); sessions never share state.
//
// Thread-safety model:
//   - Next(): safe from any goroutine (delegates to the atomic allocator)
//   - constructors, Enable/Disable, Trace: one goroutine at a time
type Session struct {
	id     string
	alloc  *Allocator
	rules  *ir.RuleSet
	logger *slog.Logger
	trace  []RuleEvent
}

// RuleEvent records one local rewrite applied by a constructor.
type RuleEvent struct {
	// Seq is the 1-based position of the event within the session.
	Seq int

	// Name identifies the rewrite (e.g. "PushFilterLeft").
	Name string

	// Op is the constructor that applied it.
	Op string
}

// Rewrite names recorded in the trace.
const (
	EventMergeSelects            = "MergeSelects"
	EventEliminateSelect         = "EliminateSelect"
	EventPushFilterLeft          = "PushFilterLeft"
	EventPushFilterRight         = "PushFilterRight"
	EventEliminateMap            = "EliminateMap"
	EventHoistSubquery           = "HoistSubquery"
	EventHoistPlus               = "HoistPlus"
	EventHoistScalar             = "HoistScalar"
	EventDecorrelateUncorrelated = "DecorrelateUncorrelated"
	EventPullUpProject           = "PullUpProject"
	EventPullUpMap               = "PullUpMap"
	EventPushProjectThroughMap   = "PushProjectThroughMap"
	EventEliminateProject        = "EliminateProject"
)

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the logger that receives rule firings at Debug level.
//
// Default: a logger that discards everything.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithRules enables exactly the given rules.
//
// Default: no rules enabled, so constructors only build nodes.
func WithRules(rules ...ir.Rule) SessionOption {
	return func(s *Session) {
		s.rules = ir.NewRuleSet(rules...)
	}
}

// WithAllocator shares an existing allocator with the session.
func WithAllocator(alloc *Allocator) SessionOption {
	return func(s *Session) {
		s.alloc = alloc
	}
}

// WithIDGenerator sets how the session id is chosen.
//
// Default: UUIDv7Generator.
func WithIDGenerator(gen SessionIDGenerator) SessionOption {
	return func(s *Session) {
		s.id = gen.Generate()
	}
}

// New creates a Session.
//
// Options can be passed to configure the session (e.g., WithRules).
func New(opts ...SessionOption) *Session {
	s := &Session{
		alloc:  NewAllocator(),
		rules:  ir.NewRuleSet(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.id == "" {
		s.id = UUIDv7Generator{}.Generate()
	}
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Next allocates a fresh column id.
func (s *Session) Next() ir.ColumnID { return s.alloc.Next() }

// Allocator returns the session's allocator.
func (s *Session) Allocator() *Allocator { return s.alloc }

// Enable turns a rule on. Idempotent.
func (s *Session) Enable(r ir.Rule) { s.rules.Enable(r) }

// Disable turns a rule off. Idempotent.
func (s *Session) Disable(r ir.Rule) { s.rules.Disable(r) }

// Enabled reports whether r is on.
func (s *Session) Enabled(r ir.Rule) bool { return s.rules.IsEnabled(r) }

// Rules returns the enabled rules sorted by name.
func (s *Session) Rules() []ir.Rule { return s.rules.Rules() }

// Trace returns a copy of the rewrites applied so far, in order.
func (s *Session) Trace() []RuleEvent {
	out := make([]RuleEvent, len(s.trace))
	copy(out, s.trace)
	return out
}

// Fired reports whether the named rewrite appears in the trace.
func (s *Session) Fired(name string) bool {
	for _, ev := range s.trace {
		if ev.Name == name {
			return true
		}
	}
	return false
}

// record appends a rewrite to the trace and logs it.
func (s *Session) record(name, op string) {
	ev := RuleEvent{Seq: len(s.trace) + 1, Name: name, Op: op}
	s.trace = append(s.trace, ev)

	s.logger.Debug("rule fired",
		"session", s.id,
		"rule", name,
		"op", op,
		"seq", ev.Seq,
	)
}
