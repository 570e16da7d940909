package testutil

import (
	"context"
	"log/slog"
	"sync"
)

// LogRecorder is a slog.Handler that keeps every record it receives.
//
// Tests install it with slog.New(rec) and then assert on what was logged.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type LogRecorder struct {
	mu      sync.Mutex
	records []LogRecord
	attrs   []slog.Attr
}

// LogRecord is the flattened form of one slog record.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// NewLogRecorder creates an empty recorder.
func NewLogRecorder() *LogRecorder {
	return &LogRecorder{}
}

// Enabled accepts every level, including Debug.
func (r *LogRecorder) Enabled(context.Context, slog.Level) bool { return true }

// Handle stores the record.
func (r *LogRecorder) Handle(_ context.Context, rec slog.Record) error {
	attrs := make(map[string]string, rec.NumAttrs()+len(r.attrs))
	for _, a := range r.attrs {
		attrs[a.Key] = a.Value.String()
	}
	rec.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.String()
		return true
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, LogRecord{Level: rec.Level, Message: rec.Message, Attrs: attrs})
	return nil
}

// WithAttrs returns a handler that adds attrs to every record. Records
// still land in the parent recorder.
func (r *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &childRecorder{parent: r, attrs: attrs}
}

// WithGroup is a no-op; groups are flattened.
func (r *LogRecorder) WithGroup(string) slog.Handler { return r }

// Records returns a copy of the stored records.
func (r *LogRecorder) Records() []LogRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LogRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Messages returns the message of every stored record, in order.
func (r *LogRecorder) Messages() []string {
	recs := r.Records()
	out := make([]string, len(recs))
	for i, rec := range recs {
		out[i] = rec.Message
	}
	return out
}

// Reset drops every stored record.
func (r *LogRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}

type childRecorder struct {
	parent *LogRecorder
	attrs  []slog.Attr
}

func (c *childRecorder) Enabled(ctx context.Context, l slog.Level) bool {
	return c.parent.Enabled(ctx, l)
}

func (c *childRecorder) Handle(ctx context.Context, rec slog.Record) error {
	rec = rec.Clone()
	rec.AddAttrs(c.attrs...)
	return c.parent.Handle(ctx, rec)
}

func (c *childRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr{}, c.attrs...), attrs...)
	return &childRecorder{parent: c.parent, attrs: merged}
}

func (c *childRecorder) WithGroup(string) slog.Handler { return c }
