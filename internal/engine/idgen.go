package engine

import "github.com/google/uuid"

// SessionIDGenerator names plan-building sessions.
// Implemented by UUIDv7Generator in production; tests use
// testutil.FixedSessionGenerator.
type SessionIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 session ids.
//
// Sessions recorded in plan history sort by creation time because UUIDv7
// embeds a timestamp in its most significant bits.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
