// Package store provides SQLite-backed plan history.
//
// Every built plan can be saved under its content digest (see
// queryir.Digest). The table is append-only:
//   - plans: digest, name, session id, rules, render, canonical encoding
//
// # Critical Patterns
//
// Digest-Level Idempotency
//   - digest is the PRIMARY KEY; saving the same plan twice is a no-op
//   - the first save wins, including its name and session id
//
// Logical Ordering
//   - seq is assigned on insert as MAX(seq)+1, NEVER from wall time
//   - ListPlans orders by seq ASC, digest ASC COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Reads go through an in-process digest cache shared by all goroutines
// using the Store.
package store
