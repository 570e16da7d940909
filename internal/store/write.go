package store

import (
	"context"
	"fmt"
)

// SavePlan inserts a plan record into history.
// Uses ON CONFLICT(digest) DO NOTHING for idempotency - saving a plan that
// is already stored is silently ignored and returns false.
//
// rec.Seq is ignored; the store assigns the next sequence number.
func (s *Store) SavePlan(ctx context.Context, rec PlanRecord) (bool, error) {
	if rec.Digest == "" {
		return false, fmt.Errorf("save plan: digest is required")
	}

	rulesJSON, err := marshalRules(rec.Rules)
	if err != nil {
		return false, fmt.Errorf("save plan: %w", err)
	}

	// WHERE true disambiguates ON CONFLICT from a join constraint in
	// INSERT ... SELECT.
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO plans
		(digest, name, session_id, rules, rendered, encoded, engine_version, ir_version, seq)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, COALESCE(MAX(seq), 0) + 1 FROM plans WHERE true
		ON CONFLICT(digest) DO NOTHING
	`,
		rec.Digest,
		rec.Name,
		rec.SessionID,
		rulesJSON,
		rec.Rendered,
		rec.Encoded,
		rec.EngineVersion,
		rec.IRVersion,
	)
	if err != nil {
		return false, fmt.Errorf("save plan: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("save plan: %w", err)
	}
	return n == 1, nil
}
