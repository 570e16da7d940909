package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrPlanNotFound is returned by GetPlan for an unknown digest.
var ErrPlanNotFound = errors.New("plan not found")

// GetPlan returns the plan stored under digest.
// Hits are cached; a digest's row never changes once written.
func (s *Store) GetPlan(ctx context.Context, digest string) (PlanRecord, error) {
	if rec, ok := s.cache.Load(digest); ok {
		return rec, nil
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT digest, name, session_id, rules, rendered, encoded, engine_version, ir_version, seq
		FROM plans
		WHERE digest = ?
	`, digest)

	rec, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return PlanRecord{}, fmt.Errorf("get plan %s: %w", digest, ErrPlanNotFound)
	}
	if err != nil {
		return PlanRecord{}, fmt.Errorf("get plan %s: %w", digest, err)
	}

	s.cache.Store(digest, rec)
	return rec, nil
}

// ListPlans returns every stored plan.
// Results are ordered deterministically: ORDER BY seq ASC, digest ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if no plans are stored.
func (s *Store) ListPlans(ctx context.Context) ([]PlanRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT digest, name, session_id, rules, rendered, encoded, engine_version, ir_version, seq
		FROM plans
		ORDER BY seq ASC, digest COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	plans := []PlanRecord{}
	for rows.Next() {
		rec, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		s.cache.LoadOrStore(rec.Digest, rec)
		plans = append(plans, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}

	return plans, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (PlanRecord, error) {
	var rec PlanRecord
	var rulesJSON string

	err := row.Scan(
		&rec.Digest,
		&rec.Name,
		&rec.SessionID,
		&rulesJSON,
		&rec.Rendered,
		&rec.Encoded,
		&rec.EngineVersion,
		&rec.IRVersion,
		&rec.Seq,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan plan: %w", err)
	}

	rec.Rules, err = unmarshalRules(rulesJSON)
	if err != nil {
		return rec, err
	}
	return rec, nil
}
