package store

import (
	"context"
	"fmt"

	"github.com/roach88/unnest/internal/ir"
)

// Mismatch describes a stored plan whose encoding no longer hashes to its
// digest.
type Mismatch struct {
	Digest   string `json:"digest"`
	Computed string `json:"computed"`
	Name     string `json:"name"`
	Seq      int64  `json:"seq"`
}

// VerifyPlans re-hashes the canonical encoding of every stored plan and
// returns the rows whose digest disagrees. An empty result means the
// history is intact.
func (s *Store) VerifyPlans(ctx context.Context) ([]Mismatch, error) {
	plans, err := s.ListPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("verify plans: %w", err)
	}

	mismatches := []Mismatch{}
	for _, rec := range plans {
		computed := ir.PlanDigestBytes([]byte(rec.Encoded))
		if computed != rec.Digest {
			mismatches = append(mismatches, Mismatch{
				Digest:   rec.Digest,
				Computed: computed,
				Name:     rec.Name,
				Seq:      rec.Seq,
			})
		}
	}
	return mismatches, nil
}
