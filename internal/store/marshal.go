package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/unnest/internal/ir"
	"github.com/roach88/unnest/internal/queryir"
	"github.com/roach88/unnest/internal/render"
)

// PlanRecord is one row of plan history.
type PlanRecord struct {
	Digest        string   `json:"digest"`
	Name          string   `json:"name"`
	SessionID     string   `json:"session_id"`
	Rules         []string `json:"rules"`
	Rendered      string   `json:"rendered"`
	Encoded       string   `json:"encoded"`
	EngineVersion string   `json:"engine_version"`
	IRVersion     string   `json:"ir_version"`
	Seq           int64    `json:"seq"`
}

// NewPlanRecord captures rel for storage. Seq is assigned by SavePlan.
func NewPlanRecord(name, sessionID string, rules []ir.Rule, rel queryir.RelExpr) (PlanRecord, error) {
	canonical, err := ir.MarshalCanonical(queryir.Encode(rel))
	if err != nil {
		return PlanRecord{}, fmt.Errorf("encode plan: %w", err)
	}

	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = string(r)
	}

	return PlanRecord{
		Digest:        ir.PlanDigestBytes(canonical),
		Name:          name,
		SessionID:     sessionID,
		Rules:         names,
		Rendered:      render.Render(rel),
		Encoded:       string(canonical),
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}, nil
}

// marshalRules converts rule names to canonical JSON TEXT for storage.
func marshalRules(rules []string) (string, error) {
	if rules == nil {
		rules = []string{}
	}
	data, err := ir.MarshalCanonical(rules)
	if err != nil {
		return "", fmt.Errorf("marshal rules: %w", err)
	}
	return string(data), nil
}

// unmarshalRules parses rule names stored by marshalRules.
func unmarshalRules(data string) ([]string, error) {
	rules := []string{}
	if data == "" {
		return rules, nil
	}
	if err := json.Unmarshal([]byte(data), &rules); err != nil {
		return nil, fmt.Errorf("unmarshal rules: %w", err)
	}
	return rules, nil
}
