package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/unnest/internal/compiler"
	"github.com/roach88/unnest/internal/engine"
	"github.com/roach88/unnest/internal/ir"
	"github.com/roach88/unnest/internal/queryir"
)

// Scenario defines one plan-building test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Document is a path to a plan document (.cue, .yaml, .yml).
	// Relative paths resolve against the scenario file's directory.
	Document string `yaml:"document,omitempty"`

	// Plan is an inline plan, used when Document is empty.
	Plan *compiler.PlanDef `yaml:"plan,omitempty"`

	// Rules overrides the rule configuration. When absent, the document's
	// rules apply; an inline plan then builds with no rules.
	Rules []string `yaml:"rules,omitempty"`

	// SessionID fixes the session id. Defaults to "test-session-default".
	SessionID string `yaml:"session_id,omitempty"`

	// Assertions are evaluated against the built plan and trace.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one property of a scenario result.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Op is an operator name (root_op, op_count).
	Op string `yaml:"op,omitempty"`

	// Count is an exact occurrence count (op_count, optional for rule_fired).
	Count *int `yaml:"count,omitempty"`

	// Cols are column names (attributes). Rewrite-allocated ids are named
	// "@N".
	Cols []string `yaml:"cols,omitempty"`

	// Value negates decorrelated and valid when false.
	Value *bool `yaml:"value,omitempty"`

	// Rule is a rewrite name from the session trace (rule_fired).
	Rule string `yaml:"rule,omitempty"`

	// Code is a rewrite error code (error).
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertRootOp       = "root_op"
	AssertOpCount      = "op_count"
	AssertAttributes   = "attributes"
	AssertDecorrelated = "decorrelated"
	AssertValid        = "valid"
	AssertRuleFired    = "rule_fired"
	AssertError        = "error"
)

var knownOps = map[string]bool{
	queryir.OpNameScan:    true,
	queryir.OpNameSelect:  true,
	queryir.OpNameJoin:    true,
	queryir.OpNameProject: true,
	queryir.OpNameMap:     true,
	queryir.OpNameFlatMap: true,
}

var knownCodes = map[string]bool{
	string(engine.ErrCodeArityViolation):     true,
	string(engine.ErrCodeNotImplemented):     true,
	string(engine.ErrCodeInvariantViolation): true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Document != "" && !filepath.IsAbs(scenario.Document) {
		scenario.Document = filepath.Join(filepath.Dir(path), scenario.Document)
	}
	if scenario.Document != "" {
		if _, err := os.Stat(scenario.Document); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: document not found: %s", scenario.Document)
		}
	}

	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML. Document paths are
// left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Document == "" && s.Plan == nil:
		return fmt.Errorf("one of document or plan is required")
	case s.Document != "" && s.Plan != nil:
		return fmt.Errorf("document and plan are mutually exclusive")
	}

	if _, err := ir.ParseRules(s.Rules); err != nil {
		return fmt.Errorf("rules: %w", err)
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRootOp:
		if !knownOps[a.Op] {
			return fmt.Errorf("assertions[%d]: unknown operator %q for root_op", index, a.Op)
		}
	case AssertOpCount:
		if !knownOps[a.Op] {
			return fmt.Errorf("assertions[%d]: unknown operator %q for op_count", index, a.Op)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for op_count", index)
		}
	case AssertAttributes:
		if a.Cols == nil {
			return fmt.Errorf("assertions[%d]: cols is required for attributes", index)
		}
	case AssertDecorrelated, AssertValid:
	case AssertRuleFired:
		if a.Rule == "" {
			return fmt.Errorf("assertions[%d]: rule is required for rule_fired", index)
		}
		if a.Count != nil && *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for rule_fired", index)
		}
	case AssertError:
		if !knownCodes[a.Code] {
			return fmt.Errorf("assertions[%d]: unknown error code %q", index, a.Code)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
