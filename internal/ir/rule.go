package ir

import (
	"fmt"
	"slices"
	"strings"
)

// Rule names a rewrite that plan constructors apply only when enabled.
type Rule string

const (
	// RuleHoist replaces scalar subqueries inside map assignments with a
	// dependent join plus a computed column.
	RuleHoist Rule = "hoist"

	// RuleDecorrelate rewrites dependent joins into ordinary joins, maps and
	// projections when the inner side allows it.
	RuleDecorrelate Rule = "decorrelate"
)

// KnownRules lists every rule in declaration order.
var KnownRules = []Rule{RuleHoist, RuleDecorrelate}

// ParseRule converts a rule name (case-insensitive) to a Rule.
func ParseRule(name string) (Rule, error) {
	r := Rule(strings.ToLower(strings.TrimSpace(name)))
	if !slices.Contains(KnownRules, r) {
		return "", fmt.Errorf("unknown rule %q: must be one of %v", name, KnownRules)
	}
	return r, nil
}

// ParseRules converts a list of rule names, failing on the first unknown one.
func ParseRules(names []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(names))
	for _, name := range names {
		r, err := ParseRule(name)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// RuleSet is the mutable set of enabled rules for one session.
// The zero value has every rule disabled. Not safe for concurrent use.
type RuleSet struct {
	enabled map[Rule]bool
}

// NewRuleSet returns a rule set with the given rules enabled.
func NewRuleSet(rules ...Rule) *RuleSet {
	rs := &RuleSet{}
	for _, r := range rules {
		rs.Enable(r)
	}
	return rs
}

// Enable turns a rule on. Idempotent.
func (rs *RuleSet) Enable(r Rule) {
	if rs.enabled == nil {
		rs.enabled = make(map[Rule]bool)
	}
	rs.enabled[r] = true
}

// Disable turns a rule off. Idempotent.
func (rs *RuleSet) Disable(r Rule) {
	delete(rs.enabled, r)
}

// IsEnabled reports whether r is on.
func (rs *RuleSet) IsEnabled(r Rule) bool {
	return rs.enabled[r]
}

// Rules returns the enabled rules sorted by name.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, 0, len(rs.enabled))
	for r := range rs.enabled {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}

// Names returns the enabled rule names sorted.
func (rs *RuleSet) Names() []string {
	rules := rs.Rules()
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = string(r)
	}
	return names
}
