// Package harness runs plan scenarios: small YAML files that build a plan
// from a document or an inline plan and assert on the result.
//
// # Scenario Format
//
//	name: correlated_sum
//	description: "Correlated subquery inside addition decorrelates"
//	document: ../../compiler/testdata/correlated_sum.cue
//	rules: [hoist, decorrelate]
//	assertions:
//	  - type: root_op
//	    op: project
//	  - type: op_count
//	    op: flatmap
//	    count: 0
//	  - type: attributes
//	    cols: [a, b, s]
//	  - type: decorrelated
//	  - type: rule_fired
//	    rule: PullUpMap
//	    count: 2
//
// Instead of document, a scenario may carry an inline plan using the same
// node syntax as plan documents (see compiler.PlanDef).
//
// # Assertion Types
//
//   - root_op: the root operator of the built plan
//   - op_count: how many nodes of an operator the plan holds
//   - attributes: att(root), by column name
//   - decorrelated: no dependent join or subquery remains (value: false negates)
//   - valid: the plan passes queryir.Validate
//   - rule_fired: a rewrite appears in the session trace, optionally N times
//   - error: building fails with a rewrite error carrying the given code
//
// # Deterministic Testing
//
// Every scenario builds in a fresh session with a fixed session id and an
// allocator starting at zero, so renders are identical across runs and can
// be compared against golden files.
package harness
