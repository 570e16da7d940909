// Package ir provides the foundational identifier and encoding types for
// unnest.
//
// This package contains leaf types only. Every other internal package
// imports ir; ir imports nothing internal. This keeps ir the bottom layer
// with no circular dependencies.
//
// Contents:
//   - ColumnID and ColSet: session-unique column identifiers and ordered
//     sets of them
//   - Rule and RuleSet: named, independently toggleable rewrite rules
//   - MarshalCanonical and PlanDigest: deterministic encoding and
//     content-addressed identity for finished plans
package ir
