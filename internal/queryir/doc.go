// Package queryir provides the plan intermediate representation (IR) for
// unnest: scalar expressions (Expr) and relational operators (RelExpr).
//
// ARCHITECTURE:
//
// The IR is a strictly owned tree. Nodes are created once and never mutated
// in place; a rewrite builds a new tree that may reuse (move) old subtrees
// but never aliases and mutates them. No node has two parents.
//
//	[driver] → [engine constructors] → [queryir tree] → [render | querysql]
//
// This package only defines node types and pure structural queries over
// them. All rewriting lives in package engine, whose constructors are the
// only intended way to assemble plans.
//
// SEALED INTERFACES:
//
// Expr and RelExpr are sealed interfaces using the marker method pattern.
// Only pointer types in this package implement them, enabling exhaustive
// type switches:
//
//	switch rel := plan.(type) {
//	case *Scan:
//	case *Select:
//	case *Join:
//	case *Project:
//	case *Map:
//	case *FlatMap:
//	}
//
// ANALYSIS:
//
// Attributes(rel) is the set of columns a node outputs. FreeCols(rel) is the
// set of columns referenced inside a node (including nested subqueries and
// dependent-join scopes) that its own children do not supply. An empty free
// set characterizes an uncorrelated subtree. Both are computed fresh on
// every call.
package queryir
