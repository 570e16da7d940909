// Package engine builds query plans through smart constructors.
//
// Every constructor is a method on Session and applies local rewrites as the
// plan is assembled, so there is no separate optimizer pass:
//
//   - Select merges directly nested filters into one predicate list
//   - Join pushes single-side predicates below itself as Selects
//   - Map hoists scalar subqueries out of assignments (RuleHoist)
//   - FlatMap decorrelates dependent joins into joins, maps and
//     projections when the inner side allows it (RuleDecorrelate)
//   - Project moves below a Map when the surviving assignments only read
//     requested columns
//
// SESSION:
//
// A Session owns the column id allocator, the enabled rules and a trace of
// every rewrite applied. Sessions are independent; build plans in parallel
// by giving each goroutine its own Session.
//
// ERRORS:
//
// Constructors that can fail return *RewriteError. A failed constructor
// produces no plan. Use IsArityError, IsNotImplemented and IsInvariantError
// to classify.
package engine
