// Package internal holds the rule engine of the MISRA C checker.
//
// A run starts from a program tree (see package cast) built from one or
// more translation units. Rules implement the Rule interface: Match reports
// a violation without touching the tree, Apply rewrites the offending node
// and tells the driver what changed through an Outcome.
//
// Key components:
//
// Store: collects errors and warnings, de-duplicated per rule, node and
// message. It also hands out fresh identifiers and remembers per-rule
// verdicts so that an unfixable node is not retried on every pass.
//
// Engine: CheckCompliance visits every node once and reports. ApplyCorrections
// walks the tree in pre-order, offering each node to the rules in priority
// order, and repeats whole passes until one of them changes nothing.
//
// Sandbox: runs a mutation on a disposable copy of a unit and asks an Oracle
// whether the result still builds. Only accepted mutations reach the live
// tree.
//
// Usage:
//
//	sess := internal.NewSession(tree, oracle, fixConfig, internal.WithLogger(logger))
//	rules := internal.BuildRules(sess, lints.Catalogue, configured, nil)
//	engine := internal.NewEngine(sess, rules, internal.WithMaxPasses(100))
//	summary, err := engine.ApplyCorrections(ctx, tree.Root())
package internal
