package minilogic

import (
	"fmt"
	"slices"
)

// MiniLogic is the main entry point for the verification framework.
// It provides a high-level API for verifying branch rewrites.
type MiniLogic struct {
	verifier *Verifier
}

// New creates a new MiniLogic instance for straight-line code.
func New() *MiniLogic {
	return &MiniLogic{verifier: NewVerifier()}
}

// NewForLoopContext creates a MiniLogic instance for verifying
// rewrites inside loop bodies, where break and continue may escape.
func NewForLoopContext() *MiniLogic {
	v := NewVerifier()
	v.InLoopContext = true
	return &MiniLogic{verifier: v}
}

// Verify checks if two statements are equivalent from an empty environment.
func (m *MiniLogic) Verify(original, transformed Stmt) VerificationReport {
	return m.verifier.CheckEquivalenceWithEnv(original, transformed, NewEnv())
}

// VerifyWithEnv checks equivalence given an initial environment.
func (m *MiniLogic) VerifyWithEnv(original, transformed Stmt, env *Env) VerificationReport {
	return m.verifier.CheckEquivalenceWithEnv(original, transformed, env)
}

// VerifySwitchRewrite checks that rewritten behaves like the switch original
// for every value of tag that can select a different entry point.
func (m *MiniLogic) VerifySwitchRewrite(original SwitchStmt, rewritten Stmt, tag string) VerificationReport {
	return m.verifier.CheckOverValues(original, rewritten, tag, SampleValues(original))
}

// Evaluate runs a statement from env.
func (m *MiniLogic) Evaluate(stmt Stmt, env *Env) Result {
	return m.verifier.evaluator.EvalStmt(stmt, env)
}

// SampleValues returns the tag values worth trying against s: both bounds
// of every label and their outer neighbours, which reach the default.
func SampleValues(s SwitchStmt) []int64 {
	var out []int64
	for _, st := range s.Body {
		label, ok := st.(LabelStmt)
		if !ok || label.Default {
			continue
		}
		out = append(out, label.Lo-1, label.Lo, label.Hi, label.Hi+1)
	}
	if len(out) == 0 {
		out = append(out, 0)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// IsEquivalent is a convenience function that returns true if the
// statements are proven equivalent.
func IsEquivalent(original, transformed Stmt) bool {
	return New().Verify(original, transformed).Result == Equivalent
}

// FormatReport renders a verification report for logs.
func FormatReport(r VerificationReport) string {
	if r.Detail == "" {
		return fmt.Sprintf("%s (%s)", r.Result, r.Reason)
	}
	return fmt.Sprintf("%s (%s): %s", r.Result, r.Reason, r.Detail)
}
