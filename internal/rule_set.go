package internal

import (
	"context"
	"sort"

	"github.com/gnolang/misra/internal/cast"
	tt "github.com/gnolang/misra/internal/types"
)

// Scope declares which root a rule derives its facts from.
type Scope int

const (
	// SingleUnit rules only look at the translation unit enclosing the node.
	SingleUnit Scope = iota
	// WholeProgram rules read facts across every unit.
	WholeProgram
)

func (s Scope) String() string {
	if s == WholeProgram {
		return "program"
	}
	return "unit"
}

// Rule is one unit of checking and correction.
type Rule interface {
	// ID returns the guideline number, e.g. "16.4".
	ID() string

	// Priority orders rules; lower runs first.
	Priority() int

	Scope() Scope

	// Match reports whether n violates the rule. It never mutates the tree.
	// With logViolations set it also records violations in the store, but the
	// result is the same either way.
	Match(n cast.NodeID, logViolations bool) bool

	// Apply rewrites n. It checks Match itself and returns NoChange when n
	// does not violate the rule.
	Apply(ctx context.Context, n cast.NodeID) Outcome
}

// RuleConstructor builds a rule bound to a session.
type RuleConstructor func(s *Session) Rule

// RuleSet is a priority-ordered list of rules.
type RuleSet []Rule

// NewRuleSet sorts rules by priority. Rules with equal priority keep the
// order they were given in.
func NewRuleSet(rules ...Rule) RuleSet {
	rs := RuleSet(append([]Rule(nil), rules...))
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].Priority() < rs[j].Priority()
	})
	return rs
}

// Find returns the rule with the given id, or nil.
func (rs RuleSet) Find(id string) Rule {
	for _, r := range rs {
		if r.ID() == id {
			return r
		}
	}
	return nil
}

// IDs lists rule ids in execution order.
func (rs RuleSet) IDs() []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID()
	}
	return out
}

// BuildRules instantiates every constructor of catalogue for s, in
// catalogue order, skipping rules whose configured severity is off and
// rules listed in ignored.
func BuildRules(
	s *Session,
	catalogue []RuleConstructor,
	configured map[string]tt.ConfigRule,
	ignored map[string]bool,
) RuleSet {
	rules := make([]Rule, 0, len(catalogue))
	for _, newRule := range catalogue {
		r := newRule(s)
		if ignored[r.ID()] {
			continue
		}
		if c, ok := configured[r.ID()]; ok && c.Severity == tt.SeverityOff {
			continue
		}
		rules = append(rules, r)
	}
	return NewRuleSet(rules...)
}

// FactsRoot returns the node a rule of the given scope derives its facts
// from when looking at n: the enclosing file for unit rules, the program
// root otherwise.
func FactsRoot(t *cast.Tree, scope Scope, n cast.NodeID) cast.NodeID {
	if scope == SingleUnit {
		if f := t.EnclosingFile(n); f.IsValid() {
			return f
		}
	}
	return t.Root()
}

// Versioned is implemented by rules that only exist in some editions of the
// C standard.
type Versioned interface {
	AppliesTo(std string) bool
}

// ForStandard drops the rules that do not apply to std. An empty std keeps
// every rule.
func (rs RuleSet) ForStandard(std string) RuleSet {
	if std == "" {
		return rs
	}
	out := make(RuleSet, 0, len(rs))
	for _, r := range rs {
		if v, ok := r.(Versioned); ok && !v.AppliesTo(std) {
			continue
		}
		out = append(out, r)
	}
	return out
}
