package internal

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/gnolang/misra/internal/cast"
	"github.com/gnolang/misra/internal/config"
	tt "github.com/gnolang/misra/internal/types"
)

// Violation is a finding anchored to a node. Two violations are the same
// when rule, node and message match, whatever their severity.
type Violation struct {
	RuleID   string
	Node     cast.NodeID
	Message  string
	Severity tt.Severity
}

type violationKey struct {
	rule    string
	node    cast.NodeID
	message string
}

func (v Violation) key() violationKey {
	return violationKey{v.RuleID, v.Node, v.Message}
}

// NameKind selects the counter used by FreshName.
type NameKind int

const (
	NameVar NameKind = iota
	NameFunc
	NameLabel
	NameTypedef
	NameEnum
	NameStruct
	NameUnion
)

var namePrefixes = [...]string{
	NameVar:     "_misra_var_",
	NameFunc:    "_misra_func_",
	NameLabel:   "_misra_label_",
	NameTypedef: "_misra_typedef_",
	NameEnum:    "_misra_enum_",
	NameStruct:  "_misra_struct_",
	NameUnion:   "_misra_union_",
}

type outcomeKey struct {
	rule string
	node cast.NodeID
}

// Store collects violations for one run of the tool. It also owns the
// generated-name counters and the per-rule outcome cache.
//
// A Store is used from a single goroutine.
type Store struct {
	tree     *cast.Tree
	fix      config.Provider
	errors   []Violation
	warnings []Violation
	seen     map[violationKey]struct{}
	counters [len(namePrefixes)]int
	outcomes map[outcomeKey]Outcome
}

// NewStore creates a store for tree. fix may be nil when no fix
// configuration was given.
func NewStore(tree *cast.Tree, fix config.Provider) *Store {
	return &Store{
		tree:     tree,
		fix:      fix,
		seen:     make(map[violationKey]struct{}),
		outcomes: make(map[outcomeKey]Outcome),
	}
}

func (s *Store) Tree() *cast.Tree { return s.tree }

// Config returns the fix configuration, or nil.
func (s *Store) Config() config.Provider { return s.fix }

// AddError records an unresolved violation. It reports whether the
// violation was new.
func (s *Store) AddError(rule string, node cast.NodeID, msg string) bool {
	return s.add(Violation{RuleID: rule, Node: node, Message: msg, Severity: tt.SeverityError})
}

// AddWarning records a correction that may change program behavior. The
// first severity recorded for a violation wins.
func (s *Store) AddWarning(rule string, node cast.NodeID, msg string) bool {
	return s.add(Violation{RuleID: rule, Node: node, Message: msg, Severity: tt.SeverityWarning})
}

func (s *Store) add(v Violation) bool {
	k := v.key()
	if _, ok := s.seen[k]; ok {
		return false
	}
	s.seen[k] = struct{}{}
	if v.Severity == tt.SeverityWarning {
		s.warnings = append(s.warnings, v)
	} else {
		s.errors = append(s.errors, v)
	}
	return true
}

// Errors returns every error recorded so far, in insertion order.
func (s *Store) Errors() []Violation { return slices.Clone(s.errors) }

func (s *Store) Warnings() []Violation { return slices.Clone(s.warnings) }

// ActiveErrors returns the errors whose node is still part of the tree.
// Errors anchored to removed subtrees are dropped.
func (s *Store) ActiveErrors() []Violation {
	out := make([]Violation, 0, len(s.errors))
	for _, v := range s.errors {
		if s.tree.Attached(v.Node) {
			out = append(out, v)
		}
	}
	return out
}

// FreshName returns a new identifier of the given kind. Names are unique for
// the lifetime of the store.
func (s *Store) FreshName(kind NameKind) string {
	n := s.counters[kind]
	s.counters[kind]++
	return fmt.Sprintf("%s%d", namePrefixes[kind], n)
}

// RecordOutcome remembers what rule decided for node.
func (s *Store) RecordOutcome(rule string, node cast.NodeID, o Outcome) {
	s.outcomes[outcomeKey{rule, node}] = o
}

func (s *Store) Outcome(rule string, node cast.NodeID) (Outcome, bool) {
	o, ok := s.outcomes[outcomeKey{rule, node}]
	return o, ok
}

// Unfixable reports whether rule already gave up on node.
func (s *Store) Unfixable(rule string, node cast.NodeID) bool {
	o, ok := s.Outcome(rule, node)
	return ok && o.Change == ChangeNone
}

// MarkUnfixable records a NoChange verdict so later passes skip node.
func (s *Store) MarkUnfixable(rule string, node cast.NodeID) {
	s.RecordOutcome(rule, node, NoChange())
}

// ResetOutcomes forgets every recorded outcome. Used when the program is
// parsed again from scratch.
func (s *Store) ResetOutcomes() {
	clear(s.outcomes)
}

// ClearViolations drops every recorded error and warning. Name counters and
// outcomes are kept.
func (s *Store) ClearViolations() {
	s.errors, s.warnings = nil, nil
	clear(s.seen)
}

// Reset returns the store to its initial state for a new run.
func (s *Store) Reset() {
	s.ClearViolations()
	s.counters = [len(namePrefixes)]int{}
	s.ResetOutcomes()
}

// Sorted orders violations by file, line and column, keeping insertion
// order for equal locations.
func (s *Store) Sorted(vs []Violation) []Violation {
	out := slices.Clone(vs)
	slices.SortStableFunc(out, func(a, b Violation) int {
		la, lb := s.location(a.Node), s.location(b.Node)
		return cmp.Or(
			cmp.Compare(la.Filename, lb.Filename),
			cmp.Compare(la.Line, lb.Line),
			cmp.Compare(la.Column, lb.Column),
		)
	})
	return out
}

func (s *Store) location(id cast.NodeID) tt.Position {
	pos := tt.Position{}
	if file := s.tree.EnclosingFile(id); file.IsValid() {
		pos.Filename = s.tree.Text(file)
	}
	span := s.tree.Location(id)
	pos.Line, pos.Column = span.Line, span.Column
	return pos
}

// Issue renders v for reports.
func (s *Store) Issue(v Violation) tt.Issue {
	start := s.location(v.Node)
	span := s.tree.Location(v.Node)
	end := tt.Position{Filename: start.Filename, Line: span.EndLine, Column: span.EndColumn}
	return tt.Issue{
		Rule:     v.RuleID,
		Category: category(v.RuleID),
		Filename: start.Filename,
		Message:  v.Message,
		Start:    start,
		End:      end,
		Severity: v.Severity,
	}
}

// Issues renders vs in location order.
func (s *Store) Issues(vs []Violation) []tt.Issue {
	sorted := s.Sorted(vs)
	out := make([]tt.Issue, len(sorted))
	for i, v := range sorted {
		out[i] = s.Issue(v)
	}
	return out
}

// category maps a rule id such as "16.4" to its guideline section.
func category(rule string) string {
	for i := 0; i < len(rule); i++ {
		if rule[i] == '.' {
			return "section " + rule[:i]
		}
	}
	return ""
}
