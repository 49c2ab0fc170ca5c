package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/misra/internal/cast"
	tt "github.com/gnolang/misra/internal/types"
)

func TestStoreDeduplicates(t *testing.T) {
	t.Parallel()

	tree := cast.NewTree()
	b := cast.NewBuilder(tree)
	stmt := b.Break()
	_, _ = program(tree, stmt)
	s := NewStore(tree, nil)

	assert.True(t, s.AddError("16.3", stmt, "missing break"))
	assert.False(t, s.AddError("16.3", stmt, "missing break"))
	assert.True(t, s.AddError("16.3", stmt, "other message"))
	assert.False(t, s.AddWarning("16.3", stmt, "missing break"), "first severity wins")
	assert.True(t, s.AddWarning("16.3", stmt, "copied statements"))
	assert.False(t, s.AddError("16.3", stmt, "copied statements"))

	assert.Len(t, s.Errors(), 2)
	require.Len(t, s.Warnings(), 1)
	assert.Equal(t, "copied statements", s.Warnings()[0].Message)
}

func TestStoreActiveErrors(t *testing.T) {
	t.Parallel()

	tree := cast.NewTree()
	b := cast.NewBuilder(tree)
	gone, kept := b.Break(), b.Empty()
	_, _ = program(tree, gone, kept)
	s := NewStore(tree, nil)

	s.AddError("2.6", gone, "a")
	s.AddError("2.6", kept, "b")
	tree.Detach(gone)

	active := s.ActiveErrors()
	require.Len(t, active, 1)
	assert.Equal(t, kept, active[0].Node)
	assert.Len(t, s.Errors(), 2)
}

func TestStoreFreshName(t *testing.T) {
	t.Parallel()

	s := NewStore(cast.NewTree(), nil)
	assert.Equal(t, "_misra_var_0", s.FreshName(NameVar))
	assert.Equal(t, "_misra_var_1", s.FreshName(NameVar))
	assert.Equal(t, "_misra_label_0", s.FreshName(NameLabel))

	s.ClearViolations()
	assert.Equal(t, "_misra_var_2", s.FreshName(NameVar), "counters survive clearing")

	s.Reset()
	assert.Equal(t, "_misra_var_0", s.FreshName(NameVar))
}

func TestStoreOutcomes(t *testing.T) {
	t.Parallel()

	s := NewStore(cast.NewTree(), nil)
	assert.False(t, s.Unfixable("21.3", 4))

	s.MarkUnfixable("21.3", 4)
	assert.True(t, s.Unfixable("21.3", 4))
	assert.False(t, s.Unfixable("21.3", 5))
	assert.False(t, s.Unfixable("17.3", 4))

	s.RecordOutcome("17.3", 4, DescendantChanged())
	assert.False(t, s.Unfixable("17.3", 4))

	s.ClearViolations()
	assert.True(t, s.Unfixable("21.3", 4))
	s.ResetOutcomes()
	assert.False(t, s.Unfixable("21.3", 4))
}

func TestStoreIssues(t *testing.T) {
	t.Parallel()

	tree := cast.NewTree()
	b := cast.NewBuilder(tree)
	first, second := b.Break(), b.Empty()
	_, _ = program(tree, first, second)
	tree.Node(first).Span = cast.Span{Line: 3, Column: 5, EndLine: 3, EndColumn: 11}
	tree.Node(second).Span = cast.Span{Line: 2, Column: 1, EndLine: 2, EndColumn: 2}

	s := NewStore(tree, nil)
	s.AddError("16.3", first, "first")
	s.AddWarning("2.6", second, "second")

	issues := s.Issues(append(s.Errors(), s.Warnings()...))
	require.Len(t, issues, 2)

	assert.Equal(t, "2.6", issues[0].Rule)
	assert.Equal(t, "section 2", issues[0].Category)
	assert.Equal(t, tt.SeverityWarning, issues[0].Severity)

	assert.Equal(t, "main.c", issues[1].Filename)
	assert.Equal(t, 3, issues[1].Start.Line)
	assert.Equal(t, 11, issues[1].End.Column)
	assert.Equal(t, tt.SeverityError, issues[1].Severity)
}

func TestOutcome(t *testing.T) {
	t.Parallel()

	assert.False(t, NoChange().Changed())
	assert.True(t, Removed().Changed())
	assert.Equal(t, "DescendantChanged", DescendantChanged().String())
	assert.Equal(t, "Replaced(7)", Replaced(7).String())
	assert.Panics(t, func() { Replaced(cast.NoNode) })
}

func TestFactsRoot(t *testing.T) {
	t.Parallel()

	tree := cast.NewTree()
	b := cast.NewBuilder(tree)
	stmt := b.Break()
	root, _ := program(tree, stmt)
	file := tree.EnclosingFile(stmt)

	assert.Equal(t, file, FactsRoot(tree, SingleUnit, stmt))
	assert.Equal(t, root, FactsRoot(tree, WholeProgram, stmt))
	assert.Equal(t, root, FactsRoot(tree, SingleUnit, root))
}

func TestBuildRules(t *testing.T) {
	t.Parallel()

	sess := NewSession(cast.NewTree(), nil, nil)
	catalogue := []RuleConstructor{
		func(s *Session) Rule { return &renameRule{id: "16.4", priority: 3, sess: s} },
		func(s *Session) Rule { return &renameRule{id: "16.6", priority: 1, sess: s} },
		func(s *Session) Rule { return &renameRule{id: "2.6", priority: 2, sess: s} },
		func(s *Session) Rule { return &renameRule{id: "17.7", priority: 2, sess: s} },
	}
	configured := map[string]tt.ConfigRule{
		"16.4": {Severity: tt.SeverityWarning},
		"2.6":  {Severity: tt.SeverityOff},
	}
	rules := BuildRules(sess, catalogue, configured, map[string]bool{"17.7": true})
	assert.Equal(t, []string{"16.6", "16.4"}, rules.IDs())
}

type c90Rule struct{ renameRule }

func (c90Rule) AppliesTo(std string) bool { return std == "c90" }

func TestRuleSetForStandard(t *testing.T) {
	t.Parallel()

	rules := NewRuleSet(&renameRule{id: "16.4"}, &c90Rule{renameRule{id: "21.8"}})
	assert.Equal(t, []string{"16.4", "21.8"}, rules.ForStandard("").IDs())
	assert.Equal(t, []string{"16.4", "21.8"}, rules.ForStandard("c90").IDs())
	assert.Equal(t, []string{"16.4"}, rules.ForStandard("c11").IDs())
}
