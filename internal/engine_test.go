package internal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/misra/internal/cast"
	"github.com/gnolang/misra/internal/config"
)

// program builds `void f(void) { <stmts> }` inside main.c.
func program(t *cast.Tree, stmts ...cast.NodeID) (root, body cast.NodeID) {
	b := cast.NewBuilder(t)
	body = b.Compound(stmts...)
	fn := b.Function("void", "f", nil, body)
	root = b.Program(b.File("main.c", fn))
	t.SetRoot(root)
	return root, body
}

func callStmt(b cast.Builder, name string) cast.NodeID {
	return b.ExprStmt(b.Call(name))
}

func callNames(t *cast.Tree, body cast.NodeID) []string {
	var out []string
	for _, c := range t.Find(body, cast.Call) {
		out = append(out, t.CallName(c))
	}
	return out
}

// renameRule renames calls to from into calls to to by replacing the
// expression statement.
type renameRule struct {
	id       string
	priority int
	sess     *Session
	from, to string
	log      *[]string
}

func (r *renameRule) ID() string { return r.id }
func (r *renameRule) Priority() int { return r.priority }
func (r *renameRule) Scope() Scope { return SingleUnit }
func (r *renameRule) match(n cast.NodeID) bool {
	t := r.sess.Tree
	return t.Kind(n) == cast.ExprStmt && t.CallName(t.ChildAt(n, 0)) == r.from
}

func (r *renameRule) Match(n cast.NodeID, logViolations bool) bool {
	if !r.match(n) {
		return false
	}
	if logViolations {
		r.sess.Store.AddError(r.id, n, "call to "+r.from)
	}
	return true
}

func (r *renameRule) Apply(_ context.Context, n cast.NodeID) Outcome {
	if !r.Match(n, false) {
		return NoChange()
	}
	if r.log != nil {
		*r.log = append(*r.log, r.id+":"+r.sess.Tree.CallName(r.sess.Tree.ChildAt(n, 0)))
	}
	return Replaced(callStmt(r.sess.Builder(), r.to))
}

// removeRule detaches statements calling name.
type removeRule struct {
	sess *Session
	name string
}

func (r *removeRule) ID() string { return "remove" }
func (r *removeRule) Priority() int { return 5 }
func (r *removeRule) Scope() Scope { return SingleUnit }
func (r *removeRule) Match(n cast.NodeID, _ bool) bool {
	t := r.sess.Tree
	return t.Kind(n) == cast.ExprStmt && t.CallName(t.ChildAt(n, 0)) == r.name
}

func (r *removeRule) Apply(_ context.Context, n cast.NodeID) Outcome {
	if !r.Match(n, false) {
		return NoChange()
	}
	r.sess.Tree.Detach(n)
	return Removed()
}

// visitRule records every node kind it is offered and never changes anything.
type visitRule struct {
	visited []cast.NodeID
}

func (r *visitRule) ID() string { return "visit" }
func (r *visitRule) Priority() int { return 100 }
func (r *visitRule) Scope() Scope { return SingleUnit }
func (r *visitRule) Match(cast.NodeID, bool) bool { return false }
func (r *visitRule) Apply(_ context.Context, n cast.NodeID) Outcome {
	r.visited = append(r.visited, n)
	return NoChange()
}

func TestRuleSetOrdering(t *testing.T) {
	t.Parallel()

	a := &renameRule{id: "a", priority: 2}
	b := &renameRule{id: "b", priority: 1}
	c := &renameRule{id: "c", priority: 2}
	rs := NewRuleSet(a, b, c)
	assert.Equal(t, []string{"b", "a", "c"}, rs.IDs())
	assert.Same(t, c, rs.Find("c"))
	assert.Nil(t, rs.Find("zz"))
}

func TestReplacedIsWalkedInSamePass(t *testing.T) {
	t.Parallel()

	tree := cast.NewTree()
	b := cast.NewBuilder(tree)
	root, body := program(tree, callStmt(b, "a"), callStmt(b, "x"))
	sess := NewSession(tree, nil, nil)

	// b runs after a on the replacement within the first pass.
	rules := NewRuleSet(
		&renameRule{id: "1", priority: 1, sess: sess, from: "a", to: "b"},
		&renameRule{id: "2", priority: 2, sess: sess, from: "b", to: "c"},
	)
	sum, err := NewEngine(sess, rules).ApplyCorrections(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"c", "x"}, callNames(tree, body))
	assert.Equal(t, 2, sum.Rewrites)
	assert.Equal(t, 2, sum.Passes, "one changing pass and one confirming pass")
	assert.Equal(t, 1, sum.ErrorsBefore)
	assert.Zero(t, sum.ErrorsAfter)
}

func TestPriorityRespected(t *testing.T) {
	t.Parallel()

	tree := cast.NewTree()
	b := cast.NewBuilder(tree)
	root, body := program(tree, callStmt(b, "a"))
	sess := NewSession(tree, nil, nil)

	var log []string
	low := &renameRule{id: "low", priority: 1, sess: sess, from: "a", to: "z", log: &log}
	high := &renameRule{id: "high", priority: 2, sess: sess, from: "a", to: "y", log: &log}

	_, err := NewEngine(sess, NewRuleSet(high, low)).ApplyCorrections(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"low:a"}, log)
	assert.Equal(t, []string{"z"}, callNames(tree, body))
}

func TestRemovedResumesAtSibling(t *testing.T) {
	t.Parallel()

	tree := cast.NewTree()
	b := cast.NewBuilder(tree)
	keep := callStmt(b, "keep")
	root, body := program(tree, callStmt(b, "drop"), keep, callStmt(b, "drop"))
	sess := NewSession(tree, nil, nil)

	visits := &visitRule{}
	rules := NewRuleSet(&removeRule{sess: sess, name: "drop"}, visits)
	sum, err := NewEngine(sess, rules).ApplyCorrections(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"keep"}, callNames(tree, body))
	assert.Equal(t, 2, sum.Rewrites)
	assert.Contains(t, visits.visited, keep)
}

func TestIdempotentCorrection(t *testing.T) {
	t.Parallel()

	tree := cast.NewTree()
	b := cast.NewBuilder(tree)
	root, _ := program(tree, callStmt(b, "a"), callStmt(b, "a"))
	sess := NewSession(tree, nil, nil)
	engine := NewEngine(sess, NewRuleSet(&renameRule{id: "r", priority: 1, sess: sess, from: "a", to: "b"}))

	first, err := engine.ApplyCorrections(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Rewrites)
	printed := cast.Print(tree, root)

	second, err := engine.ApplyCorrections(context.Background(), root)
	require.NoError(t, err)
	assert.Zero(t, second.Rewrites)
	assert.Equal(t, 1, second.Passes)
	assert.Zero(t, second.ErrorsBefore)
	assert.Equal(t, first.ErrorsAfter, second.ErrorsAfter)
	assert.Equal(t, printed, cast.Print(tree, root))
}

func TestNotConverged(t *testing.T) {
	t.Parallel()

	tree := cast.NewTree()
	b := cast.NewBuilder(tree)
	root, _ := program(tree, callStmt(b, "ping"))
	sess := NewSession(tree, nil, nil)

	// each rule undoes the other one, but only on the next pass
	rules := NewRuleSet(
		&renameRule{id: "ping", priority: 1, sess: sess, from: "ping", to: "pong"},
		&oneShotRename{renameRule{id: "pong", priority: 2, sess: sess, from: "pong", to: "ping"}, map[cast.NodeID]bool{}},
	)
	sum, err := NewEngine(sess, rules, WithMaxPasses(4)).ApplyCorrections(context.Background(), root)
	require.ErrorIs(t, err, ErrNotConverged)
	assert.Equal(t, 4, sum.Passes)

	found := false
	for _, v := range sess.Store.Errors() {
		if v.RuleID == NotConvergedRule {
			found = true
			assert.Contains(t, v.Message, "did not converge after 4 passes")
		}
	}
	assert.True(t, found)
}

// oneShotRename defers its rewrite of a node to the next visit, which forces
// the ping/pong pair to oscillate across passes instead of within one.
type oneShotRename struct {
	renameRule
	seen map[cast.NodeID]bool
}

func (r *oneShotRename) Apply(ctx context.Context, n cast.NodeID) Outcome {
	if !r.Match(n, false) {
		return NoChange()
	}
	if !r.seen[n] {
		r.seen[n] = true
		return NoChange()
	}
	return r.renameRule.Apply(ctx, n)
}

func TestCancelledContext(t *testing.T) {
	t.Parallel()

	tree := cast.NewTree()
	b := cast.NewBuilder(tree)
	root, _ := program(tree, callStmt(b, "a"))
	sess := NewSession(tree, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEngine(sess, NewRuleSet(&visitRule{})).ApplyCorrections(ctx, root)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCheckComplianceIsReadOnly(t *testing.T) {
	t.Parallel()

	tree := cast.NewTree()
	b := cast.NewBuilder(tree)
	root, _ := program(tree, callStmt(b, "a"), callStmt(b, "a"))
	before := cast.Print(tree, root)
	sess := NewSession(tree, nil, nil)

	report := NewEngine(sess, NewRuleSet(&renameRule{id: "r", sess: sess, from: "a", to: "b"})).CheckCompliance(root)
	assert.Len(t, report.Errors, 2)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, before, cast.Print(tree, root))
}

// mockProvider counts configuration lookups.
type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) DefaultValue(typ string) (string, error) {
	args := m.Called(typ)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) Replacement(lib, fn string) (config.Replacement, error) {
	args := m.Called(lib, fn)
	return args.Get(0).(config.Replacement), args.Error(1)
}

func (m *mockProvider) ImplicitCall(fn string) (string, error) {
	args := m.Called(fn)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) Resolve(location string) string { return location }

// configRule wants a default value for every call statement and gives up
// when the configuration has none.
type configRule struct {
	sess *Session
}

func (r *configRule) ID() string { return "cfg" }
func (r *configRule) Priority() int { return 1 }
func (r *configRule) Scope() Scope { return SingleUnit }
func (r *configRule) Match(n cast.NodeID, _ bool) bool {
	return r.sess.Tree.Kind(n) == cast.ExprStmt
}

func (r *configRule) Apply(_ context.Context, n cast.NodeID) Outcome {
	if !r.Match(n, false) || r.sess.Store.Unfixable(r.ID(), n) {
		return NoChange()
	}
	if _, err := r.sess.Store.Config().DefaultValue("int"); err != nil {
		r.sess.Store.AddError(r.ID(), n, "no default value: "+err.Error())
		r.sess.Store.MarkUnfixable(r.ID(), n)
		return NoChange()
	}
	return DescendantChanged()
}

func TestUnfixableMemoized(t *testing.T) {
	t.Parallel()

	tree := cast.NewTree()
	b := cast.NewBuilder(tree)
	stmt := callStmt(b, "a")
	root, _ := program(tree, stmt)

	provider := &mockProvider{}
	provider.On("DefaultValue", "int").Return("", config.ErrMissingKey)
	sess := NewSession(tree, nil, provider)
	rule := &configRule{sess: sess}

	assert.Equal(t, NoChange(), rule.Apply(context.Background(), stmt))
	assert.Equal(t, NoChange(), rule.Apply(context.Background(), stmt))
	provider.AssertNumberOfCalls(t, "DefaultValue", 1)

	sum, err := NewEngine(sess, NewRuleSet(rule)).ApplyCorrections(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Passes)
	provider.AssertNumberOfCalls(t, "DefaultValue", 1)
}

func TestFirstPerNode(t *testing.T) {
	t.Parallel()

	vs := []Violation{
		{RuleID: "a", Node: 1, Message: "specific"},
		{RuleID: "a", Node: 1, Message: "generic"},
		{RuleID: "b", Node: 1, Message: "generic"},
	}
	got := firstPerNode(vs)
	require.Len(t, got, 2)
	assert.Equal(t, "specific", got[0].Message)
	assert.Equal(t, "b", got[1].RuleID)
}
