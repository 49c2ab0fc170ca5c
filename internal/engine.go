package internal

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gnolang/misra/internal/cast"
)

// ErrNotConverged is returned by ApplyCorrections when the pass limit is
// reached while rules keep changing the tree.
var ErrNotConverged = errors.New("corrections did not converge")

// NotConvergedRule is the rule id used for the non-convergence diagnostic.
const NotConvergedRule = "engine"

// Engine runs a rule set over a program tree.
type Engine struct {
	sess      *Session
	rules     RuleSet
	maxPasses int
	logger    *zap.Logger
}

type EngineOption func(*Engine)

// WithMaxPasses bounds the number of correction passes. Zero means no limit.
func WithMaxPasses(n int) EngineOption {
	return func(e *Engine) { e.maxPasses = max(n, 0) }
}

// NewEngine creates a driver for rules over the session tree.
func NewEngine(sess *Session, rules RuleSet, opts ...EngineOption) *Engine {
	e := &Engine{
		sess:   sess,
		rules:  rules,
		logger: sess.Logger.Named("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Rules() RuleSet { return e.rules }

func (e *Engine) Session() *Session { return e.sess }

// Report is the result of a compliance check.
type Report struct {
	Errors   []Violation
	Warnings []Violation
}

// Summary is the result of ApplyCorrections.
type Summary struct {
	ErrorsBefore   int
	WarningsBefore int
	ErrorsAfter    int
	WarningsAfter  int
	Passes         int
	Rewrites       int
	// Errors are the violations left in the tree, Warnings the corrections
	// that may change behavior. Both are in location order.
	Errors   []Violation
	Warnings []Violation
}

// CheckCompliance asks every rule about every node below root once and
// reports what the store collected. The tree is not modified.
func (e *Engine) CheckCompliance(root cast.NodeID) Report {
	e.scan(root)
	store := e.sess.Store
	report := Report{
		Errors:   store.Sorted(store.Errors()),
		Warnings: store.Sorted(store.Warnings()),
	}
	e.sess.Metrics.observeViolations(len(report.Errors), len(report.Warnings))
	return report
}

func (e *Engine) scan(root cast.NodeID) {
	e.sess.Tree.Walk(root, func(n cast.NodeID) bool {
		for _, r := range e.rules {
			r.Match(n, true)
		}
		return true
	})
}

// ApplyCorrections rewrites the tree below root until a full pass changes
// nothing. Violations found before the first pass are counted and then
// cleared; the store afterwards holds what the rules could not fix and the
// warnings of the fixes they made.
//
// With a pass limit, the pass that confirms the fixed point counts towards
// the limit.
func (e *Engine) ApplyCorrections(ctx context.Context, root cast.NodeID) (Summary, error) {
	store := e.sess.Store
	var sum Summary

	e.scan(root)
	sum.ErrorsBefore = len(store.ActiveErrors())
	sum.WarningsBefore = len(store.Warnings())
	store.ClearViolations()

	var runErr error
	for root.IsValid() {
		if e.maxPasses > 0 && sum.Passes >= e.maxPasses {
			runErr = ErrNotConverged
			break
		}
		sum.Passes++
		w := &walker{engine: e, ctx: ctx}
		root = w.visit(root)

		e.sess.Metrics.observePass(w.rewrites)
		e.logger.Info("pass finished",
			zap.Int("pass", sum.Passes),
			zap.Bool("changed", w.rewrites > 0),
			zap.Int("rewrites", w.rewrites))
		sum.Rewrites += w.rewrites

		if w.err != nil {
			runErr = w.err
			break
		}
		if w.rewrites == 0 {
			break
		}
	}

	if errors.Is(runErr, ErrNotConverged) {
		store.AddError(NotConvergedRule, e.sess.Tree.Root(),
			fmt.Sprintf("Corrections did not converge after %d passes.", e.maxPasses))
	}
	if root.IsValid() {
		e.scan(root)
	}
	sum.Errors = store.Sorted(firstPerNode(store.ActiveErrors()))
	sum.Warnings = store.Sorted(store.Warnings())
	sum.ErrorsAfter = len(sum.Errors)
	sum.WarningsAfter = len(sum.Warnings)
	e.sess.Metrics.observeViolations(sum.ErrorsAfter, sum.WarningsAfter)
	return sum, runErr
}

// firstPerNode keeps one error per rule and node. Errors recorded while
// applying a rule explain why it gave up, so they come first and win over
// the generic message of the closing scan.
func firstPerNode(vs []Violation) []Violation {
	type key struct {
		rule string
		node cast.NodeID
	}
	seen := make(map[key]bool, len(vs))
	out := vs[:0:0]
	for _, v := range vs {
		k := key{v.RuleID, v.Node}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}

// walker performs one pre-order pass.
type walker struct {
	engine   *Engine
	ctx      context.Context
	rewrites int
	err      error
}

// visit applies the rules to n and walks its subtree. It returns the node
// that occupies n's position afterwards, or NoNode when n was removed.
func (w *walker) visit(n cast.NodeID) cast.NodeID {
	t := w.engine.sess.Tree
	for replacements := 0; ; replacements++ {
		if w.err != nil {
			return n
		}
		if err := w.ctx.Err(); err != nil {
			w.err = err
			return n
		}
		if limit := w.engine.maxPasses; limit > 0 && replacements > limit {
			w.err = ErrNotConverged
			return n
		}

		out, rule := w.applyRules(n)
		switch out.Change {
		case ChangeReplaced:
			next := out.Root
			if next != n && t.Parent(next) == cast.NoNode && t.Root() != next {
				t.Replace(n, next)
			}
			w.logRewrite(rule, n, out)
			// the replacement is walked again in this same pass
			n = next
			continue
		case ChangeRemoved:
			w.logRewrite(rule, n, out)
			return cast.NoNode
		case ChangeDescendant:
			w.logRewrite(rule, n, out)
		}
		break
	}

	child := t.ChildAt(n, 0)
	for child.IsValid() {
		next := t.NextSibling(child)
		if cur := w.visit(child); cur.IsValid() && t.Parent(cur) == n {
			next = t.NextSibling(cur)
		} else if next.IsValid() && t.Parent(next) != n {
			break
		}
		child = next
	}
	return n
}

// applyRules offers n to the rules in priority order. The first rule that
// changes the tree ends the round for n.
func (w *walker) applyRules(n cast.NodeID) (Outcome, Rule) {
	for _, r := range w.engine.rules {
		out := r.Apply(w.ctx, n)
		if out.Changed() {
			return out, r
		}
	}
	return NoChange(), nil
}

func (w *walker) logRewrite(r Rule, n cast.NodeID, out Outcome) {
	w.rewrites++
	w.engine.sess.Metrics.observeRewrite(r.ID(), out)
	w.engine.logger.Debug("rewrite",
		zap.String("rule", r.ID()),
		zap.Uint32("node", uint32(n)),
		zap.Stringer("kind", w.engine.sess.Tree.Kind(n)),
		zap.Stringer("outcome", out))
}
