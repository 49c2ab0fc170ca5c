// Package lints holds the MISRA C guidelines the tool checks and corrects.
//
// Every rule is built against one session through its constructor in
// Catalogue. Rules report through the session store and apply their fixes
// directly to the session tree, or through the sandbox when a fix can only
// be trusted once the unit still builds.
package lints

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gnolang/misra/internal"
	"github.com/gnolang/misra/internal/cast"
)

// defaultPriority is used by rules that need not run before any other.
const defaultPriority = 10

// Catalogue lists every rule in registration order. Rules of equal
// priority run in this order.
var Catalogue = []internal.RuleConstructor{
	NewUnusedLabels,
	NewUnusedParameters,
	NewUnusedTypeDecl,
	NewUnusedTagDecl,
	NewDistinctExternalIdentifiers,
	NewDistinctIdentifiersInScope,
	NewUniqueTypedefNames,
	NewUniqueTagNames,
	NewUniqueExternalLinkIdentifiers,
	NewUniqueInternalLinkIdentifiers,
	NewUnconditionalBreak,
	NewSwitchDefault,
	NewDefaultFirstOrLast,
	NewSwitchMinClauses,
	NewNestedSwitchLabel,
	NewNonBooleanSwitch,
	NewImplicitFunction,
	NewNonVoidReturn,
	NewUnusedReturnValue,
	NewStaticArrayParam,
	NewHeaderName,
	NewNoDynamicMemory,
	NewNoStdIO,
	NewNoNumericConversions,
	NewNoProcessControl,
	NewNoSearchOrSort,
	NewNoTimeDate,
	NewNoTgmath,
}

// base carries what every rule needs.
type base struct {
	id       string
	priority int
	scope    internal.Scope
	sess     *internal.Session
	logger   *zap.Logger
}

func newBase(s *internal.Session, id string, priority int, scope internal.Scope) base {
	return base{
		id:       id,
		priority: priority,
		scope:    scope,
		sess:     s,
		logger:   s.Logger.Named("rule").With(zap.String("rule", id)),
	}
}

func (r base) ID() string { return r.id }
func (r base) Priority() int { return r.priority }
func (r base) Scope() internal.Scope { return r.scope }
func (r base) tree() *cast.Tree { return r.sess.Tree }
func (r base) store() *internal.Store { return r.sess.Store }
func (r base) builder() cast.Builder { return r.sess.Builder() }
func (r base) unfixable(n cast.NodeID) bool { return r.sess.Store.Unfixable(r.id, n) }

func (r base) errorf(n cast.NodeID, format string, args ...any) {
	r.sess.Store.AddError(r.id, n, fmt.Sprintf(format, args...))
}

func (r base) warnf(n cast.NodeID, format string, args ...any) {
	r.sess.Store.AddWarning(r.id, n, fmt.Sprintf(format, args...))
}

// giveUp records why n cannot be fixed and makes later passes skip it.
func (r base) giveUp(n cast.NodeID, format string, args ...any) internal.Outcome {
	r.errorf(n, format, args...)
	r.sess.Store.MarkUnfixable(r.id, n)
	return internal.NoChange()
}
