package lints

import (
	"context"
	"strings"

	"github.com/gnolang/misra/internal"
	"github.com/gnolang/misra/internal/cast"
)

// HeaderName forbids quotes, backslashes and comment openers in the name
// of an included header (20.2). Renaming files is left to the developer.
type HeaderName struct{ base }

func NewHeaderName(s *internal.Session) internal.Rule {
	return &HeaderName{newBase(s, "20.2", defaultPriority, internal.SingleUnit)}
}

func invalidHeaderName(header string) bool {
	name := header
	if len(name) >= 2 {
		name = name[1 : len(name)-1]
	}
	return strings.ContainsAny(name, `'"\`) || strings.Contains(name, "/*") || strings.Contains(name, "//")
}

func (r *HeaderName) Match(n cast.NodeID, logViolations bool) bool {
	t := r.tree()
	if t.Kind(n) != cast.Include || !invalidHeaderName(t.Text(n)) {
		return false
	}
	if logViolations {
		r.errorf(n, `Invalid characters in header filename. Invalid characters are ', ", \, and the sequences /* and //.`)
	}
	return true
}

func (r *HeaderName) Apply(context.Context, cast.NodeID) internal.Outcome {
	return internal.NoChange()
}
