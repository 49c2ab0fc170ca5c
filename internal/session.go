package internal

import (
	"go.uber.org/zap"

	"github.com/gnolang/misra/internal/cast"
	"github.com/gnolang/misra/internal/config"
)

// Session bundles what rules share during one run: the program tree, the
// violation store, the sandbox and the logger.
type Session struct {
	Tree    *cast.Tree
	Store   *Store
	Sandbox *Sandbox
	Logger  *zap.Logger
	Metrics *Metrics
}

// SessionOption configures NewSession.
type SessionOption func(*Session)

func WithLogger(l *zap.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.Logger = l
		}
	}
}

func WithMetrics(m *Metrics) SessionOption {
	return func(s *Session) { s.Metrics = m }
}

// NewSession prepares a session over tree. fix may be nil.
func NewSession(tree *cast.Tree, oracle Oracle, fix config.Provider, opts ...SessionOption) *Session {
	s := &Session{Tree: tree, Logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.Store = NewStore(tree, fix)
	s.Sandbox = NewSandbox(tree, oracle, s.Logger.Named("sandbox"), s.Metrics)
	return s
}

// Builder returns a node builder for the session tree.
func (s *Session) Builder() cast.Builder { return cast.NewBuilder(s.Tree) }
