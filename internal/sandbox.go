package internal

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gnolang/misra/internal/cast"
)

// Oracle decides whether a unit still builds. unit is a File or the
// Program node of t. Implementations must not modify t.
type Oracle interface {
	Rebuild(ctx context.Context, t *cast.Tree, unit cast.NodeID) error
}

// Resolver maps a node of the live tree to the node standing for it in the
// tree a Mutation runs on.
type Resolver func(cast.NodeID) cast.NodeID

// Mutation edits t. It reaches pre-existing nodes only through at, so the
// same mutation can run on a scratch copy and then on the live tree.
type Mutation func(t *cast.Tree, at Resolver) error

func identity(id cast.NodeID) cast.NodeID { return id }

// Sandbox tries risky edits on disposable copies before they reach the live
// tree.
type Sandbox struct {
	tree    *cast.Tree
	oracle  Oracle
	logger  *zap.Logger
	metrics *Metrics
}

func NewSandbox(tree *cast.Tree, oracle Oracle, logger *zap.Logger, metrics *Metrics) *Sandbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sandbox{tree: tree, oracle: oracle, logger: logger, metrics: metrics}
}

// TryCommit copies unit under a throwaway name, applies mutate to the copy
// and asks the oracle to rebuild it. The live tree is never modified. The
// error is non-nil only when the attempt itself could not be carried out,
// such as a failing mutation or a cancelled context.
func (s *Sandbox) TryCommit(ctx context.Context, unit cast.NodeID, mutate Mutation) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s.oracle == nil {
		return false, fmt.Errorf("sandbox: no rebuild oracle configured")
	}

	scratch := cast.NewTree()
	root, mapping := s.tree.CopyInto(scratch, unit)
	scratch.SetRoot(root)
	for _, f := range scratch.Find(root, cast.File) {
		n := scratch.Node(f)
		n.Text = disposableName(n.Text)
	}

	at := func(id cast.NodeID) cast.NodeID { return mapping[id] }
	if err := mutate(scratch, at); err != nil {
		return false, fmt.Errorf("sandbox: mutation failed: %w", err)
	}

	err := s.oracle.Rebuild(ctx, scratch, root)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	s.metrics.observeSandbox(err == nil)
	if err != nil {
		s.logger.Debug("sandbox rejected mutation",
			zap.String("unit", s.tree.Text(unit)),
			zap.Error(err))
		return false, nil
	}
	return true, nil
}

// Commit runs TryCommit and, when the copy rebuilt, applies mutate to the
// live tree.
func (s *Sandbox) Commit(ctx context.Context, unit cast.NodeID, mutate Mutation) (bool, error) {
	ok, err := s.TryCommit(ctx, unit, mutate)
	if err != nil || !ok {
		return false, err
	}
	if err := mutate(s.tree, identity); err != nil {
		return false, fmt.Errorf("sandbox: applying validated mutation: %w", err)
	}
	return true, nil
}

// disposableName keeps the directory of p so relative includes still
// resolve next to the original file.
func disposableName(p string) string {
	dir, base := filepath.Split(p)
	return dir + "temp_misra_" + uuid.NewString() + "_" + base
}
