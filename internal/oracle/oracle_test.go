package oracle

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/misra/internal/cast"
)

// unit builds `int main(void) { <call>(); return 0; }` in a file named name.
func unit(name, call string) (*cast.Tree, cast.NodeID) {
	t := cast.NewTree()
	b := cast.NewBuilder(t)
	body := b.Compound(b.ExprStmt(b.Call(call)), b.Return(b.Int(0)))
	file := b.File(name, b.Function("int", "main", []string{"void"}, body))
	t.SetRoot(b.Program(file))
	return t, file
}

func TestOriginalBase(t *testing.T) {
	t.Parallel()

	id := uuid.NewString()
	assert.Equal(t, "main.c", originalBase("src/temp_misra_"+id+"_main.c"))
	assert.Equal(t, "main.c", originalBase("src/main.c"))
	assert.Equal(t, "temp_misra_x_main.c", originalBase("temp_misra_x_main.c"))
}

func TestParser(t *testing.T) {
	t.Parallel()

	tree, file := unit("main.c", "puts")
	assert.NoError(t, Parser{}.Rebuild(context.Background(), tree, file))

	b := cast.NewBuilder(tree)
	tree.Append(file, b.Raw("int broken( {"))
	err := Parser{}.Rebuild(context.Background(), tree, file)
	assert.ErrorIs(t, err, ErrRebuild)
}

type countingOracle struct {
	mock.Mock
}

func (m *countingOracle) Rebuild(_ context.Context, _ *cast.Tree, _ cast.NodeID) error {
	return m.Called().Error(0)
}

func TestCachedIgnoresSandboxNames(t *testing.T) {
	t.Parallel()

	next := &countingOracle{}
	next.On("Rebuild").Return(nil)
	c := NewCached(next, 8, nil)

	for i := 0; i < 3; i++ {
		tree, file := unit("temp_misra_"+uuid.NewString()+"_main.c", "puts")
		require.NoError(t, c.Rebuild(context.Background(), tree, file))
	}
	next.AssertNumberOfCalls(t, "Rebuild", 1)
	assert.Equal(t, 1, c.Len())

	tree, file := unit("main.c", "other")
	require.NoError(t, c.Rebuild(context.Background(), tree, file))
	next.AssertNumberOfCalls(t, "Rebuild", 2)
}

func TestCachedRemembersRejections(t *testing.T) {
	t.Parallel()

	next := &countingOracle{}
	next.On("Rebuild").Return(ErrRebuild)
	c := NewCached(next, 8, nil)

	tree, file := unit("main.c", "puts")
	for i := 0; i < 2; i++ {
		err := c.Rebuild(context.Background(), tree, file)
		assert.True(t, errors.Is(err, ErrRebuild))
	}
	next.AssertNumberOfCalls(t, "Rebuild", 1)
}

func TestCompilerArgs(t *testing.T) {
	t.Parallel()

	c := NewCompiler("cc", "c99")
	c.Flags = []string{"-DNDEBUG"}
	assert.Equal(t,
		[]string{"-fsyntax-only", "-Werror=implicit-function-declaration", "-std=c99", "-DNDEBUG", "-I", "src", "-x", "c", "/tmp/x/main.c"},
		c.args("/tmp/x/main.c", "src"))
}

func TestCompiler(t *testing.T) {
	t.Parallel()

	cc, err := exec.LookPath("cc")
	if err != nil {
		t.Skip("no C compiler on PATH")
	}
	c := NewCompiler(cc, "c99")
	ctx := context.Background()

	// puts needs an argument
	tree, file := unit("main.c", "puts")
	tree.InsertBefore(tree.ChildAt(file, 0), cast.NewBuilder(tree).Include("<stdio.h>"))
	err = c.Rebuild(ctx, tree, file)
	assert.ErrorIs(t, err, ErrRebuild)

	tree, file = unit("temp_misra_"+uuid.NewString()+"_main.c", "undeclared")
	err = c.Rebuild(ctx, tree, file)
	assert.ErrorIs(t, err, ErrRebuild, "implicit declarations are rejected")

	tree, file = unit("main.c", "getchar")
	tree.InsertBefore(tree.ChildAt(file, 0), cast.NewBuilder(tree).Include("<stdio.h>"))
	assert.NoError(t, c.Rebuild(ctx, tree, file))
}
