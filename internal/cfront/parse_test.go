package cfront

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/misra/internal/cast"
)

const sample = `#include <stdlib.h>
#include "local.h"

static int counter = 0;
extern int helper(int a);

int classify(int v) {
    int x = 0;
    switch (v) {
        case 0:
            x = 1;
        case 1:
            x = 2;
            break;
        default:
            x = 3;
            break;
    }
    if (x > 1) {
        counter++;
    } else {
        helper(x);
    }
    for (int i = 0; i < 3; i++) {
        x += i;
    }
out:
    return x;
}
`

func TestParseFile_Lowering(t *testing.T) {
	t.Parallel()

	tree, file, err := ParseFile(context.Background(), Source{Path: "sample.c", Content: []byte(sample)})
	require.NoError(t, err)
	require.Equal(t, file, tree.Root())

	assert.True(t, tree.Includes(file, "stdlib.h"))
	assert.True(t, tree.Includes(file, "local.h"))

	protos := tree.Find(file, cast.Prototype)
	require.Len(t, protos, 1)
	assert.Equal(t, "helper", tree.Text(protos[0]))
	assert.Equal(t, "extern", tree.Node(protos[0]).Storage)
	assert.Equal(t, "int", tree.Node(protos[0]).Type)

	fns := tree.Find(file, cast.Function)
	require.Len(t, fns, 1)
	fn := fns[0]
	assert.Equal(t, "classify", tree.Text(fn))
	assert.Equal(t, "int", tree.Node(fn).Type)
	assert.Equal(t, "int classify(int v)", tree.Node(fn).Decl)
	require.Len(t, tree.Params(fn), 1)
	assert.Equal(t, "v", tree.Text(tree.Params(fn)[0]))

	switches := tree.Find(fn, cast.Switch)
	require.Len(t, switches, 1)
	sw := switches[0]
	assert.Equal(t, "v", tree.Text(tree.Cond(sw)))

	var kinds []cast.Kind
	for _, c := range tree.Children(tree.Body(sw)) {
		kinds = append(kinds, tree.Kind(c))
	}
	assert.Equal(t, []cast.Kind{
		cast.Case, cast.ExprStmt,
		cast.Case, cast.ExprStmt, cast.Break,
		cast.Default, cast.ExprStmt, cast.Break,
	}, kinds)

	labels := tree.Find(fn, cast.Label)
	require.Len(t, labels, 1)
	assert.Equal(t, "out", tree.Text(labels[0]))
	assert.Equal(t, cast.Return, tree.Kind(tree.NextSibling(labels[0])))

	loops := tree.Find(fn, cast.For)
	require.Len(t, loops, 1)
	assert.Equal(t, "int i = 0; i < 3; i++", tree.Text(loops[0]))

	assert.NotEmpty(t, tree.Find(fn, cast.Postfix))
	assert.Equal(t, cast.Span{Line: 9, Column: 5, EndLine: 18, EndColumn: 6}, tree.Location(sw))
}

func TestParseFile_PrintRoundTrip(t *testing.T) {
	t.Parallel()

	tree, file, err := ParseFile(context.Background(), Source{Path: "sample.c", Content: []byte(sample)})
	require.NoError(t, err)

	printed := cast.Print(tree, file)
	assert.NoError(t, CheckSyntax(context.Background(), "printed.c", []byte(printed)))
	assert.Contains(t, printed, "switch (v) {")
	assert.Contains(t, printed, "case 0:")
	assert.Contains(t, printed, "} else {")
	assert.Contains(t, printed, "for (int i = 0; i < 3; i++) {")

	again, file2, err := ParseFile(context.Background(), Source{Path: "sample.c", Content: []byte(printed)})
	require.NoError(t, err)
	assert.Equal(t, printed, cast.Print(again, file2))
}

func TestParseFile_SyntaxError(t *testing.T) {
	t.Parallel()

	_, _, err := ParseFile(context.Background(), Source{Path: "bad.c", Content: []byte("int f( {\n")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSyntax))

	var se *SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "bad.c", se.File)
	assert.GreaterOrEqual(t, se.Line, 1)
}

func TestParseProgram_KeepsInputOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.c")
	b := filepath.Join(dir, "b.c")
	require.NoError(t, os.WriteFile(a, []byte("int a(void) { return 1; }\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("int b(void) { return 2; }\n"), 0o644))

	sources, err := ReadSources([]string{a, b})
	require.NoError(t, err)

	tree, err := ParseProgram(context.Background(), sources)
	require.NoError(t, err)

	files := tree.Children(tree.Root())
	require.Len(t, files, 2)
	assert.Equal(t, a, tree.Text(files[0]))
	assert.Equal(t, b, tree.Text(files[1]))
	assert.Len(t, tree.Declarations(tree.Root(), "b"), 1)
}

func TestParseFile_TypeDeclarations(t *testing.T) {
	t.Parallel()

	const code = `typedef unsigned int u32;
typedef struct node { int v; } node_t, *node_p;
struct pair { int a; int b; };
enum color { RED, GREEN };
static int count = 0, *cursor;
`
	tree, file, err := ParseFile(context.Background(), Source{Path: "types.c", Content: []byte(code)})
	require.NoError(t, err)

	tds := tree.Find(file, cast.Typedef)
	require.Len(t, tds, 2)
	assert.Equal(t, "u32", tree.Text(tds[0]))
	assert.Equal(t, "unsigned int", tree.Node(tds[0]).Type)
	assert.Equal(t, []string{"u32"}, tree.Node(tds[0]).Names)
	assert.Equal(t, []string{"node_t", "node_p"}, tree.Node(tds[1]).Names)
	assert.Equal(t, "struct node", tree.Node(tds[1]).Type)

	tags := tree.Find(file, cast.Tag)
	require.Len(t, tags, 2)
	assert.Equal(t, "pair", tree.Text(tags[0]))
	assert.Equal(t, "struct", tree.Node(tags[0]).Type)
	assert.Equal(t, "struct pair { int a; int b; };", tree.Node(tags[0]).Decl)
	assert.Equal(t, "enum", tree.Node(tags[1]).Type)

	vars := tree.Find(file, cast.VarDecl)
	require.Len(t, vars, 1)
	assert.Equal(t, []string{"count", "cursor"}, tree.Node(vars[0]).Names)
	assert.Equal(t, "static", tree.Node(vars[0]).Storage)

	printed := cast.Print(tree, file)
	assert.Contains(t, printed, "struct pair { int a; int b; };\n")
	assert.NoError(t, CheckSyntax(context.Background(), "printed.c", []byte(printed)))
}
