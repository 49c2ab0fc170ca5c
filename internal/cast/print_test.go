package cast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrint_File(t *testing.T) {
	t.Parallel()
	tree, _, fn := sampleFunction(t)

	want := `#include <stdio.h>

int f(int x) {
    switch (x) {
    case 1:
        a();
        break;
    default:
        break;
    }
    return 0;
}
`
	assert.Equal(t, want, Print(tree, tree.EnclosingFile(fn)))
}

func TestPrint_Expressions(t *testing.T) {
	t.Parallel()
	tree := NewTree()
	b := NewBuilder(tree)

	tests := []struct {
		name string
		node NodeID
		want string
	}{
		{"disjunction", b.Or(b.Eq(b.Ident("v"), b.Int(1)), b.Eq(b.Ident("v"), b.Int(2))), "v == 1 || v == 2"},
		{"range", b.And(b.Binary(">=", b.Paren(b.Ident("v")), b.Int(1)), b.Binary("<=", b.Paren(b.Ident("v")), b.Int(5))), "(v) >= 1 && (v) <= 5"},
		{"void cast", b.CastVoid(b.Call("f", b.Ident("a"), b.Int(2))), "(void)f(a, 2)"},
		{"unary", b.Unary("!", b.Ident("ok")), "!ok"},
		{"assign", b.Assign("=", b.Ident("x"), b.Int(2)), "x = 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PrintExpr(tree, tt.node))
		})
	}
}

func TestPrint_IfElseChain(t *testing.T) {
	t.Parallel()
	tree := NewTree()
	b := NewBuilder(tree)

	chain := b.If(b.Eq(b.Ident("v"), b.Int(1)),
		b.Compound(b.ExprStmt(b.Call("a"))),
		b.If(b.Eq(b.Ident("v"), b.Int(2)),
			b.Compound(b.ExprStmt(b.Call("b"))),
			b.Compound(b.ExprStmt(b.Call("c")))))

	want := `if (v == 1) {
    a();
} else if (v == 2) {
    b();
} else {
    c();
}
`
	assert.Equal(t, want, Print(tree, chain))
}

func TestPrint_TrailingLabel(t *testing.T) {
	t.Parallel()
	tree := NewTree()
	b := NewBuilder(tree)

	body := b.Compound(b.Goto("out"), b.Label("out"))
	assert.Equal(t, "{\n    goto out;\n    out: ;\n}\n", Print(tree, body))
}
