// Package cfront parses C translation units into cast trees using tree-sitter.
package cfront

import (
	"context"
	"errors"
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"golang.org/x/sync/errgroup"

	"github.com/gnolang/misra/internal/cast"
)

// ErrSyntax is wrapped by every SyntaxError.
var ErrSyntax = errors.New("syntax error")

// SyntaxError points at the first ERROR or MISSING node of a parse.
type SyntaxError struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// Source is one file handed to the parser.
type Source struct {
	Path    string
	Content []byte
}

// ReadSources loads paths from disk.
func ReadSources(paths []string) ([]Source, error) {
	out := make([]Source, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", p, err)
		}
		out = append(out, Source{Path: p, Content: content})
	}
	return out, nil
}

func parse(ctx context.Context, src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(c.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing failed: %w", err)
	}
	return tree, nil
}

// CheckSyntax reports the first syntax error in src, if any.
func CheckSyntax(ctx context.Context, name string, src []byte) error {
	tree, err := parse(ctx, src)
	if err != nil {
		return err
	}
	defer tree.Close()
	return firstError(name, tree.RootNode(), src)
}

func firstError(name string, node *sitter.Node, src []byte) error {
	if !node.HasError() {
		return nil
	}
	if node.IsError() || node.IsMissing() {
		p := node.StartPoint()
		msg := "unexpected " + truncate(node.Content(src), 40)
		if node.IsMissing() {
			msg = "missing " + node.Type()
		}
		return &SyntaxError{File: name, Line: int(p.Row) + 1, Column: int(p.Column) + 1, Message: msg}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if err := firstError(name, node.Child(i), src); err != nil {
			return err
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ParseFile parses one file into its own tree. The returned id is the File
// node, which is also the tree root.
func ParseFile(ctx context.Context, src Source) (*cast.Tree, cast.NodeID, error) {
	ts, err := parse(ctx, src.Content)
	if err != nil {
		return nil, cast.NoNode, fmt.Errorf("%s: %w", src.Path, err)
	}
	defer ts.Close()

	root := ts.RootNode()
	if err := firstError(src.Path, root, src.Content); err != nil {
		return nil, cast.NoNode, err
	}

	t := cast.NewTree()
	l := &lowerer{t: t, b: cast.NewBuilder(t), src: src.Content}
	file := l.file(src.Path, root)
	t.SetRoot(file)
	return t, file, nil
}

// ParseProgram parses every source concurrently and grafts the files, in
// input order, under one Program root.
func ParseProgram(ctx context.Context, sources []Source) (*cast.Tree, error) {
	type parsed struct {
		tree *cast.Tree
		file cast.NodeID
	}
	results := make([]parsed, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			t, file, err := ParseFile(gctx, src)
			if err != nil {
				return err
			}
			results[i] = parsed{tree: t, file: file}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	prog := cast.NewTree()
	root := prog.New(cast.Program, "")
	for _, r := range results {
		file, _ := r.tree.CopyInto(prog, r.file)
		prog.Append(root, file)
	}
	prog.SetRoot(root)
	return prog, nil
}
