package internal

import (
	"fmt"

	"github.com/gnolang/misra/internal/cast"
)

// Change tells the driver what a rule did to the node it was applied to.
type Change int

const (
	ChangeNone Change = iota
	// ChangeDescendant means the subtree was mutated in place below the same root.
	ChangeDescendant
	// ChangeReplaced means the node was substituted by Outcome.Root.
	ChangeReplaced
	// ChangeRemoved means the node was detached from the tree.
	ChangeRemoved
)

func (c Change) String() string {
	switch c {
	case ChangeNone:
		return "NoChange"
	case ChangeDescendant:
		return "DescendantChanged"
	case ChangeReplaced:
		return "Replaced"
	case ChangeRemoved:
		return "Removed"
	}
	return fmt.Sprintf("Change(%d)", int(c))
}

// Outcome is the result of Rule.Apply.
type Outcome struct {
	Change Change
	Root   cast.NodeID // set only for ChangeReplaced
}

func NoChange() Outcome { return Outcome{} }

func DescendantChanged() Outcome { return Outcome{Change: ChangeDescendant} }

func Removed() Outcome { return Outcome{Change: ChangeRemoved} }

// Replaced reports that root now stands where the visited node was.
// It panics when root is not a node.
func Replaced(root cast.NodeID) Outcome {
	if !root.IsValid() {
		panic("internal: Replaced outcome without a new root")
	}
	return Outcome{Change: ChangeReplaced, Root: root}
}

func (o Outcome) Changed() bool { return o.Change != ChangeNone }

func (o Outcome) String() string {
	if o.Change == ChangeReplaced {
		return fmt.Sprintf("Replaced(%d)", o.Root)
	}
	return o.Change.String()
}
