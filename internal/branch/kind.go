package branch

// BranchKind tells how control leaves a statement.
type BranchKind int

const (
	Empty BranchKind = iota

	// Return branches return from the current function
	Return

	// Continue branches continue a surrounding loop
	Continue

	// Break branches leave the innermost switch or loop
	Break

	// Goto branches jump to a label
	Goto

	// Exit ends the program through a function that never returns
	Exit

	// Regular branches not categorized as any of the above
	Regular
)

func (k BranchKind) IsEmpty() bool  { return k == Empty }
func (k BranchKind) Returns() bool  { return k == Return }
func (k BranchKind) Branch() Branch { return Branch{BranchKind: k} }

// Deviates reports whether control never reaches the next statement.
func (k BranchKind) Deviates() bool {
	switch k {
	case Empty, Regular:
		return false
	case Return, Continue, Break, Goto, Exit:
		return true
	default:
		panic("unreachable")
	}
}

func (k BranchKind) String() string {
	switch k {
	case Empty:
		return ""
	case Regular:
		return "..."
	case Return:
		return "... return"
	case Continue:
		return "... continue"
	case Break:
		return "... break"
	case Goto:
		return "... goto"
	case Exit:
		return "... exit()"
	default:
		panic("invalid kind")
	}
}
