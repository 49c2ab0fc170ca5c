package internal

import (
	"regexp"
	"strings"

	"github.com/gnolang/misra/internal/cast"
)

// nolintComment matches `//nolint`, `//nolint:16.4,17.7` and the block
// comment forms of both.
var nolintComment = regexp.MustCompile(`(?://\s*|/\*\s*)nolint(:[0-9., ]*)?`)

// nolintScope is a line range of one file where nolint applies.
type nolintScope struct {
	start, end int
	rules      map[string]struct{} // empty => every rule
}

// NolintManager answers whether a finding is silenced by a nolint comment.
//
// A comment silences the statement on its own line or, when it stands
// alone, the statement on the next line. Directly above a function
// definition it covers the whole function, and above the first declaration
// of a file it covers the file.
type NolintManager struct {
	scopes map[string][]nolintScope // filename to scopes
}

func NewNolintManager() *NolintManager {
	return &NolintManager{scopes: make(map[string][]nolintScope)}
}

// ParseNolintComments scans the source of file, a File node of t.
func (m *NolintManager) ParseNolintComments(t *cast.Tree, file cast.NodeID, src []byte) {
	filename := t.Text(file)
	lines := strings.Split(string(src), "\n")
	stmts := indexStatementsByLine(t, file)
	firstDecl := firstDeclLine(t, file)

	for i, text := range lines {
		loc := nolintComment.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		line := i + 1
		scope := nolintScope{rules: parseNolintRules(text[loc[0]:loc[1]])}

		switch {
		case firstDecl == 0 || line < firstDecl:
			scope.start, scope.end = 1, len(lines)
		case functionAt(t, file, line+1).IsValid() && standalone(text, loc[0]):
			span := t.Location(functionAt(t, file, line+1))
			scope.start, scope.end = span.Line, span.EndLine
		default:
			target := line
			if standalone(text, loc[0]) {
				target = line + 1
			}
			scope.start, scope.end = target, target
			if stmt, ok := stmts[target]; ok {
				span := t.Location(stmt)
				scope.start, scope.end = span.Line, span.EndLine
			}
		}
		m.scopes[filename] = append(m.scopes[filename], scope)
	}
}

// parseNolintRules reads the rule list after the colon of a nolint comment.
func parseNolintRules(text string) map[string]struct{} {
	rules := make(map[string]struct{})
	colon := strings.IndexByte(text, ':')
	if colon == -1 {
		return rules
	}
	for _, r := range strings.Split(text[colon+1:], ",") {
		if r = strings.TrimSpace(r); r != "" {
			rules[r] = struct{}{}
		}
	}
	return rules
}

func standalone(line string, at int) bool {
	return strings.TrimSpace(line[:at]) == ""
}

// indexStatementsByLine maps each line to the first statement starting on it.
func indexStatementsByLine(t *cast.Tree, file cast.NodeID) map[int]cast.NodeID {
	stmts := make(map[int]cast.NodeID)
	t.Walk(file, func(id cast.NodeID) bool {
		if k := t.Kind(id); !k.IsStmt() && !k.IsTypeDecl() {
			return true
		}
		line := t.Location(id).Line
		if _, ok := stmts[line]; !ok && line > 0 {
			stmts[line] = id
		}
		return true
	})
	return stmts
}

func firstDeclLine(t *cast.Tree, file cast.NodeID) int {
	for _, c := range t.Children(file) {
		if t.Kind(c) == cast.Include {
			continue
		}
		if line := t.Location(c).Line; line > 0 {
			return line
		}
	}
	return 0
}

func functionAt(t *cast.Tree, file cast.NodeID, line int) cast.NodeID {
	for _, c := range t.Children(file) {
		if t.Kind(c) == cast.Function && t.Location(c).Line == line {
			return c
		}
	}
	return cast.NoNode
}

// IsNolint reports whether rule is silenced at line of filename.
func (m *NolintManager) IsNolint(filename string, line int, rule string) bool {
	for _, scope := range m.scopes[filename] {
		if line < scope.start || line > scope.end {
			continue
		}
		if len(scope.rules) == 0 {
			return true
		}
		if _, ok := scope.rules[rule]; ok {
			return true
		}
	}
	return false
}
