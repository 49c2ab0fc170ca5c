package formatter

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"github.com/fatih/color"

	tt "github.com/gnolang/misra/internal/types"
)

const tabWidth = 8

// rules with their own layout
const (
	NotConverged     = "engine"
	ImplicitFunction = "17.3"
	MissingReturn    = "17.4"
)

var (
	errorStyle   = color.New(color.FgRed, color.Bold)
	warningStyle = color.New(color.FgHiYellow, color.Bold)
	ruleStyle    = color.New(color.FgYellow, color.Bold)
	fileStyle    = color.New(color.FgCyan, color.Bold)
	gutterStyle  = color.New(color.FgHiBlue, color.Bold)
	messageStyle = color.New(color.FgRed, color.Bold)
	helpStyle    = color.New(color.FgGreen, color.Bold)
)

// issueFormatter is the interface that wraps the IssueTemplate method.
// Implementations are responsible for the layout of one kind of issue.
type issueFormatter interface {
	IssueTemplate() string
}

func formatterFor(issue tt.Issue) issueFormatter {
	switch {
	case issue.Rule == NotConverged || issue.Start.Line == 0:
		return &ProgramIssueFormatter{}
	case issue.Rule == ImplicitFunction || issue.Rule == MissingReturn || issue.Category == "section 21":
		return &ConfigFixFormatter{}
	default:
		return &GeneralIssueFormatter{}
	}
}

var templateFuncs = template.FuncMap{
	"header":     header,
	"snippet":    snippet,
	"underline":  underline,
	"message":    message,
	"configHelp": configHelp,
}

// GenerateFormattedIssue formats issues of one file into a human-readable
// string. source holds the content of that file.
func GenerateFormattedIssue(issues []tt.Issue, source *SourceCode) string {
	if source == nil {
		source = &SourceCode{}
	}
	var b strings.Builder
	for _, issue := range issues {
		b.WriteString(renderIssue(issue, source, formatterFor(issue)))
	}
	return b.String()
}

// issueView is what the templates see of an issue: its first source line
// without indentation, and the gutter to print next to it.
type issueView struct {
	tt.Issue
	Severity string
	Gutter   string
	LineNum  string
	Line     string
	// From and To are the visual columns of the underline in Line.
	From, To int
	HasLine  bool
}

func newIssueView(issue tt.Issue, source *SourceCode) issueView {
	num := strconv.Itoa(issue.Start.Line)
	v := issueView{
		Issue:    issue,
		Severity: issue.Severity.String(),
		Gutter:   strings.Repeat(" ", len(num)+1),
		LineNum:  num,
	}
	start := issue.Start.Line
	if start < 1 || start > len(source.Lines) || issue.End.Line < start {
		return v
	}
	raw := source.Lines[start-1]
	indent := raw[:len(raw)-len(strings.TrimLeftFunc(raw, unicode.IsSpace))]
	shift := visualColumn(raw, len(indent)+1)

	// end columns are exclusive; a span leaving the line runs to its end
	stop := issue.End.Column
	if issue.End.Line > start || stop < 1 {
		stop = len(strings.TrimRightFunc(raw, unicode.IsSpace)) + 1
	}
	v.HasLine = true
	v.Line = raw[len(indent):]
	v.From = max(visualColumn(raw, issue.Start.Column)-shift, 0)
	v.To = max(visualColumn(raw, stop)-shift, v.From+1)
	return v
}

func renderIssue(issue tt.Issue, source *SourceCode, f issueFormatter) string {
	tmpl := template.Must(template.New("issue").Funcs(templateFuncs).Parse(f.IssueTemplate()))
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, newIssueView(issue, source)); err != nil {
		return fmt.Sprintf("Error formatting issue: %v", err)
	}
	return buf.String()
}

// template helpers

func header(v issueView) string {
	var s string
	switch v.Severity {
	case "ERROR":
		s = errorStyle.Sprint("error: ")
	case "WARNING":
		s = warningStyle.Sprint("warning: ")
	case "INFO":
		s = messageStyle.Sprint("info: ")
	}
	s += ruleStyle.Sprint(v.Rule)

	pos := tt.Position{Filename: v.Filename, Line: v.Start.Line, Column: v.Start.Column}.String()
	if pos == "" {
		return s
	}
	return s + "\n" + gutterStyle.Sprintf("%s--> ", v.Gutter[1:]) + fileStyle.Sprint(pos)
}

// snippet prints the first line of the issue. Statements span many lines;
// the opening line is enough to find them.
func snippet(v issueView) string {
	s := gutterStyle.Sprintf("%s|\n", v.Gutter)
	if v.HasLine {
		s += gutterStyle.Sprintf("%s | ", v.LineNum) + v.Line + "\n"
	}
	return s
}

func underline(v issueView) string {
	s := gutterStyle.Sprintf("%s| ", v.Gutter)
	if !v.HasLine {
		return s + messageStyle.Sprintf("%s\n", v.Message)
	}
	s += strings.Repeat(" ", v.From) + messageStyle.Sprintf("%s\n", strings.Repeat("~", v.To-v.From))
	return s + gutterStyle.Sprintf("%s= ", v.Gutter) + messageStyle.Sprintf("%s\n", v.Message)
}

func message(v issueView) string {
	return messageStyle.Sprintf("%s\n", v.Message)
}

// visualColumn converts the 1-based byte column of line into a 0-based
// screen column, expanding tabs.
func visualColumn(line string, column int) int {
	if column < 0 {
		return 0
	}
	col := 0
	for i, ch := range line {
		if i+1 == column {
			break
		}
		if ch == '\t' {
			col += tabWidth - col%tabWidth
		} else {
			col++
		}
	}
	return col
}
