package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	tt "github.com/gnolang/misra/internal/types"
)

// SourceLoader returns the content an issue's lines refer to.
type SourceLoader func(filename string) (*SourceCode, error)

// FixSummary holds the counts reported after applying corrections.
type FixSummary struct {
	ErrorsBefore   int      `json:"errorsBefore"`
	WarningsBefore int      `json:"warningsBefore"`
	ErrorsAfter    int      `json:"errorsAfter"`
	WarningsAfter  int      `json:"warningsAfter"`
	Passes         int      `json:"passes"`
	Rewrites       int      `json:"rewrites"`
	Changed        []string `json:"changed,omitempty"`
	Converged      bool     `json:"converged"`
}

// GroupByFile buckets issues by filename. Files are returned sorted; issues
// keep their order. Program level issues have an empty filename and come
// first.
func GroupByFile(issues []tt.Issue) ([]string, map[string][]tt.Issue) {
	byFile := make(map[string][]tt.Issue)
	for _, issue := range issues {
		byFile[issue.Filename] = append(byFile[issue.Filename], issue)
	}
	files := make([]string, 0, len(byFile))
	for filename := range byFile {
		files = append(files, filename)
	}
	sort.Strings(files)
	return files, byFile
}

// WriteText renders issues file by file. A file that cannot be loaded is
// rendered without snippets.
func WriteText(w io.Writer, issues []tt.Issue, load SourceLoader) error {
	if load == nil {
		load = ReadSourceCode
	}
	files, byFile := GroupByFile(issues)
	for _, filename := range files {
		var src *SourceCode
		if filename != "" {
			if s, err := load(filename); err == nil {
				src = s
			}
		}
		if _, err := io.WriteString(w, GenerateFormattedIssue(byFile[filename], src)); err != nil {
			return err
		}
	}
	return nil
}

type jsonReport struct {
	Summary *FixSummary           `json:"summary"`
	Issues  map[string][]tt.Issue `json:"issues"`
}

// WriteJSON writes issues keyed by filename. With a summary the issues are
// nested next to it.
func WriteJSON(w io.Writer, issues []tt.Issue, summary *FixSummary) error {
	_, byFile := GroupByFile(issues)

	var v any = byFile
	if summary != nil {
		v = jsonReport{Summary: summary, Issues: byFile}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("error marshalling issues to JSON: %w", err)
	}
	return nil
}

// GenerateSummary renders the before and after counts of a correction run.
func GenerateSummary(s FixSummary) string {
	var b strings.Builder
	b.WriteString(helpStyle.Sprint("Summary:\n"))
	fmt.Fprintf(&b, "  errors:   %d -> %d\n", s.ErrorsBefore, s.ErrorsAfter)
	fmt.Fprintf(&b, "  warnings: %d -> %d\n", s.WarningsBefore, s.WarningsAfter)
	fmt.Fprintf(&b, "  passes:   %d (%d rewrites)\n", s.Passes, s.Rewrites)
	if !s.Converged {
		b.WriteString(errorStyle.Sprint("  corrections did not converge\n"))
	}
	for _, f := range s.Changed {
		b.WriteString("  changed: " + fileStyle.Sprint(f) + "\n")
	}
	return b.String()
}
