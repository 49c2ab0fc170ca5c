package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/misra/formatter"
	tt "github.com/gnolang/misra/internal/types"
	"github.com/gnolang/misra/lint"
)

var (
	ignoreRules string
	ignorePaths string
	jsonOutput  bool
	outPath     string
)

var checkCmd = &cobra.Command{
	Use:     "check [paths...]",
	Aliases: []string{"lint"},
	Short:   "Report MISRA C violations without changing any file",
	RunE:    checkRun,
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, checkCmd, fixCmd} {
		c.Flags().StringVar(&ignoreRules, "ignore", "", "Comma-separated list of rules to ignore")
		c.Flags().StringVar(&ignorePaths, "ignore-paths", "", "Comma-separated list of paths to ignore")
		c.Flags().BoolVar(&jsonOutput, "json", false, "Output issues in JSON format")
		c.Flags().StringVarP(&outPath, "output", "o", "", "Output path (default stdout)")
	}
}

func checkRun(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New("please provide file or directory paths")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	l, metrics, err := newLinter(cmd,
		lint.WithIgnoredRules(splitList(ignoreRules)...),
		lint.WithIgnoredPaths(splitList(ignorePaths)...))
	if err != nil {
		return err
	}
	defer writeMetrics(metrics)

	out := output{json: jsonOutput, path: outPath, stdout: cmd.OutOrStdout()}
	return runCheck(ctx, logger, l, args, out)
}

func runCheck(ctx context.Context, logger *zap.Logger, l *lint.Linter, paths []string, out output) error {
	issues, err := l.CheckCompliance(ctx, paths)
	if err != nil {
		logger.Error("Error checking files", zap.Error(err))
		return err
	}
	if err := out.issues(issues, nil, nil); err != nil {
		return err
	}
	if len(issues) > 0 {
		return errViolations
	}
	return nil
}

// output sends reports to stdout or a file, as text or JSON.
type output struct {
	json   bool
	path   string
	stdout io.Writer
}

func (o output) open() (io.Writer, func() error, error) {
	if o.path == "" {
		w := o.stdout
		if w == nil {
			w = os.Stdout
		}
		return w, func() error { return nil }, nil
	}
	f, err := os.Create(o.path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

func (o output) issues(issues []tt.Issue, summary *formatter.FixSummary, load formatter.SourceLoader) error {
	w, closeFn, err := o.open()
	if err != nil {
		return err
	}
	if o.json {
		err = formatter.WriteJSON(w, issues, summary)
	} else {
		err = formatter.WriteText(w, issues, load)
		if err == nil && summary != nil {
			_, err = io.WriteString(w, formatter.GenerateSummary(*summary))
		}
	}
	return errors.Join(err, closeFn())
}
