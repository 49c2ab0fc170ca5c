package cmd

import (
	"context"
	"errors"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/misra/formatter"
	"github.com/gnolang/misra/internal/fixer"
	tt "github.com/gnolang/misra/internal/types"
	"github.com/gnolang/misra/lint"
)

var dryRun bool

var fixCmd = &cobra.Command{
	Use:   "fix [paths...]",
	Short: "Automatically fix violations",
	RunE: func(cmd *cobra.Command, args []string) error {
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
		fix := fixer.New(dryRun, cmd.ErrOrStderr(), logger.Named("fixer"))
		return runAutoFix(ctx, logger, l, args, fix, out)
	},
}

func init() {
	fixCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run in dry-run mode (show fixes without applying them)")
}

func runAutoFix(ctx context.Context, logger *zap.Logger, l *lint.Linter, paths []string, fix *fixer.Fixer, out output) error {
	res, err := l.ApplyCorrections(ctx, paths, fix)
	if err != nil {
		logger.Error("Error fixing files", zap.Error(err))
		return err
	}

	summary := formatter.FixSummary{
		ErrorsBefore:   res.ErrorsBefore,
		WarningsBefore: res.WarningsBefore,
		ErrorsAfter:    res.ErrorsAfter,
		WarningsAfter:  res.WarningsAfter,
		Passes:         res.Passes,
		Rewrites:       res.Rewrites,
		Changed:        res.Changed,
		Converged:      res.Converged,
	}
	// reported positions refer to the files as they were before the run
	load := func(filename string) (*formatter.SourceCode, error) {
		if content, ok := res.Originals[filename]; ok {
			return formatter.NewSourceCode(content), nil
		}
		return formatter.ReadSourceCode(filename)
	}
	if err := out.issues(res.Issues, &summary, load); err != nil {
		return err
	}

	hasErrors := slices.ContainsFunc(res.Issues, func(i tt.Issue) bool {
		return i.Severity == tt.SeverityError
	})
	if hasErrors || !res.Converged {
		return errViolations
	}
	return nil
}
