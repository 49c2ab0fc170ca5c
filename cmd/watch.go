package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	tt "github.com/gnolang/misra/internal/types"
	"github.com/gnolang/misra/lint"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Re-check C sources whenever they change",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("please provide directories to watch")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		l, _, err := newLinter(cmd)
		if err != nil {
			return err
		}
		out := output{stdout: cmd.OutOrStdout()}

		report := func(issues []tt.Issue, err error) {
			if err != nil {
				logger.Error("Error checking files", zap.Error(err))
				return
			}
			if err := out.issues(issues, nil, nil); err != nil {
				logger.Error("Error printing issues", zap.Error(err))
			}
			fmt.Fprintf(out.stdout, "%d issue(s) found\n", len(issues))
		}
		// check once before waiting for changes
		report(l.CheckCompliance(ctx, args))
		return runWatch(ctx, l, args, report)
	},
}

func runWatch(ctx context.Context, l *lint.Linter, dirs []string, report func([]tt.Issue, error)) error {
	err := l.Watch(ctx, dirs, report)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
