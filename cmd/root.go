package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/misra/internal"
	"github.com/gnolang/misra/lint"
)

const defaultTimeout = 5 * time.Minute

var (
	cfgFile     string
	fixCfgFile  string
	std         string
	maxPasses   int
	timeout     time.Duration
	verbose     bool
	metricsPath string
	cacheDir    string

	logger *zap.Logger
)

// errViolations is returned when a run leaves violations behind. The report
// has been printed already.
var errViolations = errors.New("violations found")

var rootCmd = &cobra.Command{
	Use:              "misra [paths...]",
	Short:            "misra - check C sources against MISRA C and fix what can be fixed",
	TraverseChildren: true, // Prioritize subcommands
	SilenceUsage:     true,
	SilenceErrors:    true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			// display help when only 'misra' is entered
			return cmd.Help()
		}
		// misra [path1 path2 ...] behaves like the check subcommand
		return checkRun(cmd, args)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

// ExitCode maps the error of Execute to the process exit status: 1 when
// violations remain, 2 when the run itself failed.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errViolations):
		return 1
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	return 2
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", lint.DefaultConfigPath, "Tool configuration file")
	flags.StringVar(&fixCfgFile, "fix-config", "", "Fix configuration (JSON, YAML or TOML)")
	flags.StringVar(&std, "std", "", "C standard edition: c90, c99 or c11")
	flags.IntVar(&maxPasses, "max-passes", lint.DefaultMaxPasses, "Maximum number of correction passes (0 for no limit)")
	flags.DurationVar(&timeout, "timeout", defaultTimeout, "Timeout for the whole run")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&metricsPath, "metrics", "", "Write Prometheus metrics of the run to this file")
	flags.StringVar(&cacheDir, "cache-dir", "", "Keep compliance reports in this directory")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(watchCmd)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// loadConfig reads the tool configuration and applies the flags the user
// set explicitly. A missing default configuration file is not an error.
func loadConfig(cmd *cobra.Command) (lint.Config, error) {
	cfg, err := lint.LoadConfig(cfgFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("config") {
			return cfg, err
		}
		cfg = lint.DefaultConfig()
	}

	flags := cmd.Flags()
	if flags.Changed("std") {
		cfg.Std = std
	}
	if flags.Changed("fix-config") {
		cfg.FixConfig = fixCfgFile
	}
	if flags.Changed("max-passes") {
		cfg.MaxPasses = maxPasses
	}
	return cfg, cfg.Validate()
}

// newLinter builds a linter from configuration and flags. The returned
// metrics are nil unless --metrics is set.
func newLinter(cmd *cobra.Command, opts ...lint.Option) (*lint.Linter, *internal.Metrics, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	var metrics *internal.Metrics
	if metricsPath != "" {
		metrics = internal.NewMetrics()
	}
	opts = append(opts, lint.WithLogger(logger), lint.WithMetrics(metrics))
	if !verbose {
		opts = append(opts, lint.WithProgress(os.Stderr))
	}
	if cacheDir != "" {
		cache, err := internal.NewCache(cacheDir)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, lint.WithCache(cache))
	}

	l, err := lint.New(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	return l, metrics, nil
}

func writeMetrics(m *internal.Metrics) {
	if m == nil || metricsPath == "" {
		return
	}
	if err := m.WriteTextfile(metricsPath); err != nil {
		logger.Error("Error writing metrics", zap.String("path", metricsPath), zap.Error(err))
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
