// Package lint checks C sources against the MISRA C guidelines and applies
// the corrections the rules know how to make.
package lint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/gnolang/misra/internal"
	"github.com/gnolang/misra/internal/cast"
	"github.com/gnolang/misra/internal/cfront"
	"github.com/gnolang/misra/internal/config"
	"github.com/gnolang/misra/internal/fixer"
	"github.com/gnolang/misra/internal/lints"
	"github.com/gnolang/misra/internal/oracle"
	tt "github.com/gnolang/misra/internal/types"
	"github.com/gnolang/misra/scanner"
)

var sourceExtensions = []string{".c", ".h"}

// Linter runs the rule catalogue over a set of C files.
type Linter struct {
	cfg          Config
	fix          config.Provider
	oracle       internal.Oracle
	logger       *zap.Logger
	metrics      *internal.Metrics
	cache        *internal.Cache
	progress     io.Writer
	ignoredRules map[string]bool
	ignoredPaths []string
	catalogue    []internal.RuleConstructor
}

type Option func(*Linter)

func WithLogger(l *zap.Logger) Option {
	return func(li *Linter) {
		if l != nil {
			li.logger = l
		}
	}
}

func WithMetrics(m *internal.Metrics) Option {
	return func(li *Linter) { li.metrics = m }
}

// WithOracle replaces the compiler found on PATH as the judge of sandboxed
// edits.
func WithOracle(o internal.Oracle) Option {
	return func(li *Linter) { li.oracle = o }
}

// WithFixConfig sets the fix configuration instead of loading
// Config.FixConfig.
func WithFixConfig(p config.Provider) Option {
	return func(li *Linter) { li.fix = p }
}

// WithCache serves compliance reports from c while the sources are unchanged.
func WithCache(c *internal.Cache) Option {
	return func(li *Linter) { li.cache = c }
}

// WithProgress draws a progress bar on w while sources are read.
func WithProgress(w io.Writer) Option {
	return func(li *Linter) { li.progress = w }
}

func WithIgnoredRules(rules ...string) Option {
	return func(li *Linter) {
		for _, r := range rules {
			if r = strings.TrimSpace(r); r != "" {
				li.ignoredRules[r] = true
			}
		}
	}
}

// WithIgnoredPaths skips files and directories matching any of the glob
// patterns, tested against the full path and the base name.
func WithIgnoredPaths(patterns ...string) Option {
	return func(li *Linter) {
		for _, p := range patterns {
			if p = strings.TrimSpace(p); p != "" {
				li.ignoredPaths = append(li.ignoredPaths, filepath.Clean(p))
			}
		}
	}
}

// New creates a linter for cfg. A fix configuration that cannot be loaded
// is logged; the rules that need it then report instead of fixing.
func New(cfg Config, opts ...Option) (*Linter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l := &Linter{
		cfg:          cfg,
		logger:       zap.NewNop(),
		ignoredRules: make(map[string]bool),
		catalogue:    lints.Catalogue,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.fix == nil && cfg.FixConfig != "" {
		fix, err := config.Load(cfg.FixConfig)
		if err != nil {
			l.logger.Warn("fix configuration not loaded", zap.String("path", cfg.FixConfig), zap.Error(err))
		} else {
			l.fix = fix
		}
	}
	if l.oracle == nil {
		l.oracle = oracle.Auto(cfg.Std, l.logger.Named("oracle"))
	}
	return l, nil
}

func (l *Linter) Config() Config { return l.cfg }

// IgnoreRule disables rule for later runs.
func (l *Linter) IgnoreRule(rule string) { WithIgnoredRules(rule)(l) }

// IgnorePath skips paths matching pattern in later runs.
func (l *Linter) IgnorePath(pattern string) { WithIgnoredPaths(pattern)(l) }

func (l *Linter) ignored(path string) bool {
	clean := filepath.Clean(path)
	for _, p := range l.ignoredPaths {
		if clean == p || strings.HasPrefix(clean, p+string(filepath.Separator)) {
			return true
		}
		if ok, _ := filepath.Match(p, clean); ok {
			return true
		}
		if ok, _ := filepath.Match(p, filepath.Base(clean)); ok {
			return true
		}
	}
	return false
}

// CollectFiles expands paths into the C sources and headers below them.
// The result is sorted and free of duplicates.
func (l *Linter) CollectFiles(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing %s: %w", path, err)
		}
		if !info.IsDir() {
			if !l.ignored(path) {
				seen[filepath.Clean(path)] = true
			}
			continue
		}
		found, err := scanner.New(path, sourceExtensions...).Skip(l.ignored).Scan()
		if err != nil {
			return nil, fmt.Errorf("error walking %s: %w", path, err)
		}
		for _, f := range found {
			seen[f.Path] = true
		}
	}
	return slices.Sorted(maps.Keys(seen)), nil
}

func (l *Linter) readSources(ctx context.Context, files []string) ([]cfront.Source, error) {
	var bar *progressbar.ProgressBar
	if l.progress != nil && len(files) > 1 {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(l.progress),
			progressbar.OptionSetDescription("reading sources"),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
		defer bar.Finish()
	}

	sources := make([]cfront.Source, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		read, err := cfront.ReadSources([]string{f})
		if err != nil {
			return nil, err
		}
		sources = append(sources, read...)
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	return sources, nil
}

// program is one parsed run over a set of files.
type program struct {
	sources []cfront.Source
	tree    *cast.Tree
	files   []cast.NodeID // File nodes, in the order of sources
	engine  *internal.Engine
	session *internal.Session
}

func (l *Linter) load(ctx context.Context, paths []string) (*program, error) {
	files, err := l.CollectFiles(paths)
	if err != nil {
		return nil, err
	}
	sources, err := l.readSources(ctx, files)
	if err != nil {
		return nil, err
	}
	return l.parse(ctx, sources)
}

func (l *Linter) parse(ctx context.Context, sources []cfront.Source) (*program, error) {
	tree, err := cfront.ParseProgram(ctx, sources)
	if err != nil {
		return nil, err
	}
	sess := internal.NewSession(tree, l.oracle, l.fix,
		internal.WithLogger(l.logger),
		internal.WithMetrics(l.metrics))
	rules := internal.BuildRules(sess, l.catalogue, l.cfg.Rules, l.ignoredRules).ForStandard(l.cfg.Std)
	l.logger.Debug("rules selected", zap.Strings("rules", rules.IDs()), zap.String("std", l.cfg.Std))

	return &program{
		sources: sources,
		tree:    tree,
		files:   tree.Children(tree.Root()),
		session: sess,
		engine:  internal.NewEngine(sess, rules, internal.WithMaxPasses(l.cfg.MaxPasses)),
	}, nil
}

// issues renders vs, applies configured severities and drops what nolint
// comments silence.
func (l *Linter) issues(p *program, vs []internal.Violation) []tt.Issue {
	nolint := internal.NewNolintManager()
	for i, file := range p.files {
		nolint.ParseNolintComments(p.tree, file, p.sources[i].Content)
	}

	var out []tt.Issue
	for _, issue := range p.session.Store.Issues(vs) {
		if nolint.IsNolint(issue.Filename, issue.Start.Line, issue.Rule) {
			continue
		}
		if c, ok := l.cfg.Rules[issue.Rule]; ok && issue.Severity == tt.SeverityError {
			issue.Severity = c.Severity
		}
		out = append(out, issue)
	}
	return out
}

func (l *Linter) cacheKey(sources []cfront.Source) string {
	contents := make(map[string][]byte, len(sources))
	for _, s := range sources {
		contents[s.Path] = s.Content
	}
	extra := []string{l.cfg.Std}
	extra = append(extra, slices.Sorted(maps.Keys(l.ignoredRules))...)
	for _, id := range slices.Sorted(maps.Keys(l.cfg.Rules)) {
		extra = append(extra, id+"="+l.cfg.Rules[id].Severity.String())
	}
	return internal.CacheKey(contents, extra...)
}

// CheckCompliance reports every violation in the files below paths. The
// files are not modified.
func (l *Linter) CheckCompliance(ctx context.Context, paths []string) ([]tt.Issue, error) {
	files, err := l.CollectFiles(paths)
	if err != nil {
		return nil, err
	}
	sources, err := l.readSources(ctx, files)
	if err != nil {
		return nil, err
	}

	var key string
	if l.cache != nil {
		key = l.cacheKey(sources)
		if issues, ok := l.cache.Get(key); ok {
			l.logger.Debug("report served from cache", zap.Int("files", len(sources)))
			return issues, nil
		}
	}

	p, err := l.parse(ctx, sources)
	if err != nil {
		return nil, err
	}
	report := p.engine.CheckCompliance(p.tree.Root())
	issues := l.issues(p, append(report.Errors, report.Warnings...))
	l.logger.Info("compliance checked",
		zap.Int("files", len(sources)),
		zap.Int("errors", len(report.Errors)),
		zap.Int("warnings", len(report.Warnings)),
		zap.Int("reported", len(issues)))

	if l.cache != nil {
		if err := l.cache.Set(key, issues); err != nil {
			l.logger.Warn("report not cached", zap.Error(err))
		}
	}
	return issues, nil
}

// FixResult describes a correction run.
type FixResult struct {
	internal.Summary
	// Issues are the remaining errors and the warnings of behavior changing
	// fixes. Their positions refer to the files as they were read.
	Issues []tt.Issue
	// Changed lists the files whose content was rewritten.
	Changed   []string
	Converged bool
	// Originals holds the content each file had before the run.
	Originals map[string][]byte
}

// ApplyCorrections rewrites the files below paths until the rules reach a
// fixed point and hands every changed file to fix. Files no rule touched
// are left byte for byte as they were.
func (l *Linter) ApplyCorrections(ctx context.Context, paths []string, fix *fixer.Fixer) (FixResult, error) {
	p, err := l.load(ctx, paths)
	if err != nil {
		return FixResult{}, err
	}

	before := make([]string, len(p.files))
	for i, f := range p.files {
		before[i] = cast.Print(p.tree, f)
	}

	sum, err := p.engine.ApplyCorrections(ctx, p.tree.Root())
	res := FixResult{
		Summary:   sum,
		Converged: err == nil,
		Originals: make(map[string][]byte, len(p.sources)),
	}
	if err != nil && !errors.Is(err, internal.ErrNotConverged) {
		return res, err
	}
	if err != nil {
		l.logger.Error("corrections did not converge", zap.Int("passes", sum.Passes))
	}
	res.Issues = l.issues(p, append(sum.Errors, sum.Warnings...))

	for i, f := range p.files {
		src := p.sources[i]
		res.Originals[src.Path] = src.Content
		after := cast.Print(p.tree, f)
		if after == before[i] {
			continue
		}
		changed, err := fix.Fix(ctx, src.Path, src.Content, []byte(after))
		if err != nil {
			return res, err
		}
		if changed {
			res.Changed = append(res.Changed, src.Path)
		}
	}
	l.logger.Info("corrections applied",
		zap.Int("passes", sum.Passes),
		zap.Int("rewrites", sum.Rewrites),
		zap.Int("errorsBefore", sum.ErrorsBefore),
		zap.Int("errorsAfter", sum.ErrorsAfter),
		zap.Strings("changed", res.Changed))
	return res, nil
}

// Watch checks dirs whenever one of their C files is written, until ctx is
// done. report receives the result of every check.
func (l *Linter) Watch(ctx context.Context, dirs []string, report func([]tt.Issue, error)) error {
	w := internal.NewWatcher(dirs, l.logger.Named("watch"), func(ctx context.Context, changed []string) {
		l.logger.Info("re-checking", zap.Strings("changed", changed))
		report(l.CheckCompliance(ctx, dirs))
	})
	return w.Run(ctx)
}
