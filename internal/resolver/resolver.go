// Package resolver maps test classes to the source files that declare them,
// using a configurable chain of filename-index and symbol-server lookups
// with positive and negative caching.
package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/xcflow/xcflow/internal/config"
)

// Logger is the logging surface the resolver needs.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Options configures a Resolver.
type Options struct {
	ProjectRoot    string
	BuildDir       string
	Strategy       config.SearchStrategy
	SymbolTimeout  time.Duration
	TargetMatching bool
	SymbolClient   SymbolClient
	Logger         Logger
}

type cacheKey struct {
	target string
	class  string
}

// Resolver answers "which file declares this class" for the accumulator and
// the result-bundle post-processor. Lookups are expensive, so both hits and
// misses are cached until ClearCache.
type Resolver struct {
	index       *FilenameIndex
	targets     *TargetMap
	symbols     SymbolClient
	strategy    config.SearchStrategy
	timeout     time.Duration
	matchTarget bool
	cache       map[cacheKey]string
	logger      Logger
}

// New creates a resolver. The filename index and target map are built lazily
// on first use.
func New(opts Options) *Resolver {
	timeout := opts.SymbolTimeout
	if timeout <= 0 {
		timeout = 200 * time.Millisecond
	}
	return &Resolver{
		index:       NewFilenameIndex(opts.ProjectRoot),
		targets:     NewTargetMap(opts.BuildDir, opts.Logger),
		symbols:     opts.SymbolClient,
		strategy:    opts.Strategy,
		timeout:     timeout,
		matchTarget: opts.TargetMatching,
		cache:       make(map[cacheKey]string),
		logger:      opts.Logger,
	}
}

// ResolveFilepath returns the source file declaring className, or "" when no
// strategy finds one. target narrows candidates to members of that build
// target when target matching is enabled; pass "" when unknown.
func (r *Resolver) ResolveFilepath(ctx context.Context, target, className string) string {
	if className == "" {
		return ""
	}

	key := cacheKey{target, className}
	if path, ok := r.cache[key]; ok {
		return path
	}

	path, indeterminate := r.resolve(ctx, target, className)
	if !indeterminate {
		r.cache[key] = path
	}
	return path
}

// FindTargetForFile returns the first build target whose file list contains
// path, or "" when none does.
func (r *Resolver) FindTargetForFile(path string) string {
	return r.targets.TargetForFile(path)
}

// ClearCache drops all cached resolutions, typically after a new build.
func (r *Resolver) ClearCache() {
	r.cache = make(map[cacheKey]string)
	r.index.Rebuild()
}

// InvalidateTargets drops the target map so it is rebuilt from the latest
// build artifacts.
func (r *Resolver) InvalidateTargets() {
	r.targets.Invalidate()
}

// WatchBuildDir keeps the target map fresh while the editor session runs.
func (r *Resolver) WatchBuildDir(ctx context.Context) error {
	return r.targets.Watch(ctx)
}

type lookupFn func(ctx context.Context, target, className string) ([]string, error)

func (r *Resolver) resolve(ctx context.Context, target, className string) (path string, indeterminate bool) {
	var chain []lookupFn
	switch r.strategy {
	case config.StrategyFilename:
		chain = []lookupFn{r.byFilename}
	case config.StrategySymbol:
		chain = []lookupFn{r.bySymbol}
	case config.StrategySymbolThenFilename:
		chain = []lookupFn{r.bySymbol, r.byFilename}
	default:
		chain = []lookupFn{r.byFilename, r.bySymbol}
	}

	for _, lookup := range chain {
		candidates, err := lookup(ctx, target, className)
		if err != nil {
			if errors.Is(err, errSymbolTimeout) {
				indeterminate = true
				if r.logger != nil {
					r.logger.Debug("symbol lookup for %s timed out after %s", className, r.timeout)
				}
				continue
			}
			if r.logger != nil {
				r.logger.Error("lookup for %s failed: %v", className, err)
			}
			continue
		}
		if len(candidates) > 0 {
			return candidates[0], false
		}
	}
	return "", indeterminate
}

func (r *Resolver) byFilename(_ context.Context, target, className string) ([]string, error) {
	return r.filterByTarget(target, r.index.Lookup(className)), nil
}

func (r *Resolver) bySymbol(ctx context.Context, target, className string) ([]string, error) {
	paths, err := querySymbols(ctx, r.symbols, className, r.timeout)
	if err != nil {
		return nil, err
	}
	return r.filterByTarget(target, paths), nil
}

func (r *Resolver) filterByTarget(target string, candidates []string) []string {
	if !r.matchTarget || target == "" || len(candidates) == 0 {
		return candidates
	}
	var out []string
	for _, c := range candidates {
		if r.targets.Contains(target, c) {
			out = append(out, c)
		}
	}
	return out
}
