// Package orchestrator ties the parsing, resolution and explorer pieces
// together for one editor session. The session owns the current report and
// consumes output-chunk and exit callbacks from whoever runs the process; it
// never spawns processes itself.
package orchestrator

import (
	"context"

	"github.com/google/uuid"

	"github.com/xcflow/xcflow/internal/config"
	"github.com/xcflow/xcflow/internal/explorer"
	"github.com/xcflow/xcflow/internal/report"
	"github.com/xcflow/xcflow/internal/resolver"
	"github.com/xcflow/xcflow/internal/xcresult"
)

// Logger is the logging surface the session needs.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// JobID identifies one build or test invocation. Callbacks carry the id so
// output arriving after cancellation is dropped instead of corrupting the
// next run's report.
type JobID = uuid.UUID

// Options configures a Session.
type Options struct {
	Config       *config.Config
	SymbolClient resolver.SymbolClient
	BundleLoader xcresult.BundleLoader
	Logger       Logger
}

// Session is the per-editor-session state machine: current report, the
// accumulator feeding it, the explorer tree and the resolver caches.
type Session struct {
	cfg      *config.Config
	logger   Logger
	explorer *explorer.Tree
	resolver *resolver.Resolver
	rec      *xcresult.Reconciler

	report *report.Report
	acc    *report.Accumulator

	currentJob JobID
	jobActive  bool
	testing    bool // current job runs tests, not just a build
}

// NewSession creates a session for the given configuration.
func NewSession(opts Options) *Session {
	res := resolver.New(resolver.Options{
		ProjectRoot:    opts.Config.ProjectRoot,
		BuildDir:       opts.Config.BuildDir,
		Strategy:       opts.Config.Strategy,
		SymbolTimeout:  opts.Config.SymbolTimeout,
		TargetMatching: opts.Config.TargetMatching,
		SymbolClient:   opts.SymbolClient,
		Logger:         opts.Logger,
	})
	s := &Session{
		cfg:      opts.Config,
		logger:   opts.Logger,
		explorer: explorer.NewTree(opts.Logger),
		resolver: res,
		rec: &xcresult.Reconciler{
			Loader:         opts.BundleLoader,
			Resolver:       res,
			ProjectRoot:    opts.Config.ProjectRoot,
			TargetMatching: opts.Config.TargetMatching,
			Logger:         opts.Logger,
		},
	}
	s.restore()
	return s
}

// Explorer returns the session's test explorer tree.
func (s *Session) Explorer() *explorer.Tree {
	return s.explorer
}

// Resolver returns the session's resolver.
func (s *Session) Resolver() *resolver.Resolver {
	return s.resolver
}

// Report returns the report of the current or most recent invocation.
func (s *Session) Report() *report.Report {
	return s.report
}

// LoadTests replaces the explorer tree from a fresh enumeration.
func (s *Session) LoadTests(items []explorer.TestItem) {
	s.explorer.LoadTests(items)
}

// StartBuild begins a build-only invocation and returns its job id. Any
// previous job becomes stale immediately.
func (s *Session) StartBuild() JobID {
	return s.begin(false, nil)
}

// StartTests begins a test invocation covering the selected explorer ids
// (nil means every enabled test) and returns its job id.
func (s *Session) StartTests(selected []string) JobID {
	return s.begin(true, selected)
}

func (s *Session) begin(testing bool, selected []string) JobID {
	s.currentJob = uuid.New()
	s.jobActive = true
	s.testing = testing

	s.report = report.New()
	s.acc = report.NewAccumulator(s.report, s.cfg.TargetMatching, s.logger)
	if testing {
		s.acc.OnTestEvent(s.onTestEvent)
		s.explorer.StartTests(selected)
	}

	if s.logger != nil {
		s.logger.Info("job %s started (testing=%t)", s.currentJob, testing)
	}
	return s.currentJob
}

// OnOutputChunk feeds the next ordered chunk of process output. Chunks from
// a stale job are dropped.
func (s *Session) OnOutputChunk(job JobID, lines []string) {
	if !s.jobActive || job != s.currentJob {
		if s.logger != nil {
			s.logger.Debug("dropping %d lines from stale job %s", len(lines), job)
		}
		return
	}
	s.acc.Feed(lines)
}

// OnExit completes the job. The configured cancel exit code ends the run
// without treating it as a failure; any other outcome reconciles the report
// against the result bundle and persists both report and explorer state.
func (s *Session) OnExit(ctx context.Context, job JobID, code int) {
	if !s.jobActive || job != s.currentJob {
		if s.logger != nil {
			s.logger.Debug("ignoring exit %d from stale job %s", code, job)
		}
		return
	}
	s.jobActive = false

	cancelled := code == s.cfg.CancelExitCode
	if s.testing {
		s.explorer.FinishTests()
	}

	if cancelled {
		if s.logger != nil {
			s.logger.Info("job %s cancelled", job)
		}
		s.persist()
		return
	}

	// A fresh build may have rewritten the file-list artifacts.
	s.resolver.InvalidateTargets()
	s.resolver.ClearCache()

	if s.testing {
		s.rec.Reconcile(ctx, s.report)
	}
	if code != 0 && !s.report.HasBuildFailures() && s.report.FailedTestsCount == 0 {
		if s.logger != nil {
			s.logger.Error("job %s exited with %d but no failure was parsed from its output", job, code)
		}
	}
	s.persist()
	if s.logger != nil {
		s.logger.Info("job %s finished with exit code %d (%d tests, %d failed, %d build errors)",
			job, code, s.report.TestsCount, s.report.FailedTestsCount, len(s.report.BuildErrors))
	}
}

func (s *Session) onTestEvent(ev report.TestEvent) {
	target := ev.Target
	if target == report.PlaceholderTarget {
		// Swift Testing output omits the target; match by class/name suffix.
		target = ""
	}
	class := ev.Class
	if class == "" {
		class = report.GlobalTestsClass
	}

	var status explorer.Status
	switch ev.Status {
	case report.TestRunning:
		status = explorer.StatusRunning
	case report.TestFailed:
		status = explorer.StatusFailed
	default:
		status = explorer.StatusPassed
	}
	if !s.explorer.UpdateStatusByParts(target, class, ev.Name, status) {
		// Incrementally discovered test with no enumerated node yet; grow
		// the tree under the placeholder target rather than lose the status.
		s.explorer.UpdateStatus(report.PlaceholderTarget+"/"+class+"/"+ev.Name, status)
	}
}

func (s *Session) persist() {
	if s.report != nil {
		if err := report.Save(s.report, s.cfg.StateDir); err != nil && s.logger != nil {
			s.logger.Error("failed to persist report: %v", err)
		}
	}
	if err := s.explorer.Save(s.cfg.StateDir); err != nil && s.logger != nil {
		s.logger.Error("failed to persist explorer state: %v", err)
	}
}

func (s *Session) restore() {
	if err := s.explorer.LoadState(s.cfg.StateDir); err != nil && s.logger != nil {
		s.logger.Error("failed to restore explorer state: %v", err)
	}
	if rep, err := report.Load(s.cfg.StateDir); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to restore report: %v", err)
		}
	} else if rep != nil {
		s.report = rep
	}
}
