package report

import (
	"fmt"
	"strings"

	"github.com/xcflow/xcflow/internal/parser"
)

// Logger is the logging surface the accumulator needs.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// TestStatus is the live status forwarded to explorer consumers as test
// events are classified, independent of the full Report.
type TestStatus string

const (
	TestRunning TestStatus = "running"
	TestPassed  TestStatus = "passed"
	TestFailed  TestStatus = "failed"
)

// TestEvent is a per-test status notification emitted during accumulation.
type TestEvent struct {
	Target string // empty when the streamed output omits it
	Class  string
	Name   string
	Status TestStatus
}

type activeTest struct {
	framework parser.Framework
	target    string
	class     string
	name      string
}

// failureBuf collects location and message lines for a test whose terminal
// fail event has not arrived yet.
type failureBuf struct {
	filepath string
	line     int
	message  []string
}

// Accumulator consumes classified output lines and mutates a Report. Feeding
// is chunk-boundary independent: any split of the same line sequence yields
// the same final Report. Lines must never be split across Feed calls.
type Accumulator struct {
	report         *Report
	targetMatching bool
	logger         Logger
	onTestEvent    func(TestEvent)

	pendingDiag *Diagnostic
	pendingWarn bool
	pendingDup  bool
	seenDiags   map[string]bool

	currentSuite string
	active       *activeTest
	failures     map[string]*failureBuf
	openFailure  *failureBuf
}

// NewAccumulator creates an Accumulator writing into the given Report.
func NewAccumulator(r *Report, targetMatching bool, logger Logger) *Accumulator {
	return &Accumulator{
		report:         r,
		targetMatching: targetMatching,
		logger:         logger,
		seenDiags:      make(map[string]bool),
		failures:       make(map[string]*failureBuf),
	}
}

// OnTestEvent registers a callback invoked for every classified test start
// and terminal event, in stream order.
func (a *Accumulator) OnTestEvent(fn func(TestEvent)) {
	a.onTestEvent = fn
}

// Report returns the report under accumulation.
func (a *Accumulator) Report() *Report {
	return a.report
}

// Feed consumes the next ordered chunk of raw output lines.
func (a *Accumulator) Feed(lines []string) {
	for _, line := range lines {
		a.apply(parser.Classify(line))
	}
}

func (a *Accumulator) apply(ev parser.Event) {
	switch ev := ev.(type) {
	case parser.Blank:
		a.finalizeDiag()
		a.openFailure = nil

	case parser.ToolStep:
		a.finalizeDiag()
		a.openFailure = nil

	case parser.Continuation:
		text := strings.TrimSpace(ev.Text)
		switch {
		case a.pendingDiag != nil:
			a.pendingDiag.Message = append(a.pendingDiag.Message, text)
		case a.openFailure != nil:
			a.openFailure.message = append(a.openFailure.message, text)
		default:
			// Unattached free-form output is noise by design.
		}

	case parser.Diagnostic:
		a.startDiagnostic(ev)

	case parser.LinkerError:
		a.startLinkerError(ev)

	case parser.TestSuiteStarted:
		a.finalizeDiag()
		if ev.Framework == parser.FrameworkSwiftTesting {
			a.report.UsesSwiftTesting = true
			a.currentSuite = ev.Name
		} else if suiteIsClass(ev.Name) {
			a.currentSuite = ev.Name
		}

	case parser.TestSuiteFinished:
		if ev.Framework == parser.FrameworkSwiftTesting {
			a.report.UsesSwiftTesting = true
		}
		if ev.Name != "" && ev.Name == a.currentSuite {
			a.currentSuite = ""
		}

	case parser.TestCaseStarted:
		a.finalizeDiag()
		target, class := a.testIdentity(ev.TestCase)
		a.active = &activeTest{framework: ev.Framework, target: target, class: class, name: ev.Name}
		a.emit(TestEvent{Target: target, Class: class, Name: ev.Name, Status: TestRunning})

	case parser.TestCasePassed:
		a.recordResult(ev.TestCase, true)

	case parser.TestCaseFailed:
		a.recordResult(ev.TestCase, false)

	case parser.TestFailureLocation:
		a.finalizeDiag()
		class := ev.Class
		if class == "" && ev.Framework == parser.FrameworkSwiftTesting {
			class = a.currentSuite
		}
		fb := a.failureFor(class, ev.Name)
		if fb.filepath == "" && ev.Filepath != "" {
			fb.filepath = ev.Filepath
			fb.line = ev.Line
		}
		if ev.Message != "" {
			fb.message = append(fb.message, ev.Message)
		}
		a.openFailure = fb

	case parser.CrashSignal:
		if a.active != nil {
			fb := a.failureFor(a.active.class, a.active.name)
			fb.message = append(fb.message, ev.Description)
			a.openFailure = fb
		}

	case parser.RestartMarker:
		// The crashed test never gets a terminal line; synthesize one.
		a.recordResult(parser.TestCase{
			Framework: parser.FrameworkXCTest,
			Class:     ev.Class,
			Name:      ev.Name,
		}, false)

	case parser.BuildOutcome:
		a.finalizeDiag()
		a.openFailure = nil

	case parser.ResultBundle:
		if a.report.ResultBundlePath == "" {
			a.report.ResultBundlePath = ev.Path
		}
	}
}

func (a *Accumulator) startDiagnostic(ev parser.Diagnostic) {
	a.finalizeDiag()
	a.openFailure = nil

	key := diagKey(ev.Filepath, ev.Line, ev.Column, ev.Warning, ev.Message)
	a.pendingDup = a.seenDiags[key]
	a.seenDiags[key] = true

	diag := &Diagnostic{
		Filepath: ev.Filepath,
		Line:     ev.Line,
		Column:   ev.Column,
		Message:  make([]string, 0, 1),
	}
	if ev.Message != "" {
		diag.Message = append(diag.Message, ev.Message)
	}
	a.pendingDiag = diag
	a.pendingWarn = ev.Warning
}

func (a *Accumulator) startLinkerError(ev parser.LinkerError) {
	a.finalizeDiag()
	a.openFailure = nil

	key := diagKey("", 0, 0, false, ev.Message)
	a.pendingDup = a.seenDiags[key]
	a.seenDiags[key] = true

	a.pendingDiag = &Diagnostic{Message: []string{ev.Message}}
	a.pendingWarn = false
}

// finalizeDiag closes the in-progress diagnostic, if any. A line that looks
// like a new header always lands here first, even when the previous message
// appeared incomplete.
func (a *Accumulator) finalizeDiag() {
	if a.pendingDiag == nil {
		return
	}
	diag := *a.pendingDiag
	a.pendingDiag = nil
	if a.pendingDup {
		a.pendingDup = false
		return
	}
	if a.pendingWarn {
		a.report.Warnings = append(a.report.Warnings, diag)
	} else {
		a.report.BuildErrors = append(a.report.BuildErrors, diag)
	}
}

func (a *Accumulator) testIdentity(tc parser.TestCase) (target, class string) {
	target = tc.Target
	class = tc.Class
	if tc.Framework == parser.FrameworkSwiftTesting {
		target = PlaceholderTarget
		if class == "" {
			class = a.currentSuite
		}
	}
	return target, class
}

func (a *Accumulator) recordResult(tc parser.TestCase, success bool) {
	a.finalizeDiag()
	target, class := a.testIdentity(tc)

	tr := TestResult{
		Target:  target,
		Class:   class,
		Name:    tc.Name,
		Success: success,
		Time:    tc.Time,
	}
	fkey := failureKey(class, tc.Name)
	if fb, ok := a.failures[fkey]; ok {
		tr.Filepath = fb.filepath
		tr.Line = fb.line
		tr.Message = fb.message
		delete(a.failures, fkey)
	}

	key := ClassKey(target, class, a.targetMatching)
	a.report.Tests[key] = append(a.report.Tests[key], tr)
	a.report.TestsCount++
	status := TestPassed
	if !success {
		a.report.FailedTestsCount++
		status = TestFailed
	}

	a.active = nil
	a.openFailure = nil
	a.emit(TestEvent{Target: target, Class: class, Name: tc.Name, Status: status})
}

func (a *Accumulator) failureFor(class, name string) *failureBuf {
	key := failureKey(class, name)
	fb, ok := a.failures[key]
	if !ok {
		fb = &failureBuf{}
		a.failures[key] = fb
	}
	return fb
}

func (a *Accumulator) emit(ev TestEvent) {
	if a.onTestEvent != nil {
		a.onTestEvent(ev)
	}
	if a.logger != nil {
		a.logger.Debug("test event: %s/%s/%s -> %s", ev.Target, ev.Class, ev.Name, ev.Status)
	}
}

// suiteIsClass filters XCTest suite names that are containers rather than
// test classes ('All tests', 'Selected tests', '*.xctest' bundles).
func suiteIsClass(name string) bool {
	if name == "" || strings.Contains(name, " ") {
		return false
	}
	return !strings.HasSuffix(name, ".xctest")
}

func diagKey(filepath string, line, column int, warning bool, message string) string {
	if filepath == "" {
		return fmt.Sprintf("msg:%t:%s", warning, message)
	}
	return fmt.Sprintf("%s:%d:%d:%t", filepath, line, column, warning)
}

func failureKey(class, name string) string {
	return class + "/" + name
}
