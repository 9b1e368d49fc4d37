// Package parser classifies single lines of xcodebuild output into typed
// events. Classification is stateless; callers own multi-line accumulation.
package parser

// Framework identifies which test framework produced a test event.
type Framework string

const (
	FrameworkXCTest       Framework = "xctest"
	FrameworkSwiftTesting Framework = "swift_testing"
)

// Kind tags a classified event.
type Kind int

const (
	KindNoise Kind = iota
	KindBlank
	KindContinuation
	KindToolStep
	KindCompileError
	KindCompileWarning
	KindLinkerError
	KindTestSuiteStarted
	KindTestSuiteFinished
	KindTestCaseStarted
	KindTestCasePassed
	KindTestCaseFailed
	KindTestFailureLocation
	KindCrashSignal
	KindRestartMarker
	KindBuildOutcome
	KindResultBundle
)

// Event is the tagged union over classified line shapes.
type Event interface {
	Kind() Kind
}

// Blank marks an empty line. It terminates multi-line message accumulation.
type Blank struct{}

func (Blank) Kind() Kind { return KindBlank }

// Continuation is a line belonging to the previous event's message buffer.
type Continuation struct {
	Text string
}

func (Continuation) Kind() Kind { return KindContinuation }

// ToolStep is a recognized build-step header (CompileSwift, Ld, CodeSign...).
// It carries no data but terminates accumulation like a new diagnostic would.
type ToolStep struct {
	Text string
}

func (ToolStep) Kind() Kind { return KindToolStep }

// Diagnostic is a compiler error or warning header line.
type Diagnostic struct {
	Warning  bool
	Filepath string // empty for summary-only diagnostics
	Line     int
	Column   int
	Message  string
}

func (d Diagnostic) Kind() Kind {
	if d.Warning {
		return KindCompileWarning
	}
	return KindCompileError
}

// LinkerError is a linker failure header (ld:, Undefined symbols, clang:).
type LinkerError struct {
	Message string
}

func (LinkerError) Kind() Kind { return KindLinkerError }

// TestSuiteStarted announces a suite/class beginning execution.
type TestSuiteStarted struct {
	Framework Framework
	Name      string
}

func (TestSuiteStarted) Kind() Kind { return KindTestSuiteStarted }

// TestSuiteFinished announces a suite's terminal state.
type TestSuiteFinished struct {
	Framework Framework
	Name      string
	Passed    bool
}

func (TestSuiteFinished) Kind() Kind { return KindTestSuiteFinished }

// TestCase is the shared shape of test start/pass/fail events. Target is
// empty when the framework's streamed output omits it (Swift Testing, and
// the macOS XCTest line format).
type TestCase struct {
	Framework Framework
	Target    string
	Class     string // empty for Swift Testing global tests
	Name      string
	Time      string // duration text, terminal events only
}

// TestCaseStarted marks a test beginning execution.
type TestCaseStarted struct{ TestCase }

func (TestCaseStarted) Kind() Kind { return KindTestCaseStarted }

// TestCasePassed marks a test finishing successfully.
type TestCasePassed struct{ TestCase }

func (TestCasePassed) Kind() Kind { return KindTestCasePassed }

// TestCaseFailed marks a test finishing with a failure.
type TestCaseFailed struct{ TestCase }

func (TestCaseFailed) Kind() Kind { return KindTestCaseFailed }

// TestFailureLocation carries the file/line and message of an assertion or
// recorded issue, emitted separately from the terminal fail event.
type TestFailureLocation struct {
	Framework Framework
	Target    string
	Class     string
	Name      string
	Filepath  string
	Line      int
	Message   string
}

func (TestFailureLocation) Kind() Kind { return KindTestFailureLocation }

// CrashSignal marks a crash-style failure (signal, fatal error).
type CrashSignal struct {
	Description string
}

func (CrashSignal) Kind() Kind { return KindCrashSignal }

// RestartMarker is XCTest's post-crash restart notice, naming the test that
// took the runner down.
type RestartMarker struct {
	Class string
	Name  string
}

func (RestartMarker) Kind() Kind { return KindRestartMarker }

// BuildOutcome is the ** BUILD SUCCEEDED ** style terminal marker.
type BuildOutcome struct {
	Action    string // BUILD, TEST, CLEAN, ARCHIVE
	Succeeded bool
}

func (BuildOutcome) Kind() Kind { return KindBuildOutcome }

// ResultBundle carries the path of the .xcresult bundle once printed.
type ResultBundle struct {
	Path string
}

func (ResultBundle) Kind() Kind { return KindResultBundle }
