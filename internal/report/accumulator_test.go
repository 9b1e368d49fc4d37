package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedAll(t *testing.T, lines []string, targetMatching bool) *Report {
	t.Helper()
	r := New()
	acc := NewAccumulator(r, targetMatching, nil)
	acc.Feed(lines)
	return r
}

func TestAccumulateCompileError(t *testing.T) {
	lines := []string{
		"/Users/dev/App/Sources/Model.swift:10:5: error: cannot find 'foo' in scope",
		"        let x = foo",
		"                ^~~",
		"",
		"** BUILD FAILED **",
	}
	r := feedAll(t, lines, true)

	require.Len(t, r.BuildErrors, 1)
	e := r.BuildErrors[0]
	assert.Equal(t, "/Users/dev/App/Sources/Model.swift", e.Filepath)
	assert.Equal(t, 10, e.Line)
	assert.Equal(t, 5, e.Column)
	assert.Equal(t, []string{"cannot find 'foo' in scope", "let x = foo", "^~~"}, e.Message)
}

func TestMultiLineMessageTerminatedByNextHeader(t *testing.T) {
	lines := []string{
		"/a/b.swift:1:2: error: ",
		"  continuation 1",
		"  continuation 2",
		"",
		"/a/c.swift:5:6: warning: something else",
	}
	r := feedAll(t, lines, true)

	require.Len(t, r.BuildErrors, 1)
	assert.Equal(t, []string{"continuation 1", "continuation 2"}, r.BuildErrors[0].Message)
	require.Len(t, r.Warnings, 1)
	assert.Equal(t, "/a/c.swift", r.Warnings[0].Filepath)
}

func TestHeaderAlwaysTerminatesAccumulation(t *testing.T) {
	lines := []string{
		"/a/b.swift:1:2: error: first",
		"  partial explanation",
		"/a/d.swift:9:1: error: second",
	}
	r := feedAll(t, lines, true)

	require.Len(t, r.BuildErrors, 2)
	assert.Equal(t, []string{"first", "partial explanation"}, r.BuildErrors[0].Message)
	assert.Equal(t, []string{"second"}, r.BuildErrors[1].Message)
}

func TestDuplicateDiagnosticsDeduplicated(t *testing.T) {
	line := "/a/b.swift:1:2: error: boom"
	r := feedAll(t, []string{line, "", line, ""}, true)
	assert.Len(t, r.BuildErrors, 1)
}

func TestChunkBoundaryIndependence(t *testing.T) {
	lines := []string{
		"Test Suite 'MathTests' started at 2024-01-15 10:30:45.125",
		"Test Case '-[AppTests.MathTests testAdd]' started.",
		"Test Case '-[AppTests.MathTests testAdd]' passed (0.001 seconds).",
		"Test Case '-[AppTests.MathTests testDivide]' started.",
		"/Users/dev/App/Tests/MathTests.swift:42: error: -[AppTests.MathTests testDivide] : XCTAssertEqual failed",
		"  (\"1\") is not equal to (\"2\")",
		"Test Case '-[AppTests.MathTests testDivide]' failed (0.030 seconds).",
		"/a/b.swift:1:2: error: boom",
		"  because reasons",
		"",
		"** TEST FAILED **",
	}

	whole := feedAll(t, lines, true)

	// Re-feed the same sequence split at every possible boundary.
	for split := 1; split < len(lines); split++ {
		r := New()
		acc := NewAccumulator(r, true, nil)
		acc.Feed(lines[:split])
		acc.Feed(lines[split:])
		assert.Equal(t, whole, r, "split at %d diverged", split)
	}
}

func TestXCTestRunCountsAndFailureDetails(t *testing.T) {
	lines := []string{
		"Test Suite 'MathTests' started at 2024-01-15 10:30:45.125",
		"Test Case '-[AppTests.MathTests testAdd]' started.",
		"Test Case '-[AppTests.MathTests testAdd]' passed (0.001 seconds).",
		"Test Case '-[AppTests.MathTests testDivide]' started.",
		"/Users/dev/App/Tests/MathTests.swift:42: error: -[AppTests.MathTests testDivide] : XCTAssertEqual failed",
		"Test Case '-[AppTests.MathTests testDivide]' failed (0.030 seconds).",
	}
	r := feedAll(t, lines, true)

	assert.Equal(t, 2, r.TestsCount)
	assert.Equal(t, 1, r.FailedTestsCount)

	results := r.Tests["AppTests:MathTests"]
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.Equal(t, "testAdd", results[0].Name)

	failed := results[1]
	assert.False(t, failed.Success)
	assert.Equal(t, "/Users/dev/App/Tests/MathTests.swift", failed.Filepath)
	assert.Equal(t, 42, failed.Line)
	assert.Equal(t, []string{"XCTAssertEqual failed"}, failed.Message)
}

func TestSwiftTestingUsesPlaceholderTarget(t *testing.T) {
	lines := []string{
		"◇ Test run started.",
		`◇ Suite "MathSuite" started.`,
		"◇ Test adds() started.",
		"✔ Test adds() passed after 0.001 seconds.",
		"✘ Test divides() recorded an issue at MathSuite.swift:12:9: Expectation failed",
		"✘ Test divides() failed after 0.002 seconds with 1 issue.",
	}
	r := feedAll(t, lines, true)

	assert.True(t, r.UsesSwiftTesting)
	key := ClassKey(PlaceholderTarget, "MathSuite", true)
	results := r.Tests[key]
	require.Len(t, results, 2)
	assert.Equal(t, "adds", results[0].Name)
	assert.False(t, results[1].Success)
	assert.Equal(t, "MathSuite.swift", results[1].Filepath)
	assert.Equal(t, 12, results[1].Line)
}

func TestTargetMatchingDisabledKeysByClassOnly(t *testing.T) {
	lines := []string{
		"Test Case '-[AppTests.MathTests testAdd]' started.",
		"Test Case '-[AppTests.MathTests testAdd]' passed (0.001 seconds).",
	}
	r := feedAll(t, lines, false)
	_, ok := r.Tests["MathTests"]
	assert.True(t, ok)
}

func TestResultBundlePathSetOnce(t *testing.T) {
	lines := []string{
		"Test session results, code coverage, and logs:",
		"\t/Users/dev/Logs/Test-First.xcresult",
		"\t/Users/dev/Logs/Test-Second.xcresult",
	}
	r := feedAll(t, lines, true)
	assert.Equal(t, "/Users/dev/Logs/Test-First.xcresult", r.ResultBundlePath)
}

func TestCrashedTestSynthesizedAsFailure(t *testing.T) {
	lines := []string{
		"Test Case '-[AppTests.MathTests testCrash]' started.",
		"Fatal error: Unexpectedly found nil while unwrapping an Optional value",
		"Restarting after unexpected exit, crash, or test timeout in MathTests.testCrash; summary will include totals from previous launches.",
	}
	r := feedAll(t, lines, true)

	assert.Equal(t, 1, r.TestsCount)
	assert.Equal(t, 1, r.FailedTestsCount)
	results := r.Tests["MathTests"]
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	require.NotEmpty(t, results[0].Message)
	assert.Contains(t, results[0].Message[0], "Fatal error")
}

func TestMalformedInputNeverPanicsOrPollutes(t *testing.T) {
	lines := []string{
		"random chatter",
		"\x1b[31mweird ansi-ish noise\x1b[0m",
		":::::",
		"12345",
	}
	r := feedAll(t, lines, true)
	assert.Empty(t, r.BuildErrors)
	assert.Empty(t, r.Warnings)
	assert.Equal(t, 0, r.TestsCount)
}

func TestCounterMonotonicity(t *testing.T) {
	r := New()
	acc := NewAccumulator(r, true, nil)

	chunks := [][]string{
		{"Test Case '-[T.C a]' started.", "Test Case '-[T.C a]' passed (0.001 seconds)."},
		{"Test Case '-[T.C b]' started."},
		{"Test Case '-[T.C b]' failed (0.002 seconds)."},
	}
	prevTests, prevFailed := 0, 0
	for _, chunk := range chunks {
		acc.Feed(chunk)
		assert.GreaterOrEqual(t, r.TestsCount, prevTests)
		assert.GreaterOrEqual(t, r.FailedTestsCount, prevFailed)
		prevTests, prevFailed = r.TestsCount, r.FailedTestsCount
	}
	assert.Equal(t, 2, r.TestsCount)
	assert.Equal(t, 1, r.FailedTestsCount)
}

func TestTestEventCallbackOrder(t *testing.T) {
	r := New()
	acc := NewAccumulator(r, true, nil)

	var events []TestEvent
	acc.OnTestEvent(func(ev TestEvent) { events = append(events, ev) })

	acc.Feed([]string{
		"Test Case '-[T.C a]' started.",
		"Test Case '-[T.C a]' passed (0.001 seconds).",
	})

	require.Len(t, events, 2)
	assert.Equal(t, TestRunning, events[0].Status)
	assert.Equal(t, TestPassed, events[1].Status)
	assert.Equal(t, "T", events[1].Target)
	assert.Equal(t, "C", events[1].Class)
	assert.Equal(t, "a", events[1].Name)
}
