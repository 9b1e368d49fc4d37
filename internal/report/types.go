// Package report normalizes streamed xcodebuild output into a queryable
// Report: build diagnostics, per-class test results and running counters.
package report

import "fmt"

// PlaceholderTarget keys Swift Testing results whose owning module is not
// known from streamed output. Reconciliation against the result bundle
// rewrites these keys after the run.
const PlaceholderTarget = "_swiftTesting"

// GlobalTestsClass is the synthetic class grouping Swift Testing functions
// declared outside any suite.
const GlobalTestsClass = "Global Tests"

// Diagnostic is one build error or warning. Filepath may be empty for
// summary-only diagnostics (e.g. "error: no such module"); those cannot be
// placed in a quickfix list.
type Diagnostic struct {
	Filepath string   `json:"filepath,omitempty"`
	Line     int      `json:"lineNumber,omitempty"`
	Column   int      `json:"columnNumber,omitempty"`
	Message  []string `json:"message"`
}

// TestResult is the terminal outcome of a single test. Success is only
// meaningful once the test finished; cancelled runs are reported through the
// explorer node status instead.
type TestResult struct {
	Target         string   `json:"target"`
	Class          string   `json:"class"`
	Name           string   `json:"name"`
	Success        bool     `json:"success"`
	Time           string   `json:"time,omitempty"`
	Filepath       string   `json:"filepath,omitempty"`
	Line           int      `json:"lineNumber,omitempty"`
	Message        []string `json:"message,omitempty"`
	SwiftTestingID string   `json:"swiftTestingId,omitempty"`
}

// Report is the normalized outcome of one build or test invocation. It is
// created fresh per invocation and mutated line-by-line by the Accumulator.
type Report struct {
	BuildErrors      []Diagnostic            `json:"buildErrors"`
	Warnings         []Diagnostic            `json:"warnings"`
	Tests            map[string][]TestResult `json:"tests"`
	TestsCount       int                     `json:"testsCount"`
	FailedTestsCount int                     `json:"failedTestsCount"`
	ResultBundlePath string                  `json:"resultBundlePath,omitempty"`
	UsesSwiftTesting bool                    `json:"usesSwiftTesting"`
}

// New returns an empty Report ready for accumulation.
func New() *Report {
	return &Report{
		BuildErrors: make([]Diagnostic, 0),
		Warnings:    make([]Diagnostic, 0),
		Tests:       make(map[string][]TestResult),
	}
}

// ClassKey builds the key for the Tests map: "<target>:<class>", or just
// "<class>" when target matching is disabled. Duplicate class names across
// targets collide in the latter mode; last write wins per key.
func ClassKey(target, class string, targetMatching bool) string {
	if !targetMatching || target == "" {
		return class
	}
	return fmt.Sprintf("%s:%s", target, class)
}

// FailedTests returns all failed results across classes, in map iteration
// order within stable per-class order.
func (r *Report) FailedTests() []TestResult {
	var failed []TestResult
	for _, results := range r.Tests {
		for _, tr := range results {
			if !tr.Success {
				failed = append(failed, tr)
			}
		}
	}
	return failed
}

// HasBuildFailures reports whether any build error was parsed.
func (r *Report) HasBuildFailures() bool {
	return len(r.BuildErrors) > 0
}
