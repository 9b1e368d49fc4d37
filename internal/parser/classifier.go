package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// Line shapes for the XCTest vocabulary. xcodebuild emits two formats for
// test case lines: the ObjC selector form '-[Target.Class test]' and the
// bare 'Class.test' form, depending on platform and Xcode version.
var (
	xctestCaseSelectorRe = regexp.MustCompile(`^Test Case '-\[(\S+)\.(\S+) ([^\]]+)\]' (started|passed|failed)(?: \(([\d.]+) seconds\))?\.$`)
	xctestCaseBareRe     = regexp.MustCompile(`^Test Case '([^'.]+)\.([^']+)' (started|passed|failed)(?: \(([\d.]+) seconds\))?\.$`)
	xctestSuiteRe        = regexp.MustCompile(`^Test Suite '([^']+)' (started|passed|failed) at .*$`)
	xctestFailSelectorRe = regexp.MustCompile(`^(.+?):(\d+): error: -\[(\S+)\.(\S+) ([^\]]+)\] : (.*)$`)
	xctestFailBareRe     = regexp.MustCompile(`^(.+?):(\d+): error: (\w+)\.(\w+) : (.*)$`)
	xctestRestartRe      = regexp.MustCompile(`^Restarting after unexpected exit, crash, or test timeout in (\S+)\.([^;]+);`)
)

// Line shapes for the Swift Testing vocabulary. Its streamed output never
// names the owning module; that attribution happens post-run from the
// result bundle.
var (
	swiftRunStartedRe   = regexp.MustCompile(`^◇ Test run started\.$`)
	swiftRunFinishedRe  = regexp.MustCompile(`^([✔✘]) Test run with \d+ tests?(?: .*)? (passed|failed) after ([\d.]+) seconds.*$`)
	swiftSuiteStartedRe = regexp.MustCompile(`^◇ Suite "?([^"]+?)"? started\.$`)
	swiftSuiteEndedRe   = regexp.MustCompile(`^([✔✘]) Suite "?([^"]+?)"? (passed|failed) after ([\d.]+) seconds.*$`)
	swiftTestStartedRe  = regexp.MustCompile(`^◇ Test "?([^"]+?)"? started\.$`)
	swiftTestPassedRe   = regexp.MustCompile(`^✔ Test "?([^"]+?)"? passed after ([\d.]+) seconds\.$`)
	swiftTestFailedRe   = regexp.MustCompile(`^✘ Test "?([^"]+?)"? failed after ([\d.]+) seconds with \d+ issues?\.$`)
	swiftTestIssueRe    = regexp.MustCompile(`^✘ Test "?([^"]+?)"? recorded an issue at ([^:]+):(\d+):(\d+): (.*)$`)
	swiftTestIssueBare  = regexp.MustCompile(`^✘ Test "?([^"]+?)"? recorded an issue\b.*$`)
)

// Build diagnostics and run-level markers.
var (
	diagWithColumnRe = regexp.MustCompile(`^(.+?):(\d+):(\d+): (error|warning): (.*)$`)
	diagNoColumnRe   = regexp.MustCompile(`^(.+?):(\d+): (error|warning): (.*)$`)
	diagBareRe       = regexp.MustCompile(`^(error|warning): (.*)$`)
	diagToolRe       = regexp.MustCompile(`^xcodebuild: (error|warning): (.*)$`)
	linkerRe         = regexp.MustCompile(`^(?:ld: (.*)|Undefined symbols? for architecture (.*)|clang: error: (linker .*))$`)
	outcomeRe        = regexp.MustCompile(`^\*\* ([A-Z ]+?) (SUCCEEDED|FAILED|INTERRUPTED) \*\*$`)
	crashSignalRe    = regexp.MustCompile(`signal (SIG[A-Z]{2,})|^Fatal error: .*|^\d+\s+Crash(?:ed)?\b`)
)

// toolStepPrefixes are xcodebuild build-step headers. They carry no report
// data but must terminate any in-progress multi-line accumulation.
var toolStepPrefixes = []string{
	"CompileSwift", "SwiftCompile", "SwiftDriver", "SwiftEmitModule", "CompileC",
	"Ld ", "CodeSign", "CopySwiftLibs", "ProcessInfoPlistFile", "ProcessProductPackaging",
	"CpResource", "PhaseScriptExecution", "Touch ", "MkDir ", "CreateBuildDirectory",
	"RegisterExecutionPolicyException", "Build description", "WriteAuxiliaryFile",
	"ExtractAppIntentsMetadata", "GenerateDSYMFile", "ScanDependencies", "PrecompileModule",
	"Command line invocation:", "User defaults from command line:", "Testing started",
	"Test session results", "ComputeDylibDependencies", "Analyze ", "Copy ",
}

// Classify matches one raw output line against the known line shapes.
// Unrecognized non-blank lines come back as Continuation; the caller decides
// whether a message buffer is open to receive them. Classification never
// fails: adversarial input degrades to Continuation or ToolStep.
func Classify(line string) Event {
	if strings.TrimSpace(line) == "" {
		return Blank{}
	}

	// Test events are matched before generic diagnostics: an XCTest
	// assertion line also matches the file:line: error: shape.
	if m := xctestFailSelectorRe.FindStringSubmatch(line); m != nil {
		return TestFailureLocation{
			Framework: FrameworkXCTest,
			Target:    m[3],
			Class:     m[4],
			Name:      m[5],
			Filepath:  m[1],
			Line:      atoi(m[2]),
			Message:   m[6],
		}
	}
	if m := xctestFailBareRe.FindStringSubmatch(line); m != nil {
		return TestFailureLocation{
			Framework: FrameworkXCTest,
			Class:     m[3],
			Name:      m[4],
			Filepath:  m[1],
			Line:      atoi(m[2]),
			Message:   m[5],
		}
	}
	if m := xctestCaseSelectorRe.FindStringSubmatch(line); m != nil {
		tc := TestCase{Framework: FrameworkXCTest, Target: m[1], Class: m[2], Name: m[3], Time: m[5]}
		return testCaseEvent(tc, m[4])
	}
	if m := xctestCaseBareRe.FindStringSubmatch(line); m != nil {
		tc := TestCase{Framework: FrameworkXCTest, Class: m[1], Name: m[2], Time: m[4]}
		return testCaseEvent(tc, m[3])
	}
	if m := xctestSuiteRe.FindStringSubmatch(line); m != nil {
		if m[2] == "started" {
			return TestSuiteStarted{Framework: FrameworkXCTest, Name: m[1]}
		}
		return TestSuiteFinished{Framework: FrameworkXCTest, Name: m[1], Passed: m[2] == "passed"}
	}
	if m := xctestRestartRe.FindStringSubmatch(line); m != nil {
		return RestartMarker{Class: m[1], Name: strings.TrimSpace(m[2])}
	}

	if swiftRunStartedRe.MatchString(line) {
		return TestSuiteStarted{Framework: FrameworkSwiftTesting}
	}
	if m := swiftRunFinishedRe.FindStringSubmatch(line); m != nil {
		return TestSuiteFinished{Framework: FrameworkSwiftTesting, Passed: m[2] == "passed"}
	}
	if m := swiftSuiteStartedRe.FindStringSubmatch(line); m != nil {
		return TestSuiteStarted{Framework: FrameworkSwiftTesting, Name: m[1]}
	}
	if m := swiftSuiteEndedRe.FindStringSubmatch(line); m != nil {
		return TestSuiteFinished{Framework: FrameworkSwiftTesting, Name: m[2], Passed: m[3] == "passed"}
	}
	if m := swiftTestIssueRe.FindStringSubmatch(line); m != nil {
		return TestFailureLocation{
			Framework: FrameworkSwiftTesting,
			Name:      trimFunctionName(m[1]),
			Filepath:  m[2],
			Line:      atoi(m[3]),
			Message:   m[5],
		}
	}
	if m := swiftTestIssueBare.FindStringSubmatch(line); m != nil {
		return TestFailureLocation{
			Framework: FrameworkSwiftTesting,
			Name:      trimFunctionName(m[1]),
			Message:   strings.TrimSpace(strings.TrimPrefix(line, "✘")),
		}
	}
	if m := swiftTestStartedRe.FindStringSubmatch(line); m != nil {
		return TestCaseStarted{TestCase{Framework: FrameworkSwiftTesting, Name: trimFunctionName(m[1])}}
	}
	if m := swiftTestPassedRe.FindStringSubmatch(line); m != nil {
		return TestCasePassed{TestCase{Framework: FrameworkSwiftTesting, Name: trimFunctionName(m[1]), Time: m[2]}}
	}
	if m := swiftTestFailedRe.FindStringSubmatch(line); m != nil {
		return TestCaseFailed{TestCase{Framework: FrameworkSwiftTesting, Name: trimFunctionName(m[1]), Time: m[2]}}
	}

	if m := linkerRe.FindStringSubmatch(line); m != nil {
		msg := m[1]
		if msg == "" {
			msg = m[2]
		}
		if msg == "" {
			msg = m[3]
		}
		return LinkerError{Message: msg}
	}
	if m := diagWithColumnRe.FindStringSubmatch(line); m != nil {
		return Diagnostic{
			Warning:  m[4] == "warning",
			Filepath: m[1],
			Line:     atoi(m[2]),
			Column:   atoi(m[3]),
			Message:  m[5],
		}
	}
	if m := diagNoColumnRe.FindStringSubmatch(line); m != nil {
		return Diagnostic{
			Warning:  m[3] == "warning",
			Filepath: m[1],
			Line:     atoi(m[2]),
			Message:  m[4],
		}
	}
	if m := diagToolRe.FindStringSubmatch(line); m != nil {
		return Diagnostic{Warning: m[1] == "warning", Message: m[2]}
	}
	if m := diagBareRe.FindStringSubmatch(line); m != nil {
		return Diagnostic{Warning: m[1] == "warning", Message: m[2]}
	}

	if m := outcomeRe.FindStringSubmatch(line); m != nil {
		return BuildOutcome{Action: m[1], Succeeded: m[2] == "SUCCEEDED"}
	}
	if path := strings.TrimSpace(line); strings.HasSuffix(path, ".xcresult") && strings.HasPrefix(path, "/") {
		return ResultBundle{Path: path}
	}
	if crashSignalRe.MatchString(line) {
		return CrashSignal{Description: strings.TrimSpace(line)}
	}
	if isToolStep(line) {
		return ToolStep{Text: line}
	}

	return Continuation{Text: line}
}

func testCaseEvent(tc TestCase, verb string) Event {
	switch verb {
	case "started":
		return TestCaseStarted{tc}
	case "passed":
		return TestCasePassed{tc}
	default:
		return TestCaseFailed{tc}
	}
}

func isToolStep(line string) bool {
	for _, prefix := range toolStepPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	// Xcode's legacy section banners.
	return strings.HasPrefix(line, "=== ")
}

// trimFunctionName strips a Swift Testing function signature suffix, so
// `adds()` and `adds(count:)` both become `adds`. Display names (quoted in
// the output) pass through unchanged.
func trimFunctionName(name string) string {
	if i := strings.IndexByte(name, '('); i > 0 && strings.HasSuffix(name, ")") {
		return name[:i]
	}
	return name
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
