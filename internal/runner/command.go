package runner

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var errEmptyCommand = errors.New("empty command")

// Invocation describes one xcodebuild run.
type Invocation struct {
	ProjectPath string // .xcodeproj or .xcworkspace; empty for SwiftPM packages
	Scheme      string
	Destination string
	TestPlan    string
	OnlyTesting []string // "Target", "Target/Class" or "Target/Class/test" selectors
	ResultDir   string   // where the .xcresult bundle lands for test runs
}

func (inv Invocation) base() []string {
	args := []string{"xcrun", "xcodebuild"}
	switch {
	case strings.HasSuffix(inv.ProjectPath, ".xcworkspace"):
		args = append(args, "-workspace", inv.ProjectPath)
	case inv.ProjectPath != "":
		args = append(args, "-project", inv.ProjectPath)
	}
	if inv.Scheme != "" {
		args = append(args, "-scheme", inv.Scheme)
	}
	if inv.Destination != "" {
		args = append(args, "-destination", inv.Destination)
	}
	return args
}

// BuildArgs returns the argv for a plain build.
func (inv Invocation) BuildArgs() []string {
	return append(inv.base(), "build")
}

// TestArgs returns the argv for a test run writing a result bundle.
func (inv Invocation) TestArgs(runID string) []string {
	args := append(inv.base(), "test")
	if inv.TestPlan != "" {
		args = append(args, "-testPlan", inv.TestPlan)
	}
	for _, sel := range inv.OnlyTesting {
		args = append(args, "-only-testing:"+sel)
	}
	if inv.ResultDir != "" {
		bundle := filepath.Join(inv.ResultDir, fmt.Sprintf("run-%s.xcresult", runID))
		args = append(args, "-resultBundlePath", bundle)
	}
	return args
}

// EnumerateArgs returns the argv that prints the test hierarchy as JSON on
// stdout without running anything.
func (inv Invocation) EnumerateArgs() []string {
	args := append(inv.base(), "test")
	if inv.TestPlan != "" {
		args = append(args, "-testPlan", inv.TestPlan)
	}
	return append(args,
		"-enumerate-tests",
		"-test-enumeration-style", "flat",
		"-test-enumeration-format", "json",
		"-test-enumeration-output-path", "-",
	)
}
