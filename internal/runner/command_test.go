package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildArgsForProject(t *testing.T) {
	inv := Invocation{
		ProjectPath: "/proj/App.xcodeproj",
		Scheme:      "App",
		Destination: "platform=iOS Simulator,name=iPhone 16",
	}

	assert.Equal(t, []string{
		"xcrun", "xcodebuild",
		"-project", "/proj/App.xcodeproj",
		"-scheme", "App",
		"-destination", "platform=iOS Simulator,name=iPhone 16",
		"build",
	}, inv.BuildArgs())
}

func TestBuildArgsForWorkspace(t *testing.T) {
	inv := Invocation{ProjectPath: "/proj/App.xcworkspace", Scheme: "App"}
	args := inv.BuildArgs()
	assert.Contains(t, args, "-workspace")
	assert.NotContains(t, args, "-project")
}

func TestBuildArgsForPackage(t *testing.T) {
	inv := Invocation{Scheme: "MyLib"}
	args := inv.BuildArgs()
	assert.NotContains(t, args, "-project")
	assert.NotContains(t, args, "-workspace")
}

func TestTestArgsCarrySelectorsAndBundlePath(t *testing.T) {
	inv := Invocation{
		ProjectPath: "/proj/App.xcodeproj",
		Scheme:      "App",
		TestPlan:    "Unit",
		OnlyTesting: []string{"AppTests/MathTests/testAdd", "AppTests/StringTests"},
		ResultDir:   "/state/results",
	}

	args := inv.TestArgs("abc123")
	assert.Contains(t, args, "test")
	assert.Contains(t, args, "-testPlan")
	assert.Contains(t, args, "-only-testing:AppTests/MathTests/testAdd")
	assert.Contains(t, args, "-only-testing:AppTests/StringTests")
	assert.Contains(t, args, "-resultBundlePath")
	assert.Contains(t, args, "/state/results/run-abc123.xcresult")
}

func TestEnumerateArgs(t *testing.T) {
	inv := Invocation{ProjectPath: "/proj/App.xcodeproj", Scheme: "App"}
	args := inv.EnumerateArgs()
	assert.Contains(t, args, "-enumerate-tests")
	assert.Contains(t, args, "json")
	assert.Contains(t, args, "-")
}
