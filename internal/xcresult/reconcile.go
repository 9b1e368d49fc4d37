package xcresult

import (
	"context"

	"github.com/xcflow/xcflow/internal/report"
)

// Logger is the logging surface reconciliation needs.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// FileResolver resolves a class to the file declaring it. Satisfied by
// *resolver.Resolver.
type FileResolver interface {
	ResolveFilepath(ctx context.Context, target, className string) string
}

// BundleLoader reads the test-node tree out of a result bundle. The default
// implementation shells out to xcresulttool; tests inject parsed fixtures.
type BundleLoader func(ctx context.Context, bundlePath string) ([]Node, error)

// Reconciler rewrites a Report's provisional Swift Testing entries using the
// result bundle written by the finished run.
type Reconciler struct {
	Loader         BundleLoader
	Resolver       FileResolver
	ProjectRoot    string
	TargetMatching bool
	Logger         Logger
}

// Reconcile recovers the owning target for every test recorded under the
// placeholder key and re-files it under "<target>:<class>". Global tests
// (declared outside any suite) group under a synthetic class per target.
// Runs only for Swift Testing reports with a bundle path; a missing or
// unreadable bundle leaves the report untouched. Safe to call twice: only
// placeholder entries are rewritten.
func (rc *Reconciler) Reconcile(ctx context.Context, rep *report.Report) {
	if rep == nil || !rep.UsesSwiftTesting || rep.ResultBundlePath == "" {
		return
	}
	if rc.Loader == nil {
		return
	}

	nodes, err := rc.Loader(ctx, rep.ResultBundlePath)
	if err != nil {
		if rc.Logger != nil {
			rc.Logger.Error("skipping reconciliation, cannot read %s: %v", rep.ResultBundlePath, err)
		}
		return
	}
	idx := indexNodes(nodes)

	// Stage the rekeyed results and apply them after the range: with target
	// matching disabled the corrected key equals the placeholder key, so
	// writing into the map mid-iteration would clobber the moved entries.
	moved := make(map[string][]report.TestResult)
	for key, results := range rep.Tests {
		if len(results) == 0 || results[0].Target != report.PlaceholderTarget {
			continue
		}
		var kept []report.TestResult
		for _, tr := range results {
			fixed, ok := rc.rekey(ctx, idx, tr)
			if !ok {
				kept = append(kept, tr)
				continue
			}
			newKey := report.ClassKey(fixed.Target, fixed.Class, rc.TargetMatching)
			moved[newKey] = append(moved[newKey], fixed)
		}
		if len(kept) > 0 {
			rep.Tests[key] = kept
		} else {
			delete(rep.Tests, key)
		}
	}
	for key, fixed := range moved {
		rep.Tests[key] = append(rep.Tests[key], fixed...)
	}
}

func (rc *Reconciler) rekey(ctx context.Context, idx *bundleIndex, tr report.TestResult) (report.TestResult, bool) {
	name := bareTestName(tr.Name)

	var target string
	class := tr.Class
	if class != "" {
		target = idx.suiteTarget[class]
	} else {
		target = idx.globalTarget[name]
		class = report.GlobalTestsClass
	}
	if target == "" {
		if rc.Logger != nil {
			rc.Logger.Debug("no bundle node for %s/%s, leaving under placeholder", tr.Class, tr.Name)
		}
		return tr, false
	}

	tr.Target = target
	tr.Class = class
	if id, ok := idx.identifier[name]; ok {
		tr.SwiftTestingID = id
	}
	if tr.Filepath == "" {
		tr.Filepath, tr.Line = rc.locate(ctx, tr, name)
	}
	return tr, true
}

// locate finds the declaring source file: first through the resolver, then a
// content search for a unique declaration marker as a last resort.
func (rc *Reconciler) locate(ctx context.Context, tr report.TestResult, name string) (string, int) {
	if tr.Class != report.GlobalTestsClass && rc.Resolver != nil {
		if path := rc.Resolver.ResolveFilepath(ctx, tr.Target, tr.Class); path != "" {
			return path, tr.Line
		}
	}

	markers := declarationMarkers(tr.Class, name)
	path, line := grepUnique(rc.ProjectRoot, markers)
	if path == "" && rc.Logger != nil {
		rc.Logger.Debug("no unique declaration found for %s/%s", tr.Class, name)
	}
	return path, line
}

func declarationMarkers(class, name string) []string {
	if class == report.GlobalTestsClass {
		return []string{"func " + name + "("}
	}
	return []string{
		"struct " + class + " {",
		"class " + class + " {",
		"struct " + class + ":",
		"class " + class + ":",
	}
}
