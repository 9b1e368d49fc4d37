package resolver

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/xcflow/xcflow/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// projectFixture lays out a small project with two targets and a build dir
// carrying their file-list artifacts.
func projectFixture(t *testing.T) (projectRoot, buildDir string) {
	t.Helper()
	projectRoot = t.TempDir()
	buildDir = t.TempDir()

	writeFile(t, filepath.Join(projectRoot, "Tests", "MathTests.swift"), "final class MathTests {}")
	writeFile(t, filepath.Join(projectRoot, "UITests", "MathTests.swift"), "final class MathTests {}")
	writeFile(t, filepath.Join(projectRoot, "Sources", "Parser.swift"), "struct Parser {}")

	writeFile(t, filepath.Join(buildDir, "AppTests.SwiftFileList"),
		filepath.Join(projectRoot, "Tests", "MathTests.swift")+"\n")
	writeFile(t, filepath.Join(buildDir, "AppUITests.SwiftFileList"),
		filepath.Join(projectRoot, "UITests", "MathTests.swift")+"\n")
	return projectRoot, buildDir
}

type fakeSymbolClient struct {
	calls   int
	symbols []protocol.SymbolInformation
	err     error
	block   bool
}

func (c *fakeSymbolClient) Query(ctx context.Context, name string) ([]protocol.SymbolInformation, error) {
	c.calls++
	if c.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return c.symbols, c.err
}

func classSymbol(name, path string) protocol.SymbolInformation {
	return protocol.SymbolInformation{
		Name:     name,
		Kind:     protocol.SymbolKindClass,
		Location: protocol.Location{URI: uri.File(path)},
	}
}

func TestFilenameStrategyFiltersByTarget(t *testing.T) {
	root, build := projectFixture(t)
	r := New(Options{
		ProjectRoot:    root,
		BuildDir:       build,
		Strategy:       config.StrategyFilename,
		TargetMatching: true,
	})

	got := r.ResolveFilepath(context.Background(), "AppUITests", "MathTests")
	assert.Equal(t, filepath.Join(root, "UITests", "MathTests.swift"), got)
}

func TestFilenameStrategyWithoutTargetReturnsFirstCandidate(t *testing.T) {
	root, build := projectFixture(t)
	r := New(Options{
		ProjectRoot:    root,
		BuildDir:       build,
		Strategy:       config.StrategyFilename,
		TargetMatching: true,
	})

	got := r.ResolveFilepath(context.Background(), "", "Parser")
	assert.Equal(t, filepath.Join(root, "Sources", "Parser.swift"), got)
}

func TestUnknownClassResolvesToEmpty(t *testing.T) {
	root, build := projectFixture(t)
	r := New(Options{ProjectRoot: root, BuildDir: build, Strategy: config.StrategyFilename})

	assert.Equal(t, "", r.ResolveFilepath(context.Background(), "", "NoSuchClass"))
}

func TestSymbolStrategyUsesClientOnceThenCache(t *testing.T) {
	root, build := projectFixture(t)
	path := filepath.Join(root, "Sources", "Parser.swift")
	client := &fakeSymbolClient{symbols: []protocol.SymbolInformation{classSymbol("Parser", path)}}
	r := New(Options{
		ProjectRoot:   root,
		BuildDir:      build,
		Strategy:      config.StrategySymbol,
		SymbolClient:  client,
		SymbolTimeout: time.Second,
	})

	first := r.ResolveFilepath(context.Background(), "", "Parser")
	second := r.ResolveFilepath(context.Background(), "", "Parser")
	assert.Equal(t, path, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, client.calls, "second resolution served from cache")
}

func TestNegativeResultIsCached(t *testing.T) {
	root, build := projectFixture(t)
	client := &fakeSymbolClient{}
	r := New(Options{
		ProjectRoot:   root,
		BuildDir:      build,
		Strategy:      config.StrategySymbol,
		SymbolClient:  client,
		SymbolTimeout: time.Second,
	})

	assert.Equal(t, "", r.ResolveFilepath(context.Background(), "", "Ghost"))
	assert.Equal(t, "", r.ResolveFilepath(context.Background(), "", "Ghost"))
	assert.Equal(t, 1, client.calls)
}

func TestTimeoutIsNotCached(t *testing.T) {
	root, build := projectFixture(t)
	client := &fakeSymbolClient{block: true}
	r := New(Options{
		ProjectRoot:   root,
		BuildDir:      build,
		Strategy:      config.StrategySymbol,
		SymbolClient:  client,
		SymbolTimeout: 10 * time.Millisecond,
	})

	assert.Equal(t, "", r.ResolveFilepath(context.Background(), "", "Slow"))
	assert.Equal(t, "", r.ResolveFilepath(context.Background(), "", "Slow"))
	assert.Equal(t, 2, client.calls, "indeterminate result retried")
}

func TestSymbolThenFilenameFallsBack(t *testing.T) {
	root, build := projectFixture(t)
	client := &fakeSymbolClient{}
	r := New(Options{
		ProjectRoot:   root,
		BuildDir:      build,
		Strategy:      config.StrategySymbolThenFilename,
		SymbolClient:  client,
		SymbolTimeout: time.Second,
	})

	got := r.ResolveFilepath(context.Background(), "", "Parser")
	assert.Equal(t, filepath.Join(root, "Sources", "Parser.swift"), got)
	assert.Equal(t, 1, client.calls, "symbol source consulted first")
}

func TestSymbolStrategyIgnoresNonTypeSymbols(t *testing.T) {
	root, build := projectFixture(t)
	path := filepath.Join(root, "Sources", "Parser.swift")
	client := &fakeSymbolClient{symbols: []protocol.SymbolInformation{{
		Name:     "Parser",
		Kind:     protocol.SymbolKindFunction,
		Location: protocol.Location{URI: uri.File(path)},
	}}}
	r := New(Options{
		ProjectRoot:   root,
		BuildDir:      build,
		Strategy:      config.StrategySymbol,
		SymbolClient:  client,
		SymbolTimeout: time.Second,
	})

	assert.Equal(t, "", r.ResolveFilepath(context.Background(), "", "Parser"))
}

func TestNilSymbolClientResolvesToEmpty(t *testing.T) {
	root, build := projectFixture(t)
	r := New(Options{ProjectRoot: root, BuildDir: build, Strategy: config.StrategySymbol})

	assert.Equal(t, "", r.ResolveFilepath(context.Background(), "", "Parser"))
}

func TestClearCacheRetriesResolution(t *testing.T) {
	root, build := projectFixture(t)
	client := &fakeSymbolClient{}
	r := New(Options{
		ProjectRoot:   root,
		BuildDir:      build,
		Strategy:      config.StrategySymbol,
		SymbolClient:  client,
		SymbolTimeout: time.Second,
	})

	r.ResolveFilepath(context.Background(), "", "Ghost")
	r.ClearCache()
	r.ResolveFilepath(context.Background(), "", "Ghost")
	assert.Equal(t, 2, client.calls)
}

func TestFindTargetForFile(t *testing.T) {
	root, build := projectFixture(t)
	r := New(Options{ProjectRoot: root, BuildDir: build, Strategy: config.StrategyFilename})

	got := r.FindTargetForFile(filepath.Join(root, "Tests", "MathTests.swift"))
	assert.Equal(t, "AppTests", got)

	assert.Equal(t, "", r.FindTargetForFile("/nowhere/Unknown.swift"))
}

func TestReadFileListStripsContinuationsAndQuotes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "App.SwiftFileList")
	writeFile(t, path, "/a/First.swift \\\n\"/b/With Space.swift\"\n\n'/c/Third.swift'\n")

	paths, err := readFileList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a/First.swift", "/b/With Space.swift", "/c/Third.swift"}, paths)
}

func TestInvalidateTargetsPicksUpNewArtifacts(t *testing.T) {
	root, build := projectFixture(t)
	r := New(Options{ProjectRoot: root, BuildDir: build, Strategy: config.StrategyFilename})

	newFile := filepath.Join(root, "Sources", "Parser.swift")
	assert.Equal(t, "", r.FindTargetForFile(newFile))

	writeFile(t, filepath.Join(build, "App.SwiftFileList"), newFile+"\n")
	r.InvalidateTargets()
	assert.Equal(t, "App", r.FindTargetForFile(newFile))
}
