package resolver

import (
	"bufio"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

const fileListSuffix = ".SwiftFileList"

// TargetMap maps build targets to the source files they compile, read from
// the per-target file-list artifacts Xcode writes under the build directory.
// Built lazily on first use and invalidated wholesale when a new build lands.
type TargetMap struct {
	mu       sync.Mutex
	buildDir string
	files    map[string][]string
	built    bool
	logger   Logger
}

// NewTargetMap creates a map over the given build directory.
func NewTargetMap(buildDir string, logger Logger) *TargetMap {
	return &TargetMap{buildDir: buildDir, logger: logger}
}

// TargetForFile returns the first target whose file list contains path, or
// "" when no target claims it.
func (m *TargetMap) TargetForFile(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buildLocked()
	for target, files := range m.files {
		for _, f := range files {
			if f == path {
				return target
			}
		}
	}
	return ""
}

// Contains reports whether the target's file list includes path.
func (m *TargetMap) Contains(target, path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buildLocked()
	for _, f := range m.files[target] {
		if f == path {
			return true
		}
	}
	return false
}

// Targets returns the known target names.
func (m *TargetMap) Targets() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buildLocked()
	out := make([]string, 0, len(m.files))
	for t := range m.files {
		out = append(out, t)
	}
	return out
}

// Invalidate drops the cached map; the next query rebuilds it from disk.
func (m *TargetMap) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = nil
	m.built = false
}

func (m *TargetMap) buildLocked() {
	if m.built {
		return
	}
	m.built = true
	m.files = make(map[string][]string)
	if m.buildDir == "" {
		return
	}

	_ = filepath.WalkDir(m.buildDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(d.Name(), fileListSuffix) {
			return nil
		}
		target := strings.TrimSuffix(d.Name(), fileListSuffix)
		paths, err := readFileList(path)
		if err != nil {
			if m.logger != nil {
				m.logger.Debug("failed to read file list %s: %v", path, err)
			}
			return nil
		}
		// Later architecture slices for the same target just re-list the
		// same sources; the last one read wins.
		m.files[target] = paths
		return nil
	})
	if m.logger != nil {
		m.logger.Debug("target map built: %d targets under %s", len(m.files), m.buildDir)
	}
}

// readFileList parses one file-list artifact: one source path per line,
// backslash continuation markers stripped, surrounding quotes removed.
func readFileList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimSuffix(line, "\\")
		line = strings.TrimSpace(line)
		line = strings.Trim(line, `"'`)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out, scanner.Err()
}

// Watch invalidates the map whenever the build directory changes, so a new
// build is picked up without an explicit trigger. Blocks until ctx is done.
func (m *TargetMap) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(m.buildDir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				m.Invalidate()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if m.logger != nil {
				m.logger.Error("build dir watcher error: %v", err)
			}
		}
	}
}
