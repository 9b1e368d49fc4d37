package resolver

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// sourceExtensions are the file types indexed for class lookup. The
// convention that a class lives in a file named after it holds for Swift
// and Objective-C sources alike.
var sourceExtensions = map[string]bool{
	".swift": true,
	".m":     true,
	".mm":    true,
	".h":     true,
}

// FilenameIndex maps source-file basenames (without extension) to every
// absolute path carrying that name. Built once per session by walking the
// project root.
type FilenameIndex struct {
	root    string
	byName  map[string][]string
	built   bool
	skipDir map[string]bool
}

// NewFilenameIndex creates an index rooted at the project directory. The
// walk is deferred until the first lookup.
func NewFilenameIndex(projectRoot string) *FilenameIndex {
	return &FilenameIndex{
		root:   projectRoot,
		byName: make(map[string][]string),
		skipDir: map[string]bool{
			".git":                  true,
			".build":                true,
			"DerivedData":           true,
			"Pods":                  true,
			"Carthage":              true,
			"node_modules":          true,
			".swiftpm":              true,
			"build":                 true,
			".xcflow":               true,
			"xcuserdata":            true,
			"Build":                 true,
			"SourcePackages":        true,
			"ModuleCache":           true,
			"Index.noindex":         true,
			"Intermediates.noindex": true,
		},
	}
}

// Lookup returns every indexed path whose basename equals name.
func (idx *FilenameIndex) Lookup(name string) []string {
	if !idx.built {
		idx.build()
	}
	return idx.byName[name]
}

// Rebuild discards the index so the next lookup walks the project again.
func (idx *FilenameIndex) Rebuild() {
	idx.byName = make(map[string][]string)
	idx.built = false
}

func (idx *FilenameIndex) build() {
	idx.built = true
	if idx.root == "" {
		return
	}
	_ = filepath.WalkDir(idx.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if idx.skipDir[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(d.Name())
		if !sourceExtensions[ext] {
			return nil
		}
		name := strings.TrimSuffix(d.Name(), ext)
		idx.byName[name] = append(idx.byName[name], path)
		return nil
	})
}
