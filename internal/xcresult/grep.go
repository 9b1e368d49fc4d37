package xcresult

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// grepUnique scans every Swift source under root for the first marker that
// appears in exactly one file, returning that file and the 1-based line of
// the hit. Ambiguous markers (several files match) yield nothing rather than
// a guess.
func grepUnique(root string, markers []string) (string, int) {
	if root == "" {
		return "", 0
	}
	for _, marker := range markers {
		type hit struct {
			path string
			line int
		}
		var hits []hit
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if strings.HasPrefix(d.Name(), ".") && d.Name() != "." {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(d.Name()) != ".swift" {
				return nil
			}
			if line := firstLineContaining(path, marker); line > 0 {
				hits = append(hits, hit{path, line})
			}
			return nil
		})
		if len(hits) == 1 {
			return hits[0].path, hits[0].line
		}
	}
	return "", 0
}

func firstLineContaining(path, marker string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for n := 1; scanner.Scan(); n++ {
		if strings.Contains(scanner.Text(), marker) {
			return n
		}
	}
	return 0
}
