package explorer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const stateFileName = "explorer.json"

// Save persists the tree between editor sessions.
func (t *Tree) Save(stateDir string) error {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(t.roots, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal explorer state: %w", err)
	}

	path := filepath.Join(stateDir, stateFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write explorer state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace explorer state: %w", err)
	}
	return nil
}

// LoadState restores a previously saved tree. A missing file leaves the
// tree empty and returns nil.
func (t *Tree) LoadState(stateDir string) error {
	data, err := os.ReadFile(filepath.Join(stateDir, stateFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read explorer state: %w", err)
	}

	var roots []*Node
	if err := json.Unmarshal(data, &roots); err != nil {
		return fmt.Errorf("failed to parse explorer state: %w", err)
	}

	t.roots = roots
	t.index = make(map[string]*Node)
	var walk func(n *Node)
	walk = func(n *Node) {
		t.index[n.ID] = n
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range t.roots {
		walk(r)
	}
	return nil
}
