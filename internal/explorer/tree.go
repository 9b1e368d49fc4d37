package explorer

import (
	"strings"
)

// Logger is the logging surface the tree needs.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Tree is the explorer state machine. All mutation goes through the
// operations below; presentation concerns (animation, cursor-follow) poll
// the tree and never feed back into it.
type Tree struct {
	roots  []*Node
	index  map[string]*Node
	logger Logger
}

// NewTree creates an empty explorer tree.
func NewTree(logger Logger) *Tree {
	return &Tree{
		roots:  make([]*Node, 0),
		index:  make(map[string]*Node),
		logger: logger,
	}
}

// Roots returns the top-level target nodes in first-seen order.
func (t *Tree) Roots() []*Node {
	return t.roots
}

// Get returns the node with the given hierarchical id.
func (t *Tree) Get(id string) (*Node, bool) {
	n, ok := t.index[id]
	return n, ok
}

// LoadTests replaces the whole tree from an enumeration. Items are grouped
// in a single left-to-right pass: consecutive items sharing a target/class
// reuse the open group, order is first-seen, never sorted.
func (t *Tree) LoadTests(items []TestItem) {
	t.roots = make([]*Node, 0)
	t.index = make(map[string]*Node)

	var curTarget, curClass *Node
	for _, item := range items {
		if curTarget == nil || curTarget.Name != item.Target {
			curTarget = t.ensureTarget(item.Target)
			curClass = nil
		}
		if curClass == nil || curClass.Name != item.Class {
			curClass = t.ensureClass(curTarget, item.Class)
		}

		status := StatusNotExecuted
		if !item.Enabled {
			status = StatusDisabled
		}
		leafID := curClass.ID + "/" + item.Name
		if _, exists := t.index[leafID]; exists {
			continue
		}
		leaf := &Node{ID: leafID, Kind: KindTest, Name: item.Name, Status: status}
		curClass.Children = append(curClass.Children, leaf)
		t.index[leafID] = leaf
	}

	t.recomputeAll()
	if t.logger != nil {
		t.logger.Info("explorer loaded %d tests across %d targets", len(items), len(t.roots))
	}
}

// StartTests transitions the selected leaves to running. A nil selection
// means every enabled leaf. Selection ids may name a test, its class or its
// target; disabled leaves never start. Parents go running immediately via
// the recompute pass.
func (t *Tree) StartTests(selected []string) {
	var sel map[string]bool
	if selected != nil {
		sel = make(map[string]bool, len(selected))
		for _, id := range selected {
			sel[id] = true
		}
	}

	for _, leaf := range t.leaves() {
		if leaf.Status == StatusDisabled {
			continue
		}
		if sel == nil || selectionCovers(sel, leaf.ID) {
			leaf.Status = StatusRunning
		}
	}
	t.recomputeAll()
}

// UpdateStatus applies a terminal or running status to the leaf with the
// given id, inserting the node (and missing ancestors) when the framework
// reports a test that was never enumerated. Disabled leaves are sticky.
func (t *Tree) UpdateStatus(id string, status Status) {
	leaf, ok := t.index[id]
	if !ok {
		leaf = t.insertLeaf(id)
		if leaf == nil {
			return
		}
	}
	if leaf.Kind != KindTest || leaf.Status == StatusDisabled {
		return
	}
	leaf.Status = status
	t.recomputeAll()
}

// UpdateStatusByParts resolves a leaf when the streamed output omitted the
// target: an exact id when the target is known, otherwise the first leaf
// whose class/name suffix matches. Returns false when no node could be
// found or created.
func (t *Tree) UpdateStatusByParts(target, class, name string, status Status) bool {
	if target != "" {
		t.UpdateStatus(target+"/"+class+"/"+name, status)
		return true
	}
	suffix := "/" + class + "/" + name
	for _, leaf := range t.leaves() {
		if strings.HasSuffix(leaf.ID, suffix) {
			t.UpdateStatus(leaf.ID, status)
			return true
		}
	}
	if t.logger != nil {
		t.logger.Debug("no explorer node for %s/%s, dropping %s update", class, name, status)
	}
	return false
}

// FinishTests ends the run: leaves still running revert to not_executed
// (covers cancellation and crashes mid-run) and aggregates are recomputed.
func (t *Tree) FinishTests() {
	for _, leaf := range t.leaves() {
		if leaf.Status == StatusRunning {
			leaf.Status = StatusNotExecuted
		}
	}
	t.recomputeAll()
}

// SetHidden flips collapse state. Hidden is presentation-only and never
// affects aggregation.
func (t *Tree) SetHidden(id string, hidden bool) {
	if n, ok := t.index[id]; ok {
		n.Hidden = hidden
	}
}

// SetLocation attaches a resolved source location to a node.
func (t *Tree) SetLocation(id, filepath string, line int) {
	if n, ok := t.index[id]; ok {
		n.Filepath = filepath
		n.Line = line
	}
}

func (t *Tree) ensureTarget(name string) *Node {
	if n, ok := t.index[name]; ok {
		return n
	}
	n := &Node{ID: name, Kind: KindTarget, Name: name, Status: StatusNotExecuted}
	t.roots = append(t.roots, n)
	t.index[name] = n
	return n
}

func (t *Tree) ensureClass(target *Node, name string) *Node {
	id := target.ID + "/" + name
	if n, ok := t.index[id]; ok {
		return n
	}
	n := &Node{ID: id, Kind: KindClass, Name: name, Status: StatusNotExecuted}
	target.Children = append(target.Children, n)
	t.index[id] = n
	return n
}

// insertLeaf grows the tree mid-run for a previously unknown test id of the
// form target/class/name. This is the only growth path during a run.
func (t *Tree) insertLeaf(id string) *Node {
	parts := strings.Split(id, "/")
	if len(parts) != 3 {
		if t.logger != nil {
			t.logger.Debug("refusing to insert malformed test id %q", id)
		}
		return nil
	}
	target := t.ensureTarget(parts[0])
	class := t.ensureClass(target, parts[1])
	leaf := &Node{ID: id, Kind: KindTest, Name: parts[2], Status: StatusNotExecuted}
	class.Children = append(class.Children, leaf)
	t.index[id] = leaf
	return leaf
}

func (t *Tree) leaves() []*Node {
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.Kind == KindTest {
			out = append(out, n)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range t.roots {
		walk(r)
	}
	return out
}

func (t *Tree) recomputeAll() {
	for _, r := range t.roots {
		recompute(r)
	}
}

// selectionCovers reports whether a leaf id is included by a selection that
// may name the leaf itself or any of its ancestors.
func selectionCovers(sel map[string]bool, leafID string) bool {
	if sel[leafID] {
		return true
	}
	for i := len(leafID) - 1; i > 0; i-- {
		if leafID[i] == '/' && sel[leafID[:i]] {
			return true
		}
	}
	return false
}
