// Package explorer maintains the persistent target/class/test tree shown in
// the test explorer, with status aggregation up the tree while runs stream.
package explorer

// NodeKind discriminates the three tree levels.
type NodeKind string

const (
	KindTarget NodeKind = "target"
	KindClass  NodeKind = "class"
	KindTest   NodeKind = "test"
)

// Status is a node's execution state. For target and class nodes it is
// always the aggregate of the children, never set directly.
type Status string

const (
	StatusNotExecuted      Status = "not_executed"
	StatusPartialExecution Status = "partial_execution"
	StatusRunning          Status = "running"
	StatusPassed           Status = "passed"
	StatusFailed           Status = "failed"
	StatusDisabled         Status = "disabled"
)

// Node is one entry in the explorer tree. IDs are hierarchical:
// "target", "target/class", "target/class/name". Children keep first-seen
// order from enumeration; the tree is never sorted.
type Node struct {
	ID       string   `json:"id"`
	Kind     NodeKind `json:"kind"`
	Name     string   `json:"name"`
	Status   Status   `json:"status"`
	Hidden   bool     `json:"hidden"`
	Filepath string   `json:"filepath,omitempty"`
	Line     int      `json:"lineNumber,omitempty"`
	Children []*Node  `json:"children,omitempty"`
}

// TestItem is one enumerated test, the input shape for LoadTests.
type TestItem struct {
	Target  string `json:"target"`
	Class   string `json:"class"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// aggregate computes a parent status from its children. Precedence: running
// beats failed beats partial; a mix of executed and not-executed children is
// partial; uniform children keep their shared status.
func aggregate(children []*Node) Status {
	if len(children) == 0 {
		return StatusNotExecuted
	}

	var running, failed, partial, passed, notExecuted, disabled int
	for _, c := range children {
		switch c.Status {
		case StatusRunning:
			running++
		case StatusFailed:
			failed++
		case StatusPartialExecution:
			partial++
		case StatusPassed:
			passed++
		case StatusDisabled:
			disabled++
		default:
			notExecuted++
		}
	}

	switch {
	case running > 0:
		return StatusRunning
	case failed > 0:
		return StatusFailed
	case partial > 0:
		return StatusPartialExecution
	case passed > 0 && notExecuted > 0:
		return StatusPartialExecution
	case passed > 0:
		return StatusPassed
	case notExecuted > 0:
		return StatusNotExecuted
	default:
		return StatusDisabled
	}
}

// recompute refreshes aggregate statuses bottom-up below n.
func recompute(n *Node) {
	if n.Kind == KindTest {
		return
	}
	for _, c := range n.Children {
		recompute(c)
	}
	n.Status = aggregate(n.Children)
}
