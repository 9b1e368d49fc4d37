// Package xcresult reconciles a streamed Report against the authoritative
// test-node tree stored in the run's result bundle. Swift Testing output
// omits the owning target while streaming; the bundle recovers it.
package xcresult

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NodeType discriminates entries of the bundle's test-node tree, as emitted
// by `xcresulttool get test-results tests --compact`.
type NodeType string

const (
	NodeTestPlan       NodeType = "Test Plan"
	NodeUnitTestBundle NodeType = "Unit test bundle"
	NodeTestSuite      NodeType = "Test Suite"
	NodeTestCase       NodeType = "Test Case"
	NodeFailureMessage NodeType = "Failure Message"
)

// Node is one entry of the bundle tree, consumed read-only.
type Node struct {
	Name           string   `json:"name"`
	NodeType       NodeType `json:"nodeType"`
	NodeIdentifier string   `json:"nodeIdentifier,omitempty"`
	Result         string   `json:"result,omitempty"`
	Children       []Node   `json:"children,omitempty"`
}

type testResultsDocument struct {
	TestNodes []Node `json:"testNodes"`
}

// ParseTestNodes decodes the JSON document xcresulttool prints for the
// "tests" subcommand.
func ParseTestNodes(data []byte) ([]Node, error) {
	var doc testResultsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse result bundle tests: %w", err)
	}
	return doc.TestNodes, nil
}

// bundleIndex answers "which target owns this suite / this global test",
// built in one walk over the node tree.
type bundleIndex struct {
	suiteTarget  map[string]string // class name -> target
	globalTarget map[string]string // bare test name -> target
	identifier   map[string]string // bare test name -> nodeIdentifier
}

func indexNodes(nodes []Node) *bundleIndex {
	idx := &bundleIndex{
		suiteTarget:  make(map[string]string),
		globalTarget: make(map[string]string),
		identifier:   make(map[string]string),
	}
	for _, n := range nodes {
		idx.walk(n, "")
	}
	return idx
}

func (idx *bundleIndex) walk(n Node, target string) {
	switch n.NodeType {
	case NodeUnitTestBundle:
		target = strings.TrimSuffix(n.Name, ".xctest")
		for _, c := range n.Children {
			// A test case directly under the bundle node is a global test.
			if c.NodeType == NodeTestCase {
				name := bareTestName(c.Name)
				idx.globalTarget[name] = target
				if c.NodeIdentifier != "" {
					idx.identifier[name] = c.NodeIdentifier
				}
				continue
			}
			idx.walk(c, target)
		}
		return
	case NodeTestSuite:
		if target != "" {
			idx.suiteTarget[n.Name] = target
		}
	case NodeTestCase:
		if n.NodeIdentifier != "" {
			idx.identifier[bareTestName(n.Name)] = n.NodeIdentifier
		}
	}
	for _, c := range n.Children {
		idx.walk(c, target)
	}
}

// bareTestName strips the Swift function-call suffix so streamed names
// ("adds") and bundle names ("adds()") compare equal.
func bareTestName(name string) string {
	return strings.TrimSuffix(name, "()")
}
