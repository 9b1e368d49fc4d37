package runner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xcflow/xcflow/internal/explorer"
	"github.com/xcflow/xcflow/internal/report"
)

type enumerationDocument struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
	Values []struct {
		TestPlan      string           `json:"testPlan"`
		EnabledTests  []enumeratedTest `json:"enabledTests"`
		DisabledTests []enumeratedTest `json:"disabledTests"`
	} `json:"values"`
}

type enumeratedTest struct {
	Identifier string `json:"identifier"`
}

// ParseEnumeration decodes the JSON xcodebuild prints for -enumerate-tests
// into the explorer's flat test list. Identifiers carry two or three slash
// separated segments: "Target/Class/test" for suite members and
// "Target/test" for Swift Testing functions declared outside any suite,
// which group under the synthetic global class.
func ParseEnumeration(data []byte) ([]explorer.TestItem, error) {
	var doc enumerationDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse test enumeration: %w", err)
	}
	if len(doc.Errors) > 0 {
		return nil, fmt.Errorf("test enumeration failed: %s", doc.Errors[0].Message)
	}

	var items []explorer.TestItem
	for _, v := range doc.Values {
		for _, t := range v.EnabledTests {
			if item, ok := itemFromIdentifier(t.Identifier, true); ok {
				items = append(items, item)
			}
		}
		for _, t := range v.DisabledTests {
			if item, ok := itemFromIdentifier(t.Identifier, false); ok {
				items = append(items, item)
			}
		}
	}
	return items, nil
}

func itemFromIdentifier(id string, enabled bool) (explorer.TestItem, bool) {
	parts := strings.Split(id, "/")
	switch len(parts) {
	case 3:
		return explorer.TestItem{
			Target:  parts[0],
			Class:   parts[1],
			Name:    strings.TrimSuffix(parts[2], "()"),
			Enabled: enabled,
		}, true
	case 2:
		return explorer.TestItem{
			Target:  parts[0],
			Class:   report.GlobalTestsClass,
			Name:    strings.TrimSuffix(parts[1], "()"),
			Enabled: enabled,
		}, true
	default:
		return explorer.TestItem{}, false
	}
}
