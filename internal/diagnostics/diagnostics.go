// Package diagnostics projects a finished Report into the flat entry lists
// editor surfaces consume: quickfix rows and per-file groupings. It reads
// the report as plain data and owes nothing back to the parsing core.
package diagnostics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xcflow/xcflow/internal/report"
)

// Severity of a quickfix entry.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Entry is one navigable row: a build diagnostic or a test failure with a
// known source location.
type Entry struct {
	Filepath string   `json:"filepath"`
	Line     int      `json:"lineNumber"`
	Column   int      `json:"columnNumber,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Quickfix flattens the report into ordered entries. Items without a file
// path cannot be navigated to and are skipped; build errors come first, then
// warnings, then test failures.
func Quickfix(r *report.Report) []Entry {
	if r == nil {
		return nil
	}
	var entries []Entry
	for _, d := range r.BuildErrors {
		if e, ok := fromDiagnostic(d, SeverityError); ok {
			entries = append(entries, e)
		}
	}
	for _, d := range r.Warnings {
		if e, ok := fromDiagnostic(d, SeverityWarning); ok {
			entries = append(entries, e)
		}
	}
	for _, tr := range sortedFailures(r) {
		if tr.Filepath == "" {
			continue
		}
		entries = append(entries, Entry{
			Filepath: tr.Filepath,
			Line:     tr.Line,
			Severity: SeverityError,
			Message:  failureMessage(tr),
		})
	}
	return entries
}

// ByFile groups quickfix entries per file; entries within a file are sorted
// by line, then column.
func ByFile(r *report.Report) map[string][]Entry {
	grouped := make(map[string][]Entry)
	for _, e := range Quickfix(r) {
		grouped[e.Filepath] = append(grouped[e.Filepath], e)
	}
	for _, entries := range grouped {
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].Line != entries[j].Line {
				return entries[i].Line < entries[j].Line
			}
			return entries[i].Column < entries[j].Column
		})
	}
	return grouped
}

func fromDiagnostic(d report.Diagnostic, sev Severity) (Entry, bool) {
	if d.Filepath == "" {
		return Entry{}, false
	}
	return Entry{
		Filepath: d.Filepath,
		Line:     d.Line,
		Column:   d.Column,
		Severity: sev,
		Message:  strings.Join(d.Message, "\n"),
	}, true
}

func failureMessage(tr report.TestResult) string {
	name := tr.Name
	if tr.Class != "" {
		name = tr.Class + "." + tr.Name
	}
	if len(tr.Message) == 0 {
		return fmt.Sprintf("%s failed", name)
	}
	return fmt.Sprintf("%s: %s", name, strings.Join(tr.Message, "\n"))
}

// sortedFailures returns failed tests in a stable order despite map
// iteration, keyed by class then name.
func sortedFailures(r *report.Report) []report.TestResult {
	failed := r.FailedTests()
	sort.SliceStable(failed, func(i, j int) bool {
		if failed[i].Class != failed[j].Class {
			return failed[i].Class < failed[j].Class
		}
		return failed[i].Name < failed[j].Name
	})
	return failed
}
