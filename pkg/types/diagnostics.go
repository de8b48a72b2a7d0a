package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// -----------------------------------------------------------------------------
// Diagnostics
// -----------------------------------------------------------------------------
//
// Malformed or partially unreadable input never aborts an excavation. The
// problem is recorded as a Diagnostic on the artifact where it was found and
// the run continues with a shrunken or noted result.

// Severity classifies how serious a diagnostic issue is.
type Severity int

const (
	SevInfo     Severity = iota // Informational (unusual but valid)
	SevWarning                  // Structure is suspicious but was parsed
	SevError                    // A parse attempt was abandoned
	SevCritical                 // An examiner failed outright
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	case SevCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// DiagCategory classifies the type of issue found.
type DiagCategory int

const (
	DiagStructure DiagCategory = iota // Layout did not fit (short/overlong struct, bad magic)
	DiagData                          // Payload truncated or undecodable
	DiagIntegrity                     // Pointers or references that lead nowhere
	DiagExaminer                      // Examiner misbehaved (panic, contract violation)
)

func (c DiagCategory) String() string {
	switch c {
	case DiagStructure:
		return "STRUCTURE"
	case DiagData:
		return "DATA"
	case DiagIntegrity:
		return "INTEGRITY"
	case DiagExaminer:
		return "EXAMINER"
	default:
		return "UNKNOWN"
	}
}

// Diagnostic represents a single issue found in an artifact.
type Diagnostic struct {
	Severity Severity     `json:"severity"`
	Category DiagCategory `json:"category"`

	// Location
	Offset    int    `json:"offset"`              // Address within the artifact (bytes or bits)
	Structure string `json:"structure,omitempty"` // Struct or examiner name, e.g. "hbin", "regf"

	Issue    string `json:"issue"`              // Human-readable description
	Expected any    `json:"expected,omitempty"` // Expected value (for validation errors)
	Actual   any    `json:"actual,omitempty"`   // Actual value found
}

// String renders the diagnostic as a single note line.
func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s 0x%X", d.Severity, d.Offset)
	if d.Structure != "" {
		fmt.Fprintf(&b, " [%s]", d.Structure)
	}
	b.WriteString(" ")
	b.WriteString(d.Issue)
	if d.Expected != nil || d.Actual != nil {
		fmt.Fprintf(&b, " (expected %v, got %v)", d.Expected, d.Actual)
	}
	return b.String()
}

// DiagnosticReport collects diagnostics across an excavation.
type DiagnosticReport struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
	Summary     DiagSummary  `json:"summary"`

	BySeverity map[Severity][]Diagnostic `json:"-"`
}

// DiagSummary provides quick statistics.
type DiagSummary struct {
	Critical int `json:"critical"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
}

// NewDiagnosticReport creates an empty report.
func NewDiagnosticReport() *DiagnosticReport {
	return &DiagnosticReport{
		BySeverity: make(map[Severity][]Diagnostic),
	}
}

// Add adds a diagnostic to the report and updates the summary.
func (r *DiagnosticReport) Add(d Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)

	switch d.Severity {
	case SevCritical:
		r.Summary.Critical++
	case SevError:
		r.Summary.Errors++
	case SevWarning:
		r.Summary.Warnings++
	case SevInfo:
		r.Summary.Info++
	}

	r.BySeverity[d.Severity] = append(r.BySeverity[d.Severity], d)
}

// Sorted returns the diagnostics ordered by offset, then severity (worst first).
func (r *DiagnosticReport) Sorted() []Diagnostic {
	out := make([]Diagnostic, len(r.Diagnostics))
	copy(out, r.Diagnostics)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Offset != out[j].Offset {
			return out[i].Offset < out[j].Offset
		}
		return out[i].Severity > out[j].Severity
	})
	return out
}

// HasErrors returns true if any errors or critical issues were found.
func (r *DiagnosticReport) HasErrors() bool {
	return r.Summary.Critical > 0 || r.Summary.Errors > 0
}

// FormatJSON returns the report as formatted JSON (2-space indentation).
func (r *DiagnosticReport) FormatJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FormatTextCompact returns a compact one-line-per-issue text format.
func (r *DiagnosticReport) FormatTextCompact() string {
	var b strings.Builder

	for _, d := range r.Sorted() {
		fmt.Fprintf(&b, "0x%08X [%s/%s/%s] %s\n",
			d.Offset, d.Severity, d.Structure, d.Category, d.Issue)
	}

	if len(r.Diagnostics) == 0 {
		b.WriteString("No issues found.\n")
	}

	return b.String()
}
