// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/applypilot/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintFieldCandidates outputs a human-readable summary of discovered fields.
func (p *Printer) PrintFieldCandidates(fields []types.FieldCandidate) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Discovered: %d fields\n", len(fields)))
	sb.WriteString("\n")

	shown := 0
	for _, f := range fields {
		if shown >= maxItemsToShow {
			sb.WriteString(fmt.Sprintf("... and %d more\n", len(fields)-shown))
			break
		}
		name := f.Label
		if name == "" {
			name = f.FieldID
		}
		if name == "" {
			name = f.ResolutionHandle
		}
		required := ""
		if f.Required {
			required = " (required)"
		}
		sb.WriteString(fmt.Sprintf("%-10s %s%s\n", f.Kind, name, required))
		shown++
	}

	p.printBox("FIELD DISCOVERY", sb.String())
}

// PrintFillPlan outputs a human-readable summary of the plan triad.
func (p *Printer) PrintFillPlan(plan *types.FillPlan) {
	if plan == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Filled:      %d\n", len(plan.Filled)))
	sb.WriteString(fmt.Sprintf("Suggestions: %d\n", len(plan.Suggestions)))
	sb.WriteString(fmt.Sprintf("Blocked:     %d categories\n", len(plan.Blocked)))
	sb.WriteString(fmt.Sprintf("Actions:     %d\n", len(plan.Actions)))
	sb.WriteString("\n")

	shown := 0
	for _, f := range plan.Filled {
		if shown >= maxItemsToShow {
			sb.WriteString(fmt.Sprintf("... and %d more\n", len(plan.Filled)-shown))
			break
		}
		sb.WriteString(fmt.Sprintf("%.2f  %s = %s\n", f.Confidence, f.Field, f.Value))
		shown++
	}

	for _, s := range plan.Suggestions {
		sb.WriteString(fmt.Sprintf("?     %s\n", s.Field))
	}

	p.printBox("FILL PLAN", sb.String())
}

// PrintExecutionResult outputs what the executor applied and what it refused.
func (p *Printer) PrintExecutionResult(result *types.ExecutionResult) {
	if result == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Applied: %d\n", len(result.Filled)))
	sb.WriteString(fmt.Sprintf("Blocked: %d\n", len(result.Blocked)))
	sb.WriteString("\n")

	for _, f := range result.Filled {
		sb.WriteString(fmt.Sprintf("ok    %s\n", f.Field))
	}
	for _, b := range result.Blocked {
		sb.WriteString(fmt.Sprintf("skip  %s\n", b))
	}

	p.printBox("EXECUTION", sb.String())
}
