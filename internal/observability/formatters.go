// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/bullet-ranker/internal/pipeline"
	"github.com/jonathan/bullet-ranker/internal/types"
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

// PrintJobAnalysis outputs a human-readable summary of the analyzed job.
func (p *Printer) PrintJobAnalysis(analysis *types.JobAnalysis) {
	if analysis == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Title:  %s\n", analysis.Title))
	if analysis.FunctionBias != "" {
		sb.WriteString(fmt.Sprintf("Bias:   %s\n", analysis.FunctionBias))
	}

	if len(analysis.Skills) > 0 {
		sb.WriteString("\nSkills:\n")
		count := min(len(analysis.Skills), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", analysis.Skills[i]))
		}
		if len(analysis.Skills) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(analysis.Skills)-maxItemsToShow))
		}
	}

	if len(analysis.Requirements) > 0 {
		sb.WriteString("\nRequirements:\n")
		count := min(len(analysis.Requirements), 3)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", analysis.Requirements[i]))
		}
		if len(analysis.Requirements) > 3 {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(analysis.Requirements)-3))
		}
	}

	p.printBox("JOB ANALYSIS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRecommendation outputs the selected bullets per role with their score
// breakdowns.
func (p *Printer) PrintRecommendation(rec *pipeline.Recommendation) {
	if rec == nil || len(rec.Roles) == 0 {
		return
	}

	for _, role := range rec.Roles {
		var sb strings.Builder
		for i, rb := range role.Bullets {
			sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, rb.Bullet.Text))
			sb.WriteString(fmt.Sprintf("    composite=%.3f rel=%.2f qual=%.2f rec=%.2f\n",
				rb.Score.Composite, rb.Score.Relevance, rb.Score.Quality, rb.Score.Recency))
			if i < len(role.Bullets)-1 {
				sb.WriteString("\n")
			}
		}

		title := role.Role.Title
		if role.Role.Company != "" {
			title += " @ " + role.Role.Company
		}
		p.printBox(strings.ToUpper(title), strings.TrimSuffix(sb.String(), "\n"))
	}
}
