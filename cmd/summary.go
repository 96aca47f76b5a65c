package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/sells-group/leadhunter/internal/export"
	"github.com/sells-group/leadhunter/internal/pipeline"
)

var (
	summaryTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFB454"))
	summaryLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5C6773"))
	summaryValueStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7FD962"))
	summaryBoxStyle   = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#5C6773")).Padding(0, 2)
)

// renderSummary writes the end-of-run block.
func renderSummary(w io.Writer, res *pipeline.Result) {
	lines := []string{summaryTitleStyle.Render("Lead hunt complete")}
	if res.RunID != "" {
		lines = append(lines, summaryLine("Run", truncateID(res.RunID)))
	}
	lines = append(lines, summaryLine("Duration", res.Duration.Round(time.Millisecond).String()))
	lines = append(lines, "")
	lines = append(lines, summaryLines(res.Summary)...)
	if len(res.Files) > 0 {
		lines = append(lines, "", summaryTitleStyle.Render("Files"))
		for _, f := range res.Files {
			lines = append(lines, "  "+f)
		}
	}
	_, _ = fmt.Fprintln(w, summaryBoxStyle.Render(strings.Join(lines, "\n")))
}

// summaryLines formats the counts and per-field hit rates.
func summaryLines(s export.Summary) []string {
	return []string{
		summaryLine("Original records", fmt.Sprint(s.Original)),
		summaryLine("Unique records", fmt.Sprint(s.Unique)),
		summaryLine("Duplicates removed", fmt.Sprint(s.Removed)),
		summaryLine("With ratings", s.Rate(s.WithRating)),
		summaryLine("With phones", s.Rate(s.WithPhone)),
		summaryLine("With coordinates", s.Rate(s.WithCoordinates)),
		summaryLine("With websites", s.Rate(s.WithWebsite)),
		summaryLine("With addresses", s.Rate(s.WithAddress)),
		summaryLine("AI extracted", fmt.Sprint(s.AIExtracted)),
	}
}

func summaryLine(label, value string) string {
	return summaryLabelStyle.Render(fmt.Sprintf("%-20s", label+":")) + summaryValueStyle.Render(value)
}
