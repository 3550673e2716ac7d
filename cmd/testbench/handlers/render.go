package handlers

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/testbench/internal/config"
	"github.com/imamik/testbench/internal/orchestration"
	"github.com/imamik/testbench/internal/provisioning"
)

var (
	colorGreen = lipgloss.Color("#22c55e")
	colorRed   = lipgloss.Color("#ef4444")
	colorBlue  = lipgloss.Color("#3b82f6")
	colorDim   = lipgloss.Color("#6b7280")
	colorWhite = lipgloss.Color("#f9fafb")
	colorAmber = lipgloss.Color("#f59e0b")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	okStyle = lipgloss.NewStyle().
		Foreground(colorGreen)

	failStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	warnStyle = lipgloss.NewStyle().
			Foreground(colorAmber)
)

// renderSummary produces the lipgloss-styled run summary.
func renderSummary(s *orchestration.Summary) string {
	var b strings.Builder

	b.WriteString("\n")
	stage := okStyle.Render(string(s.Stage))
	if s.Stage != provisioning.StageDone {
		stage = failStyle.Render(string(s.Stage))
	}
	b.WriteString(titleStyle.Render("  testbench run: ") + stage)
	b.WriteString(dimStyle.Render(fmt.Sprintf("  (%s)", s.Duration.Round(time.Second))))
	b.WriteString("\n")

	section(&b, "Clusters")
	for _, c := range s.Clusters {
		detail := c.Runtime
		if c.Artifact != "" {
			detail += "  " + c.Artifact
		}
		row(&b, c.Name, c.Outcome, detail)
		for _, w := range c.Warnings {
			b.WriteString("      " + warnStyle.Render("! "+w) + "\n")
		}
	}

	if len(s.ToolInstalls) > 0 {
		section(&b, "Tool installations")
		for _, in := range s.ToolInstalls {
			row(&b, in.Tool+"/"+in.Cluster, in.Outcome, in.Version)
		}
	}

	if len(s.Peerings) > 0 {
		section(&b, "Peerings")
		for _, p := range s.Peerings {
			row(&b, p.Tool+"/"+config.Peering{A: p.A, B: p.B}.String(), p.Outcome, "")
		}
	}

	if failures := s.Failures(); len(failures) > 0 {
		section(&b, "Failures")
		for _, f := range failures {
			fmt.Fprintf(&b, "    %s %s\n", failStyle.Render(string(f.Kind)), f.Entity)
			b.WriteString(dimStyle.Render("      "+f.Reason) + "\n")
		}
	}

	b.WriteString("\n")
	return b.String()
}

func section(b *strings.Builder, title string) {
	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("  " + title))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  " + strings.Repeat("─", 35)))
	b.WriteString("\n")
}

func row(b *strings.Builder, name string, o orchestration.Outcome, detail string) {
	mark := okStyle.Render("✓")
	if o.Reason != "" {
		mark = failStyle.Render("✗")
	}
	fmt.Fprintf(b, "    %s %-28s %-10s %s\n", mark, name, o.Status, dimStyle.Render(detail))
}

// printSummaryJSON outputs the summary as JSON.
func printSummaryJSON(s *orchestration.Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}

func sortedToolNames(tools map[string]config.ToolSpec) []string {
	return slices.Sorted(maps.Keys(tools))
}
