package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// styleFunc is a single-string styling function.
type styleFunc func(string) string

// sf wraps a lipgloss.Style into a styleFunc.
func sf(s lipgloss.Style) styleFunc {
	return func(str string) string { return s.Render(str) }
}

var stageTitles = map[string]string{
	"clusters": "Clusters",
	"tools":    "Tool installations",
	"peering":  "Peerings",
}

func renderView(m Model) string {
	var b strings.Builder

	renderHeader(&b, m)
	renderProgressBar(&b, m)

	for _, stage := range m.Stages() {
		renderStage(&b, m, stage)
	}

	if len(m.Warnings) > 0 {
		renderWarnings(&b, m)
	}

	renderFooter(&b, m)

	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	b.WriteString(titleStyle.Render("testbench: " + m.Title))

	status := " "
	switch {
	case m.Err != nil:
		status += failedStyle.Render(fmt.Sprintf("Error: %v", m.Err))
	case m.Done && m.Summary != nil && len(m.Summary.Failures()) > 0:
		status += warningStyle.Render(string(m.Summary.Stage))
	case m.Done && m.Summary != nil:
		status += readyStyle.Render(string(m.Summary.Stage))
	case m.Done:
		status += failedStyle.Render("Aborted")
	case m.Cancelled:
		status += warningStyle.Render("Cancelling...")
	case m.StageErr != nil:
		status += failedStyle.Render(fmt.Sprintf("%s failed", m.Stage))
	case m.Stage != "":
		status += activeStyle.Render(currentSpinner(m.SpinnerFrame)+" ") + warningStyle.Render(m.Stage)
	default:
		status += dimStyle.Render("Starting...")
	}
	b.WriteString(status)
	b.WriteString("\n")
}

func renderProgressBar(b *strings.Builder, m Model) {
	progress := calculateProgress(m)
	barWidth := 40
	if m.Width > 0 && m.Width < 80 {
		barWidth = max(m.Width-30, 10)
	}
	filled := min(int(float64(barWidth)*progress), barWidth)

	bar := progressBarFull.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", barWidth-filled))

	fmt.Fprintf(b, "  %s %d%%\n", bar, int(progress*100))
}

func renderStage(b *strings.Builder, m Model, stage string) {
	title, ok := stageTitles[stage]
	if !ok {
		title = stage
	}
	b.WriteString(sectionStyle.Render("  " + title))
	b.WriteString("\n")

	width := 0
	for _, r := range m.Rows {
		if r.Stage == stage {
			width = max(width, len(r.Entity))
		}
	}

	for _, r := range m.Rows {
		if r.Stage != stage {
			continue
		}
		icon, style := rowIcon(r.Status, m.SpinnerFrame)

		dur := ""
		switch {
		case r.Duration > 0:
			dur = formatDuration(r.Duration)
		case r.Status == RowActive && !r.Started.IsZero():
			dur = formatDuration(time.Since(r.Started))
		}

		fmt.Fprintf(b, "    %s %s  %s %s\n",
			style(icon), style(fmt.Sprintf("%-*s", width, r.Entity)), dimStyle.Render(r.Detail), dimStyle.Render(dur))
	}
}

func renderWarnings(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Warnings"))
	b.WriteString("\n")

	// Show last 3 warnings
	start := max(len(m.Warnings)-3, 0)
	for _, w := range m.Warnings[start:] {
		fmt.Fprintf(b, "    %s %s\n", warningStyle.Render(warnMark), dimStyle.Render(w))
	}
}

func renderFooter(b *strings.Builder, m Model) {
	elapsed := formatDuration(time.Since(m.StartTime))
	hint := "q: cancel run"
	if m.Done {
		hint = "done"
	}
	b.WriteString(footerStyle.Render(fmt.Sprintf("  elapsed: %s  |  %s", elapsed, hint)))
	b.WriteString("\n")
}

func rowIcon(status RowStatus, frame int) (string, styleFunc) {
	switch status {
	case RowDone:
		return checkMark, sf(readyStyle)
	case RowFailed:
		return crossMark, sf(failedStyle)
	case RowSkipped:
		return skipMark, sf(warningStyle)
	case RowActive:
		return currentSpinner(frame), sf(activeStyle)
	default:
		return pending, sf(dimStyle)
	}
}

func currentSpinner(frame int) string {
	if frame < 0 {
		frame = -frame
	}
	return spinnerFrames[frame%len(spinnerFrames)]
}

// calculateProgress is the share of seen rows that reached a final status.
func calculateProgress(m Model) float64 {
	if m.Done {
		return 1.0
	}
	if len(m.Rows) == 0 {
		return 0
	}

	finished := 0
	for _, r := range m.Rows {
		if r.Status == RowDone || r.Status == RowFailed || r.Status == RowSkipped {
			finished++
		}
	}
	return float64(finished) / float64(len(m.Rows))
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
