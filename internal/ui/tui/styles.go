package tui

import "github.com/charmbracelet/lipgloss"

// Same palette as the summary renderer of the CLI.
var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorBlue   = lipgloss.Color("#3b82f6")
	colorDim    = lipgloss.Color("#6b7280")
	colorWhite  = lipgloss.Color("#f9fafb")
)

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

var (
	titleStyle   = fg(colorWhite).Bold(true)
	sectionStyle = fg(colorBlue).Bold(true).MarginTop(1)
	activeStyle  = fg(colorWhite).Bold(true)
	footerStyle  = fg(colorDim).MarginTop(1)

	readyStyle   = fg(colorGreen)
	failedStyle  = fg(colorRed)
	warningStyle = fg(colorYellow)
	dimStyle     = fg(colorDim)

	progressBarFull  = fg(colorGreen)
	progressBarEmpty = fg(colorDim)
)

// Row marks, fixed width so entity names line up.
const (
	checkMark = "[OK]"
	crossMark = "[!!]"
	skipMark  = "[--]"
	pending   = "[  ]"
	warnMark  = "[??]"
)

var spinnerFrames = []string{"[. ]", "[..]", "[ .]", "[..]"}
