package output

import "github.com/charmbracelet/lipgloss"

// Color constants using the ANSI 256-color palette.
const (
	ColorPrimary = lipgloss.Color("39")
	ColorSuccess = lipgloss.Color("42")
	ColorWarning = lipgloss.Color("214")
	ColorDanger  = lipgloss.Color("196")
	ColorMuted   = lipgloss.Color("245")
)

// Box styles.
var (
	// HeaderBox frames the run summary.
	HeaderBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1).
			MarginBottom(1)
)

// Text styles.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	PathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	// AddedStyle, RemovedStyle and ModifiedStyle color change markers.
	AddedStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true)

	RemovedStyle = lipgloss.NewStyle().
			Foreground(ColorDanger).
			Bold(true)

	ModifiedStyle = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)

	FolderStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary)
)
