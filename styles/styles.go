package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Primary = lipgloss.Color("#7D56F4") // Purple
	Success = lipgloss.Color("#00E680") // Green
	Error   = lipgloss.Color("#FF4D4D") // Red
	Muted   = lipgloss.Color("#6B7280") // Gray
	Text    = lipgloss.Color("#E5E7EB") // Light Gray

	TitleStyle = lipgloss.NewStyle().
			Foreground(Text).
			Background(Primary).
			Padding(0, 1).
			Bold(true)

	FreshStyle = lipgloss.NewStyle().
			Foreground(Success)

	StaleStyle = lipgloss.NewStyle().
			Foreground(Error)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	NameStyle = lipgloss.NewStyle().
			Bold(true)
)

// Freshness renders the fresh/stale badge used in status output.
func Freshness(fresh bool) string {
	if fresh {
		return FreshStyle.Render("fresh")
	}
	return StaleStyle.Render("stale")
}
