package navigator

import "github.com/charmbracelet/lipgloss"

// Theme defines all colors used by the screen browser.
// Use DarkTheme() or LightTheme() to get a pre-built theme,
// or construct a custom Theme.
type Theme struct {
	Primary         lipgloss.Color // title, cursor
	Secondary       lipgloss.Color // selected field
	Editable        lipgloss.Color // unprotected fields on the screen
	Hidden          lipgloss.Color // non-display fields
	Error           lipgloss.Color
	Warning         lipgloss.Color // refresh in progress
	Success         lipgloss.Color // labels
	Text            lipgloss.Color // protected screen text
	TextMuted       lipgloss.Color // hints, attributes
	BackgroundElem  lipgloss.Color // selected row background
	BackgroundField lipgloss.Color // editable field background
	Border          lipgloss.Color // separators, screen frame
}

// DarkTheme returns the default dark theme.
func DarkTheme() Theme {
	return Theme{
		Primary:         lipgloss.Color("#fab283"),
		Secondary:       lipgloss.Color("#5c9cf5"),
		Editable:        lipgloss.Color("#7fd88f"),
		Hidden:          lipgloss.Color("#9d7cd8"),
		Error:           lipgloss.Color("#e06c75"),
		Warning:         lipgloss.Color("#f5a742"),
		Success:         lipgloss.Color("#56b6c2"),
		Text:            lipgloss.Color("#eeeeee"),
		TextMuted:       lipgloss.Color("#808080"),
		BackgroundElem:  lipgloss.Color("#1e1e1e"),
		BackgroundField: lipgloss.Color("#262626"),
		Border:          lipgloss.Color("#484848"),
	}
}

// LightTheme returns a light theme for bright terminal backgrounds.
func LightTheme() Theme {
	return Theme{
		Primary:         lipgloss.Color("#b35c00"),
		Secondary:       lipgloss.Color("#0550ae"),
		Editable:        lipgloss.Color("#116329"),
		Hidden:          lipgloss.Color("#6639ba"),
		Error:           lipgloss.Color("#cf222e"),
		Warning:         lipgloss.Color("#bf8700"),
		Success:         lipgloss.Color("#0969da"),
		Text:            lipgloss.Color("#1f2328"),
		TextMuted:       lipgloss.Color("#656d76"),
		BackgroundElem:  lipgloss.Color("#f6f8fa"),
		BackgroundField: lipgloss.Color("#eaeef2"),
		Border:          lipgloss.Color("#d0d7de"),
	}
}

// ThemeByName returns a theme by name. Defaults to dark.
func ThemeByName(name string) Theme {
	switch name {
	case "light":
		return LightTheme()
	default:
		return DarkTheme()
	}
}

// styles holds all lipgloss styles derived from a Theme.
type styles struct {
	title     lipgloss.Style
	header    lipgloss.Style
	selected  lipgloss.Style
	protected lipgloss.Style
	editable  lipgloss.Style
	hidden    lipgloss.Style
	current   lipgloss.Style // the selected field on the screen
	label     lipgloss.Style
	busy      lipgloss.Style
	err       lipgloss.Style
	dim       lipgloss.Style
	text      lipgloss.Style

	// Hints
	hintKey  lipgloss.Style
	hintDesc lipgloss.Style
}

// newStyles builds all styles from a theme.
func newStyles(t Theme) styles {
	return styles{
		title:     lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		header:    lipgloss.NewStyle().Foreground(t.Border),
		selected:  lipgloss.NewStyle().Bold(true).Foreground(t.Secondary).Background(t.BackgroundElem),
		protected: lipgloss.NewStyle().Foreground(t.Text),
		editable:  lipgloss.NewStyle().Foreground(t.Editable).Background(t.BackgroundField),
		hidden:    lipgloss.NewStyle().Foreground(t.Hidden).Background(t.BackgroundField),
		current:   lipgloss.NewStyle().Bold(true).Foreground(t.Secondary).Underline(true),
		label:     lipgloss.NewStyle().Foreground(t.Success),
		busy:      lipgloss.NewStyle().Foreground(t.Warning),
		err:       lipgloss.NewStyle().Foreground(t.Error),
		dim:       lipgloss.NewStyle().Foreground(t.TextMuted),
		text:      lipgloss.NewStyle().Foreground(t.Text),

		hintKey:  lipgloss.NewStyle().Foreground(t.Text),
		hintDesc: lipgloss.NewStyle().Foreground(t.TextMuted),
	}
}
