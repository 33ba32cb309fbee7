// Package ui provides the visual styling for the quantum-breach console.
// Phosphor green on black by default, with a light variant for pale terminals.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	// Dark Mode Colors (Default)
	DarkBackground = lipgloss.Color("#020202")
	DarkForeground = lipgloss.Color("#d8ffd8")
	DarkPrimary    = lipgloss.Color("#00ff41") // Phosphor green
	DarkAccent     = lipgloss.Color("#00ff41")
	DarkMuted      = lipgloss.Color("#4b5563")
	DarkBorder     = lipgloss.Color("#0b5d1e")

	// Light Mode Colors
	LightBackground = lipgloss.Color("#f4f5f6")
	LightForeground = lipgloss.Color("#0a1f0f")
	LightPrimary    = lipgloss.Color("#0a7d2c")
	LightAccent     = lipgloss.Color("#0a7d2c")
	LightMuted      = lipgloss.Color("#6b7280")
	LightBorder     = lipgloss.Color("#9bd3a8")

	// Semantic Colors (same in both modes)
	Destructive = lipgloss.Color("#dc2626") // Red
	Caution     = lipgloss.Color("#eab308") // Yellow
	Suppress    = lipgloss.Color("#3b82f6") // Blue
	Bonus       = lipgloss.Color("#60a5fa")
)

// Theme holds the current color scheme
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	IsDark     bool
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		IsDark:     true,
	}
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Muted:      LightMuted,
		Border:     LightBorder,
		IsDark:     false,
	}
}

// ThemeByName resolves a configured theme. "auto" and unknown names detect.
func ThemeByName(name string) Theme {
	switch strings.ToLower(name) {
	case "dark":
		return DarkTheme()
	case "light":
		return LightTheme()
	}
	return DetectTheme()
}

// DetectTheme picks light mode only when the terminal reports a light background.
func DetectTheme() Theme {
	if os.Getenv("BREACH_LIGHT_MODE") == "1" {
		return LightTheme()
	}
	// Format is usually "foreground;background"
	parts := strings.Split(os.Getenv("COLORFGBG"), ";")
	if len(parts) == 2 {
		// 7 and 9-15 are the light ANSI backgrounds
		if bgIdx, err := strconv.Atoi(parts[1]); err == nil && (bgIdx == 7 || bgIdx >= 9) {
			return LightTheme()
		}
	}
	return DarkTheme()
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	// Layout
	Header lipgloss.Style
	Footer lipgloss.Style
	Panel  lipgloss.Style

	// Text
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style

	// Status
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	// Challenge terminal
	Prompt    lipgloss.Style
	Typed     lipgloss.Style
	Mistyped  lipgloss.Style
	Pending   lipgloss.Style
	StageDone lipgloss.Style
	StageNow  lipgloss.Style
	StageNext lipgloss.Style
	Timer     lipgloss.Style
	TimerLow  lipgloss.Style
	BonusFlag lipgloss.Style

	// Roster
	Selected lipgloss.Style
	Cell     lipgloss.Style

	// Components
	Spinner lipgloss.Style
	Divider lipgloss.Style
	Badge   lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			Padding(0, 1).
			BorderStyle(lipgloss.ThickBorder()).
			BorderBottom(true).
			BorderForeground(theme.Border),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 1),

		Panel: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			Italic(true),

		Subtitle: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Success: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(Caution).
			Bold(true),

		Info: lipgloss.NewStyle().
			Foreground(Suppress),

		Prompt: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		Typed: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Mistyped: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true).
			Underline(true),

		Pending: lipgloss.NewStyle().
			Foreground(theme.Muted),

		StageDone: lipgloss.NewStyle().
			Foreground(theme.Background).
			Background(theme.Primary).
			Padding(0, 1),

		StageNow: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Border(lipgloss.NormalBorder(), false, true).
			BorderForeground(theme.Primary).
			Padding(0, 1),

		StageNext: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 1),

		Timer: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		TimerLow: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true).
			Blink(true),

		BonusFlag: lipgloss.NewStyle().
			Foreground(Bonus).
			Bold(true),

		Selected: lipgloss.NewStyle().
			Foreground(theme.Background).
			Background(theme.Primary).
			Bold(true),

		Cell: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Padding(0, 1),

		Spinner: lipgloss.NewStyle().
			Foreground(theme.Accent),

		Divider: lipgloss.NewStyle().
			Foreground(theme.Border),

		Badge: lipgloss.NewStyle().
			Background(theme.Primary).
			Foreground(theme.Background).
			Padding(0, 1).
			Bold(true),
	}
}

// DefaultStyles returns styles with the detected theme
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// Logo returns the boot banner
func Logo(s Styles) string {
	logo := `
  ___  _   _  _   _  _ _____ _   _ __  __    ___ ___ ___   _   ___ _  _
 / _ \| | | |/_\ | \| |_   _| | | |  \/  |  | _ ) _ \ __| /_\ / __| || |
| (_) | |_| / _ \| .` + "`" + ` | | | | |_| | |\/| |  | _ \   / _| / _ \ (__| __ |
 \__\_\\___/_/ \_\_|\_| |_|  \___/|_|  |_|__|___/_|_\___/_/ \_\___|_||_|
                                        |___|`
	return s.Title.Render(logo)
}

// RenderDivider returns a horizontal divider
func (s Styles) RenderDivider(width int) string {
	if width < 1 {
		width = 1
	}
	return s.Divider.Render(strings.Repeat("─", width))
}
