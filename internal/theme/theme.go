// Package theme holds the shared lipgloss styles. Styles are package
// variables rebuilt by Use, so views read them at render time.
package theme

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// Palette is the set of colors a theme is built from.
type Palette struct {
	Accent  lipgloss.TerminalColor
	Good    lipgloss.TerminalColor
	Warn    lipgloss.TerminalColor
	Bad     lipgloss.TerminalColor
	Hot     lipgloss.TerminalColor
	Special lipgloss.TerminalColor
	Muted   lipgloss.TerminalColor
	Text    lipgloss.TerminalColor
	Subtle  lipgloss.TerminalColor
	Border  lipgloss.TerminalColor
}

// palettes are selectable through display.theme.
var palettes = map[string]Palette{
	"default": {
		Accent:  lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"},
		Good:    lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"},
		Warn:    lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"},
		Bad:     lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"},
		Hot:     lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"},
		Special: lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"},
		Muted:   lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"},
		Text:    lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"},
		Subtle:  lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"},
		Border:  lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"},
	},
	"mono": {
		Accent:  lipgloss.NoColor{},
		Good:    lipgloss.NoColor{},
		Warn:    lipgloss.NoColor{},
		Bad:     lipgloss.NoColor{},
		Hot:     lipgloss.NoColor{},
		Special: lipgloss.NoColor{},
		Muted:   lipgloss.NoColor{},
		Text:    lipgloss.NoColor{},
		Subtle:  lipgloss.NoColor{},
		Border:  lipgloss.NoColor{},
	},
}

// Colors of the active palette.
var (
	ColorBlue    lipgloss.TerminalColor
	ColorGreen   lipgloss.TerminalColor
	ColorYellow  lipgloss.TerminalColor
	ColorRed     lipgloss.TerminalColor
	ColorOrange  lipgloss.TerminalColor
	ColorMagenta lipgloss.TerminalColor
	ColorGray    lipgloss.TerminalColor
	ColorWhite   lipgloss.TerminalColor
	ColorSubtle  lipgloss.TerminalColor
	ColorBorder  lipgloss.TerminalColor
)

// Styles of the active palette.
var (
	// HeaderStyle is the application title bar.
	HeaderStyle lipgloss.Style
	// StatusBarStyle is the bottom bar with notices and key hints.
	StatusBarStyle lipgloss.Style
	// DetailPanelStyle wraps full-screen panels.
	DetailPanelStyle lipgloss.Style
	// TitleStyle heads a panel.
	TitleStyle lipgloss.Style
	ListItemStyle     lipgloss.Style
	SelectedItemStyle lipgloss.Style
	HelpStyle         lipgloss.Style
	// DimmedStyle renders archived emails.
	DimmedStyle lipgloss.Style
	ErrorStyle  lipgloss.Style
	// NoticeStyle renders success notices.
	NoticeStyle lipgloss.Style
	// UnreadStyle marks unread emails in the inbox list.
	UnreadStyle lipgloss.Style
)

var current = "default"

func init() {
	build(palettes[current])
}

// Names lists the available themes.
func Names() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Current returns the name of the active theme.
func Current() string {
	return current
}

// Use switches to the named theme. An empty name selects "default".
func Use(name string) error {
	if name == "" {
		name = "default"
	}
	p, ok := palettes[name]
	if !ok {
		return fmt.Errorf("unknown theme %q (available: %v)", name, Names())
	}
	current = name
	build(p)
	return nil
}

func build(p Palette) {
	ColorBlue = p.Accent
	ColorGreen = p.Good
	ColorYellow = p.Warn
	ColorRed = p.Bad
	ColorOrange = p.Hot
	ColorMagenta = p.Special
	ColorGray = p.Muted
	ColorWhite = p.Text
	ColorSubtle = p.Subtle
	ColorBorder = p.Border

	HeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Text).
		Background(p.Accent).
		Padding(0, 1)

	StatusBarStyle = lipgloss.NewStyle().
		Foreground(p.Text).
		Background(p.Subtle).
		Padding(0, 1)

	DetailPanelStyle = lipgloss.NewStyle().
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Border)

	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Text).
		MarginBottom(1)

	ListItemStyle = lipgloss.NewStyle().PaddingLeft(2)

	SelectedItemStyle = lipgloss.NewStyle().
		PaddingLeft(1).
		Bold(true).
		Foreground(p.Accent).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(p.Accent)

	HelpStyle = lipgloss.NewStyle().Foreground(p.Muted).Italic(true)
	DimmedStyle = lipgloss.NewStyle().Foreground(p.Muted).Strikethrough(true)
	ErrorStyle = lipgloss.NewStyle().Foreground(p.Bad).Bold(true)
	NoticeStyle = lipgloss.NewStyle().Foreground(p.Good)
	UnreadStyle = lipgloss.NewStyle().Bold(true).Foreground(p.Text)
}

// CategoryStyle returns a color-coded style for an email category.
func CategoryStyle(category string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch category {
	case "Important":
		return base.Foreground(ColorRed)
	case "To-Do":
		return base.Foreground(ColorYellow)
	case "Newsletter":
		return base.Foreground(ColorBlue)
	case "Personal":
		return base.Foreground(ColorGreen)
	case "Spam":
		return base.Foreground(ColorMagenta)
	default:
		return base.Foreground(ColorGray)
	}
}

// PriorityStyle returns a color-coded style for the backend's priority
// label ("high", "medium", "low").
func PriorityStyle(priority string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch priority {
	case "high":
		return base.Foreground(ColorRed)
	case "medium":
		return base.Foreground(ColorOrange)
	case "low":
		return base.Foreground(ColorBlue)
	default:
		return base.Foreground(ColorGray)
	}
}
