package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailagent/internal/theme"
)

// minContentHeight keeps sub-views renderable in tiny terminals.
const minContentHeight = 3

// Layout manages the frame around the active screen: a title bar on
// top, the screen, and a status bar at the bottom.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height left for the active screen.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.StatusBarHeight
	if h < minContentHeight {
		return minContentHeight
	}
	return h
}

// RenderHeader renders the title bar: the title on the left, the signed-in
// account and sync state on the right.
func (l Layout) RenderHeader(title, status string) string {
	return l.bar(theme.HeaderStyle, title, status)
}

// RenderStatusBar renders the bottom bar. A notice takes the left side
// and pushes the key hints right; without one the hints fill the bar.
// Hints are dropped when the notice needs the whole width.
func (l Layout) RenderStatusBar(notice, hints string) string {
	if notice == "" {
		return l.bar(theme.StatusBarStyle, hints, "")
	}
	if lipgloss.Width(notice)+lipgloss.Width(hints)+4 > l.Width {
		hints = ""
	}
	return l.bar(theme.StatusBarStyle, notice, hints)
}

// bar lays left and right out across the full width on style's
// background.
func (l Layout) bar(style lipgloss.Style, left, right string) string {
	leftRendered := style.Render(left)

	var rightRendered string
	if right != "" {
		rightRendered = style.Align(lipgloss.Right).Render(right)
	}

	gap := l.Width - lipgloss.Width(leftRendered) - lipgloss.Width(rightRendered)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, leftRendered, filler, rightRendered)
}

// RenderWithFrame stacks the header, the screen and the status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}
