package inbox

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailagent/internal/model"
	"github.com/nhle/mailagent/internal/theme"
)

// EmailItem wraps a model.Email so it can be used in a bubbles/list.
type EmailItem struct {
	Email model.Email
}

// FilterValue returns the string used for fuzzy filtering.
func (i EmailItem) FilterValue() string { return i.Email.Subject }

// Title returns the subject line for the list.
func (i EmailItem) Title() string { return i.Email.Subject }

// Description returns a short summary line for the list.
func (i EmailItem) Description() string {
	parts := []string{
		i.Email.Sender,
		string(i.Email.Category),
		relativeTime(i.Email.Timestamp.Time),
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering emails.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused for now).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single list item line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ei, ok := item.(EmailItem)
	if !ok {
		return
	}
	fmt.Fprint(w, renderLine(ei.Email, index == m.Index(), m.Width()))
}

func renderLine(e model.Email, selected bool, width int) string {
	marker := " "
	if !e.IsRead {
		marker = "●"
	}
	star := " "
	if e.IsStarred {
		star = lipgloss.NewStyle().Foreground(theme.ColorYellow).Render("★")
	}

	catBadge := theme.CategoryStyle(string(e.Category)).
		Render(categoryLabel(e.Category))

	priBadge := ""
	if e.Priority != model.PriorityNone {
		priBadge = theme.PriorityStyle(e.Priority).
			Render(priorityLabel(e.Priority)) + " "
	}

	sender := truncate(senderName(e.Sender), 20)
	subject := e.Subject
	if !e.IsRead {
		subject = theme.UnreadStyle.Render(subject)
	}

	timeStr := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(relativeTime(e.Timestamp.Time))

	line := fmt.Sprintf(
		"%s%s %s %s%-20s %s  %s",
		marker, star, catBadge, priBadge, sender, subject, timeStr,
	)
	if width > 0 {
		line = lipgloss.NewStyle().MaxWidth(width).Render(line)
	}

	if e.IsArchived {
		line = theme.DimmedStyle.Render(line)
	}

	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

// senderName strips the address from "Name <addr>" senders.
func senderName(sender string) string {
	if i := strings.Index(sender, "<"); i > 0 {
		return strings.Trim(strings.TrimSpace(sender[:i]), `"`)
	}
	return sender
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// categoryLabel returns a fixed-width badge text for the category.
func categoryLabel(c model.Category) string {
	switch c {
	case model.CategoryImportant:
		return "IMP"
	case model.CategoryNewsletter:
		return "NEWS"
	case model.CategorySpam:
		return "SPAM"
	case model.CategoryToDo:
		return "TODO"
	case model.CategoryPersonal:
		return "PERS"
	case model.CategoryUncategorized, "":
		return "----"
	default:
		return truncate(strings.ToUpper(string(c)), 4)
	}
}

// priorityLabel returns a short label for the backend's priority.
func priorityLabel(p string) string {
	switch p {
	case model.PriorityHigh:
		return "!!!"
	case model.PriorityMedium:
		return "!!"
	case model.PriorityLow:
		return "!"
	default:
		return ""
	}
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 02")
	}
}
