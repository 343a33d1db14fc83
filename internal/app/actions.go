package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/mailagent/internal/api"
	"github.com/nhle/mailagent/internal/apiclient"
	"github.com/nhle/mailagent/internal/export"
	"github.com/nhle/mailagent/internal/model"
	emailview "github.com/nhle/mailagent/internal/ui/email"
	inboxview "github.com/nhle/mailagent/internal/ui/inbox"
	"github.com/nhle/mailagent/internal/ui/login"
	promptsview "github.com/nhle/mailagent/internal/ui/prompts"
)

// requestTimeout bounds every backend call started from the UI.
const requestTimeout = 30 * time.Second

// noticeMsg shows a one-line message in the status bar.
type noticeMsg struct {
	text string
	err  bool
}

// sampleLoadedMsg is sent once the sample inbox is in the store.
type sampleLoadedMsg struct{ err error }

// emailUpdatedMsg carries the selected email after a local mutation so
// the detail view and the list can be refreshed together.
type emailUpdatedMsg struct {
	email model.Email
	ok    bool
	err   error
}

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// submitLogin runs the operation selected on the sign-in form.
func (m Model) submitLogin(msg login.SubmitMsg) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()

		switch msg.Mode {
		case login.ModeRegister:
			_, err := svc.Session.Register(ctx, api.RegisterRequest{
				Email:    msg.Email,
				Password: msg.Password,
				FullName: msg.FullName,
			})
			return login.ResultMsg{Err: err}

		case login.ModeReset:
			text, err := svc.Session.RequestPasswordReset(ctx, msg.Email)
			if err != nil {
				return login.ResultMsg{Err: err}
			}
			if text == "" {
				text = "If the address is registered, a reset link is on its way."
			}
			return login.ResultMsg{Notice: text}

		case login.ModeSample:
			return sampleLoadedMsg{err: svc.Inbox.LoadSample(ctx)}

		default:
			_, err := svc.Session.Login(ctx, msg.Email, msg.Password)
			return login.ResultMsg{Err: err}
		}
	}
}

// openEmail fetches one email for the detail view and puts it in focus
// for the agent panel.
func (m Model) openEmail(id string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()

		e, err := svc.Inbox.Open(ctx, id)
		if e.ID != "" {
			svc.Assistant.Focus(&e)
		}
		return emailview.LoadedMsg{Email: e, Err: err}
	}
}

// runEmailAction executes an action requested by the detail view.
func (m Model) runEmailAction(msg emailview.ActionMsg) tea.Cmd {
	svc := m.svc

	switch msg.Action {
	case emailview.ActionSetCategory:
		return func() tea.Msg {
			ctx, cancel := withTimeout()
			defer cancel()
			err := svc.Inbox.SetCategory(ctx, msg.EmailID, msg.Category)
			e, ok := svc.Inbox.Selected()
			return emailUpdatedMsg{email: e, ok: ok, err: err}
		}

	case emailview.ActionStar, emailview.ActionArchive:
		return func() tea.Msg {
			if msg.Action == emailview.ActionStar {
				svc.Inbox.ToggleStar(msg.EmailID)
			} else {
				svc.Inbox.ToggleArchived(msg.EmailID)
			}
			e, ok := svc.Inbox.Selected()
			return emailUpdatedMsg{email: e, ok: ok}
		}

	case emailview.ActionReply:
		return func() tea.Msg {
			ctx, cancel := withTimeout()
			defer cancel()
			r, err := svc.Inbox.GenerateReply(ctx, msg.EmailID)
			if err != nil {
				return emailview.ReplyMsg{EmailID: msg.EmailID, Err: err}
			}
			return emailview.ReplyMsg{EmailID: msg.EmailID, Reply: r.Reply}
		}

	case emailview.ActionExport:
		e, ok := m.email.Email()
		if !ok || e.ID != msg.EmailID {
			return nil
		}
		return m.exportReply(e, msg.Reply)
	}

	return nil
}

// exportReply saves a generated reply as a backend draft when signed in
// and writes it to the export directory as an .eml file.
func (m Model) exportReply(e model.Email, reply string) tea.Cmd {
	svc := m.svc
	dir := svc.Config.Export.Dir
	from := ""
	if u := svc.Session.Session().User; u != nil {
		from = u.Email
	}

	return func() tea.Msg {
		in := export.ReplyDraft(e, model.Reply{EmailID: e.ID, Reply: reply})
		d := model.Draft{
			EmailID:   in.EmailID,
			Recipient: in.Recipient,
			Subject:   in.Subject,
			Body:      in.Body,
		}

		if svc.Session.Authenticated() {
			ctx, cancel := withTimeout()
			defer cancel()
			created, err := svc.API.Drafts.Create(ctx, in)
			if err != nil {
				return emailview.NoticeMsg{
					Text: apiclient.Message(err, "Failed to save draft"),
					Err:  true,
				}
			}
			d = *created
		}

		path := filepath.Join(dir, draftFileName(d))
		if err := export.WriteDraftFile(path, d, export.Options{From: from}); err != nil {
			svc.Logger.Warn("writing draft failed", "path", path, "error", err)
			return emailview.NoticeMsg{Text: "Failed to write draft file", Err: true}
		}
		return emailview.NoticeMsg{Text: "Draft saved to " + path}
	}
}

// draftFileName names the exported file after the draft, or after the
// email for drafts that were never stored.
func draftFileName(d model.Draft) string {
	name := "reply-" + d.EmailID
	if d.ID != "" {
		name = "draft-" + d.ID
	}
	return filepath.Base(name) + ".eml"
}

// savePrompt creates or updates a prompt template.
func (m Model) savePrompt(id string, in model.PromptInput) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()

		var err error
		if id == "" {
			_, err = svc.Prompts.Create(ctx, in)
		} else {
			_, err = svc.Prompts.Update(ctx, id, in)
		}
		return promptsview.ChangedMsg{Err: err}
	}
}

// deletePrompt removes a prompt template.
func (m Model) deletePrompt(id string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		return promptsview.ChangedMsg{Err: svc.Prompts.Delete(ctx, id)}
	}
}

// reloadInbox re-fetches the inbox with the current filters.
func (m Model) reloadInbox() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		return inboxview.ChangedMsg{Err: svc.Inbox.Reload(ctx)}
	}
}

// logout ends the session. The coordinator reacts to the resulting
// event and the view switches on its SessionMsg.
func (m Model) logout() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		svc.Session.Logout(ctx)
		return nil
	}
}

// showStats fetches the inbox statistics into a notice.
func (m Model) showStats() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()

		st, err := svc.API.Analytics.Stats(ctx)
		if err != nil {
			return noticeMsg{text: apiclient.Message(err, "Failed to load stats"), err: true}
		}
		text := fmt.Sprintf("%d emails, %d unread, %d starred, %d archived",
			st.TotalEmails, st.UnreadCount, st.StarredCount, st.ArchivedCount)
		if by := formatCounts(st.ByCategory); by != "" {
			text += " | " + by
		}
		return noticeMsg{text: text}
	}
}

// showProductivity fetches the productivity summary into a notice.
func (m Model) showProductivity() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()

		p, err := svc.API.Analytics.Productivity(ctx)
		if err != nil {
			return noticeMsg{text: apiclient.Message(err, "Failed to load productivity"), err: true}
		}
		return noticeMsg{text: fmt.Sprintf(
			"%d/%d action items pending, %d replies drafted, %.0f%% response rate",
			p.ActionItemsPending, p.ActionItemsTotal, p.RepliesDrafted, p.ResponseRate*100,
		)}
	}
}

// showHealth reports backend health.
func (m Model) showHealth() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()

		h, err := svc.API.Health.Check(ctx)
		if err != nil {
			return noticeMsg{text: apiclient.Message(err, "Backend unreachable"), err: true}
		}
		text := "backend " + h.Status
		if h.Version != "" {
			text += " (" + h.Version + ")"
		}
		return noticeMsg{text: text}
	}
}

// showAgentStatus reports which model the agent runs on.
func (m Model) showAgentStatus() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()

		st, err := svc.API.Agent.Status(ctx)
		if err != nil {
			return noticeMsg{text: apiclient.Message(err, "Agent status unavailable"), err: true}
		}
		text := "agent " + st.Status
		if st.LLMProvider != "" {
			text += " on " + st.LLMProvider
			if st.LLMModel != "" {
				text += "/" + st.LLMModel
			}
		}
		if st.MockMode {
			text += " (mock)"
		}
		return noticeMsg{text: text}
	}
}

// formatCounts renders a count map as "a 1, b 2" in key order.
func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", k, counts[k]))
	}
	return strings.Join(parts, ", ")
}
