// Package export renders drafts and generated replies as RFC 5322
// messages that any mail client can open.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/mailagent/internal/model"
)

// Options controls the envelope of an exported message.
type Options struct {
	// From is the sender address, usually the signed-in user.
	From string

	// Date stamps the message. Zero means the draft's UpdatedAt, then now.
	Date time.Time
}

// ReplyDraft turns a generated reply into a draft addressed to the
// sender of the original email.
func ReplyDraft(e model.Email, r model.Reply) model.DraftInput {
	subject := e.Subject
	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}
	return model.DraftInput{
		EmailID:   e.ID,
		Recipient: e.Sender,
		Subject:   subject,
		Body:      r.Reply,
	}
}

// WriteDraft writes d to w as a single-part text/plain message.
func WriteDraft(w io.Writer, d model.Draft, opts Options) error {
	var h mail.Header

	date := opts.Date
	if date.IsZero() {
		date = d.UpdatedAt.Time
	}
	if date.IsZero() {
		date = time.Now()
	}
	h.SetDate(date)
	h.SetSubject(d.Subject)

	if opts.From != "" {
		from, err := mail.ParseAddress(opts.From)
		if err != nil {
			return fmt.Errorf("parsing sender %q: %w", opts.From, err)
		}
		h.SetAddressList("From", []*mail.Address{from})
	}

	if d.Recipient != "" {
		to, err := mail.ParseAddressList(d.Recipient)
		if err != nil {
			return fmt.Errorf("parsing recipient %q: %w", d.Recipient, err)
		}
		h.SetAddressList("To", to)
	}

	if err := h.GenerateMessageID(); err != nil {
		return fmt.Errorf("generating message id: %w", err)
	}
	if d.ID != "" {
		h.Set("X-Draft-ID", d.ID)
	}
	if d.EmailID != "" {
		h.Set("X-Reply-To-Email-ID", d.EmailID)
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	body, err := mail.CreateSingleInlineWriter(w, h)
	if err != nil {
		return fmt.Errorf("creating message writer: %w", err)
	}
	if _, err := io.WriteString(body, d.Body); err != nil {
		body.Close()
		return fmt.Errorf("writing message body: %w", err)
	}
	if err := body.Close(); err != nil {
		return fmt.Errorf("closing message body: %w", err)
	}
	return nil
}

// WriteDraftFile writes d to path, creating parent directories.
func WriteDraftFile(path string, d model.Draft, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteDraft(f, d, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadDraft parses a message written by WriteDraft back into a draft.
func ReadDraft(r io.Reader) (model.Draft, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return model.Draft{}, fmt.Errorf("reading message: %w", err)
	}
	defer mr.Close()

	var d model.Draft
	if d.Subject, err = mr.Header.Subject(); err != nil {
		return model.Draft{}, fmt.Errorf("decoding subject: %w", err)
	}
	if to, err := mr.Header.AddressList("To"); err == nil {
		addrs := make([]string, len(to))
		for i, a := range to {
			addrs[i] = a.String()
		}
		d.Recipient = strings.Join(addrs, ", ")
	}
	if date, err := mr.Header.Date(); err == nil {
		d.UpdatedAt = model.NewTimestamp(date)
	}
	d.ID = mr.Header.Get("X-Draft-ID")
	d.EmailID = mr.Header.Get("X-Reply-To-Email-ID")

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return model.Draft{}, fmt.Errorf("reading part: %w", err)
		}
		if _, ok := part.Header.(*mail.InlineHeader); !ok {
			continue
		}
		body, err := io.ReadAll(part.Body)
		if err != nil {
			return model.Draft{}, fmt.Errorf("reading body: %w", err)
		}
		d.Body = string(body)
		break
	}

	return d, nil
}
