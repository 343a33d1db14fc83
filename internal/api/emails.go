package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nhle/mailagent/internal/model"
)

// InboxQuery narrows GET /emails/my-inbox. Zero fields are omitted.
type InboxQuery struct {
	Category model.Category
	Search   string
	SortBy   model.SortKey
	Limit    int
	Offset   int
}

// QueryFromFilters maps the inbox filter state onto the query string the
// backend expects. The "all" category is sent as no category.
func QueryFromFilters(f model.Filters) InboxQuery {
	f = f.Normalized()
	q := InboxQuery{Search: f.Search, SortBy: f.SortBy}
	if f.Category != model.CategoryAll {
		q.Category = f.Category
	}
	return q
}

func (q InboxQuery) values() url.Values {
	v := url.Values{}
	if q.Category != "" {
		v.Set("category", string(q.Category))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.SortBy != "" {
		v.Set("sort_by", string(q.SortBy))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	return v
}

// SyncResult is the response of POST /emails/sync.
type SyncResult struct {
	Message  string          `json:"message"`
	UserID   string          `json:"user_id,omitempty"`
	SyncedAt model.Timestamp `json:"synced_at"`
}

type mockResult struct {
	Message string        `json:"message"`
	Emails  []model.Email `json:"emails"`
}

// Emails wraps the /emails endpoints.
type Emails struct {
	c Requester
}

// MyInbox returns the signed-in user's emails, filtered server-side.
func (e *Emails) MyInbox(ctx context.Context, q InboxQuery) ([]model.Email, error) {
	var out []model.Email
	if err := e.c.Get(ctx, "/emails/my-inbox", q.values(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns the shared demo emails.
func (e *Emails) List(ctx context.Context, limit, offset int) ([]model.Email, error) {
	var out []model.Email
	q := InboxQuery{Limit: limit, Offset: offset}
	if err := e.c.Get(ctx, "/emails", q.values(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one email.
func (e *Emails) Get(ctx context.Context, id string) (*model.Email, error) {
	var out model.Email
	if err := e.c.Get(ctx, "/emails/"+escape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoadMock asks the backend for its sample inbox.
func (e *Emails) LoadMock(ctx context.Context) ([]model.Email, error) {
	var out mockResult
	if err := e.c.Post(ctx, "/emails/load-mock", nil, &out); err != nil {
		return nil, err
	}
	return out.Emails, nil
}

// SetCategory re-classifies one email.
func (e *Emails) SetCategory(ctx context.Context, id string, category model.Category) error {
	q := url.Values{}
	q.Set("category", string(category))
	return e.c.Do(ctx, http.MethodPut, "/emails/"+escape(id)+"/category", q, nil, nil)
}

// Sync triggers a provider sync for the signed-in user.
func (e *Emails) Sync(ctx context.Context) (*SyncResult, error) {
	var out SyncResult
	if err := e.c.Post(ctx, "/emails/sync", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateReply asks the agent to draft a reply for one email.
func (e *Emails) GenerateReply(ctx context.Context, id string) (*model.Reply, error) {
	var out model.Reply
	if err := e.c.Post(ctx, "/emails/"+escape(id)+"/generate-reply", nil, &out); err != nil {
		return nil, err
	}
	if out.EmailID == "" {
		out.EmailID = id
	}
	return &out, nil
}
