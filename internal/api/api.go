// Package api exposes one function per backend endpoint. Every call is a
// single HTTP request through an apiclient.Client; there is no retry,
// batching or caching at this layer.
package api

import (
	"context"
	"net/url"
)

// Requester is the subset of *apiclient.Client the resource modules use.
type Requester interface {
	Do(ctx context.Context, method, path string, query url.Values, body, result any) error
	Get(ctx context.Context, path string, query url.Values, result any) error
	Post(ctx context.Context, path string, body, result any) error
	Put(ctx context.Context, path string, body, result any) error
	Delete(ctx context.Context, path string, result any) error
	Token(ctx context.Context) string
	WebSocketURL(path string, query url.Values) (string, error)
}

// API groups the resource modules over one shared client.
type API struct {
	Auth      *Auth
	Emails    *Emails
	Prompts   *Prompts
	Agent     *Agent
	Drafts    *Drafts
	Analytics *Analytics
	Health    *Health
	Accounts  *Accounts
}

// New builds every resource module on top of c.
func New(c Requester) *API {
	return &API{
		Auth:      &Auth{c: c},
		Emails:    &Emails{c: c},
		Prompts:   &Prompts{c: c},
		Agent:     &Agent{c: c},
		Drafts:    &Drafts{c: c},
		Analytics: &Analytics{c: c},
		Health:    &Health{c: c},
		Accounts:  &Accounts{c: c},
	}
}

// escape makes an identifier safe to embed as one path segment.
func escape(id string) string {
	return url.PathEscape(id)
}
