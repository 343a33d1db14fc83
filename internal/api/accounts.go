package api

import (
	"context"
	"net/url"

	"github.com/nhle/mailagent/internal/model"
)

// AccountSyncResult is the response of the account sync and connect
// endpoints.
type AccountSyncResult struct {
	Status  string             `json:"status"`
	Message string             `json:"message"`
	Account model.EmailAccount `json:"account"`
}

// Accounts wraps the /email-accounts endpoints.
type Accounts struct {
	c Requester
}

// List returns the mailboxes connected to the signed-in user.
func (a *Accounts) List(ctx context.Context) ([]model.EmailAccount, error) {
	var out []model.EmailAccount
	if err := a.c.Get(ctx, "/email-accounts", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Disconnect removes a connected mailbox.
func (a *Accounts) Disconnect(ctx context.Context, id string) (string, error) {
	var out model.Message
	if err := a.c.Delete(ctx, "/email-accounts/"+escape(id), &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Sync pulls new mail for one connected mailbox.
func (a *Accounts) Sync(ctx context.Context, id string) (*AccountSyncResult, error) {
	var out AccountSyncResult
	if err := a.c.Post(ctx, "/email-accounts/"+escape(id)+"/sync", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GmailConnectURL returns the OAuth consent URL for connecting Gmail.
func (a *Accounts) GmailConnectURL(ctx context.Context, redirectURI string) (string, error) {
	q := url.Values{}
	q.Set("redirect_uri", redirectURI)

	var out struct {
		AuthURL string `json:"auth_url"`
	}
	if err := a.c.Get(ctx, "/email-accounts/connect/gmail/url", q, &out); err != nil {
		return "", err
	}
	return out.AuthURL, nil
}

// ConnectGmailCode finishes the Gmail OAuth flow with the authorization
// code Google returned to redirectURI.
func (a *Accounts) ConnectGmailCode(ctx context.Context, email, code, redirectURI string) (*AccountSyncResult, error) {
	body := map[string]string{
		"email":        email,
		"code":         code,
		"redirect_uri": redirectURI,
	}

	var out AccountSyncResult
	if err := a.c.Post(ctx, "/email-accounts/connect/gmail/code", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
