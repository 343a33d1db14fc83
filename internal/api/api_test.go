package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailagent/internal/apiclient"
	"github.com/nhle/mailagent/internal/model"
)

// recorded is one request seen by the fake backend.
type recorded struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   map[string]any
}

type recorder struct {
	mu   sync.Mutex
	reqs []recorded
}

func (r *recorder) add(rec recorded) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, rec)
}

func (r *recorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.reqs...)
}

func newBackend(t *testing.T, routes map[string]any) (*API, *recorder) {
	t.Helper()

	seen := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
		}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.Body)
		}
		seen.add(rec)

		resp, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Not found"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	client := apiclient.New(srv.URL+"/api/v1", apiclient.WithTokenSource(func() string { return "tok" }))
	return New(client), seen
}

func TestAuthLogin(t *testing.T) {
	a, seen := newBackend(t, map[string]any{
		"POST /api/v1/auth/login": map[string]any{
			"access_token": "jwt-1",
			"token_type":   "bearer",
			"user":         map[string]any{"id": "u1", "email": "ada@example.com", "full_name": "Ada"},
		},
	})

	resp, err := a.Auth.Login(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jwt-1", resp.AccessToken)
	require.NotNil(t, resp.User)
	assert.Equal(t, "Ada", resp.User.DisplayName())

	require.Len(t, seen.all(), 1)
	assert.Equal(t, "ada@example.com", seen.all()[0].Body["email"])
	assert.Equal(t, "secret", seen.all()[0].Body["password"])
}

func TestAuthVerifyEmailSendsTokenInQuery(t *testing.T) {
	a, seen := newBackend(t, map[string]any{
		"POST /api/v1/auth/verify-email": map[string]string{"message": "Email verified successfully"},
	})

	msg, err := a.Auth.VerifyEmail(context.Background(), "vtok")
	require.NoError(t, err)
	assert.Equal(t, "Email verified successfully", msg)
	assert.Equal(t, "token=vtok", seen.all()[0].Query)
}

func TestAuthResetPasswordBody(t *testing.T) {
	a, seen := newBackend(t, map[string]any{
		"POST /api/v1/auth/reset-password": map[string]string{"message": "Password reset successfully"},
	})

	_, err := a.Auth.ResetPassword(context.Background(), "rtok", "n3w-pass")
	require.NoError(t, err)
	assert.Equal(t, "rtok", seen.all()[0].Body["token"])
	assert.Equal(t, "n3w-pass", seen.all()[0].Body["new_password"])
}

func TestEmailsMyInboxQuery(t *testing.T) {
	tests := []struct {
		name    string
		filters model.Filters
		want    string
	}{
		{
			name:    "all category is omitted",
			filters: model.DefaultFilters(),
			want:    "sort_by=newest",
		},
		{
			name:    "category and search",
			filters: model.Filters{Category: model.CategoryToDo, Search: "q3 report", SortBy: model.SortSender},
			want:    "category=To-Do&search=q3+report&sort_by=sender",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, seen := newBackend(t, map[string]any{
				"GET /api/v1/emails/my-inbox": []map[string]any{
					{"id": "e1", "subject": "Hi", "timestamp": "2024-01-08T10:30:00"},
				},
			})

			emails, err := a.Emails.MyInbox(context.Background(), QueryFromFilters(tt.filters))
			require.NoError(t, err)
			require.Len(t, emails, 1)
			assert.Equal(t, 2024, emails[0].Timestamp.Year())
			assert.Equal(t, tt.want, seen.all()[0].Query)
			assert.Equal(t, "Bearer tok", seen.all()[0].Auth)
		})
	}
}

func TestEmailsLoadMockUnwrapsEmails(t *testing.T) {
	a, _ := newBackend(t, map[string]any{
		"POST /api/v1/emails/load-mock": map[string]any{
			"message": "Loaded 2 emails",
			"emails":  []map[string]any{{"id": "m1"}, {"id": "m2"}},
		},
	})

	emails, err := a.Emails.LoadMock(context.Background())
	require.NoError(t, err)
	require.Len(t, emails, 2)
	assert.Equal(t, "m2", emails[1].ID)
}

func TestEmailsSetCategoryUsesQuery(t *testing.T) {
	a, seen := newBackend(t, map[string]any{
		"PUT /api/v1/emails/id 1/category": map[string]string{"message": "Category updated successfully"},
	})

	require.NoError(t, a.Emails.SetCategory(context.Background(), "id 1", model.CategorySpam))
	assert.Equal(t, http.MethodPut, seen.all()[0].Method)
	assert.Equal(t, "category=Spam", seen.all()[0].Query)
	assert.Nil(t, seen.all()[0].Body)
}

func TestEmailsGenerateReplyFillsEmailID(t *testing.T) {
	a, _ := newBackend(t, map[string]any{
		"POST /api/v1/emails/e9/generate-reply": map[string]string{"reply": "Thanks, will do."},
	})

	reply, err := a.Emails.GenerateReply(context.Background(), "e9")
	require.NoError(t, err)
	assert.Equal(t, "e9", reply.EmailID)
	assert.Equal(t, "Thanks, will do.", reply.Reply)
}

func TestPromptsCRUD(t *testing.T) {
	a, seen := newBackend(t, map[string]any{
		"GET /api/v1/prompts":       []map[string]any{{"id": "p1", "name": "Summarize"}},
		"POST /api/v1/prompts":      map[string]any{"id": "p2", "name": "Triage"},
		"PUT /api/v1/prompts/p2":    map[string]any{"id": "p2", "name": "Triage v2"},
		"DELETE /api/v1/prompts/p2": map[string]string{"message": "Prompt deleted successfully"},
	})
	ctx := context.Background()

	list, err := a.Prompts.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	created, err := a.Prompts.Create(ctx, model.PromptInput{Name: "Triage", Template: "{body}"})
	require.NoError(t, err)
	assert.Equal(t, "p2", created.ID)

	updated, err := a.Prompts.Update(ctx, "p2", model.PromptInput{Name: "Triage v2"})
	require.NoError(t, err)
	assert.Equal(t, "Triage v2", updated.Name)

	require.NoError(t, a.Prompts.Delete(ctx, "p2"))
	assert.Len(t, seen.all(), 4)
}

func TestDraftsGetFiltersList(t *testing.T) {
	a, _ := newBackend(t, map[string]any{
		"GET /api/v1/drafts": []map[string]any{
			{"id": "d1", "subject": "Re: one"},
			{"id": "d2", "subject": "Re: two"},
		},
	})

	d, err := a.Drafts.Get(context.Background(), "d2")
	require.NoError(t, err)
	assert.Equal(t, "Re: two", d.Subject)

	_, err = a.Drafts.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestNotFoundSurfacesDetail(t *testing.T) {
	a, _ := newBackend(t, nil)

	_, err := a.Emails.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apiclient.IsKind(err, apiclient.KindValidation))
	assert.Equal(t, "Not found", apiclient.Message(err, "fallback"))
}

func TestAccountsGmailConnectURL(t *testing.T) {
	a, seen := newBackend(t, map[string]any{
		"GET /api/v1/email-accounts/connect/gmail/url": map[string]string{"auth_url": "https://accounts.google.com/o/oauth2/auth?x=1"},
	})

	got, err := a.Accounts.GmailConnectURL(context.Background(), "http://localhost:3000/cb")
	require.NoError(t, err)
	assert.Equal(t, "https://accounts.google.com/o/oauth2/auth?x=1", got)
	assert.Contains(t, seen.all()[0].Query, "redirect_uri=")
}

func TestAccountsConnectGmailCode(t *testing.T) {
	a, seen := newBackend(t, map[string]any{
		"POST /api/v1/email-accounts/connect/gmail/code": map[string]any{
			"status":  "success",
			"message": "Gmail account connected successfully",
			"account": map[string]any{"id": "acc-1", "provider": "gmail", "email": "ann@gmail.com"},
		},
	})

	res, err := a.Accounts.ConnectGmailCode(context.Background(), "ann@gmail.com", "4/abc", "http://localhost")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", res.Account.ID)
	assert.Equal(t, map[string]any{
		"email":        "ann@gmail.com",
		"code":         "4/abc",
		"redirect_uri": "http://localhost",
	}, seen.all()[0].Body)
}

func TestAgentSocketRoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	handshake := make(chan url.Values, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handshake <- r.URL.Query()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var msg model.AgentMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			msg.Type = "response"
			msg.Message = "echo: " + msg.Message
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	client := apiclient.New(srv.URL, apiclient.WithTokenSource(func() string { return "tok" }))
	a := New(client)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sock, err := a.Agent.Dial(ctx, "")
	require.NoError(t, err)
	defer sock.Close()

	assert.NotEmpty(t, sock.ClientID)
	require.NoError(t, sock.Send(model.AgentMessage{Type: "chat", Message: "hello"}))

	select {
	case msg := <-sock.Messages():
		assert.Equal(t, "response", msg.Type)
		assert.Equal(t, "echo: hello", msg.Message)
		assert.Equal(t, sock.ClientID, msg.ClientID)
	case <-ctx.Done():
		t.Fatal("no reply from agent socket")
	}

	q := <-handshake
	assert.Equal(t, sock.ClientID, q.Get("client_id"))
	assert.Equal(t, "tok", q.Get("token"))

	require.NoError(t, sock.Close())
	assert.ErrorIs(t, sock.Send(model.AgentMessage{Type: "chat"}), ErrSocketClosed)
}
