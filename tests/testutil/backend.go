package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/nhle/mailagent/internal/model"
)

// Token is the access token the fake backend issues and accepts.
const Token = "test-token"

// RefreshedToken is what POST /auth/refresh hands out. Both tokens stay
// valid.
const RefreshedToken = "test-token-refreshed"

// Backend is an in-memory stand-in for the email agent API. It serves a
// single user whose password is "password123".
type Backend struct {
	Server *httptest.Server
	User   model.User

	mu      sync.Mutex
	emails  []model.Email
	prompts []model.Prompt
	drafts  []model.Draft
	calls   map[string]int
}

// NewBackend starts a fake backend seeded with emails. The server is
// closed when the test completes.
func NewBackend(t *testing.T, emails ...model.Email) *Backend {
	t.Helper()

	b := &Backend{
		User:   model.User{ID: "u1", Email: "ada@example.com", FullName: "Ada Lovelace"},
		emails: emails,
		calls:  make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", b.login)
	mux.HandleFunc("GET /api/v1/auth/me", b.authed(b.me))
	mux.HandleFunc("POST /api/v1/auth/refresh", b.authed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"access_token": RefreshedToken, "token_type": "bearer"})
	}))
	mux.HandleFunc("POST /api/v1/auth/logout", b.authed(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.HandleFunc("GET /api/v1/emails/my-inbox", b.authed(b.inbox))
	mux.HandleFunc("GET /api/v1/emails/{id}", b.authed(b.email))
	mux.HandleFunc("POST /api/v1/emails/sync", b.authed(b.sync))
	mux.HandleFunc("POST /api/v1/emails/load-mock", b.loadMock)
	mux.HandleFunc("GET /api/v1/prompts", b.authed(b.listPrompts))
	mux.HandleFunc("POST /api/v1/prompts", b.authed(b.createPrompt))
	mux.HandleFunc("POST /api/v1/drafts", b.authed(b.createDraft))
	mux.HandleFunc("GET /api/v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, model.Health{Status: "healthy"})
	})

	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[r.Method+" "+r.URL.Path]++
		b.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(b.Server.Close)

	return b
}

// BaseURL is the REST root to configure clients with.
func (b *Backend) BaseURL() string {
	return b.Server.URL + "/api/v1"
}

// Calls returns how often "METHOD /path" was requested.
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// Drafts returns the drafts created so far.
func (b *Backend) Drafts() []model.Draft {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Draft(nil), b.drafts...)
}

func (b *Backend) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer " + Token, "Bearer " + RefreshedToken:
		default:
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid or expired token"})
			return
		}
		next(w, r)
	}
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return
	}
	if !strings.EqualFold(body.Email, b.User.Email) || body.Password != "password123" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect email or password"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": Token,
		"token_type":   "bearer",
		"user":         b.User,
	})
}

func (b *Backend) me(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, b.User)
}

func (b *Backend) inbox(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.emails)
}

func (b *Backend) loadMock(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"message": "Loaded sample emails", "emails": b.emails})
}

func (b *Backend) email(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.emails {
		if e.ID == r.PathValue("id") {
			writeJSON(w, http.StatusOK, e)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Email not found"})
}

func (b *Backend) sync(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"message": "Synced 0 new emails", "user_id": b.User.ID})
}

func (b *Backend) listPrompts(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.prompts
	if out == nil {
		out = []model.Prompt{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) createPrompt(w http.ResponseWriter, r *http.Request) {
	var in model.PromptInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return
	}

	b.mu.Lock()
	p := model.Prompt{
		ID:        fmt.Sprintf("p%d", len(b.prompts)+1),
		Name:      in.Name,
		Template:  in.Template,
		Category:  in.Category,
		IsActive:  in.IsActive,
		CreatedBy: b.User.ID,
	}
	b.prompts = append(b.prompts, p)
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, p)
}

func (b *Backend) createDraft(w http.ResponseWriter, r *http.Request) {
	var in model.DraftInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return
	}

	b.mu.Lock()
	d := model.Draft{
		ID:        fmt.Sprintf("d%d", len(b.drafts)+1),
		EmailID:   in.EmailID,
		Recipient: in.Recipient,
		Subject:   in.Subject,
		Body:      in.Body,
	}
	b.drafts = append(b.drafts, d)
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, d)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
