package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nhle/mailagent/internal/ai"
	"github.com/nhle/mailagent/internal/api"
	"github.com/nhle/mailagent/internal/apiclient"
	"github.com/nhle/mailagent/internal/credential"
	"github.com/nhle/mailagent/internal/inbox"
	"github.com/nhle/mailagent/internal/model"
	"github.com/nhle/mailagent/internal/prompts"
	"github.com/nhle/mailagent/internal/session"
	"github.com/nhle/mailagent/internal/store"
	appsync "github.com/nhle/mailagent/internal/sync"
)

// Services is the object graph shared by the UI: one API client, the
// three stores and the background coordinator.
type Services struct {
	Config      *model.AppConfig
	Client      *apiclient.Client
	API         *api.API
	Session     *session.Store
	Inbox       *inbox.Store
	Prompts     *prompts.Store
	Assistant   *ai.Assistant
	Coordinator *appsync.Coordinator
	Logger      *slog.Logger
}

// NewServices wires the stores to a client for cfg.API and to kv for
// session persistence.
func NewServices(cfg *model.AppConfig, kv store.KV, logger *slog.Logger) *Services {
	if logger == nil {
		logger = slog.Default()
	}

	client := apiclient.New(cfg.API.BaseURL,
		apiclient.WithTimeout(time.Duration(cfg.API.TimeoutSec)*time.Second),
		apiclient.WithRateLimit(cfg.API.RatePerSec, cfg.API.Burst),
		apiclient.WithLogger(logger.With("component", "api")),
	)
	a := api.New(client)

	sess := session.New(a.Auth, kv, logger.With("component", "session"))
	sess.Attach(client)

	mail := inbox.New(a.Emails, sess, logger.With("component", "inbox"))
	tmpl := prompts.New(a.Prompts, sess.Identity, logger.With("component", "prompts"))

	coord := appsync.New(
		sess,
		mail,
		tmpl,
		time.Duration(cfg.Sync.PollIntervalSec)*time.Second,
		logger.With("component", "sync"),
	)

	return &Services{
		Config:      cfg,
		Client:      client,
		API:         a,
		Session:     sess,
		Inbox:       mail,
		Prompts:     tmpl,
		Assistant:   ai.New(a.Agent, logger.With("component", "agent")),
		Coordinator: coord,
		Logger:      logger,
	}
}

// OpenStorage opens the session key/value backend selected by cfg. The
// returned close function is never nil.
func OpenStorage(cfg model.StorageConfig) (store.KV, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case model.StorageMemory:
		return store.NewMemoryStore(), noop, nil

	case model.StorageKeyring:
		ring, err := credential.Open(filepath.Dir(cfg.Path))
		if err != nil {
			return nil, noop, err
		}
		return ring, noop, nil

	case model.StorageSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
			return nil, noop, fmt.Errorf("creating storage directory: %w", err)
		}
		s, err := store.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// NewLogger returns a text logger writing to cfg.File at cfg.Level. The
// terminal belongs to the UI, so an empty file discards log output.
func NewLogger(cfg model.LogConfig) (*slog.Logger, func() error, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, nil, fmt.Errorf("parsing log.level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.File == "" {
		return slog.New(slog.NewTextHandler(io.Discard, opts)), func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return slog.New(slog.NewTextHandler(f, opts)), f.Close, nil
}
