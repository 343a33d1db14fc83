package api

import (
	"context"

	"github.com/nhle/mailagent/internal/model"
)

// Health wraps the /health endpoints.
type Health struct {
	c Requester
}

// Check reports API liveness.
func (h *Health) Check(ctx context.Context) (*model.Health, error) {
	return h.get(ctx, "/health")
}

// Database reports backend database health.
func (h *Health) Database(ctx context.Context) (*model.Health, error) {
	return h.get(ctx, "/health/db")
}

// AI reports the reply-generation service health.
func (h *Health) AI(ctx context.Context) (*model.Health, error) {
	return h.get(ctx, "/health/ai")
}

func (h *Health) get(ctx context.Context, path string) (*model.Health, error) {
	var out model.Health
	if err := h.c.Get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
