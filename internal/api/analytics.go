package api

import (
	"context"

	"github.com/nhle/mailagent/internal/model"
)

// Analytics wraps the /analytics endpoints.
type Analytics struct {
	c Requester
}

// Stats returns inbox counters.
func (a *Analytics) Stats(ctx context.Context) (*model.Stats, error) {
	var out model.Stats
	if err := a.c.Get(ctx, "/analytics/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Productivity returns action item and reply metrics.
func (a *Analytics) Productivity(ctx context.Context) (*model.Productivity, error) {
	var out model.Productivity
	if err := a.c.Get(ctx, "/analytics/productivity", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
