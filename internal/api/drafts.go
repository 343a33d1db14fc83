package api

import (
	"context"

	"github.com/nhle/mailagent/internal/model"
)

// Drafts wraps the /drafts endpoints.
type Drafts struct {
	c Requester
}

// List returns all saved drafts.
func (d *Drafts) List(ctx context.Context) ([]model.Draft, error) {
	var out []model.Draft
	if err := d.c.Get(ctx, "/drafts", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one draft. The backend has no single-draft endpoint, so the
// list is filtered client-side.
func (d *Drafts) Get(ctx context.Context, id string) (*model.Draft, error) {
	drafts, err := d.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range drafts {
		if drafts[i].ID == id {
			return &drafts[i], nil
		}
	}
	return nil, ErrDraftNotFound
}

// Create saves a new draft.
func (d *Drafts) Create(ctx context.Context, in model.DraftInput) (*model.Draft, error) {
	var out model.Draft
	if err := d.c.Post(ctx, "/drafts", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces a draft's content.
func (d *Drafts) Update(ctx context.Context, id string, in model.DraftInput) (*model.Draft, error) {
	var out model.Draft
	if err := d.c.Put(ctx, "/drafts/"+escape(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a draft.
func (d *Drafts) Delete(ctx context.Context, id string) error {
	return d.c.Delete(ctx, "/drafts/"+escape(id), nil)
}
