package api

import (
	"context"

	"github.com/nhle/mailagent/internal/model"
)

// Prompts wraps the /prompts endpoints.
type Prompts struct {
	c Requester
}

// List returns every prompt visible to the caller.
func (p *Prompts) List(ctx context.Context) ([]model.Prompt, error) {
	var out []model.Prompt
	if err := p.c.Get(ctx, "/prompts", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create stores a new prompt and returns it with its server id.
func (p *Prompts) Create(ctx context.Context, in model.PromptInput) (*model.Prompt, error) {
	var out model.Prompt
	if err := p.c.Post(ctx, "/prompts", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces the writable fields of a prompt.
func (p *Prompts) Update(ctx context.Context, id string, in model.PromptInput) (*model.Prompt, error) {
	var out model.Prompt
	if err := p.c.Put(ctx, "/prompts/"+escape(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a prompt.
func (p *Prompts) Delete(ctx context.Context, id string) error {
	return p.c.Delete(ctx, "/prompts/"+escape(id), nil)
}
