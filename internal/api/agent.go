package api

import (
	"context"

	"github.com/nhle/mailagent/internal/model"
)

// Agent wraps the /agent endpoints and the agent WebSocket.
type Agent struct {
	c Requester
}

// Process runs a prompt against one email.
func (a *Agent) Process(ctx context.Context, req model.AgentRequest) (*model.AgentResult, error) {
	var out model.AgentResult
	if err := a.c.Post(ctx, "/agent/process", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Chat sends a free-form question to the assistant.
func (a *Agent) Chat(ctx context.Context, message string) (*model.ChatReply, error) {
	var out model.ChatReply
	if err := a.c.Post(ctx, "/agent/chat", map[string]string{"message": message}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status reports which model the agent is running.
func (a *Agent) Status(ctx context.Context) (*model.AgentStatus, error) {
	var out model.AgentStatus
	if err := a.c.Get(ctx, "/agent/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
