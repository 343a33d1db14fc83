package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailagent/internal/apiclient"
	"github.com/nhle/mailagent/internal/model"
)

type fakeAgent struct {
	prompts []string
	reply   string
	err     error
	result  any
	req     model.AgentRequest
}

func (f *fakeAgent) Chat(_ context.Context, message string) (*model.ChatReply, error) {
	f.prompts = append(f.prompts, message)
	if f.err != nil {
		return nil, f.err
	}
	return &model.ChatReply{Response: f.reply}, nil
}

func (f *fakeAgent) Process(_ context.Context, req model.AgentRequest) (*model.AgentResult, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &model.AgentResult{EmailID: req.EmailID, Result: f.result}, nil
}

func drain(t *testing.T, ch <-chan StreamChunk) StreamChunk {
	t.Helper()
	var last StreamChunk
	for c := range ch {
		last = c
	}
	return last
}

func TestSendMessageRecordsHistory(t *testing.T) {
	agent := &fakeAgent{reply: "You have two deadlines."}
	a := New(agent, nil)

	ch, err := a.SendMessage(context.Background(), "what is due?")
	require.NoError(t, err)

	chunk := drain(t, ch)
	assert.True(t, chunk.Done)
	assert.Equal(t, "You have two deadlines.", chunk.Text)
	assert.Equal(t, []string{"what is due?"}, agent.prompts)

	history := a.History()
	require.Len(t, history, 2)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, RoleAssistant, history[1].Role)
}

func TestSendMessageIncludesFocusAndHistory(t *testing.T) {
	agent := &fakeAgent{reply: "ok"}
	a := New(agent, nil)
	drain(t, mustSend(t, a, "hello"))

	a.Focus(&model.Email{ID: "e1", Sender: "ann@example.com", Subject: "Budget", Body: "Numbers attached"})
	drain(t, mustSend(t, a, "summarize"))

	require.Len(t, agent.prompts, 2)
	prompt := agent.prompts[1]
	assert.Contains(t, prompt, "Subject: Budget")
	assert.Contains(t, prompt, "Numbers attached")
	assert.Contains(t, prompt, "user: hello")
	assert.Contains(t, prompt, "assistant: ok")
	assert.Contains(t, prompt, "user: summarize")

	assert.Equal(t, "e1", a.History()[2].EmailID)
}

func TestSendMessageFailureBecomesChunk(t *testing.T) {
	agent := &fakeAgent{err: &apiclient.Error{Kind: apiclient.KindServer, Message: "server error, please try again later"}}
	a := New(agent, nil)

	chunk := drain(t, mustSend(t, a, "hi"))
	assert.Equal(t, "Error: the agent is unavailable", chunk.Text)
	assert.Equal(t, 1, a.history.Len())
}

func TestSendMessageRejectsBlank(t *testing.T) {
	_, err := New(&fakeAgent{}, nil).SendMessage(context.Background(), "   ")
	assert.Error(t, err)
}

func TestAnalyzeRequiresFocus(t *testing.T) {
	_, err := New(&fakeAgent{}, nil).Analyze(context.Background(), "summary")
	assert.EqualError(t, err, "open an email first")
}

func TestAnalyzeFormatsActionItems(t *testing.T) {
	agent := &fakeAgent{result: []any{
		map[string]any{"task": "Send invoice", "deadline": "Friday"},
		map[string]any{"task": "Book room"},
	}}
	a := New(agent, nil)
	a.Focus(&model.Email{ID: "e1"})

	text, err := a.Analyze(context.Background(), "action_extraction")
	require.NoError(t, err)
	assert.Equal(t, "• Send invoice (due Friday)\n• Book room", text)
	assert.Equal(t, model.AgentRequest{EmailID: "e1", PromptType: "action_extraction"}, agent.req)
}

func TestAnalyzeFailureUsesFallback(t *testing.T) {
	a := New(&fakeAgent{err: errors.New("dial tcp: refused")}, nil)
	a.Focus(&model.Email{ID: "e1"})

	_, err := a.Analyze(context.Background(), "summary")
	assert.EqualError(t, err, "Processing failed")
}

func TestHistoryDropsOldestTurns(t *testing.T) {
	h := NewHistory(3)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		h.Append(Message{Role: RoleUser, Content: s})
	}

	msgs := h.All()
	require.Len(t, msgs, 3)
	assert.Equal(t, "c", msgs[0].Content)
	assert.Equal(t, "e", msgs[2].Content)

	recent := h.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "d", recent[0].Content)
	assert.Equal(t, "user: d\nuser: e\n", Transcript(recent))

	h.Clear()
	assert.Zero(t, h.Len())
}

func mustSend(t *testing.T, a *Assistant, msg string) <-chan StreamChunk {
	t.Helper()
	ch, err := a.SendMessage(context.Background(), msg)
	require.NoError(t, err)
	return ch
}
