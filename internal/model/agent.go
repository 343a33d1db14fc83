package model

// AgentRequest asks the agent to run a prompt against one email.
// CustomPrompt overrides the active prompt of PromptType when set.
type AgentRequest struct {
	EmailID      string `json:"email_id"`
	PromptType   string `json:"prompt_type,omitempty"`
	CustomPrompt string `json:"custom_prompt,omitempty"`
}

// AgentResult is the response of POST /agent/process.
type AgentResult struct {
	EmailID          string `json:"email_id"`
	PromptType       string `json:"prompt_type"`
	Result           any    `json:"result"`
	UsedCustomPrompt bool   `json:"used_custom_prompt"`
}

// ChatReply is the response of POST /agent/chat.
type ChatReply struct {
	Response  string    `json:"response"`
	Timestamp Timestamp `json:"timestamp"`
}

// AgentStatus is the response of GET /agent/status.
type AgentStatus struct {
	Status       string   `json:"status"`
	LLMProvider  string   `json:"llm_provider,omitempty"`
	LLMModel     string   `json:"llm_model,omitempty"`
	MockMode     bool     `json:"mock_mode,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// AgentMessage is one frame on the agent WebSocket.
type AgentMessage struct {
	Type     string         `json:"type"`
	ClientID string         `json:"client_id,omitempty"`
	EmailID  string         `json:"email_id,omitempty"`
	Message  string         `json:"message,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Reply is a generated reply body for an email.
type Reply struct {
	EmailID string `json:"email_id"`
	Reply   string `json:"reply"`
}

// Stats is the response of GET /analytics/stats.
type Stats struct {
	TotalEmails   int            `json:"total_emails"`
	UnreadCount   int            `json:"unread_count"`
	StarredCount  int            `json:"starred_count"`
	ArchivedCount int            `json:"archived_count"`
	ByCategory    map[string]int `json:"by_category"`
	ByPriority    map[string]int `json:"by_priority"`
}

// Productivity is the response of GET /analytics/productivity.
type Productivity struct {
	ActionItemsTotal   int     `json:"action_items_total"`
	ActionItemsPending int     `json:"action_items_pending"`
	RepliesDrafted     int     `json:"replies_drafted"`
	ResponseRate       float64 `json:"response_rate"`
	Period             string  `json:"period,omitempty"`
}

// Health is the response of the /health endpoints.
type Health struct {
	Status    string    `json:"status"`
	Service   string    `json:"service,omitempty"`
	Version   string    `json:"version,omitempty"`
	Timestamp Timestamp `json:"timestamp"`
}

// Message is the generic {"message": "..."} acknowledgement.
type Message struct {
	Message string `json:"message"`
}
