package model

// Draft is a saved reply draft.
type Draft struct {
	ID        string    `json:"id"`
	EmailID   string    `json:"email_id,omitempty"`
	Recipient string    `json:"recipient,omitempty"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
}

// DraftInput is the writable subset of a draft.
type DraftInput struct {
	EmailID   string `json:"email_id,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}
