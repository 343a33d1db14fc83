package model

// Prompt is a user-defined AI prompt template.
type Prompt struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Template  string `json:"template"`
	Category  string `json:"category,omitempty"`
	IsActive  bool   `json:"is_active"`
	CreatedBy string `json:"created_by,omitempty"`
}

// PromptInput is the writable subset of a prompt.
type PromptInput struct {
	Name     string `json:"name"`
	Template string `json:"template"`
	Category string `json:"category,omitempty"`
	IsActive bool   `json:"is_active"`
}
