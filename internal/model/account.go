package model

// EmailAccount is a mailbox connected to the user's backend account.
type EmailAccount struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	IsActive    bool      `json:"is_active"`
	IsPrimary   bool      `json:"is_primary"`
	LastSync    Timestamp `json:"last_sync"`
	SyncEnabled bool      `json:"sync_enabled"`
}
