package domain

import "time"

// SessionSummary es una conversación listada en la barra lateral.
type SessionSummary struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}
