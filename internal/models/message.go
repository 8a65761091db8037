package models

import (
	"time"
)

// Message represents one user-to-agent exchange. Response stays nil until the
// relay resolves the message exactly once; resolution is terminal.
type Message struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	ClientID   uint       `gorm:"index;not null" json:"client_id"`
	AgentID    uint       `gorm:"index;not null" json:"agent_id"`
	Content    string     `gorm:"not null" json:"message"`
	Response   *string    `json:"response,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Resolved reports whether the message has received its terminal response.
func (m *Message) Resolved() bool {
	return m.Response != nil
}

// SubmitMessageRequest is the request structure for sending a chat message
type SubmitMessageRequest struct {
	Message string `json:"message" binding:"required"`
}
