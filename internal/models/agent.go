package models

import (
	"time"
)

// Agent represents a configured chat endpoint owned by one client. An agent with
// no webhook URL is valid and means "not yet connected"; the relay substitutes a
// placeholder response for it. The active flag gates new message submissions.
type Agent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ClientID    uint      `gorm:"index;not null" json:"client_id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description,omitempty"`
	WebhookURL  string    `json:"webhook_url,omitempty"`
	Active      bool      `gorm:"default:true" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Messages []Message `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// CreateAgentRequest is the request structure for creating an agent
type CreateAgentRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	WebhookURL  string `json:"webhook_url" binding:"omitempty,url"`
}

// UpdateAgentRequest is the request structure for updating an agent. Pointer
// fields distinguish "leave unchanged" from "set to zero value".
type UpdateAgentRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1"`
	Description *string `json:"description"`
	WebhookURL  *string `json:"webhook_url" binding:"omitempty,url"`
	Active      *bool   `json:"active"`
}
