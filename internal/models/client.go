package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Client represents a tenant account. Clients are created and deleted by
// administrators only; deleting a client cascades to its agents and messages.
type Client struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"uniqueIndex;not null" json:"username"`
	Email       string    `gorm:"uniqueIndex;not null" json:"email"`
	Password    string    `json:"-"` // Never return password in JSON
	CompanyName string    `json:"company_name,omitempty"`
	WebhookURL  string    `json:"webhook_url,omitempty"` // Admin-managed default, distinct from each agent's webhook
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Agents   []Agent   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Messages []Message `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// CreateClientRequest is the request structure for provisioning a client account
type CreateClientRequest struct {
	Username    string `json:"username" binding:"required,min=3"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	CompanyName string `json:"company_name"`
	WebhookURL  string `json:"webhook_url"`
}

// SetWebhookRequest updates the client-level webhook URL
type SetWebhookRequest struct {
	WebhookURL string `json:"webhook_url" binding:"required,url"`
}

// LoginRequest is the request structure for client and admin login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ClientResponse is the response structure for client data (without sensitive info)
type ClientResponse struct {
	ID          uint      `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	CompanyName string    `json:"company_name,omitempty"`
	WebhookURL  string    `json:"webhook_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HashPassword hashes a password for storage
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// BeforeCreate is a GORM hook to hash the password before saving
func (c *Client) BeforeCreate(tx *gorm.DB) error {
	hashedPassword, err := HashPassword(c.Password)
	if err != nil {
		return err
	}
	c.Password = hashedPassword
	return nil
}

// ToResponse converts a Client model to a ClientResponse
func (c *Client) ToResponse() ClientResponse {
	return ClientResponse{
		ID:          c.ID,
		Username:    c.Username,
		Email:       c.Email,
		CompanyName: c.CompanyName,
		WebhookURL:  c.WebhookURL,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
