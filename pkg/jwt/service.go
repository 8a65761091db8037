package jwt

import (
	"time"
)

// Service issues and verifies session tokens
type Service struct {
	secretKey string
	expiry    time.Duration
}

// NewService creates a new JWT service
func NewService(secretKey string, expiry time.Duration) *Service {
	if secretKey == "" {
		secretKey = getSecretKey()
	}

	if expiry == 0 {
		expiry = 24 * time.Hour // Default to 24 hours
	}

	return &Service{
		secretKey: secretKey,
		expiry:    expiry,
	}
}

// GenerateToken generates a session token for the given identity and role
func (s *Service) GenerateToken(userID uint, username string, role Role) (string, error) {
	return generateToken(userID, username, role, s.secretKey, s.expiry)
}

// ValidateToken validates a session token and returns its claims
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return validateToken(tokenString, s.secretKey)
}
