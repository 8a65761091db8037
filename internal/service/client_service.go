package service

import (
	"errors"

	"ai-agent-portal/backend/internal/models"
	"ai-agent-portal/backend/pkg/jwt"

	"gorm.io/gorm"
)

var (
	ErrClientAlreadyExists = errors.New("client with this username or email already exists")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrClientNotFound      = errors.New("client not found")
)

// ClientService handles tenant account operations. Accounts are provisioned
// and removed by administrators; clients themselves only log in.
type ClientService struct {
	db         *gorm.DB
	jwtService *jwt.Service
}

// NewClientService creates a new client service
func NewClientService(db *gorm.DB, jwtService *jwt.Service) *ClientService {
	return &ClientService{db: db, jwtService: jwtService}
}

// Create provisions a new client account
func (s *ClientService) Create(req *models.CreateClientRequest) (*models.Client, error) {
	var existing models.Client
	result := s.db.Where("username = ? OR email = ?", req.Username, req.Email).First(&existing)
	if result.RowsAffected > 0 {
		return nil, ErrClientAlreadyExists
	}

	client := models.Client{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		CompanyName: req.CompanyName,
		WebhookURL:  req.WebhookURL,
	}

	if err := s.db.Create(&client).Error; err != nil {
		return nil, err
	}

	return &client, nil
}

// Login authenticates a client and returns a session token
func (s *ClientService) Login(req *models.LoginRequest) (*models.Client, string, error) {
	var client models.Client
	result := s.db.Where("username = ?", req.Username).First(&client)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", result.Error
	}

	if !models.CheckPasswordHash(req.Password, client.Password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateToken(client.ID, client.Username, jwt.RoleClient)
	if err != nil {
		return nil, "", err
	}

	return &client, token, nil
}

// GetByID retrieves a client by ID
func (s *ClientService) GetByID(id uint) (*models.Client, error) {
	var client models.Client
	result := s.db.First(&client, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, result.Error
	}
	return &client, nil
}

// List returns all client accounts
func (s *ClientService) List() ([]models.Client, error) {
	var clients []models.Client
	if err := s.db.Order("id").Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

// SetWebhook updates the client-level webhook URL. This field is stored for
// administrators; the relay path reads each agent's own webhook.
func (s *ClientService) SetWebhook(id uint, url string) (*models.Client, error) {
	client, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	client.WebhookURL = url
	if err := s.db.Model(client).Update("webhook_url", url).Error; err != nil {
		return nil, err
	}

	return client, nil
}

// Delete removes a client account and, transitively, every agent and message
// it owns. The deletes run in one transaction so a partial cascade never
// leaves dangling ownership.
func (s *ClientService) Delete(id uint) error {
	if _, err := s.GetByID(id); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("client_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", id).Delete(&models.Agent{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Client{}, id).Error
	})
}
