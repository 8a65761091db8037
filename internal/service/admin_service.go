package service

import (
	"errors"

	"ai-agent-portal/backend/internal/models"
	"ai-agent-portal/backend/pkg/jwt"

	"gorm.io/gorm"
)

// AdminService handles portal operator accounts
type AdminService struct {
	db         *gorm.DB
	jwtService *jwt.Service
}

// NewAdminService creates a new admin service
func NewAdminService(db *gorm.DB, jwtService *jwt.Service) *AdminService {
	return &AdminService{db: db, jwtService: jwtService}
}

// Login authenticates an administrator and returns a session token
func (s *AdminService) Login(req *models.LoginRequest) (*models.Admin, string, error) {
	var admin models.Admin
	result := s.db.Where("username = ?", req.Username).First(&admin)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", result.Error
	}

	if !models.CheckPasswordHash(req.Password, admin.Password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateToken(admin.ID, admin.Username, jwt.RoleAdmin)
	if err != nil {
		return nil, "", err
	}

	return &admin, token, nil
}

// Seed creates the first admin account when none exists yet. Calling it on an
// already-seeded database is a no-op.
func (s *AdminService) Seed(username, email, password string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.Admin{}).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	admin := models.Admin{
		Username: username,
		Email:    email,
		Password: password,
	}
	if err := s.db.Create(&admin).Error; err != nil {
		return false, err
	}

	return true, nil
}
