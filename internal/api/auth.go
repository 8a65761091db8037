package api

import (
	"net/http"

	"ai-agent-portal/backend/internal/models"
	"ai-agent-portal/backend/internal/service"
	"ai-agent-portal/backend/pkg/jwt"
	"ai-agent-portal/backend/pkg/logger"
	"ai-agent-portal/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	clients *service.ClientService
	admins  *service.AdminService
	logger  *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(clients *service.ClientService, admins *service.AdminService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		clients: clients,
		admins:  admins,
		logger:  logger,
	}
}

// Login handles client authentication
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Error binding JSON for login", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	client, token, err := h.clients.Login(&req)
	if err != nil {
		switch err {
		case service.ErrInvalidCredentials:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		default:
			h.logger.Error("Error during client login", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred during login"})
		}
		return
	}

	h.logger.Info("Client logged in",
		"clientID", client.ID,
		"username", client.Username,
	)

	c.JSON(http.StatusOK, gin.H{
		"client": client.ToResponse(),
		"token":  token,
	})
}

// AdminLogin handles administrator authentication
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Error binding JSON for admin login", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	admin, token, err := h.admins.Login(&req)
	if err != nil {
		switch err {
		case service.ErrInvalidCredentials:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		default:
			h.logger.Error("Error during admin login", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred during login"})
		}
		return
	}

	h.logger.Info("Admin logged in",
		"adminID", admin.ID,
		"username", admin.Username,
	)

	c.JSON(http.StatusOK, gin.H{
		"admin": gin.H{
			"id":       admin.ID,
			"username": admin.Username,
			"email":    admin.Email,
		},
		"token": token,
	})
}

// Me returns the current authenticated identity
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	if claims.Role == jwt.RoleClient {
		client, err := h.clients.GetByID(claims.UserID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Client not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"role": claims.Role, "client": client.ToResponse()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"role": claims.Role,
		"admin": gin.H{
			"id":       claims.UserID,
			"username": claims.Username,
		},
	})
}
