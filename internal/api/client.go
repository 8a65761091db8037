package api

import (
	"net/http"
	"strconv"

	"ai-agent-portal/backend/internal/models"
	"ai-agent-portal/backend/internal/service"
	"ai-agent-portal/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ClientHandler handles admin-side client account management
type ClientHandler struct {
	service *service.ClientService
	logger  *logger.Logger
}

// NewClientHandler creates a new client handler
func NewClientHandler(service *service.ClientService, logger *logger.Logger) *ClientHandler {
	return &ClientHandler{service: service, logger: logger}
}

// ListClients returns all client accounts
func (h *ClientHandler) ListClients(c *gin.Context) {
	clients, err := h.service.List()
	if err != nil {
		h.logger.Error("Error listing clients", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list clients"})
		return
	}

	responses := make([]models.ClientResponse, len(clients))
	for i, client := range clients {
		responses[i] = client.ToResponse()
	}

	c.JSON(http.StatusOK, gin.H{"clients": responses})
}

// CreateClient provisions a new client account
func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req models.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	client, err := h.service.Create(&req)
	if err != nil {
		switch err {
		case service.ErrClientAlreadyExists:
			c.JSON(http.StatusBadRequest, gin.H{"error": "A client with this username or email already exists"})
		default:
			h.logger.Error("Error creating client", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create client account"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"client": client.ToResponse()})
}

// SetWebhook updates the client-level webhook URL
func (h *ClientHandler) SetWebhook(c *gin.Context) {
	clientID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.SetWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A valid webhook_url is required"})
		return
	}

	client, err := h.service.SetWebhook(clientID, req.WebhookURL)
	if err != nil {
		switch err {
		case service.ErrClientNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Client not found"})
		default:
			h.logger.Error("Error setting client webhook", "error", err.Error(), "clientID", clientID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update webhook"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"client": client.ToResponse()})
}

// DeleteClient removes a client account and everything it owns
func (h *ClientHandler) DeleteClient(c *gin.Context) {
	clientID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(clientID); err != nil {
		switch err {
		case service.ErrClientNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Client not found"})
		default:
			h.logger.Error("Error deleting client", "error", err.Error(), "clientID", clientID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete client"})
		}
		return
	}

	h.logger.Info("Client deleted", "clientID", clientID)
	c.JSON(http.StatusOK, gin.H{"message": "Client deleted"})
}

// parseIDParam parses a numeric path parameter, responding with 400 on failure
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a positive number"})
		return 0, false
	}
	return uint(id), true
}
