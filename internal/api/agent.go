package api

import (
	"net/http"

	"ai-agent-portal/backend/internal/models"
	"ai-agent-portal/backend/internal/service"
	"ai-agent-portal/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AgentHandler handles client-side agent management
type AgentHandler struct {
	service *service.AgentService
	logger  *logger.Logger
}

// NewAgentHandler creates a new agent handler
func NewAgentHandler(service *service.AgentService, logger *logger.Logger) *AgentHandler {
	return &AgentHandler{service: service, logger: logger}
}

// ListAgents returns the calling client's agents
func (h *AgentHandler) ListAgents(c *gin.Context) {
	clientID := c.GetUint("userId")

	agents, err := h.service.ListByClient(clientID)
	if err != nil {
		h.logger.Error("Error listing agents", "error", err.Error(), "clientID", clientID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list agents"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"agents": agents})
}

// CreateAgent creates a new agent owned by the calling client
func (h *AgentHandler) CreateAgent(c *gin.Context) {
	clientID := c.GetUint("userId")

	var req models.CreateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	agent, err := h.service.Create(clientID, &req)
	if err != nil {
		h.logger.Error("Error creating agent", "error", err.Error(), "clientID", clientID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create agent"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"agent": agent})
}

// UpdateAgent updates an agent owned by the calling client
func (h *AgentHandler) UpdateAgent(c *gin.Context) {
	clientID := c.GetUint("userId")

	agentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.UpdateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	agent, err := h.service.Update(clientID, agentID, &req)
	if err != nil {
		switch err {
		case service.ErrAgentNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Agent not found"})
		default:
			h.logger.Error("Error updating agent", "error", err.Error(), "agentID", agentID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update agent"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"agent": agent})
}

// DeleteAgent deletes an agent owned by the calling client
func (h *AgentHandler) DeleteAgent(c *gin.Context) {
	clientID := c.GetUint("userId")

	agentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(clientID, agentID); err != nil {
		switch err {
		case service.ErrAgentNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Agent not found"})
		default:
			h.logger.Error("Error deleting agent", "error", err.Error(), "agentID", agentID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete agent"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Agent deleted"})
}
