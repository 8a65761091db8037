package api

import (
	"net/http"
	"strconv"

	"ai-agent-portal/backend/internal/models"
	"ai-agent-portal/backend/internal/service"
	"ai-agent-portal/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ChatHandler handles message submission and history retrieval
type ChatHandler struct {
	relay    *service.RelayService
	messages *service.MessageService
	agents   *service.AgentService
	logger   *logger.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(
	relay *service.RelayService,
	messages *service.MessageService,
	agents *service.AgentService,
	logger *logger.Logger,
) *ChatHandler {
	return &ChatHandler{
		relay:    relay,
		messages: messages,
		agents:   agents,
		logger:   logger,
	}
}

// Submit accepts a chat message for an agent. The call acknowledges the
// message immediately; the response arrives over the websocket channel.
func (h *ChatHandler) Submit(c *gin.Context) {
	clientID := c.GetUint("userId")

	agentID, ok := parseIDParam(c, "agentId")
	if !ok {
		return
	}

	var req models.SubmitMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A non-empty message is required"})
		return
	}

	message, err := h.relay.Submit(clientID, agentID, req.Message)
	if err != nil {
		switch err {
		case service.ErrAgentNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Agent not found"})
		case service.ErrAgentInactive:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Agent is not active"})
		case service.ErrMessageTooLong:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Message is too long"})
		default:
			h.logger.Error("Error submitting message", "error", err.Error(), "agentID", agentID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit message"})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message_id": message.ID,
		"status":     "pending",
	})
}

// History returns the conversation between the calling client and one agent
func (h *ChatHandler) History(c *gin.Context) {
	clientID := c.GetUint("userId")

	agentID, ok := parseIDParam(c, "agentId")
	if !ok {
		return
	}

	// Ownership check before touching message rows
	if _, err := h.agents.GetOwned(clientID, agentID); err != nil {
		switch err {
		case service.ErrAgentNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Agent not found"})
		default:
			h.logger.Error("Error resolving agent for history", "error", err.Error(), "agentID", agentID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		}
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive number"})
			return
		}
		limit = parsed
	}

	messages, err := h.messages.History(clientID, agentID, limit)
	if err != nil {
		h.logger.Error("Error loading history", "error", err.Error(), "agentID", agentID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
