package service

import (
	"context"
	"errors"
	"time"

	"ai-agent-portal/backend/internal/models"
	"ai-agent-portal/backend/internal/ws"
	"ai-agent-portal/backend/pkg/logger"
	"ai-agent-portal/backend/shared/observability"
	"ai-agent-portal/backend/webhook"
)

// Placeholder responses substituted when no real answer is available
const (
	ResponseNotConfigured = "This agent is not connected to a workflow yet, so it cannot answer. Please configure its webhook."
	ResponseReceived      = "Your message was received."
	ResponseUnavailable   = "The agent is currently unavailable. Please try again later."
)

var ErrMessageTooLong = errors.New("message exceeds the maximum allowed length")

// AgentGetter resolves an agent for the relay path
type AgentGetter interface {
	GetOwned(clientID, agentID uint) (*models.Agent, error)
}

// MessageStore persists messages and their guarded resolutions
type MessageStore interface {
	Create(clientID, agentID uint, content string) (*models.Message, error)
	Resolve(messageID uint, response string) (bool, error)
}

// Deliverer pushes a resolved response to the owning client's live connections
type Deliverer interface {
	Deliver(clientID uint, event ws.ResponseEvent)
}

// Forwarder issues the single outbound webhook call
type Forwarder interface {
	Forward(ctx context.Context, url string, payload webhook.Payload) webhook.Outcome
}

// RelayService orchestrates the relay pipeline for one chat message: persist,
// forward, resolve, deliver. Submission returns as soon as the message row
// exists; the response always arrives later over the delivery channel, even
// when it is synthesized locally.
type RelayService struct {
	agents           AgentGetter
	messages         MessageStore
	forwarder        Forwarder
	deliverer        Deliverer
	log              *logger.Logger
	maxMessageLength int
}

// NewRelayService creates a new relay service
func NewRelayService(
	agents AgentGetter,
	messages MessageStore,
	forwarder Forwarder,
	deliverer Deliverer,
	log *logger.Logger,
	maxMessageLength int,
) *RelayService {
	return &RelayService{
		agents:           agents,
		messages:         messages,
		forwarder:        forwarder,
		deliverer:        deliverer,
		log:              log,
		maxMessageLength: maxMessageLength,
	}
}

// Submit accepts a chat message for an agent owned by the calling client.
// Preconditions: the agent exists, is owned by the caller, and is active.
// Nothing is persisted when a precondition fails. The returned message carries
// no response; the outcome is delivered asynchronously.
func (s *RelayService) Submit(clientID, agentID uint, text string) (*models.Message, error) {
	if s.maxMessageLength > 0 && len(text) > s.maxMessageLength {
		return nil, ErrMessageTooLong
	}

	agent, err := s.agents.GetOwned(clientID, agentID)
	if err != nil {
		return nil, err
	}
	if !agent.Active {
		return nil, ErrAgentInactive
	}

	message, err := s.messages.Create(clientID, agentID, text)
	if err != nil {
		return nil, err
	}
	observability.MessagesSubmitted.Inc()

	if agent.WebhookURL == "" {
		// No external system involved; still resolve and deliver
		// asynchronously so the client sees one consistent flow.
		go s.resolve(message.ID, clientID, agentID, ResponseNotConfigured, "not_configured")
		return message, nil
	}

	go s.dispatch(message, agent)

	return message, nil
}

// dispatch runs the forwarding continuation: one webhook attempt, then one
// resolution carrying either the reply text or the unavailability placeholder.
func (s *RelayService) dispatch(message *models.Message, agent *models.Agent) {
	payload := webhook.Payload{
		Message:   message.Content,
		ClientID:  message.ClientID,
		AgentID:   agent.ID,
		MessageID: message.ID,
		Timestamp: message.CreatedAt.UTC().Format(time.RFC3339),
	}

	outcome := s.forwarder.Forward(context.Background(), agent.WebhookURL, payload)

	if !outcome.Answered {
		s.log.Warn("Webhook forwarding failed",
			"message_id", message.ID,
			"agent_id", agent.ID,
			"reason", outcome.Reason,
		)
		s.resolve(message.ID, message.ClientID, agent.ID, ResponseUnavailable, "failed")
		return
	}

	response := outcome.Reply.Response
	if response == "" {
		response = outcome.Reply.Message
	}
	if response == "" {
		response = ResponseReceived
	}

	s.resolve(message.ID, message.ClientID, agent.ID, response, "answered")
}

// resolve performs the guarded unresolved→resolved transition and, when it
// wins the transition, delivers the response to the owning client. A message
// that was already resolved is left untouched and nothing is delivered.
func (s *RelayService) resolve(messageID, clientID, agentID uint, response, outcome string) {
	resolved, err := s.messages.Resolve(messageID, response)
	if err != nil {
		s.log.LogError(err, "Failed to persist message resolution", "message_id", messageID)
		return
	}
	if !resolved {
		s.log.Warn("Message already resolved, dropping duplicate outcome", "message_id", messageID)
		return
	}

	observability.MessagesResolved.WithLabelValues(outcome).Inc()

	s.deliverer.Deliver(clientID, ws.ResponseEvent{
		MessageID: messageID,
		AgentID:   agentID,
		Response:  response,
	})
}
