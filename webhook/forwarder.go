// Package webhook issues the single outbound call that relays a chat message
// to an agent's configured workflow endpoint (typically an n8n webhook).
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"ai-agent-portal/backend/pkg/logger"
	"ai-agent-portal/backend/pkg/resilience"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds the wall-clock wait for one webhook call
const DefaultTimeout = 10 * time.Second

// Payload is the fixed body shape posted to the webhook
type Payload struct {
	Message   string `json:"message"`
	ClientID  uint   `json:"client_id"`
	AgentID   uint   `json:"agent_id"`
	MessageID uint   `json:"message_id"`
	Timestamp string `json:"timestamp"` // ISO-8601
}

// Reply is the expected shape of a webhook response body. Either field may be
// absent; the relay prefers Response and falls back to Message.
type Reply struct {
	Response string `json:"response"`
	Message  string `json:"message"`
}

// Outcome classifies the result of one forwarding attempt
type Outcome struct {
	Answered bool
	Reply    Reply
	Reason   string // set when Answered is false
}

// Answered builds a successful outcome
func Answered(reply Reply) Outcome {
	return Outcome{Answered: true, Reply: reply}
}

// Failed builds a failed outcome
func Failed(reason string) Outcome {
	return Outcome{Answered: false, Reason: reason}
}

// Forwarder performs single-attempt webhook calls with a bounded wait.
// No retry, no backoff; unavailability becomes a Failed outcome. Destinations
// that keep failing are suspended by a per-host circuit breaker so pending
// messages resolve immediately instead of waiting out the timeout.
type Forwarder struct {
	client   *resty.Client
	breakers *resilience.Registry
	log      *logger.Logger
}

// NewForwarder creates a forwarder whose calls time out after the given bound
func NewForwarder(timeout time.Duration, log *logger.Logger) *Forwarder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(0)

	return &Forwarder{
		client:   client,
		breakers: resilience.NewRegistry(resilience.DefaultConfig(), log),
		log:      log,
	}
}

// Forward posts the payload to endpoint and classifies the outcome. At most
// one attempt is made; timeout, connection errors, non-2xx statuses, and a
// suspended destination all map to a Failed outcome rather than an error.
func (f *Forwarder) Forward(ctx context.Context, endpoint string, payload Payload) Outcome {
	breaker := f.breakers.For(destinationKey(endpoint))
	if !breaker.Allow() {
		f.log.Warn("Webhook destination suspended",
			"url", endpoint,
			"message_id", payload.MessageID,
		)
		return Failed("destination suspended")
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(endpoint)
	if err != nil {
		breaker.RecordFailure()
		f.log.Warn("Webhook call failed",
			"url", endpoint,
			"message_id", payload.MessageID,
			"error", err.Error(),
		)
		return Failed(fmt.Sprintf("request failed: %v", err))
	}

	if !resp.IsSuccess() {
		breaker.RecordFailure()
		f.log.Warn("Webhook returned non-success status",
			"url", endpoint,
			"message_id", payload.MessageID,
			"status", resp.StatusCode(),
		)
		return Failed(fmt.Sprintf("unexpected status %d", resp.StatusCode()))
	}

	breaker.RecordSuccess()

	var reply Reply
	if len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), &reply); err != nil {
			f.log.Warn("Webhook reply body is not valid JSON",
				"url", endpoint,
				"message_id", payload.MessageID,
				"error", err.Error(),
			)
			// A 2xx with an unreadable body still counts as answered; the
			// relay substitutes its received-placeholder for the text.
			return Answered(Reply{})
		}
	}

	return Answered(reply)
}

// destinationKey groups webhook URLs by host for circuit breaking
func destinationKey(endpoint string) string {
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Host == "" {
		return endpoint
	}
	return parsed.Host
}

