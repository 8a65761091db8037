package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"ai-agent-portal/backend/internal/models"
	"ai-agent-portal/backend/internal/ws"
	"ai-agent-portal/backend/pkg/logger"
	"ai-agent-portal/backend/webhook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAgents struct {
	agents map[uint]*models.Agent
}

func (f *fakeAgents) GetOwned(clientID, agentID uint) (*models.Agent, error) {
	agent, ok := f.agents[agentID]
	if !ok || agent.ClientID != clientID {
		return nil, ErrAgentNotFound
	}
	return agent, nil
}

type fakeMessages struct {
	mu       sync.Mutex
	nextID   uint
	messages map[uint]*models.Message
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{messages: make(map[uint]*models.Message)}
}

func (f *fakeMessages) Create(clientID, agentID uint, content string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	message := &models.Message{
		ID:        f.nextID,
		ClientID:  clientID,
		AgentID:   agentID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	f.messages[message.ID] = message
	return message, nil
}

func (f *fakeMessages) Resolve(messageID uint, response string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	message, ok := f.messages[messageID]
	if !ok || message.Response != nil {
		return false, nil
	}
	now := time.Now()
	message.Response = &response
	message.ResolvedAt = &now
	return true, nil
}

func (f *fakeMessages) get(messageID uint) *models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages[messageID]
}

func (f *fakeMessages) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

type deliveredEvent struct {
	clientID uint
	event    ws.ResponseEvent
}

type fakeDeliverer struct {
	mu     sync.Mutex
	events []deliveredEvent
	signal chan struct{}
}

func newFakeDeliverer() *fakeDeliverer {
	return &fakeDeliverer{signal: make(chan struct{}, 16)}
}

func (f *fakeDeliverer) Deliver(clientID uint, event ws.ResponseEvent) {
	f.mu.Lock()
	f.events = append(f.events, deliveredEvent{clientID: clientID, event: event})
	f.mu.Unlock()
	f.signal <- struct{}{}
}

func (f *fakeDeliverer) wait(t *testing.T) deliveredEvent {
	t.Helper()
	select {
	case <-f.signal:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[len(f.events)-1]
}

func (f *fakeDeliverer) deliveries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type fakeForwarder struct {
	mu      sync.Mutex
	outcome webhook.Outcome
	url     string
	payload webhook.Payload
	block   chan struct{} // when set, Forward waits until closed
}

func (f *fakeForwarder) Forward(ctx context.Context, url string, payload webhook.Payload) webhook.Outcome {
	f.mu.Lock()
	f.url = url
	f.payload = payload
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return f.outcome
}

func testRelay(agents *fakeAgents, forwarder *fakeForwarder) (*RelayService, *fakeMessages, *fakeDeliverer) {
	cfg := logger.DefaultConfig()
	cfg.Level = "error"
	messages := newFakeMessages()
	deliverer := newFakeDeliverer()
	relay := NewRelayService(agents, messages, forwarder, deliverer, logger.New(cfg), 4000)
	return relay, messages, deliverer
}

func activeAgent(clientID, agentID uint, webhookURL string) *fakeAgents {
	return &fakeAgents{agents: map[uint]*models.Agent{
		agentID: {ID: agentID, ClientID: clientID, Name: "helper", WebhookURL: webhookURL, Active: true},
	}}
}

func TestSubmitWithoutWebhookDeliversNotConfiguredPlaceholder(t *testing.T) {
	relay, messages, deliverer := testRelay(activeAgent(1, 10, ""), &fakeForwarder{})

	message, err := relay.Submit(1, 10, "hello")
	require.NoError(t, err)
	assert.Nil(t, message.Response, "submit must never return the response text")

	delivered := deliverer.wait(t)
	assert.Equal(t, uint(1), delivered.clientID)
	assert.Equal(t, message.ID, delivered.event.MessageID)
	assert.Equal(t, uint(10), delivered.event.AgentID)
	assert.Equal(t, ResponseNotConfigured, delivered.event.Response)

	stored := messages.get(message.ID)
	require.NotNil(t, stored.Response)
	assert.Equal(t, ResponseNotConfigured, *stored.Response)
	assert.NotNil(t, stored.ResolvedAt)
}

func TestSubmitForwardsAndDeliversResponseField(t *testing.T) {
	forwarder := &fakeForwarder{outcome: webhook.Answered(webhook.Reply{Response: "hi there"})}
	relay, messages, deliverer := testRelay(activeAgent(1, 10, "https://n8n.example/hook"), forwarder)

	message, err := relay.Submit(1, 10, "hello")
	require.NoError(t, err)

	delivered := deliverer.wait(t)
	assert.Equal(t, "hi there", delivered.event.Response)
	assert.Equal(t, "hi there", *messages.get(message.ID).Response)

	assert.Equal(t, "https://n8n.example/hook", forwarder.url)
	assert.Equal(t, "hello", forwarder.payload.Message)
	assert.Equal(t, uint(1), forwarder.payload.ClientID)
	assert.Equal(t, uint(10), forwarder.payload.AgentID)
	assert.Equal(t, message.ID, forwarder.payload.MessageID)
	_, err = time.Parse(time.RFC3339, forwarder.payload.Timestamp)
	assert.NoError(t, err)
}

func TestSubmitFallsBackToMessageField(t *testing.T) {
	forwarder := &fakeForwarder{outcome: webhook.Answered(webhook.Reply{Message: "ack"})}
	relay, messages, deliverer := testRelay(activeAgent(1, 10, "https://n8n.example/hook"), forwarder)

	message, err := relay.Submit(1, 10, "hello")
	require.NoError(t, err)

	delivered := deliverer.wait(t)
	assert.Equal(t, "ack", delivered.event.Response)
	assert.Equal(t, "ack", *messages.get(message.ID).Response)
}

func TestSubmitUsesReceivedPlaceholderForEmptyReply(t *testing.T) {
	forwarder := &fakeForwarder{outcome: webhook.Answered(webhook.Reply{})}
	relay, messages, deliverer := testRelay(activeAgent(1, 10, "https://n8n.example/hook"), forwarder)

	message, err := relay.Submit(1, 10, "hello")
	require.NoError(t, err)

	delivered := deliverer.wait(t)
	assert.Equal(t, ResponseReceived, delivered.event.Response)
	assert.Equal(t, ResponseReceived, *messages.get(message.ID).Response)
}

func TestSubmitConvertsForwarderFailureToPlaceholder(t *testing.T) {
	forwarder := &fakeForwarder{outcome: webhook.Failed("connection refused")}
	relay, messages, deliverer := testRelay(activeAgent(1, 10, "https://n8n.example/hook"), forwarder)

	// The submit call itself still succeeds
	message, err := relay.Submit(1, 10, "hello")
	require.NoError(t, err)

	delivered := deliverer.wait(t)
	assert.Equal(t, ResponseUnavailable, delivered.event.Response)
	assert.Equal(t, ResponseUnavailable, *messages.get(message.ID).Response)
}

func TestSubmitRejectsInactiveAgentBeforePersisting(t *testing.T) {
	agents := &fakeAgents{agents: map[uint]*models.Agent{
		10: {ID: 10, ClientID: 1, Name: "helper", Active: false},
	}}
	relay, messages, _ := testRelay(agents, &fakeForwarder{})

	_, err := relay.Submit(1, 10, "hello")
	assert.ErrorIs(t, err, ErrAgentInactive)
	assert.Zero(t, messages.count())
}

func TestSubmitRejectsNonOwnedAgentBeforePersisting(t *testing.T) {
	relay, messages, _ := testRelay(activeAgent(2, 10, ""), &fakeForwarder{})

	_, err := relay.Submit(1, 10, "hello")
	assert.ErrorIs(t, err, ErrAgentNotFound)
	assert.Zero(t, messages.count())
}

func TestSubmitRejectsOverlongMessage(t *testing.T) {
	relay, messages, _ := testRelay(activeAgent(1, 10, ""), &fakeForwarder{})

	long := make([]byte, 4001)
	for i := range long {
		long[i] = 'a'
	}

	_, err := relay.Submit(1, 10, string(long))
	assert.ErrorIs(t, err, ErrMessageTooLong)
	assert.Zero(t, messages.count())
}

func TestDuplicateResolutionIsDropped(t *testing.T) {
	block := make(chan struct{})
	forwarder := &fakeForwarder{outcome: webhook.Answered(webhook.Reply{Response: "late answer"}), block: block}
	relay, messages, deliverer := testRelay(activeAgent(1, 10, "https://n8n.example/hook"), forwarder)

	message, err := relay.Submit(1, 10, "hello")
	require.NoError(t, err)

	// Resolve the message before the forwarder settles
	resolved, err := messages.Resolve(message.ID, "first answer")
	require.NoError(t, err)
	require.True(t, resolved)

	close(block)

	// The relay's own resolution loses the guarded transition: no delivery,
	// the stored response is untouched.
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, deliverer.deliveries())
	assert.Equal(t, "first answer", *messages.get(message.ID).Response)
}
