package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ai-agent-portal/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	cfg := logger.DefaultConfig()
	cfg.Level = "error"
	return logger.New(cfg)
}

func TestForwardAnsweredWithResponseField(t *testing.T) {
	var received Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":"hi there"}`))
	}))
	defer srv.Close()

	f := NewForwarder(time.Second, testLogger())
	outcome := f.Forward(context.Background(), srv.URL, Payload{
		Message:   "hello",
		ClientID:  1,
		AgentID:   2,
		MessageID: 3,
		Timestamp: time.Now().Format(time.RFC3339),
	})

	assert.True(t, outcome.Answered)
	assert.Equal(t, "hi there", outcome.Reply.Response)
	assert.Equal(t, "hello", received.Message)
	assert.Equal(t, uint(1), received.ClientID)
	assert.Equal(t, uint(2), received.AgentID)
	assert.Equal(t, uint(3), received.MessageID)
}

func TestForwardAnsweredWithMessageFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"ack"}`))
	}))
	defer srv.Close()

	f := NewForwarder(time.Second, testLogger())
	outcome := f.Forward(context.Background(), srv.URL, Payload{MessageID: 1})

	assert.True(t, outcome.Answered)
	assert.Empty(t, outcome.Reply.Response)
	assert.Equal(t, "ack", outcome.Reply.Message)
}

func TestForwardAnsweredWithEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := NewForwarder(time.Second, testLogger())
	outcome := f.Forward(context.Background(), srv.URL, Payload{MessageID: 1})

	assert.True(t, outcome.Answered)
	assert.Empty(t, outcome.Reply.Response)
	assert.Empty(t, outcome.Reply.Message)
}

func TestForwardFailedOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewForwarder(time.Second, testLogger())
	outcome := f.Forward(context.Background(), srv.URL, Payload{MessageID: 1})

	assert.False(t, outcome.Answered)
	assert.Contains(t, outcome.Reason, "500")
}

func TestForwardFailedOnTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	f := NewForwarder(50*time.Millisecond, testLogger())
	outcome := f.Forward(context.Background(), srv.URL, Payload{MessageID: 1})

	assert.False(t, outcome.Answered)
	assert.NotEmpty(t, outcome.Reason)
}

func TestForwardSuspendsFailingDestination(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewForwarder(time.Second, testLogger())
	for i := 0; i < 5; i++ {
		outcome := f.Forward(context.Background(), srv.URL, Payload{MessageID: uint(i + 1)})
		assert.False(t, outcome.Answered)
	}

	// Sixth call is short-circuited without reaching the destination
	outcome := f.Forward(context.Background(), srv.URL, Payload{MessageID: 6})
	assert.False(t, outcome.Answered)
	assert.Equal(t, "destination suspended", outcome.Reason)
	assert.Equal(t, 5, calls)
}

func TestForwardFailedOnConnectionError(t *testing.T) {
	// Closed server: connection refused
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	f := NewForwarder(time.Second, testLogger())
	outcome := f.Forward(context.Background(), url, Payload{MessageID: 1})

	assert.False(t, outcome.Answered)
	assert.NotEmpty(t, outcome.Reason)
}
