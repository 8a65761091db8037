package service

import (
	"fmt"
	"testing"
	"time"

	"ai-agent-portal/backend/internal/models"
	"ai-agent-portal/backend/pkg/jwt"
	"ai-agent-portal/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// One shared in-memory database per test
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Admin{},
		&models.Client{},
		&models.Agent{},
		&models.Message{},
	))

	return db
}

func dbTestLogger() *logger.Logger {
	cfg := logger.DefaultConfig()
	cfg.Level = "error"
	return logger.New(cfg)
}

func seedClient(t *testing.T, clients *ClientService, username string) *models.Client {
	t.Helper()
	client, err := clients.Create(&models.CreateClientRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	return client
}

func TestClientDeleteCascadesAgentsAndMessages(t *testing.T) {
	db := newTestDB(t)
	jwtService := jwt.NewService("test-secret", time.Hour)
	clients := NewClientService(db, jwtService)
	agents := NewAgentService(db, nil)
	messages := NewMessageService(db, nil, dbTestLogger())

	doomed := seedClient(t, clients, "doomed")
	survivor := seedClient(t, clients, "survivor")

	doomedAgent, err := agents.Create(doomed.ID, &models.CreateAgentRequest{Name: "helper"})
	require.NoError(t, err)
	survivorAgent, err := agents.Create(survivor.ID, &models.CreateAgentRequest{Name: "keeper"})
	require.NoError(t, err)

	_, err = messages.Create(doomed.ID, doomedAgent.ID, "hello")
	require.NoError(t, err)
	_, err = messages.Create(survivor.ID, survivorAgent.ID, "hi")
	require.NoError(t, err)

	require.NoError(t, clients.Delete(doomed.ID))

	_, err = clients.GetByID(doomed.ID)
	assert.ErrorIs(t, err, ErrClientNotFound)

	var agentCount, messageCount int64
	require.NoError(t, db.Model(&models.Agent{}).Where("client_id = ?", doomed.ID).Count(&agentCount).Error)
	require.NoError(t, db.Model(&models.Message{}).Where("client_id = ?", doomed.ID).Count(&messageCount).Error)
	assert.Zero(t, agentCount)
	assert.Zero(t, messageCount)

	// The other tenant is untouched
	require.NoError(t, db.Model(&models.Agent{}).Where("client_id = ?", survivor.ID).Count(&agentCount).Error)
	require.NoError(t, db.Model(&models.Message{}).Where("client_id = ?", survivor.ID).Count(&messageCount).Error)
	assert.EqualValues(t, 1, agentCount)
	assert.EqualValues(t, 1, messageCount)
}

func TestAgentDeleteCascadesMessages(t *testing.T) {
	db := newTestDB(t)
	jwtService := jwt.NewService("test-secret", time.Hour)
	clients := NewClientService(db, jwtService)
	agents := NewAgentService(db, nil)
	messages := NewMessageService(db, nil, dbTestLogger())

	client := seedClient(t, clients, "acme")

	doomed, err := agents.Create(client.ID, &models.CreateAgentRequest{Name: "helper"})
	require.NoError(t, err)
	kept, err := agents.Create(client.ID, &models.CreateAgentRequest{Name: "keeper"})
	require.NoError(t, err)

	_, err = messages.Create(client.ID, doomed.ID, "hello")
	require.NoError(t, err)
	_, err = messages.Create(client.ID, kept.ID, "hi")
	require.NoError(t, err)

	require.NoError(t, agents.Delete(client.ID, doomed.ID))

	_, err = agents.GetOwned(client.ID, doomed.ID)
	assert.ErrorIs(t, err, ErrAgentNotFound)

	var count int64
	require.NoError(t, db.Model(&models.Message{}).Where("agent_id = ?", doomed.ID).Count(&count).Error)
	assert.Zero(t, count)

	// The sibling agent keeps its conversation
	require.NoError(t, db.Model(&models.Message{}).Where("agent_id = ?", kept.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestHistoryReturnsMostRecentWindowOldestFirst(t *testing.T) {
	db := newTestDB(t)
	jwtService := jwt.NewService("test-secret", time.Hour)
	clients := NewClientService(db, jwtService)
	agents := NewAgentService(db, nil)
	messages := NewMessageService(db, nil, dbTestLogger())

	client := seedClient(t, clients, "acme")
	agent, err := agents.Create(client.ID, &models.CreateAgentRequest{Name: "helper"})
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		_, err := messages.Create(client.ID, agent.ID, fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	// A window smaller than the conversation returns the newest entries,
	// oldest first, so the latest exchange is always retrievable.
	history, err := messages.History(client.ID, agent.ID, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "message 3", history[0].Content)
	assert.Equal(t, "message 4", history[1].Content)
	assert.Equal(t, "message 5", history[2].Content)
}

func TestResolveGuardsAgainstSecondWrite(t *testing.T) {
	db := newTestDB(t)
	jwtService := jwt.NewService("test-secret", time.Hour)
	clients := NewClientService(db, jwtService)
	agents := NewAgentService(db, nil)
	messages := NewMessageService(db, nil, dbTestLogger())

	client := seedClient(t, clients, "acme")
	agent, err := agents.Create(client.ID, &models.CreateAgentRequest{Name: "helper"})
	require.NoError(t, err)

	message, err := messages.Create(client.ID, agent.ID, "hello")
	require.NoError(t, err)

	resolved, err := messages.Resolve(message.ID, "first answer")
	require.NoError(t, err)
	assert.True(t, resolved)

	resolved, err = messages.Resolve(message.ID, "second answer")
	require.NoError(t, err)
	assert.False(t, resolved)

	history, err := messages.History(client.ID, agent.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].Response)
	assert.Equal(t, "first answer", *history[0].Response)
	assert.NotNil(t, history[0].ResolvedAt)
}
