package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-agent-portal/backend/internal/models"
	"ai-agent-portal/backend/pkg/config"
	"ai-agent-portal/backend/pkg/logger"
	"ai-agent-portal/backend/shared/redis"

	"gorm.io/gorm"
)

// MessageService persists chat messages and their resolutions. History reads
// are served from Redis when a cached copy exists; message creation and
// resolution invalidate the cached history for that conversation.
type MessageService struct {
	db    *gorm.DB
	redis *redis.Client // nil when Redis is disabled
	log   *logger.Logger
}

// NewMessageService creates a new message service
func NewMessageService(db *gorm.DB, redisClient *redis.Client, log *logger.Logger) *MessageService {
	return &MessageService{db: db, redis: redisClient, log: log}
}

func historyCacheKey(clientID, agentID uint) string {
	return fmt.Sprintf("history:%d:%d", clientID, agentID)
}

// Create persists a new unresolved message
func (s *MessageService) Create(clientID, agentID uint, content string) (*models.Message, error) {
	message := models.Message{
		ClientID: clientID,
		AgentID:  agentID,
		Content:  content,
	}

	if err := s.db.Create(&message).Error; err != nil {
		return nil, err
	}

	s.invalidateHistory(clientID, agentID)
	return &message, nil
}

// Resolve sets the terminal response on a message. The transition is guarded:
// only a message with no response yet can be resolved, so a duplicate outcome
// (a second webhook callback, a future retry) cannot overwrite the first.
// Returns false when the message was already resolved or does not exist.
func (s *MessageService) Resolve(messageID uint, response string) (bool, error) {
	now := time.Now()
	result := s.db.Model(&models.Message{}).
		Where("id = ? AND response IS NULL", messageID).
		Updates(map[string]interface{}{
			"response":    response,
			"resolved_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	var message models.Message
	if err := s.db.First(&message, messageID).Error; err == nil {
		s.invalidateHistory(message.ClientID, message.AgentID)
	}

	return true, nil
}

// History returns the most recent messages a client exchanged with one agent,
// ordered oldest first, capped at limit. The default-limit result is cached in
// Redis.
func (s *MessageService) History(clientID, agentID uint, limit int) ([]models.Message, error) {
	cfg := config.Get()
	if limit <= 0 || limit > cfg.Relay.HistoryLimit {
		limit = cfg.Relay.HistoryLimit
	}
	cacheable := s.redis != nil && limit == cfg.Relay.HistoryLimit

	if cacheable {
		var cached []models.Message
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		err := s.redis.GetJSON(ctx, historyCacheKey(clientID, agentID), &cached)
		cancel()
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("History cache read failed", "error", err.Error())
		}
	}

	// Newest N rows, then reversed so conversations read oldest first
	var messages []models.Message
	err := s.db.
		Where("client_id = ? AND agent_id = ?", clientID, agentID).
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	if cacheable {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if err := s.redis.SetJSON(ctx, historyCacheKey(clientID, agentID), messages, cfg.Redis.TTL); err != nil {
			s.log.Warn("History cache write failed", "error", err.Error())
		}
		cancel()
	}

	return messages, nil
}

func (s *MessageService) invalidateHistory(clientID, agentID uint) {
	if s.redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.redis.Del(ctx, historyCacheKey(clientID, agentID)); err != nil {
		s.log.Warn("History cache invalidation failed", "error", err.Error())
	}
}
