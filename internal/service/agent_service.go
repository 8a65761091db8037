package service

import (
	"errors"
	"fmt"

	"ai-agent-portal/backend/internal/models"
	"ai-agent-portal/backend/pkg/cache"

	"gorm.io/gorm"
)

var (
	// ErrAgentNotFound covers both a missing agent and an agent owned by a
	// different client, so the API never confirms existence to non-owners.
	ErrAgentNotFound = errors.New("agent not found")
	ErrAgentInactive = errors.New("agent is not active")
)

// AgentService handles client-scoped agent CRUD. Lookups on the relay path go
// through the in-memory cache; every mutation invalidates the cached entry.
type AgentService struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewAgentService creates a new agent service
func NewAgentService(db *gorm.DB, c *cache.Cache) *AgentService {
	return &AgentService{db: db, cache: c}
}

func agentCacheKey(id uint) string {
	return fmt.Sprintf("agent:%d", id)
}

// Create adds a new agent owned by the given client
func (s *AgentService) Create(clientID uint, req *models.CreateAgentRequest) (*models.Agent, error) {
	agent := models.Agent{
		ClientID:    clientID,
		Name:        req.Name,
		Description: req.Description,
		WebhookURL:  req.WebhookURL,
		Active:      true,
	}

	if err := s.db.Create(&agent).Error; err != nil {
		return nil, err
	}

	return &agent, nil
}

// ListByClient returns all agents owned by the given client
func (s *AgentService) ListByClient(clientID uint) ([]models.Agent, error) {
	var agents []models.Agent
	if err := s.db.Where("client_id = ?", clientID).Order("id").Find(&agents).Error; err != nil {
		return nil, err
	}
	return agents, nil
}

// GetOwned retrieves an agent and verifies it belongs to the given client
func (s *AgentService) GetOwned(clientID, agentID uint) (*models.Agent, error) {
	if s.cache != nil {
		if v, found := s.cache.Get(agentCacheKey(agentID)); found {
			if agent, ok := v.(*models.Agent); ok {
				if agent.ClientID != clientID {
					return nil, ErrAgentNotFound
				}
				return agent, nil
			}
		}
	}

	var agent models.Agent
	result := s.db.First(&agent, agentID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, result.Error
	}

	if s.cache != nil {
		s.cache.Set(agentCacheKey(agentID), &agent)
	}

	if agent.ClientID != clientID {
		return nil, ErrAgentNotFound
	}

	return &agent, nil
}

// Update modifies an agent owned by the given client. Only fields present in
// the request change.
func (s *AgentService) Update(clientID, agentID uint, req *models.UpdateAgentRequest) (*models.Agent, error) {
	agent, err := s.getOwnedFresh(clientID, agentID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.WebhookURL != nil {
		updates["webhook_url"] = *req.WebhookURL
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}

	if len(updates) > 0 {
		if err := s.db.Model(agent).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	if s.cache != nil {
		s.cache.Delete(agentCacheKey(agentID))
	}

	return agent, nil
}

// Delete removes an agent and every message referencing it, in one transaction
func (s *AgentService) Delete(clientID, agentID uint) error {
	if _, err := s.getOwnedFresh(clientID, agentID); err != nil {
		return err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("agent_id = ?", agentID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Agent{}, agentID).Error
	})
	if err != nil {
		return err
	}

	if s.cache != nil {
		s.cache.Delete(agentCacheKey(agentID))
	}

	return nil
}

// getOwnedFresh bypasses the cache for mutation paths
func (s *AgentService) getOwnedFresh(clientID, agentID uint) (*models.Agent, error) {
	var agent models.Agent
	result := s.db.First(&agent, agentID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, result.Error
	}
	if agent.ClientID != clientID {
		return nil, ErrAgentNotFound
	}
	return &agent, nil
}
