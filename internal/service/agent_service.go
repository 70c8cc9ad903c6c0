package service

import (
	"context"

	"github.com/loanserve/support-desk/internal/model"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// AgentService resolves agent identity by name. There is no authentication:
// the name is the identity key, created on first use.
type AgentService struct {
	db *gorm.DB
}

func NewAgentService(db *gorm.DB) *AgentService {
	return &AgentService{db: db}
}

// Resolve finds the agent by name, creating it if absent. Two concurrent
// first contacts with the same name can create duplicates; exactly-once
// identity would need a unique index plus retry on conflict.
func (s *AgentService) Resolve(ctx context.Context, name string) (*model.Agent, error) {
	var agent model.Agent
	err := s.db.WithContext(ctx).Where(model.Agent{Name: name}).FirstOrCreate(&agent).Error
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &agent, nil
}

// Lookup finds the agent by name without creating it. Returns (nil, nil)
// when no such agent exists.
func (s *AgentService) Lookup(ctx context.Context, name string) (*model.Agent, error) {
	var agent model.Agent
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&agent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}
	return &agent, nil
}

// OngoingCount counts the ONGOING tickets currently assigned to the agent.
// Unknown agents have zero.
func (s *AgentService) OngoingCount(ctx context.Context, name string) (int64, error) {
	agent, err := s.Lookup(ctx, name)
	if err != nil {
		return 0, err
	}
	if agent == nil {
		return 0, nil
	}
	var n int64
	err = s.db.WithContext(ctx).Model(&model.Ticket{}).
		Where("assigned_agent_id = ? AND status = ?", agent.ID, model.TicketStatusOngoing).
		Count(&n).Error
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return n, nil
}

// CompletedCount counts the CLOSED tickets the agent has handled.
func (s *AgentService) CompletedCount(ctx context.Context, name string) (int64, error) {
	agent, err := s.Lookup(ctx, name)
	if err != nil {
		return 0, err
	}
	if agent == nil {
		return 0, nil
	}
	var n int64
	err = s.db.WithContext(ctx).Model(&model.Ticket{}).
		Where("assigned_agent_id = ? AND status = ?", agent.ID, model.TicketStatusClosed).
		Count(&n).Error
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return n, nil
}
