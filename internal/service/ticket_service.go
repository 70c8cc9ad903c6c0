package service

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/loanserve/support-desk/internal/errs"
	"github.com/loanserve/support-desk/internal/kafka"
	"github.com/loanserve/support-desk/internal/model"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Tab is a named filter view in the agent queue.
type Tab string

const (
	TabOpen    Tab = "OPEN"
	TabOngoing Tab = "ONGOING"
	TabClosed  Tab = "CLOSED"
	TabAll     Tab = "ALL"
)

const (
	defaultListLimit = 10
	// openSampleSize caps the randomised open queue so agents polling the
	// OPEN tab don't all race for the same ticket at the top of a
	// deterministic list.
	openSampleSize = 5
)

// urgentKeywords classify an inbound message as URGENT when any of them
// appears as a case-insensitive substring.
var urgentKeywords = []string{"loan", "disbursement", "approve", "money", "urgent", "emergency"}

// ListQuery selects the tickets visible to an agent for one queue tab.
type ListQuery struct {
	Tab       Tab
	Search    string
	AgentName string
	Limit     int
}

// TicketView is a ticket enriched with the owning customer's name and phone,
// resolved by a join at read time.
type TicketView struct {
	model.Ticket
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
}

// TicketDetail is a ticket plus its full message history, oldest first.
type TicketDetail struct {
	Ticket   TicketView      `json:"ticket"`
	Messages []model.Message `json:"messages"`
}

// ContactResult is the outcome of an inbound customer contact.
type ContactResult struct {
	TicketID   uint64               `json:"ticket_id"`
	CustomerID uint64               `json:"customer_id"`
	Priority   model.TicketPriority `json:"priority"`
}

type TicketService struct {
	db       *gorm.DB
	agents   *AgentService
	producer kafka.TicketEventProducer
}

// NewTicketService создаёт сервис тикетов. producer может быть nil — тогда
// события не публикуются.
func NewTicketService(db *gorm.DB, agents *AgentService, producer kafka.TicketEventProducer) *TicketService {
	return &TicketService{db: db, agents: agents, producer: producer}
}

func (s *TicketService) viewQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&model.Ticket{}).
		Select("tickets.*, customers.name AS customer_name, customers.phone AS customer_phone").
		Joins("LEFT JOIN customers ON customers.id = tickets.customer_id")
}

// List returns the tickets visible to the requesting agent for a tab.
//
// OPEN shows every open ticket; without a search it returns a random sample
// of up to openSampleSize instead of a deterministic top-N. ONGOING and
// CLOSED are scoped to tickets assigned to the requester and are empty when
// the requester is unknown. ALL is the global-search view: open tickets plus
// the requester's ongoing and closed ones (open+ongoing unscoped when the
// requester is unknown). An unrecognised tab yields an empty list.
func (s *TicketService) List(ctx context.Context, q ListQuery) ([]TicketView, error) {
	if q.Limit <= 0 {
		q.Limit = defaultListLimit
	}

	var agent *model.Agent
	if q.AgentName != "" {
		var err error
		agent, err = s.agents.Lookup(ctx, q.AgentName)
		if err != nil {
			return nil, err
		}
	}

	tx := s.viewQuery(ctx)
	switch q.Tab {
	case TabOpen:
		tx = tx.Where("tickets.status = ?", model.TicketStatusOpen)
		if q.Search == "" {
			return s.sampleOpen(tx)
		}
	case TabOngoing:
		if agent == nil {
			return []TicketView{}, nil
		}
		tx = tx.Where("tickets.status = ? AND tickets.assigned_agent_id = ?", model.TicketStatusOngoing, agent.ID)
	case TabClosed:
		if agent == nil {
			return []TicketView{}, nil
		}
		tx = tx.Where("tickets.status = ? AND tickets.assigned_agent_id = ?", model.TicketStatusClosed, agent.ID)
	case TabAll:
		if agent == nil {
			tx = tx.Where("tickets.status IN ?", []model.TicketStatus{model.TicketStatusOpen, model.TicketStatusOngoing})
		} else {
			tx = tx.Where(
				"(tickets.status = ? OR (tickets.status = ? AND tickets.assigned_agent_id = ?) OR (tickets.status = ? AND tickets.assigned_agent_id = ?))",
				model.TicketStatusOpen,
				model.TicketStatusOngoing, agent.ID,
				model.TicketStatusClosed, agent.ID,
			)
		}
	default:
		return []TicketView{}, nil
	}

	if q.Search != "" {
		like := "%" + strings.ToLower(q.Search) + "%"
		tx = tx.Where(
			"(LOWER(customers.name) LIKE ? OR LOWER(customers.phone) LIKE ? OR LOWER(tickets.last_message_preview) LIKE ?)",
			like, like, like,
		)
	}

	var views []TicketView
	err := tx.Order("tickets.priority DESC, tickets.last_message_at DESC").Limit(q.Limit).Find(&views).Error
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return views, nil
}

// sampleOpen pulls a random subset of the open queue, then sorts the sampled
// batch by the display key so urgent tickets still surface first.
func (s *TicketService) sampleOpen(tx *gorm.DB) ([]TicketView, error) {
	var views []TicketView
	if err := tx.Order("RANDOM()").Limit(openSampleSize).Find(&views).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].Priority != views[j].Priority {
			return views[i].Priority == model.PriorityUrgent
		}
		ti, tj := views[i].LastMessageAt, views[j].LastMessageAt
		if ti == nil || tj == nil {
			return tj == nil && ti != nil
		}
		return ti.After(*tj)
	})
	return views, nil
}

// Claim atomically assigns an OPEN ticket to the named agent, transitioning
// it to ONGOING. The transition is a single conditional UPDATE guarded on
// status=OPEN; under concurrent claims exactly one update matches and the
// losers get ErrTicketNotOpen. The agent upsert happens before the claim and
// is not part of the atomic step.
func (s *TicketService) Claim(ctx context.Context, ticketID uint64, agentName string) (*model.Ticket, error) {
	if agentName == "" {
		return nil, errs.ErrValidation
	}
	agent, err := s.agents.Resolve(ctx, agentName)
	if err != nil {
		return nil, err
	}

	res := s.db.WithContext(ctx).Model(&model.Ticket{}).
		Where("id = ? AND status = ?", ticketID, model.TicketStatusOpen).
		Updates(map[string]interface{}{
			"status":            model.TicketStatusOngoing,
			"assigned_agent_id": agent.ID,
		})
	if res.Error != nil {
		return nil, errors.WithStack(res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost the race or the ticket never existed; tell the caller which.
		var exists model.Ticket
		if err := s.db.WithContext(ctx).First(&exists, ticketID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errs.ErrTicketNotFound
			}
			return nil, errors.WithStack(err)
		}
		return nil, errs.ErrTicketNotOpen
	}

	var t model.Ticket
	if err := s.db.WithContext(ctx).First(&t, ticketID).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	s.emitEvent("ticket.claimed", &t)
	return &t, nil
}

// PostMessage appends a message to a ticket and mirrors it into the ticket's
// preview fields. The two writes are not atomic: a message that lands before
// a failed preview update stays recorded.
func (s *TicketService) PostMessage(ctx context.Context, ticketID uint64, sender model.SenderType, senderName, text string) (*model.Message, error) {
	if senderName == "" || text == "" {
		return nil, errs.ErrValidation
	}
	if !model.ValidSender(sender) {
		return nil, errs.ErrInvalidSender
	}

	var t model.Ticket
	if err := s.db.WithContext(ctx).First(&t, ticketID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTicketNotFound
		}
		return nil, errors.WithStack(err)
	}
	if t.Status == model.TicketStatusClosed {
		return nil, errs.ErrTicketClosed
	}

	msg := &model.Message{
		TicketID:   ticketID,
		SenderType: sender,
		SenderName: senderName,
		Text:       text,
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, errors.WithStack(err)
	}

	err := s.db.WithContext(ctx).Model(&model.Ticket{}).
		Where("id = ?", ticketID).
		Updates(map[string]interface{}{
			"last_message_preview": msg.Text,
			"last_message_at":      msg.CreatedAt,
		}).Error
	if err != nil {
		// Сообщение уже записано; откат не делаем.
		return nil, errors.WithStack(err)
	}
	return msg, nil
}

// SetStatus overwrites a ticket's status. Only enum membership is checked;
// once a ticket is ONGOING a single agent owns it so no concurrency guard is
// needed here, unlike Claim.
func (s *TicketService) SetStatus(ctx context.Context, ticketID uint64, status model.TicketStatus) (*model.Ticket, error) {
	if !model.ValidStatus(status) {
		return nil, errs.ErrInvalidStatus
	}
	res := s.db.WithContext(ctx).Model(&model.Ticket{}).
		Where("id = ?", ticketID).
		Update("status", status)
	if res.Error != nil {
		return nil, errors.WithStack(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errs.ErrTicketNotFound
	}
	var t model.Ticket
	if err := s.db.WithContext(ctx).First(&t, ticketID).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	s.emitEvent("ticket.status_changed", &t)
	return &t, nil
}

// CreateFromContact handles an inbound customer message: upserts the
// customer by phone, classifies priority by the urgent keyword list, draws a
// pseudo-random loan amount in [1000, 99999] and opens a fresh ticket with
// the initiating message. Every inbound contact opens a new ticket.
func (s *TicketService) CreateFromContact(ctx context.Context, name, phone, message string) (*ContactResult, error) {
	if name == "" || phone == "" || message == "" {
		return nil, errs.ErrValidation
	}

	var customer model.Customer
	err := s.db.WithContext(ctx).
		Where(model.Customer{Phone: phone}).
		Attrs(model.Customer{Name: name}).
		FirstOrCreate(&customer).Error
	if err != nil {
		return nil, errors.WithStack(err)
	}

	priority := model.PriorityNormal
	lower := strings.ToLower(message)
	for _, kw := range urgentKeywords {
		if strings.Contains(lower, kw) {
			priority = model.PriorityUrgent
			break
		}
	}

	now := time.Now()
	ticket := &model.Ticket{
		CustomerID:         customer.ID,
		LoanAmount:         int64(rand.Intn(99000) + 1000),
		Status:             model.TicketStatusOpen,
		Priority:           priority,
		LastMessagePreview: message,
		LastMessageAt:      &now,
	}
	if err := s.db.WithContext(ctx).Create(ticket).Error; err != nil {
		return nil, errors.WithStack(err)
	}

	initial := &model.Message{
		TicketID:   ticket.ID,
		SenderType: model.SenderCustomer,
		SenderName: name,
		Text:       message,
	}
	if err := s.db.WithContext(ctx).Create(initial).Error; err != nil {
		return nil, errors.WithStack(err)
	}

	s.emitEvent("ticket.created", ticket)
	return &ContactResult{
		TicketID:   ticket.ID,
		CustomerID: customer.ID,
		Priority:   priority,
	}, nil
}

// Detail returns one ticket with customer fields and its message history.
func (s *TicketService) Detail(ctx context.Context, ticketID uint64) (*TicketDetail, error) {
	var views []TicketView
	if err := s.viewQuery(ctx).Where("tickets.id = ?", ticketID).Limit(1).Find(&views).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	if len(views) == 0 {
		return nil, errs.ErrTicketNotFound
	}
	var msgs []model.Message
	err := s.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &TicketDetail{Ticket: views[0], Messages: msgs}, nil
}

// emitEvent публикует событие тикета fire-and-forget; запрос не ждёт Kafka.
func (s *TicketService) emitEvent(event string, t *model.Ticket) {
	if s.producer == nil || t == nil {
		return
	}
	payload := map[string]interface{}{
		"ticket_id":   t.ID,
		"customer_id": t.CustomerID,
		"status":      string(t.Status),
		"priority":    string(t.Priority),
	}
	if t.AssignedAgentID != nil {
		payload["assigned_agent_id"] = *t.AssignedAgentID
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.producer.ProduceTicketEvent(ctx, event, payload)
	}()
}
