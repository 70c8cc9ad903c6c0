package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/loanserve/support-desk/internal/errs"
	"github.com/loanserve/support-desk/internal/model"
)

func TestClaim(t *testing.T) {
	db, svc, _ := newTestServices(t)
	ctx := context.Background()
	customer := mustCustomer(t, db, "Asha Verma", "111")
	ticket := mustTicket(t, db, customer.ID, model.TicketStatusOpen, model.PriorityNormal, nil, "hello")

	claimed, err := svc.Claim(ctx, ticket.ID, "A")
	if err != nil {
		t.Fatalf("Claim() error: %v", err)
	}
	if claimed.Status != model.TicketStatusOngoing {
		t.Errorf("status = %q, want ONGOING", claimed.Status)
	}
	if claimed.AssignedAgentID == nil {
		t.Fatal("assigned agent id is nil after claim")
	}

	var agentA model.Agent
	if err := db.Where("name = ?", "A").First(&agentA).Error; err != nil {
		t.Fatalf("agent A was not created: %v", err)
	}
	if *claimed.AssignedAgentID != agentA.ID {
		t.Errorf("assigned agent = %d, want %d", *claimed.AssignedAgentID, agentA.ID)
	}

	// Second claim by a different agent loses with a conflict and the
	// ticket keeps the first winner.
	_, err = svc.Claim(ctx, ticket.ID, "B")
	if !errors.Is(err, errs.ErrTicketNotOpen) {
		t.Fatalf("second claim error = %v, want ErrTicketNotOpen", err)
	}
	var after model.Ticket
	if err := db.First(&after, ticket.ID).Error; err != nil {
		t.Fatalf("reload ticket: %v", err)
	}
	if after.AssignedAgentID == nil || *after.AssignedAgentID != agentA.ID {
		t.Errorf("ticket changed after losing claim: assigned = %v", after.AssignedAgentID)
	}

	if _, err := svc.Claim(ctx, 999999, "A"); !errors.Is(err, errs.ErrTicketNotFound) {
		t.Errorf("claim of missing ticket error = %v, want ErrTicketNotFound", err)
	}
}

func TestClaimConcurrent(t *testing.T) {
	db, svc, _ := newTestServices(t)
	ctx := context.Background()
	customer := mustCustomer(t, db, "Ravi", "222")
	ticket := mustTicket(t, db, customer.ID, model.TicketStatusOpen, model.PriorityUrgent, nil, "need help")

	const attempts = 8
	var wg sync.WaitGroup
	results := make([]error, attempts)
	winners := make([]*model.Ticket, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			winners[i], results[i] = svc.Claim(ctx, ticket.ID, string(rune('A'+i)))
		}(i)
	}
	wg.Wait()

	var wins int
	var winner *model.Ticket
	for i, err := range results {
		switch {
		case err == nil:
			wins++
			winner = winners[i]
		case errors.Is(err, errs.ErrTicketNotOpen):
			// expected for the losers
		default:
			t.Errorf("attempt %d: unexpected error: %v", i, err)
		}
	}
	if wins != 1 {
		t.Fatalf("got %d successful claims, want exactly 1", wins)
	}

	var final model.Ticket
	if err := db.First(&final, ticket.ID).Error; err != nil {
		t.Fatalf("reload ticket: %v", err)
	}
	if final.Status != model.TicketStatusOngoing {
		t.Errorf("final status = %q, want ONGOING", final.Status)
	}
	if final.AssignedAgentID == nil || winner.AssignedAgentID == nil || *final.AssignedAgentID != *winner.AssignedAgentID {
		t.Errorf("final assignee %v does not match winner %v", final.AssignedAgentID, winner.AssignedAgentID)
	}
}

func TestPostMessage(t *testing.T) {
	db, svc, _ := newTestServices(t)
	ctx := context.Background()
	customer := mustCustomer(t, db, "Asha", "333")
	ticket := mustTicket(t, db, customer.ID, model.TicketStatusOpen, model.PriorityNormal, nil, "first")
	before := *ticket.LastMessageAt

	msg, err := svc.PostMessage(ctx, ticket.ID, model.SenderAgent, "A", "checking in")
	if err != nil {
		t.Fatalf("PostMessage() error: %v", err)
	}
	if msg.ID == 0 {
		t.Error("message was not persisted")
	}

	var after model.Ticket
	if err := db.First(&after, ticket.ID).Error; err != nil {
		t.Fatalf("reload ticket: %v", err)
	}
	if after.LastMessagePreview != "checking in" {
		t.Errorf("preview = %q, want %q", after.LastMessagePreview, "checking in")
	}
	if after.LastMessageAt == nil || after.LastMessageAt.Before(before) {
		t.Errorf("last_message_at went backwards: %v -> %v", before, after.LastMessageAt)
	}
}

func TestPostMessageClosedTicket(t *testing.T) {
	db, svc, _ := newTestServices(t)
	ctx := context.Background()
	customer := mustCustomer(t, db, "Asha", "444")
	agent := mustAgent(t, db, "A")
	ticket := mustTicket(t, db, customer.ID, model.TicketStatusClosed, model.PriorityNormal, &agent.ID, "bye")

	_, err := svc.PostMessage(ctx, ticket.ID, model.SenderCustomer, "Asha", "hello again")
	if !errors.Is(err, errs.ErrTicketClosed) {
		t.Fatalf("error = %v, want ErrTicketClosed", err)
	}
	var count int64
	if err := db.Model(&model.Message{}).Where("ticket_id = ?", ticket.ID).Count(&count).Error; err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if count != 0 {
		t.Errorf("got %d messages on closed ticket, want 0", count)
	}
}

func TestPostMessageValidation(t *testing.T) {
	db, svc, _ := newTestServices(t)
	ctx := context.Background()
	customer := mustCustomer(t, db, "Asha", "555")
	ticket := mustTicket(t, db, customer.ID, model.TicketStatusOpen, model.PriorityNormal, nil, "hi")

	if _, err := svc.PostMessage(ctx, ticket.ID, "ROBOT", "x", "y"); !errors.Is(err, errs.ErrInvalidSender) {
		t.Errorf("bad sender error = %v, want ErrInvalidSender", err)
	}
	if _, err := svc.PostMessage(ctx, ticket.ID, model.SenderAgent, "", "y"); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("empty sender name error = %v, want ErrValidation", err)
	}
	if _, err := svc.PostMessage(ctx, 999999, model.SenderAgent, "A", "y"); !errors.Is(err, errs.ErrTicketNotFound) {
		t.Errorf("missing ticket error = %v, want ErrTicketNotFound", err)
	}
}

func TestSetStatus(t *testing.T) {
	db, svc, _ := newTestServices(t)
	ctx := context.Background()
	customer := mustCustomer(t, db, "Asha", "666")
	agent := mustAgent(t, db, "A")
	ticket := mustTicket(t, db, customer.ID, model.TicketStatusOngoing, model.PriorityNormal, &agent.ID, "hi")

	if _, err := svc.SetStatus(ctx, ticket.ID, "ARCHIVED"); !errors.Is(err, errs.ErrInvalidStatus) {
		t.Errorf("bad status error = %v, want ErrInvalidStatus", err)
	}
	if _, err := svc.SetStatus(ctx, 999999, model.TicketStatusClosed); !errors.Is(err, errs.ErrTicketNotFound) {
		t.Errorf("missing ticket error = %v, want ErrTicketNotFound", err)
	}

	updated, err := svc.SetStatus(ctx, ticket.ID, model.TicketStatusClosed)
	if err != nil {
		t.Fatalf("SetStatus() error: %v", err)
	}
	if updated.Status != model.TicketStatusClosed {
		t.Errorf("status = %q, want CLOSED", updated.Status)
	}
}

func TestCreateFromContact(t *testing.T) {
	db, svc, _ := newTestServices(t)
	ctx := context.Background()

	result, err := svc.CreateFromContact(ctx, "Ravi", "999", "need loan urgently")
	if err != nil {
		t.Fatalf("CreateFromContact() error: %v", err)
	}
	if result.Priority != model.PriorityUrgent {
		t.Errorf("priority = %q, want URGENT", result.Priority)
	}

	var ticket model.Ticket
	if err := db.First(&ticket, result.TicketID).Error; err != nil {
		t.Fatalf("reload ticket: %v", err)
	}
	if ticket.Status != model.TicketStatusOpen {
		t.Errorf("status = %q, want OPEN", ticket.Status)
	}
	if ticket.LoanAmount < 1000 || ticket.LoanAmount > 99999 {
		t.Errorf("loan amount %d outside [1000, 99999]", ticket.LoanAmount)
	}
	if ticket.LastMessagePreview != "need loan urgently" {
		t.Errorf("preview = %q, want the inbound message", ticket.LastMessagePreview)
	}

	var count int64
	if err := db.Model(&model.Message{}).Where("ticket_id = ?", ticket.ID).Count(&count).Error; err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if count != 1 {
		t.Errorf("got %d messages, want exactly 1", count)
	}

	t.Run("normal priority", func(t *testing.T) {
		result, err := svc.CreateFromContact(ctx, "Ravi", "999", "when is my next repayment due")
		if err != nil {
			t.Fatalf("CreateFromContact() error: %v", err)
		}
		if result.Priority != model.PriorityNormal {
			t.Errorf("priority = %q, want NORMAL", result.Priority)
		}
	})

	t.Run("customer reused by phone", func(t *testing.T) {
		second, err := svc.CreateFromContact(ctx, "Ravi", "999", "another question")
		if err != nil {
			t.Fatalf("CreateFromContact() error: %v", err)
		}
		if second.CustomerID != result.CustomerID {
			t.Errorf("customer id = %d, want %d (reused by phone)", second.CustomerID, result.CustomerID)
		}
		if second.TicketID == result.TicketID {
			t.Error("each inbound contact must open a new ticket")
		}
	})

	t.Run("validation", func(t *testing.T) {
		if _, err := svc.CreateFromContact(ctx, "", "999", "hi"); !errors.Is(err, errs.ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})
}

func TestDetail(t *testing.T) {
	db, svc, _ := newTestServices(t)
	ctx := context.Background()
	customer := mustCustomer(t, db, "Asha Verma", "777")
	ticket := mustTicket(t, db, customer.ID, model.TicketStatusOpen, model.PriorityNormal, nil, "hi")
	for i, text := range []string{"first", "second", "third"} {
		msg := model.Message{
			TicketID:   ticket.ID,
			SenderType: model.SenderCustomer,
			SenderName: "Asha Verma",
			Text:       text,
			CreatedAt:  time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := db.Create(&msg).Error; err != nil {
			t.Fatalf("create message: %v", err)
		}
	}

	detail, err := svc.Detail(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("Detail() error: %v", err)
	}
	if detail.Ticket.CustomerName != "Asha Verma" || detail.Ticket.CustomerPhone != "777" {
		t.Errorf("customer fields = %q/%q, want Asha Verma/777", detail.Ticket.CustomerName, detail.Ticket.CustomerPhone)
	}
	if len(detail.Messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(detail.Messages))
	}
	for i, want := range []string{"first", "second", "third"} {
		if detail.Messages[i].Text != want {
			t.Errorf("message[%d] = %q, want %q (ascending order)", i, detail.Messages[i].Text, want)
		}
	}

	if _, err := svc.Detail(ctx, 999999); !errors.Is(err, errs.ErrTicketNotFound) {
		t.Errorf("missing ticket error = %v, want ErrTicketNotFound", err)
	}
}
