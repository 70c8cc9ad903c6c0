package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/loanserve/support-desk/internal/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB opens a per-test in-memory sqlite database with the schema
// auto-migrated. A single connection keeps the shared-cache database alive
// and serialises concurrent writers.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	err = db.AutoMigrate(
		&model.Customer{},
		&model.Agent{},
		&model.Ticket{},
		&model.Message{},
		&model.CannedResponse{},
	)
	if err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func newTestServices(t *testing.T) (*gorm.DB, *TicketService, *AgentService) {
	t.Helper()
	db := openTestDB(t)
	agents := NewAgentService(db)
	return db, NewTicketService(db, agents, nil), agents
}

func mustCustomer(t *testing.T, db *gorm.DB, name, phone string) model.Customer {
	t.Helper()
	c := model.Customer{Name: name, Phone: phone}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return c
}

func mustTicket(t *testing.T, db *gorm.DB, customerID uint64, status model.TicketStatus, priority model.TicketPriority, assigned *uint64, preview string) model.Ticket {
	t.Helper()
	now := time.Now()
	tk := model.Ticket{
		CustomerID:         customerID,
		LoanAmount:         5000,
		Status:             status,
		Priority:           priority,
		AssignedAgentID:    assigned,
		LastMessagePreview: preview,
		LastMessageAt:      &now,
	}
	if err := db.Create(&tk).Error; err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return tk
}

func mustAgent(t *testing.T, db *gorm.DB, name string) model.Agent {
	t.Helper()
	a := model.Agent{Name: name}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("create agent: %v", err)
	}
	return a
}
