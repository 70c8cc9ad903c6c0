package model

import "time"

type TicketStatus string

const (
	TicketStatusOpen    TicketStatus = "OPEN"
	TicketStatusOngoing TicketStatus = "ONGOING"
	TicketStatusClosed  TicketStatus = "CLOSED"
)

// ValidStatus reports whether s is one of the known ticket statuses.
func ValidStatus(s TicketStatus) bool {
	return s == TicketStatusOpen || s == TicketStatusOngoing || s == TicketStatusClosed
}

type TicketPriority string

const (
	PriorityUrgent TicketPriority = "URGENT"
	PriorityNormal TicketPriority = "NORMAL"
)

type SenderType string

const (
	SenderCustomer SenderType = "CUSTOMER"
	SenderAgent    SenderType = "AGENT"
	SenderSystem   SenderType = "SYSTEM"
)

// ValidSender reports whether s is one of the known message sender types.
func ValidSender(s SenderType) bool {
	return s == SenderCustomer || s == SenderAgent || s == SenderSystem
}

// Customer is created lazily on first inbound contact, keyed by phone.
type Customer struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Phone     string    `gorm:"type:varchar(32);index;not null" json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// Agent is created lazily on first login or claim, keyed by name.
type Agent struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);index;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Ticket is a single support case. AssignedAgentID is nil exactly while the
// ticket is OPEN; the claim transition sets it together with status ONGOING.
type Ticket struct {
	ID                 uint64         `gorm:"primaryKey" json:"id"`
	CustomerID         uint64         `gorm:"index;not null" json:"customer_id"`
	LoanAmount         int64          `gorm:"not null" json:"loan_amount"`
	Status             TicketStatus   `gorm:"type:varchar(16);index;not null" json:"status"`
	Priority           TicketPriority `gorm:"type:varchar(16);index;not null" json:"priority"`
	AssignedAgentID    *uint64        `gorm:"index" json:"assigned_agent_id,omitempty"`
	LastMessagePreview string         `gorm:"type:text" json:"last_message_preview,omitempty"`
	LastMessageAt      *time.Time     `json:"last_message_at,omitempty"`
	Notes              string         `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is append-only conversation history for a ticket.
type Message struct {
	ID         uint64     `gorm:"primaryKey" json:"id"`
	TicketID   uint64     `gorm:"index;not null" json:"ticket_id"`
	SenderType SenderType `gorm:"type:varchar(16);not null" json:"sender_type"`
	SenderName string     `gorm:"type:varchar(255);not null" json:"sender_name"`
	Text       string     `gorm:"type:text;not null" json:"text"`
	CreatedAt  time.Time  `json:"created_at"`
}

// CannedResponse is static reference data for agent replies.
type CannedResponse struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
