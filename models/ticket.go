package models

import "time"

// Ticket status values. RECEIVED is only ever set by a PAID reconciliation;
// the later stages are advanced by agents, never by payment events.
const (
	TicketDraft        = "DRAFT"
	TicketReceived     = "RECEIVED"
	TicketInReview     = "IN_REVIEW"
	TicketNeedMoreInfo = "NEED_MORE_INFO"
	TicketInProgress   = "IN_PROGRESS"
	TicketResolved     = "RESOLVED"
	TicketClosed       = "CLOSED"
	TicketRejected     = "REJECTED"
)

type Ticket struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	TicketNo      string    `gorm:"type:varchar(32);not null;uniqueIndex" json:"ticket_no"`
	CustomerID    uint      `gorm:"not null;index" json:"customer_id"`
	Customer      *Customer `gorm:"foreignKey:CustomerID" json:"-"`
	Subject       string    `gorm:"type:varchar(191);not null" json:"subject"`
	Description   string    `gorm:"type:text" json:"description"`
	Status        string    `gorm:"type:enum('DRAFT','RECEIVED','IN_REVIEW','NEED_MORE_INFO','IN_PROGRESS','RESOLVED','CLOSED','REJECTED');default:'DRAFT'" json:"status"`
	PaymentStatus string    `gorm:"type:varchar(16);not null;default:'PENDING'" json:"payment_status"`
	FolderID      *string   `gorm:"type:varchar(255)" json:"folder_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Ticket) TableName() string {
	return "tickets"
}
