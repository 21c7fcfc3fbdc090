package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Payment status values. A payment is created PENDING and only ever
// mutated through the reconciliation transaction or an explicit admin edit.
const (
	PaymentPending  = "PENDING"
	PaymentPaid     = "PAID"
	PaymentFailed   = "FAILED"
	PaymentExpired  = "EXPIRED"
	PaymentRefunded = "REFUNDED"
	PaymentRejected = "REJECTED"
)

const ProviderQRIS = "QRIS"

type Payment struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	TicketID      uint           `gorm:"not null;index" json:"ticket_id"`
	Ticket        *Ticket        `gorm:"foreignKey:TicketID" json:"-"`
	OrderID       string         `gorm:"type:varchar(191);not null;uniqueIndex" json:"order_id"`
	Provider      string         `gorm:"type:varchar(16);not null;default:'QRIS'" json:"provider"`
	Amount        int64          `gorm:"not null" json:"amount"`
	Currency      string         `gorm:"type:varchar(8);not null;default:'IDR'" json:"currency"`
	UniqueCode    *string        `gorm:"type:varchar(8);index" json:"unique_code,omitempty"`
	Status        string         `gorm:"type:enum('PENDING','PAID','FAILED','EXPIRED','REFUNDED','REJECTED');default:'PENDING'" json:"status"`
	RawPayload    datatypes.JSON `gorm:"type:json" json:"raw_payload,omitempty"`
	StatusHistory datatypes.JSON `gorm:"type:json" json:"status_history,omitempty"`
	ExpiredAt     *time.Time     `json:"expired_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

// StatusTransition is one entry of a payment's append-only status history.
type StatusTransition struct {
	From  string    `json:"from"`
	To    string    `json:"to"`
	Actor string    `json:"actor"`
	Notes string    `json:"notes,omitempty"`
	At    time.Time `json:"at"`
}

// Transitions decodes the stored history. A missing or unreadable column
// yields an empty history rather than an error; the column is advisory.
func (p *Payment) Transitions() []StatusTransition {
	if len(p.StatusHistory) == 0 {
		return nil
	}
	var out []StatusTransition
	if err := json.Unmarshal(p.StatusHistory, &out); err != nil {
		return nil
	}
	return out
}

// AppendTransition re-encodes the history with one more entry appended.
// Entries are never rewritten or removed.
func AppendTransition(history datatypes.JSON, entry StatusTransition) (datatypes.JSON, error) {
	var entries []StatusTransition
	if len(history) > 0 {
		// Tolerate a corrupt prior value: start a fresh log instead of failing
		// the reconciliation over an advisory column.
		_ = json.Unmarshal(history, &entries)
	}
	entries = append(entries, entry)
	b, err := json.Marshal(entries)
	if err != nil {
		return history, err
	}
	return datatypes.JSON(b), nil
}
