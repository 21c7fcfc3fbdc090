package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog is append-only: rows are written once per state-changing admin
// action and never updated or deleted.
type AuditLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	AdminID   int64          `gorm:"not null;index" json:"admin_id"`
	TicketID  uint           `gorm:"not null;index" json:"ticket_id"`
	Action    string         `gorm:"type:varchar(64);not null" json:"action"`
	Before    datatypes.JSON `gorm:"type:json" json:"before,omitempty"`
	After     datatypes.JSON `gorm:"type:json" json:"after,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
