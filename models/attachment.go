package models

import "time"

// Attachment is a customer file staged at ticket creation. ObjectKey points
// at local staging storage until the post-payment upload moves it into the
// ticket's provisioned folder and fills RemoteURL.
type Attachment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TicketID  uint      `gorm:"not null;index" json:"ticket_id"`
	FileName  string    `gorm:"type:varchar(255);not null" json:"file_name"`
	ObjectKey string    `gorm:"type:varchar(255);not null" json:"object_key"`
	Size      int64     `json:"size"`
	Uploaded  bool      `gorm:"default:false" json:"uploaded"`
	RemoteURL *string   `gorm:"type:text" json:"remote_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Attachment) TableName() string {
	return "attachments"
}
