package models

import (
	"time"

	"helpdesk/database"

	"golang.org/x/crypto/bcrypt"
)

type Customer struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"size:100;not null" json:"name"`
	Email          string    `gorm:"size:191;uniqueIndex;not null" json:"email"`
	Number         string    `gorm:"size:20;index" json:"number"`
	Password       string    `gorm:"size:255;not null" json:"-"`
	TelegramChatID *int64    `gorm:"column:telegram_chat_id" json:"telegram_chat_id,omitempty"`
	Status         string    `gorm:"type:enum('Active','Inactive','Suspend');default:'Active'" json:"status"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
}

func (Customer) TableName() string {
	return "customers"
}

func (c *Customer) HashPassword(password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	c.Password = string(hashed)
	return nil
}

func (c *Customer) ValidatePassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(c.Password), []byte(password)) == nil
}

func GetCustomerByEmail(email string) (*Customer, error) {
	var customer Customer
	if err := database.DB.Where("email = ?", email).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}
