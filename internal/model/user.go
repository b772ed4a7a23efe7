package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User stores the WhatsApp identity of a chat participant.
type User struct {
	ID          string `gorm:"primaryKey"`
	Username    string
	PhoneNumber string `gorm:"uniqueIndex"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Tasks       []Task `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
