package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the platform account referenced by participants, messages and
// devices. Accounts are created and authenticated by the identity service;
// the chat service only reads them (for previews and push titles).
type User struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Username    string    `json:"username" gorm:"uniqueIndex;size:100;not null"`
	DisplayName string    `json:"display_name" gorm:"size:100"`
	Avatar      string    `json:"avatar,omitempty" gorm:"size:500"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Name returns the best human-readable name for the user
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
