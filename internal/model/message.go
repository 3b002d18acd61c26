package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message represents a persisted chat message.
//
// ClientMessageID is the client-supplied idempotency token: at most one row
// may exist per (thread_id, sender_id, client_message_id), enforced by a
// partial unique index. EditedAt is reserved for a future editing surface and
// is never written. Messages are only ever soft-deleted.
type Message struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	ThreadID        uuid.UUID      `json:"thread_id" gorm:"type:uuid;index;not null"`
	SenderID        uuid.UUID      `json:"sender_id" gorm:"type:uuid;index;not null"`
	ClientMessageID *string        `json:"client_message_id,omitempty" gorm:"size:100"`
	Content         string         `json:"content" gorm:"type:text;not null"`
	CreatedAt       time.Time      `json:"created_at"`
	EditedAt        *time.Time     `json:"edited_at,omitempty"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Sender User   `json:"sender,omitempty" gorm:"foreignKey:SenderID"`
	Thread Thread `json:"-" gorm:"foreignKey:ThreadID"`
}

func (Message) TableName() string { return "chat_messages" }

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
