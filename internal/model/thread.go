package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ThreadType distinguishes direct conversations from group chats
type ThreadType string

const (
	ThreadTypeDM    ThreadType = "dm"
	ThreadTypeGroup ThreadType = "group"
)

func (t ThreadType) IsValid() bool {
	return t == ThreadTypeDM || t == ThreadTypeGroup
}

// Thread is a conversation between two (dm) or more (group) participants.
// UpdatedAt is bumped on every new message so threads list by latest activity.
type Thread struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Type      ThreadType `json:"thread_type" gorm:"column:thread_type;size:20;not null"`
	Title     *string    `json:"title,omitempty" gorm:"size:200"`
	CreatedBy uuid.UUID  `json:"created_by" gorm:"type:uuid;not null"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Relations
	Participants []ThreadParticipant `json:"participants,omitempty" gorm:"foreignKey:ThreadID"`
}

func (Thread) TableName() string { return "chat_threads" }

func (t *Thread) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// ParticipantRole controls who can rename a thread and manage its members
type ParticipantRole string

const (
	RoleAdmin  ParticipantRole = "admin"
	RoleMember ParticipantRole = "member"
)

// ThreadParticipant is a user's membership in a thread. LastReadAt is the
// read cursor: messages created after it count as unread.
type ThreadParticipant struct {
	ID         uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	ThreadID   uuid.UUID       `json:"thread_id" gorm:"type:uuid;uniqueIndex:idx_thread_user;not null"`
	UserID     uuid.UUID       `json:"user_id" gorm:"type:uuid;uniqueIndex:idx_thread_user;not null"`
	Role       ParticipantRole `json:"role" gorm:"size:20;not null;default:member"`
	LastReadAt *time.Time      `json:"last_read_at,omitempty"`
	JoinedAt   time.Time       `json:"joined_at" gorm:"autoCreateTime"`

	// Relations
	User   User   `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Thread Thread `json:"-" gorm:"foreignKey:ThreadID"`
}

func (ThreadParticipant) TableName() string { return "chat_thread_participants" }

func (p *ThreadParticipant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
