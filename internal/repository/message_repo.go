package repository

import (
	"github.com/google/uuid"
	"github.com/mateusbentes/proof/internal/model"
	"gorm.io/gorm"
)

// MessageRepository handles database operations for messages
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// InsertIfAbsent persists a message unless a row with the same
// (thread_id, sender_id, client_message_id) already exists. The partial
// unique index is the only concurrency-control primitive here: the insert is
// attempted first, and on failure the existing row is re-read by key. Returns
// (true, inserted) on success and (false, existing) when the idempotency key
// collided.
func (r *MessageRepository) InsertIfAbsent(msg *model.Message) (bool, *model.Message, error) {
	if err := r.db.Create(msg).Error; err != nil {
		if msg.ClientMessageID != nil {
			var existing model.Message
			lookupErr := r.db.
				Preload("Sender").
				Where("thread_id = ? AND sender_id = ? AND client_message_id = ?",
					msg.ThreadID, msg.SenderID, *msg.ClientMessageID).
				First(&existing).Error
			if lookupErr == nil {
				return false, &existing, nil
			}
		}
		return false, nil, err
	}
	return true, msg, nil
}

// FindByID finds a message by ID with its sender
func (r *MessageRepository) FindByID(id uuid.UUID) (*model.Message, error) {
	var msg model.Message
	err := r.db.
		Preload("Sender").
		Where("id = ?", id).
		First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetThreadMessages returns a page of messages, newest first. Soft-deleted
// rows are excluded by the default scope.
func (r *MessageRepository) GetThreadMessages(threadID uuid.UUID, limit, offset int) ([]model.Message, error) {
	messages := []model.Message{}
	err := r.db.
		Preload("Sender").
		Where("thread_id = ?", threadID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	return messages, err
}

// CountThreadMessages counts the non-deleted messages of a thread
func (r *MessageRepository) CountThreadMessages(threadID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&model.Message{}).
		Where("thread_id = ?", threadID).
		Count(&count).Error
	return count, err
}

// GetLastMessage returns the most recent non-deleted message in a thread
func (r *MessageRepository) GetLastMessage(threadID uuid.UUID) (*model.Message, error) {
	var msg model.Message
	err := r.db.
		Where("thread_id = ?", threadID).
		Order("created_at DESC").
		First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// CountUnread counts the thread messages created after the participant's
// read cursor, excluding soft-deleted rows
func (r *MessageRepository) CountUnread(threadID, userID uuid.UUID) (int64, error) {
	var count int64

	subQuery := r.db.Table("chat_thread_participants").
		Select("COALESCE(last_read_at, '0001-01-01')").
		Where("thread_id = ? AND user_id = ?", threadID, userID)

	err := r.db.Model(&model.Message{}).
		Where("thread_id = ?", threadID).
		Where("created_at > (?)", subQuery).
		Count(&count).Error
	return count, err
}
