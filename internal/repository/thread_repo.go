package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/mateusbentes/proof/internal/model"
	"gorm.io/gorm"
)

// ThreadRepository handles database operations for threads and participants
type ThreadRepository struct {
	db *gorm.DB
}

func NewThreadRepository(db *gorm.DB) *ThreadRepository {
	return &ThreadRepository{db: db}
}

// Create inserts a thread together with its participant rows. GORM wraps the
// association insert in a single transaction, so a uniqueness conflict on any
// participant rolls back the whole thread and no partial thread is visible.
func (r *ThreadRepository) Create(thread *model.Thread) error {
	return r.db.Create(thread).Error
}

// FindByID finds a thread by ID with its participants
func (r *ThreadRepository) FindByID(id uuid.UUID) (*model.Thread, error) {
	var thread model.Thread
	err := r.db.
		Preload("Participants.User").
		Where("id = ?", id).
		First(&thread).Error
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// GetUserThreads returns a page of the user's threads, latest activity first
func (r *ThreadRepository) GetUserThreads(userID uuid.UUID, limit, offset int) ([]model.Thread, error) {
	var threads []model.Thread
	err := r.db.
		Joins("JOIN chat_thread_participants ON chat_thread_participants.thread_id = chat_threads.id").
		Where("chat_thread_participants.user_id = ?", userID).
		Preload("Participants.User").
		Order("chat_threads.updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&threads).Error
	return threads, err
}

// CountUserThreads counts all threads the user participates in
func (r *ThreadRepository) CountUserThreads(userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&model.ThreadParticipant{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// GetParticipant returns the membership row for a user in a thread
func (r *ThreadRepository) GetParticipant(threadID, userID uuid.UUID) (*model.ThreadParticipant, error) {
	var p model.ThreadParticipant
	err := r.db.
		Where("thread_id = ? AND user_id = ?", threadID, userID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// IsParticipant checks if a user belongs to a thread
func (r *ThreadRepository) IsParticipant(threadID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&model.ThreadParticipant{}).
		Where("thread_id = ? AND user_id = ?", threadID, userID).
		Count(&count).Error
	return count > 0, err
}

// AddParticipant adds a user to a thread
func (r *ThreadRepository) AddParticipant(p *model.ThreadParticipant) error {
	return r.db.Create(p).Error
}

// RemoveParticipant deletes a membership row and reports whether it existed
func (r *ThreadRepository) RemoveParticipant(threadID, userID uuid.UUID) (bool, error) {
	res := r.db.
		Where("thread_id = ? AND user_id = ?", threadID, userID).
		Delete(&model.ThreadParticipant{})
	return res.RowsAffected > 0, res.Error
}

// CountParticipants counts the remaining participants of a thread
func (r *ThreadRepository) CountParticipants(threadID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&model.ThreadParticipant{}).
		Where("thread_id = ?", threadID).
		Count(&count).Error
	return count, err
}

// GetParticipantIDs returns all participant user IDs for a thread
func (r *ThreadRepository) GetParticipantIDs(threadID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.Model(&model.ThreadParticipant{}).
		Where("thread_id = ?", threadID).
		Pluck("user_id", &ids).Error
	return ids, err
}

// Delete hard-deletes a thread. The FK cascade takes the remaining
// participant and message rows with it.
func (r *ThreadRepository) Delete(threadID uuid.UUID) error {
	return r.db.Where("id = ?", threadID).Delete(&model.Thread{}).Error
}

// TouchUpdatedAt bumps the updated_at timestamp (to sort by latest activity)
func (r *ThreadRepository) TouchUpdatedAt(threadID uuid.UUID) error {
	return r.db.Model(&model.Thread{}).
		Where("id = ?", threadID).
		Update("updated_at", time.Now()).Error
}

// UpdateTitle renames a thread
func (r *ThreadRepository) UpdateTitle(threadID uuid.UUID, title string) error {
	return r.db.Model(&model.Thread{}).
		Where("id = ?", threadID).
		Update("title", title).Error
}

// UpdateLastRead moves a participant's read cursor and reports whether the
// membership row existed
func (r *ThreadRepository) UpdateLastRead(threadID, userID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.Model(&model.ThreadParticipant{}).
		Where("thread_id = ? AND user_id = ?", threadID, userID).
		Update("last_read_at", at)
	return res.RowsAffected > 0, res.Error
}
