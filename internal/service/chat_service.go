package service

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mateusbentes/proof/internal/model"
	"github.com/mateusbentes/proof/internal/repository"
	"github.com/mateusbentes/proof/pkg/apperr"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
	previewCount    = 3
)

// Notifier schedules push fan-out for offline participants. Implementations
// must never block and their outcome must never affect the caller.
type Notifier interface {
	NotifyThreadMessage(threadID, senderID uuid.UUID, content string)
	NotifyThreadInvite(threadID, invitedUserID, inviterID uuid.UUID)
}

// ChatService implements the thread/participant/message lifecycle
type ChatService struct {
	threadRepo *repository.ThreadRepository
	msgRepo    *repository.MessageRepository
	userRepo   *repository.UserRepository
	notifier   Notifier
}

func NewChatService(
	threadRepo *repository.ThreadRepository,
	msgRepo *repository.MessageRepository,
	userRepo *repository.UserRepository,
	notifier Notifier,
) *ChatService {
	return &ChatService{
		threadRepo: threadRepo,
		msgRepo:    msgRepo,
		userRepo:   userRepo,
		notifier:   notifier,
	}
}

// CreateThread creates a dm or group thread together with all participant
// rows in one transaction; the creator becomes admin, everyone else member.
func (s *ChatService) CreateThread(creatorID uuid.UUID, req model.CreateThreadRequest) (*model.Thread, error) {
	if !req.ThreadType.IsValid() {
		return nil, apperr.ErrInvalidThreadType
	}

	// Dedupe and drop the creator from the supplied list
	others := make([]uuid.UUID, 0, len(req.ParticipantIDs))
	seen := map[uuid.UUID]bool{creatorID: true}
	for _, id := range req.ParticipantIDs {
		if !seen[id] {
			seen[id] = true
			others = append(others, id)
		}
	}

	switch req.ThreadType {
	case model.ThreadTypeDM:
		// A dm has exactly two participants for its entire lifetime
		if len(req.ParticipantIDs) != 1 || len(others) != 1 {
			return nil, apperr.ErrDMParticipantCount
		}
	case model.ThreadTypeGroup:
		if len(others) < 1 {
			return nil, apperr.ErrNoParticipants
		}
	}

	title := req.Title
	if req.ThreadType == model.ThreadTypeDM {
		title = nil // dm titles are derived client-side from the other participant
	}

	thread := &model.Thread{
		Type:      req.ThreadType,
		Title:     title,
		CreatedBy: creatorID,
	}

	participants := []model.ThreadParticipant{
		{UserID: creatorID, Role: model.RoleAdmin},
	}
	for _, id := range others {
		participants = append(participants, model.ThreadParticipant{
			UserID: id,
			Role:   model.RoleMember,
		})
	}
	thread.Participants = participants

	if err := s.threadRepo.Create(thread); err != nil {
		return nil, apperr.Internal("failed to create thread", err)
	}

	created, err := s.threadRepo.FindByID(thread.ID)
	if err != nil {
		return nil, apperr.Internal("failed to load created thread", err)
	}
	return created, nil
}

// ListThreads returns a page of the caller's threads ordered by latest
// activity, each annotated with unread count, co-participant previews and the
// latest message content.
func (s *ChatService) ListThreads(userID uuid.UUID, limit, offset int) (*model.ThreadListResponse, error) {
	limit, offset = clampPage(limit, offset)

	threads, err := s.threadRepo.GetUserThreads(userID, limit, offset)
	if err != nil {
		return nil, apperr.Internal("failed to list threads", err)
	}
	total, err := s.threadRepo.CountUserThreads(userID)
	if err != nil {
		return nil, apperr.Internal("failed to count threads", err)
	}

	summaries := make([]model.ThreadSummary, 0, len(threads))
	for i := range threads {
		summary := model.ThreadSummary{Thread: threads[i]}

		if unread, err := s.msgRepo.CountUnread(threads[i].ID, userID); err == nil {
			summary.UnreadCount = unread
		} else {
			log.Printf("⚠️  Failed to count unread for thread %s: %v", threads[i].ID, err)
		}
		if last, err := s.msgRepo.GetLastMessage(threads[i].ID); err == nil {
			summary.LastMessage = &last.Content
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("⚠️  Failed to load last message for thread %s: %v", threads[i].ID, err)
		}

		for _, p := range threads[i].Participants {
			if p.UserID == userID || len(summary.PreviewParticipants) >= previewCount {
				continue
			}
			summary.PreviewParticipants = append(summary.PreviewParticipants, model.UserPreview{
				ID:          p.User.ID,
				Username:    p.User.Username,
				DisplayName: p.User.DisplayName,
				Avatar:      p.User.Avatar,
			})
		}

		summaries = append(summaries, summary)
	}

	return &model.ThreadListResponse{
		Threads: summaries,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}, nil
}

// ListMessages returns a page of a thread's messages, oldest first. The page
// is fetched newest-first (so offset 0 is always the latest messages) and
// reversed before returning.
func (s *ChatService) ListMessages(userID, threadID uuid.UUID, limit, offset int) (*model.MessageListResponse, error) {
	limit, offset = clampPage(limit, offset)

	if err := s.requireParticipant(threadID, userID); err != nil {
		return nil, err
	}

	messages, err := s.msgRepo.GetThreadMessages(threadID, limit, offset)
	if err != nil {
		return nil, apperr.Internal("failed to list messages", err)
	}
	total, err := s.msgRepo.CountThreadMessages(threadID)
	if err != nil {
		return nil, apperr.Internal("failed to count messages", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return &model.MessageListResponse{
		Messages: messages,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	}, nil
}

// PostMessage validates and persists a message, bumps the thread's activity
// timestamp and schedules push fan-out. A client_message_id collision returns
// the already-stored row together with ErrDuplicateMessage so callers can
// treat the retry as delivered.
func (s *ChatService) PostMessage(senderID, threadID uuid.UUID, req model.SendMessageRequest) (*model.Message, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, apperr.ErrEmptyContent
	}

	if err := s.requireThreadParticipant(threadID, senderID); err != nil {
		return nil, err
	}

	msg := &model.Message{
		ThreadID:        threadID,
		SenderID:        senderID,
		ClientMessageID: req.ClientMessageID,
		Content:         content,
	}

	created, stored, err := s.msgRepo.InsertIfAbsent(msg)
	if err != nil {
		return nil, apperr.Internal("failed to persist message", err)
	}
	if !created {
		return stored, apperr.ErrDuplicateMessage
	}

	_ = s.threadRepo.TouchUpdatedAt(threadID)

	if full, err := s.msgRepo.FindByID(msg.ID); err == nil {
		msg = full
	}

	if s.notifier != nil {
		s.notifier.NotifyThreadMessage(threadID, senderID, content)
	}

	return msg, nil
}

// MarkRead moves the caller's read cursor to now. Idempotent; a repeat call
// only advances the cursor further.
func (s *ChatService) MarkRead(userID, threadID uuid.UUID) (time.Time, error) {
	now := time.Now()
	ok, err := s.threadRepo.UpdateLastRead(threadID, userID, now)
	if err != nil {
		return time.Time{}, apperr.Internal("failed to mark thread read", err)
	}
	if !ok {
		return time.Time{}, apperr.ErrParticipantNotFound
	}
	return now, nil
}

// UpdateThread renames a thread. Admin only.
func (s *ChatService) UpdateThread(userID, threadID uuid.UUID, title string) (*model.Thread, error) {
	if err := s.requireAdmin(threadID, userID); err != nil {
		return nil, err
	}
	if err := s.threadRepo.UpdateTitle(threadID, title); err != nil {
		return nil, apperr.Internal("failed to update thread", err)
	}
	thread, err := s.threadRepo.FindByID(threadID)
	if err != nil {
		return nil, apperr.Internal("failed to load thread", err)
	}
	return thread, nil
}

// AddParticipant adds a user to a thread. Admin only; adding an existing
// participant is a conflict. A dm keeps its two participants for its entire
// lifetime, so nobody can be added to one.
func (s *ChatService) AddParticipant(adminID, threadID, userID uuid.UUID) error {
	if err := s.requireAdmin(threadID, adminID); err != nil {
		return err
	}

	thread, err := s.threadRepo.FindByID(threadID)
	if err != nil {
		return apperr.Internal("failed to load thread", err)
	}
	if thread.Type == model.ThreadTypeDM {
		return apperr.ErrDMParticipantsFixed
	}

	exists, err := s.threadRepo.IsParticipant(threadID, userID)
	if err != nil {
		return apperr.Internal("failed to check participant", err)
	}
	if exists {
		return apperr.ErrParticipantExists
	}

	p := &model.ThreadParticipant{
		ThreadID: threadID,
		UserID:   userID,
		Role:     model.RoleMember,
	}
	if err := s.threadRepo.AddParticipant(p); err != nil {
		// A concurrent add racing us hits the unique index; report conflict
		if exists, checkErr := s.threadRepo.IsParticipant(threadID, userID); checkErr == nil && exists {
			return apperr.ErrParticipantExists
		}
		return apperr.Internal("failed to add participant", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyThreadInvite(threadID, userID, adminID)
	}
	return nil
}

// RemoveParticipant removes a user from a thread. Admin only; removing the
// last participant deletes the thread.
func (s *ChatService) RemoveParticipant(adminID, threadID, userID uuid.UUID) error {
	if err := s.requireAdmin(threadID, adminID); err != nil {
		return err
	}
	removed, err := s.threadRepo.RemoveParticipant(threadID, userID)
	if err != nil {
		return apperr.Internal("failed to remove participant", err)
	}
	if !removed {
		return apperr.ErrParticipantNotFound
	}
	return s.deleteIfEmpty(threadID)
}

// LeaveThread removes the caller's own participant row; the thread is deleted
// once no participants remain.
func (s *ChatService) LeaveThread(userID, threadID uuid.UUID) error {
	removed, err := s.threadRepo.RemoveParticipant(threadID, userID)
	if err != nil {
		return apperr.Internal("failed to leave thread", err)
	}
	if !removed {
		return apperr.ErrParticipantNotFound
	}
	return s.deleteIfEmpty(threadID)
}

// IsParticipant reports whether a user belongs to a thread (used by the
// realtime gateway's join check)
func (s *ChatService) IsParticipant(threadID, userID uuid.UUID) (bool, error) {
	ok, err := s.threadRepo.IsParticipant(threadID, userID)
	if err != nil {
		return false, apperr.Internal("failed to check participant", err)
	}
	return ok, nil
}

func (s *ChatService) deleteIfEmpty(threadID uuid.UUID) error {
	count, err := s.threadRepo.CountParticipants(threadID)
	if err != nil {
		return apperr.Internal("failed to count participants", err)
	}
	if count == 0 {
		if err := s.threadRepo.Delete(threadID); err != nil {
			return apperr.Internal("failed to delete empty thread", err)
		}
	}
	return nil
}

// requireParticipant rejects callers that do not belong to the thread
func (s *ChatService) requireParticipant(threadID, userID uuid.UUID) error {
	ok, err := s.threadRepo.IsParticipant(threadID, userID)
	if err != nil {
		return apperr.Internal("failed to check participant", err)
	}
	if !ok {
		return apperr.ErrNotParticipant
	}
	return nil
}

// requireThreadParticipant distinguishes a vanished thread (the thread was
// deleted when its last participant left) from a plain authorization failure
func (s *ChatService) requireThreadParticipant(threadID, userID uuid.UUID) error {
	_, err := s.threadRepo.GetParticipant(threadID, userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Internal("failed to check participant", err)
	}
	if _, err := s.threadRepo.FindByID(threadID); errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrThreadNotFound
	}
	return apperr.ErrNotParticipant
}

func (s *ChatService) requireAdmin(threadID, userID uuid.UUID) error {
	p, err := s.threadRepo.GetParticipant(threadID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotParticipant
		}
		return apperr.Internal("failed to check participant", err)
	}
	if p.Role != model.RoleAdmin {
		return apperr.ErrNotAdmin
	}
	return nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
