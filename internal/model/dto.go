package model

import (
	"time"

	"github.com/google/uuid"
)

// ========== Thread DTOs ==========

type CreateThreadRequest struct {
	ThreadType     ThreadType  `json:"thread_type" binding:"required"`
	ParticipantIDs []uuid.UUID `json:"participant_ids" binding:"required"`
	Title          *string     `json:"title"`
}

type UpdateThreadRequest struct {
	Title string `json:"title" binding:"required,max=200"`
}

type AddParticipantRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// UserPreview is the trimmed user shape embedded in thread listings
type UserPreview struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	Avatar      string    `json:"avatar,omitempty"`
}

// ThreadSummary is one entry of the thread list: the thread annotated with
// the caller's unread count, up to three co-participant previews and the
// content of the latest non-deleted message.
type ThreadSummary struct {
	Thread
	UnreadCount         int64         `json:"unread_count"`
	PreviewParticipants []UserPreview `json:"preview_participants"`
	LastMessage         *string       `json:"last_message"`
}

type ThreadListResponse struct {
	Threads []ThreadSummary `json:"threads"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// ========== Message DTOs ==========

type SendMessageRequest struct {
	Content         string  `json:"content" binding:"required"`
	ClientMessageID *string `json:"client_message_id"`
}

type MessageListResponse struct {
	Messages []Message `json:"messages"`
	Total    int64     `json:"total"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}

type MarkReadResponse struct {
	LastReadAt time.Time `json:"last_read_at"`
}

type PageRequest struct {
	Limit  int `form:"limit,default=50"`
	Offset int `form:"offset,default=0"`
}

// ========== Device DTOs ==========

type RegisterDeviceRequest struct {
	DeviceToken string         `json:"device_token" binding:"required"`
	Platform    DevicePlatform `json:"platform" binding:"required"`
	DeviceName  *string        `json:"device_name"`
}

// ========== WebSocket Event DTOs ==========

type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WebSocket event types (wire names shared with the web client)
const (
	WSEventThreadJoin  = "thread:join"
	WSEventThreadLeave = "thread:leave"
	WSEventMessageSend = "message:send"
	WSEventMessageNew  = "message:new"
	WSEventMessageAck  = "message:ack"
	WSEventTypingStart = "typing:start"
	WSEventTypingStop  = "typing:stop"
	WSEventUserOnline  = "user:online"
	WSEventUserOffline = "user:offline"
	WSEventError       = "error"
)

type ThreadEventPayload struct {
	ThreadID uuid.UUID `json:"thread_id"`
}

type SendMessagePayload struct {
	ThreadID        uuid.UUID `json:"thread_id"`
	Content         string    `json:"content"`
	ClientMessageID *string   `json:"client_message_id"`
}

// MessageAckPayload reconciles the sender's speculative local copy with the
// authoritative id and timestamp, keyed by the client message id.
type MessageAckPayload struct {
	ClientMessageID *string   `json:"client_message_id"`
	MessageID       uuid.UUID `json:"message_id"`
	CreatedAt       time.Time `json:"created_at"`
}

type PresencePayload struct {
	ThreadID uuid.UUID `json:"thread_id"`
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
}

type TypingPayload struct {
	ThreadID uuid.UUID `json:"thread_id"`
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// ========== Common ==========

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
