package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mateusbentes/proof/internal/model"
	"github.com/mateusbentes/proof/internal/service"
	"github.com/mateusbentes/proof/internal/ws"
)

// ChatHandler handles the thread/message HTTP endpoints
type ChatHandler struct {
	chatService *service.ChatService
	hub         *ws.Hub
}

func NewChatHandler(chatService *service.ChatService, hub *ws.Hub) *ChatHandler {
	return &ChatHandler{chatService: chatService, hub: hub}
}

// GetThreads godoc
// @Summary List the caller's threads
// @Description Threads ordered by latest activity, annotated with unread count, participant previews and last message.
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size (max 100, default 50)"
// @Param offset query int false "Page offset"
// @Success 200 {object} model.ThreadListResponse
// @Router /chat/threads [get]
func (h *ChatHandler) GetThreads(c *gin.Context) {
	var page model.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request"})
		return
	}

	userID := c.MustGet("user_id").(uuid.UUID)
	resp, err := h.chatService.ListThreads(userID, page.Limit, page.Offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CreateThread godoc
// @Summary Create a new dm or group thread
// @Tags Chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.CreateThreadRequest true "Create thread request"
// @Success 201 {object} model.Thread
// @Failure 400 {object} model.ErrorResponse
// @Router /chat/threads [post]
func (h *ChatHandler) CreateThread(c *gin.Context) {
	var req model.CreateThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	userID := c.MustGet("user_id").(uuid.UUID)
	thread, err := h.chatService.CreateThread(userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, thread)
}

// GetMessages godoc
// @Summary Get messages for a thread, oldest first
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Param id path string true "Thread ID"
// @Param limit query int false "Page size (max 100, default 50)"
// @Param offset query int false "Page offset"
// @Success 200 {object} model.MessageListResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /chat/threads/{id}/messages [get]
func (h *ChatHandler) GetMessages(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid thread ID"})
		return
	}

	var page model.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request"})
		return
	}

	userID := c.MustGet("user_id").(uuid.UUID)
	resp, err := h.chatService.ListMessages(userID, threadID, page.Limit, page.Offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SendMessage godoc
// @Summary Send a message to a thread
// @Description Persists the message, then broadcasts it to the thread's room. A repeated client_message_id yields 409 and must be treated as already delivered.
// @Tags Chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Thread ID"
// @Param body body model.SendMessageRequest true "Send message request"
// @Success 201 {object} model.Message
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /chat/threads/{id}/messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid thread ID"})
		return
	}

	var req model.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	userID := c.MustGet("user_id").(uuid.UUID)
	msg, err := h.chatService.PostMessage(userID, threadID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	// The row is committed; fan out to room subscribers without holding
	// up the response
	go h.hub.Broadcast(threadID, &model.WSEvent{
		Type:    model.WSEventMessageNew,
		Payload: msg,
	}, uuid.Nil)

	c.JSON(http.StatusCreated, msg)
}

// MarkAsRead godoc
// @Summary Move the caller's read cursor to now
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Param id path string true "Thread ID"
// @Success 200 {object} model.MarkReadResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /chat/threads/{id}/read [post]
func (h *ChatHandler) MarkAsRead(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid thread ID"})
		return
	}

	userID := c.MustGet("user_id").(uuid.UUID)
	readAt, err := h.chatService.MarkRead(userID, threadID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.MarkReadResponse{LastReadAt: readAt})
}

// UpdateThread godoc
// @Summary Rename a thread (admin only)
// @Tags Chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Thread ID"
// @Param body body model.UpdateThreadRequest true "New title"
// @Success 200 {object} model.Thread
// @Failure 403 {object} model.ErrorResponse
// @Router /chat/threads/{id} [put]
func (h *ChatHandler) UpdateThread(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid thread ID"})
		return
	}

	var req model.UpdateThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	userID := c.MustGet("user_id").(uuid.UUID)
	thread, err := h.chatService.UpdateThread(userID, threadID, req.Title)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, thread)
}

// LeaveThread godoc
// @Summary Leave a thread
// @Description Removes the caller's own participant row; the thread is deleted once it has no participants left.
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Param id path string true "Thread ID"
// @Success 200 {object} model.SuccessResponse
// @Router /chat/threads/{id} [delete]
func (h *ChatHandler) LeaveThread(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid thread ID"})
		return
	}

	userID := c.MustGet("user_id").(uuid.UUID)
	if err := h.chatService.LeaveThread(userID, threadID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Left thread"})
}

// AddParticipant godoc
// @Summary Add a participant to a thread (admin only)
// @Tags Chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Thread ID"
// @Param body body model.AddParticipantRequest true "User to add"
// @Success 201 {object} model.SuccessResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /chat/threads/{id}/participants [post]
func (h *ChatHandler) AddParticipant(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid thread ID"})
		return
	}

	var req model.AddParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	adminID := c.MustGet("user_id").(uuid.UUID)
	if err := h.chatService.AddParticipant(adminID, threadID, req.UserID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.SuccessResponse{Message: "Participant added"})
}

// RemoveParticipant godoc
// @Summary Remove a participant from a thread (admin only)
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Param id path string true "Thread ID"
// @Param userId path string true "User ID to remove"
// @Success 200 {object} model.SuccessResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /chat/threads/{id}/participants/{userId} [delete]
func (h *ChatHandler) RemoveParticipant(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid thread ID"})
		return
	}
	targetID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid user ID"})
		return
	}

	adminID := c.MustGet("user_id").(uuid.UUID)
	if err := h.chatService.RemoveParticipant(adminID, threadID, targetID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Participant removed"})
}
