package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mateusbentes/proof/internal/model"
	"github.com/mateusbentes/proof/internal/service"
	"github.com/mateusbentes/proof/internal/ws"
	"github.com/mateusbentes/proof/pkg/apperr"
	"github.com/mateusbentes/proof/pkg/auth"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin enforcement happens at the CORS layer
		return true
	},
}

// WSHandler handles WebSocket connections and the realtime chat events
type WSHandler struct {
	hub         *ws.Hub
	chatService *service.ChatService
	jwtManager  *auth.JWTManager
}

func NewWSHandler(hub *ws.Hub, chatService *service.ChatService, jwtManager *auth.JWTManager) *WSHandler {
	return &WSHandler{
		hub:         hub,
		chatService: chatService,
		jwtManager:  jwtManager,
	}
}

// HandleWebSocket authenticates the handshake and upgrades the connection.
// Browsers cannot set headers on WebSocket requests, so the token travels as
// a query parameter and is checked before the upgrade.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Token required"})
		return
	}

	claims, err := h.jwtManager.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn, claims.UserID, claims.Username)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.handleEvent)
}

// handleEvent dispatches a single incoming event from a connection
func (h *WSHandler) handleEvent(client *ws.Client, event model.WSEvent) {
	switch event.Type {
	case model.WSEventThreadJoin:
		h.handleThreadJoin(client, event)
	case model.WSEventThreadLeave:
		h.handleThreadLeave(client, event)
	case model.WSEventMessageSend:
		h.handleMessageSend(client, event)
	case model.WSEventTypingStart, model.WSEventTypingStop:
		h.handleTyping(client, event)
	default:
		client.SendError("Unknown event type: " + event.Type)
	}
}

func (h *WSHandler) handleThreadJoin(client *ws.Client, event model.WSEvent) {
	var payload model.ThreadEventPayload
	if err := decodePayload(event.Payload, &payload); err != nil {
		client.SendError("Invalid payload")
		return
	}

	ok, err := h.chatService.IsParticipant(payload.ThreadID, client.UserID)
	if err != nil {
		client.SendError("Failed to verify thread membership")
		return
	}
	if !ok {
		client.SendError("Not a participant in this thread")
		return
	}

	h.hub.Subscribe(client, payload.ThreadID)
	h.hub.Broadcast(payload.ThreadID, &model.WSEvent{
		Type: model.WSEventUserOnline,
		Payload: model.PresencePayload{
			ThreadID: payload.ThreadID,
			UserID:   client.UserID,
			Username: client.Username,
		},
	}, client.UserID)
}

func (h *WSHandler) handleThreadLeave(client *ws.Client, event model.WSEvent) {
	var payload model.ThreadEventPayload
	if err := decodePayload(event.Payload, &payload); err != nil {
		client.SendError("Invalid payload")
		return
	}

	h.hub.Unsubscribe(client, payload.ThreadID)
	h.hub.Broadcast(payload.ThreadID, &model.WSEvent{
		Type: model.WSEventUserOffline,
		Payload: model.PresencePayload{
			ThreadID: payload.ThreadID,
			UserID:   client.UserID,
			Username: client.Username,
		},
	}, client.UserID)
}

// handleMessageSend persists the message first, then fans out. The sender
// gets an ack keyed by its client message id; a duplicate client message id
// acks with the stored row and broadcasts nothing.
func (h *WSHandler) handleMessageSend(client *ws.Client, event model.WSEvent) {
	var payload model.SendMessagePayload
	if err := decodePayload(event.Payload, &payload); err != nil {
		client.SendError("Invalid payload")
		return
	}

	msg, err := h.chatService.PostMessage(client.UserID, payload.ThreadID, model.SendMessageRequest{
		Content:         payload.Content,
		ClientMessageID: payload.ClientMessageID,
	})
	if err != nil && !errors.Is(err, apperr.ErrDuplicateMessage) {
		var appErr *apperr.AppError
		if errors.As(err, &appErr) {
			client.SendError(appErr.Message)
		} else {
			client.SendError("Failed to send message")
		}
		return
	}

	if err == nil {
		// New row: everyone in the room sees it, the sender included
		h.hub.Broadcast(payload.ThreadID, &model.WSEvent{
			Type:    model.WSEventMessageNew,
			Payload: msg,
		}, uuid.Nil)
	}

	client.Send(&model.WSEvent{
		Type: model.WSEventMessageAck,
		Payload: model.MessageAckPayload{
			ClientMessageID: msg.ClientMessageID,
			MessageID:       msg.ID,
			CreatedAt:       msg.CreatedAt,
		},
	})
}

// handleTyping relays typing indicators to the room; they are never persisted
func (h *WSHandler) handleTyping(client *ws.Client, event model.WSEvent) {
	var payload model.ThreadEventPayload
	if err := decodePayload(event.Payload, &payload); err != nil {
		client.SendError("Invalid payload")
		return
	}

	h.hub.Broadcast(payload.ThreadID, &model.WSEvent{
		Type: event.Type,
		Payload: model.TypingPayload{
			ThreadID: payload.ThreadID,
			UserID:   client.UserID,
			Username: client.Username,
		},
	}, client.UserID)
}

// decodePayload converts the loosely-typed event payload into a concrete DTO
func decodePayload(payload interface{}, dst interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}
