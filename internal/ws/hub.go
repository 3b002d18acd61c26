package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/mateusbentes/proof/internal/model"
	"github.com/redis/go-redis/v9"
)

const redisChannel = "proof:chat:events"

// Hub is the broadcast-room registry: it maps each thread ID to the set of
// live connections subscribed to it. Subscribe, Unsubscribe and Broadcast are
// its only room operations; cross-instance delivery goes through Redis
// Pub/Sub so every instance can fan out to its local subscribers. With no
// Redis client configured the hub delivers locally only.
type Hub struct {
	// threadID -> set of subscribed connections
	rooms map[uuid.UUID]map[*Client]bool
	mu    sync.RWMutex

	// Channels for registering/unregistering connections
	register   chan *Client
	unregister chan *Client

	// Redis client for Pub/Sub (horizontal scaling); may be nil
	rdb *redis.Client
}

// NewHub creates a new WebSocket Hub
func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rdb:        rdb,
	}
}

// Run starts the Hub's main event loop
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			log.Printf("✅ Client connected: %s (%s)", client.Username, client.UserID)

		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// Register queues a connection for registration with the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Subscribe adds a connection to a thread's room
func (h *Hub) Subscribe(client *Client, threadID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[threadID]; !ok {
		h.rooms[threadID] = make(map[*Client]bool)
	}
	h.rooms[threadID][client] = true
	client.joined[threadID] = true
}

// Unsubscribe removes a connection from a thread's room
func (h *Hub) Unsubscribe(client *Client, threadID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropSubscription(client, threadID)
}

// dropSubscription must be called with the lock held
func (h *Hub) dropSubscription(client *Client, threadID uuid.UUID) {
	delete(client.joined, threadID)
	if room, ok := h.rooms[threadID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, threadID)
		}
	}
}

// Broadcast delivers an event to every subscriber of a thread's room.
// excludeUserID skips that user's connections (uuid.Nil excludes nobody).
// With Redis configured the event is published so all instances deliver it.
func (h *Hub) Broadcast(threadID uuid.UUID, event *model.WSEvent, excludeUserID uuid.UUID) {
	roomEvent := &RoomEvent{
		ThreadID:      threadID,
		ExcludeUserID: excludeUserID,
		Event:         event,
	}

	if h.rdb == nil {
		h.deliverLocal(roomEvent)
		return
	}
	h.publishToRedis(roomEvent)
}

// deliverLocal sends a room event to the room's subscribers on this instance
func (h *Hub) deliverLocal(roomEvent *RoomEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, ok := h.rooms[roomEvent.ThreadID]
	if !ok {
		return
	}

	data, err := json.Marshal(roomEvent.Event)
	if err != nil {
		log.Printf("Error marshaling room event: %v", err)
		return
	}

	for client := range room {
		if roomEvent.ExcludeUserID != uuid.Nil && client.UserID == roomEvent.ExcludeUserID {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Slow consumer: drop the event rather than block the room
			log.Printf("⚠️  Dropping event for slow client %s", client.UserID)
		}
	}
}

// removeClient unregisters a connection and leaves all its rooms,
// notifying the remaining members best-effort
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	joined := make([]uuid.UUID, 0, len(client.joined))
	for threadID := range client.joined {
		joined = append(joined, threadID)
		h.dropSubscription(client, threadID)
	}
	close(client.send)
	h.mu.Unlock()

	for _, threadID := range joined {
		h.Broadcast(threadID, &model.WSEvent{
			Type: model.WSEventUserOffline,
			Payload: model.PresencePayload{
				ThreadID: threadID,
				UserID:   client.UserID,
				Username: client.Username,
			},
		}, client.UserID)
	}
	log.Printf("❌ Client disconnected: %s", client.UserID)
}

// RoomCount returns the number of connections subscribed to a thread on this
// instance
func (h *Hub) RoomCount(threadID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[threadID])
}

// ========== Redis Pub/Sub for Horizontal Scaling ==========

// RoomEvent wraps an event with its target room for Redis Pub/Sub
type RoomEvent struct {
	ThreadID      uuid.UUID      `json:"thread_id"`
	ExcludeUserID uuid.UUID      `json:"exclude_user_id,omitempty"`
	Event         *model.WSEvent `json:"event"`
}

// publishToRedis publishes a room event for cross-instance delivery
func (h *Hub) publishToRedis(roomEvent *RoomEvent) {
	jsonData, err := json.Marshal(roomEvent)
	if err != nil {
		log.Printf("Error marshaling for Redis: %v", err)
		return
	}

	if err := h.rdb.Publish(context.Background(), redisChannel, jsonData).Err(); err != nil {
		log.Printf("Error publishing to Redis: %v", err)
	}
}

// subscribeRedis subscribes to Redis and delivers events to local rooms
func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	log.Println("📡 Redis Pub/Sub subscriber started")

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			var roomEvent RoomEvent
			if err := json.Unmarshal([]byte(msg.Payload), &roomEvent); err != nil {
				log.Printf("Error unmarshaling Redis message: %v", err)
				continue
			}
			h.deliverLocal(&roomEvent)
		}
	}
}
