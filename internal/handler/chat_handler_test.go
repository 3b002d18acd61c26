package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/mateusbentes/proof/internal/middleware"
	"github.com/mateusbentes/proof/internal/model"
	"github.com/mateusbentes/proof/internal/repository"
	"github.com/mateusbentes/proof/internal/service"
	"github.com/mateusbentes/proof/internal/ws"
	"github.com/mateusbentes/proof/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testAPI struct {
	router     *gin.Engine
	db         *gorm.DB
	jwtManager *auth.JWTManager
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Thread{},
		&model.ThreadParticipant{},
		&model.Message{},
		&model.UserDevice{},
	))
	require.NoError(t, db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_client_dedupe
		ON chat_messages(thread_id, sender_id, client_message_id)
		WHERE client_message_id IS NOT NULL
	`).Error)

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)

	threadRepo := repository.NewThreadRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	userRepo := repository.NewUserRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)

	chatService := service.NewChatService(threadRepo, msgRepo, userRepo, nil)
	deviceService := service.NewDeviceService(deviceRepo)
	hub := ws.NewHub(nil)

	chatHandler := NewChatHandler(chatService, hub)
	deviceHandler := NewDeviceHandler(deviceService)

	router := gin.New()
	api := router.Group("/api/v1")
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(jwtManager))
	{
		protected.GET("/chat/threads", chatHandler.GetThreads)
		protected.POST("/chat/threads", chatHandler.CreateThread)
		protected.PUT("/chat/threads/:id", chatHandler.UpdateThread)
		protected.DELETE("/chat/threads/:id", chatHandler.LeaveThread)
		protected.GET("/chat/threads/:id/messages", chatHandler.GetMessages)
		protected.POST("/chat/threads/:id/messages", chatHandler.SendMessage)
		protected.POST("/chat/threads/:id/read", chatHandler.MarkAsRead)
		protected.POST("/chat/threads/:id/participants", chatHandler.AddParticipant)
		protected.DELETE("/chat/threads/:id/participants/:userId", chatHandler.RemoveParticipant)
		protected.POST("/devices", deviceHandler.RegisterDevice)
		protected.DELETE("/devices/:token", deviceHandler.UnregisterDevice)
	}

	return &testAPI{router: router, db: db, jwtManager: jwtManager}
}

func (a *testAPI) createUser(t *testing.T, username string) *model.User {
	t.Helper()
	user := &model.User{Username: username, DisplayName: "Test " + username}
	require.NoError(t, a.db.Create(user).Error)
	return user
}

func (a *testAPI) request(t *testing.T, user *model.User, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		token, err := a.jwtManager.GenerateToken(user.ID, user.Username)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func TestThreadEndpoints(t *testing.T) {
	api := setupAPI(t)
	alice := api.createUser(t, "alice")
	bob := api.createUser(t, "bob")

	t.Run("requires authentication", func(t *testing.T) {
		w := api.request(t, nil, http.MethodGet, "/api/v1/chat/threads", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	var threadID uuid.UUID
	t.Run("create dm", func(t *testing.T) {
		w := api.request(t, alice, http.MethodPost, "/api/v1/chat/threads", model.CreateThreadRequest{
			ThreadType:     model.ThreadTypeDM,
			ParticipantIDs: []uuid.UUID{bob.ID},
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var thread model.Thread
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &thread))
		assert.Equal(t, model.ThreadTypeDM, thread.Type)
		threadID = thread.ID
	})

	t.Run("invalid thread type is a 400", func(t *testing.T) {
		w := api.request(t, alice, http.MethodPost, "/api/v1/chat/threads", model.CreateThreadRequest{
			ThreadType:     model.ThreadType("broadcast"),
			ParticipantIDs: []uuid.UUID{bob.ID},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("list threads", func(t *testing.T) {
		w := api.request(t, bob, http.MethodGet, "/api/v1/chat/threads", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp model.ThreadListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Threads, 1)
		assert.Equal(t, threadID, resp.Threads[0].ID)
	})

	t.Run("member cannot rename", func(t *testing.T) {
		w := api.request(t, bob, http.MethodPut, fmt.Sprintf("/api/v1/chat/threads/%s", threadID),
			model.UpdateThreadRequest{Title: "bob's thread"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestMessageEndpoints(t *testing.T) {
	api := setupAPI(t)
	alice := api.createUser(t, "alice")
	bob := api.createUser(t, "bob")
	mallory := api.createUser(t, "mallory")

	w := api.request(t, alice, http.MethodPost, "/api/v1/chat/threads", model.CreateThreadRequest{
		ThreadType:     model.ThreadTypeDM,
		ParticipantIDs: []uuid.UUID{bob.ID},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var thread model.Thread
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &thread))

	messagesPath := fmt.Sprintf("/api/v1/chat/threads/%s/messages", thread.ID)

	t.Run("send and list", func(t *testing.T) {
		w := api.request(t, alice, http.MethodPost, messagesPath, model.SendMessageRequest{
			Content: "hello bob",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var msg model.Message
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
		assert.Equal(t, "hello bob", msg.Content)

		w = api.request(t, bob, http.MethodGet, messagesPath, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp model.MessageListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Messages, 1)
		assert.Equal(t, msg.ID, resp.Messages[0].ID)
	})

	t.Run("retry with the same client id is a 409", func(t *testing.T) {
		clientID := "handler-test-1"
		body := model.SendMessageRequest{Content: "exactly once", ClientMessageID: &clientID}

		w := api.request(t, alice, http.MethodPost, messagesPath, body)
		require.Equal(t, http.StatusCreated, w.Code)

		w = api.request(t, alice, http.MethodPost, messagesPath, body)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("missing content is a 400", func(t *testing.T) {
		w := api.request(t, alice, http.MethodPost, messagesPath, map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("non-participant is a 403", func(t *testing.T) {
		w := api.request(t, mallory, http.MethodPost, messagesPath, model.SendMessageRequest{
			Content: "let me in",
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unknown thread is a 404", func(t *testing.T) {
		w := api.request(t, alice, http.MethodPost,
			fmt.Sprintf("/api/v1/chat/threads/%s/messages", uuid.New()),
			model.SendMessageRequest{Content: "into the void"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed thread id is a 400", func(t *testing.T) {
		w := api.request(t, alice, http.MethodPost, "/api/v1/chat/threads/not-a-uuid/messages",
			model.SendMessageRequest{Content: "hi"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("mark read", func(t *testing.T) {
		w := api.request(t, bob, http.MethodPost,
			fmt.Sprintf("/api/v1/chat/threads/%s/read", thread.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp model.MarkReadResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.LastReadAt.IsZero())
	})
}

func TestParticipantEndpoints(t *testing.T) {
	api := setupAPI(t)
	alice := api.createUser(t, "alice")
	bob := api.createUser(t, "bob")
	carol := api.createUser(t, "carol")

	title := "Group"
	w := api.request(t, alice, http.MethodPost, "/api/v1/chat/threads", model.CreateThreadRequest{
		ThreadType:     model.ThreadTypeGroup,
		ParticipantIDs: []uuid.UUID{bob.ID},
		Title:          &title,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var thread model.Thread
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &thread))

	participantsPath := fmt.Sprintf("/api/v1/chat/threads/%s/participants", thread.ID)

	t.Run("admin adds a participant", func(t *testing.T) {
		w := api.request(t, alice, http.MethodPost, participantsPath,
			model.AddParticipantRequest{UserID: carol.ID})
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("adding again is a 409", func(t *testing.T) {
		w := api.request(t, alice, http.MethodPost, participantsPath,
			model.AddParticipantRequest{UserID: carol.ID})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("member cannot remove", func(t *testing.T) {
		w := api.request(t, bob, http.MethodDelete,
			fmt.Sprintf("%s/%s", participantsPath, carol.ID), nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin removes a participant", func(t *testing.T) {
		w := api.request(t, alice, http.MethodDelete,
			fmt.Sprintf("%s/%s", participantsPath, carol.ID), nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("leaving a thread", func(t *testing.T) {
		w := api.request(t, bob, http.MethodDelete,
			fmt.Sprintf("/api/v1/chat/threads/%s", thread.ID), nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = api.request(t, bob, http.MethodGet, "/api/v1/chat/threads", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var resp model.ThreadListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Empty(t, resp.Threads)
	})
}

func TestDeviceEndpoints(t *testing.T) {
	api := setupAPI(t)
	alice := api.createUser(t, "alice")

	t.Run("register", func(t *testing.T) {
		w := api.request(t, alice, http.MethodPost, "/api/v1/devices", model.RegisterDeviceRequest{
			DeviceToken: "fcm-token-1",
			Platform:    model.PlatformAndroid,
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var device model.UserDevice
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &device))
		assert.Equal(t, alice.ID, device.UserID)
	})

	t.Run("invalid platform is a 400", func(t *testing.T) {
		w := api.request(t, alice, http.MethodPost, "/api/v1/devices", model.RegisterDeviceRequest{
			DeviceToken: "fcm-token-2",
			Platform:    model.DevicePlatform("blackberry"),
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unregister is idempotent", func(t *testing.T) {
		w := api.request(t, alice, http.MethodDelete, "/api/v1/devices/fcm-token-1", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = api.request(t, alice, http.MethodDelete, "/api/v1/devices/fcm-token-1", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
