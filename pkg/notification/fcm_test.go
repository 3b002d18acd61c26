package notification

import (
	"context"
	"strings"
	"sync"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/glebarez/sqlite"
	"github.com/mateusbentes/proof/internal/model"
	"github.com/mateusbentes/proof/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []*messaging.MulticastMessage
	resp *messaging.BatchResponse
}

func (f *fakeSender) SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, message)
	if f.resp != nil {
		return f.resp, nil
	}
	return &messaging.BatchResponse{
		SuccessCount: len(message.Tokens),
		Responses:    make([]*messaging.SendResponse, len(message.Tokens)),
	}, nil
}

func (f *fakeSender) messages() []*messaging.MulticastMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent
}

func setupDispatcher(t *testing.T) (*Dispatcher, *fakeSender, *gorm.DB) {
	t.Helper()

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

	d := NewDispatcher("",
		repository.NewThreadRepository(db),
		repository.NewDeviceRepository(db),
		repository.NewUserRepository(db),
		2, 8,
	)
	sender := &fakeSender{}
	d.client = sender
	return d, sender, db
}

func seedThread(t *testing.T, db *gorm.DB) (sender, recipient *model.User, thread *model.Thread) {
	t.Helper()

	sender = &model.User{Username: "alice", DisplayName: "Alice A"}
	recipient = &model.User{Username: "bob"}
	require.NoError(t, db.Create(sender).Error)
	require.NoError(t, db.Create(recipient).Error)

	thread = &model.Thread{Type: model.ThreadTypeDM, CreatedBy: sender.ID}
	require.NoError(t, db.Create(thread).Error)
	require.NoError(t, db.Create(&model.ThreadParticipant{
		ThreadID: thread.ID, UserID: sender.ID, Role: model.RoleAdmin,
	}).Error)
	require.NoError(t, db.Create(&model.ThreadParticipant{
		ThreadID: thread.ID, UserID: recipient.ID, Role: model.RoleMember,
	}).Error)

	require.NoError(t, db.Create(&model.UserDevice{
		UserID: recipient.ID, DeviceToken: "bob-token", Platform: model.PlatformAndroid,
	}).Error)
	return sender, recipient, thread
}

func TestNotifyThreadMessage(t *testing.T) {
	d, sender, db := setupDispatcher(t)
	alice, _, thread := seedThread(t, db)

	// Device of the sender must never be targeted
	require.NoError(t, db.Create(&model.UserDevice{
		UserID: alice.ID, DeviceToken: "alice-token", Platform: model.PlatformIOS,
	}).Error)

	d.notifyThreadMessage(context.Background(), thread.ID, alice.ID, "hello there")

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"bob-token"}, msgs[0].Tokens)
	assert.Equal(t, "Alice A", msgs[0].Notification.Title)
	assert.Equal(t, "hello there", msgs[0].Notification.Body)
	assert.Equal(t, "chat_message", msgs[0].Data["type"])
	assert.Equal(t, thread.ID.String(), msgs[0].Data["thread_id"])
	assert.Equal(t, alice.ID.String(), msgs[0].Data["sender_id"])
}

func TestNotifyThreadMessageTruncatesPreview(t *testing.T) {
	d, sender, db := setupDispatcher(t)
	alice, _, thread := seedThread(t, db)

	long := strings.Repeat("é", 150)
	d.notifyThreadMessage(context.Background(), thread.ID, alice.ID, long)

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, 100, len([]rune(msgs[0].Notification.Body)))
}

func TestNotifyThreadInvite(t *testing.T) {
	d, sender, db := setupDispatcher(t)
	alice, bob, thread := seedThread(t, db)

	d.NotifyThreadInvite(thread.ID, bob.ID, alice.ID)

	// Drain and run the queued job synchronously
	job := <-d.jobs
	job(context.Background())

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "New Chat Invitation", msgs[0].Notification.Title)
	assert.Equal(t, "Alice A added you to a group chat", msgs[0].Notification.Body)
	assert.Equal(t, "chat_invite", msgs[0].Data["type"])
}

func TestDispatcherDisabledIsNoOp(t *testing.T) {
	d, _, db := setupDispatcher(t)
	alice, bob, thread := seedThread(t, db)

	d.client = nil
	assert.False(t, d.Enabled())

	d.NotifyThreadMessage(thread.ID, alice.ID, "nobody hears this")
	d.NotifyThreadInvite(thread.ID, bob.ID, alice.ID)
	assert.Empty(t, d.jobs)
}

func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	d, _, db := setupDispatcher(t)
	alice, _, thread := seedThread(t, db)

	// No workers running; fill the queue past its capacity
	for i := 0; i < 20; i++ {
		d.NotifyThreadMessage(thread.ID, alice.ID, "burst")
	}
	assert.Equal(t, cap(d.jobs), len(d.jobs))
}

func TestSendMulticastToleratesFailures(t *testing.T) {
	d, sender, db := setupDispatcher(t)
	alice, _, thread := seedThread(t, db)

	sender.resp = &messaging.BatchResponse{
		SuccessCount: 0,
		FailureCount: 1,
		Responses: []*messaging.SendResponse{
			{Success: false, Error: context.DeadlineExceeded},
		},
	}

	// A transient delivery failure must not prune the device
	d.notifyThreadMessage(context.Background(), thread.ID, alice.ID, "flaky network")

	var count int64
	db.Model(&model.UserDevice{}).Where("device_token = ?", "bob-token").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short"))
	assert.Equal(t, strings.Repeat("a", 100), preview(strings.Repeat("a", 250)))
	assert.Equal(t, "", preview(""))
}
