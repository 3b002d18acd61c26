package notification

import (
	"context"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"github.com/mateusbentes/proof/internal/repository"
	"google.golang.org/api/option"
)

const previewLimit = 100

// multicastSender is the slice of the FCM client the dispatcher needs;
// *messaging.Client satisfies it
type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// Dispatcher fans chat events out to offline participants' devices through
// FCM. Work is submitted to a bounded queue drained by a fixed pool of
// workers; a job's outcome never reaches the caller that enqueued it. With no
// Firebase credentials configured every dispatch is a silent no-op.
type Dispatcher struct {
	client     multicastSender
	threadRepo *repository.ThreadRepository
	deviceRepo *repository.DeviceRepository
	userRepo   *repository.UserRepository

	jobs    chan func(ctx context.Context)
	workers int
}

// NewDispatcher creates the push dispatcher. An empty credentials file path
// or a failed Firebase init disables push without blocking server startup.
func NewDispatcher(
	credentialsFile string,
	threadRepo *repository.ThreadRepository,
	deviceRepo *repository.DeviceRepository,
	userRepo *repository.UserRepository,
	workers, queueSize int,
) *Dispatcher {
	d := &Dispatcher{
		threadRepo: threadRepo,
		deviceRepo: deviceRepo,
		userRepo:   userRepo,
		jobs:       make(chan func(ctx context.Context), queueSize),
		workers:    workers,
	}

	if credentialsFile == "" {
		log.Println("⚠️  Firebase credentials not provided, push notifications disabled")
		return d
	}

	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(context.Background(), nil, opt)
	if err != nil {
		log.Printf("⚠️  Failed to initialize Firebase app: %v (push notifications disabled)", err)
		return d
	}

	client, err := app.Messaging(context.Background())
	if err != nil {
		log.Printf("⚠️  Failed to get messaging client: %v (push notifications disabled)", err)
		return d
	}

	log.Println("✅ Firebase FCM initialized")
	d.client = client
	return d
}

// Enabled reports whether a push gateway is configured
func (d *Dispatcher) Enabled() bool {
	return d.client != nil
}

// Run drains the job queue with the configured number of workers until the
// context is cancelled
func (d *Dispatcher) Run(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case job := <-d.jobs:
					job(ctx)
				}
			}
		}()
	}
	<-ctx.Done()
}

// enqueue submits a job; a full queue drops it, since push is best-effort
func (d *Dispatcher) enqueue(job func(ctx context.Context)) {
	select {
	case d.jobs <- job:
	default:
		log.Println("⚠️  Push queue full, dropping notification")
	}
}

// NotifyThreadMessage schedules a push to every participant of the thread
// except the sender. Never blocks and never fails the caller.
func (d *Dispatcher) NotifyThreadMessage(threadID, senderID uuid.UUID, content string) {
	if d.client == nil {
		return
	}
	d.enqueue(func(ctx context.Context) {
		d.notifyThreadMessage(ctx, threadID, senderID, content)
	})
}

func (d *Dispatcher) notifyThreadMessage(ctx context.Context, threadID, senderID uuid.UUID, content string) {
	participantIDs, err := d.threadRepo.GetParticipantIDs(threadID)
	if err != nil {
		log.Printf("⚠️  Push: failed to load participants for thread %s: %v", threadID, err)
		return
	}

	senderName := "Someone"
	if sender, err := d.userRepo.FindByID(senderID); err == nil {
		senderName = sender.Name()
	}

	data := map[string]string{
		"type":      "chat_message",
		"thread_id": threadID.String(),
		"sender_id": senderID.String(),
	}

	for _, userID := range participantIDs {
		if userID == senderID {
			continue
		}
		tokens := d.tokensFor(userID)
		if len(tokens) == 0 {
			continue
		}
		d.sendMulticast(ctx, tokens, &messaging.Notification{
			Title: senderName,
			Body:  preview(content),
		}, data)
	}
}

// NotifyThreadInvite schedules a push telling a user they were added to a
// group chat
func (d *Dispatcher) NotifyThreadInvite(threadID, invitedUserID, inviterID uuid.UUID) {
	if d.client == nil {
		return
	}
	d.enqueue(func(ctx context.Context) {
		inviterName := "Someone"
		if inviter, err := d.userRepo.FindByID(inviterID); err == nil {
			inviterName = inviter.Name()
		}

		tokens := d.tokensFor(invitedUserID)
		if len(tokens) == 0 {
			return
		}
		d.sendMulticast(ctx, tokens, &messaging.Notification{
			Title: "New Chat Invitation",
			Body:  inviterName + " added you to a group chat",
		}, map[string]string{
			"type":      "chat_invite",
			"thread_id": threadID.String(),
		})
	})
}

func (d *Dispatcher) tokensFor(userID uuid.UUID) []string {
	devices, err := d.deviceRepo.GetUserDevices(userID)
	if err != nil {
		log.Printf("⚠️  Push: failed to load devices for user %s: %v", userID, err)
		return nil
	}
	tokens := make([]string, 0, len(devices))
	for _, dev := range devices {
		tokens = append(tokens, dev.DeviceToken)
	}
	return tokens
}

// sendMulticast delivers one notification to a set of tokens and prunes the
// ones the gateway reports as permanently invalid. Transient failures are
// only logged; the next dispatch retries those tokens implicitly.
func (d *Dispatcher) sendMulticast(ctx context.Context, tokens []string, notification *messaging.Notification, data map[string]string) {
	message := &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: notification,
		Data:         data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}

	br, err := d.client.SendEachForMulticast(ctx, message)
	if err != nil {
		log.Printf("⚠️  Push: multicast send failed: %v", err)
		return
	}

	if br.FailureCount > 0 {
		for idx, resp := range br.Responses {
			if resp.Success {
				continue
			}
			if messaging.IsRegistrationTokenNotRegistered(resp.Error) {
				if err := d.deviceRepo.DeleteByToken(tokens[idx]); err != nil {
					log.Printf("⚠️  Push: failed to prune token: %v", err)
				}
			} else {
				log.Printf("⚠️  Push: delivery failed for token %s: %v", tokens[idx], resp.Error)
			}
		}
	}
}

// preview truncates message content for the notification body
func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLimit {
		return content
	}
	return string(runes[:previewLimit])
}
