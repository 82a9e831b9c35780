package service

import (
	"context"
	"encoding/json"
	"time"

	"tarik-chat-be/internal/entity"
	"tarik-chat-be/internal/pkg/logger"
	"tarik-chat-be/pkg/chat/store"
	"tarik-chat-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const NotificationTopic = "chat.notifications"

// NotificationDelivery pushes toasts to the user's live connections.
// Implemented by the WebSocket hub.
type NotificationDelivery interface {
	Send(userID string, notification entity.Notification)
}

// NotificationService decouples toast producers (stores, turns, auth) from
// delivery: Notify only enqueues on the in-process bus, Start forwards.
type NotificationService struct {
	pubSub    *gochannel.GoChannel
	delivery  NotificationDelivery
	publisher events.Publisher
	logger    logger.ILogger
}

func NewNotificationService(pubSub *gochannel.GoChannel, delivery NotificationDelivery, publisher events.Publisher, log logger.ILogger) *NotificationService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &NotificationService{
		pubSub:    pubSub,
		delivery:  delivery,
		publisher: publisher,
		logger:    log,
	}
}

var _ store.Notifier = (*NotificationService)(nil)

func (s *NotificationService) Notify(_ context.Context, n entity.Notification) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	payload, err := json.Marshal(n)
	if err != nil {
		s.logger.Error("NotificationService", "Failed to encode notification", map[string]interface{}{"error": err})
		return
	}
	if err := s.pubSub.Publish(NotificationTopic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		s.logger.Error("NotificationService", "Failed to enqueue notification", map[string]interface{}{"error": err})
	}
}

// Start consumes the notification topic until ctx is done.
func (s *NotificationService) Start(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, NotificationTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.process(ctx, msg)
		}
	}()
	s.logger.Info("NotificationService", "Notification service started", map[string]interface{}{"topic": NotificationTopic})
	return nil
}

func (s *NotificationService) process(ctx context.Context, msg *message.Message) {
	// Malformed payloads are acked so they are not redelivered forever.
	defer msg.Ack()

	var n entity.Notification
	if err := json.Unmarshal(msg.Payload, &n); err != nil {
		s.logger.Warn("NotificationService", "Dropping malformed notification", map[string]interface{}{"error": err.Error()})
		return
	}

	if n.UserId == "" {
		// Anonymous toasts have no socket to reach.
		s.logger.Debug("NotificationService", "Anonymous notification", map[string]interface{}{"title": n.Title})
		return
	}

	if s.delivery != nil {
		s.delivery.Send(n.UserId, n)
	}
	if err := s.publisher.Publish(ctx, events.Notification(n.UserId, string(n.Level), n.Title, n.Description)); err != nil {
		s.logger.Warn("NotificationService", "Failed to publish notification event", map[string]interface{}{"error": err.Error()})
	}
}
