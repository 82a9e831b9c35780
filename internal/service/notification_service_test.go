package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"tarik-chat-be/internal/entity"
	"tarik-chat-be/internal/pkg/logger"
	"tarik-chat-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDelivery struct {
	mu   sync.Mutex
	sent []entity.Notification
}

func (d *recordingDelivery) Send(_ string, n entity.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, n)
}

func (d *recordingDelivery) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func newPubSub(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	ps := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ps.Close() })
	return ps
}

func TestNotificationService_ForwardsToHubAndBus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	delivery := &recordingDelivery{}
	pub := &recordingPublisher{}
	svc := NewNotificationService(newPubSub(t), delivery, pub, logger.NewNopLogger())
	require.NoError(t, svc.Start(ctx))

	svc.Notify(ctx, entity.Notification{UserId: "u1", Level: entity.NotificationError, Title: "Sync Failed"})
	svc.Notify(ctx, entity.Notification{Level: entity.NotificationError, Title: "Authentication Required"})

	require.Eventually(t, func() bool { return delivery.count() == 1 && pub.count() == 1 }, time.Second, 5*time.Millisecond)

	delivery.mu.Lock()
	got := delivery.sent[0]
	delivery.mu.Unlock()
	assert.Equal(t, "Sync Failed", got.Title)
	assert.False(t, got.CreatedAt.IsZero())

	pub.mu.Lock()
	assert.Equal(t, events.TypeNotification, pub.events[0].EventType())
	pub.mu.Unlock()
}
