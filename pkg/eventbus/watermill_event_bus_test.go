package eventbus_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/edulab/orchestrator/pkg/channels/gochannel"
	"github.com/edulab/orchestrator/pkg/eventbus"
	"github.com/edulab/orchestrator/pkg/events"
	"github.com/edulab/orchestrator/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBus(t *testing.T) *eventbus.WatermillEventBus {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub, logger)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	t.Parallel()

	bus := newBus(t)
	received := make(chan *events.NotificationRequested, 1)

	require.NoError(t, bus.Handle(events.NotificationRequestedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.NotificationRequested)

		return nil
	}))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	sent := events.NewNotificationRequested(&models.Notification{
		ID:       "n-1",
		TenantID: "tenant-a",
		UserID:   "teacher-1",
		Type:     models.NotificationThemeValidated,
		Data:     map[string]any{"catalog_entry_id": "entry-1"},
	})
	require.NoError(t, bus.Publish(ctx, "tenant-a", sent))

	select {
	case event := <-received:
		assert.Equal(t, sent.ID, event.ID)
		assert.Equal(t, "teacher-1", event.Notification.UserID)
		assert.Equal(t, "entry-1", event.Notification.Data["catalog_entry_id"])
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBus_RedeliversOnHandlerError(t *testing.T) {
	t.Parallel()

	bus := newBus(t)

	var attempts atomic.Int32

	done := make(chan struct{})

	require.NoError(t, bus.Handle(events.NotificationRequestedEvent, func(context.Context, any) error {
		if attempts.Add(1) == 1 {
			return errors.New("storage unavailable")
		}

		close(done)

		return nil
	}))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))
	require.NoError(t, bus.Publish(ctx, "tenant-a", events.NewNotificationRequested(&models.Notification{TenantID: "tenant-a"})))

	select {
	case <-done:
		assert.Equal(t, int32(2), attempts.Load())
	case <-time.After(5 * time.Second):
		t.Fatal("event was not redelivered")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	t.Parallel()

	bus := newBus(t)
	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}
