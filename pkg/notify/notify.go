// Package notify delivers workflow notifications, either through the event bus or straight
// into storage.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edulab/orchestrator/pkg/eventbus"
	"github.com/edulab/orchestrator/pkg/events"
	"github.com/edulab/orchestrator/pkg/log"
	"github.com/edulab/orchestrator/pkg/models"
	"github.com/edulab/orchestrator/pkg/persistence"
)

var ErrUnexpectedEvent = errors.New("unexpected event payload")

// BusNotifier publishes notifications on the event bus, keyed by tenant.
type BusNotifier struct {
	publisher eventbus.EventPublisher
}

func NewBusNotifier(publisher eventbus.EventPublisher) *BusNotifier {
	return &BusNotifier{publisher: publisher}
}

func (n *BusNotifier) Notify(ctx context.Context, notification *models.Notification) error {
	if err := n.publisher.Publish(ctx, notification.TenantID, events.NewNotificationRequested(notification)); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	return nil
}

// StoreNotifier saves notifications synchronously.
type StoreNotifier struct {
	repository persistence.NotificationRepository
}

func NewStoreNotifier(repository persistence.NotificationRepository) *StoreNotifier {
	return &StoreNotifier{repository: repository}
}

func (n *StoreNotifier) Notify(ctx context.Context, notification *models.Notification) error {
	if err := n.repository.Save(ctx, notification); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	return nil
}

// RegisterConsumer stores every NotificationRequested event. Saving is idempotent on the
// notification id, so redelivered events are harmless.
func RegisterConsumer(subscriber eventbus.EventSubscriber, repository persistence.NotificationRepository, logger *slog.Logger) error {
	logger = logger.With("module", "notification_consumer")

	return subscriber.Handle(events.NotificationRequestedEvent, func(ctx context.Context, event any) error {
		requested, ok := event.(*events.NotificationRequested)
		if !ok {
			return fmt.Errorf("%w: %T", ErrUnexpectedEvent, event)
		}

		if err := repository.Save(ctx, &requested.Notification); err != nil {
			return fmt.Errorf("failed to store notification %s: %w", requested.Notification.ID, err)
		}

		log.FromContext(ctx, logger).DebugContext(ctx, "Notification stored",
			"notification_id", requested.Notification.ID,
			"tenant_id", requested.TenantID,
			"type", requested.Notification.Type,
		)

		return nil
	})
}
