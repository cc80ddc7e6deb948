// Package events defines the catalog events carried by the event bus.
package events

import (
	"time"

	"github.com/edulab/orchestrator/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Kafka topics.
const Topic = "catalog.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const NotificationRequestedEvent EventType = "catalog.notification.requested"

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	TenantID  string    `json:"tenant_id"`
}

func NewBaseEvent(eventType EventType, tenantID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TenantID:  tenantID,
	}
}

// NotificationRequested asks the notification consumer to store a notification.
type NotificationRequested struct {
	BaseEvent

	Notification models.Notification `json:"notification"`
}

func NewNotificationRequested(notification *models.Notification) *NotificationRequested {
	return &NotificationRequested{
		BaseEvent:    NewBaseEvent(NotificationRequestedEvent, notification.TenantID),
		Notification: *notification,
	}
}

func (e NotificationRequested) GetType() EventType {
	return NotificationRequestedEvent
}
