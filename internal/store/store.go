package store

import (
	"context"
	"encoding/json"
	"time"

	"waitify/internal/models"
)

type CreateEntryInput struct {
	RequestID         string
	WaitlistID        string
	UserID            string
	Name              string
	Phone             string
	Email             string
	EstimatedWaitTime *int
	Notes             string
	CreatedAt         time.Time
}

type UpdateStatusInput struct {
	RequestID  string
	EntryID    string
	NewStatus  string
	OccurredAt time.Time
}

type CreateWaitlistInput struct {
	BusinessID  string
	Name        string
	MaxCapacity int
	IsActive    bool
}

type EntryStore interface {
	CreateEntry(ctx context.Context, input CreateEntryInput) (models.WaitlistEntry, bool, error)
	GetEntry(ctx context.Context, entryID string) (models.WaitlistEntry, bool, error)
	ListEntries(ctx context.Context, waitlistID, status string) ([]models.WaitlistEntry, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (models.WaitlistEntry, error)
	AppendCallNote(ctx context.Context, entryID, note string) (models.WaitlistEntry, error)
	RemoveEntry(ctx context.Context, entryID string) (models.WaitlistEntry, error)
	CreateWaitlist(ctx context.Context, input CreateWaitlistInput) (models.Waitlist, error)
	ListWaitlists(ctx context.Context, businessID string) ([]models.Waitlist, error)
	ListSubscriptions(ctx context.Context, businessID string) ([]models.Subscription, error)
}

type OutboxEvent struct {
	EventID    string          `json:"event_id"`
	BusinessID string          `json:"business_id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
}

type Offset struct {
	LastEventTime time.Time
	LastEventID   string
}

type Notification struct {
	NotificationID string
	BusinessID     string
	Channel        string
	Recipient      string
	Status         string
	Attempts       int
	LastError      string
	CreatedAt      time.Time
}

// OutboxStore is consumed by the notification worker and the realtime
// poller; each tracks its own offset under a consumer name.
type OutboxStore interface {
	ListOutboxEvents(ctx context.Context, after Offset, limit int) ([]OutboxEvent, error)
	GetOffset(ctx context.Context, consumer string) (Offset, error)
	UpdateOffset(ctx context.Context, consumer string, offset Offset) error
	InsertNotification(ctx context.Context, notification Notification) error
	MarkNotificationSent(ctx context.Context, notificationID string) error
	MarkNotificationFailed(ctx context.Context, notificationID, lastError string) error
	InsertDLQ(ctx context.Context, notificationID, reason string) error
}
