package worker

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"strings"
	"time"

	"waitify/internal/notify"
	"waitify/internal/store"

	"github.com/google/uuid"
)

const consumerName = "worker"

// Worker drains the outbox and fans each entry event out to the contact
// channels present in the payload. Each send is recorded as a notification
// row; failures past maxAttempts land in the DLQ.
type Worker struct {
	store       store.OutboxStore
	sms         notify.Provider
	email       notify.Provider
	batchSize   int
	maxAttempts int
}

type payloadData map[string]interface{}

type Config struct {
	BatchSize     int
	MaxAttempts   int
	SMSProvider   string
	EmailProvider string
}

func New(outbox store.OutboxStore, cfg Config) *Worker {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 50
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Worker{
		store:       outbox,
		sms:         notify.NewProvider(cfg.SMSProvider, "sms"),
		email:       notify.NewProvider(cfg.EmailProvider, "email"),
		batchSize:   batch,
		maxAttempts: maxAttempts,
	}
}

// Run processes one batch. The offset only advances past events that were
// handed to processEvent, so a crash replays at-least-once.
func (w *Worker) Run(ctx context.Context) error {
	last, err := w.store.GetOffset(ctx, consumerName)
	if err != nil {
		return err
	}

	events, err := w.store.ListOutboxEvents(ctx, last, w.batchSize)
	if err != nil {
		return err
	}

	for _, event := range events {
		if err := w.processEvent(ctx, event); err != nil {
			log.Printf("worker process error event=%s: %v", event.EventID, err)
		}
		last = store.Offset{LastEventTime: event.CreatedAt, LastEventID: event.EventID}
	}

	if len(events) > 0 {
		if err := w.store.UpdateOffset(ctx, consumerName, last); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) processEvent(ctx context.Context, event store.OutboxEvent) error {
	payload := payloadData{}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return err
	}

	template := templateForEvent(event.Type)
	if template == "" {
		return nil
	}

	channels := pickChannels(payload)
	if len(channels) == 0 {
		return nil
	}

	message := renderTemplate(template, payload)

	for _, channel := range channels {
		notification := store.Notification{
			NotificationID: uuid.NewString(),
			BusinessID:     event.BusinessID,
			Channel:        channel.name,
			Recipient:      channel.recipient,
			Status:         "pending",
			Attempts:       1,
		}
		if err := w.store.InsertNotification(ctx, notification); err != nil {
			return err
		}

		providerErr := w.provider(channel.name).Send(ctx, message, channel.recipient)
		if providerErr != nil {
			if err := w.store.MarkNotificationFailed(ctx, notification.NotificationID, providerErr.Error()); err != nil {
				return err
			}
			if notification.Attempts >= w.maxAttempts {
				if err := w.store.InsertDLQ(ctx, notification.NotificationID, "max attempts reached"); err != nil {
					return err
				}
			}
			continue
		}
		if err := w.store.MarkNotificationSent(ctx, notification.NotificationID); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) provider(channel string) notify.Provider {
	if channel == "email" {
		return w.email
	}
	return w.sms
}

func templateForEvent(eventType string) string {
	switch eventType {
	case "entry.created":
		return "Hi {name}, you are on the waitlist at position {position}."
	case "entry.notified":
		return "Hi {name}, your table is ready."
	case "entry.seated":
		return "Hi {name}, you have been seated. Enjoy!"
	case "entry.cancelled":
		return "Hi {name}, your waitlist entry has been cancelled."
	case "entry.removed":
		return "Hi {name}, you have been removed from the waitlist."
	default:
		return ""
	}
}

func renderTemplate(template string, payload payloadData) string {
	result := template
	result = strings.ReplaceAll(result, "{name}", str(payload, "name"))
	result = strings.ReplaceAll(result, "{position}", str(payload, "position"))
	result = strings.ReplaceAll(result, "{status}", str(payload, "status"))
	return result
}

func str(payload payloadData, key string) string {
	value, ok := payload[key]
	if !ok {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.Itoa(int(v))
	default:
		return ""
	}
}

type channelTarget struct {
	name      string
	recipient string
}

func pickChannels(payload payloadData) []channelTarget {
	var channels []channelTarget
	if phone, ok := payload["phone"].(string); ok && phone != "" {
		channels = append(channels, channelTarget{name: "sms", recipient: phone})
	}
	if email, ok := payload["email"].(string); ok && email != "" {
		channels = append(channels, channelTarget{name: "email", recipient: email})
	}
	return channels
}

func Start(ctx context.Context, interval time.Duration, w *Worker) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Run(ctx); err != nil {
				log.Printf("worker error: %v", err)
			}
		}
	}
}
