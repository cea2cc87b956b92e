package notify

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
)

// Provider is the per-channel sender used by the outbox worker.
type Provider interface {
	Send(ctx context.Context, message, recipient string) error
}

func NewProvider(kind, channel string) Provider {
	switch kind {
	case "", "stub", "log":
		return logProvider{channel: channel}
	case "noop":
		return noopProvider{}
	case "fail":
		return failProvider{}
	case "webhook":
		url := os.Getenv("NOTIFY_" + strings.ToUpper(channel) + "_WEBHOOK_URL")
		token := os.Getenv("NOTIFY_" + strings.ToUpper(channel) + "_WEBHOOK_TOKEN")
		if url == "" {
			return logProvider{channel: channel}
		}
		return webhookSendProvider{channel: channel, dispatcher: webhookDispatcher{url: url, token: token}}
	default:
		if strings.HasPrefix(kind, "http://") || strings.HasPrefix(kind, "https://") {
			return webhookSendProvider{channel: channel, dispatcher: webhookDispatcher{url: kind}}
		}
		return logProvider{channel: channel}
	}
}

type logProvider struct {
	channel string
}

func (p logProvider) Send(ctx context.Context, message, recipient string) error {
	log.Printf("send %s to %s: %s", p.channel, recipient, message)
	return nil
}

type noopProvider struct{}

func (noopProvider) Send(ctx context.Context, message, recipient string) error {
	return nil
}

type failProvider struct{}

func (failProvider) Send(ctx context.Context, message, recipient string) error {
	return errors.New("provider failure")
}

type webhookSendProvider struct {
	channel    string
	dispatcher webhookDispatcher
}

func (p webhookSendProvider) Send(ctx context.Context, message, recipient string) error {
	req := Request{Message: message, Type: p.channel}
	if p.channel == "email" {
		req.Email = recipient
	} else {
		req.PhoneNumber = recipient
	}
	_, err := p.dispatcher.Dispatch(ctx, req)
	return err
}
