package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"
)

// Request is the payload accepted by the external dispatch function. The
// lookup action resolves a user's email from the identity provider instead
// of sending anything.
type Request struct {
	UserID      string `json:"user_id,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Email       string `json:"email,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Message     string `json:"message"`
	WaitlistID  string `json:"waitlist_id,omitempty"`
	EntryID     string `json:"entry_id,omitempty"`
	Type        string `json:"type"`
	Action      string `json:"action,omitempty"`
}

type Result struct {
	Email string `json:"email,omitempty"`
}

const ActionLookup = "lookup"

type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) (Result, error)
}

// New picks a dispatcher by kind. Unknown kinds that look like URLs get the
// webhook dispatcher, everything else falls back to logging.
func New(kind, url, token string) Dispatcher {
	switch kind {
	case "", "stub", "log":
		return logDispatcher{}
	case "noop":
		return noopDispatcher{}
	case "fail":
		return failDispatcher{}
	case "webhook":
		if url == "" {
			return logDispatcher{}
		}
		return webhookDispatcher{url: url, token: token}
	default:
		if strings.HasPrefix(kind, "http://") || strings.HasPrefix(kind, "https://") {
			return webhookDispatcher{url: kind, token: token}
		}
		return logDispatcher{}
	}
}

type logDispatcher struct{}

func (logDispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	if req.Action == ActionLookup {
		log.Printf("dispatch lookup user=%s", req.UserID)
		return Result{}, nil
	}
	recipient := req.PhoneNumber
	if recipient == "" {
		recipient = req.Email
	}
	log.Printf("dispatch %s to %s entry=%s: %s", req.Type, recipient, req.EntryID, req.Message)
	return Result{}, nil
}

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	return Result{}, nil
}

type failDispatcher struct{}

func (failDispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	return Result{}, errors.New("dispatch failure")
}

type webhookDispatcher struct {
	url   string
	token string
}

func (d webhookDispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if d.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+d.token)
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return Result{}, errors.New("dispatcher rejected request")
	}
	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		// Send responses may be empty; only the lookup variant carries a body.
		if req.Action == ActionLookup {
			return Result{}, err
		}
		return Result{}, nil
	}
	return result, nil
}
