package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNotConfigured is returned when no billing provider URL is set.
var ErrNotConfigured = errors.New("billing provider not configured")

// Client proxies session creation to the hosted billing provider. The
// provider owns the payment flow; this side only obtains redirect URLs.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type CheckoutInput struct {
	BusinessID string `json:"business_id"`
	PriceID    string `json:"price_id"`
	SuccessURL string `json:"success_url,omitempty"`
	CancelURL  string `json:"cancel_url,omitempty"`
}

type PortalInput struct {
	BusinessID string `json:"business_id"`
	ReturnURL  string `json:"return_url,omitempty"`
}

type Session struct {
	URL string `json:"url"`
}

func (c *Client) CreateCheckoutSession(ctx context.Context, input CheckoutInput) (Session, error) {
	return c.createSession(ctx, "/v1/checkout/sessions", input)
}

func (c *Client) CreatePortalSession(ctx context.Context, input PortalInput) (Session, error) {
	return c.createSession(ctx, "/v1/portal/sessions", input)
}

func (c *Client) createSession(ctx context.Context, path string, input interface{}) (Session, error) {
	if c.baseURL == "" {
		return Session{}, ErrNotConfigured
	}
	body, err := json.Marshal(input)
	if err != nil {
		return Session{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return Session{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Session{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return Session{}, fmt.Errorf("billing provider returned %d", resp.StatusCode)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return Session{}, err
	}
	if session.URL == "" {
		return Session{}, errors.New("billing provider returned no url")
	}
	return session, nil
}
