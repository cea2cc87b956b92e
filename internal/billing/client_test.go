package billing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateCheckoutSession(t *testing.T) {
	var gotPath, gotAuth string
	var gotInput CheckoutInput
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotInput); err != nil {
			t.Errorf("decode: %v", err)
		}
		json.NewEncoder(w).Encode(Session{URL: "https://pay.example.com/c/123"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	session, err := client.CreateCheckoutSession(context.Background(), CheckoutInput{
		BusinessID: "b1",
		PriceID:    "price_basic",
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if session.URL != "https://pay.example.com/c/123" {
		t.Fatalf("unexpected url %q", session.URL)
	}
	if gotPath != "/v1/checkout/sessions" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotInput.BusinessID != "b1" || gotInput.PriceID != "price_basic" {
		t.Fatalf("unexpected payload: %+v", gotInput)
	}
}

func TestCreatePortalSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/portal/sessions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Session{URL: "https://pay.example.com/p/456"})
	}))
	defer server.Close()

	session, err := NewClient(server.URL, "").CreatePortalSession(context.Background(), PortalInput{BusinessID: "b1"})
	if err != nil {
		t.Fatalf("portal: %v", err)
	}
	if session.URL != "https://pay.example.com/p/456" {
		t.Fatalf("unexpected url %q", session.URL)
	}
}

func TestNotConfigured(t *testing.T) {
	_, err := NewClient("", "").CreateCheckoutSession(context.Background(), CheckoutInput{BusinessID: "b1"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestProviderErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "").CreatePortalSession(context.Background(), PortalInput{BusinessID: "b1"})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestMissingURLRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Session{})
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "").CreateCheckoutSession(context.Background(), CheckoutInput{BusinessID: "b1"})
	if err == nil {
		t.Fatal("expected error for empty url")
	}
}
