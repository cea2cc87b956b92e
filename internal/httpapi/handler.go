package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"waitify/internal/billing"
	"waitify/internal/floorplan"
	"waitify/internal/models"
	"waitify/internal/store"
	"waitify/internal/waitlist"

	"github.com/google/uuid"
)

// WaitlistService is the lifecycle surface the handler drives. The concrete
// implementation lives in internal/waitlist.
type WaitlistService interface {
	Notify(ctx context.Context, input waitlist.NotifyInput) (models.WaitlistEntry, error)
	UpdateStatus(ctx context.Context, input waitlist.StatusInput) (models.WaitlistEntry, error)
	CallCustomer(ctx context.Context, entryID string) (models.WaitlistEntry, string, error)
	Remove(ctx context.Context, entryID string) (models.WaitlistEntry, error)
}

type Handler struct {
	store   store.EntryStore
	service WaitlistService
	plans   floorplan.Storage
	billing *billing.Client
}

func NewHandler(entries store.EntryStore, service WaitlistService, plans floorplan.Storage, billingClient *billing.Client) *Handler {
	return &Handler{
		store:   entries,
		service: service,
		plans:   plans,
		billing: billingClient,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/entries", h.handleEntries)
	mux.HandleFunc("/api/entries/", h.handleEntry)
	mux.HandleFunc("/api/waitlists", h.handleWaitlists)
	mux.HandleFunc("/api/waitlists/", h.handleWaitlistEntries)
	mux.HandleFunc("/api/floorplans/", h.handleFloorPlan)
	mux.HandleFunc("/api/billing/checkout", h.handleCheckout)
	mux.HandleFunc("/api/billing/portal", h.handlePortal)
	mux.HandleFunc("/api/subscriptions", h.handleSubscriptions)
	return mux
}

type createEntryRequest struct {
	RequestID         string `json:"request_id"`
	WaitlistID        string `json:"waitlist_id"`
	UserID            string `json:"user_id"`
	Name              string `json:"name"`
	Phone             string `json:"phone"`
	Email             string `json:"email"`
	EstimatedWaitTime *int   `json:"estimated_wait_time"`
	Notes             string `json:"notes"`
}

type notifyRequest struct {
	RequestID string `json:"request_id"`
	Channel   string `json:"channel"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
}

type statusRequest struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

type createWaitlistRequest struct {
	BusinessID  string `json:"business_id"`
	Name        string `json:"name"`
	MaxCapacity int    `json:"max_capacity"`
	IsActive    *bool  `json:"is_active"`
}

type errorResponse struct {
	RequestID string        `json:"request_id"`
	Error     responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req createEntryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.RequestID = strings.TrimSpace(req.RequestID)
	req.WaitlistID = strings.TrimSpace(req.WaitlistID)
	req.UserID = strings.TrimSpace(req.UserID)
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.TrimSpace(req.Email)

	if req.RequestID == "" || req.WaitlistID == "" || req.Name == "" {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id, waitlist_id, and name are required")
		return
	}
	if !isValidUUID(req.RequestID) || !isValidUUID(req.WaitlistID) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id and waitlist_id must be UUIDs")
		return
	}
	if req.UserID != "" && !isValidUUID(req.UserID) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "user_id must be a UUID when provided")
		return
	}

	entry, _, err := h.store.CreateEntry(r.Context(), store.CreateEntryInput{
		RequestID:         req.RequestID,
		WaitlistID:        req.WaitlistID,
		UserID:            req.UserID,
		Name:              req.Name,
		Phone:             req.Phone,
		Email:             req.Email,
		EstimatedWaitTime: req.EstimatedWaitTime,
		Notes:             req.Notes,
		CreatedAt:         time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, req.RequestID, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleEntry(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/entries/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	entryID := parts[0]
	if !isValidUUID(entryID) {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "entry_id must be a UUID")
		return
	}

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.handleGetEntry(w, r, entryID)
		case http.MethodDelete:
			h.handleRemoveEntry(w, r, entryID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "status":
		if r.Method != http.MethodPatch {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleUpdateStatus(w, r, entryID)
	case len(parts) == 2 && parts[1] == "allowed-actions":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleAllowedActions(w, r, entryID)
	case len(parts) == 3 && parts[1] == "actions":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleEntryAction(w, r, entryID, parts[2])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleGetEntry(w http.ResponseWriter, r *http.Request, entryID string) {
	entry, found, err := h.store.GetEntry(r.Context(), entryID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	if !found {
		writeError(w, "", http.StatusNotFound, "entry_not_found", "entry not found")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleRemoveEntry(w http.ResponseWriter, r *http.Request, entryID string) {
	entry, err := h.service.Remove(r.Context(), entryID)
	if err != nil && !errors.Is(err, store.ErrNotifyFailed) {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request, entryID string) {
	var req statusRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.RequestID = strings.TrimSpace(req.RequestID)
	req.Status = strings.TrimSpace(req.Status)
	if req.Status == "" {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "status is required")
		return
	}
	if req.RequestID != "" && !isValidUUID(req.RequestID) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id must be a UUID when provided")
		return
	}

	entry, err := h.service.UpdateStatus(r.Context(), waitlist.StatusInput{
		RequestID: req.RequestID,
		EntryID:   entryID,
		NewStatus: req.Status,
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, req.RequestID, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleAllowedActions(w http.ResponseWriter, r *http.Request, entryID string) {
	entry, found, err := h.store.GetEntry(r.Context(), entryID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	if !found {
		writeError(w, "", http.StatusNotFound, "entry_not_found", "entry not found")
		return
	}

	allowed := waitlist.AllowedNext(entry.Status)
	if allowed == nil {
		allowed = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  entry.Status,
		"allowed": allowed,
	})
}

func (h *Handler) handleEntryAction(w http.ResponseWriter, r *http.Request, entryID, action string) {
	switch action {
	case "notify":
		h.handleNotify(w, r, entryID)
	case "seat":
		h.handleStatusAction(w, r, entryID, models.StatusSeated)
	case "cancel":
		h.handleStatusAction(w, r, entryID, models.StatusCancelled)
	case "call":
		h.handleCall(w, r, entryID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleNotify(w http.ResponseWriter, r *http.Request, entryID string) {
	var req notifyRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.RequestID = strings.TrimSpace(req.RequestID)
	req.Channel = strings.TrimSpace(req.Channel)
	req.Message = strings.TrimSpace(req.Message)
	if req.Channel != models.ChannelSMS && req.Channel != models.ChannelEmail {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "channel must be sms or email")
		return
	}
	if req.Message == "" {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}
	if req.RequestID != "" && !isValidUUID(req.RequestID) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id must be a UUID when provided")
		return
	}

	entry, err := h.service.Notify(r.Context(), waitlist.NotifyInput{
		RequestID: req.RequestID,
		EntryID:   entryID,
		Channel:   req.Channel,
		Subject:   req.Subject,
		Message:   req.Message,
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, req.RequestID, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleStatusAction(w http.ResponseWriter, r *http.Request, entryID, newStatus string) {
	var req statusRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	// Seat and cancel accept an empty body; request_id is optional.
	if err := decoder.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.RequestID = strings.TrimSpace(req.RequestID)
	if req.RequestID != "" && !isValidUUID(req.RequestID) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id must be a UUID when provided")
		return
	}

	entry, err := h.service.UpdateStatus(r.Context(), waitlist.StatusInput{
		RequestID: req.RequestID,
		EntryID:   entryID,
		NewStatus: newStatus,
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, req.RequestID, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleCall(w http.ResponseWriter, r *http.Request, entryID string) {
	entry, dial, err := h.service.CallCustomer(r.Context(), entryID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entry": entry,
		"dial":  dial,
	})
}

func (h *Handler) handleWaitlists(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleCreateWaitlist(w, r)
	case http.MethodGet:
		h.handleListWaitlists(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCreateWaitlist(w http.ResponseWriter, r *http.Request) {
	var req createWaitlistRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, "", http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.BusinessID = strings.TrimSpace(req.BusinessID)
	req.Name = strings.TrimSpace(req.Name)
	if req.BusinessID == "" || req.Name == "" {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "business_id and name are required")
		return
	}
	if !isValidUUID(req.BusinessID) {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "business_id must be a UUID")
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	created, err := h.store.CreateWaitlist(r.Context(), store.CreateWaitlistInput{
		BusinessID:  req.BusinessID,
		Name:        req.Name,
		MaxCapacity: req.MaxCapacity,
		IsActive:    active,
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (h *Handler) handleListWaitlists(w http.ResponseWriter, r *http.Request) {
	businessID := strings.TrimSpace(r.URL.Query().Get("business_id"))
	if businessID == "" {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "business_id is required")
		return
	}
	if !isValidUUID(businessID) {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "business_id must be a UUID")
		return
	}

	waitlists, err := h.store.ListWaitlists(r.Context(), businessID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, waitlists)
}

func (h *Handler) handleWaitlistEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/waitlists/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[1] != "entries" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	waitlistID := parts[0]
	if !isValidUUID(waitlistID) {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "waitlist_id must be a UUID")
		return
	}
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status != "" && !waitlist.ValidStatus(status) {
		writeError(w, "", http.StatusBadRequest, "invalid_status", "unknown status filter")
		return
	}

	entries, err := h.store.ListEntries(r.Context(), waitlistID, status)
	if err != nil {
		statusCode, code, msg := mapError(err)
		writeError(w, "", statusCode, code, msg)
		return
	}
	if entries == nil {
		entries = []models.WaitlistEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleFloorPlan(w http.ResponseWriter, r *http.Request) {
	location := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/floorplans/"), "/")
	if location == "" || strings.Contains(location, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		items, err := h.plans.Load(r.Context(), location)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, "", status, code, msg)
			return
		}
		if items == nil {
			items = []models.FloorItem{}
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPut:
		var items []models.FloorItem
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&items); err != nil {
			writeError(w, "", http.StatusBadRequest, "invalid_json", "invalid JSON payload")
			return
		}
		if err := h.plans.Save(r.Context(), location, items); err != nil {
			status, code, msg := mapError(err)
			writeError(w, "", status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodDelete:
		if err := h.plans.Delete(r.Context(), location); err != nil {
			status, code, msg := mapError(err)
			writeError(w, "", status, code, msg)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req billing.CheckoutInput
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, "", http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.BusinessID) == "" || strings.TrimSpace(req.PriceID) == "" {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "business_id and price_id are required")
		return
	}

	session, err := h.billing.CreateCheckoutSession(r.Context(), req)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) handlePortal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req billing.PortalInput
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, "", http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.BusinessID) == "" {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "business_id is required")
		return
	}

	session, err := h.billing.CreatePortalSession(r.Context(), req)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	businessID := strings.TrimSpace(r.URL.Query().Get("business_id"))
	if businessID == "" {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "business_id is required")
		return
	}
	if !isValidUUID(businessID) {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "business_id must be a UUID")
		return
	}

	subscriptions, err := h.store.ListSubscriptions(r.Context(), businessID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	if subscriptions == nil {
		subscriptions = []models.Subscription{}
	}
	writeJSON(w, http.StatusOK, subscriptions)
}

func isValidUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrWaitlistNotFound):
		return http.StatusNotFound, "waitlist_not_found", "waitlist not found"
	case errors.Is(err, store.ErrEntryNotFound):
		return http.StatusNotFound, "entry_not_found", "entry not found"
	case errors.Is(err, store.ErrInvalidState):
		return http.StatusConflict, "invalid_state", "entry status does not allow this action"
	case errors.Is(err, store.ErrInvalidStatus):
		return http.StatusBadRequest, "invalid_status", "unknown status value"
	case errors.Is(err, store.ErrNoContact):
		return http.StatusUnprocessableEntity, "no_contact", "entry has no phone or email on file"
	case errors.Is(err, store.ErrNotifyFailed):
		return http.StatusBadGateway, "notify_failed", "notification dispatch failed"
	case errors.Is(err, billing.ErrNotConfigured):
		return http.StatusServiceUnavailable, "billing_not_configured", "billing provider not configured"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestID,
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
