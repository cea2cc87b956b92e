package waitlist

import (
	"context"
	"errors"
	"strings"
	"testing"

	"waitify/internal/models"
	"waitify/internal/notify"
	"waitify/internal/store"
)

type fakeStore struct {
	getFn        func(ctx context.Context, entryID string) (models.WaitlistEntry, bool, error)
	updateFn     func(ctx context.Context, input store.UpdateStatusInput) (models.WaitlistEntry, error)
	appendNoteFn func(ctx context.Context, entryID, note string) (models.WaitlistEntry, error)
	removeFn     func(ctx context.Context, entryID string) (models.WaitlistEntry, error)
}

func (f fakeStore) CreateEntry(ctx context.Context, input store.CreateEntryInput) (models.WaitlistEntry, bool, error) {
	return models.WaitlistEntry{}, false, nil
}

func (f fakeStore) GetEntry(ctx context.Context, entryID string) (models.WaitlistEntry, bool, error) {
	if f.getFn == nil {
		return models.WaitlistEntry{}, false, store.ErrEntryNotFound
	}
	return f.getFn(ctx, entryID)
}

func (f fakeStore) ListEntries(ctx context.Context, waitlistID, status string) ([]models.WaitlistEntry, error) {
	return nil, nil
}

func (f fakeStore) UpdateStatus(ctx context.Context, input store.UpdateStatusInput) (models.WaitlistEntry, error) {
	if f.updateFn == nil {
		return models.WaitlistEntry{}, nil
	}
	return f.updateFn(ctx, input)
}

func (f fakeStore) AppendCallNote(ctx context.Context, entryID, note string) (models.WaitlistEntry, error) {
	if f.appendNoteFn == nil {
		return models.WaitlistEntry{}, nil
	}
	return f.appendNoteFn(ctx, entryID, note)
}

func (f fakeStore) RemoveEntry(ctx context.Context, entryID string) (models.WaitlistEntry, error) {
	if f.removeFn == nil {
		return models.WaitlistEntry{}, store.ErrEntryNotFound
	}
	return f.removeFn(ctx, entryID)
}

func (f fakeStore) CreateWaitlist(ctx context.Context, input store.CreateWaitlistInput) (models.Waitlist, error) {
	return models.Waitlist{}, nil
}

func (f fakeStore) ListWaitlists(ctx context.Context, businessID string) ([]models.Waitlist, error) {
	return nil, nil
}

func (f fakeStore) ListSubscriptions(ctx context.Context, businessID string) ([]models.Subscription, error) {
	return nil, nil
}

type fakeDispatcher struct {
	requests []notify.Request
	result   notify.Result
	err      error
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, req notify.Request) (notify.Result, error) {
	d.requests = append(d.requests, req)
	return d.result, d.err
}

func waitingEntry(email, phone string) models.WaitlistEntry {
	return models.WaitlistEntry{
		ID:         "e1",
		WaitlistID: "w1",
		Position:   1,
		Status:     models.StatusWaiting,
		Profile:    &models.Profile{ID: "p1", Name: "Ana", Phone: phone, Email: email},
	}
}

func TestNotifyEmailDispatchesThenMarksNotified(t *testing.T) {
	entry := waitingEntry("a@b.com", "")
	var statusInput store.UpdateStatusInput
	st := fakeStore{
		getFn: func(ctx context.Context, entryID string) (models.WaitlistEntry, bool, error) {
			return entry, true, nil
		},
		updateFn: func(ctx context.Context, input store.UpdateStatusInput) (models.WaitlistEntry, error) {
			statusInput = input
			updated := entry
			updated.Status = input.NewStatus
			return updated, nil
		},
	}
	d := &fakeDispatcher{}
	svc := NewService(st, d)

	got, err := svc.Notify(context.Background(), NotifyInput{
		EntryID: "e1",
		Channel: models.ChannelEmail,
		Subject: "Ready",
		Message: "Come now",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(d.requests) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(d.requests))
	}
	req := d.requests[0]
	if req.Email != "a@b.com" || req.Subject != "Ready" || req.Message != "Come now" {
		t.Fatalf("unexpected dispatch request: %+v", req)
	}
	if statusInput.NewStatus != models.StatusNotified {
		t.Fatalf("expected status update to notified, got %q", statusInput.NewStatus)
	}
	if got.Status != models.StatusNotified {
		t.Fatalf("expected returned entry notified, got %s", got.Status)
	}
}

func TestNotifySMSDoesNotChangeStatus(t *testing.T) {
	entry := waitingEntry("", "5551234567")
	updated := false
	st := fakeStore{
		getFn: func(ctx context.Context, entryID string) (models.WaitlistEntry, bool, error) {
			return entry, true, nil
		},
		updateFn: func(ctx context.Context, input store.UpdateStatusInput) (models.WaitlistEntry, error) {
			updated = true
			return entry, nil
		},
	}
	d := &fakeDispatcher{}
	svc := NewService(st, d)

	got, err := svc.Notify(context.Background(), NotifyInput{
		EntryID: "e1",
		Channel: models.ChannelSMS,
		Message: "Your table is ready",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if updated {
		t.Fatal("sms path must not update status")
	}
	if got.Status != models.StatusWaiting {
		t.Fatalf("expected status waiting, got %s", got.Status)
	}
	if len(d.requests) != 1 || d.requests[0].PhoneNumber != "5551234567" {
		t.Fatalf("unexpected dispatches: %+v", d.requests)
	}
}

func TestNotifyWithoutContactBlocked(t *testing.T) {
	entry := waitingEntry("", "")
	st := fakeStore{
		getFn: func(ctx context.Context, entryID string) (models.WaitlistEntry, bool, error) {
			return entry, true, nil
		},
		updateFn: func(ctx context.Context, input store.UpdateStatusInput) (models.WaitlistEntry, error) {
			t.Fatal("status must not change")
			return models.WaitlistEntry{}, nil
		},
	}
	d := &fakeDispatcher{}
	svc := NewService(st, d)

	_, err := svc.Notify(context.Background(), NotifyInput{EntryID: "e1", Channel: models.ChannelSMS, Message: "hi"})
	if !errors.Is(err, store.ErrNoContact) {
		t.Fatalf("expected ErrNoContact, got %v", err)
	}
	if len(d.requests) != 0 {
		t.Fatal("no dispatch expected")
	}
}

func TestNotifyTerminalEntryRejected(t *testing.T) {
	entry := waitingEntry("a@b.com", "")
	entry.Status = models.StatusSeated
	st := fakeStore{
		getFn: func(ctx context.Context, entryID string) (models.WaitlistEntry, bool, error) {
			return entry, true, nil
		},
	}
	svc := NewService(st, &fakeDispatcher{})

	_, err := svc.Notify(context.Background(), NotifyInput{EntryID: "e1", Channel: models.ChannelEmail, Message: "hi"})
	if !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestNotifyEmailResolvesViaLookup(t *testing.T) {
	uid := "u1"
	entry := waitingEntry("", "")
	entry.UserID = &uid
	entry.Profile.Phone = "5551234567"
	st := fakeStore{
		getFn: func(ctx context.Context, entryID string) (models.WaitlistEntry, bool, error) {
			return entry, true, nil
		},
		updateFn: func(ctx context.Context, input store.UpdateStatusInput) (models.WaitlistEntry, error) {
			updated := entry
			updated.Status = input.NewStatus
			return updated, nil
		},
	}
	d := &fakeDispatcher{result: notify.Result{Email: "found@b.com"}}
	svc := NewService(st, d)

	_, err := svc.Notify(context.Background(), NotifyInput{EntryID: "e1", Channel: models.ChannelEmail, Message: "hi"})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(d.requests) != 2 {
		t.Fatalf("expected lookup then send, got %d dispatches", len(d.requests))
	}
	if d.requests[0].Action != notify.ActionLookup || d.requests[0].UserID != "u1" {
		t.Fatalf("unexpected lookup request: %+v", d.requests[0])
	}
	if d.requests[1].Email != "found@b.com" {
		t.Fatalf("unexpected send request: %+v", d.requests[1])
	}
}

func TestUpdateStatusDispatchFailureKeepsStatus(t *testing.T) {
	uid := "u1"
	entry := waitingEntry("a@b.com", "")
	entry.UserID = &uid
	st := fakeStore{
		updateFn: func(ctx context.Context, input store.UpdateStatusInput) (models.WaitlistEntry, error) {
			updated := entry
			updated.Status = input.NewStatus
			return updated, nil
		},
	}
	d := &fakeDispatcher{err: errors.New("provider down")}
	svc := NewService(st, d)

	got, err := svc.UpdateStatus(context.Background(), StatusInput{EntryID: "e1", NewStatus: models.StatusSeated})
	if !errors.Is(err, store.ErrNotifyFailed) {
		t.Fatalf("expected ErrNotifyFailed, got %v", err)
	}
	if got.Status != models.StatusSeated {
		t.Fatalf("status write must persist despite dispatch failure, got %s", got.Status)
	}
}

func TestUpdateStatusGuestSkipsDispatch(t *testing.T) {
	entry := waitingEntry("", "")
	st := fakeStore{
		updateFn: func(ctx context.Context, input store.UpdateStatusInput) (models.WaitlistEntry, error) {
			updated := entry
			updated.Status = input.NewStatus
			return updated, nil
		},
	}
	d := &fakeDispatcher{}
	svc := NewService(st, d)

	if _, err := svc.UpdateStatus(context.Background(), StatusInput{EntryID: "e1", NewStatus: models.StatusCancelled}); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if len(d.requests) != 0 {
		t.Fatal("guest entries must not dispatch status notifications")
	}
}

func TestCallCustomerPrependsNoteAndReturnsDial(t *testing.T) {
	entry := waitingEntry("", "5551234567")
	entry.Notes = "old note"
	var gotNote string
	st := fakeStore{
		getFn: func(ctx context.Context, entryID string) (models.WaitlistEntry, bool, error) {
			return entry, true, nil
		},
		appendNoteFn: func(ctx context.Context, entryID, note string) (models.WaitlistEntry, error) {
			gotNote = note
			updated := entry
			updated.Notes = note + "\n" + entry.Notes
			return updated, nil
		},
	}
	svc := NewService(st, &fakeDispatcher{})

	updated, dial, err := svc.CallCustomer(context.Background(), "e1")
	if err != nil {
		t.Fatalf("call customer: %v", err)
	}
	if dial != "tel:5551234567" {
		t.Fatalf("unexpected dial target %q", dial)
	}
	if !strings.HasPrefix(gotNote, "[") || !strings.HasSuffix(gotNote, "] Called customer") {
		t.Fatalf("unexpected note %q", gotNote)
	}
	if !strings.HasSuffix(updated.Notes, "old note") {
		t.Fatalf("note must be prepended, got %q", updated.Notes)
	}
}

func TestCallCustomerNoteFailureBlocksDial(t *testing.T) {
	entry := waitingEntry("", "5551234567")
	st := fakeStore{
		getFn: func(ctx context.Context, entryID string) (models.WaitlistEntry, bool, error) {
			return entry, true, nil
		},
		appendNoteFn: func(ctx context.Context, entryID, note string) (models.WaitlistEntry, error) {
			return models.WaitlistEntry{}, errors.New("write failed")
		},
	}
	svc := NewService(st, &fakeDispatcher{})

	_, dial, err := svc.CallCustomer(context.Background(), "e1")
	if err == nil {
		t.Fatal("expected error")
	}
	if dial != "" {
		t.Fatalf("dial must not be offered on persist failure, got %q", dial)
	}
}

func TestRemoveNotifiesAssociatedUser(t *testing.T) {
	uid := "u1"
	entry := waitingEntry("a@b.com", "")
	entry.UserID = &uid
	st := fakeStore{
		removeFn: func(ctx context.Context, entryID string) (models.WaitlistEntry, error) {
			return entry, nil
		},
	}
	d := &fakeDispatcher{}
	svc := NewService(st, d)

	if _, err := svc.Remove(context.Background(), "e1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(d.requests) != 1 || d.requests[0].Type != "removal" {
		t.Fatalf("expected removal dispatch, got %+v", d.requests)
	}
}
