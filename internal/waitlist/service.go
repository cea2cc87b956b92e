package waitlist

import (
	"context"
	"fmt"
	"time"

	"waitify/internal/models"
	"waitify/internal/notify"
	"waitify/internal/store"
)

// Service orchestrates entry lifecycle actions. Status persistence and
// notification dispatch are deliberately independent operations: a dispatch
// failure after a committed status write surfaces an error while the new
// status stands (there is no rollback path).
type Service struct {
	store      store.EntryStore
	dispatcher notify.Dispatcher
}

func NewService(entries store.EntryStore, dispatcher notify.Dispatcher) *Service {
	return &Service{store: entries, dispatcher: dispatcher}
}

type NotifyInput struct {
	RequestID string
	EntryID   string
	Channel   string
	Subject   string
	Message   string
}

type StatusInput struct {
	RequestID string
	EntryID   string
	NewStatus string
}

// Notify sends a customer notification over the requested channel.
//
// The SMS path dispatches and leaves the status alone; the email path marks
// the entry notified after a successful send. The asymmetry matches the
// shipped behavior and is tracked in DESIGN.md.
func (s *Service) Notify(ctx context.Context, input NotifyInput) (models.WaitlistEntry, error) {
	entry, _, err := s.store.GetEntry(ctx, input.EntryID)
	if err != nil {
		return models.WaitlistEntry{}, err
	}
	if IsTerminal(entry.Status) {
		return models.WaitlistEntry{}, store.ErrInvalidState
	}

	phone, email := contact(entry)
	if phone == "" && email == "" {
		return models.WaitlistEntry{}, store.ErrNoContact
	}

	switch input.Channel {
	case models.ChannelSMS:
		if phone == "" {
			return models.WaitlistEntry{}, store.ErrNoContact
		}
		_, err := s.dispatcher.Dispatch(ctx, notify.Request{
			UserID:      userID(entry),
			PhoneNumber: phone,
			Message:     input.Message,
			WaitlistID:  entry.WaitlistID,
			EntryID:     entry.ID,
			Type:        models.ChannelSMS,
		})
		if err != nil {
			return models.WaitlistEntry{}, fmt.Errorf("%w: %v", store.ErrNotifyFailed, err)
		}
		return entry, nil

	case models.ChannelEmail:
		if email == "" {
			email, err = s.lookupEmail(ctx, entry)
			if err != nil {
				return models.WaitlistEntry{}, err
			}
		}
		if email == "" {
			return models.WaitlistEntry{}, store.ErrNoContact
		}
		_, err := s.dispatcher.Dispatch(ctx, notify.Request{
			UserID:     userID(entry),
			Email:      email,
			Subject:    input.Subject,
			Message:    input.Message,
			WaitlistID: entry.WaitlistID,
			EntryID:    entry.ID,
			Type:       models.ChannelEmail,
		})
		if err != nil {
			return models.WaitlistEntry{}, fmt.Errorf("%w: %v", store.ErrNotifyFailed, err)
		}
		if entry.Status != models.StatusNotified {
			entry, err = s.store.UpdateStatus(ctx, store.UpdateStatusInput{
				RequestID: input.RequestID,
				EntryID:   entry.ID,
				NewStatus: models.StatusNotified,
			})
			if err != nil {
				return models.WaitlistEntry{}, err
			}
		}
		return entry, nil

	default:
		return models.WaitlistEntry{}, fmt.Errorf("unknown channel %q", input.Channel)
	}
}

// UpdateStatus persists the transition, then tells the associated user what
// changed. The write is already committed when dispatch runs.
func (s *Service) UpdateStatus(ctx context.Context, input StatusInput) (models.WaitlistEntry, error) {
	entry, err := s.store.UpdateStatus(ctx, store.UpdateStatusInput{
		RequestID: input.RequestID,
		EntryID:   input.EntryID,
		NewStatus: input.NewStatus,
	})
	if err != nil {
		return models.WaitlistEntry{}, err
	}

	if entry.UserID != nil {
		phone, email := contact(entry)
		_, dispatchErr := s.dispatcher.Dispatch(ctx, notify.Request{
			UserID:      *entry.UserID,
			PhoneNumber: phone,
			Email:       email,
			Message:     statusMessage(entry.Status),
			WaitlistID:  entry.WaitlistID,
			EntryID:     entry.ID,
			Type:        "status",
		})
		if dispatchErr != nil {
			return entry, fmt.Errorf("%w: %v", store.ErrNotifyFailed, dispatchErr)
		}
	}
	return entry, nil
}

// CallCustomer records a timestamped call note (prepended, newest first) and
// returns the dial target. The note must persist before dialing is offered;
// the status never changes.
func (s *Service) CallCustomer(ctx context.Context, entryID string) (models.WaitlistEntry, string, error) {
	entry, _, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		return models.WaitlistEntry{}, "", err
	}
	phone, _ := contact(entry)
	if phone == "" {
		return models.WaitlistEntry{}, "", store.ErrNoContact
	}

	note := fmt.Sprintf("[%s] Called customer", time.Now().UTC().Format("2006-01-02 15:04"))
	entry, err = s.store.AppendCallNote(ctx, entryID, note)
	if err != nil {
		return models.WaitlistEntry{}, "", err
	}
	return entry, "tel:" + phone, nil
}

// Remove hard-deletes the entry regardless of status and notifies the
// associated user afterwards.
func (s *Service) Remove(ctx context.Context, entryID string) (models.WaitlistEntry, error) {
	entry, err := s.store.RemoveEntry(ctx, entryID)
	if err != nil {
		return models.WaitlistEntry{}, err
	}
	if entry.UserID != nil {
		phone, email := contact(entry)
		_, dispatchErr := s.dispatcher.Dispatch(ctx, notify.Request{
			UserID:      *entry.UserID,
			PhoneNumber: phone,
			Email:       email,
			Message:     "You have been removed from the waitlist.",
			WaitlistID:  entry.WaitlistID,
			EntryID:     entry.ID,
			Type:        "removal",
		})
		if dispatchErr != nil {
			return entry, fmt.Errorf("%w: %v", store.ErrNotifyFailed, dispatchErr)
		}
	}
	return entry, nil
}

func (s *Service) lookupEmail(ctx context.Context, entry models.WaitlistEntry) (string, error) {
	if entry.UserID == nil {
		return "", nil
	}
	result, err := s.dispatcher.Dispatch(ctx, notify.Request{
		UserID:  *entry.UserID,
		EntryID: entry.ID,
		Type:    models.ChannelEmail,
		Action:  notify.ActionLookup,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", store.ErrNotifyFailed, err)
	}
	return result.Email, nil
}

func contact(entry models.WaitlistEntry) (phone, email string) {
	if entry.Profile == nil {
		return "", ""
	}
	return entry.Profile.Phone, entry.Profile.Email
}

func userID(entry models.WaitlistEntry) string {
	if entry.UserID == nil {
		return ""
	}
	return *entry.UserID
}

func statusMessage(status string) string {
	switch status {
	case models.StatusNotified:
		return "Your table is ready."
	case models.StatusSeated:
		return "You have been seated. Enjoy!"
	case models.StatusCancelled:
		return "Your waitlist entry has been cancelled."
	default:
		return "Your waitlist status is now " + status + "."
	}
}
