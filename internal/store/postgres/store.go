package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"waitify/internal/models"
	"waitify/internal/store"
	"waitify/internal/waitlist"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const entryColumns = `
	e.id, e.waitlist_id, e.user_id, e.position, e.status, e.estimated_wait_time,
	e.notes, e.created_at, e.updated_at, p.id, p.name, p.phone, p.email
`

func (s *Store) CreateEntry(ctx context.Context, input store.CreateEntryInput) (models.WaitlistEntry, bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.WaitlistEntry{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	existing, found, err := findActionRequest(ctx, tx, "create", input.RequestID)
	if err != nil {
		return models.WaitlistEntry{}, false, err
	}
	if found {
		if err = tx.Commit(ctx); err != nil {
			return models.WaitlistEntry{}, false, err
		}
		return existing, false, nil
	}

	var businessID string
	row := tx.QueryRow(ctx, `
		SELECT business_id
		FROM waitlists
		WHERE id = $1 AND is_active = TRUE
	`, input.WaitlistID)
	if err = row.Scan(&businessID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.WaitlistEntry{}, false, store.ErrWaitlistNotFound
		}
		return models.WaitlistEntry{}, false, err
	}

	// Position is recomputed from the live queue, not a monotonic counter.
	var position int
	row = tx.QueryRow(ctx, `
		SELECT COUNT(1) + 1
		FROM waitlist_entries
		WHERE waitlist_id = $1 AND status IN ('waiting', 'notified')
	`, input.WaitlistID)
	if err = row.Scan(&position); err != nil {
		return models.WaitlistEntry{}, false, err
	}

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	profileID := uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO profiles (id, name, phone, email)
		VALUES ($1, $2, $3, $4)
	`, profileID, input.Name, nullIfEmpty(input.Phone), nullIfEmpty(input.Email))
	if err != nil {
		return models.WaitlistEntry{}, false, err
	}

	entryID := uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO waitlist_entries (
			id, waitlist_id, user_id, profile_id, position, status,
			estimated_wait_time, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	`, entryID, input.WaitlistID, nullIfEmpty(input.UserID), profileID, position,
		models.StatusWaiting, input.EstimatedWaitTime, input.Notes, createdAt)
	if err != nil {
		return models.WaitlistEntry{}, false, err
	}

	entry := models.WaitlistEntry{
		ID:                entryID,
		WaitlistID:        input.WaitlistID,
		Position:          position,
		Status:            models.StatusWaiting,
		EstimatedWaitTime: input.EstimatedWaitTime,
		Notes:             input.Notes,
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
		Profile: &models.Profile{
			ID:    profileID,
			Name:  input.Name,
			Phone: input.Phone,
			Email: input.Email,
		},
	}
	if input.UserID != "" {
		userID := input.UserID
		entry.UserID = &userID
	}

	if err = insertActionRequest(ctx, tx, "create", input.RequestID, entryID); err != nil {
		return models.WaitlistEntry{}, false, err
	}
	if err = insertOutboxEvent(ctx, tx, businessID, "entry.created", entry); err != nil {
		return models.WaitlistEntry{}, false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.WaitlistEntry{}, false, err
	}
	return entry, true, nil
}

func (s *Store) GetEntry(ctx context.Context, entryID string) (models.WaitlistEntry, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM waitlist_entries e
		JOIN profiles p ON p.id = e.profile_id
		WHERE e.id = $1
	`, entryID)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.WaitlistEntry{}, false, store.ErrEntryNotFound
		}
		return models.WaitlistEntry{}, false, err
	}
	return entry, true, nil
}

func (s *Store) ListEntries(ctx context.Context, waitlistID, status string) ([]models.WaitlistEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM waitlist_entries e
		JOIN profiles p ON p.id = e.profile_id
		WHERE e.waitlist_id = $1
	`
	args := []interface{}{waitlistID}
	if status != "" {
		query += " AND e.status = $2"
		args = append(args, status)
	}
	query += " ORDER BY e.position ASC, e.created_at ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.WaitlistEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// UpdateStatus applies a guarded transition: the UPDATE carries a status
// predicate so a concurrent writer cannot skip the transition table.
func (s *Store) UpdateStatus(ctx context.Context, input store.UpdateStatusInput) (models.WaitlistEntry, error) {
	if !waitlist.ValidStatus(input.NewStatus) {
		return models.WaitlistEntry{}, store.ErrInvalidStatus
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.WaitlistEntry{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	existing, found, err := findActionRequest(ctx, tx, "status:"+input.NewStatus, input.RequestID)
	if err != nil {
		return models.WaitlistEntry{}, err
	}
	if found {
		if err = tx.Commit(ctx); err != nil {
			return models.WaitlistEntry{}, err
		}
		return existing, nil
	}

	var currentStatus, waitlistID string
	row := tx.QueryRow(ctx, `
		SELECT status, waitlist_id
		FROM waitlist_entries
		WHERE id = $1
		FOR UPDATE
	`, input.EntryID)
	if err = row.Scan(&currentStatus, &waitlistID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.WaitlistEntry{}, store.ErrEntryNotFound
		}
		return models.WaitlistEntry{}, err
	}
	if !waitlist.CanTransition(currentStatus, input.NewStatus) {
		return models.WaitlistEntry{}, store.ErrInvalidState
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	tag, err := tx.Exec(ctx, `
		UPDATE waitlist_entries
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`, input.NewStatus, occurredAt, input.EntryID, currentStatus)
	if err != nil {
		return models.WaitlistEntry{}, err
	}
	if tag.RowsAffected() == 0 {
		return models.WaitlistEntry{}, store.ErrInvalidState
	}

	entry, err := getEntryTx(ctx, tx, input.EntryID)
	if err != nil {
		return models.WaitlistEntry{}, err
	}

	businessID, err := lookupBusinessID(ctx, tx, waitlistID)
	if err != nil {
		return models.WaitlistEntry{}, err
	}
	if err = insertActionRequest(ctx, tx, "status:"+input.NewStatus, input.RequestID, entry.ID); err != nil {
		return models.WaitlistEntry{}, err
	}
	if err = insertOutboxEvent(ctx, tx, businessID, "entry."+input.NewStatus, entry); err != nil {
		return models.WaitlistEntry{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.WaitlistEntry{}, err
	}
	return entry, nil
}

// AppendCallNote prepends a timestamped line to the entry's notes, newest
// first. The entry status is untouched.
func (s *Store) AppendCallNote(ctx context.Context, entryID, note string) (models.WaitlistEntry, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.WaitlistEntry{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var notes string
	row := tx.QueryRow(ctx, `
		SELECT notes
		FROM waitlist_entries
		WHERE id = $1
		FOR UPDATE
	`, entryID)
	if err = row.Scan(&notes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.WaitlistEntry{}, store.ErrEntryNotFound
		}
		return models.WaitlistEntry{}, err
	}

	if notes != "" {
		note = note + "\n" + notes
	}
	_, err = tx.Exec(ctx, `
		UPDATE waitlist_entries
		SET notes = $1, updated_at = $2
		WHERE id = $3
	`, note, time.Now().UTC(), entryID)
	if err != nil {
		return models.WaitlistEntry{}, err
	}

	entry, err := getEntryTx(ctx, tx, entryID)
	if err != nil {
		return models.WaitlistEntry{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.WaitlistEntry{}, err
	}
	return entry, nil
}

func (s *Store) RemoveEntry(ctx context.Context, entryID string) (models.WaitlistEntry, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.WaitlistEntry{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	entry, err := getEntryTx(ctx, tx, entryID)
	if err != nil {
		return models.WaitlistEntry{}, err
	}

	businessID, err := lookupBusinessID(ctx, tx, entry.WaitlistID)
	if err != nil {
		return models.WaitlistEntry{}, err
	}

	_, err = tx.Exec(ctx, `DELETE FROM waitlist_entries WHERE id = $1`, entryID)
	if err != nil {
		return models.WaitlistEntry{}, err
	}

	if err = insertOutboxEvent(ctx, tx, businessID, "entry.removed", entry); err != nil {
		return models.WaitlistEntry{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.WaitlistEntry{}, err
	}
	return entry, nil
}

func (s *Store) CreateWaitlist(ctx context.Context, input store.CreateWaitlistInput) (models.Waitlist, error) {
	wl := models.Waitlist{
		ID:          uuid.NewString(),
		BusinessID:  input.BusinessID,
		Name:        input.Name,
		MaxCapacity: input.MaxCapacity,
		IsActive:    input.IsActive,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO waitlists (id, business_id, name, max_capacity, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, wl.ID, wl.BusinessID, wl.Name, wl.MaxCapacity, wl.IsActive, wl.CreatedAt)
	if err != nil {
		return models.Waitlist{}, err
	}
	return wl, nil
}

func (s *Store) ListWaitlists(ctx context.Context, businessID string) ([]models.Waitlist, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, business_id, name, max_capacity, is_active, created_at
		FROM waitlists
		WHERE business_id = $1
		ORDER BY created_at ASC
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var waitlists []models.Waitlist
	for rows.Next() {
		var wl models.Waitlist
		if err := rows.Scan(&wl.ID, &wl.BusinessID, &wl.Name, &wl.MaxCapacity, &wl.IsActive, &wl.CreatedAt); err != nil {
			return nil, err
		}
		waitlists = append(waitlists, wl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return waitlists, nil
}

func (s *Store) ListSubscriptions(ctx context.Context, businessID string) ([]models.Subscription, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, business_id, plan, status, created_at
		FROM subscriptions
		WHERE business_id = $1
		ORDER BY created_at DESC
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var sub models.Subscription
		if err := rows.Scan(&sub.ID, &sub.BusinessID, &sub.Plan, &sub.Status, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (models.WaitlistEntry, error) {
	var entry models.WaitlistEntry
	var profile models.Profile
	var userIDNull sql.NullString
	var waitNull sql.NullInt64
	var phoneNull sql.NullString
	var emailNull sql.NullString
	if err := row.Scan(
		&entry.ID, &entry.WaitlistID, &userIDNull, &entry.Position, &entry.Status,
		&waitNull, &entry.Notes, &entry.CreatedAt, &entry.UpdatedAt,
		&profile.ID, &profile.Name, &phoneNull, &emailNull,
	); err != nil {
		return models.WaitlistEntry{}, err
	}
	if userIDNull.Valid {
		entry.UserID = &userIDNull.String
	}
	if waitNull.Valid {
		wait := int(waitNull.Int64)
		entry.EstimatedWaitTime = &wait
	}
	if phoneNull.Valid {
		profile.Phone = phoneNull.String
	}
	if emailNull.Valid {
		profile.Email = emailNull.String
	}
	entry.Profile = &profile
	return entry, nil
}

func getEntryTx(ctx context.Context, tx pgx.Tx, entryID string) (models.WaitlistEntry, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM waitlist_entries e
		JOIN profiles p ON p.id = e.profile_id
		WHERE e.id = $1
	`, entryID)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.WaitlistEntry{}, store.ErrEntryNotFound
		}
		return models.WaitlistEntry{}, err
	}
	return entry, nil
}

func lookupBusinessID(ctx context.Context, tx pgx.Tx, waitlistID string) (string, error) {
	var businessID string
	row := tx.QueryRow(ctx, `
		SELECT business_id
		FROM waitlists
		WHERE id = $1
	`, waitlistID)
	if err := row.Scan(&businessID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", store.ErrWaitlistNotFound
		}
		return "", err
	}
	return businessID, nil
}

func findActionRequest(ctx context.Context, tx pgx.Tx, action, requestID string) (models.WaitlistEntry, bool, error) {
	if requestID == "" {
		return models.WaitlistEntry{}, false, nil
	}
	var entryID string
	row := tx.QueryRow(ctx, `
		SELECT entry_id
		FROM entry_action_requests
		WHERE request_id = $1 AND action = $2
	`, requestID, action)
	if err := row.Scan(&entryID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.WaitlistEntry{}, false, nil
		}
		return models.WaitlistEntry{}, false, err
	}
	entry, err := getEntryTx(ctx, tx, entryID)
	if err != nil {
		return models.WaitlistEntry{}, false, err
	}
	return entry, true, nil
}

func insertActionRequest(ctx context.Context, tx pgx.Tx, action, requestID, entryID string) error {
	if requestID == "" {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO entry_action_requests (request_id, action, entry_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (request_id) DO NOTHING
	`, requestID, action, entryID)
	return err
}

func insertOutboxEvent(ctx context.Context, tx pgx.Tx, businessID, eventType string, entry models.WaitlistEntry) error {
	payload := map[string]interface{}{
		"entry_id":    entry.ID,
		"waitlist_id": entry.WaitlistID,
		"business_id": businessID,
		"position":    entry.Position,
		"status":      entry.Status,
		"created_at":  entry.CreatedAt,
	}
	if entry.UserID != nil {
		payload["user_id"] = *entry.UserID
	}
	if entry.Profile != nil {
		payload["name"] = entry.Profile.Name
		if entry.Profile.Phone != "" {
			payload["phone"] = entry.Profile.Phone
		}
		if entry.Profile.Email != "" {
			payload["email"] = entry.Profile.Email
		}
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO outbox_events (event_id, business_id, type, payload_json, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.NewString(), businessID, eventType, payloadJSON, time.Now().UTC())
	return err
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
