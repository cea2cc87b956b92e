package store

import "errors"

var (
	ErrWaitlistNotFound = errors.New("waitlist not found")
	ErrEntryNotFound    = errors.New("entry not found")
	ErrInvalidState     = errors.New("invalid entry state")
	ErrInvalidStatus    = errors.New("unknown status")
	ErrNoContact        = errors.New("no contact method on file")
	ErrNotifyFailed     = errors.New("notification dispatch failed")
)
