package models

import "time"

type WaitlistEntry struct {
	ID                string    `json:"id"`
	WaitlistID        string    `json:"waitlist_id"`
	UserID            *string   `json:"user_id,omitempty"`
	Position          int       `json:"position"`
	Status            string    `json:"status"`
	EstimatedWaitTime *int      `json:"estimated_wait_time,omitempty"`
	Notes             string    `json:"notes"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	Profile           *Profile  `json:"profiles,omitempty"`
}

type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type Waitlist struct {
	ID          string    `json:"id"`
	BusinessID  string    `json:"business_id"`
	Name        string    `json:"name"`
	MaxCapacity int       `json:"max_capacity"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

type Subscription struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"business_id"`
	Plan       string    `json:"plan"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	StatusWaiting   = "waiting"
	StatusNotified  = "notified"
	StatusSeated    = "seated"
	StatusCancelled = "cancelled"
)

const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)
