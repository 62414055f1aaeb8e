package domain

import (
	"strings"
	"time"
)

const (
	MaxTitleLength    = 100
	MaxCapacity       = 10000
	MaxLocationLength = 200
)

// Event is a gathering with an optional registration window and a fixed capacity
type Event struct {
	ID                   int64      `json:"-"`
	PublicID             string     `json:"publicId"`
	Title                string     `json:"title"`
	Description          string     `json:"description,omitempty"`
	Location             string     `json:"location,omitempty"`
	StartsAt             *time.Time `json:"startsAt,omitempty"`
	EndsAt               *time.Time `json:"endsAt,omitempty"`
	Capacity             int        `json:"capacity"`
	WaitlistEnabled      bool       `json:"waitlistEnabled"`
	RegistrationStartsAt *time.Time `json:"registrationStartsAt,omitempty"`
	RegistrationEndsAt   *time.Time `json:"registrationEndsAt,omitempty"`
	ConfirmedCount       int        `json:"confirmedCount"`
	WaitlistCount        int        `json:"waitlistCount"`
	CreatedBy            int64      `json:"-"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// Validate checks the event configuration and reports the first offending field
func (e *Event) Validate() error {
	title := strings.TrimSpace(e.Title)
	if title == "" {
		return invalid("title", "is required")
	}
	if len([]rune(title)) > MaxTitleLength {
		return invalid("title", "is too long")
	}
	if len([]rune(e.Location)) > MaxLocationLength {
		return invalid("location", "is too long")
	}
	if e.Capacity < 1 {
		return invalid("capacity", "must be at least 1")
	}
	if e.Capacity > MaxCapacity {
		return invalid("capacity", "is too large")
	}
	if e.StartsAt != nil && e.EndsAt != nil && !e.EndsAt.After(*e.StartsAt) {
		return invalid("endsAt", "must be after startsAt")
	}
	if e.RegistrationStartsAt != nil && e.RegistrationEndsAt != nil &&
		!e.RegistrationEndsAt.After(*e.RegistrationStartsAt) {
		return invalid("registrationEndsAt", "must be after registrationStartsAt")
	}
	if e.RegistrationEndsAt != nil && e.StartsAt != nil && e.RegistrationEndsAt.After(*e.StartsAt) {
		return invalid("registrationEndsAt", "must not be after startsAt")
	}
	return nil
}

// IsRegistrationOpen reports whether now falls inside the registration window.
// Both bounds are inclusive and an absent bound is unbounded.
func (e *Event) IsRegistrationOpen(now time.Time) bool {
	if e.RegistrationStartsAt != nil && now.Before(*e.RegistrationStartsAt) {
		return false
	}
	if e.RegistrationEndsAt != nil && now.After(*e.RegistrationEndsAt) {
		return false
	}
	return true
}

// TotalApplicants counts active registrations, confirmed and waitlisted
func (e *Event) TotalApplicants() int {
	return e.ConfirmedCount + e.WaitlistCount
}

// IsFull counts confirmed registrations only
func (e *Event) IsFull() bool {
	return e.ConfirmedCount >= e.Capacity
}

// IsHost reports whether userID created the event
func (e *Event) IsHost(userID int64) bool {
	return userID > 0 && e.CreatedBy == userID
}

// RegistrationNotYetOpen is true before registrationStartsAt
func (e *Event) RegistrationNotYetOpen(now time.Time) bool {
	return e.RegistrationStartsAt != nil && now.Before(*e.RegistrationStartsAt)
}

// RegistrationEnded is true after registrationEndsAt
func (e *Event) RegistrationEnded(now time.Time) bool {
	return e.RegistrationEndsAt != nil && now.After(*e.RegistrationEndsAt)
}
