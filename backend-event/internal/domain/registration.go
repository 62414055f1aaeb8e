package domain

import (
	"fmt"
	"strings"
	"time"
)

// RegistrationStatus is the lifecycle state of a registration
type RegistrationStatus string

const (
	StatusConfirmed  RegistrationStatus = "CONFIRMED"
	StatusWaitlisted RegistrationStatus = "WAITLISTED"
	StatusCanceled   RegistrationStatus = "CANCELED"
	StatusBanned     RegistrationStatus = "BANNED"
)

// Actor identifies who drives a transition
type Actor string

const (
	ActorOwner  Actor = "OWNER"
	ActorHost   Actor = "HOST"
	ActorSystem Actor = "SYSTEM"
)

// validTransitions maps current state to the allowed next states and the only actor allowed to move there
var validTransitions = map[RegistrationStatus]map[RegistrationStatus]Actor{
	StatusConfirmed: {
		StatusCanceled: ActorOwner,
		StatusBanned:   ActorHost,
	},
	StatusWaitlisted: {
		StatusCanceled:  ActorOwner,
		StatusBanned:    ActorHost,
		StatusConfirmed: ActorSystem,
	},
	StatusCanceled: {}, // Terminal state
	StatusBanned:   {}, // Terminal state
}

// ParseRegistrationStatus accepts the upper or lower case wire form
func ParseRegistrationStatus(s string) (RegistrationStatus, error) {
	status := RegistrationStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", invalid("status", fmt.Sprintf("unknown registration status %q", s))
	}
	return status, nil
}

// IsValid returns true if the status is a known registration status
func (s RegistrationStatus) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// IsActive is true for statuses that hold a seat or a waitlist spot
func (s RegistrationStatus) IsActive() bool {
	return s == StatusConfirmed || s == StatusWaitlisted
}

// IsTerminal returns true if no transition leaves the status
func (s RegistrationStatus) IsTerminal() bool {
	return s == StatusCanceled || s == StatusBanned
}

// CanTransitionTo returns true if actor may move a registration from s to target
func (s RegistrationStatus) CanTransitionTo(target RegistrationStatus, actor Actor) bool {
	allowed, exists := validTransitions[s][target]
	return exists && allowed == actor
}

// Registration is one guest's participation record for an event.
// Exactly one of UserID or GuestEmail identifies the owner.
type Registration struct {
	ID               int64              `json:"-"`
	PublicID         string             `json:"registrationPublicId"`
	EventID          int64              `json:"-"`
	UserID           *int64             `json:"-"`
	GuestName        string             `json:"guestName,omitempty"`
	GuestEmail       string             `json:"guestEmail,omitempty"`
	Status           RegistrationStatus `json:"status"`
	WaitlistPosition int                `json:"waitlistPosition,omitempty"`
	ReservationEmail string             `json:"reservationEmail,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`

	// Member display fields, filled from the users table on read
	MemberName  string `json:"-"`
	MemberEmail string `json:"-"`
}

// IsAnonymous reports whether the registration belongs to a guest without an account
func (r *Registration) IsAnonymous() bool {
	return r.UserID == nil
}

// Identity returns the owner identity used for duplicate detection
func (r *Registration) Identity() Identity {
	if r.UserID != nil {
		return MemberIdentity(*r.UserID)
	}
	return GuestIdentity(r.GuestEmail)
}

// DisplayName is the member name, or the guest name for anonymous registrations
func (r *Registration) DisplayName() string {
	if r.IsAnonymous() {
		return r.GuestName
	}
	return r.MemberName
}

// ContactEmail is where confirmation mail goes
func (r *Registration) ContactEmail() string {
	if r.ReservationEmail != "" {
		return r.ReservationEmail
	}
	if r.IsAnonymous() {
		return r.GuestEmail
	}
	return r.MemberEmail
}

// TransitionTo moves the registration to target on behalf of actor and returns the history record
func (r *Registration) TransitionTo(target RegistrationStatus, actor Actor, now time.Time) (Transition, error) {
	if !r.Status.CanTransitionTo(target, actor) {
		return Transition{}, fmt.Errorf("%w: %s cannot move %s to %s",
			ErrInvalidTransition, strings.ToLower(string(actor)), r.Status, target)
	}

	t := Transition{
		RegistrationID: r.ID,
		From:           r.Status,
		To:             target,
		Actor:          actor,
		At:             now,
	}

	r.Status = target
	r.UpdatedAt = now
	if target != StatusWaitlisted {
		r.WaitlistPosition = 0
	}
	return t, nil
}

// Transition is one recorded status change
type Transition struct {
	ID             int64              `json:"-"`
	RegistrationID int64              `json:"-"`
	From           RegistrationStatus `json:"from"`
	To             RegistrationStatus `json:"to"`
	Actor          Actor              `json:"actor"`
	At             time.Time          `json:"at"`
}

// Identity is who applies: a member by user id or an anonymous guest by email
type Identity struct {
	UserID int64
	Email  string
}

// MemberIdentity identifies a logged in user
func MemberIdentity(userID int64) Identity {
	return Identity{UserID: userID}
}

// GuestIdentity identifies an anonymous guest by case-insensitive email
func GuestIdentity(email string) Identity {
	return Identity{Email: NormalizeEmail(email)}
}

// IsMember reports whether the identity is a logged in user
func (i Identity) IsMember() bool {
	return i.UserID > 0
}

// IsZero reports whether the identity names nobody
func (i Identity) IsZero() bool {
	return i.UserID == 0 && i.Email == ""
}

// NormalizeEmail lower-cases and trims an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
