package service

import (
	"context"

	"github.com/wafflestudio/moiming-web/backend-event/internal/domain"
	"github.com/wafflestudio/moiming-web/backend-event/internal/dto"
)

// Requester is who is calling: a member by UserID, an anonymous guest by the
// registration id their client holds, both, or neither.
type Requester struct {
	UserID         int64
	RegistrationID string
}

// IsMember reports whether the requester presented a valid token
func (r Requester) IsMember() bool {
	return r.UserID > 0
}

// AuthService defines the interface for member sign-up and login
type AuthService interface {
	// Signup creates a member and issues a token
	Signup(ctx context.Context, req *dto.SignupRequest) (*dto.AuthResponse, error)
	// Login verifies credentials and issues a token
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	// Me returns the member behind a token
	Me(ctx context.Context, userID int64) (*domain.User, error)
	// UpdateMe edits the member's profile, email or password
	UpdateMe(ctx context.Context, userID int64, req *dto.UpdateMeRequest) (*domain.User, error)
}

// EventService defines the interface for event business logic
type EventService interface {
	// CreateEvent creates an event hosted by hostID
	CreateEvent(ctx context.Context, hostID int64, req *dto.CreateEventRequest) (*domain.Event, error)
	// GetEventDetail resolves the event page for requester
	GetEventDetail(ctx context.Context, publicID string, requester Requester) (*dto.EventDetailResponse, error)
	// UpdateEvent applies a partial update; only the host may call it
	UpdateEvent(ctx context.Context, hostID int64, publicID string, req *dto.UpdateEventRequest) (*domain.Event, error)
	// DeleteEvent hard deletes an event; only the host may call it
	DeleteEvent(ctx context.Context, hostID int64, publicID string) error
	// ListHostedEvents lists events created by hostID
	ListHostedEvents(ctx context.Context, hostID int64) ([]*domain.Event, error)
}

// RegistrationService defines the interface for the registration lifecycle
type RegistrationService interface {
	// Apply registers requester for an event, confirmed or waitlisted
	Apply(ctx context.Context, eventPublicID string, requester Requester, req *dto.ApplyRequest) (*domain.Registration, error)
	// UpdateStatus cancels (owner) or bans (host) a registration
	UpdateStatus(ctx context.Context, registrationPublicID string, requester Requester, req *dto.UpdateRegistrationRequest) (*dto.RegistrationResponse, error)
	// GetRegistration returns a registration with its history
	GetRegistration(ctx context.Context, registrationPublicID string, requester Requester) (*dto.RegistrationResponse, error)
	// ListGuests returns one page of an event's guest list
	ListGuests(ctx context.Context, eventPublicID string, requester Requester, filter *dto.GuestListFilter) (*dto.GuestListResponse, error)
	// ListMyRegistrations lists a member's registrations
	ListMyRegistrations(ctx context.Context, userID int64) (*dto.RegistrationListResponse, error)
	// Watch returns the current state of a registration and a subscription to its changes
	Watch(ctx context.Context, registrationPublicID string, requester Requester) (*dto.WaitlistUpdate, Subscription, error)
}
