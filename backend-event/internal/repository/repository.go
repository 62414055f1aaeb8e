package repository

import (
	"context"

	"github.com/wafflestudio/moiming-web/backend-event/internal/domain"
)

// GuestOrder is the sort key of a guest list page
type GuestOrder string

const (
	OrderRegisteredAt GuestOrder = "registeredAt"
	OrderName         GuestOrder = "name"
)

// GuestQuery selects one keyset page of an event's registrations.
// AfterKey/AfterID are the sort value and id of the last row already returned.
type GuestQuery struct {
	Status   domain.RegistrationStatus
	OrderBy  GuestOrder
	AfterKey string
	AfterID  int64
	Limit    int
}

// UserRepository defines the interface for member data access
type UserRepository interface {
	// Create creates a new user and assigns its ID
	Create(ctx context.Context, user *domain.User) error
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// GetByEmail retrieves a user by case-insensitive email
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Update overwrites a user's profile and password hash
	Update(ctx context.Context, user *domain.User) error
}

// EventRepository defines read access to events. Writes that affect
// registrations go through EventLocker.
type EventRepository interface {
	// Create creates a new event and assigns its ID
	Create(ctx context.Context, event *domain.Event) error
	// GetByPublicID retrieves an event with its derived counts
	GetByPublicID(ctx context.Context, publicID string) (*domain.Event, error)
	// GetByID retrieves an event with its derived counts
	GetByID(ctx context.Context, id int64) (*domain.Event, error)
	// ListByHost lists events created by hostID, newest first
	ListByHost(ctx context.Context, hostID int64) ([]*domain.Event, error)
}

// RegistrationRepository defines read access to registrations
type RegistrationRepository interface {
	// GetByPublicID retrieves a registration by its public id
	GetByPublicID(ctx context.Context, publicID string) (*domain.Registration, error)
	// ListByEventAndUser lists a member's registrations for one event
	ListByEventAndUser(ctx context.Context, eventID, userID int64) ([]*domain.Registration, error)
	// ListByUser lists a member's registrations across events, newest first
	ListByUser(ctx context.Context, userID int64) ([]*domain.Registration, error)
	// ListGuests returns one page and the total count matching q.Status
	ListGuests(ctx context.Context, eventID int64, q GuestQuery) ([]*domain.Registration, int, error)
	// ListTransitions returns a registration's status history, oldest first
	ListTransitions(ctx context.Context, registrationID int64) ([]domain.Transition, error)
}

// EventTx is the view of one event while its lock is held
type EventTx interface {
	// Event returns the locked event
	Event() *domain.Event
	// Registrations loads every registration of the locked event
	Registrations(ctx context.Context) ([]*domain.Registration, error)
	// CreateRegistration inserts reg and assigns its ID
	CreateRegistration(ctx context.Context, reg *domain.Registration) error
	// SaveRegistrations persists status and waitlist position of regs
	SaveRegistrations(ctx context.Context, regs []*domain.Registration) error
	// RecordTransitions appends to the status history
	RecordTransitions(ctx context.Context, transitions []domain.Transition) error
	// UpdateEvent persists the locked event's mutable fields
	UpdateEvent(ctx context.Context, event *domain.Event) error
	// DeleteEvent hard deletes the locked event and its registrations
	DeleteEvent(ctx context.Context) error
}

// EventLocker serializes apply, cancel, ban, promote, update and delete per event.
// fn runs atomically; returning an error discards its writes.
type EventLocker interface {
	WithEventLock(ctx context.Context, publicID string, fn func(tx EventTx) error) error
}
