package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wafflestudio/moiming-web/backend-event/internal/domain"
)

// eventColumns selects an event row aliased as e
const eventColumns = `e.id, e.public_id, e.title, COALESCE(e.description, ''), COALESCE(e.location, ''),
	e.starts_at, e.ends_at, e.capacity, e.waitlist_enabled,
	e.registration_starts_at, e.registration_ends_at,
	e.created_by, e.created_at, e.updated_at`

// eventCounts derives the confirmed and waitlisted counts
const eventCounts = `,
	(SELECT COUNT(*) FROM registrations r WHERE r.event_id = e.id AND r.status = 'CONFIRMED'),
	(SELECT COUNT(*) FROM registrations r WHERE r.event_id = e.id AND r.status = 'WAITLISTED')`

// PostgresEventRepository implements EventRepository using PostgreSQL
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new PostgresEventRepository
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

func eventDest(e *domain.Event) []any {
	return []any{
		&e.ID,
		&e.PublicID,
		&e.Title,
		&e.Description,
		&e.Location,
		&e.StartsAt,
		&e.EndsAt,
		&e.Capacity,
		&e.WaitlistEnabled,
		&e.RegistrationStartsAt,
		&e.RegistrationEndsAt,
		&e.CreatedBy,
		&e.CreatedAt,
		&e.UpdatedAt,
	}
}

// scanEvent scans a row selected with eventColumns and, if withCounts, eventCounts
func scanEvent(row pgx.Row, withCounts bool) (*domain.Event, error) {
	e := &domain.Event{}
	dest := eventDest(e)
	if withCounts {
		dest = append(dest, &e.ConfirmedCount, &e.WaitlistCount)
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// Create creates a new event
func (r *PostgresEventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (public_id, title, description, location, starts_at, ends_at, capacity,
			waitlist_enabled, registration_starts_at, registration_ends_at, created_by, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	return r.pool.QueryRow(ctx, query,
		e.PublicID,
		e.Title,
		e.Description,
		e.Location,
		e.StartsAt,
		e.EndsAt,
		e.Capacity,
		e.WaitlistEnabled,
		e.RegistrationStartsAt,
		e.RegistrationEndsAt,
		e.CreatedBy,
		e.CreatedAt,
		e.UpdatedAt,
	).Scan(&e.ID)
}

// GetByPublicID retrieves an event by its public id
func (r *PostgresEventRepository) GetByPublicID(ctx context.Context, publicID string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + eventCounts + ` FROM events e WHERE e.public_id = $1`
	return scanEvent(r.pool.QueryRow(ctx, query, publicID), true)
}

// GetByID retrieves an event by internal id
func (r *PostgresEventRepository) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + eventCounts + ` FROM events e WHERE e.id = $1`
	return scanEvent(r.pool.QueryRow(ctx, query, id), true)
}

// ListByHost lists events created by hostID
func (r *PostgresEventRepository) ListByHost(ctx context.Context, hostID int64) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + eventCounts + ` FROM events e
		WHERE e.created_by = $1
		ORDER BY e.created_at DESC, e.id DESC`
	rows, err := r.pool.Query(ctx, query, hostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		e := &domain.Event{}
		dest := append(eventDest(e), &e.ConfirmedCount, &e.WaitlistCount)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
