package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wafflestudio/moiming-web/backend-event/internal/domain"
)

// registrationColumns selects a registration aliased as r joined to its member as u
const registrationColumns = `r.id, r.public_id, r.event_id, r.user_id,
	COALESCE(r.guest_name, ''), COALESCE(r.guest_email, ''), r.status,
	COALESCE(r.waitlist_position, 0), COALESCE(r.reservation_email, ''),
	r.created_at, r.updated_at, COALESCE(u.name, ''), COALESCE(u.email, '')`

const registrationFrom = ` FROM registrations r LEFT JOIN users u ON u.id = r.user_id`

// displayNameExpr is the guest list's name sort key
const displayNameExpr = `COALESCE(u.name, r.guest_name, '')`

// PostgresRegistrationRepository implements RegistrationRepository using PostgreSQL
type PostgresRegistrationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRegistrationRepository creates a new PostgresRegistrationRepository
func NewPostgresRegistrationRepository(pool *pgxpool.Pool) *PostgresRegistrationRepository {
	return &PostgresRegistrationRepository{pool: pool}
}

func registrationDest(reg *domain.Registration) []any {
	return []any{
		&reg.ID,
		&reg.PublicID,
		&reg.EventID,
		&reg.UserID,
		&reg.GuestName,
		&reg.GuestEmail,
		&reg.Status,
		&reg.WaitlistPosition,
		&reg.ReservationEmail,
		&reg.CreatedAt,
		&reg.UpdatedAt,
		&reg.MemberName,
		&reg.MemberEmail,
	}
}

func collectRegistrations(rows pgx.Rows) ([]*domain.Registration, error) {
	defer rows.Close()
	var regs []*domain.Registration
	for rows.Next() {
		reg := &domain.Registration{}
		if err := rows.Scan(registrationDest(reg)...); err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

// GetByPublicID retrieves a registration by its public id
func (r *PostgresRegistrationRepository) GetByPublicID(ctx context.Context, publicID string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + registrationFrom + ` WHERE r.public_id = $1`
	reg := &domain.Registration{}
	if err := r.pool.QueryRow(ctx, query, publicID).Scan(registrationDest(reg)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return reg, nil
}

// ListByEventAndUser lists a member's registrations for one event
func (r *PostgresRegistrationRepository) ListByEventAndUser(ctx context.Context, eventID, userID int64) ([]*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + registrationFrom + `
		WHERE r.event_id = $1 AND r.user_id = $2
		ORDER BY r.created_at, r.id`
	rows, err := r.pool.Query(ctx, query, eventID, userID)
	if err != nil {
		return nil, err
	}
	return collectRegistrations(rows)
}

// ListByUser lists a member's registrations across events
func (r *PostgresRegistrationRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + registrationFrom + `
		WHERE r.user_id = $1
		ORDER BY r.created_at DESC, r.id DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return collectRegistrations(rows)
}

// ListGuests returns a keyset page of an event's registrations with the given status
func (r *PostgresRegistrationRepository) ListGuests(ctx context.Context, eventID int64, q GuestQuery) ([]*domain.Registration, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status = $2`
	if err := r.pool.QueryRow(ctx, countQuery, eventID, q.Status).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortExpr := "r.created_at"
	if q.OrderBy == OrderName {
		sortExpr = displayNameExpr
	}

	args := []any{eventID, q.Status}
	query := `SELECT ` + registrationColumns + registrationFrom + `
		WHERE r.event_id = $1 AND r.status = $2`

	if q.AfterID > 0 {
		var after any = q.AfterKey
		if q.OrderBy != OrderName {
			t, err := time.Parse(time.RFC3339Nano, q.AfterKey)
			if err != nil {
				return nil, 0, fmt.Errorf("%w: bad cursor", domain.ErrValidation)
			}
			after = t
		}
		args = append(args, after, q.AfterID)
		query += fmt.Sprintf(` AND (%s, r.id) > ($3, $4)`, sortExpr)
	}

	args = append(args, q.Limit)
	query += fmt.Sprintf(` ORDER BY %s, r.id LIMIT $%d`, sortExpr, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	regs, err := collectRegistrations(rows)
	if err != nil {
		return nil, 0, err
	}
	return regs, total, nil
}

// ListTransitions returns a registration's status history
func (r *PostgresRegistrationRepository) ListTransitions(ctx context.Context, registrationID int64) ([]domain.Transition, error) {
	query := `
		SELECT id, registration_id, from_status, to_status, actor, created_at
		FROM registration_transitions
		WHERE registration_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, registrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transitions []domain.Transition
	for rows.Next() {
		var t domain.Transition
		if err := rows.Scan(&t.ID, &t.RegistrationID, &t.From, &t.To, &t.Actor, &t.At); err != nil {
			return nil, err
		}
		transitions = append(transitions, t)
	}
	return transitions, rows.Err()
}
