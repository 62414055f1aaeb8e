package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wafflestudio/moiming-web/backend-event/internal/domain"
	"github.com/wafflestudio/moiming-web/pkg/database"
)

// PostgresEventLocker serializes work on an event with a row lock held for one transaction
type PostgresEventLocker struct {
	pool *pgxpool.Pool
}

// NewPostgresEventLocker creates a new PostgresEventLocker
func NewPostgresEventLocker(pool *pgxpool.Pool) *PostgresEventLocker {
	return &PostgresEventLocker{pool: pool}
}

// WithEventLock locks the event row with SELECT ... FOR UPDATE and runs fn in the same transaction
func (l *PostgresEventLocker) WithEventLock(ctx context.Context, publicID string, fn func(tx EventTx) error) error {
	return database.WithTx(ctx, l.pool, func(tx pgx.Tx) error {
		query := `SELECT ` + eventColumns + ` FROM events e WHERE e.public_id = $1 FOR UPDATE`
		event, err := scanEvent(tx.QueryRow(ctx, query, publicID), false)
		if err != nil {
			return fmt.Errorf("failed to lock event: %w", err)
		}
		if event == nil {
			return domain.ErrEventNotFound
		}
		return fn(&postgresEventTx{tx: tx, event: event})
	})
}

type postgresEventTx struct {
	tx    pgx.Tx
	event *domain.Event
}

func (t *postgresEventTx) Event() *domain.Event {
	return t.event
}

func (t *postgresEventTx) Registrations(ctx context.Context) ([]*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + registrationFrom + `
		WHERE r.event_id = $1
		ORDER BY r.created_at, r.id`
	rows, err := t.tx.Query(ctx, query, t.event.ID)
	if err != nil {
		return nil, err
	}
	return collectRegistrations(rows)
}

func (t *postgresEventTx) CreateRegistration(ctx context.Context, reg *domain.Registration) error {
	query := `
		INSERT INTO registrations (public_id, event_id, user_id, guest_name, guest_email, status,
			waitlist_position, reservation_email, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, NULLIF($7, 0), NULLIF($8, ''), $9, $10)
		RETURNING id
	`
	err := t.tx.QueryRow(ctx, query,
		reg.PublicID,
		reg.EventID,
		reg.UserID,
		reg.GuestName,
		reg.GuestEmail,
		reg.Status,
		reg.WaitlistPosition,
		reg.ReservationEmail,
		reg.CreatedAt,
		reg.UpdatedAt,
	).Scan(&reg.ID)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateRegistration
	}
	return err
}

func (t *postgresEventTx) SaveRegistrations(ctx context.Context, regs []*domain.Registration) error {
	if len(regs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, reg := range regs {
		batch.Queue(`
			UPDATE registrations
			SET status = $2, waitlist_position = NULLIF($3, 0), updated_at = $4
			WHERE id = $1 AND event_id = $5`,
			reg.ID, reg.Status, reg.WaitlistPosition, reg.UpdatedAt, t.event.ID,
		)
	}
	return t.tx.SendBatch(ctx, batch).Close()
}

func (t *postgresEventTx) RecordTransitions(ctx context.Context, transitions []domain.Transition) error {
	if len(transitions) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(transitions))
	for _, tr := range transitions {
		rows = append(rows, []any{tr.RegistrationID, string(tr.From), string(tr.To), string(tr.Actor), tr.At})
	}
	_, err := t.tx.CopyFrom(ctx,
		pgx.Identifier{"registration_transitions"},
		[]string{"registration_id", "from_status", "to_status", "actor", "created_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (t *postgresEventTx) UpdateEvent(ctx context.Context, e *domain.Event) error {
	query := `
		UPDATE events
		SET title = $2, description = NULLIF($3, ''), location = NULLIF($4, ''), starts_at = $5, ends_at = $6,
			capacity = $7, waitlist_enabled = $8, registration_starts_at = $9, registration_ends_at = $10,
			updated_at = $11
		WHERE id = $1
	`
	_, err := t.tx.Exec(ctx, query,
		t.event.ID,
		e.Title,
		e.Description,
		e.Location,
		e.StartsAt,
		e.EndsAt,
		e.Capacity,
		e.WaitlistEnabled,
		e.RegistrationStartsAt,
		e.RegistrationEndsAt,
		e.UpdatedAt,
	)
	return err
}

func (t *postgresEventTx) DeleteEvent(ctx context.Context) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM events WHERE id = $1`, t.event.ID)
	return err
}
