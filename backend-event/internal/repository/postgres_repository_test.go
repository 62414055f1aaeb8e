package repository

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wafflestudio/moiming-web/backend-event/internal/domain"
	"github.com/wafflestudio/moiming-web/backend-event/migrations"
	"github.com/wafflestudio/moiming-web/pkg/database"
)

func skipIfNoIntegration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run.")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func setupTestDB(t *testing.T) *database.PostgresDB {
	skipIfNoIntegration(t)
	ctx := context.Background()

	cfg := database.DefaultPostgresConfig()
	cfg.Host = getEnv("POSTGRES_HOST", cfg.Host)
	if port, err := strconv.Atoi(getEnv("POSTGRES_PORT", "")); err == nil {
		cfg.Port = port
	}
	cfg.User = getEnv("POSTGRES_USER", cfg.User)
	cfg.Password = getEnv("POSTGRES_PASSWORD", cfg.Password)
	cfg.Database = getEnv("POSTGRES_DB", cfg.Database)
	cfg.MaxConns = 20
	cfg.MinConns = 1

	db, err := database.NewPostgres(ctx, cfg)
	require.NoError(t, err, "failed to connect to database")
	require.NoError(t, migrations.Up(ctx, db.Pool()))
	t.Cleanup(db.Close)
	return db
}

func createHostAndEvent(t *testing.T, db *database.PostgresDB, capacity int, waitlist bool) (*domain.User, *domain.Event) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	host := &domain.User{
		Email:        fmt.Sprintf("host-%s@example.com", uuid.NewString()),
		PasswordHash: "x",
		Name:         "Host",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, NewPostgresUserRepository(db.Pool()).Create(ctx, host))

	e := &domain.Event{
		PublicID:        uuid.NewString(),
		Title:           "Integration meetup",
		Capacity:        capacity,
		WaitlistEnabled: waitlist,
		CreatedBy:       host.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, NewPostgresEventRepository(db.Pool()).Create(ctx, e))

	t.Cleanup(func() {
		_, _ = db.Pool().Exec(context.Background(), "DELETE FROM events WHERE id = $1", e.ID)
		_, _ = db.Pool().Exec(context.Background(), "DELETE FROM users WHERE id = $1", host.ID)
	})
	return host, e
}

func TestPostgresUserRepository_EmailTaken(t *testing.T) {
	db := setupTestDB(t)
	host, _ := createHostAndEvent(t, db, 1, false)
	repo := NewPostgresUserRepository(db.Pool())

	err := repo.Create(context.Background(), &domain.User{Email: host.Email, PasswordHash: "x", Name: "Dup"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	got, err := repo.GetByEmail(context.Background(), host.Email)
	require.NoError(t, err)
	assert.Equal(t, host.ID, got.ID)
}

func TestPostgresUserRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	host, _ := createHostAndEvent(t, db, 1, false)
	repo := NewPostgresUserRepository(db.Pool())
	ctx := context.Background()

	other := &domain.User{Email: "other-" + host.Email, PasswordHash: "x", Name: "Other"}
	require.NoError(t, repo.Create(ctx, other))

	host.Name = "Renamed"
	host.ProfileImage = "https://cdn.example.com/h.png"
	require.NoError(t, repo.Update(ctx, host))
	got, err := repo.GetByID(ctx, host.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, "https://cdn.example.com/h.png", got.ProfileImage)

	host.ProfileImage = ""
	require.NoError(t, repo.Update(ctx, host))
	got, err = repo.GetByID(ctx, host.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ProfileImage)

	host.Email = other.Email
	assert.ErrorIs(t, repo.Update(ctx, host), domain.ErrEmailTaken)
	assert.ErrorIs(t, repo.Update(ctx, &domain.User{ID: -1, Email: "nobody@example.com"}), domain.ErrUserNotFound)
}

func TestPostgresEventLocker_ConcurrentApplyRespectsCapacity(t *testing.T) {
	db := setupTestDB(t)
	_, e := createHostAndEvent(t, db, 3, true)
	locker := NewPostgresEventLocker(db.Pool())

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := locker.WithEventLock(context.Background(), e.PublicID, func(tx EventTx) error {
				regs, err := tx.Registrations(context.Background())
				if err != nil {
					return err
				}
				roster := domain.NewRoster(tx.Event(), regs)
				now := time.Now().UTC()
				identity := domain.GuestIdentity(fmt.Sprintf("g%d@example.com", i))
				adm, err := roster.Admit(identity, now)
				if err != nil {
					return err
				}
				return tx.CreateRegistration(context.Background(), &domain.Registration{
					PublicID:         uuid.NewString(),
					EventID:          tx.Event().ID,
					GuestName:        "Guest",
					GuestEmail:       identity.Email,
					Status:           adm.Status,
					WaitlistPosition: adm.WaitlistPosition,
					CreatedAt:        now,
					UpdatedAt:        now,
				})
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := NewPostgresEventRepository(db.Pool()).GetByPublicID(context.Background(), e.PublicID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.ConfirmedCount)
	assert.Equal(t, 9, got.WaitlistCount)

	page, total, err := NewPostgresRegistrationRepository(db.Pool()).ListGuests(context.Background(), e.ID, GuestQuery{
		Status: domain.StatusWaitlisted, OrderBy: OrderRegisteredAt, Limit: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, 9, total)
	for i, reg := range page {
		assert.Equal(t, i+1, reg.WaitlistPosition, "positions must be dense and FIFO")
	}
}

func TestPostgresEventLocker_RollbackOnError(t *testing.T) {
	db := setupTestDB(t)
	_, e := createHostAndEvent(t, db, 3, false)
	locker := NewPostgresEventLocker(db.Pool())
	publicID := uuid.NewString()

	err := locker.WithEventLock(context.Background(), e.PublicID, func(tx EventTx) error {
		now := time.Now().UTC()
		if err := tx.CreateRegistration(context.Background(), &domain.Registration{
			PublicID: publicID, EventID: tx.Event().ID, GuestName: "G", GuestEmail: "g@example.com",
			Status: domain.StatusConfirmed, CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			return err
		}
		return domain.ErrEventFull
	})
	assert.ErrorIs(t, err, domain.ErrEventFull)

	reg, err := NewPostgresRegistrationRepository(db.Pool()).GetByPublicID(context.Background(), publicID)
	require.NoError(t, err)
	assert.Nil(t, reg)

	err = locker.WithEventLock(context.Background(), uuid.NewString(), func(tx EventTx) error { return nil })
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}
