package di

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wafflestudio/moiming-web/backend-event/internal/domain"
	"github.com/wafflestudio/moiming-web/backend-event/internal/dto"
	"github.com/wafflestudio/moiming-web/backend-event/internal/repository"
	"github.com/wafflestudio/moiming-web/backend-event/internal/service"
	"github.com/wafflestudio/moiming-web/pkg/kafka"
	"github.com/wafflestudio/moiming-web/pkg/middleware"
)

func TestNewContainer_MemoryStore(t *testing.T) {
	c := NewContainer(&ContainerConfig{
		JWT:         &middleware.JWTConfig{Secret: "secret", TTL: time.Hour},
		ServiceName: "backend-event",
	})

	assert.IsType(t, &repository.MemoryStore{}, c.Locker)
	assert.IsType(t, &service.LocalNotifier{}, c.Notifier)
	assert.Equal(t, kafka.NopPublisher{}, c.Publisher)
	assert.NotNil(t, c.HealthHandler)
	assert.NotNil(t, c.RegistrationHandler)

	ctx := context.Background()
	auth, err := c.AuthService.Signup(ctx, &dto.SignupRequest{Email: "host@example.com", Password: "password123", Name: "Host"})
	require.NoError(t, err)

	event, err := c.EventService.CreateEvent(ctx, auth.User.ID, &dto.CreateEventRequest{Title: "Picnic", Capacity: 1})
	require.NoError(t, err)

	reg, err := c.RegistrationService.Apply(ctx, event.PublicID, service.Requester{}, &dto.ApplyRequest{GuestName: "Ann", GuestEmail: "ann@example.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, reg.Status)
}
