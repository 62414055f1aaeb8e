package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wafflestudio/moiming-web/backend-event/internal/domain"
	"github.com/wafflestudio/moiming-web/backend-event/internal/dto"
	"github.com/wafflestudio/moiming-web/backend-event/internal/repository"
	"github.com/wafflestudio/moiming-web/pkg/kafka"
	"github.com/wafflestudio/moiming-web/pkg/logger"
	"github.com/wafflestudio/moiming-web/pkg/telemetry"
	"go.uber.org/zap"
)

const defaultGuestPreviewMax = 5

// Deps are the collaborators shared by the event and registration services
type Deps struct {
	Users         repository.UserRepository
	Events        repository.EventRepository
	Registrations repository.RegistrationRepository
	Locker        repository.EventLocker
	Publisher     kafka.Publisher
	Notifier      Notifier
	Metrics       *telemetry.RegistrationMetrics
	// GuestPageSize is the default guest list page size
	GuestPageSize int
	// GuestPreviewMax caps the confirmed guests shown on the event page
	GuestPreviewMax int
	Now             func() time.Time
}

func (d *Deps) setDefaults() {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.GuestPageSize <= 0 {
		d.GuestPageSize = dto.DefaultGuestPageSize
	}
	if d.GuestPreviewMax <= 0 {
		d.GuestPreviewMax = defaultGuestPreviewMax
	}
	if d.Metrics == nil {
		// instruments from the global meter are no-ops until telemetry.Init
		d.Metrics, _ = telemetry.NewRegistrationMetrics()
	}
}

// eventService implements the EventService interface
type eventService struct {
	deps     Deps
	announce *announcer
}

// NewEventService creates a new EventService
func NewEventService(deps Deps) EventService {
	deps.setDefaults()
	return &eventService{
		deps:     deps,
		announce: newAnnouncer(deps.Publisher, deps.Notifier, deps.Metrics),
	}
}

// CreateEvent creates an event hosted by hostID
func (s *eventService) CreateEvent(ctx context.Context, hostID int64, req *dto.CreateEventRequest) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.create")
	defer span.End()

	if valid, msg := req.Validate(); !valid {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, msg)
	}

	event := req.ToDomain(hostID)
	if err := event.Validate(); err != nil {
		return nil, err
	}

	now := s.deps.Now()
	event.PublicID = uuid.NewString()
	event.CreatedAt = now
	event.UpdatedAt = now

	if err := s.deps.Events.Create(ctx, event); err != nil {
		telemetry.SetSpanError(ctx, err)
		return nil, err
	}

	logger.WithContext(ctx).Info("event created",
		logger.EventID(event.PublicID),
		logger.UserID(hostID),
		zap.Int("capacity", event.Capacity),
	)
	return event, nil
}

// GetEventDetail resolves the event page for requester. An unknown or foreign
// registration id degrades to an unidentified viewer instead of failing.
func (s *eventService) GetEventDetail(ctx context.Context, publicID string, requester Requester) (*dto.EventDetailResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.detail")
	defer span.End()

	event, err := s.deps.Events.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}

	creator, err := s.deps.Users.GetByID(ctx, event.CreatedBy)
	if err != nil {
		return nil, err
	}

	var memberRegs []*domain.Registration
	if requester.IsMember() && !event.IsHost(requester.UserID) {
		memberRegs, err = s.deps.Registrations.ListByEventAndUser(ctx, event.ID, requester.UserID)
		if err != nil {
			return nil, err
		}
	}

	var guestReg *domain.Registration
	if requester.RegistrationID != "" {
		guestReg, err = s.deps.Registrations.GetByPublicID(ctx, requester.RegistrationID)
		if err != nil {
			logger.WithContext(ctx).Warn("guest registration lookup failed, viewing as anonymous",
				logger.RegistrationID(requester.RegistrationID), zap.Error(err))
			guestReg = nil
		}
	}

	viewer := domain.ResolveViewer(event, requester.UserID, memberRegs, guestReg)
	view := domain.Resolve(event, viewer, s.deps.Now())
	telemetry.SetSpanAttributes(ctx, telemetry.EventIDAttr(publicID), telemetry.ViewTypeAttr(string(view.ViewType)))

	preview, _, err := s.deps.Registrations.ListGuests(ctx, event.ID, repository.GuestQuery{
		Status:  domain.StatusConfirmed,
		OrderBy: repository.OrderRegisteredAt,
		Limit:   s.deps.GuestPreviewMax,
	})
	if err != nil {
		return nil, err
	}

	resp := &dto.EventDetailResponse{
		Event:         dto.NewEventResponse(event),
		Creator:       dto.NewCreatorResponse(creator),
		Viewer:        dto.NewViewerResponse(viewer),
		ViewType:      view.ViewType,
		Capabilities:  view.Capabilities,
		GuestsPreview: make([]*dto.ParticipantResponse, 0, len(preview)),
	}
	for _, reg := range preview {
		resp.GuestsPreview = append(resp.GuestsPreview, dto.NewParticipantResponse(reg, viewer.Status == domain.ViewerHost))
	}
	return resp, nil
}

// UpdateEvent replaces the event's editable fields under the event lock. Raising capacity promotes from the waitlist.
func (s *eventService) UpdateEvent(ctx context.Context, hostID int64, publicID string, req *dto.UpdateEventRequest) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.update")
	defer span.End()

	if valid, msg := req.Validate(); !valid {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, msg)
	}

	var updated *domain.Event
	var outcome *domain.Outcome
	err := s.deps.Locker.WithEventLock(ctx, publicID, func(tx repository.EventTx) error {
		current := tx.Event()
		if !current.IsHost(hostID) {
			return domain.ErrForbidden
		}

		regs, err := tx.Registrations(ctx)
		if err != nil {
			return err
		}

		event := *current
		req.ApplyTo(&event)
		roster := domain.NewRoster(&event, regs)

		if event.Capacity < event.ConfirmedCount {
			return &domain.ValidationError{Field: "capacity", Message: "cannot be lower than the number of confirmed guests"}
		}
		if err := event.Validate(); err != nil {
			return err
		}

		now := s.deps.Now()
		event.UpdatedAt = now
		if err := tx.UpdateEvent(ctx, &event); err != nil {
			return err
		}

		outcome = roster.FillOpenSeats(now)
		if err := tx.SaveRegistrations(ctx, outcome.Changed); err != nil {
			return err
		}
		if err := tx.RecordTransitions(ctx, outcome.Transitions); err != nil {
			return err
		}
		updated = roster.Event
		return nil
	})
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		return nil, err
	}

	s.announce.changed(ctx, updated, outcome)
	logger.WithContext(ctx).Info("event updated",
		logger.EventID(publicID),
		zap.Int("capacity", updated.Capacity),
		zap.Int("promoted", len(outcome.Promoted)),
	)
	return updated, nil
}

// DeleteEvent hard deletes an event and its registrations under the event lock
func (s *eventService) DeleteEvent(ctx context.Context, hostID int64, publicID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.event.delete")
	defer span.End()

	var deleted *domain.Event
	var affected int
	err := s.deps.Locker.WithEventLock(ctx, publicID, func(tx repository.EventTx) error {
		if !tx.Event().IsHost(hostID) {
			return domain.ErrForbidden
		}
		regs, err := tx.Registrations(ctx)
		if err != nil {
			return err
		}
		roster := domain.NewRoster(tx.Event(), regs)
		affected = roster.Event.TotalApplicants()
		deleted = roster.Event
		return tx.DeleteEvent(ctx)
	})
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		return err
	}

	s.announce.deleted(ctx, deleted, affected, s.deps.Now())
	logger.WithContext(ctx).Info("event deleted", logger.EventID(publicID), zap.Int("affected", affected))
	return nil
}

// ListHostedEvents lists events created by hostID
func (s *eventService) ListHostedEvents(ctx context.Context, hostID int64) ([]*domain.Event, error) {
	return s.deps.Events.ListByHost(ctx, hostID)
}
