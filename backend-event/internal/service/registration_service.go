package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wafflestudio/moiming-web/backend-event/internal/domain"
	"github.com/wafflestudio/moiming-web/backend-event/internal/dto"
	"github.com/wafflestudio/moiming-web/backend-event/internal/repository"
	"github.com/wafflestudio/moiming-web/pkg/logger"
	"github.com/wafflestudio/moiming-web/pkg/telemetry"
	"go.uber.org/zap"
)

// registrationService implements the RegistrationService interface
type registrationService struct {
	deps     Deps
	announce *announcer
}

// NewRegistrationService creates a new RegistrationService
func NewRegistrationService(deps Deps) RegistrationService {
	deps.setDefaults()
	return &registrationService{
		deps:     deps,
		announce: newAnnouncer(deps.Publisher, deps.Notifier, deps.Metrics),
	}
}

// rejectionOutcome names a refused apply for metrics
func rejectionOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrRegistrationClosed):
		return "closed"
	case errors.Is(err, domain.ErrDuplicateRegistration):
		return "duplicate"
	case errors.Is(err, domain.ErrEventFull):
		return "full"
	case errors.Is(err, domain.ErrRegistrationBanned):
		return "banned"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrEventNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// Apply registers requester for an event. Admission runs under the event lock,
// so concurrent applies for the last seat cannot both be confirmed.
func (s *registrationService) Apply(ctx context.Context, eventPublicID string, requester Requester, req *dto.ApplyRequest) (*domain.Registration, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.registration.apply")
	defer span.End()
	telemetry.SetSpanAttributes(ctx, telemetry.EventIDAttr(eventPublicID))

	anonymous := !requester.IsMember()
	if valid, msg := req.Validate(anonymous); !valid {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, msg)
	}

	template := &domain.Registration{ReservationEmail: strings.TrimSpace(req.ReservationEmail)}
	var identity domain.Identity
	if anonymous {
		identity = domain.GuestIdentity(req.GuestEmail)
		template.GuestName = strings.TrimSpace(req.GuestName)
		template.GuestEmail = identity.Email
	} else {
		user, err := s.deps.Users.GetByID(ctx, requester.UserID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, domain.ErrUnauthorized
		}
		identity = domain.MemberIdentity(user.ID)
		uid := user.ID
		template.UserID = &uid
		template.MemberName = user.Name
		template.MemberEmail = user.Email
	}

	var created *domain.Registration
	var event *domain.Event
	waitStart := time.Now()
	err := s.deps.Locker.WithEventLock(ctx, eventPublicID, func(tx repository.EventTx) error {
		s.deps.Metrics.LockWaitMilli.Record(ctx, float64(time.Since(waitStart).Microseconds())/1000)

		regs, err := tx.Registrations(ctx)
		if err != nil {
			return err
		}
		roster := domain.NewRoster(tx.Event(), regs)

		now := s.deps.Now()
		admission, err := roster.Admit(identity, now)
		if err != nil {
			return err
		}

		reg := *template
		reg.PublicID = uuid.NewString()
		reg.EventID = roster.Event.ID
		reg.Status = admission.Status
		reg.WaitlistPosition = admission.WaitlistPosition
		reg.CreatedAt = now
		reg.UpdatedAt = now
		if err := tx.CreateRegistration(ctx, &reg); err != nil {
			return err
		}

		roster.Add(&reg)
		created = &reg
		event = roster.Event
		return nil
	})
	if err != nil {
		s.announce.rejected(ctx, rejectionOutcome(err))
		telemetry.SetSpanError(ctx, err)
		return nil, err
	}

	s.announce.applied(ctx, event, created)
	logger.WithContext(ctx).Info("registration created",
		logger.EventID(eventPublicID),
		logger.RegistrationID(created.PublicID),
		zap.String("status", string(created.Status)),
		zap.Int("waitlist_position", created.WaitlistPosition),
		zap.Bool("anonymous", anonymous),
	)
	return created, nil
}

// canManage reports whether requester owns reg. Anonymous registrations are
// owned by whoever holds their id; member registrations need the member's token.
func canManage(reg *domain.Registration, requester Requester) bool {
	if reg.UserID != nil {
		return requester.UserID == *reg.UserID
	}
	return requester.RegistrationID == reg.PublicID
}

// load returns the registration and its event, or not found
func (s *registrationService) load(ctx context.Context, registrationPublicID string) (*domain.Registration, *domain.Event, error) {
	reg, err := s.deps.Registrations.GetByPublicID(ctx, registrationPublicID)
	if err != nil {
		return nil, nil, err
	}
	if reg == nil {
		return nil, nil, domain.ErrRegistrationNotFound
	}
	event, err := s.deps.Events.GetByID(ctx, reg.EventID)
	if err != nil {
		return nil, nil, err
	}
	if event == nil {
		return nil, nil, domain.ErrRegistrationNotFound
	}
	return reg, event, nil
}

// UpdateStatus cancels (owner) or bans (host) a registration and runs the
// resulting promotion and renumbering in the same locked unit of work
func (s *registrationService) UpdateStatus(ctx context.Context, registrationPublicID string, requester Requester, req *dto.UpdateRegistrationRequest) (*dto.RegistrationResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.registration.update_status")
	defer span.End()
	telemetry.SetSpanAttributes(ctx, telemetry.RegistrationIDAttr(registrationPublicID))

	if valid, msg := req.Validate(); !valid {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, msg)
	}
	target := req.TargetStatus()

	reg, event, err := s.load(ctx, registrationPublicID)
	if err != nil {
		return nil, err
	}

	var actor domain.Actor
	switch target {
	case domain.StatusCanceled:
		if !canManage(reg, requester) {
			return nil, domain.ErrForbidden
		}
		actor = domain.ActorOwner
	case domain.StatusBanned:
		if !event.IsHost(requester.UserID) {
			return nil, domain.ErrForbidden
		}
		actor = domain.ActorHost
	default:
		return nil, fmt.Errorf("%w: status must be CANCELED or BANNED", domain.ErrValidation)
	}

	var updated *domain.Registration
	var outcome *domain.Outcome
	err = s.deps.Locker.WithEventLock(ctx, event.PublicID, func(tx repository.EventTx) error {
		regs, err := tx.Registrations(ctx)
		if err != nil {
			return err
		}
		roster := domain.NewRoster(tx.Event(), regs)

		out, err := roster.Transition(reg.ID, target, actor, s.deps.Now())
		if err != nil {
			return err
		}
		if err := tx.SaveRegistrations(ctx, out.Changed); err != nil {
			return err
		}
		if err := tx.RecordTransitions(ctx, out.Transitions); err != nil {
			return err
		}

		updated = roster.Find(reg.ID)
		outcome = out
		event = roster.Event
		return nil
	})
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		return nil, err
	}

	s.announce.changed(ctx, event, outcome)
	logger.WithContext(ctx).Info("registration status changed",
		logger.EventID(event.PublicID),
		logger.RegistrationID(registrationPublicID),
		zap.String("status", string(target)),
		zap.String("actor", string(actor)),
		zap.Int("promoted", len(outcome.Promoted)),
	)

	history, err := s.deps.Registrations.ListTransitions(ctx, updated.ID)
	if err != nil {
		return nil, err
	}
	return dto.NewRegistrationResponse(updated, event, history), nil
}

// GetRegistration returns a registration with its history to its owner or the host
func (s *registrationService) GetRegistration(ctx context.Context, registrationPublicID string, requester Requester) (*dto.RegistrationResponse, error) {
	reg, event, err := s.load(ctx, registrationPublicID)
	if err != nil {
		return nil, err
	}

	// the path id is the credential for anonymous registrations
	if !reg.IsAnonymous() && !canManage(reg, requester) && !event.IsHost(requester.UserID) {
		return nil, domain.ErrForbidden
	}

	history, err := s.deps.Registrations.ListTransitions(ctx, reg.ID)
	if err != nil {
		return nil, err
	}
	return dto.NewRegistrationResponse(reg, event, history), nil
}

// ListGuests returns one page of the guest list. Only the host may list
// statuses other than CONFIRMED or see contact details.
func (s *registrationService) ListGuests(ctx context.Context, eventPublicID string, requester Requester, filter *dto.GuestListFilter) (*dto.GuestListResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.registration.list_guests")
	defer span.End()

	filter.SetDefaults(s.deps.GuestPageSize)
	if valid, msg := filter.Validate(); !valid {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, msg)
	}
	status, _ := domain.ParseRegistrationStatus(filter.Status)

	event, err := s.deps.Events.GetByPublicID(ctx, eventPublicID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}

	isHost := event.IsHost(requester.UserID)
	if status != domain.StatusConfirmed && !isHost {
		return nil, domain.ErrForbidden
	}

	q := repository.GuestQuery{
		Status:  status,
		OrderBy: repository.GuestOrder(filter.OrderBy),
		Limit:   filter.Limit + 1,
	}
	if filter.Cursor != "" {
		cursor, _ := dto.DecodeCursor(filter.Cursor)
		q.AfterKey, q.AfterID = cursor.Key, cursor.ID
	}

	regs, total, err := s.deps.Registrations.ListGuests(ctx, event.ID, q)
	if err != nil {
		return nil, err
	}

	resp := &dto.GuestListResponse{
		Participants: make([]*dto.ParticipantResponse, 0, min(len(regs), filter.Limit)),
		TotalCount:   total,
	}
	if len(regs) > filter.Limit {
		regs = regs[:filter.Limit]
		resp.HasNext = true
	}
	for _, reg := range regs {
		resp.Participants = append(resp.Participants, dto.NewParticipantResponse(reg, isHost))
	}
	if resp.HasNext {
		last := regs[len(regs)-1]
		key := last.CreatedAt.UTC().Format(time.RFC3339Nano)
		if q.OrderBy == repository.OrderName {
			key = last.DisplayName()
		}
		resp.NextCursor = dto.EncodeCursor(dto.Cursor{Key: key, ID: last.ID})
	}
	return resp, nil
}

// ListMyRegistrations lists a member's registrations with their events
func (s *registrationService) ListMyRegistrations(ctx context.Context, userID int64) (*dto.RegistrationListResponse, error) {
	regs, err := s.deps.Registrations.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	events := make(map[int64]*domain.Event)
	resp := &dto.RegistrationListResponse{Registrations: make([]*dto.RegistrationResponse, 0, len(regs))}
	for _, reg := range regs {
		event, ok := events[reg.EventID]
		if !ok {
			event, err = s.deps.Events.GetByID(ctx, reg.EventID)
			if err != nil {
				return nil, err
			}
			events[reg.EventID] = event
		}
		if event == nil {
			continue
		}
		resp.Registrations = append(resp.Registrations, dto.NewRegistrationResponse(reg, event, nil))
	}
	return resp, nil
}

// Watch subscribes before reading the current state so no update between the two is lost
func (s *registrationService) Watch(ctx context.Context, registrationPublicID string, requester Requester) (*dto.WaitlistUpdate, Subscription, error) {
	reg, event, err := s.load(ctx, registrationPublicID)
	if err != nil {
		return nil, nil, err
	}
	if !reg.IsAnonymous() && !canManage(reg, requester) {
		return nil, nil, domain.ErrForbidden
	}

	sub, err := s.announce.notifier.Subscribe(ctx, registrationPublicID)
	if err != nil {
		return nil, nil, err
	}

	reg, event, err = s.load(ctx, registrationPublicID)
	if err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	current := &dto.WaitlistUpdate{
		RegistrationID:   reg.PublicID,
		Status:           reg.Status,
		WaitlistPosition: reg.WaitlistPosition,
		ConfirmedCount:   event.ConfirmedCount,
		WaitlistCount:    event.WaitlistCount,
	}
	return current, sub, nil
}
