package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wafflestudio/moiming-web/backend-event/internal/domain"
	"github.com/wafflestudio/moiming-web/backend-event/internal/dto"
	"github.com/wafflestudio/moiming-web/backend-event/internal/repository"
	"github.com/wafflestudio/moiming-web/pkg/kafka"
	"github.com/wafflestudio/moiming-web/pkg/middleware"
)

var now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

type published struct {
	topic string
	msg   kafka.Message
}

// recordingPublisher captures every published message
type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, msg kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{topic: topic, msg: msg})
	return nil
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.msgs))
	for _, m := range p.msgs {
		out = append(out, m.topic)
	}
	return out
}

type fixture struct {
	store     *repository.MemoryStore
	publisher *recordingPublisher
	notifier  *LocalNotifier
	clock     time.Time
	events    EventService
	regs      RegistrationService
	auth      AuthService
	host      *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     repository.NewMemoryStore(),
		publisher: &recordingPublisher{},
		notifier:  NewLocalNotifier(),
		clock:     now,
	}
	deps := Deps{
		Users:         f.store.Users(),
		Events:        f.store.Events(),
		Registrations: f.store.Registrations(),
		Locker:        f.store,
		Publisher:     f.publisher,
		Notifier:      f.notifier,
		Now:           func() time.Time { return f.clock },
	}
	f.events = NewEventService(deps)
	f.regs = NewRegistrationService(deps)
	f.auth = NewAuthService(f.store.Users(), &middleware.JWTConfig{Secret: "test-secret", Issuer: "moiming-test", TTL: time.Hour})
	f.host = f.member(t, "host@example.com", "Host")
	return f
}

func (f *fixture) member(t *testing.T, email, name string) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, Name: name, CreatedAt: now}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u
}

func (f *fixture) event(t *testing.T, capacity int, waitlist bool) *domain.Event {
	t.Helper()
	opens := now.Add(-time.Hour)
	closes := now.Add(24 * time.Hour)
	starts := now.Add(48 * time.Hour)
	e, err := f.events.CreateEvent(context.Background(), f.host.ID, &dto.CreateEventRequest{
		Title:                "Go meetup",
		Capacity:             capacity,
		WaitlistEnabled:      waitlist,
		StartsAt:             &starts,
		RegistrationStartsAt: &opens,
		RegistrationEndsAt:   &closes,
	})
	require.NoError(t, err)
	return e
}

func (f *fixture) applyGuest(t *testing.T, e *domain.Event, i int) *domain.Registration {
	t.Helper()
	f.clock = f.clock.Add(time.Second)
	reg, err := f.regs.Apply(context.Background(), e.PublicID, Requester{}, &dto.ApplyRequest{
		GuestName:  fmt.Sprintf("Guest %d", i),
		GuestEmail: fmt.Sprintf("guest%d@example.com", i),
	})
	require.NoError(t, err)
	return reg
}

func (f *fixture) status(t *testing.T, publicID string) *domain.Registration {
	t.Helper()
	reg, err := f.store.Registrations().GetByPublicID(context.Background(), publicID)
	require.NoError(t, err)
	require.NotNil(t, reg)
	return reg
}

func TestApply_ConfirmsThenWaitlists(t *testing.T) {
	f := newFixture(t)
	e := f.event(t, 2, true)

	first := f.applyGuest(t, e, 1)
	second := f.applyGuest(t, e, 2)
	third := f.applyGuest(t, e, 3)
	fourth := f.applyGuest(t, e, 4)

	assert.Equal(t, domain.StatusConfirmed, first.Status)
	assert.Equal(t, domain.StatusConfirmed, second.Status)
	assert.Equal(t, domain.StatusWaitlisted, third.Status)
	assert.Equal(t, 1, third.WaitlistPosition)
	assert.Equal(t, 2, fourth.WaitlistPosition)

	got, err := f.store.Events().GetByPublicID(context.Background(), e.PublicID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ConfirmedCount)
	assert.Equal(t, 2, got.WaitlistCount)
	assert.Equal(t, 4, got.TotalApplicants())

	assert.Equal(t, []string{
		dto.TopicRegistrationApplied, dto.TopicRegistrationApplied,
		dto.TopicRegistrationApplied, dto.TopicRegistrationApplied,
	}, f.publisher.topics())
}

func TestApply_Errors(t *testing.T) {
	f := newFixture(t)
	full := f.event(t, 1, false)
	f.applyGuest(t, full, 1)

	tests := []struct {
		name      string
		eventID   string
		requester Requester
		req       *dto.ApplyRequest
		wantErr   error
	}{
		{
			name:    "full without waitlist",
			eventID: full.PublicID,
			req:     &dto.ApplyRequest{GuestName: "Late", GuestEmail: "late@example.com"},
			wantErr: domain.ErrEventFull,
		},
		{
			name:    "duplicate email ignores case",
			eventID: full.PublicID,
			req:     &dto.ApplyRequest{GuestName: "Again", GuestEmail: "GUEST1@example.com"},
			wantErr: domain.ErrDuplicateRegistration,
		},
		{
			name:      "host cannot apply",
			eventID:   full.PublicID,
			requester: Requester{UserID: f.host.ID},
			req:       &dto.ApplyRequest{},
			wantErr:   domain.ErrForbidden,
		},
		{
			name:    "anonymous needs an email",
			eventID: full.PublicID,
			req:     &dto.ApplyRequest{GuestName: "No Mail"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "unknown event",
			eventID: "missing",
			req:     &dto.ApplyRequest{GuestName: "X", GuestEmail: "x@example.com"},
			wantErr: domain.ErrEventNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.regs.Apply(context.Background(), tt.eventID, tt.requester, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestApply_OutsideWindow(t *testing.T) {
	f := newFixture(t)
	e := f.event(t, 5, false)

	f.clock = now.Add(25 * time.Hour)
	_, err := f.regs.Apply(context.Background(), e.PublicID, Requester{}, &dto.ApplyRequest{GuestName: "Late", GuestEmail: "late@example.com"})
	assert.ErrorIs(t, err, domain.ErrRegistrationClosed)
}

func TestApply_ConcurrentLastSeat(t *testing.T) {
	f := newFixture(t)
	e := f.event(t, 3, false)

	const n = 30
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.regs.Apply(context.Background(), e.PublicID, Requester{}, &dto.ApplyRequest{
				GuestName:  fmt.Sprintf("Guest %d", i),
				GuestEmail: fmt.Sprintf("guest%d@example.com", i),
			})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var ok, full int
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrEventFull)
		full++
	}
	assert.Equal(t, 3, ok)
	assert.Equal(t, n-3, full)

	got, err := f.store.Events().GetByPublicID(context.Background(), e.PublicID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.ConfirmedCount)
}

func TestApply_MemberDuplicateAndReapply(t *testing.T) {
	f := newFixture(t)
	e := f.event(t, 5, false)
	alice := f.member(t, "alice@example.com", "Alice")
	ctx := context.Background()
	me := Requester{UserID: alice.ID}

	reg, err := f.regs.Apply(ctx, e.PublicID, me, &dto.ApplyRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Alice", reg.DisplayName())

	_, err = f.regs.Apply(ctx, e.PublicID, me, &dto.ApplyRequest{})
	assert.ErrorIs(t, err, domain.ErrDuplicateRegistration)

	_, err = f.regs.UpdateStatus(ctx, reg.PublicID, me, &dto.UpdateRegistrationRequest{Status: "CANCELED"})
	require.NoError(t, err)

	again, err := f.regs.Apply(ctx, e.PublicID, me, &dto.ApplyRequest{})
	require.NoError(t, err)
	assert.NotEqual(t, reg.PublicID, again.PublicID)
	assert.Equal(t, domain.StatusCanceled, f.status(t, reg.PublicID).Status)
}

func TestUpdateStatus_CancelPromotesHeadOfWaitlist(t *testing.T) {
	f := newFixture(t)
	e := f.event(t, 1, true)
	ctx := context.Background()

	confirmed := f.applyGuest(t, e, 1)
	w1 := f.applyGuest(t, e, 2)
	w2 := f.applyGuest(t, e, 3)

	sub, err := f.notifier.Subscribe(ctx, w1.PublicID)
	require.NoError(t, err)
	defer sub.Close()

	resp, err := f.regs.UpdateStatus(ctx, confirmed.PublicID, Requester{RegistrationID: confirmed.PublicID},
		&dto.UpdateRegistrationRequest{Status: "CANCELED"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, resp.Status)
	require.Len(t, resp.History, 1)
	assert.Equal(t, domain.ActorOwner, resp.History[0].Actor)

	promoted := f.status(t, w1.PublicID)
	assert.Equal(t, domain.StatusConfirmed, promoted.Status)
	assert.Zero(t, promoted.WaitlistPosition)
	assert.Equal(t, 1, f.status(t, w2.PublicID).WaitlistPosition)

	select {
	case update := <-sub.Updates():
		assert.Equal(t, domain.StatusConfirmed, update.Status)
		assert.Equal(t, 1, update.ConfirmedCount)
		assert.Equal(t, 1, update.WaitlistCount)
	case <-time.After(time.Second):
		t.Fatal("no update delivered for promoted registration")
	}

	assert.Contains(t, f.publisher.topics(), dto.TopicRegistrationCanceled)
	assert.Contains(t, f.publisher.topics(), dto.TopicRegistrationPromoted)
}

func TestUpdateStatus_Permissions(t *testing.T) {
	f := newFixture(t)
	e := f.event(t, 5, false)
	ctx := context.Background()
	alice := f.member(t, "alice@example.com", "Alice")
	mallory := f.member(t, "mallory@example.com", "Mallory")

	guest := f.applyGuest(t, e, 1)
	member, err := f.regs.Apply(ctx, e.PublicID, Requester{UserID: alice.ID}, &dto.ApplyRequest{})
	require.NoError(t, err)

	tests := []struct {
		name      string
		regID     string
		requester Requester
		status    string
		wantErr   error
	}{
		{"stranger cannot cancel member", member.PublicID, Requester{UserID: mallory.ID}, "CANCELED", domain.ErrForbidden},
		{"host cannot cancel for guest", guest.PublicID, Requester{UserID: f.host.ID}, "CANCELED", domain.ErrForbidden},
		{"guest cannot ban", guest.PublicID, Requester{RegistrationID: guest.PublicID}, "BANNED", domain.ErrForbidden},
		{"member cannot ban", member.PublicID, Requester{UserID: alice.ID}, "BANNED", domain.ErrForbidden},
		{"confirmed is not requestable", member.PublicID, Requester{UserID: alice.ID}, "CONFIRMED", domain.ErrValidation},
		{"unknown registration", "missing", Requester{UserID: alice.ID}, "CANCELED", domain.ErrRegistrationNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.regs.UpdateStatus(ctx, tt.regID, tt.requester, &dto.UpdateRegistrationRequest{Status: tt.status})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUpdateStatus_BanIsTerminal(t *testing.T) {
	f := newFixture(t)
	e := f.event(t, 5, false)
	ctx := context.Background()

	guest := f.applyGuest(t, e, 1)
	resp, err := f.regs.UpdateStatus(ctx, guest.PublicID, Requester{UserID: f.host.ID}, &dto.UpdateRegistrationRequest{Status: "BANNED"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBanned, resp.Status)

	_, err = f.regs.UpdateStatus(ctx, guest.PublicID, Requester{RegistrationID: guest.PublicID}, &dto.UpdateRegistrationRequest{Status: "CANCELED"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.regs.Apply(ctx, e.PublicID, Requester{}, &dto.ApplyRequest{GuestName: "Back", GuestEmail: "guest1@example.com"})
	assert.ErrorIs(t, err, domain.ErrRegistrationBanned)
}

func TestUpdateEvent_CapacityIncreasePromotes(t *testing.T) {
	f := newFixture(t)
	e := f.event(t, 1, true)
	ctx := context.Background()

	f.applyGuest(t, e, 1)
	w1 := f.applyGuest(t, e, 2)
	w2 := f.applyGuest(t, e, 3)

	req := dto.NewEventResponse(e).UpdateRequest()
	req.Capacity = 2
	updated, err := f.events.UpdateEvent(ctx, f.host.ID, e.PublicID, req)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.ConfirmedCount)
	assert.Equal(t, 1, updated.WaitlistCount)
	assert.Equal(t, domain.StatusConfirmed, f.status(t, w1.PublicID).Status)
	assert.Equal(t, 1, f.status(t, w2.PublicID).WaitlistPosition)

	lower := dto.NewEventResponse(updated).UpdateRequest()
	lower.Capacity = 1
	_, err = f.events.UpdateEvent(ctx, f.host.ID, e.PublicID, lower)
	assert.ErrorIs(t, err, domain.ErrValidation)

	stranger := f.member(t, "x@example.com", "X")
	_, err = f.events.UpdateEvent(ctx, stranger.ID, e.PublicID, req)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUpdateEvent_ClearsRegistrationWindow(t *testing.T) {
	f := newFixture(t)
	e := f.event(t, 2, false)
	ctx := context.Background()
	require.NotNil(t, e.RegistrationEndsAt)

	req := dto.NewEventResponse(e).UpdateRequest()
	req.RegistrationStartsAt = nil
	req.RegistrationEndsAt = nil
	updated, err := f.events.UpdateEvent(ctx, f.host.ID, e.PublicID, req)
	require.NoError(t, err)
	assert.Nil(t, updated.RegistrationStartsAt)
	assert.Nil(t, updated.RegistrationEndsAt)

	stored, err := f.store.Events().GetByPublicID(ctx, e.PublicID)
	require.NoError(t, err)
	assert.Nil(t, stored.RegistrationEndsAt)
	assert.True(t, stored.IsRegistrationOpen(now.Add(365*24*time.Hour)), "no deadline means registration never closes")

	// and the guest can still apply after the old deadline
	f.clock = now.Add(30 * 24 * time.Hour)
	f.applyGuest(t, stored, 1)
}

func TestDeleteEvent(t *testing.T) {
	f := newFixture(t)
	e := f.event(t, 2, false)
	ctx := context.Background()
	guest := f.applyGuest(t, e, 1)

	stranger := f.member(t, "x@example.com", "X")
	assert.ErrorIs(t, f.events.DeleteEvent(ctx, stranger.ID, e.PublicID), domain.ErrForbidden)

	require.NoError(t, f.events.DeleteEvent(ctx, f.host.ID, e.PublicID))

	_, err := f.events.GetEventDetail(ctx, e.PublicID, Requester{})
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
	_, err = f.regs.GetRegistration(ctx, guest.PublicID, Requester{RegistrationID: guest.PublicID})
	assert.ErrorIs(t, err, domain.ErrRegistrationNotFound)
	assert.Contains(t, f.publisher.topics(), dto.TopicEventDeleted)
}

func TestGetEventDetail_Views(t *testing.T) {
	f := newFixture(t)
	e := f.event(t, 1, true)
	ctx := context.Background()

	confirmed := f.applyGuest(t, e, 1)
	waiting := f.applyGuest(t, e, 2)

	tests := []struct {
		name       string
		requester  Requester
		wantView   domain.EventViewType
		wantViewer domain.ViewerStatus
		wantApply  bool
		wantWait   bool
		wantCancel bool
	}{
		{"host", Requester{UserID: f.host.ID}, domain.ViewAdmin, domain.ViewerHost, false, false, false},
		{"confirmed guest", Requester{RegistrationID: confirmed.PublicID}, domain.ViewConfirmed, domain.ViewerConfirmed, false, false, true},
		{"waitlisted guest", Requester{RegistrationID: waiting.PublicID}, domain.ViewWaitlisted, domain.ViewerWaitlisted, false, false, true},
		{"stranger", Requester{}, domain.ViewWaitlist, domain.ViewerNone, false, true, false},
		{"unknown registration degrades", Requester{RegistrationID: "missing"}, domain.ViewWaitlist, domain.ViewerNone, false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detail, err := f.events.GetEventDetail(ctx, e.PublicID, tt.requester)
			require.NoError(t, err)
			assert.Equal(t, tt.wantView, detail.ViewType)
			assert.Equal(t, tt.wantViewer, detail.Viewer.Status)
			assert.Equal(t, tt.wantApply, detail.Capabilities.Apply)
			assert.Equal(t, tt.wantWait, detail.Capabilities.Wait)
			assert.Equal(t, tt.wantCancel, detail.Capabilities.Cancel)
			require.Len(t, detail.GuestsPreview, 1)
			assert.Equal(t, tt.wantViewer == domain.ViewerHost, detail.GuestsPreview[0].Email != "")
			assert.Equal(t, tt.wantViewer == domain.ViewerHost, detail.GuestsPreview[0].RegistrationPublicID != "")
		})
	}

	detail, err := f.events.GetEventDetail(ctx, e.PublicID, Requester{RegistrationID: waiting.PublicID})
	require.NoError(t, err)
	assert.Equal(t, 1, detail.Viewer.WaitlistPosition)
	assert.Equal(t, "Go meetup", detail.Event.Title)
	assert.Equal(t, "Host", detail.Creator.Name)
}

func TestListGuests_PagingAndVisibility(t *testing.T) {
	f := newFixture(t)
	e := f.event(t, 5, true)
	ctx := context.Background()
	for i := 1; i <= 7; i++ {
		f.applyGuest(t, e, i)
	}

	var names []string
	cursor := ""
	for {
		page, err := f.regs.ListGuests(ctx, e.PublicID, Requester{}, &dto.GuestListFilter{Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		assert.Equal(t, 5, page.TotalCount)
		for _, p := range page.Participants {
			names = append(names, p.Name)
			assert.Empty(t, p.Email)
			assert.Empty(t, p.RegistrationPublicID)
		}
		if !page.HasNext {
			assert.Empty(t, page.NextCursor)
			break
		}
		cursor = page.NextCursor
	}
	assert.Equal(t, []string{"Guest 1", "Guest 2", "Guest 3", "Guest 4", "Guest 5"}, names)

	_, err := f.regs.ListGuests(ctx, e.PublicID, Requester{}, &dto.GuestListFilter{Status: "WAITLISTED"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	waiting, err := f.regs.ListGuests(ctx, e.PublicID, Requester{UserID: f.host.ID}, &dto.GuestListFilter{Status: "WAITLISTED", OrderBy: dto.OrderByName})
	require.NoError(t, err)
	require.Len(t, waiting.Participants, 2)
	assert.Equal(t, "guest6@example.com", waiting.Participants[0].Email)
	assert.NotEmpty(t, waiting.Participants[0].RegistrationPublicID)

	_, err = f.regs.ListGuests(ctx, e.PublicID, Requester{}, &dto.GuestListFilter{Cursor: "%%%"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetRegistration_Visibility(t *testing.T) {
	f := newFixture(t)
	e := f.event(t, 5, false)
	ctx := context.Background()
	alice := f.member(t, "alice@example.com", "Alice")
	bob := f.member(t, "bob@example.com", "Bob")

	reg, err := f.regs.Apply(ctx, e.PublicID, Requester{UserID: alice.ID}, &dto.ApplyRequest{})
	require.NoError(t, err)

	_, err = f.regs.GetRegistration(ctx, reg.PublicID, Requester{UserID: alice.ID})
	assert.NoError(t, err)
	_, err = f.regs.GetRegistration(ctx, reg.PublicID, Requester{UserID: f.host.ID})
	assert.NoError(t, err)
	_, err = f.regs.GetRegistration(ctx, reg.PublicID, Requester{UserID: bob.ID})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	mine, err := f.regs.ListMyRegistrations(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, mine.Registrations, 1)
	assert.Equal(t, "Go meetup", mine.Registrations[0].EventTitle)
}

func TestWatch_ReturnsCurrentState(t *testing.T) {
	f := newFixture(t)
	e := f.event(t, 1, true)
	ctx := context.Background()
	f.applyGuest(t, e, 1)
	waiting := f.applyGuest(t, e, 2)

	current, sub, err := f.regs.Watch(ctx, waiting.PublicID, Requester{RegistrationID: waiting.PublicID})
	require.NoError(t, err)
	defer sub.Close()
	assert.Equal(t, domain.StatusWaitlisted, current.Status)
	assert.Equal(t, 1, current.WaitlistPosition)
	assert.Equal(t, 1, current.WaitlistCount)
}

func TestAuth_SignupLoginMe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.auth.Signup(ctx, &dto.SignupRequest{Email: "New@Example.com", Password: "password123", Name: "New"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "new@example.com", resp.User.Email)

	_, err = f.auth.Signup(ctx, &dto.SignupRequest{Email: "new@example.com", Password: "password123", Name: "Dup"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	login, err := f.auth.Login(ctx, &dto.LoginRequest{Email: "NEW@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)

	_, err = f.auth.Login(ctx, &dto.LoginRequest{Email: "new@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = f.auth.Login(ctx, &dto.LoginRequest{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	me, err := f.auth.Me(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", me.Name)
	_, err = f.auth.Me(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestAuth_UpdateMe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ann := f.member(t, "ann@example.com", "Ann")
	str := func(s string) *string { return &s }

	user, err := f.auth.UpdateMe(ctx, ann.ID, &dto.UpdateMeRequest{
		Name:         str("  Ann Lee "),
		Email:        str("Ann.Lee@Example.com"),
		Password:     str("brand-new-password"),
		ProfileImage: str("https://cdn.example.com/ann.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", user.Name)
	assert.Equal(t, "ann.lee@example.com", user.Email)
	assert.Equal(t, "https://cdn.example.com/ann.png", user.ProfileImage)

	_, err = f.auth.Login(ctx, &dto.LoginRequest{Email: "ann.lee@example.com", Password: "brand-new-password"})
	assert.NoError(t, err)
	_, err = f.auth.Login(ctx, &dto.LoginRequest{Email: "ann@example.com", Password: "password123"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.auth.UpdateMe(ctx, ann.ID, &dto.UpdateMeRequest{Email: str("HOST@example.com")})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	same, err := f.auth.UpdateMe(ctx, ann.ID, &dto.UpdateMeRequest{Email: str("ANN.LEE@example.com"), ProfileImage: str("")})
	require.NoError(t, err)
	assert.Equal(t, "ann.lee@example.com", same.Email)
	assert.Empty(t, same.ProfileImage)
	assert.Equal(t, "Ann Lee", same.Name)

	tests := []struct {
		name string
		req  *dto.UpdateMeRequest
	}{
		{"empty", &dto.UpdateMeRequest{}},
		{"blank name", &dto.UpdateMeRequest{Name: str("  ")}},
		{"bad email", &dto.UpdateMeRequest{Email: str("not-an-email")}},
		{"short password", &dto.UpdateMeRequest{Password: str("short")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.UpdateMe(ctx, ann.ID, tt.req)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	_, err = f.auth.UpdateMe(ctx, 9999, &dto.UpdateMeRequest{Name: str("Ghost")})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
