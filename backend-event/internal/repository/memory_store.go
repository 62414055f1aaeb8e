package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wafflestudio/moiming-web/backend-event/internal/domain"
)

// MemoryStore is an in-memory implementation of every repository and of EventLocker.
// Per-event work is serialized by a keyed lock and its writes are applied on success only.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[int64]*domain.User
	events        map[int64]*domain.Event
	eventsByPub   map[string]int64
	registrations map[int64]*domain.Registration
	regsByPub     map[string]int64
	transitions   map[int64][]domain.Transition
	nextUserID    int64
	nextEventID   int64
	nextRegID     int64
	nextTransID   int64

	locks *keyedLock
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[int64]*domain.User),
		events:        make(map[int64]*domain.Event),
		eventsByPub:   make(map[string]int64),
		registrations: make(map[int64]*domain.Registration),
		regsByPub:     make(map[string]int64),
		transitions:   make(map[int64][]domain.Transition),
		locks:         newKeyedLock(),
	}
}

func copyEvent(e *domain.Event) *domain.Event {
	c := *e
	return &c
}

func (s *MemoryStore) copyRegistration(r *domain.Registration) *domain.Registration {
	c := *r
	if r.UserID != nil {
		uid := *r.UserID
		c.UserID = &uid
		if u, ok := s.users[uid]; ok {
			c.MemberName = u.Name
			c.MemberEmail = u.Email
		}
	}
	return &c
}

// counted returns a copy of e with derived counts; caller holds s.mu
func (s *MemoryStore) counted(e *domain.Event) *domain.Event {
	c := copyEvent(e)
	c.ConfirmedCount, c.WaitlistCount = 0, 0
	for _, r := range s.registrations {
		if r.EventID != e.ID {
			continue
		}
		switch r.Status {
		case domain.StatusConfirmed:
			c.ConfirmedCount++
		case domain.StatusWaitlisted:
			c.WaitlistCount++
		}
	}
	return c
}

// Users

// CreateUser creates a new user
func (s *MemoryStore) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return domain.ErrEmailTaken
		}
	}
	s.nextUserID++
	user.ID = s.nextUserID
	c := *user
	s.users[user.ID] = &c
	return nil
}

// GetUserByID retrieves a user by ID
func (s *MemoryStore) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

// GetUserByEmail retrieves a user by case-insensitive email
func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

// UpdateUser overwrites a stored user, keeping emails unique
func (s *MemoryStore) UpdateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	for id, u := range s.users {
		if id != user.ID && strings.EqualFold(u.Email, user.Email) {
			return domain.ErrEmailTaken
		}
	}
	c := *user
	s.users[user.ID] = &c
	return nil
}

// Events

// CreateEvent creates a new event
func (s *MemoryStore) CreateEvent(_ context.Context, e *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextEventID++
	e.ID = s.nextEventID
	s.events[e.ID] = copyEvent(e)
	s.eventsByPub[e.PublicID] = e.ID
	return nil
}

// GetEventByPublicID retrieves an event by its public id
func (s *MemoryStore) GetEventByPublicID(_ context.Context, publicID string) (*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.eventsByPub[publicID]
	if !ok {
		return nil, nil
	}
	return s.counted(s.events[id]), nil
}

// GetEventByID retrieves an event by internal id
func (s *MemoryStore) GetEventByID(_ context.Context, id int64) (*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, nil
	}
	return s.counted(e), nil
}

// ListEventsByHost lists events created by hostID, newest first
func (s *MemoryStore) ListEventsByHost(_ context.Context, hostID int64) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Event
	for _, e := range s.events {
		if e.CreatedBy == hostID {
			out = append(out, s.counted(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Registrations

// GetRegistrationByPublicID retrieves a registration by its public id
func (s *MemoryStore) GetRegistrationByPublicID(_ context.Context, publicID string) (*domain.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.regsByPub[publicID]
	if !ok {
		return nil, nil
	}
	return s.copyRegistration(s.registrations[id]), nil
}

func (s *MemoryStore) filterRegistrations(keep func(r *domain.Registration) bool) []*domain.Registration {
	var out []*domain.Registration
	for _, r := range s.registrations {
		if keep(r) {
			out = append(out, s.copyRegistration(r))
		}
	}
	sortByCreated(out)
	return out
}

func sortByCreated(regs []*domain.Registration) {
	sort.Slice(regs, func(i, j int) bool {
		if !regs[i].CreatedAt.Equal(regs[j].CreatedAt) {
			return regs[i].CreatedAt.Before(regs[j].CreatedAt)
		}
		return regs[i].ID < regs[j].ID
	})
}

// ListRegistrationsByEventAndUser lists a member's registrations for one event
func (s *MemoryStore) ListRegistrationsByEventAndUser(_ context.Context, eventID, userID int64) ([]*domain.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filterRegistrations(func(r *domain.Registration) bool {
		return r.EventID == eventID && r.UserID != nil && *r.UserID == userID
	}), nil
}

// ListRegistrationsByUser lists a member's registrations, newest first
func (s *MemoryStore) ListRegistrationsByUser(_ context.Context, userID int64) ([]*domain.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.filterRegistrations(func(r *domain.Registration) bool {
		return r.UserID != nil && *r.UserID == userID
	})
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// ListGuests returns a keyset page of an event's registrations
func (s *MemoryStore) ListGuests(_ context.Context, eventID int64, q GuestQuery) ([]*domain.Registration, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.filterRegistrations(func(r *domain.Registration) bool {
		return r.EventID == eventID && r.Status == q.Status
	})

	less := func(a, b *domain.Registration) bool {
		if q.OrderBy == OrderName {
			if a.DisplayName() != b.DisplayName() {
				return a.DisplayName() < b.DisplayName()
			}
			return a.ID < b.ID
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	}
	sort.SliceStable(all, func(i, j int) bool { return less(all[i], all[j]) })

	var after *domain.Registration
	if q.AfterID > 0 {
		after = &domain.Registration{ID: q.AfterID}
		if q.OrderBy == OrderName {
			after.GuestName = q.AfterKey
		} else {
			t, err := time.Parse(time.RFC3339Nano, q.AfterKey)
			if err != nil {
				return nil, 0, domain.ErrValidation
			}
			after.CreatedAt = t
		}
	}

	var page []*domain.Registration
	for _, r := range all {
		if after != nil && !less(after, r) {
			continue
		}
		page = append(page, r)
		if q.Limit > 0 && len(page) == q.Limit {
			break
		}
	}
	return page, len(all), nil
}

// ListTransitions returns a registration's status history
func (s *MemoryStore) ListTransitions(_ context.Context, registrationID int64) ([]domain.Transition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.Transition(nil), s.transitions[registrationID]...), nil
}

// WithEventLock runs fn while holding the event's lock. Writes are applied only if fn succeeds.
func (s *MemoryStore) WithEventLock(ctx context.Context, publicID string, fn func(tx EventTx) error) error {
	unlock, err := s.locks.lock(ctx, publicID)
	if err != nil {
		return err
	}
	defer unlock()

	s.mu.RLock()
	id, ok := s.eventsByPub[publicID]
	var event *domain.Event
	if ok {
		event = copyEvent(s.events[id])
	}
	s.mu.RUnlock()
	if !ok {
		return domain.ErrEventNotFound
	}

	tx := &memoryEventTx{store: s, event: event, saved: make(map[int64]*domain.Registration)}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type memoryEventTx struct {
	store       *MemoryStore
	event       *domain.Event
	created     []*domain.Registration
	saved       map[int64]*domain.Registration
	transitions []domain.Transition
	updated     *domain.Event
	deleted     bool
}

func (t *memoryEventTx) Event() *domain.Event {
	return t.event
}

func (t *memoryEventTx) Registrations(_ context.Context) ([]*domain.Registration, error) {
	s := t.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.filterRegistrations(func(r *domain.Registration) bool { return r.EventID == t.event.ID })
	for i, r := range out {
		if pending, ok := t.saved[r.ID]; ok {
			out[i] = s.copyRegistration(pending)
		}
	}
	for _, r := range t.created {
		out = append(out, s.copyRegistration(r))
	}
	sortByCreated(out)
	return out, nil
}

func (t *memoryEventTx) CreateRegistration(ctx context.Context, reg *domain.Registration) error {
	if reg.Status.IsActive() {
		current, _ := t.Registrations(ctx)
		for _, r := range current {
			if r.Status.IsActive() && r.Identity() == reg.Identity() {
				return domain.ErrDuplicateRegistration
			}
		}
	}

	s := t.store
	s.mu.Lock()
	s.nextRegID++
	reg.ID = s.nextRegID
	s.mu.Unlock()

	c := *reg
	t.created = append(t.created, &c)
	return nil
}

func (t *memoryEventTx) SaveRegistrations(_ context.Context, regs []*domain.Registration) error {
	for _, reg := range regs {
		c := *reg
		if reg.UserID != nil {
			uid := *reg.UserID
			c.UserID = &uid
		}
		replaced := false
		for i, created := range t.created {
			if created.ID == reg.ID {
				t.created[i] = &c
				replaced = true
			}
		}
		if !replaced {
			t.saved[reg.ID] = &c
		}
	}
	return nil
}

func (t *memoryEventTx) RecordTransitions(_ context.Context, transitions []domain.Transition) error {
	t.transitions = append(t.transitions, transitions...)
	return nil
}

func (t *memoryEventTx) UpdateEvent(_ context.Context, e *domain.Event) error {
	c := copyEvent(e)
	c.ID = t.event.ID
	c.PublicID = t.event.PublicID
	c.CreatedBy = t.event.CreatedBy
	t.updated = c
	return nil
}

func (t *memoryEventTx) DeleteEvent(_ context.Context) error {
	t.deleted = true
	return nil
}

func (t *memoryEventTx) commit() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.deleted {
		delete(s.events, t.event.ID)
		delete(s.eventsByPub, t.event.PublicID)
		for id, r := range s.registrations {
			if r.EventID == t.event.ID {
				delete(s.registrations, id)
				delete(s.regsByPub, r.PublicID)
				delete(s.transitions, id)
			}
		}
		return
	}

	if t.updated != nil {
		s.events[t.event.ID] = t.updated
	}
	for _, r := range t.created {
		s.registrations[r.ID] = r
		s.regsByPub[r.PublicID] = r.ID
	}
	for id, r := range t.saved {
		if existing, ok := s.registrations[id]; ok {
			existing.Status = r.Status
			existing.WaitlistPosition = r.WaitlistPosition
			existing.UpdatedAt = r.UpdatedAt
		}
	}
	for _, tr := range t.transitions {
		s.nextTransID++
		tr.ID = s.nextTransID
		s.transitions[tr.RegistrationID] = append(s.transitions[tr.RegistrationID], tr)
	}
}

// keyedLock is a set of context-aware mutexes, one per key, dropped when idle
type keyedLock struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func newKeyedLock() *keyedLock {
	return &keyedLock{slots: make(map[string]*lockSlot)}
}

func (k *keyedLock) lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	slot, ok := k.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		k.slots[key] = slot
	}
	slot.refs++
	k.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, slot)
		return nil, ctx.Err()
	}

	return func() {
		<-slot.ch
		k.release(key, slot)
	}, nil
}

func (k *keyedLock) release(key string, slot *lockSlot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(k.slots, key)
	}
}

// memoryUsers, memoryEvents and memoryRegistrations adapt MemoryStore to the repository interfaces

type memoryUsers struct{ *MemoryStore }

func (m memoryUsers) Create(ctx context.Context, u *domain.User) error { return m.CreateUser(ctx, u) }
func (m memoryUsers) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return m.GetUserByID(ctx, id)
}
func (m memoryUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.GetUserByEmail(ctx, email)
}
func (m memoryUsers) Update(ctx context.Context, u *domain.User) error { return m.UpdateUser(ctx, u) }

type memoryEvents struct{ *MemoryStore }

func (m memoryEvents) Create(ctx context.Context, e *domain.Event) error { return m.CreateEvent(ctx, e) }
func (m memoryEvents) GetByPublicID(ctx context.Context, publicID string) (*domain.Event, error) {
	return m.GetEventByPublicID(ctx, publicID)
}
func (m memoryEvents) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	return m.GetEventByID(ctx, id)
}
func (m memoryEvents) ListByHost(ctx context.Context, hostID int64) ([]*domain.Event, error) {
	return m.ListEventsByHost(ctx, hostID)
}

type memoryRegistrations struct{ *MemoryStore }

func (m memoryRegistrations) GetByPublicID(ctx context.Context, publicID string) (*domain.Registration, error) {
	return m.GetRegistrationByPublicID(ctx, publicID)
}
func (m memoryRegistrations) ListByEventAndUser(ctx context.Context, eventID, userID int64) ([]*domain.Registration, error) {
	return m.ListRegistrationsByEventAndUser(ctx, eventID, userID)
}
func (m memoryRegistrations) ListByUser(ctx context.Context, userID int64) ([]*domain.Registration, error) {
	return m.ListRegistrationsByUser(ctx, userID)
}

// Users returns the store as a UserRepository
func (s *MemoryStore) Users() UserRepository { return memoryUsers{s} }

// Events returns the store as an EventRepository
func (s *MemoryStore) Events() EventRepository { return memoryEvents{s} }

// Registrations returns the store as a RegistrationRepository
func (s *MemoryStore) Registrations() RegistrationRepository { return memoryRegistrations{s} }
