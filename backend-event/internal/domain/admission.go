package domain

import (
	"fmt"
	"sort"
	"time"
)

// Roster is every registration of one event. All mutations assume the caller
// holds the event's serialization lock for the lifetime of the roster.
type Roster struct {
	Event         *Event
	Registrations []*Registration
}

// NewRoster builds a roster and refreshes the event's derived counts
func NewRoster(event *Event, regs []*Registration) *Roster {
	r := &Roster{Event: event, Registrations: regs}
	r.recount()
	return r
}

func (r *Roster) recount() {
	confirmed, waiting := 0, 0
	for _, reg := range r.Registrations {
		switch reg.Status {
		case StatusConfirmed:
			confirmed++
		case StatusWaitlisted:
			waiting++
		}
	}
	r.Event.ConfirmedCount = confirmed
	r.Event.WaitlistCount = waiting
}

// Waitlist returns waitlisted registrations in FIFO order: createdAt, then id
func (r *Roster) Waitlist() []*Registration {
	var out []*Registration
	for _, reg := range r.Registrations {
		if reg.Status == StatusWaitlisted {
			out = append(out, reg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// For returns the registrations belonging to identity
func (r *Roster) For(identity Identity) []*Registration {
	var out []*Registration
	for _, reg := range r.Registrations {
		if reg.Identity() == identity {
			out = append(out, reg)
		}
	}
	return out
}

// Find returns the registration with the given internal id
func (r *Roster) Find(id int64) *Registration {
	for _, reg := range r.Registrations {
		if reg.ID == id {
			return reg
		}
	}
	return nil
}

// Admission is the outcome of an apply
type Admission struct {
	Status           RegistrationStatus
	WaitlistPosition int
}

// Admit decides whether identity is confirmed or waitlisted. The roster is not modified.
func (r *Roster) Admit(identity Identity, now time.Time) (Admission, error) {
	if identity.IsZero() {
		return Admission{}, invalid("guestEmail", "is required for anonymous registration")
	}
	if identity.IsMember() && r.Event.IsHost(identity.UserID) {
		return Admission{}, fmt.Errorf("%w: host cannot apply to own event", ErrForbidden)
	}
	if !r.Event.IsRegistrationOpen(now) {
		return Admission{}, ErrRegistrationClosed
	}

	for _, reg := range r.For(identity) {
		if reg.Status.IsActive() {
			return Admission{}, ErrDuplicateRegistration
		}
		if reg.Status == StatusBanned {
			return Admission{}, ErrRegistrationBanned
		}
	}

	if !r.Event.IsFull() {
		return Admission{Status: StatusConfirmed}, nil
	}
	if r.Event.WaitlistEnabled {
		return Admission{Status: StatusWaitlisted, WaitlistPosition: len(r.Waitlist()) + 1}, nil
	}
	return Admission{}, ErrEventFull
}

// Add places a persisted registration on the roster
func (r *Roster) Add(reg *Registration) {
	r.Registrations = append(r.Registrations, reg)
	r.recount()
}

// Outcome collects what a lifecycle change touched
type Outcome struct {
	// Changed holds every registration whose status or position moved
	Changed     []*Registration
	Transitions []Transition
	Promoted    []*Registration
}

func (o *Outcome) touch(reg *Registration) {
	for _, c := range o.Changed {
		if c == reg {
			return
		}
	}
	o.Changed = append(o.Changed, reg)
}

// Transition moves the registration with id to target on behalf of actor.
// Freeing a confirmed seat promotes from the waitlist. Leaving the waitlist renumbers it.
func (r *Roster) Transition(id int64, target RegistrationStatus, actor Actor, now time.Time) (*Outcome, error) {
	reg := r.Find(id)
	if reg == nil {
		return nil, ErrRegistrationNotFound
	}

	from := reg.Status
	t, err := reg.TransitionTo(target, actor, now)
	if err != nil {
		return nil, err
	}

	out := &Outcome{}
	out.touch(reg)
	out.Transitions = append(out.Transitions, t)
	r.recount()

	if from == StatusConfirmed {
		r.promote(now, out)
	}
	r.renumber(out)
	return out, nil
}

// FillOpenSeats promotes waitlisted registrations while seats are free, e.g. after a capacity increase
func (r *Roster) FillOpenSeats(now time.Time) *Outcome {
	out := &Outcome{}
	r.promote(now, out)
	r.renumber(out)
	return out
}

func (r *Roster) promote(now time.Time, out *Outcome) {
	for !r.Event.IsFull() {
		queue := r.Waitlist()
		if len(queue) == 0 {
			return
		}
		next := queue[0]
		t, err := next.TransitionTo(StatusConfirmed, ActorSystem, now)
		if err != nil {
			// unreachable: WAITLISTED to CONFIRMED is always allowed for the system
			panic(err)
		}
		out.touch(next)
		out.Transitions = append(out.Transitions, t)
		out.Promoted = append(out.Promoted, next)
		r.recount()
	}
}

// renumber assigns positions 1..n in FIFO order, recording every registration that moved
func (r *Roster) renumber(out *Outcome) {
	for i, reg := range r.Waitlist() {
		if reg.WaitlistPosition != i+1 {
			reg.WaitlistPosition = i + 1
			out.touch(reg)
		}
	}
}
