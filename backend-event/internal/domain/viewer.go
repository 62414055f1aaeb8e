package domain

import (
	"fmt"
	"time"
)

// ViewerStatus is the requester's relationship to an event
type ViewerStatus string

const (
	ViewerHost       ViewerStatus = "HOST"
	ViewerConfirmed  ViewerStatus = "CONFIRMED"
	ViewerWaitlisted ViewerStatus = "WAITLISTED"
	ViewerCanceled   ViewerStatus = "CANCELED"
	ViewerBanned     ViewerStatus = "BANNED"
	ViewerNone       ViewerStatus = "NONE"
)

// EventViewType is the single display state derived for a viewer
type EventViewType string

const (
	ViewAdmin      EventViewType = "ADMIN"
	ViewBanned     EventViewType = "BANNED"
	ViewConfirmed  EventViewType = "CONFIRMED"
	ViewWaitlisted EventViewType = "WAITLISTED"
	ViewCanceled   EventViewType = "CANCELED"
	ViewApply      EventViewType = "APPLY"
	ViewWaitlist   EventViewType = "WAITLIST"
	ViewUpcoming   EventViewType = "UPCOMING"
	ViewEnded      EventViewType = "ENDED"
	ViewClosed     EventViewType = "CLOSED"
)

// AllViewTypes lists every view type in precedence order
var AllViewTypes = []EventViewType{
	ViewAdmin, ViewBanned, ViewConfirmed, ViewWaitlisted, ViewCanceled,
	ViewApply, ViewWaitlist, ViewUpcoming, ViewEnded, ViewClosed,
}

// Capabilities are the actions currently offered to a viewer
type Capabilities struct {
	ShareLink bool `json:"shareLink"`
	Apply     bool `json:"apply"`
	Wait      bool `json:"wait"`
	Cancel    bool `json:"cancel"`
}

// Viewer is the resolved requester. Registration is nil for HOST and NONE.
type Viewer struct {
	Status       ViewerStatus
	Registration *Registration
}

// NoViewer is an unidentified requester
var NoViewer = Viewer{Status: ViewerNone}

// ViewerFromRegistration maps a registration's status onto the viewer status
func ViewerFromRegistration(reg *Registration) Viewer {
	if reg == nil {
		return NoViewer
	}
	switch reg.Status {
	case StatusConfirmed:
		return Viewer{Status: ViewerConfirmed, Registration: reg}
	case StatusWaitlisted:
		return Viewer{Status: ViewerWaitlisted, Registration: reg}
	case StatusCanceled:
		return Viewer{Status: ViewerCanceled, Registration: reg}
	case StatusBanned:
		return Viewer{Status: ViewerBanned, Registration: reg}
	default:
		panic(fmt.Sprintf("domain: unhandled registration status %q", reg.Status))
	}
}

// ResolveViewer picks the viewer for a requester. userID is zero for anonymous
// requesters. memberRegs are the member's registrations for the event and
// guestReg is the registration named by the client-held id, if it resolved.
// Only anonymous registrations are accepted through that id.
func ResolveViewer(event *Event, userID int64, memberRegs []*Registration, guestReg *Registration) Viewer {
	if event.IsHost(userID) {
		return Viewer{Status: ViewerHost}
	}
	if reg := PickViewerRegistration(memberRegs); reg != nil {
		return ViewerFromRegistration(reg)
	}
	if guestReg != nil && guestReg.IsAnonymous() && guestReg.EventID == event.ID {
		return ViewerFromRegistration(guestReg)
	}
	return NoViewer
}

// PickViewerRegistration chooses which of an identity's registrations describes it:
// the active one, else a ban, else the latest cancellation.
func PickViewerRegistration(regs []*Registration) *Registration {
	var banned, latest *Registration
	for _, r := range regs {
		switch {
		case r.Status.IsActive():
			return r
		case r.Status == StatusBanned:
			banned = r
		case latest == nil || r.CreatedAt.After(latest.CreatedAt):
			latest = r
		}
	}
	if banned != nil {
		return banned
	}
	return latest
}

// ComputeCapabilities derives the action flags from event timing, capacity and the viewer.
// Hosts, banned guests and guests already holding a spot are never offered apply or wait.
func ComputeCapabilities(event *Event, viewer Viewer, now time.Time) Capabilities {
	open := event.IsRegistrationOpen(now)
	full := event.IsFull()

	excluded := false
	switch viewer.Status {
	case ViewerHost, ViewerBanned, ViewerConfirmed, ViewerWaitlisted:
		excluded = true
	case ViewerCanceled, ViewerNone:
	default:
		panic(fmt.Sprintf("domain: unhandled viewer status %q", viewer.Status))
	}

	return Capabilities{
		ShareLink: viewer.Status == ViewerHost,
		Apply:     open && !full && !excluded,
		Wait:      open && full && event.WaitlistEnabled && !excluded,
		Cancel:    viewer.Status == ViewerConfirmed || viewer.Status == ViewerWaitlisted,
	}
}

// ResolveView returns the display state. The first matching rule wins.
func ResolveView(event *Event, viewer Viewer, now time.Time) EventViewType {
	caps := ComputeCapabilities(event, viewer, now)

	switch viewer.Status {
	case ViewerHost:
		return ViewAdmin
	case ViewerBanned:
		return ViewBanned
	case ViewerConfirmed:
		return ViewConfirmed
	case ViewerWaitlisted:
		return ViewWaitlisted
	case ViewerCanceled:
		return ViewCanceled
	case ViewerNone:
	}

	switch {
	case caps.Apply:
		return ViewApply
	case caps.Wait:
		return ViewWaitlist
	case event.RegistrationNotYetOpen(now):
		return ViewUpcoming
	case event.RegistrationEnded(now):
		return ViewEnded
	default:
		return ViewClosed
	}
}

// EventView bundles everything a client needs to render an event for one viewer
type EventView struct {
	ViewType     EventViewType
	Capabilities Capabilities
	Viewer       Viewer
}

// Resolve computes the view type and capabilities together
func Resolve(event *Event, viewer Viewer, now time.Time) EventView {
	return EventView{
		ViewType:     ResolveView(event, viewer, now),
		Capabilities: ComputeCapabilities(event, viewer, now),
		Viewer:       viewer,
	}
}

// WaitlistPosition is the viewer's queue position, zero unless waitlisted
func (v Viewer) WaitlistPosition() int {
	if v.Status != ViewerWaitlisted || v.Registration == nil {
		return 0
	}
	return v.Registration.WaitlistPosition
}
