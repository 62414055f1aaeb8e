package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func viewerWith(status RegistrationStatus) Viewer {
	return ViewerFromRegistration(&Registration{ID: 9, EventID: 1, Status: status, WaitlistPosition: 3})
}

func TestResolveView_Precedence(t *testing.T) {
	closedWindow := func(e *Event) { e.RegistrationEndsAt = at(-time.Hour) }
	full := func(e *Event) { e.ConfirmedCount = e.Capacity }
	fullWithWaitlist := func(e *Event) { full(e); e.WaitlistEnabled = true }
	upcoming := func(e *Event) {
		e.RegistrationStartsAt = at(24 * time.Hour)
		e.RegistrationEndsAt = at(48 * time.Hour)
	}

	tests := []struct {
		name   string
		mutate func(e *Event)
		viewer Viewer
		want   EventViewType
	}{
		{name: "host on open event", viewer: Viewer{Status: ViewerHost}, want: ViewAdmin},
		{name: "host after registration ended", mutate: closedWindow, viewer: Viewer{Status: ViewerHost}, want: ViewAdmin},
		{name: "host on full event", mutate: full, viewer: Viewer{Status: ViewerHost}, want: ViewAdmin},
		{name: "banned with free seats", viewer: viewerWith(StatusBanned), want: ViewBanned},
		{name: "banned with waitlist open", mutate: fullWithWaitlist, viewer: viewerWith(StatusBanned), want: ViewBanned},
		{name: "confirmed after window closed", mutate: closedWindow, viewer: viewerWith(StatusConfirmed), want: ViewConfirmed},
		{name: "waitlisted", mutate: fullWithWaitlist, viewer: viewerWith(StatusWaitlisted), want: ViewWaitlisted},
		{name: "canceled with seats free", viewer: viewerWith(StatusCanceled), want: ViewCanceled},
		{name: "canceled after close", mutate: closedWindow, viewer: viewerWith(StatusCanceled), want: ViewCanceled},
		{name: "no registration open", viewer: NoViewer, want: ViewApply},
		{name: "no registration full with waitlist", mutate: fullWithWaitlist, viewer: NoViewer, want: ViewWaitlist},
		{name: "no registration upcoming", mutate: upcoming, viewer: NoViewer, want: ViewUpcoming},
		{name: "no registration ended", mutate: closedWindow, viewer: NoViewer, want: ViewEnded},
		{name: "no registration full no waitlist", mutate: full, viewer: NoViewer, want: ViewClosed},
		{name: "ended beats full", mutate: func(e *Event) { full(e); closedWindow(e) }, viewer: NoViewer, want: ViewEnded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEvent()
			if tt.mutate != nil {
				tt.mutate(e)
			}
			before := *e
			got := ResolveView(e, tt.viewer, baseTime)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, ResolveView(e, tt.viewer, baseTime), "must be deterministic")
			assert.Equal(t, before, *e, "must not modify the event")
		})
	}
}

func TestComputeCapabilities(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(e *Event)
		viewer Viewer
		want   Capabilities
	}{
		{name: "anonymous open", viewer: NoViewer, want: Capabilities{Apply: true}},
		{
			name:   "anonymous at capacity without waitlist",
			mutate: func(e *Event) { e.ConfirmedCount = 5 },
			viewer: NoViewer,
			want:   Capabilities{},
		},
		{
			name:   "anonymous at capacity with waitlist",
			mutate: func(e *Event) { e.ConfirmedCount = 5; e.WaitlistEnabled = true },
			viewer: NoViewer,
			want:   Capabilities{Wait: true},
		},
		{name: "host open", viewer: Viewer{Status: ViewerHost}, want: Capabilities{ShareLink: true}},
		{name: "confirmed", viewer: viewerWith(StatusConfirmed), want: Capabilities{Cancel: true}},
		{name: "waitlisted", viewer: viewerWith(StatusWaitlisted), want: Capabilities{Cancel: true}},
		{name: "canceled may reapply", viewer: viewerWith(StatusCanceled), want: Capabilities{Apply: true}},
		{name: "banned", viewer: viewerWith(StatusBanned), want: Capabilities{}},
		{
			name:   "closed window",
			mutate: func(e *Event) { e.RegistrationEndsAt = at(-time.Second) },
			viewer: NoViewer,
			want:   Capabilities{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEvent()
			if tt.mutate != nil {
				tt.mutate(e)
			}
			assert.Equal(t, tt.want, ComputeCapabilities(e, tt.viewer, baseTime))
		})
	}
}

func TestResolveView_FullEventExample(t *testing.T) {
	e := validEvent()
	e.ConfirmedCount = 5

	view := Resolve(e, NoViewer, baseTime)
	assert.Equal(t, Capabilities{}, view.Capabilities)
	assert.Equal(t, ViewClosed, view.ViewType)
}

func TestResolveView_EveryTypeReachable(t *testing.T) {
	// guards against a view type being shadowed by an earlier rule
	seen := map[EventViewType]bool{}
	viewers := []Viewer{
		NoViewer, {Status: ViewerHost},
		viewerWith(StatusConfirmed), viewerWith(StatusWaitlisted),
		viewerWith(StatusCanceled), viewerWith(StatusBanned),
	}
	windows := []func(e *Event){
		func(e *Event) {},
		func(e *Event) { e.RegistrationStartsAt = at(time.Hour) },
		func(e *Event) { e.RegistrationEndsAt = at(-time.Hour) },
	}
	for _, v := range viewers {
		for _, w := range windows {
			for _, confirmed := range []int{0, 5} {
				for _, waitlist := range []bool{false, true} {
					e := validEvent()
					w(e)
					e.ConfirmedCount = confirmed
					e.WaitlistEnabled = waitlist
					seen[ResolveView(e, v, baseTime)] = true
				}
			}
		}
	}
	for _, vt := range AllViewTypes {
		assert.True(t, seen[vt], "view type %s never produced", vt)
	}
}

func TestResolveViewer(t *testing.T) {
	e := validEvent()
	e.CreatedBy = 1
	uid := int64(2)

	canceled := &Registration{ID: 1, EventID: 1, UserID: &uid, Status: StatusCanceled, CreatedAt: baseTime}
	active := &Registration{ID: 2, EventID: 1, UserID: &uid, Status: StatusWaitlisted, CreatedAt: baseTime.Add(time.Hour)}
	guest := &Registration{ID: 3, EventID: 1, GuestEmail: "g@example.com", Status: StatusConfirmed}
	otherEventGuest := &Registration{ID: 4, EventID: 99, GuestEmail: "g@example.com", Status: StatusConfirmed}

	assert.Equal(t, ViewerHost, ResolveViewer(e, 1, nil, guest).Status)
	assert.Equal(t, ViewerWaitlisted, ResolveViewer(e, 2, []*Registration{canceled, active}, nil).Status)
	assert.Equal(t, ViewerCanceled, ResolveViewer(e, 2, []*Registration{canceled}, nil).Status)
	assert.Equal(t, ViewerConfirmed, ResolveViewer(e, 0, nil, guest).Status)
	assert.Equal(t, ViewerNone, ResolveViewer(e, 0, nil, otherEventGuest).Status, "foreign registration id degrades to NONE")
	assert.Equal(t, ViewerNone, ResolveViewer(e, 0, nil, active).Status, "a member registration id does not identify an anonymous viewer")
	assert.Equal(t, ViewerNone, ResolveViewer(e, 0, nil, nil).Status)
}

func TestPickViewerRegistration(t *testing.T) {
	older := &Registration{ID: 1, Status: StatusCanceled, CreatedAt: baseTime}
	newer := &Registration{ID: 2, Status: StatusCanceled, CreatedAt: baseTime.Add(time.Minute)}
	banned := &Registration{ID: 3, Status: StatusBanned, CreatedAt: baseTime}

	assert.Nil(t, PickViewerRegistration(nil))
	assert.Same(t, newer, PickViewerRegistration([]*Registration{older, newer}))
	assert.Same(t, banned, PickViewerRegistration([]*Registration{newer, banned}))
}

func TestViewer_WaitlistPosition(t *testing.T) {
	assert.Equal(t, 3, viewerWith(StatusWaitlisted).WaitlistPosition())
	assert.Zero(t, viewerWith(StatusConfirmed).WaitlistPosition())
	assert.Zero(t, NoViewer.WaitlistPosition())
}
