package dto

import (
	"strings"
	"time"

	"github.com/wafflestudio/moiming-web/backend-event/internal/domain"
)

// CreateEventRequest represents the request to create a new event
type CreateEventRequest struct {
	Title                string     `json:"title" binding:"required,max=100"`
	Description          string     `json:"description" binding:"max=5000"`
	Location             string     `json:"location" binding:"max=200"`
	StartsAt             *time.Time `json:"startsAt"`
	EndsAt               *time.Time `json:"endsAt"`
	Capacity             int        `json:"capacity" binding:"required"`
	WaitlistEnabled      bool       `json:"waitlistEnabled"`
	RegistrationStartsAt *time.Time `json:"registrationStartsAt"`
	RegistrationEndsAt   *time.Time `json:"registrationEndsAt"`
}

// Validate checks request-level constraints; the event model checks the rest
func (r *CreateEventRequest) Validate() (bool, string) {
	if strings.TrimSpace(r.Title) == "" {
		return false, "Title is required"
	}
	if r.Capacity < 1 {
		return false, "Capacity must be at least 1"
	}
	return true, ""
}

// ToDomain builds an unsaved event owned by hostID
func (r *CreateEventRequest) ToDomain(hostID int64) *domain.Event {
	return &domain.Event{
		Title:                strings.TrimSpace(r.Title),
		Description:          r.Description,
		Location:             r.Location,
		StartsAt:             r.StartsAt,
		EndsAt:               r.EndsAt,
		Capacity:             r.Capacity,
		WaitlistEnabled:      r.WaitlistEnabled,
		RegistrationStartsAt: r.RegistrationStartsAt,
		RegistrationEndsAt:   r.RegistrationEndsAt,
		CreatedBy:            hostID,
	}
}

// UpdateEventRequest replaces every editable field of an event. Omitted or
// null times clear that bound, so clients send the whole event back.
type UpdateEventRequest struct {
	CreateEventRequest
}

// ApplyTo overwrites the editable fields of e; identity, host and counts are kept
func (r *UpdateEventRequest) ApplyTo(e *domain.Event) {
	e.Title = strings.TrimSpace(r.Title)
	e.Description = r.Description
	e.Location = r.Location
	e.StartsAt = r.StartsAt
	e.EndsAt = r.EndsAt
	e.Capacity = r.Capacity
	e.WaitlistEnabled = r.WaitlistEnabled
	e.RegistrationStartsAt = r.RegistrationStartsAt
	e.RegistrationEndsAt = r.RegistrationEndsAt
}

// EventResponse represents the response for an event
type EventResponse struct {
	PublicID             string     `json:"publicId"`
	Title                string     `json:"title"`
	Description          string     `json:"description,omitempty"`
	Location             string     `json:"location,omitempty"`
	StartsAt             *time.Time `json:"startsAt,omitempty"`
	EndsAt               *time.Time `json:"endsAt,omitempty"`
	Capacity             int        `json:"capacity"`
	WaitlistEnabled      bool       `json:"waitlistEnabled"`
	RegistrationStartsAt *time.Time `json:"registrationStartsAt,omitempty"`
	RegistrationEndsAt   *time.Time `json:"registrationEndsAt,omitempty"`
	TotalApplicants      int        `json:"totalApplicants"`
	ConfirmedCount       int        `json:"confirmedCount"`
	WaitlistCount        int        `json:"waitlistCount"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// NewEventResponse maps an event to its wire form
func NewEventResponse(e *domain.Event) *EventResponse {
	return &EventResponse{
		PublicID:             e.PublicID,
		Title:                e.Title,
		Description:          e.Description,
		Location:             e.Location,
		StartsAt:             e.StartsAt,
		EndsAt:               e.EndsAt,
		Capacity:             e.Capacity,
		WaitlistEnabled:      e.WaitlistEnabled,
		RegistrationStartsAt: e.RegistrationStartsAt,
		RegistrationEndsAt:   e.RegistrationEndsAt,
		TotalApplicants:      e.TotalApplicants(),
		ConfirmedCount:       e.ConfirmedCount,
		WaitlistCount:        e.WaitlistCount,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
}

// UpdateRequest returns a replacement body holding the event's current values
func (r *EventResponse) UpdateRequest() *UpdateEventRequest {
	return &UpdateEventRequest{CreateEventRequest{
		Title:                r.Title,
		Description:          r.Description,
		Location:             r.Location,
		StartsAt:             r.StartsAt,
		EndsAt:               r.EndsAt,
		Capacity:             r.Capacity,
		WaitlistEnabled:      r.WaitlistEnabled,
		RegistrationStartsAt: r.RegistrationStartsAt,
		RegistrationEndsAt:   r.RegistrationEndsAt,
	}}
}

// CreateEventResponse carries the new event's public id
type CreateEventResponse struct {
	PublicID string `json:"publicId"`
}

// CreatorResponse is the host as shown on the event page
type CreatorResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// NewCreatorResponse maps a user; nil yields nil
func NewCreatorResponse(u *domain.User) *CreatorResponse {
	if u == nil {
		return nil
	}
	return &CreatorResponse{ID: u.ID, Name: u.Name, Email: u.Email, ProfileImage: u.ProfileImage}
}

// ViewerResponse is the requester's own relationship to the event
type ViewerResponse struct {
	Status               domain.ViewerStatus `json:"status"`
	Name                 string              `json:"name,omitempty"`
	RegistrationPublicID string              `json:"registrationPublicId,omitempty"`
	WaitlistPosition     int                 `json:"waitlistPosition,omitempty"`
	ReservationEmail     string              `json:"reservationEmail,omitempty"`
}

// NewViewerResponse maps a resolved viewer
func NewViewerResponse(v domain.Viewer) *ViewerResponse {
	resp := &ViewerResponse{Status: v.Status}
	if v.Registration != nil {
		resp.Name = v.Registration.DisplayName()
		resp.RegistrationPublicID = v.Registration.PublicID
		resp.WaitlistPosition = v.WaitlistPosition()
		resp.ReservationEmail = v.Registration.ContactEmail()
	}
	return resp
}

// EventDetailResponse is the full event page payload
type EventDetailResponse struct {
	Event         *EventResponse         `json:"event"`
	Creator       *CreatorResponse       `json:"creator"`
	Viewer        *ViewerResponse        `json:"viewer"`
	ViewType      domain.EventViewType   `json:"viewType"`
	Capabilities  domain.Capabilities    `json:"capabilities"`
	GuestsPreview []*ParticipantResponse `json:"guestsPreview"`
}

// EventListResponse represents a list of events
type EventListResponse struct {
	Events []*EventResponse `json:"events"`
}

// NewEventListResponse maps events in order
func NewEventListResponse(events []*domain.Event) *EventListResponse {
	resp := &EventListResponse{Events: make([]*EventResponse, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, NewEventResponse(e))
	}
	return resp
}
