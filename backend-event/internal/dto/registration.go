package dto

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/wafflestudio/moiming-web/backend-event/internal/domain"
)

// ApplyRequest is the body of POST /events/{publicId}/registrations.
// Guest fields are required only when no bearer token is present.
type ApplyRequest struct {
	GuestName        string `json:"guestName" binding:"max=50"`
	GuestEmail       string `json:"guestEmail" binding:"max=254"`
	ReservationEmail string `json:"reservationEmail" binding:"max=254"`
}

// Validate validates the request for a member or anonymous guest
func (r *ApplyRequest) Validate(anonymous bool) (bool, string) {
	if anonymous {
		if strings.TrimSpace(r.GuestName) == "" {
			return false, "Guest name is required"
		}
		if strings.TrimSpace(r.GuestEmail) == "" {
			return false, "Guest email is required"
		}
		if !validEmail(r.GuestEmail) {
			return false, "Guest email is invalid"
		}
	}
	if r.ReservationEmail != "" && !validEmail(r.ReservationEmail) {
		return false, "Reservation email is invalid"
	}
	return true, ""
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(strings.TrimSpace(s))
	return err == nil && addr.Address == strings.TrimSpace(s)
}

// ApplyResponse is returned after a successful apply
type ApplyResponse struct {
	RegistrationPublicID string                    `json:"registrationPublicId"`
	Status               domain.RegistrationStatus `json:"status"`
	WaitlistPosition     int                       `json:"waitlistPosition,omitempty"`
}

// UpdateRegistrationRequest is the body of PATCH /registrations/{id}
type UpdateRegistrationRequest struct {
	Status string `json:"status" binding:"required"`
}

// Validate accepts only the statuses a client may request
func (r *UpdateRegistrationRequest) Validate() (bool, string) {
	status, err := domain.ParseRegistrationStatus(r.Status)
	if err != nil {
		return false, "Unknown status"
	}
	if status != domain.StatusCanceled && status != domain.StatusBanned {
		return false, "Status must be CANCELED or BANNED"
	}
	return true, ""
}

// TargetStatus returns the parsed status; call Validate first
func (r *UpdateRegistrationRequest) TargetStatus() domain.RegistrationStatus {
	status, _ := domain.ParseRegistrationStatus(r.Status)
	return status
}

// TransitionResponse is one entry of a registration's status history
type TransitionResponse struct {
	From  domain.RegistrationStatus `json:"from"`
	To    domain.RegistrationStatus `json:"to"`
	Actor domain.Actor              `json:"actor"`
	At    time.Time                 `json:"at"`
}

// RegistrationResponse represents a registration with its event
type RegistrationResponse struct {
	RegistrationPublicID string                    `json:"registrationPublicId"`
	EventPublicID        string                    `json:"eventPublicId"`
	EventTitle           string                    `json:"eventTitle,omitempty"`
	Status               domain.RegistrationStatus `json:"status"`
	WaitlistPosition     int                       `json:"waitlistPosition,omitempty"`
	Name                 string                    `json:"name"`
	ReservationEmail     string                    `json:"reservationEmail,omitempty"`
	IsMember             bool                      `json:"isMember"`
	CreatedAt            time.Time                 `json:"createdAt"`
	UpdatedAt            time.Time                 `json:"updatedAt"`
	History              []*TransitionResponse     `json:"history,omitempty"`
}

// NewRegistrationResponse maps a registration; history may be nil
func NewRegistrationResponse(r *domain.Registration, e *domain.Event, history []domain.Transition) *RegistrationResponse {
	resp := &RegistrationResponse{
		RegistrationPublicID: r.PublicID,
		Status:               r.Status,
		WaitlistPosition:     r.WaitlistPosition,
		Name:                 r.DisplayName(),
		ReservationEmail:     r.ContactEmail(),
		IsMember:             !r.IsAnonymous(),
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
	if e != nil {
		resp.EventPublicID = e.PublicID
		resp.EventTitle = e.Title
	}
	for _, t := range history {
		resp.History = append(resp.History, &TransitionResponse{From: t.From, To: t.To, Actor: t.Actor, At: t.At})
	}
	return resp
}

// RegistrationListResponse lists the caller's registrations
type RegistrationListResponse struct {
	Registrations []*RegistrationResponse `json:"registrations"`
}

// ParticipantResponse is one row of the guest list
type ParticipantResponse struct {
	RegistrationPublicID string                    `json:"registrationPublicId,omitempty"`
	Name                 string                    `json:"name"`
	Email                string                    `json:"email,omitempty"`
	Status               domain.RegistrationStatus `json:"status"`
	WaitlistPosition     int                       `json:"waitlistPosition,omitempty"`
	IsMember             bool                      `json:"isMember"`
	RegisteredAt         time.Time                 `json:"registeredAt"`
}

// NewParticipantResponse maps a registration. The public id is an anonymous
// guest's credential, so it and the contact email are only included for the host.
func NewParticipantResponse(r *domain.Registration, forHost bool) *ParticipantResponse {
	p := &ParticipantResponse{
		Name:             r.DisplayName(),
		Status:           r.Status,
		WaitlistPosition: r.WaitlistPosition,
		IsMember:         !r.IsAnonymous(),
		RegisteredAt:     r.CreatedAt,
	}
	if forHost {
		p.RegistrationPublicID = r.PublicID
		p.Email = r.ContactEmail()
	}
	return p
}

// Guest list ordering
const (
	OrderByRegisteredAt = "registeredAt"
	OrderByName         = "name"
)

const (
	DefaultGuestPageSize = 20
	MaxGuestPageSize     = 100
)

// GuestListFilter represents query parameters for the guest list
type GuestListFilter struct {
	Status  string `form:"status"`
	OrderBy string `form:"orderBy"`
	Cursor  string `form:"cursor"`
	Limit   int    `form:"limit"`
}

// SetDefaults sets default values for pagination
func (f *GuestListFilter) SetDefaults(pageSize int) {
	if f.Status == "" {
		f.Status = string(domain.StatusConfirmed)
	}
	if f.OrderBy == "" {
		f.OrderBy = OrderByRegisteredAt
	}
	if pageSize <= 0 {
		pageSize = DefaultGuestPageSize
	}
	if f.Limit <= 0 {
		f.Limit = pageSize
	}
	if f.Limit > MaxGuestPageSize {
		f.Limit = MaxGuestPageSize
	}
}

// Validate validates the filter after defaults are applied
func (f *GuestListFilter) Validate() (bool, string) {
	if _, err := domain.ParseRegistrationStatus(f.Status); err != nil {
		return false, "Unknown status filter"
	}
	if f.OrderBy != OrderByRegisteredAt && f.OrderBy != OrderByName {
		return false, "orderBy must be registeredAt or name"
	}
	if f.Cursor != "" {
		if _, err := DecodeCursor(f.Cursor); err != nil {
			return false, "Invalid cursor"
		}
	}
	return true, ""
}

// GuestListResponse is a cursor page of participants
type GuestListResponse struct {
	Participants []*ParticipantResponse `json:"participants"`
	NextCursor   string                 `json:"nextCursor,omitempty"`
	HasNext      bool                   `json:"hasNext"`
	TotalCount   int                    `json:"totalCount"`
}

// Cursor is the keyset position after the last row of a page.
// Key is the sort value (RFC3339Nano time or name) and ID breaks ties.
type Cursor struct {
	Key string `json:"k"`
	ID  int64  `json:"i"`
}

// EncodeCursor returns an opaque URL-safe token
func EncodeCursor(c Cursor) string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a token produced by EncodeCursor
func DecodeCursor(s string) (Cursor, error) {
	var c Cursor
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return c, fmt.Errorf("decode cursor: %w", err)
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("decode cursor: %w", err)
	}
	if c.ID <= 0 {
		return c, fmt.Errorf("decode cursor: missing id")
	}
	return c, nil
}
