package dto

import (
	"time"

	"github.com/wafflestudio/moiming-web/backend-event/internal/domain"
)

// Topic names for registration lifecycle events
const (
	TopicRegistrationApplied  = "registration.applied"
	TopicRegistrationCanceled = "registration.canceled"
	TopicRegistrationBanned   = "registration.banned"
	TopicRegistrationPromoted = "registration.promoted"
	TopicEventDeleted         = "event.deleted"
)

// TopicForTransition picks the topic announcing a move into status
func TopicForTransition(to domain.RegistrationStatus) string {
	switch to {
	case domain.StatusCanceled:
		return TopicRegistrationCanceled
	case domain.StatusBanned:
		return TopicRegistrationBanned
	case domain.StatusConfirmed:
		return TopicRegistrationPromoted
	default:
		return TopicRegistrationApplied
	}
}

// RegistrationEvent is published whenever a registration is created or changes status
type RegistrationEvent struct {
	EventType        string                    `json:"event_type"`
	RegistrationID   string                    `json:"registration_id"`
	EventPublicID    string                    `json:"event_public_id"`
	EventTitle       string                    `json:"event_title,omitempty"`
	UserID           int64                     `json:"user_id,omitempty"`
	Email            string                    `json:"email,omitempty"`
	Name             string                    `json:"name,omitempty"`
	PreviousStatus   domain.RegistrationStatus `json:"previous_status,omitempty"`
	Status           domain.RegistrationStatus `json:"status"`
	Actor            domain.Actor              `json:"actor,omitempty"`
	WaitlistPosition int                       `json:"waitlist_position,omitempty"`
	Timestamp        time.Time                 `json:"timestamp"`
}

// Key returns the Kafka message key; keying by event keeps one event's changes ordered
func (e *RegistrationEvent) Key() string {
	return e.EventPublicID
}

// NewRegistrationEvent builds the message for reg, optionally describing transition t
func NewRegistrationEvent(topic string, event *domain.Event, reg *domain.Registration, t *domain.Transition) *RegistrationEvent {
	msg := &RegistrationEvent{
		EventType:        topic,
		RegistrationID:   reg.PublicID,
		EventPublicID:    event.PublicID,
		EventTitle:       event.Title,
		Email:            reg.ContactEmail(),
		Name:             reg.DisplayName(),
		Status:           reg.Status,
		WaitlistPosition: reg.WaitlistPosition,
		Timestamp:        reg.UpdatedAt,
	}
	if reg.UserID != nil {
		msg.UserID = *reg.UserID
	}
	if t != nil {
		msg.PreviousStatus = t.From
		msg.Actor = t.Actor
		msg.Timestamp = t.At
	}
	return msg
}

// EventDeletedEvent is published when a host deletes an event
type EventDeletedEvent struct {
	EventType     string    `json:"event_type"`
	EventPublicID string    `json:"event_public_id"`
	HostID        int64     `json:"host_id"`
	Affected      int       `json:"affected_registrations"`
	Timestamp     time.Time `json:"timestamp"`
}

// Key returns the Kafka message key for partitioning
func (e *EventDeletedEvent) Key() string {
	return e.EventPublicID
}

// WaitlistUpdate is pushed to stream subscribers of an event
type WaitlistUpdate struct {
	RegistrationID   string                    `json:"registrationPublicId"`
	Status           domain.RegistrationStatus `json:"status"`
	WaitlistPosition int                       `json:"waitlistPosition,omitempty"`
	ConfirmedCount   int                       `json:"confirmedCount"`
	WaitlistCount    int                       `json:"waitlistCount"`
}
