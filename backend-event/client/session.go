package client

import (
	"sync"

	"github.com/wafflestudio/moiming-web/backend-event/internal/dto"
)

// SessionState is the persisted form of a Session
type SessionState struct {
	User  *dto.UserResponse `json:"user,omitempty"`
	Token string            `json:"token,omitempty"`
	// GuestRegistrations maps an event public id to the anonymous registration made for it
	GuestRegistrations map[string]string `json:"guestRegistrations,omitempty"`
}

// Session is the client-side identity: an optional member login plus the
// anonymous registrations made from this client. Safe for concurrent use.
type Session struct {
	mu    sync.RWMutex
	state SessionState
}

// NewSession restores a session from state; a zero state is anonymous
func NewSession(state SessionState) *Session {
	guests := make(map[string]string, len(state.GuestRegistrations))
	for k, v := range state.GuestRegistrations {
		guests[k] = v
	}
	state.GuestRegistrations = guests
	return &Session{state: state}
}

// State returns a copy suitable for persisting
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.state
	out.GuestRegistrations = make(map[string]string, len(s.state.GuestRegistrations))
	for k, v := range s.state.GuestRegistrations {
		out.GuestRegistrations[k] = v
	}
	return out
}

// Token returns the bearer token, empty when anonymous
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// User returns the logged-in member or nil
func (s *Session) User() *dto.UserResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.User
}

// IsMember reports whether a member is logged in
func (s *Session) IsMember() bool {
	return s.Token() != ""
}

// SetAuth stores a login
func (s *Session) SetAuth(token string, user *dto.UserResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Token = token
	s.state.User = user
}

// Logout drops the member login and keeps guest registrations
func (s *Session) Logout() {
	s.SetAuth("", nil)
}

// GuestRegistration returns the anonymous registration stored for an event
func (s *Session) GuestRegistration(eventPublicID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.state.GuestRegistrations[eventPublicID]
	return id, ok
}

// RememberGuest stores the anonymous registration made for an event
func (s *Session) RememberGuest(eventPublicID, registrationPublicID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.GuestRegistrations[eventPublicID] = registrationPublicID
}

// ForgetGuest removes a stored anonymous registration
func (s *Session) ForgetGuest(eventPublicID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.GuestRegistrations, eventPublicID)
}
