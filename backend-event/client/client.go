// Package client is a Go SDK for the event service. Every call takes an
// explicit Session; nothing is retried automatically.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wafflestudio/moiming-web/backend-event/internal/domain"
	"github.com/wafflestudio/moiming-web/backend-event/internal/dto"
	"github.com/wafflestudio/moiming-web/pkg/middleware"
)

// Response and request shapes
type (
	EventDetail        = dto.EventDetailResponse
	Event              = dto.EventResponse
	EventList          = dto.EventListResponse
	CreateEventRequest = dto.CreateEventRequest
	UpdateEventRequest = dto.UpdateEventRequest
	ApplyRequest       = dto.ApplyRequest
	ApplyResult        = dto.ApplyResponse
	Registration       = dto.RegistrationResponse
	RegistrationList   = dto.RegistrationListResponse
	GuestListFilter    = dto.GuestListFilter
	GuestList          = dto.GuestListResponse
	SignupRequest      = dto.SignupRequest
	LoginRequest       = dto.LoginRequest
	User               = dto.UserResponse
	AuthResult         = dto.AuthResponse
	UpdateMeRequest    = dto.UpdateMeRequest
)

// Client talks to the event service over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

// do sends one request and decodes the envelope's data into out (may be nil)
func (c *Client) do(ctx context.Context, s *Session, method, path string, headers http.Header, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s != nil {
		if token := s.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	for k, v := range headers {
		req.Header[k] = v
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{StatusCode: resp.StatusCode, Code: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("%w: undecodable response: %v", ErrNetwork, err)
	}

	if !env.Success || resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		}
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Signup creates a member and logs the session in
func (c *Client) Signup(ctx context.Context, s *Session, req *SignupRequest) (*User, error) {
	var res AuthResult
	if err := c.do(ctx, nil, http.MethodPost, "/auth/signup", nil, req, &res); err != nil {
		return nil, err
	}
	s.SetAuth(res.AccessToken, res.User)
	return res.User, nil
}

// Login logs the session in
func (c *Client) Login(ctx context.Context, s *Session, req *LoginRequest) (*User, error) {
	var res AuthResult
	if err := c.do(ctx, nil, http.MethodPost, "/auth/login", nil, req, &res); err != nil {
		return nil, err
	}
	s.SetAuth(res.AccessToken, res.User)
	return res.User, nil
}

// Me returns the logged-in member
func (c *Client) Me(ctx context.Context, s *Session) (*User, error) {
	var user User
	if err := c.do(ctx, s, http.MethodGet, "/auth/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateMe edits the logged-in member and refreshes the session's copy
func (c *Client) UpdateMe(ctx context.Context, s *Session, req *UpdateMeRequest) (*User, error) {
	var user User
	if err := c.do(ctx, s, http.MethodPatch, "/users/me", nil, req, &user); err != nil {
		return nil, err
	}
	s.SetAuth(s.Token(), &user)
	return &user, nil
}

// Logout tells the server and drops the member login from the session even
// when the server cannot be reached. Guest registrations are kept.
func (c *Client) Logout(ctx context.Context, s *Session) error {
	err := c.do(ctx, s, http.MethodPost, "/auth/logout", nil, nil, nil)
	s.Logout()
	return err
}

// CreateEvent creates an event hosted by the session's member and returns its public id
func (c *Client) CreateEvent(ctx context.Context, s *Session, req *CreateEventRequest) (string, error) {
	var res dto.CreateEventResponse
	if err := c.do(ctx, s, http.MethodPost, "/events", nil, req, &res); err != nil {
		return "", err
	}
	return res.PublicID, nil
}

// UpdateEvent replaces the event's editable fields; start from Event.UpdateRequest
func (c *Client) UpdateEvent(ctx context.Context, s *Session, eventPublicID string, req *UpdateEventRequest) (*Event, error) {
	var event Event
	if err := c.do(ctx, s, http.MethodPut, "/events/"+url.PathEscape(eventPublicID), nil, req, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// DeleteEvent deletes an event and forgets any guest registration for it
func (c *Client) DeleteEvent(ctx context.Context, s *Session, eventPublicID string) error {
	if err := c.do(ctx, s, http.MethodDelete, "/events/"+url.PathEscape(eventPublicID), nil, nil, nil); err != nil {
		return err
	}
	s.ForgetGuest(eventPublicID)
	return nil
}

// MyEvents lists events hosted by the session's member
func (c *Client) MyEvents(ctx context.Context, s *Session) (*EventList, error) {
	var list EventList
	if err := c.do(ctx, s, http.MethodGet, "/events/me", nil, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetEvent loads the event page as the session sees it. A stored guest
// registration the server no longer recognises is dropped from the session.
func (c *Client) GetEvent(ctx context.Context, s *Session, eventPublicID string) (*EventDetail, error) {
	headers := http.Header{}
	regID, hasGuest := s.GuestRegistration(eventPublicID)
	if hasGuest {
		headers.Set(middleware.HeaderRegistrationID, regID)
	}

	var detail EventDetail
	if err := c.do(ctx, s, http.MethodGet, "/events/"+url.PathEscape(eventPublicID), headers, nil, &detail); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.ForgetGuest(eventPublicID)
		}
		return nil, err
	}

	if hasGuest && !s.IsMember() && detail.Viewer != nil && detail.Viewer.Status == domain.ViewerNone {
		s.ForgetGuest(eventPublicID)
	}
	return &detail, nil
}

// ListGuests fetches one page of an event's guest list
func (c *Client) ListGuests(ctx context.Context, s *Session, eventPublicID string, filter GuestListFilter) (*GuestList, error) {
	q := url.Values{}
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	if filter.OrderBy != "" {
		q.Set("orderBy", filter.OrderBy)
	}
	if filter.Cursor != "" {
		q.Set("cursor", filter.Cursor)
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}

	path := "/events/" + url.PathEscape(eventPublicID) + "/registrations"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page GuestList
	if err := c.do(ctx, s, http.MethodGet, path, nil, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Apply registers the session for an event. Anonymous registrations are
// remembered in the session so later calls resolve the guest's view.
func (c *Client) Apply(ctx context.Context, s *Session, eventPublicID string, req *ApplyRequest) (*ApplyResult, error) {
	if req == nil {
		req = &ApplyRequest{}
	}
	var res ApplyResult
	if err := c.do(ctx, s, http.MethodPost, "/events/"+url.PathEscape(eventPublicID)+"/registrations", nil, req, &res); err != nil {
		return nil, err
	}
	if !s.IsMember() {
		s.RememberGuest(eventPublicID, res.RegistrationPublicID)
	}
	return &res, nil
}

// GetRegistration returns a registration with its history
func (c *Client) GetRegistration(ctx context.Context, s *Session, registrationPublicID string) (*Registration, error) {
	var reg Registration
	if err := c.do(ctx, s, http.MethodGet, "/registrations/"+url.PathEscape(registrationPublicID), nil, nil, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Cancel cancels the caller's own registration
func (c *Client) Cancel(ctx context.Context, s *Session, registrationPublicID string) (*Registration, error) {
	return c.updateStatus(ctx, s, registrationPublicID, domain.StatusCanceled)
}

// Ban bans a guest from the host's event
func (c *Client) Ban(ctx context.Context, s *Session, registrationPublicID string) (*Registration, error) {
	return c.updateStatus(ctx, s, registrationPublicID, domain.StatusBanned)
}

func (c *Client) updateStatus(ctx context.Context, s *Session, registrationPublicID string, status domain.RegistrationStatus) (*Registration, error) {
	var reg Registration
	body := &dto.UpdateRegistrationRequest{Status: string(status)}
	if err := c.do(ctx, s, http.MethodPatch, "/registrations/"+url.PathEscape(registrationPublicID), nil, body, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// MyRegistrations lists the member's registrations
func (c *Client) MyRegistrations(ctx context.Context, s *Session) (*RegistrationList, error) {
	var list RegistrationList
	if err := c.do(ctx, s, http.MethodGet, "/registrations/me", nil, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}
