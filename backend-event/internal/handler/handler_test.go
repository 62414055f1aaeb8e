package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wafflestudio/moiming-web/backend-event/internal/domain"
	"github.com/wafflestudio/moiming-web/backend-event/internal/repository"
	"github.com/wafflestudio/moiming-web/backend-event/internal/service"
	"github.com/wafflestudio/moiming-web/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
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

type testServer struct {
	router *gin.Engine
	jwt    *middleware.JWTConfig
	store  *repository.MemoryStore
}

func newTestServer(t *testing.T, limiter gin.HandlerFunc) *testServer {
	t.Helper()
	store := repository.NewMemoryStore()
	jwtCfg := &middleware.JWTConfig{Secret: "handler-test-secret", Issuer: "moiming-test", TTL: time.Hour}
	deps := service.Deps{
		Users:         store.Users(),
		Events:        store.Events(),
		Registrations: store.Registrations(),
		Locker:        store,
		Notifier:      service.NewLocalNotifier(),
	}

	regHandler := NewRegistrationHandler(service.NewRegistrationService(deps))
	regHandler.keepalive = 50 * time.Millisecond
	regHandler.maxWait = 5 * time.Second

	router := NewRouter(&RouterConfig{
		JWT:          jwtCfg,
		ApplyLimiter: limiter,
		Health: NewHealthHandler("backend-event", "test", map[string]Pinger{
			"store": PingFunc(func(context.Context) error { return nil }),
		}),
		Auth:         NewAuthHandler(service.NewAuthService(store.Users(), jwtCfg)),
		Event:        NewEventHandler(service.NewEventService(deps)),
		Registration: regHandler,
	})
	return &testServer{router: router, jwt: jwtCfg, store: store}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (s *testServer) signup(t *testing.T, email, name string) string {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/auth/signup", "", gin.H{"email": email, "password": "password123", "name": name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var auth struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &auth))
	return auth.AccessToken
}

func (s *testServer) createEvent(t *testing.T, token string, capacity int, waitlist bool) string {
	t.Helper()
	now := time.Now().UTC()
	w, env := s.do(t, http.MethodPost, "/events", token, gin.H{
		"title":                "Friday board games",
		"capacity":             capacity,
		"waitlistEnabled":      waitlist,
		"registrationStartsAt": now.Add(-time.Hour),
		"registrationEndsAt":   now.Add(24 * time.Hour),
		"startsAt":             now.Add(48 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		PublicID string `json:"publicId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	return created.PublicID
}

type applied struct {
	RegistrationPublicID string `json:"registrationPublicId"`
	Status               string `json:"status"`
	WaitlistPosition     int    `json:"waitlistPosition"`
}

func (s *testServer) applyGuest(t *testing.T, eventID, name, email string) applied {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/events/"+eventID+"/registrations", "", gin.H{"guestName": name, "guestEmail": email})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var a applied
	require.NoError(t, json.Unmarshal(env.Data, &a))
	return a
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t, nil)

	w, env := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	w, _ = s.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReady_DependencyDown(t *testing.T) {
	h := NewHealthHandler("backend-event", "test", map[string]Pinger{
		"postgres": PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	r := gin.New()
	r.GET("/ready", h.Ready)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestApplyFlow_StatusCodes(t *testing.T) {
	s := newTestServer(t, nil)
	host := s.signup(t, "host@example.com", "Host")
	eventID := s.createEvent(t, host, 1, false)

	first := s.applyGuest(t, eventID, "Ann", "ann@example.com")
	assert.Equal(t, "CONFIRMED", first.Status)

	tests := []struct {
		name     string
		token    string
		body     gin.H
		wantCode int
		wantErr  string
	}{
		{"duplicate", "", gin.H{"guestName": "Ann", "guestEmail": "ANN@example.com"}, http.StatusConflict, "DUPLICATE_REGISTRATION"},
		{"full", "", gin.H{"guestName": "Ben", "guestEmail": "ben@example.com"}, http.StatusConflict, "EVENT_FULL"},
		{"missing guest fields", "", gin.H{}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"host applying", host, gin.H{}, http.StatusForbidden, "FORBIDDEN"},
		{"bad token", "not-a-token", gin.H{}, http.StatusUnauthorized, "UNAUTHORIZED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(t, http.MethodPost, "/events/"+eventID+"/registrations", tt.token, tt.body)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantErr, env.Error.Code)
		})
	}

	w, env := s.do(t, http.MethodPost, "/events/missing/registrations", "", gin.H{"guestName": "X", "guestEmail": "x@example.com"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestEventDetail_ViewerFromRegistrationID(t *testing.T) {
	s := newTestServer(t, nil)
	host := s.signup(t, "host@example.com", "Host")
	eventID := s.createEvent(t, host, 1, true)
	s.applyGuest(t, eventID, "Ann", "ann@example.com")
	waiting := s.applyGuest(t, eventID, "Ben", "ben@example.com")
	assert.Equal(t, 1, waiting.WaitlistPosition)

	type detail struct {
		ViewType string `json:"viewType"`
		Viewer   struct {
			Status           string `json:"status"`
			WaitlistPosition int    `json:"waitlistPosition"`
		} `json:"viewer"`
	}
	read := func(env envelope) detail {
		var d detail
		require.NoError(t, json.Unmarshal(env.Data, &d))
		return d
	}

	_, env := s.do(t, http.MethodGet, "/events/"+eventID+"?regId="+waiting.RegistrationPublicID, "", nil)
	d := read(env)
	assert.Equal(t, "WAITLISTED", d.ViewType)
	assert.Equal(t, 1, d.Viewer.WaitlistPosition)

	_, env = s.do(t, http.MethodGet, "/events/"+eventID, "", nil, middleware.HeaderRegistrationID, waiting.RegistrationPublicID)
	assert.Equal(t, "WAITLISTED", read(env).ViewType)

	_, env = s.do(t, http.MethodGet, "/events/"+eventID+"?regId=bogus", "", nil)
	assert.Equal(t, "NONE", read(env).Viewer.Status)

	_, env = s.do(t, http.MethodGet, "/events/"+eventID, host, nil)
	assert.Equal(t, "ADMIN", read(env).ViewType)

	w, _ := s.do(t, http.MethodGet, "/events/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelAndBan(t *testing.T) {
	s := newTestServer(t, nil)
	host := s.signup(t, "host@example.com", "Host")
	eventID := s.createEvent(t, host, 1, true)
	ann := s.applyGuest(t, eventID, "Ann", "ann@example.com")
	ben := s.applyGuest(t, eventID, "Ben", "ben@example.com")

	w, _ := s.do(t, http.MethodPatch, "/registrations/"+ann.RegistrationPublicID, "", gin.H{"status": "CANCELED"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env := s.do(t, http.MethodGet, "/registrations/"+ben.RegistrationPublicID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var reg struct {
		Status  string `json:"status"`
		History []struct {
			Actor string `json:"actor"`
		} `json:"history"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &reg))
	assert.Equal(t, "CONFIRMED", reg.Status)
	require.Len(t, reg.History, 1)
	assert.Equal(t, "SYSTEM", reg.History[0].Actor)

	w, env = s.do(t, http.MethodPatch, "/registrations/"+ann.RegistrationPublicID, "", gin.H{"status": "CANCELED"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_TRANSITION", env.Error.Code)

	w, env = s.do(t, http.MethodPatch, "/registrations/"+ben.RegistrationPublicID, "", gin.H{"status": "BANNED"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	w, _ = s.do(t, http.MethodPatch, "/registrations/"+ben.RegistrationPublicID, host, gin.H{"status": "BANNED"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodPost, "/events/"+eventID+"/registrations", "", gin.H{"guestName": "Ben", "guestEmail": "ben@example.com"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "REGISTRATION_BANNED", env.Error.Code)
}

func TestGuestList_HostOnlyStatuses(t *testing.T) {
	s := newTestServer(t, nil)
	host := s.signup(t, "host@example.com", "Host")
	eventID := s.createEvent(t, host, 1, true)
	s.applyGuest(t, eventID, "Ann", "ann@example.com")
	s.applyGuest(t, eventID, "Ben", "ben@example.com")

	w, env := s.do(t, http.MethodGet, "/events/"+eventID+"/registrations", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Participants []struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"participants"`
		TotalCount int `json:"totalCount"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Participants, 1)
	assert.Equal(t, "Ann", page.Participants[0].Name)
	assert.Empty(t, page.Participants[0].Email)

	w, _ = s.do(t, http.MethodGet, "/events/"+eventID+"/registrations?status=WAITLISTED", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(t, http.MethodGet, "/events/"+eventID+"/registrations?status=WAITLISTED", host, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Participants, 1)
	assert.Equal(t, "ben@example.com", page.Participants[0].Email)

	w, env = s.do(t, http.MethodGet, "/events/"+eventID+"/registrations?orderBy=age", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestGuestList_HidesRegistrationIDsFromNonHosts(t *testing.T) {
	s := newTestServer(t, nil)
	host := s.signup(t, "host@example.com", "Host")
	member := s.signup(t, "ann@example.com", "Ann")
	eventID := s.createEvent(t, host, 5, false)
	ben := s.applyGuest(t, eventID, "Ben", "ben@example.com")
	w, _ := s.do(t, http.MethodPost, "/events/"+eventID+"/registrations", member, gin.H{})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	type participant struct {
		Name                 string `json:"name"`
		Email                string `json:"email"`
		RegistrationPublicID string `json:"registrationPublicId"`
	}
	var page struct {
		Participants []participant `json:"participants"`
	}
	var detail struct {
		GuestsPreview []participant `json:"guestsPreview"`
	}

	for _, token := range []string{"", member} {
		w, env := s.do(t, http.MethodGet, "/events/"+eventID+"/registrations", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(env.Data, &page))
		require.Len(t, page.Participants, 2)
		for _, p := range page.Participants {
			assert.Empty(t, p.RegistrationPublicID, p.Name)
			assert.Empty(t, p.Email, p.Name)
		}
		assert.NotContains(t, string(env.Data), ben.RegistrationPublicID)

		_, env = s.do(t, http.MethodGet, "/events/"+eventID, token, nil)
		require.NoError(t, json.Unmarshal(env.Data, &detail))
		require.NotEmpty(t, detail.GuestsPreview)
		for _, p := range detail.GuestsPreview {
			assert.Empty(t, p.RegistrationPublicID, p.Name)
		}
		assert.NotContains(t, string(env.Data), ben.RegistrationPublicID)
	}

	w, env := s.do(t, http.MethodGet, "/events/"+eventID+"/registrations", host, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Participants, 2)
	for _, p := range page.Participants {
		assert.NotEmpty(t, p.RegistrationPublicID, p.Name)
		assert.NotEmpty(t, p.Email, p.Name)
	}
}

func TestEventDetail_MemberRegistrationIDIsNotAGuestCredential(t *testing.T) {
	s := newTestServer(t, nil)
	host := s.signup(t, "host@example.com", "Host")
	member := s.signup(t, "ann@example.com", "Ann")
	eventID := s.createEvent(t, host, 5, false)

	w, env := s.do(t, http.MethodPost, "/events/"+eventID+"/registrations", member, gin.H{})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var a applied
	require.NoError(t, json.Unmarshal(env.Data, &a))

	_, env = s.do(t, http.MethodGet, "/events/"+eventID+"?regId="+a.RegistrationPublicID, "", nil)
	var d struct {
		Viewer struct {
			Status string `json:"status"`
		} `json:"viewer"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &d))
	assert.Equal(t, "NONE", d.Viewer.Status)

	_, env = s.do(t, http.MethodGet, "/events/"+eventID+"?regId="+a.RegistrationPublicID, member, nil)
	require.NoError(t, json.Unmarshal(env.Data, &d))
	assert.Equal(t, "CONFIRMED", d.Viewer.Status)
}

func TestEventManagement(t *testing.T) {
	s := newTestServer(t, nil)
	host := s.signup(t, "host@example.com", "Host")
	other := s.signup(t, "other@example.com", "Other")
	eventID := s.createEvent(t, host, 2, false)

	w, env := s.do(t, http.MethodPost, "/events", host, gin.H{"title": "", "capacity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotNil(t, env.Error)

	edit := func(capacity int) gin.H {
		return gin.H{"title": "Friday board games", "capacity": capacity, "registrationEndsAt": nil}
	}

	w, _ = s.do(t, http.MethodPut, "/events/"+eventID, other, edit(5))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(t, http.MethodPut, "/events/"+eventID, host, edit(20000))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "capacity", firstKey(env.Error.Details))

	w, _ = s.do(t, http.MethodPut, "/events/"+eventID, host, gin.H{"capacity": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code, "PUT takes the whole event")

	w, env = s.do(t, http.MethodPut, "/events/"+eventID, host, edit(5))
	require.Equal(t, http.StatusOK, w.Code)
	var updated struct {
		Capacity           int        `json:"capacity"`
		RegistrationEndsAt *time.Time `json:"registrationEndsAt"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, 5, updated.Capacity)
	assert.Nil(t, updated.RegistrationEndsAt, "a null bound is cleared")

	w, env = s.do(t, http.MethodGet, "/events/me", host, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), eventID)

	w, _ = s.do(t, http.MethodGet, "/events/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/events/"+eventID, host, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = s.do(t, http.MethodGet, "/events/"+eventID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func firstKey(m map[string]string) string {
	for k := range m {
		return k
	}
	return ""
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.signup(t, "ann@example.com", "Ann")

	w, env := s.do(t, http.MethodPost, "/auth/signup", "", gin.H{"email": "ann@example.com", "password": "password123", "name": "Ann"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "EMAIL_TAKEN", env.Error.Code)

	w, env = s.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "ann@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)

	w, _ = s.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "ann@example.com", "password": "password123"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "ann@example.com")

	expired, _, err := middleware.IssueToken(s.jwt, 1, "ann@example.com", "Ann", time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	w, env = s.do(t, http.MethodGet, "/auth/me", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "TOKEN_EXPIRED", env.Error.Code)
}

func TestUpdateMeAndLogout(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.signup(t, "ann@example.com", "Ann")
	s.signup(t, "ben@example.com", "Ben")

	w, env := s.do(t, http.MethodPatch, "/users/me", token, gin.H{"name": "Ann Lee", "password": "another-password"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var user struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "Ann Lee", user.Name)
	assert.Equal(t, "ann@example.com", user.Email)

	w, _ = s.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "ann@example.com", "password": "another-password"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodPatch, "/users/me", token, gin.H{"email": "ben@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "EMAIL_TAKEN", env.Error.Code)

	w, env = s.do(t, http.MethodPatch, "/users/me", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	w, _ = s.do(t, http.MethodPatch, "/users/me", "", gin.H{"name": "Nobody"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = s.do(t, http.MethodGet, "/users/me", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "Ann Lee")

	w, _ = s.do(t, http.MethodPost, "/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, w.Body.Len())
}

func TestMyRegistrations(t *testing.T) {
	s := newTestServer(t, nil)
	host := s.signup(t, "host@example.com", "Host")
	member := s.signup(t, "ann@example.com", "Ann")
	eventID := s.createEvent(t, host, 3, false)

	w, _ := s.do(t, http.MethodPost, "/events/"+eventID+"/registrations", member, gin.H{})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env := s.do(t, http.MethodGet, "/registrations/me", member, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "Friday board games")
}

func TestApply_RateLimited(t *testing.T) {
	cfg := middleware.RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1}
	limiter := middleware.NewLocalRateLimiter(cfg)
	defer limiter.Stop()

	s := newTestServer(t, middleware.RateLimiter(limiter, cfg))
	host := s.signup(t, "host@example.com", "Host")
	eventID := s.createEvent(t, host, 5, false)

	s.applyGuest(t, eventID, "Ann", "ann@example.com")
	w, env := s.do(t, http.MethodPost, "/events/"+eventID+"/registrations", "", gin.H{"guestName": "Ben", "guestEmail": "ben@example.com"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "TOO_MANY_REQUESTS", env.Error.Code)
}

func TestStream_EndsOnPromotion(t *testing.T) {
	s := newTestServer(t, nil)
	host := s.signup(t, "host@example.com", "Host")
	eventID := s.createEvent(t, host, 1, true)
	ann := s.applyGuest(t, eventID, "Ann", "ann@example.com")
	ben := s.applyGuest(t, eventID, "Ben", "ben@example.com")

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/registrations/"+ben.RegistrationPublicID+"/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	nextData := func() string {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data: ") {
				return strings.TrimPrefix(strings.TrimSpace(line), "data: ")
			}
		}
	}

	assert.Contains(t, nextData(), `"status":"WAITLISTED"`)

	w, _ := s.do(t, http.MethodPatch, "/registrations/"+ann.RegistrationPublicID, "", gin.H{"status": "CANCELED"})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Contains(t, nextData(), `"status":"`+string(domain.StatusConfirmed)+`"`)
}
