package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wafflestudio/moiming-web/backend-event/internal/domain"
	"github.com/wafflestudio/moiming-web/backend-event/internal/dto"
	"github.com/wafflestudio/moiming-web/backend-event/internal/service"
	"github.com/wafflestudio/moiming-web/pkg/logger"
	"github.com/wafflestudio/moiming-web/pkg/response"
	"github.com/wafflestudio/moiming-web/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	defaultStreamKeepalive = 15 * time.Second
	defaultStreamMaxWait   = 30 * time.Minute
)

// RegistrationHandler handles registration HTTP requests
type RegistrationHandler struct {
	registrationService service.RegistrationService
	// keepalive and maxWait bound one position stream
	keepalive time.Duration
	maxWait   time.Duration
}

// NewRegistrationHandler creates a new RegistrationHandler
func NewRegistrationHandler(registrationService service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{
		registrationService: registrationService,
		keepalive:           defaultStreamKeepalive,
		maxWait:             defaultStreamMaxWait,
	}
}

// Apply handles POST /events/:publicId/registrations
func (h *RegistrationHandler) Apply(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.registration.apply")
	defer span.End()

	var req dto.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		bindError(c, err)
		return
	}

	eventID := c.Param("publicId")
	span.SetAttributes(attribute.String("event_id", eventID))

	reg, err := h.registrationService.Apply(ctx, eventID, requesterFrom(c), &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusCreated, response.Success(&dto.ApplyResponse{
		RegistrationPublicID: reg.PublicID,
		Status:               reg.Status,
		WaitlistPosition:     reg.WaitlistPosition,
	}))
}

// ListGuests handles GET /events/:publicId/registrations
func (h *RegistrationHandler) ListGuests(c *gin.Context) {
	var filter dto.GuestListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid query parameters"))
		return
	}

	page, err := h.registrationService.ListGuests(c.Request.Context(), c.Param("publicId"), requesterFrom(c), &filter)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(page))
}

// Get handles GET /registrations/:id
func (h *RegistrationHandler) Get(c *gin.Context) {
	reg, err := h.registrationService.GetRegistration(c.Request.Context(), c.Param("id"), requesterFrom(c))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(reg))
}

// Update handles PATCH /registrations/:id. The path id doubles as the
// anonymous owner's credential.
func (h *RegistrationHandler) Update(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.registration.update")
	defer span.End()

	var req dto.UpdateRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	id := c.Param("id")
	requester := requesterFrom(c)
	requester.RegistrationID = id
	span.SetAttributes(attribute.String("registration_id", id), attribute.String("status", req.Status))

	reg, err := h.registrationService.UpdateStatus(ctx, id, requester, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(reg))
}

// ListMine handles GET /registrations/me
func (h *RegistrationHandler) ListMine(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	regs, err := h.registrationService.ListMyRegistrations(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(regs))
}

// Stream handles GET /registrations/:id/stream (SSE).
// It sends the current state, then every change pushed on the registration's
// pub/sub channel, and ends once the registration is no longer waitlisted.
func (h *RegistrationHandler) Stream(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.registration.stream")
	defer span.End()

	id := c.Param("id")
	requester := requesterFrom(c)
	requester.RegistrationID = id
	span.SetAttributes(attribute.String("registration_id", id))

	current, sub, err := h.registrationService.Watch(ctx, id, requester)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering
	c.Status(http.StatusOK)

	writeSSE(c, "position", current)
	if current.Status != domain.StatusWaitlisted {
		span.SetStatus(codes.Ok, "settled")
		return
	}

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	maxWait := time.NewTimer(h.maxWait)
	defer maxWait.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case update, ok := <-sub.Updates():
			if !ok {
				return
			}
			writeSSE(c, "position", update)
			if update.Status != domain.StatusWaitlisted {
				span.SetStatus(codes.Ok, "settled")
				return
			}

		case <-keepalive.C:
			// comment lines keep proxies from closing an idle stream
			fmt.Fprint(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-maxWait.C:
			writeSSE(c, "timeout", gin.H{"message": "stream expired, reconnect to resume"})
			return
		}
	}
}

func writeSSE(c *gin.Context, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.WithContext(c.Request.Context()).Warn("failed to encode stream payload", zap.Error(err))
		return
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, data)
	c.Writer.Flush()
}
