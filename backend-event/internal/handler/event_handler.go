package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wafflestudio/moiming-web/backend-event/internal/dto"
	"github.com/wafflestudio/moiming-web/backend-event/internal/service"
	"github.com/wafflestudio/moiming-web/pkg/response"
	"github.com/wafflestudio/moiming-web/pkg/telemetry"
)

// EventHandler handles event-related HTTP requests
type EventHandler struct {
	eventService service.EventService
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(eventService service.EventService) *EventHandler {
	return &EventHandler{
		eventService: eventService,
	}
}

// Create handles POST /events
func (h *EventHandler) Create(c *gin.Context) {
	hostID, ok := mustUserID(c)
	if !ok {
		return
	}

	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	event, err := h.eventService.CreateEvent(c.Request.Context(), hostID, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(&dto.CreateEventResponse{PublicID: event.PublicID}))
}

// Get handles GET /events/:publicId. Works with or without a token.
func (h *EventHandler) Get(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.event.get")
	defer span.End()

	detail, err := h.eventService.GetEventDetail(ctx, c.Param("publicId"), requesterFrom(c))
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(detail))
}

// Update handles PUT /events/:publicId (host only)
func (h *EventHandler) Update(c *gin.Context) {
	hostID, ok := mustUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	event, err := h.eventService.UpdateEvent(c.Request.Context(), hostID, c.Param("publicId"), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.NewEventResponse(event)))
}

// Delete handles DELETE /events/:publicId (host only)
func (h *EventHandler) Delete(c *gin.Context) {
	hostID, ok := mustUserID(c)
	if !ok {
		return
	}

	if err := h.eventService.DeleteEvent(c.Request.Context(), hostID, c.Param("publicId")); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListMine handles GET /events/me
func (h *EventHandler) ListMine(c *gin.Context) {
	hostID, ok := mustUserID(c)
	if !ok {
		return
	}

	events, err := h.eventService.ListHostedEvents(c.Request.Context(), hostID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.NewEventListResponse(events)))
}
