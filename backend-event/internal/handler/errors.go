package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wafflestudio/moiming-web/backend-event/internal/domain"
	"github.com/wafflestudio/moiming-web/backend-event/internal/service"
	"github.com/wafflestudio/moiming-web/pkg/logger"
	"github.com/wafflestudio/moiming-web/pkg/middleware"
	"github.com/wafflestudio/moiming-web/pkg/response"
	"go.uber.org/zap"
)

// handleError maps service errors to the response envelope
func handleError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, response.ValidationFailed(verr.Error(), map[string]string{verr.Field: verr.Message}))
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, response.ValidationFailed(err.Error(), nil))
	case errors.Is(err, domain.ErrEventNotFound):
		c.JSON(http.StatusNotFound, response.NotFound("Event not found"))
	case errors.Is(err, domain.ErrRegistrationNotFound):
		c.JSON(http.StatusNotFound, response.NotFound("Registration not found"))
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, response.NotFound("User not found"))
	case errors.Is(err, domain.ErrRegistrationClosed):
		c.JSON(http.StatusConflict, response.Conflict(response.ErrCodeRegistrationClosed, "Registration is not open"))
	case errors.Is(err, domain.ErrDuplicateRegistration):
		c.JSON(http.StatusConflict, response.Conflict(response.ErrCodeDuplicateRegistration, "Already registered for this event"))
	case errors.Is(err, domain.ErrEventFull):
		c.JSON(http.StatusConflict, response.Conflict(response.ErrCodeEventFull, "Event is full"))
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, response.Conflict(response.ErrCodeInvalidTransition, err.Error()))
	case errors.Is(err, domain.ErrEmailTaken):
		c.JSON(http.StatusConflict, response.Conflict(response.ErrCodeEmailTaken, "Email is already registered"))
	case errors.Is(err, domain.ErrRegistrationBanned):
		c.JSON(http.StatusForbidden, response.Error(response.ErrCodeRegistrationBanned, "Banned from this event"))
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, response.Forbidden(""))
	case errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, response.Error(response.ErrCodeInvalidCredentials, "Invalid email or password"))
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, response.Unauthorized(""))
	default:
		logger.WithContext(c.Request.Context()).Error("request failed",
			zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.InternalError(""))
	}
}

// bindError answers a malformed body
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.BadRequest("Invalid request body: "+err.Error()))
}

// requesterFrom reads the bearer identity and the anonymous registration id.
// The id comes from ?regId= or the X-Registration-Id header.
func requesterFrom(c *gin.Context) service.Requester {
	var r service.Requester
	if id, ok := middleware.GetUserID(c); ok {
		r.UserID = id
	}
	r.RegistrationID = c.Query("regId")
	if r.RegistrationID == "" {
		r.RegistrationID = c.GetHeader(middleware.HeaderRegistrationID)
	}
	return r
}

// mustUserID answers 401 when the route ran without a token
func mustUserID(c *gin.Context) (int64, bool) {
	id, ok := middleware.GetUserID(c)
	if !ok || id <= 0 {
		c.JSON(http.StatusUnauthorized, response.Unauthorized("User ID not found in token"))
		return 0, false
	}
	return id, true
}
