package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/attendance-api/internal/models"
	"github.com/campuskit/attendance-api/internal/service"
	appErrors "github.com/campuskit/attendance-api/pkg/errors"
	"github.com/campuskit/attendance-api/pkg/response"
)

type sessionLifecycleService interface {
	CreateSession(ctx context.Context, req service.CreateSessionRequest, createdBy *string) (*models.Session, error)
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListSessionsForCourse(ctx context.Context, courseID string, from, to *time.Time) ([]models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	EndSession(ctx context.Context, sessionID string, force bool) (*service.EndSessionResult, error)
	ForceCheckAllSessions(ctx context.Context) (*service.ForceCheckResult, error)
}

// SessionHandler exposes the session lifecycle endpoints.
type SessionHandler struct {
	lifecycle sessionLifecycleService
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(lifecycle sessionLifecycleService) *SessionHandler {
	return &SessionHandler{lifecycle: lifecycle}
}

// Create godoc
// @Summary Create a class session with the roster snapshotted as Pending
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body service.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Existing session attached as data"
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req service.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	var createdBy *string
	if claims := claimsFromContext(c); claims != nil {
		createdBy = &claims.UserID
	}
	session, err := h.lifecycle.CreateSession(c.Request.Context(), req, createdBy)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrConflict.Code && session != nil {
			response.ErrorWithData(c, err, session)
			return
		}
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Get godoc
// @Summary Get a session by id, reconciled against the wall clock
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.lifecycle.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// ListForCourse godoc
// @Summary List a course's sessions
// @Tags Sessions
// @Produce json
// @Param courseId path string true "Course ID"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /sessions/course/{courseId} [get]
func (h *SessionHandler) ListForCourse(c *gin.Context) {
	from, err := parseDateParam(c.Query("from"))
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := parseDateParam(c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	sessions, err := h.lifecycle.ListSessionsForCourse(c.Request.Context(), c.Param("courseId"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// Delete godoc
// @Summary Delete a session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 204
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.lifecycle.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type endSessionRequest struct {
	Force bool `json:"force"`
}

// End godoc
// @Summary End a session, sweeping Pending students to Absent
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body endSessionRequest false "Force flag"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope "Session has not ended"
// @Router /sessions/{id}/end [post]
func (h *SessionHandler) End(c *gin.Context) {
	var req endSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
			return
		}
	}
	result, err := h.lifecycle.EndSession(c.Request.Context(), c.Param("id"), req.Force)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ForceCheck godoc
// @Summary Run the ended-check and sweep over every session
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sessions/force-check [post]
func (h *SessionHandler) ForceCheck(c *gin.Context) {
	result, err := h.lifecycle.ForceCheckAllSessions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
