package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/attendance-api/internal/models"
	"github.com/campuskit/attendance-api/internal/service"
	appErrors "github.com/campuskit/attendance-api/pkg/errors"
	"github.com/campuskit/attendance-api/pkg/response"
)

type studentManager interface {
	RegisterStudent(ctx context.Context, req service.RegisterStudentRequest) (*models.Student, error)
	GetStudent(ctx context.Context, idNumber string) (*models.Student, error)
}

// StudentHandler exposes student registration and lookup.
type StudentHandler struct {
	service studentManager
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(service studentManager) *StudentHandler {
	return &StudentHandler{service: service}
}

// Register godoc
// @Summary Register a student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.RegisterStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Register(c *gin.Context) {
	var req service.RegisterStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	student, err := h.service.RegisterStudent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Get godoc
// @Summary Get a student by ID number
// @Tags Students
// @Produce json
// @Param idNumber path string true "Student ID number"
// @Success 200 {object} response.Envelope
// @Router /students/{idNumber} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.service.GetStudent(c.Request.Context(), c.Param("idNumber"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}
