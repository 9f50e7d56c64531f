package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edumark/school-results-api/internal/models"
	"github.com/edumark/school-results-api/internal/service"
	appErrors "github.com/edumark/school-results-api/pkg/errors"
	"github.com/edumark/school-results-api/pkg/response"
)

// StudentRegistry is the slice of the student service the handler consumes.
type StudentRegistry interface {
	Register(ctx context.Context, claims *models.JWTClaims, req service.RegisterStudentRequest) (*models.Student, error)
	Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.Student, error)
}

// StudentHandler exposes student registration and lookup.
type StudentHandler struct {
	students StudentRegistry
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(students StudentRegistry) *StudentHandler {
	return &StudentHandler{students: students}
}

// Register godoc
// @Summary Register a student
// @Description Registers a student, allocating an admission number when none is supplied
// @Tags students
// @Accept json
// @Produce json
// @Param request body service.RegisterStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope{data=models.Student}
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /students [post]
func (h *StudentHandler) Register(c *gin.Context) {
	var req service.RegisterStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	student, err := h.students.Register(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Get godoc
// @Summary Get a student
// @Tags students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope{data=models.Student}
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}
