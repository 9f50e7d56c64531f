package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edumark/school-results-api/internal/models"
	"github.com/edumark/school-results-api/internal/service"
	appErrors "github.com/edumark/school-results-api/pkg/errors"
	"github.com/edumark/school-results-api/pkg/response"
)

// ResultWorkflow is the slice of the result service the handler consumes.
type ResultWorkflow interface {
	Create(ctx context.Context, claims *models.JWTClaims, req service.CreateResultRequest) (*models.Result, error)
	Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.Result, error)
	List(ctx context.Context, claims *models.JWTClaims, filter models.ResultFilter) ([]models.Result, int, error)
	Update(ctx context.Context, claims *models.JWTClaims, id string, req service.UpdateResultRequest) (*models.Result, error)
	Submit(ctx context.Context, claims *models.JWTClaims, id string) (*models.Result, error)
	Approve(ctx context.Context, claims *models.JWTClaims, id string) (*models.Result, error)
	Reject(ctx context.Context, claims *models.JWTClaims, id string, req service.RejectResultRequest) (*models.Result, error)
	Reopen(ctx context.Context, claims *models.JWTClaims, id string) (*models.Result, error)
	Delete(ctx context.Context, claims *models.JWTClaims, id string) error
}

// ResultHandler exposes the result workflow endpoints.
type ResultHandler struct {
	results ResultWorkflow
}

// NewResultHandler constructs the handler.
func NewResultHandler(results ResultWorkflow) *ResultHandler {
	return &ResultHandler{results: results}
}

// Create godoc
// @Summary Create a result
// @Description Creates a draft result with server-side grading
// @Tags results
// @Accept json
// @Produce json
// @Param request body service.CreateResultRequest true "Result payload"
// @Success 201 {object} response.Envelope{data=models.Result}
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /results [post]
func (h *ResultHandler) Create(c *gin.Context) {
	var req service.CreateResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	result, err := h.results.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Get godoc
// @Summary Get a result
// @Tags results
// @Produce json
// @Param id path string true "Result ID"
// @Success 200 {object} response.Envelope{data=models.Result}
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /results/{id} [get]
func (h *ResultHandler) Get(c *gin.Context) {
	result, err := h.results.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List results
// @Tags results
// @Produce json
// @Param school_id query string false "School ID"
// @Param student_id query string false "Student ID"
// @Param session query string false "Session"
// @Param term query string false "Term"
// @Param status query string false "Status"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope{data=[]models.Result}
// @Security BearerAuth
// @Router /results [get]
func (h *ResultHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	filter := models.ResultFilter{
		SchoolID:  c.Query("school_id"),
		StudentID: c.Query("student_id"),
		Session:   c.Query("session"),
		Term:      c.Query("term"),
		Status:    models.ResultStatus(c.Query("status")),
		Page:      page,
		PageSize:  size,
	}
	results, total, err := h.results.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, &models.Pagination{Page: page, PageSize: size, TotalCount: total})
}

// Update godoc
// @Summary Update an unapproved result
// @Tags results
// @Accept json
// @Produce json
// @Param id path string true "Result ID"
// @Param request body service.UpdateResultRequest true "Replacement scores"
// @Success 200 {object} response.Envelope{data=models.Result}
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /results/{id} [put]
func (h *ResultHandler) Update(c *gin.Context) {
	var req service.UpdateResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	result, err := h.results.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Submit godoc
// @Summary Submit a draft result for review
// @Tags results
// @Produce json
// @Param id path string true "Result ID"
// @Success 200 {object} response.Envelope{data=models.Result}
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /results/{id}/submit [post]
func (h *ResultHandler) Submit(c *gin.Context) {
	result, err := h.results.Submit(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Approve godoc
// @Summary Approve a submitted result
// @Tags results
// @Produce json
// @Param id path string true "Result ID"
// @Success 200 {object} response.Envelope{data=models.Result}
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /results/{id}/approve [post]
func (h *ResultHandler) Approve(c *gin.Context) {
	result, err := h.results.Approve(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Reject godoc
// @Summary Reject a submitted result
// @Tags results
// @Accept json
// @Produce json
// @Param id path string true "Result ID"
// @Param request body service.RejectResultRequest true "Rejection reason"
// @Success 200 {object} response.Envelope{data=models.Result}
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /results/{id}/reject [post]
func (h *ResultHandler) Reject(c *gin.Context) {
	var req service.RejectResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required"))
		return
	}
	result, err := h.results.Reject(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Reopen godoc
// @Summary Reopen a rejected result as a draft
// @Tags results
// @Produce json
// @Param id path string true "Result ID"
// @Success 200 {object} response.Envelope{data=models.Result}
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /results/{id}/reopen [post]
func (h *ResultHandler) Reopen(c *gin.Context) {
	result, err := h.results.Reopen(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete an unapproved result
// @Tags results
// @Param id path string true "Result ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /results/{id} [delete]
func (h *ResultHandler) Delete(c *gin.Context) {
	if err := h.results.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
