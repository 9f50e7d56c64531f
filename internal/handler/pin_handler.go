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

// PinLifecycle is the slice of the PIN service the handler consumes.
type PinLifecycle interface {
	Generate(ctx context.Context, claims *models.JWTClaims, req service.GeneratePinsRequest) ([]models.PIN, error)
	ListPins(ctx context.Context, claims *models.JWTClaims, schoolID, session, term string) ([]models.PIN, error)
	RequestPins(ctx context.Context, claims *models.JWTClaims, req service.RequestPinsRequest) (*models.PinRequest, error)
	GetRequest(ctx context.Context, claims *models.JWTClaims, id string) (*models.PinRequest, error)
	ListRequests(ctx context.Context, claims *models.JWTClaims, filter models.PinRequestFilter) ([]models.PinRequest, error)
	ApproveRequest(ctx context.Context, claims *models.JWTClaims, id string) (*models.PinRequest, error)
	RejectRequest(ctx context.Context, claims *models.JWTClaims, id, reason string) (*models.PinRequest, error)
}

// PinHandler exposes PIN issuance and the request/review workflow.
type PinHandler struct {
	pins PinLifecycle
}

// NewPinHandler constructs the handler.
func NewPinHandler(pins PinLifecycle) *PinHandler {
	return &PinHandler{pins: pins}
}

// Generate godoc
// @Summary Generate a PIN batch directly
// @Tags pins
// @Accept json
// @Produce json
// @Param request body service.GeneratePinsRequest true "Issuance order"
// @Success 201 {object} response.Envelope{data=[]models.PIN}
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /pins/generate [post]
func (h *PinHandler) Generate(c *gin.Context) {
	var req service.GeneratePinsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	pins, err := h.pins.Generate(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, pins)
}

// List godoc
// @Summary List PINs for a school scope
// @Tags pins
// @Produce json
// @Param school_id query string true "School ID"
// @Param session query string true "Session"
// @Param term query string true "Term"
// @Success 200 {object} response.Envelope{data=[]models.PIN}
// @Security BearerAuth
// @Router /pins [get]
func (h *PinHandler) List(c *gin.Context) {
	pins, err := h.pins.ListPins(c.Request.Context(), claimsFromContext(c),
		c.Query("school_id"), c.Query("session"), c.Query("term"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pins, nil)
}

// CreateRequest godoc
// @Summary Open a PIN request
// @Tags pin-requests
// @Accept json
// @Produce json
// @Param request body service.RequestPinsRequest true "Request payload"
// @Success 201 {object} response.Envelope{data=models.PinRequest}
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /pin-requests [post]
func (h *PinHandler) CreateRequest(c *gin.Context) {
	var req service.RequestPinsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	request, err := h.pins.RequestPins(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// GetRequest godoc
// @Summary Get a PIN request
// @Tags pin-requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope{data=models.PinRequest}
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /pin-requests/{id} [get]
func (h *PinHandler) GetRequest(c *gin.Context) {
	request, err := h.pins.GetRequest(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// ListRequests godoc
// @Summary List PIN requests
// @Tags pin-requests
// @Produce json
// @Param school_id query string false "School ID"
// @Param status query string false "Status"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope{data=[]models.PinRequest}
// @Security BearerAuth
// @Router /pin-requests [get]
func (h *PinHandler) ListRequests(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	filter := models.PinRequestFilter{
		SchoolID: c.Query("school_id"),
		Status:   models.PinRequestStatus(c.Query("status")),
		Page:     page,
		PageSize: size,
	}
	requests, err := h.pins.ListRequests(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// ApproveRequest godoc
// @Summary Approve a pending PIN request
// @Description Generates the requested PIN batch atomically with the approval
// @Tags pin-requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope{data=models.PinRequest}
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /pin-requests/{id}/approve [post]
func (h *PinHandler) ApproveRequest(c *gin.Context) {
	request, err := h.pins.ApproveRequest(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

type rejectRequestBody struct {
	Reason string `json:"reason"`
}

// RejectRequest godoc
// @Summary Reject a pending PIN request
// @Tags pin-requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body rejectRequestBody true "Rejection reason"
// @Success 200 {object} response.Envelope{data=models.PinRequest}
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /pin-requests/{id}/reject [post]
func (h *PinHandler) RejectRequest(c *gin.Context) {
	var body rejectRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required"))
		return
	}
	request, err := h.pins.RejectRequest(c.Request.Context(), claimsFromContext(c), c.Param("id"), body.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
