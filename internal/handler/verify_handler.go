package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edumark/school-results-api/internal/service"
	appErrors "github.com/edumark/school-results-api/pkg/errors"
	"github.com/edumark/school-results-api/pkg/response"
)

// ResultVerifier redeems PINs against approved results.
type ResultVerifier interface {
	VerifyResult(ctx context.Context, req service.VerifyResultRequest) (*service.VerifyResultResponse, error)
}

// VerifyHandler exposes the public PIN redemption endpoint.
type VerifyHandler struct {
	pins ResultVerifier
}

// NewVerifyHandler constructs the handler.
func NewVerifyHandler(pins ResultVerifier) *VerifyHandler {
	return &VerifyHandler{pins: pins}
}

// Verify godoc
// @Summary Verify a result with a PIN
// @Description Redeems a single-use PIN and returns the approved result
// @Tags public
// @Accept json
// @Produce json
// @Param request body service.VerifyResultRequest true "Verification payload"
// @Success 200 {object} response.Envelope{data=service.VerifyResultResponse}
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /verify-result [post]
func (h *VerifyHandler) Verify(c *gin.Context) {
	var req service.VerifyResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	req.IPAddress = c.ClientIP()
	req.UserAgent = c.Request.UserAgent()

	result, err := h.pins.VerifyResult(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
