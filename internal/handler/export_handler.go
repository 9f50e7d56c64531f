package handler

import (
	"context"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/edumark/school-results-api/internal/models"
	"github.com/edumark/school-results-api/internal/service"
	appErrors "github.com/edumark/school-results-api/pkg/errors"
	"github.com/edumark/school-results-api/pkg/response"
)

// PinExporter renders PIN batches and resolves download tokens.
type PinExporter interface {
	ExportRequestPins(ctx context.Context, claims *models.JWTClaims, requestID string) (*service.ExportArtifact, error)
	OpenDownload(token string) (*os.File, string, error)
}

// ExportHandler exposes PIN batch export and download endpoints.
type ExportHandler struct {
	exports PinExporter
}

// NewExportHandler constructs the handler.
func NewExportHandler(exports PinExporter) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Export godoc
// @Summary Export an approved PIN batch as CSV
// @Description Returns a signed, expiring download link
// @Tags pin-requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope{data=service.ExportArtifact}
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /pin-requests/{id}/export [post]
func (h *ExportHandler) Export(c *gin.Context) {
	artifact, err := h.exports.ExportRequestPins(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, artifact, nil)
}

// Download godoc
// @Summary Download an exported PIN batch
// @Tags pin-requests
// @Produce text/csv
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /downloads [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, name, err := h.exports.OpenDownload(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Type", "text/csv")
	c.File(file.Name())
}
