package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/edumark/school-results-api/internal/models"
	appErrors "github.com/edumark/school-results-api/pkg/errors"
	"github.com/edumark/school-results-api/pkg/export"
	"github.com/edumark/school-results-api/pkg/storage"
)

// ExportService renders approved PIN batches as CSV files and hands out
// expiring signed download links.
type ExportService struct {
	requests pinRequestStore
	archive  *storage.Archive
	signer   *storage.TokenSigner
	logger   *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(requests pinRequestStore, archive *storage.Archive, signer *storage.TokenSigner, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{requests: requests, archive: archive, signer: signer, logger: logger}
}

// ExportArtifact points at a rendered export.
type ExportArtifact struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExportRequestPins renders the PIN batch of an approved request to CSV and
// returns a signed download token.
func (s *ExportService) ExportRequestPins(ctx context.Context, claims *models.JWTClaims, requestID string) (*ExportArtifact, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pin request not found")
		}
		return nil, appErrors.FromError(err)
	}
	if !claims.CanAccessSchool(request.SchoolID) {
		return nil, appErrors.ErrForbidden
	}
	if request.Status != models.PinRequestStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "only approved requests can be exported")
	}

	pins, err := s.requests.PinsByRequest(ctx, request.ID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	data, err := export.PinBatch(pins)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	filename := fmt.Sprintf("pins/%s.csv", request.ID)
	if err := s.archive.Save(filename, data); err != nil {
		return nil, appErrors.FromError(err)
	}
	token, expiresAt, err := s.signer.Sign(request.ID, filename)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	s.logger.Info("pin batch exported",
		zap.String("request_id", request.ID),
		zap.Int("pins", len(pins)),
		zap.Time("link_expires_at", expiresAt))
	return &ExportArtifact{Token: token, ExpiresAt: expiresAt}, nil
}

// OpenDownload verifies a download token and opens the referenced file. The
// caller owns closing the handle.
func (s *ExportService) OpenDownload(token string) (*os.File, string, error) {
	ref, relPath, err := s.signer.Verify(token)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download link")
	}
	file, err := s.archive.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}
	return file, fmt.Sprintf("pins-%s.csv", ref), nil
}
