package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edumark/school-results-api/internal/models"
	appErrors "github.com/edumark/school-results-api/pkg/errors"
	"github.com/edumark/school-results-api/pkg/storage"
)

type exportFixture struct {
	requests *pinRequestStoreStub
	service  *ExportService
}

func newExportFixture(t *testing.T) *exportFixture {
	t.Helper()

	archive, err := storage.NewArchive(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewTokenSigner("export-test-secret", time.Hour)

	requests := newPinRequestStoreStub()
	return &exportFixture{
		requests: requests,
		service:  NewExportService(requests, archive, signer, zap.NewNop()),
	}
}

func (f *exportFixture) seedApprovedRequest(id string) {
	processedBy := "super-1"
	processedAt := time.Now()
	f.requests.requests[id] = &models.PinRequest{
		ID:          id,
		SchoolID:    "school-1",
		Session:     "2025/2026",
		Term:        "First",
		Quantity:    2,
		Status:      models.PinRequestStatusApproved,
		RequestedBy: "admin-1",
		ProcessedBy: &processedBy,
		ProcessedAt: &processedAt,
	}
	f.requests.pins[id] = []models.PIN{
		{ID: "pin-1", Code: "AAAA2222BBBB33", Session: "2025/2026", Term: "First", MaxAttempts: 3, ExpiryDate: time.Now().AddDate(0, 0, 90)},
		{ID: "pin-2", Code: "CCCC4444DDDD55", Session: "2025/2026", Term: "First", MaxAttempts: 3, ExpiryDate: time.Now().AddDate(0, 0, 90)},
	}
}

func TestExportServiceRoundTrip(t *testing.T) {
	fixture := newExportFixture(t)
	fixture.seedApprovedRequest("request-9")

	artifact, err := fixture.service.ExportRequestPins(context.Background(), adminClaims(), "request-9")
	require.NoError(t, err)
	require.NotEmpty(t, artifact.Token)
	require.True(t, artifact.ExpiresAt.After(time.Now()))

	file, name, err := fixture.service.OpenDownload(artifact.Token)
	require.NoError(t, err)
	defer file.Close()

	require.Equal(t, "pins-request-9.csv", name)

	body, err := io.ReadAll(file)
	require.NoError(t, err)
	content := string(body)
	require.True(t, strings.HasPrefix(content, "s/n,pin_code,session,term,expiry_date,max_attempts"))
	require.Contains(t, content, "AAAA2222BBBB33")
	require.Contains(t, content, "CCCC4444DDDD55")
}

func TestExportServicePendingRequestRejected(t *testing.T) {
	fixture := newExportFixture(t)
	fixture.seedApprovedRequest("request-9")
	fixture.requests.requests["request-9"].Status = models.PinRequestStatusPending

	_, err := fixture.service.ExportRequestPins(context.Background(), adminClaims(), "request-9")
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestExportServiceForeignSchoolForbidden(t *testing.T) {
	fixture := newExportFixture(t)
	fixture.seedApprovedRequest("request-9")
	fixture.requests.requests["request-9"].SchoolID = "school-2"

	_, err := fixture.service.ExportRequestPins(context.Background(), adminClaims(), "request-9")
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestExportServiceUnknownRequest(t *testing.T) {
	fixture := newExportFixture(t)

	_, err := fixture.service.ExportRequestPins(context.Background(), superClaims(), "missing")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestExportServiceTamperedToken(t *testing.T) {
	fixture := newExportFixture(t)
	fixture.seedApprovedRequest("request-9")

	artifact, err := fixture.service.ExportRequestPins(context.Background(), superClaims(), "request-9")
	require.NoError(t, err)

	_, _, err = fixture.service.OpenDownload(artifact.Token + "x")
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}
