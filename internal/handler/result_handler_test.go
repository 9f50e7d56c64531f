package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumark/school-results-api/internal/middleware"
	"github.com/edumark/school-results-api/internal/models"
	"github.com/edumark/school-results-api/internal/service"
	appErrors "github.com/edumark/school-results-api/pkg/errors"
)

type resultWorkflowMock struct {
	result      *models.Result
	err         error
	lastCreate  service.CreateResultRequest
	approveID   string
	createCall  bool
	approveCall bool
}

func (m *resultWorkflowMock) Create(ctx context.Context, claims *models.JWTClaims, req service.CreateResultRequest) (*models.Result, error) {
	m.createCall = true
	m.lastCreate = req
	return m.result, m.err
}

func (m *resultWorkflowMock) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.Result, error) {
	return m.result, m.err
}

func (m *resultWorkflowMock) List(ctx context.Context, claims *models.JWTClaims, filter models.ResultFilter) ([]models.Result, int, error) {
	if m.result == nil {
		return nil, 0, m.err
	}
	return []models.Result{*m.result}, 1, m.err
}

func (m *resultWorkflowMock) Update(ctx context.Context, claims *models.JWTClaims, id string, req service.UpdateResultRequest) (*models.Result, error) {
	return m.result, m.err
}

func (m *resultWorkflowMock) Submit(ctx context.Context, claims *models.JWTClaims, id string) (*models.Result, error) {
	return m.result, m.err
}

func (m *resultWorkflowMock) Approve(ctx context.Context, claims *models.JWTClaims, id string) (*models.Result, error) {
	m.approveCall = true
	m.approveID = id
	return m.result, m.err
}

func (m *resultWorkflowMock) Reject(ctx context.Context, claims *models.JWTClaims, id string, req service.RejectResultRequest) (*models.Result, error) {
	return m.result, m.err
}

func (m *resultWorkflowMock) Reopen(ctx context.Context, claims *models.JWTClaims, id string) (*models.Result, error) {
	return m.result, m.err
}

func (m *resultWorkflowMock) Delete(ctx context.Context, claims *models.JWTClaims, id string) error {
	return m.err
}

func testContext(t *testing.T, method, target string, body *bytes.Buffer) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, target, body)
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher, SchoolID: "school-1"})
	return c, w
}

func TestResultHandlerCreate(t *testing.T) {
	mockSvc := &resultWorkflowMock{
		result: &models.Result{ID: "result-1", Status: models.ResultStatusDraft},
	}
	handler := NewResultHandler(mockSvc)

	payload := map[string]interface{}{
		"school_id":  "school-1",
		"student_id": "student-1",
		"session":    "2025/2026",
		"term":       "First",
		"subjects": []map[string]interface{}{
			{"subject_name": "Mathematics", "ca1": 8, "ca2": 9, "exam": 70},
		},
	}
	raw, _ := json.Marshal(payload)
	c, w := testContext(t, http.MethodPost, "/results", bytes.NewBuffer(raw))

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, mockSvc.createCall)
	assert.Equal(t, "Mathematics", mockSvc.lastCreate.Subjects[0].SubjectName)
}

func TestResultHandlerCreateInvalidBody(t *testing.T) {
	handler := NewResultHandler(&resultWorkflowMock{})

	c, w := testContext(t, http.MethodPost, "/results", bytes.NewBufferString(`{"school_id":`))
	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResultHandlerApproveConflict(t *testing.T) {
	mockSvc := &resultWorkflowMock{err: appErrors.ErrInvalidTransition}
	handler := NewResultHandler(mockSvc)

	c, w := testContext(t, http.MethodPost, "/results/result-1/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "result-1"}}

	handler.Approve(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "result-1", mockSvc.approveID)

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "INVALID_TRANSITION", envelope.Error.Code)
}

func TestResultHandlerDelete(t *testing.T) {
	handler := NewResultHandler(&resultWorkflowMock{})

	c, w := testContext(t, http.MethodDelete, "/results/result-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "result-1"}}

	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
}
