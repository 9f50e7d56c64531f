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

	"github.com/edumark/school-results-api/internal/models"
	"github.com/edumark/school-results-api/internal/service"
	appErrors "github.com/edumark/school-results-api/pkg/errors"
)

type verifierMock struct {
	resp    *service.VerifyResultResponse
	err     error
	lastReq service.VerifyResultRequest
	called  bool
}

func (m *verifierMock) VerifyResult(ctx context.Context, req service.VerifyResultRequest) (*service.VerifyResultResponse, error) {
	m.called = true
	m.lastReq = req
	return m.resp, m.err
}

func verifyBody() *bytes.Buffer {
	payload := map[string]string{
		"school_code":      "GHS",
		"admission_number": "GHS/0001",
		"session":          "2025/2026",
		"term":             "First",
		"pin_code":         "AAAABBBBCCCC22",
	}
	raw, _ := json.Marshal(payload)
	return bytes.NewBuffer(raw)
}

func TestVerifyHandlerSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &verifierMock{
		resp: &service.VerifyResultResponse{
			SchoolName:      "Greenfield High School",
			StudentName:     "Ada Obi",
			AdmissionNumber: "GHS/0001",
			Result:          &models.Result{ID: "result-1", Status: models.ResultStatusApproved},
		},
	}
	handler := NewVerifyHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/verify-result", verifyBody())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent")
	req.RemoteAddr = "192.0.2.1:1234"
	c.Request = req

	handler.Verify(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.called)
	assert.Equal(t, "AAAABBBBCCCC22", mockSvc.lastReq.PinCode)
	assert.Equal(t, "test-agent", mockSvc.lastReq.UserAgent)
	assert.NotEmpty(t, mockSvc.lastReq.IPAddress)

	var envelope struct {
		Data service.VerifyResultResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "Ada Obi", envelope.Data.StudentName)
}

func TestVerifyHandlerInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewVerifyHandler(&verifierMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/verify-result", bytes.NewBufferString(`{"school_code":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Verify(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyHandlerAlreadyUsed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &verifierMock{
		err: appErrors.WithDetails(appErrors.ErrPinAlreadyUsed, &models.PinUsage{
			AdmissionNumber: "GHS/0002",
			StudentName:     "Bola Ade",
		}),
	}
	handler := NewVerifyHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/verify-result", verifyBody())
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Verify(c)
	require.Equal(t, http.StatusConflict, w.Code)

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				AdmissionNumber string `json:"admission_number"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "PIN_ALREADY_USED", envelope.Error.Code)
	assert.Equal(t, "GHS/0002", envelope.Error.Details.AdmissionNumber)
}

func TestVerifyHandlerExpired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewVerifyHandler(&verifierMock{err: appErrors.ErrPinExpired})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/verify-result", verifyBody())
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Verify(c)
	require.Equal(t, http.StatusGone, w.Code)
}
