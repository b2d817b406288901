package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treatylens/internal/services"
)

type stubAnalysisService struct {
	lastRequest services.AnalysisRequest
	response    *services.AnalysisResponse
	err         error
}

func (s *stubAnalysisService) Analyze(_ context.Context, req services.AnalysisRequest) (*services.AnalysisResponse, error) {
	s.lastRequest = req
	if s.err != nil {
		return nil, s.err
	}
	return s.response, nil
}

func newTestHandler(stub *stubAnalysisService) *AnalysisHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAnalysisHandler(stub, 10<<20, logger)
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, value := range fields {
		require.NoError(t, w.WriteField(name, value))
	}
	for field, data := range files {
		fw, err := w.CreateFormFile(field, field+".xlsx")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestAnalyze_Multipart(t *testing.T) {
	stub := &stubAnalysisService{response: &services.AnalysisResponse{AnalysisID: "abc", Insured: "Acme"}}
	handler := newTestHandler(stub)

	body, contentType := multipartBody(t,
		map[string]string{"insured": "Acme", "currency": "cop", "reference_per_mille": "2.5"},
		map[string][]byte{"exposure": []byte("tiv-bytes"), "claims": []byte("claims-bytes")},
	)
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Analyze(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Acme", stub.lastRequest.Insured)
	assert.Equal(t, "COP", stub.lastRequest.Currency)
	assert.Equal(t, 2.5, stub.lastRequest.ReferencePerMille)
	assert.Equal(t, []byte("tiv-bytes"), stub.lastRequest.ExposureFile.Data)
	require.Len(t, stub.lastRequest.ClaimFiles, 1)

	var resp services.AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "abc", resp.AnalysisID)
}

func TestAnalyze_MultipartMissingExposure(t *testing.T) {
	stub := &stubAnalysisService{}
	handler := newTestHandler(stub)

	body, contentType := multipartBody(t,
		map[string]string{"insured": "Acme"},
		map[string][]byte{"claims": []byte("claims-bytes")},
	)
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Analyze(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_EXPOSURE_FILE")
	// The service is never invoked on a rejected submission.
	assert.Empty(t, stub.lastRequest.Insured)
}

func TestAnalyze_JSON(t *testing.T) {
	stub := &stubAnalysisService{response: &services.AnalysisResponse{AnalysisID: "xyz"}}
	handler := newTestHandler(stub)

	payload := map[string]any{
		"insured": "CONAGUA",
		"exposure_file": map[string]string{
			"name":    "tiv.xlsx",
			"content": base64.StdEncoding.EncodeToString([]byte("tiv-bytes")),
		},
		"claim_files": []map[string]string{
			{
				"name":    "loss.xlsx",
				"content": base64.StdEncoding.EncodeToString([]byte("claims-bytes")),
			},
		},
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.Analyze(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CONAGUA", stub.lastRequest.Insured)
	assert.Equal(t, []byte("tiv-bytes"), stub.lastRequest.ExposureFile.Data)
	assert.Equal(t, "loss.xlsx", stub.lastRequest.ClaimFiles[0].Name)
}

func TestAnalyze_JSONValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			"missing insured",
			`{"exposure_file":{"name":"t.xlsx","content":"` + base64.StdEncoding.EncodeToString([]byte("x")) + `"}}`,
			"VALIDATION_FAILED",
		},
		{
			"missing exposure file",
			`{"insured":"Acme"}`,
			"VALIDATION_FAILED",
		},
		{
			"malformed json",
			`{"insured":`,
			"INVALID_REQUEST",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestHandler(&stubAnalysisService{})
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			handler.Analyze(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestAnalyze_UnsupportedContentType(t *testing.T) {
	handler := newTestHandler(&stubAnalysisService{})
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("insured=Acme"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	handler.Analyze(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyze_ServiceErrorIs500(t *testing.T) {
	stub := &stubAnalysisService{err: context.DeadlineExceeded}
	handler := newTestHandler(stub)

	body, contentType := multipartBody(t, nil, map[string][]byte{"exposure": []byte("tiv")})
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Analyze(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "ANALYSIS_FAILED")
}
