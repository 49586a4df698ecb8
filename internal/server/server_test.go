package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rapport-api/internal/fault"
	"github.com/sells-group/rapport-api/internal/model"
)

type stubRunner struct {
	resp *model.RapportResponse
	err  error
}

func (s *stubRunner) Run(ctx context.Context, zip string) (*model.RapportResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func get(t *testing.T, runner BriefRunner, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	New(runner).Handler().ServeHTTP(rec, req)
	return rec
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Detail
}

func TestZipEndpointSuccess(t *testing.T) {
	runner := &stubRunner{resp: &model.RapportResponse{
		Zip:   "85260",
		City:  "Scottsdale",
		State: "AZ",
	}}

	rec := get(t, runner, "/zip/85260")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body model.RapportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Scottsdale", body.City)
}

func TestZipEndpointStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &fault.ValidationError{Msg: "ZIP code must be 5 digits."}, http.StatusBadRequest},
		{"not found", &fault.NotFoundError{Msg: "ZIP 00001 not found."}, http.StatusNotFound},
		{"config", &fault.ConfigError{Msg: "synthesis: model API key is not configured"}, http.StatusServiceUnavailable},
		{"timeout", &fault.TimeoutError{Msg: "synthesis: model call timed out"}, http.StatusBadGateway},
		{"transport", &fault.TransportError{Msg: "geo: lookup failed"}, http.StatusBadGateway},
		{"empty synthesis", &fault.EmptySynthesisError{Msg: "synthesis: model reply contained no usable content"}, http.StatusBadGateway},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := get(t, &stubRunner{err: tc.err}, "/zip/00001")
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.err.Error(), decodeDetail(t, rec))
		})
	}
}

func TestNotFoundDetailNamesZip(t *testing.T) {
	rec := get(t, &stubRunner{err: &fault.NotFoundError{Msg: "ZIP 00001 not found."}}, "/zip/00001")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decodeDetail(t, rec), "00001")
}

func TestHealthEndpoint(t *testing.T) {
	rec := get(t, &stubRunner{}, "/health")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRequestIDPassthrough(t *testing.T) {
	runner := &stubRunner{resp: &model.RapportResponse{Zip: "85260"}}
	req := httptest.NewRequest(http.MethodGet, "/zip/85260", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()

	New(runner).Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}
