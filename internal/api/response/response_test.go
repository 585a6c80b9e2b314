package response_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pedalwatt/pedalwatt/internal/api/middleware"
	"github.com/pedalwatt/pedalwatt/internal/api/models"
	"github.com/pedalwatt/pedalwatt/internal/api/response"
)

// taggedRequest runs a request through the RequestID middleware so the
// context carries an ID, the way every handler sees it in production.
func taggedRequest(t *testing.T, method, path string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	req := httptest.NewRequest(method, path, http.NoBody)

	var processed *http.Request
	middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		processed = r
	})).ServeHTTP(httptest.NewRecorder(), req)

	return processed, httptest.NewRecorder()
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) models.Problem {
	t.Helper()
	var problem models.Problem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
	return problem
}

func TestJSON_SetsRequestIDAndContentType(t *testing.T) {
	req, rec := taggedRequest(t, http.MethodPost, "/v1/analysis")

	response.JSON(rec, req, http.StatusOK, map[string]string{"modelVersion": "v3"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	requestID := rec.Header().Get("X-Request-Id")
	require.NotEmpty(t, requestID)
	assert.Greater(t, len(requestID), 10)
}

func TestJSON_NoRequestIDWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	rec := httptest.NewRecorder()

	response.JSON(rec, req, http.StatusOK, map[string]string{"status": "ok"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Request-Id"))
}

func TestJSON_NilDataWritesNoBody(t *testing.T) {
	req, rec := taggedRequest(t, http.MethodGet, "/v1/ops/health")

	response.JSON(rec, req, http.StatusOK, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestCreated_SetsLocation(t *testing.T) {
	req, rec := taggedRequest(t, http.MethodPost, "/v1/profiles")

	response.Created(rec, req, "/v1/profiles/rider_1", map[string]string{"riderId": "rider_1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/v1/profiles/rider_1", rec.Header().Get("Location"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestAccepted_SetsLocation(t *testing.T) {
	req, rec := taggedRequest(t, http.MethodPost, "/v1/analysis")

	response.Accepted(rec, req, "/v1/analysis/runs/42", map[string]string{"status": "pending"})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "/v1/analysis/runs/42", rec.Header().Get("Location"))
}

func TestNoContent(t *testing.T) {
	req, rec := taggedRequest(t, http.MethodDelete, "/v1/analysis/cache")

	response.NoContent(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Zero(t, rec.Body.Len())
}

func TestProblemHelpers_StatusAndTrace(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter, r *http.Request)
		status int
	}{
		{
			name: "unauthorized",
			write: func(w http.ResponseWriter, r *http.Request) {
				response.Unauthorized(w, r, "invalid access token")
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "not found",
			write: func(w http.ResponseWriter, r *http.Request) {
				response.NotFound(w, r, "rider profile not found")
			},
			status: http.StatusNotFound,
		},
		{
			name: "conflict",
			write: func(w http.ResponseWriter, r *http.Request) {
				response.Conflict(w, r, "profile already exists")
			},
			status: http.StatusConflict,
		},
		{
			name: "internal error",
			write: func(w http.ResponseWriter, r *http.Request) {
				response.InternalError(w, r, "analysis failed")
			},
			status: http.StatusInternalServerError,
		},
		{
			name: "service unavailable",
			write: func(w http.ResponseWriter, r *http.Request) {
				response.ServiceUnavailable(w, r, "activity source unavailable")
			},
			status: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := taggedRequest(t, http.MethodGet, "/v1/analysis")
			tt.write(rec, req)

			assert.Equal(t, tt.status, rec.Code)

			problem := decodeProblem(t, rec)
			assert.Equal(t, tt.status, problem.Status)
			assert.NotEmpty(t, problem.TraceID)
		})
	}
}

func TestBadRequest_CarriesFieldErrorsAndInstance(t *testing.T) {
	req, rec := taggedRequest(t, http.MethodPut, "/v1/profiles/rider_1")

	fieldErrors := []models.FieldError{
		{Field: "riderMassKg", Message: "must be between 30 and 200"},
	}
	response.BadRequest(rec, req, "invalid rider profile", fieldErrors)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	problem := decodeProblem(t, rec)
	assert.Equal(t, "/v1/profiles/rider_1", problem.Instance)
	assert.NotEmpty(t, problem.TraceID)
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "riderMassKg", problem.Errors[0].Field)
}

func TestTooManyRequests_WithInfoSetsHeaders(t *testing.T) {
	req, rec := taggedRequest(t, http.MethodPost, "/v1/analysis")

	response.TooManyRequestsWithInfo(rec, req, "analysis rate limit exceeded", &response.RateLimitInfo{
		Limit:      30,
		Remaining:  0,
		ResetAt:    1704067200,
		RetryAfter: 60,
	})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1704067200", rec.Header().Get("X-RateLimit-Reset"))
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	problem := decodeProblem(t, rec)
	assert.Equal(t, http.StatusTooManyRequests, problem.Status)
}

func TestTooManyRequests_WithoutInfoOmitsHeaders(t *testing.T) {
	req, rec := taggedRequest(t, http.MethodPost, "/v1/analysis")

	response.TooManyRequests(rec, req, "analysis rate limit exceeded")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	assert.Empty(t, rec.Header().Get("Retry-After"))
}

func TestJSON_PreservesClientRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	req.Header.Set("X-Request-Id", "client-run-123")

	var processed *http.Request
	middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		processed = r
	})).ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "client-run-123", middleware.GetRequestID(processed.Context()))

	rec := httptest.NewRecorder()
	response.JSON(rec, processed, http.StatusOK, map[string]string{"status": "ok"})
	assert.Equal(t, "client-run-123", rec.Header().Get("X-Request-Id"))
}

func TestGetRequestID_BackgroundContext(t *testing.T) {
	assert.Empty(t, middleware.GetRequestID(context.Background()))
}
