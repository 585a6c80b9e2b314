package models_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pedalwatt/pedalwatt/internal/api/models"
)

func TestProblem_NewProblem(t *testing.T) {
	p := models.NewProblem(
		models.ProblemTypeValidation,
		"Validation error",
		http.StatusBadRequest,
		"req_test123",
	)

	assert.Equal(t, models.ProblemTypeValidation, p.Type)
	assert.Equal(t, "Validation error", p.Title)
	assert.Equal(t, http.StatusBadRequest, p.Status)
	assert.Equal(t, "req_test123", p.TraceID)
	assert.Empty(t, p.Detail)
	assert.Empty(t, p.Instance)
	assert.Nil(t, p.Errors)
}

func TestProblem_WithDetail(t *testing.T) {
	p := models.NewProblem(
		models.ProblemTypeValidation,
		"Validation error",
		http.StatusBadRequest,
		"req_test123",
	).WithDetail("riderMassKg must be between 30 and 200")

	assert.Equal(t, "riderMassKg must be between 30 and 200", p.Detail)
}

func TestProblem_WithInstance(t *testing.T) {
	p := models.NewProblem(
		models.ProblemTypeValidation,
		"Validation error",
		http.StatusBadRequest,
		"req_test123",
	).WithInstance("/v1/analysis")

	assert.Equal(t, "/v1/analysis", p.Instance)
}

func TestProblem_WithErrors(t *testing.T) {
	fieldErrors := []models.FieldError{
		{Field: "riderMassKg", Message: "must be between 30 and 200", Code: "OUT_OF_RANGE"},
		{Field: "bikeMassKg", Message: "required", Code: "REQUIRED"},
	}

	p := models.NewProblem(
		models.ProblemTypeValidation,
		"Validation error",
		http.StatusBadRequest,
		"req_test123",
	).WithErrors(fieldErrors)

	require.Len(t, p.Errors, 2)
	assert.Equal(t, "riderMassKg", p.Errors[0].Field)
	assert.Equal(t, "must be between 30 and 200", p.Errors[0].Message)
	assert.Equal(t, "OUT_OF_RANGE", p.Errors[0].Code)
}

func TestProblem_Write(t *testing.T) {
	p := models.NewBadRequest("req_test123", "invalid input", []models.FieldError{
		{Field: "surface", Message: "unknown surface"},
	})
	p.Instance = "/v1/profiles/rider_123"

	w := httptest.NewRecorder()
	p.Write(w)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	assert.Equal(t, "req_test123", w.Header().Get("X-Request-Id"))

	var result models.Problem
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)

	assert.Equal(t, models.ProblemTypeValidation, result.Type)
	assert.Equal(t, "Validation error", result.Title)
	assert.Equal(t, http.StatusBadRequest, result.Status)
	assert.Equal(t, "invalid input", result.Detail)
	assert.Equal(t, "/v1/profiles/rider_123", result.Instance)
	assert.Equal(t, "req_test123", result.TraceID)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "surface", result.Errors[0].Field)
}

func TestProblemConstructors(t *testing.T) {
	tests := []struct {
		name     string
		problem  *models.Problem
		wantType string
		title    string
		status   int
		detail   string
	}{
		{
			name:     "bad request",
			problem:  models.NewBadRequest("req_123", "invalid data", nil),
			wantType: models.ProblemTypeValidation,
			title:    "Validation error",
			status:   http.StatusBadRequest,
			detail:   "invalid data",
		},
		{
			name:     "unauthorized",
			problem:  models.NewUnauthorized("req_123", "token expired"),
			wantType: models.ProblemTypeUnauthorized,
			title:    "Unauthorized",
			status:   http.StatusUnauthorized,
			detail:   "token expired",
		},
		{
			name:     "not found",
			problem:  models.NewNotFound("req_123", "rider profile not found"),
			wantType: models.ProblemTypeNotFound,
			title:    "Not found",
			status:   http.StatusNotFound,
			detail:   "rider profile not found",
		},
		{
			name:     "conflict",
			problem:  models.NewConflict("req_123", "profile already exists"),
			wantType: models.ProblemTypeConflict,
			title:    "Conflict",
			status:   http.StatusConflict,
			detail:   "profile already exists",
		},
		{
			name:     "too many requests",
			problem:  models.NewTooManyRequests("req_123", "analysis rate limit exceeded"),
			wantType: models.ProblemTypeTooManyRequests,
			title:    "Too many requests",
			status:   http.StatusTooManyRequests,
			detail:   "analysis rate limit exceeded",
		},
		{
			name:     "internal error",
			problem:  models.NewInternalError("req_123", "analysis failed"),
			wantType: models.ProblemTypeInternal,
			title:    "Internal server error",
			status:   http.StatusInternalServerError,
			detail:   "analysis failed",
		},
		{
			name:     "service unavailable",
			problem:  models.NewServiceUnavailable("req_123", "activity source unavailable"),
			wantType: models.ProblemTypeUnavailable,
			title:    "Service unavailable",
			status:   http.StatusServiceUnavailable,
			detail:   "activity source unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.problem.Type)
			assert.Equal(t, tt.title, tt.problem.Title)
			assert.Equal(t, tt.status, tt.problem.Status)
			assert.Equal(t, tt.detail, tt.problem.Detail)
			assert.Equal(t, "req_123", tt.problem.TraceID)
		})
	}
}
