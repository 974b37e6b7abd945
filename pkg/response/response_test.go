package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campusconnect/campusconnect/pkg/apierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONWithMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONWithMeta(rec, http.StatusOK, []string{"a"}, Meta{Page: 2, PageSize: 1, Total: 3})

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success": true, "data": ["a"], "meta": {"page": 2, "pageSize": 1, "total": 3}}`, rec.Body.String())
}

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()
	err := apierror.ValidationError("invalid request", apierror.FieldError{Field: "title", Message: "is required"})
	Error(rec, fmt.Errorf("analyze: %w", err))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Success bool           `json:"success"`
		Error   apierror.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Equal(t, []apierror.FieldError{{Field: "title", Message: "is required"}}, body.Error.Details)
}

func TestError_Internal(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, errors.New("database is locked"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "database is locked")
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	NoContent(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}
