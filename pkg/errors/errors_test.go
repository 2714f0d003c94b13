package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Sentinel error identity ---

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{ErrNotFound, ErrAlreadyExists, ErrInvalidInput, ErrServiceUnavail, ErrInternal}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

// --- AppError behavior ---

func TestAppError_ErrorString_WithCause(t *testing.T) {
	err := StorageUnavailable("append review", fmt.Errorf("dial tcp: connection refused"))
	assert.Contains(t, err.Error(), CodeStorageUnavailable)
	assert.Contains(t, err.Error(), "append review")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAppError_ErrorString_SentinelOmitted(t *testing.T) {
	err := NotFound("course", "CS0445")
	assert.Equal(t, "NOT_FOUND: course CS0445 not found", err.Error())
}

func TestAppError_IsMatchesTaxonomy(t *testing.T) {
	storage := StorageUnavailable("get course", fmt.Errorf("broken pipe"))
	assert.True(t, errors.Is(storage, ErrServiceUnavail))
	assert.False(t, errors.Is(storage, ErrNotFound))

	wrapped := fmt.Errorf("get course: %w", Validation("credits", "must be between 1 and 6"))
	assert.True(t, errors.Is(wrapped, ErrInvalidInput))
}

// --- Constructor functions ---

func TestNotFound(t *testing.T) {
	err := NotFound("course", "CS1530")
	require.NotNil(t, err)
	assert.Equal(t, CodeNotFound, err.Code)
	assert.Contains(t, err.Message, "CS1530")
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAlreadyExists(t *testing.T) {
	err := AlreadyExists("course", "course_code", "CS1530")
	require.NotNil(t, err)
	assert.Equal(t, CodeDuplicateKey, err.Code)
	assert.Equal(t, "course_code", err.Field)
	assert.Contains(t, err.Message, "CS1530")
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.True(t, errors.Is(err, ErrAlreadyExists))
}

func TestValidation(t *testing.T) {
	err := Validation("ratings.overall", "must be between 1 and 5")
	require.NotNil(t, err)
	assert.Equal(t, CodeValidation, err.Code)
	assert.Equal(t, "ratings.overall", err.Field)
	assert.Equal(t, "ratings.overall must be between 1 and 5", err.Message)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestInternal(t *testing.T) {
	err := Internal(fmt.Errorf("segfault"))
	assert.Equal(t, CodeInternal, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Contains(t, err.Error(), "segfault")
}

// --- HTTPStatus ---

func TestHTTPStatus_AppError(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(StorageUnavailable("list", fmt.Errorf("EOF"))))
}

func TestHTTPStatus_SentinelErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrAlreadyExists, http.StatusConflict},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrServiceUnavail, http.StatusServiceUnavailable},
		{ErrInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestHTTPStatus_WrappedSentinel(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", ErrNotFound)
	assert.Equal(t, http.StatusNotFound, HTTPStatus(wrapped))
}

func TestFieldOf(t *testing.T) {
	assert.Equal(t, "comment", FieldOf(fmt.Errorf("append: %w", Validation("comment", "is required"))))
	assert.Equal(t, "", FieldOf(fmt.Errorf("plain")))
}
