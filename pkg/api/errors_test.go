package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := ErrNetworkUnavailable.WithCause(cause)

	require.ErrorIs(t, err, cause)
	require.ErrorIs(t, err, ErrNetworkUnavailable)
	require.Contains(t, err.Error(), "NETWORK_UNAVAILABLE")
	require.Contains(t, err.Error(), "connection refused")

	// WithCause copies; the shared definition stays pristine.
	require.Nil(t, ErrNetworkUnavailable.Cause)
}

func TestErrorIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("submitting pin: %w", ErrTokenExpired.WithCause(errors.New("exp in the past")))
	require.ErrorIs(t, wrapped, ErrTokenExpired)
	require.NotErrorIs(t, wrapped, ErrInvalidCredentials)
}

func TestAsErrorAndCategoryOf(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", ErrUserCancelled)

	e, ok := AsError(wrapped)
	require.True(t, ok)
	require.Equal(t, "USER_CANCELLED", e.Code)
	require.Equal(t, CategoryUserAction, CategoryOf(wrapped))
	require.True(t, IsRecoverable(wrapped))

	require.Equal(t, CategoryUnknown, CategoryOf(errors.New("plain")))
	require.False(t, IsRecoverable(errors.New("plain")))
}

func TestAPIError(t *testing.T) {
	e := APIError(503, "")
	require.Equal(t, "SERVER_ERROR", e.Code)
	require.Contains(t, e.Message, "503")

	e = APIError(404, "no such account")
	require.Equal(t, "API_ERROR", e.Code)
	require.Equal(t, "no such account", e.Message)
	require.Equal(t, CategoryAPI, e.Category)
}

func TestValidationErrorIsLocalAndRecoverable(t *testing.T) {
	e := ValidationError("bad email")
	require.Equal(t, CategoryValidation, e.Category)
	require.True(t, e.Recoverable)
	require.Equal(t, "bad email", e.Message)
}
