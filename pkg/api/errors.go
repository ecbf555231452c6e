package api

import (
	"errors"
	"fmt"
)

// Category groups errors by the recovery policy the coordinator applies to
// them. It is also the bucket used for analytics.
type Category string

const (
	CategoryConfiguration  Category = "configuration"
	CategoryNetwork        Category = "network"
	CategoryAuthentication Category = "authentication"
	CategoryValidation     Category = "validation"
	CategoryTraining       Category = "training"
	CategoryUserAction     Category = "userAction"
	CategoryAPI            Category = "api"
	CategoryUnknown        Category = "unknown"
)

// Error is the classified failure type used across the SDK boundary.
// Message is safe to show to the end user; Suggestion tells them what to do
// next; Recoverable tells the host whether the same attempt can continue.
type Error struct {
	Code        string
	Category    Category
	Message     string
	Suggestion  string
	Recoverable bool

	// Cause is the underlying error, when one exists. It is wrapped, not
	// exposed to the user.
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("onairos: %s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("onairos: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error by Code, so errors.Is recognizes the canonical
// definitions even through WithCause copies.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithCause returns a copy of e carrying cause as the wrapped error.
func (e *Error) WithCause(cause error) *Error {
	c := *e
	c.Cause = cause
	return &c
}

// AsError returns the classified *Error inside err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CategoryOf classifies err. Errors that are not *Error values fall into
// CategoryUnknown.
func CategoryOf(err error) Category {
	if e, ok := AsError(err); ok {
		return e.Category
	}
	return CategoryUnknown
}

// IsRecoverable reports whether the user can keep going after err.
// Unclassified errors are treated as non-recoverable.
func IsRecoverable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Recoverable
	}
	return false
}

// Canonical error definitions. These are templates: call WithCause (or use
// them as-is) rather than mutating the shared values.
var (
	ErrNotInitialized = &Error{
		Code:       "SDK_NOT_INITIALIZED",
		Category:   CategoryConfiguration,
		Message:    "The SDK has not been configured.",
		Suggestion: "Call onairos.New with a valid Config before presenting onboarding.",
	}
	ErrInvalidConfig = &Error{
		Code:       "SDK_CONFIG_INVALID",
		Category:   CategoryConfiguration,
		Message:    "The SDK configuration is invalid.",
		Suggestion: "Check APIBaseURL and the platform list passed to onairos.New.",
	}
	ErrAlreadyStarted = &Error{
		Code:       "FLOW_ALREADY_STARTED",
		Category:   CategoryValidation,
		Message:    "Onboarding is already in progress.",
		Suggestion: "Cancel the running flow before starting another.",
	}
	ErrNoSurface = &Error{
		Code:       "SDK_NO_SURFACE",
		Category:   CategoryConfiguration,
		Message:    "No presentable surface was provided.",
		Suggestion: "Pass a non-nil browser surface when presenting onboarding.",
	}

	ErrNetworkUnavailable = &Error{
		Code:        "NETWORK_UNAVAILABLE",
		Category:    CategoryNetwork,
		Message:     "The network is unavailable.",
		Suggestion:  "Check the connection and try again.",
		Recoverable: true,
	}
	ErrRequestTimeout = &Error{
		Code:        "NETWORK_TIMEOUT",
		Category:    CategoryNetwork,
		Message:     "The request timed out.",
		Suggestion:  "Try again in a moment.",
		Recoverable: true,
	}
	ErrNetworkFailure = &Error{
		Code:        "NETWORK_ERROR",
		Category:    CategoryNetwork,
		Message:     "A network error occurred.",
		Suggestion:  "Check the connection and try again.",
		Recoverable: true,
	}

	ErrInvalidCredentials = &Error{
		Code:       "AUTH_INVALID_CREDENTIALS",
		Category:   CategoryAuthentication,
		Message:    "Your session is not valid.",
		Suggestion: "Verify your email again to sign back in.",
	}
	ErrTokenExpired = &Error{
		Code:       "AUTH_TOKEN_EXPIRED",
		Category:   CategoryAuthentication,
		Message:    "Your session has expired.",
		Suggestion: "Verify your email again to sign back in.",
	}
	ErrProviderAuthFailed = &Error{
		Code:        "AUTH_PROVIDER_FAILED",
		Category:    CategoryAuthentication,
		Message:     "The platform rejected the connection.",
		Suggestion:  "Try connecting the platform again.",
		Recoverable: true,
	}

	ErrInsufficientTrainingData = &Error{
		Code:        "TRAINING_INSUFFICIENT_DATA",
		Category:    CategoryTraining,
		Message:     "Not enough interaction data to train your model.",
		Suggestion:  "Connect another platform and try again.",
		Recoverable: true,
	}

	ErrUserCancelled = &Error{
		Code:        "USER_CANCELLED",
		Category:    CategoryUserAction,
		Message:     "Onboarding was cancelled.",
		Suggestion:  "Restart onboarding whenever you are ready.",
		Recoverable: true,
	}

	ErrBiometryUnavailable = &Error{
		Code:       "BIOMETRY_UNAVAILABLE",
		Category:   CategoryAuthentication,
		Message:    "Biometric protection is not available on this device.",
		Suggestion: "Your PIN will be stored without biometric gating.",
	}
	ErrBiometryFailed = &Error{
		Code:       "BIOMETRY_FAILED",
		Category:   CategoryAuthentication,
		Message:    "Biometric verification failed.",
		Suggestion: "Try again or use your device passcode.",
	}
	ErrBiometryCancelled = &Error{
		Code:        "BIOMETRY_CANCELLED",
		Category:    CategoryUserAction,
		Message:     "Biometric verification was cancelled.",
		Suggestion:  "Confirm your identity to protect your PIN.",
		Recoverable: true,
	}
	ErrKeystoreFailure = &Error{
		Code:       "KEYSTORE_ERROR",
		Category:   CategoryUnknown,
		Message:    "Secure storage failed.",
		Suggestion: "Try again; if it keeps failing, restart the app.",
	}
)

// ValidationError builds a validation failure with the given user-facing
// message. Validation errors never leave the device and always block the
// current transition.
func ValidationError(message string) *Error {
	return &Error{
		Code:        "VALIDATION_FAILED",
		Category:    CategoryValidation,
		Message:     message,
		Suggestion:  "Correct the highlighted field and try again.",
		Recoverable: true,
	}
}

// APIError builds an error for a non-success HTTP response. message is the
// server-provided detail when one could be decoded, otherwise empty.
func APIError(status int, message string) *Error {
	if message == "" {
		message = fmt.Sprintf("The server returned status %d.", status)
	}
	e := &Error{
		Code:        "API_ERROR",
		Category:    CategoryAPI,
		Message:     message,
		Suggestion:  "Try again in a moment.",
		Recoverable: true,
	}
	if status >= 500 {
		e.Code = "SERVER_ERROR"
	}
	return e
}

// UnknownError wraps an unclassified failure.
func UnknownError(cause error) *Error {
	return &Error{
		Code:       "UNKNOWN_ERROR",
		Category:   CategoryUnknown,
		Message:    "Something went wrong.",
		Suggestion: "Try again.",
		Cause:      cause,
	}
}
