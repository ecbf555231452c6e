package api

import "time"

// PlatformConnection records one linked platform. Exactly one of AccessToken
// and AuthCode is set, depending on how the connection terminated.
type PlatformConnection struct {
	Platform    Platform
	AccessToken string
	AuthCode    string
	ConnectedAt time.Time
}

// OnboardingData is the payload delivered to the host application when
// onboarding completes successfully.
type OnboardingData struct {
	Username    string
	Email       string
	Token       string
	TokenExpiry time.Time
	Connections []PlatformConnection

	// Attributes carries free-form user attributes reported by the backend
	// at the end of training.
	Attributes map[string]string
}

// Result is the single value returned across the SDK boundary: either
// completed onboarding data or a classified error, never both.
type Result struct {
	Data *OnboardingData
	Err  *Error
}

// Success wraps data into a successful Result.
func Success(data OnboardingData) Result {
	return Result{Data: &data}
}

// Failure wraps err into a failed Result.
func Failure(err *Error) Result {
	return Result{Err: err}
}

// Succeeded reports whether the result carries onboarding data.
func (r Result) Succeeded() bool { return r.Err == nil && r.Data != nil }

// CompletionFunc receives the terminal Result of one onboarding attempt.
// It is invoked exactly once per coordinator.
type CompletionFunc func(Result)
