package api

import "context"

// NativeConnector links platforms whose providers ship a device SDK instead
// of a browser OAuth flow. Hosts supply one when they bundle such an SDK;
// without it, every platform goes through the browser sub-flow.
type NativeConnector interface {
	Connect(ctx context.Context, platform Platform) (PlatformConnection, error)
}

// Coordinator is the onboarding step state machine. It owns the current
// step, validates step completion, drives transitions forward and backward,
// and aggregates results and errors into one terminal completion callback.
//
// All methods are safe for concurrent use, but the intended model is a
// single presentation shell forwarding user intents; re-entrant primary
// actions are ignored while a prior one is in flight.
type Coordinator interface {
	// Start decides the entry step (an existing account skips straight to
	// Training with a fresh state) and begins the attempt. Startup
	// failures are reported only through Start's return value; they never
	// reach the flow completion callback.
	Start(ctx context.Context, surface BrowserSurface) error

	// State returns a copy of the current onboarding state.
	State() OnboardingState

	// Status returns the attempt's lifecycle state.
	Status() FlowStatus

	// SetEmail, SetVerificationCode, and SetPIN record user input for the
	// corresponding steps. Each clears any inline error message.
	SetEmail(email string)
	SetVerificationCode(code string)
	SetPIN(pin string)

	// ProceedToNextStep validates the current step and advances exactly
	// one step, running the step's side effects (verification request,
	// credential persistence, PIN storage). When validation fails it sets
	// the inline error message, performs no transition, and returns the
	// validation error.
	ProceedToNextStep(ctx context.Context) error

	// GoBackToPreviousStep moves one step back along the fixed order;
	// from Training it targets PIN (the cancel edge).
	GoBackToPreviousStep(ctx context.Context) error

	// GoBackToConnectStep is the recovery edge used when training reports
	// zero negative-interaction samples. Connected platforms are
	// preserved so the user is not forced to restart.
	GoBackToConnectStep(ctx context.Context)

	// ConnectToPlatform runs the linking sub-flow for the platform. On
	// success the platform joins the connected set and its credential is
	// persisted atomically; on failure a transient indicator is surfaced
	// and state is unchanged.
	ConnectToPlatform(ctx context.Context, platform Platform) error

	// StartTraining begins pumping the training-status source into the
	// state. It is idempotent while a pump is active.
	StartTraining(ctx context.Context) error

	// Cancel transitions to terminal Cancelled, firing the completion
	// callback exactly once with a user-cancellation failure and stopping
	// in-flight work.
	Cancel()
}
