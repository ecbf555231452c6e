package api

import (
	"context"
	"net/url"
)

// BrowserEventKind classifies events reported by a BrowserSurface.
type BrowserEventKind string

const (
	// BrowserNavigated fires for each navigation the surface commits,
	// including the designated success landing page and the app's custom
	// scheme callback.
	BrowserNavigated BrowserEventKind = "NAVIGATED"

	// BrowserLoadFailed fires when a navigation (provisional or committed)
	// fails to load.
	BrowserLoadFailed BrowserEventKind = "LOAD_FAILED"

	// BrowserClosed fires when the user dismisses the surface. The close
	// control must stay interactive while pages load; this event is the
	// user's escape hatch.
	BrowserClosed BrowserEventKind = "CLOSED"
)

// BrowserEvent is one observation from a browser surface.
type BrowserEvent struct {
	Kind BrowserEventKind
	URL  *url.URL
	Err  error
}

// BrowserSurface is the presentation shell's browser, driven by the OAuth
// sub-flow. Open navigates to rawURL and returns a channel of subsequent
// events. The surface closes the channel after a BrowserClosed event or
// when ctx is done.
type BrowserSurface interface {
	Open(ctx context.Context, rawURL string) (<-chan BrowserEvent, error)
}

// Authenticator is the device biometric (or passcode fallback) prompt.
// Authenticate returns nil once the user has proven presence, or an error
// matching one of ErrBiometryUnavailable, ErrBiometryFailed, or
// ErrBiometryCancelled via errors.Is / AsError.
type Authenticator interface {
	Authenticate(ctx context.Context, reason string) error
}

// TrainingStatus is one report from the backend training pipeline.
type TrainingStatus struct {
	// Progress is the 0-1 completion fraction. Out-of-range and non-finite
	// values are tolerated and clamped by the coordinator.
	Progress float64

	// DislikedInteractions counts negative-interaction samples available
	// to the model. Zero at completion means training cannot personalize
	// and the flow routes back to Connect.
	DislikedInteractions int

	// Completed reports that the pipeline has finished this run.
	Completed bool
}

// TrainingSource supplies training progress. The coordinator polls it while
// the Training step is active.
type TrainingSource interface {
	TrainingStatus(ctx context.Context) (TrainingStatus, error)
}
