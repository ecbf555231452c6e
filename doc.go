// Package onairos provides an embeddable onboarding SDK for Go hosts.
//
// Onairos drives a user through account onboarding — email verification,
// platform connections over OAuth, PIN setup behind a biometric prompt, and
// a model-training wait — and hands the host application a single terminal
// result. It runs fully in Go, supports multiple session-store backends, and
// integrates cleanly into existing codebases.
//
// # Core Concepts
//
// The programming model is intentionally small:
//
//  1. SDK
//  2. Coordinator
//  3. BrowserSurface
//  4. Observer
//  5. Session store
//
// # SDK
//
// The SDK is an explicitly constructed service object owned by the host's
// composition root; there is no hidden singleton. It bundles the backend
// API client and the session store, and mints a fresh Coordinator per
// onboarding attempt:
//
//	sdk, err := onairos.New(onairos.Config{AppName: "demo"})
//	coord, err := sdk.PresentOnboarding(ctx, surface, onairos.Deps{}, done)
//
// Session stores come in several durabilities:
//
//   - In-memory (non-durable, best for tests)
//   - SQLite (embedded durability)
//   - Redis (server-side hosts)
//
// # Coordinator
//
// The Coordinator is the step state machine. It owns the OnboardingState,
// validates each step before advancing, runs the per-step side effects
// (verification-code requests, OAuth connects, PIN persistence, the
// training-progress pump), and fires the completion callback exactly once
// no matter how the attempt ends.
//
// Steps run in order — Email, Verify, Connect, Success, PIN, Training —
// with two sanctioned back edges: the user can step backward, and a
// training run that finds no usable interaction data routes back to
// Connect with the connected platforms preserved.
//
// # BrowserSurface
//
// OAuth connects need a browser the SDK does not own. The host supplies a
// BrowserSurface: Open a URL, stream back navigation events. The SDK
// decides which terminal URL means success, failure, or cancellation; the
// surface just renders and reports.
//
// # Observer
//
// Observers receive flow lifecycle events: step changes, platform
// connections, training progress, transient notices, and the terminal
// result. LoggingObserver logs them through log/slog; CompositeObserver
// fans out to several observers. All callbacks are invoked synchronously,
// so implementations should be fast and non-blocking.
//
// # Test Mode
//
// Config.TestMode runs the whole flow offline: the existing-account check
// is skipped, empty platform connections are allowed, and training progress
// comes from a deterministic local ramp instead of the backend poll.
//
// # Summary
//
// The SDK constructs, the Coordinator drives, the BrowserSurface renders,
// Observers watch, and the session store remembers. Hosts see one
// completion callback with either OnboardingData or a classified *Error.
//
// For examples, see the /examples directory or the project README.
package onairos
