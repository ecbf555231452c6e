// Package api defines the public types of the Onairos onboarding SDK:
// onboarding steps and state, the error taxonomy, platform identifiers,
// the host-implemented surfaces (browser, biometric prompt, training feed),
// and the Observer used to watch flow lifecycle events.
//
// Most applications import the root onairos package, which re-exports
// everything here; api exists so that internal packages and host-side
// integrations can share one set of types without import cycles.
package api
