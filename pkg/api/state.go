package api

import (
	"fmt"
	"math"
	"net/mail"
	"strings"
	"unicode"
)

// OnboardingState is the mutable state of one onboarding attempt. It is
// owned by the coordinator; everything else observes copies taken with
// Clone. A fresh state starts at StepEmail with no data.
type OnboardingState struct {
	CurrentStep        Step
	Email              string
	VerificationCode   string
	ConnectedPlatforms map[Platform]struct{}
	PIN                string
	TrainingProgress   float64

	// Transient UI-facing flags, cleared at the start of each
	// user-initiated action.
	IsLoading    bool
	ErrorMessage string

	// AllowEmptyConnections lets the Connect step pass with no linked
	// platforms. Forced on in test mode.
	AllowEmptyConnections bool
}

// NewOnboardingState returns a state positioned at the first step.
func NewOnboardingState() *OnboardingState {
	return &OnboardingState{
		CurrentStep:        StepEmail,
		ConnectedPlatforms: make(map[Platform]struct{}),
	}
}

// Reset clears the state back to its initial values, keeping the
// AllowEmptyConnections policy.
func (s *OnboardingState) Reset() {
	allow := s.AllowEmptyConnections
	*s = *NewOnboardingState()
	s.AllowEmptyConnections = allow
}

// Clone returns a deep copy safe to hand to observers.
func (s *OnboardingState) Clone() OnboardingState {
	c := *s
	c.ConnectedPlatforms = make(map[Platform]struct{}, len(s.ConnectedPlatforms))
	for p := range s.ConnectedPlatforms {
		c.ConnectedPlatforms[p] = struct{}{}
	}
	return c
}

// Connected reports whether p has been linked in this attempt.
func (s OnboardingState) Connected(p Platform) bool {
	_, ok := s.ConnectedPlatforms[p]
	return ok
}

// ValidateCurrentStep checks whether the current step's completion
// requirements hold. A nil return means the step may advance.
func (s *OnboardingState) ValidateCurrentStep() *Error {
	switch s.CurrentStep {
	case StepEmail:
		return ValidateEmail(s.Email)
	case StepVerify:
		return ValidateVerificationCode(s.VerificationCode)
	case StepConnect:
		if s.AllowEmptyConnections || len(s.ConnectedPlatforms) > 0 {
			return nil
		}
		return ValidationError("Connect at least one platform to continue.")
	case StepSuccess:
		return nil
	case StepPIN:
		return ValidatePIN(s.PIN)
	case StepTraining:
		if s.TrainingProgress >= 1.0 {
			return nil
		}
		return ValidationError("Training is still in progress.")
	default:
		return ValidationError(fmt.Sprintf("Unknown step %q.", string(s.CurrentStep)))
	}
}

// ApplyTrainingProgress folds v into TrainingProgress. Values are clamped
// into [0, 1]; NaN and infinities are coerced to the last valid value;
// progress never decreases during a run.
func (s *OnboardingState) ApplyTrainingProgress(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return s.TrainingProgress
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	if v > s.TrainingProgress {
		s.TrainingProgress = v
	}
	return s.TrainingProgress
}

// maxEmailLength is the RFC 5321 bound on a forward path.
const maxEmailLength = 254

// ValidateEmail checks the address the user typed at the Email step.
func ValidateEmail(email string) *Error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError("Enter your email address.")
	}
	if len(email) > maxEmailLength {
		return ValidationError("That email address is too long.")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ValidationError("That doesn't look like a valid email address.")
	}
	return nil
}

// ValidateVerificationCode checks the 6-digit code from the Verify step.
func ValidateVerificationCode(code string) *Error {
	if len(code) != 6 {
		return ValidationError("Enter the 6-digit code from your email.")
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return ValidationError("The code is digits only.")
		}
	}
	return nil
}

// ValidatePIN enforces the PIN policy: at least 8 characters with at least
// one letter, one digit, and one special character.
func ValidatePIN(pin string) *Error {
	if len(pin) < 8 {
		return ValidationError("Your PIN must be at least 8 characters.")
	}
	var hasLetter, hasDigit, hasSpecial bool
	for _, r := range pin {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	if !hasLetter || !hasDigit || !hasSpecial {
		return ValidationError("Your PIN needs a letter, a digit, and a special character.")
	}
	return nil
}
