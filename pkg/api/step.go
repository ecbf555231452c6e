package api

// Step identifies one stage of the guided onboarding flow.
type Step string

const (
	StepEmail    Step = "EMAIL"
	StepVerify   Step = "VERIFY"
	StepConnect  Step = "CONNECT"
	StepSuccess  Step = "SUCCESS"
	StepPIN      Step = "PIN"
	StepTraining Step = "TRAINING"
)

// stepOrder is the fixed forward order of the flow. Training is last; its
// loop-back edges (to Connect on insufficient data, to PIN on cancel) are
// explicit coordinator transitions, not part of the order.
var stepOrder = []Step{
	StepEmail,
	StepVerify,
	StepConnect,
	StepSuccess,
	StepPIN,
	StepTraining,
}

// Steps returns the forward step order.
func Steps() []Step {
	out := make([]Step, len(stepOrder))
	copy(out, stepOrder)
	return out
}

// Index returns the position of s in the forward order, or -1 if s is not
// a known step.
func (s Step) Index() int {
	for i, st := range stepOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the step after s. ok is false when s is the last step or
// unknown.
func (s Step) Next() (next Step, ok bool) {
	i := s.Index()
	if i < 0 || i+1 >= len(stepOrder) {
		return "", false
	}
	return stepOrder[i+1], true
}

// Prev returns the step before s. ok is false when s is the first step or
// unknown.
func (s Step) Prev() (prev Step, ok bool) {
	i := s.Index()
	if i <= 0 {
		return "", false
	}
	return stepOrder[i-1], true
}

// FlowStatus represents the lifecycle state of one onboarding attempt.
type FlowStatus string

const (
	FlowIdle      FlowStatus = "IDLE"
	FlowRunning   FlowStatus = "RUNNING"
	FlowCompleted FlowStatus = "COMPLETED"
	FlowCancelled FlowStatus = "CANCELLED"
	FlowFailed    FlowStatus = "FAILED"
)

// Terminal reports whether the flow has reached a final state.
func (f FlowStatus) Terminal() bool {
	switch f {
	case FlowCompleted, FlowCancelled, FlowFailed:
		return true
	}
	return false
}
