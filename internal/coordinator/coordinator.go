// Package coordinator implements the onboarding step state machine: the
// single writer of OnboardingState, the owner of every sub-flow's lifetime,
// and the sole source of the terminal completion callback.
package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/onairos/onairos-go/internal/apiclient"
	"github.com/onairos/onairos-go/internal/oauth"
	"github.com/onairos/onairos-go/internal/pin"
	"github.com/onairos/onairos-go/internal/session"
	"github.com/onairos/onairos-go/pkg/api"
)

// transientDismiss bounds connect success/failure indicators.
const transientDismiss = 3 * time.Second

// Config describes how to construct a Coordinator.
type Config struct {
	Client   *apiclient.Client
	Sessions session.Store
	PINs     *pin.Store
	OAuth    *oauth.Flow

	// Training supplies progress while the Training step is active.
	Training api.TrainingSource

	// Native links platforms with a device SDK. Optional.
	Native api.NativeConnector

	// Platforms restricts which providers ConnectToPlatform accepts.
	// Empty means every known platform.
	Platforms []api.Platform

	Observer api.Observer
	Logger   *slog.Logger

	// AllowEmptyConnections lets Connect pass with no linked platforms.
	AllowEmptyConnections bool

	// SkipAccountCheck bypasses the existing-account network check
	// entirely (test mode's fully offline path).
	SkipAccountCheck bool

	// PollInterval is the training pump cadence. Defaults to 500ms.
	PollInterval time.Duration

	// Completion receives the terminal result, exactly once.
	Completion api.CompletionFunc

	// Now overrides the clock; mainly for tests.
	Now func() time.Time
}

// Coordinator is the concrete api.Coordinator.
type Coordinator struct {
	client   *apiclient.Client
	sessions session.Store
	pins     *pin.Store
	oauth    *oauth.Flow
	training api.TrainingSource
	native   api.NativeConnector
	allowed  map[api.Platform]struct{}
	observer api.Observer
	logger   *slog.Logger

	skipAccountCheck bool
	pollInterval     time.Duration
	completion       api.CompletionFunc
	now              func() time.Time

	mu        sync.Mutex
	state     *api.OnboardingState
	status    api.FlowStatus
	surface   api.BrowserSurface
	completed bool

	// attemptCtx spans one attempt, Start to terminal. Cancelling it
	// aborts in-flight sub-flows the moment the flow finishes.
	attemptCtx    context.Context
	attemptCancel context.CancelFunc

	// insufficientData blocks advancing out of Training after a
	// zero-negative-samples report until training reruns.
	insufficientData bool

	pumpCancel context.CancelFunc
	pumpWG     sync.WaitGroup
}

var _ api.Coordinator = (*Coordinator)(nil)

// New creates a Coordinator from cfg.
func New(cfg Config) *Coordinator {
	observer := cfg.Observer
	if observer == nil {
		observer = api.NoopObserver{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	completion := cfg.Completion
	if completion == nil {
		completion = func(api.Result) {}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	var allowed map[api.Platform]struct{}
	if len(cfg.Platforms) > 0 {
		allowed = make(map[api.Platform]struct{}, len(cfg.Platforms))
		for _, p := range cfg.Platforms {
			allowed[p] = struct{}{}
		}
	}

	state := api.NewOnboardingState()
	state.AllowEmptyConnections = cfg.AllowEmptyConnections

	return &Coordinator{
		client:           cfg.Client,
		sessions:         cfg.Sessions,
		pins:             cfg.PINs,
		oauth:            cfg.OAuth,
		training:         cfg.Training,
		native:           cfg.Native,
		allowed:          allowed,
		observer:         observer,
		logger:           logger,
		skipAccountCheck: cfg.SkipAccountCheck,
		pollInterval:     pollInterval,
		completion:       completion,
		now:              now,
		state:            state,
		status:           api.FlowIdle,
	}
}

func (c *Coordinator) Start(ctx context.Context, surface api.BrowserSurface) error {
	c.mu.Lock()
	if c.status != api.FlowIdle {
		c.mu.Unlock()
		return api.ErrAlreadyStarted
	}
	if surface == nil {
		c.mu.Unlock()
		return api.ErrNoSurface
	}
	c.surface = surface
	c.status = api.FlowRunning
	c.attemptCtx, c.attemptCancel = context.WithCancel(context.Background())
	c.mu.Unlock()

	// The existing-account check is best-effort and fail-open: any
	// failure starts the long path at Email, never blocks startup.
	existing := false
	if !c.skipAccountCheck {
		existing = c.client.CheckExistingAccount(ctx)
	}

	c.mu.Lock()
	if c.completed {
		c.mu.Unlock()
		return nil
	}
	if existing {
		c.state.Reset()
		c.state.CurrentStep = api.StepTraining
	}
	snapshot := c.state.Clone()
	c.mu.Unlock()

	c.observer.OnFlowStart(ctx, snapshot)
	if existing {
		return c.StartTraining(ctx)
	}
	return nil
}

func (c *Coordinator) State() api.OnboardingState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

func (c *Coordinator) Status() api.FlowStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Coordinator) SetEmail(email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Email = email
	c.state.ErrorMessage = ""
}

func (c *Coordinator) SetVerificationCode(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.VerificationCode = code
	c.state.ErrorMessage = ""
}

func (c *Coordinator) SetPIN(pinValue string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.PIN = pinValue
	c.state.ErrorMessage = ""
}

// beginAction is the re-entrancy guard for user-initiated actions: it
// clears transient flags and claims the loading slot. ok is false when the
// flow is terminal or a prior action is still in flight.
func (c *Coordinator) beginAction() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completed || c.status != api.FlowRunning || c.state.IsLoading {
		return false
	}
	c.state.ErrorMessage = ""
	c.state.IsLoading = true
	return true
}

func (c *Coordinator) endAction() {
	c.mu.Lock()
	c.state.IsLoading = false
	c.mu.Unlock()
}

func (c *Coordinator) ProceedToNextStep(ctx context.Context) error {
	if !c.beginAction() {
		return nil
	}
	defer c.endAction()

	c.mu.Lock()
	step := c.state.CurrentStep
	if verr := c.state.ValidateCurrentStep(); verr != nil {
		c.state.ErrorMessage = verr.Message
		c.mu.Unlock()
		return verr
	}
	if step == api.StepTraining && c.insufficientData {
		verr := api.ErrInsufficientTrainingData
		c.state.ErrorMessage = verr.Message
		c.mu.Unlock()
		return verr
	}
	email := c.state.Email
	code := c.state.VerificationCode
	pinValue := c.state.PIN
	c.mu.Unlock()

	switch step {
	case api.StepEmail:
		if err := c.client.RequestVerificationCode(ctx, email); err != nil {
			return c.actionFailed(err)
		}

	case api.StepVerify:
		creds, err := c.client.VerifyEmailCode(ctx, email, code)
		if err != nil {
			return c.actionFailed(err)
		}
		if err := c.sessions.SaveCredentials(ctx, creds); err != nil {
			return c.actionFailed(api.UnknownError(err))
		}

	case api.StepConnect, api.StepSuccess:
		// No side effects; the transition is the whole action.

	case api.StepPIN:
		username := c.username(ctx)
		if _, err := c.pins.Persist(ctx, pinValue, username); err != nil {
			return c.actionFailed(err)
		}

	case api.StepTraining:
		// Advancing out of Training completes the flow.
		c.finish(ctx, api.Success(c.collectData(ctx)))
		return nil
	}

	next, ok := step.Next()
	if !ok {
		return nil
	}
	c.transition(ctx, next)

	if next == api.StepTraining {
		return c.StartTraining(ctx)
	}
	return nil
}

// actionFailed records err as the inline message and returns it. The step
// does not change: failed actions are idempotent no-ops on state.
func (c *Coordinator) actionFailed(err error) error {
	c.mu.Lock()
	if e, ok := api.AsError(err); ok {
		c.state.ErrorMessage = e.Message
	} else {
		c.state.ErrorMessage = err.Error()
	}
	c.mu.Unlock()
	return err
}

// transition commits a step change and notifies observers. Callers must
// not hold the lock.
func (c *Coordinator) transition(ctx context.Context, to api.Step) {
	c.mu.Lock()
	if c.completed {
		c.mu.Unlock()
		return
	}
	from := c.state.CurrentStep
	c.state.CurrentStep = to
	snapshot := c.state.Clone()
	c.mu.Unlock()

	c.observer.OnStepChanged(ctx, from, to, snapshot)
}

func (c *Coordinator) GoBackToPreviousStep(ctx context.Context) error {
	c.mu.Lock()
	if c.completed || c.state.IsLoading {
		c.mu.Unlock()
		return nil
	}
	step := c.state.CurrentStep
	c.state.ErrorMessage = ""
	c.mu.Unlock()

	// From Training, back means the cancel edge to PIN, not Success.
	if step == api.StepTraining {
		c.stopTrainingPump()
		c.transition(ctx, api.StepPIN)
		return nil
	}

	prev, ok := step.Prev()
	if !ok {
		return nil
	}
	c.transition(ctx, prev)
	return nil
}

func (c *Coordinator) GoBackToConnectStep(ctx context.Context) {
	c.stopTrainingPump()

	// A source that can rewind must start the rerun from zero, or its
	// first poll would immediately re-report completion.
	if r, ok := c.training.(interface{ Reset() }); ok {
		r.Reset()
	}

	c.mu.Lock()
	if c.completed {
		c.mu.Unlock()
		return
	}
	// Connected platforms survive; only training bookkeeping resets so
	// the rerun starts clean.
	c.state.TrainingProgress = 0
	c.insufficientData = false
	c.state.ErrorMessage = ""
	c.mu.Unlock()

	c.transition(ctx, api.StepConnect)
	c.observer.OnNotice(ctx, api.Notice{
		Kind:        api.NoticeError,
		Message:     api.ErrInsufficientTrainingData.Message,
		AutoDismiss: transientDismiss,
	})
}

func (c *Coordinator) ConnectToPlatform(ctx context.Context, platform api.Platform) error {
	if !platform.Known() {
		return c.actionFailed(api.ValidationError("Unknown platform."))
	}
	if c.allowed != nil {
		if _, ok := c.allowed[platform]; !ok {
			return c.actionFailed(api.ValidationError("Platform " + string(platform) + " is not enabled for this app."))
		}
	}
	if !c.beginAction() {
		return nil
	}
	defer c.endAction()

	// Scope the link to the attempt so Cancel aborts an open browser
	// surface instead of letting it run to a late completion.
	ctx, stop := c.attemptScope(ctx)
	defer stop()

	c.mu.Lock()
	surface := c.surface
	email := c.state.Email
	c.mu.Unlock()

	conn, err := c.linkPlatform(ctx, surface, platform, email)
	if err != nil {
		if c.terminal() {
			return err
		}
		// Transient, auto-dismissing indicator; state is unchanged. User
		// cancellation produces no retry and no further signal.
		message := "Connection failed."
		if e, ok := api.AsError(err); ok {
			message = e.Message
		}
		c.observer.OnNotice(ctx, api.Notice{
			Kind:        api.NoticeError,
			Message:     message,
			AutoDismiss: transientDismiss,
		})
		return err
	}

	// A cancellation racing the link must not land a credential in a
	// terminal flow.
	if c.terminal() {
		return api.ErrUserCancelled
	}

	// Persist the credential and update membership together; the store
	// write is the atomic half, the state set mirrors it under the lock.
	if err := c.sessions.Connect(ctx, conn); err != nil {
		return c.actionFailed(api.UnknownError(err))
	}
	c.mu.Lock()
	done := c.completed
	if !done {
		c.state.ConnectedPlatforms[platform] = struct{}{}
	}
	c.mu.Unlock()
	if done {
		return api.ErrUserCancelled
	}

	c.observer.OnPlatformConnected(ctx, conn)
	c.observer.OnNotice(ctx, api.Notice{
		Kind:        api.NoticeSuccess,
		Message:     "Connected " + string(platform) + ".",
		AutoDismiss: transientDismiss,
	})
	return nil
}

// attemptScope derives a context that ends when either the caller's ctx or
// the attempt itself is cancelled. The returned stop must be called to
// release the linkage.
func (c *Coordinator) attemptScope(ctx context.Context) (context.Context, context.CancelFunc) {
	c.mu.Lock()
	attempt := c.attemptCtx
	c.mu.Unlock()
	if attempt == nil {
		return ctx, func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	unlink := context.AfterFunc(attempt, cancel)
	return ctx, func() {
		unlink()
		cancel()
	}
}

func (c *Coordinator) terminal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

// linkPlatform picks the native-SDK path when one is configured for the
// platform, otherwise the browser OAuth sub-flow.
func (c *Coordinator) linkPlatform(ctx context.Context, surface api.BrowserSurface, platform api.Platform, email string) (api.PlatformConnection, error) {
	if platform.UsesNativeSDK() && c.native != nil {
		return c.native.Connect(ctx, platform)
	}

	res, err := c.oauth.Connect(ctx, surface, platform, email, c.username(ctx))
	if err != nil {
		return api.PlatformConnection{}, err
	}
	return api.PlatformConnection{
		Platform:    res.Platform,
		AccessToken: res.AccessToken,
		AuthCode:    res.AuthCode,
		ConnectedAt: res.ConnectedAt,
	}, nil
}

func (c *Coordinator) Cancel() {
	c.stopTrainingPump()
	c.finish(context.Background(), api.Failure(api.ErrUserCancelled))
}

// finish fires the terminal callback exactly once, no matter how many
// intermediate failures or late async completions occur.
func (c *Coordinator) finish(ctx context.Context, result api.Result) {
	c.mu.Lock()
	if c.completed {
		c.mu.Unlock()
		return
	}
	c.completed = true
	switch {
	case result.Succeeded():
		c.status = api.FlowCompleted
	case result.Err != nil && result.Err.Category == api.CategoryUserAction:
		c.status = api.FlowCancelled
	default:
		c.status = api.FlowFailed
	}
	cancel := c.attemptCancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.stopTrainingPump()
	c.observer.OnFlowFinished(ctx, result)
	c.completion(result)
}

// username reads the stored session username, tolerating a missing session.
func (c *Coordinator) username(ctx context.Context) string {
	creds, ok, err := c.sessions.Credentials(ctx)
	if err != nil || !ok {
		return ""
	}
	return creds.Username
}

// collectData assembles the terminal payload from the session store.
func (c *Coordinator) collectData(ctx context.Context) api.OnboardingData {
	c.mu.Lock()
	email := c.state.Email
	c.mu.Unlock()

	data := api.OnboardingData{Email: email}
	if creds, ok, err := c.sessions.Credentials(ctx); err == nil && ok {
		data.Username = creds.Username
		data.Token = creds.BearerToken
		data.TokenExpiry = creds.TokenExpiry
		if data.Email == "" {
			data.Email = creds.Email
		}
	}
	if conns, err := c.sessions.Connections(ctx); err == nil {
		data.Connections = conns
	}
	return data
}
