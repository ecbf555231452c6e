package onairos

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/onairos/onairos-go/internal/apiclient"
	"github.com/onairos/onairos-go/internal/coordinator"
	"github.com/onairos/onairos-go/internal/oauth"
	"github.com/onairos/onairos-go/internal/pin"
	"github.com/onairos/onairos-go/internal/session"
	"github.com/onairos/onairos-go/pkg/api"
)

// Re-export key types so host applications don't need to dig into pkg/api.

type (
	Step               = api.Step
	FlowStatus         = api.FlowStatus
	Platform           = api.Platform
	Error              = api.Error
	Category           = api.Category
	OnboardingState    = api.OnboardingState
	OnboardingData     = api.OnboardingData
	PlatformConnection = api.PlatformConnection
	Result             = api.Result
	CompletionFunc     = api.CompletionFunc
	BrowserSurface     = api.BrowserSurface
	BrowserEvent       = api.BrowserEvent
	BrowserEventKind   = api.BrowserEventKind
	Authenticator      = api.Authenticator
	NativeConnector    = api.NativeConnector
	TrainingStatus     = api.TrainingStatus
	TrainingSource     = api.TrainingSource
	Coordinator        = api.Coordinator
	Observer           = api.Observer
	Notice             = api.Notice
	LoggingObserver    = api.LoggingObserver
	CompositeObserver  = api.CompositeObserver
	NoopObserver       = api.NoopObserver
	LogLevel           = api.LogLevel
)

// Re-export common observer helpers and result constructors.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
	Success              = api.Success
	Failure              = api.Failure
	KnownPlatforms       = api.KnownPlatforms
)

// Re-export step and status values for convenience.

const (
	StepEmail    = api.StepEmail
	StepVerify   = api.StepVerify
	StepConnect  = api.StepConnect
	StepSuccess  = api.StepSuccess
	StepPIN      = api.StepPIN
	StepTraining = api.StepTraining

	FlowIdle      = api.FlowIdle
	FlowRunning   = api.FlowRunning
	FlowCompleted = api.FlowCompleted
	FlowCancelled = api.FlowCancelled
	FlowFailed    = api.FlowFailed

	PlatformLinkedIn  = api.PlatformLinkedIn
	PlatformYouTube   = api.PlatformYouTube
	PlatformReddit    = api.PlatformReddit
	PlatformPinterest = api.PlatformPinterest
	PlatformInstagram = api.PlatformInstagram
	PlatformGmail     = api.PlatformGmail

	LogInfo    = api.LogInfo
	LogDebug   = api.LogDebug
	LogVerbose = api.LogVerbose
)

// Re-export the canned error values so hosts can match with errors.Is.

var (
	ErrNotInitialized           = api.ErrNotInitialized
	ErrInvalidConfig            = api.ErrInvalidConfig
	ErrNoSurface                = api.ErrNoSurface
	ErrAlreadyStarted           = api.ErrAlreadyStarted
	ErrNetworkUnavailable       = api.ErrNetworkUnavailable
	ErrRequestTimeout           = api.ErrRequestTimeout
	ErrInvalidCredentials       = api.ErrInvalidCredentials
	ErrTokenExpired             = api.ErrTokenExpired
	ErrUserCancelled            = api.ErrUserCancelled
	ErrInsufficientTrainingData = api.ErrInsufficientTrainingData
)

// Deps are the host-supplied device collaborators for one onboarding
// presentation. Every field is optional.
type Deps struct {
	// Authenticator is the device biometric prompt gating PIN storage.
	// Nil behaves like a device without biometrics.
	Authenticator api.Authenticator

	// Native links platforms whose providers require their own SDK.
	Native api.NativeConnector

	// Observer receives flow lifecycle events.
	Observer api.Observer

	// Training overrides the progress source. Nil picks the backend
	// poll, or the simulated ramp when Config.SimulateTraining is set.
	Training api.TrainingSource
}

// SDK is the explicitly constructed service object a host application owns.
// One logical instance per process; there is no hidden singleton.
type SDK struct {
	cfg      Config
	client   *apiclient.Client
	sessions session.Store
	logger   *slog.Logger
}

// New returns an SDK whose session store lives in memory. Sessions do not
// survive a process restart; use NewWithSQLite or NewWithRedis for that.
func New(cfg Config) (*SDK, error) {
	return newSDK(cfg, session.NewInMemoryStore())
}

// NewWithSQLite returns an SDK that persists sessions in a SQLite database.
func NewWithSQLite(cfg Config, db *sql.DB) (*SDK, error) {
	store, err := session.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	return newSDK(cfg, store)
}

// NewWithRedis returns an SDK that persists sessions in Redis under the
// given key prefix. An empty prefix uses the store default.
func NewWithRedis(cfg Config, client *redis.Client, prefix string) (*SDK, error) {
	return newSDK(cfg, session.NewRedisStore(client, prefix))
}

func newSDK(cfg Config, store session.Store) (*SDK, error) {
	cfg = cfg.Normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel.SlogLevel(),
	}))
	if cfg.AppName != "" {
		logger = logger.With("app", cfg.AppName)
	}

	client, err := apiclient.New(apiclient.Config{
		BaseURL:        cfg.APIBaseURL,
		RequestTimeout: cfg.RequestTimeout,
		Sessions:       store,
		Logger:         logger,
		Level:          cfg.LogLevel,
	})
	if err != nil {
		return nil, err
	}

	return &SDK{
		cfg:      cfg,
		client:   client,
		sessions: store,
		logger:   logger,
	}, nil
}

// Config returns the normalized configuration the SDK runs with.
func (s *SDK) Config() Config { return s.cfg }

// PresentOnboarding starts one onboarding attempt on the given browser
// surface and returns its Coordinator. The error reports startup problems
// only; the flow outcome arrives exactly once through completion.
func (s *SDK) PresentOnboarding(ctx context.Context, surface api.BrowserSurface, deps Deps, completion api.CompletionFunc) (api.Coordinator, error) {
	observer := deps.Observer
	if observer == nil {
		observer = api.NoopObserver{}
	}

	flow := oauth.NewFlow(oauth.Config{
		Client:    s.client,
		URLScheme: s.cfg.URLScheme,
		Observer:  observer,
		Logger:    s.logger,
	})
	pins := pin.NewStore(pin.Config{
		Sessions:      s.sessions,
		Client:        s.client,
		Authenticator: deps.Authenticator,
		Observer:      observer,
		Logger:        s.logger,
	})

	training := deps.Training
	if training == nil {
		if s.cfg.SimulateTraining {
			training = coordinator.NewSimulatedSource(0, 1)
		} else {
			training = s.client
		}
	}

	coord := coordinator.New(coordinator.Config{
		Client:                s.client,
		Sessions:              s.sessions,
		PINs:                  pins,
		OAuth:                 flow,
		Training:              training,
		Native:                deps.Native,
		Platforms:             s.cfg.Platforms,
		Observer:              observer,
		Logger:                s.logger,
		AllowEmptyConnections: s.cfg.AllowEmptyConnections,
		SkipAccountCheck:      s.cfg.TestMode,
		Completion:            completion,
	})

	if err := coord.Start(ctx, surface); err != nil {
		return nil, err
	}
	return coord, nil
}

// HasExistingSession reports whether a live (unexpired) session token is
// stored. A stale token is cleared as a side effect and reported as absent.
func (s *SDK) HasExistingSession(ctx context.Context) (bool, error) {
	_, err := session.ActiveBearer(ctx, s.sessions, time.Now())
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, api.ErrInvalidCredentials), errors.Is(err, api.ErrTokenExpired):
		return false, nil
	default:
		return false, err
	}
}

// ClearSession wipes all persisted session state: credentials, connected
// platforms, and the stored PIN.
func (s *SDK) ClearSession(ctx context.Context) error {
	return s.sessions.Clear(ctx)
}
