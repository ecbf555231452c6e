package api

import (
	"context"
	"log/slog"
	"time"
)

// NoticeKind distinguishes transient indicators shown by the presentation
// shell.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "SUCCESS"
	NoticeError   NoticeKind = "ERROR"
)

// Notice is a transient, auto-dismissing indicator. It never affects flow
// state; it exists so the shell can render feedback without owning any.
type Notice struct {
	Kind        NoticeKind
	Message     string
	AutoDismiss time.Duration
}

// Observer receives callbacks from the onboarding coordinator for rendering,
// logging, and metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay the flow.
type Observer interface {
	// OnFlowStart is called once when the coordinator begins an attempt,
	// after the entry step has been decided.
	OnFlowStart(ctx context.Context, state OnboardingState)

	// OnStepChanged is called after every committed step transition,
	// forward or backward.
	OnStepChanged(ctx context.Context, from, to Step, state OnboardingState)

	// OnPlatformConnected is called after a platform credential has been
	// persisted and the platform added to the connected set.
	OnPlatformConnected(ctx context.Context, conn PlatformConnection)

	// OnTrainingProgress is called with the clamped progress value each
	// time a training status is applied.
	OnTrainingProgress(ctx context.Context, progress float64)

	// OnNotice is called for transient success/error indicators.
	OnNotice(ctx context.Context, notice Notice)

	// OnFlowFinished is called exactly once with the terminal result,
	// immediately before the completion callback.
	OnFlowFinished(ctx context.Context, result Result)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnFlowStart(ctx context.Context, state OnboardingState)              {}
func (NoopObserver) OnStepChanged(ctx context.Context, from, to Step, s OnboardingState) {}
func (NoopObserver) OnPlatformConnected(ctx context.Context, conn PlatformConnection)    {}
func (NoopObserver) OnTrainingProgress(ctx context.Context, progress float64)            {}
func (NoopObserver) OnNotice(ctx context.Context, notice Notice)                         {}
func (NoopObserver) OnFlowFinished(ctx context.Context, result Result)                   {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnFlowStart(ctx context.Context, state OnboardingState) {
	for _, o := range c.observers {
		o.OnFlowStart(ctx, state)
	}
}

func (c *CompositeObserver) OnStepChanged(ctx context.Context, from, to Step, state OnboardingState) {
	for _, o := range c.observers {
		o.OnStepChanged(ctx, from, to, state)
	}
}

func (c *CompositeObserver) OnPlatformConnected(ctx context.Context, conn PlatformConnection) {
	for _, o := range c.observers {
		o.OnPlatformConnected(ctx, conn)
	}
}

func (c *CompositeObserver) OnTrainingProgress(ctx context.Context, progress float64) {
	for _, o := range c.observers {
		o.OnTrainingProgress(ctx, progress)
	}
}

func (c *CompositeObserver) OnNotice(ctx context.Context, notice Notice) {
	for _, o := range c.observers {
		o.OnNotice(ctx, notice)
	}
}

func (c *CompositeObserver) OnFlowFinished(ctx context.Context, result Result) {
	for _, o := range c.observers {
		o.OnFlowFinished(ctx, result)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs flow lifecycle events
// using the provided slog.Logger. If logger is nil, slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnFlowStart(ctx context.Context, state OnboardingState) {
	o.Logger.InfoContext(ctx, "onboarding_start",
		slog.String("entry_step", string(state.CurrentStep)),
	)
}

func (o *LoggingObserver) OnStepChanged(ctx context.Context, from, to Step, state OnboardingState) {
	o.Logger.InfoContext(ctx, "onboarding_step",
		slog.String("from", string(from)),
		slog.String("to", string(to)),
		slog.Int("connected_platforms", len(state.ConnectedPlatforms)),
	)
}

func (o *LoggingObserver) OnPlatformConnected(ctx context.Context, conn PlatformConnection) {
	o.Logger.InfoContext(ctx, "platform_connected",
		slog.String("platform", string(conn.Platform)),
		slog.Time("connected_at", conn.ConnectedAt),
	)
}

func (o *LoggingObserver) OnTrainingProgress(ctx context.Context, progress float64) {
	o.Logger.DebugContext(ctx, "training_progress",
		slog.Float64("progress", progress),
	)
}

func (o *LoggingObserver) OnNotice(ctx context.Context, notice Notice) {
	o.Logger.DebugContext(ctx, "notice",
		slog.String("kind", string(notice.Kind)),
		slog.String("message", notice.Message),
	)
}

func (o *LoggingObserver) OnFlowFinished(ctx context.Context, result Result) {
	if result.Succeeded() {
		o.Logger.InfoContext(ctx, "onboarding_completed",
			slog.String("username", result.Data.Username),
			slog.Int("connections", len(result.Data.Connections)),
		)
		return
	}
	o.Logger.WarnContext(ctx, "onboarding_failed",
		slog.String("code", result.Err.Code),
		slog.String("category", string(result.Err.Category)),
	)
}
