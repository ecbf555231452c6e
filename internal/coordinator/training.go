package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/onairos/onairos-go/pkg/api"
)

// StartTraining spins up the training pump: a goroutine polling the
// training source and funneling every status through the coordinator's
// single state-mutation point. It is idempotent while a pump is active.
func (c *Coordinator) StartTraining(ctx context.Context) error {
	c.mu.Lock()
	if c.completed || c.state.CurrentStep != api.StepTraining {
		c.mu.Unlock()
		return nil
	}
	if c.pumpCancel != nil {
		c.mu.Unlock()
		return nil
	}
	if c.training == nil {
		c.mu.Unlock()
		return api.ErrInvalidConfig.WithCause(errNoTrainingSource)
	}

	pumpCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.pumpCancel = cancel
	c.pumpWG.Add(1)
	c.mu.Unlock()

	go c.pump(pumpCtx)
	return nil
}

var errNoTrainingSource = &noTrainingSourceError{}

type noTrainingSourceError struct{}

func (*noTrainingSourceError) Error() string { return "coordinator: no training source configured" }

// pump polls the source until training completes, the flow finishes, or the
// pump is stopped.
func (c *Coordinator) pump(ctx context.Context) {
	defer c.pumpWG.Done()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		status, err := c.training.TrainingStatus(ctx)
		if err != nil {
			// Warn and keep polling; a transient backend hiccup must not
			// kill a run the user is watching.
			c.logger.Warn("training_status_failed", slog.String("error", err.Error()))
			continue
		}

		if done := c.applyTrainingStatus(ctx, status); done {
			return
		}
	}
}

// applyTrainingStatus is the single point where training state enters the
// coordinator. It returns true when the pump should stop.
func (c *Coordinator) applyTrainingStatus(ctx context.Context, status api.TrainingStatus) bool {
	c.mu.Lock()
	if c.completed || c.state.CurrentStep != api.StepTraining {
		c.mu.Unlock()
		return true
	}
	progress := c.state.ApplyTrainingProgress(status.Progress)
	completed := status.Completed
	insufficient := completed && status.DislikedInteractions == 0
	if insufficient {
		c.insufficientData = true
	}
	c.mu.Unlock()

	c.observer.OnTrainingProgress(ctx, progress)

	if !completed {
		return false
	}
	if insufficient {
		// Not a terminal error: route back to Connect so the user can
		// link more data, keeping what they already connected.
		c.releasePump()
		c.GoBackToConnectStep(ctx)
		return true
	}
	c.releasePump()
	return true
}

// releasePump clears the pump slot from inside the pump goroutine so a
// rerun can start; the goroutine itself returns right after.
func (c *Coordinator) releasePump() {
	c.mu.Lock()
	if c.pumpCancel != nil {
		c.pumpCancel()
		c.pumpCancel = nil
	}
	c.mu.Unlock()
}

// stopTrainingPump cancels the pump and waits for it to exit. Safe to call
// when no pump is running. The pump releases its own slot before routing
// back to Connect, so this never waits on the calling goroutine.
func (c *Coordinator) stopTrainingPump() {
	c.mu.Lock()
	cancel := c.pumpCancel
	c.pumpCancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	c.pumpWG.Wait()
}

// SimulatedSource is a deterministic in-process training source used in
// test mode: progress ramps by a fixed increment per poll and completes at
// 1.0. It reports the configured number of negative-interaction samples.
type SimulatedSource struct {
	mu       sync.Mutex
	progress float64
	step     float64
	disliked int
}

// NewSimulatedSource creates a SimulatedSource ramping by step per poll.
// step <= 0 defaults to 0.25.
func NewSimulatedSource(step float64, disliked int) *SimulatedSource {
	if step <= 0 {
		step = 0.25
	}
	return &SimulatedSource{step: step, disliked: disliked}
}

var _ api.TrainingSource = (*SimulatedSource)(nil)

func (s *SimulatedSource) TrainingStatus(ctx context.Context) (api.TrainingStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.progress += s.step
	if s.progress > 1 {
		s.progress = 1
	}
	return api.TrainingStatus{
		Progress:             s.progress,
		DislikedInteractions: s.disliked,
		Completed:            s.progress >= 1,
	}, nil
}

// Reset restarts the ramp, used when the flow re-enters Connect and
// training will run again.
func (s *SimulatedSource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = 0
}
