package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Veraticus/catalog-steward/internal/audit"
	"github.com/Veraticus/catalog-steward/internal/classification"
	"github.com/Veraticus/catalog-steward/internal/common"
	"github.com/Veraticus/catalog-steward/internal/model"
	"github.com/Veraticus/catalog-steward/internal/surface"
)

// Summary describes a finished run.
type Summary struct {
	StartedAt  time.Time
	FinishedAt time.Time
	StopReason string
	Counters   model.Counters
}

// Duration returns how long the run took.
func (s Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Supervisor runs the controller until the queue is empty, a limit is hit or
// a circuit breaker trips. It is the only component that replaces the
// session handle.
type Supervisor struct {
	handle     *surface.Handle
	controller *Controller
	state      *RunState
	now        func() time.Time
	opts       Options
}

// NewSupervisor creates a supervisor around controller.
func NewSupervisor(handle *surface.Handle, controller *Controller, state *RunState, opts Options) *Supervisor {
	return &Supervisor{
		handle:     handle,
		controller: controller,
		state:      state,
		opts:       opts,
		now:        time.Now,
	}
}

// Run drives the review loop. Cancellation and the item limit end the run
// cleanly; tripping either circuit breaker returns ErrErrorLimit or
// ErrStuckLimit along with the summary so far.
func (s *Supervisor) Run(ctx context.Context) (Summary, error) {
	summary := Summary{StartedAt: s.now()}
	finish := func(reason string, err error) (Summary, error) {
		summary.FinishedAt = s.now()
		summary.StopReason = reason
		summary.Counters = s.state.Counters
		slog.Info("Run finished",
			"reason", reason,
			"processed", s.state.Counters.Processed,
			"approved", s.state.Counters.Approved,
			"flagged", s.state.Counters.Flagged,
			"skipped", s.state.Counters.Skipped,
			"stuck", s.state.Counters.Stuck,
			"duration", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Second))
		return summary, err
	}

	started := false
	limit := s.opts.itemLimit()
	for {
		if ctx.Err() != nil {
			return finish(StopInterrupted, nil)
		}
		if s.state.Counters.Processed >= limit {
			return finish(StopLimit, nil)
		}

		var (
			done bool
			err  error
		)
		if started {
			done, err = s.controller.Step(ctx)
		} else {
			done, err = s.controller.Start(ctx)
			started = err == nil
		}

		if err == nil {
			s.state.ConsecutiveErrors = 0
			if done {
				return finish(s.controller.StopReason(), nil)
			}
			if fatal := s.checkStuck(ctx); fatal != nil {
				return finish(fatal.Error(), fatal)
			}
			continue
		}

		if ctx.Err() != nil {
			return finish(StopInterrupted, nil)
		}

		if surface.IsTransient(err) {
			slog.Warn("Session reloaded or detached, recovering", "error", err)
			recovered, done, rerr := s.recover(ctx)
			if rerr == nil && recovered {
				started = true
				if done {
					return finish(s.controller.StopReason(), nil)
				}
				continue
			}
			if rerr != nil {
				err = fmt.Errorf("%w: %w", common.ErrRecoveryFailed, rerr)
			}
		}

		s.state.ConsecutiveErrors++
		common.LogError(ctx, err, "Processing error", common.Fields{
			"consecutive_errors": s.state.ConsecutiveErrors,
			"max":                s.opts.errorCap(),
		})
		s.screenshot(ctx)

		if s.state.ConsecutiveErrors >= s.opts.errorCap() {
			fatal := fmt.Errorf("%w (%d): %w", common.ErrErrorLimit, s.state.ConsecutiveErrors, err)
			return finish(common.ErrErrorLimit.Error(), fatal)
		}
		if err := common.Sleep(ctx, s.opts.Timing.ErrorBackoff); err != nil {
			return finish(StopInterrupted, nil)
		}
	}
}

// checkStuck enforces the consecutive-stuck breaker. The first time it trips
// the pending list is reloaded; tripping again before some other item is
// processed ends the run.
func (s *Supervisor) checkStuck(ctx context.Context) error {
	if s.state.ConsecutiveStuck < s.opts.stuckCap() {
		return nil
	}
	if s.state.stuckEscalated {
		return fmt.Errorf("%w (%d in a row)", common.ErrStuckLimit, s.state.ConsecutiveStuck)
	}

	slog.Warn("Stuck repeatedly, reloading the pending list", "consecutive_stuck", s.state.ConsecutiveStuck)
	s.state.stuckEscalated = true
	s.state.escalatedOn = s.state.LastSeen.Description
	s.state.ConsecutiveStuck = 0
	if _, err := s.controller.openNextBatch(ctx); err != nil {
		return fmt.Errorf("%w: reloading list: %w", common.ErrStuckLimit, err)
	}
	return nil
}

// recover replaces the session handle and re-enters the controller at the
// right point for whatever the recovered session shows.
func (s *Supervisor) recover(ctx context.Context) (recovered, done bool, err error) {
	if err := common.Sleep(ctx, s.opts.Timing.RecoverySettle); err != nil {
		return false, false, err
	}

	current, err := s.handle.Reacquire(ctx)
	if err != nil {
		return false, false, err
	}

	view, err := current.InspectView(ctx)
	if err != nil {
		return false, false, err
	}
	slog.Info("Recovered session", "view", view)

	switch view {
	case surface.ViewDetail:
		return true, false, nil
	case surface.ViewList:
		s.state.ResetBatch()
		found, err := current.OpenFirstPendingItem(ctx)
		if err != nil {
			return false, false, err
		}
		if found {
			return true, false, nil
		}
	}

	done, err = s.controller.openNextBatch(ctx)
	if err != nil {
		return false, false, err
	}
	return true, done, nil
}

func (s *Supervisor) screenshot(ctx context.Context) {
	shooter, ok := s.handle.Current().(surface.Screenshotter)
	if !ok || s.opts.ScreenshotDir == "" {
		return
	}
	path := filepath.Join(s.opts.ScreenshotDir, fmt.Sprintf("error-%d.png", s.now().UnixMilli()))
	if err := shooter.Screenshot(ctx, path); err != nil {
		slog.Warn("Failed to capture error screenshot", "error", err)
		return
	}
	slog.Info("Saved error screenshot", "path", path)
}

// IsBreakerTripped reports whether err ended a run through a circuit breaker.
func IsBreakerTripped(err error) bool {
	return errors.Is(err, common.ErrErrorLimit) || errors.Is(err, common.ErrStuckLimit)
}

// New wires a processor, controller and supervisor that share one RunState.
func New(handle *surface.Handle, engine *classification.Engine, sink audit.Sink, opts Options, observer Observer, pauser Pauser) *Supervisor {
	state := &RunState{}
	processor := NewProcessor(handle, engine, sink, opts)
	controller := NewController(handle, processor, state, opts, observer, pauser)
	return NewSupervisor(handle, controller, state, opts)
}
