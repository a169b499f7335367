package review

import (
	"context"
	"log/slog"

	"github.com/Veraticus/catalog-steward/internal/common"
	"github.com/Veraticus/catalog-steward/internal/model"
	"github.com/Veraticus/catalog-steward/internal/surface"
)

// Stop reasons reported when a run ends without a fatal error.
const (
	StopNoPending   = "no items left to review"
	StopLimit       = "item limit reached"
	StopInterrupted = "interrupted"
	StopDryRunEnd   = "dry run reached the end of the batch"
)

// Observer is told about every outcome. The console reporter implements it.
type Observer interface {
	ItemProcessed(outcome model.Outcome, counters model.Counters)
}

// Pauser blocks between items when the operator asked to step through a run.
type Pauser interface {
	Pause(ctx context.Context, outcome model.Outcome) error
}

// Controller feeds the processor a continuous stream of pending items across
// batch boundaries.
type Controller struct {
	handle     *surface.Handle
	processor  *Processor
	state      *RunState
	observer   Observer
	pauser     Pauser
	stopReason string
	opts       Options
}

// NewController creates a controller. Observer and pauser may be nil.
func NewController(handle *surface.Handle, processor *Processor, state *RunState, opts Options, observer Observer, pauser Pauser) *Controller {
	return &Controller{
		handle:    handle,
		processor: processor,
		state:     state,
		opts:      opts,
		observer:  observer,
		pauser:    pauser,
	}
}

// StopReason explains why the last Step reported done.
func (c *Controller) StopReason() string {
	return c.stopReason
}

// Start makes sure an item is open. It leaves an open item alone and
// otherwise filters the list and opens the first pending item.
func (c *Controller) Start(ctx context.Context) (bool, error) {
	view, err := c.handle.Current().InspectView(ctx)
	if err != nil {
		return false, err
	}
	if view == surface.ViewDetail {
		return false, nil
	}
	return c.openNextBatch(ctx)
}

// Step processes one item and handles what follows it. It reports done when
// the run should end without error.
func (c *Controller) Step(ctx context.Context) (bool, error) {
	outcome, err := c.processor.Process(ctx, c.state)
	if err != nil {
		return false, err
	}
	c.state.Record(outcome)
	if c.observer != nil {
		c.observer.ItemProcessed(outcome, c.state.Counters)
	}

	switch outcome.Kind {
	case model.OutcomeBatchComplete:
		slog.Info("Batch complete, loading next batch")
		return c.openNextBatch(ctx)
	case model.OutcomeStuck:
		return false, nil
	}

	if c.opts.PauseEach && c.pauser != nil {
		if err := c.pauser.Pause(ctx, outcome); err != nil {
			return false, err
		}
	}
	if err := common.Sleep(ctx, c.opts.Timing.BetweenItems); err != nil {
		return false, err
	}

	if outcome.Position.IsLast() {
		if outcome.Kind == model.OutcomeDryRunPreview {
			c.stopReason = StopDryRunEnd
			return true, nil
		}
		if !outcome.AdvancesOnItsOwn() {
			slog.Info("Last item of batch did not advance on its own, reloading list",
				"outcome", outcome.Kind, "position", outcome.Position.String())
			return c.openNextBatch(ctx)
		}
	}

	complete, err := c.handle.Current().DetectBatchComplete(ctx)
	if err != nil {
		return false, err
	}
	if complete {
		slog.Info("Batch complete, loading next batch")
		return c.openNextBatch(ctx)
	}
	return false, nil
}

// openNextBatch dismisses the completion indicator, reapplies the pending
// filter and opens the first item. It reports done when nothing is left.
func (c *Controller) openNextBatch(ctx context.Context) (bool, error) {
	s := c.handle.Current()

	if err := s.DismissBatchComplete(ctx); err != nil {
		return false, err
	}
	if err := s.ApplyPendingFilter(ctx); err != nil {
		return false, err
	}
	c.state.ResetBatch()

	found, err := s.OpenFirstPendingItem(ctx)
	if err != nil {
		return false, err
	}
	if !found {
		c.stopReason = StopNoPending
		return true, nil
	}
	return false, nil
}

