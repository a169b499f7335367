package reapply

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/catalog-steward/internal/audit"
	"github.com/Veraticus/catalog-steward/internal/common"
	"github.com/Veraticus/catalog-steward/internal/config"
	"github.com/Veraticus/catalog-steward/internal/model"
	"github.com/Veraticus/catalog-steward/internal/surface"
)

const (
	searchPrefixLen = 20
	verifyPrefixLen = 10
	notesLimit      = 100
)

// Stop reasons reported when a run ends without a fatal error.
const (
	StopDone        = "all corrections attempted"
	StopLimit       = "item limit reached"
	StopInterrupted = "interrupted"
	StopAuditFailed = "audit write failed"
)

// Counters are the totals of one reapply run.
type Counters struct {
	Processed int
	Updated   int
	Unchanged int
	NotFound  int
	Errors    int
}

// RunCounters maps the totals onto the stored run columns: updated items
// count as approved, unchanged ones as skipped and failures as flagged.
func (c Counters) RunCounters() model.Counters {
	return model.Counters{
		Processed: c.Processed,
		Approved:  c.Updated,
		Skipped:   c.Unchanged,
		Flagged:   c.NotFound + c.Errors,
	}
}

// Summary describes a finished reapply run.
type Summary struct {
	StartedAt  time.Time
	FinishedAt time.Time
	StopReason string
	Planned    int
	Counters   Counters
}

// Duration returns how long the run took.
func (s Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Observer is told about every attempted correction.
type Observer interface {
	CorrectionApplied(c Correction, status model.RecordStatus, counters Counters)
}

// Prompter blocks until the operator is ready for the next correction.
type Prompter interface {
	WaitForEnter(ctx context.Context, prompt string) error
}

// Options configures one reapply run.
type Options struct {
	RunID     string
	Timing    config.TimingConfig
	Limits    config.LimitsConfig
	Limit     int // corrections attempted before the run stops; zero attempts all
	PauseEach bool
}

// Runner drives the surface through a list of corrections. It only touches
// the category and ledger code of each item, then saves.
type Runner struct {
	handle   *surface.Handle
	sink     audit.Sink
	observer Observer
	prompter Prompter
	now      func() time.Time
	opts     Options
}

// NewRunner creates a runner. Observer and prompter may be nil.
func NewRunner(handle *surface.Handle, sink audit.Sink, opts Options, observer Observer, prompter Prompter) *Runner {
	return &Runner{
		handle:   handle,
		sink:     sink,
		observer: observer,
		prompter: prompter,
		opts:     opts,
		now:      time.Now,
	}
}

// attempt is the result of one correction.
type attempt struct {
	status model.RecordStatus
	notes  string
}

// Run applies corrections in order. A failed correction is recorded and the
// run moves on; only the consecutive error cap ends it early.
func (r *Runner) Run(ctx context.Context, corrections []Correction) (Summary, error) {
	summary := Summary{StartedAt: r.now(), Planned: len(corrections)}
	var counters Counters
	finish := func(reason string, err error) (Summary, error) {
		summary.FinishedAt = r.now()
		summary.StopReason = reason
		summary.Counters = counters
		slog.Info("Reapply finished",
			"reason", reason,
			"processed", counters.Processed,
			"updated", counters.Updated,
			"not_found", counters.NotFound,
			"errors", counters.Errors)
		return summary, err
	}

	total := len(corrections)
	if r.opts.Limit > 0 && r.opts.Limit < total {
		total = r.opts.Limit
	}

	consecutiveErrors := 0
	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			return finish(StopInterrupted, nil)
		}
		c := corrections[i]

		slog.Info("Correcting item",
			"n", i+1, "of", total,
			"item", c.Item.Description,
			"category", c.Item.Category+" -> "+c.TargetCategory,
			"ledger_code", c.Item.LedgerCode+" -> "+c.TargetLedgerCode)

		result, err := r.apply(ctx, c)
		if err != nil {
			if ctx.Err() != nil {
				return finish(StopInterrupted, nil)
			}
			common.LogError(ctx, err, "Correction failed", common.Fields{"item": c.Item.Description})
			result = attempt{status: model.StatusError, notes: common.Truncate(err.Error(), notesLimit)}
			consecutiveErrors++
			r.recover(ctx, err)
		} else {
			consecutiveErrors = 0
		}

		counters.Processed++
		switch result.status {
		case model.StatusUpdated:
			counters.Updated++
		case model.StatusSkipped:
			counters.Unchanged++
		case model.StatusNotFound:
			counters.NotFound++
		default:
			counters.Errors++
		}

		if err := r.sink.Append(ctx, r.record(c, result)); err != nil {
			return finish(StopAuditFailed, fmt.Errorf("failed to record %s: %w", result.status, err))
		}
		if r.observer != nil {
			r.observer.CorrectionApplied(c, result.status, counters)
		}

		if limit := r.errorCap(); consecutiveErrors >= limit {
			return finish(common.ErrErrorLimit.Error(), fmt.Errorf("%w (%d)", common.ErrErrorLimit, consecutiveErrors))
		}

		if r.opts.PauseEach && r.prompter != nil {
			if err := r.prompter.WaitForEnter(ctx, "Press ENTER for next item (Ctrl+C to stop)... "); err != nil {
				return finish(StopInterrupted, nil)
			}
		}
		if err := common.Sleep(ctx, r.opts.Timing.BetweenItems); err != nil {
			return finish(StopInterrupted, nil)
		}
	}

	if total < len(corrections) {
		return finish(StopLimit, nil)
	}
	return finish(StopDone, nil)
}

// apply opens the item through the library search and corrects it. A
// returned error means the session misbehaved; refusals of individual
// fields are reported through the attempt.
func (r *Runner) apply(ctx context.Context, c Correction) (attempt, error) {
	s := r.handle.Current()

	if err := s.OpenLibrary(ctx); err != nil {
		return attempt{}, err
	}

	found, err := s.SearchItem(ctx, searchTerm(c.Item.Description))
	if err != nil {
		return attempt{}, err
	}
	if !found {
		slog.Warn("Item not found in library", "item", c.Item.Description)
		return attempt{status: model.StatusNotFound, notes: "Item not found in library search"}, nil
	}

	snap, err := s.ReadItem(ctx)
	if err != nil {
		return attempt{}, err
	}
	if !sameItem(snap.Description, c.Item.Description) {
		slog.Warn("Wrong item loaded", "item", c.Item.Description, "loaded", snap.Description)
		return r.close(ctx, attempt{
			status: model.StatusNotFound,
			notes:  common.Truncate(fmt.Sprintf("Wrong item loaded: %q", snap.Description), notesLimit),
		})
	}

	changed := false
	if !strings.EqualFold(strings.TrimSpace(snap.Category), strings.TrimSpace(c.TargetCategory)) {
		ok, err := s.SetCategory(ctx, c.TargetCategory)
		if err != nil {
			return attempt{}, err
		}
		if !ok {
			return r.close(ctx, attempt{status: model.StatusCatNotSet, notes: "Category dropdown option not found"})
		}
		changed = true
		if err := common.Sleep(ctx, r.opts.Timing.AfterAction); err != nil {
			return attempt{}, err
		}
	}

	if c.TargetLedgerCode != "" && !strings.EqualFold(strings.TrimSpace(snap.LedgerCode), strings.TrimSpace(c.TargetLedgerCode)) {
		ok, err := s.SetLedgerCode(ctx, c.TargetLedgerCode)
		if err != nil {
			return attempt{}, err
		}
		if !ok {
			return r.close(ctx, attempt{status: model.StatusError, notes: fmt.Sprintf("Ledger code %q not available", c.TargetLedgerCode)})
		}
		changed = true
		if err := common.Sleep(ctx, r.opts.Timing.AfterAction); err != nil {
			return attempt{}, err
		}
	}

	if !changed {
		return r.close(ctx, attempt{status: model.StatusSkipped, notes: "Already up to date"})
	}

	saved, err := s.InvokeSave(ctx)
	if err != nil {
		return attempt{}, err
	}
	if !saved {
		return r.close(ctx, attempt{status: model.StatusError, notes: "Save button not found"})
	}
	if err := common.Sleep(ctx, r.opts.Timing.ApprovalSettle); err != nil {
		return attempt{}, err
	}

	slog.Info("Updated item", "item", c.Item.Description, "category", c.TargetCategory, "ledger_code", c.TargetLedgerCode)
	return r.close(ctx, attempt{status: model.StatusUpdated, notes: updateNotes(c)})
}

// close returns to the library list, keeping result whatever happens.
func (r *Runner) close(ctx context.Context, result attempt) (attempt, error) {
	if err := r.handle.Current().CloseItem(ctx); err != nil {
		if surface.IsTransient(err) {
			return attempt{}, err
		}
		slog.Warn("Failed to close item", "error", err)
	}
	return result, nil
}

// recover gets the session back to the library after a failure. A reloaded
// or detached session is reacquired first, with a few attempts while the
// page finishes loading.
func (r *Runner) recover(ctx context.Context, cause error) {
	if err := common.Sleep(ctx, r.opts.Timing.RecoverySettle); err != nil {
		return
	}
	if surface.IsTransient(cause) {
		err := common.WithRetry(ctx, func() error {
			_, err := r.handle.Reacquire(ctx)
			return err
		}, common.RetryOptions{MaxAttempts: 3, InitialDelay: r.opts.Timing.RecoverySettle})
		if err != nil {
			slog.Warn("Failed to reacquire session", "error", err)
			return
		}
	}
	if err := r.handle.Current().OpenLibrary(ctx); err != nil {
		slog.Warn("Failed to reopen item library", "error", err)
	}
}

func (r *Runner) record(c Correction, result attempt) model.AuditRecord {
	return model.AuditRecord{
		Timestamp:  r.now(),
		RunID:      r.opts.RunID,
		Item:       c.Item.Description,
		Vendor:     c.Item.Vendor,
		Category:   c.TargetCategory,
		LedgerCode: c.TargetLedgerCode,
		Status:     result.status,
		Notes:      result.notes,
	}
}

func (r *Runner) errorCap() int {
	if r.opts.Limits.MaxConsecutiveErrors > 0 {
		return r.opts.Limits.MaxConsecutiveErrors
	}
	return 5
}

func updateNotes(c Correction) string {
	var parts []string
	if c.CategoryChanged() {
		parts = append(parts, fmt.Sprintf("%s -> %s", c.Item.Category, c.TargetCategory))
	}
	if c.LedgerChanged() {
		parts = append(parts, fmt.Sprintf("ledger %s -> %s", c.Item.LedgerCode, c.TargetLedgerCode))
	}
	if reason := c.Reason(); reason != "" {
		parts = append(parts, reason)
	}
	return strings.Join(parts, "; ")
}

// searchTerm shortens a description so truncated list cells still match.
func searchTerm(description string) string {
	return strings.TrimSpace(prefix(description, searchPrefixLen))
}

// sameItem guards against the search opening a neighbouring item. An empty
// loaded description cannot be checked and is accepted.
func sameItem(loaded, want string) bool {
	if strings.TrimSpace(loaded) == "" {
		return true
	}
	return strings.Contains(strings.ToLower(loaded), strings.ToLower(prefix(want, verifyPrefixLen)))
}

func prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
