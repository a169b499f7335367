package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/catalog-steward/internal/audit"
	"github.com/Veraticus/catalog-steward/internal/classification"
	"github.com/Veraticus/catalog-steward/internal/common"
	"github.com/Veraticus/catalog-steward/internal/model"
	"github.com/Veraticus/catalog-steward/internal/surface"
)

// stage is one step of the per-item state machine.
type stage int

const (
	stageReading stage = iota
	stageDuplicateCheck
	stageClassifying
	stageFieldCorrection
	stageCategoryAssignment
	stageLedgerAssignment
	stageProductAssignment
	stageInventoryUnitCorrection
	stageApproving
	stageVerifying
	stageTerminal
)

var stageNames = [...]string{
	"reading", "duplicate_check", "classifying", "field_correction", "category_assignment",
	"ledger_assignment", "product_assignment", "inventory_unit_correction", "approving",
	"verifying", "terminal",
}

func (s stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// itemRun carries everything known about the item being processed.
type itemRun struct {
	snap     model.ItemSnapshot
	result   classification.Result
	outcome  model.Outcome
	notes    []string
	lastSeen model.ItemKey
	classed  bool
}

func (r *itemRun) note(format string, args ...any) {
	r.notes = append(r.notes, fmt.Sprintf(format, args...))
}

// Processor runs the state machine for the item currently on screen.
type Processor struct {
	handle *surface.Handle
	engine *classification.Engine
	sink   audit.Sink
	now    func() time.Time
	opts   Options
}

// NewProcessor creates a processor. The handle is consulted on every call so
// a recovered session is picked up automatically.
func NewProcessor(handle *surface.Handle, engine *classification.Engine, sink audit.Sink, opts Options) *Processor {
	return &Processor{
		handle: handle,
		engine: engine,
		sink:   sink,
		opts:   opts,
		now:    time.Now,
	}
}

// Process handles the displayed item and returns its terminal outcome. Every
// item outcome except BatchComplete has appended exactly one terminal record
// by the time Process returns without error.
func (p *Processor) Process(ctx context.Context, state *RunState) (model.Outcome, error) {
	run := &itemRun{lastSeen: state.LastSeen}

	next := stageReading
	for next != stageTerminal {
		if err := ctx.Err(); err != nil {
			return model.Outcome{}, err
		}
		current := next

		var err error
		switch current {
		case stageReading:
			next, err = p.reading(ctx, run)
		case stageDuplicateCheck:
			next, err = p.duplicateCheck(ctx, run)
		case stageClassifying:
			next, err = p.classifying(ctx, run)
		case stageFieldCorrection:
			next, err = p.fieldCorrection(ctx, run)
		case stageCategoryAssignment:
			next, err = p.categoryAssignment(ctx, run)
		case stageLedgerAssignment:
			next, err = p.ledgerAssignment(ctx, run)
		case stageProductAssignment:
			next, err = p.productAssignment(ctx, run)
		case stageInventoryUnitCorrection:
			next, err = p.inventoryUnitCorrection(ctx, run)
		case stageApproving:
			next, err = p.approving(ctx, run)
		case stageVerifying:
			next, err = p.verifying(ctx, run)
		default:
			err = fmt.Errorf("unknown stage %s", current)
		}
		if err != nil {
			return model.Outcome{}, fmt.Errorf("%s %q: %w", current, common.Truncate(run.snap.Description, 50), err)
		}
		slog.Debug("Stage complete", "stage", current, "next", next, "item", run.snap.Description)
	}
	return run.outcome, nil
}

func (p *Processor) surface() surface.Surface {
	return p.handle.Current()
}

func (p *Processor) reading(ctx context.Context, run *itemRun) (stage, error) {
	snap, err := p.surface().ReadItem(ctx)
	if surface.IsNotFound(err) {
		return p.noItemView(ctx, run, err)
	}
	if err != nil {
		return stageTerminal, err
	}
	run.snap = snap

	if !run.lastSeen.IsZero() && snap.Key() == run.lastSeen {
		slog.Info("Same item read twice, forcing navigation",
			"item", snap.Description, "position", snap.Position.String())
		return stageDuplicateCheck, nil
	}
	return p.route(ctx, run)
}

// noItemView handles a read that found no item: either the batch finished
// or the session is somewhere unexpected.
func (p *Processor) noItemView(ctx context.Context, run *itemRun, readErr error) (stage, error) {
	complete, err := p.surface().DetectBatchComplete(ctx)
	if err != nil {
		return stageTerminal, err
	}
	if !complete {
		return stageTerminal, readErr
	}
	run.outcome = model.Outcome{Kind: model.OutcomeBatchComplete, Description: run.snap.Description, Position: run.snap.Position}
	return stageTerminal, nil
}

// route sends a freshly read item to its first processing stage.
func (p *Processor) route(ctx context.Context, run *itemRun) (stage, error) {
	if run.snap.Approved {
		return p.finishAndAdvance(ctx, run, model.OutcomeSkipped, model.StatusSkipped, "Already approved")
	}
	return stageClassifying, nil
}

func (p *Processor) duplicateCheck(ctx context.Context, run *itemRun) (stage, error) {
	if _, err := p.surface().ForceAdvance(ctx); err != nil {
		return stageTerminal, err
	}

	snap, err := p.surface().ReadItem(ctx)
	if surface.IsNotFound(err) {
		return p.noItemView(ctx, run, err)
	}
	if err != nil {
		return stageTerminal, err
	}
	if snap.Key() != run.snap.Key() {
		run.snap = snap
		return p.route(ctx, run)
	}

	complete, err := p.surface().DetectBatchComplete(ctx)
	if err != nil {
		return stageTerminal, err
	}
	if complete {
		run.outcome = model.Outcome{Kind: model.OutcomeBatchComplete, Description: snap.Description, Position: snap.Position}
		return stageTerminal, nil
	}

	slog.Warn("Item did not advance after forced navigation",
		"item", snap.Description, "position", snap.Position.String())
	return p.finish(ctx, run, model.OutcomeStuck, model.StatusStuck, "did not advance")
}

func (p *Processor) classifying(ctx context.Context, run *itemRun) (stage, error) {
	run.result = p.engine.Classify(run.snap.Description, run.snap.Vendor)
	run.classed = true
	if code, fix, ok := p.engine.Fix(run.result.Category, run.result.TargetLedgerCode()); ok {
		run.result.LedgerCode = &code
		run.note("fix: %s %s -> %s", fix.Category, fix.FromLedgerCode, fix.ToLedgerCode)
	}

	slog.Info("Classified item",
		"item", run.snap.Description,
		"vendor", run.snap.Vendor,
		"category", run.result.Category,
		"ledger_code", run.result.TargetLedgerCode(),
		"product", run.result.ProductName,
		"unit_class", run.result.UnitClass,
		"reason", run.result.Reason.String())

	if !p.opts.DryRun {
		return stageFieldCorrection, nil
	}

	return p.finishAndAdvance(ctx, run, model.OutcomeDryRunPreview, model.StatusDryRun,
		fmt.Sprintf("would set category %q and ledger code %q", run.result.Category, run.result.TargetLedgerCode()))
}

func (p *Processor) fieldCorrection(ctx context.Context, run *itemRun) (stage, error) {
	s := p.surface()

	if run.snap.SizeMissing() {
		ok, err := s.SetField(ctx, surface.FieldSize, p.opts.Defaults.Size)
		if err := p.tolerate(err, "size"); err != nil {
			return stageTerminal, err
		}
		if !ok {
			run.note("size not set")
		} else if err := p.settle(ctx); err != nil {
			return stageTerminal, err
		}
	}

	if run.snap.Unit.Kind != model.UnitKindNone && run.snap.Unit.IsUnset() {
		ok, err := s.SetField(ctx, surface.FieldUnit, p.opts.Defaults.Unit)
		if err := p.tolerate(err, "unit"); err != nil {
			return stageTerminal, err
		}
		if !ok {
			slog.Warn("Could not set unit", "item", run.snap.Description)
		} else if err := p.settle(ctx); err != nil {
			return stageTerminal, err
		}
	}
	return stageCategoryAssignment, nil
}

func (p *Processor) categoryAssignment(ctx context.Context, run *itemRun) (stage, error) {
	if strings.EqualFold(strings.TrimSpace(run.snap.Category), strings.TrimSpace(run.result.Category)) {
		return stageLedgerAssignment, nil
	}

	ok, err := p.surface().SetCategory(ctx, run.result.Category)
	if err != nil {
		return stageTerminal, err
	}
	if !ok {
		run.note("category %q not set", run.result.Category)
		return stageLedgerAssignment, nil
	}
	return stageLedgerAssignment, p.settle(ctx)
}

func (p *Processor) ledgerAssignment(ctx context.Context, run *itemRun) (stage, error) {
	code := run.result.TargetLedgerCode()
	ok, err := p.surface().SetLedgerCode(ctx, code)
	if err != nil {
		return stageTerminal, err
	}
	if !ok {
		run.note("ledger code %q not set", code)
		return stageProductAssignment, nil
	}
	return stageProductAssignment, p.settle(ctx)
}

func (p *Processor) productAssignment(ctx context.Context, run *itemRun) (stage, error) {
	if run.snap.HasProduct {
		return stageInventoryUnitCorrection, nil
	}

	ok, err := p.surface().AssignOrCreateProduct(ctx, run.result.ProductName, run.result.UnitClass)
	if err := p.tolerate(err, "product"); err != nil {
		return stageTerminal, err
	}
	if ok && err == nil {
		return stageInventoryUnitCorrection, p.settle(ctx)
	}

	// Approval is still attempted; the soft flag lets a person fix the
	// product later even if the item goes through.
	slog.Warn("Could not create or assign product", "item", run.snap.Description, "product", run.result.ProductName)
	if err := p.sink.Append(ctx, p.record(run, model.StatusFlagged, "Could not create or assign product")); err != nil {
		return stageTerminal, fmt.Errorf("failed to record product flag: %w", err)
	}
	return stageInventoryUnitCorrection, nil
}

func (p *Processor) inventoryUnitCorrection(ctx context.Context, run *itemRun) (stage, error) {
	inv := run.snap.InventoryUnit
	if inv.Kind == model.UnitKindNone || !inv.IsUnset() {
		return stageApproving, nil
	}

	ok, err := p.surface().SetField(ctx, surface.FieldInventoryUnit, p.opts.Defaults.Unit)
	if err := p.tolerate(err, "inventory unit"); err != nil {
		return stageTerminal, err
	}
	if !ok {
		slog.Warn("Could not set inventory unit", "item", run.snap.Description)
		return stageApproving, nil
	}
	return stageApproving, p.settle(ctx)
}

func (p *Processor) approving(ctx context.Context, run *itemRun) (stage, error) {
	s := p.surface()
	before := run.snap

	clicked, err := s.InvokeApprove(ctx)
	if err != nil {
		return stageTerminal, err
	}
	if !clicked {
		return p.flag(ctx, run, "Approve button not available")
	}

	if err := common.Sleep(ctx, p.opts.Timing.ApprovalSettle); err != nil {
		return stageTerminal, err
	}

	// The product reuses one banner region for consecutive items, so a banner
	// only means "blocked" while the description is still the one we approved.
	after, err := p.surface().ReadItem(ctx)
	if err != nil {
		return p.approvedDespite(ctx, run, err)
	}
	if after.Description != before.Description {
		return p.finish(ctx, run, model.OutcomeApproved, model.StatusApproved, "")
	}
	if banner := strings.TrimSpace(after.Banner); banner != "" {
		return p.flag(ctx, run, "Validation: "+common.Truncate(banner, 200))
	}

	if _, err := p.surface().ConfirmDialog(ctx); err != nil {
		if err := p.tolerate(err, "confirmation dialog"); err != nil {
			return stageTerminal, err
		}
	}
	return stageVerifying, nil
}

func (p *Processor) verifying(ctx context.Context, run *itemRun) (stage, error) {
	before := run.snap

	changed, err := p.surface().WaitForChange(ctx, before.Key(), p.opts.Timing.NavigationWait)
	if err != nil {
		return p.approvedDespite(ctx, run, err)
	}
	if changed {
		return p.finish(ctx, run, model.OutcomeApproved, model.StatusApproved, "")
	}

	snap, err := p.surface().ReadItem(ctx)
	if err != nil {
		return p.approvedDespite(ctx, run, err)
	}
	if snap.Description != before.Description {
		return p.finish(ctx, run, model.OutcomeApproved, model.StatusApproved, "")
	}
	if !snap.Pending {
		return p.finishAndAdvance(ctx, run, model.OutcomeApproved, model.StatusApproved, "advanced manually")
	}
	return p.flag(ctx, run, "Item still pending after approval")
}

// approvedDespite decides what a failed read right after approval means. A
// reload or a vanished item view is the product moving on; anything else is
// a real error.
func (p *Processor) approvedDespite(ctx context.Context, run *itemRun, err error) (stage, error) {
	switch {
	case surface.IsTransient(err):
		slog.Info("Session reloaded after approval", "item", run.snap.Description)
		return p.finish(ctx, run, model.OutcomeApproved, model.StatusApproved, "page reloaded after approval")
	case surface.IsNotFound(err):
		complete, cerr := p.surface().DetectBatchComplete(ctx)
		if cerr != nil {
			return stageTerminal, cerr
		}
		if complete {
			return p.finish(ctx, run, model.OutcomeApproved, model.StatusApproved, "")
		}
	}
	return stageTerminal, err
}

// flag defers the item to a person: dismiss error dialogs, save what was
// filled in, then move on.
func (p *Processor) flag(ctx context.Context, run *itemRun, reason string) (stage, error) {
	s := p.surface()
	slog.Warn("Flagging item", "item", run.snap.Description, "reason", reason)

	if err := p.tolerate(s.DismissDialogs(ctx), "dismiss dialogs"); err != nil {
		return stageTerminal, err
	}
	saved, err := s.InvokeSave(ctx)
	if err := p.tolerate(err, "save"); err != nil {
		return stageTerminal, err
	}
	if !saved {
		run.note("save failed")
	}
	if err := p.settle(ctx); err != nil {
		return stageTerminal, err
	}
	return p.finishAndAdvance(ctx, run, model.OutcomeFlagged, model.StatusFlagged, reason)
}

// finishAndAdvance records the outcome before navigating away so a reload
// during the click cannot lose it. Once the record is written a failed
// advance is not the item's failure: a reload means the product moved on,
// and a view that did not move is caught by the duplicate check on the next
// read.
func (p *Processor) finishAndAdvance(ctx context.Context, run *itemRun, kind model.OutcomeKind, status model.RecordStatus, reason string) (stage, error) {
	next, err := p.finish(ctx, run, kind, status, reason)
	if err != nil {
		return next, err
	}
	if _, err := p.surface().ForceAdvance(ctx); err != nil {
		if surface.IsTransient(err) {
			slog.Info("Session reloaded while advancing", "item", run.snap.Description)
		} else {
			slog.Warn("Could not advance past item", "item", run.snap.Description, "error", err)
		}
	}
	return next, nil
}

// finish writes the terminal record and sets the outcome.
func (p *Processor) finish(ctx context.Context, run *itemRun, kind model.OutcomeKind, status model.RecordStatus, reason string) (stage, error) {
	run.outcome = model.Outcome{
		Kind:        kind,
		Description: run.snap.Description,
		Vendor:      run.snap.Vendor,
		Position:    run.snap.Position,
		Notes:       p.notes(run, reason),
	}
	if err := p.sink.Append(ctx, p.record(run, status, reason)); err != nil {
		return stageTerminal, fmt.Errorf("failed to record %s: %w", status, err)
	}
	return stageTerminal, nil
}

func (p *Processor) record(run *itemRun, status model.RecordStatus, reason string) model.AuditRecord {
	rec := model.AuditRecord{
		Timestamp:  p.now(),
		RunID:      p.opts.RunID,
		Item:       run.snap.Description,
		Vendor:     run.snap.Vendor,
		Category:   run.snap.Category,
		LedgerCode: run.snap.LedgerCode,
		Status:     status,
		Notes:      p.notes(run, reason),
	}
	if run.classed {
		rec.Product = run.result.ProductName
		rec.Category = run.result.Category
		rec.LedgerCode = run.result.TargetLedgerCode()
		rec.UnitClass = run.result.UnitClass
	}
	return rec
}

func (p *Processor) notes(run *itemRun, reason string) string {
	var parts []string
	if reason != "" {
		parts = append(parts, reason)
	}
	if run.classed {
		if n := run.result.Notes(); n != "" {
			parts = append(parts, n)
		}
	}
	parts = append(parts, run.notes...)
	return strings.Join(parts, "; ")
}

// tolerate swallows failures of optional steps. Session reloads and
// cancellation still propagate so the supervisor can act on them.
func (p *Processor) tolerate(err error, step string) error {
	if err == nil {
		return nil
	}
	if surface.IsTransient(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	slog.Warn("Optional step failed", "step", step, "error", err)
	return nil
}

func (p *Processor) settle(ctx context.Context) error {
	return common.Sleep(ctx, p.opts.Timing.AfterAction)
}
