package model

// OutcomeKind tags the result of one item attempt.
type OutcomeKind string

// Outcome kinds.
const (
	OutcomeApproved      OutcomeKind = "approved"
	OutcomeFlagged       OutcomeKind = "flagged"
	OutcomeSkipped       OutcomeKind = "skipped"
	OutcomeStuck         OutcomeKind = "stuck"
	OutcomeBatchComplete OutcomeKind = "batch_complete"
	OutcomeDryRunPreview OutcomeKind = "dry_run"
)

// Outcome is the terminal result of processing the displayed item.
type Outcome struct {
	Kind        OutcomeKind
	Description string
	Vendor      string
	Notes       string
	Position    Position
}

// Key returns the duplicate-detection pair for the item this outcome describes.
func (o Outcome) Key() ItemKey {
	return ItemKey{Description: o.Description, Position: o.Position.Current}
}

// CountsAsProcessed reports whether the outcome belongs to the processed total.
func (o Outcome) CountsAsProcessed() bool {
	switch o.Kind {
	case OutcomeApproved, OutcomeFlagged, OutcomeSkipped, OutcomeDryRunPreview:
		return true
	default:
		return false
	}
}

// AdvancesOnItsOwn reports whether the product moves to the next item by itself
// after this outcome. Skipped and flagged items need the controller's help at a
// batch boundary.
func (o Outcome) AdvancesOnItsOwn() bool {
	return o.Kind == OutcomeApproved
}
