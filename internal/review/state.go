package review

import "github.com/Veraticus/catalog-steward/internal/model"

// RunState is the mutable bookkeeping of one run. It lives only as long as
// the run; the audit trail is the durable record.
type RunState struct {
	LastSeen          model.ItemKey
	Counters          model.Counters
	ConsecutiveErrors int
	ConsecutiveStuck  int
	escalatedOn       string
	stuckEscalated    bool
}

// Record folds an outcome into the counters and remembers the item for
// duplicate detection.
func (s *RunState) Record(o model.Outcome) {
	switch o.Kind {
	case model.OutcomeApproved:
		s.Counters.Approved++
	case model.OutcomeFlagged:
		s.Counters.Flagged++
	case model.OutcomeSkipped:
		s.Counters.Skipped++
	case model.OutcomeDryRunPreview:
		s.Counters.DryRun++
	case model.OutcomeStuck:
		s.Counters.Stuck++
		s.ConsecutiveStuck++
	case model.OutcomeBatchComplete:
		s.ConsecutiveStuck = 0
		return
	}

	if o.CountsAsProcessed() {
		s.Counters.Processed++
		s.ConsecutiveStuck = 0
		s.ConsecutiveErrors = 0
		// Reprocessing the item that caused the escalation is not progress.
		if o.Description != s.escalatedOn {
			s.stuckEscalated = false
			s.escalatedOn = ""
		}
	}
	s.LastSeen = o.Key()
}

// ResetBatch forgets the last-seen item. Positions restart with every batch,
// so a stale pair would cause false duplicates.
func (s *RunState) ResetBatch() {
	s.LastSeen = model.ItemKey{}
}
