package model

import "time"

// RecordStatus is the status column of an audit record.
type RecordStatus string

// Audit record statuses.
const (
	StatusApproved  RecordStatus = "APPROVED"
	StatusFlagged   RecordStatus = "FLAGGED"
	StatusSkipped   RecordStatus = "SKIPPED"
	StatusDryRun    RecordStatus = "DRY_RUN"
	StatusStuck     RecordStatus = "STUCK"
	StatusUpdated   RecordStatus = "UPDATED"
	StatusNotFound  RecordStatus = "NOT_FOUND"
	StatusError     RecordStatus = "ERROR"
	StatusCatNotSet RecordStatus = "CAT_NOT_SET"
)

// IsValid reports whether s is one of the known statuses.
func (s RecordStatus) IsValid() bool {
	switch s {
	case StatusApproved, StatusFlagged, StatusSkipped, StatusDryRun, StatusStuck,
		StatusUpdated, StatusNotFound, StatusError, StatusCatNotSet:
		return true
	default:
		return false
	}
}

// IsException reports whether the record belongs in an exceptions log rather
// than the main log.
func (s RecordStatus) IsException() bool {
	switch s {
	case StatusFlagged, StatusStuck, StatusNotFound, StatusError, StatusCatNotSet:
		return true
	default:
		return false
	}
}

// AuditRecord is one append-only line of the audit trail.
type AuditRecord struct {
	Timestamp  time.Time
	RunID      string
	Item       string
	Vendor     string
	Product    string
	Category   string
	LedgerCode string
	UnitClass  UnitClass
	Status     RecordStatus
	Notes      string
}

// HistoryItem is a previously handled item read back from the audit trail or
// from a bulk export of the item library.
type HistoryItem struct {
	Description string
	Vendor      string
	Category    string
	LedgerCode  string
	Status      RecordStatus
}
