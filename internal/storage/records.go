package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/catalog-steward/internal/model"
)

// Append stores one audit record. It satisfies audit.Sink.
func (s *SQLiteStorage) Append(ctx context.Context, record model.AuditRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRecord(record); err != nil {
		return err
	}
	return s.appendTx(ctx, s.db, record)
}

func (s *SQLiteStorage) appendTx(ctx context.Context, q queryable, record model.AuditRecord) error {
	ts := record.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO audit_records
			(run_id, recorded_at, item, vendor, product, category, ledger_code, unit_class, status, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, nullString(record.RunID), ts.UTC(), record.Item, record.Vendor, record.Product,
		record.Category, record.LedgerCode, string(record.UnitClass), string(record.Status), record.Notes)
	if err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	return nil
}

// RunRecords returns the records a run appended, oldest first.
func (s *SQLiteStorage) RunRecords(ctx context.Context, runID string) ([]model.AuditRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runID, "runID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, recorded_at, item, vendor, product, category, ledger_code, unit_class, status, notes
		FROM audit_records
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.AuditRecord
	for rows.Next() {
		var (
			r                                             model.AuditRecord
			run, vendor, product, category, ledger, notes sql.NullString
			unit, status                                  string
		)
		if err := rows.Scan(&run, &r.Timestamp, &r.Item, &vendor, &product, &category, &ledger, &unit, &status, &notes); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		r.RunID = run.String
		r.Vendor = vendor.String
		r.Product = product.String
		r.Category = category.String
		r.LedgerCode = ledger.String
		r.UnitClass = model.UnitClass(unit)
		r.Status = model.RecordStatus(status)
		r.Notes = notes.String
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit records: %w", err)
	}
	return records, nil
}

// History returns previously handled items, oldest first. With statuses it
// returns only records in those statuses.
func (s *SQLiteStorage) History(ctx context.Context, statuses ...model.RecordStatus) ([]model.HistoryItem, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT item, vendor, category, ledger_code, status
		FROM audit_records`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, 0, len(statuses))
		for _, st := range statuses {
			if !st.IsValid() {
				return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, st)
			}
			placeholders = append(placeholders, "?")
			args = append(args, string(st))
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY recorded_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.HistoryItem
	for rows.Next() {
		var (
			item                     model.HistoryItem
			vendor, category, ledger sql.NullString
			status                   string
		)
		if err := rows.Scan(&item.Description, &vendor, &category, &ledger, &status); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		item.Vendor = vendor.String
		item.Category = category.String
		item.LedgerCode = ledger.String
		item.Status = model.RecordStatus(status)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return items, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
