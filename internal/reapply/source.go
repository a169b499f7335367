// Package reapply corrects the category and ledger code of items that were
// already approved, using the current rule tables.
package reapply

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Veraticus/catalog-steward/internal/audit"
	"github.com/Veraticus/catalog-steward/internal/common"
	"github.com/Veraticus/catalog-steward/internal/model"
)

// SourceKind names where previously handled items are read from.
type SourceKind string

// Source kinds.
const (
	SourceHistory  SourceKind = "history"
	SourceDatabase SourceKind = "database"
	SourceExport   SourceKind = "export"
)

// ParseSourceKind validates an operator-supplied source name.
func ParseSourceKind(s string) (SourceKind, error) {
	switch kind := SourceKind(strings.ToLower(strings.TrimSpace(s))); kind {
	case SourceHistory, SourceDatabase, SourceExport:
		return kind, nil
	case "":
		return SourceHistory, nil
	default:
		return "", fmt.Errorf("%w: unknown source %q (want history, database or export)", common.ErrInvalidConfig, s)
	}
}

// Source yields previously handled items.
type Source interface {
	Items(ctx context.Context) ([]model.HistoryItem, error)
}

// HistoryStore is the part of the SQLite store the database source needs.
type HistoryStore interface {
	History(ctx context.Context, statuses ...model.RecordStatus) ([]model.HistoryItem, error)
}

// HistorySource reads the audit CSV written by live review runs.
type HistorySource struct {
	Path string
}

// Items implements Source.
func (s HistorySource) Items(_ context.Context) ([]model.HistoryItem, error) {
	return audit.ReadHistory(s.Path)
}

// StoreSource reads approved and updated records from the SQLite store.
type StoreSource struct {
	Store HistoryStore
}

// Items implements Source.
func (s StoreSource) Items(ctx context.Context) ([]model.HistoryItem, error) {
	if s.Store == nil {
		return nil, errors.New("database source has no store")
	}
	return s.Store.History(ctx, model.StatusApproved, model.StatusUpdated)
}

// ExportSource reads a bulk export of the item library.
type ExportSource struct {
	Path string
}

// Items implements Source.
func (s ExportSource) Items(_ context.Context) ([]model.HistoryItem, error) {
	f, err := os.Open(s.Path) //nolint:gosec // operator-supplied export path
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}
	defer func() { _ = f.Close() }()

	items, err := ParseExport(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read export %s: %w", s.Path, err)
	}
	return items, nil
}

// NewSource builds the source for kind. Path is the CSV file for the history
// and export sources; store backs the database source.
func NewSource(kind SourceKind, path string, store HistoryStore) (Source, error) {
	switch kind {
	case SourceHistory:
		return HistorySource{Path: path}, nil
	case SourceExport:
		if path == "" {
			return nil, fmt.Errorf("%w: export source needs a file", common.ErrMissingConfig)
		}
		return ExportSource{Path: path}, nil
	case SourceDatabase:
		return StoreSource{Store: store}, nil
	default:
		return nil, fmt.Errorf("%w: unknown source %q", common.ErrInvalidConfig, kind)
	}
}

// exportColumns lists the header names each field goes by in library exports.
var exportColumns = map[string][]string{
	"description": {"item", "item description", "description", "product description", "item name"},
	"vendor":      {"vendor", "vendor name", "supplier"},
	"category":    {"category", "item category", "accounting category"},
	"ledger":      {"gl_code", "gl code", "gl account", "ledger code", "gl"},
	"status":      {"status", "item status", "approval status"},
}

// ParseExport decodes a library export. Header names are matched loosely
// since exports are produced by hand as often as by the product. Rows without
// a status column are treated as approved.
func ParseExport(r io.Reader) ([]model.HistoryItem, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int)
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		for field, aliases := range exportColumns {
			if _, seen := index[field]; seen {
				continue
			}
			for _, alias := range aliases {
				if name == alias {
					index[field] = i
					break
				}
			}
		}
	}
	if _, ok := index["description"]; !ok {
		return nil, errors.New("export has no item description column")
	}

	column := func(row []string, field string) string {
		i, ok := index[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var items []model.HistoryItem
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		item := model.HistoryItem{
			Description: column(row, "description"),
			Vendor:      column(row, "vendor"),
			Category:    column(row, "category"),
			LedgerCode:  column(row, "ledger"),
			Status:      model.StatusApproved,
		}
		if item.Description == "" {
			continue
		}
		if status := column(row, "status"); status != "" {
			item.Status = model.RecordStatus(strings.ToUpper(status))
		}
		items = append(items, item)
	}
	return items, nil
}
