package audit

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Veraticus/catalog-steward/internal/model"
)

// ReadHistory reads every record of an audit CSV file written by CSVSink.
func ReadHistory(path string) ([]model.HistoryItem, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied history path
	if err != nil {
		return nil, fmt.Errorf("failed to open audit history: %w", err)
	}
	defer func() { _ = f.Close() }()

	items, err := ParseHistory(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit history %s: %w", path, err)
	}
	return items, nil
}

// ParseHistory decodes audit CSV rows. Columns are located by header name so
// logs with extra columns still parse.
func ParseHistory(r io.Reader) ([]model.HistoryItem, error) {
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

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, required := range []string{"Item", "Status"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("audit history has no %s column", required)
		}
	}

	column := func(row []string, name string) string {
		i, ok := index[name]
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
			Description: column(row, "Item"),
			Vendor:      column(row, "Vendor"),
			Category:    column(row, "Category"),
			LedgerCode:  column(row, "GL_Code"),
			Status:      model.RecordStatus(column(row, "Status")),
		}
		if item.Description == "" {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}
