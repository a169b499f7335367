package audit

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/catalog-steward/internal/model"
)

// Header is the first line of every audit CSV file.
var Header = []string{"Timestamp", "Item", "Vendor", "Product", "Category", "GL_Code", "Family_Unit", "Status", "Notes"}

// CSVSink appends records to a main log and routes exception statuses to a
// separate log. Each file gets the header when it is created.
type CSVSink struct {
	main       *os.File
	exceptions *os.File
	mu         sync.Mutex
}

// NewCSVSink opens (or creates) both logs for appending.
func NewCSVSink(mainPath, exceptionsPath string) (*CSVSink, error) {
	main, err := openLog(mainPath)
	if err != nil {
		return nil, err
	}

	exceptions, err := openLog(exceptionsPath)
	if err != nil {
		_ = main.Close()
		return nil, err
	}

	return &CSVSink{main: main, exceptions: exceptions}, nil
}

func openLog(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) //nolint:gosec // operator-configured log path
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat audit log %s: %w", path, err)
	}
	if info.Size() == 0 {
		if err := writeRow(f, Header); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to write audit log header: %w", err)
		}
	}
	return f, nil
}

// Append implements Sink.
func (s *CSVSink) Append(_ context.Context, record model.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.main
	if record.Status.IsException() {
		target = s.exceptions
	}
	if target == nil {
		return errors.New("audit log is closed")
	}

	if err := writeRow(target, recordRow(record)); err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	return nil
}

// Close closes both logs.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, f := range []*os.File{s.main, s.exceptions} {
		if f != nil {
			errs = append(errs, f.Close())
		}
	}
	s.main, s.exceptions = nil, nil
	return errors.Join(errs...)
}

func recordRow(r model.AuditRecord) []string {
	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return []string{
		ts.UTC().Format(time.RFC3339Nano),
		r.Item,
		r.Vendor,
		r.Product,
		r.Category,
		r.LedgerCode,
		string(r.UnitClass),
		string(r.Status),
		r.Notes,
	}
}

// writeRow writes one line in a single write call so a crash cannot leave
// half a record behind.
func writeRow(w io.Writer, row []string) error {
	var b strings.Builder
	cw := csv.NewWriter(&b)
	if err := cw.Write(row); err != nil {
		return err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	_, err := io.WriteString(w, b.String())
	return err
}
