// Package audit records the outcome of every handled item in an append-only trail.
package audit

import (
	"context"

	"go.uber.org/multierr"

	"github.com/Veraticus/catalog-steward/internal/model"
)

// Sink accepts audit records. Records are never rewritten or removed.
type Sink interface {
	Append(ctx context.Context, record model.AuditRecord) error
}

// MultiSink appends every record to each of its sinks. A failing sink does
// not stop the others.
type MultiSink []Sink

// Append implements Sink.
func (m MultiSink) Append(ctx context.Context, record model.AuditRecord) error {
	var err error
	for _, s := range m {
		if s == nil {
			continue
		}
		err = multierr.Append(err, s.Append(ctx, record))
	}
	return err
}

// MemorySink keeps records in memory. It is used for previews and tests.
type MemorySink struct {
	Records []model.AuditRecord
	Err     error
}

// Append implements Sink.
func (m *MemorySink) Append(_ context.Context, record model.AuditRecord) error {
	if m.Err != nil {
		return m.Err
	}
	m.Records = append(m.Records, record)
	return nil
}

// Statuses returns the status of every stored record, in order.
func (m *MemorySink) Statuses() []model.RecordStatus {
	out := make([]model.RecordStatus, 0, len(m.Records))
	for _, r := range m.Records {
		out = append(out, r.Status)
	}
	return out
}

// Detached returns a sink that keeps appending after the caller's context is
// canceled, so the record for an interrupted item still lands.
func Detached(s Sink) Sink {
	return detachedSink{sink: s}
}

type detachedSink struct {
	sink Sink
}

func (d detachedSink) Append(ctx context.Context, record model.AuditRecord) error {
	return d.sink.Append(context.WithoutCancel(ctx), record)
}
