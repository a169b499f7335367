package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/catalog-steward/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrNilParameter  = errors.New("parameter cannot be nil")
	ErrInvalidStatus = errors.New("invalid record status")
	ErrInvalidRecord = errors.New("invalid audit record")
	ErrInvalidRun    = errors.New("invalid run")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateRecord(record model.AuditRecord) error {
	if strings.TrimSpace(record.Item) == "" {
		return fmt.Errorf("%w: item description is required", ErrInvalidRecord)
	}
	if !record.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, record.Status)
	}
	return nil
}

func validateRun(run *model.Run) error {
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if run.Mode != model.RunModeReview && run.Mode != model.RunModeReapply {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRun, run.Mode)
	}
	if run.StartedAt.IsZero() {
		return fmt.Errorf("%w: start time is required", ErrInvalidRun)
	}
	return nil
}
