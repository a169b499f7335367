// Package surface defines the contract for driving the inventory product's
// item review interface.
package surface

import (
	"context"
	"time"

	"github.com/Veraticus/catalog-steward/internal/model"
)

// Field names a required item field the processor may fill in.
type Field string

// Fillable fields.
const (
	FieldSize          Field = "size"
	FieldUnit          Field = "unit"
	FieldInventoryUnit Field = "inventory_unit"
)

// ViewKind classifies what the session is showing after a recovery.
type ViewKind string

// View kinds.
const (
	ViewDetail  ViewKind = "detail"
	ViewList    ViewKind = "list"
	ViewUnknown ViewKind = "unknown"
)

// Surface is one live session against the product. Every operation blocks
// until the product reacts or the context ends. A boolean result of false
// means the product did not accept the action; an error means the session
// itself misbehaved and is always a *Error.
type Surface interface {
	// Item view
	ReadItem(ctx context.Context) (model.ItemSnapshot, error)
	SetField(ctx context.Context, field Field, value string) (bool, error)
	SetCategory(ctx context.Context, name string) (bool, error)
	SetLedgerCode(ctx context.Context, code string) (bool, error)
	AssignOrCreateProduct(ctx context.Context, name string, hint model.UnitClass) (bool, error)

	// Actions
	InvokeApprove(ctx context.Context) (bool, error)
	InvokeSave(ctx context.Context) (bool, error)
	ConfirmDialog(ctx context.Context) (bool, error)
	DismissDialogs(ctx context.Context) error

	// Navigation
	ForceAdvance(ctx context.Context) (bool, error)
	WaitForChange(ctx context.Context, prior model.ItemKey, maxWait time.Duration) (bool, error)
	DetectBatchComplete(ctx context.Context) (bool, error)
	DismissBatchComplete(ctx context.Context) error
	ApplyPendingFilter(ctx context.Context) error
	OpenFirstPendingItem(ctx context.Context) (bool, error)
	InspectView(ctx context.Context) (ViewKind, error)

	// Item library
	OpenLibrary(ctx context.Context) error
	SearchItem(ctx context.Context, query string) (bool, error)
	CloseItem(ctx context.Context) error
}

// Screenshotter is implemented by surfaces that can capture the current view.
type Screenshotter interface {
	Screenshot(ctx context.Context, path string) error
}
