// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"strings"
)

// UnitKind describes how the product renders a unit field.
type UnitKind string

// Unit representation kinds.
const (
	UnitKindNone     UnitKind = "none"
	UnitKindCombobox UnitKind = "combobox"
	UnitKindSelect   UnitKind = "select"
)

// Position is an item's place inside the batch the product is presenting.
type Position struct {
	Current int
	Total   int
}

// IsLast reports whether the item is the final one of its batch.
func (p Position) IsLast() bool {
	return p.Current > 0 && p.Total > 0 && p.Current >= p.Total
}

func (p Position) String() string {
	return fmt.Sprintf("%d/%d", p.Current, p.Total)
}

// UnitField is a unit selector as read from the item view.
type UnitField struct {
	Label string
	Kind  UnitKind
}

// IsUnset reports whether the field still shows an empty or placeholder value.
func (u UnitField) IsUnset() bool {
	label := strings.TrimSpace(u.Label)
	return label == "" || strings.Contains(strings.ToLower(label), "select")
}

// ItemSnapshot is a read-only view of one item at the moment it was read.
// It is never updated in place; a fresh read replaces it.
type ItemSnapshot struct {
	Description   string
	Vendor        string
	Category      string
	LedgerCode    string
	Unit          UnitField
	InventoryUnit UnitField
	Size          string
	Banner        string // validation banner text visible at read time
	Position      Position
	HasProduct    bool
	Approved      bool // approved marker shown and no pending marker
	Pending       bool // pending marker shown
}

// Key returns the pair used to detect that the view did not move.
func (s ItemSnapshot) Key() ItemKey {
	return ItemKey{Description: s.Description, Position: s.Position.Current}
}

// SizeMissing reports whether the required size field is empty.
func (s ItemSnapshot) SizeMissing() bool {
	return strings.TrimSpace(s.Size) == ""
}

// ItemKey identifies the last item seen for duplicate detection.
type ItemKey struct {
	Description string
	Position    int
}

// IsZero reports whether nothing has been seen yet.
func (k ItemKey) IsZero() bool {
	return k.Description == "" && k.Position == 0
}
