package browser

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/catalog-steward/internal/config"
	"github.com/Veraticus/catalog-steward/internal/model"
	"github.com/Veraticus/catalog-steward/internal/surface"
)

const detailText = "Item details\nVendor: Sysco Chicago \nInvoice item 3 of 12\nTO REVIEW"

func TestItemStateSnapshot(t *testing.T) {
	st := itemState{
		Found:         true,
		Description:   " CHICKEN THIGH BONELESS ",
		LedgerCode:    "5000",
		Category:      "Food Purchases",
		Unit:          unitState{Label: "Select unit", Kind: "combobox"},
		InventoryUnit: unitState{Label: "lb", Kind: "select"},
		HasProduct:    true,
		Pending:       true,
		Text:          detailText,
	}

	want := model.ItemSnapshot{
		Description:   "CHICKEN THIGH BONELESS",
		Vendor:        "Sysco Chicago",
		Category:      "Food Purchases",
		LedgerCode:    "5000",
		Unit:          model.UnitField{Label: "Select unit", Kind: model.UnitKindCombobox},
		InventoryUnit: model.UnitField{Label: "lb", Kind: model.UnitKindSelect},
		Position:      model.Position{Current: 3, Total: 12},
		HasProduct:    true,
		Pending:       true,
	}
	assert.Equal(t, want, st.snapshot())

	st.Unit = unitState{Kind: "radio"}
	assert.Equal(t, model.UnitKindNone, st.snapshot().Unit.Kind)
}

func TestItemStateApproved(t *testing.T) {
	assert.True(t, itemState{Found: true, Approved: true}.snapshot().Approved)
	assert.False(t, itemState{Found: true, Approved: true, Pending: true}.snapshot().Approved)

	neither := itemState{Found: true}.snapshot()
	assert.False(t, neither.Approved)
	assert.False(t, neither.Pending)
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		text string
		want model.Position
	}{
		{text: detailText, want: model.Position{Current: 3, Total: 12}},
		{text: "Invoice item 10 of 10", want: model.Position{Current: 10, Total: 10}},
		{text: "invoice item 1 of 2", want: model.Position{}},
		{text: "", want: model.Position{}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, parsePosition(tt.text))
		})
	}
}

func TestParseVendor(t *testing.T) {
	assert.Equal(t, "Sysco Chicago", parseVendor(detailText))
	assert.Equal(t, "True World Foods", parseVendor("Vendor:\nTrue World Foods\nSize"))
	assert.Empty(t, parseVendor("no vendor here"))
}

func TestDetectBanner(t *testing.T) {
	tests := []struct {
		name      string
		checkWork string
		text      string
		want      string
	}{
		{
			name:      "check your work panel",
			checkWork: " Check your work: Size is required ",
			text:      "Required fields must be added prior to approving",
			want:      "Check your work: Size is required",
		},
		{
			name: "validation line",
			text: "Item details\n  All (*) fields must be added prior to approving.  \nVendor: Sysco",
			want: "All (*) fields must be added prior to approving.",
		},
		{
			name: "case insensitive",
			text: "Required Fields are missing",
			want: "Required Fields are missing",
		},
		{
			name: "clean page",
			text: detailText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectBanner(tt.checkWork, tt.text))
		})
	}
}

func TestKeyStateMovedFrom(t *testing.T) {
	prior := model.ItemKey{Description: "CHICKEN THIGH BONELESS", Position: 3}

	tests := []struct {
		name  string
		state keyState
		want  bool
	}{
		{
			name:  "same item",
			state: keyState{Found: true, Description: "CHICKEN THIGH BONELESS", Text: detailText},
		},
		{
			name:  "new description",
			state: keyState{Found: true, Description: "ONION YELLOW JUMBO", Text: detailText},
			want:  true,
		},
		{
			name:  "new position",
			state: keyState{Found: true, Description: "CHICKEN THIGH BONELESS", Text: "Invoice item 4 of 12"},
			want:  true,
		},
		{
			name:  "description still loading",
			state: keyState{Found: true, Text: "Invoice item 3 of 12"},
		},
		{
			name:  "batch complete",
			state: keyState{Found: true, Description: "CHICKEN THIGH BONELESS", Complete: true},
			want:  true,
		},
		{
			name:  "item view gone",
			state: keyState{},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.movedFrom(prior))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want surface.Kind
	}{
		{name: "context destroyed", err: errors.New("{-32000 Execution context was destroyed. }"), want: surface.KindTransient},
		{name: "detached frame", err: errors.New("frame detached"), want: surface.KindTransient},
		{name: "target closed", err: errors.New("Target closed"), want: surface.KindTransient},
		{name: "missing element", err: errors.New("cannot find element"), want: surface.KindNotFound},
		{name: "wait ran out", err: fmt.Errorf("wait: %w", context.DeadlineExceeded), want: surface.KindNotFound},
		{name: "anything else", err: errors.New("websocket: bad handshake"), want: surface.KindUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("op", tt.err)
			assert.Equal(t, tt.want, surface.KindOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, classify("op", nil))

	original := surface.NotFound("read item", errNoItemView)
	assert.Same(t, original, classify("other", original))
}

func TestViewKind(t *testing.T) {
	assert.Equal(t, surface.ViewDetail, viewKind("detail"))
	assert.Equal(t, surface.ViewList, viewKind("list"))
	assert.Equal(t, surface.ViewUnknown, viewKind("complete"))
	assert.Equal(t, surface.ViewUnknown, viewKind(""))
}

func TestPickPage(t *testing.T) {
	host := productHost(config.ProductConfig{
		LoginURL:       "https://app.sa.toasttab.com",
		ItemLibraryURL: "https://app.sa.toasttab.com/XtraChefManagement/ProductCatalog/ProductCatalog",
	})
	assert.Equal(t, "app.sa.toasttab.com", host)

	urls := []string{
		"about:blank",
		"https://app.sa.toasttab.com/XtraChefManagement/ProductCatalog/ProductCatalog",
		"https://mail.example.com",
	}
	assert.Equal(t, 1, pickPage(urls, host))
	assert.Equal(t, 2, pickPage([]string{"a", "b", "https://example.com"}, host))
	assert.Equal(t, 0, pickPage([]string{"about:blank"}, ""))
	assert.Empty(t, productHost(config.ProductConfig{}))
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "SAKE", prefix("SAKE JUNMAI", 4))
	assert.Equal(t, "鮪とろ", prefix("鮪とろ", 4))
}
