package browser

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/Veraticus/catalog-steward/internal/model"
	"github.com/Veraticus/catalog-steward/internal/surface"
)

var (
	positionPattern = regexp.MustCompile(`Invoice item (\d+) of (\d+)`)
	vendorPattern   = regexp.MustCompile(`Vendor:\s*(.+)`)
)

// Texts the product shows when approval is blocked by empty required fields.
var validationPhrases = []string{
	"fields must be added prior",
	"required fields",
	"(*) fields must",
	"must be added prior to approving",
}

// Substrings of DevTools errors raised when the page reloads or the tab goes
// away under an action.
var transientMarkers = []string{
	"context was destroyed",
	"cannot find context with specified id",
	"inspected target navigated or closed",
	"detached",
	"target closed",
	"session closed",
	"no target with given id",
}

var notFoundMarkers = []string{
	"cannot find element",
	"element not found",
}

// unitState is a unit selector as the page script reports it.
type unitState struct {
	Label string `json:"label"`
	Kind  string `json:"kind"`
}

func (u unitState) field() model.UnitField {
	kind := model.UnitKindNone
	switch u.Kind {
	case "combobox":
		kind = model.UnitKindCombobox
	case "select":
		kind = model.UnitKindSelect
	}
	return model.UnitField{Label: strings.TrimSpace(u.Label), Kind: kind}
}

// itemState is the raw read of the item view.
type itemState struct {
	Found         bool      `json:"found"`
	Description   string    `json:"description"`
	LedgerCode    string    `json:"ledgerCode"`
	Category      string    `json:"category"`
	Unit          unitState `json:"unit"`
	InventoryUnit unitState `json:"inventoryUnit"`
	Size          string    `json:"size"`
	HasProduct    bool      `json:"hasProduct"`
	Approved      bool      `json:"approved"`
	Pending       bool      `json:"pending"`
	CheckWork     string    `json:"checkWork"`
	Text          string    `json:"text"`
}

func (st itemState) snapshot() model.ItemSnapshot {
	return model.ItemSnapshot{
		Description:   strings.TrimSpace(st.Description),
		Vendor:        parseVendor(st.Text),
		Category:      strings.TrimSpace(st.Category),
		LedgerCode:    strings.TrimSpace(st.LedgerCode),
		Unit:          st.Unit.field(),
		InventoryUnit: st.InventoryUnit.field(),
		Size:          strings.TrimSpace(st.Size),
		Banner:        detectBanner(st.CheckWork, st.Text),
		Position:      parsePosition(st.Text),
		HasProduct:    st.HasProduct,
		Approved:      st.Approved && !st.Pending,
		Pending:       st.Pending,
	}
}

// keyState is the lightweight read used while waiting for navigation.
type keyState struct {
	Found       bool   `json:"found"`
	Description string `json:"description"`
	Text        string `json:"text"`
	Complete    bool   `json:"complete"`
}

// movedFrom reports whether the view no longer shows prior. The batch
// complete dialog and a vanished item view both count as movement.
func (k keyState) movedFrom(prior model.ItemKey) bool {
	if k.Complete || !k.Found {
		return true
	}
	if desc := strings.TrimSpace(k.Description); desc != "" && desc != prior.Description {
		return true
	}
	pos := parsePosition(k.Text)
	return pos.Current > 0 && pos.Current != prior.Position
}

func parsePosition(text string) model.Position {
	m := positionPattern.FindStringSubmatch(text)
	if m == nil {
		return model.Position{}
	}
	current, err := strconv.Atoi(m[1])
	if err != nil {
		return model.Position{}
	}
	total, err := strconv.Atoi(m[2])
	if err != nil {
		return model.Position{}
	}
	return model.Position{Current: current, Total: total}
}

func parseVendor(text string) string {
	m := vendorPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// detectBanner returns the validation message on the page, preferring the
// "Check your work" panel over loose validation lines.
func detectBanner(checkWork, text string) string {
	if banner := strings.TrimSpace(checkWork); banner != "" {
		return banner
	}
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		for _, phrase := range validationPhrases {
			if strings.Contains(lower, phrase) {
				return strings.TrimSpace(line)
			}
		}
	}
	return ""
}

func viewKind(raw string) surface.ViewKind {
	switch raw {
	case "detail":
		return surface.ViewDetail
	case "list":
		return surface.ViewList
	default:
		return surface.ViewUnknown
	}
}

// classify maps a DevTools failure onto the surface error kinds.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *surface.Error
	if errors.As(err, &se) {
		return err
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return surface.Transient(op, err)
		}
	}
	for _, marker := range notFoundMarkers {
		if strings.Contains(msg, marker) {
			return surface.NotFound(op, err)
		}
	}
	// An element wait that ran out of its own time budget means the element
	// never showed up.
	if errors.Is(err, context.DeadlineExceeded) {
		return surface.NotFound(op, err)
	}
	return surface.Unavailable(op, err)
}

func prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
