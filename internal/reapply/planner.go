package reapply

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/catalog-steward/internal/classification"
	"github.com/Veraticus/catalog-steward/internal/model"
)

// Correction is one item whose category or ledger code should change.
type Correction struct {
	Item             model.HistoryItem
	TargetCategory   string
	TargetLedgerCode string
	Reasons          []string
}

// CategoryChanged reports whether the correction moves the item to a new category.
func (c Correction) CategoryChanged() bool {
	return !strings.EqualFold(strings.TrimSpace(c.Item.Category), strings.TrimSpace(c.TargetCategory))
}

// LedgerChanged reports whether the correction changes the ledger code.
func (c Correction) LedgerChanged() bool {
	return !strings.EqualFold(strings.TrimSpace(c.Item.LedgerCode), strings.TrimSpace(c.TargetLedgerCode))
}

// Reason joins the rules that produced the correction.
func (c Correction) Reason() string {
	return strings.Join(c.Reasons, "; ")
}

// Planner turns item history into corrections.
type Planner struct {
	engine *classification.Engine
}

// NewPlanner creates a planner that classifies with engine.
func NewPlanner(engine *classification.Engine) *Planner {
	return &Planner{engine: engine}
}

// Plan returns the corrections for approved items, in the order the items
// first appear. Each item is considered once using its most recent approved
// or updated record. Items in the default category are reclassified; the
// unconditional fixes then apply to every item.
func (p *Planner) Plan(history []model.HistoryItem) []Correction {
	latest := latestApproved(history)

	defaultCategory := p.engine.Baseline().DefaultCategory
	var corrections []Correction
	for _, item := range latest {
		c := Correction{
			Item:             item,
			TargetCategory:   item.Category,
			TargetLedgerCode: item.LedgerCode,
		}

		if strings.EqualFold(strings.TrimSpace(item.Category), defaultCategory) {
			result := p.engine.Classify(item.Description, item.Vendor)
			if result.Reclassified() {
				c.TargetCategory = result.Category
				if result.LedgerCode != nil {
					c.TargetLedgerCode = *result.LedgerCode
				}
				c.Reasons = append(c.Reasons, result.Reason.String())
			}
		}

		if code, fix, ok := p.engine.Fix(c.TargetCategory, c.TargetLedgerCode); ok {
			c.TargetLedgerCode = code
			c.Reasons = append(c.Reasons, fmt.Sprintf("fix: %s %s -> %s", fix.Category, fix.FromLedgerCode, fix.ToLedgerCode))
		}

		if c.CategoryChanged() || c.LedgerChanged() {
			corrections = append(corrections, c)
		}
	}

	slog.Info("Planned corrections", "history", len(history), "items", len(latest), "corrections", len(corrections))
	return corrections
}

// latestApproved de-duplicates history by description and vendor. Only items
// approved at some point qualify; a later UPDATED record supersedes the
// approved one so corrections are not repeated.
func latestApproved(history []model.HistoryItem) []model.HistoryItem {
	type entry struct {
		item     model.HistoryItem
		approved bool
	}

	var order []string
	seen := make(map[string]*entry)
	for _, item := range history {
		if item.Status != model.StatusApproved && item.Status != model.StatusUpdated {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(item.Description)) + "\x00" + strings.ToLower(strings.TrimSpace(item.Vendor))
		e, ok := seen[key]
		if !ok {
			e = &entry{}
			seen[key] = e
			order = append(order, key)
		}
		e.item = item
		if item.Status == model.StatusApproved {
			e.approved = true
		}
	}

	out := make([]model.HistoryItem, 0, len(order))
	for _, key := range order {
		if e := seen[key]; e.approved {
			out = append(out, e.item)
		}
	}
	return out
}

// PreviewGroup is the corrections bound for one category.
type PreviewGroup struct {
	Category string
	Total    int
	Sample   []Correction
}

// Preview groups corrections by target category, in order of first
// appearance, keeping at most sample corrections per group.
func Preview(corrections []Correction, sample int) []PreviewGroup {
	var groups []PreviewGroup
	index := make(map[string]int)
	for _, c := range corrections {
		i, ok := index[c.TargetCategory]
		if !ok {
			i = len(groups)
			index[c.TargetCategory] = i
			groups = append(groups, PreviewGroup{Category: c.TargetCategory})
		}
		groups[i].Total++
		if len(groups[i].Sample) < sample {
			groups[i].Sample = append(groups[i].Sample, c)
		}
	}
	return groups
}
