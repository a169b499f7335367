package classification

import (
	"strings"

	"github.com/Veraticus/catalog-steward/internal/model"
)

// Result is the engine's decision for one item.
type Result struct {
	LedgerCode         *string // nil leaves the ledger code to the baseline
	Category           string
	BaselineCategory   string
	BaselineLedgerCode string
	ProductName        string
	UnitClass          model.UnitClass
	Reason             model.MatchReason
	SpecialVendor      bool
	Excluded           bool
}

// Reclassified reports whether a vendor or keyword rule fired.
func (r Result) Reclassified() bool {
	return r.Reason.Kind != model.MatchNone && r.Reason.Kind != ""
}

// TargetLedgerCode returns the ledger code the item should end up with.
func (r Result) TargetLedgerCode() string {
	if r.LedgerCode != nil {
		return *r.LedgerCode
	}
	return r.BaselineLedgerCode
}

// Notes renders the audit note for the decision.
func (r Result) Notes() string {
	var parts []string
	if r.SpecialVendor {
		parts = append(parts, "Japanese fish (special ledger)")
	}
	if r.Excluded {
		parts = append(parts, "Non-food item")
	}
	if r.Reclassified() {
		parts = append(parts, r.Reason.String())
	}
	return strings.Join(parts, "; ")
}

type keywordRule struct {
	model.KeywordRule
	lowered []string
}

// Engine classifies items against a fixed rule set. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	baseline         Baseline
	vendorRules      []model.VendorRule
	keywordRules     []keywordRule
	fixes            []model.UnconditionalFix
	specialVendors   []string
	specialKeywords  []string
	excludedKeywords []string
	volumeKeywords   []string
}

// NewEngine validates rules and builds an engine.
func NewEngine(rules RuleSet, baseline Baseline) (*Engine, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		baseline:         baseline,
		vendorRules:      append([]model.VendorRule(nil), rules.VendorRules...),
		fixes:            append([]model.UnconditionalFix(nil), rules.Fixes...),
		specialVendors:   lowerAll(rules.SpecialVendors),
		specialKeywords:  lowerAll(rules.SpecialKeywords),
		excludedKeywords: lowerAll(rules.ExcludedKeywords),
		volumeKeywords:   lowerAll(rules.VolumeKeywords),
	}
	for _, rule := range rules.KeywordRules {
		e.keywordRules = append(e.keywordRules, keywordRule{
			KeywordRule: rule,
			lowered:     lowerAll(rule.Keywords),
		})
	}
	return e, nil
}

// Fix applies the unconditional fixes to an item's category and ledger code.
// It returns the corrected code and the fix that fired; the first matching
// fix wins.
func (e *Engine) Fix(category, ledgerCode string) (string, model.UnconditionalFix, bool) {
	for _, fix := range e.fixes {
		if strings.EqualFold(strings.TrimSpace(fix.Category), strings.TrimSpace(category)) &&
			strings.EqualFold(strings.TrimSpace(fix.FromLedgerCode), strings.TrimSpace(ledgerCode)) {
			return fix.ToLedgerCode, fix, true
		}
	}
	return ledgerCode, model.UnconditionalFix{}, false
}

// Baseline returns the baseline values the engine was built with.
func (e *Engine) Baseline() Baseline {
	return e.baseline
}

// Classify derives the target values for an item. Baseline detectors run
// first; a vendor rule then beats any keyword rule, and within each list the
// first declared match wins.
func (e *Engine) Classify(description, vendor string) Result {
	special := e.IsSpecialVendorFlag(vendor, description)
	excluded := e.IsExcludedCategory(description)

	result := Result{
		BaselineCategory:   e.baseline.DefaultCategory,
		BaselineLedgerCode: e.baseline.DefaultLedgerCode,
		ProductName:        NormalizeProductName(description),
		UnitClass:          e.UnitClassOf(description),
		Reason:             model.MatchReason{Kind: model.MatchNone},
		SpecialVendor:      special,
		Excluded:           excluded,
	}
	if special {
		result.BaselineLedgerCode = e.baseline.SpecialLedgerCode
	}
	if excluded {
		result.BaselineCategory = e.baseline.ExcludedCategory
	}
	result.Category = result.BaselineCategory

	if rule, ok := e.matchVendor(vendor); ok {
		result.Category = rule.Category
		result.LedgerCode = ledgerOf(rule.LedgerCode)
		result.Reason = model.MatchReason{Kind: model.MatchVendor, Rule: rule.Vendor}
		return result
	}

	if rule, keyword, ok := e.matchKeyword(description); ok {
		result.Category = rule.Category
		result.LedgerCode = ledgerOf(rule.LedgerCode)
		result.Reason = model.MatchReason{Kind: model.MatchKeyword, Rule: rule.Category, Keyword: keyword}
	}
	return result
}

func (e *Engine) matchVendor(vendor string) (model.VendorRule, bool) {
	v := strings.TrimSpace(vendor)
	if v == "" {
		return model.VendorRule{}, false
	}
	for _, rule := range e.vendorRules {
		if strings.EqualFold(strings.TrimSpace(rule.Vendor), v) {
			return rule, true
		}
	}
	return model.VendorRule{}, false
}

func (e *Engine) matchKeyword(description string) (model.KeywordRule, string, bool) {
	lower := strings.ToLower(description)
	for _, rule := range e.keywordRules {
		for i, kw := range rule.lowered {
			if strings.Contains(lower, kw) {
				return rule.KeywordRule, rule.Keywords[i], true
			}
		}
	}
	return model.KeywordRule{}, "", false
}

// UnitClassOf returns Volume when a volume keyword is present, otherwise Each
// when a non-food keyword is present, otherwise Weight.
func (e *Engine) UnitClassOf(description string) model.UnitClass {
	lower := strings.ToLower(description)
	switch {
	case containsAny(lower, e.volumeKeywords):
		return model.UnitVolume
	case containsAny(lower, e.excludedKeywords):
		return model.UnitEach
	default:
		return model.UnitWeight
	}
}

// IsSpecialVendorFlag reports whether the vendor is allow-listed and the
// description carries an allow-listed keyword. Both are required.
func (e *Engine) IsSpecialVendorFlag(vendor, description string) bool {
	return containsAny(strings.ToLower(vendor), e.specialVendors) &&
		containsAny(strings.ToLower(description), e.specialKeywords)
}

// IsExcludedCategory reports whether the description names a non-food item.
func (e *Engine) IsExcludedCategory(description string) bool {
	return containsAny(strings.ToLower(description), e.excludedKeywords)
}

func ledgerOf(code string) *string {
	if strings.TrimSpace(code) == "" {
		return nil
	}
	return &code
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToLower(strings.TrimSpace(v)))
	}
	return out
}
