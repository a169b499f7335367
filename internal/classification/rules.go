// Package classification decides the category, ledger code, product name and
// unit class of a catalog item from its description and vendor.
package classification

import (
	"fmt"
	"strings"

	"github.com/Veraticus/catalog-steward/internal/common"
	"github.com/Veraticus/catalog-steward/internal/model"
)

// RuleSet is the complete decision table the engine evaluates. It is a plain
// value: the engine copies what it needs at construction.
type RuleSet struct {
	VendorRules      []model.VendorRule       `yaml:"vendor_rules"`
	KeywordRules     []model.KeywordRule      `yaml:"keyword_rules"`
	Fixes            []model.UnconditionalFix `yaml:"unconditional_fixes"`
	SpecialVendors   []string                 `yaml:"special_vendors"`
	SpecialKeywords  []string                 `yaml:"special_keywords"`
	ExcludedKeywords []string                 `yaml:"excluded_keywords"`
	VolumeKeywords   []string                 `yaml:"volume_keywords"`
}

// Baseline holds the two pairs of baseline values the detectors choose between.
type Baseline struct {
	DefaultLedgerCode string
	SpecialLedgerCode string
	DefaultCategory   string
	ExcludedCategory  string
}

// DefaultBaseline returns the stock ledger codes and categories.
func DefaultBaseline() Baseline {
	return Baseline{
		DefaultLedgerCode: "5000",
		SpecialLedgerCode: "5001",
		DefaultCategory:   "Food Purchases",
		ExcludedCategory:  "Non-Food Items",
	}
}

// DefaultRules returns the stock rule tables.
func DefaultRules() RuleSet {
	return RuleSet{
		VendorRules: []model.VendorRule{
			{Vendor: "Empire Distributors", Category: "Liquor", LedgerCode: "Event materials"},
		},
		KeywordRules: []model.KeywordRule{
			{
				Category: "Cleaning Supplies",
				Keywords: []string{
					"bleach", "sanitizer", "sanitize", "disinfect", "detergent",
					"soap", "degreaser", "cleaner", "cleaning", "rinse aid",
					"sponge", "brush", "mop", "broom", "scrub",
				},
			},
			{
				Category: "Bar Supplies",
				Keywords: []string{
					"cocktail napkin", "bar napkin", "stir stick", "swizzle",
					"cocktail straw", "bar towel", "jigger", "shaker",
					"coaster", "toothpick", "cocktail pick", "bar pick",
					"bar mat", "pour spout", "speed pour",
				},
			},
			{
				Category: "Non-Food Items",
				Keywords: []string{
					"toilet paper", "paper towel", "napkin", "glove", "nitrile",
					"trash bag", "garbage bag", "aluminum foil", "foil wrap",
					"plastic wrap", "cling film", "cling wrap", "saran",
					"chopstick", "waribashi", "straw", "to-go", "togo",
					"takeout", "take out", "to go container", "togo container",
					"deli container", "soup container", "food container",
					"lid", "cup sleeve", "paper cup", "plastic cup",
					"apron", "towel", "paper bag", "plastic bag",
					"to go box", "togo box", "takeout box",
					"paper plate", "foam plate", "plastic plate",
					"paper bowl", "foam bowl", "plastic bowl",
					"utensil", "plastic fork", "plastic spoon", "plastic knife",
					"purchase summary", "delivery fee", "fuel surcharge",
				},
			},
			{
				Category: "Beverages",
				Keywords: []string{"junmai", "ginjo", "honjozo", "nigori", "shochu", "soju"},
			},
		},
		Fixes: []model.UnconditionalFix{
			{Category: "Liquor", FromLedgerCode: "5000", ToLedgerCode: "Event materials"},
			{Category: "Non-Food Items", FromLedgerCode: "5001", ToLedgerCode: "5000"},
		},
		SpecialVendors: []string{
			"east sea trading", "ohta foods", "true world foods", "atlanta mutual trading", "jfc",
		},
		SpecialKeywords: []string{
			"madai", "shima aji", "kohada", "hagatsuo", "hamachi", "hirame", "kanpachi",
			"maguro", "otoro", "chutoro", "akami", "uni", "amaebi", "botan ebi", "ikura",
			"anago", "conger", "engawa", "tai", "buri", "sake", "saba", "aji", "iwashi",
			"sanma", "sayori", "suzuki", "kinmedai", "nodoguro", "akamutsu", "mozuku",
			"ooba", "shiso", "yuzu", "wasabi", "nori", "dashi", "mirin", "usukuchi", "koikuchi",
		},
		ExcludedKeywords: []string{
			"toilet paper", "paper towel", "napkin", "glove", "bleach", "sanitizer",
			"detergent", "soap", "trash bag", "garbage bag", "aluminum foil", "plastic wrap",
			"cling film", "chopstick", "waribashi", "coaster", "drinking straw", "paper straw",
			"to-go", "togo", "takeout", "to go container", "deli container", "apron", "towel",
			"sponge", "brush", "mop", "broom", "rinse aid", "degreaser",
			"purchase summary", "delivery fee", "fuel surcharge",
		},
		VolumeKeywords: []string{
			"oil", "vinegar", "sauce", "syrup", "juice", "wine", "sake", "mirin", "soy",
			"dressing", "broth", "stock", "cream", "milk", "water", "beer", "spirit",
			"liquor", "extract",
		},
	}
}

// Merge returns a copy of r in which every non-empty section of override
// replaces the corresponding section.
func (r RuleSet) Merge(override RuleSet) RuleSet {
	merged := r
	if len(override.VendorRules) > 0 {
		merged.VendorRules = override.VendorRules
	}
	if len(override.KeywordRules) > 0 {
		merged.KeywordRules = override.KeywordRules
	}
	if len(override.Fixes) > 0 {
		merged.Fixes = override.Fixes
	}
	if len(override.SpecialVendors) > 0 {
		merged.SpecialVendors = override.SpecialVendors
	}
	if len(override.SpecialKeywords) > 0 {
		merged.SpecialKeywords = override.SpecialKeywords
	}
	if len(override.ExcludedKeywords) > 0 {
		merged.ExcludedKeywords = override.ExcludedKeywords
	}
	if len(override.VolumeKeywords) > 0 {
		merged.VolumeKeywords = override.VolumeKeywords
	}
	return merged
}

// Validate rejects rules that could never fire or that fire with no target.
func (r RuleSet) Validate() error {
	for i, rule := range r.VendorRules {
		if strings.TrimSpace(rule.Vendor) == "" {
			return fmt.Errorf("%w: vendor rule %d has no vendor", common.ErrInvalidRules, i)
		}
		if strings.TrimSpace(rule.Category) == "" {
			return fmt.Errorf("%w: vendor rule %q has no category", common.ErrInvalidRules, rule.Vendor)
		}
	}
	for i, rule := range r.KeywordRules {
		if strings.TrimSpace(rule.Category) == "" {
			return fmt.Errorf("%w: keyword rule %d has no category", common.ErrInvalidRules, i)
		}
		if len(rule.Keywords) == 0 {
			return fmt.Errorf("%w: keyword rule %q has no keywords", common.ErrInvalidRules, rule.Category)
		}
		for _, kw := range rule.Keywords {
			if strings.TrimSpace(kw) == "" {
				return fmt.Errorf("%w: keyword rule %q has an empty keyword", common.ErrInvalidRules, rule.Category)
			}
		}
	}
	for i, fix := range r.Fixes {
		if fix.Category == "" || fix.FromLedgerCode == "" || fix.ToLedgerCode == "" {
			return fmt.Errorf("%w: unconditional fix %d is incomplete", common.ErrInvalidRules, i)
		}
	}
	return nil
}
