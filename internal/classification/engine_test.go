package classification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/catalog-steward/internal/model"
)

func newDefaultEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultRules(), DefaultBaseline())
	require.NoError(t, err)
	return engine
}

func TestClassify_Scenarios(t *testing.T) {
	engine := newDefaultEngine(t)

	tests := []struct {
		name            string
		description     string
		vendor          string
		wantCategory    string
		wantLedger      string
		wantProduct     string
		wantUnit        model.UnitClass
		wantReason      model.MatchKind
		wantSpecial     bool
		wantExcluded    bool
		wantLedgerIsNil bool
	}{
		{
			name:         "vendor rule beats sake keyword rule",
			description:  "SAKE 300ML JUNMAI GINJO",
			vendor:       "Empire Distributors",
			wantCategory: "Liquor",
			wantLedger:   "Event materials",
			wantProduct:  "sake junmai ginjo",
			wantUnit:     model.UnitVolume,
			wantReason:   model.MatchVendor,
		},
		{
			name:            "sake keyword rule without vendor rule",
			description:     "SAKE 300ML JUNMAI GINJO",
			vendor:          "Some Other Vendor",
			wantCategory:    "Beverages",
			wantLedger:      "5000",
			wantProduct:     "sake junmai ginjo",
			wantUnit:        model.UnitVolume,
			wantReason:      model.MatchKeyword,
			wantLedgerIsNil: true,
		},
		{
			name:            "japanese fish from allow-listed vendor",
			description:     "MADAI SASHIMI GRADE *PACK 2CT* 8OZ",
			vendor:          "East Sea Trading",
			wantCategory:    "Food Purchases",
			wantLedger:      "5001",
			wantProduct:     "madai sashimi grade",
			wantUnit:        model.UnitWeight,
			wantReason:      model.MatchNone,
			wantSpecial:     true,
			wantLedgerIsNil: true,
		},
		{
			name:            "japanese keyword from ordinary vendor",
			description:     "MADAI SASHIMI GRADE",
			vendor:          "Sysco",
			wantCategory:    "Food Purchases",
			wantLedger:      "5000",
			wantProduct:     "madai sashimi grade",
			wantUnit:        model.UnitWeight,
			wantReason:      model.MatchNone,
			wantLedgerIsNil: true,
		},
		{
			name:            "non-food item",
			description:     "NITRILE GLOVE LARGE 100CT",
			vendor:          "Restaurant Depot",
			wantCategory:    "Non-Food Items",
			wantLedger:      "5000",
			wantProduct:     "nitrile glove large",
			wantUnit:        model.UnitEach,
			wantReason:      model.MatchKeyword,
			wantExcluded:    true,
			wantLedgerIsNil: true,
		},
		{
			name:            "cleaning keyword rule before non-food rule",
			description:     "DISH SOAP 1GAL",
			vendor:          "Restaurant Depot",
			wantCategory:    "Cleaning Supplies",
			wantLedger:      "5000",
			wantProduct:     "dish soap",
			wantUnit:        model.UnitEach,
			wantReason:      model.MatchKeyword,
			wantExcluded:    true,
			wantLedgerIsNil: true,
		},
		{
			name:            "vendor match is case-insensitive",
			description:     "BAR TOWEL WHITE",
			vendor:          "  empire DISTRIBUTORS ",
			wantCategory:    "Liquor",
			wantLedger:      "Event materials",
			wantProduct:     "bar towel white",
			wantUnit:        model.UnitEach,
			wantReason:      model.MatchVendor,
			wantExcluded:    true,
			wantLedgerIsNil: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Classify(tt.description, tt.vendor)

			assert.Equal(t, tt.wantCategory, got.Category)
			assert.Equal(t, tt.wantLedger, got.TargetLedgerCode())
			assert.Equal(t, tt.wantProduct, got.ProductName)
			assert.Equal(t, tt.wantUnit, got.UnitClass)
			assert.Equal(t, tt.wantReason, got.Reason.Kind)
			assert.Equal(t, tt.wantSpecial, got.SpecialVendor)
			assert.Equal(t, tt.wantExcluded, got.Excluded)
			assert.Equal(t, tt.wantLedgerIsNil, got.LedgerCode == nil)
			assert.Equal(t, tt.wantReason != model.MatchNone, got.Reclassified())
		})
	}
}

func TestClassify_VendorRuleShortCircuitsKeywords(t *testing.T) {
	rules := RuleSet{
		VendorRules: []model.VendorRule{{Vendor: "Acme", Category: "Vendor Category"}},
		KeywordRules: []model.KeywordRule{
			{Category: "Keyword Category", LedgerCode: "9999", Keywords: []string{"widget"}},
		},
	}
	engine, err := NewEngine(rules, DefaultBaseline())
	require.NoError(t, err)

	got := engine.Classify("BLUE WIDGET", "ACME")
	assert.Equal(t, "Vendor Category", got.Category)
	assert.Nil(t, got.LedgerCode)
	assert.Equal(t, "5000", got.TargetLedgerCode())
	assert.Equal(t, model.MatchReason{Kind: model.MatchVendor, Rule: "Acme"}, got.Reason)
}

func TestClassify_FirstMatchWins(t *testing.T) {
	towel := model.KeywordRule{Category: "Linens", Keywords: []string{"towel"}}
	barTowel := model.KeywordRule{Category: "Bar Supplies", Keywords: []string{"bar towel"}}
	lemon := model.KeywordRule{Category: "Produce", Keywords: []string{"lemon"}}

	classify := func(t *testing.T, rules []model.KeywordRule, description string) string {
		t.Helper()
		engine, err := NewEngine(RuleSet{KeywordRules: rules}, DefaultBaseline())
		require.NoError(t, err)
		return engine.Classify(description, "").Category
	}

	t.Run("overlapping rules follow declaration order", func(t *testing.T) {
		assert.Equal(t, "Linens", classify(t, []model.KeywordRule{towel, barTowel}, "BAR TOWEL"))
		assert.Equal(t, "Bar Supplies", classify(t, []model.KeywordRule{barTowel, towel}, "BAR TOWEL"))
	})

	t.Run("non-overlapping rules are order independent", func(t *testing.T) {
		for _, description := range []string{"LEMON", "HAND TOWEL", "ONION"} {
			assert.Equal(t,
				classify(t, []model.KeywordRule{towel, lemon}, description),
				classify(t, []model.KeywordRule{lemon, towel}, description),
				description)
		}
	})

	t.Run("first keyword within a rule is reported", func(t *testing.T) {
		engine, err := NewEngine(RuleSet{KeywordRules: []model.KeywordRule{
			{Category: "Bar Supplies", Keywords: []string{"shaker", "bar"}},
		}}, DefaultBaseline())
		require.NoError(t, err)

		got := engine.Classify("BAR SHAKER TIN", "")
		assert.Equal(t, "shaker", got.Reason.Keyword)
		assert.Equal(t, "keyword rule: Bar Supplies [shaker]", got.Reason.String())
	})
}

func TestUnitClassOf(t *testing.T) {
	engine := newDefaultEngine(t)

	tests := []struct {
		description string
		want        model.UnitClass
	}{
		{"EXTRA VIRGIN OLIVE OIL 1GAL", model.UnitVolume},
		{"SOY SAUCE KOIKUCHI", model.UnitVolume},
		{"HEAVY CREAM 36%", model.UnitVolume},
		{"PAPER TOWEL ROLL", model.UnitEach},
		{"TRASH BAG 55GAL", model.UnitEach},
		{"CHICKEN THIGH BONELESS", model.UnitWeight},
		{"", model.UnitWeight},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.UnitClassOf(tt.description))
		})
	}
}

func TestUnitClassOf_VolumeBeatsNonFood(t *testing.T) {
	engine := newDefaultEngine(t)
	rules := DefaultRules()

	for _, volume := range rules.VolumeKeywords {
		for _, nonFood := range rules.ExcludedKeywords {
			description := nonFood + " " + volume
			assert.Equal(t, model.UnitVolume, engine.UnitClassOf(description), description)
		}
	}
}

func TestDetectors(t *testing.T) {
	engine := newDefaultEngine(t)

	assert.True(t, engine.IsSpecialVendorFlag("East Sea Trading Co.", "KANPACHI LOIN"))
	assert.True(t, engine.IsSpecialVendorFlag("JFC INTERNATIONAL", "WASABI PASTE"))
	assert.False(t, engine.IsSpecialVendorFlag("Sysco", "MADAI"), "vendor must be allow-listed")
	assert.False(t, engine.IsSpecialVendorFlag("JFC", "CHICKEN BREAST"), "keyword must be present")
	assert.False(t, engine.IsSpecialVendorFlag("", ""))

	assert.True(t, engine.IsExcludedCategory("Delivery Fee"))
	assert.True(t, engine.IsExcludedCategory("CHOPSTICK WARIBASHI 100PK"))
	assert.False(t, engine.IsExcludedCategory("SALMON FILLET"))
}

func TestResult_Notes(t *testing.T) {
	engine := newDefaultEngine(t)

	assert.Equal(t, "Japanese fish (special ledger)",
		engine.Classify("HAMACHI LOIN", "True World Foods").Notes())
	assert.Equal(t, "Non-food item; keyword rule: Non-Food Items [napkin]",
		engine.Classify("DINNER NAPKIN", "Sysco").Notes())
	assert.Empty(t, engine.Classify("CHICKEN THIGH", "Sysco").Notes())
}

func TestNewEngine_RejectsInvalidRules(t *testing.T) {
	_, err := NewEngine(RuleSet{KeywordRules: []model.KeywordRule{{Category: "Empty"}}}, DefaultBaseline())
	require.Error(t, err)
}

func TestFix(t *testing.T) {
	engine := newDefaultEngine(t)

	tests := []struct {
		name     string
		category string
		ledger   string
		want     string
		fired    bool
	}{
		{name: "liquor on food ledger", category: "Liquor", ledger: "5000", want: "Event materials", fired: true},
		{name: "non-food on special ledger", category: "non-food items", ledger: "5001", want: "5000", fired: true},
		{name: "already correct", category: "Liquor", ledger: "Event materials", want: "Event materials"},
		{name: "other category", category: "Food Purchases", ledger: "5000", want: "5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fix, fired := engine.Fix(tt.category, tt.ledger)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.fired, fired)
			if fired {
				assert.Equal(t, tt.ledger, fix.FromLedgerCode)
			}
		})
	}
}
