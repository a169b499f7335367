package classification

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/catalog-steward/internal/common"
	"github.com/Veraticus/catalog-steward/internal/model"
)

func TestParseRules_OverridesOnlyGivenSections(t *testing.T) {
	data := []byte(`
vendor_rules:
  - vendor: Southern Glazer's
    category: Liquor
    ledger_code: "5100"
unconditional_fixes:
  - category: Liquor
    from_ledger_code: "5000"
    to_ledger_code: "5100"
`)

	rules, err := ParseRules(data)
	require.NoError(t, err)

	assert.Equal(t, []model.VendorRule{
		{Vendor: "Southern Glazer's", Category: "Liquor", LedgerCode: "5100"},
	}, rules.VendorRules)
	assert.Equal(t, []model.UnconditionalFix{
		{Category: "Liquor", FromLedgerCode: "5000", ToLedgerCode: "5100"},
	}, rules.Fixes)
	assert.Equal(t, DefaultRules().KeywordRules, rules.KeywordRules)
	assert.Equal(t, DefaultRules().VolumeKeywords, rules.VolumeKeywords)
}

func TestParseRules_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "malformed yaml", data: "vendor_rules: [unterminated"},
		{name: "keyword rule without keywords", data: "keyword_rules:\n  - category: Produce\n"},
		{name: "vendor rule without category", data: "vendor_rules:\n  - vendor: Acme\n"},
		{name: "incomplete fix", data: "unconditional_fixes:\n  - category: Liquor\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules([]byte(tt.data))
			require.ErrorIs(t, err, common.ErrInvalidRules)
		})
	}
}

func TestLoadRules(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		rules, err := LoadRules("")
		require.NoError(t, err)
		assert.Equal(t, DefaultRules(), rules)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})

	t.Run("written rules load back", func(t *testing.T) {
		out, err := MarshalRules(DefaultRules())
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "rules.yaml")
		require.NoError(t, os.WriteFile(path, out, 0o600))

		rules, err := LoadRules(path)
		require.NoError(t, err)
		assert.Equal(t, DefaultRules(), rules)
	})
}
