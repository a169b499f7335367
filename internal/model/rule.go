package model

// VendorRule maps a vendor name (case-insensitive, exact) to a category.
type VendorRule struct {
	Vendor     string `yaml:"vendor"`
	Category   string `yaml:"category"`
	LedgerCode string `yaml:"ledger_code,omitempty"` // empty leaves the ledger code alone
}

// KeywordRule maps description keywords to a category. Keywords are tried in order.
type KeywordRule struct {
	Category   string   `yaml:"category"`
	LedgerCode string   `yaml:"ledger_code,omitempty"`
	Keywords   []string `yaml:"keywords"`
}

// UnconditionalFix corrects a ledger code for every item in a category,
// whether or not any vendor or keyword rule matched the item.
type UnconditionalFix struct {
	Category       string `yaml:"category"`
	FromLedgerCode string `yaml:"from_ledger_code"`
	ToLedgerCode   string `yaml:"to_ledger_code"`
}
