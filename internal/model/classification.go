package model

// UnitClass is the coarse measurement family used to default a product's unit.
type UnitClass string

// Unit classes.
const (
	UnitVolume UnitClass = "Volume"
	UnitEach   UnitClass = "Each"
	UnitWeight UnitClass = "Weight"
)

// MatchKind identifies which part of the rule set decided a classification.
type MatchKind string

// Match kinds.
const (
	MatchNone    MatchKind = "none"
	MatchVendor  MatchKind = "vendor_rule"
	MatchKeyword MatchKind = "keyword_rule"
)

// MatchReason records which rule fired, for the audit trail.
type MatchReason struct {
	Kind    MatchKind
	Rule    string
	Keyword string
}

// String renders the reason the way it appears in audit notes.
func (r MatchReason) String() string {
	switch r.Kind {
	case MatchVendor:
		return "vendor rule: " + r.Rule
	case MatchKeyword:
		return "keyword rule: " + r.Rule + " [" + r.Keyword + "]"
	default:
		return ""
	}
}
