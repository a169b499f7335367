package classification

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/catalog-steward/internal/common"
)

// LoadRules reads a YAML rule file and merges it over the defaults. An empty
// path returns the defaults.
func LoadRules(path string) (RuleSet, error) {
	defaults := DefaultRules()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied rules file
	if err != nil {
		return RuleSet{}, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}

	rules, err := ParseRules(data)
	if err != nil {
		return RuleSet{}, fmt.Errorf("rules file %s: %w", path, err)
	}
	return rules, nil
}

// ParseRules decodes YAML rule tables and merges them over the defaults.
func ParseRules(data []byte) (RuleSet, error) {
	var override RuleSet
	if err := yaml.Unmarshal(data, &override); err != nil {
		return RuleSet{}, fmt.Errorf("%w: %w", common.ErrInvalidRules, err)
	}

	merged := DefaultRules().Merge(override)
	if err := merged.Validate(); err != nil {
		return RuleSet{}, err
	}
	return merged, nil
}

// MarshalRules renders a rule set as YAML, in the same shape LoadRules reads.
func MarshalRules(rules RuleSet) ([]byte, error) {
	out, err := yaml.Marshal(rules)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rules: %w", err)
	}
	return out, nil
}
