package classification

import (
	"regexp"
	"strings"
)

// Applied in order; each removes a packaging or size token.
var packagingTokens = []*regexp.Regexp{
	regexp.MustCompile(`\*\*`),
	regexp.MustCompile(`(?i)\*PACK\s*\d+CT\*`),
	regexp.MustCompile(`(?i)\d+-?LB`),
	regexp.MustCompile(`(?i)\d+-?OZ`),
	regexp.MustCompile(`(?i)\d+-?ML`),
	regexp.MustCompile(`(?i)\d+-?GAL`),
	regexp.MustCompile(`(?i)\d+-?CT`),
	regexp.MustCompile(`(?i)\b(?:FF|FRZ|IQF|RAW|EACH|BKAN|ARZRSVS)\b`),
	regexp.MustCompile(`(?i)JF\s*\d+`),
	regexp.MustCompile(`\d{3,}`),
}

var (
	whitespaceRun    = regexp.MustCompile(`\s+`)
	leadingNonAlpha  = regexp.MustCompile(`^[^a-z]+`)
	trailingNonAlpha = regexp.MustCompile(`[^a-z]+$`)
)

const fallbackNameLength = 40

// NormalizeProductName turns an invoice description into a product name.
// Normalizing a normalized name returns it unchanged.
func NormalizeProductName(description string) string {
	if name := stripToFixedPoint(description); name != "" {
		return name
	}

	fallback := truncateRunes(strings.ToLower(description), fallbackNameLength)
	if name := stripToFixedPoint(fallback); name != "" {
		return name
	}
	return fallback
}

func stripToFixedPoint(s string) string {
	// Underscores turn into spaces after the token passes, so "IQF_EACH"
	// only loses its tokens on the second pass. Removing one token can join
	// its neighbours into another, so nesting has no fixed depth. Past the
	// first pass the text is lowercase and no pass makes it longer, so this
	// terminates.
	for {
		next := stripOnce(s)
		if next == s {
			return next
		}
		s = next
	}
}

func stripOnce(s string) string {
	for _, re := range packagingTokens {
		s = re.ReplaceAllString(s, "")
	}
	s = strings.ReplaceAll(s, "_", " ")
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = strings.ToLower(strings.TrimSpace(s))
	s = leadingNonAlpha.ReplaceAllString(s, "")
	return trailingNonAlpha.ReplaceAllString(s, "")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
