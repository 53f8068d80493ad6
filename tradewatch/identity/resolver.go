// Package identity turns free-text item names from trade chat into stable
// canonical identities.
package identity

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Unknown is the sentinel id for text that does not name an item.
const Unknown = "unknown"

const minIDLength = 3

var (
	reBrackets    = regexp.MustCompile(`\[[^\]]*\]`)
	reMetric      = regexp.MustCompile(`\b(?:ql|dmg|wt)[:\s]*[\d.]+`)
	reBareQL      = regexp.MustCompile(`\b\d+(?:\.\d+)?ql\b`)
	reTrailingQty = regexp.MustCompile(`\sx\d+\b`)
	reQuantity    = regexp.MustCompile(`^(?:(\d+)(k|x)|x(\d+))$`)
	reNumber      = regexp.MustCompile(`^[\d.]+$`)
	reSplit       = regexp.MustCompile(`[\s\-]+`)
	reNonSlug     = regexp.MustCompile(`[^a-z0-9]+`)
	reURL         = regexp.MustCompile(`https?://|www\.|discord\.gg/`)
)

// Identity is the canonical form of an item name. ID is the grouping key,
// DisplayName is cosmetic.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// IsUnknown reports whether the identity is the noise sentinel.
func (i Identity) IsUnknown() bool {
	return i.ID == Unknown
}

// Resolution is an Identity plus the quantity context stripped from the raw
// text. Quantity never influences the identity.
type Resolution struct {
	Identity
	Quantity int
}

var unknownIdentity = Identity{ID: Unknown, DisplayName: "Unknown"}

// Resolve maps a raw item name to its canonical identity.
func Resolve(raw string) Identity {
	return Parse(raw).Identity
}

// Parse resolves raw and also reports the leading quantity token, if any.
func Parse(raw string) Resolution {
	res := Resolution{Identity: unknownIdentity, Quantity: 1}

	cleaned := strings.ToLower(strings.TrimSpace(raw))
	if cleaned == "" || isChatNoise(cleaned) {
		return res
	}

	cleaned = reBrackets.ReplaceAllString(cleaned, " ")
	cleaned = reMetric.ReplaceAllString(cleaned, " ")
	cleaned = reBareQL.ReplaceAllString(cleaned, " ")
	cleaned = strings.ReplaceAll(cleaned, "looking for", " ")
	if m := reTrailingQty.FindString(cleaned); m != "" {
		if q, ok := parseQuantity(strings.TrimSpace(m)); ok {
			res.Quantity = q
		}
		cleaned = strings.Replace(cleaned, m, " ", 1)
	}

	words := make([]string, 0, 4)
	seenQuantity := false
	for _, w := range reSplit.Split(cleaned, -1) {
		if w == "" {
			continue
		}
		if _, ok := noiseWords[w]; ok {
			continue
		}
		if _, ok := serviceWords[w]; ok {
			continue
		}
		if !seenQuantity && len(words) == 0 {
			if q, ok := parseQuantity(w); ok {
				res.Quantity = q
				seenQuantity = true
				continue
			}
		}
		if reNumber.MatchString(w) {
			continue
		}
		words = append(words, w)
	}

	name := strings.Join(words, " ")
	if alias, ok := Aliases[name]; ok {
		name = alias
	}
	name = applySemanticRules(name)

	id := Slug(name)
	if len(id) < minIDLength {
		return res
	}

	display, ok := displayOverrides[id]
	if !ok {
		display = titleCase(name)
	}
	res.Identity = Identity{ID: id, DisplayName: display}
	return res
}

// Slug lowercases s and collapses every run of non-alphanumerics to "_".
// Non-ASCII letters collapse too, so ids stay compatible with existing data.
func Slug(s string) string {
	return strings.Trim(reNonSlug.ReplaceAllString(strings.ToLower(s), "_"), "_")
}

func isChatNoise(s string) bool {
	if strings.HasPrefix(s, "@") || strings.HasPrefix(s, "!") {
		return true
	}
	for _, p := range systemPhrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return reURL.MatchString(s)
}

func applySemanticRules(name string) string {
	for _, rule := range SemanticRules {
		if rule.Suffix {
			if strings.HasSuffix(name, rule.Match) {
				return rule.Canonical
			}
			continue
		}
		if strings.Contains(name, rule.Match) {
			return rule.Canonical
		}
	}
	return name
}

func parseQuantity(tok string) (int, bool) {
	m := reQuantity.FindStringSubmatch(tok)
	if m == nil {
		return 0, false
	}
	digits := m[1]
	if digits == "" {
		digits = m[3]
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, false
	}
	if m[2] == "k" {
		n *= 1000
	}
	return n, true
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
