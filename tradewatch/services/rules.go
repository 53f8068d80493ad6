package services

import (
	"fmt"
	"regexp"
)

// Rule is one row of the classification table. A rule fires when any of its
// Patterns matches, or when any Qualifier matches in a message that also
// carries a service verb. Rules without a Category only adjust the base
// confidence by Delta; rules with one emit that category at base + Delta.
type Rule struct {
	Name       string
	Category   Category
	Patterns   []string
	Qualifiers []string
	Delta      float64

	compiled   []*regexp.Regexp
	qualifiers []*regexp.Regexp
}

func (r *Rule) compile() error {
	r.compiled = r.compiled[:0]
	r.qualifiers = r.qualifiers[:0]
	for _, raw := range r.Patterns {
		re, err := regexp.Compile(raw)
		if err != nil {
			return fmt.Errorf("rule %s: invalid pattern %q: %w", r.Name, raw, err)
		}
		r.compiled = append(r.compiled, re)
	}
	for _, raw := range r.Qualifiers {
		re, err := regexp.Compile(raw)
		if err != nil {
			return fmt.Errorf("rule %s: invalid qualifier %q: %w", r.Name, raw, err)
		}
		r.qualifiers = append(r.qualifiers, re)
	}
	return nil
}

// Match reports whether the rule fires on text.
func (r *Rule) Match(text string, hasVerb bool) bool {
	for _, re := range r.compiled {
		if re.MatchString(text) {
			return true
		}
	}
	if !hasVerb {
		return false
	}
	for _, re := range r.qualifiers {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// BoostRules raise the base confidence of any advert that carries them.
func BoostRules() []Rule {
	return []Rule{
		{
			Name:     "generic_indicator",
			Patterns: []string{`\b(free|tips?|donations?|casting|hiring|rent|renting|taxi)\b`},
			Delta:    0.1,
		},
		{
			Name:     "leading_wts",
			Patterns: []string{`^wts\b`},
			Delta:    0.1,
		},
		{
			Name:     "location",
			Patterns: []string{`@\s*\w+`},
			Delta:    0.1,
		},
		{
			Name:     "link",
			Patterns: []string{`https?://\S+|discord\.gg/\S+|forum\.wurmonline\.com/\S+`},
			Delta:    0.1,
		},
	}
}

// CategoryRules detect individual services. Masonry and enchanting words
// also describe goods for sale, so their material and spell vocabulary only
// counts next to a service verb.
func CategoryRules() []Rule {
	return []Rule{
		{
			Name:     "imping",
			Category: CategoryImping,
			Patterns: []string{`\b(imp|imps|imping|improve|improving)\b`},
			Delta:    0.2,
		},
		{
			Name:     "smithing",
			Category: CategorySmithing,
			Patterns: []string{`\b(smith|smithing|blacksmith|blacksmithing|bs)\b`},
			Delta:    0.2,
		},
		{
			Name:     "leatherwork",
			Category: CategoryLeatherwork,
			Patterns: []string{`\b(leatherworking|leatherwork|leatherworker)\b`},
			Delta:    0.3,
		},
		{
			Name:     "tailoring",
			Category: CategoryTailoring,
			Patterns: []string{`\b(tailor|tailoring)\b`},
			Delta:    0.2,
		},
		{
			Name:       "masonry",
			Category:   CategoryMasonry,
			Patterns:   []string{`\b(masonry|mason|stonecutting)\b`},
			Qualifiers: []string{`\b(stone|stones|brick|bricks|marble|slate|mortar)\b`},
			Delta:      0.2,
		},
		{
			Name:       "enchanting",
			Category:   CategoryEnchanting,
			Patterns:   []string{`\b(enchant|enchants|enchanting|enchanter|casting|caster)\b`},
			Qualifiers: []string{`\b(coc|woa|fa|botd|aoe|nim|nimbleness|ms|mindstealer|lt|frostbrand|rt)\b`},
			Delta:      0.3,
		},
		{
			Name:     "logistics",
			Category: CategoryLogistics,
			Patterns: []string{`\b(haul|hauling|taxi|transport|courier|delivery|deliver|wagon|logistics|shipping)\b`},
			Delta:    0.3,
		},
	}
}
