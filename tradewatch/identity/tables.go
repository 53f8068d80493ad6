package identity

// SemanticRule collapses every name containing Match onto a single canonical
// name, regardless of any material prefix in front of it.
type SemanticRule struct {
	Match     string
	Canonical string
	// Suffix restricts the rule to names ending in Match.
	Suffix bool
}

// Aliases maps a fully cleaned name to its canonical spelling.
// Only exact matches are rewritten.
var Aliases = map[string]string{
	"lg anvil":        "large anvil",
	"sm anvil":        "small anvil",
	"lg maul":         "large maul",
	"sm maul":         "small maul",
	"cod":             "cod filled",
	"sleeping powder": "sleep powder",
	"farming":         "farm",
}

// SemanticRules are applied in order after alias lookup; the first match wins.
var SemanticRules = []SemanticRule{
	{Match: "sleep powder", Canonical: "sleep powder"},
	{Match: "healing cover", Canonical: "healing cover", Suffix: true},
}

// noiseWords never carry identity: rarity, condition and filler tokens.
var noiseWords = map[string]struct{}{
	// rarity
	"rare": {}, "supreme": {}, "fantastic": {}, "common": {},
	// condition
	"impure": {}, "shattered": {}, "unfinished": {}, "corroded": {},
	"broken": {}, "damaged": {}, "rusty": {}, "crumbling": {},
	// filler
	"ql": {}, "wt": {}, "dmg": {}, "ea": {}, "each": {}, "x": {},
	"completed": {}, "quality": {},
}

// serviceWords mark advert phrasing rather than an item.
var serviceWords = map[string]struct{}{
	"cleaning":    {},
	"organizing":  {},
	"sorting":     {},
	"bulk":        {},
	"service":     {},
	"services":    {},
	"recruitment": {},
	"hiring":      {},
	"selling":     {},
	"buying":      {},
	"trading":     {},
}

// displayOverrides fix casing that title-casing gets wrong.
var displayOverrides = map[string]string{
	"cod_filled": "CoD Filled",
}

var systemPhrases = []string{
	"joined the channel",
	"left the channel",
}
