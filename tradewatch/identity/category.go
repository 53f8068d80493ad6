package identity

import "strings"

type Category string

const (
	CategoryMetals   Category = "Metals"
	CategoryWood     Category = "Wood"
	CategoryReagents Category = "Reagents"
	CategoryTools    Category = "Tools"
	CategoryArmor    Category = "Armor"
	CategoryWeapons  Category = "Weapons"
	CategoryMisc     Category = "Misc"
)

var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryMetals, []string{"lump", "bar"}},
	{CategoryWood, []string{"plank", "log"}},
	{CategoryReagents, []string{"powder", "shred"}},
	{CategoryTools, []string{"anvil", "hammer", "whetstone", "rope"}},
	{CategoryArmor, []string{"helm", "breastplate", "leggings", "sleeve", "glove", "boot"}},
	{CategoryWeapons, []string{"sword", "axe", "maul", "blade", "knife"}},
}

// InferCategory guesses a coarse market category from a canonical id.
func InferCategory(id string) Category {
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(id, kw) {
				return c.category
			}
		}
	}
	return CategoryMisc
}
