package services

import "strings"

// Category is a kind of service a trader advertises.
type Category string

const (
	CategoryImping      Category = "Imping"
	CategorySmithing    Category = "Smithing"
	CategoryLeatherwork Category = "Leatherworking"
	CategoryTailoring   Category = "Tailoring"
	CategoryMasonry     Category = "Masonry"
	CategoryEnchanting  Category = "Enchanting"
	CategoryLogistics   Category = "Logistics"
	CategoryOther       Category = "Other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryImping,
	CategorySmithing,
	CategoryLeatherwork,
	CategoryTailoring,
	CategoryMasonry,
	CategoryEnchanting,
	CategoryLogistics,
	CategoryOther,
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}
