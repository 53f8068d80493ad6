package identity

import (
	"reflect"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Identity
	}{
		{name: "plain", raw: "Large Anvil", want: Identity{ID: "large_anvil", DisplayName: "Large Anvil"}},
		{name: "lower case", raw: "large anvil", want: Identity{ID: "large_anvil", DisplayName: "Large Anvil"}},
		{name: "alias", raw: "Lg Anvil", want: Identity{ID: "large_anvil", DisplayName: "Large Anvil"}},
		{name: "condition prefix", raw: "Impure Iron Lump", want: Identity{ID: "iron_lump", DisplayName: "Iron Lump"}},
		{name: "no prefix", raw: "Iron Lump", want: Identity{ID: "iron_lump", DisplayName: "Iron Lump"}},
		{name: "material collapsed", raw: "Wheat Sleep Powder", want: Identity{ID: "sleep_powder", DisplayName: "Sleep Powder"}},
		{name: "sleeping powder alias", raw: "sleeping powder", want: Identity{ID: "sleep_powder", DisplayName: "Sleep Powder"}},
		{name: "healing cover", raw: "Oak Healing Cover", want: Identity{ID: "healing_cover", DisplayName: "Healing Cover"}},
		{name: "corroded", raw: "Corroded Bronze Plate", want: Identity{ID: "bronze_plate", DisplayName: "Bronze Plate"}},
		{name: "shattered alias", raw: "Shattered large anvil", want: Identity{ID: "large_anvil", DisplayName: "Large Anvil"}},
		{name: "service phrase only", raw: "Cleaning service", want: unknownIdentity},
		{name: "recruitment", raw: "Alliance recruitment", want: Identity{ID: "alliance", DisplayName: "Alliance"}},
		{name: "selling bulk", raw: "Selling bulk iron", want: Identity{ID: "iron", DisplayName: "Iron"}},
		{name: "cod display", raw: "cod", want: Identity{ID: "cod_filled", DisplayName: "CoD Filled"}},
		{name: "brackets and metrics", raw: "[Rare] Iron Lump QL:90.5 WT:1.00", want: Identity{ID: "iron_lump", DisplayName: "Iron Lump"}},
		{name: "bare ql", raw: "iron lump 90ql", want: Identity{ID: "iron_lump", DisplayName: "Iron Lump"}},
		{name: "empty", raw: "", want: unknownIdentity},
		{name: "whitespace", raw: "   \t", want: unknownIdentity},
		{name: "generic bulk", raw: "bulk", want: unknownIdentity},
		{name: "shout", raw: "@ Arcadia", want: unknownIdentity},
		{name: "command", raw: "!price iron", want: unknownIdentity},
		{name: "url", raw: "see https://example.org/shop", want: unknownIdentity},
		{name: "join line", raw: "Bob joined the channel", want: unknownIdentity},
		{name: "too short", raw: "ab", want: unknownIdentity},
		{name: "noise only", raw: "Rare Impure", want: unknownIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.raw); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Resolve(%q) got = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestResolve_Invariance(t *testing.T) {
	groups := [][]string{
		{"iron lump", "IRON LUMP", "Iron Lump [QL:50]", "5x iron lump", "x30 iron lump", "2k iron lump", "rare iron lump", "rusty iron lump"},
		{"large anvil", "Lg Anvil", "lg anvil [90ql]", "Broken Large Anvil", "10 large anvil"},
	}

	for _, group := range groups {
		want := Resolve(group[0]).ID
		for _, raw := range group[1:] {
			if got := Resolve(raw).ID; got != want {
				t.Errorf("Resolve(%q).ID got = %v, want %v", raw, got, want)
			}
		}
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Large Anvil", "large_anvil"},
		{"Sleep Powder (bulk)", "sleep_powder_bulk"},
		{"Bläck Lump", "bl_ck_lump"},
		{"Blöck Lump", "bl_ck_lump"},
	}
	for _, tt := range tests {
		if got := Slug(tt.in); got != tt.want {
			t.Errorf("Slug(%q) got = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestResolve_Deterministic(t *testing.T) {
	raw := "Supreme Steel Sword QL:88 [fine]"
	first := Resolve(raw)
	for i := 0; i < 5; i++ {
		if got := Resolve(raw); got != first {
			t.Fatalf("Resolve() not deterministic: %v != %v", got, first)
		}
	}
}

func TestParse_Quantity(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{raw: "iron lump", want: 1},
		{raw: "100x iron lump", want: 100},
		{raw: "x30 iron lump", want: 30},
		{raw: "2k iron lump", want: 2000},
		{raw: "iron lump x25", want: 25},
		{raw: "50 iron lump", want: 1},
		{raw: "7 iron lump", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := Parse(tt.raw)
			if got.Quantity != tt.want {
				t.Errorf("Parse(%q).Quantity got = %v, want %v", tt.raw, got.Quantity, tt.want)
			}
			if got.ID != "iron_lump" {
				t.Errorf("Parse(%q).ID got = %v, want iron_lump", tt.raw, got.ID)
			}
		})
	}
}

func TestInferCategory(t *testing.T) {
	tests := []struct {
		id   string
		want Category
	}{
		{"iron_lump", CategoryMetals},
		{"maple_plank", CategoryWood},
		{"sleep_powder", CategoryReagents},
		{"large_anvil", CategoryTools},
		{"chain_boot", CategoryArmor},
		{"long_sword", CategoryWeapons},
		{"cod_filled", CategoryMisc},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := InferCategory(tt.id); got != tt.want {
				t.Errorf("InferCategory() got = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolver_Cache(t *testing.T) {
	r := NewResolver(0)
	a := r.Resolve("Lg Anvil")
	b := r.Resolve("Lg Anvil")
	if a != b || a.ID != "large_anvil" {
		t.Errorf("Resolver.Resolve() got = %v and %v", a, b)
	}
	if r.Len() != 1 {
		t.Errorf("Resolver.Len() got = %v, want 1", r.Len())
	}
}

func TestCatalog_Search(t *testing.T) {
	c := NewCatalog()
	for _, raw := range []string{"Large Anvil", "Small Anvil", "Iron Lump", "Cleaning service"} {
		c.Add(Resolve(raw))
	}
	if c.Add(Resolve("lg anvil")) {
		t.Errorf("Catalog.Add() accepted a duplicate id")
	}

	got := c.Search("lg anvil", 5)
	if len(got) == 0 || got[0].ID != "large_anvil" {
		t.Errorf("Catalog.Search() got = %v, want large_anvil first", got)
	}
	if ids := c.IDs(); !reflect.DeepEqual(ids, []string{"iron_lump", "large_anvil", "small_anvil"}) {
		t.Errorf("Catalog.IDs() got = %v", ids)
	}
}
