package pricing

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DefaultKey is the fallback entry both lookup tables must define.
const DefaultKey = "default"

var (
	ErrMissingExponent   = errors.New("quality exponent table has no default entry")
	ErrMissingMaterial   = errors.New("material multiplier table has no default entry")
	ErrInvalidMultiplier = errors.New("table values must be positive")
)

// Table holds the static quality exponents (by item id) and material
// multipliers used to normalize prices onto a 50 quality baseline.
type Table struct {
	Exponents map[string]float64 `toml:"exponents"`
	Materials map[string]float64 `toml:"materials"`
}

// DefaultTable returns the built-in table.
func DefaultTable() Table {
	return Table{
		Exponents: map[string]float64{
			DefaultKey: 1.8,
		},
		Materials: map[string]float64{
			DefaultKey:     1.0,
			"iron":         1.0,
			"copper":       1.2,
			"steel":        1.5,
			"silver":       2.5,
			"gold":         3.0,
			"glimmersteel": 5.0,
			"seryll":       6.0,
			"adamantine":   7.0,
			"moonmetal":    8.5,
		},
	}
}

// LoadTable decodes a TOML file with [exponents] and [materials] sections.
// The result is validated before it is returned.
func LoadTable(path string) (Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("failed to open normalization table: %w", err)
	}
	defer file.Close()

	var t Table
	if err = toml.NewDecoder(file).Decode(&t); err != nil {
		return Table{}, fmt.Errorf("failed to decode normalization table: %w", err)
	}
	if err = t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}

// Validate reports a malformed table. Callers treat this as fatal.
func (t Table) Validate() error {
	if _, ok := t.Exponents[DefaultKey]; !ok {
		return ErrMissingExponent
	}
	if _, ok := t.Materials[DefaultKey]; !ok {
		return ErrMissingMaterial
	}
	for k, v := range t.Exponents {
		if v <= 0 {
			return fmt.Errorf("exponent %q = %v: %w", k, v, ErrInvalidMultiplier)
		}
	}
	for k, v := range t.Materials {
		if v <= 0 {
			return fmt.Errorf("material %q = %v: %w", k, v, ErrInvalidMultiplier)
		}
	}
	return nil
}

// Exponent returns the quality exponent for an item id.
func (t Table) Exponent(itemID string) float64 {
	if v, ok := t.Exponents[itemID]; ok {
		return v
	}
	return t.Exponents[DefaultKey]
}

// Multiplier returns the multiplier for a material tag. Lookup ignores case
// and spaces so "Moon Metal" and "moonmetal" agree.
func (t Table) Multiplier(material string) float64 {
	key := strings.ReplaceAll(strings.ToLower(material), " ", "")
	if v, ok := t.Materials[key]; ok {
		return v
	}
	return t.Materials[DefaultKey]
}
