package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	CopperPerSilver = 100
	CopperPerGold   = 10000
)

var (
	// rePriceToken finds a whole price such as "50c", "1.5s" or "1g 20s".
	rePriceToken = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*[gsc](?:\s*\d+(?:\.\d+)?\s*[gsc])*\b`)
	rePricePart  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*([gsc])`)
)

var coinValue = map[string]decimal.Decimal{
	"g": decimal.NewFromInt(CopperPerGold),
	"s": decimal.NewFromInt(CopperPerSilver),
	"c": decimal.NewFromInt(1),
}

// ParsePrice converts a price written in gold, silver and copper into
// copper. Fractions of a copper are rounded half away from zero.
func ParsePrice(s string) (int64, error) {
	parts := rePricePart.FindAllStringSubmatch(s, -1)
	if len(parts) == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	total := decimal.Zero
	for _, p := range parts {
		amount, err := decimal.NewFromString(p[1])
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", ErrInvalidPrice, s, err)
		}
		total = total.Add(amount.Mul(coinValue[strings.ToLower(p[2])]))
	}
	return total.Round(0).IntPart(), nil
}

// FindPrice returns the first price token in message.
func FindPrice(message string) (string, bool) {
	loc := rePriceToken.FindStringIndex(message)
	if loc == nil {
		return "", false
	}
	return message[loc[0]:loc[1]], true
}

// FormatCopper renders copper as coins, largest first: 15020 is "1g 50s 20c".
func FormatCopper(copper int64) string {
	if copper <= 0 {
		return "0c"
	}
	var parts []string
	if g := copper / CopperPerGold; g > 0 {
		parts = append(parts, fmt.Sprintf("%dg", g))
	}
	if s := copper % CopperPerGold / CopperPerSilver; s > 0 {
		parts = append(parts, fmt.Sprintf("%ds", s))
	}
	if c := copper % CopperPerSilver; c > 0 {
		parts = append(parts, fmt.Sprintf("%dc", c))
	}
	return strings.Join(parts, " ")
}
