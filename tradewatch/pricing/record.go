package pricing

import (
	"math"
	"regexp"
	"time"
)

var reLotMarker = regexp.MustCompile(`(?i)\b(total|bulk|lot|all)\b`)

type OrderType string

const (
	OrderWTB     OrderType = "WTB"
	OrderWTS     OrderType = "WTS"
	OrderWTT     OrderType = "WTT"
	OrderUnknown OrderType = "UNKNOWN"
)

// ParseOrderType maps a chat marker to an OrderType.
func ParseOrderType(s string) OrderType {
	switch OrderType(s) {
	case OrderWTB, OrderWTS, OrderWTT:
		return OrderType(s)
	default:
		return OrderUnknown
	}
}

// TradeRecord is one observed trade or offer. Price is per single unit in
// copper; Quality of zero means unknown.
type TradeRecord struct {
	ID          string    `json:"id"`
	ItemID      string    `json:"itemId"`
	DisplayName string    `json:"displayName"`
	RawName     string    `json:"rawName"`
	Price       int64     `json:"price"`
	Quantity    int       `json:"quantity"`
	Quality     float64   `json:"quality"`
	Material    string    `json:"material"`
	Rarity      string    `json:"rarity"`
	OrderType   OrderType `json:"orderType"`
	Seller      string    `json:"seller"`
	Server      string    `json:"server"`
	Timestamp   time.Time `json:"timestamp"`
}

func (r TradeRecord) valid() bool {
	return r.Price > 0
}

func (r TradeRecord) quantity() int {
	if r.Quantity < 1 {
		return 1
	}
	return r.Quantity
}

// NormalizeLot turns a quoted price into a unit price. A price for several
// units is only treated as a lot total when text says so.
func NormalizeLot(price int64, quantity int, text string) int64 {
	if quantity <= 1 || !reLotMarker.MatchString(text) {
		return price
	}
	return int64(math.Round(float64(price) / float64(quantity)))
}
