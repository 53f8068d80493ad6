package parser

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tortaapp/tradewatch/tradewatch/identity"
	"github.com/tortaapp/tradewatch/tradewatch/pricing"
)

var day = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    ChatLine
		wantErr error
	}{
		{
			name: "local message",
			line: "[12:30:05] <Bob> WTS 100x iron lump 50c ea",
			want: ChatLine{
				Timestamp: time.Date(2025, 1, 10, 12, 30, 5, 0, time.UTC),
				Nick:      "Bob",
				Message:   "WTS 100x iron lump 50c ea",
			},
		},
		{
			name: "relayed from another server",
			line: "[08:00:00] <Alice> (Har) Imping services\r\n",
			want: ChatLine{
				Timestamp: time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC),
				Nick:      "Alice",
				Server:    "Harmony",
				Message:   "Imping services",
			},
		},
		{
			name: "unknown server tag",
			line: "[08:00:00] <Alice> (Zzz) hi all",
			want: ChatLine{
				Timestamp: time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC),
				Nick:      "Alice",
				Server:    "ZZZ",
				Message:   "hi all",
			},
		},
		{
			name: "nick without brackets",
			line: "[23:59:59] Carol: WTB clay",
			want: ChatLine{
				Timestamp: time.Date(2025, 1, 10, 23, 59, 59, 0, time.UTC),
				Nick:      "Carol",
				Message:   "WTB clay",
			},
		},
		{name: "no timestamp", line: "Logging started 2025-01-10", wantErr: ErrMalformedLine},
		{name: "bad clock", line: "[25:00:00] <Bob> WTS clay", wantErr: ErrMalformedLine},
		{name: "no message", line: "[10:00:00] Bob", wantErr: ErrMalformedLine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.line, day)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseLine() error = %v, want %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseLine() got = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseLogDate(t *testing.T) {
	got, ok := ParseLogDate("Logging started 2025-01-10", time.UTC)
	if !ok || !got.Equal(day) {
		t.Errorf("ParseLogDate() got = %v, %v, want %v, true", got, ok, day)
	}
	if _, ok := ParseLogDate("[10:00:00] <Bob> hi", time.UTC); ok {
		t.Errorf("ParseLogDate() matched a chat line")
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"50c", 50, false},
		{"1s", 100, false},
		{"1.5s", 150, false},
		{"1g", 10000, false},
		{"1g 50s", 15000, false},
		{"1s50c", 150, false},
		{"2 S 5 C", 205, false},
		{"2.25c", 2, false},
		{"free", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePrice(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePrice(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrInvalidPrice) {
			t.Errorf("ParsePrice(%q) error = %v, want ErrInvalidPrice", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParsePrice(%q) got = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFindPrice(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"WTS iron lump 50c/ea", "50c", true},
		{"WTS 1g 50s steel lump", "1g 50s", true},
		{"WTS 50 steel lumps", "", false},
		{"WTS 5 copper lumps 2s", "2s", true},
		{"WTB clay", "", false},
	}
	for _, tt := range tests {
		got, ok := FindPrice(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("FindPrice(%q) got = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFormatCopper(t *testing.T) {
	tests := map[int64]string{
		0:     "0c",
		-5:    "0c",
		5:     "5c",
		150:   "1s 50c",
		10000: "1g",
		15000: "1g 50s",
		15020: "1g 50s 20c",
	}
	for in, want := range tests {
		if got := FormatCopper(in); got != want {
			t.Errorf("FormatCopper(%d) got = %q, want %q", in, got, want)
		}
	}
}

func TestParser_ExtractTrade(t *testing.T) {
	p := NewParser(identity.NewResolver(0), pricing.DefaultTable(), "Cadence")
	ts := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		line    ChatLine
		want    pricing.TradeRecord
		wantErr error
	}{
		{
			name: "unit price with quantity",
			line: ChatLine{Timestamp: ts, Nick: "Bob", Message: "WTS 100x iron lump 50c ea"},
			want: pricing.TradeRecord{
				ItemID: "iron_lump", DisplayName: "Iron Lump", RawName: "100x iron lump",
				Price: 50, Quantity: 100, Material: "iron", Rarity: "Common",
				OrderType: pricing.OrderWTS, Seller: "Bob", Server: "Cadence", Timestamp: ts,
			},
		},
		{
			name: "lot total",
			line: ChatLine{Timestamp: ts, Nick: "Bob", Server: "Harmony", Message: "WTS 100x iron lump 50s total"},
			want: pricing.TradeRecord{
				ItemID: "iron_lump", DisplayName: "Iron Lump", RawName: "100x iron lump",
				Price: 50, Quantity: 100, Material: "iron", Rarity: "Common",
				OrderType: pricing.OrderWTS, Seller: "Bob", Server: "Harmony", Timestamp: ts,
			},
		},
		{
			name: "item link with quality",
			line: ChatLine{Timestamp: ts, Nick: "Alice", Message: "wtb [rare leather jacket] QL:70 1s"},
			want: pricing.TradeRecord{
				ItemID: "leather_jacket", DisplayName: "Leather Jacket", RawName: "rare leather jacket",
				Price: 100, Quantity: 1, Quality: 70, Rarity: "Rare",
				OrderType: pricing.OrderWTB, Seller: "Alice", Server: "Cadence", Timestamp: ts,
			},
		},
		{
			name: "price before the item",
			line: ChatLine{Timestamp: ts, Nick: "Dan", Message: "WTS 1g 50s glimmersteel lump ql 90"},
			want: pricing.TradeRecord{
				ItemID: "glimmersteel_lump", DisplayName: "Glimmersteel Lump", RawName: "glimmersteel lump",
				Price: 15000, Quantity: 1, Quality: 90, Material: "glimmersteel", Rarity: "Common",
				OrderType: pricing.OrderWTS, Seller: "Dan", Server: "Cadence", Timestamp: ts,
			},
		},
		{
			name: "no price",
			line: ChatLine{Timestamp: ts, Nick: "Eve", Message: "WTB clay, lots of it"},
			want: pricing.TradeRecord{
				ItemID: "clay", DisplayName: "Clay", RawName: "clay",
				Quantity: 1, Rarity: "Common",
				OrderType: pricing.OrderWTB, Seller: "Eve", Server: "Cadence", Timestamp: ts,
			},
		},
		{
			name:    "chatter",
			line:    ChatLine{Timestamp: ts, Nick: "Bob", Message: "hello everyone"},
			wantErr: ErrNotTrade,
		},
		{
			name:    "crafting noise",
			line:    ChatLine{Timestamp: ts, Nick: "Bob", Message: "WTS? you create a lump"},
			wantErr: ErrNotTrade,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ExtractTrade(tt.line)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ExtractTrade() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got.ID != TradeID(got) {
				t.Errorf("ExtractTrade() id = %v, want %v", got.ID, TradeID(got))
			}
			got.ID = ""
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractTrade() got = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTradeID(t *testing.T) {
	base := pricing.TradeRecord{
		ItemID:    "iron_lump",
		Price:     50,
		Seller:    "Bob",
		Server:    "Harmony",
		Timestamp: time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC),
	}

	id := TradeID(base)
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.Version() != 5 {
		t.Fatalf("TradeID() = %q is not a v5 uuid: %v", id, err)
	}

	same := base
	same.Timestamp = same.Timestamp.Add(2 * time.Minute)
	same.Seller = "BOB"
	if got := TradeID(same); got != id {
		t.Errorf("TradeID() within the window got = %v, want %v", got, id)
	}

	later := base
	later.Timestamp = later.Timestamp.Add(6 * time.Minute)
	if got := TradeID(later); got == id {
		t.Errorf("TradeID() outside the window should differ")
	}

	cheaper := base
	cheaper.Price = 40
	if got := TradeID(cheaper); got == id {
		t.Errorf("TradeID() with another price should differ")
	}
}

func TestIsNoise(t *testing.T) {
	tests := map[string]bool{
		"You create a large anvil.":  true,
		"The spell fizzles.":         true,
		"WTS large anvil 2s":         false,
		"You carefully start baking": true,
	}
	for msg, want := range tests {
		if got := IsNoise(msg); got != want {
			t.Errorf("IsNoise(%q) got = %v, want %v", msg, got, want)
		}
	}
}

func TestExtractTrade_BareNumberIsNotQuantity(t *testing.T) {
	p := NewParser(identity.NewResolver(0), pricing.DefaultTable(), "Cadence")
	line := ChatLine{Timestamp: time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC), Nick: "Bob", Message: "WTS 7 iron lump 2s total"}

	got, err := p.ExtractTrade(line)
	if err != nil {
		t.Fatalf("ExtractTrade() error = %v", err)
	}
	if got.Quantity != 1 {
		t.Errorf("ExtractTrade().Quantity got = %v, want 1", got.Quantity)
	}
	if got.Price != 200 {
		t.Errorf("ExtractTrade().Price got = %v, want 200", got.Price)
	}
	if got.ItemID != "iron_lump" {
		t.Errorf("ExtractTrade().ItemID got = %v, want iron_lump", got.ItemID)
	}
}
