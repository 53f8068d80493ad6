package parser

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tortaapp/tradewatch/tradewatch/identity"
	"github.com/tortaapp/tradewatch/tradewatch/pricing"
)

const (
	rarityCommon    = "Common"
	rarityRare      = "Rare"
	raritySupreme   = "Supreme"
	rarityFantastic = "Fantastic"

	// dedupWindow groups repeated adverts of the same offer.
	dedupWindow = 5 * time.Minute
)

var (
	reOrder     = regexp.MustCompile(`(?i)\b(wts|wtb|wtt)\b`)
	reQuality   = regexp.MustCompile(`(?i)\bql[:\s]*(\d+(?:\.\d+)?)|\b(\d+(?:\.\d+)?)\s*ql\b`)
	reFantastic = regexp.MustCompile(`(?i)\bfantastic\b`)
	reSupreme   = regexp.MustCompile(`(?i)\bsupreme\b`)
	reRare      = regexp.MustCompile(`(?i)\brare\b`)
	reItemLink  = regexp.MustCompile(`\[([^\]]+)\]`)
	rePunct     = regexp.MustCompile(`[,:;>/|!?()]+`)
	reFiller    = regexp.MustCompile(`(?i)\b(for|each|ea|per|total|lot|all|pm|me|cheap|obo|offers?|price)\b`)
)

var tradeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://tradewatch/trade"))

var noiseTriggers = []string{
	"you create", "you improve", "you continue", "finished",
	"starts to", "fizzles", "fails", "you carefully",
}

// Parser extracts trade records from chat lines. It is safe for
// concurrent use.
type Parser struct {
	resolver      *identity.Resolver
	materials     []material
	defaultServer string
}

type material struct {
	name string
	re   *regexp.Regexp
}

// NewParser builds a parser that recognises the materials in table. Lines
// without a server tag are attributed to defaultServer.
func NewParser(resolver *identity.Resolver, table pricing.Table, defaultServer string) *Parser {
	materials := make([]string, 0, len(table.Materials))
	for m := range table.Materials {
		if m != pricing.DefaultKey {
			materials = append(materials, m)
		}
	}
	// Longest first so "glimmersteel" wins over "steel".
	sort.Slice(materials, func(i, j int) bool {
		if len(materials[i]) != len(materials[j]) {
			return len(materials[i]) > len(materials[j])
		}
		return materials[i] < materials[j]
	})
	compiled := make([]material, len(materials))
	for i, m := range materials {
		compiled[i] = material{name: m, re: regexp.MustCompile(`\b` + regexp.QuoteMeta(m) + `\b`)}
	}
	return &Parser{
		resolver:      resolver,
		materials:     compiled,
		defaultServer: defaultServer,
	}
}

// ExtractTrade turns a WTS, WTB or WTT message into a trade record. A
// message without a price still yields a record, with Price zero.
func (p *Parser) ExtractTrade(line ChatLine) (pricing.TradeRecord, error) {
	msg := line.Message
	order := reOrder.FindStringSubmatch(msg)
	if order == nil || IsNoise(msg) {
		return pricing.TradeRecord{}, ErrNotTrade
	}

	var price int64
	priceToken, hasPrice := FindPrice(msg)
	if hasPrice {
		var err error
		if price, err = ParsePrice(priceToken); err != nil {
			return pricing.TradeRecord{}, fmt.Errorf("failed to parse price: %w", err)
		}
	}

	rawName := itemText(msg, priceToken)
	res := p.resolver.Parse(rawName)

	server := line.Server
	if server == "" {
		server = p.defaultServer
	}

	r := pricing.TradeRecord{
		ItemID:      res.ID,
		DisplayName: res.DisplayName,
		RawName:     rawName,
		Price:       pricing.NormalizeLot(price, res.Quantity, msg),
		Quantity:    res.Quantity,
		Quality:     quality(msg),
		Material:    p.detectMaterial(rawName),
		Rarity:      rarity(msg),
		OrderType:   pricing.ParseOrderType(strings.ToUpper(order[1])),
		Seller:      line.Nick,
		Server:      server,
		Timestamp:   line.Timestamp,
	}
	r.ID = TradeID(r)
	return r, nil
}

// TradeID is a stable id for an offer: the same seller advertising the
// same item at the same price within five minutes gets the same id.
func TradeID(r pricing.TradeRecord) string {
	window := r.Timestamp.Unix() / int64(dedupWindow/time.Second)
	key := strings.Join([]string{
		strings.ToLower(strings.TrimSpace(r.Server)),
		strings.ToLower(strings.TrimSpace(r.Seller)),
		r.ItemID,
		strconv.FormatInt(r.Price, 10),
		strconv.FormatInt(window, 10),
	}, "|")
	return uuid.NewSHA1(tradeNamespace, []byte(key)).String()
}

// IsNoise reports crafting and skill messages that leak into trade logs.
func IsNoise(message string) bool {
	lower := strings.ToLower(message)
	for _, t := range noiseTriggers {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// itemText isolates the item name: an item link if there is one, otherwise
// the words before the price (or after it, when the price comes first).
func itemText(msg, priceToken string) string {
	if m := reItemLink.FindStringSubmatch(msg); m != nil {
		return cleanName(m[1])
	}

	text := reOrder.ReplaceAllString(msg, " ")
	if priceToken != "" {
		before, after, _ := strings.Cut(text, priceToken)
		text = before
		if strings.TrimSpace(rePunct.ReplaceAllString(before, " ")) == "" {
			text = after
		}
	}
	if first, _, ok := strings.Cut(text, ","); ok && strings.TrimSpace(first) != "" {
		text = first
	}
	return cleanName(text)
}

func cleanName(s string) string {
	s = reQuality.ReplaceAllString(s, " ")
	s = reFiller.ReplaceAllString(s, " ")
	s = rePunct.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

func quality(msg string) float64 {
	m := reQuality.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}
	v := m[1]
	if v == "" {
		v = m[2]
	}
	q, err := strconv.ParseFloat(v, 64)
	if err != nil || q < 0 || q > 100 {
		return 0
	}
	return q
}

func rarity(msg string) string {
	switch {
	case reFantastic.MatchString(msg):
		return rarityFantastic
	case reSupreme.MatchString(msg):
		return raritySupreme
	case reRare.MatchString(msg):
		return rarityRare
	default:
		return rarityCommon
	}
}

func (p *Parser) detectMaterial(name string) string {
	lower := strings.ToLower(name)
	for _, m := range p.materials {
		if m.re.MatchString(lower) {
			return m.name
		}
	}
	return ""
}
