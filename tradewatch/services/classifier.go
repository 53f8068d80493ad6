package services

import (
	"math"
	"regexp"
	"strings"
)

const (
	baseConfidence     = 0.5
	fallbackConfidence = 0.4
	minAdvertLength    = 4
	itemListMaxNumbers = 3
	itemListMaxSlashes = 2
)

var (
	reServerTag   = regexp.MustCompile(`^\s*\(\w{3}\)\s*`)
	reBrackets    = regexp.MustCompile(`\[[^\]]*\]`)
	reWhitespace  = regexp.MustCompile(`\s+`)
	reKillSwitch  = regexp.MustCompile(`\b(wtb|pc|wtt)\b`)
	reInquiry     = regexp.MustCompile(`\b(anyone|any1|where|who)\b`)
	reNumeric     = regexp.MustCompile(`\b\d+(?:\.\d+)?\s*(?:[gsc]|ql|k|x|ea)?\b`)
	reServiceVerb = regexp.MustCompile(`\b(imp|improve|cast|enchant|deliver|haul|repair|service|services|serve|offering|hiring|rent|sell|doing)\b`)
	reServiceWord = regexp.MustCompile(`\bservices?\b`)
	reLink        = regexp.MustCompile(`(?i)https?://\S+|discord\.gg/\S+|forum\.wurmonline\.com/\S+`)
)

// Intent is one detected service with the classifier's confidence in it.
type Intent struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
}

// Classifier detects service adverts in chat messages. It is stateless and
// safe for concurrent use.
type Classifier struct {
	boosts []Rule
	rules  []Rule
}

// NewClassifier builds a classifier from the default rule tables.
func NewClassifier() *Classifier {
	c, err := NewClassifierWithRules(BoostRules(), CategoryRules())
	if err != nil {
		panic(err)
	}
	return c
}

// NewClassifierWithRules compiles custom rule tables.
func NewClassifierWithRules(boosts, rules []Rule) (*Classifier, error) {
	c := &Classifier{
		boosts: append([]Rule(nil), boosts...),
		rules:  append([]Rule(nil), rules...),
	}
	for i := range c.boosts {
		if err := c.boosts[i].compile(); err != nil {
			return nil, err
		}
	}
	for i := range c.rules {
		if err := c.rules[i].compile(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Classify returns every service advertised in message, in rule order.
// Requests, price checks, questions and plain item lists yield nothing.
func (c *Classifier) Classify(message string) []Intent {
	text := strings.ToLower(reServerTag.ReplaceAllString(message, ""))
	text = strings.TrimSpace(reWhitespace.ReplaceAllString(reBrackets.ReplaceAllString(text, " "), " "))

	if reKillSwitch.MatchString(text) || reInquiry.MatchString(text) {
		return nil
	}
	if len(text) < minAdvertLength {
		return nil
	}

	hasVerb := reServiceVerb.MatchString(text)
	if !hasVerb && isItemList(text) {
		return nil
	}

	confidence := baseConfidence
	for i := range c.boosts {
		if c.boosts[i].Match(text, hasVerb) {
			confidence += c.boosts[i].Delta
		}
	}

	var intents []Intent
	seen := make(map[Category]int)
	for i := range c.rules {
		r := &c.rules[i]
		if !r.Match(text, hasVerb) {
			continue
		}
		conf := math.Min(confidence+r.Delta, 1.0)
		if idx, ok := seen[r.Category]; ok {
			intents[idx].Confidence = math.Max(intents[idx].Confidence, conf)
			continue
		}
		seen[r.Category] = len(intents)
		intents = append(intents, Intent{Category: r.Category, Confidence: conf})
	}

	if len(intents) == 0 && reServiceWord.MatchString(text) {
		return []Intent{{Category: CategoryOther, Confidence: fallbackConfidence}}
	}
	return intents
}

// ExtractLink returns the first forum, Discord or web link in message.
func ExtractLink(message string) string {
	return reLink.FindString(message)
}

// isItemList spots "for sale" lists: many prices or quantities, or items
// separated by slashes. Links are ignored when counting slashes.
func isItemList(text string) bool {
	withoutLinks := reLink.ReplaceAllString(text, " ")
	if strings.Count(withoutLinks, "/") > itemListMaxSlashes {
		return true
	}
	return len(reNumeric.FindAllString(withoutLinks, -1)) > itemListMaxNumbers
}
