// Package narrative turns an item's daily price history and volatility into
// a market phase, a mood and a few plain-language insights.
package narrative

type PhaseID string

const (
	PhaseDormant    PhaseID = "DORMANT"
	PhaseStable     PhaseID = "STABLE"
	PhaseGrowing    PhaseID = "GROWING"
	PhaseInflated   PhaseID = "INFLATED"
	PhaseCollapsing PhaseID = "COLLAPSING"
	PhaseChaotic    PhaseID = "CHAOTIC"
)

type MoodID string

const (
	MoodBored      MoodID = "BORED"
	MoodPeaceful   MoodID = "PEACEFUL"
	MoodOptimistic MoodID = "OPTIMISTIC"
	MoodEuphoric   MoodID = "EUPHORIC"
	MoodNervous    MoodID = "NERVOUS"
	MoodPanicked   MoodID = "PANICKED"
	MoodDepressed  MoodID = "DEPRESSED"
)

// Phase is the presentation data attached to a phase. None of it is
// computed; it is looked up by ID.
type Phase struct {
	ID             PhaseID  `json:"id"`
	Label          string   `json:"label"`
	Confidence     float64  `json:"confidence"`
	Explanation    []string `json:"explanation"`
	Recommendation string   `json:"recommendation"`
	Color          string   `json:"color"`
}

type Mood struct {
	ID          MoodID `json:"id"`
	Label       string `json:"label"`
	Emoji       string `json:"emoji"`
	Description string `json:"description"`
}

var phases = map[PhaseID]Phase{
	PhaseDormant: {
		ID:             PhaseDormant,
		Label:          "Dormant",
		Confidence:     0.9,
		Explanation:    []string{"Volume is negligible", "Very rare trades detected"},
		Recommendation: "Only produce on demand.",
		Color:          "slate",
	},
	PhaseChaotic: {
		ID:             PhaseChaotic,
		Label:          "Chaotic",
		Confidence:     0.8,
		Explanation:    []string{"Extreme price volatility detected", "Market behaviour is erratic"},
		Recommendation: "High risk. Avoid unless arbitrage trading.",
		Color:          "purple",
	},
	PhaseCollapsing: {
		ID:             PhaseCollapsing,
		Label:          "Collapsing",
		Confidence:     0.85,
		Explanation:    []string{"Price trend is sharply negative", "Volatility is elevated"},
		Recommendation: "Do not buy. Wait for bottom.",
		Color:          "red",
	},
	PhaseInflated: {
		ID:             PhaseInflated,
		Label:          "Inflated",
		Confidence:     0.75,
		Explanation:    []string{"Prices rising fast with low liquidity", "Possible speculative bubble"},
		Recommendation: "Sell into strength. Do not buy.",
		Color:          "amber",
	},
	PhaseGrowing: {
		ID:             PhaseGrowing,
		Label:          "Growing",
		Confidence:     0.8,
		Explanation:    []string{"Steady upward price trend", "Volatility is regular"},
		Recommendation: "Good time to enter production.",
		Color:          "blue",
	},
	PhaseStable: {
		ID:             PhaseStable,
		Label:          "Stable",
		Confidence:     0.9,
		Explanation:    []string{"Prices are consistent over 7 days", "Healthy volume flow"},
		Recommendation: "Safe for regular bulk trading.",
		Color:          "emerald",
	},
}

// insufficient is reported when there is too little history to classify.
var insufficient = Phase{
	ID:             PhaseDormant,
	Label:          "Dormant",
	Confidence:     1.0,
	Explanation:    []string{"Not enough data to determine active phase."},
	Recommendation: "Market is likely inactive.",
	Color:          "slate",
}

var moods = map[PhaseID]Mood{
	PhaseDormant:    {ID: MoodBored, Label: "Bored", Emoji: "💤", Description: "Nothing happening."},
	PhaseStable:     {ID: MoodPeaceful, Label: "Peaceful", Emoji: "😌", Description: "Business as usual."},
	PhaseChaotic:    {ID: MoodPanicked, Label: "Panicked", Emoji: "😱", Description: "Traders are losing their minds."},
	PhaseInflated:   {ID: MoodEuphoric, Label: "Euphoric", Emoji: "🤑", Description: "Greed is driving prices up."},
	PhaseCollapsing: {ID: MoodDepressed, Label: "Depressed", Emoji: "📉", Description: "Sentiment is bearish."},
	PhaseGrowing:    {ID: MoodOptimistic, Label: "Optimistic", Emoji: "🚀", Description: "Buyers are confident."},
}

var unknownMood = Mood{ID: MoodNervous, Label: "Nervous", Emoji: "😬", Description: "Uncertain future."}

// PhaseInfo returns the presentation data for id.
func PhaseInfo(id PhaseID) (Phase, bool) {
	p, ok := phases[id]
	if !ok {
		return Phase{}, false
	}
	p.Explanation = append([]string(nil), p.Explanation...)
	return p, true
}

// MoodFor maps a phase to its mood one to one.
func MoodFor(id PhaseID) Mood {
	if m, ok := moods[id]; ok {
		return m
	}
	return unknownMood
}
