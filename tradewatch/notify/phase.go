// Package notify posts market phase changes to a Discord channel.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/time/rate"

	"github.com/tortaapp/tradewatch/tradewatch/narrative"
	"github.com/tortaapp/tradewatch/tradewatch/parser"
)

// MessageSender is the part of rest.Rest the notifier uses.
type MessageSender interface {
	CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
}

type Config struct {
	Enabled   bool    `toml:"enabled"`
	Token     string  `toml:"token" validate:"required_if=Enabled true"`
	ChannelID string  `toml:"channel_id" validate:"required_if=Enabled true"`
	PerMinute float64 `toml:"per_minute"`
}

var phaseColors = map[string]int{
	"slate":   0x64748b,
	"purple":  0xa855f7,
	"red":     0xef4444,
	"amber":   0xf59e0b,
	"blue":    0x3b82f6,
	"emerald": 0x10b981,
}

// PhaseNotifier remembers the last phase of every item and announces
// changes. The first phase seen for an item is a baseline and is not
// announced.
type PhaseNotifier struct {
	sender    MessageSender
	channelID snowflake.ID
	limiter   *rate.Limiter

	mu   sync.Mutex
	last map[string]narrative.PhaseID
}

// New builds a notifier that posts through a Discord bot token.
func New(cfg Config) (*PhaseNotifier, error) {
	channelID, err := snowflake.Parse(cfg.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse notify channel id: %w", err)
	}
	client := rest.New(rest.NewClient(cfg.Token))
	return NewPhaseNotifier(client, channelID, cfg.PerMinute), nil
}

// NewPhaseNotifier posts at most perMinute messages a minute. perMinute of
// zero or less means 10.
func NewPhaseNotifier(sender MessageSender, channelID snowflake.ID, perMinute float64) *PhaseNotifier {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &PhaseNotifier{
		sender:    sender,
		channelID: channelID,
		limiter:   rate.NewLimiter(rate.Limit(perMinute/60), 1),
		last:      make(map[string]narrative.PhaseID),
	}
}

// Seed sets the known phase of an item without announcing it.
func (n *PhaseNotifier) Seed(itemID string, phase narrative.PhaseID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.last[itemID] = phase
}

// Observe records story's phase for itemID and posts an embed when it
// differs from the previous one. It reports whether a message was sent.
func (n *PhaseNotifier) Observe(ctx context.Context, itemID, displayName string, story narrative.Story, avgPrice float64) (bool, error) {
	n.mu.Lock()
	prev, known := n.last[itemID]
	n.last[itemID] = story.Phase.ID
	n.mu.Unlock()

	if !known || prev == story.Phase.ID {
		return false, nil
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("notify rate limit wait: %w", err)
	}

	embed := buildEmbed(displayName, prev, story, avgPrice)
	_, err := n.sender.CreateMessage(n.channelID, discord.MessageCreate{
		Embeds: []discord.Embed{embed},
	}, rest.WithCtx(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to send phase change for %s: %w", itemID, err)
	}

	slog.Info("Phase change announced",
		slog.String("type", "price"),
		slog.String("item", itemID),
		slog.String("from", string(prev)),
		slog.String("to", string(story.Phase.ID)))
	return true, nil
}

func buildEmbed(displayName string, prev narrative.PhaseID, story narrative.Story, avgPrice float64) discord.Embed {
	from := string(prev)
	if info, ok := narrative.PhaseInfo(prev); ok {
		from = info.Label
	}

	desc := fmt.Sprintf("%s %s\n**%s** → **%s**",
		story.Mood.Emoji, story.Mood.Description, from, story.Phase.Label)
	if len(story.Insights) > 0 {
		desc += "\n\n" + strings.Join(story.Insights, "\n")
	}

	eb := discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("📈 %s", displayName)).
		SetDescription(desc).
		SetColor(phaseColor(story.Phase.Color)).
		AddField("Recommendation", story.Phase.Recommendation, false).
		AddField("Confidence", fmt.Sprintf("%.0f%%", story.Phase.Confidence*100), true).
		SetTimestamp(time.Now())
	if avgPrice > 0 {
		eb.AddField("Avg price", parser.FormatCopper(int64(avgPrice+0.5)), true)
	}
	return eb.Build()
}

func phaseColor(name string) int {
	if c, ok := phaseColors[name]; ok {
		return c
	}
	return 0x2b2d31
}
