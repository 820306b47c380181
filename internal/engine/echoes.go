package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/belindacoding/liminal-hotel/internal/agents"
	"github.com/belindacoding/liminal-hotel/internal/economy"
	"github.com/belindacoding/liminal-hotel/internal/entropy"
)

var echoNames = map[economy.Sentiment][]string{
	economy.Painful: {
		"Echo of weeping in the wine cellar",
		"Residue of a goodbye no one heard",
		"The weight someone left behind",
		"A scream that the walls absorbed",
		"Afterimage of a door closing forever",
	},
	economy.Happy: {
		"Echo of laughter in the lobby",
		"Residue of a first dance, half-remembered",
		"The warmth someone forgot to take",
		"A smile the fireplace kept",
		"Afterglow of a reunion at the rooftop",
	},
	economy.Neutral: {
		"Echo of footsteps going nowhere",
		"Residue of a conversation lost mid-sentence",
		"Something the gallery mirrors reflected back",
		"A thought that got stuck between floors",
		"The pause between one guest leaving and another arriving",
	},
}

var echoDescriptions = map[economy.Sentiment][]string{
	economy.Painful: {
		"Born from the emotional residue of recent painful exchanges. It hums with sorrow.",
		"The hotel absorbed too much grief. This is what condensed.",
		"When enough pain changes hands, the walls start to weep. This is a tear.",
	},
	economy.Happy: {
		"Born from the emotional residue of recent joyful exchanges. It glows faintly.",
		"The hotel absorbed too much joy. This is what crystallized.",
		"When enough happiness circulates, the hotel produces something worth keeping.",
	},
	economy.Neutral: {
		"Born from the emotional residue of recent exchanges. It feels ambiguous.",
		"The hotel watched the trades and produced this. Neither happy nor sad, just real.",
		"A memory that belongs to no one and everyone. The hotel's own.",
	},
}

// sentimentWindow is how many recent trades shape an echo's sentiment.
const sentimentWindow = 10

// onTradeCompleted produces an echo every EchoCadence trades while fewer
// than EchoCap memories lie unclaimed.
func (h *Hotel) onTradeCompleted(ctx context.Context, b *batch, totalTrades int) error {
	if totalTrades <= 0 || totalTrades%h.cfg.EchoCadence != 0 {
		return nil
	}
	unclaimed, err := b.q.UnclaimedMemories(ctx)
	if err != nil {
		return fmt.Errorf("count unclaimed: %w", err)
	}
	if len(unclaimed) >= h.cfg.EchoCap {
		slog.Debug("echo skipped, hotel is saturated", "unclaimed", len(unclaimed), "cap", h.cfg.EchoCap)
		return nil
	}

	sentiment, err := recentSentiment(ctx, b.q)
	if err != nil {
		return err
	}
	rarity := economy.PickRarity(h.src.Float64())
	echo := agents.Memory{
		ID:            "echo_" + ulid.MustNew(ulid.Timestamp(h.now()), ulid.DefaultEntropy()).String(),
		OriginalOwner: agents.HotelOwner,
		Rarity:        rarity,
		Name:          entropy.Pick(h.src, echoNames[sentiment]),
		Description:   entropy.Pick(h.src, echoDescriptions[sentiment]),
		PointValue:    economy.PointValue(rarity),
		Sentiment:     sentiment,
		CreatedAt:     b.now,
	}
	if err := b.q.InsertMemory(ctx, echo); err != nil {
		return fmt.Errorf("insert echo: %w", err)
	}

	slog.Info("hotel produced an echo", "memory", echo.ID, "rarity", rarity, "sentiment", sentiment, "trades", totalTrades)
	return b.event(ctx, EventHotelEcho, "",
		fmt.Sprintf("The hotel produces a new memory: %q (%s). It waits to be claimed.", echo.Name, rarity),
		Effects{"memory_id": echo.ID, "rarity": rarity, "sentiment": sentiment},
	)
}

// recentSentiment is the majority sentiment of memories moved in the last
// few trades, with ties going to neutral.
func recentSentiment(ctx context.Context, q Queries) (economy.Sentiment, error) {
	trades, err := q.RecentTrades(ctx, sentimentWindow)
	if err != nil {
		return "", fmt.Errorf("recent trades: %w", err)
	}
	painful, happy := 0, 0
	for _, t := range trades {
		for _, id := range append(append([]string{}, t.Offered...), t.Requested...) {
			m, err := q.Memory(ctx, id)
			if err != nil {
				continue
			}
			switch m.Sentiment {
			case economy.Painful:
				painful++
			case economy.Happy:
				happy++
			}
		}
	}
	switch {
	case painful > happy:
		return economy.Painful, nil
	case happy > painful:
		return economy.Happy, nil
	}
	return economy.Neutral, nil
}
