package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/belindacoding/liminal-hotel/internal/agents"
	"github.com/belindacoding/liminal-hotel/internal/economy"
	"github.com/belindacoding/liminal-hotel/internal/entropy"
	"github.com/belindacoding/liminal-hotel/internal/narrative"
	"github.com/belindacoding/liminal-hotel/internal/world"
)

// quietExchange stands in for a conversation that produced no lines.
const quietExchange = "A quiet exchange."

// errLegFailed aborts a trade whose memory changed hands before it committed.
var errLegFailed = errors.New("trade leg no longer valid")

// swap is the pair of memories two guests would exchange.
type swap struct {
	aGives *agents.Memory
	bGives *agents.Memory
}

// negotiate starts at most one conversation per room among guests who have
// not spoken recently. Rooms are visited in id order and guests in arrival
// order, so a seeded run always pairs the same guests.
func (h *Hotel) negotiate(ctx context.Context, tick int64) error {
	guests, err := h.store.ActiveGuests(ctx)
	if err != nil {
		return fmt.Errorf("load guests: %w", err)
	}
	byRoom := make(map[string][]*agents.Guest)
	for _, g := range guests {
		byRoom[g.Room] = append(byRoom[g.Room], g)
	}

	for _, room := range world.SortedRoomIDs(byRoom) {
		occupants := byRoom[room]
		a, b, found, err := h.pickPair(ctx, occupants, tick)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		if err := h.converse(ctx, room, a, b); err != nil {
			return fmt.Errorf("conversation in %s: %w", room, err)
		}
	}
	return nil
}

func (h *Hotel) pickPair(ctx context.Context, occupants []*agents.Guest, tick int64) (*agents.Guest, *agents.Guest, bool, error) {
	for i := 0; i < len(occupants); i++ {
		for j := i + 1; j < len(occupants); j++ {
			a, b := occupants[i], occupants[j]
			last, ok, err := h.store.LastConversationTick(ctx, a.ID, b.ID)
			if err != nil {
				return nil, nil, false, fmt.Errorf("cooldown lookup: %w", err)
			}
			if ok && tick-last < h.cfg.ConversationCooldownTicks {
				continue
			}
			return a, b, true, nil
		}
	}
	return nil, nil, false, nil
}

// selectSwap prefers handing a painful memory to someone who can give a happy
// one back, in either direction, and otherwise swaps any two memories.
func selectSwap(src entropy.Source, memsA, memsB []agents.Memory) (swap, bool) {
	painfulA, happyA := splitSentiment(memsA)
	painfulB, happyB := splitSentiment(memsB)

	pick := func(ms []agents.Memory) *agents.Memory {
		m := entropy.Pick(src, ms)
		return &m
	}
	switch {
	case len(painfulA) > 0 && len(happyB) > 0:
		return swap{aGives: pick(painfulA), bGives: pick(happyB)}, true
	case len(painfulB) > 0 && len(happyA) > 0:
		return swap{aGives: pick(happyA), bGives: pick(painfulB)}, true
	case len(memsA) > 0 && len(memsB) > 0:
		return swap{aGives: pick(memsA), bGives: pick(memsB)}, true
	}
	return swap{}, false
}

func splitSentiment(mems []agents.Memory) (painful, happy []agents.Memory) {
	for _, m := range mems {
		switch m.Sentiment {
		case economy.Painful:
			painful = append(painful, m)
		case economy.Happy:
			happy = append(happy, m)
		}
	}
	return painful, happy
}

// converse decides the outcome, asks the teller for the lines, and records
// the conversation. The dialogue call happens outside any transaction.
func (h *Hotel) converse(ctx context.Context, room string, a, b *agents.Guest) error {
	memsA, err := h.store.MemoriesHeldBy(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("load memories: %w", err)
	}
	memsB, err := h.store.MemoriesHeldBy(ctx, b.ID)
	if err != nil {
		return fmt.Errorf("load memories: %w", err)
	}

	sw, hasSwap := selectSwap(h.src, memsA, memsB)
	trade := hasSwap && h.src.Float64() < h.cfg.TradeChance

	lines := h.teller.Dialogue(ctx, narrative.DialogueRequest{
		Room:   room,
		A:      narrative.Party{Guest: a, Memories: memsA},
		B:      narrative.Party{Guest: b, Memories: memsB},
		Trade:  trade,
		AGives: sw.aGives,
		BGives: sw.bGives,
	})

	conv := &Conversation{GuestA: a.ID, GuestB: b.ID, Room: room, Lines: lines, Outcome: OutcomeNoTrade}
	if trade {
		conv.Outcome = OutcomeTrade
		err := h.update(ctx, func(bt *batch) error {
			if err := h.executeTrade(ctx, bt, a.ID, b.ID, sw); err != nil {
				return err
			}
			return h.recordConversation(ctx, bt, conv, a, b)
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, errLegFailed) {
			return err
		}
		slog.Info("trade abandoned, memory changed hands mid-conversation", "guest_a", a.ID, "guest_b", b.ID)
		conv.Outcome = OutcomeNoTrade
		conv.Lines = h.teller.Dialogue(ctx, narrative.DialogueRequest{
			Room: room,
			A:    narrative.Party{Guest: a, Memories: memsA},
			B:    narrative.Party{Guest: b, Memories: memsB},
		})
	}
	return h.update(ctx, func(bt *batch) error {
		return h.recordConversation(ctx, bt, conv, a, b)
	})
}

// executeTrade moves both memories and updates both guests. Either leg
// failing its ownership check rolls back the whole trade.
func (h *Hotel) executeTrade(ctx context.Context, b *batch, aID, bID string, sw swap) error {
	ok, err := b.q.TransferMemory(ctx, sw.aGives.ID, aID, bID)
	if err != nil {
		return fmt.Errorf("transfer %s: %w", sw.aGives.ID, err)
	}
	if !ok {
		return errLegFailed
	}
	ok, err = b.q.TransferMemory(ctx, sw.bGives.ID, bID, aID)
	if err != nil {
		return fmt.Errorf("transfer %s: %w", sw.bGives.ID, err)
	}
	if !ok {
		return errLegFailed
	}

	for _, pair := range [][2]string{{aID, bID}, {bID, aID}} {
		g, err := b.q.Guest(ctx, pair[0])
		if err != nil {
			return err
		}
		g.EverHeld++
		g.TradedAway++
		g.EchoSources = g.EchoSources.With(pair[1])
		driftChanged(g)
		if err := b.q.UpdateDrift(ctx, g); err != nil {
			return fmt.Errorf("update drift for %s: %w", g.ID, err)
		}
	}

	if err := b.q.InsertTrade(ctx, &Trade{
		SellerID:  aID,
		BuyerID:   bID,
		Offered:   agents.StringSet{sw.aGives.ID},
		Requested: agents.StringSet{sw.bGives.ID},
		Status:    TradeCompleted,
		Tick:      b.tick,
		CreatedAt: b.now,
	}); err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}

	state, err := b.q.HotelState(ctx)
	if err != nil {
		return fmt.Errorf("load hotel state: %w", err)
	}
	state.TotalTrades++
	state.UpdatedAt = b.now
	if err := b.q.SaveHotelState(ctx, state); err != nil {
		return fmt.Errorf("save hotel state: %w", err)
	}
	return h.onTradeCompleted(ctx, b, state.TotalTrades)
}

func (h *Hotel) recordConversation(ctx context.Context, b *batch, conv *Conversation, a, partner *agents.Guest) error {
	conv.Tick = b.tick
	conv.CreatedAt = b.now
	if err := b.q.InsertConversation(ctx, conv); err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}

	first := quietExchange
	if len(conv.Lines) > 0 && strings.TrimSpace(conv.Lines[0].Text) != "" {
		first = conv.Lines[0].Text
	}
	if r := []rune(first); len(r) > 80 {
		first = string(r[:80])
	}
	desc := fmt.Sprintf("%s and %s spoke in %s. %q", a.Name, partner.Name, world.RoomName(conv.Room), first)
	if conv.Outcome == OutcomeTrade {
		desc += " A trade was made."
	}
	return b.event(ctx, EventConversation, a.ID, desc, Effects{
		"outcome": conv.Outcome,
		"room":    conv.Room,
		"with":    partner.ID,
	})
}
