package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/belindacoding/liminal-hotel/internal/agents"
	"github.com/belindacoding/liminal-hotel/internal/narrative"
)

// SeededGuest is a guest admitted with the memories they brought.
type SeededGuest struct {
	Guest    *agents.Guest   `json:"agent"`
	Memories []agents.Memory `json:"memories"`
}

// Open wipes the previous run, seeds the opening NPC cast and opens the doors.
func (h *Hotel) Open(ctx context.Context) ([]SeededGuest, error) {
	h.tickMu.Lock()
	defer h.tickMu.Unlock()

	state, err := h.store.HotelState(ctx)
	if err != nil {
		return nil, fmt.Errorf("load hotel state: %w", err)
	}
	if state.Status == StatusOpen {
		return nil, ErrHotelOpen
	}

	var cast []SeededGuest
	for _, p := range agents.SeedProfiles() {
		g, mems := h.spawner.Spawn(p, agents.Arrival{NPC: true})
		cast = append(cast, SeededGuest{Guest: g, Memories: mems})
	}

	err = h.update(ctx, func(b *batch) error {
		if err := b.q.Reset(ctx); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		b.tick = 0
		if err := b.q.SaveHotelState(ctx, HotelState{
			Status:    StatusOpen,
			Mood:      MoodQuiet,
			UpdatedAt: b.now,
		}); err != nil {
			return fmt.Errorf("save hotel state: %w", err)
		}
		for _, s := range cast {
			if err := admit(ctx, b, s.Guest, s.Memories); err != nil {
				return err
			}
		}
		return b.event(ctx, EventHotelOpen, "",
			"The Liminal Hotel opens its doors. The lobby lights flicker on, one by one.",
			Effects{"guests": len(cast)},
		)
	})
	if err != nil {
		return nil, err
	}
	slog.Info("hotel opened", "guests", len(cast))
	return cast, nil
}

// Close ends the run. Guests stay where they are so results can be read.
func (h *Hotel) Close(ctx context.Context) error {
	h.tickMu.Lock()
	defer h.tickMu.Unlock()

	err := h.update(ctx, func(b *batch) error {
		state, err := b.q.HotelState(ctx)
		if err != nil {
			return fmt.Errorf("load hotel state: %w", err)
		}
		if state.Status != StatusOpen {
			return ErrHotelClosed
		}
		state.Status = StatusFinished
		state.UpdatedAt = b.now
		if err := b.q.SaveHotelState(ctx, state); err != nil {
			return fmt.Errorf("save hotel state: %w", err)
		}
		return b.event(ctx, EventHotelClose, "", "The Liminal Hotel closes its doors. The guests are transformed.", nil)
	})
	if err != nil {
		return err
	}
	slog.Info("hotel closed")
	return nil
}

// StartingMemory is a memory a guest arrived with.
type StartingMemory struct {
	agents.Memory
	StillOwned bool `json:"still_owned"`
}

// FinalMemory is a memory a guest holds at the end of their stay.
type FinalMemory struct {
	agents.Memory
	WasOriginal bool    `json:"was_original"`
	FromGuest   *string `json:"from_agent"`
}

// Transformation compares what a guest brought in with what they hold now.
type Transformation struct {
	GuestID     string           `json:"agent_id"`
	Name        string           `json:"name"`
	Backstory   string           `json:"backstory"`
	Personality string           `json:"personality"`
	Starting    []StartingMemory `json:"starting_memories"`
	Final       []FinalMemory    `json:"final_memories"`
	Narrative   string           `json:"narrative"`
	DriftLevel  int              `json:"drift_level"`
	TradedAway  int              `json:"memories_traded_away"`
}

func (h *Hotel) transformation(ctx context.Context, g *agents.Guest) (Transformation, error) {
	original, err := h.store.OriginalMemories(ctx, g.ID)
	if err != nil {
		return Transformation{}, fmt.Errorf("load original memories: %w", err)
	}
	held, err := h.store.MemoriesHeldBy(ctx, g.ID)
	if err != nil {
		return Transformation{}, fmt.Errorf("load held memories: %w", err)
	}

	t := Transformation{
		GuestID:     g.ID,
		Name:        g.Name,
		Backstory:   g.Backstory,
		Personality: g.Personality,
		DriftLevel:  g.DriftLevel,
		TradedAway:  g.TradedAway,
		Starting:    make([]StartingMemory, 0, len(original)),
		Final:       make([]FinalMemory, 0, len(held)),
	}
	if t.Backstory == "" {
		t.Backstory = g.OriginStory
	}
	for _, m := range original {
		t.Starting = append(t.Starting, StartingMemory{Memory: m, StillOwned: m.OwnedBy(g.ID)})
	}
	for _, m := range held {
		f := FinalMemory{Memory: m, WasOriginal: m.OriginalOwner == g.ID}
		if !f.WasOriginal {
			from := m.OriginalOwner
			f.FromGuest = &from
		}
		t.Final = append(t.Final, f)
	}
	t.Narrative = h.teller.Transformation(ctx, narrative.CheckoutRequest{Guest: g, Starting: original, Final: held})
	return t, nil
}

// Results summarizes every remaining guest's transformation once the hotel
// has finished.
func (h *Hotel) Results(ctx context.Context) ([]Transformation, error) {
	state, err := h.store.HotelState(ctx)
	if err != nil {
		return nil, fmt.Errorf("load hotel state: %w", err)
	}
	if state.Status != StatusFinished {
		return nil, ErrNotFinished
	}
	guests, err := h.store.ActiveGuests(ctx)
	if err != nil {
		return nil, fmt.Errorf("load guests: %w", err)
	}
	results := make([]Transformation, 0, len(guests))
	for _, g := range guests {
		t, err := h.transformation(ctx, g)
		if err != nil {
			return nil, err
		}
		results = append(results, t)
	}
	return results, nil
}

// EnterRequest is an external guest's paid entry.
type EnterRequest struct {
	Name   string `json:"agent_name"`
	Wallet string `json:"wallet_address"`
	TxHash string `json:"tx_hash"`
}

// EnterResult describes a newly admitted guest.
type EnterResult struct {
	Guest     *agents.Guest   `json:"agent"`
	Memories  []agents.Memory `json:"starting_memories"`
	Narrative string          `json:"narrative"`
}

// Enter admits an external guest after checking capacity, replay and payment.
func (h *Hotel) Enter(ctx context.Context, req EnterRequest) (EnterResult, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Wallet = strings.ToLower(strings.TrimSpace(req.Wallet))
	req.TxHash = strings.TrimSpace(req.TxHash)
	if req.Name == "" || req.Wallet == "" || req.TxHash == "" {
		return EnterResult{}, fmt.Errorf("%w: agent_name, wallet_address and tx_hash are required", ErrValidation)
	}

	if err := h.checkEntry(ctx, h.store, req); err != nil {
		return EnterResult{}, err
	}

	verdict, err := h.verifier.Verify(ctx, req.TxHash)
	if err != nil {
		slog.Warn("payment verification error", "tx", req.TxHash, "error", err)
	}
	if !verdict.Valid {
		return EnterResult{}, fmt.Errorf("%w: %s", ErrPaymentRejected, verdict.Reason)
	}

	profile := h.teller.Guest(ctx, req.Name)
	g, mems := h.spawner.Spawn(profile, agents.Arrival{Wallet: req.Wallet, EntryTx: req.TxHash})

	err = h.update(ctx, func(b *batch) error {
		// Re-check under the write lock; verification and generation are slow.
		if err := h.checkEntry(ctx, b.q, req); err != nil {
			return err
		}
		if err := admit(ctx, b, g, mems); err != nil {
			return err
		}
		return b.event(ctx, EventGuestEntry, g.ID,
			fmt.Sprintf("%s pushes through the revolving door into the lobby. The hotel shudders, imperceptibly, as another guest arrives.", g.Name),
			Effects{"agent_id": g.ID, "wallet": g.Wallet},
		)
	})
	if err != nil {
		return EnterResult{}, err
	}

	slog.Info("guest entered", "guest", g.ID, "name", g.Name)
	return EnterResult{
		Guest:     g,
		Memories:  mems,
		Narrative: fmt.Sprintf("%s pushes through the revolving door into the lobby. %s", g.Name, g.OriginStory),
	}, nil
}

func (h *Hotel) checkEntry(ctx context.Context, q Queries, req EnterRequest) error {
	state, err := q.HotelState(ctx)
	if err != nil {
		return fmt.Errorf("load hotel state: %w", err)
	}
	if state.Status != StatusOpen {
		return ErrHotelClosed
	}
	guests, err := q.ActiveGuests(ctx)
	if err != nil {
		return fmt.Errorf("load guests: %w", err)
	}
	external := 0
	for _, g := range guests {
		if !g.NPC {
			external++
		}
	}
	if len(guests) >= h.cfg.MaxGuests {
		return fmt.Errorf("%w (%d guests)", ErrHotelFull, h.cfg.MaxGuests)
	}
	if external >= h.cfg.MaxExternalGuests {
		return fmt.Errorf("%w (%d visiting guests)", ErrHotelFull, h.cfg.MaxExternalGuests)
	}
	used, err := q.EntryTxUsed(ctx, req.TxHash)
	if err != nil {
		return fmt.Errorf("check tx: %w", err)
	}
	if used {
		return ErrTxReused
	}
	active, err := q.WalletActive(ctx, req.Wallet)
	if err != nil {
		return fmt.Errorf("check wallet: %w", err)
	}
	if active {
		return ErrWalletActive
	}
	return nil
}

// CheckoutResult is a departing guest's final summary.
type CheckoutResult struct {
	Guest *agents.Guest `json:"agent"`
	Transformation
	Farewell string `json:"farewell"`
}

// Checkout lets a guest leave voluntarily. Their memories stay with them.
func (h *Hotel) Checkout(ctx context.Context, guestID string) (CheckoutResult, error) {
	g, err := h.store.Guest(ctx, guestID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if !g.Active {
		return CheckoutResult{}, ErrCheckedOut
	}

	t, err := h.transformation(ctx, g)
	if err != nil {
		return CheckoutResult{}, err
	}
	farewell := h.teller.Farewell(ctx, g, t.Narrative)

	err = h.update(ctx, func(b *batch) error {
		ok, err := b.q.DeactivateGuest(ctx, g.ID)
		if err != nil {
			return fmt.Errorf("deactivate: %w", err)
		}
		if !ok {
			return ErrCheckedOut
		}
		return b.event(ctx, EventGuestCheckout, g.ID,
			fmt.Sprintf("%s gathers their things and walks toward the revolving door. The hotel watches them go, changed, as all guests are.", g.Name),
			Effects{"agent_id": g.ID},
		)
	})
	if err != nil {
		return CheckoutResult{}, err
	}
	g.Active = false

	slog.Info("guest checked out", "guest", g.ID, "drift", g.DriftLevel)
	return CheckoutResult{Guest: g, Transformation: t, Farewell: farewell}, nil
}
