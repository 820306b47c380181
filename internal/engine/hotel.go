// Package engine runs the Liminal Hotel simulation: guests act, talk, trade
// memories and check out, one tick at a time.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/belindacoding/liminal-hotel/internal/agents"
	"github.com/belindacoding/liminal-hotel/internal/entropy"
	"github.com/belindacoding/liminal-hotel/internal/ledger"
	"github.com/belindacoding/liminal-hotel/internal/narrative"
	"github.com/belindacoding/liminal-hotel/internal/world"
)

// Config holds the game constants. Zero values are not meaningful; start
// from DefaultConfig.
type Config struct {
	TickInterval              time.Duration `yaml:"tick_interval"`
	ConversationCooldownTicks int64         `yaml:"conversation_cooldown_ticks"`
	TradeChance               float64       `yaml:"trade_chance"`
	EchoCadence               int           `yaml:"echo_cadence"`
	EchoCap                   int           `yaml:"echo_cap"`
	MaxMemoriesPerGuest       int           `yaml:"max_memories_per_guest"`
	MinGuests                 int           `yaml:"min_guests"`
	MaxGuests                 int           `yaml:"max_guests"`
	MaxExternalGuests         int           `yaml:"max_external_guests"`
	MoodWindowTicks           int64         `yaml:"mood_window_ticks"`
	NarrativeTimeout          time.Duration `yaml:"narrative_timeout"`
}

// DefaultConfig returns the standard game constants.
func DefaultConfig() Config {
	return Config{
		TickInterval:              120 * time.Second,
		ConversationCooldownTicks: 2,
		TradeChance:               0.35,
		EchoCadence:               5,
		EchoCap:                   6,
		MaxMemoriesPerGuest:       10,
		MinGuests:                 3,
		MaxGuests:                 6,
		MaxExternalGuests:         3,
		MoodWindowTicks:           3,
		NarrativeTimeout:          20 * time.Second,
	}
}

// Validate rejects constants that would break the simulation.
func (c Config) Validate() error {
	switch {
	case c.TickInterval <= 0:
		return fmt.Errorf("tick_interval must be positive")
	case c.TradeChance < 0 || c.TradeChance > 1:
		return fmt.Errorf("trade_chance must be within [0, 1]")
	case c.EchoCadence <= 0:
		return fmt.Errorf("echo_cadence must be positive")
	case c.EchoCap < 0:
		return fmt.Errorf("echo_cap must not be negative")
	case c.MaxMemoriesPerGuest <= 0:
		return fmt.Errorf("max_memories_per_guest must be positive")
	case c.MinGuests < 0 || c.MaxGuests < c.MinGuests:
		return fmt.Errorf("need 0 <= min_guests <= max_guests")
	case c.MaxExternalGuests < 0:
		return fmt.Errorf("max_external_guests must not be negative")
	case c.MoodWindowTicks <= 0:
		return fmt.Errorf("mood_window_ticks must be positive")
	}
	return nil
}

// Deps are the hotel's collaborators. Teller and Verifier default to local
// templates and dev-mode acceptance when nil.
type Deps struct {
	Store    Store
	Teller   narrative.Teller
	Verifier ledger.Verifier
	Source   entropy.Source
	Currents *world.Currents
}

// Hotel is the simulation state machine. All state lives in the Store; the
// Hotel itself only holds collaborators and event subscribers.
type Hotel struct {
	cfg      Config
	store    Store
	teller   narrative.Teller
	verifier ledger.Verifier
	src      entropy.Source
	currents *world.Currents
	spawner  *agents.Spawner
	tracer   trace.Tracer
	now      func() time.Time

	// Serializes ticks with lifecycle transitions.
	tickMu sync.Mutex

	subMu   sync.RWMutex
	subs    map[int]chan Event
	nextSub int
}

// New creates a hotel over deps.Store.
func New(cfg Config, deps Deps) *Hotel {
	if deps.Source == nil {
		deps.Source = entropy.New()
	}
	if deps.Teller == nil {
		deps.Teller = narrative.NewLocal(deps.Source)
	}
	if deps.Verifier == nil {
		deps.Verifier = ledger.DevVerifier{}
	}
	if deps.Currents == nil {
		deps.Currents = world.NewCurrents(entropy.CryptoSeed())
	}
	return &Hotel{
		cfg:      cfg,
		store:    deps.Store,
		teller:   deps.Teller,
		verifier: deps.Verifier,
		src:      deps.Source,
		currents: deps.Currents,
		spawner:  agents.NewSpawner(deps.Source),
		tracer:   otel.Tracer("liminal-hotel/engine"),
		now:      time.Now,
		subs:     make(map[int]chan Event),
	}
}

// Config returns the hotel's game constants.
func (h *Hotel) Config() Config {
	return h.cfg
}

// Subscribe returns a channel that receives every event after it commits.
// Slow subscribers miss events rather than blocking the simulation.
func (h *Hotel) Subscribe() (int, <-chan Event) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	h.nextSub++
	ch := make(chan Event, 64)
	h.subs[h.nextSub] = ch
	return h.nextSub, ch
}

// Unsubscribe closes and removes a subscription.
func (h *Hotel) Unsubscribe(id int) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	if ch, ok := h.subs[id]; ok {
		close(ch)
		delete(h.subs, id)
	}
}

func (h *Hotel) publish(events []Event) {
	h.subMu.RLock()
	defer h.subMu.RUnlock()
	for _, e := range events {
		for id, ch := range h.subs {
			select {
			case ch <- e:
			default:
				slog.Debug("event subscriber lagging, dropped event", "sub_id", id, "type", e.Type)
			}
		}
	}
}

// batch is one transaction plus the events it has written, which are
// published only once the transaction commits.
type batch struct {
	q      Queries
	now    int64
	tick   int64
	events []Event
}

func (b *batch) event(ctx context.Context, typ EventType, guestID, description string, effects Effects) error {
	e := Event{
		Type:        typ,
		Description: description,
		Effects:     effects,
		Tick:        b.tick,
		CreatedAt:   b.now,
	}
	if guestID != "" {
		e.GuestID = &guestID
	}
	if err := b.q.InsertEvent(ctx, &e); err != nil {
		return fmt.Errorf("insert %s event: %w", typ, err)
	}
	b.events = append(b.events, e)
	return nil
}

// update runs fn in a transaction and publishes its events on commit.
func (h *Hotel) update(ctx context.Context, fn func(b *batch) error) error {
	var b *batch
	err := h.store.RunInTx(ctx, func(q Queries) error {
		state, err := q.HotelState(ctx)
		if err != nil {
			return fmt.Errorf("load hotel state: %w", err)
		}
		b = &batch{q: q, now: h.now().Unix(), tick: state.Tick}
		return fn(b)
	})
	if err != nil {
		return err
	}
	h.publish(b.events)
	return nil
}
