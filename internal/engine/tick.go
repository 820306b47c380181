package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Tick advances the hotel by one step: bot turns, conversations, churn, the
// tick counter, then mood. It does nothing unless the hotel is open. A
// failing step is logged and never prevents the steps after it.
func (h *Hotel) Tick(ctx context.Context) error {
	h.tickMu.Lock()
	defer h.tickMu.Unlock()

	ctx, span := h.tracer.Start(ctx, "hotel.tick")
	defer span.End()

	state, err := h.store.HotelState(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("load hotel state: %w", err)
	}
	if state.Status != StatusOpen {
		return nil
	}
	tick := state.Tick
	span.SetAttributes(attribute.Int64("hotel.tick", tick))
	start := time.Now()

	acted := 0
	h.step(ctx, tick, "bots", func(ctx context.Context) error {
		n, err := h.runBots(ctx, tick)
		acted = n
		return err
	})
	h.step(ctx, tick, "negotiation", func(ctx context.Context) error {
		return h.negotiate(ctx, tick)
	})
	h.step(ctx, tick, "churn", h.churn)
	h.step(ctx, tick, "advance", h.advance)
	h.step(ctx, tick, "mood", h.updateMood)

	slog.Info("tick complete", "tick", tick+1, "bot_actions", acted, "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// step runs one tick stage in its own span, containing errors and panics.
func (h *Hotel) step(ctx context.Context, tick int64, name string, fn func(context.Context) error) {
	ctx, span := h.tracer.Start(ctx, "hotel."+name)
	span.SetAttributes(attribute.Int64("hotel.tick", tick))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("tick step panicked", "step", name, "tick", tick, "panic", r)
			span.SetStatus(codes.Error, fmt.Sprint(r))
		}
	}()
	if err := fn(ctx); err != nil {
		slog.Error("tick step failed", "step", name, "tick", tick, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func (h *Hotel) advance(ctx context.Context) error {
	return h.update(ctx, func(b *batch) error {
		state, err := b.q.HotelState(ctx)
		if err != nil {
			return fmt.Errorf("load hotel state: %w", err)
		}
		state.Tick++
		state.UpdatedAt = b.now
		return b.q.SaveHotelState(ctx, state)
	})
}

// Scheduler drives Hotel.Tick from a ticker. The process entry point owns
// it; nothing in the engine starts one implicitly.
type Scheduler struct {
	hotel    *Hotel
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a stopped scheduler ticking at the hotel's TickInterval.
func NewScheduler(h *Hotel) *Scheduler {
	return &Scheduler{hotel: h, interval: h.cfg.TickInterval}
}

// Start begins ticking in a background goroutine. Starting a running
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	slog.Info("tick scheduler started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("tick scheduler stopped")
			return
		case <-ticker.C:
			if err := s.hotel.Tick(ctx); err != nil {
				slog.Error("tick failed", "error", err)
			}
		}
	}
}

// Stop halts the scheduler and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the scheduler is ticking.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}
