package visitor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/belindacoding/liminal-hotel/internal/engine"
)

// Visitor plays one external guest from entry to checkout.
type Visitor struct {
	Observer *Observer
	Actor    *Actor
	Strategy Strategy

	Entry    engine.EnterRequest
	Interval time.Duration // pause between steps
	Steps    int           // 0 = until ctx is done
	Checkout bool          // check out when the steps run out
}

// Summary reports what a run did.
type Summary struct {
	GuestID  string
	Steps    int
	Accepted int
	Checkout *engine.CheckoutResult
}

// Run enters the hotel and loops observe, decide, act.
func (v *Visitor) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	entered, err := v.Actor.Enter(ctx, v.Entry)
	if err != nil {
		return sum, fmt.Errorf("enter: %w", err)
	}
	sum.GuestID = entered.Guest.ID
	slog.Info("visitor entered", "guest", sum.GuestID, "name", entered.Guest.Name, "memories", len(entered.Memories))

	for v.Steps == 0 || sum.Steps < v.Steps {
		if sum.Steps > 0 && v.Interval > 0 {
			select {
			case <-ctx.Done():
				return sum, nil
			case <-time.After(v.Interval):
			}
		}
		if ctx.Err() != nil {
			return sum, nil
		}
		sum.Steps++

		view, err := v.Observer.Observe(ctx, sum.GuestID)
		if err != nil {
			slog.Error("observation failed", "error", err)
			continue
		}
		if view.Guest == nil || !view.Guest.Active {
			slog.Info("visitor is no longer in the hotel", "guest", sum.GuestID)
			return sum, nil
		}

		d := v.Strategy.Decide(ctx, view)
		slog.Info("decision made", "action", d.Action, "rationale", d.Rationale)
		if d.Action == ActionNone {
			continue
		}

		resp, err := v.Actor.Act(ctx, sum.GuestID, d)
		if err != nil {
			slog.Error("action failed", "error", err)
			continue
		}
		if !resp.Success {
			slog.Info("action rejected", "code", resp.Code, "reason", resp.Error)
			continue
		}
		sum.Accepted++
		slog.Info("action accepted", "action", d.Action, "narrative", resp.Narrative)
	}

	if v.Checkout {
		out, err := v.Actor.Checkout(ctx, sum.GuestID)
		if err != nil {
			return sum, fmt.Errorf("checkout: %w", err)
		}
		sum.Checkout = out
		slog.Info("visitor checked out", "guest", sum.GuestID, "drift", out.DriftLevel, "farewell", out.Farewell)
	}
	return sum, nil
}

// WaitForAPI polls the hotel info endpoint with exponential backoff until it
// responds or maxWait passes.
func WaitForAPI(ctx context.Context, baseURL string, maxWait time.Duration) error {
	client := &http.Client{Timeout: 5 * time.Second}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/world/hotel/info", nil)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			slog.Info("hotel API not ready, retrying", "error", err)
			return struct{}{}, err
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return struct{}{}, fmt.Errorf("hotel info returned %d", resp.StatusCode)
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(maxWait))
	if err != nil {
		return fmt.Errorf("hotel API not ready after %s: %w", maxWait, err)
	}
	return nil
}

var (
	_ Strategy = (*Wanderer)(nil)
	_ Strategy = (*Deliberator)(nil)
)
