package visitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/belindacoding/liminal-hotel/internal/engine"
	"github.com/belindacoding/liminal-hotel/internal/rules"
)

// Actor sends guest requests to the API.
type Actor struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewActor creates an Actor targeting the given API base URL.
func NewActor(baseURL string) *Actor {
	return &Actor{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Enter pays in and creates the visiting guest.
func (a *Actor) Enter(ctx context.Context, req engine.EnterRequest) (*engine.EnterResult, error) {
	var res engine.EnterResult
	if err := a.post(ctx, "/world/enter", req, http.StatusCreated, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

type actionBody struct {
	AgentID string `json:"agent_id"`
	Action  string `json:"action"`
	Params  any    `json:"params"`
}

// Act sends one action. A rejected action is not an error: the response
// carries Success false and the reason.
func (a *Actor) Act(ctx context.Context, guestID string, d Decision) (*engine.Response, error) {
	body := actionBody{AgentID: guestID, Action: string(d.Action)}
	switch d.Action {
	case rules.ActionMove:
		body.Params = rules.MoveParams{TargetRoom: d.TargetRoom}
	case rules.ActionClaim:
		body.Params = rules.ClaimParams{MemoryID: d.MemoryID}
	default:
		return nil, fmt.Errorf("cannot send action %q", d.Action)
	}

	raw, status, err := a.send(ctx, "/world/action", body)
	if err != nil {
		return nil, err
	}
	var resp engine.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode action response (%d): %w", status, err)
	}
	if status >= http.StatusInternalServerError {
		return &resp, fmt.Errorf("action failed (%d): %s", status, resp.Error)
	}
	return &resp, nil
}

// Checkout leaves the hotel.
func (a *Actor) Checkout(ctx context.Context, guestID string) (*engine.CheckoutResult, error) {
	var res engine.CheckoutResult
	if err := a.post(ctx, "/world/checkout", map[string]string{"agent_id": guestID}, http.StatusOK, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (a *Actor) post(ctx context.Context, path string, body any, want int, out any) error {
	raw, status, err := a.send(ctx, path, body)
	if err != nil {
		return err
	}
	if status != want {
		return fmt.Errorf("POST %s failed (%d): %s", path, status, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (a *Actor) send(ctx context.Context, path string, body any) ([]byte, int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return raw, resp.StatusCode, nil
}
