// Package visitor implements an external guest that plays the hotel over
// its HTTP API. It observes the hotel, decides on one action per step and
// acts through the guest endpoints.
package visitor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/belindacoding/liminal-hotel/internal/agents"
	"github.com/belindacoding/liminal-hotel/internal/engine"
)

// View holds everything collected during one observation.
type View struct {
	Hotel    engine.Snapshot
	Guest    *agents.Guest
	Memories []agents.Memory
}

// Observer fetches hotel state from the API.
type Observer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	return &Observer{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Observe fetches the hotel snapshot plus the visitor's own record and
// memories.
func (o *Observer) Observe(ctx context.Context, guestID string) (*View, error) {
	v := &View{}
	if err := o.fetchJSON(ctx, "/world/state", &v.Hotel); err != nil {
		return nil, fmt.Errorf("fetch state: %w", err)
	}

	var detail struct {
		Guest *agents.Guest `json:"agent"`
	}
	if err := o.fetchJSON(ctx, "/world/agent/"+guestID, &detail); err != nil {
		return nil, fmt.Errorf("fetch guest: %w", err)
	}
	v.Guest = detail.Guest

	var mems struct {
		Memories []agents.Memory `json:"memories"`
	}
	if err := o.fetchJSON(ctx, "/world/agent/"+guestID+"/memories", &mems); err != nil {
		return nil, fmt.Errorf("fetch memories: %w", err)
	}
	v.Memories = mems.Memories
	return v, nil
}

// Info fetches GET /world/hotel/info.
func (o *Observer) Info(ctx context.Context) (map[string]any, error) {
	var info map[string]any
	if err := o.fetchJSON(ctx, "/world/hotel/info", &info); err != nil {
		return nil, err
	}
	return info, nil
}

// fetchJSON GETs a path and decodes the JSON response into target.
func (o *Observer) fetchJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
