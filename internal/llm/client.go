// Package llm provides the Claude Haiku API client used for guest dialogue,
// guest generation, and checkout narration. Every caller treats a failure as
// a signal to fall back to local templates.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	defaultEndpoint = "https://api.anthropic.com/v1/messages"
	apiVersion      = "2023-06-01"
	haikuModel      = "claude-haiku-4-5-20251001"

	// callsPerMinute caps spend when many rooms converse in one tick.
	callsPerMinute = 20
	maxAttempts    = 2
)

// ErrBudget is returned when the per-minute call budget is spent.
var ErrBudget = errors.New("llm call budget exhausted")

// StatusError is a non-200 reply from the Messages API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("messages API %d: %s", e.Code, e.Body)
}

// transient reports whether the API asked us to come back later.
func (e *StatusError) transient() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client talks to the Anthropic Messages API. A nil *Client is valid and
// reports itself disabled.
type Client struct {
	key      string
	endpoint string
	http     *http.Client

	mu          sync.Mutex
	windowStart time.Time
	spent       int
}

// NewClient returns a Haiku client, or nil when apiKey is empty.
func NewClient(apiKey string) *Client {
	return NewClientWithEndpoint(apiKey, defaultEndpoint)
}

// NewClientWithEndpoint is NewClient against another Messages endpoint.
func NewClientWithEndpoint(apiKey, endpoint string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		key:      apiKey,
		endpoint: endpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Enabled reports whether calls can be made.
func (c *Client) Enabled() bool {
	return c != nil && c.key != ""
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// take spends one call from the rolling minute budget.
func (c *Client) take() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if now.Sub(c.windowStart) >= time.Minute {
		c.windowStart = now
		c.spent = 0
	}
	if c.spent >= callsPerMinute {
		return false
	}
	c.spent++
	return true
}

// Complete sends one user turn under the given system prompt and returns
// the concatenated text blocks of the reply. Overload and 5xx replies are
// retried once; everything is bounded by ctx.
func (c *Client) Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	if !c.Enabled() {
		return "", errors.New("llm client not configured")
	}
	if !c.take() {
		return "", ErrBudget
	}

	body, err := json.Marshal(messagesRequest{
		Model:     haikuModel,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	reply, err := backoff.Retry(ctx, func() (messagesResponse, error) {
		r, err := c.post(ctx, body)
		var se *StatusError
		if errors.As(err, &se) && !se.transient() {
			return r, backoff.Permanent(err)
		}
		return r, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(maxAttempts))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range reply.Content {
		if block.Type == "" || block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("empty reply")
	}
	slog.Debug("haiku call",
		"input_tokens", reply.Usage.InputTokens,
		"output_tokens", reply.Usage.OutputTokens,
		"stop", reply.StopReason,
	)
	return sb.String(), nil
}

func (c *Client) post(ctx context.Context, body []byte) (messagesResponse, error) {
	var out messagesResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return out, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.key)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("messages API: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return out, fmt.Errorf("read reply: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return out, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, backoff.Permanent(fmt.Errorf("decode reply: %w", err))
	}
	return out, nil
}

// completeJSON runs a prompt that must answer with a JSON document and
// decodes it into out. Markdown code fences around the JSON are tolerated.
func (c *Client) completeJSON(ctx context.Context, system, prompt string, maxTokens int, out any) error {
	text, err := c.Complete(ctx, system, prompt, maxTokens)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(stripFences(text)), out); err != nil {
		return fmt.Errorf("parse JSON reply: %w", err)
	}
	return nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
