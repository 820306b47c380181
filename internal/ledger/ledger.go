// Package ledger verifies hotel entry payments against an EVM JSON-RPC node.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Verdict is the result of checking an entry payment.
type Verdict struct {
	Valid  bool     `json:"valid"`
	Reason string   `json:"reason,omitempty"`
	Sender string   `json:"sender,omitempty"`
	Amount *big.Int `json:"amount,omitempty"`
}

// Verifier checks that a transaction paid the hotel's entry fee.
// A rejected payment is a Verdict with Valid false, not an error; errors
// mean the node could not be consulted.
type Verifier interface {
	Verify(ctx context.Context, txHash string) (Verdict, error)
}

// DevVerifier accepts every payment. Used when no hotel wallet is configured.
type DevVerifier struct{}

func (DevVerifier) Verify(_ context.Context, txHash string) (Verdict, error) {
	return Verdict{Valid: true, Reason: "dev mode"}, nil
}

var errTxNotFound = errors.New("transaction not found on-chain")

// RPCVerifier checks payments with eth_getTransactionReceipt and
// eth_getTransactionByHash.
type RPCVerifier struct {
	url        string
	recipient  string
	fee        *big.Int
	httpClient *http.Client
	maxTries   uint
	interval   time.Duration
}

// Option configures an RPCVerifier.
type Option func(*RPCVerifier)

// WithRetryInterval sets the first retry delay. Later delays grow exponentially.
func WithRetryInterval(d time.Duration) Option {
	return func(v *RPCVerifier) { v.interval = d }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(v *RPCVerifier) { v.httpClient = c }
}

// NewRPCVerifier creates a verifier for payments of at least fee wei to recipient.
func NewRPCVerifier(url, recipient string, fee *big.Int, opts ...Option) *RPCVerifier {
	v := &RPCVerifier{
		url:        url,
		recipient:  strings.ToLower(recipient),
		fee:        fee,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxTries:   3,
		interval:   time.Second,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type receipt struct {
	Status string `json:"status"`
}

type transaction struct {
	From  string  `json:"from"`
	To    *string `json:"to"`
	Value string  `json:"value"`
}

// Verify fetches the receipt and transaction, retrying transient RPC
// failures. An unknown transaction is rejected without retrying.
func (v *RPCVerifier) Verify(ctx context.Context, txHash string) (Verdict, error) {
	if v.recipient == "" {
		return Verdict{Reason: "Hotel wallet not configured"}, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = v.interval

	attempt := 0
	verdict, err := backoff.Retry(ctx, func() (Verdict, error) {
		attempt++
		verdict, err := v.check(ctx, txHash)
		if err != nil && !errors.Is(err, errTxNotFound) {
			slog.Warn("ledger RPC attempt failed", "attempt", attempt, "tx", txHash, "error", err)
		}
		return verdict, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(v.maxTries))

	if errors.Is(err, errTxNotFound) {
		return Verdict{Reason: "Transaction not found on-chain"}, nil
	}
	if err != nil {
		return Verdict{Reason: fmt.Sprintf("RPC error after %d attempts: %v", attempt, err)}, err
	}
	return verdict, nil
}

func (v *RPCVerifier) check(ctx context.Context, txHash string) (Verdict, error) {
	var rc *receipt
	if err := v.call(ctx, "eth_getTransactionReceipt", txHash, &rc); err != nil {
		return Verdict{}, err
	}
	if rc == nil {
		return Verdict{}, backoff.Permanent(errTxNotFound)
	}
	var tx *transaction
	if err := v.call(ctx, "eth_getTransactionByHash", txHash, &tx); err != nil {
		return Verdict{}, err
	}
	if tx == nil {
		return Verdict{}, backoff.Permanent(errTxNotFound)
	}

	if rc.Status != "0x1" {
		return Verdict{Reason: "Transaction failed on-chain"}, nil
	}
	if tx.To == nil || strings.ToLower(*tx.To) != v.recipient {
		to := "<contract creation>"
		if tx.To != nil {
			to = *tx.To
		}
		return Verdict{Reason: fmt.Sprintf("Transaction recipient (%s) does not match hotel wallet (%s)", to, v.recipient)}, nil
	}
	amount, ok := new(big.Int).SetString(strings.TrimPrefix(tx.Value, "0x"), 16)
	if !ok {
		return Verdict{}, backoff.Permanent(fmt.Errorf("malformed transaction value %q", tx.Value))
	}
	if amount.Cmp(v.fee) < 0 {
		return Verdict{Reason: fmt.Sprintf("Insufficient payment: sent %s, need %s", amount, v.fee)}, nil
	}
	return Verdict{Valid: true, Sender: tx.From, Amount: amount}, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (v *RPCVerifier) call(ctx context.Context, method, txHash string, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: []any{txHash}})
	if err != nil {
		return backoff.Permanent(fmt.Errorf("marshal %s: %w", method, err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create %s request: %w", method, err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: HTTP %d: %s", method, resp.StatusCode, string(raw))
	}

	var rr rpcResponse
	if err := json.Unmarshal(raw, &rr); err != nil {
		return fmt.Errorf("unmarshal %s response: %w", method, err)
	}
	if rr.Error != nil {
		if strings.Contains(strings.ToLower(rr.Error.Message), "not found") {
			return backoff.Permanent(errTxNotFound)
		}
		return fmt.Errorf("%s: rpc error %d: %s", method, rr.Error.Code, rr.Error.Message)
	}
	if len(rr.Result) == 0 {
		return nil
	}
	return json.Unmarshal(rr.Result, out)
}
