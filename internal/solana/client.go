package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

const (
	lamportsPerSOL = 1_000_000_000

	// DegradedBalance is the sentinel returned by GetBalance when the RPC
	// layer is fully unavailable. It is never a real balance.
	DegradedBalance = -1.0

	maxSignaturesPerCall = 1000
	interPageYield       = 50 * time.Millisecond
)

// Signature is one entry from getSignaturesForAddress. Immutable.
type Signature struct {
	Signature          string      `json:"signature"`
	Slot               uint64      `json:"slot"`
	BlockTime          int64       `json:"blockTime,omitempty"`
	Err                interface{} `json:"err,omitempty"`
	Memo               string      `json:"memo,omitempty"`
	ConfirmationStatus string      `json:"confirmationStatus,omitempty"`
}

// AccountInfo is the subset of getAccountInfo used for account classification.
type AccountInfo struct {
	Owner      string `json:"owner"`
	Executable bool   `json:"executable"`
	Lamports   uint64 `json:"lamports"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// Client exposes high-level wallet operations. Every RPC call routes through
// the failover pool; signature reads go through the TTL cache.
type Client struct {
	pool       *Pool
	cache      *SignatureCache
	commitment string
	logger     *log.Logger
}

// NewClient wires a chain client over the given pool and cache.
func NewClient(pool *Pool, cache *SignatureCache, commitment string) *Client {
	if commitment == "" {
		commitment = "confirmed"
	}
	return &Client{
		pool:       pool,
		cache:      cache,
		commitment: commitment,
		logger:     log.New(log.Writer(), "[CHAIN] ", log.LstdFlags),
	}
}

// Pool returns the underlying provider pool (for health reporting).
func (c *Client) Pool() *Pool { return c.pool }

// GetHealth calls getHealth; a healthy node answers "ok".
func (c *Client) GetHealth(ctx context.Context) (string, error) {
	raw, err := c.pool.RPCRequest(ctx, "getHealth", nil)
	if err != nil {
		return "", err
	}
	var status string
	if err := json.Unmarshal(raw, &status); err != nil {
		return "", fmt.Errorf("decode getHealth: %w", err)
	}
	return status, nil
}

// GetVersion returns the node's solana-core version string.
func (c *Client) GetVersion(ctx context.Context) (string, error) {
	raw, err := c.pool.RPCRequest(ctx, "getVersion", nil)
	if err != nil {
		return "", err
	}
	var v struct {
		SolanaCore string `json:"solana-core"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("decode getVersion: %w", err)
	}
	return v.SolanaCore, nil
}

// GetSlot returns the current slot at the configured commitment.
func (c *Client) GetSlot(ctx context.Context) (uint64, error) {
	raw, err := c.pool.RPCRequest(ctx, "getSlot", []interface{}{
		map[string]interface{}{"commitment": c.commitment},
	})
	if err != nil {
		return 0, err
	}
	var slot uint64
	if err := json.Unmarshal(raw, &slot); err != nil {
		return 0, fmt.Errorf("decode getSlot: %w", err)
	}
	return slot, nil
}

// GetBalance returns the wallet balance in SOL. On RPC failure it returns
// the DegradedBalance sentinel so callers can continue in degraded mode.
func (c *Client) GetBalance(ctx context.Context, addr string) float64 {
	raw, err := c.pool.RPCRequest(ctx, "getBalance", []interface{}{
		addr,
		map[string]interface{}{"commitment": c.commitment},
	})
	if err != nil {
		c.logger.Printf("⚠️ getBalance(%s) degraded: %v", addr, err)
		return DegradedBalance
	}

	var resp struct {
		Value uint64 `json:"value"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Printf("⚠️ getBalance(%s) decode failed: %v", addr, err)
		return DegradedBalance
	}
	return float64(resp.Value) / lamportsPerSOL
}

// GetAccountInfo returns the account metadata for addr, or nil if the
// account does not exist.
func (c *Client) GetAccountInfo(ctx context.Context, addr string) (*AccountInfo, error) {
	raw, err := c.pool.RPCRequest(ctx, "getAccountInfo", []interface{}{
		addr,
		map[string]interface{}{"commitment": c.commitment, "encoding": "base64"},
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Value *AccountInfo `json:"value"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode getAccountInfo: %w", err)
	}
	return resp.Value, nil
}

// GetSignatures fetches a single page of signatures for addr, newest first,
// capped at the per-call maximum.
func (c *Client) GetSignatures(ctx context.Context, addr string, limit int) ([]Signature, error) {
	return c.fetchSignaturePage(ctx, addr, limit, "")
}

// GetSignaturesPaginated walks the before-cursor until limit entries are
// collected, a page comes back empty, or the last entry has no signature to
// cursor from. The combined list is written through the cache.
func (c *Client) GetSignaturesPaginated(ctx context.Context, addr string, limit, pageSize int) ([]Signature, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > maxSignaturesPerCall {
		limit = maxSignaturesPerCall
	}
	if pageSize <= 0 || pageSize > maxSignaturesPerCall {
		pageSize = 100
	}

	if cached, ok := c.cache.Get(addr, limit); ok {
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached, nil
	}

	var collected []Signature
	cursor := ""
	for len(collected) < limit {
		want := pageSize
		if remaining := limit - len(collected); remaining < want {
			want = remaining
		}

		page, err := c.fetchSignaturePage(ctx, addr, want, cursor)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		collected = append(collected, page...)
		last := page[len(page)-1]
		if last.Signature == "" {
			break
		}
		cursor = last.Signature

		if len(page) < want {
			break
		}
		if len(collected) < limit {
			// Yield between pages so one investigation cannot hammer
			// the upstream RPC.
			if err := sleepCtx(ctx, interPageYield); err != nil {
				return nil, err
			}
		}
	}

	c.cache.Put(addr, collected)
	return collected, nil
}

func (c *Client) fetchSignaturePage(ctx context.Context, addr string, limit int, before string) ([]Signature, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > maxSignaturesPerCall {
		limit = maxSignaturesPerCall
	}

	opts := map[string]interface{}{
		"limit":      limit,
		"commitment": c.commitment,
	}
	if before != "" {
		opts["before"] = before
	}

	raw, err := c.pool.RPCRequest(ctx, "getSignaturesForAddress", []interface{}{addr, opts})
	if err != nil {
		return nil, err
	}

	var sigs []Signature
	if err := json.Unmarshal(raw, &sigs); err != nil {
		return nil, fmt.Errorf("decode getSignaturesForAddress: %w", err)
	}
	return sigs, nil
}

// GetTransaction fetches and parses a confirmed transaction.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	raw, err := c.pool.RPCRequest(ctx, "getTransaction", []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "jsonParsed",
			"commitment":                     c.commitment,
			"maxSupportedTransactionVersion": 0,
		},
	})
	if err != nil {
		return nil, err
	}
	return parseTransaction(signature, raw)
}

// GetTokenAccountsByOwner lists SPL token accounts held by owner.
func (c *Client) GetTokenAccountsByOwner(ctx context.Context, owner string) ([]TokenAccount, error) {
	raw, err := c.pool.RPCRequest(ctx, "getTokenAccountsByOwner", []interface{}{
		owner,
		map[string]interface{}{"programId": TokenProgramID},
		map[string]interface{}{"encoding": "jsonParsed", "commitment": c.commitment},
	})
	if err != nil {
		return nil, err
	}
	return parseTokenAccounts(raw), nil
}

// GetRecentPrioritizationFees returns recent prioritization fee samples.
// The value is informational only; getFees is deprecated on modern clusters.
func (c *Client) GetRecentPrioritizationFees(ctx context.Context, addrs []string) ([]PrioritizationFee, error) {
	var params []interface{}
	if len(addrs) > 0 {
		params = []interface{}{addrs}
	}
	raw, err := c.pool.RPCRequest(ctx, "getRecentPrioritizationFees", params)
	if err != nil {
		return nil, err
	}
	var fees []PrioritizationFee
	if err := json.Unmarshal(raw, &fees); err != nil {
		return nil, fmt.Errorf("decode getRecentPrioritizationFees: %w", err)
	}
	return fees, nil
}

// TokenAccount is a parsed SPL token account summary.
type TokenAccount struct {
	Address string  `json:"address"`
	Mint    string  `json:"mint"`
	Amount  float64 `json:"amount"`
}

// PrioritizationFee is one sample from getRecentPrioritizationFees.
type PrioritizationFee struct {
	Slot              uint64 `json:"slot"`
	PrioritizationFee uint64 `json:"prioritizationFee"`
}
