package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Common pool errors.
var (
	ErrAllEndpointsFailed = errors.New("all rpc endpoints exhausted")
	ErrNoEndpoints        = errors.New("no rpc endpoints configured")
)

// defaultEndpoints are public Solana RPC nodes appended after any configured
// primary and fallback URLs.
var defaultEndpoints = []string{
	"https://api.mainnet-beta.solana.com",
	"https://rpc.ankr.com/solana",
	"https://solana-api.projectserum.com",
}

const rateLimitCode = -32005

// EndpointState is the pool's health bookkeeping for one endpoint. Mutated
// only by the pool under its own lock; callers get copies.
type EndpointState struct {
	URL                 string    `json:"url"`
	Healthy             bool      `json:"healthy"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastError           string    `json:"last_error,omitempty"`
	LastSuccessAt       time.Time `json:"last_success_at,omitempty"`
}

// RPCError is a JSON-RPC error object returned by an endpoint.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// rateLimited recognizes the upstream throttle shapes that should trigger an
// immediate fail-over instead of burning the retry budget.
func (e *RPCError) rateLimited() bool {
	if e.Code == rateLimitCode {
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "429") || strings.Contains(msg, "too many requests")
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// PoolConfig tunes the failover pool.
type PoolConfig struct {
	PrimaryURL   string
	FallbackURLs []string
	Timeout      time.Duration
	RetryMax     int
	RetryBase    time.Duration

	// DisablePublicDefaults skips the built-in public endpoints. Used by
	// air-gapped deployments and hermetic tests.
	DisablePublicDefaults bool
}

// Pool is a failover JSON-RPC client over a ranked endpoint list. Each call
// walks the list in order, retrying per endpoint with linear-growth backoff
// and skipping endpoints whose breaker is open or that report rate limiting.
type Pool struct {
	endpoints []string
	client    *http.Client
	retryMax  int
	retryBase time.Duration

	mu       sync.Mutex
	states   map[string]*EndpointState
	breakers map[string]*endpointBreaker

	metrics *Metrics
	logger  *log.Logger
	reqID   atomic.Uint64
}

// NewPool builds the ranked endpoint list from the primary URL, the fallback
// URLs, and the built-in public defaults, deduplicated with order preserved.
func NewPool(cfg PoolConfig, metrics *Metrics) *Pool {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 3
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 250 * time.Millisecond
	}

	var ranked []string
	seen := make(map[string]bool)
	add := func(url string) {
		url = strings.TrimSpace(url)
		if url == "" || seen[url] {
			return
		}
		seen[url] = true
		ranked = append(ranked, url)
	}
	add(cfg.PrimaryURL)
	for _, u := range cfg.FallbackURLs {
		add(u)
	}
	if !cfg.DisablePublicDefaults {
		for _, u := range defaultEndpoints {
			add(u)
		}
	}

	p := &Pool{
		endpoints: ranked,
		client:    &http.Client{Timeout: cfg.Timeout},
		retryMax:  cfg.RetryMax,
		retryBase: cfg.RetryBase,
		states:    make(map[string]*EndpointState, len(ranked)),
		breakers:  make(map[string]*endpointBreaker, len(ranked)),
		metrics:   metrics,
		logger:    log.New(log.Writer(), "[POOL] ", log.LstdFlags),
	}
	for _, url := range ranked {
		p.states[url] = &EndpointState{URL: url, Healthy: true}
		p.breakers[url] = newEndpointBreaker(0, 0)
	}

	if len(ranked) > 0 {
		p.logger.Printf("🌐 RPC pool initialized with %d endpoints (primary: %s)", len(ranked), ranked[0])
	}
	return p
}

// RPCRequest issues a JSON-RPC call against the ranked endpoint list. It
// returns the first successful result; if every endpoint exhausts its retry
// budget, it returns ErrAllEndpointsFailed wrapping the last failure.
func (p *Pool) RPCRequest(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	if len(p.endpoints) == 0 {
		return nil, ErrNoEndpoints
	}

	var lastErr error
	for i, url := range p.endpoints {
		breaker := p.breakers[url]
		if !breaker.Allow() {
			continue
		}

		result, err := p.tryEndpoint(ctx, url, i+1, method, params)
		if err == nil {
			breaker.OnSuccess()
			p.markSuccess(url)
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		breaker.OnFailure()
		p.markFailure(url, err)
		p.metrics.RecordFailover(url)
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("all endpoint breakers open")
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrAllEndpointsFailed, method, lastErr)
}

// tryEndpoint runs the per-endpoint retry loop. rank is the 1-based position
// of the endpoint in the failover order and scales the backoff.
func (p *Pool) tryEndpoint(ctx context.Context, url string, rank int, method string, params []interface{}) (json.RawMessage, error) {
	var lastErr error
	for attempt := 1; attempt <= p.retryMax; attempt++ {
		if attempt > 1 {
			backoff := p.retryBase * time.Duration(rank+attempt-1)
			if err := sleepCtx(ctx, backoff); err != nil {
				return nil, err
			}
		}

		result, err := p.post(ctx, url, method, params)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		var rpcErr *RPCError
		if errors.As(err, &rpcErr) && rpcErr.rateLimited() {
			// Fail over immediately; burning retries on a throttled
			// endpoint only makes the throttle worse.
			p.logger.Printf("⚠️ Rate limited by %s, failing over", url)
			return nil, err
		}

		lastErr = err
	}
	return nil, lastErr
}

// post performs a single JSON-RPC POST.
func (p *Pool) post(ctx context.Context, url, method string, params []interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      p.reqID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		p.metrics.RecordRequest(url, method, "transport_error", time.Since(start))
		return nil, fmt.Errorf("http post %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		p.metrics.RecordRequest(url, method, "rate_limited", time.Since(start))
		return nil, &RPCError{Code: rateLimitCode, Message: "429 Too many requests"}
	}
	if resp.StatusCode != http.StatusOK {
		p.metrics.RecordRequest(url, method, "http_error", time.Since(start))
		return nil, fmt.Errorf("http status %d from %s", resp.StatusCode, url)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		p.metrics.RecordRequest(url, method, "read_error", time.Since(start))
		return nil, fmt.Errorf("read body: %w", err)
	}

	var parsed rpcResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		p.metrics.RecordRequest(url, method, "decode_error", time.Since(start))
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		status := "rpc_error"
		if parsed.Error.rateLimited() {
			status = "rate_limited"
		}
		p.metrics.RecordRequest(url, method, status, time.Since(start))
		return nil, parsed.Error
	}
	if parsed.Result == nil {
		p.metrics.RecordRequest(url, method, "empty_result", time.Since(start))
		return nil, fmt.Errorf("response from %s has neither result nor error", url)
	}

	p.metrics.RecordRequest(url, method, "ok", time.Since(start))
	return parsed.Result, nil
}

func (p *Pool) markSuccess(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.states[url]
	st.Healthy = true
	st.ConsecutiveFailures = 0
	st.LastError = ""
	st.LastSuccessAt = time.Now()
}

func (p *Pool) markFailure(url string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.states[url]
	st.Healthy = false
	st.ConsecutiveFailures++
	st.LastError = err.Error()
}

// Health returns a snapshot of every endpoint's state, in failover order.
func (p *Pool) Health() []EndpointState {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]EndpointState, 0, len(p.endpoints))
	for _, url := range p.endpoints {
		out = append(out, *p.states[url])
	}
	return out
}

// Endpoints returns the ranked endpoint list.
func (p *Pool) Endpoints() []string {
	out := make([]string, len(p.endpoints))
	copy(out, p.endpoints)
	return out
}

// sleepCtx sleeps for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
