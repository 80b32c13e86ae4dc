package blacklist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Entry is one flagged address as reported by a reputation source.
type Entry struct {
	Address string `json:"address"`
	Source  string `json:"source,omitempty"`
}

// ReputationSource supplies the authoritative blacklist. Implementations
// must be safe for the refresher goroutine to call repeatedly.
type ReputationSource interface {
	Name() string
	Fetch(ctx context.Context) ([]Entry, error)
}

const defaultSolscanBaseURL = "https://pro-api.solscan.io/v2.0"

// SolscanSource pulls flagged accounts from the Solscan pro API.
type SolscanSource struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewSolscanSource builds a source against the given base URL; an empty
// baseURL selects the public pro endpoint.
func NewSolscanSource(apiKey, baseURL string) *SolscanSource {
	if baseURL == "" {
		baseURL = defaultSolscanBaseURL
	}
	return &SolscanSource{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *SolscanSource) Name() string { return "solscan" }

// Fetch lists flagged accounts. The response shape is
// {"success": bool, "data": [{"address": ...}, ...]}.
func (s *SolscanSource) Fetch(ctx context.Context) ([]Entry, error) {
	url := s.baseURL + "/account/blacklist"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("token", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("solscan fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("solscan status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("solscan read: %w", err)
	}

	var parsed struct {
		Success bool `json:"success"`
		Data    []struct {
			Address string `json:"address"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("solscan decode: %w", err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("solscan reported failure")
	}

	entries := make([]Entry, 0, len(parsed.Data))
	for _, d := range parsed.Data {
		if d.Address == "" {
			continue
		}
		entries = append(entries, Entry{Address: d.Address, Source: "solscan"})
	}
	return entries, nil
}
