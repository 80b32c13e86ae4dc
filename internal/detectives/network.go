package detectives

import (
	"context"
	"fmt"
	"time"
)

// knownMixers are router/mixer addresses whose appearance in the first-degree
// graph is itself a signal. Sourced from public incident reports.
var knownMixers = map[string]string{
	"tor1xzb2Zyy1cUxXmyJfR8aNXuWnwHG8AwgaG7UGD4K": "tornado_style_mixer",
	"mixerEfg3yXGYZJbhG43RJ2KdMUXbf6s9YGBXnJE9Qj8": "sol_mixer",
	"wormDTUJ6AWPNvk59vGQbDvGJmqbDTdgWgAqcLBCgUb":  "wormhole_bridge",
}

// Marlowe builds the first-degree counterparty graph and checks it against
// known bridge and mixer ids.
type Marlowe struct {
	weight float64
}

func (m *Marlowe) ID() string        { return "marlowe" }
func (m *Marlowe) Specialty() string { return "network_analysis" }
func (m *Marlowe) Weight() float64   { return m.weight }

func (m *Marlowe) Analyze(_ context.Context, cf CaseFile) (Finding, error) {
	start := time.Now()
	peers := counterparties(cf.Wallet.Address, cf.Transactions)

	score := 0.0
	var patterns []string

	var mixerHits []string
	for _, p := range peers {
		if label, ok := knownMixers[p]; ok {
			mixerHits = append(mixerHits, label)
		}
	}
	if len(mixerHits) > 0 {
		score += 0.6
		patterns = append(patterns, "mixer_interaction")
	}

	// Hub shape: very many peers touched exactly once each.
	if len(peers) >= 20 && cf.Wallet.TotalTransactions > 0 {
		if float64(len(peers))/float64(cf.Wallet.TotalTransactions) > 0.9 {
			score += 0.3
			patterns = append(patterns, "distribution_hub")
		}
	}

	// Isolated wallet with balance but no graph at all is its own signal.
	if len(peers) == 0 && cf.Wallet.BalanceSOL > 10 {
		score += 0.2
		patterns = append(patterns, "isolated_holder")
	}

	notes := fmt.Sprintf("%d first-degree counterparties, %d mixer/bridge hits", len(peers), len(mixerHits))
	return newFinding(m, start, score, 0.8, notes, patterns), nil
}

// Shadow clusters counterparties by shared-neighbor ratio: peers that appear
// together across many of the wallet's transactions likely move in concert.
type Shadow struct {
	weight float64
}

func (s *Shadow) ID() string        { return "shadow" }
func (s *Shadow) Specialty() string { return "cluster_analysis" }
func (s *Shadow) Weight() float64   { return s.weight }

func (s *Shadow) Analyze(_ context.Context, cf CaseFile) (Finding, error) {
	start := time.Now()

	// appearances[peer] = set of tx indices the peer shows up in.
	appearances := make(map[string]map[int]bool)
	for i, tx := range cf.Transactions {
		for _, key := range tx.AccountKeys {
			if key == cf.Wallet.Address || key == "" || knownProgramSet[key] {
				continue
			}
			if appearances[key] == nil {
				appearances[key] = make(map[int]bool)
			}
			appearances[key][i] = true
		}
	}

	peers := make([]string, 0, len(appearances))
	for p := range appearances {
		peers = append(peers, p)
	}

	// Count peer pairs whose co-occurrence ratio exceeds 0.8.
	clustered := 0
	for i := 0; i < len(peers); i++ {
		for j := i + 1; j < len(peers); j++ {
			a, b := appearances[peers[i]], appearances[peers[j]]
			shared := 0
			for idx := range a {
				if b[idx] {
					shared++
				}
			}
			smaller := len(a)
			if len(b) < smaller {
				smaller = len(b)
			}
			if smaller >= 3 && float64(shared)/float64(smaller) > 0.8 {
				clustered++
			}
		}
	}

	score := 0.0
	var patterns []string
	if clustered >= 3 {
		score = 0.5
		patterns = append(patterns, "co_moving_cluster")
	} else if clustered > 0 {
		score = 0.25
		patterns = append(patterns, "weak_cluster")
	}

	notes := fmt.Sprintf("%d peers, %d co-moving pairs", len(peers), clustered)
	return newFinding(s, start, score, 0.7, notes, patterns), nil
}
