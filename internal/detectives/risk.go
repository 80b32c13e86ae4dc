package detectives

import (
	"context"
	"fmt"
	"time"

	"github.com/ghostwallet/hunter/internal/blacklist"
)

// Spade scores a composite of fee profile, counterparty fan-out, and
// balance-flow sign changes.
type Spade struct {
	weight float64
}

func (s *Spade) ID() string        { return "spade" }
func (s *Spade) Specialty() string { return "risk_assessment" }
func (s *Spade) Weight() float64   { return s.weight }

func (s *Spade) Analyze(_ context.Context, cf CaseFile) (Finding, error) {
	start := time.Now()
	score := 0.0
	var patterns []string

	// Fee profile: consistently elevated fees indicate priority racing.
	if len(cf.Transactions) > 0 {
		elevated := 0
		for _, tx := range cf.Transactions {
			if tx.Fee > 100_000 { // lamports; ~20x the base fee
				elevated++
			}
		}
		if float64(elevated)/float64(len(cf.Transactions)) > 0.5 {
			score += 0.3
			patterns = append(patterns, "elevated_fee_profile")
		}
	}

	// Counterparty fan-out relative to activity.
	if cf.Wallet.TotalTransactions > 0 {
		spread := float64(cf.Wallet.UniqueCounterparties) / float64(cf.Wallet.TotalTransactions)
		if spread > 0.8 && cf.Wallet.UniqueCounterparties >= 10 {
			score += 0.35
			patterns = append(patterns, "wide_fan_out")
		}
	}

	// Balance flow: frequent sign flips between inflow and outflow.
	flips := balanceFlowFlips(cf)
	if flips >= 5 {
		score += 0.35
		patterns = append(patterns, "alternating_flow")
	}

	notes := fmt.Sprintf("%d counterparties over %d txs, %d flow flips",
		cf.Wallet.UniqueCounterparties, cf.Wallet.TotalTransactions, flips)
	return newFinding(s, start, score, 0.85, notes, patterns), nil
}

// balanceFlowFlips counts direction changes of the wallet's own balance
// delta across the transaction details.
func balanceFlowFlips(cf CaseFile) int {
	var deltas []int64
	for _, tx := range cf.Transactions {
		idx := -1
		for i, key := range tx.AccountKeys {
			if key == cf.Wallet.Address {
				idx = i
				break
			}
		}
		if idx < 0 || idx >= len(tx.PreBalances) || idx >= len(tx.PostBalances) {
			continue
		}
		deltas = append(deltas, int64(tx.PostBalances[idx])-int64(tx.PreBalances[idx]))
	}

	flips := 0
	for i := 1; i < len(deltas); i++ {
		if (deltas[i] > 0) != (deltas[i-1] > 0) && deltas[i] != 0 && deltas[i-1] != 0 {
			flips++
		}
	}
	return flips
}

// Dupin intersects counterparties with the blacklist and applies
// structuring heuristics.
type Dupin struct {
	weight  float64
	checker ComplianceSource
}

func (d *Dupin) ID() string        { return "dupin" }
func (d *Dupin) Specialty() string { return "compliance_analysis" }
func (d *Dupin) Weight() float64   { return d.weight }

func (d *Dupin) Analyze(_ context.Context, cf CaseFile) (Finding, error) {
	start := time.Now()
	score := 0.0
	var patterns []string

	if cf.Blacklist.Status == blacklist.StatusFlagged {
		score += 0.7
		patterns = append(patterns, "subject_blacklisted")
	}

	flaggedPeers := 0
	if d.checker != nil {
		for _, peer := range counterparties(cf.Wallet.Address, cf.Transactions) {
			if d.checker.IsBlacklisted(peer).Flagged() {
				flaggedPeers++
			}
		}
		if flaggedPeers > 0 {
			score += 0.3
			patterns = append(patterns, "blacklisted_counterparty")
		}
	}

	// Structuring: many uniform small transfers in sequence.
	uniform := uniformTransferRun(cf)
	if uniform >= 5 {
		score += 0.2
		patterns = append(patterns, "structuring_pattern")
	}

	notes := fmt.Sprintf("subject=%s, %d flagged counterparties, uniform run of %d",
		cf.Blacklist.Status, flaggedPeers, uniform)
	return newFinding(d, start, score, 0.9, notes, patterns), nil
}

// uniformTransferRun finds the longest run of consecutive transactions whose
// wallet balance deltas match within 1%.
func uniformTransferRun(cf CaseFile) int {
	var deltas []int64
	for _, tx := range cf.Transactions {
		for i, key := range tx.AccountKeys {
			if key != cf.Wallet.Address || i >= len(tx.PreBalances) || i >= len(tx.PostBalances) {
				continue
			}
			if d := int64(tx.PostBalances[i]) - int64(tx.PreBalances[i]); d != 0 {
				deltas = append(deltas, d)
			}
			break
		}
	}

	longest, run := 0, 1
	for i := 1; i < len(deltas); i++ {
		a, b := deltas[i-1], deltas[i]
		if a < 0 {
			a = -a
		}
		if b < 0 {
			b = -b
		}
		diff := a - b
		if diff < 0 {
			diff = -diff
		}
		if a > 0 && float64(diff)/float64(a) < 0.01 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}
