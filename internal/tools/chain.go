package tools

import (
	"context"

	"github.com/ghostwallet/hunter/internal/blacklist"
	"github.com/ghostwallet/hunter/internal/solana"
)

// BlacklistLookup is the slice of the checker these tools need.
type BlacklistLookup interface {
	IsBlacklisted(addr string) blacklist.Verdict
}

// CheckBlacklist looks an address up in the blacklist set.
type CheckBlacklist struct {
	checker BlacklistLookup
}

func NewCheckBlacklist(checker BlacklistLookup) *CheckBlacklist {
	return &CheckBlacklist{checker: checker}
}

func (c *CheckBlacklist) Name() string     { return "check_blacklist" }
func (c *CheckBlacklist) Describe() string { return "Check an address against the blacklist set" }

func (c *CheckBlacklist) Execute(_ context.Context, input map[string]interface{}) Result {
	addr, ok := stringParam(input, "address")
	if !ok {
		return Fail("check_blacklist requires an address parameter")
	}
	if !solana.ValidateAddress(addr) {
		return Fail("invalid address format: %s", addr)
	}
	return Ok(c.checker.IsBlacklisted(addr))
}

// ChainReader is the slice of the chain client the wallet tool needs.
type ChainReader interface {
	GetBalance(ctx context.Context, addr string) float64
	GetSignaturesPaginated(ctx context.Context, addr string, limit, pageSize int) ([]solana.Signature, error)
}

// AnalyzeWallet produces a quick on-chain summary of an address.
type AnalyzeWallet struct {
	chain ChainReader
}

func NewAnalyzeWallet(chain ChainReader) *AnalyzeWallet {
	return &AnalyzeWallet{chain: chain}
}

func (a *AnalyzeWallet) Name() string     { return "analyze_wallet" }
func (a *AnalyzeWallet) Describe() string { return "Summarize a wallet's on-chain activity" }

func (a *AnalyzeWallet) Execute(ctx context.Context, input map[string]interface{}) Result {
	addr, ok := stringParam(input, "address")
	if !ok {
		return Fail("analyze_wallet requires an address parameter")
	}
	if !solana.ValidateAddress(addr) {
		return Fail("invalid address format: %s", addr)
	}

	limit := 50
	if v, ok := floatParam(input, "limit"); ok && v > 0 {
		limit = int(v)
	}

	sigs, err := a.chain.GetSignaturesPaginated(ctx, addr, limit, 100)
	if err != nil {
		return Fail("fetch signatures: %v", err)
	}
	balance := a.chain.GetBalance(ctx, addr)

	failed := 0
	for _, s := range sigs {
		if s.Err != nil {
			failed++
		}
	}

	return Ok(map[string]interface{}{
		"address":             addr,
		"balance_sol":         balance,
		"balance_degraded":    balance == solana.DegradedBalance,
		"signatures_fetched":  len(sigs),
		"failed_transactions": failed,
	})
}

// RiskAssessment scores a wallet summary deterministically on a 0-100 scale.
// Same inputs always produce the same score.
type RiskAssessment struct{}

func NewRiskAssessment() *RiskAssessment { return &RiskAssessment{} }

func (r *RiskAssessment) Name() string     { return "risk_assessment" }
func (r *RiskAssessment) Describe() string { return "Deterministic risk score from wallet metrics" }

func (r *RiskAssessment) Execute(_ context.Context, input map[string]interface{}) Result {
	txCount, _ := floatParam(input, "transaction_count")
	balance, _ := floatParam(input, "balance_sol")
	counterparties, _ := floatParam(input, "unique_counterparties")
	failedRatio, _ := floatParam(input, "failed_ratio")

	score := 0.0
	var factors []string

	// Heavy transaction volume raises risk.
	switch {
	case txCount >= 500:
		score += 30
		factors = append(factors, "very high transaction volume")
	case txCount >= 100:
		score += 15
		factors = append(factors, "high transaction volume")
	}

	// Wide counterparty fan-out suggests distribution or mixing.
	if txCount > 0 && counterparties/txCount > 0.8 {
		score += 25
		factors = append(factors, "wide counterparty spread")
	}

	// Dust balance with heavy activity is a pass-through pattern.
	if balance >= 0 && balance < 0.01 && txCount >= 50 {
		score += 25
		factors = append(factors, "near-zero balance with heavy activity")
	}

	if failedRatio > 0.3 {
		score += 20
		factors = append(factors, "high failed-transaction ratio")
	}

	if score > 100 {
		score = 100
	}
	return Ok(map[string]interface{}{
		"risk_score": score,
		"factors":    factors,
	})
}
