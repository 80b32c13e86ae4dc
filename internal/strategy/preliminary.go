package strategy

import (
	"github.com/ghostwallet/hunter/internal/detectives"
)

// PreliminaryRisk is the deterministic pre-detective score computed from the
// wallet analysis alone.
type PreliminaryRisk struct {
	Score   float64  `json:"score"` // 0..100
	Factors []string `json:"factors,omitempty"`
}

// assessPreliminaryRisk scores volume, balance posture, counterparty spread,
// and failure ratio. Pure; same summary always produces the same score.
func assessPreliminaryRisk(w detectives.WalletSummary) PreliminaryRisk {
	if w.Degraded {
		return PreliminaryRisk{Score: 0, Factors: []string{"degraded_data"}}
	}

	score := 0.0
	var factors []string

	switch {
	case w.TotalTransactions >= 500:
		score += 30
		factors = append(factors, "very_high_volume")
	case w.TotalTransactions >= 100:
		score += 15
		factors = append(factors, "high_volume")
	}

	if w.TotalTransactions >= 50 && w.BalanceSOL >= 0 && w.BalanceSOL < 0.01 {
		score += 25
		factors = append(factors, "pass_through_balance")
	}

	if w.TotalTransactions > 0 {
		spread := float64(w.UniqueCounterparties) / float64(w.TotalTransactions)
		if spread > 0.8 && w.UniqueCounterparties >= 10 {
			score += 25
			factors = append(factors, "wide_counterparty_spread")
		}
	}

	if w.TotalTransactions > 0 {
		failRatio := float64(w.FailedCount) / float64(w.TotalTransactions)
		if failRatio > 0.3 {
			score += 20
			factors = append(factors, "high_failure_ratio")
		}
	}

	if score > 100 {
		score = 100
	}
	return PreliminaryRisk{Score: score, Factors: factors}
}
