// Package consensus combines per-detective findings and upstream signals
// into the final verdict. The aggregator is pure: same inputs, same outputs.
package consensus

import (
	"github.com/ghostwallet/hunter/internal/detectives"
)

// Risk levels, ordered.
const (
	LevelLow      = "LOW"
	LevelMedium   = "MEDIUM"
	LevelHigh     = "HIGH"
	LevelCritical = "CRITICAL"
)

// Signal weights for the overall score.
const (
	blacklistWeight   = 0.4
	preliminaryWeight = 0.4
	detectiveWeight   = 0.2
)

// Verdict is the aggregated outcome.
type Verdict struct {
	OverallRiskScore float64  `json:"overall_risk_score"` // 0..100
	RiskLevel        string   `json:"risk_level"`
	DetectiveScore   float64  `json:"detective_score"` // 0..1, weighted
	Recommendations  []string `json:"recommendations"`
}

// Aggregate computes the weighted verdict. weights maps detective id to its
// configured weight; findings with status failed, or detectives absent from
// the map, contribute nothing. blacklistScore is 0..1, preliminaryRisk is
// 0..100.
func Aggregate(findings []detectives.Finding, weights map[string]float64, blacklistScore, preliminaryRisk float64, blacklisted bool) Verdict {
	detectiveScore := weightedDetectiveScore(findings, weights)

	overall := blacklistWeight*blacklistScore*100 +
		preliminaryWeight*clamp(preliminaryRisk, 0, 100) +
		detectiveWeight*detectiveScore*100
	overall = clamp(overall, 0, 100)

	level := riskLevel(overall)
	return Verdict{
		OverallRiskScore: overall,
		RiskLevel:        level,
		DetectiveScore:   detectiveScore,
		Recommendations:  recommendations(level, blacklisted),
	}
}

// weightedDetectiveScore is the confidence-weighted mean of the completed
// findings; 0 when nothing carries weight.
func weightedDetectiveScore(findings []detectives.Finding, weights map[string]float64) float64 {
	var num, denom float64
	for _, f := range findings {
		if f.Status != detectives.StatusCompleted {
			continue
		}
		w := weights[f.DetectiveID] * f.Confidence
		num += f.RiskScore * w
		denom += w
	}
	if denom == 0 {
		return 0
	}
	return num / denom
}

func riskLevel(overall float64) string {
	switch {
	case overall >= 80:
		return LevelCritical
	case overall >= 60:
		return LevelHigh
	case overall >= 35:
		return LevelMedium
	default:
		return LevelLow
	}
}

// recommendations is a fixed table keyed by risk level and blacklist hit.
func recommendations(level string, blacklisted bool) []string {
	var out []string
	switch level {
	case LevelCritical:
		out = []string{
			"⛔ CRITICAL RISK: Do not transact with this wallet",
			"Report the address to your compliance team immediately",
			"Freeze any pending interactions involving this wallet",
		}
	case LevelHigh:
		out = []string{
			"🚨 HIGH RISK: Avoid transacting until cleared by review",
			"Escalate to manual investigation",
			"Monitor all first-degree counterparties",
		}
	case LevelMedium:
		out = []string{
			"🔍 MEDIUM RISK: Enhanced monitoring recommended",
			"Re-run the investigation after new activity",
		}
	default:
		out = []string{
			"✅ LOW RISK: No immediate action required",
			"Continue routine monitoring",
		}
	}

	if blacklisted {
		out = append(out, "⚠️ Address appears on a blacklist: verify listing source before any interaction")
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
