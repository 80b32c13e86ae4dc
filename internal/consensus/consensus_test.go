package consensus

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostwallet/hunter/internal/detectives"
)

func completed(id string, score, confidence float64) detectives.Finding {
	return detectives.Finding{
		DetectiveID: id,
		RiskScore:   score,
		Confidence:  confidence,
		Status:      detectives.StatusCompleted,
	}
}

var unitWeights = map[string]float64{
	"poirot": 1, "marple": 1, "spade": 1, "marlowe": 1, "dupin": 1, "shadow": 1,
}

func TestAggregateCleanWallet(t *testing.T) {
	findings := []detectives.Finding{
		completed("poirot", 0.1, 0.8),
		completed("spade", 0.2, 0.8),
	}
	v := Aggregate(findings, unitWeights, 0.0, 10, false)

	detective := (0.1*0.8 + 0.2*0.8) / (0.8 + 0.8)
	assert.InDelta(t, 10*0.4+detective*20, v.OverallRiskScore, 1e-9)
	assert.Equal(t, LevelLow, v.RiskLevel)
	require.NotEmpty(t, v.Recommendations)
	assert.Equal(t, "✅ LOW RISK: No immediate action required", v.Recommendations[0])
}

func TestAggregateBlacklistedWallet(t *testing.T) {
	findings := []detectives.Finding{
		completed("poirot", 0.1, 0.8),
		completed("spade", 0.2, 0.8),
	}
	v := Aggregate(findings, unitWeights, 1.0, 10, true)

	assert.GreaterOrEqual(t, v.OverallRiskScore, 40.0)
	assert.Contains(t, []string{LevelMedium, LevelHigh, LevelCritical}, v.RiskLevel)

	found := false
	for _, r := range v.Recommendations {
		if r == "⚠️ Address appears on a blacklist: verify listing source before any interaction" {
			found = true
		}
	}
	assert.True(t, found, "blacklist-specific recommendation present")
}

func TestAggregateDegradedInvestigation(t *testing.T) {
	// Every detective failed: only the blacklist signal remains.
	findings := []detectives.Finding{
		{DetectiveID: "poirot", Status: detectives.StatusFailed},
		{DetectiveID: "spade", Status: detectives.StatusFailed},
	}
	v := Aggregate(findings, unitWeights, 1.0, 0, true)
	assert.InDelta(t, 40.0, v.OverallRiskScore, 1e-9)

	v = Aggregate(findings, unitWeights, 0.0, 0, false)
	assert.Equal(t, 0.0, v.OverallRiskScore)
	assert.Equal(t, LevelLow, v.RiskLevel)
}

func TestAggregateOrderIndependent(t *testing.T) {
	findings := []detectives.Finding{
		completed("poirot", 0.9, 0.7),
		completed("marple", 0.3, 0.9),
		completed("spade", 0.6, 0.5),
		completed("dupin", 1.0, 1.0),
		{DetectiveID: "shadow", Status: detectives.StatusFailed},
	}
	want := Aggregate(findings, unitWeights, 0.5, 42, false)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := make([]detectives.Finding, len(findings))
		copy(shuffled, findings)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := Aggregate(shuffled, unitWeights, 0.5, 42, false)
		assert.InDelta(t, want.OverallRiskScore, got.OverallRiskScore, 1e-9)
		assert.Equal(t, want.RiskLevel, got.RiskLevel)
	}
}

func TestAggregateDeterministic(t *testing.T) {
	findings := []detectives.Finding{completed("poirot", 0.5, 0.5)}
	a := Aggregate(findings, unitWeights, 0.25, 30, false)
	b := Aggregate(findings, unitWeights, 0.25, 30, false)
	assert.Equal(t, a, b)
}

func TestRiskLevelBoundaries(t *testing.T) {
	assert.Equal(t, LevelCritical, riskLevel(80))
	assert.Equal(t, LevelHigh, riskLevel(79.999))
	assert.Equal(t, LevelHigh, riskLevel(60))
	assert.Equal(t, LevelMedium, riskLevel(59.999))
	assert.Equal(t, LevelMedium, riskLevel(35))
	assert.Equal(t, LevelLow, riskLevel(34.999))
	assert.Equal(t, LevelLow, riskLevel(0))
}

func TestAggregateMonotoneInBlacklistScore(t *testing.T) {
	findings := []detectives.Finding{completed("poirot", 0.5, 0.5)}
	prev := -1.0
	for _, bl := range []float64{0, 0.25, 0.5, 0.75, 1.0} {
		v := Aggregate(findings, unitWeights, bl, 20, false)
		assert.Greater(t, v.OverallRiskScore, prev)
		prev = v.OverallRiskScore
	}
}

func TestAggregateIgnoresUnknownAndZeroWeight(t *testing.T) {
	findings := []detectives.Finding{
		completed("poirot", 0.2, 1.0),
		completed("raven", 1.0, 1.0),   // weight 0: narrative never moves the score
		completed("unknown", 1.0, 1.0), // absent from weights map
	}
	weights := map[string]float64{"poirot": 1, "raven": 0}
	v := Aggregate(findings, weights, 0, 0, false)
	assert.InDelta(t, 0.2*detectiveWeight*100, v.OverallRiskScore, 1e-9)
}
