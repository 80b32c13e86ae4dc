package agents

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ghostwallet/hunter/internal/config"
)

func frozenMemory(base time.Time) (*Memory, *time.Time) {
	mem := NewMemory()
	now := base
	mem.now = func() time.Time { return now }
	return mem, &now
}

func TestGateWalletCooldown(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mem, now := frozenMemory(base)
	profile := config.TriggerProfile{WalletCooldownHours: 24, MaxPerHour: 5}

	assert.True(t, mem.ShouldTrigger(profile, "w1").Allowed)
	mem.Record("w1")

	decision := mem.ShouldTrigger(profile, "w1")
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonCooldown, decision.Reason)

	// A different wallet is unaffected.
	assert.True(t, mem.ShouldTrigger(profile, "w2").Allowed)

	*now = base.Add(23 * time.Hour)
	assert.False(t, mem.ShouldTrigger(profile, "w1").Allowed)

	*now = base.Add(25 * time.Hour)
	assert.True(t, mem.ShouldTrigger(profile, "w1").Allowed)
}

func TestGateHourlyBudget(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mem, now := frozenMemory(base)
	profile := config.TriggerProfile{MaxPerHour: 2}

	mem.Record("w1")
	*now = base.Add(10 * time.Minute)
	mem.Record("w2")

	decision := mem.ShouldTrigger(profile, "w3")
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonRateLimit, decision.Reason)

	// The first launch falls out of the sliding window.
	*now = base.Add(61 * time.Minute)
	assert.True(t, mem.ShouldTrigger(profile, "w3").Allowed)
}

func TestGateMinimumPatternCache(t *testing.T) {
	mem := NewMemory()
	profile := config.TriggerProfile{MinPatternCacheSize: 10}

	decision := mem.ShouldTrigger(profile, "w1")
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonPatternCache, decision.Reason)

	mem.SetPatternCacheSize(10)
	assert.True(t, mem.ShouldTrigger(profile, "w1").Allowed)
}

func TestGateCooldownWinsOverRateLimit(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mem, _ := frozenMemory(base)
	profile := config.TriggerProfile{WalletCooldownHours: 24, MaxPerHour: 1}

	mem.Record("w1")
	decision := mem.ShouldTrigger(profile, "w1")
	assert.Equal(t, ReasonCooldown, decision.Reason, "cooldown is checked first")
}
