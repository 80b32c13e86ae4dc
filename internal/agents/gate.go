package agents

import (
	"sync"
	"time"

	"github.com/ghostwallet/hunter/internal/config"
)

// Gate rejection reasons, surfaced in the API response and the agent log.
const (
	ReasonCooldown     = "cooldown"
	ReasonRateLimit    = "rate_limit"
	ReasonPatternCache = "pattern_cache_below_minimum"
)

// GateDecision is the outcome of evaluating the trigger gate for one task.
type GateDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Memory is the per-agent investigation memory the trigger gate consults:
// last launch per wallet and a one-hour sliding window of launches.
type Memory struct {
	mu               sync.Mutex
	lastByWallet     map[string]time.Time
	launches         []time.Time
	patternCacheSize int
	now              func() time.Time
}

// NewMemory creates empty agent memory.
func NewMemory() *Memory {
	return &Memory{
		lastByWallet: make(map[string]time.Time),
		now:          time.Now,
	}
}

// SetPatternCacheSize updates the learned-pattern count used by profiles
// that require a minimum before deep investigations may run.
func (m *Memory) SetPatternCacheSize(n int) {
	m.mu.Lock()
	m.patternCacheSize = n
	m.mu.Unlock()
}

// ShouldTrigger evaluates the trigger gate for one wallet: per-wallet
// cooldown, launches-per-hour budget, then minimum pattern cache size.
// The first failing check wins.
func (m *Memory) ShouldTrigger(profile config.TriggerProfile, wallet string) GateDecision {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if profile.WalletCooldownHours > 0 {
		if last, ok := m.lastByWallet[wallet]; ok {
			if now.Sub(last) < time.Duration(profile.WalletCooldownHours)*time.Hour {
				return GateDecision{Reason: ReasonCooldown}
			}
		}
	}

	if profile.MaxPerHour > 0 {
		m.pruneLocked(now)
		if len(m.launches) >= profile.MaxPerHour {
			return GateDecision{Reason: ReasonRateLimit}
		}
	}

	if profile.MinPatternCacheSize > 0 && m.patternCacheSize < profile.MinPatternCacheSize {
		return GateDecision{Reason: ReasonPatternCache}
	}

	return GateDecision{Allowed: true}
}

// Record marks one launched investigation for cooldown and rate accounting.
// Called at gate-pass time, not at completion, so back-to-back triggers for
// the same wallet cannot race past the cooldown.
func (m *Memory) Record(wallet string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.lastByWallet[wallet] = now
	m.launches = append(m.launches, now)
	m.pruneLocked(now)
}

func (m *Memory) pruneLocked(now time.Time) {
	cutoff := now.Add(-time.Hour)
	i := 0
	for i < len(m.launches) && m.launches[i].Before(cutoff) {
		i++
	}
	m.launches = m.launches[i:]
}
