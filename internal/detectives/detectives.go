// Package detectives holds the fixed squad of wallet analyzers. Each
// detective consumes the shared case file and emits an independent finding;
// the consensus layer combines them.
package detectives

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/ghostwallet/hunter/internal/blacklist"
	"github.com/ghostwallet/hunter/internal/solana"
)

// Finding statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// WalletSummary is the strategy's digest of a wallet's on-chain footprint.
type WalletSummary struct {
	Address              string             `json:"address"`
	AccountType          string             `json:"account_type"`
	BalanceSOL           float64            `json:"balance_sol"`
	TotalTransactions    int                `json:"total_transactions"`
	Signatures           []solana.Signature `json:"-"`
	UniqueCounterparties int                `json:"unique_counterparties"`
	FailedCount          int                `json:"failed_count"`
	Degraded             bool               `json:"degraded"`
}

// CaseFile is the immutable input every detective receives.
type CaseFile struct {
	Wallet          WalletSummary
	Blacklist       blacklist.Verdict
	PreliminaryRisk float64 // 0..100
	Transactions    []solana.Transaction
}

// Finding is one detective's verdict. Immutable once emitted.
type Finding struct {
	DetectiveID      string   `json:"detective_id"`
	Specialty        string   `json:"specialty"`
	RiskScore        float64  `json:"risk_score"` // 0..1
	Confidence       float64  `json:"confidence"` // 0..1
	Notes            string   `json:"notes,omitempty"`
	PatternsDetected []string `json:"patterns_detected,omitempty"`
	ExecutionMS      float64  `json:"execution_ms"`
	Status           string   `json:"status"`
}

// Detective is one member of the squad.
type Detective interface {
	ID() string
	Specialty() string
	Weight() float64
	Analyze(ctx context.Context, cf CaseFile) (Finding, error)
}

// Registry holds the squad. Populated once at startup; lookups after that
// are read-only.
type Registry struct {
	mu     sync.RWMutex
	squad  map[string]Detective
	order  []string
	logger *log.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		squad:  make(map[string]Detective),
		logger: log.New(log.Writer(), "[SQUAD] ", log.LstdFlags),
	}
}

// Register adds a detective. The registration order is the squad order.
func (r *Registry) Register(d Detective) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.ID() == "" {
		return fmt.Errorf("detective id is required")
	}
	if _, ok := r.squad[d.ID()]; ok {
		return fmt.Errorf("detective %q already registered", d.ID())
	}
	r.squad[d.ID()] = d
	r.order = append(r.order, d.ID())
	r.logger.Printf("🕵️ Registered detective: %s (%s, weight=%.2f)", d.ID(), d.Specialty(), d.Weight())
	return nil
}

// Get retrieves a detective by id.
func (r *Registry) Get(id string) (Detective, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.squad[id]
	return d, ok
}

// Squad returns the detectives in registration order, optionally filtered to
// the given subset. Unknown ids in the subset are skipped.
func (r *Registry) Squad(subset []string) []Detective {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(subset) == 0 {
		out := make([]Detective, 0, len(r.order))
		for _, id := range r.order {
			out = append(out, r.squad[id])
		}
		return out
	}

	wanted := make(map[string]bool, len(subset))
	for _, id := range subset {
		wanted[id] = true
	}
	out := make([]Detective, 0, len(subset))
	for _, id := range r.order {
		if wanted[id] {
			out = append(out, r.squad[id])
		}
	}
	return out
}

// IDs returns the registered detective ids in squad order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// NewSquad builds the standard seven-detective registry. weights overrides
// the default per-detective weight; the narrative detective always carries
// weight 0. llm may be disabled; checker may be nil (compliance then works
// from the case file verdict alone).
func NewSquad(weights map[string]float64, llm Narrator, checker ComplianceSource) *Registry {
	w := func(id string, def float64) float64 {
		if v, ok := weights[id]; ok {
			return v
		}
		return def
	}

	r := NewRegistry()
	for _, d := range []Detective{
		&Poirot{weight: w("poirot", 1.0)},
		&Marple{weight: w("marple", 1.0)},
		&Spade{weight: w("spade", 1.0)},
		&Marlowe{weight: w("marlowe", 1.0)},
		&Dupin{weight: w("dupin", 1.0), checker: checker},
		&Shadow{weight: w("shadow", 1.0)},
		&Raven{llm: llm},
	} {
		if err := r.Register(d); err != nil {
			panic(err) // duplicate ids in the fixed squad are a programming error
		}
	}
	return r
}

// ComplianceSource is the blacklist slice the compliance detective uses to
// screen counterparties.
type ComplianceSource interface {
	IsBlacklisted(addr string) blacklist.Verdict
}

// Narrator is the LLM slice the final-report detective uses.
type Narrator interface {
	Enabled() bool
	Chat(ctx context.Context, prompt string) (string, error)
}

// newFinding stamps the common fields.
func newFinding(d Detective, start time.Time, score, confidence float64, notes string, patterns []string) Finding {
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return Finding{
		DetectiveID:      d.ID(),
		Specialty:        d.Specialty(),
		RiskScore:        score,
		Confidence:       confidence,
		Notes:            notes,
		PatternsDetected: patterns,
		ExecutionMS:      float64(time.Since(start).Microseconds()) / 1000.0,
		Status:           StatusCompleted,
	}
}

// FailedFinding is the placeholder recorded when a detective errors out. It
// carries zero weight in consensus.
func FailedFinding(id, specialty string, err error) Finding {
	return Finding{
		DetectiveID: id,
		Specialty:   specialty,
		Notes:       err.Error(),
		Status:      StatusFailed,
	}
}

// counterparties extracts the first-degree counterparty set from the parsed
// transactions, excluding the wallet itself and program accounts.
func counterparties(wallet string, txs []solana.Transaction) []string {
	seen := make(map[string]bool)
	for _, tx := range txs {
		for _, key := range tx.AccountKeys {
			if key == wallet || key == "" {
				continue
			}
			if _, isProgram := knownProgramSet[key]; isProgram {
				continue
			}
			seen[key] = true
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var knownProgramSet = map[string]bool{
	solana.SystemProgramID:     true,
	solana.TokenProgramID:      true,
	solana.ATAProgramID:        true,
	solana.MemoProgramID:       true,
	solana.JupiterAggregatorID: true,
	solana.RaydiumAMMID:        true,
	solana.OrcaWhirlpoolID:     true,
}

// blockTimes returns the non-zero block times from the signature stream,
// oldest first.
func blockTimes(sigs []solana.Signature) []int64 {
	out := make([]int64, 0, len(sigs))
	for _, s := range sigs {
		if s.BlockTime > 0 {
			out = append(out, s.BlockTime)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
