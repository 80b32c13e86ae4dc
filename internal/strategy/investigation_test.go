package strategy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostwallet/hunter/internal/blacklist"
	"github.com/ghostwallet/hunter/internal/consensus"
	"github.com/ghostwallet/hunter/internal/detectives"
	"github.com/ghostwallet/hunter/internal/solana"
	"github.com/ghostwallet/hunter/internal/store"
)

const testWallet = "So11111111111111111111111111111111111111112"

type stubChain struct {
	mu      sync.Mutex
	balance float64
	sigs    []solana.Signature
	sigErr  error
	info    *solana.AccountInfo
	txs     map[string]*solana.Transaction
	calls   int
}

func (s *stubChain) count() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *stubChain) GetBalance(context.Context, string) float64 {
	s.count()
	return s.balance
}

func (s *stubChain) GetAccountInfo(context.Context, string) (*solana.AccountInfo, error) {
	s.count()
	if s.info == nil {
		return nil, errors.New("account info unavailable")
	}
	return s.info, nil
}

func (s *stubChain) GetSignaturesPaginated(context.Context, string, int, int) ([]solana.Signature, error) {
	s.count()
	return s.sigs, s.sigErr
}

func (s *stubChain) GetTransaction(_ context.Context, sig string) (*solana.Transaction, error) {
	s.count()
	if tx, ok := s.txs[sig]; ok {
		return tx, nil
	}
	return nil, errors.New("not found")
}

type stubChecker struct{ verdict blacklist.Verdict }

func (s *stubChecker) IsBlacklisted(string) blacklist.Verdict { return s.verdict }

type capturedEvent struct {
	Event   string
	Payload interface{}
}

type stubPublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (s *stubPublisher) Publish(event string, payload interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, capturedEvent{event, payload})
}

func (s *stubPublisher) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Event
	}
	return out
}

func cleanChain() *stubChain {
	sigs := []solana.Signature{
		{Signature: "s1", Slot: 1, BlockTime: 1_700_000_000},
		{Signature: "s2", Slot: 2, BlockTime: 1_700_100_000},
		{Signature: "s3", Slot: 3, BlockTime: 1_700_200_000},
	}
	txs := map[string]*solana.Transaction{}
	for i, s := range sigs {
		txs[s.Signature] = &solana.Transaction{
			Signature:    s.Signature,
			AccountKeys:  []string{testWallet, fmt.Sprintf("Counterparty%d", i)},
			PreBalances:  []uint64{100, 0},
			PostBalances: []uint64{90, 10},
		}
	}
	return &stubChain{
		balance: 1000.0,
		sigs:    sigs,
		info:    &solana.AccountInfo{Owner: solana.SystemProgramID},
		txs:     txs,
	}
}

func newPipeline(chain ChainClient, verdict blacklist.Verdict) (*DetectiveInvestigation, *store.Memory, *stubPublisher) {
	mem := store.NewMemory()
	pub := &stubPublisher{}
	squad := detectives.NewSquad(nil, nil, nil)
	return NewDetectiveInvestigation(chain, &stubChecker{verdict}, squad, mem, pub), mem, pub
}

func TestInvestigateRejectsInvalidAddressWithoutRPC(t *testing.T) {
	chain := cleanChain()
	pipeline, mem, _ := newPipeline(chain, blacklist.Verdict{Status: blacklist.StatusClean})

	_, err := pipeline.Investigate(context.Background(), "1111111111111111111111111111111111111111111", Options{})
	require.ErrorIs(t, err, ErrInvalidAddress)
	assert.Equal(t, 0, chain.calls, "no RPC calls for an invalid address")

	_, err = mem.LatestInvestigation(context.Background(), "1111111111111111111111111111111111111111111")
	assert.ErrorIs(t, err, store.ErrNotFound, "nothing persisted")
}

func TestInvestigateCleanWallet(t *testing.T) {
	pipeline, mem, pub := newPipeline(cleanChain(), blacklist.Verdict{Status: blacklist.StatusClean, Confidence: 0.9})

	result, err := pipeline.Investigate(context.Background(), testWallet, Options{})
	require.NoError(t, err)

	assert.Equal(t, InvestigationCompleted, result.Status)
	assert.Equal(t, consensus.LevelLow, result.RiskLevel)
	require.NotEmpty(t, result.Recommendations)
	assert.Equal(t, "✅ LOW RISK: No immediate action required", result.Recommendations[0])

	assert.Equal(t, 3, result.WalletAnalysis.TotalTransactions)
	assert.Equal(t, 3, result.WalletAnalysis.UniqueCounterparties)
	assert.Equal(t, "standard", result.WalletAnalysis.AccountType)

	// All seven detectives reported, and the narrative came from raven.
	require.Len(t, result.DetectiveInsights, 7)
	for _, f := range result.DetectiveInsights {
		assert.Equal(t, detectives.StatusCompleted, f.Status, f.DetectiveID)
	}
	assert.NotEmpty(t, result.FinalReport)

	// Committed and published.
	_, err = mem.LatestInvestigation(context.Background(), testWallet)
	assert.NoError(t, err)
	assert.Contains(t, pub.names(), EventInvestigationCompleted)
}

func TestInvestigateBlacklistedWallet(t *testing.T) {
	verdict := blacklist.Verdict{Status: blacklist.StatusFlagged, Sources: []string{"solscan"}, Confidence: 0.95}
	pipeline, _, pub := newPipeline(cleanChain(), verdict)

	result, err := pipeline.Investigate(context.Background(), testWallet, Options{})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.OverallRiskScore, 40.0)
	assert.Contains(t, []string{consensus.LevelMedium, consensus.LevelHigh, consensus.LevelCritical}, result.RiskLevel)
	assert.Contains(t, pub.names(), EventBlacklistHit)

	found := false
	for _, r := range result.Recommendations {
		if r == "⚠️ Address appears on a blacklist: verify listing source before any interaction" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestInvestigateDegradedChain(t *testing.T) {
	chain := &stubChain{
		balance: solana.DegradedBalance,
		sigErr:  errors.New("all rpc endpoints exhausted"),
	}
	pipeline, mem, pub := newPipeline(chain, blacklist.Verdict{Status: blacklist.StatusFlagged, Confidence: 0.95})

	result, err := pipeline.Investigate(context.Background(), testWallet, Options{})
	require.NoError(t, err, "degraded chain still completes the investigation")

	assert.Equal(t, InvestigationDegraded, result.Status)
	for _, f := range result.DetectiveInsights {
		assert.Equal(t, detectives.StatusFailed, f.Status, f.DetectiveID)
	}
	// Only the blacklist signal survives.
	assert.InDelta(t, 40.0, result.OverallRiskScore, 1e-9)
	assert.Contains(t, pub.names(), EventInvestigationDegraded)

	_, err = mem.LatestInvestigation(context.Background(), testWallet)
	assert.NoError(t, err, "degraded results are still persisted")
}

func TestInvestigateDetectiveSubset(t *testing.T) {
	pipeline, _, _ := newPipeline(cleanChain(), blacklist.Verdict{Status: blacklist.StatusClean})

	result, err := pipeline.Investigate(context.Background(), testWallet, Options{
		Detectives: []string{"poirot", "spade"},
	})
	require.NoError(t, err)

	// Subset plus the always-on narrative detective.
	require.Len(t, result.DetectiveInsights, 3)
	assert.Equal(t, "poirot", result.DetectiveInsights[0].DetectiveID)
	assert.Equal(t, "spade", result.DetectiveInsights[1].DetectiveID)
	assert.Equal(t, "raven", result.DetectiveInsights[2].DetectiveID)
}

func TestInvestigateIsDeterministic(t *testing.T) {
	pipeline, _, _ := newPipeline(cleanChain(), blacklist.Verdict{Status: blacklist.StatusClean})

	a, err := pipeline.Investigate(context.Background(), testWallet, Options{})
	require.NoError(t, err)
	b, err := pipeline.Investigate(context.Background(), testWallet, Options{})
	require.NoError(t, err)

	assert.Equal(t, a.OverallRiskScore, b.OverallRiskScore)
	assert.Equal(t, a.RiskLevel, b.RiskLevel)
	assert.Equal(t, a.Recommendations, b.Recommendations)
}

func TestExecuteRequiresWalletAddress(t *testing.T) {
	pipeline, _, _ := newPipeline(cleanChain(), blacklist.Verdict{Status: blacklist.StatusClean})
	_, err := pipeline.Execute(context.Background(), map[string]interface{}{})
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestClassifyAccount(t *testing.T) {
	assert.Equal(t, "system", classifyAccount(nil))
	assert.Equal(t, "program", classifyAccount(&solana.AccountInfo{Executable: true}))
	assert.Equal(t, "token_mint", classifyAccount(&solana.AccountInfo{Owner: solana.TokenProgramID}))
	assert.Equal(t, "standard", classifyAccount(&solana.AccountInfo{Owner: solana.SystemProgramID}))
}

func TestPreliminaryRiskDeterministicAndBounded(t *testing.T) {
	hot := detectives.WalletSummary{
		TotalTransactions:    600,
		BalanceSOL:           0.001,
		UniqueCounterparties: 590,
		FailedCount:          300,
	}
	a := assessPreliminaryRisk(hot)
	b := assessPreliminaryRisk(hot)
	assert.Equal(t, a, b)
	assert.Equal(t, 100.0, a.Score)

	quiet := detectives.WalletSummary{TotalTransactions: 3, BalanceSOL: 12}
	assert.Equal(t, 0.0, assessPreliminaryRisk(quiet).Score)

	degraded := detectives.WalletSummary{Degraded: true, TotalTransactions: 600}
	got := assessPreliminaryRisk(degraded)
	assert.Equal(t, 0.0, got.Score)
	assert.Equal(t, []string{"degraded_data"}, got.Factors)
}
