package detectives

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostwallet/hunter/internal/blacklist"
	"github.com/ghostwallet/hunter/internal/solana"
)

func sigStream(start int64, step int64, n int) []solana.Signature {
	out := make([]solana.Signature, n)
	for i := 0; i < n; i++ {
		out[i] = solana.Signature{
			Signature: fmt.Sprintf("sig-%d", i),
			Slot:      uint64(1000 + i),
			BlockTime: start + int64(i)*step,
		}
	}
	return out
}

func txWithPeers(wallet string, pre, post uint64, peers ...string) solana.Transaction {
	return solana.Transaction{
		AccountKeys:  append([]string{wallet}, peers...),
		PreBalances:  []uint64{pre, 0},
		PostBalances: []uint64{post, 0},
	}
}

func TestNewSquadRegistersSevenInOrder(t *testing.T) {
	r := NewSquad(nil, nil, nil)
	assert.Equal(t, []string{"poirot", "marple", "spade", "marlowe", "dupin", "shadow", "raven"}, r.IDs())

	raven, ok := r.Get("raven")
	require.True(t, ok)
	assert.Equal(t, 0.0, raven.Weight(), "narrative detective never carries weight")

	poirot, ok := r.Get("poirot")
	require.True(t, ok)
	assert.Equal(t, 1.0, poirot.Weight())

	custom := NewSquad(map[string]float64{"poirot": 2.5}, nil, nil)
	p, _ := custom.Get("poirot")
	assert.Equal(t, 2.5, p.Weight())
}

func TestSquadSubsetPreservesOrder(t *testing.T) {
	r := NewSquad(nil, nil, nil)
	subset := r.Squad([]string{"shadow", "poirot", "nosuch"})
	require.Len(t, subset, 2)
	assert.Equal(t, "poirot", subset[0].ID())
	assert.Equal(t, "shadow", subset[1].ID())

	all := r.Squad(nil)
	assert.Len(t, all, 7)
}

func TestPoirotFlagsBotTiming(t *testing.T) {
	p := &Poirot{weight: 1}
	// 30 transactions exactly 10 seconds apart: regular, high frequency.
	cf := CaseFile{Wallet: WalletSummary{Signatures: sigStream(1_700_000_000, 10, 30)}}

	f, err := p.Analyze(context.Background(), cf)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, f.Status)
	assert.Contains(t, f.PatternsDetected, "high_frequency")
	assert.Contains(t, f.PatternsDetected, "regular_timing")
	assert.Greater(t, f.RiskScore, 0.5)

	// Sparse organic activity scores low.
	organic := CaseFile{Wallet: WalletSummary{Signatures: sigStream(1_700_000_000, 86_400, 5)}}
	f, err = p.Analyze(context.Background(), organic)
	require.NoError(t, err)
	assert.Equal(t, 0.0, f.RiskScore)
}

func TestPoirotHandlesEmptyStream(t *testing.T) {
	p := &Poirot{weight: 1}
	f, err := p.Analyze(context.Background(), CaseFile{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, f.RiskScore)
	assert.Equal(t, 0.3, f.Confidence)
}

func TestMarpleDetectsBurst(t *testing.T) {
	m := &Marple{weight: 1}
	// Quiet background, then a dense burst in one hour.
	sigs := sigStream(1_700_000_000, 7200, 20)
	sigs = append(sigs, sigStream(1_700_300_000, 5, 40)...)
	cf := CaseFile{Wallet: WalletSummary{Signatures: sigs}}

	f, err := m.Analyze(context.Background(), cf)
	require.NoError(t, err)
	assert.Contains(t, f.PatternsDetected, "activity_burst")
	assert.Greater(t, f.RiskScore, 0.0)
}

func TestSpadeCompositeSignals(t *testing.T) {
	s := &Spade{weight: 1}
	wallet := "WalletAAA"

	// Alternating inflow/outflow with elevated fees.
	var txs []solana.Transaction
	for i := 0; i < 10; i++ {
		pre, post := uint64(1_000_000), uint64(2_000_000)
		if i%2 == 1 {
			pre, post = post, pre
		}
		tx := txWithPeers(wallet, pre, post, fmt.Sprintf("peer-%d", i))
		tx.Fee = 200_000
		txs = append(txs, tx)
	}
	cf := CaseFile{
		Wallet:       WalletSummary{Address: wallet, TotalTransactions: 10, UniqueCounterparties: 10},
		Transactions: txs,
	}

	f, err := s.Analyze(context.Background(), cf)
	require.NoError(t, err)
	assert.Contains(t, f.PatternsDetected, "elevated_fee_profile")
	assert.Contains(t, f.PatternsDetected, "wide_fan_out")
	assert.Contains(t, f.PatternsDetected, "alternating_flow")
	assert.Equal(t, 1.0, f.RiskScore, "score is clamped to 1")
}

func TestMarloweFlagsMixerInteraction(t *testing.T) {
	m := &Marlowe{weight: 1}
	cf := CaseFile{
		Wallet: WalletSummary{Address: "WalletAAA", TotalTransactions: 2},
		Transactions: []solana.Transaction{
			txWithPeers("WalletAAA", 1, 2, "tor1xzb2Zyy1cUxXmyJfR8aNXuWnwHG8AwgaG7UGD4K"),
			txWithPeers("WalletAAA", 2, 1, "SomeHonestPeer"),
		},
	}

	f, err := m.Analyze(context.Background(), cf)
	require.NoError(t, err)
	assert.Contains(t, f.PatternsDetected, "mixer_interaction")
	assert.GreaterOrEqual(t, f.RiskScore, 0.6)
}

type fakeChecker struct{ flagged map[string]bool }

func (f *fakeChecker) IsBlacklisted(addr string) blacklist.Verdict {
	if f.flagged[addr] {
		return blacklist.Verdict{Status: blacklist.StatusFlagged, Confidence: 0.95}
	}
	return blacklist.Verdict{Status: blacklist.StatusClean, Confidence: 0.9}
}

func TestDupinComplianceSignals(t *testing.T) {
	d := &Dupin{weight: 1, checker: &fakeChecker{flagged: map[string]bool{"DirtyPeer": true}}}
	cf := CaseFile{
		Wallet:    WalletSummary{Address: "WalletAAA"},
		Blacklist: blacklist.Verdict{Status: blacklist.StatusFlagged},
		Transactions: []solana.Transaction{
			txWithPeers("WalletAAA", 1, 2, "DirtyPeer"),
		},
	}

	f, err := d.Analyze(context.Background(), cf)
	require.NoError(t, err)
	assert.Contains(t, f.PatternsDetected, "subject_blacklisted")
	assert.Contains(t, f.PatternsDetected, "blacklisted_counterparty")
	assert.Equal(t, 1.0, f.RiskScore)
}

func TestShadowClustersCoMovingPeers(t *testing.T) {
	s := &Shadow{weight: 1}
	// Four peers that always appear together across five transactions.
	var txs []solana.Transaction
	for i := 0; i < 5; i++ {
		txs = append(txs, txWithPeers("WalletAAA", 1, 2, "p1", "p2", "p3", "p4"))
	}
	cf := CaseFile{Wallet: WalletSummary{Address: "WalletAAA"}, Transactions: txs}

	f, err := s.Analyze(context.Background(), cf)
	require.NoError(t, err)
	assert.Contains(t, f.PatternsDetected, "co_moving_cluster")
	assert.Equal(t, 0.5, f.RiskScore)
}

type fakeNarrator struct {
	reply string
	err   error
}

func (f *fakeNarrator) Enabled() bool { return true }
func (f *fakeNarrator) Chat(context.Context, string) (string, error) {
	return f.reply, f.err
}

func TestRavenUsesLLMWhenAvailable(t *testing.T) {
	r := &Raven{llm: &fakeNarrator{reply: "The wallet shows routine exchange behavior."}}
	f, err := r.Analyze(context.Background(), CaseFile{Wallet: WalletSummary{Address: "W"}})
	require.NoError(t, err)
	assert.Equal(t, "The wallet shows routine exchange behavior.", f.Notes)
	assert.Contains(t, f.PatternsDetected, "llm_narrative")
	assert.Equal(t, 0.0, f.RiskScore)
}

func TestRavenFallsBackToTemplate(t *testing.T) {
	cf := CaseFile{
		Wallet:          WalletSummary{Address: "WalletAAA", AccountType: "standard", TotalTransactions: 12, UniqueCounterparties: 4},
		Blacklist:       blacklist.Verdict{Status: blacklist.StatusClean},
		PreliminaryRisk: 17.5,
	}

	// LLM errors out: template takes over.
	r := &Raven{llm: &fakeNarrator{err: errors.New("rate limited")}}
	f, err := r.Analyze(context.Background(), cf)
	require.NoError(t, err)
	assert.Contains(t, f.PatternsDetected, "template_narrative")
	assert.Contains(t, f.Notes, "WalletAAA")
	assert.Contains(t, f.Notes, "17.5/100")

	// No LLM at all.
	r = &Raven{}
	f, err = r.Analyze(context.Background(), cf)
	require.NoError(t, err)
	assert.Contains(t, f.PatternsDetected, "template_narrative")
}

func TestFailedFindingCarriesNoScore(t *testing.T) {
	f := FailedFinding("poirot", "transaction_patterns", errors.New("rpc down"))
	assert.Equal(t, StatusFailed, f.Status)
	assert.Equal(t, 0.0, f.RiskScore)
	assert.Equal(t, 0.0, f.Confidence)
	assert.Contains(t, f.Notes, "rpc down")
}

func TestCounterpartiesExcludesProgramsAndSelf(t *testing.T) {
	txs := []solana.Transaction{
		{AccountKeys: []string{"me", "peerB", solana.TokenProgramID, "peerA"}},
		{AccountKeys: []string{"me", "peerA"}},
	}
	assert.Equal(t, []string{"peerA", "peerB"}, counterparties("me", txs))
}
