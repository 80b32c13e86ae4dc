package strategy

import (
	"context"
	"log"

	"github.com/ghostwallet/hunter/internal/detectives"
	"github.com/ghostwallet/hunter/internal/solana"
)

const (
	defaultMaxConnections = 50
	maxConnectionsCap     = 1000
)

// txDetailBudget is how many transactions get full detail fetches per depth.
// Signature collection is cheap; getTransaction is not.
var txDetailBudget = map[string]int{
	DepthBasic:         5,
	DepthStandard:      20,
	DepthComprehensive: 50,
}

// Investigation depths.
const (
	DepthBasic         = "basic"
	DepthStandard      = "standard"
	DepthComprehensive = "comprehensive"
)

// ChainClient is the slice of the chain layer the strategies consume.
type ChainClient interface {
	GetBalance(ctx context.Context, addr string) float64
	GetAccountInfo(ctx context.Context, addr string) (*solana.AccountInfo, error)
	GetSignaturesPaginated(ctx context.Context, addr string, limit, pageSize int) ([]solana.Signature, error)
	GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error)
}

// buildWalletSummary collects the on-chain footprint: paginated signatures,
// balance, and account classification. A fully unreachable RPC layer yields
// a degraded summary rather than an error; partial data is kept.
func buildWalletSummary(ctx context.Context, chain ChainClient, addr string, maxConnections int, depth string, logger *log.Logger) (detectives.WalletSummary, []solana.Transaction) {
	if maxConnections <= 0 {
		maxConnections = defaultMaxConnections
	}
	if maxConnections > maxConnectionsCap {
		maxConnections = maxConnectionsCap
	}

	summary := detectives.WalletSummary{Address: addr}

	sigs, sigErr := chain.GetSignaturesPaginated(ctx, addr, maxConnections, 100)
	if sigErr != nil {
		logger.Printf("⚠️ Signature collection failed for %s: %v", addr, sigErr)
	}
	summary.Signatures = sigs
	summary.TotalTransactions = len(sigs)
	for _, s := range sigs {
		if s.Err != nil {
			summary.FailedCount++
		}
	}

	summary.BalanceSOL = chain.GetBalance(ctx, addr)
	balanceDegraded := summary.BalanceSOL == solana.DegradedBalance
	summary.Degraded = sigErr != nil && balanceDegraded

	if info, err := chain.GetAccountInfo(ctx, addr); err == nil {
		summary.AccountType = classifyAccount(info)
	} else {
		logger.Printf("⚠️ Account classification failed for %s: %v", addr, err)
	}

	// Detail fetches are best-effort; each failure just shrinks the sample.
	budget := txDetailBudget[depth]
	if budget == 0 {
		budget = txDetailBudget[DepthStandard]
	}
	var txs []solana.Transaction
	for _, sig := range sigs {
		if len(txs) >= budget {
			break
		}
		if ctx.Err() != nil {
			break
		}
		tx, err := chain.GetTransaction(ctx, sig.Signature)
		if err != nil || tx == nil {
			continue
		}
		txs = append(txs, *tx)
	}

	summary.UniqueCounterparties = countCounterparties(addr, txs)
	return summary, txs
}

// classifyAccount maps owner and executable flags onto the account type tag.
// A nil account lives purely in system space.
func classifyAccount(info *solana.AccountInfo) string {
	switch {
	case info == nil:
		return "system"
	case info.Executable:
		return "program"
	case info.Owner == solana.TokenProgramID:
		return "token_mint"
	case info.Owner == solana.SystemProgramID:
		return "standard"
	default:
		return "standard"
	}
}

func countCounterparties(wallet string, txs []solana.Transaction) int {
	seen := make(map[string]bool)
	for _, tx := range txs {
		for _, key := range tx.AccountKeys {
			if key == "" || key == wallet || isKnownProgram(key) {
				continue
			}
			seen[key] = true
		}
	}
	return len(seen)
}

func isKnownProgram(key string) bool {
	switch key {
	case solana.SystemProgramID, solana.TokenProgramID, solana.ATAProgramID,
		solana.MemoProgramID, solana.JupiterAggregatorID, solana.RaydiumAMMID,
		solana.OrcaWhirlpoolID:
		return true
	}
	return false
}
