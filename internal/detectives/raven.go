package detectives

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Raven is the synthesis detective. It narrates the case instead of scoring
// it: risk contribution and weight are always zero, so the narrative can
// never move the consensus.
type Raven struct {
	llm Narrator
}

func (r *Raven) ID() string        { return "raven" }
func (r *Raven) Specialty() string { return "final_report" }
func (r *Raven) Weight() float64   { return 0 }

func (r *Raven) Analyze(ctx context.Context, cf CaseFile) (Finding, error) {
	start := time.Now()

	if r.llm != nil && r.llm.Enabled() {
		narrative, err := r.llm.Chat(ctx, r.prompt(cf))
		if err == nil && strings.TrimSpace(narrative) != "" {
			return newFinding(r, start, 0, 1.0, strings.TrimSpace(narrative), []string{"llm_narrative"}), nil
		}
	}

	return newFinding(r, start, 0, 1.0, r.template(cf), []string{"template_narrative"}), nil
}

func (r *Raven) prompt(cf CaseFile) string {
	return fmt.Sprintf(`You are a blockchain investigation analyst. Write a concise final report (3-5 sentences) for this Solana wallet investigation. Plain prose, no markdown, no score invention.

Wallet: %s
Account type: %s
Balance: %.4f SOL (degraded data: %v)
Transactions observed: %d (%d failed)
Unique counterparties: %d
Blacklist status: %s
Preliminary risk score: %.1f/100`,
		cf.Wallet.Address,
		cf.Wallet.AccountType,
		cf.Wallet.BalanceSOL,
		cf.Wallet.Degraded,
		cf.Wallet.TotalTransactions,
		cf.Wallet.FailedCount,
		cf.Wallet.UniqueCounterparties,
		cf.Blacklist.Status,
		cf.PreliminaryRisk)
}

// template is the deterministic fallback used when no LLM is configured or
// the call fails.
func (r *Raven) template(cf CaseFile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Wallet %s is a %s account with %d observed transactions across %d counterparties.",
		cf.Wallet.Address, orUnknown(cf.Wallet.AccountType), cf.Wallet.TotalTransactions, cf.Wallet.UniqueCounterparties)

	if cf.Wallet.Degraded {
		b.WriteString(" On-chain data collection was degraded; figures may be incomplete.")
	}
	switch cf.Blacklist.Status {
	case "flagged":
		fmt.Fprintf(&b, " The address appears on the blacklist (sources: %s).", strings.Join(cf.Blacklist.Sources, ", "))
	case "clean":
		b.WriteString(" The address does not appear on any known blacklist.")
	default:
		b.WriteString(" Blacklist data was unavailable for this address.")
	}
	fmt.Fprintf(&b, " Preliminary behavioral scoring places it at %.1f/100.", cf.PreliminaryRisk)
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
