package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ghostwallet/hunter/internal/blacklist"
	"github.com/ghostwallet/hunter/internal/consensus"
	"github.com/ghostwallet/hunter/internal/detectives"
	"github.com/ghostwallet/hunter/internal/solana"
	"github.com/ghostwallet/hunter/internal/store"
)

// Investigation statuses.
const (
	InvestigationCompleted = "completed"
	InvestigationDegraded  = "degraded"
)

// Event names published on investigation completion.
const (
	EventInvestigationCompleted = "investigation.completed"
	EventInvestigationDegraded  = "investigation.degraded"
	EventBlacklistHit           = "blacklist.hit"
)

// InvestigationResult is the persisted outcome of one wallet investigation.
// Never mutated after the strategy returns it.
type InvestigationResult struct {
	WalletAddress     string                    `json:"wallet_address"`
	Summary           string                    `json:"summary"`
	WalletAnalysis    detectives.WalletSummary  `json:"wallet_analysis"`
	BlacklistStatus   blacklist.Verdict         `json:"blacklist_status"`
	RiskAssessment    PreliminaryRisk           `json:"risk_assessment"`
	DetectiveInsights []detectives.Finding      `json:"detective_insights"`
	FinalReport       string                    `json:"final_report"`
	OverallRiskScore  float64                   `json:"overall_risk_score"`
	RiskLevel         string                    `json:"risk_level"`
	Recommendations   []string                  `json:"recommendations"`
	Status            string                    `json:"status"`
	Timestamp         time.Time                 `json:"timestamp"`
}

// BlacklistChecker is the C4 slice the pipeline uses.
type BlacklistChecker interface {
	IsBlacklisted(addr string) blacklist.Verdict
}

// Publisher fans investigation events out to subscribers (webhooks, the
// websocket stream). Implementations must not block.
type Publisher interface {
	Publish(event string, payload interface{})
}

// DetectiveInvestigation is the fixed wallet-investigation pipeline.
type DetectiveInvestigation struct {
	chain     ChainClient
	checker   BlacklistChecker
	squad     *detectives.Registry
	store     store.Store
	publisher Publisher
	logger    *log.Logger
}

// NewDetectiveInvestigation wires the pipeline. store and publisher may be
// nil; persistence and event fan-out are then skipped.
func NewDetectiveInvestigation(chain ChainClient, checker BlacklistChecker, squad *detectives.Registry, st store.Store, pub Publisher) *DetectiveInvestigation {
	return &DetectiveInvestigation{
		chain:     chain,
		checker:   checker,
		squad:     squad,
		store:     st,
		publisher: pub,
		logger:    log.New(log.Writer(), "[INVESTIGATE] ", log.LstdFlags),
	}
}

func (d *DetectiveInvestigation) Name() string { return "detective_investigation" }

// Execute runs the pipeline. Params: wallet_address (required), depth,
// detectives (subset), max_connections.
func (d *DetectiveInvestigation) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	addr, _ := params["wallet_address"].(string)
	if addr == "" {
		return nil, fmt.Errorf("%w: wallet_address", ErrMissingInput)
	}
	return d.Investigate(ctx, addr, paramsToOptions(params))
}

// Options tune one investigation run.
type Options struct {
	Depth          string
	MaxConnections int
	Detectives     []string
}

func paramsToOptions(params map[string]interface{}) Options {
	opts := Options{Depth: DepthStandard}
	if depth, ok := params["depth"].(string); ok && depth != "" {
		opts.Depth = depth
	}
	if mc, ok := params["max_connections"].(float64); ok && mc > 0 {
		opts.MaxConnections = int(mc)
	}
	if subset, ok := params["detectives"].([]interface{}); ok {
		for _, v := range subset {
			if id, ok := v.(string); ok {
				opts.Detectives = append(opts.Detectives, id)
			}
		}
	}
	return opts
}

// Investigate is the typed pipeline entry point.
func (d *DetectiveInvestigation) Investigate(ctx context.Context, addr string, opts Options) (*InvestigationResult, error) {
	// Phase 1: validation. Nothing touches the network for a bad address.
	if !solana.ValidateAddress(addr) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
	}
	if opts.Depth == "" {
		opts.Depth = DepthStandard
	}
	start := time.Now()
	d.logger.Printf("🔍 Investigation started: %s (depth=%s)", addr, opts.Depth)

	// Phase 2: wallet analysis.
	summary, txs := buildWalletSummary(ctx, d.chain, addr, opts.MaxConnections, opts.Depth, d.logger)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 3: blacklist check.
	verdict := d.checker.IsBlacklisted(addr)
	if verdict.Flagged() {
		d.publish(EventBlacklistHit, map[string]interface{}{
			"wallet_address": addr,
			"sources":        verdict.Sources,
		})
	}

	// Phase 4: preliminary risk.
	prelim := assessPreliminaryRisk(summary)

	caseFile := detectives.CaseFile{
		Wallet:          summary,
		Blacklist:       verdict,
		PreliminaryRisk: prelim.Score,
		Transactions:    txs,
	}

	// Phase 5: detective fan-out. A fully degraded chain layer fails every
	// detective instead of letting them score on empty data. The narrative
	// detective is held back for the synthesis phase.
	squad := withoutFinalReport(d.squad.Squad(opts.Detectives))
	findings := d.runDetectives(ctx, squad, caseFile)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 6: final synthesis always runs, even for a subset request.
	finalReport := ""
	if raven, ok := d.squad.Get("raven"); ok {
		squad = append(squad, raven)
		f := d.runDetectives(ctx, []detectives.Detective{raven}, caseFile)[0]
		findings = append(findings, f)
		if f.Status == detectives.StatusCompleted {
			finalReport = f.Notes
		}
	}

	// Phase 7: aggregate and commit.
	weights := make(map[string]float64, len(squad))
	for _, det := range squad {
		weights[det.ID()] = det.Weight()
	}
	agg := consensus.Aggregate(findings, weights, verdict.Score(), prelim.Score, verdict.Flagged())

	status := InvestigationCompleted
	if summary.Degraded {
		status = InvestigationDegraded
	}
	result := &InvestigationResult{
		WalletAddress:     addr,
		Summary:           fmt.Sprintf("%s risk (%.1f/100) after %d detective analyses in %s", agg.RiskLevel, agg.OverallRiskScore, len(findings), time.Since(start).Round(time.Millisecond)),
		WalletAnalysis:    summary,
		BlacklistStatus:   verdict,
		RiskAssessment:    prelim,
		DetectiveInsights: findings,
		FinalReport:       finalReport,
		OverallRiskScore:  agg.OverallRiskScore,
		RiskLevel:         agg.RiskLevel,
		Recommendations:   agg.Recommendations,
		Status:            status,
		Timestamp:         time.Now().UTC(),
	}

	d.persist(ctx, result)
	if status == InvestigationDegraded {
		d.publish(EventInvestigationDegraded, result)
	} else {
		d.publish(EventInvestigationCompleted, result)
	}
	d.logger.Printf("✅ Investigation finished: %s → %s (%.1f)", addr, result.RiskLevel, result.OverallRiskScore)
	return result, nil
}

// runDetectives executes the squad concurrently with fan-out bounded by the
// squad size. Failures and panics become failed findings, never aborts.
func (d *DetectiveInvestigation) runDetectives(ctx context.Context, squad []detectives.Detective, cf detectives.CaseFile) []detectives.Finding {
	findings := make([]detectives.Finding, len(squad))

	if cf.Wallet.Degraded {
		for i, det := range squad {
			findings[i] = detectives.FailedFinding(det.ID(), det.Specialty(), fmt.Errorf("chain data unavailable"))
		}
		return findings
	}

	var wg sync.WaitGroup
	for i, det := range squad {
		wg.Add(1)
		go func(i int, det detectives.Detective) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					findings[i] = detectives.FailedFinding(det.ID(), det.Specialty(), fmt.Errorf("panic: %v", rec))
				}
			}()

			f, err := det.Analyze(ctx, cf)
			if err != nil {
				findings[i] = detectives.FailedFinding(det.ID(), det.Specialty(), err)
				return
			}
			findings[i] = f
		}(i, det)
	}
	wg.Wait()
	return findings
}

// withoutFinalReport filters the narrative detective out of the scoring
// fan-out.
func withoutFinalReport(squad []detectives.Detective) []detectives.Detective {
	out := squad[:0]
	for _, det := range squad {
		if det.Specialty() != "final_report" {
			out = append(out, det)
		}
	}
	return out
}

func (d *DetectiveInvestigation) persist(ctx context.Context, result *InvestigationResult) {
	if d.store == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		d.logger.Printf("⚠️ Result marshal failed for %s: %v", result.WalletAddress, err)
		return
	}
	if err := d.store.SaveInvestigation(ctx, result.WalletAddress, payload); err != nil {
		d.logger.Printf("⚠️ Result persist failed for %s: %v", result.WalletAddress, err)
	}
}

func (d *DetectiveInvestigation) publish(event string, payload interface{}) {
	if d.publisher != nil {
		d.publisher.Publish(event, payload)
	}
}
