package detectives

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Poirot scores frequency and timing anomalies over the signature stream.
type Poirot struct {
	weight float64
}

func (p *Poirot) ID() string        { return "poirot" }
func (p *Poirot) Specialty() string { return "transaction_patterns" }
func (p *Poirot) Weight() float64   { return p.weight }

func (p *Poirot) Analyze(_ context.Context, cf CaseFile) (Finding, error) {
	start := time.Now()
	times := blockTimes(cf.Wallet.Signatures)
	if len(times) < 3 {
		return newFinding(p, start, 0, 0.3, "too few timestamped transactions for pattern analysis", nil), nil
	}

	intervals := make([]float64, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		intervals = append(intervals, float64(times[i]-times[i-1]))
	}
	mean, stddev := meanStddev(intervals)

	score := 0.0
	var patterns []string

	// Sustained high frequency: average gap under a minute.
	if mean < 60 {
		score += 0.35
		patterns = append(patterns, "high_frequency")
	}

	// Machine-regular timing: tiny relative variance over many intervals.
	if mean > 0 && len(intervals) >= 10 && stddev/mean < 0.15 {
		score += 0.4
		patterns = append(patterns, "regular_timing")
	}

	// Activity compressed into a short lifetime.
	lifetime := float64(times[len(times)-1] - times[0])
	if lifetime > 0 && lifetime < 3600 && len(times) >= 20 {
		score += 0.25
		patterns = append(patterns, "compressed_lifetime")
	}

	notes := fmt.Sprintf("%d timestamped txs, mean interval %.0fs", len(times), mean)
	return newFinding(p, start, score, 0.8, notes, patterns), nil
}

// Marple detects deviation from the wallet's own moving baseline.
type Marple struct {
	weight float64
}

func (m *Marple) ID() string        { return "marple" }
func (m *Marple) Specialty() string { return "anomaly_detection" }
func (m *Marple) Weight() float64   { return m.weight }

func (m *Marple) Analyze(_ context.Context, cf CaseFile) (Finding, error) {
	start := time.Now()
	times := blockTimes(cf.Wallet.Signatures)
	if len(times) < 5 {
		return newFinding(m, start, 0, 0.3, "too few timestamped transactions for baseline analysis", nil), nil
	}

	// Bucket activity per hour and compare each bucket to the trailing mean.
	buckets := make(map[int64]int)
	for _, t := range times {
		buckets[t/3600]++
	}
	counts := make([]float64, 0, len(buckets))
	for _, c := range buckets {
		counts = append(counts, float64(c))
	}
	mean, stddev := meanStddev(counts)

	score := 0.0
	var patterns []string

	// Burst: at least one hour with activity far above the wallet's norm.
	if stddev > 0 {
		maxCount := 0.0
		for _, c := range counts {
			if c > maxCount {
				maxCount = c
			}
		}
		if (maxCount-mean)/stddev > 3 {
			score += 0.5
			patterns = append(patterns, "activity_burst")
		}
	}

	// Dormancy break: long quiet stretch followed by dense activity.
	var maxGap int64
	for i := 1; i < len(times); i++ {
		if g := times[i] - times[i-1]; g > maxGap {
			maxGap = g
		}
	}
	recent := 0
	cutoff := times[len(times)-1] - 3600
	for _, t := range times {
		if t >= cutoff {
			recent++
		}
	}
	if maxGap > 30*24*3600 && recent >= 10 {
		score += 0.4
		patterns = append(patterns, "dormancy_break")
	}

	notes := fmt.Sprintf("%d active hours, mean %.1f txs/hour", len(buckets), mean)
	return newFinding(m, start, score, 0.75, notes, patterns), nil
}

func meanStddev(vals []float64) (float64, float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))

	varSum := 0.0
	for _, v := range vals {
		varSum += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(varSum / float64(len(vals)))
}
