package solana

import (
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil/base58"
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

const (
	minAddressLen = 32
	maxAddressLen = 44
	pubkeyBytes   = 32
)

// ValidationReport breaks an address check down into its individual gates so
// API callers can see exactly which one failed.
type ValidationReport struct {
	FormatValid      bool    `json:"format_valid"`
	LengthValid      bool    `json:"length_valid"`
	CharacterValid   bool    `json:"character_valid"`
	PatternValid     bool    `json:"pattern_valid"`
	ChecksumValid    bool    `json:"checksum_valid"`
	Reason           string  `json:"reason,omitempty"`
	ValidationTimeMS float64 `json:"validation_time_ms"`
}

// ValidateAddress reports whether s is a well-formed Solana address: base58
// alphabet, 32-44 chars, no degenerate repeat patterns, and a decode of
// exactly 32 bytes.
func ValidateAddress(s string) bool {
	r := ValidateAddressDetailed(s)
	return r.FormatValid
}

// ValidateAddressDetailed runs every validation gate and returns the full
// report. Pure; never touches the network.
func ValidateAddressDetailed(s string) ValidationReport {
	start := time.Now()
	r := ValidationReport{}

	r.LengthValid = len(s) >= minAddressLen && len(s) <= maxAddressLen
	if !r.LengthValid {
		r.Reason = "length out of range 32-44"
		r.ValidationTimeMS = msSince(start)
		return r
	}

	r.CharacterValid = true
	for _, c := range s {
		if !strings.ContainsRune(base58Alphabet, c) {
			r.CharacterValid = false
			r.Reason = "character outside base58 alphabet"
			r.ValidationTimeMS = msSince(start)
			return r
		}
	}

	r.PatternValid = !isDegenerate(s)
	if !r.PatternValid {
		r.Reason = "degenerate repeat pattern"
		r.ValidationTimeMS = msSince(start)
		return r
	}

	decoded := base58.Decode(s)
	r.ChecksumValid = len(decoded) == pubkeyBytes
	if !r.ChecksumValid {
		r.Reason = "base58 decode is not 32 bytes"
		r.ValidationTimeMS = msSince(start)
		return r
	}

	r.FormatValid = true
	r.ValidationTimeMS = msSince(start)
	return r
}

// ValidateAddressStrict additionally requires the canonical 44-char form.
func ValidateAddressStrict(s string) bool {
	return len(s) == maxAddressLen && ValidateAddress(s)
}

// isDegenerate rejects addresses that are a single repeated character, e.g.
// all-'1' strings, which decode fine but never belong to real accounts.
func isDegenerate(s string) bool {
	first := s[0]
	for i := 1; i < len(s); i++ {
		if s[i] != first {
			return false
		}
	}
	return true
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
