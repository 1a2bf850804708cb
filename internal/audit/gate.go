// Package audit decides whether a verified failure may trigger enforcement.
package audit

import (
	"fmt"
	"strings"

	"example.com/pact/internal/domain"
)

// Defaults for the gate's static configuration.
const (
	DefaultMaxPenaltyUSD     = 50.0
	DefaultFalsePositiveRate = 0.02
	maxFalsePositiveRate     = 0.05
)

// Gate applies confidence, proportionality, and system-reliability checks to
// failure verdicts. It is a pure function of its inputs plus static config.
type Gate struct {
	maxPenaltyUSD     float64
	falsePositiveRate float64
}

// NewGate constructs a Gate. A zero maxPenaltyUSD selects the default
// ceiling; the false-positive rate is the system's current rolling figure.
func NewGate(maxPenaltyUSD, falsePositiveRate float64) *Gate {
	if maxPenaltyUSD <= 0 {
		maxPenaltyUSD = DefaultMaxPenaltyUSD
	}
	return &Gate{maxPenaltyUSD: maxPenaltyUSD, falsePositiveRate: falsePositiveRate}
}

// Evaluate produces the enforcement decision for one verification result.
// Only FAILURE verdicts can pass; all checks run without short-circuiting so
// the decision records every violated limit.
func (g *Gate) Evaluate(contract domain.Contract, result domain.VerificationResult) domain.AuditorDecision {
	if result.Status != domain.VerificationFailure {
		return domain.AuditorDecision{
			Verdict:      domain.VerdictBlock,
			Reason:       "User succeeded or result uncertain.",
			ChecksPassed: []string{"Verification Not Failure"},
		}
	}

	var passed, failed []string

	if result.Confidence < contract.ConfidenceRequired {
		failed = append(failed, fmt.Sprintf("Confidence %.2f < required %.2f", result.Confidence, contract.ConfidenceRequired))
	} else {
		passed = append(passed, "High Confidence Verified")
	}

	if contract.Penalty.AmountUSD > g.maxPenaltyUSD {
		failed = append(failed, fmt.Sprintf("Penalty $%.2f exceeds safety limit $%.2f", contract.Penalty.AmountUSD, g.maxPenaltyUSD))
	} else {
		passed = append(passed, "Penalty within safety limits")
	}

	if g.falsePositiveRate > maxFalsePositiveRate {
		failed = append(failed, fmt.Sprintf("System FPR %.1f%% > 5%% safety threshold", g.falsePositiveRate*100))
	} else {
		passed = append(passed, "System reliability healthy")
	}

	decision := domain.AuditorDecision{
		ChecksPassed: passed,
		ChecksFailed: failed,
	}
	if len(failed) > 0 {
		decision.Verdict = domain.VerdictBlock
		decision.Reason = "Safety checks failed: " + strings.Join(failed, "; ")
	} else {
		decision.Verdict = domain.VerdictAllow
		decision.Reason = "All checks passed. Enforcement authorized."
	}
	return decision
}
