// Package verify evaluates submitted evidence against a contract's rules.
//
// Evidence routes to one of two evaluators: structured (tracker metrics
// checked against metric rules) or generic (free-text/image evidence scored
// by the judgment collaborator). Routing is a pure function of the evidence
// shape and the contract's distance target.
package verify

import (
	"context"
	"errors"
	"fmt"

	"example.com/pact/internal/clients"
	"example.com/pact/internal/domain"
)

// Input references the evidence for one verification call: a tracker
// activity ID, generic evidence, or both (generic wins).
type Input struct {
	ActivityID string
	Evidence   *domain.Evidence
}

// Engine runs rule-based and judgment-based verification.
type Engine struct {
	activities clients.ActivityClient
	judge      clients.JudgeClient
}

// NewEngine constructs an Engine over the collaborator clients.
func NewEngine(activities clients.ActivityClient, judge clients.JudgeClient) *Engine {
	return &Engine{activities: activities, judge: judge}
}

// Verify routes the input to the right evaluator and returns an immutable
// result. It never returns an error: collaborator failures map to UNCERTAIN.
func (e *Engine) Verify(ctx context.Context, contract domain.Contract, input Input) domain.VerificationResult {
	if routeGeneric(contract, input) {
		return e.verifyGeneric(ctx, contract, input.Evidence)
	}
	return e.verifyStructured(ctx, contract, input.ActivityID)
}

// routeGeneric decides the evaluator: generic whenever the evidence carries
// free-text/image content, or the contract has no numeric distance target.
func routeGeneric(contract domain.Contract, input Input) bool {
	if input.Evidence != nil && input.Evidence.IsGeneric() {
		return true
	}
	return contract.TargetDistanceKm == nil
}

// verifyGeneric scores text/image evidence via the judgment collaborator.
func (e *Engine) verifyGeneric(ctx context.Context, contract domain.Contract, evidence *domain.Evidence) domain.VerificationResult {
	if evidence == nil || !evidence.IsGeneric() {
		return domain.VerificationResult{
			Status:        domain.VerificationFailure,
			Confidence:    1.0,
			FailureReason: "no evidence provided",
		}
	}

	judgment, err := e.judge.Judge(ctx, contract.GoalDescription, *evidence)
	if err != nil {
		reason := "judgment service unavailable"
		if !errors.Is(err, clients.ErrJudgeUnavailable) {
			reason = fmt.Sprintf("judgment error: %v", err)
		}
		return domain.VerificationResult{
			Status:        domain.VerificationUncertain,
			Confidence:    0.0,
			FailureReason: reason,
			Evidence:      evidence,
		}
	}

	result := domain.VerificationResult{
		Status:     judgment.Verdict,
		Confidence: float64(judgment.Score) / 100.0,
		Evidence:   evidence,
	}
	if judgment.Verdict != domain.VerificationSuccess {
		result.FailureReason = judgment.Reasoning
	}
	return result
}
