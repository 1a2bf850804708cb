package clients

import (
	"context"
	"errors"
	"strings"

	"example.com/pact/internal/domain"
)

// ErrJudgeUnavailable signals that no judgment capability is configured.
var ErrJudgeUnavailable = errors.New("judgment service unavailable")

// Judgment is the scored verdict returned for generic evidence.
type Judgment struct {
	Score     int
	Verdict   domain.VerificationStatus
	Reasoning string
}

// JudgeClient scores free-text/image evidence against a goal description.
type JudgeClient interface {
	Judge(ctx context.Context, goalDescription string, evidence domain.Evidence) (*Judgment, error)
}

// UnconfiguredJudge is installed when no judgment backend is set up. Every
// call reports unavailability so the verification engine can map it to an
// UNCERTAIN outcome rather than crashing.
type UnconfiguredJudge struct{}

// Judge always returns ErrJudgeUnavailable.
func (UnconfiguredJudge) Judge(context.Context, string, domain.Evidence) (*Judgment, error) {
	return nil, ErrJudgeUnavailable
}

// MockJudge produces deterministic scores from simple content heuristics,
// standing in for an LLM-backed judgment service.
type MockJudge struct{}

// Judge scores the evidence: images and substantive text raise the score.
func (MockJudge) Judge(_ context.Context, goalDescription string, evidence domain.Evidence) (*Judgment, error) {
	score := 30
	if len(evidence.ImageURLs) > 0 {
		score += 40
	}
	text := strings.TrimSpace(evidence.TextEvidence)
	if len(text) >= 20 {
		score += 30
	} else if text != "" {
		score += 15
	}

	// Reward overlap between the evidence text and the goal wording.
	for _, word := range strings.Fields(strings.ToLower(goalDescription)) {
		if len(word) >= 4 && strings.Contains(strings.ToLower(text), word) {
			score += 5
			break
		}
	}
	if score > 100 {
		score = 100
	}

	verdict := domain.VerificationFailure
	reasoning := "Evidence does not convincingly support the stated goal."
	switch {
	case score >= 70:
		verdict = domain.VerificationSuccess
		reasoning = "Evidence plausibly demonstrates the stated goal was met."
	case score >= 50:
		verdict = domain.VerificationUncertain
		reasoning = "Evidence is suggestive but not conclusive."
	}

	return &Judgment{Score: score, Verdict: verdict, Reasoning: reasoning}, nil
}
