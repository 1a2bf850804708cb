package clients

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"example.com/pact/internal/domain"
)

var (
	// ErrParserUnavailable signals that no parsing capability is configured.
	// Callers surface this directly instead of falling back.
	ErrParserUnavailable = errors.New("goal parser unavailable")
	// ErrParseFailed wraps parsing failures that should trigger the
	// deterministic fallback contract.
	ErrParseFailed = errors.New("goal parsing failed")
)

// GoalParser converts a free-text goal into a structured contract. The
// optional context string carries retrieved standard terms for the goal's
// category; it informs text quality only, never the outcome.
type GoalParser interface {
	Parse(ctx context.Context, goalText, retrievalContext string) (*domain.Contract, error)
}

// UnconfiguredGoalParser is installed when no parsing backend is set up.
type UnconfiguredGoalParser struct{}

// Parse always returns ErrParserUnavailable.
func (UnconfiguredGoalParser) Parse(context.Context, string, string) (*domain.Contract, error) {
	return nil, ErrParserUnavailable
}

var distancePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:km|kilometers?|k\b)`)

// MockGoalParser is a deterministic keyword parser standing in for an
// LLM-backed negotiation step. It understands running distances and penalty
// preferences well enough for demos and tests.
type MockGoalParser struct {
	// Now allows tests to pin the clock. Defaults to time.Now.
	Now func() time.Time
}

// NewMockGoalParser constructs the keyword parser.
func NewMockGoalParser() *MockGoalParser {
	return &MockGoalParser{Now: time.Now}
}

// Parse builds a contract from keyword heuristics.
func (p *MockGoalParser) Parse(_ context.Context, goalText, _ string) (*domain.Contract, error) {
	text := strings.TrimSpace(goalText)
	if text == "" {
		return nil, fmt.Errorf("%w: empty goal text", ErrParseFailed)
	}
	lower := strings.ToLower(text)

	contract := domain.Contract{
		GoalType:             domain.GoalTypeGeneral,
		GoalDescription:      text,
		AllowedActivityTypes: []string{"General"},
		DeadlineUTC:          nextSundayEOD(p.Now().UTC()),
		ConfidenceRequired:   domain.DefaultConfidenceRequired,
		Penalty:              domain.Penalty{Type: domain.PenaltyStakeBurn, AmountUSD: 10, Destination: "Ledger"},
	}

	if strings.Contains(lower, "run") || strings.Contains(lower, "marathon") || distancePattern.MatchString(lower) {
		contract.GoalType = domain.GoalTypeRunning
		contract.AllowedActivityTypes = []string{"Run", "Treadmill"}
		if m := distancePattern.FindStringSubmatch(lower); m != nil {
			if km, err := strconv.ParseFloat(m[1], 64); err == nil && km > 0 {
				contract.TargetDistanceKm = &km
			}
		}
	}

	if strings.Contains(lower, "public shame") {
		contract.Penalty = domain.Penalty{Type: domain.PenaltyPublicShame, AmountUSD: 0}
	} else if strings.Contains(lower, "donat") {
		contract.Penalty = domain.Penalty{Type: domain.PenaltyDonation, AmountUSD: 10, Destination: "Charity"}
	}

	return &contract, nil
}

func nextSundayEOD(now time.Time) time.Time {
	days := (int(time.Sunday) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	sunday := now.AddDate(0, 0, days)
	return time.Date(sunday.Year(), sunday.Month(), sunday.Day(), 23, 59, 59, 0, time.UTC)
}
