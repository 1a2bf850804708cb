// Package contract turns free-text goals into structured, schema-valid
// contracts, with a deterministic fallback when parsing misbehaves.
package contract

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"example.com/pact/internal/clients"
	"example.com/pact/internal/domain"
)

// fallbackDeadline is applied when the parser fails and the fallback
// contract has to pick a deadline for the user.
const fallbackDeadline = 48 * time.Hour

// Builder produces contracts from goal text via the configured parser,
// enriched by retrieved standard terms for the goal's category.
type Builder struct {
	parser clients.GoalParser
	now    func() time.Time
	logger *log.Logger
}

// NewBuilder constructs a Builder over the given parser.
func NewBuilder(parser clients.GoalParser) *Builder {
	return &Builder{
		parser: parser,
		now:    time.Now,
		logger: log.New(log.Writer(), "[contract] ", log.LstdFlags),
	}
}

// Negotiate parses the goal into a contract. Parser unavailability is
// surfaced to the caller; any other parse or validation failure yields the
// deterministic fallback contract so the caller always gets a structurally
// valid result.
func (b *Builder) Negotiate(ctx context.Context, goalText string) (*domain.Contract, error) {
	retrieval := retrieveContext(goalText)

	parsed, err := b.parser.Parse(ctx, goalText, retrieval)
	if err != nil {
		if errors.Is(err, clients.ErrParserUnavailable) {
			return nil, err
		}
		b.logger.Printf("parse failed, using fallback contract: %v", err)
		return b.fallback(goalText), nil
	}

	contract := *parsed
	if contract.ConfidenceRequired == 0 {
		contract.ConfidenceRequired = domain.DefaultConfidenceRequired
	}
	if len(contract.AllowedActivityTypes) == 0 {
		contract.AllowedActivityTypes = []string{"General"}
	}
	if err := contract.Validate(); err != nil {
		b.logger.Printf("parsed contract invalid, using fallback: %v", err)
		return b.fallback(goalText), nil
	}
	return &contract, nil
}

// fallback builds the keyword-rule contract used whenever parsing or
// validation fails with a configured parser.
func (b *Builder) fallback(goalText string) *domain.Contract {
	penalty := domain.Penalty{Type: domain.PenaltyStakeBurn, AmountUSD: 10, Destination: "Ledger"}

	lower := strings.ToLower(goalText)
	if strings.Contains(strings.ReplaceAll(lower, " ", "_"), "public_shame") {
		penalty = domain.Penalty{Type: domain.PenaltyPublicShame, AmountUSD: 0}
	} else if strings.Contains(lower, "donation") {
		penalty = domain.Penalty{Type: domain.PenaltyDonation, AmountUSD: 10, Destination: "Charity"}
	}

	return &domain.Contract{
		GoalType:             domain.GoalTypeGeneral,
		GoalDescription:      goalText,
		TargetDistanceKm:     nil,
		AllowedActivityTypes: []string{"General"},
		DeadlineUTC:          b.now().UTC().Add(fallbackDeadline),
		ConfidenceRequired:   domain.DefaultConfidenceRequired,
		Penalty:              penalty,
	}
}

// standardTerms is a small retrieval catalog of per-category terms and risk
// factors handed to the parser as auxiliary context. Its absence changes
// prose quality only, never whether parsing succeeds.
var standardTerms = map[string]struct {
	Terms       []string
	RiskFactors string
}{
	"running": {
		Terms:       []string{"GPS-tracked activity required", "manual entries rejected", "3% distance tolerance"},
		RiskFactors: "treadmill sessions need heart-rate data; implausible paces are rejected",
	},
	"coding": {
		Terms:       []string{"merged pull requests count", "commits must be pushed before deadline"},
		RiskFactors: "empty or trivial commits",
	},
	"reading": {
		Terms:       []string{"page-count photo evidence", "summaries accepted"},
		RiskFactors: "stock photos",
	},
	"fitness": {
		Terms:       []string{"gym check-in or workout log", "session duration recorded"},
		RiskFactors: "self-reported sessions without corroboration",
	},
}

func retrieveContext(goalText string) string {
	lower := strings.ToLower(goalText)

	category := ""
	switch {
	case strings.Contains(lower, "run") || strings.Contains(lower, "marathon") || strings.Contains(lower, "km"):
		category = "running"
	case strings.Contains(lower, "code") || strings.Contains(lower, "program") || strings.Contains(lower, "app"):
		category = "coding"
	case strings.Contains(lower, "read") || strings.Contains(lower, "book"):
		category = "reading"
	case strings.Contains(lower, "gym") || strings.Contains(lower, "lift") || strings.Contains(lower, "yoga"):
		category = "fitness"
	}

	entry, ok := standardTerms[category]
	if !ok {
		return ""
	}
	return fmt.Sprintf("category: %s; standard terms: %s; risk factors: %s",
		category, strings.Join(entry.Terms, ", "), entry.RiskFactors)
}
