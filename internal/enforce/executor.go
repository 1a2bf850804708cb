// Package enforce carries out the consequence for an allowed failure.
package enforce

import (
	"context"
	"fmt"
	"log"

	"example.com/pact/internal/clients"
	"example.com/pact/internal/domain"
	"example.com/pact/internal/observability"
)

// Executor performs the configured penalty once the audit gate allows it.
// Stake debits are not executed here: the stake ledger runs off the same
// decision independently.
type Executor struct {
	social clients.SocialPoster
	logger *log.Logger
}

// NewExecutor constructs an Executor.
func NewExecutor(social clients.SocialPoster) *Executor {
	return &Executor{
		social: social,
		logger: log.New(log.Writer(), "[enforce] ", log.LstdFlags),
	}
}

// Execute applies the contract's penalty and returns a human-readable log
// line. A BLOCK decision is reported as already blocked, never re-evaluated.
func (e *Executor) Execute(ctx context.Context, contract domain.Contract, decision domain.AuditorDecision) string {
	if decision.Verdict == domain.VerdictBlock {
		return fmt.Sprintf("Enforcement BLOCKED. Reason: %s", decision.Reason)
	}

	var actionLog string
	switch contract.Penalty.Type {
	case domain.PenaltyDonation:
		dest := contract.Penalty.Destination
		if dest == "" {
			dest = "Charity"
		}
		// Simulated charge; a real payment integration sits behind a flag.
		actionLog = fmt.Sprintf("EXECUTED: Charged $%.2f to card ending 4242. Donated to %s.", contract.Penalty.AmountUSD, dest)
		observability.RecordMoneyMoved(contract.Penalty.AmountUSD)
	case domain.PenaltyPublicShame:
		message := ShameMessage(contract)
		if err := e.social.Post(ctx, message); err != nil {
			// Best effort only. Posting failures never propagate.
			e.logger.Printf("social post failed: %v", err)
		}
		actionLog = "EXECUTED: Posted public accountability message."
	default:
		actionLog = fmt.Sprintf("EXECUTED: Generic penalty %s", contract.Penalty.Type)
	}

	e.logger.Printf("%s", actionLog)
	return actionLog
}

// ShameMessage composes the public post for a failed contract.
func ShameMessage(contract domain.Contract) string {
	return fmt.Sprintf("Accountability update: a commitment was missed: %q. The stake has been forfeited.", contract.GoalDescription)
}
