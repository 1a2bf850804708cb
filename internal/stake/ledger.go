// Package stake manages the per-user accountability balance. The ledger is
// the only cross-call mutable state in the pipeline; every invocation runs as
// a single per-user transaction covering the balance read, the governance
// check, the balance write, and the event-log append.
package stake

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"example.com/pact/internal/domain"
	"example.com/pact/internal/observability"
)

// burnConfidenceFloor gates debits on verification certainty.
const burnConfidenceFloor = 0.95

// maxFalsePositiveRate is the governance circuit breaker: above it, no
// debits are allowed system-wide.
const maxFalsePositiveRate = 0.05

// Tx is the mutable view of one user's ledger inside a transaction. All
// writes recorded on it commit atomically or not at all.
type Tx interface {
	// Ledger returns the user's current row, seeded for first-touch users.
	Ledger() domain.StakeLedger
	// SetLedger stages the updated balance row.
	SetLedger(domain.StakeLedger)
	// AppendEvent stages one audit-trail event.
	AppendEvent(domain.StakeEvent)
}

// Store provides per-user transactional access to ledgers. Implementations
// must isolate concurrent transactions for the same user while letting
// different users proceed in parallel, and must retry internally on
// transient write conflicts.
type Store interface {
	Transact(ctx context.Context, userID string, fn func(tx Tx) error) error
	Ledger(ctx context.Context, userID string) (*domain.StakeLedger, error)
	RecentEvents(ctx context.Context, userID string, limit int) ([]domain.StakeEvent, error)
}

// Manager applies verification outcomes to the stake ledger.
type Manager struct {
	store             Store
	falsePositiveRate float64
	now               func() time.Time
}

// NewManager constructs a Manager. The false-positive rate is the system's
// rolling figure fed to the burn gate.
func NewManager(store Store, falsePositiveRate float64) *Manager {
	return &Manager{store: store, falsePositiveRate: falsePositiveRate, now: time.Now}
}

// HandleOutcome awards or burns stake for one verification outcome. Exactly
// one StakeEvent is appended per invocation, including blocked attempts.
// Metric emission happens only after the transaction commits.
func (m *Manager) HandleOutcome(ctx context.Context, userID string, result domain.VerificationResult) (*domain.StakeResult, error) {
	var outcome domain.StakeResult

	err := m.store.Transact(ctx, userID, func(tx Tx) error {
		ledger := tx.Ledger()
		now := m.now().UTC()

		if result.Status == domain.VerificationSuccess {
			ledger.CurrentBalance += domain.StakeReward
			ledger.LifetimeEarned += domain.StakeReward
			ledger.UpdatedAt = now
			tx.SetLedger(ledger)
			tx.AppendEvent(domain.StakeEvent{
				ID:         uuid.NewString(),
				UserID:     userID,
				EventType:  domain.StakeActionEarn,
				Amount:     domain.StakeReward,
				Reason:     "Verified Success",
				Confidence: result.Confidence,
				CreatedAt:  now,
			})
			outcome = domain.StakeResult{
				Action:  domain.StakeActionEarn,
				Amount:  domain.StakeReward,
				Balance: ledger.CurrentBalance,
			}
			return nil
		}

		verdict, reason := m.evaluateBurnGate(ledger.CurrentBalance, result.Confidence)
		if verdict == "ALLOW_BURN" {
			ledger.CurrentBalance -= domain.StakePenalty
			ledger.LifetimeBurned += domain.StakePenalty
			ledger.UpdatedAt = now
			tx.SetLedger(ledger)
			tx.AppendEvent(domain.StakeEvent{
				ID:                uuid.NewString(),
				UserID:            userID,
				EventType:         domain.StakeActionBurn,
				Amount:            domain.StakePenalty,
				Reason:            reason,
				Confidence:        result.Confidence,
				GovernanceVerdict: verdict,
				CreatedAt:         now,
			})
			outcome = domain.StakeResult{
				Action:  domain.StakeActionBurn,
				Amount:  domain.StakePenalty,
				Balance: ledger.CurrentBalance,
				Reason:  reason,
			}
			return nil
		}

		tx.AppendEvent(domain.StakeEvent{
			ID:                uuid.NewString(),
			UserID:            userID,
			EventType:         domain.StakeActionBlocked,
			Amount:            0,
			Reason:            reason,
			Confidence:        result.Confidence,
			GovernanceVerdict: verdict,
			CreatedAt:         now,
		})
		outcome = domain.StakeResult{
			Action:  domain.StakeActionBlocked,
			Amount:  0,
			Balance: ledger.CurrentBalance,
			Reason:  reason,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch outcome.Action {
	case domain.StakeActionEarn:
		observability.RecordStakeEarned(domain.StakeReward)
	case domain.StakeActionBurn:
		observability.RecordStakeBurned(domain.StakePenalty)
	case domain.StakeActionBlocked:
		observability.RecordBurnBlocked()
	}

	return &outcome, nil
}

// evaluateBurnGate is the governance check run inside the transaction.
func (m *Manager) evaluateBurnGate(currentBalance int64, confidence float64) (string, string) {
	if confidence < burnConfidenceFloor {
		return "BLOCK_BURN", fmt.Sprintf("Confidence too low (%.2f < %.2f)", confidence, burnConfidenceFloor)
	}
	if currentBalance < domain.StakePenalty {
		return "BLOCK_BURN", fmt.Sprintf("Insufficient stake (%d < %d)", currentBalance, domain.StakePenalty)
	}
	if m.falsePositiveRate >= maxFalsePositiveRate {
		return "BLOCK_BURN", "System false-positive rate too high"
	}
	return "ALLOW_BURN", "Governance checks passed"
}

// Snapshot returns the current ledger plus recent events for read endpoints.
func (m *Manager) Snapshot(ctx context.Context, userID string, eventLimit int) (*domain.StakeLedger, []domain.StakeEvent, error) {
	ledger, err := m.store.Ledger(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	events, err := m.store.RecentEvents(ctx, userID, eventLimit)
	if err != nil {
		return nil, nil, err
	}
	return ledger, events, nil
}
