package domain

import "time"

// Stake accounting constants. Every user's ledger is seeded on first touch;
// success earns a fixed reward and an enforced failure burns a fixed penalty.
const (
	StakeSeedBalance = 100
	StakeReward      = 5
	StakePenalty     = 10
)

// StakeLedger is the per-user balance row. Invariant at all times:
// CurrentBalance == StakeSeedBalance + LifetimeEarned - LifetimeBurned.
type StakeLedger struct {
	UserID         string    `json:"user_id"`
	CurrentBalance int64     `json:"current_balance"`
	LifetimeEarned int64     `json:"lifetime_earned"`
	LifetimeBurned int64     `json:"lifetime_burned"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// StakeAction names the outcome of one ledger invocation.
type StakeAction string

const (
	StakeActionEarn    StakeAction = "EARN"
	StakeActionBurn    StakeAction = "BURN"
	StakeActionBlocked StakeAction = "BLOCKED"
)

// StakeEvent is the append-only audit record written once per ledger
// mutation attempt, including blocked attempts with amount zero.
type StakeEvent struct {
	ID                string      `json:"id"`
	UserID            string      `json:"user_id"`
	EventType         StakeAction `json:"event_type"`
	Amount            int64       `json:"amount"`
	Reason            string      `json:"reason"`
	Confidence        float64     `json:"confidence"`
	GovernanceVerdict string      `json:"governance_verdict,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
}

// StakeResult is returned to the pipeline after a ledger invocation commits.
type StakeResult struct {
	Action  StakeAction `json:"action"`
	Amount  int64       `json:"amount"`
	Balance int64       `json:"balance"`
	Reason  string      `json:"reason,omitempty"`
}
