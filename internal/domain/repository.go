package domain

import (
	"context"
	"time"
)

// FeedEntry is one public item on the community feed.
type FeedEntry struct {
	ID              string             `json:"id"`
	UserID          string             `json:"user_id"`
	GoalDescription string             `json:"goal_description"`
	Status          VerificationStatus `json:"status"`
	EvidenceSummary string             `json:"evidence_summary,omitempty"`
	TrustScoreDelta int                `json:"trust_score_delta"`
	CreatedAt       time.Time          `json:"created_at"`
}

// UserStats aggregates per-user counters kept via atomic increments.
type UserStats struct {
	UserID             string `json:"user_id"`
	ContractsSigned    int64  `json:"contracts_signed"`
	ContractsCompleted int64  `json:"contracts_completed"`
	ContractsFailed    int64  `json:"contracts_failed"`
}

// ContractRepository captures contract persistence. Status transitions to a
// terminal state go through the compare-and-set methods so a contract is
// resolved exactly once even under a concurrent reaper sweep.
type ContractRepository interface {
	Create(ctx context.Context, contract Contract) error
	Get(ctx context.Context, id string) (*Contract, error)
	ListActive(ctx context.Context) ([]Contract, error)
	// ResolveActive flips status from Active to the given terminal status.
	// It returns false without error when the contract was already
	// non-Active, which callers treat as a concurrent-resolution no-op.
	ResolveActive(ctx context.Context, id string, status ContractStatus, reapedAt *time.Time) (bool, error)
}

// FeedRepository stores and reads public feed entries.
type FeedRepository interface {
	Append(ctx context.Context, entry FeedEntry) error
	Recent(ctx context.Context, limit int) ([]FeedEntry, error)
}

// StatsRepository tracks per-user counters with per-key atomic increments.
type StatsRepository interface {
	IncrementSigned(ctx context.Context, userID string) error
	IncrementCompleted(ctx context.Context, userID string) error
	IncrementFailed(ctx context.Context, userID string) error
	Leaderboard(ctx context.Context, limit int) ([]UserStats, error)
}
