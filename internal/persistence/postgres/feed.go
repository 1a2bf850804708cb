package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/pact/internal/domain"
)

// FeedRepository stores public feed entries.
type FeedRepository struct {
	pool *pgxpool.Pool
}

// NewFeedRepository constructs a FeedRepository.
func NewFeedRepository(pool *pgxpool.Pool) *FeedRepository {
	return &FeedRepository{pool: pool}
}

// Append inserts one feed entry.
func (r *FeedRepository) Append(ctx context.Context, entry domain.FeedEntry) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO feed_entries (entry_id, user_id, goal_description, status, evidence_summary, trust_score_delta, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		entry.ID,
		entry.UserID,
		entry.GoalDescription,
		string(entry.Status),
		entry.EvidenceSummary,
		entry.TrustScoreDelta,
		entry.CreatedAt,
	)
	return err
}

// Recent returns up to limit entries, newest first.
func (r *FeedRepository) Recent(ctx context.Context, limit int) ([]domain.FeedEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT entry_id, user_id, goal_description, status, evidence_summary, trust_score_delta, created_at
        FROM feed_entries ORDER BY created_at DESC, entry_id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.FeedEntry
	for rows.Next() {
		var entry domain.FeedEntry
		var status string
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.GoalDescription, &status, &entry.EvidenceSummary, &entry.TrustScoreDelta, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Status = domain.VerificationStatus(status)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// StatsRepository keeps per-user counters via atomic upsert increments.
type StatsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository constructs a StatsRepository.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

func (r *StatsRepository) increment(ctx context.Context, userID, column string) error {
	// column is one of the fixed counter names below, never user input.
	stmt := `INSERT INTO user_stats (user_id, ` + column + `) VALUES ($1, 1)
        ON CONFLICT (user_id) DO UPDATE SET ` + column + ` = user_stats.` + column + ` + 1`
	_, err := r.pool.Exec(ctx, stmt, userID)
	return err
}

// IncrementSigned bumps the signed-contract counter.
func (r *StatsRepository) IncrementSigned(ctx context.Context, userID string) error {
	return r.increment(ctx, userID, "contracts_signed")
}

// IncrementCompleted bumps the completed-contract counter.
func (r *StatsRepository) IncrementCompleted(ctx context.Context, userID string) error {
	return r.increment(ctx, userID, "contracts_completed")
}

// IncrementFailed bumps the failed-contract counter.
func (r *StatsRepository) IncrementFailed(ctx context.Context, userID string) error {
	return r.increment(ctx, userID, "contracts_failed")
}

// Leaderboard returns the top users by completed contracts.
func (r *StatsRepository) Leaderboard(ctx context.Context, limit int) ([]domain.UserStats, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id, contracts_signed, contracts_completed, contracts_failed
        FROM user_stats ORDER BY contracts_completed DESC, user_id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []domain.UserStats
	for rows.Next() {
		var s domain.UserStats
		if err := rows.Scan(&s.UserID, &s.ContractsSigned, &s.ContractsCompleted, &s.ContractsFailed); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
