// Package postgres provides pgx-backed persistence for contracts, the stake
// ledger, user stats, the public feed, and the transactional outbox.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/pact/internal/domain"
)

// ContractRepository stores contracts and records lifecycle outbox events.
type ContractRepository struct {
	pool *pgxpool.Pool
}

// NewContractRepository constructs a ContractRepository.
func NewContractRepository(pool *pgxpool.Pool) *ContractRepository {
	return &ContractRepository{pool: pool}
}

const contractColumns = `contract_id, user_id, goal_type, goal_description, target_distance_km,
        allowed_activity_types, deadline_utc, min_heart_rate_avg, confidence_required,
        penalty_type, penalty_amount_usd, penalty_destination, is_public, status, created_at, reaped_at`

// Create persists the contract and an outbox event in a single transaction.
func (r *ContractRepository) Create(ctx context.Context, contract domain.Contract) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	activityTypes, err := json.Marshal(contract.AllowedActivityTypes)
	if err != nil {
		return err
	}

	const insertContract = `INSERT INTO contracts (` + contractColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`

	_, err = tx.Exec(ctx, insertContract,
		contract.ID,
		contract.UserID,
		string(contract.GoalType),
		contract.GoalDescription,
		contract.TargetDistanceKm,
		activityTypes,
		contract.DeadlineUTC.UTC().Format(time.RFC3339),
		contract.MinHeartRateAvg,
		contract.ConfidenceRequired,
		string(contract.Penalty.Type),
		contract.Penalty.AmountUSD,
		nullIfEmpty(contract.Penalty.Destination),
		contract.IsPublic,
		string(contract.Status),
		contract.CreatedAt,
		contract.ReapedAt,
	)
	if err != nil {
		return err
	}

	if err = insertOutbox(ctx, tx, outboxEvent{
		AggregateType: "contract",
		AggregateID:   contract.ID,
		EventType:     "contract.committed",
		PartitionKey:  contract.UserID,
		Payload: contractCommittedPayload{
			ContractID:      contract.ID,
			UserID:          contract.UserID,
			GoalType:        string(contract.GoalType),
			GoalDescription: contract.GoalDescription,
			DeadlineUTC:     contract.DeadlineUTC.UTC(),
			PenaltyType:     string(contract.Penalty.Type),
			IsPublic:        contract.IsPublic,
		},
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Get retrieves a contract by ID.
func (r *ContractRepository) Get(ctx context.Context, id string) (*domain.Contract, error) {
	const query = `SELECT ` + contractColumns + ` FROM contracts WHERE contract_id=$1`

	row := r.pool.QueryRow(ctx, query, id)
	contract, err := scanContract(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrContractNotFound
		}
		return nil, err
	}
	return contract, nil
}

// ListActive returns every contract still in the Active state. Rows whose
// stored deadline does not parse come back with a zero deadline so the
// reaper can skip them.
func (r *ContractRepository) ListActive(ctx context.Context) ([]domain.Contract, error) {
	const query = `SELECT ` + contractColumns + ` FROM contracts WHERE status=$1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, string(domain.ContractStatusActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Contract
	for rows.Next() {
		contract, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *contract)
	}
	return results, rows.Err()
}

// ResolveActive compare-and-sets status from Active to a terminal state and
// records a contract.resolved outbox event. It reports false when the row
// was already non-Active.
func (r *ContractRepository) ResolveActive(ctx context.Context, id string, status domain.ContractStatus, reapedAt *time.Time) (bool, error) {
	if !status.Terminal() {
		return false, fmt.Errorf("%w: cannot resolve to %s", domain.ErrContractTerminal, status)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	var userID string
	err = tx.QueryRow(ctx, `UPDATE contracts SET status=$2, reaped_at=COALESCE($3, reaped_at)
        WHERE contract_id=$1 AND status=$4 RETURNING user_id`,
		id, string(status), reapedAt, string(domain.ContractStatusActive)).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
			return false, tx.Commit(ctx)
		}
		return false, err
	}

	if err = insertOutbox(ctx, tx, outboxEvent{
		AggregateType: "contract",
		AggregateID:   id,
		EventType:     "contract.resolved",
		PartitionKey:  userID,
		Payload: contractResolvedPayload{
			ContractID: id,
			UserID:     userID,
			Status:     string(status),
			ReapedAt:   reapedAt,
		},
	}); err != nil {
		return false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContract(row rowScanner) (*domain.Contract, error) {
	var (
		contract      domain.Contract
		goalType      string
		activityTypes []byte
		deadlineRaw   string
		penaltyType   string
		penaltyDest   *string
		status        string
	)
	if err := row.Scan(
		&contract.ID,
		&contract.UserID,
		&goalType,
		&contract.GoalDescription,
		&contract.TargetDistanceKm,
		&activityTypes,
		&deadlineRaw,
		&contract.MinHeartRateAvg,
		&contract.ConfidenceRequired,
		&penaltyType,
		&contract.Penalty.AmountUSD,
		&penaltyDest,
		&contract.IsPublic,
		&status,
		&contract.CreatedAt,
		&contract.ReapedAt,
	); err != nil {
		return nil, err
	}

	contract.GoalType = domain.GoalType(goalType)
	contract.Penalty.Type = domain.PenaltyType(penaltyType)
	if penaltyDest != nil {
		contract.Penalty.Destination = *penaltyDest
	}
	contract.Status = domain.ContractStatus(status)
	if len(activityTypes) > 0 {
		if err := json.Unmarshal(activityTypes, &contract.AllowedActivityTypes); err != nil {
			return nil, err
		}
	}

	// Deadlines are stored as text so legacy rows with naive or malformed
	// timestamps survive; unparsable ones load as zero time.
	if deadline, err := domain.ParseDeadline(deadlineRaw); err == nil {
		contract.DeadlineUTC = deadline
	}

	return &contract, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

type contractCommittedPayload struct {
	ContractID      string    `json:"contract_id"`
	UserID          string    `json:"user_id"`
	GoalType        string    `json:"goal_type"`
	GoalDescription string    `json:"goal_description"`
	DeadlineUTC     time.Time `json:"deadline_utc"`
	PenaltyType     string    `json:"penalty_type"`
	IsPublic        bool      `json:"is_public"`
}

type contractResolvedPayload struct {
	ContractID string     `json:"contract_id"`
	UserID     string     `json:"user_id"`
	Status     string     `json:"status"`
	ReapedAt   *time.Time `json:"reaped_at,omitempty"`
}
