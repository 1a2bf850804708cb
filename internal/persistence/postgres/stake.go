package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/pact/internal/domain"
	"example.com/pact/internal/stake"
)

// conflictRetries bounds internal retries of a ledger transaction that lost
// to a concurrent writer.
const conflictRetries = 3

// StakeStore is the Postgres implementation of stake.Store. Row-level
// FOR UPDATE on the user's ledger serializes same-user transactions while
// different users proceed in parallel.
type StakeStore struct {
	pool *pgxpool.Pool
}

// NewStakeStore constructs a StakeStore.
func NewStakeStore(pool *pgxpool.Pool) *StakeStore {
	return &StakeStore{pool: pool}
}

type stakeTx struct {
	ledger    domain.StakeLedger
	setLedger *domain.StakeLedger
	appended  []domain.StakeEvent
}

func (t *stakeTx) Ledger() domain.StakeLedger { return t.ledger }

func (t *stakeTx) SetLedger(l domain.StakeLedger) { t.setLedger = &l }

func (t *stakeTx) AppendEvent(e domain.StakeEvent) { t.appended = append(t.appended, e) }

// Transact runs fn under an exclusive lock on the user's ledger row,
// retrying internally on transient serialization or deadlock failures so
// conflicts stay invisible to the caller.
func (s *StakeStore) Transact(ctx context.Context, userID string, fn func(tx stake.Tx) error) error {
	var err error
	for attempt := 0; attempt <= conflictRetries; attempt++ {
		err = s.transactOnce(ctx, userID, fn)
		if err == nil || !isTransientConflict(err) {
			return err
		}
	}
	return err
}

func (s *StakeStore) transactOnce(ctx context.Context, userID string, fn func(tx stake.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	// Materialize the seed row on first touch so FOR UPDATE has a row to lock.
	if _, err = tx.Exec(ctx, `INSERT INTO stake_ledgers (user_id, current_balance, lifetime_earned, lifetime_burned, updated_at)
        VALUES ($1, $2, 0, 0, NOW()) ON CONFLICT (user_id) DO NOTHING`, userID, domain.StakeSeedBalance); err != nil {
		return err
	}

	stx := &stakeTx{}
	err = tx.QueryRow(ctx, `SELECT user_id, current_balance, lifetime_earned, lifetime_burned, updated_at
        FROM stake_ledgers WHERE user_id=$1 FOR UPDATE`, userID).Scan(
		&stx.ledger.UserID,
		&stx.ledger.CurrentBalance,
		&stx.ledger.LifetimeEarned,
		&stx.ledger.LifetimeBurned,
		&stx.ledger.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if err = fn(stx); err != nil {
		return err
	}

	if stx.setLedger != nil {
		if _, err = tx.Exec(ctx, `UPDATE stake_ledgers SET current_balance=$2, lifetime_earned=$3, lifetime_burned=$4, updated_at=$5
            WHERE user_id=$1`,
			userID,
			stx.setLedger.CurrentBalance,
			stx.setLedger.LifetimeEarned,
			stx.setLedger.LifetimeBurned,
			stx.setLedger.UpdatedAt,
		); err != nil {
			return err
		}
	}

	for _, event := range stx.appended {
		if _, err = tx.Exec(ctx, `INSERT INTO stake_events (event_id, user_id, event_type, amount, reason, confidence, governance_verdict, created_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			event.ID,
			event.UserID,
			string(event.EventType),
			event.Amount,
			event.Reason,
			event.Confidence,
			nullIfEmpty(event.GovernanceVerdict),
			event.CreatedAt,
		); err != nil {
			return err
		}

		if err = insertOutbox(ctx, tx, outboxEvent{
			AggregateType: "stake_event",
			AggregateID:   event.ID,
			EventType:     "stake.recorded",
			PartitionKey:  event.UserID,
			Payload:       event,
		}); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Ledger returns the user's row; first-touch users see the seed balance
// without a row being written.
func (s *StakeStore) Ledger(ctx context.Context, userID string) (*domain.StakeLedger, error) {
	var ledger domain.StakeLedger
	err := s.pool.QueryRow(ctx, `SELECT user_id, current_balance, lifetime_earned, lifetime_burned, updated_at
        FROM stake_ledgers WHERE user_id=$1`, userID).Scan(
		&ledger.UserID,
		&ledger.CurrentBalance,
		&ledger.LifetimeEarned,
		&ledger.LifetimeBurned,
		&ledger.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.StakeLedger{
				UserID:         userID,
				CurrentBalance: domain.StakeSeedBalance,
				UpdatedAt:      time.Now().UTC(),
			}, nil
		}
		return nil, err
	}
	return &ledger, nil
}

// RecentEvents returns up to limit events for the user, newest first.
func (s *StakeStore) RecentEvents(ctx context.Context, userID string, limit int) ([]domain.StakeEvent, error) {
	rows, err := s.pool.Query(ctx, `SELECT event_id, user_id, event_type, amount, reason, confidence, COALESCE(governance_verdict, ''), created_at
        FROM stake_events WHERE user_id=$1 ORDER BY created_at DESC, event_id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.StakeEvent
	for rows.Next() {
		var event domain.StakeEvent
		var eventType string
		if err := rows.Scan(&event.ID, &event.UserID, &eventType, &event.Amount, &event.Reason, &event.Confidence, &event.GovernanceVerdict, &event.CreatedAt); err != nil {
			return nil, err
		}
		event.EventType = domain.StakeAction(eventType)
		events = append(events, event)
	}
	return events, rows.Err()
}

// isTransientConflict reports serialization failures and deadlocks, which
// are safe to retry once the losing transaction has rolled back.
func isTransientConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
