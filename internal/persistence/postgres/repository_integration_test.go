//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/pact/internal/domain"
	"example.com/pact/internal/stake"
)

func startPostgres(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("pact"),
		postgrescontainer.WithUsername("platform"),
		postgrescontainer.WithPassword("platform"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))
	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func sampleContract() domain.Contract {
	target := 5.0
	return domain.Contract{
		ID:                   uuid.NewString(),
		UserID:               uuid.NewString(),
		GoalType:             domain.GoalTypeRunning,
		GoalDescription:      "Run 5km this week",
		TargetDistanceKm:     &target,
		AllowedActivityTypes: []string{"Run", "Treadmill"},
		DeadlineUTC:          time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second),
		ConfidenceRequired:   0.95,
		Penalty:              domain.Penalty{Type: domain.PenaltyStakeBurn, AmountUSD: 10, Destination: "Ledger"},
		IsPublic:             true,
		Status:               domain.ContractStatusActive,
		CreatedAt:            time.Now().UTC(),
	}
}

func TestContractRoundTripAndResolve(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t, ctx)

	repo := NewContractRepository(pool)
	contract := sampleContract()

	require.NoError(t, repo.Create(ctx, contract))

	stored, err := repo.Get(ctx, contract.ID)
	require.NoError(t, err)
	require.Equal(t, contract.ID, stored.ID)
	require.Equal(t, contract.DeadlineUTC, stored.DeadlineUTC)
	require.Equal(t, contract.AllowedActivityTypes, stored.AllowedActivityTypes)
	require.Equal(t, domain.ContractStatusActive, stored.Status)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	reapedAt := time.Now().UTC()
	flipped, err := repo.ResolveActive(ctx, contract.ID, domain.ContractStatusFailed, &reapedAt)
	require.NoError(t, err)
	require.True(t, flipped)

	// The compare-and-set must refuse a second resolution.
	flipped, err = repo.ResolveActive(ctx, contract.ID, domain.ContractStatusSucceeded, nil)
	require.NoError(t, err)
	require.False(t, flipped)

	resolved, err := repo.Get(ctx, contract.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ContractStatusFailed, resolved.Status)
	require.NotNil(t, resolved.ReapedAt)
}

func TestGetMissingContract(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t, ctx)

	repo := NewContractRepository(pool)
	_, err := repo.Get(ctx, uuid.NewString())
	require.ErrorIs(t, err, domain.ErrContractNotFound)
}

func TestStakeStoreConcurrentBurnsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t, ctx)

	manager := stake.NewManager(NewStakeStore(pool), 0.02)
	userID := uuid.NewString()
	failure := domain.VerificationResult{Status: domain.VerificationFailure, Confidence: 1.0}

	const attempts = 25
	results := make([]domain.StakeResult, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := manager.HandleOutcome(ctx, userID, failure)
			require.NoError(t, err)
			results[i] = *result
		}(i)
	}
	wg.Wait()

	burns := 0
	for _, result := range results {
		if result.Action == domain.StakeActionBurn {
			burns++
		}
	}
	require.Equal(t, 10, burns)

	ledger, events, err := manager.Snapshot(ctx, userID, attempts)
	require.NoError(t, err)
	require.Zero(t, ledger.CurrentBalance)
	require.EqualValues(t, 100, ledger.LifetimeBurned)
	require.Len(t, events, attempts)
}

func TestLedgerRowSeededExactlyOnce(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t, ctx)

	store := NewStakeStore(pool)
	userID := uuid.NewString()

	ledger, err := store.Ledger(ctx, userID)
	require.NoError(t, err)
	require.EqualValues(t, domain.StakeSeedBalance, ledger.CurrentBalance)

	// First transactional touch materializes the row; the seed must not
	// re-apply afterwards.
	err = store.Transact(ctx, userID, func(tx stake.Tx) error { return nil })
	require.NoError(t, err)

	again, err := store.Ledger(ctx, userID)
	require.NoError(t, err)
	require.EqualValues(t, domain.StakeSeedBalance, again.CurrentBalance)
}

func TestFeedAndStatsRoundTrip(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t, ctx)

	feed := NewFeedRepository(pool)
	stats := NewStatsRepository(pool)

	require.NoError(t, feed.Append(ctx, domain.FeedEntry{
		ID:              uuid.NewString(),
		UserID:          "user-1",
		GoalDescription: "Run 5km",
		Status:          domain.VerificationSuccess,
		EvidenceSummary: "Evidence verified.",
		TrustScoreDelta: 5,
		CreatedAt:       time.Now().UTC(),
	}))

	entries, err := feed.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, stats.IncrementSigned(ctx, "user-1"))
	require.NoError(t, stats.IncrementCompleted(ctx, "user-1"))
	require.NoError(t, stats.IncrementCompleted(ctx, "user-2"))
	require.NoError(t, stats.IncrementCompleted(ctx, "user-2"))

	board, err := stats.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, "user-2", board[0].UserID)
	require.EqualValues(t, 2, board[0].ContractsCompleted)
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	files := []string{
		"../../../db/postgres/migrations/0001_init.up.sql",
	}

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, rel := range files {
		path := resolvePath(t, rel)
		contents, readErr := os.ReadFile(path)
		require.NoError(t, readErr)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoError(t, execErr)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
