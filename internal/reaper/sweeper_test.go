package reaper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/pact/internal/audit"
	"example.com/pact/internal/clients"
	"example.com/pact/internal/domain"
	"example.com/pact/internal/enforce"
	"example.com/pact/internal/persistence/memory"
	"example.com/pact/internal/pipeline"
	"example.com/pact/internal/stake"
	"example.com/pact/internal/verify"
)

type fixture struct {
	sweeper   *Sweeper
	contracts *memory.ContractRepository
	feed      *memory.FeedRepository
	stats     *memory.StatsRepository
	stakes    *stake.Manager
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)

	contracts := memory.NewContractRepository()
	feed := memory.NewFeedRepository()
	stats := memory.NewStatsRepository()
	stakes := stake.NewManager(stake.NewInMemoryStore(), 0.02)

	verifier := verify.NewEngine(clients.NewMockActivityClient(), clients.UnconfiguredJudge{})
	gate := audit.NewGate(audit.DefaultMaxPenaltyUSD, audit.DefaultFalsePositiveRate)
	executor := enforce.NewExecutor(clients.NewLogSocialPoster())
	pipe := pipeline.New(verifier, gate, executor, stakes, contracts, feed, stats)

	sweeper := NewSweeper(contracts, pipe, time.Minute, time.Hour)
	sweeper.now = func() time.Time { return now }

	return &fixture{sweeper: sweeper, contracts: contracts, feed: feed, stats: stats, stakes: stakes, now: now}
}

func (f *fixture) addContract(t *testing.T, id string, deadline time.Time, mutate func(*domain.Contract)) {
	t.Helper()
	contract := domain.Contract{
		ID:                 id,
		UserID:             "user-1",
		GoalType:           domain.GoalTypeGeneral,
		GoalDescription:    "Finish the report",
		DeadlineUTC:        deadline,
		ConfidenceRequired: 0.95,
		Penalty:            domain.Penalty{Type: domain.PenaltyStakeBurn, AmountUSD: 10},
		Status:             domain.ContractStatusActive,
		CreatedAt:          f.now.Add(-48 * time.Hour),
	}
	if mutate != nil {
		mutate(&contract)
	}
	require.NoError(t, f.contracts.Create(context.Background(), contract))
}

func TestSweepReapsExpiredContract(t *testing.T) {
	f := newFixture(t)
	f.addContract(t, "c-expired", f.now.Add(-2*time.Hour), nil)

	reaped, err := f.sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"c-expired"}, reaped)

	stored, err := f.contracts.Get(context.Background(), "c-expired")
	require.NoError(t, err)
	require.Equal(t, domain.ContractStatusFailed, stored.Status)
	require.NotNil(t, stored.ReapedAt)

	// The synthesized failure carries confidence 1.0, so the burn lands.
	ledger, _, err := f.stakes.Snapshot(context.Background(), "user-1", 1)
	require.NoError(t, err)
	require.EqualValues(t, 90, ledger.CurrentBalance)
}

func TestSweepLeavesContractInsideGracePeriod(t *testing.T) {
	f := newFixture(t)
	f.addContract(t, "c-grace", f.now.Add(-30*time.Minute), nil)

	reaped, err := f.sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	require.Empty(t, reaped)

	stored, err := f.contracts.Get(context.Background(), "c-grace")
	require.NoError(t, err)
	require.Equal(t, domain.ContractStatusActive, stored.Status)
}

func TestSweepSkipsZeroDeadline(t *testing.T) {
	f := newFixture(t)
	f.addContract(t, "c-nodeadline", time.Time{}, nil)

	reaped, err := f.sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	require.Empty(t, reaped)
}

func TestSweepIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.addContract(t, "c-expired", f.now.Add(-2*time.Hour), nil)

	first, err := f.sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := f.sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	require.Empty(t, second)

	// Exactly one burn despite two sweeps.
	ledger, events, err := f.stakes.Snapshot(context.Background(), "user-1", 10)
	require.NoError(t, err)
	require.EqualValues(t, 90, ledger.CurrentBalance)
	require.Len(t, events, 1)
}

func TestSweepPublishesPublicFailures(t *testing.T) {
	f := newFixture(t)
	f.addContract(t, "c-public", f.now.Add(-2*time.Hour), func(c *domain.Contract) {
		c.IsPublic = true
	})

	_, err := f.sweeper.SweepOnce(context.Background())
	require.NoError(t, err)

	entries, err := f.feed.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, domain.VerificationFailure, entries[0].Status)
	require.Equal(t, reapReason, entries[0].EvidenceSummary)
	require.Equal(t, -10, entries[0].TrustScoreDelta)
}

func TestSweepIsolatesPipelineFaults(t *testing.T) {
	f := newFixture(t)

	// A nil executor makes Resolve panic on the enforcement stage. The reap
	// must recover and still flip the contract to Failed.
	f.sweeper.pipe = pipeline.New(nil, audit.NewGate(audit.DefaultMaxPenaltyUSD, audit.DefaultFalsePositiveRate),
		nil, f.stakes, f.contracts, f.feed, f.stats)

	f.addContract(t, "c-faulty", f.now.Add(-2*time.Hour), nil)

	reaped, err := f.sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"c-faulty"}, reaped)

	stored, err := f.contracts.Get(context.Background(), "c-faulty")
	require.NoError(t, err)
	require.Equal(t, domain.ContractStatusFailed, stored.Status)
}

func TestSweepReapsMultipleContracts(t *testing.T) {
	f := newFixture(t)
	f.addContract(t, "c-one", f.now.Add(-3*time.Hour), nil)
	f.addContract(t, "c-two", f.now.Add(-2*time.Hour), func(c *domain.Contract) {
		c.UserID = "user-2"
	})

	reaped, err := f.sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, reaped, 2)
}
