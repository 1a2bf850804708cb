package pipeline

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
	"example.com/pact/internal/stake"
	"example.com/pact/internal/verify"
)

type stageRecorder struct {
	started   []string
	completed []string
	failed    []string
}

func (r *stageRecorder) StageStarted(stage string)         { r.started = append(r.started, stage) }
func (r *stageRecorder) StageCompleted(stage, _ string)    { r.completed = append(r.completed, stage) }
func (r *stageRecorder) StageFailed(stage string, _ error) { r.failed = append(r.failed, stage) }

type harness struct {
	pipe      *Pipeline
	contracts *memory.ContractRepository
	feed      *memory.FeedRepository
	stats     *memory.StatsRepository
	stakes    *stake.Manager
	recorder  *stageRecorder
	clock     func() time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	now := time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	contracts := memory.NewContractRepository()
	feed := memory.NewFeedRepository()
	stats := memory.NewStatsRepository()
	stakes := stake.NewManager(stake.NewInMemoryStore(), 0.02)

	activities := clients.NewMockActivityClient()
	activities.Now = clock
	verifier := verify.NewEngine(activities, clients.MockJudge{})
	gate := audit.NewGate(audit.DefaultMaxPenaltyUSD, audit.DefaultFalsePositiveRate)
	executor := enforce.NewExecutor(clients.NewLogSocialPoster())

	recorder := &stageRecorder{}
	pipe := New(verifier, gate, executor, stakes, contracts, feed, stats).WithObserver(recorder)

	return &harness{pipe: pipe, contracts: contracts, feed: feed, stats: stats, stakes: stakes, recorder: recorder, clock: clock}
}

func (h *harness) activeContract(t *testing.T, mutate func(*domain.Contract)) domain.Contract {
	t.Helper()
	target := 5.0
	contract := domain.Contract{
		ID:                 "c-1",
		UserID:             "user-1",
		GoalType:           domain.GoalTypeRunning,
		GoalDescription:    "Run 5km this week",
		TargetDistanceKm:   &target,
		DeadlineUTC:        h.clock().Add(24 * time.Hour),
		ConfidenceRequired: 0.95,
		Penalty:            domain.Penalty{Type: domain.PenaltyStakeBurn, AmountUSD: 10},
		IsPublic:           true,
		Status:             domain.ContractStatusActive,
		CreatedAt:          h.clock(),
	}
	if mutate != nil {
		mutate(&contract)
	}
	require.NoError(t, h.contracts.Create(context.Background(), contract))
	return contract
}

func TestRunSuccessFlipsContractAndEarnsStake(t *testing.T) {
	h := newHarness(t)
	contract := h.activeContract(t, nil)

	outcome := h.pipe.Run(context.Background(), contract, verify.Input{ActivityID: "run_valid_outdoor"})

	require.Equal(t, domain.VerificationSuccess, outcome.Verification.Status)
	require.Equal(t, domain.VerdictBlock, outcome.Audit.Verdict)
	require.Nil(t, outcome.Enforcement)
	require.NotNil(t, outcome.Stake)
	require.Equal(t, domain.StakeActionEarn, outcome.Stake.Action)

	stored, err := h.contracts.Get(context.Background(), contract.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ContractStatusSucceeded, stored.Status)

	entries, err := h.feed.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, 5, entries[0].TrustScoreDelta)

	board, err := h.stats.Leaderboard(context.Background(), 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, board[0].ContractsCompleted)
}

func TestRunFailureEnforcesAndBurns(t *testing.T) {
	h := newHarness(t)
	contract := h.activeContract(t, nil)

	outcome := h.pipe.Run(context.Background(), contract, verify.Input{ActivityID: "run_short"})

	require.Equal(t, domain.VerificationFailure, outcome.Verification.Status)
	require.Equal(t, domain.VerdictAllow, outcome.Audit.Verdict)
	require.NotNil(t, outcome.Enforcement)
	require.Contains(t, *outcome.Enforcement, "EXECUTED:")
	require.Equal(t, domain.StakeActionBurn, outcome.Stake.Action)
	require.EqualValues(t, 90, outcome.Stake.Balance)

	stored, err := h.contracts.Get(context.Background(), contract.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ContractStatusFailed, stored.Status)

	entries, err := h.feed.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, -10, entries[0].TrustScoreDelta)
	require.Contains(t, entries[0].EvidenceSummary, "Distance 4.00km")
}

func TestRunUncertainLeavesContractActive(t *testing.T) {
	h := newHarness(t)
	contract := h.activeContract(t, nil)

	outcome := h.pipe.Run(context.Background(), contract, verify.Input{ActivityID: "no_such_activity"})

	require.Equal(t, domain.VerificationUncertain, outcome.Verification.Status)
	require.Equal(t, domain.VerdictBlock, outcome.Audit.Verdict)
	require.Nil(t, outcome.Enforcement)
	// No stake movement on uncertainty.
	require.Equal(t, domain.StakeActionBlocked, outcome.Stake.Action)

	stored, err := h.contracts.Get(context.Background(), contract.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ContractStatusActive, stored.Status)

	// Uncertain outcomes never reach the public feed.
	entries, err := h.feed.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestRunPrivateContractStaysOffFeed(t *testing.T) {
	h := newHarness(t)
	contract := h.activeContract(t, func(c *domain.Contract) { c.IsPublic = false })

	h.pipe.Run(context.Background(), contract, verify.Input{ActivityID: "run_valid_outdoor"})

	entries, err := h.feed.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestRunNotifiesObserverPerStage(t *testing.T) {
	h := newHarness(t)
	contract := h.activeContract(t, nil)

	h.pipe.Run(context.Background(), contract, verify.Input{ActivityID: "run_short"})

	require.Equal(t, []string{"verify", "audit", "enforce", "stake"}, h.recorder.started)
	require.Equal(t, []string{"verify", "audit", "enforce", "stake"}, h.recorder.completed)
	require.Empty(t, h.recorder.failed)
}

func TestResolveWithoutStoresStaysSelfContained(t *testing.T) {
	h := newHarness(t)
	pipe := New(nil, audit.NewGate(audit.DefaultMaxPenaltyUSD, audit.DefaultFalsePositiveRate),
		enforce.NewExecutor(clients.NewLogSocialPoster()), h.stakes, nil, nil, nil)

	contract := domain.Contract{
		UserID:             "user-9",
		GoalDescription:    "ad-hoc goal",
		ConfidenceRequired: 0.95,
		Penalty:            domain.Penalty{Type: domain.PenaltyStakeBurn, AmountUSD: 10},
	}
	outcome := pipe.Resolve(context.Background(), contract, domain.VerificationResult{
		Status:     domain.VerificationFailure,
		Confidence: 1.0,
	})

	require.Equal(t, domain.VerdictAllow, outcome.Audit.Verdict)
	require.NotNil(t, outcome.Stake)
	require.Equal(t, domain.StakeActionBurn, outcome.Stake.Action)
}
