package contract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/pact/internal/clients"
	"example.com/pact/internal/domain"
)

type stubParser struct {
	contract *domain.Contract
	err      error
	lastCtx  string
}

func (p *stubParser) Parse(_ context.Context, _ string, retrievalContext string) (*domain.Contract, error) {
	p.lastCtx = retrievalContext
	return p.contract, p.err
}

func TestNegotiateRunningGoal(t *testing.T) {
	builder := NewBuilder(clients.NewMockGoalParser())

	draft, err := builder.Negotiate(context.Background(), "Run 10km before Sunday or donate to charity")
	require.NoError(t, err)

	require.Equal(t, domain.GoalTypeRunning, draft.GoalType)
	require.NotNil(t, draft.TargetDistanceKm)
	require.InDelta(t, 10.0, *draft.TargetDistanceKm, 1e-9)
	require.Equal(t, domain.PenaltyDonation, draft.Penalty.Type)
	require.Equal(t, []string{"Run", "Treadmill"}, draft.AllowedActivityTypes)
	require.InDelta(t, domain.DefaultConfidenceRequired, draft.ConfidenceRequired, 1e-9)
	require.NoError(t, draft.Validate())
}

func TestNegotiateParserUnavailablePassesThrough(t *testing.T) {
	builder := NewBuilder(clients.UnconfiguredGoalParser{})

	draft, err := builder.Negotiate(context.Background(), "Run 5km")
	require.ErrorIs(t, err, clients.ErrParserUnavailable)
	require.Nil(t, draft)
}

func TestNegotiateParseErrorUsesFallback(t *testing.T) {
	builder := NewBuilder(&stubParser{err: clients.ErrParseFailed})

	draft, err := builder.Negotiate(context.Background(), "some vague ambition")
	require.NoError(t, err)

	require.Equal(t, domain.GoalTypeGeneral, draft.GoalType)
	require.Equal(t, "some vague ambition", draft.GoalDescription)
	require.Equal(t, domain.PenaltyStakeBurn, draft.Penalty.Type)
	require.InDelta(t, 10.0, draft.Penalty.AmountUSD, 1e-9)
	require.WithinDuration(t, time.Now().UTC().Add(fallbackDeadline), draft.DeadlineUTC, time.Minute)
	require.NoError(t, draft.Validate())
}

func TestNegotiateInvalidParsedContractUsesFallback(t *testing.T) {
	bad := &domain.Contract{
		GoalType:        domain.GoalTypeRunning,
		GoalDescription: "", // fails validation
		DeadlineUTC:     time.Now().Add(time.Hour),
		Penalty:         domain.Penalty{Type: domain.PenaltyStakeBurn, AmountUSD: 10},
	}
	builder := NewBuilder(&stubParser{contract: bad})

	draft, err := builder.Negotiate(context.Background(), "do the thing")
	require.NoError(t, err)
	require.Equal(t, "do the thing", draft.GoalDescription)
	require.NoError(t, draft.Validate())
}

func TestNegotiateFallbackHonorsPenaltyKeywords(t *testing.T) {
	builder := NewBuilder(&stubParser{err: errors.New("model timeout")})

	shame, err := builder.Negotiate(context.Background(), "finish the draft or face public shame")
	require.NoError(t, err)
	require.Equal(t, domain.PenaltyPublicShame, shame.Penalty.Type)
	require.Zero(t, shame.Penalty.AmountUSD)

	donate, err := builder.Negotiate(context.Background(), "finish the draft or make a donation")
	require.NoError(t, err)
	require.Equal(t, domain.PenaltyDonation, donate.Penalty.Type)
}

func TestRetrieveContextByCategory(t *testing.T) {
	require.Contains(t, retrieveContext("Run a marathon"), "category: running")
	require.Contains(t, retrieveContext("ship the app"), "category: coding")
	require.Contains(t, retrieveContext("read two books"), "category: reading")
	require.Contains(t, retrieveContext("hit the gym daily"), "category: fitness")
	require.Empty(t, retrieveContext("learn to whistle"))
}

func TestNegotiateForwardsRetrievalContext(t *testing.T) {
	parser := &stubParser{contract: &domain.Contract{
		GoalType:        domain.GoalTypeGeneral,
		GoalDescription: "read two books",
		DeadlineUTC:     time.Now().Add(time.Hour),
		Penalty:         domain.Penalty{Type: domain.PenaltyStakeBurn, AmountUSD: 10},
	}}
	builder := NewBuilder(parser)

	_, err := builder.Negotiate(context.Background(), "read two books")
	require.NoError(t, err)
	require.Contains(t, parser.lastCtx, "category: reading")
}
