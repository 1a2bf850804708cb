package enforce

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/pact/internal/domain"
)

type recordingPoster struct {
	posts []string
	err   error
}

func (p *recordingPoster) Post(_ context.Context, message string) error {
	p.posts = append(p.posts, message)
	return p.err
}

func allowDecision() domain.AuditorDecision {
	return domain.AuditorDecision{
		Verdict: domain.VerdictAllow,
		Reason:  "All checks passed. Enforcement authorized.",
	}
}

func TestExecuteBlockedDecision(t *testing.T) {
	executor := NewExecutor(&recordingPoster{})

	decision := domain.AuditorDecision{
		Verdict: domain.VerdictBlock,
		Reason:  "Safety checks failed: Confidence 0.60 < required 0.95",
	}
	line := executor.Execute(context.Background(), domain.Contract{}, decision)

	require.Equal(t, "Enforcement BLOCKED. Reason: Safety checks failed: Confidence 0.60 < required 0.95", line)
}

func TestExecuteDonation(t *testing.T) {
	executor := NewExecutor(&recordingPoster{})

	contract := domain.Contract{
		Penalty: domain.Penalty{Type: domain.PenaltyDonation, AmountUSD: 25, Destination: "Against Malaria Foundation"},
	}
	line := executor.Execute(context.Background(), contract, allowDecision())

	require.Equal(t, "EXECUTED: Charged $25.00 to card ending 4242. Donated to Against Malaria Foundation.", line)
}

func TestExecuteDonationDefaultsDestination(t *testing.T) {
	executor := NewExecutor(&recordingPoster{})

	contract := domain.Contract{
		Penalty: domain.Penalty{Type: domain.PenaltyDonation, AmountUSD: 10},
	}
	line := executor.Execute(context.Background(), contract, allowDecision())

	require.Contains(t, line, "Donated to Charity.")
}

func TestExecutePublicShamePosts(t *testing.T) {
	poster := &recordingPoster{}
	executor := NewExecutor(poster)

	contract := domain.Contract{
		GoalDescription: "Run 5km this week",
		Penalty:         domain.Penalty{Type: domain.PenaltyPublicShame},
	}
	line := executor.Execute(context.Background(), contract, allowDecision())

	require.Equal(t, "EXECUTED: Posted public accountability message.", line)
	require.Len(t, poster.posts, 1)
	require.Contains(t, poster.posts[0], `"Run 5km this week"`)
}

func TestExecutePublicShameSwallowsPostError(t *testing.T) {
	poster := &recordingPoster{err: errors.New("network down")}
	executor := NewExecutor(poster)

	contract := domain.Contract{
		GoalDescription: "Run 5km this week",
		Penalty:         domain.Penalty{Type: domain.PenaltyPublicShame},
	}
	line := executor.Execute(context.Background(), contract, allowDecision())

	require.Equal(t, "EXECUTED: Posted public accountability message.", line)
}

func TestExecuteGenericPenalty(t *testing.T) {
	executor := NewExecutor(&recordingPoster{})

	contract := domain.Contract{
		Penalty: domain.Penalty{Type: domain.PenaltyStakeBurn, AmountUSD: 10},
	}
	line := executor.Execute(context.Background(), contract, allowDecision())

	require.Equal(t, "EXECUTED: Generic penalty stake_burn", line)
}
