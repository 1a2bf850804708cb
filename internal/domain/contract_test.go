package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validContract() Contract {
	target := 5.0
	return Contract{
		GoalType:           GoalTypeRunning,
		GoalDescription:    "Run 5km",
		TargetDistanceKm:   &target,
		DeadlineUTC:        time.Now().Add(24 * time.Hour),
		ConfidenceRequired: 0.95,
		Penalty:            Penalty{Type: PenaltyStakeBurn, AmountUSD: 10},
	}
}

func TestValidateAcceptsWellFormedContract(t *testing.T) {
	require.NoError(t, validContract().Validate())
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Contract)
		msg    string
	}{
		{"empty goal", func(c *Contract) { c.GoalDescription = "  " }, "goal_description"},
		{"unknown goal type", func(c *Contract) { c.GoalType = "swimming" }, "goal_type"},
		{"missing deadline", func(c *Contract) { c.DeadlineUTC = time.Time{} }, "deadline_utc"},
		{"confidence out of range", func(c *Contract) { c.ConfidenceRequired = 1.5 }, "confidence_required"},
		{"negative penalty", func(c *Contract) { c.Penalty.AmountUSD = -5 }, "amount_usd"},
		{"unknown penalty type", func(c *Contract) { c.Penalty.Type = "firstborn" }, "penalty type"},
		{"non-positive distance", func(c *Contract) { zero := 0.0; c.TargetDistanceKm = &zero }, "target_distance_km"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			contract := validContract()
			tc.mutate(&contract)
			err := contract.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestParseDeadlineFormats(t *testing.T) {
	offset, err := ParseDeadline("2026-03-14T09:00:00+02:00")
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.March, 14, 7, 0, 0, 0, time.UTC), offset)

	naive, err := ParseDeadline("2026-03-14T09:00:00")
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC), naive)

	spaced, err := ParseDeadline("2026-03-14 09:00:00")
	require.NoError(t, err)
	require.Equal(t, naive, spaced)

	dateOnly, err := ParseDeadline("2026-03-14")
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC), dateOnly)
}

func TestParseDeadlineRejectsGarbage(t *testing.T) {
	_, err := ParseDeadline("whenever")
	require.Error(t, err)

	_, err = ParseDeadline("  ")
	require.Error(t, err)
}

func TestStatusTerminal(t *testing.T) {
	require.False(t, ContractStatusActive.Terminal())
	require.True(t, ContractStatusSucceeded.Terminal())
	require.True(t, ContractStatusFailed.Terminal())
}

func TestEvidenceIsGeneric(t *testing.T) {
	require.False(t, Evidence{ActivityID: "run_valid_outdoor"}.IsGeneric())
	require.True(t, Evidence{TextEvidence: "proof"}.IsGeneric())
	require.True(t, Evidence{ImageURLs: []string{"https://img.example/a.jpg"}}.IsGeneric())
}
