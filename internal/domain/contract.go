// Package domain defines the core types and business rules for the pact service.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrContractNotFound is returned when a contract cannot be located.
	ErrContractNotFound = errors.New("contract not found")
	// ErrContractTerminal indicates a write was attempted against a contract
	// that already reached Succeeded or Failed.
	ErrContractTerminal = errors.New("contract already terminal")
)

// ContractStatus is the lifecycle state of a commitment contract.
type ContractStatus string

const (
	ContractStatusActive    ContractStatus = "Active"
	ContractStatusSucceeded ContractStatus = "Succeeded"
	ContractStatusFailed    ContractStatus = "Failed"
)

// Terminal reports whether the status permits no further transitions.
func (s ContractStatus) Terminal() bool {
	return s == ContractStatusSucceeded || s == ContractStatusFailed
}

// GoalType categorises what kind of goal a contract tracks.
type GoalType string

const (
	GoalTypeRunning GoalType = "running"
	GoalTypeGeneral GoalType = "general"
)

// PenaltyType enumerates the supported consequences for a failed contract.
type PenaltyType string

const (
	PenaltyDonation    PenaltyType = "donation"
	PenaltyPublicShame PenaltyType = "public_shame"
	PenaltyStakeBurn   PenaltyType = "stake_burn"
)

// Penalty describes the consequence attached to a contract.
type Penalty struct {
	Type        PenaltyType `json:"type"`
	AmountUSD   float64     `json:"amount_usd"`
	Destination string      `json:"destination,omitempty"`
}

// Contract is a structured, verifiable commitment with a deadline and a penalty.
type Contract struct {
	ID                   string         `json:"id,omitempty"`
	UserID               string         `json:"user_id,omitempty"`
	GoalType             GoalType       `json:"goal_type"`
	GoalDescription      string         `json:"goal_description"`
	TargetDistanceKm     *float64       `json:"target_distance_km"`
	AllowedActivityTypes []string       `json:"allowed_activity_types"`
	DeadlineUTC          time.Time      `json:"deadline_utc"`
	MinHeartRateAvg      *float64       `json:"min_heart_rate_avg,omitempty"`
	ConfidenceRequired   float64        `json:"confidence_required"`
	Penalty              Penalty        `json:"penalty"`
	IsPublic             bool           `json:"is_public"`
	Status               ContractStatus `json:"status,omitempty"`
	CreatedAt            time.Time      `json:"created_at,omitempty"`
	ReapedAt             *time.Time     `json:"reaped_at,omitempty"`
}

// DefaultConfidenceRequired applies when a contract omits a threshold.
const DefaultConfidenceRequired = 0.95

// Validate checks structural requirements before a contract enters the pipeline.
func (c Contract) Validate() error {
	if strings.TrimSpace(c.GoalDescription) == "" {
		return errors.New("goal_description is required")
	}
	if c.GoalType != GoalTypeRunning && c.GoalType != GoalTypeGeneral {
		return fmt.Errorf("unknown goal_type %q", c.GoalType)
	}
	if c.DeadlineUTC.IsZero() {
		return errors.New("deadline_utc is required")
	}
	if c.ConfidenceRequired < 0 || c.ConfidenceRequired > 1 {
		return errors.New("confidence_required must be within [0.0, 1.0]")
	}
	if c.Penalty.AmountUSD < 0 {
		return errors.New("penalty amount_usd must be >= 0")
	}
	switch c.Penalty.Type {
	case PenaltyDonation, PenaltyPublicShame, PenaltyStakeBurn:
	default:
		return fmt.Errorf("unknown penalty type %q", c.Penalty.Type)
	}
	if c.TargetDistanceKm != nil && *c.TargetDistanceKm <= 0 {
		return errors.New("target_distance_km must be > 0 when set")
	}
	return nil
}

// ParseDeadline accepts the deadline formats contracts arrive with: RFC 3339
// with an offset, or a timezone-naive timestamp which is treated as UTC.
func ParseDeadline(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("empty deadline")
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC(), nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable deadline %q", raw)
}
