// Package clients holds the narrow interfaces for external collaborators and
// their mock/unconfigured implementations.
package clients

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"example.com/pact/internal/domain"
)

// ErrActivityNotFound is returned when the tracker has no such activity.
var ErrActivityNotFound = errors.New("activity not found")

// ActivityClient fetches tracker activities and their heart-rate streams.
type ActivityClient interface {
	GetActivity(ctx context.Context, activityID string) (*domain.ActivityRecord, error)
	GetHeartRateStream(ctx context.Context, activityID string) ([]domain.HeartRateSample, error)
}

// MockActivityClient serves deterministic fixtures keyed by scenario ID,
// standing in for a real tracker API during demos and tests.
//
// Supported IDs: run_valid_outdoor, run_short, run_late, run_superhuman,
// run_manual, treadmill_valid, treadmill_cheat, treadmill_no_hr.
type MockActivityClient struct {
	// Now allows tests to pin the clock. Defaults to time.Now.
	Now func() time.Time
}

// NewMockActivityClient constructs the fixture-backed client.
func NewMockActivityClient() *MockActivityClient {
	return &MockActivityClient{Now: time.Now}
}

// GetActivity returns the fixture for the scenario ID.
func (c *MockActivityClient) GetActivity(_ context.Context, activityID string) (*domain.ActivityRecord, error) {
	now := c.Now().UTC()

	base := domain.ActivityRecord{
		ID:           activityID,
		ActivityType: "Run",
		StartTime:    now.Add(-2 * time.Hour),
		DistanceM:    5000.0,
		ElapsedSec:   1500,
		HasHeartRate: true,
		AvgHeartRate: 145.0,
		MaxHeartRate: 165.0,
	}

	switch activityID {
	case "run_valid_outdoor":
	case "run_short":
		base.DistanceM = 4000.0
	case "run_late":
		base.StartTime = now.Add(time.Hour)
	case "run_superhuman":
		base.ElapsedSec = 600
	case "run_manual":
		base.Manual = true
	case "treadmill_valid":
		base.Trainer = true
		base.AvgHeartRate = 150.0
	case "treadmill_cheat":
		base.Trainer = true
		base.AvgHeartRate = 80.0
	case "treadmill_no_hr":
		base.Trainer = true
		base.HasHeartRate = false
		base.AvgHeartRate = 0
	default:
		return nil, fmt.Errorf("%w: %s", ErrActivityNotFound, activityID)
	}
	return &base, nil
}

// GetHeartRateStream returns a stream fixture; most scenarios have none.
func (c *MockActivityClient) GetHeartRateStream(_ context.Context, activityID string) ([]domain.HeartRateSample, error) {
	switch activityID {
	case "treadmill_cheat":
		// Flat line: the variability heuristic should fire.
		samples := make([]domain.HeartRateSample, 0, 150)
		for i := 0; i < 1500; i += 10 {
			samples = append(samples, domain.HeartRateSample{TimeOffsetSec: i, HeartRate: 80})
		}
		return samples, nil
	case "treadmill_valid":
		rng := rand.New(rand.NewSource(42))
		samples := make([]domain.HeartRateSample, 0, 150)
		for i := 0; i < 1500; i += 10 {
			samples = append(samples, domain.HeartRateSample{TimeOffsetSec: i, HeartRate: 140 + float64(rng.Intn(31)-10)})
		}
		return samples, nil
	}
	return nil, nil
}
