package verify

import (
	"context"
	"fmt"
	"math"
	"strings"

	"example.com/pact/internal/domain"
)

// Rule thresholds for structured verification. The pace floor is an
// anti-cheat heuristic for average users, not a physical law; tune it if the
// user base includes elite runners.
const (
	distanceTolerance = 0.97
	minPacePerKm      = 3.0
	hrStdevFloor      = 2.0
	hrStreamMinLen    = 10
)

// verifyStructured checks a tracker activity against the contract's metric
// rules. All rules are evaluated; every violation is collected into the
// failure reason.
func (e *Engine) verifyStructured(ctx context.Context, contract domain.Contract, activityID string) domain.VerificationResult {
	activity, err := e.activities.GetActivity(ctx, activityID)
	if err != nil {
		return domain.VerificationResult{
			Status:        domain.VerificationUncertain,
			Confidence:    0.0,
			FailureReason: fmt.Sprintf("API Error: %v", err),
		}
	}

	distKm := activity.DistanceKm()
	pacePerKm := 0.0
	if distKm > 0 {
		pacePerKm = (float64(activity.ElapsedSec) / 60.0) / distKm
	}

	avgHR := activity.AvgHeartRate
	evidence := &domain.Evidence{
		ActivityID:   activity.ID,
		DistanceKm:   &distKm,
		AvgHeartRate: &avgHR,
		StartTime:    activity.StartTime,
		ActivityType: activity.ActivityType,
	}

	var reasons []string

	if activity.StartTime.After(contract.DeadlineUTC) {
		reasons = append(reasons, fmt.Sprintf("Activity started after deadline (%s > %s)",
			activity.StartTime.UTC().Format("2006-01-02 15:04:05"),
			contract.DeadlineUTC.UTC().Format("2006-01-02 15:04:05")))
	}

	if contract.TargetDistanceKm != nil {
		required := *contract.TargetDistanceKm * distanceTolerance
		if distKm < required {
			reasons = append(reasons, fmt.Sprintf("Distance %.2fkm < required %.2fkm", distKm, required))
		}
	}

	if pacePerKm < minPacePerKm {
		reasons = append(reasons, fmt.Sprintf("Pace %.2f/km is suspicious (human limit check)", pacePerKm))
	}

	if activity.Manual {
		reasons = append(reasons, "Manual entries are not allowed")
	}

	if activity.Trainer {
		if !activity.HasHeartRate {
			reasons = append(reasons, "Treadmill run missing heart rate data")
		} else if contract.MinHeartRateAvg != nil && activity.AvgHeartRate < *contract.MinHeartRateAvg {
			reasons = append(reasons, fmt.Sprintf("Avg HR %.0f < min required %.0f", activity.AvgHeartRate, *contract.MinHeartRateAvg))
		}

		// Flat heart-rate streams are a second cheat signal, independent of
		// the average check above.
		if stream, streamErr := e.activities.GetHeartRateStream(ctx, activityID); streamErr == nil && len(stream) > hrStreamMinLen {
			if stdev := heartRateStdev(stream); stdev < hrStdevFloor {
				reasons = append(reasons, fmt.Sprintf("HR Variability suspicious (stdev=%.2f)", stdev))
			}
		}
	}

	if len(reasons) > 0 {
		return domain.VerificationResult{
			Status:        domain.VerificationFailure,
			Confidence:    1.0,
			FailureReason: strings.Join(reasons, "; "),
			Evidence:      evidence,
		}
	}

	return domain.VerificationResult{
		Status:     domain.VerificationSuccess,
		Confidence: 0.98,
		Evidence:   evidence,
	}
}

// heartRateStdev computes the sample standard deviation of a stream.
func heartRateStdev(stream []domain.HeartRateSample) float64 {
	n := float64(len(stream))
	var sum float64
	for _, sample := range stream {
		sum += sample.HeartRate
	}
	mean := sum / n

	var sq float64
	for _, sample := range stream {
		diff := sample.HeartRate - mean
		sq += diff * diff
	}
	return math.Sqrt(sq / (n - 1))
}
