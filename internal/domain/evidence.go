package domain

import "time"

// ActivityRecord is the structured evidence shape returned by the activity
// tracker collaborator.
type ActivityRecord struct {
	ID           string
	ActivityType string
	StartTime    time.Time
	DistanceM    float64
	ElapsedSec   int
	HasHeartRate bool
	AvgHeartRate float64
	MaxHeartRate float64
	Manual       bool
	Trainer      bool
}

// DistanceKm converts the tracker's metres to kilometres.
func (a ActivityRecord) DistanceKm() float64 {
	return a.DistanceM / 1000.0
}

// HeartRateSample is one point of a recorded heart-rate stream.
type HeartRateSample struct {
	TimeOffsetSec int     `json:"time"`
	HeartRate     float64 `json:"heartrate"`
}

// Evidence is the proof attached to a verification verdict. Exactly one kind
// is populated per verification: structured tracker metrics or generic
// text/image material.
type Evidence struct {
	ActivityID   string    `json:"activity_id,omitempty"`
	DistanceKm   *float64  `json:"distance_km,omitempty"`
	AvgHeartRate *float64  `json:"avg_hr,omitempty"`
	StartTime    time.Time `json:"start_time"`
	ActivityType string    `json:"activity_type"`
	TextEvidence string    `json:"text_evidence,omitempty"`
	ImageURLs    []string  `json:"image_urls,omitempty"`
}

// IsGeneric reports whether the evidence carries free-text or image content
// rather than tracker metrics.
func (e Evidence) IsGeneric() bool {
	return e.TextEvidence != "" || len(e.ImageURLs) > 0
}
