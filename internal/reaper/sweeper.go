// Package reaper resolves contracts that passed their deadline without a
// verification, converting each into an enforced failure exactly once.
package reaper

import (
	"context"
	"errors"
	"log"
	"time"

	"example.com/pact/internal/domain"
	"example.com/pact/internal/observability"
	"example.com/pact/internal/pipeline"
)

// DefaultGracePeriod is how long past the deadline a contract may stay
// Active before the sweep reaps it.
const DefaultGracePeriod = time.Hour

// reapReason is the synthesized failure reason on reaped contracts.
const reapReason = "Deadline exceeded without verification. Auto-Reaped."

// Sweeper periodically scans Active contracts and drives expired ones
// through the audit, enforcement, and ledger chain.
type Sweeper struct {
	contracts        domain.ContractRepository
	pipe             *pipeline.Pipeline
	pollInterval     time.Duration
	gracePeriod      time.Duration
	now              func() time.Time
	logger           *log.Logger
	shutdownComplete chan struct{}
}

// NewSweeper constructs a Sweeper. Non-positive durations select defaults.
func NewSweeper(contracts domain.ContractRepository, pipe *pipeline.Pipeline, pollInterval, gracePeriod time.Duration) *Sweeper {
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}
	return &Sweeper{
		contracts:        contracts,
		pipe:             pipe,
		pollInterval:     pollInterval,
		gracePeriod:      gracePeriod,
		now:              time.Now,
		logger:           log.New(log.Writer(), "[reaper] ", log.LstdFlags),
		shutdownComplete: make(chan struct{}),
	}
}

// Start launches the polling loop. It should be called in a goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer func() {
		ticker.Stop()
		close(s.shutdownComplete)
	}()

	for {
		if _, err := s.SweepOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Printf("sweep error: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Wait blocks until the polling loop has stopped.
func (s *Sweeper) Wait() {
	<-s.shutdownComplete
}

// SweepOnce scans all Active contracts and reaps the expired ones. Each
// contract's reap attempt is fault-isolated: a failure there is logged and
// the sweep moves on.
func (s *Sweeper) SweepOnce(ctx context.Context) ([]string, error) {
	start := s.now()

	active, err := s.contracts.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	var reaped []string
	cutoffNow := s.now().UTC()
	for _, contract := range active {
		if err := ctx.Err(); err != nil {
			return reaped, err
		}

		// A missing or unparsable deadline means skip, never reap.
		deadline := contract.DeadlineUTC
		if deadline.IsZero() {
			continue
		}
		if !cutoffNow.After(deadline.Add(s.gracePeriod)) {
			continue
		}

		if s.reap(ctx, contract) {
			reaped = append(reaped, contract.ID)
		}
	}

	observability.RecordReaped(len(reaped))
	observability.ObserveSweepDuration(s.now().Sub(start).Seconds())
	if len(reaped) > 0 {
		s.logger.Printf("reaped %d contract(s)", len(reaped))
	}
	return reaped, nil
}

// reap converts one expired contract into an enforced failure. The terminal
// status flip is the sole double-reap guard: losing the compare-and-set to a
// concurrent live verification is a no-op, not an error.
func (s *Sweeper) reap(ctx context.Context, contract domain.Contract) bool {
	s.logger.Printf("reaping contract %s (deadline %s)", contract.ID, contract.DeadlineUTC.Format(time.RFC3339))

	synthesized := domain.VerificationResult{
		Status:        domain.VerificationFailure,
		Confidence:    1.0,
		FailureReason: reapReason,
	}

	// Enforcement or ledger trouble must not leave the contract Active and
	// retried forever, so the status flip happens regardless.
	func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Printf("reap pipeline panic for contract %s: %v", contract.ID, r)
			}
		}()
		outcome := s.pipe.Resolve(ctx, contract, synthesized)
		if outcome.StakeError != "" {
			s.logger.Printf("reap stake error for contract %s: %s", contract.ID, outcome.StakeError)
		}
	}()

	reapedAt := s.now().UTC()
	flipped, err := s.contracts.ResolveActive(ctx, contract.ID, domain.ContractStatusFailed, &reapedAt)
	if err != nil {
		s.logger.Printf("status flip failed for contract %s: %v", contract.ID, err)
		return false
	}
	if !flipped {
		// A live verification resolved it concurrently.
		s.logger.Printf("contract %s already resolved, skipping", contract.ID)
		return false
	}
	return true
}
