// Package pipeline orchestrates the decision chain: verification, audit,
// enforcement, and stake accounting. Stages are independent side effects; a
// late-stage failure never rolls back earlier stages.
package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"example.com/pact/internal/audit"
	"example.com/pact/internal/domain"
	"example.com/pact/internal/enforce"
	"example.com/pact/internal/observability"
	"example.com/pact/internal/stake"
	"example.com/pact/internal/verify"
)

// Observer receives lifecycle callbacks around each pipeline stage. All
// methods are optional no-ops for a nil observer; tracing and audit logging
// hook in here rather than inside the components.
type Observer interface {
	StageStarted(stage string)
	StageCompleted(stage string, summary string)
	StageFailed(stage string, err error)
}

// Outcome is the full structured record of one pipeline run.
type Outcome struct {
	Contract     domain.Contract           `json:"contract"`
	Verification domain.VerificationResult `json:"verification"`
	Audit        domain.AuditorDecision    `json:"audit"`
	Enforcement  *string                   `json:"enforcement,omitempty"`
	Stake        *domain.StakeResult       `json:"stake,omitempty"`
	StakeError   string                    `json:"stake_error,omitempty"`
}

// Pipeline wires the four stages plus the peripheral stores (contracts for
// the terminal status flip, feed and stats for social side effects).
type Pipeline struct {
	verifier  *verify.Engine
	gate      *audit.Gate
	executor  *enforce.Executor
	stakes    *stake.Manager
	contracts domain.ContractRepository
	feed      domain.FeedRepository
	stats     domain.StatsRepository
	observer  Observer
	logger    *log.Logger
	now       func() time.Time
}

// New constructs a Pipeline. The feed, stats, and contracts stores may be
// nil when the caller runs contracts that were never persisted.
func New(verifier *verify.Engine, gate *audit.Gate, executor *enforce.Executor, stakes *stake.Manager,
	contracts domain.ContractRepository, feed domain.FeedRepository, stats domain.StatsRepository) *Pipeline {
	return &Pipeline{
		verifier:  verifier,
		gate:      gate,
		executor:  executor,
		stakes:    stakes,
		contracts: contracts,
		feed:      feed,
		stats:     stats,
		logger:    log.New(log.Writer(), "[pipeline] ", log.LstdFlags),
		now:       time.Now,
	}
}

// WithObserver installs lifecycle callbacks and returns the pipeline.
func (p *Pipeline) WithObserver(observer Observer) *Pipeline {
	p.observer = observer
	return p
}

// Run executes the full chain for live evidence and returns a structured
// outcome regardless of collaborator failures.
func (p *Pipeline) Run(ctx context.Context, contract domain.Contract, input verify.Input) Outcome {
	p.stageStart("verify")
	result := p.verifier.Verify(ctx, contract, input)
	p.stageDone("verify", string(result.Status))
	observability.RecordVerification(string(result.Status))

	outcome := p.Resolve(ctx, contract, result)

	if p.contracts != nil && contract.ID != "" && result.Status != domain.VerificationUncertain {
		status := domain.ContractStatusSucceeded
		if result.Status == domain.VerificationFailure {
			status = domain.ContractStatusFailed
		}
		if _, err := p.contracts.ResolveActive(ctx, contract.ID, status, nil); err != nil {
			p.logger.Printf("contract %s status flip failed: %v", contract.ID, err)
		}
	}

	return outcome
}

// Resolve drives an existing verification result through audit, enforcement,
// and stake accounting. The reaper reuses this for synthesized failures.
func (p *Pipeline) Resolve(ctx context.Context, contract domain.Contract, result domain.VerificationResult) Outcome {
	outcome := Outcome{Contract: contract, Verification: result}

	p.stageStart("audit")
	decision := p.gate.Evaluate(contract, result)
	p.stageDone("audit", string(decision.Verdict))
	observability.RecordAuditVerdict(string(decision.Verdict))
	outcome.Audit = decision

	if decision.Verdict == domain.VerdictAllow {
		p.stageStart("enforce")
		actionLog := p.executor.Execute(ctx, contract, decision)
		p.stageDone("enforce", actionLog)
		outcome.Enforcement = &actionLog
	}

	if contract.UserID != "" {
		p.stageStart("stake")
		stakeResult, err := p.stakes.HandleOutcome(ctx, contract.UserID, result)
		if err != nil {
			p.stageFail("stake", err)
			p.logger.Printf("stake ledger failed for user %s: %v", contract.UserID, err)
			outcome.StakeError = err.Error()
		} else {
			p.stageDone("stake", string(stakeResult.Action))
			outcome.Stake = stakeResult
		}
	}

	p.recordSideEffects(ctx, contract, result)
	return outcome
}

// recordSideEffects updates user stats and the public feed. Both are
// best-effort: failures are logged and never abort the pipeline.
func (p *Pipeline) recordSideEffects(ctx context.Context, contract domain.Contract, result domain.VerificationResult) {
	if p.stats != nil && contract.UserID != "" {
		var err error
		switch result.Status {
		case domain.VerificationSuccess:
			err = p.stats.IncrementCompleted(ctx, contract.UserID)
		case domain.VerificationFailure:
			err = p.stats.IncrementFailed(ctx, contract.UserID)
		}
		if err != nil {
			p.logger.Printf("stats update failed for user %s: %v", contract.UserID, err)
		}
	}

	if p.feed != nil && contract.IsPublic && result.Status != domain.VerificationUncertain {
		delta := 5
		summary := "Evidence verified."
		if result.Status == domain.VerificationFailure {
			delta = -10
			summary = result.FailureReason
		} else if result.Evidence != nil && result.Evidence.TextEvidence != "" {
			summary = result.Evidence.TextEvidence
		}

		entry := domain.FeedEntry{
			ID:              uuid.NewString(),
			UserID:          contract.UserID,
			GoalDescription: contract.GoalDescription,
			Status:          result.Status,
			EvidenceSummary: summary,
			TrustScoreDelta: delta,
			CreatedAt:       p.now().UTC(),
		}
		if err := p.feed.Append(ctx, entry); err != nil {
			p.logger.Printf("feed append failed: %v", err)
		}
	}
}

func (p *Pipeline) stageStart(stage string) {
	if p.observer != nil {
		p.observer.StageStarted(stage)
	}
}

func (p *Pipeline) stageDone(stage, summary string) {
	if p.observer != nil {
		p.observer.StageCompleted(stage, summary)
	}
}

func (p *Pipeline) stageFail(stage string, err error) {
	if p.observer != nil {
		p.observer.StageFailed(stage, err)
	}
}
