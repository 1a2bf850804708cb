package domain

// VerificationStatus is the tri-state outcome of evaluating evidence.
type VerificationStatus string

const (
	VerificationSuccess   VerificationStatus = "SUCCESS"
	VerificationFailure   VerificationStatus = "FAILURE"
	VerificationUncertain VerificationStatus = "UNCERTAIN"
)

// VerificationResult is the immutable record produced by one verification
// call and consumed by the audit gate and the stake ledger.
type VerificationResult struct {
	Status        VerificationStatus `json:"status"`
	Confidence    float64            `json:"confidence"`
	FailureReason string             `json:"failure_reason,omitempty"`
	Evidence      *Evidence          `json:"evidence,omitempty"`
}

// AuditorVerdict decides whether a failure may be enforced.
type AuditorVerdict string

const (
	VerdictAllow AuditorVerdict = "ALLOW_ENFORCEMENT"
	VerdictBlock AuditorVerdict = "BLOCK_ENFORCEMENT"
)

// AuditorDecision records the audit gate's evaluation of a verification
// result against a contract. Created once, never mutated.
type AuditorDecision struct {
	Verdict      AuditorVerdict `json:"verdict"`
	Reason       string         `json:"reason"`
	ChecksPassed []string       `json:"checks_passed"`
	ChecksFailed []string       `json:"checks_failed"`
}
