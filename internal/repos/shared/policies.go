package shared

// FailurePolicy specifies how a release run treats a checkout that fails hard.
type FailurePolicy int

const (
	// FailureAbort stops the run at the first hard failure.
	FailureAbort FailurePolicy = iota
	// FailureContinue records the failure and moves on to the next checkout.
	FailureContinue
)

// FailurePolicyFromBool converts the continue_on_error setting into a policy.
func FailurePolicyFromBool(continueOnError bool) FailurePolicy {
	if continueOnError {
		return FailureContinue
	}
	return FailureAbort
}

// ShouldContinue reports whether remaining checkouts run after a failure.
func (policy FailurePolicy) ShouldContinue() bool {
	return policy == FailureContinue
}

// AcknowledgementPolicy describes whether the command waits for the operator before exiting.
type AcknowledgementPolicy int

const (
	// AcknowledgementWait pauses until the operator presses Enter.
	AcknowledgementWait AcknowledgementPolicy = iota
	// AcknowledgementSkip exits immediately.
	AcknowledgementSkip
)

// AcknowledgementPolicyFromBool converts the wait_for_acknowledgement setting into a policy.
func AcknowledgementPolicyFromBool(waitForAcknowledgement bool) AcknowledgementPolicy {
	if waitForAcknowledgement {
		return AcknowledgementWait
	}
	return AcknowledgementSkip
}

// ShouldWait reports whether the operator must acknowledge completion.
func (policy AcknowledgementPolicy) ShouldWait() bool {
	return policy == AcknowledgementWait
}
