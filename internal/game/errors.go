package game

import "errors"

// Engine errors. State-validation errors are returned before any write.
var (
	ErrWagerNotFound        = errors.New("wager not found")
	ErrInvalidState         = errors.New("operation not allowed in the wager's current state")
	ErrDuplicateParticipant = errors.New("participant already joined this wager")
	ErrInvalidOutcome       = errors.New("outcome is not one of the wager's options")
	ErrInvalidParticipant   = errors.New("participant id is empty")
	ErrInvalidStake         = errors.New("stake must be positive")
	ErrInvalidOptions       = errors.New("a wager needs at least two distinct options")
	ErrPaymentFailed        = errors.New("payment failed")
	ErrUnknownPolicy        = errors.New("unknown resolution policy")
)
