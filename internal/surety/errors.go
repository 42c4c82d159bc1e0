package surety

import "errors"

// Every rejected call returns one of these, wrapped with context. A rejected
// call leaves the state unchanged.
var (
	ErrNotOperational     = errors.New("contract is not operational")
	ErrUnauthorized       = errors.New("caller is not authorized")
	ErrNotOwner           = errors.New("caller is not the contract owner")
	ErrAlreadyRegistered  = errors.New("already registered")
	ErrDuplicateVote      = errors.New("caller already voted for this airline")
	ErrDuplicatePolicy    = errors.New("passenger already insured for this flight")
	ErrPaymentOutOfBounds = errors.New("payment out of bounds")
	ErrIndexMismatch      = errors.New("index does not match oracle request")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrNothingToWithdraw  = errors.New("nothing to withdraw")

	ErrFlightNotFound   = errors.New("flight not found")
	ErrNotPending       = errors.New("airline is not pending admission")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrTransferFailed   = errors.New("transfer failed")
	ErrSnapshotMismatch = errors.New("snapshot does not match configuration")
)
