package wallet

import (
	"errors"
	"fmt"
)

// Configuration errors: abort initialization atomically.
var (
	ErrInvalidPublicKey    = errors.New("wallet: invalid public key")
	ErrEmptyPublicKey      = errors.New("wallet: empty public key list")
	ErrKeyCountMismatch    = errors.New("wallet: public key and member id counts differ")
	ErrThresholdOutOfRange = errors.New("wallet: threshold out of range")
	ErrInvalidMemberID     = errors.New("wallet: member id does not match public key")
	ErrUnknownMode         = errors.New("wallet: unknown mode")
)

// Input validation errors: reported per operation, batch aborts at the
// first offender with no partial state.
var (
	ErrInvalidOperation = errors.New("wallet: invalid operation")
	ErrMalformedHash    = errors.New("wallet: malformed operation hash")
	ErrInvalidNonce     = errors.New("wallet: nonce out of sequence")
	ErrOperationExists  = errors.New("wallet: operation already registered")
	ErrChecksumMismatch = errors.New("wallet: hash check code mismatch")
	ErrUnknownOperation = errors.New("wallet: unknown operation")
	ErrBatchLenMismatch = errors.New("wallet: batch argument lengths differ")
)

// Cryptographic errors. A malformed signature is a hard failure; a
// well-formed signature that fails the pairing equation is not an error,
// it is a negative verification result.
var (
	ErrInvalidSignature   = errors.New("wallet: invalid signature")
	ErrUnrecognizedSigner = errors.New("wallet: unrecognized signer")
	ErrSignersNotEnough   = errors.New("wallet: signers below threshold")
	ErrSignatureMismatch  = errors.New("wallet: signature verification failed")
)

// Temporal/state errors at execution, plus the re-entrancy guard.
var (
	ErrNotYetEffective  = errors.New("wallet: operation not yet effective")
	ErrOperationExpired = errors.New("wallet: operation expired")
	ErrWalletBusy       = errors.New("wallet: concurrent or re-entrant call rejected")
)

// UnapprovedError reports an execution attempt against an operation whose
// current status is not Approved.
type UnapprovedError struct {
	Status Status
}

func (e *UnapprovedError) Error() string {
	return fmt.Sprintf("wallet: execute unapproved operation (status %s)", e.Status)
}
