package wallet

// Status is the lifecycle state of an operation. Transitions are monotonic:
// no state is revisited once left, and Pending forks to exactly one of
// Approved or Rejected.
type Status uint8

const (
	StatusNone Status = iota
	StatusPending
	StatusApproved
	StatusRejected
	StatusExecuting
	StatusExecuted
	StatusFailed
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusPending:
		return "pending"
	case StatusApproved:
		return "approved"
	case StatusRejected:
		return "rejected"
	case StatusExecuting:
		return "executing"
	case StatusExecuted:
		return "executed"
	case StatusFailed:
		return "failed"
	case StatusExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// CanTransition reports whether the state machine admits current -> next.
func CanTransition(current, next Status) bool {
	switch current {
	case StatusNone:
		return next == StatusPending || next == StatusApproved
	case StatusPending:
		return next == StatusApproved || next == StatusRejected
	case StatusApproved:
		// Expired is a side-exit taken only at execution time.
		return next == StatusExecuting || next == StatusExpired
	case StatusExecuting:
		return next == StatusExecuted || next == StatusFailed
	default:
		// Rejected, Executed, Failed, Expired are terminal.
		return false
	}
}

// Terminal reports whether s admits no further transition.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusExecuted, StatusFailed, StatusExpired:
		return true
	}
	return false
}
