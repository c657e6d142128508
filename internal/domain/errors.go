package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAuthenticationFailed  = errors.New("ANAF authentication failed")
	ErrSecurityConfiguration = errors.New("security configuration error")
	ErrSigning               = errors.New("digital signature error")
	ErrTimeout               = errors.New("ANAF API request timed out")
	ErrCommunication         = errors.New("ANAF communication error")
	ErrPreconditionFailed    = errors.New("submission preconditions not met")
	ErrRetryExhausted        = errors.New("maximum retry attempts reached")
	ErrNotRetryable          = errors.New("transaction is not retryable")
	ErrTransactionExists     = errors.New("invoice already has an e-invoice transaction")
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrCancelActive          = errors.New("cannot cancel invoice with active e-invoice submission: revoke the ANAF submission first")
)

// IllegalTransitionError names the attempted source/target pair of a
// lifecycle move outside the transition table.
type IllegalTransitionError struct {
	From TransactionStatus
	To   TransactionStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}
