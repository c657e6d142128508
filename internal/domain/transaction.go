package domain

import "time"

type TransactionStatus string

const (
	StatusDraft            TransactionStatus = "DRAFT"
	StatusProcessing       TransactionStatus = "PROCESSING"
	StatusSubmitted        TransactionStatus = "SUBMITTED"
	StatusFailed           TransactionStatus = "FAILED"
	StatusValidationFailed TransactionStatus = "VALIDATION_FAILED"
	StatusCancelled        TransactionStatus = "CANCELLED"
)

// MaxRetryCount is the hard ceiling for automatic and manual retries.
// A transaction with RetryCount >= MaxRetryCount is exhausted.
const MaxRetryCount = 3

// FailureClass records why the last submission attempt failed.
// Only transmission and signing failures are eligible for retry;
// authentication and security configuration failures need an operator.
type FailureClass string

const (
	FailureNone           FailureClass = ""
	FailureTransmission   FailureClass = "transmission"
	FailureSigning        FailureClass = "signing"
	FailureAuthentication FailureClass = "authentication"
	FailureSecurityConfig FailureClass = "security_configuration"
)

// statusTransitions is the single source of truth for legal lifecycle
// moves. SUBMITTED and CANCELLED are terminal; leaving SUBMITTED requires
// an explicit ANAF revoke, which is outside this service.
var statusTransitions = map[TransactionStatus][]TransactionStatus{
	StatusDraft:            {StatusProcessing, StatusValidationFailed, StatusCancelled},
	StatusProcessing:       {StatusSubmitted, StatusFailed},
	StatusValidationFailed: {StatusDraft, StatusCancelled},
	StatusFailed:           {StatusProcessing, StatusCancelled},
}

// Transaction is the unit of work: one submission lifecycle for exactly
// one source invoice. SignedXML is ephemeral and never persisted.
type Transaction struct {
	ID              string
	InvoiceID       string
	Status          TransactionStatus
	XMLData         []byte
	AnafUUID        string
	AnafResponse    string
	RetryCount      int
	FailureClass    FailureClass
	SubmissionTime  *time.Time
	LastSuccessDate *time.Time
	LastFailureDate *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Transition moves the transaction to the target status if the transition
// table allows it. A move into PROCESSING stamps SubmissionTime.
func (t *Transaction) Transition(to TransactionStatus) error {
	for _, allowed := range statusTransitions[t.Status] {
		if allowed == to {
			t.Status = to
			if to == StatusProcessing {
				now := time.Now()
				t.SubmissionTime = &now
			}
			return nil
		}
	}
	return &IllegalTransitionError{From: t.Status, To: to}
}

func (t *Transaction) Exhausted() bool {
	return t.RetryCount >= MaxRetryCount
}

// Retryable reports whether the scheduler may re-drive this transaction.
func (t *Transaction) Retryable() bool {
	if t.Status != StatusFailed || t.Exhausted() {
		return false
	}
	switch t.FailureClass {
	case FailureNone, FailureTransmission, FailureSigning:
		return true
	}
	return false
}
