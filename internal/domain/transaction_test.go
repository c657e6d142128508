package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturis/efactura-service/internal/domain"
)

func TestTransaction_Transition(t *testing.T) {
	type testCase struct {
		name    string
		from    domain.TransactionStatus
		to      domain.TransactionStatus
		wantErr bool
	}

	tests := []testCase{
		{name: "DraftToProcessing", from: domain.StatusDraft, to: domain.StatusProcessing},
		{name: "DraftToValidationFailed", from: domain.StatusDraft, to: domain.StatusValidationFailed},
		{name: "DraftToCancelled", from: domain.StatusDraft, to: domain.StatusCancelled},
		{name: "ProcessingToSubmitted", from: domain.StatusProcessing, to: domain.StatusSubmitted},
		{name: "ProcessingToFailed", from: domain.StatusProcessing, to: domain.StatusFailed},
		{name: "ValidationFailedToDraft", from: domain.StatusValidationFailed, to: domain.StatusDraft},
		{name: "FailedToProcessing", from: domain.StatusFailed, to: domain.StatusProcessing},
		{name: "FailedToCancelled", from: domain.StatusFailed, to: domain.StatusCancelled},

		{name: "DraftToSubmitted", from: domain.StatusDraft, to: domain.StatusSubmitted, wantErr: true},
		{name: "ProcessingToDraft", from: domain.StatusProcessing, to: domain.StatusDraft, wantErr: true},
		{name: "ProcessingToCancelled", from: domain.StatusProcessing, to: domain.StatusCancelled, wantErr: true},
		{name: "SubmittedToProcessing", from: domain.StatusSubmitted, to: domain.StatusProcessing, wantErr: true},
		{name: "SubmittedToCancelled", from: domain.StatusSubmitted, to: domain.StatusCancelled, wantErr: true},
		{name: "CancelledToDraft", from: domain.StatusCancelled, to: domain.StatusDraft, wantErr: true},
		{name: "FailedToSubmitted", from: domain.StatusFailed, to: domain.StatusSubmitted, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &domain.Transaction{ID: "tx-1", Status: tt.from}

			err := tx.Transition(tt.to)

			if tt.wantErr {
				var transitionErr *domain.IllegalTransitionError
				require.Error(t, err)
				require.True(t, errors.As(err, &transitionErr))
				assert.Equal(t, tt.from, transitionErr.From)
				assert.Equal(t, tt.to, transitionErr.To)
				assert.Equal(t, tt.from, tx.Status)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.to, tx.Status)
		})
	}
}

func TestTransaction_TransitionStampsSubmissionTime(t *testing.T) {
	tx := &domain.Transaction{ID: "tx-1", Status: domain.StatusDraft}
	require.Nil(t, tx.SubmissionTime)

	require.NoError(t, tx.Transition(domain.StatusProcessing))

	assert.NotNil(t, tx.SubmissionTime)
}

func TestTransaction_Exhausted(t *testing.T) {
	assert.False(t, (&domain.Transaction{RetryCount: 2}).Exhausted())
	assert.True(t, (&domain.Transaction{RetryCount: 3}).Exhausted())
	assert.True(t, (&domain.Transaction{RetryCount: 4}).Exhausted())
}

func TestTransaction_Retryable(t *testing.T) {
	type testCase struct {
		name         string
		status       domain.TransactionStatus
		retryCount   int
		failureClass domain.FailureClass
		want         bool
	}

	tests := []testCase{
		{name: "FailedTransmissionUnderLimit", status: domain.StatusFailed, retryCount: 1, failureClass: domain.FailureTransmission, want: true},
		{name: "FailedSigningUnderLimit", status: domain.StatusFailed, retryCount: 2, failureClass: domain.FailureSigning, want: true},
		{name: "FailedNoClass", status: domain.StatusFailed, retryCount: 0, failureClass: domain.FailureNone, want: true},
		{name: "FailedAtLimit", status: domain.StatusFailed, retryCount: 3, failureClass: domain.FailureTransmission, want: false},
		{name: "FailedAuthentication", status: domain.StatusFailed, retryCount: 0, failureClass: domain.FailureAuthentication, want: false},
		{name: "FailedSecurityConfiguration", status: domain.StatusFailed, retryCount: 0, failureClass: domain.FailureSecurityConfig, want: false},
		{name: "DraftIsNotRetryable", status: domain.StatusDraft, retryCount: 0, failureClass: domain.FailureNone, want: false},
		{name: "SubmittedIsNotRetryable", status: domain.StatusSubmitted, retryCount: 0, failureClass: domain.FailureNone, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &domain.Transaction{
				Status:       tt.status,
				RetryCount:   tt.retryCount,
				FailureClass: tt.failureClass,
			}
			assert.Equal(t, tt.want, tx.Retryable())
		})
	}
}
