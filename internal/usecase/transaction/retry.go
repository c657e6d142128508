package transaction

import (
	"context"
	"fmt"

	"github.com/facturis/efactura-service/internal/domain"
)

// RetryFailed re-drives a failed transaction through the same pipeline as
// Submit. It fails fast, without any network I/O, when the transaction is
// not in a failed, under-limit, operator-independent state. Manual and
// scheduled retries both land here, so there is exactly one retry path.
func (uc *DefaultTransactionUsecase) RetryFailed(ctx context.Context, transactionID string) error {
	return uc.Repo.WithLock(ctx, transactionID, func(ctx context.Context) error {
		tx, err := uc.Repo.GetTransactionByID(ctx, transactionID)
		if err != nil {
			return err
		}

		if tx.Status != domain.StatusFailed {
			return uc.logError(tx, fmt.Errorf("%w: only failed transactions can be retried, status is %s", domain.ErrNotRetryable, tx.Status))
		}
		if tx.Exhausted() {
			return uc.logError(tx, fmt.Errorf("%w: retry count is %d", domain.ErrRetryExhausted, tx.RetryCount))
		}
		if !tx.Retryable() {
			return uc.logError(tx, fmt.Errorf("%w: failure class %q requires a configuration change", domain.ErrNotRetryable, tx.FailureClass))
		}

		return uc.submitLocked(ctx, tx)
	})
}

// CancelTransaction is driven by cancellation of the owning invoice. A
// transaction that is PROCESSING or SUBMITTED cannot be cancelled until
// the ANAF submission is revoked.
func (uc *DefaultTransactionUsecase) CancelTransaction(ctx context.Context, transactionID string) error {
	return uc.Repo.WithLock(ctx, transactionID, func(ctx context.Context) error {
		tx, err := uc.Repo.GetTransactionByID(ctx, transactionID)
		if err != nil {
			return err
		}

		if tx.Status == domain.StatusProcessing || tx.Status == domain.StatusSubmitted {
			return uc.logError(tx, domain.ErrCancelActive)
		}

		previous := tx.Status
		if err := tx.Transition(domain.StatusCancelled); err != nil {
			return uc.logError(tx, err)
		}
		if err := uc.Repo.UpdateTransaction(ctx, tx); err != nil {
			return err
		}

		uc.Metrics.RecordStatusChange(string(previous), string(domain.StatusCancelled))
		uc.publishEvent(tx, "")
		return nil
	})
}
