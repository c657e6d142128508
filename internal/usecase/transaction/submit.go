package transaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/facturis/efactura-service/internal/anaf"
	"github.com/facturis/efactura-service/internal/domain"
)

// Submit drives one full submission attempt: the generation cycle when
// the Draft has no XML yet (including the recovery reset out of
// VALIDATION_FAILED), precondition checks, the durable move to
// PROCESSING, signing, transmission, and atomic result application. The
// whole sequence runs under one acquisition of the per-transaction lock.
// It is idempotent against concurrent duplicate invocation: a transaction
// already PROCESSING or SUBMITTED returns immediately.
func (uc *DefaultTransactionUsecase) Submit(ctx context.Context, transactionID string) error {
	return uc.Repo.WithLock(ctx, transactionID, func(ctx context.Context) error {
		tx, err := uc.Repo.GetTransactionByID(ctx, transactionID)
		if err != nil {
			return err
		}

		if tx.Status == domain.StatusProcessing || tx.Status == domain.StatusSubmitted {
			return nil
		}

		if err := uc.validateLocked(ctx, tx); err != nil {
			return err
		}

		return uc.submitLocked(ctx, tx)
	})
}

// submitLocked runs the attempt pipeline. Callers must hold the
// per-transaction lock.
func (uc *DefaultTransactionUsecase) submitLocked(ctx context.Context, tx *domain.Transaction) error {
	started := time.Now()

	// Pre-submission checks fail before an attempt exists, so they never
	// touch retryCount.
	if len(tx.XMLData) == 0 {
		return uc.logError(tx, fmt.Errorf("%w: XML content missing", domain.ErrPreconditionFailed))
	}
	if err := uc.Settings.Validate(); err != nil {
		return uc.logError(tx, fmt.Errorf("%w: e-Factura settings not configured: %v", domain.ErrPreconditionFailed, err))
	}

	previous := tx.Status
	if err := tx.Transition(domain.StatusProcessing); err != nil {
		return uc.logError(tx, err)
	}
	// Persist PROCESSING before any network call so a crash mid-call is
	// observably "Processing", not silently lost.
	if err := uc.Repo.UpdateTransaction(ctx, tx); err != nil {
		return err
	}
	uc.Metrics.RecordStatusChange(string(previous), string(domain.StatusProcessing))
	uc.publishEvent(tx, "")

	signedXML, err := uc.Signer.Sign(tx.XMLData)
	if err != nil {
		return uc.applyFailure(ctx, tx, started, err, nil)
	}

	// Fresh client per attempt: authentication happens here, credential
	// material is removed by Close on every exit path.
	client, err := uc.Clients(ctx, uc.Settings)
	if err != nil {
		return uc.applyFailure(ctx, tx, started, err, nil)
	}
	defer client.Close()

	result, err := client.SendXml(ctx, signedXML)
	if err != nil {
		return uc.applyFailure(ctx, tx, started, err, nil)
	}
	if !result.Successful() {
		return uc.applyFailure(ctx, tx, started, nil, result)
	}

	return uc.applySuccess(ctx, tx, started, result)
}

func (uc *DefaultTransactionUsecase) applySuccess(ctx context.Context, tx *domain.Transaction, started time.Time, result *anaf.Result) error {
	if err := tx.Transition(domain.StatusSubmitted); err != nil {
		return uc.logError(tx, err)
	}

	now := time.Now()
	tx.AnafUUID = result.UUID
	tx.AnafResponse = marshalResult(result)
	tx.RetryCount = 0
	tx.FailureClass = domain.FailureNone
	tx.LastSuccessDate = &now

	if err := uc.Repo.ApplyResult(ctx, tx); err != nil {
		return err
	}

	uc.Metrics.RecordSubmission("success", time.Since(started).Seconds())
	uc.Metrics.RecordStatusChange(string(domain.StatusProcessing), string(domain.StatusSubmitted))
	uc.publishEvent(tx, "")

	slog.Info("e-invoice submitted",
		"transaction_id", tx.ID,
		"invoice_id", tx.InvoiceID,
		"anaf_uuid", tx.AnafUUID)
	return nil
}

// applyFailure moves the transaction to FAILED and records the attempt in
// one atomic update. Transmission and signing failures count against the
// retry ceiling; configuration-class failures do not, and their failure
// class keeps the scheduler away until an operator intervenes.
func (uc *DefaultTransactionUsecase) applyFailure(ctx context.Context, tx *domain.Transaction, started time.Time, cause error, result *anaf.Result) error {
	class := domain.FailureTransmission
	countsAsAttempt := true

	if cause != nil {
		class, countsAsAttempt = classifyFailure(cause)
		if result == nil {
			result = &anaf.Result{Status: anaf.StatusError, Error: cause.Error(), Code: "E500"}
		}
	} else {
		cause = fmt.Errorf("%w: ANAF rejected the document: %s (code %s)", domain.ErrCommunication, result.Error, result.Code)
	}

	if err := tx.Transition(domain.StatusFailed); err != nil {
		return uc.logError(tx, err)
	}

	now := time.Now()
	tx.LastFailureDate = &now
	tx.FailureClass = class
	tx.AnafResponse = marshalResult(result)
	if countsAsAttempt {
		tx.RetryCount++
	}

	if err := uc.Repo.ApplyResult(ctx, tx); err != nil {
		return err
	}

	uc.Metrics.RecordSubmission("failure", time.Since(started).Seconds())
	uc.Metrics.RecordError(string(class))
	uc.Metrics.RecordStatusChange(string(domain.StatusProcessing), string(domain.StatusFailed))
	if countsAsAttempt && tx.Exhausted() {
		uc.Metrics.RecordRetryExhausted()
		slog.Warn("maximum retry attempts reached", "transaction_id", tx.ID, "retry_count", tx.RetryCount)
	}
	uc.publishEvent(tx, cause.Error())

	slog.Error("submission failed",
		"transaction_id", tx.ID,
		"invoice_id", tx.InvoiceID,
		"failure_class", string(class),
		"retry_count", tx.RetryCount,
		"error", cause.Error())
	return fmt.Errorf("submission failed for transaction %s: %w", tx.ID, cause)
}

func classifyFailure(err error) (class domain.FailureClass, countsAsAttempt bool) {
	switch {
	case errors.Is(err, domain.ErrSigning):
		return domain.FailureSigning, true
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, domain.ErrCommunication):
		return domain.FailureTransmission, true
	case errors.Is(err, domain.ErrAuthenticationFailed):
		return domain.FailureAuthentication, false
	case errors.Is(err, domain.ErrSecurityConfiguration), errors.Is(err, domain.ErrPreconditionFailed):
		return domain.FailureSecurityConfig, false
	}
	return domain.FailureTransmission, true
}

func marshalResult(result *anaf.Result) string {
	raw, err := json.Marshal(result)
	if err != nil {
		return ""
	}
	return string(raw)
}

func (uc *DefaultTransactionUsecase) logError(tx *domain.Transaction, err error) error {
	slog.Error("transaction operation rejected",
		"transaction_id", tx.ID,
		"invoice_id", tx.InvoiceID,
		"status", string(tx.Status),
		"error", err.Error())
	return err
}

// publishEvent pushes a lifecycle event to the bus without blocking the
// submission path. A publish failure is logged and swallowed.
func (uc *DefaultTransactionUsecase) publishEvent(tx *domain.Transaction, errMsg string) {
	if uc.Publisher == nil {
		return
	}

	event := domain.TransactionEvent{
		TransactionID: tx.ID,
		InvoiceID:     tx.InvoiceID,
		Status:        string(tx.Status),
		AnafUUID:      tx.AnafUUID,
		Error:         errMsg,
	}
	go func(event domain.TransactionEvent) {
		if err := uc.Publisher.PublishTransaction(event); err != nil {
			slog.Error("failed to publish transaction event", "transaction_id", event.TransactionID, "error", err.Error())
		}
	}(event)
}
