package transaction

import (
	"context"
	"log/slog"

	"github.com/facturis/efactura-service/internal/domain"
)

// Validate generates and validates the UBL XML for a Draft transaction.
// XML is generated exactly once per Draft cycle: a Draft that already has
// xmlData, or a transaction past Draft, is left untouched. A transaction
// in VALIDATION_FAILED is reset to Draft first and starts a new cycle.
func (uc *DefaultTransactionUsecase) Validate(ctx context.Context, transactionID string) error {
	return uc.Repo.WithLock(ctx, transactionID, func(ctx context.Context) error {
		tx, err := uc.Repo.GetTransactionByID(ctx, transactionID)
		if err != nil {
			return err
		}
		return uc.validateLocked(ctx, tx)
	})
}

// validateLocked runs the generation cycle. Callers must hold the
// per-transaction lock; Submit runs it before the attempt pipeline so a
// single lock acquisition covers validate, sign, send and apply-result.
func (uc *DefaultTransactionUsecase) validateLocked(ctx context.Context, tx *domain.Transaction) error {
	if tx.Status == domain.StatusValidationFailed {
		if err := tx.Transition(domain.StatusDraft); err != nil {
			return uc.logError(tx, err)
		}
		tx.XMLData = nil
	}

	if tx.Status != domain.StatusDraft || len(tx.XMLData) > 0 {
		return nil
	}

	invoice, err := uc.Invoices.GetInvoice(ctx, tx.InvoiceID)
	if err != nil {
		return uc.failValidation(ctx, tx, err)
	}

	xmlData, err := uc.Generator.Generate(invoice)
	if err != nil {
		return uc.failValidation(ctx, tx, err)
	}

	if err := uc.Validator.Validate(xmlData); err != nil {
		return uc.failValidation(ctx, tx, err)
	}

	tx.XMLData = xmlData
	return uc.Repo.UpdateTransaction(ctx, tx)
}

// failValidation records the failed cycle and surfaces the underlying
// error unmodified.
func (uc *DefaultTransactionUsecase) failValidation(ctx context.Context, tx *domain.Transaction, cause error) error {
	if err := tx.Transition(domain.StatusValidationFailed); err != nil {
		return uc.logError(tx, err)
	}
	tx.XMLData = nil

	if err := uc.Repo.UpdateTransaction(ctx, tx); err != nil {
		return err
	}

	uc.Metrics.RecordValidationFailed()
	uc.Metrics.RecordStatusChange(string(domain.StatusDraft), string(domain.StatusValidationFailed))
	uc.publishEvent(tx, cause.Error())

	slog.Error("XML generation or validation failed",
		"transaction_id", tx.ID,
		"invoice_id", tx.InvoiceID,
		"error", cause.Error())
	return cause
}
