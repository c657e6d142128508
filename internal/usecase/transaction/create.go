package transaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/facturis/efactura-service/internal/domain"
)

// CreateTransaction registers a Draft transaction for an invoice and
// enqueues its first submission. Credit notes are handled through their
// own flow, and an invoice holds at most one transaction for its whole
// lifetime.
func (uc *DefaultTransactionUsecase) CreateTransaction(ctx context.Context, invoice *domain.Invoice) (*domain.Transaction, error) {
	if invoice == nil || invoice.ID == "" {
		return nil, fmt.Errorf("%w: invoice is required", domain.ErrPreconditionFailed)
	}
	if invoice.IsReturn {
		return nil, fmt.Errorf("%w: credit notes are not submitted through this flow", domain.ErrPreconditionFailed)
	}

	if existing, err := uc.Repo.GetTransactionByInvoiceID(ctx, invoice.ID); err == nil {
		return existing, domain.ErrTransactionExists
	} else if !errors.Is(err, domain.ErrTransactionNotFound) {
		return nil, err
	}

	if err := uc.Invoices.SaveInvoice(ctx, invoice); err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		ID:        uuid.NewString(),
		InvoiceID: invoice.ID,
		Status:    domain.StatusDraft,
	}

	if err := uc.Repo.CreateTransaction(ctx, tx); err != nil {
		if errors.Is(err, domain.ErrTransactionExists) {
			return uc.Repo.GetTransactionByInvoiceID(ctx, invoice.ID)
		}
		return nil, err
	}

	uc.Metrics.RecordTransactionCreated()
	uc.publishEvent(tx, "")

	slog.Info("transaction created",
		"transaction_id", tx.ID,
		"invoice_id", tx.InvoiceID)

	if err := uc.EnqueueSubmission(ctx, SubmissionTask{
		TransactionID: tx.ID,
		Trigger:       TriggerCreate,
	}); err != nil {
		slog.Warn("submission queue full, transaction stays in Draft",
			"transaction_id", tx.ID, "error", err.Error())
	}

	return tx, nil
}
