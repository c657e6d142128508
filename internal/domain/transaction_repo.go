package domain

import "context"

type TransactionRepository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransactionByID(ctx context.Context, id string) (*Transaction, error)
	GetTransactionByInvoiceID(ctx context.Context, invoiceID string) (*Transaction, error)
	UpdateTransaction(ctx context.Context, tx *Transaction) error

	// ApplyResult persists status and all result fields of one attempt in a
	// single atomic update, so no partial state is ever observable.
	ApplyResult(ctx context.Context, tx *Transaction) error

	// FindRetryable returns transactions in FAILED status, under the retry
	// ceiling, whose failure class the scheduler is allowed to re-drive.
	FindRetryable(ctx context.Context) ([]*Transaction, error)

	// WithLock runs fn while holding the exclusive per-transaction lock.
	// The lock spans the full reload-mutate-persist cycle and is released
	// on every exit path.
	WithLock(ctx context.Context, id string, fn func(ctx context.Context) error) error
}
