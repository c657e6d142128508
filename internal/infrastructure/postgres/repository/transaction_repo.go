package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/facturis/efactura-service/internal/domain"
	"github.com/facturis/efactura-service/internal/infrastructure/postgres/mappers"
	"github.com/facturis/efactura-service/internal/infrastructure/postgres/models"
)

type DefaultTransactionRepository struct {
	DB    *gorm.DB
	locks *keyedMutex
}

func NewDefaultTransactionRepository(db *gorm.DB) *DefaultTransactionRepository {
	return &DefaultTransactionRepository{
		DB:    db,
		locks: newKeyedMutex(),
	}
}

func (r *DefaultTransactionRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	model := mappers.ToGORMTransaction(tx)
	if err := r.DB.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrTransactionExists
		}
		return fmt.Errorf("creating transaction: %w", err)
	}
	return nil
}

func (r *DefaultTransactionRepository) GetTransactionByID(ctx context.Context, id string) (*domain.Transaction, error) {
	var model models.TransactionModel
	if err := r.DB.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return mappers.ToDomainTransaction(&model), nil
}

func (r *DefaultTransactionRepository) GetTransactionByInvoiceID(ctx context.Context, invoiceID string) (*domain.Transaction, error) {
	var model models.TransactionModel
	if err := r.DB.WithContext(ctx).First(&model, "invoice_id = ?", invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return mappers.ToDomainTransaction(&model), nil
}

func (r *DefaultTransactionRepository) UpdateTransaction(ctx context.Context, tx *domain.Transaction) error {
	model := mappers.ToGORMTransaction(tx)
	result := r.DB.WithContext(ctx).Model(&models.TransactionModel{}).
		Where("id = ?", tx.ID).
		Select("Status", "XMLData", "FailureClass", "SubmissionTime").
		Updates(model)
	if result.Error != nil {
		return fmt.Errorf("updating transaction %s: %w", tx.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

// ApplyResult writes status and all result fields of one submission
// attempt in a single UPDATE, so status and result fields can never be
// observed out of step with each other.
func (r *DefaultTransactionRepository) ApplyResult(ctx context.Context, tx *domain.Transaction) error {
	model := mappers.ToGORMTransaction(tx)
	result := r.DB.WithContext(ctx).Model(&models.TransactionModel{}).
		Where("id = ?", tx.ID).
		Select("Status", "AnafUUID", "AnafResponse", "RetryCount", "FailureClass",
			"SubmissionTime", "LastSuccessDate", "LastFailureDate").
		Updates(model)
	if result.Error != nil {
		return fmt.Errorf("applying result for transaction %s: %w", tx.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

func (r *DefaultTransactionRepository) FindRetryable(ctx context.Context) ([]*domain.Transaction, error) {
	var transactionModels []models.TransactionModel
	err := r.DB.WithContext(ctx).
		Where("status = ? AND retry_count < ? AND failure_class IN ?",
			domain.StatusFailed, domain.MaxRetryCount,
			[]string{string(domain.FailureNone), string(domain.FailureTransmission), string(domain.FailureSigning)}).
		Order("last_failure_date ASC").
		Find(&transactionModels).Error
	if err != nil {
		return nil, fmt.Errorf("finding retryable transactions: %w", err)
	}

	transactions := make([]*domain.Transaction, len(transactionModels))
	for i := range transactionModels {
		transactions[i] = mappers.ToDomainTransaction(&transactionModels[i])
	}
	return transactions, nil
}

// WithLock serializes all submission work on one transaction id. The lock
// is held for the full validate-sign-send-apply cycle and released on
// every exit path, including panics inside fn.
func (r *DefaultTransactionRepository) WithLock(ctx context.Context, id string, fn func(ctx context.Context) error) error {
	mu := r.locks.get(id)
	mu.Lock()
	defer mu.Unlock()

	return fn(ctx)
}
