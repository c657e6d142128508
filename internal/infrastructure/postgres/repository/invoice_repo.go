package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/facturis/efactura-service/internal/domain"
	"github.com/facturis/efactura-service/internal/infrastructure/postgres/mappers"
	"github.com/facturis/efactura-service/internal/infrastructure/postgres/models"
)

type DefaultInvoiceRepository struct {
	DB *gorm.DB
}

func NewDefaultInvoiceRepository(db *gorm.DB) *DefaultInvoiceRepository {
	return &DefaultInvoiceRepository{DB: db}
}

// SaveInvoice upserts the snapshot: re-submitting an updated invoice
// refreshes the stored copy the next Draft cycle generates from.
func (r *DefaultInvoiceRepository) SaveInvoice(ctx context.Context, invoice *domain.Invoice) error {
	model, err := mappers.ToGORMInvoice(invoice)
	if err != nil {
		return fmt.Errorf("serializing invoice %s: %w", invoice.ID, err)
	}
	err = r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(model).Error
	if err != nil {
		return fmt.Errorf("saving invoice %s: %w", invoice.ID, err)
	}
	return nil
}

func (r *DefaultInvoiceRepository) GetInvoice(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	var model models.InvoiceModel
	if err := r.DB.WithContext(ctx).First(&model, "id = ?", invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("invoice %s not found", invoiceID)
		}
		return nil, err
	}
	return mappers.ToDomainInvoice(&model)
}
