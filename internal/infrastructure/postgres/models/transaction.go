package models

import (
	"time"

	"github.com/facturis/efactura-service/internal/domain"
)

type TransactionModel struct {
	ID              string                   `gorm:"primaryKey;type:uuid"`
	InvoiceID       string                   `gorm:"uniqueIndex:idx_invoice;not null"`
	Status          domain.TransactionStatus `gorm:"index:idx_status_retry;not null"`
	XMLData         []byte                   `gorm:"type:bytea"`
	AnafUUID        string                   `gorm:"index"`
	AnafResponse    string                   `gorm:"type:jsonb"`
	RetryCount      int                      `gorm:"index:idx_status_retry;not null;default:0"`
	FailureClass    string                   `gorm:"index:idx_status_retry"`
	SubmissionTime  *time.Time
	LastSuccessDate *time.Time
	LastFailureDate *time.Time
	CreatedAt       time.Time `gorm:"index:idx_created_at"`
	UpdatedAt       time.Time
}
