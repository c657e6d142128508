package mappers

import (
	"github.com/facturis/efactura-service/internal/domain"
	"github.com/facturis/efactura-service/internal/infrastructure/postgres/models"
)

func ToDomainTransaction(model *models.TransactionModel) *domain.Transaction {
	return &domain.Transaction{
		ID:              model.ID,
		InvoiceID:       model.InvoiceID,
		Status:          model.Status,
		XMLData:         model.XMLData,
		AnafUUID:        model.AnafUUID,
		AnafResponse:    model.AnafResponse,
		RetryCount:      model.RetryCount,
		FailureClass:    domain.FailureClass(model.FailureClass),
		SubmissionTime:  model.SubmissionTime,
		LastSuccessDate: model.LastSuccessDate,
		LastFailureDate: model.LastFailureDate,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

func ToGORMTransaction(tx *domain.Transaction) *models.TransactionModel {
	return &models.TransactionModel{
		ID:              tx.ID,
		InvoiceID:       tx.InvoiceID,
		Status:          tx.Status,
		XMLData:         tx.XMLData,
		AnafUUID:        tx.AnafUUID,
		AnafResponse:    tx.AnafResponse,
		RetryCount:      tx.RetryCount,
		FailureClass:    string(tx.FailureClass),
		SubmissionTime:  tx.SubmissionTime,
		LastSuccessDate: tx.LastSuccessDate,
		LastFailureDate: tx.LastFailureDate,
		CreatedAt:       tx.CreatedAt,
		UpdatedAt:       tx.UpdatedAt,
	}
}
