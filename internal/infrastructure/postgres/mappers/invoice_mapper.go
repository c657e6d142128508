package mappers

import (
	"encoding/json"

	"github.com/facturis/efactura-service/internal/domain"
	"github.com/facturis/efactura-service/internal/infrastructure/postgres/models"
)

func ToDomainInvoice(model *models.InvoiceModel) (*domain.Invoice, error) {
	invoice := &domain.Invoice{
		ID:        model.ID,
		IssueDate: model.IssueDate,
		Currency:  model.Currency,
		Supplier:  model.Supplier,
		Customer:  model.Customer,
		NetTotal:  model.NetTotal,
		Total:     model.Total,
		IsReturn:  model.IsReturn,
	}
	if model.Lines != "" {
		if err := json.Unmarshal([]byte(model.Lines), &invoice.Lines); err != nil {
			return nil, err
		}
	}
	return invoice, nil
}

func ToGORMInvoice(invoice *domain.Invoice) (*models.InvoiceModel, error) {
	lines, err := json.Marshal(invoice.Lines)
	if err != nil {
		return nil, err
	}
	return &models.InvoiceModel{
		ID:        invoice.ID,
		IssueDate: invoice.IssueDate,
		Currency:  invoice.Currency,
		Supplier:  invoice.Supplier,
		Customer:  invoice.Customer,
		NetTotal:  invoice.NetTotal,
		Total:     invoice.Total,
		IsReturn:  invoice.IsReturn,
		Lines:     string(lines),
	}, nil
}
