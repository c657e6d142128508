package transaction

import (
	"encoding/json"
	"time"

	"github.com/facturis/efactura-service/internal/domain"
)

type transactionResponse struct {
	ID              string          `json:"id"`
	InvoiceID       string          `json:"invoice_id"`
	Status          string          `json:"status"`
	AnafUUID        string          `json:"anaf_uuid,omitempty"`
	AnafResponse    json.RawMessage `json:"anaf_response,omitempty"`
	RetryCount      int             `json:"retry_count"`
	FailureClass    string          `json:"failure_class,omitempty"`
	SubmissionTime  *time.Time      `json:"submission_time,omitempty"`
	LastSuccessDate *time.Time      `json:"last_success_date,omitempty"`
	LastFailureDate *time.Time      `json:"last_failure_date,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func toResponse(tx *domain.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:              tx.ID,
		InvoiceID:       tx.InvoiceID,
		Status:          string(tx.Status),
		AnafUUID:        tx.AnafUUID,
		RetryCount:      tx.RetryCount,
		FailureClass:    string(tx.FailureClass),
		SubmissionTime:  tx.SubmissionTime,
		LastSuccessDate: tx.LastSuccessDate,
		LastFailureDate: tx.LastFailureDate,
		CreatedAt:       tx.CreatedAt,
		UpdatedAt:       tx.UpdatedAt,
	}
	if json.Valid([]byte(tx.AnafResponse)) {
		resp.AnafResponse = json.RawMessage(tx.AnafResponse)
	}
	return resp
}
