package transaction

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/facturis/efactura-service/internal/domain"
	"github.com/facturis/efactura-service/internal/usecase/transaction"
)

type Handler struct {
	uc transaction.TransactionUsecase
}

func NewHandler(uc transaction.TransactionUsecase) *Handler {
	return &Handler{uc: uc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Post("/{id}/submit", h.submit)
	r.Post("/{id}/retry", h.retry)
	r.Post("/{id}/cancel", h.cancel)
	r.Post("/{id}/check-status", h.checkStatus)
}

type createRequest struct {
	InvoiceID string              `json:"invoice_id"`
	IssueDate time.Time           `json:"issue_date"`
	Currency  string              `json:"currency"`
	Supplier  string              `json:"supplier"`
	Customer  string              `json:"customer"`
	NetTotal  float64             `json:"net_total"`
	Total     float64             `json:"total"`
	IsReturn  bool                `json:"is_return"`
	Lines     []createRequestLine `json:"lines"`
}

type createRequestLine struct {
	ItemName string  `json:"item_name"`
	Quantity float64 `json:"quantity"`
	UnitCode string  `json:"unit_code"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.InvoiceID == "" {
		http.Error(w, "invoice_id is required", http.StatusBadRequest)
		return
	}

	invoice := &domain.Invoice{
		ID:        req.InvoiceID,
		IssueDate: req.IssueDate,
		Currency:  req.Currency,
		Supplier:  req.Supplier,
		Customer:  req.Customer,
		NetTotal:  req.NetTotal,
		Total:     req.Total,
		IsReturn:  req.IsReturn,
	}
	for i, line := range req.Lines {
		invoice.Lines = append(invoice.Lines, domain.InvoiceLine{
			Index:    i + 1,
			ItemName: line.ItemName,
			Quantity: line.Quantity,
			UnitCode: line.UnitCode,
		})
	}

	tx, err := h.uc.CreateTransaction(r.Context(), invoice)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionExists) {
			writeJSON(w, http.StatusConflict, toResponse(tx))
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(tx))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tx, err := h.uc.GetTransactionByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(tx))
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	h.runAndReturn(w, r, h.uc.Submit)
}

func (h *Handler) retry(w http.ResponseWriter, r *http.Request) {
	h.runAndReturn(w, r, h.uc.RetryFailed)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.runAndReturn(w, r, h.uc.CancelTransaction)
}

func (h *Handler) checkStatus(w http.ResponseWriter, r *http.Request) {
	result, err := h.uc.CheckTransactionStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// runAndReturn executes a lifecycle operation and returns the resulting
// transaction state whether the operation succeeded or ended in FAILED or
// VALIDATION_FAILED, so the caller always sees where the transaction
// landed.
func (h *Handler) runAndReturn(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string) error) {
	id := chi.URLParam(r, "id")

	opErr := op(r.Context(), id)
	if opErr != nil && !isRecordedFailure(opErr) {
		writeError(w, opErr)
		return
	}

	tx, err := h.uc.GetTransactionByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(tx))
}

// isRecordedFailure reports whether the error was already applied to the
// transaction as a FAILED attempt, as opposed to the operation being
// rejected before it ran.
func isRecordedFailure(err error) bool {
	switch {
	case errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrRetryExhausted),
		errors.Is(err, domain.ErrNotRetryable),
		errors.Is(err, domain.ErrCancelActive),
		errors.Is(err, domain.ErrPreconditionFailed):
		return false
	}
	var transitionErr *domain.IllegalTransitionError
	return !errors.As(err, &transitionErr)
}

func writeError(w http.ResponseWriter, err error) {
	var transitionErr *domain.IllegalTransitionError

	switch {
	case errors.Is(err, domain.ErrTransactionNotFound):
		http.Error(w, "transaction not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrRetryExhausted),
		errors.Is(err, domain.ErrNotRetryable),
		errors.Is(err, domain.ErrCancelActive),
		errors.As(err, &transitionErr):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrPreconditionFailed):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		// Transport and credential details stay in the logs.
		slog.Error("request failed", "error", err.Error())
		http.Error(w, "submission failed", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
