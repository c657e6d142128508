package transaction

import (
	"context"

	"github.com/facturis/efactura-service/internal/anaf"
	"github.com/facturis/efactura-service/internal/config"
	"github.com/facturis/efactura-service/internal/domain"
	"github.com/facturis/efactura-service/internal/infrastructure/metrics"
)

// AnafClient is the transport surface the orchestrator drives. The
// transport client is the only component allowed to move a transaction
// into SUBMITTED or FAILED.
type AnafClient interface {
	SendXml(ctx context.Context, signedXML []byte) (*anaf.Result, error)
	CheckStatus(ctx context.Context, uuid string) (*anaf.Result, error)
	Close()
}

// ClientFactory builds a freshly authenticated client for one submission
// attempt, so stale tokens or expired short-lived certificate files never
// survive across attempts.
type ClientFactory func(ctx context.Context, cfg *config.AnafConfig) (AnafClient, error)

// Signer produces signed XML from the stored payload.
type Signer interface {
	Sign(xmlData []byte) ([]byte, error)
}

// InvoiceSource stores and resolves the invoice snapshots XML generation
// works from. The ERP owns the invoice; this service keeps the snapshot
// it received at transaction creation.
type InvoiceSource interface {
	SaveInvoice(ctx context.Context, invoice *domain.Invoice) error
	GetInvoice(ctx context.Context, invoiceID string) (*domain.Invoice, error)
}

type TransactionUsecase interface {
	CreateTransaction(ctx context.Context, invoice *domain.Invoice) (*domain.Transaction, error)
	Validate(ctx context.Context, transactionID string) error
	Submit(ctx context.Context, transactionID string) error
	RetryFailed(ctx context.Context, transactionID string) error
	CancelTransaction(ctx context.Context, transactionID string) error
	CheckTransactionStatus(ctx context.Context, transactionID string) (*anaf.Result, error)
	GetTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)
	FindRetryable(ctx context.Context) ([]*domain.Transaction, error)

	EnqueueSubmission(ctx context.Context, task SubmissionTask) error
	StartWorker(ctx context.Context)
}

type DefaultTransactionUsecase struct {
	Repo      domain.TransactionRepository
	Invoices  InvoiceSource
	Generator domain.XMLGenerator
	Validator domain.XMLValidator
	Signer    Signer
	Clients   ClientFactory
	Settings  *config.AnafConfig
	Publisher domain.EventPublisher
	Metrics   *metrics.SubmissionMetrics

	tasks chan SubmissionTask
}

func NewDefaultTransactionUsecase(
	repo domain.TransactionRepository,
	invoices InvoiceSource,
	generator domain.XMLGenerator,
	validator domain.XMLValidator,
	signer Signer,
	clients ClientFactory,
	settings *config.AnafConfig,
	publisher domain.EventPublisher,
	submissionMetrics *metrics.SubmissionMetrics,
	workerBuffer int) *DefaultTransactionUsecase {

	if workerBuffer <= 0 {
		workerBuffer = 64
	}

	return &DefaultTransactionUsecase{
		Repo:      repo,
		Invoices:  invoices,
		Generator: generator,
		Validator: validator,
		Signer:    signer,
		Clients:   clients,
		Settings:  settings,
		Publisher: publisher,
		Metrics:   submissionMetrics,
		tasks:     make(chan SubmissionTask, workerBuffer),
	}
}

func (uc *DefaultTransactionUsecase) GetTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return uc.Repo.GetTransactionByID(ctx, transactionID)
}

func (uc *DefaultTransactionUsecase) FindRetryable(ctx context.Context) ([]*domain.Transaction, error) {
	return uc.Repo.FindRetryable(ctx)
}
