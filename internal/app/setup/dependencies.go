package setup

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/facturis/efactura-service/internal/anaf"
	"github.com/facturis/efactura-service/internal/config"
	"github.com/facturis/efactura-service/internal/infrastructure/kafka"
	"github.com/facturis/efactura-service/internal/infrastructure/metrics"
	"github.com/facturis/efactura-service/internal/infrastructure/postgres"
	"github.com/facturis/efactura-service/internal/infrastructure/postgres/repository"
	"github.com/facturis/efactura-service/internal/signer"
	"github.com/facturis/efactura-service/internal/ubl"
	"github.com/facturis/efactura-service/internal/usecase/transaction"
)

type Dependencies struct {
	Config             *config.EFacturaConfig
	DB                 *gorm.DB
	Publisher          *kafka.TransactionPublisher
	Metrics            *metrics.SubmissionMetrics
	TransactionUsecase *transaction.DefaultTransactionUsecase
}

func InitializeDependencies() (*Dependencies, error) {
	cfg := config.MustLoad()

	db := postgres.MustInitDB(cfg)

	brokers := []string{fmt.Sprintf("%s:%s", cfg.KafkaService.Host, cfg.KafkaService.Port)}
	publisher := kafka.NewTransactionPublisher(brokers, cfg.KafkaService.Topic)

	submissionMetrics := metrics.NewSubmissionMetrics()

	transactionRepo := repository.NewDefaultTransactionRepository(db)
	invoiceRepo := repository.NewDefaultInvoiceRepository(db)

	xmlSigner := signer.NewXMLSigner(signer.NewXMLDSigCapability(), &cfg.Anaf)

	clientFactory := func(ctx context.Context, anafCfg *config.AnafConfig) (transaction.AnafClient, error) {
		return anaf.NewClient(ctx, anafCfg)
	}

	uc := transaction.NewDefaultTransactionUsecase(
		transactionRepo,
		invoiceRepo,
		ubl.NewGenerator(),
		ubl.NewValidator(),
		xmlSigner,
		clientFactory,
		&cfg.Anaf,
		publisher,
		submissionMetrics,
		cfg.Scheduler.WorkerBuffer,
	)

	return &Dependencies{
		Config:             cfg,
		DB:                 db,
		Publisher:          publisher,
		Metrics:            submissionMetrics,
		TransactionUsecase: uc,
	}, nil
}
