package background

import (
	"context"
	"log"
	"time"

	"github.com/facturis/efactura-service/internal/config"
	"github.com/facturis/efactura-service/internal/usecase/transaction"
)

type BackgroundTasks struct {
	TransactionUsecase transaction.TransactionUsecase
	Scheduler          config.SchedulerConfig
}

func NewBackgroundTasks(transactionUC transaction.TransactionUsecase, schedulerCfg config.SchedulerConfig) *BackgroundTasks {
	return &BackgroundTasks{
		TransactionUsecase: transactionUC,
		Scheduler:          schedulerCfg,
	}
}

func (bt *BackgroundTasks) StartAll(ctx context.Context) {
	go bt.startRetryScheduler(ctx)
}

// startRetryScheduler periodically sweeps failed transactions that are
// still under the retry ceiling and re-enqueues them. Each transaction is
// scheduled independently, one bad apple never stops the sweep.
func (bt *BackgroundTasks) startRetryScheduler(ctx context.Context) {
	interval := bt.Scheduler.RetryInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bt.sweepFailedTransactions(ctx)
		}
	}
}

func (bt *BackgroundTasks) sweepFailedTransactions(ctx context.Context) {
	retryable, err := bt.TransactionUsecase.FindRetryable(ctx)
	if err != nil {
		log.Printf("Retry sweep query failed: %v\n", err)
		return
	}

	for _, tx := range retryable {
		task := transaction.SubmissionTask{
			TransactionID: tx.ID,
			Trigger:       transaction.TriggerScheduler,
			Retry:         true,
		}
		if err := bt.TransactionUsecase.EnqueueSubmission(ctx, task); err != nil {
			log.Printf("Retry enqueue failed for transaction %s: %v\n", tx.ID, err)
		}
	}

	if len(retryable) > 0 {
		log.Printf("Retry sweep enqueued %d failed transactions\n", len(retryable))
	}
}
