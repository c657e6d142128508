package transaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/facturis/efactura-service/internal/domain"
)

const (
	TriggerCreate    = "create"
	TriggerManual    = "manual"
	TriggerScheduler = "scheduler"
)

// SubmissionTask is one unit of submission work for the background worker.
type SubmissionTask struct {
	TransactionID string
	Trigger       string
	Retry         bool
}

// EnqueueSubmission hands a task to the worker without blocking: when the
// buffer is full the caller gets an error and decides what to do.
func (uc *DefaultTransactionUsecase) EnqueueSubmission(ctx context.Context, task SubmissionTask) error {
	select {
	case uc.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("submission queue is full, dropping task for transaction %s", task.TransactionID)
	}
}

// StartWorker consumes submission tasks until the context is cancelled.
// Each task runs in its own goroutine so a slow or hung ANAF call never
// blocks the rest of the queue.
func (uc *DefaultTransactionUsecase) StartWorker(ctx context.Context) {
	slog.Info("submission worker started", "buffer", cap(uc.tasks))

	for {
		select {
		case <-ctx.Done():
			slog.Info("submission worker stopped")
			return
		case task := <-uc.tasks:
			go uc.runTask(ctx, task)
		}
	}
}

func (uc *DefaultTransactionUsecase) runTask(ctx context.Context, task SubmissionTask) {
	var err error
	if task.Retry {
		uc.Metrics.RecordRetry(task.Trigger)
		err = uc.RetryFailed(ctx, task.TransactionID)
	} else {
		err = uc.Submit(ctx, task.TransactionID)
	}

	if err == nil {
		return
	}
	// Terminal rejections are expected between scheduling and execution,
	// the failure itself is already recorded on the transaction.
	if errors.Is(err, domain.ErrRetryExhausted) || errors.Is(err, domain.ErrNotRetryable) {
		slog.Info("submission task skipped",
			"transaction_id", task.TransactionID,
			"trigger", task.Trigger,
			"reason", err.Error())
		return
	}
	slog.Error("submission task failed",
		"transaction_id", task.TransactionID,
		"trigger", task.Trigger,
		"error", err.Error())
}
