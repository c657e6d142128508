package transaction

import (
	"context"
	"fmt"

	"github.com/facturis/efactura-service/internal/anaf"
	"github.com/facturis/efactura-service/internal/domain"
)

// CheckTransactionStatus polls ANAF for the processing state of a
// submitted document and stores the latest response on the transaction.
// The per-transaction lock is held across the read-poll-persist cycle so
// ApplyResult never writes back a stale snapshot. Transport problems come
// back as an error-shaped result, never as a Go error, so a flaky poll
// does not disturb the lifecycle.
func (uc *DefaultTransactionUsecase) CheckTransactionStatus(ctx context.Context, transactionID string) (*anaf.Result, error) {
	var result *anaf.Result
	err := uc.Repo.WithLock(ctx, transactionID, func(ctx context.Context) error {
		tx, err := uc.Repo.GetTransactionByID(ctx, transactionID)
		if err != nil {
			return err
		}
		if tx.AnafUUID == "" {
			return fmt.Errorf("%w: transaction has no ANAF upload index", domain.ErrPreconditionFailed)
		}

		client, err := uc.Clients(ctx, uc.Settings)
		if err != nil {
			return err
		}
		defer client.Close()

		if result, err = client.CheckStatus(ctx, tx.AnafUUID); err != nil {
			return err
		}

		tx.AnafResponse = marshalResult(result)
		return uc.Repo.ApplyResult(ctx, tx)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
