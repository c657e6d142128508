package transaction_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturis/efactura-service/internal/anaf"
	"github.com/facturis/efactura-service/internal/domain"
)

func TestCheckTransactionStatus_Success(t *testing.T) {
	h := newHarness(t)
	h.client.statusResult = &anaf.Result{
		Status:  anaf.StatusSuccess,
		UUID:    "X123",
		Details: json.RawMessage(`{"state":"ok"}`),
	}
	h.seed(&domain.Transaction{ID: "tx-1", InvoiceID: "inv-1", Status: domain.StatusSubmitted, AnafUUID: "X123"})

	result, err := h.uc.CheckTransactionStatus(context.Background(), "tx-1")
	require.NoError(t, err)

	assert.True(t, result.Successful())
	assert.Contains(t, h.repo.snapshot("tx-1").AnafResponse, "ok")
	assert.Equal(t, 1, h.client.closed)
}

func TestCheckTransactionStatus_NoUploadIndex(t *testing.T) {
	h := newHarness(t)
	h.seed(draftWithXML("tx-1"))

	_, err := h.uc.CheckTransactionStatus(context.Background(), "tx-1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPreconditionFailed))
}

func TestCheckTransactionStatus_HoldsTransactionLock(t *testing.T) {
	h := newHarness(t)
	h.client.statusResult = &anaf.Result{Status: anaf.StatusSuccess, UUID: "X123"}

	entered := make(chan struct{})
	release := make(chan struct{})
	h.client.statusHook = func() {
		close(entered)
		<-release
	}
	h.seed(&domain.Transaction{ID: "tx-1", InvoiceID: "inv-1", Status: domain.StatusSubmitted, AnafUUID: "X123"})

	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		_, _ = h.uc.CheckTransactionStatus(context.Background(), "tx-1")
	}()
	<-entered

	// Another mutator on the same transaction must queue behind the poll.
	submitDone := make(chan struct{})
	go func() {
		defer close(submitDone)
		_ = h.uc.Submit(context.Background(), "tx-1")
	}()

	select {
	case <-submitDone:
		t.Fatal("concurrent operation ran while the status poll held the lock")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-pollDone
	<-submitDone

	assert.Contains(t, h.repo.snapshot("tx-1").AnafResponse, "X123")
}

func TestCheckTransactionStatus_TransportFailureKeepsLifecycle(t *testing.T) {
	h := newHarness(t)
	h.client.statusResult = &anaf.Result{Status: anaf.StatusError, Error: "connection reset", Code: "E500"}
	h.seed(&domain.Transaction{ID: "tx-1", InvoiceID: "inv-1", Status: domain.StatusSubmitted, AnafUUID: "X123"})

	result, err := h.uc.CheckTransactionStatus(context.Background(), "tx-1")
	require.NoError(t, err)

	assert.False(t, result.Successful())
	assert.Equal(t, domain.StatusSubmitted, h.repo.snapshot("tx-1").Status)
}
