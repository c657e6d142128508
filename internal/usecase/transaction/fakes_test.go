package transaction_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facturis/efactura-service/internal/anaf"
	"github.com/facturis/efactura-service/internal/config"
	"github.com/facturis/efactura-service/internal/domain"
	"github.com/facturis/efactura-service/internal/infrastructure/metrics"
	"github.com/facturis/efactura-service/internal/usecase/transaction"
)

// Prometheus collectors register globally, so all tests share one set.
var testMetrics = metrics.NewSubmissionMetrics()

type fakeRepo struct {
	mu    sync.Mutex
	txs   map[string]*domain.Transaction
	locks map[string]*sync.Mutex
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		txs:   make(map[string]*domain.Transaction),
		locks: make(map[string]*sync.Mutex),
	}
}

func (r *fakeRepo) put(tx *domain.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *tx
	r.txs[tx.ID] = &clone
}

func (r *fakeRepo) snapshot(id string) *domain.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *r.txs[id]
	return &clone
}

func (r *fakeRepo) CreateTransaction(_ context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.txs {
		if existing.InvoiceID == tx.InvoiceID {
			return domain.ErrTransactionExists
		}
	}
	clone := *tx
	r.txs[tx.ID] = &clone
	return nil
}

func (r *fakeRepo) GetTransactionByID(_ context.Context, id string) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	clone := *tx
	return &clone, nil
}

func (r *fakeRepo) GetTransactionByInvoiceID(_ context.Context, invoiceID string) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.txs {
		if tx.InvoiceID == invoiceID {
			clone := *tx
			return &clone, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

func (r *fakeRepo) UpdateTransaction(_ context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.txs[tx.ID]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	stored.Status = tx.Status
	stored.XMLData = tx.XMLData
	stored.FailureClass = tx.FailureClass
	stored.SubmissionTime = tx.SubmissionTime
	return nil
}

func (r *fakeRepo) ApplyResult(_ context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.txs[tx.ID]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	stored.Status = tx.Status
	stored.AnafUUID = tx.AnafUUID
	stored.AnafResponse = tx.AnafResponse
	stored.RetryCount = tx.RetryCount
	stored.FailureClass = tx.FailureClass
	stored.SubmissionTime = tx.SubmissionTime
	stored.LastSuccessDate = tx.LastSuccessDate
	stored.LastFailureDate = tx.LastFailureDate
	return nil
}

func (r *fakeRepo) FindRetryable(_ context.Context) ([]*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Transaction
	for _, tx := range r.txs {
		if tx.Retryable() {
			clone := *tx
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeRepo) WithLock(ctx context.Context, id string, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	lock, ok := r.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[id] = lock
	}
	r.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn(ctx)
}

type fakeInvoiceSource struct {
	mu       sync.Mutex
	invoices map[string]*domain.Invoice
	getErr   error
}

func newFakeInvoiceSource() *fakeInvoiceSource {
	return &fakeInvoiceSource{invoices: make(map[string]*domain.Invoice)}
}

func (s *fakeInvoiceSource) SaveInvoice(_ context.Context, invoice *domain.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices[invoice.ID] = invoice
	return nil
}

func (s *fakeInvoiceSource) GetInvoice(_ context.Context, invoiceID string) (*domain.Invoice, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	invoice, ok := s.invoices[invoiceID]
	if !ok {
		return nil, fmt.Errorf("invoice %s not found", invoiceID)
	}
	return invoice, nil
}

type fakeGenerator struct {
	calls int
	err   error
}

func (g *fakeGenerator) Generate(invoice *domain.Invoice) ([]byte, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return []byte("<Invoice><ID>" + invoice.ID + "</ID></Invoice>"), nil
}

type fakeValidator struct {
	err error
}

func (v *fakeValidator) Validate([]byte) error { return v.err }

type fakeSigner struct {
	calls int
	err   error
}

func (s *fakeSigner) Sign(xmlData []byte) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]byte("signed:"), xmlData...), nil
}

type fakeClient struct {
	mu         sync.Mutex
	sendCalls  int
	closed     int
	sendResult *anaf.Result
	sendErr    error
	sendHook   func()

	statusResult *anaf.Result
	statusErr    error
	statusHook   func()
}

func (c *fakeClient) SendXml(_ context.Context, _ []byte) (*anaf.Result, error) {
	c.mu.Lock()
	c.sendCalls++
	hook := c.sendHook
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
	return c.sendResult, c.sendErr
}

func (c *fakeClient) CheckStatus(_ context.Context, _ string) (*anaf.Result, error) {
	c.mu.Lock()
	hook := c.statusHook
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
	return c.statusResult, c.statusErr
}

func (c *fakeClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
}

func (c *fakeClient) sent() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendCalls
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.TransactionEvent
}

func (p *fakePublisher) PublishTransaction(event domain.TransactionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) published() []domain.TransactionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.TransactionEvent(nil), p.events...)
}

func validSettings(t *testing.T) *config.AnafConfig {
	t.Helper()

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	cfg := &config.AnafConfig{
		SandboxMode:       true,
		AuthMethod:        config.AuthCertificate,
		ClientCertificate: "encrypted-cert",
		PrivateKey:        "encrypted-key",
	}
	require.NoError(t, cfg.SetCredentialKey(key))
	return cfg
}

type harness struct {
	uc       *transaction.DefaultTransactionUsecase
	repo     *fakeRepo
	invoices *fakeInvoiceSource
	gen      *fakeGenerator
	val      *fakeValidator
	signer   *fakeSigner
	client   *fakeClient
	pub      *fakePublisher
	factory  func(ctx context.Context, cfg *config.AnafConfig) (transaction.AnafClient, error)
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		repo:     newFakeRepo(),
		invoices: newFakeInvoiceSource(),
		gen:      &fakeGenerator{},
		val:      &fakeValidator{},
		signer:   &fakeSigner{},
		client:   &fakeClient{sendResult: &anaf.Result{Status: anaf.StatusSuccess, UUID: "X123"}},
		pub:      &fakePublisher{},
	}
	h.factory = func(context.Context, *config.AnafConfig) (transaction.AnafClient, error) {
		return h.client, nil
	}

	h.uc = transaction.NewDefaultTransactionUsecase(
		h.repo,
		h.invoices,
		h.gen,
		h.val,
		h.signer,
		func(ctx context.Context, cfg *config.AnafConfig) (transaction.AnafClient, error) {
			return h.factory(ctx, cfg)
		},
		validSettings(t),
		h.pub,
		testMetrics,
		8,
	)
	return h
}

func (h *harness) seed(tx *domain.Transaction) {
	h.repo.put(tx)
}
