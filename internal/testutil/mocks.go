package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/domain/refund"
	"github.com/cassiomorais/gateway/internal/domain/transaction"
	"github.com/cassiomorais/gateway/internal/domain/webhook"
	"github.com/cassiomorais/gateway/internal/gateway"
	"github.com/google/uuid"
)

// --- Transaction Repository Mock ---

// MockTransactionRepository is a mock implementation of transaction.Repository.
type MockTransactionRepository struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*transaction.Transaction
	byKey map[string]*transaction.Transaction

	CreateFunc              func(ctx context.Context, txn *transaction.Transaction) error
	GetByIDFunc             func(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error)
	GetByIdempotencyKeyFunc func(ctx context.Context, key string) (*transaction.Transaction, error)
	UpdateFunc              func(ctx context.Context, txn *transaction.Transaction) error
	LockFunc                func(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error)
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		byID:  make(map[uuid.UUID]*transaction.Transaction),
		byKey: make(map[string]*transaction.Transaction),
	}
}

// AddTransaction pre-populates the mock with a transaction.
func (m *MockTransactionRepository) AddTransaction(txn *transaction.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[txn.ID] = txn
	m.byKey[txn.IdempotencyKey] = txn
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *transaction.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, txn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byKey[txn.IdempotencyKey]; exists {
		return domainErrors.ErrDuplicateIdempotencyKey
	}
	m.byID[txn.ID] = txn
	m.byKey[txn.IdempotencyKey] = txn
	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.byID[id]
	if !ok {
		return nil, domainErrors.ErrTransactionNotFound
	}
	return txn, nil
}

func (m *MockTransactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*transaction.Transaction, error) {
	if m.GetByIdempotencyKeyFunc != nil {
		return m.GetByIdempotencyKeyFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.byKey[key]
	if !ok {
		return nil, domainErrors.ErrTransactionNotFound
	}
	return txn, nil
}

func (m *MockTransactionRepository) Update(ctx context.Context, txn *transaction.Transaction) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, txn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[txn.ID] = txn
	m.byKey[txn.IdempotencyKey] = txn
	return nil
}

func (m *MockTransactionRepository) Lock(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	if m.LockFunc != nil {
		return m.LockFunc(ctx, id)
	}
	return m.GetByID(ctx, id)
}

// --- Refund Repository Mock ---

// MockRefundRepository is a mock implementation of refund.Repository.
type MockRefundRepository struct {
	mu      sync.Mutex
	refunds map[uuid.UUID]*refund.Refund

	CreateFunc                    func(ctx context.Context, r *refund.Refund) error
	GetByIDFunc                   func(ctx context.Context, id uuid.UUID) (*refund.Refund, error)
	UpdateFunc                    func(ctx context.Context, r *refund.Refund) error
	ListByTransactionFunc         func(ctx context.Context, transactionID uuid.UUID) ([]*refund.Refund, error)
	SumCompletedByTransactionFunc func(ctx context.Context, transactionID uuid.UUID) (int64, error)
}

func NewMockRefundRepository() *MockRefundRepository {
	return &MockRefundRepository{
		refunds: make(map[uuid.UUID]*refund.Refund),
	}
}

func (m *MockRefundRepository) Create(ctx context.Context, r *refund.Refund) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, r)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refunds[r.ID] = r
	return nil
}

func (m *MockRefundRepository) GetByID(ctx context.Context, id uuid.UUID) (*refund.Refund, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.refunds[id]
	if !ok {
		return nil, domainErrors.ErrRefundNotFound
	}
	return r, nil
}

func (m *MockRefundRepository) Update(ctx context.Context, r *refund.Refund) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, r)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refunds[r.ID] = r
	return nil
}

func (m *MockRefundRepository) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*refund.Refund, error) {
	if m.ListByTransactionFunc != nil {
		return m.ListByTransactionFunc(ctx, transactionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*refund.Refund
	for _, r := range m.refunds {
		if r.TransactionID == transactionID {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *MockRefundRepository) SumCompletedByTransaction(ctx context.Context, transactionID uuid.UUID) (int64, error) {
	if m.SumCompletedByTransactionFunc != nil {
		return m.SumCompletedByTransactionFunc(ctx, transactionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, r := range m.refunds {
		if r.TransactionID == transactionID && r.Status == refund.StatusCompleted {
			sum += r.AmountCents
		}
	}
	return sum, nil
}

// --- Webhook Event Repository Mock ---

// MockWebhookRepository is a mock implementation of webhook.Repository.
type MockWebhookRepository struct {
	mu     sync.Mutex
	events map[uuid.UUID]*webhook.Event

	CreateFunc        func(ctx context.Context, e *webhook.Event) error
	GetByIDFunc       func(ctx context.Context, id uuid.UUID) (*webhook.Event, error)
	UpdateFunc        func(ctx context.Context, e *webhook.Event) error
	GetDueFunc        func(ctx context.Context, now time.Time, limit int) ([]*webhook.Event, error)
	NextDueFunc       func(ctx context.Context, now time.Time) (*time.Time, error)
	ListBySubjectFunc func(ctx context.Context, subjectID uuid.UUID) ([]*webhook.Event, error)
}

func NewMockWebhookRepository() *MockWebhookRepository {
	return &MockWebhookRepository{
		events: make(map[uuid.UUID]*webhook.Event),
	}
}

func (m *MockWebhookRepository) Create(ctx context.Context, e *webhook.Event) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[e.ID] = e
	return nil
}

func (m *MockWebhookRepository) GetByID(ctx context.Context, id uuid.UUID) (*webhook.Event, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, domainErrors.ErrEventNotFound
	}
	return e, nil
}

func (m *MockWebhookRepository) Update(ctx context.Context, e *webhook.Event) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[e.ID] = e
	return nil
}

func (m *MockWebhookRepository) GetDue(ctx context.Context, now time.Time, limit int) ([]*webhook.Event, error) {
	if m.GetDueFunc != nil {
		return m.GetDueFunc(ctx, now, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []*webhook.Event
	for _, e := range m.events {
		if e.Due(now) {
			due = append(due, e)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (m *MockWebhookRepository) NextDue(ctx context.Context, now time.Time) (*time.Time, error) {
	if m.NextDueFunc != nil {
		return m.NextDueFunc(ctx, now)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var next *time.Time
	for _, e := range m.events {
		if e.Status != webhook.StatusPending || e.NextRetryAt == nil || !e.NextRetryAt.After(now) {
			continue
		}
		if next == nil || e.NextRetryAt.Before(*next) {
			t := *e.NextRetryAt
			next = &t
		}
	}
	return next, nil
}

func (m *MockWebhookRepository) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]*webhook.Event, error) {
	if m.ListBySubjectFunc != nil {
		return m.ListBySubjectFunc(ctx, subjectID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*webhook.Event
	for _, e := range m.events {
		if e.SubjectID == subjectID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// GetEventByID returns the stored event (test helper, no context needed).
func (m *MockWebhookRepository) GetEventByID(id uuid.UUID) *webhook.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[id]
}

// --- Idempotency Index Mock ---

// MockIndex is a mock implementation of idempotency.Index.
type MockIndex struct {
	mu      sync.Mutex
	entries map[string]uuid.UUID

	GetFunc func(ctx context.Context, key string) (uuid.UUID, bool, error)
	SetFunc func(ctx context.Context, key string, id uuid.UUID) error
}

func NewMockIndex() *MockIndex {
	return &MockIndex{entries: make(map[string]uuid.UUID)}
}

func (m *MockIndex) Get(ctx context.Context, key string) (uuid.UUID, bool, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.entries[key]
	return id, ok, nil
}

func (m *MockIndex) Set(ctx context.Context, key string, id uuid.UUID) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = id
	return nil
}

// --- Transaction Manager Mock ---

// MockTransactionManager is a mock implementation of service.TransactionManager.
type MockTransactionManager struct {
	WithTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// --- Processor Mock ---

// MockProcessor is a deterministic implementation of gateway.Processor.
type MockProcessor struct {
	ProcessorName string
	ChargeFunc    func(ctx context.Context, req gateway.ChargeRequest) (*gateway.Result, error)
	RefundFunc    func(ctx context.Context, req gateway.RefundRequest) (*gateway.Result, error)
}

func NewMockProcessor(name string) *MockProcessor {
	return &MockProcessor{ProcessorName: name}
}

func (m *MockProcessor) Name() string { return m.ProcessorName }

func (m *MockProcessor) Charge(ctx context.Context, req gateway.ChargeRequest) (*gateway.Result, error) {
	if m.ChargeFunc != nil {
		return m.ChargeFunc(ctx, req)
	}
	return &gateway.Result{Reference: "mock_txn_" + req.TransactionID, Status: "success"}, nil
}

func (m *MockProcessor) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.Result, error) {
	if m.RefundFunc != nil {
		return m.RefundFunc(ctx, req)
	}
	return &gateway.Result{Reference: "mock_refund_" + req.RefundID, Status: "success"}, nil
}

// --- Event Publisher Mock ---

// MockEventPublisher records published webhook event nudges.
type MockEventPublisher struct {
	mu        sync.Mutex
	published []string

	PublishWebhookEventFunc func(ctx context.Context, eventID string) error
}

func (m *MockEventPublisher) PublishWebhookEvent(ctx context.Context, eventID string) error {
	if m.PublishWebhookEventFunc != nil {
		return m.PublishWebhookEventFunc(ctx, eventID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, eventID)
	return nil
}

// Published returns the IDs published so far.
func (m *MockEventPublisher) Published() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.published...)
}
