package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lambda-platform/lambda-api/internal/domain"
	"github.com/lambda-platform/lambda-api/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// passthroughTx runs the transactional function without a real transaction.
func passthroughTx(ctx context.Context, db *sql.DB, fn store.TxFn) error {
	return fn(ctx, nil)
}

// mockUserStore implements store.UserStore with function fields.
type mockUserStore struct {
	createFn     func(ctx context.Context, user *domain.User) error
	getByIDFn    func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	getByEmailFn func(ctx context.Context, email string) (*domain.User, error)
	updateTierFn func(ctx context.Context, id uuid.UUID, tier domain.Tier) error
	deleteFn     func(ctx context.Context, id uuid.UUID) error
}

var _ store.UserStore = (*mockUserStore)(nil)

func (m *mockUserStore) Create(ctx context.Context, user *domain.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrUserNotFound
}

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, store.ErrUserNotFound
}

func (m *mockUserStore) UpdateTier(ctx context.Context, id uuid.UUID, tier domain.Tier) error {
	if m.updateTierFn != nil {
		return m.updateTierFn(ctx, id, tier)
	}
	return nil
}

func (m *mockUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return m
}

// mockUsageStore implements store.UsageStore with function fields.
type mockUsageStore struct {
	mu      sync.Mutex
	records []*domain.UsageRecord

	createRecordFn  func(ctx context.Context, rec *domain.UsageRecord) error
	sumForPeriodFn  func(ctx context.Context, userID uuid.UUID, from, to time.Time) (*domain.UsageSummary, error)
	listRecordsFn   func(ctx context.Context, userID uuid.UUID, from, to time.Time, limit int) ([]*domain.UsageRecord, error)
	upsertSummaryFn func(ctx context.Context, summary *domain.UsageSummary) error
	requestCountsFn func(ctx context.Context, from, to time.Time) (map[uuid.UUID]int64, error)
}

var _ store.UsageStore = (*mockUsageStore)(nil)

func (m *mockUsageStore) CreateRecord(ctx context.Context, rec *domain.UsageRecord) error {
	if m.createRecordFn != nil {
		return m.createRecordFn(ctx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *mockUsageStore) SumForPeriod(ctx context.Context, userID uuid.UUID, from, to time.Time) (*domain.UsageSummary, error) {
	if m.sumForPeriodFn != nil {
		return m.sumForPeriodFn(ctx, userID, from, to)
	}
	return &domain.UsageSummary{UserID: userID, PeriodStart: from, PeriodEnd: to}, nil
}

func (m *mockUsageStore) ListRecords(ctx context.Context, userID uuid.UUID, from, to time.Time, limit int) ([]*domain.UsageRecord, error) {
	if m.listRecordsFn != nil {
		return m.listRecordsFn(ctx, userID, from, to, limit)
	}
	return nil, nil
}

func (m *mockUsageStore) UpsertSummary(ctx context.Context, summary *domain.UsageSummary) error {
	if m.upsertSummaryFn != nil {
		return m.upsertSummaryFn(ctx, summary)
	}
	return nil
}

func (m *mockUsageStore) RequestCounts(ctx context.Context, from, to time.Time) (map[uuid.UUID]int64, error) {
	if m.requestCountsFn != nil {
		return m.requestCountsFn(ctx, from, to)
	}
	return nil, nil
}

func (m *mockUsageStore) WithTx(tx *sql.Tx) store.UsageStore {
	return m
}

func (m *mockUsageStore) savedRecords() []*domain.UsageRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.UsageRecord, len(m.records))
	copy(out, m.records)
	return out
}

// mockAuditStore is an in-memory append-only store.AuditStore.
type mockAuditStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*domain.AuditRecord

	appendFn func(ctx context.Context, rec *domain.AuditRecord) error
}

var _ store.AuditStore = (*mockAuditStore)(nil)

func newMockAuditStore() *mockAuditStore {
	return &mockAuditStore{records: make(map[uuid.UUID]*domain.AuditRecord)}
}

func (m *mockAuditStore) Append(ctx context.Context, rec *domain.AuditRecord) error {
	if m.appendFn != nil {
		return m.appendFn(ctx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *rec
	m.records[rec.ID] = &clone
	return nil
}

func (m *mockAuditStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, store.ErrAuditRecordNotFound
	}
	clone := *rec
	return &clone, nil
}

func (m *mockAuditStore) List(ctx context.Context, from, to time.Time, limit int) ([]*domain.AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.AuditRecord
	for _, rec := range m.records {
		if !rec.RecordedAt.Before(from) && rec.RecordedAt.Before(to) {
			clone := *rec
			out = append(out, &clone)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *mockAuditStore) WithTx(tx *sql.Tx) store.AuditStore {
	return m
}

func (m *mockAuditStore) all() []*domain.AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.AuditRecord, 0, len(m.records))
	for _, rec := range m.records {
		clone := *rec
		out = append(out, &clone)
	}
	return out
}

var errSignatureMismatch = errors.New("signature mismatch")

// mockSigner is a deterministic signing.Signer for tests: the "signature"
// is the payload prefixed with a marker.
type mockSigner struct {
	signFn   func(payload []byte) ([]byte, error)
	verifyFn func(payload, sig []byte) error
}

func (m *mockSigner) Sign(payload []byte) ([]byte, error) {
	if m.signFn != nil {
		return m.signFn(payload)
	}
	return append([]byte("sig:"), payload...), nil
}

func (m *mockSigner) Verify(payload, sig []byte) error {
	if m.verifyFn != nil {
		return m.verifyFn(payload, sig)
	}
	expected := append([]byte("sig:"), payload...)
	if string(expected) != string(sig) {
		return errSignatureMismatch
	}
	return nil
}

func (m *mockSigner) PublicKeyPEM() ([]byte, error) {
	return []byte("-----BEGIN PUBLIC KEY-----\ntest\n-----END PUBLIC KEY-----\n"), nil
}
