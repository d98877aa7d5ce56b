package api

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lambda-platform/lambda-api/internal/domain"
	"github.com/lambda-platform/lambda-api/internal/service"
	"github.com/lambda-platform/lambda-api/internal/service/auth"
	"github.com/lambda-platform/lambda-api/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockUserStore implements store.UserStore with overridable functions.
type mockUserStore struct {
	createFn     func(ctx context.Context, user *domain.User) error
	getByIDFn    func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	getByEmailFn func(ctx context.Context, email string) (*domain.User, error)
	updateTierFn func(ctx context.Context, id uuid.UUID, tier domain.Tier) error
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

func (m *mockUserStore) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (m *mockUserStore) WithTx(tx *sql.Tx) store.UserStore { return m }

// mockJWTService implements auth.JWTService with overridable functions.
type mockJWTService struct {
	generateTokenFn        func(ctx context.Context, user *domain.User) (string, error)
	validateTokenFn        func(ctx context.Context, tokenString string) (*auth.Claims, error)
	generateRefreshFn      func(ctx context.Context, user *domain.User) (string, error)
	validateRefreshTokenFn func(ctx context.Context, tokenString string) (*auth.Claims, error)
}

var _ auth.JWTService = (*mockJWTService)(nil)

func (m *mockJWTService) GenerateToken(ctx context.Context, user *domain.User) (string, error) {
	if m.generateTokenFn != nil {
		return m.generateTokenFn(ctx, user)
	}
	return "access-token", nil
}

func (m *mockJWTService) ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	if m.validateTokenFn != nil {
		return m.validateTokenFn(ctx, tokenString)
	}
	return nil, auth.ErrInvalidToken
}

func (m *mockJWTService) GenerateRefreshToken(ctx context.Context, user *domain.User) (string, error) {
	if m.generateRefreshFn != nil {
		return m.generateRefreshFn(ctx, user)
	}
	return "refresh-token", nil
}

func (m *mockJWTService) ValidateRefreshToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	if m.validateRefreshTokenFn != nil {
		return m.validateRefreshTokenFn(ctx, tokenString)
	}
	return nil, auth.ErrInvalidRefreshToken
}

// mockPasswordVerifier implements auth.PasswordVerifier.
type mockPasswordVerifier struct {
	compareFn func(hashedPassword, password string) error
}

var _ auth.PasswordVerifier = (*mockPasswordVerifier)(nil)

func (m *mockPasswordVerifier) Compare(hashedPassword, password string) error {
	if m.compareFn != nil {
		return m.compareFn(hashedPassword, password)
	}
	return nil
}

// mockTierService implements service.TierService.
type mockTierService struct {
	changeTierFn func(ctx context.Context, actorID uuid.UUID, actorRole domain.Role, userID uuid.UUID, next domain.Tier) (*domain.User, error)
}

var _ service.TierService = (*mockTierService)(nil)

func (m *mockTierService) ChangeTier(ctx context.Context, actorID uuid.UUID, actorRole domain.Role, userID uuid.UUID, next domain.Tier) (*domain.User, error) {
	if m.changeTierFn != nil {
		return m.changeTierFn(ctx, actorID, actorRole, userID, next)
	}
	return nil, domain.ErrInvalidTierTransition
}

// mockAuditService implements service.AuditService and records calls.
type mockAuditService struct {
	recordFn func(ctx context.Context, actor, action, detail string) error
	verifyFn func(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error)
	listFn   func(ctx context.Context, from, to time.Time, limit int) ([]*domain.AuditRecord, error)

	recorded []auditCall
}

type auditCall struct {
	actor  string
	action string
	detail string
}

var _ service.AuditService = (*mockAuditService)(nil)

func (m *mockAuditService) Record(ctx context.Context, actor, action, detail string) error {
	m.recorded = append(m.recorded, auditCall{actor: actor, action: action, detail: detail})
	if m.recordFn != nil {
		return m.recordFn(ctx, actor, action, detail)
	}
	return nil
}

func (m *mockAuditService) Verify(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error) {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, id)
	}
	return nil, store.ErrAuditRecordNotFound
}

func (m *mockAuditService) List(ctx context.Context, from, to time.Time, limit int) ([]*domain.AuditRecord, error) {
	if m.listFn != nil {
		return m.listFn(ctx, from, to, limit)
	}
	return nil, nil
}

// mockBudgetService implements service.BudgetService.
type mockBudgetService struct {
	recordUsageFn func(ctx context.Context, userID uuid.UUID, tier domain.Tier, endpoint string, tokens, costCents int64) error
	checkFn       func(ctx context.Context, userID uuid.UUID, tier domain.Tier) (*service.BudgetStatus, error)
}

var _ service.BudgetService = (*mockBudgetService)(nil)

func (m *mockBudgetService) RecordUsage(ctx context.Context, userID uuid.UUID, tier domain.Tier, endpoint string, tokens, costCents int64) error {
	if m.recordUsageFn != nil {
		return m.recordUsageFn(ctx, userID, tier, endpoint, tokens, costCents)
	}
	return nil
}

func (m *mockBudgetService) Check(ctx context.Context, userID uuid.UUID, tier domain.Tier) (*service.BudgetStatus, error) {
	if m.checkFn != nil {
		return m.checkFn(ctx, userID, tier)
	}
	return &service.BudgetStatus{UserID: userID, Tier: tier}, nil
}

func (m *mockBudgetService) ResetExpiredPeriods(ctx context.Context) error { return nil }

// mockUsageStore implements store.UsageStore.
type mockUsageStore struct {
	listRecordsFn func(ctx context.Context, userID uuid.UUID, from, to time.Time, limit int) ([]*domain.UsageRecord, error)
}

var _ store.UsageStore = (*mockUsageStore)(nil)

func (m *mockUsageStore) CreateRecord(ctx context.Context, rec *domain.UsageRecord) error { return nil }

func (m *mockUsageStore) SumForPeriod(ctx context.Context, userID uuid.UUID, from, to time.Time) (*domain.UsageSummary, error) {
	return &domain.UsageSummary{UserID: userID}, nil
}

func (m *mockUsageStore) ListRecords(ctx context.Context, userID uuid.UUID, from, to time.Time, limit int) ([]*domain.UsageRecord, error) {
	if m.listRecordsFn != nil {
		return m.listRecordsFn(ctx, userID, from, to, limit)
	}
	return nil, nil
}

func (m *mockUsageStore) UpsertSummary(ctx context.Context, summary *domain.UsageSummary) error {
	return nil
}

func (m *mockUsageStore) RequestCounts(ctx context.Context, from, to time.Time) (map[uuid.UUID]int64, error) {
	return nil, nil
}

func (m *mockUsageStore) WithTx(tx *sql.Tx) store.UsageStore { return m }
