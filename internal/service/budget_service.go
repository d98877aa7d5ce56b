package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lambda-platform/lambda-api/internal/domain"
	"github.com/lambda-platform/lambda-api/internal/store"
)

// BudgetStatus reports a user's consumption against their tier's monthly
// allowances for the current UTC calendar month.
type BudgetStatus struct {
	UserID         uuid.UUID   `json:"user_id"`
	Tier           domain.Tier `json:"tier"`
	PeriodStart    time.Time   `json:"period_start"`
	PeriodEnd      time.Time   `json:"period_end"`
	TokensUsed     int64       `json:"tokens_used"`
	TokensLimit    int64       `json:"tokens_limit"`
	CostCentsUsed  int64       `json:"cost_cents_used"`
	CostCentsLimit int64       `json:"cost_cents_limit"`
	Exceeded       bool        `json:"exceeded"`
}

// BudgetService tracks per-user usage against tier budgets.
type BudgetService interface {
	// RecordUsage appends a usage record and charges it against the user's
	// current period. Returns ErrBudgetExceeded if the period totals are over
	// the tier's budget after this usage; the usage is still recorded.
	RecordUsage(ctx context.Context, userID uuid.UUID, tier domain.Tier, endpoint string, tokens, costCents int64) error

	// Check returns the user's standing against their tier's monthly budget.
	Check(ctx context.Context, userID uuid.UUID, tier domain.Tier) (*BudgetStatus, error)

	// ResetExpiredPeriods drops cached totals belonging to past months and
	// audits the rollover. Called by the scheduler at month boundaries.
	ResetExpiredPeriods(ctx context.Context) error
}

// periodTotals is the cached consumption for one user in one period.
type periodTotals struct {
	periodStart time.Time
	tokens      int64
	costCents   int64
}

// BudgetServiceImpl implements BudgetService with an in-memory cache of
// period totals in front of the usage store. The cache is an optimization;
// the store remains the source of truth and repopulates the cache on miss
// or period rollover.
type BudgetServiceImpl struct {
	usageStore store.UsageStore
	auditor    AuditService
	logger     *slog.Logger

	mu    sync.Mutex
	cache map[uuid.UUID]*periodTotals

	timeFunc func() time.Time // Injectable for testing
}

// Ensure BudgetServiceImpl implements BudgetService
var _ BudgetService = (*BudgetServiceImpl)(nil)

// NewBudgetService creates a new BudgetService.
func NewBudgetService(usageStore store.UsageStore, auditor AuditService, logger *slog.Logger) *BudgetServiceImpl {
	return &BudgetServiceImpl{
		usageStore: usageStore,
		auditor:    auditor,
		logger:     logger.With("component", "budget_service"),
		cache:      make(map[uuid.UUID]*periodTotals),
		timeFunc:   time.Now,
	}
}

// RecordUsage appends a usage record and charges it against the cached
// period totals.
func (s *BudgetServiceImpl) RecordUsage(
	ctx context.Context,
	userID uuid.UUID,
	tier domain.Tier,
	endpoint string,
	tokens, costCents int64,
) error {
	rec, err := domain.NewUsageRecord(userID, endpoint, tokens, costCents)
	if err != nil {
		return fmt.Errorf("failed to build usage record: %w", err)
	}

	if err := s.usageStore.CreateRecord(ctx, rec); err != nil {
		s.logger.Error("failed to persist usage record",
			"error", err,
			"user_id", userID,
			"endpoint", endpoint)
		return fmt.Errorf("failed to record usage: %w", err)
	}

	totals, err := s.currentTotals(ctx, userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	totals.tokens += tokens
	totals.costCents += costCents
	overTokens := totals.tokens > tier.Limits().MonthlyTokens
	overCost := totals.costCents > tier.Limits().MonthlyCostCents
	s.mu.Unlock()

	if overTokens || overCost {
		return fmt.Errorf("%w: user %s on tier %s", ErrBudgetExceeded, userID, tier)
	}
	return nil
}

// Check returns the user's standing against their tier's monthly budget.
func (s *BudgetServiceImpl) Check(ctx context.Context, userID uuid.UUID, tier domain.Tier) (*BudgetStatus, error) {
	totals, err := s.currentTotals(ctx, userID)
	if err != nil {
		return nil, err
	}

	limits := tier.Limits()

	s.mu.Lock()
	status := &BudgetStatus{
		UserID:         userID,
		Tier:           tier,
		PeriodStart:    totals.periodStart,
		PeriodEnd:      domain.NextPeriodStart(totals.periodStart),
		TokensUsed:     totals.tokens,
		TokensLimit:    limits.MonthlyTokens,
		CostCentsUsed:  totals.costCents,
		CostCentsLimit: limits.MonthlyCostCents,
	}
	s.mu.Unlock()

	status.Exceeded = status.TokensUsed > status.TokensLimit ||
		status.CostCentsUsed > status.CostCentsLimit
	return status, nil
}

// ResetExpiredPeriods drops cached totals from past months and audits the
// rollover so the reset is visible in the signed log.
func (s *BudgetServiceImpl) ResetExpiredPeriods(ctx context.Context) error {
	current := domain.PeriodStart(s.timeFunc())

	s.mu.Lock()
	var dropped int
	for userID, totals := range s.cache {
		if totals.periodStart.Before(current) {
			delete(s.cache, userID)
			dropped++
		}
	}
	s.mu.Unlock()

	if dropped == 0 {
		return nil
	}

	s.logger.Info("budget periods rolled over",
		"dropped_users", dropped,
		"period_start", current)

	detail := fmt.Sprintf("rolled %d users into period starting %s",
		dropped, current.Format(time.RFC3339))
	if err := s.auditor.Record(ctx, "budget_service", domain.AuditActionBudgetReset, detail); err != nil {
		return fmt.Errorf("failed to audit budget reset: %w", err)
	}
	return nil
}

// currentTotals returns the cached totals for the user's current period,
// loading them from the store when the cache is cold or holds a past month.
func (s *BudgetServiceImpl) currentTotals(ctx context.Context, userID uuid.UUID) (*periodTotals, error) {
	now := s.timeFunc()
	periodStart := domain.PeriodStart(now)

	s.mu.Lock()
	totals, ok := s.cache[userID]
	if ok && totals.periodStart.Equal(periodStart) {
		s.mu.Unlock()
		return totals, nil
	}
	s.mu.Unlock()

	summary, err := s.usageStore.SumForPeriod(ctx, userID, periodStart, domain.NextPeriodStart(now))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Error("failed to load period usage",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to load period usage: %w", err)
	}

	totals = &periodTotals{periodStart: periodStart}
	if summary != nil {
		totals.tokens = summary.Tokens
		totals.costCents = summary.CostCents
	}

	s.mu.Lock()
	// Another goroutine may have refilled the entry; last writer wins, both
	// started from the same store snapshot.
	s.cache[userID] = totals
	s.mu.Unlock()

	return totals, nil
}
