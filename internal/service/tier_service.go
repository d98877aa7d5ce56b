package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lambda-platform/lambda-api/internal/domain"
	"github.com/lambda-platform/lambda-api/internal/store"
)

// TierService manages subscription tier changes.
type TierService interface {
	// ChangeTier moves a user to a new tier, enforcing the transition rules:
	// users may only upgrade; admins may move anyone anywhere. The change is
	// recorded in the signed audit log.
	ChangeTier(ctx context.Context, actorID uuid.UUID, actorRole domain.Role, userID uuid.UUID, next domain.Tier) (*domain.User, error)
}

// TierServiceImpl implements the TierService interface.
type TierServiceImpl struct {
	userStore store.UserStore
	auditor   AuditService
	db        *sql.DB
	logger    *slog.Logger
	runTx     func(ctx context.Context, db *sql.DB, fn store.TxFn) error // Injectable for testing
}

// Ensure TierServiceImpl implements TierService
var _ TierService = (*TierServiceImpl)(nil)

// NewTierService creates a new TierService.
func NewTierService(userStore store.UserStore, auditor AuditService, db *sql.DB, logger *slog.Logger) *TierServiceImpl {
	return &TierServiceImpl{
		userStore: userStore,
		auditor:   auditor,
		db:        db,
		logger:    logger.With("component", "tier_service"),
		runTx:     store.RunInTransaction,
	}
}

// ChangeTier moves a user to a new tier inside a transaction, then audits
// the change.
func (s *TierServiceImpl) ChangeTier(
	ctx context.Context,
	actorID uuid.UUID,
	actorRole domain.Role,
	userID uuid.UUID,
	next domain.Tier,
) (*domain.User, error) {
	var user *domain.User

	err := s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.userStore.WithTx(tx)

		var err error
		user, err = txStore.GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to retrieve user for tier change: %w", err)
		}

		byAdmin := actorRole == domain.RoleAdmin
		if err := domain.ValidateTierTransition(user.Tier, next, byAdmin); err != nil {
			return err
		}

		if err := txStore.UpdateTier(ctx, userID, next); err != nil {
			return fmt.Errorf("failed to update tier: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTierTransition) || errors.Is(err, domain.ErrInvalidTier) {
			s.logger.Debug("tier change rejected",
				"user_id", userID,
				"actor_id", actorID,
				"error", err)
		} else {
			s.logger.Error("tier change failed",
				"error", err,
				"user_id", userID,
				"actor_id", actorID)
		}
		return nil, err
	}

	previous := user.Tier
	user.Tier = next

	s.logger.Info("tier changed",
		"user_id", userID,
		"previous_tier", previous,
		"new_tier", next,
		"actor_id", actorID)

	detail := fmt.Sprintf("user %s: %s -> %s by %s", userID, previous, next, actorID)
	if err := s.auditor.Record(ctx, actorID.String(), domain.AuditActionTierChanged, detail); err != nil {
		// The tier change committed; a missing audit entry is logged loudly
		// but does not roll it back.
		s.logger.Error("failed to audit tier change",
			"error", err,
			"user_id", userID)
	}

	return user, nil
}
