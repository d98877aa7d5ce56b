package domain

import "fmt"

// Tier is one of the four fixed subscription tiers. The tier determines the
// per-minute request ceiling and the monthly token/cost budgets used by the
// rate limiter and the budget service.
type Tier string

// The four subscription tiers, in ascending order.
const (
	TierFree         Tier = "free"
	TierStandard     Tier = "standard"
	TierProfessional Tier = "professional"
	TierEnterprise   Tier = "enterprise"
)

// TierLimits holds the resource allowances attached to a tier.
type TierLimits struct {
	// RequestsPerMinute is the sliding-window request ceiling.
	RequestsPerMinute int

	// MonthlyTokens is the token budget for a UTC calendar month.
	MonthlyTokens int64

	// MonthlyCostCents is the spend budget for a UTC calendar month,
	// in integer cents to avoid float drift in accounting.
	MonthlyCostCents int64
}

// tierOrder fixes the upgrade ordering of the tiers.
var tierOrder = []Tier{TierFree, TierStandard, TierProfessional, TierEnterprise}

// tierLimits is the lookup table consulted by the rate limiter and budget
// service. Values are per-tier allowances, not guarantees.
var tierLimits = map[Tier]TierLimits{
	TierFree:         {RequestsPerMinute: 10, MonthlyTokens: 100_000, MonthlyCostCents: 0},
	TierStandard:     {RequestsPerMinute: 60, MonthlyTokens: 2_000_000, MonthlyCostCents: 2_900},
	TierProfessional: {RequestsPerMinute: 300, MonthlyTokens: 20_000_000, MonthlyCostCents: 19_900},
	TierEnterprise:   {RequestsPerMinute: 1200, MonthlyTokens: 200_000_000, MonthlyCostCents: 99_900},
}

// Valid reports whether t is one of the four known tiers.
func (t Tier) Valid() bool {
	_, ok := tierLimits[t]
	return ok
}

// Limits returns the resource allowances for the tier.
// Unknown tiers fall back to the free tier limits.
func (t Tier) Limits() TierLimits {
	if limits, ok := tierLimits[t]; ok {
		return limits
	}
	return tierLimits[TierFree]
}

// Rank returns the position of the tier in the upgrade ordering,
// with TierFree at 0. Unknown tiers rank below free.
func (t Tier) Rank() int {
	for i, tier := range tierOrder {
		if tier == t {
			return i
		}
	}
	return -1
}

// Tiers returns all tiers in ascending order.
func Tiers() []Tier {
	out := make([]Tier, len(tierOrder))
	copy(out, tierOrder)
	return out
}

// ValidateTierTransition checks whether a change from current to next is
// permitted. Users may move to any strictly higher tier; downgrades and
// same-tier changes require an admin actor.
func ValidateTierTransition(current, next Tier, byAdmin bool) error {
	if !current.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTier, current)
	}
	if !next.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTier, next)
	}
	if byAdmin {
		return nil
	}
	if next.Rank() <= current.Rank() {
		return fmt.Errorf("%w: %s -> %s requires admin", ErrInvalidTierTransition, current, next)
	}
	return nil
}

// TierForPlan maps a registration plan code to the initial tier.
// Unknown or empty plan codes start on the free tier.
func TierForPlan(plan string) Tier {
	switch plan {
	case "standard":
		return TierStandard
	case "professional", "pro":
		return TierProfessional
	case "enterprise":
		return TierEnterprise
	default:
		return TierFree
	}
}
