package lifecycle

import (
	"fmt"

	"github.com/goliatone/go-portfolio/pkg/types"
)

// QuotaExceededError reports that an owner reached the portfolio limit of
// their tier.
type QuotaExceededError struct {
	Tier  types.Tier
	Limit int
	Count int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("go-portfolio: portfolio quota exceeded for %s tier (limit %d, have %d)", e.Tier, e.Limit, e.Count)
}

// Is matches types.ErrQuotaExceeded.
func (e *QuotaExceededError) Is(target error) bool {
	return target == types.ErrQuotaExceeded
}

// Allowed reports whether an owner holding count portfolios may create one more.
func Allowed(tier types.Tier, count int) bool {
	limit := tier.PortfolioLimit()
	return limit == types.Unlimited || count < limit
}

// CheckQuota returns a *QuotaExceededError when the create must be refused.
func CheckQuota(tier types.Tier, count int) error {
	if Allowed(tier, count) {
		return nil
	}
	return &QuotaExceededError{Tier: tier, Limit: tier.PortfolioLimit(), Count: count}
}

// QuotaStatus is the dashboard readout of an owner's allowance.
type QuotaStatus struct {
	Tier      types.Tier `json:"tier"`
	Limit     int        `json:"limit"`
	Count     int        `json:"count"`
	Remaining int        `json:"remaining"`
	CanCreate bool       `json:"canCreate"`
}

// NewQuotaStatus builds the readout. Limit and Remaining are types.Unlimited
// for tiers without a cap.
func NewQuotaStatus(tier types.Tier, count int) QuotaStatus {
	limit := tier.PortfolioLimit()
	status := QuotaStatus{
		Tier:      tier,
		Limit:     limit,
		Count:     count,
		Remaining: types.Unlimited,
		CanCreate: Allowed(tier, count),
	}
	if limit != types.Unlimited {
		status.Remaining = max(limit-count, 0)
	}
	return status
}
