package types

import (
	"errors"
	"fmt"
	"strings"
)

// Tier is the subscription level of an owner.
type Tier string

const (
	TierFree         Tier = "free"
	TierStarter      Tier = "starter"
	TierProfessional Tier = "professional"
	TierAgency       Tier = "agency"
)

// Unlimited is the limit reported for tiers without a portfolio cap.
const Unlimited = -1

// ErrUnknownTier is returned by ParseTier for unrecognised names.
var ErrUnknownTier = errors.New("go-portfolio: unknown subscription tier")

// ParseTier normalizes a tier name.
func ParseTier(raw string) (Tier, error) {
	tier := Tier(strings.ToLower(strings.TrimSpace(raw)))
	if !tier.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, raw)
	}
	return tier, nil
}

// Valid reports whether the tier is one of the known levels.
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierStarter, TierProfessional, TierAgency:
		return true
	default:
		return false
	}
}

// PortfolioLimit returns how many portfolios the tier may own, or Unlimited.
// Unknown tiers get the free allowance.
func (t Tier) PortfolioLimit() int {
	switch t {
	case TierStarter:
		return 1
	case TierProfessional:
		return 5
	case TierAgency:
		return Unlimited
	default:
		return 1
	}
}

func (t Tier) String() string { return string(t) }
