package promo

import (
	"errors"
	"time"

	"github.com/grosirin/backend-grosir/internal/pricing"
)

var (
	// ErrUnknownCode is returned when the code does not resolve to any rule.
	ErrUnknownCode = errors.New("unknown promotional code")
	// ErrCodeInactive is returned when attempting to use a code before its window opens.
	ErrCodeInactive = errors.New("promotional code not active")
	// ErrCodeExpired is returned when the code's validity window has closed.
	ErrCodeExpired = errors.New("promotional code expired")
	// ErrMinimumSpendUnmet indicates the post-tier cart total did not meet the rule requirement.
	ErrMinimumSpendUnmet = errors.New("promotional code minimum spend not met")
)

// Rule captures the runtime constraints of a promotional code. The discount
// is expressed in basis points and stacks multiplicatively on the post-tier
// cart total.
type Rule struct {
	Code        string
	DiscountBps int32
	MinSpend    pricing.Money
	ValidFrom   *time.Time
	ValidTo     *time.Time
}

// Validate ensures the rule can be applied at the provided instant against
// the cart's post-tier total.
func (r Rule) Validate(now time.Time, preCodeTotal pricing.Money) error {
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return ErrCodeInactive
	}
	if r.ValidTo != nil && now.After(*r.ValidTo) {
		return ErrCodeExpired
	}
	if preCodeTotal < r.MinSpend {
		return ErrMinimumSpendUnmet
	}
	if r.DiscountBps <= 0 || r.DiscountBps >= 10000 {
		return ErrUnknownCode
	}
	return nil
}
