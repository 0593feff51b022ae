package pricing

import "sort"

// Money represents a monetary value stored in minor units.
type Money = int64

// Tier is a single volume-discount breakpoint: orders of FromQty units or
// more receive DiscountBps off the base unit price.
type Tier struct {
	FromQty     int   `json:"fromQty"`
	DiscountBps int32 `json:"discountBps"`
}

// ProductPricing is the catalog snapshot the engine prices against. Version
// tracks the catalog row revision so cart entries can detect stale snapshots.
type ProductPricing struct {
	BaseUnitPrice Money  `json:"baseUnitPrice"`
	OrderStep     int    `json:"orderStep"`
	Tiers         []Tier `json:"tiers"`
	Version       int64  `json:"version"`
}

// Line is the priced outcome for one product at one quantity.
type Line struct {
	UnitPrice   Money `json:"unitPrice"`
	Total       Money `json:"total"`
	Savings     Money `json:"savings"`
	DiscountBps int32 `json:"discountBps"`
}

// NextTier describes the first unreached discount breakpoint, used for
// upsell messaging only.
type NextTier struct {
	MissingUnits int   `json:"missingUnits"`
	DiscountBps  int32 `json:"discountBps"`
}

// NormalizeToStep rounds a requested quantity up to the nearest multiple of
// the product's order step. Non-positive requests normalize to zero; callers
// that need a strictly positive default substitute the step themselves.
func NormalizeToStep(requested, step int) int {
	if requested <= 0 {
		return 0
	}
	if step <= 1 {
		return requested
	}
	remainder := requested % step
	if remainder == 0 {
		return requested
	}
	return requested + step - remainder
}

// SelectTier returns the tier with the greatest FromQty not exceeding qty.
// The input slice is never mutated; tables may arrive unsorted. When
// duplicate FromQty values slip past ingestion validation, the last one
// after sorting wins.
func SelectTier(qty int, tiers []Tier) (Tier, bool) {
	sorted := sortedTiers(tiers)
	var (
		selected Tier
		found    bool
	)
	for _, t := range sorted {
		if t.FromQty <= qty {
			selected = t
			found = true
		}
	}
	return selected, found
}

// ComputeLine prices a quantity of one product against its tier table.
// Arithmetic stays in integer minor units; the discounted unit price is
// rounded half-up once, then extended, so savings never drift from
// base*qty - total.
func ComputeLine(baseUnitPrice Money, tiers []Tier, qty int) Line {
	if qty <= 0 {
		return Line{}
	}
	var bps int32
	if tier, ok := SelectTier(qty, tiers); ok {
		bps = tier.DiscountBps
	}
	unit := discountedUnit(baseUnitPrice, bps)
	total := unit * Money(qty)
	return Line{
		UnitPrice:   unit,
		Total:       total,
		Savings:     baseUnitPrice*Money(qty) - total,
		DiscountBps: bps,
	}
}

// NextTierInfo reports the first tier whose threshold exceeds qty. The
// second return value is false when the quantity already sits at or past
// the top tier.
func NextTierInfo(qty int, tiers []Tier) (NextTier, bool) {
	for _, t := range sortedTiers(tiers) {
		if t.FromQty > qty {
			return NextTier{MissingUnits: t.FromQty - qty, DiscountBps: t.DiscountBps}, true
		}
	}
	return NextTier{}, false
}

// ApplyBps applies a basis-point discount to an amount, rounding half-up.
func ApplyBps(amount Money, bps int32) Money {
	if amount <= 0 || bps <= 0 {
		return 0
	}
	return (amount*Money(bps) + 5000) / 10000
}

func discountedUnit(base Money, bps int32) Money {
	if base <= 0 {
		return 0
	}
	if bps <= 0 {
		return base
	}
	return (base*Money(10000-bps) + 5000) / 10000
}

func sortedTiers(tiers []Tier) []Tier {
	if len(tiers) < 2 {
		return tiers
	}
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].FromQty < sorted[j].FromQty })
	return sorted
}
