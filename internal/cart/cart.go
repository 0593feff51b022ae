package cart

import (
	"errors"
	"sort"

	"github.com/grosirin/backend-grosir/internal/pricing"
)

// ErrNotFound indicates the requested cart could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrItemNotFound is returned when a command targets a product absent from the cart.
var ErrItemNotFound = errors.New("cart item not found")

// ErrInvalidQuantity is returned for raw quantities that cannot be accepted,
// such as a negative value on SetQuantity. The cart is left unchanged.
var ErrInvalidQuantity = errors.New("invalid quantity")

// Entry is a cart line owned exclusively by the Cart. Qty is always a
// positive multiple of the snapshot's OrderStep; a zero quantity means the
// entry is removed, never stored.
type Entry struct {
	ProductID string                 `json:"productId"`
	Qty       int                    `json:"qty"`
	Pricing   pricing.ProductPricing `json:"pricing"`
}

// Cart holds one customer session's entries plus the promotional state and
// the minimum-order gate. It is an explicit value owned by the session and
// passed to every command; nothing here is shared across sessions.
type Cart struct {
	ID           string           `json:"id"`
	Entries      map[string]Entry `json:"entries"`
	PromoCode    string           `json:"promoCode,omitempty"`
	PromoBps     int32            `json:"promoBps,omitempty"`
	MinimumOrder pricing.Money    `json:"minimumOrder"`
}

// MutationResult reports the outcome of an item command. Normalized is set
// when the stored quantity differs from the raw request so the UI can tell
// the customer why their input changed.
type MutationResult struct {
	Qty        int  `json:"qty"`
	Normalized bool `json:"normalized"`
	Removed    bool `json:"removed"`
}

// Totals is the aggregate view over all cart lines, recomputed in full from
// the entries on every read.
type Totals struct {
	Subtotal      pricing.Money `json:"subtotal"`
	TierDiscount  pricing.Money `json:"tierDiscount"`
	PromoDiscount pricing.Money `json:"promoDiscount"`
	GrandTotal    pricing.Money `json:"grandTotal"`
	MinimumMet    bool          `json:"minimumMet"`
}

// LineView pairs an entry with its computed line and upsell hint for display.
type LineView struct {
	ProductID string            `json:"productId"`
	Qty       int               `json:"qty"`
	Line      pricing.Line      `json:"line"`
	NextTier  *pricing.NextTier `json:"nextTier,omitempty"`
}

// New creates an empty cart for one session.
func New(id string, minimumOrder pricing.Money) *Cart {
	return &Cart{
		ID:           id,
		Entries:      map[string]Entry{},
		MinimumOrder: minimumOrder,
	}
}

// AddItem inserts a product with its quantity normalized to at least one
// order step. When the entry already exists the quantity is left alone and
// only the pricing snapshot is refreshed; SetQuantity changes amounts.
func (c *Cart) AddItem(productID string, info pricing.ProductPricing, requestedQty int) (MutationResult, error) {
	if existing, ok := c.Entries[productID]; ok {
		existing.Pricing = info
		existing.Qty = renormalize(existing.Qty, info.OrderStep)
		c.Entries[productID] = existing
		return MutationResult{Qty: existing.Qty}, nil
	}
	qty := pricing.NormalizeToStep(requestedQty, info.OrderStep)
	if qty == 0 {
		qty = info.OrderStep
	}
	c.Entries[productID] = Entry{ProductID: productID, Qty: qty, Pricing: info}
	return MutationResult{Qty: qty, Normalized: qty != requestedQty}, nil
}

// SetQuantity normalizes the raw quantity to the entry's step and stores it.
// Zero removes the entry; a negative raw value is rejected outright rather
// than clamped so the caller can surface a precise message.
func (c *Cart) SetQuantity(productID string, requestedQty int) (MutationResult, error) {
	entry, ok := c.Entries[productID]
	if !ok {
		return MutationResult{}, ErrItemNotFound
	}
	if requestedQty < 0 {
		return MutationResult{}, ErrInvalidQuantity
	}
	qty := pricing.NormalizeToStep(requestedQty, entry.Pricing.OrderStep)
	if qty == 0 {
		delete(c.Entries, productID)
		return MutationResult{Removed: true}, nil
	}
	entry.Qty = qty
	c.Entries[productID] = entry
	return MutationResult{Qty: qty, Normalized: qty != requestedQty}, nil
}

// RemoveItem deletes the entry and reports whether it existed.
func (c *Cart) RemoveItem(productID string) bool {
	if _, ok := c.Entries[productID]; !ok {
		return false
	}
	delete(c.Entries, productID)
	return true
}

// ApplyPromo attaches an already-resolved promotional discount. Resolution
// against the code table happens in the service layer; an unknown code never
// reaches this method.
func (c *Cart) ApplyPromo(code string, discountBps int32) {
	c.PromoCode = code
	c.PromoBps = discountBps
}

// ClearPromo resets both promotional fields.
func (c *Cart) ClearPromo() {
	c.PromoCode = ""
	c.PromoBps = 0
}

// Clear empties the cart and discards the promotional code.
func (c *Cart) Clear() {
	c.Entries = map[string]Entry{}
	c.ClearPromo()
}

// RefreshPricing replaces one entry's snapshot with fresh catalog data,
// re-normalizing the quantity if the order step changed. It reports whether
// the stored snapshot was stale.
func (c *Cart) RefreshPricing(productID string, info pricing.ProductPricing) bool {
	entry, ok := c.Entries[productID]
	if !ok {
		return false
	}
	stale := entry.Pricing.Version != info.Version
	entry.Pricing = info
	entry.Qty = renormalize(entry.Qty, info.OrderStep)
	c.Entries[productID] = entry
	return stale
}

// Lines derives the per-entry price computations in stable product order.
func (c *Cart) Lines() []LineView {
	views := make([]LineView, 0, len(c.Entries))
	for _, entry := range c.Entries {
		view := LineView{
			ProductID: entry.ProductID,
			Qty:       entry.Qty,
			Line:      pricing.ComputeLine(entry.Pricing.BaseUnitPrice, entry.Pricing.Tiers, entry.Qty),
		}
		if next, ok := pricing.NextTierInfo(entry.Qty, entry.Pricing.Tiers); ok {
			view.NextTier = &next
		}
		views = append(views, view)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ProductID < views[j].ProductID })
	return views
}

// Totals recomputes the aggregate from scratch. The promotional discount
// stacks multiplicatively on the post-tier total, so its percentage holds
// steady while its absolute amount follows the cart contents.
func (c *Cart) Totals() Totals {
	var subtotal, tierDiscount pricing.Money
	for _, entry := range c.Entries {
		line := pricing.ComputeLine(entry.Pricing.BaseUnitPrice, entry.Pricing.Tiers, entry.Qty)
		subtotal += entry.Pricing.BaseUnitPrice * pricing.Money(entry.Qty)
		tierDiscount += line.Savings
	}
	preCode := subtotal - tierDiscount
	promo := pricing.ApplyBps(preCode, c.PromoBps)
	grand := preCode - promo
	return Totals{
		Subtotal:      subtotal,
		TierDiscount:  tierDiscount,
		PromoDiscount: promo,
		GrandTotal:    grand,
		MinimumMet:    grand >= c.MinimumOrder,
	}
}

// renormalize keeps a stored quantity on the step grid after a snapshot
// refresh may have changed the step.
func renormalize(qty, step int) int {
	normalized := pricing.NormalizeToStep(qty, step)
	if normalized == 0 {
		normalized = step
	}
	return normalized
}
