package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuantityNormalizedTotal counts cart mutations where the requested
	// quantity was rounded up to the product's order step.
	QuantityNormalizedTotal prometheus.Counter
	// PromoApplyTotal counts promotional code applications by outcome.
	PromoApplyTotal *prometheus.CounterVec
	// CartRepriceTotal counts entry snapshot refreshes by result.
	CartRepriceTotal *prometheus.CounterVec
	// OrdersPlacedTotal counts successful checkout hand-offs.
	OrdersPlacedTotal prometheus.Counter
	// CheckoutRejectedTotal counts checkout attempts rejected before order creation.
	CheckoutRejectedTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuantityNormalizedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_quantity_normalized_total",
			Help:      "Cart mutations whose quantity was rounded up to the order step.",
		})
		PromoApplyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promo_apply_total",
			Help:      "Promotional code application attempts by outcome.",
		}, []string{"result"})
		CartRepriceTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_reprice_total",
			Help:      "Cart entry pricing snapshot refreshes by result.",
		}, []string{"result"})
		OrdersPlacedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Orders created from a final cart snapshot.",
		})
		CheckoutRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_rejected_total",
			Help:      "Checkout attempts rejected before order creation.",
		}, []string{"reason"})

		mustRegisterCollector(reg, QuantityNormalizedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				QuantityNormalizedTotal = v
			}
		})
		mustRegisterCollector(reg, PromoApplyTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PromoApplyTotal = v
			}
		})
		mustRegisterCollector(reg, CartRepriceTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartRepriceTotal = v
			}
		})
		mustRegisterCollector(reg, OrdersPlacedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				OrdersPlacedTotal = v
			}
		})
		mustRegisterCollector(reg, CheckoutRejectedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutRejectedTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
