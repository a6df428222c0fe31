package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ShopMetrics tracks order conversion, webhook handling and inventory gaps.
type ShopMetrics struct {
	ordersCreated   *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
	stockAdjustGaps prometheus.Counter
	detachedFailure *prometheus.CounterVec
}

// NewShopMetrics registers the shop metrics on the provided registerer. A nil
// registerer yields a no-op recorder.
func NewShopMetrics(reg prometheus.Registerer) *ShopMetrics {
	if reg == nil {
		return &ShopMetrics{}
	}
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_orders_created_total",
		Help: "Orders created, by payment method.",
	}, []string{"payment_method"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_webhook_events_total",
		Help: "Payment gateway webhook events, by type and outcome.",
	}, []string{"type", "outcome"})
	stockAdjustGaps := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shop_stock_adjust_gaps_total",
		Help: "Stock adjustments that could not be applied after an order committed.",
	})
	detachedFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_detached_task_failures_total",
		Help: "Background tasks that failed after the request was acknowledged.",
	}, []string{"task"})
	reg.MustRegister(ordersCreated, webhookEvents, stockAdjustGaps, detachedFailure)
	return &ShopMetrics{
		ordersCreated:   ordersCreated,
		webhookEvents:   webhookEvents,
		stockAdjustGaps: stockAdjustGaps,
		detachedFailure: detachedFailure,
	}
}

// IncOrderCreated counts a committed order.
func (m *ShopMetrics) IncOrderCreated(paymentMethod string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

// IncWebhookEvent counts a received webhook event.
func (m *ShopMetrics) IncWebhookEvent(eventType, outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// AddStockAdjustGaps records n stock/sold updates that did not apply.
func (m *ShopMetrics) AddStockAdjustGaps(n int) {
	if m == nil || m.stockAdjustGaps == nil || n <= 0 {
		return
	}
	m.stockAdjustGaps.Add(float64(n))
}

// IncDetachedFailure counts a failed background task.
func (m *ShopMetrics) IncDetachedFailure(task string) {
	if m == nil || m.detachedFailure == nil {
		return
	}
	m.detachedFailure.WithLabelValues(normalizeLabel(task)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
