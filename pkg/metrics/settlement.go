package metrics

import "github.com/prometheus/client_golang/prometheus"

// Webhook outcomes recorded by SettlementMetrics.
const (
	OutcomeApplied          = "applied"
	OutcomeNoop             = "noop"
	OutcomeDuplicate        = "duplicate"
	OutcomeIgnoredEvent     = "ignored_event"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeOrderNotFound    = "order_not_found"
	OutcomeAmountMismatch   = "amount_mismatch"
	OutcomeError            = "error"
)

// SettlementMetrics tracks gateway webhook handling and checkout volume.
type SettlementMetrics struct {
	webhookEvents *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	ordersCreated prometheus.Counter
	casRetries    prometheus.Counter
}

// NewSettlementMetrics registers the settlement metrics on reg. A nil
// registerer yields a no-op recorder.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	m := &SettlementMetrics{
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crumbly_webhook_events_total",
			Help: "Gateway webhook deliveries by outcome.",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crumbly_settlement_transitions_total",
			Help: "Payment status transitions applied to orders.",
		}, []string{"payment_status"}),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crumbly_orders_created_total",
			Help: "Orders persisted by checkout.",
		}),
		casRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crumbly_settlement_cas_retries_total",
			Help: "Conditional order updates retried after losing a race.",
		}),
	}
	reg.MustRegister(m.webhookEvents, m.transitions, m.ordersCreated, m.casRetries)
	return m
}

func (m *SettlementMetrics) WebhookOutcome(outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *SettlementMetrics) Transition(paymentStatus string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(paymentStatus)).Inc()
}

func (m *SettlementMetrics) OrderCreated() {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.Inc()
}

func (m *SettlementMetrics) CASRetry() {
	if m == nil || m.casRetries == nil {
		return
	}
	m.casRetries.Inc()
}
