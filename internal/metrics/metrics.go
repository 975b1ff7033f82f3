package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WebhookEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vendbot_webhook_events_total",
		Help: "Inbound payment notifications by outcome",
	}, []string{"outcome"})
	FulfillmentAnomalies = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vendbot_fulfillment_anomalies_total",
		Help: "Verified paid events that could not be resolved to a buyer and item",
	})
	DuplicateEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vendbot_duplicate_events_total",
		Help: "Verified paid events skipped because the link was already fulfilled",
	})
	Deliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vendbot_deliveries_total",
		Help: "Fulfillment sends by step and result",
	}, []string{"step", "result"})
	PaymentLinks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vendbot_payment_links_total",
		Help: "Payment link creation attempts by result",
	}, []string{"result"})
	VisualCodes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vendbot_visual_codes_total",
		Help: "Scannable codes attached to payment artifacts by source",
	}, []string{"source"})
	SaleEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vendbot_sale_events_total",
		Help: "Sale feed publishes by result",
	}, []string{"result"})
	GatewayLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vendbot_gateway_latency_seconds",
		Help:    "Payment gateway call latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)

func init() {
	prometheus.MustRegister(
		WebhookEvents,
		FulfillmentAnomalies,
		DuplicateEvents,
		Deliveries,
		PaymentLinks,
		VisualCodes,
		SaleEvents,
		GatewayLatency,
	)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
