// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	BidsIngested     *prometheus.CounterVec
	BidsRejected     *prometheus.CounterVec
	IngestErrors     *prometheus.CounterVec
	SnipedExtensions prometheus.Counter

	// Lifecycle metrics
	AuctionsClosed prometheus.Counter
	SetsClosed     prometheus.Counter
	BuyoutsTotal   prometheus.Counter

	// Dispatcher metrics
	EventsQueued    *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec
	EventDeliveries *prometheus.CounterVec

	// Scheduler metrics
	SchedulerTicks    *prometheus.CounterVec
	SchedulerSkips    *prometheus.CounterVec
	InvoicesGenerated prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "comic_auction"
	}

	return &Metrics{
		BidsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "bids_ingested_total",
			Help:      "Total number of bids accepted, by source and classification",
		}, []string{"source", "classification"}),
		BidsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "bids_rejected_total",
			Help:      "Total number of bids rejected, by source and classification",
		}, []string{"source", "classification"}),
		IngestErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "errors_total",
			Help:      "Total number of ingestion errors by type",
		}, []string{"error_type"}),
		SnipedExtensions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "sniped_extensions_total",
			Help:      "Total number of anti-sniper deadline extensions",
		}),

		AuctionsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "auctions_closed_total",
			Help:      "Total number of auctions closed",
		}),
		SetsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "sets_closed_total",
			Help:      "Total number of auction sets closed",
		}),
		BuyoutsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "buyouts_total",
			Help:      "Total number of buy-now bids",
		}),

		EventsQueued: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "events_queued_total",
			Help:      "Total number of domain events queued for delivery",
		}, []string{"kind"}),
		EventsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "events_dropped_total",
			Help:      "Total number of domain events dropped on a full queue",
		}, []string{"kind"}),
		EventDeliveries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "deliveries_total",
			Help:      "Total number of sink deliveries by outcome",
		}, []string{"sink", "kind", "outcome"}),

		SchedulerTicks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "ticks_total",
			Help:      "Total number of scheduler ticks by task",
		}, []string{"task"}),
		SchedulerSkips: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "skips_total",
			Help:      "Total number of scheduler ticks skipped because the previous one was still running",
		}, []string{"task"}),
		InvoicesGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "invoices_generated_total",
			Help:      "Total number of invoices generated by the sweep",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordBidIngested increments the accepted-bid counter.
func RecordBidIngested(source, classification string) {
	DefaultMetrics.BidsIngested.WithLabelValues(source, classification).Inc()
}

// RecordBidRejected increments the rejected-bid counter.
func RecordBidRejected(source, classification string) {
	DefaultMetrics.BidsRejected.WithLabelValues(source, classification).Inc()
}

// RecordIngestError records an ingestion error.
func RecordIngestError(errorType string) {
	DefaultMetrics.IngestErrors.WithLabelValues(errorType).Inc()
}

// RecordSnipedExtension increments the anti-sniper extension counter.
func RecordSnipedExtension() {
	DefaultMetrics.SnipedExtensions.Inc()
}

// RecordAuctionClosed increments the closed-auction counter.
func RecordAuctionClosed() {
	DefaultMetrics.AuctionsClosed.Inc()
}

// RecordSetClosed increments the closed-set counter.
func RecordSetClosed() {
	DefaultMetrics.SetsClosed.Inc()
}

// RecordBuyout increments the buyout counter.
func RecordBuyout() {
	DefaultMetrics.BuyoutsTotal.Inc()
}

// RecordEventQueued increments the queued-event counter.
func RecordEventQueued(kind string) {
	DefaultMetrics.EventsQueued.WithLabelValues(kind).Inc()
}

// RecordEventDropped increments the dropped-event counter.
func RecordEventDropped(kind string) {
	DefaultMetrics.EventsDropped.WithLabelValues(kind).Inc()
}

// RecordEventDelivery records one sink delivery outcome.
func RecordEventDelivery(sink, kind, outcome string) {
	DefaultMetrics.EventDeliveries.WithLabelValues(sink, kind, outcome).Inc()
}

// RecordSchedulerTick records a scheduler tick for a task.
func RecordSchedulerTick(task string) {
	DefaultMetrics.SchedulerTicks.WithLabelValues(task).Inc()
}

// RecordSchedulerSkip records a skipped scheduler tick for a task.
func RecordSchedulerSkip(task string) {
	DefaultMetrics.SchedulerSkips.WithLabelValues(task).Inc()
}

// RecordInvoiceGenerated increments the generated-invoice counter.
func RecordInvoiceGenerated() {
	DefaultMetrics.InvoicesGenerated.Inc()
}
