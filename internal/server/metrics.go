package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Domain metrics beyond the generic HTTP counters in middleware.go,
// continuing the teacher's incrementX counter-helper convention.
var (
	invoicesIssuedCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "invoices_issued_total",
			Help: "Total number of x402 payment invoices issued.",
		},
	)

	paymentsConfirmedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_confirmed_total",
			Help: "Total number of payment proofs verified, by result.",
		},
		[]string{"result"},
	)

	federationQueriesCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "federation_queries_total",
			Help: "Total number of federated queries dispatched, by result.",
		},
		[]string{"result"},
	)

	provenanceItemsCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provenance_items_total",
			Help: "Total number of provenance chain items appended, by kind.",
		},
		[]string{"kind"},
	)
)

// metricsHandler exposes Prometheus metrics for scraping. Returned as
// a constructor so it can be registered through the same handle()
// wiring every other route uses.
func metricsHandler() http.HandlerFunc {
	delegate := promhttp.Handler()
	return func(w http.ResponseWriter, r *http.Request) {
		delegate.ServeHTTP(w, r)
	}
}

func incrementInvoiceIssued() {
	invoicesIssuedCount.Inc()
}

func incrementPaymentConfirmed(result string) {
	paymentsConfirmedCount.WithLabelValues(result).Inc()
}

func incrementFederationQuery(result string) {
	federationQueriesCount.WithLabelValues(result).Inc()
}

func incrementProvenanceItem(kind string) {
	provenanceItemsCount.WithLabelValues(kind).Inc()
}
