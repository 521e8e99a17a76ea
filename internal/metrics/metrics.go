// Package metrics exposes the Prometheus collectors of the reservation
// service.  Collectors are package globals; Register adds them to the
// default registry once.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "meeting_room"

var (
	once sync.Once

	reservationCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_created_total",
			Help:      "Count of reservations created, by payment mode.",
		},
		[]string{"payment"},
	)

	reservationRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_rejected_total",
			Help:      "Count of reservation requests rejected, by reason.",
		},
		[]string{"reason"},
	)

	reservationCanceled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_canceled_total",
			Help:      "Count of reservations deleted.",
		},
	)

	tokenBurn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_burn_total",
			Help:      "Count of booking fee burns, by result.",
		},
		[]string{"result"},
	)

	paymentOrphaned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_orphaned_total",
			Help:      "Count of confirmed burns whose reservation could not be stored.",
		},
	)

	ledgerCall = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_call_seconds",
			Help:      "Latency of ledger node calls, by method.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			reservationCreated,
			reservationRejected,
			reservationCanceled,
			tokenBurn,
			paymentOrphaned,
			ledgerCall,
		)
	})
}

// IncReservationCreated counts a stored reservation; paid selects the
// "wallet" label over "none".
func IncReservationCreated(paid bool) {
	payment := "none"
	if paid {
		payment = "wallet"
	}
	reservationCreated.WithLabelValues(payment).Inc()
}

func IncReservationRejected(reason string) {
	reservationRejected.WithLabelValues(reason).Inc()
}

func IncReservationCanceled() {
	reservationCanceled.Inc()
}

func IncTokenBurn(result string) {
	tokenBurn.WithLabelValues(result).Inc()
}

func IncPaymentOrphaned() {
	paymentOrphaned.Inc()
}

// ObserveLedgerCall records the time elapsed since start for method.
func ObserveLedgerCall(method string, start time.Time) {
	ledgerCall.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
