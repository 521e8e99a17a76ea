package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(reservationCreated.WithLabelValues("wallet"))
	IncReservationCreated(true)
	assert.Equal(t, before+1, testutil.ToFloat64(reservationCreated.WithLabelValues("wallet")))

	before = testutil.ToFloat64(tokenBurn.WithLabelValues("insufficient_balance"))
	IncTokenBurn("insufficient_balance")
	assert.Equal(t, before+1, testutil.ToFloat64(tokenBurn.WithLabelValues("insufficient_balance")))

	before = testutil.ToFloat64(paymentOrphaned)
	IncPaymentOrphaned()
	assert.Equal(t, before+1, testutil.ToFloat64(paymentOrphaned))

	ObserveLedgerCall("balanceOf", time.Now().Add(-time.Second))
	assert.Equal(t, 1, testutil.CollectAndCount(ledgerCall))
}
