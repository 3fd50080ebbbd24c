package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("/login", "POST", 200, 10*time.Millisecond)
	m.RecordRequest("/login", "POST", 200, 5*time.Millisecond)
	m.RecordGuardDecision("redirect_denied")
	m.RecordForcedLogout()
	m.RecordUpstream("GET", 401)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requests.WithLabelValues("/login", "POST", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.guardDecisions.WithLabelValues("redirect_denied")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.forcedLogouts))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.upstream.WithLabelValues("GET", "401")))
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.RecordGuardDecision("allow")
		m.RecordUpstream("GET", 0)
		m.RecordForcedLogout()
	})
}
