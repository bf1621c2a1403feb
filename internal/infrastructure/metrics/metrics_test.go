package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rent_payment_service/internal/domain/entities"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.IncInitiateCalls()
	m.IncInitiateCalls()
	m.IncStatusCalls()
	m.IncWebhookCalls()
	m.IncTimeoutSweeps()
	m.IncTransitions(entities.PaymentStatusSuccess)
	m.IncTransitions(entities.PaymentStatusFailed)
	m.IncTransitions(entities.PaymentStatusFailed)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.initiate))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.status))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.webhook))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.timeoutSweep))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("FAILED")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.IncWebhookCalls()
	m.ObserveHTTP(http.MethodGet, "/api/v1/health", "200", 0.01)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "payment_service_webhook_calls_total 1"))
	assert.True(t, strings.Contains(body, "payment_service_http_requests_total"))
}
