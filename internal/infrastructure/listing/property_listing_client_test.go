package listing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"rent_payment_service/internal/domain/entities"
	"rent_payment_service/internal/infrastructure/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyListingClient_ConfirmPayment(t *testing.T) {
	exec := retry.NewExecutor(retry.Policy{Attempts: 3, Delay: time.Millisecond}, nil)

	t.Run("posts the confirmation with the service key", func(t *testing.T) {
		var got confirmRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/payments/confirm", r.URL.Path)
			assert.Equal(t, "svc-key", r.Header.Get("X-API-Key"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		c := NewPropertyListingClient(srv.URL, "svc-key", time.Second, exec, nil)
		require.NoError(t, c.ConfirmPayment(context.Background(), "prop-1", "pay-1", entities.PaymentStatusSuccess))
		assert.Equal(t, confirmRequest{PropertyID: "prop-1", PaymentID: "pay-1", Status: "SUCCESS"}, got)
	})

	t.Run("retries server errors and surfaces the failure", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := NewPropertyListingClient(srv.URL, "svc-key", time.Second, exec, nil)
		err := c.ConfirmPayment(context.Background(), "prop-1", "pay-1", entities.PaymentStatusFailed)
		assert.Error(t, err)
		assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))
		defer srv.Close()

		c := NewPropertyListingClient(srv.URL, "svc-key", time.Second, exec, nil)
		assert.Error(t, c.ConfirmPayment(context.Background(), "prop-1", "pay-1", entities.PaymentStatusSuccess))
		assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	})
}
