package httpclient

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rent_payment_service/internal/infrastructure/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"message":"upstream down"}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := New(srv.URL+"/", time.Second)

	require.NoError(t, Check(client.R().Get("/ok")))

	err := Check(client.R().Get("/fail"))
	var se *retry.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Equal(t, "upstream down", Message(se.Body))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Invalid API Key", Message(`{"message":"Invalid API Key","status":"failed"}`))
	assert.Equal(t, "Not authenticated", Message(`{"detail":"Not authenticated"}`))
	assert.Equal(t, `{"email":["required"]}`, Message(`{"message":{"email":["required"]}}`))
	assert.Equal(t, "plain text", Message(" plain text "))
}
