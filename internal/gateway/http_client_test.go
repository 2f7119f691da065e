package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitiateSendsSessionRequest(t *testing.T) {
	var got sessionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/sessions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(sessionResponse{SessionID: "sess_42", PaymentURL: "https://pay.example/sess_42"})
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "test-key")
	result, err := gw.Initiate(context.Background(), InitiateRequest{
		Amount:   decimal.RequireFromString("71.5"),
		Currency: "USD",
		OrderRef: "ORD-20260830-ABCD1234",
	})
	require.NoError(t, err)

	assert.Equal(t, "sess_42", result.SessionID)
	assert.Equal(t, "https://pay.example/sess_42", result.PaymentURL)
	assert.Equal(t, "71.50", got.Amount, "amount goes over the wire with two decimals")
	assert.Equal(t, "ORD-20260830-ABCD1234", got.OrderRef)
}

func TestInitiateRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "test-key")
	_, err := gw.Initiate(context.Background(), InitiateRequest{Amount: decimal.New(1, 0), Currency: "USD"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestVerifyFetchesSessionState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/sessions/sess_42", r.URL.Path)
		json.NewEncoder(w).Encode(sessionStatusResponse{Status: StatusCompleted, TransactionID: "txn_9"})
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "test-key")
	result, err := gw.Verify(context.Background(), "sess_42")
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, "txn_9", result.TransactionID)
}

func TestVerifyUnreachableGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // shut down before the call

	gw := NewHTTPGateway(srv.URL, "test-key")
	_, err := gw.Verify(context.Background(), "sess_42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
}
