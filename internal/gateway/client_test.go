package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(ClientConfig{
		BaseURL:       srv.URL,
		APIToken:      "test-token",
		WebhookSecret: "test-secret",
		Timeout:       2 * time.Second,
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_MissingCredentials(t *testing.T) {
	_, err := NewClient(ClientConfig{BaseURL: "https://example.com"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewClient(ClientConfig{APIToken: "token"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestCreateCheckout_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req CheckoutRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ref-123", req.Reference)
		assert.Equal(t, "100.00", req.TotalAmount.Value)
		assert.Equal(t, "AED", req.TotalAmount.Currency)

		json.NewEncoder(w).Encode(map[string]string{
			"order_id":     "ord-1",
			"checkout_url": "https://pay.example.com/ord-1",
		})
	})

	resp, err := client.CreateCheckout(context.Background(), CheckoutRequest{
		Reference:   "ref-123",
		TotalAmount: FormatAmount(100, "AED"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-1", resp.OrderID)
	assert.Equal(t, "https://pay.example.com/ord-1", resp.CheckoutURL)
}

func TestAuthorize_StatusMapping(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/ord-1/authorise", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"status":        "authorised",
			"auto_captured": true,
		})
	})

	res, err := client.Authorize(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, StatusAuthorised, res.Status)
	assert.True(t, res.AutoCaptured)
}

func TestCancelOrder_Conflict(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{
			"old_state": "fully_captured",
			"message":   "order already captured",
		})
	})

	_, err := client.CancelOrder(context.Background(), "ord-1", FormatAmount(100, "AED"))
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, StatusFullyCaptured, conflict.OldState)
	assert.Contains(t, conflict.Message, "already captured")
}

func TestDo_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(ClientConfig{
		BaseURL:  srv.URL,
		APIToken: "test-token",
		Timeout:  50 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = client.GetOrder(context.Background(), "ord-1")
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestDo_Unauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.GetOrder(context.Background(), "ord-1")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestDo_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{
			"code":    "amount_too_low",
			"message": "minimum order amount not met",
		})
	})

	_, err := client.Capture(context.Background(), "ord-1", FormatAmount(1, "AED"))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "amount_too_low", apiErr.Code)
}

func TestVerifyWebhookSignature(t *testing.T) {
	client := newTestClient(t, nil)
	payload := []byte(`{"order_id":"ord-1","status":"fully_captured"}`)

	mac := hmac.New(sha256.New, []byte("test-secret"))
	mac.Write(payload)
	valid := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, client.VerifyWebhookSignature(payload, valid))
	assert.False(t, client.VerifyWebhookSignature(payload, "deadbeef"))
	assert.False(t, client.VerifyWebhookSignature([]byte("tampered"), valid))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, Amount{Value: "100.00", Currency: "AED"}, FormatAmount(100, "AED"))
	assert.Equal(t, Amount{Value: "49.90", Currency: "AED"}, FormatAmount(49.9, "AED"))
}
