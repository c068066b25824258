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

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRazorpay_CreateRemoteOrder(t *testing.T) {
	t.Run("posts the amount in paise with basic auth", func(t *testing.T) {
		var got createOrderRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/orders", r.URL.Path)

			user, pass, ok := r.BasicAuth()
			require.True(t, ok)
			assert.Equal(t, "key_id", user)
			assert.Equal(t, "key_secret", pass)

			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "order_abc"})
		}))
		defer srv.Close()

		g := NewRazorpay(srv.URL, "key_id", "key_secret", time.Second)
		id, err := g.CreateRemoteOrder(context.Background(), decimal.RequireFromString("12980.50"), "INR", map[string]string{"orderId": "ord1"})
		require.NoError(t, err)

		assert.Equal(t, "order_abc", id)
		assert.EqualValues(t, 1298050, got.Amount)
		assert.Equal(t, "INR", got.Currency)
		assert.Equal(t, "ord1", got.Notes["orderId"])
	})

	t.Run("non-200 response surfaces the body snippet", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"description":"amount too small"}}`))
		}))
		defer srv.Close()

		g := NewRazorpay(srv.URL, "key_id", "key_secret", time.Second)
		_, err := g.CreateRemoteOrder(context.Background(), decimal.NewFromInt(1), "INR", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")
		assert.Contains(t, err.Error(), "amount too small")
	})

	t.Run("missing order id in response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		g := NewRazorpay(srv.URL, "key_id", "key_secret", time.Second)
		_, err := g.CreateRemoteOrder(context.Background(), decimal.NewFromInt(100), "INR", nil)
		assert.Error(t, err)
	})
}

func TestRazorpay_VerifySignature(t *testing.T) {
	g := NewRazorpay("", "key_id", "key_secret", time.Second)

	sign := func(orderID, paymentID string) string {
		mac := hmac.New(sha256.New, []byte("key_secret"))
		mac.Write([]byte(orderID + "|" + paymentID))
		return hex.EncodeToString(mac.Sum(nil))
	}

	assert.True(t, g.VerifySignature("order_abc", "pay_1", sign("order_abc", "pay_1")))
	assert.False(t, g.VerifySignature("order_abc", "pay_1", sign("order_abc", "pay_2")))
	assert.False(t, g.VerifySignature("order_abc", "pay_1", "not-hex-at-all"))
	assert.False(t, g.VerifySignature("order_abc", "pay_1", ""))
}
