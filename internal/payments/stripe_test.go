package payments_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"ai-image-editor-backend/internal/logging"
	"ai-image-editor-backend/internal/payments"
)

func TestCreateCheckoutSession(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		form = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1"}`))
	}))
	defer server.Close()

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(server.URL),
		HTTPClient:        server.Client(),
		MaxNetworkRetries: stripe.Int64(0),
	})
	gateway := payments.NewGateway(payments.GatewayConfig{
		SecretKey:  "sk_test_123",
		Currency:   "eur",
		PriceCents: 250,
		PublicURL:  "https://editor.example",
		Backend:    backend,
	}, logging.Nop())

	projectID, userID := uuid.New(), uuid.New()
	cs, err := gateway.CreateCheckoutSession(context.Background(), projectID, userID)
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", cs.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", cs.URL)

	assert.Equal(t, "payment", form.Get("mode"))
	assert.Equal(t, "https://editor.example/dashboard?session_id={CHECKOUT_SESSION_ID}", form.Get("success_url"))
	assert.Equal(t, "https://editor.example/dashboard", form.Get("cancel_url"))
	assert.Equal(t, "250", form.Get("line_items[0][price_data][unit_amount]"))
	assert.Equal(t, "eur", form.Get("line_items[0][price_data][currency]"))
	assert.Equal(t, "1", form.Get("line_items[0][quantity]"))
	assert.Equal(t, projectID.String(), form.Get("metadata[project_id]"))
	assert.Equal(t, userID.String(), form.Get("metadata[user_id]"))
}

func TestCreateCheckoutSessionNotConfigured(t *testing.T) {
	gateway := payments.NewGateway(payments.GatewayConfig{PriceCents: 250}, logging.Nop())
	_, err := gateway.CreateCheckoutSession(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, payments.ErrNotConfigured)
}
