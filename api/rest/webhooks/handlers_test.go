package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/nxtgenia/miniaturia/miniaturia/billing"
)

const testSecret = "whsec_test"

type mockHandler struct {
	calls      int
	handleFunc func(ctx context.Context, event stripe.Event) (*billing.Result, error)
}

func (m *mockHandler) Handle(ctx context.Context, event stripe.Event) (*billing.Result, error) {
	m.calls++
	return m.handleFunc(ctx, event)
}

func newRouter(secret string, h EventHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	RegisterRoutes(r.Group("/api/v1"), billing.NewVerifier(secret), h)
	return r
}

func post(r *gin.Engine, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sign(payload []byte, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	}).Header
}

var payload = []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`)

func TestStripeHandler_Processed(t *testing.T) {
	h := &mockHandler{handleFunc: func(ctx context.Context, event stripe.Event) (*billing.Result, error) {
		return &billing.Result{EventID: event.ID, EventType: string(event.Type), Processed: true, Message: "credited 100"}, nil
	}}

	w := post(newRouter(testSecret, h), payload, sign(payload, testSecret))

	require.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Received)
	assert.True(t, resp.Processed)
	assert.Equal(t, "evt_1", resp.EventID)
	assert.Equal(t, "checkout.session.completed", resp.EventType)
	assert.Equal(t, 1, h.calls)
}

func TestStripeHandler_ProcessingFailureStillAcknowledged(t *testing.T) {
	h := &mockHandler{handleFunc: func(ctx context.Context, event stripe.Event) (*billing.Result, error) {
		return nil, fmt.Errorf("database down")
	}}

	w := post(newRouter(testSecret, h), payload, sign(payload, testSecret))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"received":true`)
	assert.Contains(t, w.Body.String(), `"processed":false`)
}

func TestStripeHandler_Rejections(t *testing.T) {
	h := &mockHandler{handleFunc: func(ctx context.Context, event stripe.Event) (*billing.Result, error) {
		return &billing.Result{Processed: true}, nil
	}}

	tests := []struct {
		name      string
		secret    string
		signature string
	}{
		{"missing signature", testSecret, ""},
		{"wrong secret", testSecret, sign(payload, "whsec_other")},
		{"garbage signature", testSecret, "t=1,v1=deadbeef"},
		{"no secret configured", "", sign(payload, testSecret)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(newRouter(tt.secret, h), payload, tt.signature)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	assert.Zero(t, h.calls, "unverified events must never reach the ledger")
}
