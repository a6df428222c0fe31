package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/shopcore-backend/internal/orders"
	stripewebhook "github.com/angelmondragon/shopcore-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/shopcore-backend/pkg/logger"
)

const testSecret = "whsec_test"

func TestStripeWebhook_CreatesOrderOnceForReplayedEvent(t *testing.T) {
	cartID := uuid.New()
	payload, header := buildSignedSessionEvent(t, cartID, stripe.CheckoutSessionPaymentStatusPaid, testSecret)

	creator := &recordingCreator{}
	handler, dispatcher := newPipeline(t, creator)

	rec := post(handler, payload, header)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"data":{"received":true}}`, rec.Body.String())

	replay := post(handler, payload, header)
	require.Equal(t, http.StatusOK, replay.Code)

	dispatcher.Wait()
	payments := creator.snapshot()
	require.Len(t, payments, 1)
	assert.Equal(t, cartID.String(), payments[0].CartID)
	assert.Equal(t, "buyer@example.com", payments[0].CustomerEmail)
	assert.Equal(t, int64(8000), payments[0].AmountTotalMinor)
	assert.Equal(t, "Cairo", payments[0].ShippingAddress.City)
}

func TestStripeWebhook_InvalidSignatureCreatesNothing(t *testing.T) {
	payload, _ := buildSignedSessionEvent(t, uuid.New(), stripe.CheckoutSessionPaymentStatusPaid, testSecret)
	_, forged := buildSignedSessionEvent(t, uuid.New(), stripe.CheckoutSessionPaymentStatusPaid, "whsec_other")

	creator := &recordingCreator{}
	handler, dispatcher := newPipeline(t, creator)

	for _, header := range []string{"t=1,v1=invalid", forged} {
		rec := post(handler, payload, header)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}

	rec := post(handler, payload, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	dispatcher.Wait()
	assert.Empty(t, creator.snapshot())
}

func TestStripeWebhook_OversizedPayloadRejected(t *testing.T) {
	payload := bytes.Repeat([]byte("a"), int(maxPayloadBytes)+1)
	header := buildStripeSignatureHeader(payload, testSecret, time.Now().Unix())

	creator := &recordingCreator{}
	handler, dispatcher := newPipeline(t, creator)

	rec := post(handler, payload, header)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "PAYLOAD_TOO_LARGE")

	dispatcher.Wait()
	assert.Empty(t, creator.snapshot())
}

func TestStripeWebhook_UnpaidSessionIgnored(t *testing.T) {
	payload, header := buildSignedSessionEvent(t, uuid.New(), stripe.CheckoutSessionPaymentStatusUnpaid, testSecret)

	creator := &recordingCreator{}
	handler, dispatcher := newPipeline(t, creator)

	rec := post(handler, payload, header)
	require.Equal(t, http.StatusOK, rec.Code)

	dispatcher.Wait()
	assert.Empty(t, creator.snapshot())
}

func TestStripeWebhook_FailedTaskReleasesClaimForRetry(t *testing.T) {
	payload, header := buildSignedSessionEvent(t, uuid.New(), stripe.CheckoutSessionPaymentStatusPaid, testSecret)

	creator := &recordingCreator{failures: 1}
	handler, dispatcher := newPipeline(t, creator)

	require.Equal(t, http.StatusOK, post(handler, payload, header).Code)
	dispatcher.Wait()
	assert.Empty(t, creator.snapshot())

	require.Equal(t, http.StatusOK, post(handler, payload, header).Code)
	dispatcher.Wait()
	assert.Len(t, creator.snapshot(), 1)
}

func TestStripeWebhook_ServiceErrorReleasesClaim(t *testing.T) {
	payload, header := buildSignedSessionEvent(t, uuid.New(), stripe.CheckoutSessionPaymentStatusPaid, testSecret)

	guard, err := stripewebhook.NewIdempotencyGuard(newInMemoryStore(), time.Minute, "stripe-webhook")
	require.NoError(t, err)
	svc := &failingService{err: errors.New("boom")}
	handler := StripeWebhook(svc, &fakeSigningClient{secret: testSecret}, guard, nil)

	assert.Equal(t, http.StatusInternalServerError, post(handler, payload, header).Code)
	assert.Equal(t, http.StatusInternalServerError, post(handler, payload, header).Code)
	assert.Equal(t, 2, svc.calls)
}

func newPipeline(t *testing.T, creator *recordingCreator) (http.HandlerFunc, *stripewebhook.Dispatcher) {
	t.Helper()
	guard, err := stripewebhook.NewIdempotencyGuard(newInMemoryStore(), time.Minute, "stripe-webhook")
	require.NoError(t, err)
	dispatcher := stripewebhook.NewDispatcher(5*time.Second, logger.Nop())
	svc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Orders:     creator,
		Dispatcher: dispatcher,
		Guard:      guard,
		Logger:     logger.Nop(),
	})
	require.NoError(t, err)
	return StripeWebhook(svc, &fakeSigningClient{secret: testSecret}, guard, logger.Nop()), dispatcher
}

func post(handler http.Handler, payload []byte, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	if header != "" {
		req.Header.Set("Stripe-Signature", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func buildSignedSessionEvent(t *testing.T, cartID uuid.UUID, status stripe.CheckoutSessionPaymentStatus, secret string) ([]byte, string) {
	t.Helper()
	session := &stripe.CheckoutSession{
		ID:                "cs_test_" + uuid.NewString(),
		ClientReferenceID: cartID.String(),
		CustomerEmail:     "buyer@example.com",
		AmountTotal:       8000,
		PaymentStatus:     status,
		Metadata: map[string]string{
			"details":     "12 Nile St",
			"phone":       "01000000000",
			"city":        "Cairo",
			"postal_code": "11511",
		},
	}
	rawSession, err := json.Marshal(session)
	require.NoError(t, err)

	event := &stripe.Event{
		ID:         "evt_" + uuid.NewString(),
		Type:       stripe.EventTypeCheckoutSessionCompleted,
		Object:     "event",
		APIVersion: stripe.APIVersion,
		Data:       &stripe.EventData{Raw: rawSession},
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return payload, buildStripeSignatureHeader(payload, secret, time.Now().Unix())
}

func buildStripeSignatureHeader(payload []byte, secret string, ts int64) string {
	signedPayload := fmt.Sprintf("%d.%s", ts, payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

type recordingCreator struct {
	mu       sync.Mutex
	failures int
	payments []orders.PaymentConfirmation
}

func (r *recordingCreator) CreateCardOrderFromPayment(_ context.Context, payment orders.PaymentConfirmation) (*orders.OrderDTO, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return nil, errors.New("database unavailable")
	}
	r.payments = append(r.payments, payment)
	return &orders.OrderDTO{ID: uuid.New()}, nil
}

func (r *recordingCreator) snapshot() []orders.PaymentConfirmation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]orders.PaymentConfirmation(nil), r.payments...)
}

type failingService struct {
	calls int
	err   error
}

func (f *failingService) HandleEvent(context.Context, *stripe.Event) error {
	f.calls++
	return f.err
}

type fakeSigningClient struct {
	secret string
}

func (c *fakeSigningClient) SigningSecret() string {
	return c.secret
}

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{data: make(map[string]string)}
}

func (s *inMemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *inMemoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("shop:idempotency:%s:%s", scope, id)
}

func (s *inMemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}
