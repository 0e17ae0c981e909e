package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/crumbly-backend/internal/orders"
	gatewaywebhook "github.com/angelmondragon/crumbly-backend/internal/webhooks/gateway"
	pkgerrors "github.com/angelmondragon/crumbly-backend/pkg/errors"
	"github.com/angelmondragon/crumbly-backend/pkg/metrics"
)

const testEventsSecret = "test_events_secret"

const referenceOnlyEvent = `{"event":"transaction.updated","data":{"transaction":{"reference":"CRB-ABC","status":"APPROVED","amount_in_cents":10800000,"currency":"COP"}}}`

const approvedEvent = `{"event":"transaction.updated","data":{"transaction":{"id":"1234-1610641025-49201","reference":"CRB-ABC","status":"APPROVED","amount_in_cents":10800000,"currency":"COP"}},"timestamp":1530291411}`

type fakeReconciler struct {
	calls int
	err   error
}

func (f *fakeReconciler) Reconcile(ctx context.Context, event *gatewaywebhook.Event) (*gatewaywebhook.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &gatewaywebhook.Result{Outcome: metrics.OutcomeApplied}, nil
}

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{data: map[string]string{}}
}

func (s *inMemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *inMemoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = "1"
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return "crb:idempotency:" + scope + ":" + id
}

func (s *inMemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

type outcomeCounter struct {
	outcomes []string
}

func (o *outcomeCounter) WebhookOutcome(outcome string) { o.outcomes = append(o.outcomes, outcome) }

func newGuard(t *testing.T) *gatewaywebhook.IdempotencyGuard {
	t.Helper()
	guard, err := gatewaywebhook.NewIdempotencyGuard(newInMemoryStore(), time.Minute, "gateway_webhook")
	require.NoError(t, err)
	return guard
}

func signedRequest(body, secret string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/gateway", bytes.NewReader([]byte(body)))
	req.Header.Set(gatewaywebhook.SignatureHeader, gatewaywebhook.EventSignature([]byte(body), secret))
	return req
}

func decodeOutcome(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Data struct {
			Outcome string `json:"outcome"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data.Outcome
}

func TestGatewayWebhook_AppliesOnceAndShortCircuitsReplays(t *testing.T) {
	svc := &fakeReconciler{}
	counter := &outcomeCounter{}
	handler := GatewayWebhook(svc, testEventsSecret, newGuard(t), counter, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(approvedEvent, testEventsSecret))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, metrics.OutcomeApplied, decodeOutcome(t, rec))

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, signedRequest(approvedEvent, testEventsSecret))
	require.Equal(t, http.StatusOK, replay.Code)
	assert.Equal(t, metrics.OutcomeDuplicate, decodeOutcome(t, replay))

	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, []string{metrics.OutcomeDuplicate}, counter.outcomes)
}

func TestGatewayWebhook_RejectsBadSignature(t *testing.T) {
	cases := map[string]func(*http.Request){
		"wrong secret": func(r *http.Request) {
			r.Header.Set(gatewaywebhook.SignatureHeader, gatewaywebhook.EventSignature([]byte(approvedEvent), "other"))
		},
		"missing header": func(r *http.Request) { r.Header.Del(gatewaywebhook.SignatureHeader) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &fakeReconciler{}
			counter := &outcomeCounter{}
			handler := GatewayWebhook(svc, testEventsSecret, newGuard(t), counter, nil)

			req := signedRequest(approvedEvent, testEventsSecret)
			mutate(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "INVALID_SIGNATURE")
			assert.Zero(t, svc.calls)
			assert.Equal(t, []string{metrics.OutcomeInvalidSignature}, counter.outcomes)
		})
	}
}

func TestGatewayWebhook_IgnoresOtherEvents(t *testing.T) {
	svc := &fakeReconciler{}
	handler := GatewayWebhook(svc, testEventsSecret, newGuard(t), nil, nil)

	body := `{"event":"nequi_token.updated","data":{}}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(body, testEventsSecret))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, metrics.OutcomeIgnoredEvent, decodeOutcome(t, rec))
	assert.Zero(t, svc.calls)
}

func TestGatewayWebhook_FailureReleasesGuard(t *testing.T) {
	svc := &fakeReconciler{err: orders.ErrOrderNotFound}
	handler := GatewayWebhook(svc, testEventsSecret, newGuard(t), nil, nil)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, signedRequest(approvedEvent, testEventsSecret))
	assert.Equal(t, http.StatusNotFound, first.Code)

	svc.err = nil
	retry := httptest.NewRecorder()
	handler.ServeHTTP(retry, signedRequest(approvedEvent, testEventsSecret))
	assert.Equal(t, http.StatusOK, retry.Code)
	assert.Equal(t, 2, svc.calls)
}

func TestGatewayWebhook_MalformedBody(t *testing.T) {
	handler := GatewayWebhook(&fakeReconciler{}, testEventsSecret, nil, nil, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest("{", testEventsSecret))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGatewayWebhook_ReferenceOnlyEventIsReconciled(t *testing.T) {
	svc := &fakeReconciler{}
	handler := GatewayWebhook(svc, testEventsSecret, newGuard(t), nil, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(referenceOnlyEvent, testEventsSecret))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, metrics.OutcomeApplied, decodeOutcome(t, rec))

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, signedRequest(referenceOnlyEvent, testEventsSecret))
	require.Equal(t, http.StatusOK, replay.Code)
	assert.Equal(t, metrics.OutcomeDuplicate, decodeOutcome(t, replay))
	assert.Equal(t, 1, svc.calls)
}

func TestGatewayWebhook_EventWithoutIdentifiersIsBadRequest(t *testing.T) {
	svc := &fakeReconciler{err: pkgerrors.Field("data.transaction.reference", "transaction reference or id required")}
	handler := GatewayWebhook(svc, testEventsSecret, newGuard(t), nil, nil)

	body := `{"event":"transaction.updated","data":{"transaction":{"status":"APPROVED"}}}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(body, testEventsSecret))

	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, 1, svc.calls)
}
