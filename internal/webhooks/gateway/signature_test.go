package gatewaywebhook

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/crumbly-backend/pkg/enums"
)

const sampleBody = `{"event":"transaction.updated","data":{"transaction":{"id":"1234-1610641025-49201","reference":"CRB-ABC","status":"approved","amount_in_cents":10800000,"currency":"COP"}},"timestamp":1530291411}`

func TestVerifyEventSignature(t *testing.T) {
	body := []byte(sampleBody)
	sig := EventSignature(body, "events_secret")

	assert.True(t, VerifyEventSignature(body, sig, "events_secret"))
	assert.False(t, VerifyEventSignature(body, sig, "other_secret"))
	assert.False(t, VerifyEventSignature(body, "", "events_secret"))
	assert.False(t, VerifyEventSignature(body, sig, ""))
}

func TestAnyByteFlipInvalidatesSignature(t *testing.T) {
	body := []byte(sampleBody)
	sig := EventSignature(body, "events_secret")
	for i := range body {
		flipped := append([]byte(nil), body...)
		flipped[i] ^= 0x01
		if VerifyEventSignature(flipped, sig, "events_secret") {
			t.Fatalf("flipping byte %d kept the signature valid", i)
		}
	}
}

func TestDecodeEventNormalisesStatus(t *testing.T) {
	event, err := DecodeEvent([]byte(sampleBody))
	require.NoError(t, err)
	assert.Equal(t, EventTransactionUpdated, event.Event)
	assert.Equal(t, enums.GatewayStatusApproved, event.Data.Transaction.Status)
	assert.Equal(t, int64(10800000), event.Data.Transaction.AmountInCents)
	assert.Equal(t, "1234-1610641025-49201:APPROVED", event.DedupeKey())

	_, err = DecodeEvent([]byte("{"))
	assert.Error(t, err)
}

func TestEventDedupeKeyFallsBackToReference(t *testing.T) {
	cases := map[string]struct {
		txn  Transaction
		want string
	}{
		"id wins":        {txn: Transaction{ID: "t-1", Reference: "CRB-ABC", Status: enums.GatewayStatusApproved}, want: "t-1:APPROVED"},
		"reference only": {txn: Transaction{Reference: "CRB-ABC", Status: enums.GatewayStatusDeclined}, want: "ref:CRB-ABC:DECLINED"},
		"neither":        {txn: Transaction{Status: enums.GatewayStatusApproved}, want: ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			event := &Event{Event: EventTransactionUpdated, Data: EventData{Transaction: tc.txn}}
			assert.Equal(t, tc.want, event.DedupeKey())
		})
	}
}

type memoryStore struct {
	values map[string]string
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) { return m.values[key], nil }

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = "1"
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string { return "crb:idempotency:" + scope + ":" + id }

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func TestIdempotencyGuard(t *testing.T) {
	store := &memoryStore{values: map[string]string{}}
	guard, err := NewIdempotencyGuard(store, time.Hour, "gateway_webhook")
	require.NoError(t, err)
	ctx := context.Background()

	seen, err := guard.CheckAndMark(ctx, "txn:APPROVED")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = guard.CheckAndMark(ctx, "txn:APPROVED")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = guard.CheckAndMark(ctx, "txn:VOIDED")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, guard.Delete(ctx, "txn:APPROVED"))
	seen, err = guard.CheckAndMark(ctx, "txn:APPROVED")
	require.NoError(t, err)
	assert.False(t, seen)

	_, err = guard.CheckAndMark(ctx, "")
	assert.Error(t, err)
	_, err = NewIdempotencyGuard(nil, time.Hour, "x")
	assert.Error(t, err)
}
