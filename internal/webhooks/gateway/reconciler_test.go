package gatewaywebhook

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/crumbly-backend/internal/orders"
	"github.com/angelmondragon/crumbly-backend/pkg/db"
	"github.com/angelmondragon/crumbly-backend/pkg/db/dbtest"
	"github.com/angelmondragon/crumbly-backend/pkg/db/models"
	"github.com/angelmondragon/crumbly-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/crumbly-backend/pkg/errors"
	"github.com/angelmondragon/crumbly-backend/pkg/metrics"
	"github.com/angelmondragon/crumbly-backend/pkg/outbox"
	"github.com/angelmondragon/crumbly-backend/pkg/types"
)

type recordingMetrics struct {
	outcomes    []string
	transitions []string
	retries     int
}

func (m *recordingMetrics) WebhookOutcome(outcome string) { m.outcomes = append(m.outcomes, outcome) }
func (m *recordingMetrics) Transition(paymentStatus string) { m.transitions = append(m.transitions, paymentStatus) }
func (m *recordingMetrics) CASRetry() { m.retries++ }

// losingRepo reports a lost compare-and-swap for the first n settlement writes.
type losingRepo struct {
	orders.Repository
	losses *int
}

func (r losingRepo) WithTx(tx *gorm.DB) orders.Repository {
	return losingRepo{Repository: r.Repository.WithTx(tx), losses: r.losses}
}

func (r losingRepo) ApplySettlement(ctx context.Context, update orders.SettlementUpdate) (bool, error) {
	if *r.losses > 0 {
		*r.losses--
		return false, nil
	}
	return r.Repository.ApplySettlement(ctx, update)
}

const testReference = "CRB-8F14E45FCEEA467A9B1C2D3E4F506172"

func newTestReconciler(t *testing.T, repo func(orders.Repository) orders.Repository) (*Service, *gorm.DB, *recordingMetrics) {
	t.Helper()
	conn := dbtest.Open(t)
	base := orders.NewRepository(conn)
	if repo != nil {
		base = repo(base)
	}
	rec := &recordingMetrics{}
	svc, err := NewService(ServiceParams{
		Orders:   base,
		Tx:       db.Wrap(conn),
		Outbox:   outbox.NewService(outbox.NewRepository(conn), nil),
		Metrics:  rec,
		Currency: "COP",
	})
	require.NoError(t, err)
	return svc, conn, rec
}

func seedPendingOrder(t *testing.T, conn *gorm.DB) *models.Order {
	t.Helper()
	ref := testReference
	order := &models.Order{
		OrderNumber:                 "CRB-2026-0007",
		CustomerName:                "Ana Gómez",
		CustomerEmail:               "ana@example.com",
		CustomerPhone:               "3001234567",
		CustomerNationalID:          "1020304050",
		DeliveryMethod:              enums.DeliveryMethodPickup,
		DeliveryDate:                types.NewDate(2026, time.October, 19),
		Subtotal:                    120000,
		DiscountAmount:              12000,
		Total:                       108000,
		PaymentMethod:               enums.PaymentMethodGateway,
		PaymentStatus:               enums.PaymentStatusPending,
		PaymentTransactionReference: &ref,
		Status:                      enums.OrderStatusPending,
	}
	require.NoError(t, conn.Create(order).Error)
	return order
}

func txnEvent(status enums.GatewayTransactionStatus) *Event {
	return &Event{
		Event: EventTransactionUpdated,
		Data: EventData{Transaction: Transaction{
			ID:            "1234-1610641025-49201",
			Reference:     testReference,
			Status:        status,
			AmountInCents: 10800000,
			Currency:      "COP",
		}},
	}
}

func reload(t *testing.T, conn *gorm.DB, order *models.Order) models.Order {
	t.Helper()
	var stored models.Order
	require.NoError(t, conn.First(&stored, "id = ?", order.ID).Error)
	return stored
}

func countEvents(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&n).Error)
	return n
}

func TestNextStatePrecedence(t *testing.T) {
	cases := []struct {
		payment    enums.PaymentStatus
		status     enums.OrderStatus
		reported   enums.GatewayTransactionStatus
		wantPay    enums.PaymentStatus
		wantStatus enums.OrderStatus
		changed    bool
	}{
		{enums.PaymentStatusPending, enums.OrderStatusPending, enums.GatewayStatusApproved, enums.PaymentStatusPaid, enums.OrderStatusConfirmed, true},
		{enums.PaymentStatusPending, enums.OrderStatusPending, enums.GatewayStatusDeclined, enums.PaymentStatusFailed, enums.OrderStatusPending, true},
		{enums.PaymentStatusPending, enums.OrderStatusPending, enums.GatewayStatusError, enums.PaymentStatusFailed, enums.OrderStatusPending, true},
		{enums.PaymentStatusPending, enums.OrderStatusPending, enums.GatewayStatusVoided, enums.PaymentStatusRefunded, enums.OrderStatusCancelled, true},
		{enums.PaymentStatusPaid, enums.OrderStatusConfirmed, enums.GatewayStatusDeclined, enums.PaymentStatusPaid, enums.OrderStatusConfirmed, false},
		{enums.PaymentStatusPaid, enums.OrderStatusConfirmed, enums.GatewayStatusPending, enums.PaymentStatusPaid, enums.OrderStatusConfirmed, false},
		{enums.PaymentStatusPaid, enums.OrderStatusConfirmed, enums.GatewayStatusApproved, enums.PaymentStatusPaid, enums.OrderStatusConfirmed, false},
		{enums.PaymentStatusPaid, enums.OrderStatusPreparing, enums.GatewayStatusVoided, enums.PaymentStatusRefunded, enums.OrderStatusCancelled, true},
		{enums.PaymentStatusPaid, enums.OrderStatusDelivered, enums.GatewayStatusVoided, enums.PaymentStatusRefunded, enums.OrderStatusDelivered, true},
		{enums.PaymentStatusFailed, enums.OrderStatusPending, enums.GatewayStatusApproved, enums.PaymentStatusPaid, enums.OrderStatusConfirmed, true},
		{enums.PaymentStatusFailed, enums.OrderStatusPending, enums.GatewayStatusPending, enums.PaymentStatusFailed, enums.OrderStatusPending, false},
		{enums.PaymentStatusFailed, enums.OrderStatusPending, enums.GatewayStatusVoided, enums.PaymentStatusFailed, enums.OrderStatusPending, false},
		{enums.PaymentStatusRefunded, enums.OrderStatusCancelled, enums.GatewayStatusApproved, enums.PaymentStatusRefunded, enums.OrderStatusCancelled, false},
		{enums.PaymentStatusPending, enums.OrderStatusPreparing, enums.GatewayStatusApproved, enums.PaymentStatusPaid, enums.OrderStatusPreparing, true},
		{enums.PaymentStatusPending, enums.OrderStatusPending, "WEIRD", enums.PaymentStatusPending, enums.OrderStatusPending, false},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_%s_%s", tc.payment, tc.status, tc.reported), func(t *testing.T) {
			got := NextState(tc.payment, tc.status, tc.reported)
			assert.Equal(t, tc.wantPay, got.Payment)
			assert.Equal(t, tc.wantStatus, got.Status)
			assert.Equal(t, tc.changed, got.Changed)
		})
	}
}

func TestReconcileApprovedPromotesReference(t *testing.T) {
	svc, conn, rec := newTestReconciler(t, nil)
	order := seedPendingOrder(t, conn)

	result, err := svc.Reconcile(context.Background(), txnEvent(enums.GatewayStatusApproved))
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeApplied, result.Outcome)

	stored := reload(t, conn, order)
	assert.Equal(t, enums.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, enums.OrderStatusConfirmed, stored.Status)
	require.NotNil(t, stored.PaymentTransactionReference)
	assert.Equal(t, "1234-1610641025-49201", *stored.PaymentTransactionReference)
	assert.NotNil(t, stored.PaidAt)
	assert.Equal(t, int64(1), countEvents(t, conn))
	assert.Equal(t, []string{"PAID"}, rec.transitions)
}

func TestReconcileReplayIsNoop(t *testing.T) {
	svc, conn, rec := newTestReconciler(t, nil)
	order := seedPendingOrder(t, conn)
	ctx := context.Background()

	_, err := svc.Reconcile(ctx, txnEvent(enums.GatewayStatusApproved))
	require.NoError(t, err)
	first := reload(t, conn, order)

	// The stored reference is now the transaction id, found on the second lookup.
	result, err := svc.Reconcile(ctx, txnEvent(enums.GatewayStatusApproved))
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeNoop, result.Outcome)

	second := reload(t, conn, order)
	assert.Equal(t, first.PaymentStatus, second.PaymentStatus)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, *first.PaymentTransactionReference, *second.PaymentTransactionReference)
	assert.Equal(t, int64(1), countEvents(t, conn))
	assert.Equal(t, []string{metrics.OutcomeApplied, metrics.OutcomeNoop}, rec.outcomes)
}

func TestReconcileLateDeclineDoesNotRegress(t *testing.T) {
	svc, conn, _ := newTestReconciler(t, nil)
	order := seedPendingOrder(t, conn)
	ctx := context.Background()

	_, err := svc.Reconcile(ctx, txnEvent(enums.GatewayStatusApproved))
	require.NoError(t, err)
	for _, status := range []enums.GatewayTransactionStatus{enums.GatewayStatusDeclined, enums.GatewayStatusPending, enums.GatewayStatusError} {
		result, err := svc.Reconcile(ctx, txnEvent(status))
		require.NoError(t, err)
		assert.Equal(t, metrics.OutcomeNoop, result.Outcome, "status %s", status)
	}

	stored := reload(t, conn, order)
	assert.Equal(t, enums.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, enums.OrderStatusConfirmed, stored.Status)
}

func TestReconcileVoidAfterApprovalCancels(t *testing.T) {
	svc, conn, _ := newTestReconciler(t, nil)
	order := seedPendingOrder(t, conn)
	ctx := context.Background()

	_, err := svc.Reconcile(ctx, txnEvent(enums.GatewayStatusApproved))
	require.NoError(t, err)
	result, err := svc.Reconcile(ctx, txnEvent(enums.GatewayStatusVoided))
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeApplied, result.Outcome)

	stored := reload(t, conn, order)
	assert.Equal(t, enums.PaymentStatusRefunded, stored.PaymentStatus)
	assert.Equal(t, enums.OrderStatusCancelled, stored.Status)
	assert.Equal(t, int64(2), countEvents(t, conn))
}

func TestReconcileAmountMismatchIsAcknowledged(t *testing.T) {
	svc, conn, rec := newTestReconciler(t, nil)
	order := seedPendingOrder(t, conn)

	event := txnEvent(enums.GatewayStatusApproved)
	event.Data.Transaction.AmountInCents = 100
	result, err := svc.Reconcile(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeAmountMismatch, result.Outcome)

	stored := reload(t, conn, order)
	assert.Equal(t, enums.PaymentStatusPending, stored.PaymentStatus)
	assert.Equal(t, testReference, *stored.PaymentTransactionReference)
	assert.Equal(t, []string{metrics.OutcomeAmountMismatch}, rec.outcomes)
	assert.Zero(t, countEvents(t, conn))
}

func TestReconcileUnknownOrder(t *testing.T) {
	svc, _, rec := newTestReconciler(t, nil)

	_, err := svc.Reconcile(context.Background(), txnEvent(enums.GatewayStatusApproved))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Equal(t, []string{metrics.OutcomeOrderNotFound}, rec.outcomes)
}

func TestReconcileIgnoresOtherEvents(t *testing.T) {
	svc, _, _ := newTestReconciler(t, nil)
	event := txnEvent(enums.GatewayStatusApproved)
	event.Event = "nequi_token.updated"

	result, err := svc.Reconcile(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeIgnoredEvent, result.Outcome)
}

func TestReconcileRetriesLostRace(t *testing.T) {
	losses := 1
	svc, conn, rec := newTestReconciler(t, func(base orders.Repository) orders.Repository {
		return losingRepo{Repository: base, losses: &losses}
	})
	order := seedPendingOrder(t, conn)

	result, err := svc.Reconcile(context.Background(), txnEvent(enums.GatewayStatusDeclined))
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeApplied, result.Outcome)
	assert.Equal(t, 1, rec.retries)
	assert.Equal(t, enums.PaymentStatusFailed, reload(t, conn, order).PaymentStatus)
}

func TestReconcileGivesUpAfterRepeatedLosses(t *testing.T) {
	losses := 10
	svc, conn, rec := newTestReconciler(t, func(base orders.Repository) orders.Repository {
		return losingRepo{Repository: base, losses: &losses}
	})
	order := seedPendingOrder(t, conn)

	_, err := svc.Reconcile(context.Background(), txnEvent(enums.GatewayStatusApproved))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, defaultMaxAttempts, rec.retries)
	assert.Equal(t, enums.PaymentStatusPending, reload(t, conn, order).PaymentStatus)
	assert.Zero(t, countEvents(t, conn))
}
