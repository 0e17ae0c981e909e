package gatewaywebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/crumbly-backend/internal/orders"
	"github.com/angelmondragon/crumbly-backend/internal/payments"
	"github.com/angelmondragon/crumbly-backend/pkg/db/models"
	"github.com/angelmondragon/crumbly-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/crumbly-backend/pkg/errors"
	"github.com/angelmondragon/crumbly-backend/pkg/logger"
	"github.com/angelmondragon/crumbly-backend/pkg/metrics"
	"github.com/angelmondragon/crumbly-backend/pkg/outbox"
	"github.com/angelmondragon/crumbly-backend/pkg/outbox/payloads"
)

const defaultMaxAttempts = 3

var errLostRace = errors.New("order changed during reconciliation")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type settlementRecorder interface {
	WebhookOutcome(outcome string)
	Transition(paymentStatus string)
	CASRetry()
}

type ServiceParams struct {
	Orders      orders.Repository
	Tx          txRunner
	Outbox      outboxPublisher
	Metrics     settlementRecorder
	Logger      *logger.Logger
	Currency    string
	MaxAttempts int
}

// Service reconciles gateway transaction reports onto orders.
type Service struct {
	orders      orders.Repository
	tx          txRunner
	outbox      outboxPublisher
	metrics     settlementRecorder
	logg        *logger.Logger
	currency    string
	maxAttempts int
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox publisher required")
	}
	attempts := params.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	return &Service{
		orders:      params.Orders,
		tx:          params.Tx,
		outbox:      params.Outbox,
		metrics:     params.Metrics,
		logg:        params.Logger,
		currency:    strings.ToUpper(strings.TrimSpace(params.Currency)),
		maxAttempts: attempts,
	}, nil
}

// Result describes what a delivery did to its order.
type Result struct {
	Outcome       string
	OrderID       uuid.UUID
	PaymentStatus enums.PaymentStatus
	Status        enums.OrderStatus
}

// Transition is the state an event moves an order to.
type Transition struct {
	Payment   enums.PaymentStatus
	Status    enums.OrderStatus
	Reference *string
	// Changed is false when the event would not alter payment or status.
	Changed bool
}

// NextState applies the precedence rules for a gateway status reported on an
// order currently in (payment, status). Late or repeated reports never move a
// settled order backwards.
func NextState(payment enums.PaymentStatus, status enums.OrderStatus, reported enums.GatewayTransactionStatus) Transition {
	target := reported.PaymentStatus()
	next := Transition{Payment: payment, Status: status}
	if target == payment || !paymentAllowed(payment, target) {
		return next
	}

	next.Payment = target
	switch target {
	case enums.PaymentStatusPaid:
		if status == enums.OrderStatusPending {
			next.Status = enums.OrderStatusConfirmed
		}
	case enums.PaymentStatusRefunded:
		if status.Cancellable() {
			next.Status = enums.OrderStatusCancelled
		}
	}
	next.Changed = true
	return next
}

func paymentAllowed(from, to enums.PaymentStatus) bool {
	switch to {
	case enums.PaymentStatusFailed:
		return from == enums.PaymentStatusPending
	case enums.PaymentStatusPaid:
		return from == enums.PaymentStatusPending || from == enums.PaymentStatusFailed
	case enums.PaymentStatusRefunded:
		return from == enums.PaymentStatusPending || from == enums.PaymentStatusPaid
	}
	return false
}

// Reconcile applies one transaction.updated event. Mismatched amounts and
// stale reports are acknowledged without writing; a missing order is an error.
func (s *Service) Reconcile(ctx context.Context, event *Event) (*Result, error) {
	if event == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event required")
	}
	if event.Event != EventTransactionUpdated {
		s.record(metrics.OutcomeIgnoredEvent)
		return &Result{Outcome: metrics.OutcomeIgnoredEvent}, nil
	}
	txn := event.Data.Transaction
	if txn.Reference == "" && txn.ID == "" {
		return nil, pkgerrors.Field("data.transaction.reference", "transaction reference or id required")
	}

	if s.logg != nil {
		ctx = s.logg.WithReference(ctx, txn.Reference)
		ctx = s.logg.WithFields(ctx, map[string]any{"gateway_txn_id": txn.ID, "gateway_status": txn.Status})
	}

	for attempt := 1; ; attempt++ {
		result, err := s.attempt(ctx, txn)
		if errors.Is(err, errLostRace) {
			s.countRetry()
			if attempt < s.maxAttempts {
				continue
			}
			s.record(metrics.OutcomeError)
			return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, fmt.Sprintf("gave up after %d attempts", attempt))
		}
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				s.record(metrics.OutcomeOrderNotFound)
			} else {
				s.record(metrics.OutcomeError)
			}
			return nil, err
		}
		s.record(result.Outcome)
		if result.Outcome == metrics.OutcomeApplied && s.metrics != nil {
			s.metrics.Transition(string(result.PaymentStatus))
		}
		s.log(ctx, result)
		return result, nil
	}
}

func (s *Service) attempt(ctx context.Context, txn Transaction) (*Result, error) {
	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := s.locate(ctx, repo, txn)
		if err != nil {
			return err
		}
		result = &Result{OrderID: order.ID, PaymentStatus: order.PaymentStatus, Status: order.Status}

		if txn.Status == enums.GatewayStatusApproved && !s.amountMatches(order, txn) {
			result.Outcome = metrics.OutcomeAmountMismatch
			return nil
		}

		next := NextState(order.PaymentStatus, order.Status, txn.Status)
		next.Reference = order.PaymentTransactionReference
		promote := txn.ID != "" && order.PaymentTransactionReference != nil &&
			*order.PaymentTransactionReference == txn.Reference && txn.Reference != txn.ID
		if promote {
			id := txn.ID
			next.Reference = &id
		}
		if !next.Changed && !promote {
			result.Outcome = metrics.OutcomeNoop
			return nil
		}

		ok, err := repo.ApplySettlement(ctx, orders.SettlementUpdate{
			OrderID:           order.ID,
			ObservedPayment:   order.PaymentStatus,
			ObservedStatus:    order.Status,
			ObservedReference: order.PaymentTransactionReference,
			Payment:           next.Payment,
			Status:            next.Status,
			Reference:         next.Reference,
			MarkPaid:          next.Changed && next.Payment == enums.PaymentStatusPaid,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply settlement")
		}
		if !ok {
			return errLostRace
		}

		result.PaymentStatus = next.Payment
		result.Status = next.Status
		if !next.Changed {
			result.Outcome = metrics.OutcomeNoop
			return nil
		}
		result.Outcome = metrics.OutcomeApplied
		return s.emit(ctx, tx, order, next, txn)
	})
	return result, err
}

// locate matches the stored reference first, then the gateway transaction id
// a previous report may already have promoted into it.
func (s *Service) locate(ctx context.Context, repo orders.Repository, txn Transaction) (*models.Order, error) {
	for _, ref := range []string{txn.Reference, txn.ID} {
		if ref == "" {
			continue
		}
		order, err := repo.FindByReference(ctx, ref)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find order by reference")
		}
		if order != nil {
			return order, nil
		}
	}
	return nil, orders.ErrOrderNotFound
}

func (s *Service) amountMatches(order *models.Order, txn Transaction) bool {
	if txn.AmountInCents != payments.AmountInCents(order.Total) {
		return false
	}
	if s.currency != "" && txn.Currency != "" && !strings.EqualFold(txn.Currency, s.currency) {
		return false
	}
	return true
}

func (s *Service) emit(ctx context.Context, tx *gorm.DB, order *models.Order, next Transition, txn Transaction) error {
	var eventType enums.OutboxEventType
	switch next.Payment {
	case enums.PaymentStatusPaid:
		eventType = enums.EventOrderPaid
	case enums.PaymentStatusFailed:
		eventType = enums.EventOrderPaymentFailed
	case enums.PaymentStatusRefunded:
		eventType = enums.EventOrderRefunded
	default:
		return nil
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{Role: "gateway"},
		Data: payloads.PaymentSettledEvent{
			OrderID:              order.ID,
			OrderNumber:          order.OrderNumber,
			PaymentStatus:        next.Payment,
			PreviousStatus:       order.PaymentStatus,
			OrderStatus:          next.Status,
			GatewayTransactionID: txn.ID,
			AmountInCents:        txn.AmountInCents,
		},
	})
}

func (s *Service) record(outcome string) {
	if s.metrics != nil {
		s.metrics.WebhookOutcome(outcome)
	}
}

func (s *Service) countRetry() {
	if s.metrics != nil {
		s.metrics.CASRetry()
	}
}

func (s *Service) log(ctx context.Context, result *Result) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithOrderID(ctx, result.OrderID.String())
	ctx = s.logg.WithFields(ctx, map[string]any{
		"outcome":        result.Outcome,
		"payment_status": result.PaymentStatus,
		"order_status":   result.Status,
	})
	switch result.Outcome {
	case metrics.OutcomeAmountMismatch:
		s.logg.Warn(ctx, "gateway amount does not match order total, not applied")
	case metrics.OutcomeApplied:
		s.logg.Info(ctx, "payment settlement applied")
	default:
		s.logg.Info(ctx, "gateway event left order unchanged")
	}
}
