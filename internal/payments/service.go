package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/crumbly-backend/internal/orders"
	"github.com/angelmondragon/crumbly-backend/pkg/config"
	"github.com/angelmondragon/crumbly-backend/pkg/db/models"
	"github.com/angelmondragon/crumbly-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/crumbly-backend/pkg/errors"
	"github.com/angelmondragon/crumbly-backend/pkg/logger"
	"github.com/angelmondragon/crumbly-backend/pkg/outbox"
	"github.com/angelmondragon/crumbly-backend/pkg/outbox/payloads"
)

var (
	// ErrAlreadyPaid rejects a new attempt for a settled order.
	ErrAlreadyPaid = pkgerrors.New(pkgerrors.CodeConflict, "order is already paid")
	errRefunded    = pkgerrors.New(pkgerrors.CodeConflict, "order was refunded")
	errCashOrder   = pkgerrors.New(pkgerrors.CodeConflict, "order is paid in cash at pickup")
	errCancelled   = pkgerrors.New(pkgerrors.CodeConflict, "order is cancelled")
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Customer prefills the widget's payer form.
type Customer struct {
	Email       string `json:"email"`
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber"`
	LegalID     string `json:"legalId"`
	LegalIDType string `json:"legalIdType"`
}

// WidgetCheckout is everything the storefront needs to open the hosted widget.
type WidgetCheckout struct {
	OrderID       uuid.UUID `json:"orderId"`
	OrderNumber   string    `json:"orderNumber"`
	PublicKey     string    `json:"publicKey"`
	Currency      string    `json:"currency"`
	AmountInCents int64     `json:"amountInCents"`
	Reference     string    `json:"reference"`
	Signature     string    `json:"signature"`
	RedirectURL   string    `json:"redirectUrl"`
	CheckoutURL   string    `json:"checkoutUrl,omitempty"`
	Customer      Customer  `json:"customer"`
}

type ServiceParams struct {
	Orders  orders.Repository
	Tx      txRunner
	Outbox  outboxPublisher
	Gateway config.GatewayConfig
	Logger  *logger.Logger
	// NewReference overrides reference generation in tests.
	NewReference func() string
}

type Service struct {
	orders    orders.Repository
	tx        txRunner
	outbox    outboxPublisher
	gateway   config.GatewayConfig
	logg      *logger.Logger
	reference func() string
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if strings.TrimSpace(params.Gateway.PublicKey) == "" || strings.TrimSpace(params.Gateway.IntegritySecret) == "" {
		return nil, fmt.Errorf("gateway public key and integrity secret required")
	}
	gateway := params.Gateway
	if gateway.Currency == "" {
		gateway.Currency = "COP"
	}
	ref := params.NewReference
	if ref == nil {
		ref = NewReference
	}
	return &Service{
		orders:    params.Orders,
		tx:        params.Tx,
		outbox:    params.Outbox,
		gateway:   gateway,
		logg:      params.Logger,
		reference: ref,
	}, nil
}

// Initiate mints a reference for orderID, stores it on the order and signs the
// widget payload. A FAILED order goes back to PENDING so the retry can settle.
func (s *Service) Initiate(ctx context.Context, orderID uuid.UUID) (*WidgetCheckout, error) {
	var (
		order     *models.Order
		reference string
		amount    int64
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		found, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}
		if found == nil {
			return orders.ErrOrderNotFound
		}
		if err := payable(found); err != nil {
			return err
		}

		reference = s.reference()
		amount = AmountInCents(found.Total)
		ok, err := repo.AssignReference(ctx, found.ID, found.PaymentStatus, reference)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store payment reference")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment status changed, reload the order")
		}
		found.PaymentTransactionReference = &reference
		found.PaymentStatus = enums.PaymentStatusPending
		order = found

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentInitiated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   found.ID,
			Actor:         &outbox.ActorRef{Subject: found.CustomerEmail, Role: "customer"},
			Data: payloads.PaymentInitiatedEvent{
				OrderID:       found.ID,
				Reference:     reference,
				AmountInCents: amount,
				Currency:      s.gateway.Currency,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithReference(logCtx, reference)
		s.logg.Info(logCtx, "payment initiated")
	}

	return &WidgetCheckout{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		PublicKey:     s.gateway.PublicKey,
		Currency:      s.gateway.Currency,
		AmountInCents: amount,
		Reference:     reference,
		Signature:     IntegritySignature(reference, amount, s.gateway.Currency, s.gateway.IntegritySecret),
		RedirectURL:   s.gateway.RedirectURL,
		CheckoutURL:   s.gateway.CheckoutURL,
		Customer: Customer{
			Email:       order.CustomerEmail,
			FullName:    order.CustomerName,
			PhoneNumber: order.CustomerPhone,
			LegalID:     order.CustomerNationalID,
			LegalIDType: "CC",
		},
	}, nil
}

func payable(order *models.Order) error {
	switch {
	case order.PaymentStatus == enums.PaymentStatusPaid:
		return ErrAlreadyPaid
	case order.PaymentStatus == enums.PaymentStatusRefunded:
		return errRefunded
	case order.PaymentMethod == enums.PaymentMethodCash:
		return errCashOrder
	case order.Status == enums.OrderStatusCancelled:
		return errCancelled
	}
	return nil
}
