package payloads

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/crumbly-backend/pkg/enums"
	"github.com/angelmondragon/crumbly-backend/pkg/types"
)

// OrderCreatedEvent is emitted when checkout persists a new order.
type OrderCreatedEvent struct {
	OrderID        uuid.UUID            `json:"order_id"`
	OrderNumber    string               `json:"order_number"`
	CustomerEmail  string               `json:"customer_email"`
	DeliveryMethod enums.DeliveryMethod `json:"delivery_method"`
	DeliveryDate   types.Date           `json:"delivery_date"`
	Subtotal       int64                `json:"subtotal"`
	ShippingCost   int64                `json:"shipping_cost"`
	DiscountCode   *string              `json:"discount_code,omitempty"`
	DiscountAmount int64                `json:"discount_amount"`
	Total          int64                `json:"total"`
	ItemCount      int                  `json:"item_count"`
}

// OrderStatusChangedEvent records a fulfillment status change.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
}

// PaymentSettledEvent is emitted for every payment status transition the
// reconciler applies (paid, failed, refunded).
type PaymentSettledEvent struct {
	OrderID              uuid.UUID           `json:"order_id"`
	OrderNumber          string              `json:"order_number"`
	PaymentStatus        enums.PaymentStatus `json:"payment_status"`
	PreviousStatus       enums.PaymentStatus `json:"previous_status"`
	OrderStatus          enums.OrderStatus   `json:"order_status"`
	GatewayTransactionID string              `json:"gateway_transaction_id"`
	AmountInCents        int64               `json:"amount_in_cents"`
}

// PaymentInitiatedEvent is emitted when a new gateway reference is issued.
type PaymentInitiatedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	Reference     string    `json:"reference"`
	AmountInCents int64     `json:"amount_in_cents"`
	Currency      string    `json:"currency"`
}

// DiscountActivatedEvent is emitted when a code becomes the single active one.
type DiscountActivatedEvent struct {
	DiscountCodeID uuid.UUID `json:"discount_code_id"`
	Code           string    `json:"code"`
	Percent        int       `json:"percent"`
	Deactivated    int64     `json:"deactivated"`
}
