package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/crumbly-backend/pkg/db/models"
	"github.com/angelmondragon/crumbly-backend/pkg/enums"
	"github.com/angelmondragon/crumbly-backend/pkg/types"
)

// CreateOrderInput is the checkout submission. Money fields are what the
// client computed; the service recomputes and compares every one of them.
type CreateOrderInput struct {
	CustomerName       string
	CustomerEmail      string
	CustomerPhone      string
	CustomerNationalID string
	DeliveryMethod     enums.DeliveryMethod
	ShippingAddress    string
	ShippingCity       string
	ShippingDepartment string
	ShippingNotes      string
	DeliveryDate       types.Date
	PaymentMethod      enums.PaymentMethod
	Items              []ItemInput
	Subtotal           int64
	ShippingCost       int64
	DiscountCode       string
	DiscountAmount     int64
	Total              int64
}

type ItemInput struct {
	ProductID string
	Name      string
	SizeLabel string
	UnitPrice int64
	Quantity  int
	ImageURL  string
}

// ListFilters narrows the admin order list.
type ListFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
}

type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

type OrderItemDTO struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	SizeLabel *string `json:"sizeLabel,omitempty"`
	UnitPrice int64   `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
	LineTotal int64   `json:"lineTotal"`
	ImageURL  *string `json:"imageUrl,omitempty"`
}

// OrderDTO is the JSON shape of an order for both the storefront and admin.
type OrderDTO struct {
	ID                          uuid.UUID            `json:"id"`
	OrderNumber                 string               `json:"orderNumber"`
	CustomerName                string               `json:"customerName"`
	CustomerEmail               string               `json:"customerEmail"`
	CustomerPhone               string               `json:"customerPhone"`
	CustomerNationalID          string               `json:"customerNationalId"`
	DeliveryMethod              enums.DeliveryMethod `json:"deliveryMethod"`
	ShippingAddress             *string              `json:"shippingAddress,omitempty"`
	ShippingCity                *string              `json:"shippingCity,omitempty"`
	ShippingDepartment          *string              `json:"shippingDepartment,omitempty"`
	ShippingNotes               *string              `json:"shippingNotes,omitempty"`
	DeliveryDate                types.Date           `json:"deliveryDate"`
	Subtotal                    int64                `json:"subtotal"`
	ShippingCost                int64                `json:"shippingCost"`
	DiscountCode                *string              `json:"discountCode,omitempty"`
	DiscountAmount              int64                `json:"discountAmount"`
	Total                       int64                `json:"total"`
	PaymentMethod               enums.PaymentMethod  `json:"paymentMethod"`
	PaymentStatus               enums.PaymentStatus  `json:"paymentStatus"`
	PaymentTransactionReference *string              `json:"paymentTransactionReference,omitempty"`
	Status                      enums.OrderStatus    `json:"status"`
	Items                       []OrderItemDTO       `json:"items"`
	PaidAt                      *time.Time           `json:"paidAt,omitempty"`
	CreatedAt                   time.Time            `json:"createdAt"`
	UpdatedAt                   time.Time            `json:"updatedAt"`
}

func NewOrderDTO(order *models.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			SizeLabel: item.SizeLabel,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal(),
			ImageURL:  item.ImageURL,
		})
	}
	return OrderDTO{
		ID:                          order.ID,
		OrderNumber:                 order.OrderNumber,
		CustomerName:                order.CustomerName,
		CustomerEmail:               order.CustomerEmail,
		CustomerPhone:               order.CustomerPhone,
		CustomerNationalID:          order.CustomerNationalID,
		DeliveryMethod:              order.DeliveryMethod,
		ShippingAddress:             order.ShippingAddress,
		ShippingCity:                order.ShippingCity,
		ShippingDepartment:          order.ShippingDepartment,
		ShippingNotes:               order.ShippingNotes,
		DeliveryDate:                order.DeliveryDate,
		Subtotal:                    order.Subtotal,
		ShippingCost:                order.ShippingCost,
		DiscountCode:                order.DiscountCode,
		DiscountAmount:              order.DiscountAmount,
		Total:                       order.Total,
		PaymentMethod:               order.PaymentMethod,
		PaymentStatus:               order.PaymentStatus,
		PaymentTransactionReference: order.PaymentTransactionReference,
		Status:                      order.Status,
		Items:                       items,
		PaidAt:                      order.PaidAt,
		CreatedAt:                   order.CreatedAt,
		UpdatedAt:                   order.UpdatedAt,
	}
}
