package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/crumbly-backend/pkg/enums"
	"github.com/angelmondragon/crumbly-backend/pkg/types"
)

// Order is a single checkout submission with its priced totals and settlement state.
type Order struct {
	ID                          uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber                 string               `gorm:"column:order_number;not null;uniqueIndex:uq_orders_order_number"`
	CustomerName                string               `gorm:"column:customer_name;not null"`
	CustomerEmail               string               `gorm:"column:customer_email;not null;index"`
	CustomerPhone               string               `gorm:"column:customer_phone;not null"`
	CustomerNationalID          string               `gorm:"column:customer_national_id;not null"`
	DeliveryMethod              enums.DeliveryMethod `gorm:"column:delivery_method;type:text;not null"`
	ShippingAddress             *string              `gorm:"column:shipping_address"`
	ShippingCity                *string              `gorm:"column:shipping_city"`
	ShippingDepartment          *string              `gorm:"column:shipping_department"`
	ShippingNotes               *string              `gorm:"column:shipping_notes"`
	DeliveryDate                types.Date           `gorm:"column:delivery_date;not null"`
	Subtotal                    int64                `gorm:"column:subtotal;not null"`
	ShippingCost                int64                `gorm:"column:shipping_cost;not null;default:0"`
	DiscountCode                *string              `gorm:"column:discount_code"`
	DiscountAmount              int64                `gorm:"column:discount_amount;not null;default:0"`
	Total                       int64                `gorm:"column:total;not null"`
	PaymentMethod               enums.PaymentMethod  `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus               enums.PaymentStatus  `gorm:"column:payment_status;type:text;not null;default:'PENDING'"`
	PaymentTransactionReference *string              `gorm:"column:payment_transaction_reference;index"`
	Status                      enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'PENDING'"`
	Items                       []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaidAt                      *time.Time           `gorm:"column:paid_at"`
	CreatedAt                   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// OrderItem snapshots a purchased product line at checkout time.
type OrderItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID string    `gorm:"column:product_id;not null"`
	Name      string    `gorm:"column:name;not null"`
	SizeLabel *string   `gorm:"column:size_label"`
	UnitPrice int64     `gorm:"column:unit_price;not null"`
	Quantity  int       `gorm:"column:quantity;not null"`
	ImageURL  *string   `gorm:"column:image_url"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}

// LineTotal is unit price times quantity.
func (i OrderItem) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// OrderSequence is the per-year counter backing order numbers.
type OrderSequence struct {
	Year      int       `gorm:"column:year;primaryKey;autoIncrement:false"`
	LastValue int64     `gorm:"column:last_value;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
