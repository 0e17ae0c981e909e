package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/crumbly-backend/internal/calendar"
	"github.com/angelmondragon/crumbly-backend/internal/pricing"
	"github.com/angelmondragon/crumbly-backend/pkg/db/models"
	"github.com/angelmondragon/crumbly-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/crumbly-backend/pkg/errors"
	"github.com/angelmondragon/crumbly-backend/pkg/types"
)

type windowProvider interface {
	Window(ctx context.Context, now time.Time) (*calendar.Window, error)
}

type priceResolver interface {
	Price(ctx context.Context, in pricing.PriceInput) (*pricing.Breakdown, error)
}

// Service prices a cart and reports the delivery window before an order exists.
type Service interface {
	Quote(ctx context.Context, input QuoteInput) (*Quote, error)
}

type QuoteInput struct {
	DeliveryMethod enums.DeliveryMethod
	Department     string
	City           string
	Subtotal       int64
	DiscountCode   string
	Email          string
}

// FreeShippingRuleRef is the public view of the rule that waived shipping.
type FreeShippingRuleRef struct {
	Name string                     `json:"name"`
	Type enums.FreeShippingRuleType `json:"type"`
}

type DiscountPreview struct {
	Code    string `json:"code"`
	Percent int    `json:"percent"`
	Amount  int64  `json:"amount"`
	// Error is set when the code was rejected; the quote is still returned.
	Error string `json:"error,omitempty"`
}

type Quote struct {
	Subtotal              int64                  `json:"subtotal"`
	ShippingCost          int64                  `json:"shippingCost"`
	BaseShippingCost      int64                  `json:"baseShippingCost"`
	QualifiesFreeShipping bool                   `json:"qualifiesFreeShipping"`
	FreeShippingRule      *FreeShippingRuleRef   `json:"freeShippingRule,omitempty"`
	Discount              *DiscountPreview       `json:"discount,omitempty"`
	Total                 int64                  `json:"total"`
	MinDeliveryDate       types.Date             `json:"minDeliveryDate"`
	MaxDeliveryDate       types.Date             `json:"maxDeliveryDate"`
	Timing                calendar.TimingMessage `json:"timing"`
	HolidayDataMissing    []int                  `json:"holidayDataMissing,omitempty"`
}

type service struct {
	calendar        windowProvider
	pricing         priceResolver
	discountPreview bool
	now             func() time.Time
}

type ServiceParams struct {
	Calendar        windowProvider
	Pricing         priceResolver
	DiscountPreview bool
	Clock           func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Calendar == nil {
		return nil, fmt.Errorf("calendar service required")
	}
	if params.Pricing == nil {
		return nil, fmt.Errorf("pricing resolver required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		calendar:        params.Calendar,
		pricing:         params.Pricing,
		discountPreview: params.DiscountPreview,
		now:             clock,
	}, nil
}

func (s *service) Quote(ctx context.Context, input QuoteInput) (*Quote, error) {
	if input.DeliveryMethod == "" {
		input.DeliveryMethod = enums.DeliveryMethodDelivery
	}
	if !input.DeliveryMethod.IsValid() {
		return nil, pkgerrors.Field("deliveryMethod", "delivery method must be DELIVERY or PICKUP")
	}
	if input.Subtotal < 0 {
		return nil, pkgerrors.Field("subtotal", "subtotal must not be negative")
	}
	if input.DeliveryMethod == enums.DeliveryMethodDelivery && strings.TrimSpace(input.Department) == "" {
		return nil, pkgerrors.Field("department", "department is required for delivery")
	}

	now := s.now()
	window, err := s.calendar.Window(ctx, now)
	if err != nil {
		return nil, err
	}

	priceIn := pricing.PriceInput{
		DeliveryMethod: input.DeliveryMethod,
		Department:     input.Department,
		City:           input.City,
		Subtotal:       input.Subtotal,
		Now:            now,
	}
	code := pricing.NormalizeCode(input.DiscountCode)
	if s.discountPreview && code != "" {
		priceIn.DiscountCode = code
		priceIn.Email = input.Email
	}

	breakdown, err := s.pricing.Price(ctx, priceIn)
	var preview *DiscountPreview
	if err != nil && priceIn.DiscountCode != "" && isDiscountRejection(err) {
		// Quote without the code and say why it was dropped.
		preview = &DiscountPreview{Code: code, Error: pkgerrors.As(err).Message()}
		priceIn.DiscountCode = ""
		breakdown, err = s.pricing.Price(ctx, priceIn)
	}
	if err != nil {
		return nil, err
	}
	if breakdown.DiscountCode != nil {
		preview = &DiscountPreview{
			Code:    *breakdown.DiscountCode,
			Percent: breakdown.DiscountPercent,
			Amount:  breakdown.DiscountAmount,
		}
	}

	return &Quote{
		Subtotal:              breakdown.Subtotal,
		ShippingCost:          breakdown.Shipping.Cost,
		BaseShippingCost:      breakdown.Shipping.BaseCost,
		QualifiesFreeShipping: breakdown.Shipping.FreeShipping,
		FreeShippingRule:      ruleRef(breakdown.Shipping.Rule),
		Discount:              preview,
		Total:                 breakdown.Total,
		MinDeliveryDate:       window.MinDate,
		MaxDeliveryDate:       window.MaxDate,
		Timing:                window.Timing,
		HolidayDataMissing:    window.HolidayDataMissing,
	}, nil
}

func isDiscountRejection(err error) bool {
	return errors.Is(err, pricing.ErrCodeNotFound) || errors.Is(err, pricing.ErrCodeAlreadyUsed)
}

func ruleRef(rule *models.FreeShippingRule) *FreeShippingRuleRef {
	if rule == nil {
		return nil
	}
	return &FreeShippingRuleRef{Name: rule.Name, Type: rule.Type}
}
