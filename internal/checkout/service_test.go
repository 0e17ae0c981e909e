package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/crumbly-backend/internal/calendar"
	"github.com/angelmondragon/crumbly-backend/internal/pricing"
	"github.com/angelmondragon/crumbly-backend/pkg/db/models"
	"github.com/angelmondragon/crumbly-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/crumbly-backend/pkg/errors"
	"github.com/angelmondragon/crumbly-backend/pkg/types"
)

type stubWindow struct {
	window *calendar.Window
	err    error
	gotNow time.Time
}

func (s *stubWindow) Window(_ context.Context, now time.Time) (*calendar.Window, error) {
	s.gotNow = now
	return s.window, s.err
}

type stubPricing struct {
	calls []pricing.PriceInput
	fn    func(in pricing.PriceInput) (*pricing.Breakdown, error)
}

func (s *stubPricing) Price(_ context.Context, in pricing.PriceInput) (*pricing.Breakdown, error) {
	s.calls = append(s.calls, in)
	return s.fn(in)
}

var fixedNow = time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)

func testWindow() *calendar.Window {
	return &calendar.Window{
		MinDate: types.NewDate(2026, time.October, 16),
		MaxDate: types.NewDate(2026, time.November, 14),
		Timing:  calendar.TimingMessage{CanOrderToday: true, Case: calendar.TimingBeforeCutoff, Message: "ok"},
	}
}

func newService(t *testing.T, cal windowProvider, price priceResolver, preview bool) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Calendar:        cal,
		Pricing:         price,
		DiscountPreview: preview,
		Clock:           func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestQuoteCombinesWindowAndPrice(t *testing.T) {
	cal := &stubWindow{window: testWindow()}
	code := "WELCOME10"
	price := &stubPricing{fn: func(in pricing.PriceInput) (*pricing.Breakdown, error) {
		return &pricing.Breakdown{
			Subtotal: in.Subtotal,
			Shipping: pricing.ShippingQuote{
				BaseCost:     15000,
				FreeShipping: true,
				Rule:         &models.FreeShippingRule{Name: "over 100k", Type: enums.FreeShippingMinimumPurchase},
			},
			DiscountCode:    &code,
			DiscountPercent: 10,
			DiscountAmount:  12000,
			Total:           108000,
		}, nil
	}}
	svc := newService(t, cal, price, true)

	quote, err := svc.Quote(context.Background(), QuoteInput{
		Department:   "Cundinamarca",
		City:         "Chía",
		Subtotal:     120000,
		DiscountCode: "welcome10",
		Email:        "ana@example.com",
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !cal.gotNow.Equal(fixedNow) {
		t.Fatalf("calendar evaluated at %s", cal.gotNow)
	}
	if quote.ShippingCost != 0 || !quote.QualifiesFreeShipping || quote.BaseShippingCost != 15000 {
		t.Fatalf("unexpected shipping in quote %+v", quote)
	}
	if quote.FreeShippingRule == nil || quote.FreeShippingRule.Name != "over 100k" {
		t.Fatalf("expected matched rule, got %+v", quote.FreeShippingRule)
	}
	if quote.Discount == nil || quote.Discount.Amount != 12000 || quote.Discount.Code != "WELCOME10" {
		t.Fatalf("unexpected discount preview %+v", quote.Discount)
	}
	if quote.Total != 108000 {
		t.Fatalf("expected total 108000, got %d", quote.Total)
	}
	if quote.MinDeliveryDate != types.NewDate(2026, time.October, 16) {
		t.Fatalf("unexpected min date %s", quote.MinDeliveryDate)
	}
	if len(price.calls) != 1 || price.calls[0].DeliveryMethod != enums.DeliveryMethodDelivery {
		t.Fatalf("expected a single delivery pricing call, got %+v", price.calls)
	}
}

func TestQuoteDropsRejectedDiscount(t *testing.T) {
	price := &stubPricing{fn: func(in pricing.PriceInput) (*pricing.Breakdown, error) {
		if in.DiscountCode != "" {
			return nil, pricing.ErrCodeAlreadyUsed
		}
		return &pricing.Breakdown{Subtotal: in.Subtotal, Shipping: pricing.ShippingQuote{BaseCost: 10000, Cost: 10000}, Total: in.Subtotal + 10000}, nil
	}}
	svc := newService(t, &stubWindow{window: testWindow()}, price, true)

	quote, err := svc.Quote(context.Background(), QuoteInput{
		Department:   "Bogotá D.C.",
		City:         "Bogotá",
		Subtotal:     50000,
		DiscountCode: "used",
		Email:        "ana@example.com",
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.Total != 60000 {
		t.Fatalf("expected undiscounted total, got %d", quote.Total)
	}
	if quote.Discount == nil || quote.Discount.Error == "" || quote.Discount.Amount != 0 {
		t.Fatalf("expected rejected discount preview, got %+v", quote.Discount)
	}
	if len(price.calls) != 2 {
		t.Fatalf("expected a retry without the code, got %d calls", len(price.calls))
	}
}

func TestQuoteIgnoresCodeWhenPreviewDisabled(t *testing.T) {
	price := &stubPricing{fn: func(in pricing.PriceInput) (*pricing.Breakdown, error) {
		if in.DiscountCode != "" {
			t.Fatalf("discount code must not reach pricing")
		}
		return &pricing.Breakdown{Subtotal: in.Subtotal, Total: in.Subtotal}, nil
	}}
	svc := newService(t, &stubWindow{window: testWindow()}, price, false)

	quote, err := svc.Quote(context.Background(), QuoteInput{DeliveryMethod: enums.DeliveryMethodPickup, Subtotal: 30000, DiscountCode: "WELCOME10"})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.Discount != nil {
		t.Fatalf("unexpected discount preview %+v", quote.Discount)
	}
}

func TestQuoteValidation(t *testing.T) {
	price := &stubPricing{fn: func(pricing.PriceInput) (*pricing.Breakdown, error) {
		return &pricing.Breakdown{}, nil
	}}
	svc := newService(t, &stubWindow{window: testWindow()}, price, true)

	cases := map[string]struct {
		input QuoteInput
		field string
	}{
		"bad method":         {QuoteInput{DeliveryMethod: "DRONE", Department: "Meta"}, "deliveryMethod"},
		"negative subtotal":  {QuoteInput{Department: "Meta", Subtotal: -1}, "subtotal"},
		"missing department": {QuoteInput{Subtotal: 1000}, "department"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Quote(context.Background(), tc.input)
			if got := pkgerrors.FieldOf(err); got != tc.field {
				t.Fatalf("field = %q, want %q (err %v)", got, tc.field, err)
			}
		})
	}
}

func TestQuotePropagatesCalendarFailure(t *testing.T) {
	boom := pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("db down"), "load blocked dates")
	price := &stubPricing{fn: func(pricing.PriceInput) (*pricing.Breakdown, error) { return &pricing.Breakdown{}, nil }}
	svc := newService(t, &stubWindow{err: boom}, price, true)

	_, err := svc.Quote(context.Background(), QuoteInput{Department: "Meta", Subtotal: 1000})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
