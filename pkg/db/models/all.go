package models

// All lists every persisted model in dependency order.
func All() []any {
	return []any{
		&Order{},
		&OrderItem{},
		&OrderSequence{},
		&DiscountCode{},
		&DiscountRedemption{},
		&FreeShippingRule{},
		&BlockedDate{},
		&MovableHoliday{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
