package calendar

import (
	"fmt"
	"time"

	"github.com/angelmondragon/crumbly-backend/pkg/types"
)

const (
	DefaultCutoffHour      = 12
	DefaultMaxDeliveryDays = 30
)

// MonthDay is a holiday that falls on the same date every year.
type MonthDay struct {
	Month time.Month
	Day   int
}

// FixedHolidays are the national holidays that never move.
var FixedHolidays = []MonthDay{
	{Month: time.January, Day: 1},
	{Month: time.May, Day: 1},
	{Month: time.July, Day: 20},
	{Month: time.August, Day: 7},
	{Month: time.December, Day: 8},
	{Month: time.December, Day: 25},
}

// Snapshot is the calendar data an Engine evaluates against. Movable is keyed
// by year; a year with no entry has no movable-holiday data.
type Snapshot struct {
	Fixed   []MonthDay
	Movable map[int][]types.Date
	Blocked []types.Date
}

// Timing cases reported by DeliveryTimingMessage.
const (
	TimingBeforeCutoff        = "BEFORE_CUTOFF"
	TimingAfterCutoff         = "AFTER_CUTOFF"
	TimingSaturdayAfterCutoff = "SATURDAY_AFTER_CUTOFF"
	TimingSunday              = "SUNDAY"
)

// TimingMessage is informational copy for the storefront.
type TimingMessage struct {
	CanOrderToday bool   `json:"canOrderToday"`
	Case          string `json:"case"`
	Message       string `json:"message"`
}

// Engine answers delivery-date questions from an immutable Snapshot.
type Engine struct {
	loc        *time.Location
	cutoffHour int
	maxDays    int
	fixed      map[MonthDay]struct{}
	movable    map[int]map[types.Date]struct{}
	blocked    map[types.Date]struct{}
}

// Option tweaks engine defaults.
type Option func(*Engine)

func WithCutoffHour(hour int) Option {
	return func(e *Engine) {
		if hour >= 0 && hour <= 23 {
			e.cutoffHour = hour
		}
	}
}

func WithMaxDeliveryDays(days int) Option {
	return func(e *Engine) {
		if days > 0 {
			e.maxDays = days
		}
	}
}

// NewEngine indexes the snapshot. A nil Fixed list means FixedHolidays.
func NewEngine(snapshot Snapshot, loc *time.Location, opts ...Option) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	fixed := snapshot.Fixed
	if fixed == nil {
		fixed = FixedHolidays
	}

	e := &Engine{
		loc:        loc,
		cutoffHour: DefaultCutoffHour,
		maxDays:    DefaultMaxDeliveryDays,
		fixed:      make(map[MonthDay]struct{}, len(fixed)),
		movable:    make(map[int]map[types.Date]struct{}, len(snapshot.Movable)),
		blocked:    make(map[types.Date]struct{}, len(snapshot.Blocked)),
	}
	for _, md := range fixed {
		e.fixed[md] = struct{}{}
	}
	for year, dates := range snapshot.Movable {
		set := make(map[types.Date]struct{}, len(dates))
		for _, d := range dates {
			set[d] = struct{}{}
		}
		e.movable[year] = set
	}
	for _, d := range snapshot.Blocked {
		e.blocked[d] = struct{}{}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Location() *time.Location { return e.loc }

// CoversYear reports whether movable-holiday data exists for year. Without
// it the engine only knows the fixed holidays for that year.
func (e *Engine) CoversYear(year int) bool {
	_, ok := e.movable[year]
	return ok
}

// IsHoliday reports fixed and movable national holidays.
func (e *Engine) IsHoliday(date types.Date) bool {
	if _, ok := e.fixed[MonthDay{Month: date.Month, Day: date.Day}]; ok {
		return true
	}
	if set, ok := e.movable[date.Year]; ok {
		if _, hit := set[date]; hit {
			return true
		}
	}
	return false
}

func (e *Engine) IsBlocked(date types.Date) bool {
	_, ok := e.blocked[date]
	return ok
}

// IsValidDeliveryDate is false on Sundays, holidays and blocked dates.
func (e *Engine) IsValidDeliveryDate(date types.Date) bool {
	if date.IsZero() || date.Weekday() == time.Sunday {
		return false
	}
	return !e.IsHoliday(date) && !e.IsBlocked(date)
}

// MinimumDeliveryDate is the first valid date on or after the cutoff-adjusted
// candidate for an order placed at now.
func (e *Engine) MinimumDeliveryDate(now time.Time) types.Date {
	local := now.In(e.loc)
	today := types.DateOf(local)

	candidate := today.AddDays(1)
	switch local.Weekday() {
	case time.Saturday:
		if local.Hour() >= e.cutoffHour {
			candidate = today.AddDays(2)
		}
	case time.Sunday:
		candidate = today.AddDays(1)
	}

	// A full year of consecutive invalid days cannot happen with real data;
	// the bound keeps a corrupted blocked-date set from looping forever.
	for i := 0; i < 366 && !e.IsValidDeliveryDate(candidate); i++ {
		candidate = candidate.AddDays(1)
	}
	return candidate
}

// MaximumDeliveryDate is the last date a customer may pick.
func (e *Engine) MaximumDeliveryDate(now time.Time) types.Date {
	return types.DateOf(now.In(e.loc)).AddDays(e.maxDays)
}

// InWindow reports whether date is valid and within [min, max] for now.
func (e *Engine) InWindow(date types.Date, now time.Time) bool {
	if !e.IsValidDeliveryDate(date) {
		return false
	}
	return !date.Before(e.MinimumDeliveryDate(now)) && !date.After(e.MaximumDeliveryDate(now))
}

func (e *Engine) DeliveryTimingMessage(now time.Time) TimingMessage {
	local := now.In(e.loc)
	minDate := e.MinimumDeliveryDate(now)

	switch {
	case local.Weekday() == time.Sunday:
		return TimingMessage{
			CanOrderToday: false,
			Case:          TimingSunday,
			Message:       fmt.Sprintf("We do not deliver on Sundays. The earliest delivery is %s.", minDate),
		}
	case local.Weekday() == time.Saturday && local.Hour() >= e.cutoffHour:
		return TimingMessage{
			CanOrderToday: false,
			Case:          TimingSaturdayAfterCutoff,
			Message:       fmt.Sprintf("Saturday orders after %02d:00 are delivered from %s.", e.cutoffHour, minDate),
		}
	case local.Hour() < e.cutoffHour:
		return TimingMessage{
			CanOrderToday: true,
			Case:          TimingBeforeCutoff,
			Message:       fmt.Sprintf("Order before %02d:00 and receive it as soon as %s.", e.cutoffHour, minDate),
		}
	default:
		return TimingMessage{
			CanOrderToday: false,
			Case:          TimingAfterCutoff,
			Message:       fmt.Sprintf("Orders after %02d:00 are prepared for %s or later.", e.cutoffHour, minDate),
		}
	}
}
