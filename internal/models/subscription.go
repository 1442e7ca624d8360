package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription plans.
const (
	PlanFree  = "Free"
	PlanBasic = "Basic"
	PlanPro   = "Pro"
)

// Subscription statuses.
const (
	SubscriptionStatusActive  = "active"
	SubscriptionStatusPastDue = "past_due"
)

// DefaultSeats is the seat capacity assumed when a paid subscription has
// no explicit seat count.
const DefaultSeats = 3

// Subscription is the billing tier governing a company's seat allowance.
// The claims workflow reads it only as input to the seat-limit guard.
type Subscription struct {
	SubscriptionID uuid.UUID
	CompanyID      uuid.UUID
	Plan           string
	Status         string
	Seats          int // 0 means unset; guard falls back to DefaultSeats

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SeatCapacity returns the effective seat count for the subscription.
func (s *Subscription) SeatCapacity() int {
	if s.Seats <= 0 {
		return DefaultSeats
	}
	return s.Seats
}
