// Package billing holds the seat-limit rules the claims workflow
// consults before creating memberships.
package billing

import (
	"errors"

	"github.com/reporthere/reporthere/internal/models"
)

// ErrSeatLimitExceeded is returned when adding a member would exceed the
// subscription's seat capacity. Verification itself still succeeds; only
// membership creation is blocked.
var ErrSeatLimitExceeded = errors.New("seat limit exceeded")

// WithinSeatLimit reports whether a company may grow to the proposed
// member count under its subscription.
//
// A nil subscription or the Free plan is always within limits - seat
// enforcement starts with paid plans. Paid plans must be active and the
// proposed count must fit the seat capacity (default 3 when unset).
func WithinSeatLimit(sub *models.Subscription, proposedMemberCount int) bool {
	if sub == nil || sub.Plan == models.PlanFree {
		return true
	}
	if sub.Status != models.SubscriptionStatusActive {
		return false
	}
	return proposedMemberCount <= sub.SeatCapacity()
}
