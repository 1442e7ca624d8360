package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reporthere/reporthere/internal/models"
)

func TestWithinSeatLimit(t *testing.T) {
	tests := []struct {
		name     string
		sub      *models.Subscription
		proposed int
		want     bool
	}{
		{
			name:     "nil subscription is unlimited",
			sub:      nil,
			proposed: 100,
			want:     true,
		},
		{
			name:     "free plan is unlimited",
			sub:      &models.Subscription{Plan: models.PlanFree},
			proposed: 50,
			want:     true,
		},
		{
			name:     "active pro plan at capacity",
			sub:      &models.Subscription{Plan: models.PlanPro, Status: models.SubscriptionStatusActive, Seats: 3},
			proposed: 3,
			want:     true,
		},
		{
			name:     "active pro plan over capacity",
			sub:      &models.Subscription{Plan: models.PlanPro, Status: models.SubscriptionStatusActive, Seats: 3},
			proposed: 4,
			want:     false,
		},
		{
			name:     "past due paid plan denies any addition",
			sub:      &models.Subscription{Plan: models.PlanPro, Status: models.SubscriptionStatusPastDue, Seats: 3},
			proposed: 1,
			want:     false,
		},
		{
			name:     "unset seats defaults to three",
			sub:      &models.Subscription{Plan: models.PlanBasic, Status: models.SubscriptionStatusActive},
			proposed: 3,
			want:     true,
		},
		{
			name:     "unset seats defaults to three and denies a fourth",
			sub:      &models.Subscription{Plan: models.PlanBasic, Status: models.SubscriptionStatusActive},
			proposed: 4,
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithinSeatLimit(tt.sub, tt.proposed))
		})
	}
}
