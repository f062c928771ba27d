package model

import (
	"time"

	"gorm.io/gorm"
)

type PlanType string

const (
	PlanFree    PlanType = "free"
	PlanPremium PlanType = "premium"
)

// Subscription mirrors the Stripe subscription state for a user. The plan is
// never stored; it is derived from Status on read.
type Subscription struct {
	ID                   uint           `json:"id" gorm:"primaryKey"`
	UserID               uint           `json:"user_id" gorm:"not null;uniqueIndex"`
	Status               string         `json:"status" gorm:"type:varchar(30);not null"`
	StripeCustomerID     string         `json:"stripe_customer_id" gorm:"index"`
	StripeSubscriptionID string         `json:"stripe_subscription_id" gorm:"index"`
	CurrentPeriodEnd     *time.Time     `json:"current_period_end"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	DeletedAt            gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// Plan maps a subscription status to the plan it grants. A nil subscription
// means the user never subscribed and is on the free plan.
func (s *Subscription) Plan() PlanType {
	if s == nil {
		return PlanFree
	}

	switch s.Status {
	case "active", "trialing":
		return PlanPremium
	default:
		return PlanFree
	}
}

type PlanResponse struct {
	CurrentPlan PlanType `json:"current_plan"`
}
