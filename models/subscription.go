package models

import (
	"time"
)

type SubscriptionTier string

const (
	TierFree SubscriptionTier = "free"
	TierPro  SubscriptionTier = "pro"
)

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

type BillingCycle string

const (
	BillingMonthly BillingCycle = "monthly"
	BillingYearly  BillingCycle = "yearly"
)

// Subscription is the single authoritative subscription row for a user.
// UserID is the idempotency anchor: every mutation is an upsert keyed on
// it, so replaying a processor event leaves the row unchanged.
type Subscription struct {
	ID                         string             `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID                     string             `json:"userId" gorm:"type:uuid;not null;uniqueIndex"`
	Tier                       SubscriptionTier   `json:"tier" gorm:"type:varchar(10);default:'free'"`
	Status                     SubscriptionStatus `json:"status" gorm:"type:varchar(20);default:'active'"`
	BillingCycle               BillingCycle       `json:"billingCycle" gorm:"type:varchar(10)"`
	StripeCustomerID           string             `json:"stripeCustomerId" gorm:"column:stripe_customer_id"`
	StripeSubscriptionID       string             `json:"stripeSubscriptionId" gorm:"column:stripe_subscription_id;index"`
	PeriodStart                time.Time          `json:"periodStart"`
	PeriodEnd                  time.Time          `json:"periodEnd"`
	GracePeriodDeadline        *time.Time         `json:"gracePeriodDeadline"` // non-null iff status is past_due
	MoneyBackGuaranteeDeadline *time.Time         `json:"moneyBackGuaranteeDeadline"`
	MoneyBackGuaranteeEligible bool               `json:"moneyBackGuaranteeEligible"`
	RefundCount                int                `json:"refundCount"`
	CreatedAt                  time.Time          `json:"createdAt"`
	UpdatedAt                  time.Time          `json:"updatedAt"`
}

// Entitled reports whether the row still grants paid features.
func (s *Subscription) Entitled(now time.Time) bool {
	return s.Tier == TierPro && s.Status == SubscriptionActive && now.Before(s.PeriodEnd)
}
