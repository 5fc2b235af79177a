package models

import (
	"time"
)

// SubscriptionRefund records a money-back-guarantee refund. The Stripe
// payment intent is the dedup key: the charge.refunded webhook attaches the
// processor refund id to an existing row and never creates one.
type SubscriptionRefund struct {
	ID                    string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID                string     `json:"userId" gorm:"type:uuid;not null"`
	SubscriptionID        string     `json:"subscriptionId" gorm:"type:uuid;not null"`
	Amount                int64      `json:"amount"` // smallest currency unit
	Currency              string     `json:"currency" gorm:"type:varchar(3)"`
	StripePaymentIntentID string     `json:"stripePaymentIntentId" gorm:"column:stripe_payment_intent_id;uniqueIndex"`
	StripeRefundID        string     `json:"stripeRefundId" gorm:"column:stripe_refund_id"`
	RefundedAt            *time.Time `json:"refundedAt"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}
