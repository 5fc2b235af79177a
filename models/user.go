package models

import (
	"time"
)

type Role string

const (
	AdminRole Role = "ADMIN"
	UserRole  Role = "USER"
)

// User is the profile row. Only the fields this service touches are
// declared here: notification addressing and the Stripe customer mapping.
type User struct {
	ID               string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Email            string    `json:"email" gorm:"not null;uniqueIndex"`
	UserName         string    `json:"username"`
	Role             Role      `json:"role" gorm:"type:varchar(20);default:'USER'"`
	StripeCustomerID string    `json:"stripeCustomerId" gorm:"column:stripe_customer_id;index"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
