package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Asibe-Cheta/soundbridge-sub006/models"
)

// Store is the access layer over the subscription tables. All writes to the
// subscription row go through Upsert; there is deliberately no UPDATE path
// that could silently match zero rows.
type Store struct {
	dbc *gorm.DB
}

func NewStore(dbc *gorm.DB) *Store {
	return &Store{dbc: dbc}
}

// FindByUserID returns (nil, nil) when the user has no record yet.
func (s *Store) FindByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.dbc.WithContext(ctx).First(&sub, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find subscription for user %s: %w", userID, err)
	}
	return &sub, nil
}

// FindByStripeSubscriptionID resolves events that carry only the processor
// subscription id. (nil, nil) means a permanent miss, not a failure.
func (s *Store) FindByStripeSubscriptionID(ctx context.Context, subID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.dbc.WithContext(ctx).First(&sub, "stripe_subscription_id = ?", subID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find subscription %s: %w", subID, err)
	}
	return &sub, nil
}

// Upsert applies a reconciler change: insert the row, or on a user_id
// conflict overwrite exactly the columns the event owns. Replaying the same
// event therefore converges on the same row, and the conflict clause is the
// serialization point for concurrent events on one user.
func (s *Store) Upsert(ctx context.Context, change *Change) error {
	record := change.Record
	err := s.dbc.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(change.Columns),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("upsert subscription for user %s: %w", change.Record.UserID, err)
	}
	return nil
}

// ListLapsedPastDue returns the sweep candidates: past_due rows whose grace
// deadline has passed, or legacy rows without a deadline that have not been
// touched since before the cutoff.
func (s *Store) ListLapsedPastDue(ctx context.Context, now, cutoff time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.dbc.WithContext(ctx).
		Where("status = ?", models.SubscriptionPastDue).
		Where("(grace_period_deadline IS NOT NULL AND grace_period_deadline <= ?) OR (grace_period_deadline IS NULL AND updated_at <= ?)", now, cutoff).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("list lapsed past_due subscriptions: %w", err)
	}
	return subs, nil
}

// CreateRefund records a money-back-guarantee refund keyed by payment
// intent.
func (s *Store) CreateRefund(ctx context.Context, refund *models.SubscriptionRefund) error {
	if err := s.dbc.WithContext(ctx).Create(refund).Error; err != nil {
		return fmt.Errorf("create refund record: %w", err)
	}
	return nil
}

// AttachRefund stamps the processor refund id and timestamp onto the refund
// row for a payment intent. The bool is false when no row matches: a
// permanent miss the caller logs and drops.
func (s *Store) AttachRefund(ctx context.Context, paymentIntentID, refundID string, refundedAt time.Time) (bool, error) {
	var refund models.SubscriptionRefund
	err := s.dbc.WithContext(ctx).First(&refund, "stripe_payment_intent_id = ?", paymentIntentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find refund for payment intent %s: %w", paymentIntentID, err)
	}

	updates := map[string]interface{}{
		"stripe_refund_id": refundID,
		"refunded_at":      refundedAt,
	}
	if err := s.dbc.WithContext(ctx).Model(&refund).Updates(updates).Error; err != nil {
		return false, fmt.Errorf("attach refund %s: %w", refundID, err)
	}
	return true, nil
}
