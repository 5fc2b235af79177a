package subscription

import (
	"time"

	"github.com/Asibe-Cheta/soundbridge-sub006/models"
)

// OutcomeKind tells the caller what the reconciler decided, without
// exceptions-as-control-flow: Skipped means "nothing to do, acknowledge",
// Applied means "persist this change, then dispatch the notification".
type OutcomeKind int

const (
	Skipped OutcomeKind = iota
	Applied
)

// Change is the desired row state plus the exact columns to overwrite when
// the row already exists. The upsert keyed on user_id with this column set
// is what makes event replay a no-op.
type Change struct {
	Record  models.Subscription
	Columns []string
}

type NotificationKind string

const (
	NotifyConfirmation  NotificationKind = "subscription_confirmation"
	NotifyReceipt       NotificationKind = "payment_receipt"
	NotifyPaymentFailed NotificationKind = "payment_failed"
	NotifyDowngraded    NotificationKind = "account_downgraded"
)

// Notification is the pending side effect of a transition. It is returned
// to the caller rather than fired here, so state persistence and mail
// dispatch cannot contaminate each other.
type Notification struct {
	Kind          NotificationKind
	UserID        string
	Amount        int64
	Currency      string
	BillingCycle  models.BillingCycle
	PeriodStart   time.Time
	PeriodEnd     time.Time
	GraceDeadline time.Time
	Reason        string
	OccurredAt    time.Time
}

type Outcome struct {
	Kind         OutcomeKind
	Change       *Change
	Notification *Notification
	Reason       string // set when Kind is Skipped
}

func skipped(reason string) Outcome {
	return Outcome{Kind: Skipped, Reason: reason}
}

// Reconciler maps (current record, event) to the next record state. It is
// pure: no I/O, the clock comes in as an argument.
type Reconciler struct {
	GracePeriod     time.Duration
	GuaranteeWindow time.Duration
}

const guaranteeWindowDays = 7

func NewReconciler(gracePeriod time.Duration) *Reconciler {
	return &Reconciler{
		GracePeriod:     gracePeriod,
		GuaranteeWindow: guaranteeWindowDays * 24 * time.Hour,
	}
}

// Apply computes the transition for one event. current is nil when no
// record matched the event's resolution key; only a checkout may create a
// record, every other kind is dropped as a permanent miss.
func (r *Reconciler) Apply(current *models.Subscription, ev Event, now time.Time) Outcome {
	switch e := ev.(type) {
	case CheckoutCompleted:
		return r.applyCheckout(current, e, now)
	case SubscriptionChanged:
		if current == nil {
			return skipped("no record for subscription " + e.SubscriptionID)
		}
		return r.applySubscriptionChanged(current, e, now)
	case SubscriptionDeleted:
		if current == nil {
			return skipped("no record for subscription " + e.SubscriptionID)
		}
		return r.applyDeleted(current, now)
	case InvoicePaid:
		if current == nil {
			return skipped("no record for subscription " + e.SubscriptionID)
		}
		return r.applyInvoicePaid(current, e, now)
	case InvoiceFailed:
		if current == nil {
			return skipped("no record for subscription " + e.SubscriptionID)
		}
		return r.applyInvoiceFailed(current, e, now)
	case GraceExpired:
		if current == nil {
			return skipped("no record for user " + e.UserID)
		}
		return r.applyGraceExpired(current, now)
	case RefundGranted:
		if current == nil {
			return skipped("no record for user " + e.UserID)
		}
		return r.applyRefundGranted(current, e, now)
	}
	return skipped("unhandled event kind " + ev.Kind())
}

func (r *Reconciler) applyCheckout(current *models.Subscription, e CheckoutCompleted, now time.Time) Outcome {
	record := models.Subscription{}
	if current != nil {
		record = *current
	}
	record.UserID = e.UserID
	record.Tier = models.TierPro
	record.Status = models.SubscriptionActive
	record.BillingCycle = e.BillingCycle
	record.StripeCustomerID = e.CustomerID
	record.StripeSubscriptionID = e.SubscriptionID
	record.PeriodStart = now
	record.PeriodEnd = addCycle(now, e.BillingCycle)
	record.GracePeriodDeadline = nil
	guarantee := now.Add(r.GuaranteeWindow)
	record.MoneyBackGuaranteeDeadline = &guarantee
	record.MoneyBackGuaranteeEligible = true
	record.RefundCount = 0
	record.UpdatedAt = now

	return Outcome{
		Kind: Applied,
		Change: &Change{
			Record: record,
			Columns: []string{
				"tier", "status", "billing_cycle",
				"stripe_customer_id", "stripe_subscription_id",
				"period_start", "period_end", "grace_period_deadline",
				"money_back_guarantee_deadline", "money_back_guarantee_eligible",
				"refund_count", "updated_at",
			},
		},
		Notification: &Notification{
			Kind:         NotifyConfirmation,
			UserID:       e.UserID,
			Amount:       e.AmountTotal,
			Currency:     e.Currency,
			BillingCycle: e.BillingCycle,
			PeriodStart:  record.PeriodStart,
			PeriodEnd:    record.PeriodEnd,
			OccurredAt:   now,
		},
	}
}

func (r *Reconciler) applySubscriptionChanged(current *models.Subscription, e SubscriptionChanged, now time.Time) Outcome {
	record := *current
	record.Status = mapProcessorStatus(e.ProcessorStatus)
	record.StripeSubscriptionID = e.SubscriptionID
	if !e.PeriodStart.IsZero() {
		record.PeriodStart = e.PeriodStart
	}
	if !e.PeriodEnd.IsZero() {
		record.PeriodEnd = e.PeriodEnd
	}
	if e.BillingCycle != "" {
		record.BillingCycle = e.BillingCycle
	}

	switch record.Status {
	case models.SubscriptionPastDue:
		if record.GracePeriodDeadline == nil {
			deadline := now.Add(r.GracePeriod)
			record.GracePeriodDeadline = &deadline
		}
	case models.SubscriptionCancelled, models.SubscriptionExpired:
		record.Tier = models.TierFree
		record.GracePeriodDeadline = nil
	default:
		record.GracePeriodDeadline = nil
	}
	record.UpdatedAt = now

	return Outcome{
		Kind: Applied,
		Change: &Change{
			Record: record,
			Columns: []string{
				"tier", "status", "billing_cycle", "stripe_subscription_id",
				"period_start", "period_end", "grace_period_deadline", "updated_at",
			},
		},
	}
}

func (r *Reconciler) applyDeleted(current *models.Subscription, now time.Time) Outcome {
	record := *current
	record.Status = models.SubscriptionCancelled
	record.Tier = models.TierFree
	record.PeriodEnd = now
	record.GracePeriodDeadline = nil
	record.UpdatedAt = now

	return Outcome{
		Kind: Applied,
		Change: &Change{
			Record:  record,
			Columns: []string{"tier", "status", "period_end", "grace_period_deadline", "updated_at"},
		},
		Notification: &Notification{
			Kind:       NotifyDowngraded,
			UserID:     record.UserID,
			Reason:     "cancelled",
			OccurredAt: now,
		},
	}
}

func (r *Reconciler) applyInvoicePaid(current *models.Subscription, e InvoicePaid, now time.Time) Outcome {
	record := *current
	record.Status = models.SubscriptionActive
	if !e.PeriodEnd.IsZero() {
		record.PeriodEnd = e.PeriodEnd
	}
	record.GracePeriodDeadline = nil
	record.UpdatedAt = now

	return Outcome{
		Kind: Applied,
		Change: &Change{
			Record:  record,
			Columns: []string{"status", "period_end", "grace_period_deadline", "updated_at"},
		},
		Notification: &Notification{
			Kind:         NotifyReceipt,
			UserID:       record.UserID,
			Amount:       e.AmountPaid,
			Currency:     e.Currency,
			BillingCycle: record.BillingCycle,
			PeriodEnd:    record.PeriodEnd,
			OccurredAt:   now,
		},
	}
}

func (r *Reconciler) applyInvoiceFailed(current *models.Subscription, e InvoiceFailed, now time.Time) Outcome {
	record := *current
	record.Status = models.SubscriptionPastDue
	// A redelivered failure must not push an already-running grace window
	// out by the redelivery delay.
	if current.Status != models.SubscriptionPastDue || current.GracePeriodDeadline == nil {
		deadline := now.Add(r.GracePeriod)
		record.GracePeriodDeadline = &deadline
	}
	record.UpdatedAt = now

	return Outcome{
		Kind: Applied,
		Change: &Change{
			Record:  record,
			Columns: []string{"status", "grace_period_deadline", "updated_at"},
		},
		Notification: &Notification{
			Kind:          NotifyPaymentFailed,
			UserID:        record.UserID,
			Amount:        e.AmountDue,
			Currency:      e.Currency,
			BillingCycle:  record.BillingCycle,
			GraceDeadline: *record.GracePeriodDeadline,
			OccurredAt:    now,
		},
	}
}

func (r *Reconciler) applyGraceExpired(current *models.Subscription, now time.Time) Outcome {
	// The sweep only selects past_due rows, but a concurrent payment may
	// have recovered the record between the scan and this call.
	if current.Status != models.SubscriptionPastDue {
		return skipped("record no longer past_due for user " + current.UserID)
	}

	record := *current
	record.Status = models.SubscriptionExpired
	record.Tier = models.TierFree
	record.PeriodEnd = now
	record.GracePeriodDeadline = nil
	record.UpdatedAt = now

	return Outcome{
		Kind: Applied,
		Change: &Change{
			Record:  record,
			Columns: []string{"tier", "status", "period_end", "grace_period_deadline", "updated_at"},
		},
		Notification: &Notification{
			Kind:       NotifyDowngraded,
			UserID:     record.UserID,
			Reason:     "payment_failed",
			OccurredAt: now,
		},
	}
}

func (r *Reconciler) applyRefundGranted(current *models.Subscription, e RefundGranted, now time.Time) Outcome {
	record := *current
	record.Status = models.SubscriptionCancelled
	record.Tier = models.TierFree
	record.PeriodEnd = now
	record.GracePeriodDeadline = nil
	record.RefundCount = e.RefundCount
	// One refund is a guarantee, two is a pattern.
	record.MoneyBackGuaranteeEligible = e.RefundCount < 2
	record.UpdatedAt = now

	return Outcome{
		Kind: Applied,
		Change: &Change{
			Record: record,
			Columns: []string{
				"tier", "status", "period_end", "grace_period_deadline",
				"refund_count", "money_back_guarantee_eligible", "updated_at",
			},
		},
		Notification: &Notification{
			Kind:       NotifyDowngraded,
			UserID:     record.UserID,
			Reason:     "cancelled",
			OccurredAt: now,
		},
	}
}

// mapProcessorStatus folds Stripe's subscription status vocabulary onto the
// local one. Anything unrecognized is treated as lapsed.
func mapProcessorStatus(status string) models.SubscriptionStatus {
	switch status {
	case "active", "trialing":
		return models.SubscriptionActive
	case "past_due", "unpaid":
		return models.SubscriptionPastDue
	case "canceled":
		return models.SubscriptionCancelled
	default:
		return models.SubscriptionExpired
	}
}

func addCycle(t time.Time, cycle models.BillingCycle) time.Time {
	if cycle == models.BillingYearly {
		return t.AddDate(1, 0, 0)
	}
	return t.AddDate(0, 1, 0)
}
