package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Asibe-Cheta/soundbridge-sub006/models"
)

var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func testReconciler() *Reconciler {
	return NewReconciler(7 * 24 * time.Hour)
}

func activeProRecord() *models.Subscription {
	deadline := testNow.Add(-2 * 24 * time.Hour) // guarantee window opened 5 days ago
	return &models.Subscription{
		ID:                         "rec-1",
		UserID:                     "user-1",
		Tier:                       models.TierPro,
		Status:                     models.SubscriptionActive,
		BillingCycle:               models.BillingMonthly,
		StripeCustomerID:           "cus_123",
		StripeSubscriptionID:       "sub_123",
		PeriodStart:                testNow.AddDate(0, 0, -5),
		PeriodEnd:                  testNow.AddDate(0, 0, 25),
		MoneyBackGuaranteeDeadline: &deadline,
		MoneyBackGuaranteeEligible: true,
	}
}

func TestApplyCheckout_CreatesActiveProRecord(t *testing.T) {
	r := testReconciler()

	out := r.Apply(nil, CheckoutCompleted{
		UserID:         "user-1",
		CustomerID:     "cus_123",
		SubscriptionID: "sub_123",
		BillingCycle:   models.BillingMonthly,
		AmountTotal:    999,
		Currency:       "gbp",
	}, testNow)

	assert.Equal(t, Applied, out.Kind)
	record := out.Change.Record
	assert.Equal(t, models.TierPro, record.Tier)
	assert.Equal(t, models.SubscriptionActive, record.Status)
	assert.Equal(t, models.BillingMonthly, record.BillingCycle)
	assert.Equal(t, "cus_123", record.StripeCustomerID)
	assert.Equal(t, "sub_123", record.StripeSubscriptionID)
	assert.Equal(t, testNow, record.PeriodStart)
	assert.Equal(t, testNow.AddDate(0, 1, 0), record.PeriodEnd)
	assert.Nil(t, record.GracePeriodDeadline)
	assert.NotNil(t, record.MoneyBackGuaranteeDeadline)
	assert.Equal(t, testNow.Add(7*24*time.Hour), *record.MoneyBackGuaranteeDeadline)
	assert.True(t, record.MoneyBackGuaranteeEligible)
	assert.Equal(t, 0, record.RefundCount)

	assert.NotNil(t, out.Notification)
	assert.Equal(t, NotifyConfirmation, out.Notification.Kind)
	assert.Equal(t, "user-1", out.Notification.UserID)
}

func TestApplyCheckout_YearlyCycleSetsYearPeriod(t *testing.T) {
	r := testReconciler()

	out := r.Apply(nil, CheckoutCompleted{
		UserID:       "user-1",
		BillingCycle: models.BillingYearly,
	}, testNow)

	assert.Equal(t, Applied, out.Kind)
	assert.Equal(t, testNow.AddDate(1, 0, 0), out.Change.Record.PeriodEnd)
}

func TestApplyCheckout_ReactivatesTerminalRecord(t *testing.T) {
	r := testReconciler()
	current := activeProRecord()
	current.Tier = models.TierFree
	current.Status = models.SubscriptionExpired

	out := r.Apply(current, CheckoutCompleted{
		UserID:         "user-1",
		CustomerID:     "cus_456",
		SubscriptionID: "sub_456",
		BillingCycle:   models.BillingMonthly,
	}, testNow)

	assert.Equal(t, Applied, out.Kind)
	assert.Equal(t, models.TierPro, out.Change.Record.Tier)
	assert.Equal(t, models.SubscriptionActive, out.Change.Record.Status)
	assert.Equal(t, "sub_456", out.Change.Record.StripeSubscriptionID)
}

func TestApply_Idempotency(t *testing.T) {
	r := testReconciler()

	events := []Event{
		CheckoutCompleted{UserID: "user-1", CustomerID: "cus_123", SubscriptionID: "sub_123", BillingCycle: models.BillingMonthly, AmountTotal: 999, Currency: "gbp"},
		SubscriptionChanged{SubscriptionID: "sub_123", ProcessorStatus: "active", PeriodEnd: testNow.AddDate(0, 1, 0)},
		InvoicePaid{SubscriptionID: "sub_123", AmountPaid: 999, Currency: "gbp", PeriodEnd: testNow.AddDate(0, 1, 0)},
		InvoiceFailed{SubscriptionID: "sub_123", AmountDue: 999, Currency: "gbp"},
		SubscriptionDeleted{SubscriptionID: "sub_123"},
	}

	for _, ev := range events {
		current := activeProRecord()

		first := r.Apply(current, ev, testNow)
		assert.Equal(t, Applied, first.Kind, "event %s", ev.Kind())

		// Replay against the state the first application produced.
		replayed := first.Change.Record
		second := r.Apply(&replayed, ev, testNow)
		assert.Equal(t, Applied, second.Kind, "event %s", ev.Kind())
		assert.Equal(t, first.Change.Record, second.Change.Record, "replaying %s must converge on the same record", ev.Kind())
		assert.Equal(t, first.Change.Columns, second.Change.Columns, "event %s", ev.Kind())
	}
}

func TestApply_SubscriptionEventsWithoutRecordAreSkipped(t *testing.T) {
	r := testReconciler()

	events := []Event{
		SubscriptionChanged{SubscriptionID: "sub_unknown"},
		SubscriptionDeleted{SubscriptionID: "sub_unknown"},
		InvoicePaid{SubscriptionID: "sub_unknown"},
		InvoiceFailed{SubscriptionID: "sub_unknown"},
	}

	for _, ev := range events {
		out := r.Apply(nil, ev, testNow)
		assert.Equal(t, Skipped, out.Kind, "event %s", ev.Kind())
		assert.Nil(t, out.Change, "event %s", ev.Kind())
		assert.Nil(t, out.Notification, "event %s", ev.Kind())
	}
}

func TestApplySubscriptionChanged_StatusMapping(t *testing.T) {
	r := testReconciler()

	cases := []struct {
		processor string
		status    models.SubscriptionStatus
		tier      models.SubscriptionTier
		hasGrace  bool
	}{
		{"active", models.SubscriptionActive, models.TierPro, false},
		{"trialing", models.SubscriptionActive, models.TierPro, false},
		{"past_due", models.SubscriptionPastDue, models.TierPro, true},
		{"unpaid", models.SubscriptionPastDue, models.TierPro, true},
		{"canceled", models.SubscriptionCancelled, models.TierFree, false},
		{"incomplete_expired", models.SubscriptionExpired, models.TierFree, false},
	}

	for _, tc := range cases {
		out := r.Apply(activeProRecord(), SubscriptionChanged{
			SubscriptionID:  "sub_123",
			ProcessorStatus: tc.processor,
		}, testNow)

		assert.Equal(t, Applied, out.Kind, tc.processor)
		record := out.Change.Record
		assert.Equal(t, tc.status, record.Status, tc.processor)
		assert.Equal(t, tc.tier, record.Tier, tc.processor)
		if tc.hasGrace {
			assert.NotNil(t, record.GracePeriodDeadline, tc.processor)
		} else {
			assert.Nil(t, record.GracePeriodDeadline, tc.processor)
		}
	}
}

func TestApplySubscriptionChanged_KeepsExistingGraceDeadline(t *testing.T) {
	r := testReconciler()
	current := activeProRecord()
	deadline := testNow.Add(3 * 24 * time.Hour)
	current.Status = models.SubscriptionPastDue
	current.GracePeriodDeadline = &deadline

	out := r.Apply(current, SubscriptionChanged{
		SubscriptionID:  "sub_123",
		ProcessorStatus: "past_due",
	}, testNow)

	assert.Equal(t, Applied, out.Kind)
	assert.Equal(t, &deadline, out.Change.Record.GracePeriodDeadline)
}

func TestApplySubscriptionChanged_UpdatesPeriodBounds(t *testing.T) {
	r := testReconciler()
	newStart := testNow.AddDate(0, 0, -1)
	newEnd := testNow.AddDate(0, 1, -1)

	out := r.Apply(activeProRecord(), SubscriptionChanged{
		SubscriptionID:  "sub_123",
		ProcessorStatus: "active",
		PeriodStart:     newStart,
		PeriodEnd:       newEnd,
		BillingCycle:    models.BillingYearly,
	}, testNow)

	record := out.Change.Record
	assert.Equal(t, newStart, record.PeriodStart)
	assert.Equal(t, newEnd, record.PeriodEnd)
	assert.Equal(t, models.BillingYearly, record.BillingCycle)
}

func TestApplyDeleted_CancelsAndDowngrades(t *testing.T) {
	r := testReconciler()

	out := r.Apply(activeProRecord(), SubscriptionDeleted{SubscriptionID: "sub_123"}, testNow)

	assert.Equal(t, Applied, out.Kind)
	record := out.Change.Record
	assert.Equal(t, models.SubscriptionCancelled, record.Status)
	assert.Equal(t, models.TierFree, record.Tier)
	assert.Equal(t, testNow, record.PeriodEnd)
	assert.Nil(t, record.GracePeriodDeadline)

	assert.NotNil(t, out.Notification)
	assert.Equal(t, NotifyDowngraded, out.Notification.Kind)
	assert.Equal(t, "cancelled", out.Notification.Reason)
}

func TestApplyInvoiceFailed_SetsGraceDeadline(t *testing.T) {
	r := testReconciler()

	out := r.Apply(activeProRecord(), InvoiceFailed{
		SubscriptionID: "sub_123",
		AmountDue:      999,
		Currency:       "gbp",
	}, testNow)

	assert.Equal(t, Applied, out.Kind)
	record := out.Change.Record
	assert.Equal(t, models.SubscriptionPastDue, record.Status)
	assert.NotNil(t, record.GracePeriodDeadline)
	assert.Equal(t, testNow.Add(7*24*time.Hour), *record.GracePeriodDeadline)
	// Entitlement is not revoked while the grace period runs.
	assert.Equal(t, models.TierPro, record.Tier)

	assert.NotNil(t, out.Notification)
	assert.Equal(t, NotifyPaymentFailed, out.Notification.Kind)
	assert.Equal(t, *record.GracePeriodDeadline, out.Notification.GraceDeadline)
}

func TestApplyInvoiceFailed_RedeliveryKeepsDeadline(t *testing.T) {
	r := testReconciler()
	failed := InvoiceFailed{SubscriptionID: "sub_123", AmountDue: 999, Currency: "gbp"}

	first := r.Apply(activeProRecord(), failed, testNow)
	assert.Equal(t, Applied, first.Kind)
	assert.Equal(t, testNow.Add(7*24*time.Hour), *first.Change.Record.GracePeriodDeadline)

	// The processor redelivers the same event six hours later; the grace
	// window must not move.
	replayed := first.Change.Record
	second := r.Apply(&replayed, failed, testNow.Add(6*time.Hour))

	assert.Equal(t, Applied, second.Kind)
	assert.Equal(t, *first.Change.Record.GracePeriodDeadline, *second.Change.Record.GracePeriodDeadline)
	assert.Equal(t, *first.Change.Record.GracePeriodDeadline, second.Notification.GraceDeadline)
}

func TestApplyInvoicePaid_RecoversPastDue(t *testing.T) {
	r := testReconciler()
	current := activeProRecord()
	deadline := testNow.Add(3 * 24 * time.Hour)
	current.Status = models.SubscriptionPastDue
	current.GracePeriodDeadline = &deadline
	newEnd := testNow.AddDate(0, 1, 0)

	out := r.Apply(current, InvoicePaid{
		SubscriptionID: "sub_123",
		AmountPaid:     999,
		Currency:       "gbp",
		PeriodEnd:      newEnd,
	}, testNow)

	assert.Equal(t, Applied, out.Kind)
	record := out.Change.Record
	assert.Equal(t, models.SubscriptionActive, record.Status)
	assert.Equal(t, newEnd, record.PeriodEnd)
	assert.Nil(t, record.GracePeriodDeadline)

	assert.NotNil(t, out.Notification)
	assert.Equal(t, NotifyReceipt, out.Notification.Kind)
}

func TestApplyInvoicePaid_DoesNotTouchCheckoutOwnedFields(t *testing.T) {
	r := testReconciler()

	out := r.Apply(activeProRecord(), InvoicePaid{
		SubscriptionID: "sub_123",
		AmountPaid:     999,
		Currency:       "gbp",
	}, testNow)

	// Out-of-order safety: a receipt arriving before the subscription
	// update must only overwrite the fields it owns.
	assert.NotContains(t, out.Change.Columns, "billing_cycle")
	assert.NotContains(t, out.Change.Columns, "stripe_customer_id")
	assert.NotContains(t, out.Change.Columns, "money_back_guarantee_deadline")
}

func TestApplyGraceExpired_ExpiresLapsedRecord(t *testing.T) {
	r := testReconciler()
	current := activeProRecord()
	deadline := testNow.Add(-1 * time.Hour)
	current.Status = models.SubscriptionPastDue
	current.GracePeriodDeadline = &deadline

	out := r.Apply(current, GraceExpired{UserID: "user-1"}, testNow)

	assert.Equal(t, Applied, out.Kind)
	record := out.Change.Record
	assert.Equal(t, models.SubscriptionExpired, record.Status)
	assert.Equal(t, models.TierFree, record.Tier)
	assert.Nil(t, record.GracePeriodDeadline)

	assert.NotNil(t, out.Notification)
	assert.Equal(t, NotifyDowngraded, out.Notification.Kind)
	assert.Equal(t, "payment_failed", out.Notification.Reason)
}

func TestApplyGraceExpired_SkipsRecoveredRecord(t *testing.T) {
	r := testReconciler()

	// A payment landed between the sweep scan and this call.
	out := r.Apply(activeProRecord(), GraceExpired{UserID: "user-1"}, testNow)

	assert.Equal(t, Skipped, out.Kind)
	assert.Nil(t, out.Change)
}

func TestApplyRefundGranted_EligibilityThreshold(t *testing.T) {
	r := testReconciler()

	first := r.Apply(activeProRecord(), RefundGranted{UserID: "user-1", RefundCount: 1}, testNow)
	assert.Equal(t, Applied, first.Kind)
	assert.True(t, first.Change.Record.MoneyBackGuaranteeEligible)
	assert.Equal(t, models.SubscriptionCancelled, first.Change.Record.Status)
	assert.Equal(t, models.TierFree, first.Change.Record.Tier)

	second := r.Apply(activeProRecord(), RefundGranted{UserID: "user-1", RefundCount: 2}, testNow)
	assert.False(t, second.Change.Record.MoneyBackGuaranteeEligible)
}

func TestStateInvariant_GraceDeadlineIffPastDue(t *testing.T) {
	r := testReconciler()

	events := []Event{
		CheckoutCompleted{UserID: "user-1", BillingCycle: models.BillingMonthly},
		SubscriptionChanged{SubscriptionID: "sub_123", ProcessorStatus: "active"},
		SubscriptionChanged{SubscriptionID: "sub_123", ProcessorStatus: "past_due"},
		SubscriptionChanged{SubscriptionID: "sub_123", ProcessorStatus: "canceled"},
		SubscriptionDeleted{SubscriptionID: "sub_123"},
		InvoicePaid{SubscriptionID: "sub_123"},
		InvoiceFailed{SubscriptionID: "sub_123"},
		RefundGranted{UserID: "user-1", RefundCount: 1},
	}

	for _, ev := range events {
		out := r.Apply(activeProRecord(), ev, testNow)
		if out.Kind != Applied {
			continue
		}
		record := out.Change.Record
		if record.Status == models.SubscriptionPastDue {
			assert.NotNil(t, record.GracePeriodDeadline, "event %s", ev.Kind())
		} else {
			assert.Nil(t, record.GracePeriodDeadline, "event %s", ev.Kind())
		}
		if record.Status == models.SubscriptionCancelled || record.Status == models.SubscriptionExpired {
			assert.Equal(t, models.TierFree, record.Tier, "event %s", ev.Kind())
		}
	}
}
