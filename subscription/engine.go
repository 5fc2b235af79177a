package subscription

import (
	"context"
	"time"

	"github.com/Asibe-Cheta/soundbridge-sub006/models"
	"github.com/Asibe-Cheta/soundbridge-sub006/utils"
)

// Engine is the glue between the gateway, the pure reconciler, the store
// and the notifier: resolve the record, compute the transition, persist it,
// and only then fire the pending notification. A store error propagates so
// the processor redelivers; a notification failure never does.
type Engine struct {
	store      *Store
	reconciler *Reconciler
	notifier   *Notifier
	now        func() time.Time
}

func NewEngine(store *Store, reconciler *Reconciler, notifier *Notifier) *Engine {
	return &Engine{
		store:      store,
		reconciler: reconciler,
		notifier:   notifier,
		now:        time.Now,
	}
}

// Result reports what happened to an event: applied to the record, or
// skipped with a reason (unknown subscription, stale sweep candidate, ...).
type Result struct {
	Applied bool
	Reason  string
}

// Process runs one event through the reconciliation path. The returned
// error is always a store failure; callers surface it as retryable.
func (e *Engine) Process(ctx context.Context, ev Event) (Result, error) {
	now := e.now()

	// charge.refunded touches the refund table only, never the record.
	if refunded, ok := ev.(ChargeRefunded); ok {
		return e.processRefund(ctx, refunded)
	}

	current, err := e.resolve(ctx, ev)
	if err != nil {
		return Result{}, err
	}

	outcome := e.reconciler.Apply(current, ev, now)
	if outcome.Kind == Skipped {
		utils.LogInfo("Event " + ev.Kind() + " skipped: " + outcome.Reason)
		return Result{Applied: false, Reason: outcome.Reason}, nil
	}

	if err := e.store.Upsert(ctx, outcome.Change); err != nil {
		return Result{}, err
	}

	// The record is committed at this point; the notification is strictly
	// best-effort.
	if outcome.Notification != nil {
		e.notifier.Dispatch(ctx, outcome.Notification)
	}

	return Result{Applied: true}, nil
}

func (e *Engine) resolve(ctx context.Context, ev Event) (*models.Subscription, error) {
	switch event := ev.(type) {
	case CheckoutCompleted:
		return e.store.FindByUserID(ctx, event.UserID)
	case SubscriptionChanged:
		return e.store.FindByStripeSubscriptionID(ctx, event.SubscriptionID)
	case SubscriptionDeleted:
		return e.store.FindByStripeSubscriptionID(ctx, event.SubscriptionID)
	case InvoicePaid:
		return e.store.FindByStripeSubscriptionID(ctx, event.SubscriptionID)
	case InvoiceFailed:
		return e.store.FindByStripeSubscriptionID(ctx, event.SubscriptionID)
	case GraceExpired:
		return e.store.FindByUserID(ctx, event.UserID)
	case RefundGranted:
		return e.store.FindByUserID(ctx, event.UserID)
	}
	return nil, nil
}

func (e *Engine) processRefund(ctx context.Context, ev ChargeRefunded) (Result, error) {
	if ev.PaymentIntentID == "" {
		return Result{Applied: false, Reason: "charge.refunded carries no payment intent"}, nil
	}
	found, err := e.store.AttachRefund(ctx, ev.PaymentIntentID, ev.RefundID, ev.RefundedAt)
	if err != nil {
		return Result{}, err
	}
	if !found {
		utils.LogInfo("No refund record for payment intent " + ev.PaymentIntentID + ", event dropped")
		return Result{Applied: false, Reason: "no refund record for payment intent " + ev.PaymentIntentID}, nil
	}
	return Result{Applied: true}, nil
}
