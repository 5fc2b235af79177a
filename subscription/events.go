package subscription

import (
	"encoding/json"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/Asibe-Cheta/soundbridge-sub006/models"
)

// Event is the tagged union over the processor event kinds this service
// reacts to. Payloads are decoded once, at the gateway boundary; the
// reconciler never sees raw JSON.
type Event interface {
	Kind() string
}

// CheckoutCompleted is emitted when a user finishes a subscription
// checkout. It is the only event that may create a record.
type CheckoutCompleted struct {
	UserID         string
	CustomerID     string
	SubscriptionID string
	BillingCycle   models.BillingCycle
	AmountTotal    int64
	Currency       string
}

func (CheckoutCompleted) Kind() string { return "checkout.session.completed" }

// SubscriptionChanged covers customer.subscription.created and .updated.
type SubscriptionChanged struct {
	SubscriptionID  string
	ProcessorStatus string
	PeriodStart     time.Time
	PeriodEnd       time.Time
	BillingCycle    models.BillingCycle // empty when the payload carries no interval
}

func (SubscriptionChanged) Kind() string { return "customer.subscription.updated" }

type SubscriptionDeleted struct {
	SubscriptionID string
}

func (SubscriptionDeleted) Kind() string { return "customer.subscription.deleted" }

type InvoicePaid struct {
	SubscriptionID string
	AmountPaid     int64
	Currency       string
	PeriodEnd      time.Time
}

func (InvoicePaid) Kind() string { return "invoice.payment_succeeded" }

type InvoiceFailed struct {
	SubscriptionID string
	AmountDue      int64
	Currency       string
}

func (InvoiceFailed) Kind() string { return "invoice.payment_failed" }

type ChargeRefunded struct {
	PaymentIntentID string
	RefundID        string
	RefundedAt      time.Time
}

func (ChargeRefunded) Kind() string { return "charge.refunded" }

// GraceExpired is an internal event: the sweeper raises it for records
// whose grace window lapsed, so expiry flows through the same transition
// path as webhook events.
type GraceExpired struct {
	UserID string
}

func (GraceExpired) Kind() string { return "grace.expired" }

// RefundGranted is an internal event raised by the money-back-guarantee
// endpoint after the processor accepted the refund.
type RefundGranted struct {
	UserID      string
	RefundCount int
}

func (RefundGranted) Kind() string { return "refund.granted" }

// Local payload shapes. The Stripe SDK's typed structs track the newest
// API version and shuffle fields between releases; declaring just the
// fields we read keeps decoding stable across payload versions.

type checkoutSessionPayload struct {
	ID                string            `json:"id"`
	Mode              string            `json:"mode"`
	Customer          string            `json:"customer"`
	Subscription      string            `json:"subscription"`
	ClientReferenceID string            `json:"client_reference_id"`
	AmountTotal       int64             `json:"amount_total"`
	Currency          string            `json:"currency"`
	Metadata          map[string]string `json:"metadata"`
}

type subscriptionPayload struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	Items              struct {
		Data []struct {
			CurrentPeriodStart int64 `json:"current_period_start"`
			CurrentPeriodEnd   int64 `json:"current_period_end"`
			Price              struct {
				ID        string `json:"id"`
				Recurring struct {
					Interval string `json:"interval"`
				} `json:"recurring"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

type invoicePayload struct {
	Subscription string `json:"subscription"`
	Parent       struct {
		SubscriptionDetails struct {
			Subscription string `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
	AmountPaid  int64  `json:"amount_paid"`
	AmountDue   int64  `json:"amount_due"`
	Currency    string `json:"currency"`
	PeriodEnd   int64  `json:"period_end"`
	Lines       struct {
		Data []struct {
			Period struct {
				End int64 `json:"end"`
			} `json:"period"`
		} `json:"data"`
	} `json:"lines"`
}

type chargePayload struct {
	ID            string `json:"id"`
	PaymentIntent string `json:"payment_intent"`
	Refunds       struct {
		Data []struct {
			ID      string `json:"id"`
			Created int64  `json:"created"`
		} `json:"data"`
	} `json:"refunds"`
}

// DecodeEvent turns a verified Stripe event into a typed Event. The second
// return value is false for event types this service does not handle; those
// must still be acknowledged to the processor.
func DecodeEvent(event stripe.Event) (Event, bool, error) {
	switch event.Type {
	case "checkout.session.completed":
		var session checkoutSessionPayload
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, true, fmt.Errorf("decode checkout session: %w", err)
		}
		userID := session.ClientReferenceID
		if userID == "" {
			userID = session.Metadata["user_id"]
		}
		if userID == "" {
			return nil, true, fmt.Errorf("checkout session %s carries no user reference", session.ID)
		}
		cycle := models.BillingMonthly
		if session.Metadata["billing_cycle"] == string(models.BillingYearly) {
			cycle = models.BillingYearly
		}
		return CheckoutCompleted{
			UserID:         userID,
			CustomerID:     session.Customer,
			SubscriptionID: session.Subscription,
			BillingCycle:   cycle,
			AmountTotal:    session.AmountTotal,
			Currency:       session.Currency,
		}, true, nil

	case "customer.subscription.created", "customer.subscription.updated":
		sub, err := decodeSubscription(event.Data.Raw)
		if err != nil {
			return nil, true, err
		}
		return sub, true, nil

	case "customer.subscription.deleted":
		var sub subscriptionPayload
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, true, fmt.Errorf("decode subscription: %w", err)
		}
		return SubscriptionDeleted{SubscriptionID: sub.ID}, true, nil

	case "invoice.payment_succeeded":
		var inv invoicePayload
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, true, fmt.Errorf("decode invoice: %w", err)
		}
		subID := invoiceSubscriptionID(inv)
		if subID == "" {
			return nil, true, fmt.Errorf("invoice carries no subscription id")
		}
		return InvoicePaid{
			SubscriptionID: subID,
			AmountPaid:     inv.AmountPaid,
			Currency:       inv.Currency,
			PeriodEnd:      invoicePeriodEnd(inv),
		}, true, nil

	case "invoice.payment_failed":
		var inv invoicePayload
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, true, fmt.Errorf("decode invoice: %w", err)
		}
		subID := invoiceSubscriptionID(inv)
		if subID == "" {
			return nil, true, fmt.Errorf("invoice carries no subscription id")
		}
		return InvoiceFailed{
			SubscriptionID: subID,
			AmountDue:      inv.AmountDue,
			Currency:       inv.Currency,
		}, true, nil

	case "charge.refunded":
		var ch chargePayload
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, true, fmt.Errorf("decode charge: %w", err)
		}
		refunded := ChargeRefunded{PaymentIntentID: ch.PaymentIntent}
		if len(ch.Refunds.Data) > 0 {
			refunded.RefundID = ch.Refunds.Data[0].ID
			refunded.RefundedAt = time.Unix(ch.Refunds.Data[0].Created, 0).UTC()
		}
		return refunded, true, nil
	}

	return nil, false, nil
}

func decodeSubscription(raw json.RawMessage) (SubscriptionChanged, error) {
	var sub subscriptionPayload
	if err := json.Unmarshal(raw, &sub); err != nil {
		return SubscriptionChanged{}, fmt.Errorf("decode subscription: %w", err)
	}

	// Newer API versions moved the period bounds onto the items.
	start, end := sub.CurrentPeriodStart, sub.CurrentPeriodEnd
	interval := ""
	if len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if start == 0 {
			start = item.CurrentPeriodStart
		}
		if end == 0 {
			end = item.CurrentPeriodEnd
		}
		interval = item.Price.Recurring.Interval
	}

	changed := SubscriptionChanged{
		SubscriptionID:  sub.ID,
		ProcessorStatus: sub.Status,
	}
	if start != 0 {
		changed.PeriodStart = time.Unix(start, 0).UTC()
	}
	if end != 0 {
		changed.PeriodEnd = time.Unix(end, 0).UTC()
	}
	switch interval {
	case "month":
		changed.BillingCycle = models.BillingMonthly
	case "year":
		changed.BillingCycle = models.BillingYearly
	}
	return changed, nil
}

func invoiceSubscriptionID(inv invoicePayload) string {
	if inv.Parent.SubscriptionDetails.Subscription != "" {
		return inv.Parent.SubscriptionDetails.Subscription
	}
	return inv.Subscription
}

func invoicePeriodEnd(inv invoicePayload) time.Time {
	end := inv.PeriodEnd
	if len(inv.Lines.Data) > 0 && inv.Lines.Data[0].Period.End > end {
		end = inv.Lines.Data[0].Period.End
	}
	if end == 0 {
		return time.Time{}
	}
	return time.Unix(end, 0).UTC()
}
