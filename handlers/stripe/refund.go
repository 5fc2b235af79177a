package stripe

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/charge"
	"github.com/stripe/stripe-go/v82/refund"

	"github.com/Asibe-Cheta/soundbridge-sub006/config"
	"github.com/Asibe-Cheta/soundbridge-sub006/models"
	"github.com/Asibe-Cheta/soundbridge-sub006/subscription"
	"github.com/Asibe-Cheta/soundbridge-sub006/utils"
)

// RefundHandler implements the 7-day money-back guarantee. The downgrade
// runs through the reconciliation engine like every other transition; the
// later charge.refunded webhook only stamps the processor refund id onto
// the record created here.
type RefundHandler struct {
	store  *subscription.Store
	engine *subscription.Engine
	cfg    config.Config
}

func NewRefundHandler(store *subscription.Store, engine *subscription.Engine, cfg config.Config) *RefundHandler {
	return &RefundHandler{store: store, engine: engine, cfg: cfg}
}

// RequestRefund refunds the latest payment within the guarantee window
// @Summary Request a money-back-guarantee refund
// @Description Refund the latest subscription payment within 7 days of activation and downgrade the account
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "success, refundId"
// @Failure 400 {object} map[string]string "error: Refund window has expired"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 403 {object} map[string]string "error: Guarantee no longer available"
// @Failure 404 {object} map[string]string "error: No active Pro subscription"
// @Failure 500 {object} map[string]string "error: Stripe error or server error"
// @Router /subscriptions/refund [post]
func (h *RefundHandler) RequestRefund(c *gin.Context) {
	stripe.Key = h.cfg.StripeSecretKey

	userIDValue, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	userID, _ := userIDValue.(string)
	if _, err := uuid.Parse(userID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	ctx := c.Request.Context()
	sub, err := h.store.FindByUserID(ctx, userID)
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Could not load subscription in RequestRefund")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load subscription"})
		return
	}
	if sub == nil || sub.Tier != models.TierPro || sub.Status != models.SubscriptionActive {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active Pro subscription found"})
		return
	}

	now := time.Now()
	if sub.MoneyBackGuaranteeDeadline == nil || now.After(*sub.MoneyBackGuaranteeDeadline) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Refund window has expired. Refunds are only available within 7 days of subscription start."})
		return
	}
	if !sub.MoneyBackGuaranteeEligible {
		c.JSON(http.StatusForbidden, gin.H{"error": "Money-back guarantee is no longer available for this account."})
		return
	}

	latestCharge, err := h.latestCharge(sub.StripeCustomerID)
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Could not find a charge to refund")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not find a payment to refund"})
		return
	}

	refundParams := &stripe.RefundParams{
		Charge: stripe.String(latestCharge.ID),
		Reason: stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	refundParams.AddMetadata("user_id", userID)
	stripeRefund, err := refund.New(refundParams)
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Stripe refund failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Refund could not be processed"})
		return
	}

	paymentIntentID := ""
	if latestCharge.PaymentIntent != nil {
		paymentIntentID = latestCharge.PaymentIntent.ID
	}
	record := &models.SubscriptionRefund{
		UserID:                userID,
		SubscriptionID:        sub.ID,
		Amount:                latestCharge.Amount,
		Currency:              string(latestCharge.Currency),
		StripePaymentIntentID: paymentIntentID,
		StripeRefundID:        stripeRefund.ID,
	}
	if err := h.store.CreateRefund(ctx, record); err != nil {
		// The money already moved; the webhook cannot attach the refund id
		// later without this row, so this is a hard error worth paging on.
		utils.LogErrorWithUser(userID, err, "Refund issued but could not be recorded")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Refund issued but could not be recorded"})
		return
	}

	if _, err := h.engine.Process(ctx, subscription.RefundGranted{
		UserID:      userID,
		RefundCount: sub.RefundCount + 1,
	}); err != nil {
		utils.LogErrorWithUser(userID, err, "Refund issued but downgrade failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Refund issued but downgrade failed"})
		return
	}

	utils.LogSuccessWithUser(userID, "Money-back-guarantee refund processed")
	c.JSON(http.StatusOK, gin.H{"success": true, "refundId": stripeRefund.ID})
}

func (h *RefundHandler) latestCharge(customerID string) (*stripe.Charge, error) {
	params := &stripe.ChargeListParams{
		Customer: stripe.String(customerID),
	}
	params.Limit = stripe.Int64(5)

	iter := charge.List(params)
	for iter.Next() {
		ch := iter.Charge()
		if ch.Paid && !ch.Refunded {
			return ch, nil
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return nil, errors.New("no refundable charge found for customer " + customerID)
}
