package stripe

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v82"
	session "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
	"gorm.io/gorm"

	"github.com/Asibe-Cheta/soundbridge-sub006/config"
	"github.com/Asibe-Cheta/soundbridge-sub006/models"
	"github.com/Asibe-Cheta/soundbridge-sub006/utils"
)

// CheckoutHandler starts the Pro upgrade flow. The webhook, not this
// handler, is what flips the subscription record: checkout only creates the
// Stripe session and hands the user id along as the client reference.
type CheckoutHandler struct {
	dbc *gorm.DB
	cfg config.Config
}

func NewCheckoutHandler(dbc *gorm.DB, cfg config.Config) *CheckoutHandler {
	return &CheckoutHandler{dbc: dbc, cfg: cfg}
}

type checkoutRequest struct {
	BillingCycle models.BillingCycle `json:"billingCycle" binding:"required"`
}

// CreateCheckoutSession creates a Stripe Checkout session for the Pro plan
// @Summary Create a Stripe Checkout session for a Pro subscription
// @Description Start a Stripe payment for the Pro plan. Returns the Stripe session ID and URL for the frontend.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "sessionId, url"
// @Failure 400 {object} map[string]string "error: Invalid billing cycle"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 500 {object} map[string]string "error: Stripe error or server error"
// @Router /subscriptions/checkout [post]
func (h *CheckoutHandler) CreateCheckoutSession(c *gin.Context) {
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

	var req checkoutRequest
	if !utils.ValidateRequestBody(c, &req) {
		return
	}

	var priceID string
	switch req.BillingCycle {
	case models.BillingMonthly:
		priceID = h.cfg.ProMonthlyPriceID
	case models.BillingYearly:
		priceID = h.cfg.ProYearlyPriceID
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid billing cycle"})
		return
	}
	if priceID == "" {
		utils.LogError(nil, "Stripe price id not configured for cycle "+string(req.BillingCycle))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Billing is not configured"})
		return
	}

	var user models.User
	if err := h.dbc.First(&user, "id = ?", userID).Error; err != nil {
		utils.LogErrorWithUser(userID, err, "User not found in CreateCheckoutSession")
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if user.StripeCustomerID != "" {
		// Make sure the stored customer still exists on Stripe.
		if _, err := customer.Get(user.StripeCustomerID, nil); err != nil {
			user.StripeCustomerID = ""
		}
	}
	if user.StripeCustomerID == "" {
		cust, err := customer.New(&stripe.CustomerParams{
			Email: stripe.String(user.Email),
			Name:  stripe.String(user.UserName),
		})
		if err != nil {
			utils.LogErrorWithUser(userID, err, "Could not create Stripe customer")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create Stripe customer"})
			return
		}
		if err := h.dbc.Model(&user).Update("stripe_customer_id", cust.ID).Error; err != nil {
			utils.LogErrorWithUser(userID, err, "Could not store Stripe customer id")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not store Stripe customer"})
			return
		}
		user.StripeCustomerID = cust.ID
	}

	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(user.StripeCustomerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(h.cfg.AppBaseURL + "/dashboard?upgrade=success"),
		CancelURL:         stripe.String(h.cfg.AppBaseURL + "/upgrade?cancelled=1"),
		ClientReferenceID: stripe.String(user.ID),
	}
	params.AddMetadata("user_id", user.ID)
	params.AddMetadata("billing_cycle", string(req.BillingCycle))

	s, err := session.New(params)
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Could not create Stripe Checkout session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	utils.LogSuccessWithUser(userID, "Checkout session created")
	c.JSON(http.StatusOK, gin.H{"sessionId": s.ID, "url": s.URL})
}
