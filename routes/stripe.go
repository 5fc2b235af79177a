package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Asibe-Cheta/soundbridge-sub006/config"
	stripehandlers "github.com/Asibe-Cheta/soundbridge-sub006/handlers/stripe"
	"github.com/Asibe-Cheta/soundbridge-sub006/middleware"
	"github.com/Asibe-Cheta/soundbridge-sub006/subscription"
)

func StripeRoutes(r *gin.Engine, dbc *gorm.DB, cfg config.Config, store *subscription.Store, engine *subscription.Engine) {
	webhook := stripehandlers.NewWebhookHandler(engine, cfg.StripeWebhookSecret)
	checkout := stripehandlers.NewCheckoutHandler(dbc, cfg)
	refundHandler := stripehandlers.NewRefundHandler(store, engine, cfg)

	r.POST("/stripe/webhook", webhook.Handle)

	subscriptionRoutes := r.Group("/subscriptions")
	subscriptionRoutes.Use(middleware.JWTAuth(cfg.JWTSecret))
	{
		subscriptionRoutes.POST("/checkout", checkout.CreateCheckoutSession)
		subscriptionRoutes.POST("/refund", refundHandler.RequestRefund)
	}
}
