package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Asibe-Cheta/soundbridge-sub006/config"
	"github.com/Asibe-Cheta/soundbridge-sub006/handlers/subscriptions"
	"github.com/Asibe-Cheta/soundbridge-sub006/middleware"
	"github.com/Asibe-Cheta/soundbridge-sub006/subscription"
)

func SubscriptionRoutes(r *gin.Engine, cfg config.Config, store *subscription.Store) {
	handler := subscriptions.NewHandler(store)

	subscriptionRoutes := r.Group("/subscriptions")
	subscriptionRoutes.Use(middleware.JWTAuth(cfg.JWTSecret))
	{
		subscriptionRoutes.GET("/me", handler.GetMySubscription)
	}
}
