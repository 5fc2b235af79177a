package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/Asibe-Cheta/soundbridge-sub006/config"
	"github.com/Asibe-Cheta/soundbridge-sub006/subscription"
	"github.com/Asibe-Cheta/soundbridge-sub006/utils"
)

// SetupRouter wires the reconciliation engine and its HTTP surface. Every
// dependency is built here and injected; handlers hold no globals.
func SetupRouter(dbc *gorm.DB, cfg config.Config) *gin.Engine {
	store := subscription.NewStore(dbc)
	reconciler := subscription.NewReconciler(cfg.GracePeriod)
	notifier := subscription.NewNotifier(
		subscription.NewProfileStore(dbc),
		utils.NewMailer(cfg.SMTPPassword),
		cfg.AppBaseURL,
	)
	engine := subscription.NewEngine(store, reconciler, notifier)
	sweeper := subscription.NewSweeper(store, engine, cfg.GracePeriod)

	r := gin.New()
	r.Use(gin.LoggerWithWriter(utils.LogWriter()), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Stripe-Signature", "X-Cron-Secret"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	StripeRoutes(r, dbc, cfg, store, engine)
	CronRoutes(r, cfg, sweeper)
	SubscriptionRoutes(r, cfg, store)

	return r
}
