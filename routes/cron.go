package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Asibe-Cheta/soundbridge-sub006/config"
	"github.com/Asibe-Cheta/soundbridge-sub006/handlers/cron"
	"github.com/Asibe-Cheta/soundbridge-sub006/subscription"
)

func CronRoutes(r *gin.Engine, cfg config.Config, sweeper *subscription.Sweeper) {
	sweep := cron.NewSweepHandler(sweeper, cfg.CronSecret)
	r.GET("/cron/subscriptions", sweep.Handle)
}
