package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/Asibe-Cheta/soundbridge-sub006/config"
	"github.com/Asibe-Cheta/soundbridge-sub006/db"
	_ "github.com/Asibe-Cheta/soundbridge-sub006/docs"
	"github.com/Asibe-Cheta/soundbridge-sub006/routes"
)

// @title SoundBridge Subscription API
// @version 1.0
// @description Subscription and payment lifecycle reconciliation for SoundBridge
// @host localhost:8080
// @BasePath /
// @SecurityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter the JWT with the Bearer prefix: Bearer <JWT>
func main() {
	gin.SetMode(gin.ReleaseMode)

	cfg := config.Load()

	database, err := db.Connect(cfg.DBURL)
	if err != nil {
		log.Fatal("Error connecting to the database: ", err)
	}

	r := routes.SetupRouter(database, cfg)

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Error starting the server: ", err)
	}
}
