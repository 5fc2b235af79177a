package cron

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Asibe-Cheta/soundbridge-sub006/subscription"
	"github.com/Asibe-Cheta/soundbridge-sub006/utils"
)

// SweepHandler exposes the grace-period sweep to external schedulers. The
// shared secret is accepted from a bearer header, a query parameter or a
// dedicated header, since different schedulers can only send one of them.
type SweepHandler struct {
	sweeper *subscription.Sweeper
	secret  string
}

func NewSweepHandler(sweeper *subscription.Sweeper, secret string) *SweepHandler {
	return &SweepHandler{sweeper: sweeper, secret: secret}
}

// Handle runs one grace-period sweep
// @Summary Subscription maintenance sweep
// @Description Downgrade past_due subscriptions whose grace period has lapsed
// @Tags cron
// @Produce json
// @Param secret query string false "Shared cron secret (alternative to the Authorization header)"
// @Success 200 {object} map[string]interface{} "success, downgraded count, errors"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 500 {object} map[string]string "error: sweep failed"
// @Router /cron/subscriptions [get]
func (h *SweepHandler) Handle(c *gin.Context) {
	if !h.authorized(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := h.sweeper.Run(c.Request.Context())
	if err != nil {
		utils.LogError(err, "Subscription sweep failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sweep failed"})
		return
	}

	response := gin.H{
		"success":    true,
		"downgraded": result.Downgraded,
	}
	if len(result.Errors) > 0 {
		response["errors"] = result.Errors
	}
	c.JSON(http.StatusOK, response)
}

func (h *SweepHandler) authorized(c *gin.Context) bool {
	if h.secret == "" {
		utils.LogError(nil, "CRON_SECRET is not configured, rejecting sweep request")
		return false
	}

	candidates := []string{
		strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "),
		c.Query("secret"),
		c.GetHeader("X-Cron-Secret"),
	}
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(h.secret)) == 1 {
			return true
		}
	}
	return false
}
