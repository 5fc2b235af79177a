package subscriptions

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Asibe-Cheta/soundbridge-sub006/subscription"
	"github.com/Asibe-Cheta/soundbridge-sub006/utils"
)

// Handler serves the user-facing subscription status surface the mobile and
// web clients poll.
type Handler struct {
	store *subscription.Store
}

func NewHandler(store *subscription.Store) *Handler {
	return &Handler{store: store}
}

// GetMySubscription returns the caller's subscription record
// @Summary Current user's subscription
// @Description Return the authenticated user's subscription record and entitlement
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Subscription
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 404 {object} map[string]string "error: No subscription record"
// @Router /subscriptions/me [get]
func (h *Handler) GetMySubscription(c *gin.Context) {
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

	sub, err := h.store.FindByUserID(c.Request.Context(), userID)
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Could not load subscription in GetMySubscription")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load subscription"})
		return
	}
	if sub == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No subscription record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subscription": sub,
		"entitled":     sub.Entitled(time.Now()),
	})
}
