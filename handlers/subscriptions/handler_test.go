package subscriptions

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/Asibe-Cheta/soundbridge-sub006/subscription"
	"github.com/Asibe-Cheta/soundbridge-sub006/testutils"
)

func TestMain(m *testing.M) {
	testutils.InitTestMain()

	log.SetOutput(io.Discard)

	exitCode := m.Run()

	log.SetOutput(os.Stdout)

	os.Exit(exitCode)
}

func getMySubscription(dbc *gorm.DB, authenticated bool) *httptest.ResponseRecorder {
	handler := NewHandler(subscription.NewStore(dbc))

	r := testutils.SetupTestRouter()
	r.GET("/subscriptions/me", func(c *gin.Context) {
		if authenticated {
			c.Set("user_id", "123e4567-e89b-12d3-a456-426614174000")
		}
		handler.GetMySubscription(c)
	})

	req, _ := http.NewRequest(http.MethodGet, "/subscriptions/me", nil)
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)
	return resp
}

func TestGetMySubscription_Unauthenticated(t *testing.T) {
	dbc, _, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	resp := getMySubscription(dbc, false)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestGetMySubscription_NoRecord(t *testing.T) {
	dbc, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT \* FROM "subscriptions" WHERE user_id = \$1`).
		WillReturnRows(mock.NewRows([]string{"id"}))

	resp := getMySubscription(dbc, true)

	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestGetMySubscription_ActivePro(t *testing.T) {
	dbc, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(`SELECT \* FROM "subscriptions" WHERE user_id = \$1`).
		WillReturnRows(
			mock.NewRows([]string{"id", "user_id", "tier", "status", "period_start", "period_end"}).
				AddRow("223e4567-e89b-12d3-a456-426614174000", "123e4567-e89b-12d3-a456-426614174000",
					"pro", "active", now.AddDate(0, 0, -5), now.AddDate(0, 0, 25)),
		)

	resp := getMySubscription(dbc, true)

	assert.Equal(t, http.StatusOK, resp.Code)

	var respBody map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &respBody)
	assert.Equal(t, true, respBody["entitled"])

	sub, ok := respBody["subscription"].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, "pro", sub["tier"])
	assert.Equal(t, "active", sub["status"])
}

func TestGetMySubscription_LapsedProIsNotEntitled(t *testing.T) {
	dbc, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(`SELECT \* FROM "subscriptions" WHERE user_id = \$1`).
		WillReturnRows(
			mock.NewRows([]string{"id", "user_id", "tier", "status", "period_start", "period_end"}).
				AddRow("223e4567-e89b-12d3-a456-426614174000", "123e4567-e89b-12d3-a456-426614174000",
					"free", "expired", now.AddDate(0, -2, 0), now.AddDate(0, -1, 0)),
		)

	resp := getMySubscription(dbc, true)

	assert.Equal(t, http.StatusOK, resp.Code)

	var respBody map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &respBody)
	assert.Equal(t, false, respBody["entitled"])
}

func TestGetMySubscription_DatabaseError(t *testing.T) {
	dbc, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT \* FROM "subscriptions" WHERE user_id = \$1`).
		WillReturnError(gorm.ErrInvalidDB)

	resp := getMySubscription(dbc, true)

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}
