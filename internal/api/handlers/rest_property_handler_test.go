package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/yasinarafat4/reluxrent-sub000/internal/api/handlers"
	"github.com/yasinarafat4/reluxrent-sub000/internal/models"
	"github.com/yasinarafat4/reluxrent-sub000/internal/pricing"
	"github.com/yasinarafat4/reluxrent-sub000/internal/utils"
)

func setupPropertyRouter(svc *MockPropertyService, userID utils.SixID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := handlers.NewRestPropertyHandler(svc)
	r.GET("/v1/property/:id/calendar", h.GetCalendar)
	authed := r.Group("/v1", fakeAuth(userID))
	authed.POST("/property", h.CreateProperty)
	authed.PUT("/property/:id/calendar", h.SetCalendar)
	return r
}

func putJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestCreateProperty_Success(t *testing.T) {
	mockSvc := new(MockPropertyService)
	hostID := utils.NewSixID()
	router := setupPropertyRouter(mockSvc, hostID)

	created := &models.Property{ID: utils.NewSixID(), Title: "Beach house", CurrencyCode: "USD"}
	mockSvc.On("CreateProperty", mock.Anything, hostID, mock.AnythingOfType("*models.Property")).Return(created, nil)

	w := postJSON(router, "/v1/property", gin.H{
		"title":                "Beach house",
		"currency":             "usd",
		"basePrice":            300.0,
		"accommodates":         4,
		"cancellationPolicyId": utils.NewSixID().String(),
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestGetCalendar_Success(t *testing.T) {
	mockSvc := new(MockPropertyService)
	router := setupPropertyRouter(mockSvc, utils.NewSixID())

	propertyID := utils.NewSixID()
	night := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	blocked := time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC)
	mockSvc.On("GetCalendar", mock.Anything, propertyID, mock.AnythingOfType("models.DateRange")).
		Return([]pricing.NightlyPrice{{Date: night, Price: 300}}, []time.Time{blocked}, nil)

	w := httptest.NewRecorder()
	url := fmt.Sprintf("/v1/property/%s/calendar?start=2026-10-01&end=2026-10-03", propertyID.String())
	req, _ := http.NewRequest("GET", url, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []interface{}{"2026-10-02"}, resp["blockedDates"])
	mockSvc.AssertExpectations(t)
}

func TestSetCalendar_Success(t *testing.T) {
	mockSvc := new(MockPropertyService)
	userID := utils.NewSixID()
	router := setupPropertyRouter(mockSvc, userID)

	propertyID := utils.NewSixID()
	mockSvc.On("SetDateOverrides", mock.Anything, propertyID, userID, mock.MatchedBy(func(ovs []models.DateOverride) bool {
		return len(ovs) == 2 && !ovs[1].Bookable
	})).Return(nil)

	w := putJSON(router, "/v1/property/"+propertyID.String()+"/calendar", gin.H{
		"overrides": []gin.H{
			{"date": "2026-10-01", "price": 250.0},
			{"date": "2026-10-02", "bookable": false},
		},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(2), resp["updated"])
	mockSvc.AssertExpectations(t)
}

func TestSetCalendar_OwnershipError(t *testing.T) {
	mockSvc := new(MockPropertyService)
	userID := utils.NewSixID()
	router := setupPropertyRouter(mockSvc, userID)

	propertyID := utils.NewSixID()
	mockSvc.On("SetDateOverrides", mock.Anything, propertyID, userID, mock.Anything).
		Return(fmt.Errorf("property %s not found or does not belong to host", propertyID.String()))

	w := putJSON(router, "/v1/property/"+propertyID.String()+"/calendar", gin.H{
		"overrides": []gin.H{{"date": "2026-10-01", "price": 250.0}},
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
	mockSvc.AssertExpectations(t)
}
