package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/config"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/i18n"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/idempotency"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/metrics"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/models"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/router"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/services"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/testutil"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/utils"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta json.RawMessage `json:"meta"`
}

type RouterTestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine

	farmer    *models.User
	buyer     *models.User
	outsider  *models.User
	processor *models.User
}

func (suite *RouterTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	suite.Require().NoError(i18n.Initialize())
	utils.SetJWTSecret("router-test-secret")
	utils.SetJWTIssuer("shree-anna-connect")
}

func (suite *RouterTestSuite) SetupTest() {
	suite.db = testutil.NewDB(suite.T())

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	svc := services.New(services.Dependencies{
		DB:              suite.db,
		Idempotency:     idempotency.NewMemoryStore(),
		Metrics:         m,
		MaxWriteRetries: 5,
	})

	cfg := &config.Config{
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		I18n:      config.I18nConfig{DefaultLocale: "en"},
	}
	suite.router = router.NewEngine(cfg, svc, m, registry)

	suite.farmer = testutil.CreateUser(suite.T(), suite.db, "Lakshmi", models.RoleFarmer)
	suite.buyer = testutil.CreateUser(suite.T(), suite.db, "Arjun", models.RoleConsumer)
	suite.outsider = testutil.CreateUser(suite.T(), suite.db, "Meera", models.RoleConsumer)
	suite.processor = testutil.CreateUser(suite.T(), suite.db, "Millet Mills", models.RoleProcessor)
}

func (suite *RouterTestSuite) token(u *models.User) string {
	token, err := utils.GenerateJWT(u.ID, string(u.Role), string(u.VerificationStatus), 1)
	suite.Require().NoError(err)
	return token
}

func (suite *RouterTestSuite) do(method, path string, u *models.User, body interface{}, headers ...string) (*httptest.ResponseRecorder, envelope) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if u != nil {
		req.Header.Set("Authorization", "Bearer "+suite.token(u))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	var resp envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func (suite *RouterTestSuite) decode(raw json.RawMessage, dest interface{}) {
	suite.Require().NoError(json.Unmarshal(raw, dest))
}

func (suite *RouterTestSuite) createOrder(key string) (*httptest.ResponseRecorder, models.Order) {
	crop := testutil.CreateCrop(suite.T(), suite.db, suite.farmer.ID, "foxtail", 100, 40)

	headers := []string{}
	if key != "" {
		headers = append(headers, "Idempotency-Key", key)
	}
	w, resp := suite.do(http.MethodPost, "/v1/orders", suite.buyer, map[string]interface{}{
		"items": []map[string]interface{}{
			{"item_id": crop.ID, "item_type": "crop", "quantity": "5"},
		},
		"shipping_address": map[string]interface{}{
			"name":     "Arjun",
			"location": map[string]string{"district": "Pune", "state": "Maharashtra"},
		},
	}, headers...)

	var data struct {
		Order models.Order `json:"order"`
	}
	if resp.Success {
		suite.decode(resp.Data, &data)
	}
	return w, data.Order
}

func (suite *RouterTestSuite) TestHealth() {
	w, _ := suite.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *RouterTestSuite) TestAuthenticationRequired() {
	w, resp := suite.do(http.MethodGet, "/v1/orders", nil, nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.False(suite.T(), resp.Success)
	assert.Equal(suite.T(), "UNAUTHORIZED", resp.Error.Code)
}

func (suite *RouterTestSuite) TestCreateOrder() {
	w, order := suite.createOrder("")
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	assert.NotEmpty(suite.T(), order.OrderNumber)
	assert.Equal(suite.T(), models.OrderStatusPending, order.Status)
	assert.True(suite.T(), order.TotalAmount.Equal(order.Items[0].Subtotal))
}

func (suite *RouterTestSuite) TestCreateOrderReplaysIdempotencyKey() {
	w, first := suite.createOrder("checkout-1")
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w, replay := suite.createOrder("checkout-1")
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	assert.Equal(suite.T(), "true", w.Header().Get("Idempotent-Replayed"))
	assert.Equal(suite.T(), first.ID, replay.ID)
}

func (suite *RouterTestSuite) TestCreateOrderRejectsEmptyItems() {
	w, resp := suite.do(http.MethodPost, "/v1/orders", suite.buyer, map[string]interface{}{"items": []interface{}{}})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.False(suite.T(), resp.Success)
}

func (suite *RouterTestSuite) TestGetOrderDistinguishesForbiddenFromNotFound() {
	w, order := suite.createOrder("")
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w, _ = suite.do(http.MethodGet, "/v1/orders/"+order.ID.String(), suite.buyer, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w, resp := suite.do(http.MethodGet, "/v1/orders/"+order.ID.String(), suite.outsider, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.Equal(suite.T(), "FORBIDDEN", resp.Error.Code)

	w, resp = suite.do(http.MethodGet, "/v1/orders/"+uuid.NewString(), suite.outsider, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), "NOT_FOUND", resp.Error.Code)
}

func (suite *RouterTestSuite) TestUpdateOrderStatus() {
	w, order := suite.createOrder("")
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	path := "/v1/orders/" + order.ID.String() + "/status"

	w, _ = suite.do(http.MethodPut, path, suite.buyer, map[string]string{"status": "confirmed"})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w, resp := suite.do(http.MethodPut, path, suite.farmer, map[string]string{"status": "confirmed", "note": "Packed"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var data struct {
		Order models.Order `json:"order"`
	}
	suite.decode(resp.Data, &data)
	assert.Equal(suite.T(), models.OrderStatusConfirmed, data.Order.Status)
	assert.Len(suite.T(), data.Order.StatusHistory, 2)
}

func (suite *RouterTestSuite) TestListOrders() {
	w, _ := suite.createOrder("")
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w, resp := suite.do(http.MethodGet, "/v1/orders?role=buyer", suite.buyer, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var orders []models.Order
	suite.decode(resp.Data, &orders)
	assert.Len(suite.T(), orders, 1)
	assert.Equal(suite.T(), "1", w.Header().Get("X-Total-Count"))

	w, _ = suite.do(http.MethodGet, "/v1/orders?role=auditor", suite.buyer, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *RouterTestSuite) TestNegotiationFlow() {
	crop := testutil.CreateCrop(suite.T(), suite.db, suite.farmer.ID, "pearl", 1000, 35)

	w, resp := suite.do(http.MethodPost, "/v1/bulk-requests", suite.processor, map[string]interface{}{
		"crop_type":         "pearl",
		"quantity":          "500",
		"unit":              "kg",
		"price_range":       map[string]string{"min": "30", "max": "40"},
		"delivery_location": map[string]string{"district": "Jaipur", "state": "Rajasthan"},
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		BulkRequest models.BulkRequest `json:"bulk_request"`
	}
	suite.decode(resp.Data, &created)
	base := "/v1/bulk-requests/" + created.BulkRequest.ID.String()

	// Public listing needs no token.
	w, _ = suite.do(http.MethodGet, "/v1/bulk-requests?crop_type=pearl", nil, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	offer := map[string]interface{}{"crop_id": crop.ID, "quantity": "200", "price": "36"}
	w, resp = suite.do(http.MethodPost, base+"/offers", suite.farmer, offer)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var submitted struct {
		BulkRequest models.BulkRequest `json:"bulk_request"`
	}
	suite.decode(resp.Data, &submitted)
	suite.Require().Len(submitted.BulkRequest.Offers, 1)
	offerPath := base + "/offers/" + submitted.BulkRequest.Offers[0].ID.String()

	w, resp = suite.do(http.MethodPost, base+"/offers", suite.farmer, offer)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "DUPLICATE_OFFER", resp.Error.Code)

	w, resp = suite.do(http.MethodPost, offerPath+"/order", suite.processor, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "OFFER_NOT_ACCEPTED", resp.Error.Code)

	w, _ = suite.do(http.MethodPut, offerPath, suite.farmer, map[string]string{"status": "accepted"})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w, _ = suite.do(http.MethodPut, offerPath, suite.processor, map[string]string{"status": "accepted"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w, _ = suite.do(http.MethodPost, offerPath+"/order", suite.processor, nil)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w, _ = suite.do(http.MethodPost, offerPath+"/order", suite.processor, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w, resp = suite.do(http.MethodPut, base+"/offers/not-a-uuid", suite.processor, map[string]string{"status": "rejected"})
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), "NOT_FOUND", resp.Error.Code)

	w, _ = suite.do(http.MethodPost, base+"/offers/not-a-uuid/order", suite.processor, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *RouterTestSuite) TestUnknownBulkRequest() {
	w, resp := suite.do(http.MethodGet, "/v1/bulk-requests/"+uuid.NewString(), nil, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), "NOT_FOUND", resp.Error.Code)
}

func (suite *RouterTestSuite) TestTraceabilityLookupIsPublic() {
	w, resp := suite.do(http.MethodPost, "/v1/traceability", suite.farmer, map[string]interface{}{
		"farm_details": map[string]interface{}{
			"farm_name": "Sunrise Farm",
			"location":  map[string]string{"district": "Bengaluru Rural", "state": "Karnataka"},
		},
		"cultivation_details": map[string]string{"crop_type": "ragi"},
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var opened struct {
		Traceability models.Traceability `json:"traceability"`
	}
	suite.decode(resp.Data, &opened)
	batchPath := "/v1/traceability/" + opened.Traceability.BatchID

	w, _ = suite.do(http.MethodPost, batchPath+"/processing", suite.farmer, map[string]string{"stage": "Cleaning"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	// Any authenticated party in the supply chain may append.
	w, _ = suite.do(http.MethodPost, batchPath+"/quality-checks", suite.processor, map[string]string{"result": "passed"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w, _ = suite.do(http.MethodPost, batchPath+"/quality-checks", nil, map[string]string{"result": "passed"})
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	w, resp = suite.do(http.MethodGet, batchPath, nil, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var view struct {
		BatchID       string `json:"batch_id"`
		ChainVerified bool   `json:"chain_verified"`
		Timeline      []struct {
			Event string `json:"event"`
		} `json:"timeline"`
	}
	suite.decode(resp.Data, &view)
	assert.Equal(suite.T(), opened.Traceability.BatchID, view.BatchID)
	assert.True(suite.T(), view.ChainVerified)
	suite.Require().Len(view.Timeline, 2)
	assert.Equal(suite.T(), "Processing: Cleaning", view.Timeline[0].Event)
	assert.Equal(suite.T(), "Quality Check", view.Timeline[1].Event)

	w, _ = suite.do(http.MethodGet, "/v1/traceability/BATCH-0-UNKNOWN00", nil, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *RouterTestSuite) TestMetricsEndpoint() {
	suite.do(http.MethodGet, "/health", nil, nil)

	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "marketplace_http_requests_total")
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
