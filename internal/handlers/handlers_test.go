package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/insurance-api/internal/cache"
	"github.com/sjperalta/insurance-api/internal/config"
	"github.com/sjperalta/insurance-api/internal/middleware"
	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/sjperalta/insurance-api/internal/repository"
	"github.com/sjperalta/insurance-api/internal/services"
	"github.com/sjperalta/insurance-api/internal/storage"
	"github.com/sjperalta/insurance-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-secret"

type testServer struct {
	t      *testing.T
	router *gin.Engine
	repos  *repository.Repositories
	cfg    *config.Config
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	repos := repository.NewRepositories(db)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{
		JWTSecret:            testSecret,
		JWTExpirationHours:   1,
		LegacyTokenPrefix:    "islam__",
		AllowedOrigins:       []string{"*"},
		PaymentGatewayURL:    "https://pay.test/checkout",
		PaymentGatewaySecret: "gateway-secret",
		IdempotencyTTL:       time.Minute,
	}
	mem := cache.NewMemoryCache()
	svcs := services.NewServices(repos, nil, store, mem, nil, cfg, db)

	return &testServer{
		t:      t,
		router: NewRouter(NewHandlers(svcs), cfg, mem),
		repos:  repos,
		cfg:    cfg,
	}
}

func signToken(t *testing.T, userID uint, role string) string {
	t.Helper()
	claims := services.AccessClaims{
		UserID: userID,
		Email:  fmt.Sprintf("user%d@agency.test", userID),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

// do sends a request as the given role. An empty role sends no credential.
func (s *testServer) do(method, path, role string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	switch role {
	case models.RoleAdmin:
		req.Header.Set("Authorization", "Bearer "+signToken(s.t, 1, models.RoleAdmin))
	case models.RoleStaff:
		req.Header.Set("Authorization", "Bearer "+signToken(s.t, 2, models.RoleStaff))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

// seedPolicy creates a customer, a vehicle and a 1000 policy paid 400 in cash
func (s *testServer) seedPolicy() (customerID, vehicleID, policyID uint) {
	s.t.Helper()

	w := s.do(http.MethodPost, "/api/v1/customers", models.RoleStaff, map[string]interface{}{
		"customer": map[string]interface{}{"full_name": "Rami Haddad", "identity": "123456789", "phone": "0501234567"},
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	customerID = uint(decode(s.t, w)["customer"].(map[string]interface{})["id"].(float64))

	w = s.do(http.MethodPost, fmt.Sprintf("/api/v1/customers/%d/vehicles", customerID), models.RoleStaff,
		map[string]interface{}{"plate_number": "12-345-67", "model": "Corolla"})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	vehicleID = uint(decode(s.t, w)["vehicle"].(map[string]interface{})["id"].(float64))

	w = s.do(http.MethodPost, fmt.Sprintf("/api/v1/customers/%d/vehicles/%d/policies", customerID, vehicleID), models.RoleStaff,
		map[string]interface{}{
			"insurance": map[string]interface{}{
				"type":             "comprehensive",
				"company":          "Acme Insurance",
				"insurance_amount": "1000",
				"start_date":       "2026-01-01",
				"end_date":         "2026-12-31",
				"payments": []map[string]interface{}{
					{"amount": "400", "payment_method": "cash"},
					{"payment_method": ""},
				},
			},
		})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	policyID = uint(decode(s.t, w)["policy"].(map[string]interface{})["id"].(float64))
	return customerID, vehicleID, policyID
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/v1/customers", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "auth.unauthorized", decode(t, w)["messageKey"])

	legacy := "islam__" + signToken(t, 2, models.RoleStaff)
	w = s.do(http.MethodGet, "/api/v1/customers", "", nil, middleware.LegacyHeader, legacy)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestLoginSessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	hash, err := services.HashPassword("correct-horse")
	require.NoError(t, err)
	require.NoError(t, s.repos.User.Create(context.Background(), &models.User{
		Email: "clerk@agency.test", EncryptedPassword: hash, Role: models.RoleStaff, Status: models.StatusActive,
	}))

	w := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "clerk@agency.test", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "clerk@agency.test", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	session := decode(t, w)
	legacy := session["legacy_token"].(string)
	assert.Equal(t, "islam__"+session["token"].(string), legacy)

	w = s.do(http.MethodGet, "/api/v1/customers", "", nil, middleware.LegacyHeader, legacy)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/auth/refresh", "", map[string]interface{}{"refresh_token": session["refresh_token"]})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	refreshed := decode(t, w)

	w = s.do(http.MethodPost, "/api/v1/auth/refresh", "", map[string]interface{}{"refresh_token": session["refresh_token"]})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/v1/auth/logout_all", "", nil, "Authorization", "Bearer "+refreshed["token"].(string))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/auth/refresh", "", map[string]interface{}{"refresh_token": refreshed["refresh_token"]})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRoutesRejectStaff(t *testing.T) {
	s := newTestServer(t)
	_, _, policyID := s.seedPolicy()

	w := s.do(http.MethodPost, fmt.Sprintf("/api/v1/policies/%d/cancel", policyID), models.RoleStaff, map[string]interface{}{})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/v1/audits", models.RoleStaff, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/v1/audits?entity=policy", models.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["audits"])
}

func TestCustomerValidationError(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/v1/customers", models.RoleStaff, map[string]interface{}{"identity": "1"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode(t, w)
	assert.Equal(t, "customer.name_required", body["messageKey"])
	assert.NotEmpty(t, body["message"])

	w = s.do(http.MethodPost, "/api/v1/customers", models.RoleStaff, `{"full_name": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMalformedIDIsNotFound(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/v1/policies/abc", models.RoleStaff, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "policy.not_found", decode(t, w)["messageKey"])

	w = s.do(http.MethodGet, "/api/v1/policies/999", models.RoleStaff, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPolicyPaymentFlow(t *testing.T) {
	s := newTestServer(t)
	_, _, policyID := s.seedPolicy()
	path := fmt.Sprintf("/api/v1/policies/%d", policyID)

	w := s.do(http.MethodPost, path+"/payments", models.RoleStaff, map[string]interface{}{"amount": "700", "payment_method": "cash"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "payment.exceeds_remaining", decode(t, w)["messageKey"])

	w = s.do(http.MethodPost, path+"/payments", models.RoleStaff, map[string]interface{}{"payment": map[string]interface{}{"amount": "200", "payment_method": "card"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Contains(t, body["redirect_url"], "https://pay.test/checkout")

	w = s.do(http.MethodGet, path, models.RoleStaff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	policy := decode(t, w)["policy"].(map[string]interface{})
	assert.Equal(t, float64(400), policy["paid_amount"], "card payment awaiting the gateway is not counted as paid")

	ref := body["payment"].(map[string]interface{})["gateway_reference"].(string)
	w = s.do(http.MethodPost, "/api/v1/webhooks/payment-gateway", "", map[string]interface{}{
		"reference": ref,
		"status":    services.GatewayStatusSucceeded,
		"signature": services.SignGatewayCallback(s.cfg.PaymentGatewaySecret, ref, services.GatewayStatusSucceeded),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, path, models.RoleStaff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(600), decode(t, w)["policy"].(map[string]interface{})["paid_amount"])
}

func TestCustomerLevelChequePayment(t *testing.T) {
	s := newTestServer(t)
	customerID, _, _ := s.seedPolicy()
	path := fmt.Sprintf("/api/v1/customers/%d/payments", customerID)

	w := s.do(http.MethodPost, path, models.RoleStaff, map[string]interface{}{"amount": "250", "payment_method": "cheque"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "payment.cheque_number_required", decode(t, w)["messageKey"])

	w = s.do(http.MethodPost, path, models.RoleStaff, map[string]interface{}{
		"payment": map[string]interface{}{"amount": "250", "payment_method": "cheque", "cheque_number": "778899", "cheque_date": "2026-07-01"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	payment := decode(t, w)["payment"].(map[string]interface{})
	assert.Nil(t, payment["policy_id"])
	assert.Equal(t, "778899", payment["cheque_number"])

	w = s.do(http.MethodGet, fmt.Sprintf("/api/v1/payments?customer_id=%d&payment_method=cheque", customerID), models.RoleStaff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["payments"], 1)
}

func TestCancelTwiceConflicts(t *testing.T) {
	s := newTestServer(t)
	_, _, policyID := s.seedPolicy()
	path := fmt.Sprintf("/api/v1/policies/%d/cancel", policyID)

	w := s.do(http.MethodPost, path, models.RoleAdmin, map[string]interface{}{
		"refund_amount": "100", "paid_by": "Agency", "payment_method": "cash",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.PolicyStatusCancelled, decode(t, w)["policy"].(map[string]interface{})["status"])

	w = s.do(http.MethodPost, path, models.RoleAdmin, map[string]interface{}{})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestIdempotencyKeyRejectsResubmission(t *testing.T) {
	s := newTestServer(t)
	body := map[string]interface{}{"title": "Office rent", "amount": "1500", "paid_by": "Agency", "payment_method": "bank_transfer"}

	w := s.do(http.MethodPost, "/api/v1/expenses", models.RoleStaff, body, middleware.IdempotencyHeader, "form-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/expenses", models.RoleStaff, body, middleware.IdempotencyHeader, "form-1")
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "request.duplicate", decode(t, w)["messageKey"])

	_, total, err := s.repos.Expense.List(context.Background(), &repository.ExpenseQuery{ListQuery: repository.NewListQuery()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestExpenseExport(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodPost, "/api/v1/expenses", models.RoleStaff,
		map[string]interface{}{"title": "Fuel", "amount": "80", "paid_by": "Agency", "payment_method": "cash"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/expenses/export?format=csv", models.RoleStaff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Body.String(), "Fuel")

	w = s.do(http.MethodGet, "/api/v1/expenses/export?format=doc", models.RoleStaff, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		img.Set(x, 10, color.Black)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCreateChequeMultipart(t *testing.T) {
	s := newTestServer(t)
	customerID, _, _ := s.seedPolicy()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("cheque_number", "100200"))
	require.NoError(t, form.WriteField("amount", "500"))
	require.NoError(t, form.WriteField("cheque_date", "2026-07-01"))
	require.NoError(t, form.WriteField("bank_name", "Leumi"))
	part, err := form.CreateFormFile("image", "scan.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes(t))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/cheques/customer/%d", customerID), &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+signToken(t, 2, models.RoleStaff))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	chequeID := uint(decode(t, w)["cheque"].(map[string]interface{})["id"].(float64))

	w = s.do(http.MethodGet, "/api/v1/cheques?status=pending&limit=5", models.RoleStaff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)
	assert.Len(t, list["cheques"], 1)
	assert.Equal(t, float64(5), list["pagination"].(map[string]interface{})["limit"])

	w = s.do(http.MethodGet, fmt.Sprintf("/api/v1/cheques/%d/image", chequeID), models.RoleStaff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = s.do(http.MethodPatch, fmt.Sprintf("/api/v1/cheques/%d/status", chequeID), models.RoleStaff, map[string]interface{}{"status": "returned"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestGatewayWebhookRejectsBadSignature(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/v1/webhooks/payment-gateway", "", map[string]interface{}{
		"reference": "abc", "status": "succeeded", "signature": "deadbeef",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/v1/webhooks/payment-gateway", "", map[string]interface{}{"reference": "abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReceiptHTML(t *testing.T) {
	s := newTestServer(t)
	_, _, policyID := s.seedPolicy()

	payments, err := s.repos.Payment.FindByPolicy(context.Background(), policyID)
	require.NoError(t, err)
	require.Len(t, payments, 1)

	w := s.do(http.MethodGet, fmt.Sprintf("/api/v1/payments/%d/receipt", payments[0].ID), models.RoleStaff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, w.Body.String(), payments[0].ReceiptNumber)
	assert.Contains(t, w.Body.String(), decimal.NewFromInt(400).StringFixed(2))
}

func TestDashboardStatistics(t *testing.T) {
	s := newTestServer(t)
	s.seedPolicy()

	w := s.do(http.MethodGet, "/api/v1/dashboard/statistics", models.RoleStaff, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(1), decode(t, w)["active_policies"])

	w = s.do(http.MethodGet, "/api/v1/dashboard/financial-overview?start_date=2026-05-01&end_date=2026-01-01", models.RoleStaff, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodGet, "/api/v1/dashboard/financial-overview?start_date=nope", models.RoleStaff, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestPolicyHistoryByVehicle(t *testing.T) {
	s := newTestServer(t)
	_, vehicleID, policyID := s.seedPolicy()

	w := s.do(http.MethodGet, fmt.Sprintf("/api/v1/policies?vehicle_id=%d", vehicleID), models.RoleStaff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	policies := body["policies"].([]interface{})
	require.Len(t, policies, 1)
	assert.Equal(t, float64(policyID), policies[0].(map[string]interface{})["id"])
	assert.NotContains(t, body, "pagination")
}
