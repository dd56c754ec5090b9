package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/billing_go_server/config"
	"github.com/qs3c/billing_go_server/internal/api/handler"
	"github.com/qs3c/billing_go_server/internal/api/middleware"
	"github.com/qs3c/billing_go_server/internal/pkg/response"
	"github.com/qs3c/billing_go_server/internal/repository"
	"github.com/qs3c/billing_go_server/internal/service"
	"github.com/qs3c/billing_go_server/internal/testutil"
)

const testInternalKey = "test-internal-key"

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := &config.Config{
		Auth: config.AuthConfig{
			InternalKey: testInternalKey,
			JWTSecret:   "test-jwt-secret",
		},
		Billing: config.BillingConfig{
			DefaultPlanCode: "0000",
			DefaultPlanDays: 365,
			PlanDays:        30,
		},
	}

	balanceRepo := repository.NewBalanceRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	planRepo := repository.NewPlanRepository(db)
	counterRepo := repository.NewCounterRepository(db)

	guard := service.NewIdempotencyGuard(db, txRepo)
	ledger := service.NewLedgerService(db, balanceRepo, txRepo, planRepo, counterRepo, guard, nil, cfg)
	planSvc := service.NewPlanService(planRepo, ledger, guard, cfg)
	paymentSvc := service.NewPaymentService(planRepo, ledger, planSvc, guard)

	router := NewRouter(
		handler.NewBillingHandler(ledger, planSvc),
		handler.NewUserHandler(ledger),
		handler.NewPaymentHandler(paymentSvc),
		handler.NewHealthHandler("billing-tariffication", "test"),
		cfg,
	)
	return router.Setup()
}

func doRequest(t *testing.T, engine *gin.Engine, method, path string, body interface{},
	headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderInternalKey, testInternalKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) *response.Response {
	t.Helper()

	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return &resp
}

func TestHealthEndpoint(t *testing.T) {
	engine := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestInternalRoutes_RequireKey(t *testing.T) {
	engine := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/internal/billing/balance?user_id=u1", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	resp := parseResponse(t, w)
	assert.Equal(t, response.CodeAuthFailed, resp.Code)
}

func TestCheckEndpoint(t *testing.T) {
	engine := setupTestRouter(t)

	// 先给用户充值
	w := doRequest(t, engine, http.MethodPost, "/internal/billing/credit", gin.H{
		"user_id": "u1", "units": 100, "ref": "pay-1", "reason": "payment",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, engine, http.MethodPost, "/internal/billing/check", gin.H{
		"user_id": "u1", "units": 50,
	}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse(t, w)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, true, data["allowed"])
	assert.Equal(t, 100.0, data["balance"])
}

func TestCheckEndpoint_InvalidBody(t *testing.T) {
	engine := setupTestRouter(t)

	w := doRequest(t, engine, http.MethodPost, "/internal/billing/check", gin.H{
		"user_id": "u1", "units": -5,
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	resp := parseResponse(t, w)
	assert.Equal(t, response.CodeParamError, resp.Code)
}

func TestDebitEndpoint_InsufficientFunds(t *testing.T) {
	engine := setupTestRouter(t)

	w := doRequest(t, engine, http.MethodPost, "/internal/billing/debit", gin.H{
		"user_id": "u1", "units": 5, "ref": "req-1", "reason": "chat_completion",
	}, nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	resp := parseResponse(t, w)
	assert.Equal(t, response.CodeInsufficientFunds, resp.Code)
}

func TestDebitEndpoint_Replay(t *testing.T) {
	engine := setupTestRouter(t)

	w := doRequest(t, engine, http.MethodPost, "/internal/billing/credit", gin.H{
		"user_id": "u1", "units": 100, "ref": "pay-1", "reason": "payment",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	first := doRequest(t, engine, http.MethodPost, "/internal/billing/debit", gin.H{
		"user_id": "u1", "units": 5, "ref": "req-1", "reason": "chat_completion",
	}, nil)
	require.Equal(t, http.StatusOK, first.Code)

	second := doRequest(t, engine, http.MethodPost, "/internal/billing/debit", gin.H{
		"user_id": "u1", "units": 5, "ref": "req-1", "reason": "chat_completion",
	}, nil)
	require.Equal(t, http.StatusOK, second.Code)

	firstData := parseResponse(t, first).Data.(map[string]interface{})
	secondData := parseResponse(t, second).Data.(map[string]interface{})
	assert.Equal(t, firstData["tx_id"], secondData["tx_id"])
	assert.Equal(t, 95.0, secondData["balance"])
}

func TestDebitEndpoint_RefConflict(t *testing.T) {
	engine := setupTestRouter(t)

	w := doRequest(t, engine, http.MethodPost, "/internal/billing/credit", gin.H{
		"user_id": "u1", "units": 100, "ref": "pay-1", "reason": "payment",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, engine, http.MethodPost, "/internal/billing/debit", gin.H{
		"user_id": "u1", "units": 5, "ref": "req-1", "reason": "chat_completion",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// 同 ref 不同金额
	w = doRequest(t, engine, http.MethodPost, "/internal/billing/debit", gin.H{
		"user_id": "u1", "units": 9, "ref": "req-1", "reason": "chat_completion",
	}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, response.CodeRefConflict, parseResponse(t, w).Code)
}

func TestBalanceEndpoint(t *testing.T) {
	engine := setupTestRouter(t)

	w := doRequest(t, engine, http.MethodGet, "/internal/billing/balance?user_id=ghost", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	data := parseResponse(t, w).Data.(map[string]interface{})
	assert.Equal(t, 0.0, data["balance"])
	assert.Nil(t, data["plan"])
}

func TestBalanceEndpoint_MissingUserID(t *testing.T) {
	engine := setupTestRouter(t)

	w := doRequest(t, engine, http.MethodGet, "/internal/billing/balance", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestApplyPlanEndpoint_NotFound(t *testing.T) {
	engine := setupTestRouter(t)

	w := doRequest(t, engine, http.MethodPost, "/internal/billing/plan/apply", gin.H{
		"user_id": "u1", "plan_id": "nonexistent",
	}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.CodeResourceNotFound, parseResponse(t, w).Code)
}

func TestPaymentWebhookEndpoint_Dedup(t *testing.T) {
	engine := setupTestRouter(t)

	body := gin.H{
		"user_id": "u1", "payment_id": "pay_001", "amount": 100, "payment_status": "succeeded",
	}

	first := doRequest(t, engine, http.MethodPost, "/internal/billing/payment/webhook", body, nil)
	require.Equal(t, http.StatusOK, first.Code)

	second := doRequest(t, engine, http.MethodPost, "/internal/billing/payment/webhook", body, nil)
	require.Equal(t, http.StatusOK, second.Code)

	data := parseResponse(t, second).Data.(map[string]interface{})
	assert.Equal(t, 100.0, data["balance"])
}

func TestUserInitEndpoint(t *testing.T) {
	engine := setupTestRouter(t)

	headers := map[string]string{
		middleware.HeaderUserData: `{"user":{"user_id":"u9"},"token_valid":true}`,
	}

	w := doRequest(t, engine, http.MethodPost, "/internal/billing/user/init", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)

	data := parseResponse(t, w).Data.(map[string]interface{})
	assert.Equal(t, true, data["balance_created"])
	assert.Equal(t, "u9", data["user_id"])

	// 二次初始化幂等
	w = doRequest(t, engine, http.MethodPost, "/internal/billing/user/init", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)
	data = parseResponse(t, w).Data.(map[string]interface{})
	assert.Equal(t, false, data["balance_created"])
}

func TestUserInitEndpoint_RequiresGatewayAuth(t *testing.T) {
	engine := setupTestRouter(t)

	w := doRequest(t, engine, http.MethodPost, "/internal/billing/user/init", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserStatusEndpoint(t *testing.T) {
	engine := setupTestRouter(t)

	headers := map[string]string{
		middleware.HeaderUserData: `{"user":{"user_id":"u9"},"token_valid":true}`,
	}

	w := doRequest(t, engine, http.MethodPost, "/internal/billing/user/init", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, engine, http.MethodGet, "/internal/billing/user/status", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)

	data := parseResponse(t, w).Data.(map[string]interface{})
	assert.Equal(t, true, data["is_initialized"])
	assert.Equal(t, true, data["balance_exists"])
}

func TestRoundTripOverHTTP(t *testing.T) {
	engine := setupTestRouter(t)

	headers := map[string]string{
		middleware.HeaderUserData: `{"user":{"user_id":"u1"},"token_valid":true}`,
	}

	w := doRequest(t, engine, http.MethodPost, "/internal/billing/user/init", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, engine, http.MethodPost, "/internal/billing/credit", gin.H{
		"user_id": "u1", "units": 100, "ref": "pay-1", "reason": "payment",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, engine, http.MethodPost, "/internal/billing/debit", gin.H{
		"user_id": "u1", "units": 5, "ref": "req-1", "reason": "chat_completion",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, engine, http.MethodGet,
		fmt.Sprintf("/internal/billing/balance?user_id=%s", "u1"), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := parseResponse(t, w).Data.(map[string]interface{})
	assert.Equal(t, 95.0, data["balance"])
}
