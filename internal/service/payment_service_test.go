package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/billing_go_server/internal/model"
	"github.com/qs3c/billing_go_server/internal/model/dto"
	"github.com/qs3c/billing_go_server/internal/repository"
	"github.com/qs3c/billing_go_server/internal/testutil"
)

func newTestPaymentService(t *testing.T) (*PaymentService, *gorm.DB) {
	t.Helper()

	planSvc, ledger, db := newTestPlanService(t)
	svc := NewPaymentService(repository.NewPlanRepository(db), ledger, planSvc, ledger.guard)
	return svc, db
}

func TestPaymentService_HandleConfirmation(t *testing.T) {
	svc, db := newTestPaymentService(t)

	resp, err := svc.HandleConfirmation(&dto.PaymentWebhookRequest{
		PaymentID:     "pay_001",
		UserID:        "u1",
		Amount:        100,
		Currency:      "CNY",
		PaymentStatus: dto.PaymentSucceeded,
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 100.0, resp.Balance)

	balance, err := repository.NewBalanceRepository(db).GetBySub("u1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, balance.Amount)
}

func TestPaymentService_HandleConfirmation_Dedup(t *testing.T) {
	svc, db := newTestPaymentService(t)

	req := &dto.PaymentWebhookRequest{
		PaymentID:     "pay_001",
		UserID:        "u1",
		Amount:        100,
		PaymentStatus: dto.PaymentSucceeded,
	}

	first, err := svc.HandleConfirmation(req)
	require.NoError(t, err)

	// 支付网关重复投递同一单号，只入账一次
	second, err := svc.HandleConfirmation(req)
	require.NoError(t, err)
	assert.Equal(t, first.Balance, second.Balance)

	balance, err := repository.NewBalanceRepository(db).GetBySub("u1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, balance.Amount)

	var txCount int64
	require.NoError(t, db.Model(&model.BalanceTransaction{}).
		Where("ref = ?", "pay_001").Count(&txCount).Error)
	assert.Equal(t, int64(1), txCount)
}

func TestPaymentService_HandleConfirmation_NotSucceeded(t *testing.T) {
	svc, db := newTestPaymentService(t)

	testutil.TestBalance(t, db, testutil.WithSub("u1"), testutil.WithAmount(20))

	// 非 succeeded 状态确认后忽略，不入账
	resp, err := svc.HandleConfirmation(&dto.PaymentWebhookRequest{
		PaymentID:     "pay_002",
		UserID:        "u1",
		Amount:        100,
		PaymentStatus: "failed",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 20.0, resp.Balance)

	balance, err := repository.NewBalanceRepository(db).GetBySub("u1")
	require.NoError(t, err)
	assert.Equal(t, 20.0, balance.Amount)
}

func TestPaymentService_HandleConfirmation_WithPlan(t *testing.T) {
	svc, db := newTestPaymentService(t)

	testutil.TestTariffPlan(t, db, "base750", 750)

	resp, err := svc.HandleConfirmation(&dto.PaymentWebhookRequest{
		PaymentID:     "pay_003",
		UserID:        "u1",
		Amount:        299,
		PaymentStatus: dto.PaymentSucceeded,
		PlanCode:      "base750",
		AutoRenew:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, 299.0, resp.Balance)

	// 充值与计划激活同事务提交
	plan, err := repository.NewPlanRepository(db).GetActiveBySub("u1", time.Now().UTC())
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, "base750", plan.PlanCode)
	assert.True(t, plan.AutoRenew)
}

func TestPaymentService_HandleConfirmation_UnknownPlanRollsBack(t *testing.T) {
	svc, db := newTestPaymentService(t)

	_, err := svc.HandleConfirmation(&dto.PaymentWebhookRequest{
		PaymentID:     "pay_004",
		UserID:        "u1",
		Amount:        299,
		PaymentStatus: dto.PaymentSucceeded,
		PlanCode:      "nonexistent",
	})
	assert.ErrorIs(t, err, ErrPlanNotFound)

	// 计划无效时充值一并回滚，ref 未被消耗
	var txCount int64
	require.NoError(t, db.Model(&model.BalanceTransaction{}).
		Where("ref = ?", "pay_004").Count(&txCount).Error)
	assert.Equal(t, int64(0), txCount)

	_, err = repository.NewBalanceRepository(db).GetBySub("u1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
