package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/billing_go_server/internal/model"
)

// TestBalance 创建测试余额
func TestBalance(t *testing.T, db *gorm.DB, opts ...func(*model.Balance)) *model.Balance {
	t.Helper()

	balance := &model.Balance{
		Sub:    fmt.Sprintf("user_%d", time.Now().UnixNano()%100000),
		Amount: 0,
	}

	for _, opt := range opts {
		opt(balance)
	}

	if err := db.Create(balance).Error; err != nil {
		t.Fatalf("Failed to create test balance: %v", err)
	}

	return balance
}

// WithSub 设置用户标识
func WithSub(sub string) func(*model.Balance) {
	return func(b *model.Balance) {
		b.Sub = sub
	}
}

// WithAmount 设置余额
func WithAmount(amount float64) func(*model.Balance) {
	return func(b *model.Balance) {
		b.Amount = amount
	}
}

// TestTariffPlan 创建测试资费计划
func TestTariffPlan(t *testing.T, db *gorm.DB, planCode string, monthlyUnits float64) *model.TariffPlan {
	t.Helper()

	plan := &model.TariffPlan{
		PlanCode:      planCode,
		Name:          fmt.Sprintf("Plan %s", planCode),
		MonthlyUnits:  monthlyUnits,
		ChatLimit:     100,
		TemplateLimit: 20,
		IsActive:      true,
	}

	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("Failed to create test tariff plan: %v", err)
	}

	return plan
}

// TestUserPlan 创建测试用户计划
func TestUserPlan(t *testing.T, db *gorm.DB, sub, planCode, status string, expiresAt time.Time) *model.UserPlan {
	t.Helper()

	plan := &model.UserPlan{
		Sub:       sub,
		PlanCode:  planCode,
		Status:    status,
		StartedAt: time.Now().UTC().AddDate(0, 0, -1),
		ExpiresAt: expiresAt,
	}

	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("Failed to create test user plan: %v", err)
	}

	return plan
}

// TestCounter 创建测试用量计数器
func TestCounter(t *testing.T, db *gorm.DB, sub, counterType string, chatUsed int, resetDate time.Time) *model.UsageCounter {
	t.Helper()

	counter := &model.UsageCounter{
		Sub:         sub,
		CounterType: counterType,
		ChatUsed:    chatUsed,
		ResetDate:   resetDate,
	}

	if err := db.Create(counter).Error; err != nil {
		t.Fatalf("Failed to create test counter: %v", err)
	}

	return counter
}

// TestTransaction 创建测试流水回执
func TestTransaction(t *testing.T, db *gorm.DB, sub, ref, direction string, units, resulting float64) *model.BalanceTransaction {
	t.Helper()

	txn := &model.BalanceTransaction{
		TxID:             fmt.Sprintf("tx_%d", time.Now().UnixNano()),
		Sub:              sub,
		Direction:        direction,
		Units:            units,
		Ref:              ref,
		Reason:           "test",
		ResultingBalance: resulting,
	}

	if err := db.Create(txn).Error; err != nil {
		t.Fatalf("Failed to create test transaction: %v", err)
	}

	return txn
}
