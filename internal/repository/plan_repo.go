package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/billing_go_server/internal/model"
)

type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// GetTariffPlan 查询目录中的资费计划，不存在或已下架返回 nil
func (r *PlanRepository) GetTariffPlan(planCode string) (*model.TariffPlan, error) {
	return getTariffPlan(r.db, planCode)
}

func (r *PlanRepository) GetTariffPlanTx(tx *gorm.DB, planCode string) (*model.TariffPlan, error) {
	return getTariffPlan(tx, planCode)
}

func getTariffPlan(db *gorm.DB, planCode string) (*model.TariffPlan, error) {
	var plan model.TariffPlan
	err := db.Where("plan_code = ? AND is_active = ?", planCode, true).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// CreateTariffPlan 新增目录条目（初始化脚本用）
func (r *PlanRepository) CreateTariffPlan(plan *model.TariffPlan) error {
	return r.db.Create(plan).Error
}

// GetActiveBySub 查询用户当前有效计划，过期按时间比较
func (r *PlanRepository) GetActiveBySub(sub string, now time.Time) (*model.UserPlan, error) {
	var plan model.UserPlan
	err := r.db.Where("sub = ? AND status = ? AND expires_at > ?",
		sub, model.PlanStatusActive, now).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// Deactivate 将用户所有 active 计划置为指定状态（supersede 旧计划）
func (r *PlanRepository) Deactivate(tx *gorm.DB, sub, status string) error {
	return tx.Model(&model.UserPlan{}).
		Where("sub = ? AND status = ?", sub, model.PlanStatusActive).
		Update("status", status).Error
}

// Create 写入新的用户计划
func (r *PlanRepository) Create(tx *gorm.DB, plan *model.UserPlan) error {
	return tx.Create(plan).Error
}
