package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/billing_go_server/internal/model"
)

type CounterRepository struct {
	db *gorm.DB
}

func NewCounterRepository(db *gorm.DB) *CounterRepository {
	return &CounterRepository{db: db}
}

func (r *CounterRepository) GetBySubAndType(sub, counterType string) (*model.UsageCounter, error) {
	var counter model.UsageCounter
	err := r.db.Where("sub = ? AND counter_type = ?", sub, counterType).First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &counter, nil
}

// GetOrCreate 懒创建计数器，(sub, counter_type) 唯一索引保证原子性
func (r *CounterRepository) GetOrCreate(tx *gorm.DB, sub, counterType string, now time.Time) (*model.UsageCounter, error) {
	counter := &model.UsageCounter{
		Sub:         sub,
		CounterType: counterType,
		ResetDate:   model.InitialBoundary(counterType, now),
	}
	err := tx.Create(counter).Error
	if err == nil {
		return counter, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, err
	}

	var existing model.UsageCounter
	if err := lockForUpdate(tx).Where("sub = ? AND counter_type = ?", sub, counterType).
		First(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

// Increment 累加用量，需在扣费事务内调用
func (r *CounterRepository) Increment(tx *gorm.DB, sub, counterType string, chatDelta, templateDelta int) error {
	return tx.Model(&model.UsageCounter{}).
		Where("sub = ? AND counter_type = ?", sub, counterType).
		Updates(map[string]interface{}{
			"chat_used":     gorm.Expr("chat_used + ?", chatDelta),
			"template_used": gorm.Expr("template_used + ?", templateDelta),
		}).Error
}

// ListDue 查询所有到期待归零的计数器
func (r *CounterRepository) ListDue(now time.Time) ([]model.UsageCounter, error) {
	var counters []model.UsageCounter
	err := r.db.Where("reset_date <= ?", now).Find(&counters).Error
	return counters, err
}

// Reset 归零并推进边界。WHERE 带上原 reset_date，
// 与在途扣费竞争时丢锁的一方不生效，重复执行也是空操作
func (r *CounterRepository) Reset(tx *gorm.DB, id int64, expectedResetDate, newResetDate time.Time) (bool, error) {
	result := tx.Model(&model.UsageCounter{}).
		Where("id = ? AND reset_date = ?", id, expectedResetDate).
		Updates(map[string]interface{}{
			"chat_used":     0,
			"template_used": 0,
			"reset_date":    newResetDate,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
