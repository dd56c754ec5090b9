package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/billing_go_server/internal/model"
)

type BalanceRepository struct {
	db *gorm.DB
}

func NewBalanceRepository(db *gorm.DB) *BalanceRepository {
	return &BalanceRepository{db: db}
}

// lockForUpdate 行级锁。SQLite 不支持 FOR UPDATE，由其写事务串行化兜底
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "mysql" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func (r *BalanceRepository) GetBySub(sub string) (*model.Balance, error) {
	var balance model.Balance
	err := r.db.Where("sub = ?", sub).First(&balance).Error
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// GetForUpdate 在事务内加行锁读取余额，后续判定与更新都基于该读
func (r *BalanceRepository) GetForUpdate(tx *gorm.DB, sub string) (*model.Balance, error) {
	var balance model.Balance
	err := lockForUpdate(tx).Where("sub = ?", sub).First(&balance).Error
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// CreateIfAbsent 不存在则创建，依赖 sub 唯一索引保证原子性。
// 返回值 created 表示本次调用是否真正插入了新行。
func (r *BalanceRepository) CreateIfAbsent(tx *gorm.DB, sub string, initial float64) (*model.Balance, bool, error) {
	balance := &model.Balance{Sub: sub, Amount: initial}
	err := tx.Create(balance).Error
	if err == nil {
		return balance, true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, false, err
	}

	// 已存在（含并发插入败者），读取现有行
	var existing model.Balance
	if err := lockForUpdate(tx).Where("sub = ?", sub).First(&existing).Error; err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

// UpdateAmount 更新余额，必须在持有行锁的事务内调用
func (r *BalanceRepository) UpdateAmount(tx *gorm.DB, sub string, amount float64) error {
	return tx.Model(&model.Balance{}).Where("sub = ?", sub).
		Update("amount", amount).Error
}
