package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/qs3c/billing_go_server/internal/model"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// GetByRef 按幂等引用查询回执，不存在返回 nil
func (r *TransactionRepository) GetByRef(ref string) (*model.BalanceTransaction, error) {
	return getByRef(r.db, ref)
}

// GetByRefTx 事务内版本
func (r *TransactionRepository) GetByRefTx(tx *gorm.DB, ref string) (*model.BalanceTransaction, error) {
	return getByRef(tx, ref)
}

func getByRef(db *gorm.DB, ref string) (*model.BalanceTransaction, error) {
	var txn model.BalanceTransaction
	err := db.Where("ref = ?", ref).First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// Create 写入回执。ref 唯一索引冲突会使整个事务失败，
// 这是并发同 ref 请求的唯一裁决点
func (r *TransactionRepository) Create(tx *gorm.DB, txn *model.BalanceTransaction) error {
	return tx.Create(txn).Error
}

// ListBySub 按用户查询流水（新到旧）
func (r *TransactionRepository) ListBySub(sub string, limit int) ([]model.BalanceTransaction, error) {
	var txns []model.BalanceTransaction
	q := r.db.Where("sub = ?", sub).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&txns).Error
	return txns, err
}
