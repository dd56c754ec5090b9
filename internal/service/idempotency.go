package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qs3c/billing_go_server/internal/model"
	"github.com/qs3c/billing_go_server/internal/repository"
)

var (
	ErrInsufficientBalance = errors.New("余额不足")
	ErrRefConflict         = errors.New("幂等引用与原请求参数不一致")
	ErrInvalidUnits        = errors.New("units 必须为正数")
	ErrPlanNotFound        = errors.New("资费计划不存在")
)

// GuardResult 带回执的操作结果。Replayed 表示命中了已有回执，未产生新效果
type GuardResult struct {
	Balance  float64
	TxID     string
	Replayed bool
}

// IdempotencyGuard 用回执表的 ref 唯一索引把 at-least-once 投递收敛为 exactly-once 效果。
// 先查回执、后变更、回执与变更同事务提交；并发同 ref 请求由唯一索引裁决，
// 败者回滚后重放胜者的回执。
type IdempotencyGuard struct {
	db     *gorm.DB
	txRepo *repository.TransactionRepository
}

func NewIdempotencyGuard(db *gorm.DB, txRepo *repository.TransactionRepository) *IdempotencyGuard {
	return &IdempotencyGuard{db: db, txRepo: txRepo}
}

// Execute 以 ref 为幂等键执行一次余额变更。
// mutate 在事务内完成余额及附带行的修改并返回变更后的余额；
// mutate 返回错误时整个事务回滚，不消耗 ref（如余额不足后补款重试仍可用原 ref）。
func (g *IdempotencyGuard) Execute(sub, ref, direction string, units float64, reason, source string,
	mutate func(tx *gorm.DB) (float64, error)) (*GuardResult, error) {

	for attempt := 0; attempt < 2; attempt++ {
		res := &GuardResult{}
		err := g.db.Transaction(func(tx *gorm.DB) error {
			existing, err := g.txRepo.GetByRefTx(tx, ref)
			if err != nil {
				return err
			}
			if existing != nil {
				// 重试请求的逻辑参数必须与原请求一致
				if existing.Sub != sub || existing.Direction != direction || existing.Units != units {
					return ErrRefConflict
				}
				res.Balance = existing.ResultingBalance
				res.TxID = existing.TxID
				res.Replayed = true
				return nil
			}

			newBalance, err := mutate(tx)
			if err != nil {
				return err
			}

			txn := &model.BalanceTransaction{
				TxID:             uuid.NewString(),
				Sub:              sub,
				Direction:        direction,
				Units:            units,
				Ref:              ref,
				Reason:           reason,
				SourceService:    source,
				ResultingBalance: newBalance,
			}
			if err := g.txRepo.Create(tx, txn); err != nil {
				return err
			}

			res.Balance = newBalance
			res.TxID = txn.TxID
			return nil
		})

		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 并发同 ref 落败，事务已回滚；重入一次读取胜者的回执
			continue
		}
		if err != nil {
			return nil, err
		}
		return res, nil
	}

	return nil, fmt.Errorf("idempotency replay failed for ref %s", ref)
}
