package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/billing_go_server/config"
	"github.com/qs3c/billing_go_server/internal/model"
	"github.com/qs3c/billing_go_server/internal/model/dto"
	"github.com/qs3c/billing_go_server/internal/pkg/audit"
	"github.com/qs3c/billing_go_server/internal/repository"
)

// LedgerService 账本核心：check / debit / credit / init / status。
// 所有变更路径经过 IdempotencyGuard，余额行在事务内加锁后读改写
type LedgerService struct {
	db          *gorm.DB
	balanceRepo *repository.BalanceRepository
	txRepo      *repository.TransactionRepository
	planRepo    *repository.PlanRepository
	counterRepo *repository.CounterRepository
	guard       *IdempotencyGuard
	auditQueue  *audit.Queue
	cfg         *config.Config
}

func NewLedgerService(
	db *gorm.DB,
	balanceRepo *repository.BalanceRepository,
	txRepo *repository.TransactionRepository,
	planRepo *repository.PlanRepository,
	counterRepo *repository.CounterRepository,
	guard *IdempotencyGuard,
	auditQueue *audit.Queue,
	cfg *config.Config,
) *LedgerService {
	return &LedgerService{
		db:          db,
		balanceRepo: balanceRepo,
		txRepo:      txRepo,
		planRepo:    planRepo,
		counterRepo: counterRepo,
		guard:       guard,
		auditQueue:  auditQueue,
		cfg:         cfg,
	}
}

// Check 检查余额是否足够。只读，不产生回执
func (s *LedgerService) Check(sub string, units float64) (*dto.CheckBalanceResponse, error) {
	if units <= 0 {
		return nil, ErrInvalidUnits
	}

	amount, err := s.currentAmount(sub)
	if err != nil {
		return nil, err
	}

	s.publishAudit(&audit.Event{
		EventType:     audit.EventBalanceCheckRequested,
		Sub:           sub,
		Amount:        units,
		BalanceBefore: amount,
		BalanceAfter:  amount,
	})

	return &dto.CheckBalanceResponse{
		Allowed: amount >= units,
		Balance: amount,
	}, nil
}

// Debit 扣费。事务内锁行重读余额，不足则整体回滚且不消耗 ref
func (s *LedgerService) Debit(sub string, units float64, ref, reason string) (*dto.DebitResponse, error) {
	if units <= 0 {
		return nil, ErrInvalidUnits
	}

	var balanceBefore float64
	res, err := s.guard.Execute(sub, ref, model.DirectionDebit, units, reason, "", func(tx *gorm.DB) (float64, error) {
		newBalance, before, err := s.debitTx(tx, sub, units, reason)
		balanceBefore = before
		return newBalance, err
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			s.publishAudit(&audit.Event{
				EventType:    audit.EventInsufficientFunds,
				Sub:          sub,
				Amount:       units,
				Ref:          ref,
				ErrorDetails: "insufficient balance",
			})
		}
		return nil, err
	}

	if !res.Replayed {
		s.publishAudit(&audit.Event{
			EventType:     audit.EventDebitProcessed,
			Sub:           sub,
			Amount:        units,
			BalanceBefore: balanceBefore,
			BalanceAfter:  res.Balance,
			TxID:          res.TxID,
			Ref:           ref,
			Reason:        reason,
		})
	}

	return &dto.DebitResponse{Balance: res.Balance, TxID: res.TxID}, nil
}

// Credit 充值。余额行不存在则懒创建，无余额充足性检查
func (s *LedgerService) Credit(sub string, units float64, ref, reason, source string) (*dto.CreditResponse, error) {
	if units <= 0 {
		return nil, ErrInvalidUnits
	}

	var balanceBefore float64
	res, err := s.guard.Execute(sub, ref, model.DirectionCredit, units, reason, source, func(tx *gorm.DB) (float64, error) {
		newBalance, before, err := s.creditTx(tx, sub, units)
		balanceBefore = before
		return newBalance, err
	})
	if err != nil {
		return nil, err
	}

	if !res.Replayed {
		s.publishAudit(&audit.Event{
			EventType:     audit.EventCreditProcessed,
			Sub:           sub,
			Amount:        units,
			BalanceBefore: balanceBefore,
			BalanceAfter:  res.Balance,
			TxID:          res.TxID,
			Ref:           ref,
			Reason:        reason,
		})
	}

	return &dto.CreditResponse{Balance: res.Balance, TxID: res.TxID}, nil
}

// InitUser 初始化用户：余额不存在则以 0 创建并激活默认计划。
// insert-if-absent 天然幂等，无需 ref
func (s *LedgerService) InitUser(sub string) (created bool, initialBalance float64, err error) {
	err = s.db.Transaction(func(tx *gorm.DB) error {
		balance, inserted, err := s.balanceRepo.CreateIfAbsent(tx, sub, s.cfg.Billing.InitialBalance)
		if err != nil {
			return err
		}
		created = inserted
		initialBalance = balance.Amount
		if !inserted {
			return nil
		}

		// 首次初始化附带默认计划
		now := time.Now().UTC()
		plan := &model.UserPlan{
			Sub:       sub,
			PlanCode:  s.cfg.Billing.DefaultPlanCode,
			Status:    model.PlanStatusActive,
			StartedAt: now,
			ExpiresAt: now.AddDate(0, 0, s.cfg.Billing.DefaultPlanDays),
			AutoRenew: true,
		}
		if tariff, err := s.planRepo.GetTariffPlanTx(tx, plan.PlanCode); err != nil {
			return err
		} else if tariff != nil {
			plan.ChatLimit = tariff.ChatLimit
			plan.TemplateLimit = tariff.TemplateLimit
		}
		return s.planRepo.Create(tx, plan)
	})
	return created, initialBalance, err
}

// GetStatus 查询用户初始化状态
func (s *LedgerService) GetStatus(sub string) (*dto.UserStatusResponse, error) {
	status := &dto.UserStatusResponse{Sub: sub}

	balance, err := s.balanceRepo.GetBySub(sub)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if balance != nil {
		status.BalanceExists = true
		status.BalanceAmount = balance.Amount
		status.IsInitialized = true
	}

	plan, err := s.planRepo.GetActiveBySub(sub, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if plan != nil {
		status.HasActivePlan = true
		status.ActivePlanCode = plan.PlanCode
	}

	return status, nil
}

// GetBalance 查询余额及当前计划。未初始化用户按余额 0 返回
func (s *LedgerService) GetBalance(sub string) (*dto.BalanceResponse, error) {
	amount, err := s.currentAmount(sub)
	if err != nil {
		return nil, err
	}

	resp := &dto.BalanceResponse{Balance: amount}

	plan, err := s.planRepo.GetActiveBySub(sub, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if plan != nil {
		resp.Plan = &dto.PlanInfo{
			PlanCode:  plan.PlanCode,
			ExpiresAt: plan.ExpiresAt.Format(time.RFC3339),
			Status:    plan.Status,
		}
	}

	return resp, nil
}

// GetUsage 查询周期用量计数
func (s *LedgerService) GetUsage(sub string) (map[string]*model.UsageCounter, error) {
	usage := make(map[string]*model.UsageCounter)
	for _, counterType := range []string{model.CounterDaily, model.CounterMonthly} {
		counter, err := s.counterRepo.GetBySubAndType(sub, counterType)
		if err != nil {
			return nil, err
		}
		if counter != nil {
			usage[counterType] = counter
		}
	}
	return usage, nil
}

// debitTx 事务内扣费：锁行重读、判定充足性、更新余额、累加用量
func (s *LedgerService) debitTx(tx *gorm.DB, sub string, units float64, reason string) (newBalance, balanceBefore float64, err error) {
	balance, err := s.balanceRepo.GetForUpdate(tx, sub)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// 未初始化等价于余额 0
		return 0, 0, ErrInsufficientBalance
	}
	if err != nil {
		return 0, 0, err
	}

	if balance.Amount < units {
		return 0, balance.Amount, ErrInsufficientBalance
	}

	newBalance = balance.Amount - units
	if err := s.balanceRepo.UpdateAmount(tx, sub, newBalance); err != nil {
		return 0, balance.Amount, err
	}

	if err := s.incrementUsageTx(tx, sub, reason); err != nil {
		return 0, balance.Amount, err
	}

	return newBalance, balance.Amount, nil
}

// creditTx 事务内充值，余额行懒创建
func (s *LedgerService) creditTx(tx *gorm.DB, sub string, units float64) (newBalance, balanceBefore float64, err error) {
	balance, _, err := s.balanceRepo.CreateIfAbsent(tx, sub, 0)
	if err != nil {
		return 0, 0, err
	}

	newBalance = balance.Amount + units
	if err := s.balanceRepo.UpdateAmount(tx, sub, newBalance); err != nil {
		return 0, balance.Amount, err
	}
	return newBalance, balance.Amount, nil
}

// incrementUsageTx 按 reason 归类累加 daily/monthly 计数器
func (s *LedgerService) incrementUsageTx(tx *gorm.DB, sub, reason string) error {
	chatDelta, templateDelta := usageDeltas(reason)
	if chatDelta == 0 && templateDelta == 0 {
		return nil
	}

	now := time.Now().UTC()
	for _, counterType := range []string{model.CounterDaily, model.CounterMonthly} {
		if _, err := s.counterRepo.GetOrCreate(tx, sub, counterType, now); err != nil {
			return err
		}
		if err := s.counterRepo.Increment(tx, sub, counterType, chatDelta, templateDelta); err != nil {
			return err
		}
	}
	return nil
}

func usageDeltas(reason string) (chatDelta, templateDelta int) {
	switch {
	case strings.HasPrefix(reason, "chat"):
		return 1, 0
	case strings.HasPrefix(reason, "template"):
		return 0, 1
	default:
		return 0, 0
	}
}

func (s *LedgerService) currentAmount(sub string) (float64, error) {
	balance, err := s.balanceRepo.GetBySub(sub)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return balance.Amount, nil
}

// publishAudit 审计事件尽力而为，失败只记日志，绝不影响账本操作
func (s *LedgerService) publishAudit(evt *audit.Event) {
	if s.auditQueue == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.auditQueue.Push(ctx, evt); err != nil {
		log.Printf("Failed to publish audit event %s: %v", evt.EventType, err)
	}
}
