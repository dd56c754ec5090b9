package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qs3c/billing_go_server/config"
	"github.com/qs3c/billing_go_server/internal/model"
	"github.com/qs3c/billing_go_server/internal/model/dto"
	"github.com/qs3c/billing_go_server/internal/pkg/audit"
	"github.com/qs3c/billing_go_server/internal/repository"
)

// PlanService 计划应用：替换旧计划、激活新计划并按目录额度充值，单事务提交
type PlanService struct {
	planRepo *repository.PlanRepository
	ledger   *LedgerService
	guard    *IdempotencyGuard
	cfg      *config.Config
}

func NewPlanService(
	planRepo *repository.PlanRepository,
	ledger *LedgerService,
	guard *IdempotencyGuard,
	cfg *config.Config,
) *PlanService {
	return &PlanService{
		planRepo: planRepo,
		ledger:   ledger,
		guard:    guard,
		cfg:      cfg,
	}
}

// ApplyPlan 为用户应用资费计划并充入月度额度。
// ref 缺省时自动生成（此时重试不幂等，由调用方决定是否提供）
func (s *PlanService) ApplyPlan(sub, planCode, ref string, autoRenew bool) (*dto.ApplyPlanResponse, error) {
	tariff, err := s.planRepo.GetTariffPlan(planCode)
	if err != nil {
		return nil, err
	}
	if tariff == nil {
		return nil, ErrPlanNotFound
	}

	if ref == "" {
		ref = fmt.Sprintf("plan-%s", uuid.NewString())
	}

	var planID int64
	reason := fmt.Sprintf("plan_%s", planCode)
	res, err := s.guard.Execute(sub, ref, model.DirectionCredit, tariff.MonthlyUnits, reason, "plan_activation",
		func(tx *gorm.DB) (float64, error) {
			// 目录在事务内重读，与激活保持一致视图
			current, err := s.planRepo.GetTariffPlanTx(tx, planCode)
			if err != nil {
				return 0, err
			}
			if current == nil {
				return 0, ErrPlanNotFound
			}

			plan, err := s.activateTx(tx, sub, current, autoRenew)
			if err != nil {
				return 0, err
			}
			planID = plan.ID

			newBalance, _, err := s.ledger.creditTx(tx, sub, current.MonthlyUnits)
			return newBalance, err
		})
	if err != nil {
		return nil, err
	}

	if res.Replayed {
		// 重放请求：计划已在首次调用时激活，补查其 ID
		active, err := s.planRepo.GetActiveBySub(sub, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		if active != nil {
			planID = active.ID
		}
	} else {
		s.ledger.publishAudit(&audit.Event{
			EventType:    audit.EventPlanApplied,
			Sub:          sub,
			PlanCode:     planCode,
			BalanceAfter: res.Balance,
			TxID:         res.TxID,
			Ref:          ref,
		})
	}

	return &dto.ApplyPlanResponse{PlanID: planID, NewBalance: res.Balance}, nil
}

// GetUserPlanInfo 查询用户当前计划，无计划返回 nil
func (s *PlanService) GetUserPlanInfo(sub string) (*dto.PlanInfo, error) {
	plan, err := s.planRepo.GetActiveBySub(sub, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, nil
	}
	return &dto.PlanInfo{
		PlanCode:  plan.PlanCode,
		ExpiresAt: plan.ExpiresAt.Format(time.RFC3339),
		Status:    plan.Status,
	}, nil
}

// activateTx 事务内替换激活：旧 active 计划置为 revoked，再写入新计划
func (s *PlanService) activateTx(tx *gorm.DB, sub string, tariff *model.TariffPlan, autoRenew bool) (*model.UserPlan, error) {
	if err := s.planRepo.Deactivate(tx, sub, model.PlanStatusRevoked); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	plan := &model.UserPlan{
		Sub:           sub,
		PlanCode:      tariff.PlanCode,
		ChatLimit:     tariff.ChatLimit,
		TemplateLimit: tariff.TemplateLimit,
		Status:        model.PlanStatusActive,
		StartedAt:     now,
		ExpiresAt:     now.AddDate(0, 0, s.cfg.Billing.PlanDays),
		AutoRenew:     autoRenew,
	}
	if err := s.planRepo.Create(tx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}
