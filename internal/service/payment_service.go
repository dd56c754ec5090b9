package service

import (
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/billing_go_server/internal/model"
	"github.com/qs3c/billing_go_server/internal/model/dto"
	"github.com/qs3c/billing_go_server/internal/pkg/audit"
	"github.com/qs3c/billing_go_server/internal/repository"
)

// PaymentService 支付确认对账：已验证的支付事件换算为充值（可附带计划激活）。
// ref 取支付单号，重复投递由 IdempotencyGuard 吸收，不会二次入账
type PaymentService struct {
	planRepo    *repository.PlanRepository
	ledger      *LedgerService
	planService *PlanService
	guard       *IdempotencyGuard
}

func NewPaymentService(
	planRepo *repository.PlanRepository,
	ledger *LedgerService,
	planService *PlanService,
	guard *IdempotencyGuard,
) *PaymentService {
	return &PaymentService{
		planRepo:    planRepo,
		ledger:      ledger,
		planService: planService,
		guard:       guard,
	}
}

// HandleConfirmation 处理支付确认。仅 succeeded 状态入账，其余确认后忽略。
// 带 plan_code 时充值与计划激活在同一事务提交，崩溃不会出现只充值没计划
func (s *PaymentService) HandleConfirmation(req *dto.PaymentWebhookRequest) (*dto.PaymentWebhookResponse, error) {
	if req.PaymentStatus != dto.PaymentSucceeded {
		log.Printf("Payment %s for user %s ignored (status=%s)", req.PaymentID, req.UserID, req.PaymentStatus)
		amount, err := s.ledger.currentAmount(req.UserID)
		if err != nil {
			return nil, err
		}
		return &dto.PaymentWebhookResponse{Success: true, Balance: amount}, nil
	}

	res, err := s.guard.Execute(req.UserID, req.PaymentID, model.DirectionCredit, req.Amount, "payment", "external",
		func(tx *gorm.DB) (float64, error) {
			newBalance, _, err := s.ledger.creditTx(tx, req.UserID, req.Amount)
			if err != nil {
				return 0, err
			}

			if req.PlanCode != "" {
				tariff, err := s.planRepo.GetTariffPlanTx(tx, req.PlanCode)
				if err != nil {
					return 0, err
				}
				if tariff == nil {
					return 0, ErrPlanNotFound
				}
				if _, err := s.planService.activateTx(tx, req.UserID, tariff, req.AutoRenew); err != nil {
					return 0, err
				}
			}

			return newBalance, nil
		})
	if err != nil {
		return nil, err
	}

	if res.Replayed {
		log.Printf("Payment %s for user %s replayed, no new credit", req.PaymentID, req.UserID)
	} else {
		s.ledger.publishAudit(&audit.Event{
			EventType:    audit.EventCreditProcessed,
			Sub:          req.UserID,
			Amount:       req.Amount,
			BalanceAfter: res.Balance,
			TxID:         res.TxID,
			Ref:          req.PaymentID,
			Reason:       "payment",
			PlanCode:     req.PlanCode,
			CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		})
	}

	return &dto.PaymentWebhookResponse{Success: true, Balance: res.Balance}, nil
}
