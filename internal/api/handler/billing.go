package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/billing_go_server/internal/model/dto"
	"github.com/qs3c/billing_go_server/internal/pkg/response"
	"github.com/qs3c/billing_go_server/internal/service"
)

type BillingHandler struct {
	ledgerService *service.LedgerService
	planService   *service.PlanService
}

func NewBillingHandler(ledgerService *service.LedgerService, planService *service.PlanService) *BillingHandler {
	return &BillingHandler{
		ledgerService: ledgerService,
		planService:   planService,
	}
}

// Check 检查余额
// POST /internal/billing/check
func (h *BillingHandler) Check(c *gin.Context) {
	var req dto.CheckBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.ledgerService.Check(req.UserID, req.Units)
	if err != nil {
		if errors.Is(err, service.ErrInvalidUnits) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, resp)
}

// Debit 扣费
// POST /internal/billing/debit
func (h *BillingHandler) Debit(c *gin.Context) {
	var req dto.DebitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.ledgerService.Debit(req.UserID, req.Units, req.Ref, req.Reason)
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	response.Success(c, resp)
}

// Credit 充值
// POST /internal/billing/credit
func (h *BillingHandler) Credit(c *gin.Context) {
	var req dto.CreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.ledgerService.Credit(req.UserID, req.Units, req.Ref, req.Reason, req.SourceService)
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	response.Success(c, resp)
}

// GetBalance 查询余额及计划
// GET /internal/billing/balance?user_id=
func (h *BillingHandler) GetBalance(c *gin.Context) {
	sub := c.Query("user_id")
	if sub == "" {
		response.ParamError(c, "user_id 不能为空")
		return
	}

	resp, err := h.ledgerService.GetBalance(sub)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, resp)
}

// ApplyPlan 应用资费计划
// POST /internal/billing/plan/apply
func (h *BillingHandler) ApplyPlan(c *gin.Context) {
	var req dto.ApplyPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.planService.ApplyPlan(req.UserID, req.PlanID, req.Ref, req.AutoRenew)
	if err != nil {
		if errors.Is(err, service.ErrPlanNotFound) {
			response.NotFoundError(c, err.Error())
			return
		}
		writeLedgerError(c, err)
		return
	}

	response.Success(c, resp)
}

// writeLedgerError 账本错误到响应码的统一映射
func writeLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidUnits):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrInsufficientBalance):
		response.InsufficientFundsError(c, err.Error())
	case errors.Is(err, service.ErrRefConflict):
		response.ConflictError(c, err.Error())
	default:
		response.ServerError(c, "")
	}
}
