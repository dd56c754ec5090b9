package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/billing_go_server/internal/api/middleware"
	"github.com/qs3c/billing_go_server/internal/model/dto"
	"github.com/qs3c/billing_go_server/internal/pkg/response"
	"github.com/qs3c/billing_go_server/internal/service"
)

type UserHandler struct {
	ledgerService *service.LedgerService
}

func NewUserHandler(ledgerService *service.LedgerService) *UserHandler {
	return &UserHandler{
		ledgerService: ledgerService,
	}
}

// Init 初始化用户余额及默认计划，重复调用安全
// POST /internal/billing/user/init
func (h *UserHandler) Init(c *gin.Context) {
	sub, ok := middleware.GetUserSub(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	created, initialBalance, err := h.ledgerService.InitUser(sub)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	message := "用户已初始化"
	if !created {
		message = "用户已存在，无需初始化"
	}

	response.Success(c, dto.InitUserResponse{
		Success:        true,
		UserID:         sub,
		BalanceCreated: created,
		InitialBalance: initialBalance,
		Message:        message,
	})
}

// Status 查询用户初始化状态
// GET /internal/billing/user/status
func (h *UserHandler) Status(c *gin.Context) {
	sub, ok := middleware.GetUserSub(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	status, err := h.ledgerService.GetStatus(sub)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, status)
}
