package dto

// CheckBalanceRequest 余额检查请求
type CheckBalanceRequest struct {
	UserID string  `json:"user_id" binding:"required"`
	Units  float64 `json:"units" binding:"required,gt=0"`
}

type CheckBalanceResponse struct {
	Allowed bool    `json:"allowed"`
	Balance float64 `json:"balance"`
}

// DebitRequest 扣费请求，ref 为调用方提供的幂等引用
type DebitRequest struct {
	UserID string  `json:"user_id" binding:"required"`
	Units  float64 `json:"units" binding:"required,gt=0"`
	Ref    string  `json:"ref" binding:"required"`
	Reason string  `json:"reason" binding:"required"`
}

type DebitResponse struct {
	Balance float64 `json:"balance"`
	TxID    string  `json:"tx_id"`
}

// CreditRequest 充值请求
type CreditRequest struct {
	UserID        string  `json:"user_id" binding:"required"`
	Units         float64 `json:"units" binding:"required,gt=0"`
	Ref           string  `json:"ref" binding:"required"`
	Reason        string  `json:"reason" binding:"required"`
	SourceService string  `json:"source,omitempty"`
}

type CreditResponse struct {
	Balance float64 `json:"balance"`
	TxID    string  `json:"tx_id"`
}

// PlanInfo 余额查询里附带的计划信息
type PlanInfo struct {
	PlanCode  string `json:"plan_code"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Status    string `json:"status"`
}

type BalanceResponse struct {
	Balance float64   `json:"balance"`
	Plan    *PlanInfo `json:"plan"`
}

// ApplyPlanRequest 计划应用请求（内部调用或支付确认触发）
type ApplyPlanRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	PlanID    string `json:"plan_id" binding:"required"`
	Ref       string `json:"ref,omitempty"`
	AutoRenew bool   `json:"auto_renew,omitempty"`
}

type ApplyPlanResponse struct {
	PlanID     int64   `json:"plan_id"`
	NewBalance float64 `json:"new_balance"`
}
