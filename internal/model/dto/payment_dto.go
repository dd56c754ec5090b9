package dto

// 支付状态
const (
	PaymentSucceeded = "succeeded"
)

// PaymentWebhookRequest 支付确认回调。
// 签名校验在网关侧完成，到达这里的事件视为已验证。
type PaymentWebhookRequest struct {
	PaymentID     string  `json:"payment_id" binding:"required"`
	UserID        string  `json:"user_id" binding:"required"`
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	Currency      string  `json:"currency"`
	PaymentStatus string  `json:"payment_status" binding:"required"`
	PlanCode      string  `json:"plan_code,omitempty"`
	AutoRenew     bool    `json:"auto_renew,omitempty"`
}

type PaymentWebhookResponse struct {
	Success bool    `json:"success"`
	Balance float64 `json:"balance"`
}
