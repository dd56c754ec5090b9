package dto

// AuthUser 网关透传的用户身份
type AuthUser struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

// GatewayAuthContext X-User-Data 头的内容
type GatewayAuthContext struct {
	User       AuthUser               `json:"user"`
	JWTPayload map[string]interface{} `json:"jwt_payload,omitempty"`
	TokenValid bool                   `json:"token_valid"`
}

type InitUserResponse struct {
	Success        bool    `json:"success"`
	UserID         string  `json:"user_id"`
	BalanceCreated bool    `json:"balance_created"`
	InitialBalance float64 `json:"initial_balance"`
	Message        string  `json:"message"`
}

type UserStatusResponse struct {
	Sub            string  `json:"sub"`
	BalanceExists  bool    `json:"balance_exists"`
	BalanceAmount  float64 `json:"balance_amount"`
	HasActivePlan  bool    `json:"has_active_plan"`
	ActivePlanCode string  `json:"active_plan_code,omitempty"`
	IsInitialized  bool    `json:"is_initialized"`
}
