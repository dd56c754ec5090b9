package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 错误码定义
const (
	CodeSuccess           = 0
	CodeParamError        = 1000
	CodeAuthFailed        = 1001
	CodeInsufficientFunds = 1002
	CodeResourceNotFound  = 1003
	CodeRefConflict       = 1004
	CodeServerError       = 5000
)

// 错误码对应的默认消息
var codeMessages = map[int]string{
	CodeSuccess:           "success",
	CodeParamError:        "参数错误",
	CodeAuthFailed:        "认证失败",
	CodeInsufficientFunds: "余额不足",
	CodeResourceNotFound:  "资源不存在",
	CodeRefConflict:       "幂等引用冲突",
	CodeServerError:       "服务器内部错误",
}

// 内部接口的调用方是服务，错误码需映射到真实 HTTP 状态
var codeStatus = map[int]int{
	CodeSuccess:           http.StatusOK,
	CodeParamError:        http.StatusUnprocessableEntity,
	CodeAuthFailed:        http.StatusUnauthorized,
	CodeInsufficientFunds: http.StatusForbidden,
	CodeResourceNotFound:  http.StatusNotFound,
	CodeRefConflict:       http.StatusConflict,
	CodeServerError:       http.StatusInternalServerError,
}

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 带自定义消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: message,
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	if message == "" {
		message = codeMessages[code]
	}
	status, ok := codeStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	c.JSON(status, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// ParamError 参数错误
func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

// AuthError 认证失败
func AuthError(c *gin.Context, message string) {
	Error(c, CodeAuthFailed, message)
}

// InsufficientFundsError 余额不足
func InsufficientFundsError(c *gin.Context, message string) {
	Error(c, CodeInsufficientFunds, message)
}

// NotFoundError 资源不存在
func NotFoundError(c *gin.Context, message string) {
	Error(c, CodeResourceNotFound, message)
}

// ConflictError 幂等引用冲突
func ConflictError(c *gin.Context, message string) {
	Error(c, CodeRefConflict, message)
}

// ServerError 服务器错误
func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}
