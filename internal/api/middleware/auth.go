package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/billing_go_server/internal/model/dto"
	"github.com/qs3c/billing_go_server/internal/pkg/jwt"
	"github.com/qs3c/billing_go_server/internal/pkg/response"
)

const (
	UserSubKey = "userSub"

	HeaderInternalKey = "X-Internal-Key"
	HeaderUserData    = "X-User-Data"
)

// InternalAuth 内部共享密钥校验，所有 /internal/billing 路由必经
func InternalAuth(internalKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderInternalKey)
		if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(internalKey)) != 1 {
			response.AuthError(c, "无效的内部密钥")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GatewayAuth 网关身份中间件。优先读取 X-User-Data（网关已完成 token 校验），
// 缺省时回退解析 Bearer 令牌的 sub
func GatewayAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userData := c.GetHeader(HeaderUserData); userData != "" {
			var authCtx dto.GatewayAuthContext
			if err := json.Unmarshal([]byte(userData), &authCtx); err != nil {
				response.AuthError(c, "X-User-Data 格式错误")
				c.Abort()
				return
			}
			if !authCtx.TokenValid || authCtx.User.UserID == "" {
				response.AuthError(c, "认证信息无效")
				c.Abort()
				return
			}
			c.Set(UserSubKey, authCtx.User.UserID)
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AuthError(c, "请提供认证信息")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			response.AuthError(c, "认证格式错误")
			c.Abort()
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err != nil {
			response.AuthError(c, "认证失败或已过期")
			c.Abort()
			return
		}

		c.Set(UserSubKey, claims.Sub)
		c.Next()
	}
}

// GetUserSub 从上下文获取用户标识
func GetUserSub(c *gin.Context) (string, bool) {
	sub, exists := c.Get(UserSubKey)
	if !exists {
		return "", false
	}
	s, ok := sub.(string)
	return s, ok && s != ""
}
