package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/credential"
)

// AuthMiddleware 校验 Bearer 访问令牌并将账户信息写入上下文。
//
// 对外只有两种拒绝话术：没带令牌是 "missing token"；带了但不可用一律
// "invalid or expired token"，不区分格式错、签名错还是已过期，具体
// 原因只进 debug 日志。
func AuthMiddleware(issuer *credential.TokenIssuer, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		claims, err := issuer.Verify(parts[1])
		if err != nil {
			logger.Debug("token rejected", slog.String("error", err.Error()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			logger.Debug("token subject rejected", slog.String("error", err.Error()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("userID", userID)
		c.Set("email", claims.Email)
		c.Set("username", claims.Username)
		c.Next()
	}
}
