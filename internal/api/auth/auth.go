package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/credential"
	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/model"
	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/pkg/metrics"
)

// Handler 提供凭证生命周期的 HTTP 接口。
type Handler struct {
	svc    *credential.Service
	logger *slog.Logger
}

// NewHandler 创建 Auth Handler。
func NewHandler(svc *credential.Service, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username"`
	Password string `json:"password" binding:"required"`
}

type authenticateRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type requestResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type consumeResetRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

type userResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
}

// Register 创建新账户并返回访问令牌。
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.SignupTotal.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := h.svc.Register(c.Request.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		metrics.SignupTotal.WithLabelValues(signupResult(err)).Inc()
		h.respondError(c, err)
		return
	}

	metrics.SignupTotal.WithLabelValues("success").Inc()
	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  newUserResponse(user),
	})
}

// Authenticate 校验邮箱与密码并返回访问令牌。
func (h *Handler) Authenticate(c *gin.Context) {
	var req authenticateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.LoginTotal.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := h.svc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, credential.ErrInvalidCredentials) {
			metrics.LoginTotal.WithLabelValues("rejected").Inc()
		} else {
			metrics.LoginTotal.WithLabelValues("error").Inc()
		}
		h.respondError(c, err)
		return
	}

	metrics.LoginTotal.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  newUserResponse(user),
	})
}

// RequestReset 受理密码重置请求。
//
// 无论邮箱是否命中账户，响应完全一致，防止用该接口探测注册情况。
func (h *Handler) RequestReset(c *gin.Context) {
	var req requestResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.svc.RequestReset(c.Request.Context(), req.Email); err != nil {
		h.respondError(c, err)
		return
	}

	metrics.ResetRequestedTotal.Inc()
	c.JSON(http.StatusOK, gin.H{"message": "if the account exists, a reset link has been sent"})
}

// ConsumeReset 用重置令牌设置新密码。
func (h *Handler) ConsumeReset(c *gin.Context) {
	var req consumeResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.svc.ConsumeReset(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		h.respondError(c, err)
		return
	}

	metrics.ResetCompletedTotal.Inc()
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

// Self 返回令牌持有者本人的账户信息。
func (h *Handler) Self(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	user, err := h.svc.ReadSelf(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

// Logout 处理注销请求（令牌无状态，客户端丢弃即可）。
func (h *Handler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// respondError 将服务层错误映射为 HTTP 状态码。
//
// 对外的话术只来自服务层的固定错误，底层原因在服务层已经记过日志。
func (h *Handler) respondError(c *gin.Context, err error) {
	var ve *credential.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Msg})
	case errors.Is(err, credential.ErrAccountExists):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, credential.ErrInvalidResetToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, credential.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, credential.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func signupResult(err error) string {
	var ve *credential.ValidationError
	switch {
	case errors.Is(err, credential.ErrAccountExists):
		return "conflict"
	case errors.As(err, &ve):
		return "invalid"
	default:
		return "error"
	}
}

// currentUserID 读取 AuthMiddleware 写入的账户 ID。
func currentUserID(c *gin.Context) (uint, bool) {
	val, ok := c.Get("userID")
	if !ok {
		return 0, false
	}
	id, ok := val.(uint)
	return id, ok
}
