package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/model"
	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/store"
)

// UserStore 是凭证服务消费的存储接口，生产实现为 store.UserStore。
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByResetToken(ctx context.Context, token string, now time.Time) (*model.User, error)
	SetResetToken(ctx context.Context, email, token string, expiresAt time.Time) error
	UpdatePassword(ctx context.Context, id uint, newHash string) error
	ClearResetToken(ctx context.Context, id uint) error
}

// Mailer 异步投递邮件。投递完全是后台行为：方法立即返回，
// 失败由投递方记录与计数，永远不影响调用方的响应。
type Mailer interface {
	DispatchWelcome(email, username string)
	DispatchResetLink(email, username, token string, userID uint)
}

// bcrypt 的输入上限是 72 字节，超长在校验阶段拒绝，不让哈希层报错。
const maxPasswordLen = 72

// Service 实现凭证生命周期：注册、登录、重置请求、重置消费、读取本人资料。
type Service struct {
	store          UserStore
	hasher         *PasswordHasher
	issuer         *TokenIssuer
	resets         *ResetTokenManager
	mailer         Mailer
	logger         *slog.Logger
	storeTimeout   time.Duration
	minPasswordLen int
}

// NewService 创建凭证服务。
//
// storeTimeout 约束每次存储调用；minPasswordLen 非法时回落到 8。
func NewService(userStore UserStore, hasher *PasswordHasher, issuer *TokenIssuer, resets *ResetTokenManager, mailer Mailer, logger *slog.Logger, storeTimeout time.Duration, minPasswordLen int) *Service {
	if storeTimeout <= 0 {
		storeTimeout = 3 * time.Second
	}
	if minPasswordLen <= 0 {
		minPasswordLen = 8
	}
	return &Service{
		store:          userStore,
		hasher:         hasher,
		issuer:         issuer,
		resets:         resets,
		mailer:         mailer,
		logger:         logger,
		storeTimeout:   storeTimeout,
		minPasswordLen: minPasswordLen,
	}
}

// Register 创建账户并签发访问令牌。
//
// username 为空时取邮箱本地部分。冲突裁决交给存储层唯一索引：
// 直接插入，撞索引返回 ErrAccountExists，不做先查后插。
func (s *Service) Register(ctx context.Context, email, username, password string) (*model.User, string, error) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)

	if email == "" {
		return nil, "", &ValidationError{Msg: "email is required"}
	}
	if len(password) < s.minPasswordLen {
		return nil, "", &ValidationError{Msg: fmt.Sprintf("password must be at least %d characters", s.minPasswordLen)}
	}
	if len(password) > maxPasswordLen {
		return nil, "", &ValidationError{Msg: fmt.Sprintf("password must be at most %d characters", maxPasswordLen)}
	}
	if username == "" {
		username = localPart(email)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error("hash password failed", slog.String("error", err.Error()))
		return nil, "", ErrInternal
	}

	user := &model.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.store.Create(storeCtx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, "", ErrAccountExists
		}
		s.logger.Error("create user failed", slog.String("email", email), slog.String("error", err.Error()))
		return nil, "", ErrInternal
	}

	token, err := s.issuer.Issue(user)
	if err != nil {
		s.logger.Error("sign token failed", slog.String("email", email), slog.String("error", err.Error()))
		return nil, "", ErrInternal
	}

	s.mailer.DispatchWelcome(user.Email, user.Username)
	s.logger.Info("user registered", slog.String("email", email), slog.String("username", username))
	return user, token, nil
}

// Authenticate 校验邮箱与密码并签发访问令牌。
//
// 未知邮箱与密码错误共用 ErrInvalidCredentials，不泄露账户是否存在。
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.User, string, error) {
	email = strings.TrimSpace(email)

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	user, err := s.store.FindByEmail(storeCtx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		s.logger.Error("find user failed", slog.String("error", err.Error()))
		return nil, "", ErrInternal
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(user)
	if err != nil {
		s.logger.Error("sign token failed", slog.String("email", email), slog.String("error", err.Error()))
		return nil, "", ErrInternal
	}

	s.logger.Info("user authenticated", slog.String("email", email))
	return user, token, nil
}

// RequestReset 为已有账户生成重置令牌并投递邮件。
//
// 邮箱未命中账户时同样静默成功，调用方（以及任何外部观察者）
// 看不出两种结果的差别；只有存储故障才返回错误。
func (s *Service) RequestReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	user, err := s.store.FindByEmail(storeCtx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Debug("reset requested for unknown email", slog.String("email", email))
			return nil
		}
		s.logger.Error("find user failed", slog.String("error", err.Error()))
		return ErrInternal
	}

	token, err := s.resets.Generate()
	if err != nil {
		s.logger.Error("generate reset token failed", slog.String("error", err.Error()))
		return ErrInternal
	}
	expiresAt := s.resets.ExpiryFor(time.Now())

	if err := s.store.SetResetToken(storeCtx, email, token, expiresAt); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// 查到用户后记录又没了，对外等同于未知邮箱
			return nil
		}
		s.logger.Error("persist reset token failed", slog.String("email", email), slog.String("error", err.Error()))
		return ErrInternal
	}

	s.mailer.DispatchResetLink(user.Email, user.Username, token, user.ID)
	s.logger.Info("reset token issued", slog.String("email", email))
	return nil
}

// ConsumeReset 用重置令牌设置新密码。
//
// 令牌未知、已过期或已被消费返回 ErrInvalidResetToken。密码与令牌
// 在存储层同一条 UPDATE 中交换，成功后同一令牌的重放必然失败。
func (s *Service) ConsumeReset(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidResetToken
	}
	if len(newPassword) < s.minPasswordLen {
		return &ValidationError{Msg: fmt.Sprintf("password must be at least %d characters", s.minPasswordLen)}
	}
	if len(newPassword) > maxPasswordLen {
		return &ValidationError{Msg: fmt.Sprintf("password must be at most %d characters", maxPasswordLen)}
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	user, err := s.store.FindByResetToken(storeCtx, token, time.Now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidResetToken
		}
		s.logger.Error("find user by reset token failed", slog.String("error", err.Error()))
		return ErrInternal
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		s.logger.Error("hash password failed", slog.String("error", err.Error()))
		return ErrInternal
	}

	if err := s.store.UpdatePassword(storeCtx, user.ID, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidResetToken
		}
		s.logger.Error("update password failed", slog.String("email", user.Email), slog.String("error", err.Error()))
		return ErrInternal
	}

	s.logger.Info("password reset completed", slog.String("email", user.Email))
	return nil
}

// ReadSelf 返回令牌持有者本人的账户记录。
func (s *Service) ReadSelf(ctx context.Context, id uint) (*model.User, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	user, err := s.store.FindByID(storeCtx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("find user by id failed", slog.String("error", err.Error()))
		return nil, ErrInternal
	}
	return user, nil
}

// localPart 取邮箱 @ 前的本地部分。
func localPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
