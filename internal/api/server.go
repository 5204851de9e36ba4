package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/api/auth"
	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/api/middleware"
	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/config"
	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/credential"
	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/model"
	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/pkg/metrics"
	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server 封装了 API 服务所需的依赖和路由处理。
//
// 它持有数据库连接、Redis 客户端、凭证服务以及 Gin 路由引擎。
type Server struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *gorm.DB
	rdb       *redis.Client
	router    *gin.Engine
	users     *store.UserStore
	interests InterestStore
	issuer    *credential.TokenIssuer
	auth      *auth.Handler
}

// InterestStore 是落地页线索的存储接口，生产实现为 store.InterestStore。
type InterestStore interface {
	AddWaitlistEntry(ctx context.Context, e *model.WaitlistEntry) error
	AddFunderLead(ctx context.Context, l *model.FunderLead) error
	ListWaitlist(ctx context.Context, limit int) ([]model.WaitlistEntry, error)
	ListFunderLeads(ctx context.Context, limit int) ([]model.FunderLead, error)
}

// NewServer 创建并初始化 API 服务器。
//
// 邮件投递器由调用方注入：进程内 worker 池或 Redis Streams 生产者
// 都满足 credential.Mailer，服务器不关心背后是哪种实现。
//
// 参数:
//
//	ctx: 上下文
//	cfg: 配置对象
//	logger: 日志记录器
//	mailer: 邮件投递器
//
// 返回值:
//
//	*Server: 初始化完成的服务器实例
//	error: 初始化失败返回错误
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, mailer credential.Mailer) (*Server, error) {
	db, err := store.Open(cfg.MySQL.DSN)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	users := store.NewUserStore(db)
	interests := store.NewInterestStore(db)

	hasher := credential.NewPasswordHasher(cfg.App.BcryptCost)
	issuer := credential.NewTokenIssuer(cfg.Security.JWTSecret, cfg.App.TokenTTL)
	resets := credential.NewResetTokenManager(cfg.App.ResetTokenTTL)
	svc := credential.NewService(users, hasher, issuer, resets, mailer, logger,
		cfg.App.StoreTimeout, cfg.App.PasswordMinLen)

	// 初始化 Prometheus 指标
	metrics.InitMetrics(cfg.App.MailWorkers)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		rdb:       rdb,
		router:    r,
		users:     users,
		interests: interests,
		issuer:    issuer,
		auth:      auth.NewHandler(svc, logger),
	}
	s.registerRoutes()
	return s, nil
}

// Run 启动 HTTP 服务器并开始监听请求。
func (s *Server) Run() error {
	s.logger.Info("api server listening", slog.String("addr", s.cfg.App.HTTPAddr))
	return s.router.Run(s.cfg.App.HTTPAddr)
}

// Router 返回 HTTP 路由处理器。
func (s *Server) Router() http.Handler {
	return s.router
}

// UserStore 返回用户存储，供入口进程挂接邮件失败回调等场景使用。
func (s *Server) UserStore() *store.UserStore {
	return s.users
}

// Close 关闭数据库与缓存连接。
func (s *Server) Close() error {
	var firstErr error
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			firstErr = err
		}
	}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else {
			if closeErr := sqlDB.Close(); closeErr != nil {
				if firstErr == nil {
					firstErr = closeErr
				}
			}
		}
	}
	return firstErr
}

// registerRoutes 注册所有的 API 路由。
func (s *Server) registerRoutes() {
	// Prometheus metrics 端点
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/healthz", s.handleHealthz)

	s.router.POST("/register", s.auth.Register)
	s.router.POST("/authenticate", s.auth.Authenticate)
	s.router.POST("/request-reset", s.auth.RequestReset)
	s.router.POST("/consume-reset", s.auth.ConsumeReset)

	s.router.POST("/waitlist", s.handleJoinWaitlist)
	s.router.POST("/funders", s.handleFunderLead)

	authed := s.router.Group("/")
	authed.Use(middleware.AuthMiddleware(s.issuer, s.logger))
	authed.Use(middleware.ActivityMiddleware(s.rdb, s.cfg.App.ActivityTTL))
	authed.GET("/self", s.auth.Self)
	authed.POST("/logout", s.auth.Logout)
	authed.GET("/waitlist", s.handleListWaitlist)
	authed.GET("/funders", s.handleListFunderLeads)
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil || s.rdb == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
