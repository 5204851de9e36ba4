package notify

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/pkg/metrics"
)

// 邮件种类。
const (
	KindWelcome = "welcome"
	KindReset   = "reset"
)

// Mail 表示一封待投递的邮件任务。
type Mail struct {
	Kind     string
	To       string
	Username string
	Token    string // 仅 KindReset
	UserID   uint   // 仅 KindReset
}

// FailureHandler 在一封邮件发送失败后回调。
type FailureHandler func(mail Mail, err error)

// Dispatcher 提供进程内的邮件投递队列：有界缓冲加固定 worker 池。
//
// Dispatch* 永不阻塞，缓冲满时丢弃任务并计数。缓冲不落盘，进程退出
// 即丢失；需要跨进程投递或重启存活时用 mailq 的 Redis Stream 后端。
type Dispatcher struct {
	notifier    Notifier
	logger      *slog.Logger
	workers     int
	sendTimeout time.Duration
	mails       chan Mail
	onFailure   FailureHandler

	// 优雅关闭
	wg     sync.WaitGroup
	closed atomic.Bool

	// 指标统计
	stats dispatcherStats
}

// dispatcherStats 内部统计（atomic 类型）。
type dispatcherStats struct {
	TotalEnqueued atomic.Int64 // 总入队数
	TotalSent     atomic.Int64 // 发送成功数
	TotalFailed   atomic.Int64 // 发送失败数
	TotalDropped  atomic.Int64 // 丢弃数（缓冲满或已关闭）
	TotalPanics   atomic.Int64 // Panic 次数
}

// DispatcherStats 统计信息快照（普通值类型，可安全拷贝）。
type DispatcherStats struct {
	TotalEnqueued int64
	TotalSent     int64
	TotalFailed   int64
	TotalDropped  int64
	TotalPanics   int64
}

// NewDispatcher 创建邮件投递队列。
//
// 参数:
//   - notifier: 实际执行发送的通知器
//   - logger: 日志记录器
//   - workers: worker 数量（至少为 1）
//   - capacity: 缓冲容量（至少为 1）
//   - sendTimeout: 单封邮件的发送超时，非法时回落到 15s
func NewDispatcher(notifier Notifier, logger *slog.Logger, workers int, capacity int, sendTimeout time.Duration) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if capacity <= 0 {
		capacity = 1
	}
	if sendTimeout <= 0 {
		sendTimeout = 15 * time.Second
	}
	return &Dispatcher{
		notifier:    notifier,
		logger:      logger,
		workers:     workers,
		sendTimeout: sendTimeout,
		mails:       make(chan Mail, capacity),
	}
}

// SetFailureHandler 设置发送失败回调，必须在 Start 之前调用。
func (d *Dispatcher) SetFailureHandler(h FailureHandler) {
	d.onFailure = h
}

// DispatchWelcome 将欢迎邮件放入队列，立即返回。
func (d *Dispatcher) DispatchWelcome(email string, username string) {
	d.enqueue(Mail{Kind: KindWelcome, To: email, Username: username})
}

// DispatchResetLink 将密码重置邮件放入队列，立即返回。
func (d *Dispatcher) DispatchResetLink(email string, username string, token string, userID uint) {
	d.enqueue(Mail{Kind: KindReset, To: email, Username: username, Token: token, UserID: userID})
}

// enqueue 非阻塞入队，缓冲满或队列已关闭时丢弃。
func (d *Dispatcher) enqueue(mail Mail) bool {
	if d.closed.Load() {
		d.stats.TotalDropped.Add(1)
		metrics.MailTotal.WithLabelValues("dropped", mail.Kind).Inc()
		d.logger.Warn("mail dispatcher closed, drop mail", slog.String("kind", mail.Kind))
		return false
	}

	select {
	case d.mails <- mail:
		d.stats.TotalEnqueued.Add(1)
		metrics.MailTotal.WithLabelValues("enqueued", mail.Kind).Inc()
		metrics.MailQueueDepth.WithLabelValues("pool").Set(float64(len(d.mails)))
		return true
	default:
		d.stats.TotalDropped.Add(1)
		metrics.MailTotal.WithLabelValues("dropped", mail.Kind).Inc()
		d.logger.Warn("mail buffer full, drop mail",
			slog.String("kind", mail.Kind),
			slog.Int("capacity", cap(d.mails)),
			slog.Int("pending", len(d.mails)))
		return false
	}
}

// Start 启动 worker 池，直到 ctx 被取消或调用 Shutdown。
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// worker 单个 worker 的执行逻辑。
func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			d.logger.Debug("mail worker stopped", slog.Int("worker_id", id))
			return

		case mail, ok := <-d.mails:
			if !ok {
				d.logger.Debug("mail worker exit on closed channel", slog.Int("worker_id", id))
				return
			}
			d.deliver(ctx, mail, id)
		}
	}
}

// deliver 发送单封邮件，带 panic 恢复与失败回调。
func (d *Dispatcher) deliver(ctx context.Context, mail Mail, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			d.stats.TotalPanics.Add(1)
			metrics.MailTotal.WithLabelValues("failed", mail.Kind).Inc()
			d.logger.Error("mail send panic recovered",
				slog.Int("worker_id", workerID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	start := time.Now()
	var err error
	switch mail.Kind {
	case KindWelcome:
		err = d.notifier.SendWelcome(sendCtx, mail.To, mail.Username)
	case KindReset:
		err = d.notifier.SendResetLink(sendCtx, mail.To, mail.Username, mail.Token)
	default:
		err = fmt.Errorf("unknown mail kind %q", mail.Kind)
	}
	metrics.MailSendDuration.Observe(time.Since(start).Seconds())
	metrics.MailQueueDepth.WithLabelValues("pool").Set(float64(len(d.mails)))

	if err != nil {
		d.stats.TotalFailed.Add(1)
		metrics.MailTotal.WithLabelValues("failed", mail.Kind).Inc()
		d.logger.Warn("mail send failed",
			slog.Int("worker_id", workerID),
			slog.String("kind", mail.Kind),
			slog.String("to", mail.To),
			slog.String("error", err.Error()))

		if d.onFailure != nil {
			d.onFailure(mail, err)
		}
		return
	}

	d.stats.TotalSent.Add(1)
	metrics.MailTotal.WithLabelValues("sent", mail.Kind).Inc()
}

// Shutdown 优雅关闭：拒绝新邮件，关闭通道，等待 worker 发完剩余邮件。
func (d *Dispatcher) Shutdown() {
	if d.closed.CompareAndSwap(false, true) {
		close(d.mails)
		d.logger.Info("mail dispatcher shutdown initiated, waiting for workers to finish")
		d.wg.Wait()
		d.logger.Info("mail dispatcher shutdown completed")
	}
}

// ShutdownWithTimeout 带超时的优雅关闭。
func (d *Dispatcher) ShutdownWithTimeout(timeout time.Duration) error {
	if !d.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatcher already closed")
	}

	close(d.mails)
	d.logger.Info("mail dispatcher shutdown initiated with timeout",
		slog.String("timeout", timeout.String()))

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("mail dispatcher shutdown completed")
		return nil
	case <-time.After(timeout):
		d.logger.Error("mail dispatcher shutdown timeout")
		return fmt.Errorf("shutdown timeout after %s", timeout)
	}
}

// Stats 返回统计信息快照。
func (d *Dispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		TotalEnqueued: d.stats.TotalEnqueued.Load(),
		TotalSent:     d.stats.TotalSent.Load(),
		TotalFailed:   d.stats.TotalFailed.Load(),
		TotalDropped:  d.stats.TotalDropped.Load(),
		TotalPanics:   d.stats.TotalPanics.Load(),
	}
}

// Len 返回当前排队中的邮件数。
func (d *Dispatcher) Len() int {
	return len(d.mails)
}
