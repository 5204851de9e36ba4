// Package metrics 定义 Prometheus 指标。所有指标在包初始化时注册到默认
// Registry，业务代码直接使用包级变量计数。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SignupTotal 注册结果计数，result 取 success / conflict / invalid / error。
	SignupTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "joyxora_signup_total",
		Help: "Registration attempts by result",
	}, []string{"result"})

	// LoginTotal 登录结果计数，result 取 success / rejected / error。
	LoginTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "joyxora_login_total",
		Help: "Authentication attempts by result",
	}, []string{"result"})

	// ResetRequestedTotal 受理的重置请求数。未知邮箱同样计入，
	// 指标侧也不暴露账户是否存在。
	ResetRequestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "joyxora_password_reset_requested_total",
		Help: "Accepted password reset requests",
	})

	// ResetCompletedTotal 用有效令牌完成的密码重置数。
	ResetCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "joyxora_password_reset_completed_total",
		Help: "Password resets completed with a valid token",
	})

	// WaitlistTotal 等候名单提交计数，result 取 created / duplicate / invalid / error。
	WaitlistTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "joyxora_waitlist_total",
		Help: "Waitlist submissions by result",
	}, []string{"result"})

	// FunderLeadTotal 投资人留资计数，result 同 WaitlistTotal。
	FunderLeadTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "joyxora_funder_lead_total",
		Help: "Funder lead submissions by result",
	}, []string{"result"})

	// MailTotal 邮件流转计数。stage 取 enqueued / sent / failed / dropped /
	// retry / dlq，kind 取 welcome / reset。
	MailTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "joyxora_mail_total",
		Help: "Mail dispatch events by stage and kind",
	}, []string{"stage", "kind"})

	// MailQueueDepth 当前排队中的邮件任务数，queue 取 pool / stream。
	MailQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "joyxora_mail_queue_depth",
		Help: "Mail jobs currently buffered, by queue backend",
	}, []string{"queue"})

	// MailAutoClaimTotal 从超时消费者手里接管的 Stream 消息数。
	MailAutoClaimTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "joyxora_mail_autoclaim_total",
		Help: "Stream messages reclaimed from idle consumers",
	})

	// MailSendDuration 单封邮件的发送耗时。
	MailSendDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "joyxora_mail_send_duration_seconds",
		Help:    "SMTP send latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// MailWorkers 配置的邮件 worker 数。
	MailWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "joyxora_mail_workers",
		Help: "Configured mail worker count",
	})
)

// InitMetrics 设置启动期确定的静态指标，可重复调用。
func InitMetrics(mailWorkers int) {
	MailWorkers.Set(float64(mailWorkers))
}
