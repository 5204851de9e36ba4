package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/config"
)

// EmailNotifier 通过 SMTP 发送事务邮件。
//
// SMTP 未配置时所有方法跳过发送并返回 nil，本地开发不需要真实邮箱。
type EmailNotifier struct {
	cfg      *config.EmailConfig
	baseURL  string
	resetTTL time.Duration
	logger   *slog.Logger
}

// NewEmailNotifier 创建邮件通知器。
//
// baseURL 是站点对外地址，重置链接以它为前缀；resetTTL 写进邮件正文。
func NewEmailNotifier(cfg *config.EmailConfig, baseURL string, resetTTL time.Duration, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:      cfg,
		baseURL:  strings.TrimRight(baseURL, "/"),
		resetTTL: resetTTL,
		logger:   logger,
	}
}

// SendWelcome 发送欢迎邮件。
func (n *EmailNotifier) SendWelcome(ctx context.Context, email string, username string) error {
	if n.skip(email) {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "[Joyxora] Welcome aboard 🎉")
	m.SetBody("text/html", n.buildWelcomeBody(username))

	if err := n.dialAndSend(m); err != nil {
		return fmt.Errorf("send welcome email: %w", err)
	}

	n.logger.Info("welcome email sent", slog.String("to", email))
	return nil
}

// SendResetLink 发送密码重置邮件。
func (n *EmailNotifier) SendResetLink(ctx context.Context, email string, username string, token string) error {
	if n.skip(email) {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "[Joyxora] Reset your password")
	m.SetBody("text/html", n.buildResetBody(username, token))

	if err := n.dialAndSend(m); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}

	n.logger.Info("reset email sent", slog.String("to", email))
	return nil
}

func (n *EmailNotifier) skip(toEmail string) bool {
	if n.cfg.SMTPHost == "" || n.cfg.SMTPUser == "" || n.cfg.FromEmail == "" {
		n.logger.Warn("email config missing, skip notification")
		return true
	}
	if strings.TrimSpace(toEmail) == "" {
		n.logger.Warn("email recipient empty, skip notification")
		return true
	}
	return false
}

func (n *EmailNotifier) dialAndSend(m *gomail.Message) error {
	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	return d.DialAndSend(m)
}

func (n *EmailNotifier) buildWelcomeBody(username string) string {
	template := `
<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8" />
<style>
  body { font-family: Arial, sans-serif; background: #f6f7fb; color: #1f2937; }
  .card { max-width: 600px; margin: 24px auto; background: #ffffff; border-radius: 12px; overflow: hidden; border: 1px solid #e5e7eb; }
  .header { background: #0f172a; color: #ffffff; padding: 16px 20px; font-size: 16px; font-weight: bold; }
  .content { padding: 20px; }
  .cta { display: inline-block; padding: 12px 20px; background: #22c55e; color: #fff; text-decoration: none; border-radius: 8px; font-weight: bold; }
  .footer { margin-top: 20px; font-size: 12px; color: #6b7280; }
</style>
</head>
<body>
  <div class="card">
    <div class="header">Welcome to Joyxora 🎉</div>
    <div class="content">
      <p>Hi %s,</p>
      <p>Your account is ready. We are building Joyxora in the open and you now have a front-row seat.</p>
      <div style="text-align:center; margin: 16px 0;">
        <a class="cta" href="%s" target="_blank">Visit Joyxora</a>
      </div>
      <div class="footer">You received this email because this address was used to create a Joyxora account.</div>
    </div>
  </div>
</body>
</html>`

	return fmt.Sprintf(template, username, n.baseURL)
}

func (n *EmailNotifier) buildResetBody(username string, token string) string {
	link := fmt.Sprintf("%s/reset-password?token=%s", n.baseURL, token)
	minutes := int(n.resetTTL.Minutes())

	template := `
<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8" />
<style>
  body { font-family: Arial, sans-serif; background: #f6f7fb; color: #1f2937; }
  .card { max-width: 600px; margin: 24px auto; background: #ffffff; border-radius: 12px; overflow: hidden; border: 1px solid #e5e7eb; }
  .header { background: #0f172a; color: #ffffff; padding: 16px 20px; font-size: 16px; font-weight: bold; }
  .content { padding: 20px; }
  .cta { display: inline-block; padding: 12px 20px; background: #2563eb; color: #fff; text-decoration: none; border-radius: 8px; font-weight: bold; }
  .footer { margin-top: 20px; font-size: 12px; color: #6b7280; }
</style>
</head>
<body>
  <div class="card">
    <div class="header">Reset your Joyxora password</div>
    <div class="content">
      <p>Hi %s,</p>
      <p>Someone asked to reset the password for this account. If that was you, use the button below.</p>
      <div style="text-align:center; margin: 16px 0;">
        <a class="cta" href="%s" target="_blank">Choose a new password</a>
      </div>
      <p>The link expires in %d minutes and can be used once.</p>
      <div class="footer">If you did not request this, you can ignore this email. Your password stays unchanged.</div>
    </div>
  </div>
</body>
</html>`

	return fmt.Sprintf(template, username, link, minutes)
}
