package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskhub/internal/pkg/config"
)

const resendEndpoint = "https://api.resend.com/emails"

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// EmailNotifier 邮件通知, 开启 SMTP 时走 SMTP, 否则调用 Resend API
type EmailNotifier struct {
	cfg       *config.EmailConfig
	enabled   bool
	logger    *zap.Logger
	client    *http.Client
	resendURL string
	sendMail  func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailNotifier(cfg *config.EmailConfig, enabled bool, logger *zap.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:       cfg,
		enabled:   enabled,
		logger:    logger,
		client:    &http.Client{Timeout: 10 * time.Second},
		resendURL: resendEndpoint,
		sendMail:  smtp.SendMail,
	}
}

func (n *EmailNotifier) Send(ctx context.Context, msg *NotificationMessage) error {
	if !n.enabled {
		n.logger.Debug("通知已禁用,跳过发送")
		return nil
	}
	if len(msg.To) == 0 {
		return nil
	}

	body := renderHTML(msg)
	var err error
	if n.cfg.SMTPEnabled {
		err = n.sendViaSMTP(msg.To, msg.Title, body)
	} else {
		err = n.sendViaResend(ctx, msg.To, msg.Title, body)
	}
	if err != nil {
		return err
	}

	n.logger.Info("邮件通知发送成功", zap.String("message", describe(msg)), zap.Strings("to", msg.To))
	return nil
}

func renderHTML(msg *NotificationMessage) string {
	lines := strings.Split(msg.Content, "\n")
	for i, line := range lines {
		lines[i] = html.EscapeString(line)
	}
	return fmt.Sprintf("<h3>%s</h3><p>%s</p>", html.EscapeString(msg.Title), strings.Join(lines, "<br/>"))
}

func (n *EmailNotifier) sendViaResend(ctx context.Context, to []string, subject, body string) error {
	if n.cfg.ResendAPIKey == "" {
		n.logger.Warn("Resend API Key未配置")
		return nil
	}

	jsonBody, err := json.Marshal(resendRequest{
		From:    n.cfg.FromEmail,
		To:      to,
		Subject: subject,
		HTML:    body,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.resendURL, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.cfg.ResendAPIKey)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("resend API error: status %d", resp.StatusCode)
	}
	return nil
}

func (n *EmailNotifier) sendViaSMTP(to []string, subject, body string) error {
	addr := n.cfg.SMTPHost + ":" + n.cfg.SMTPPort

	msg := "From: " + n.cfg.FromEmail + "\r\n" +
		"To: " + strings.Join(to, ", ") + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n" +
		"\r\n" +
		body

	var auth smtp.Auth
	if n.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", n.cfg.SMTPUser, n.cfg.SMTPPass, n.cfg.SMTPHost)
	}

	if err := n.sendMail(addr, auth, n.cfg.FromEmail, to, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
