package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskhub/internal/pkg/config"
)

// NotificationType 通知类型
type NotificationType string

const (
	NotifyProjectClosed     NotificationType = "project_closed"      // 项目关闭
	NotifyTaskAssigned      NotificationType = "task_assigned"       // 新任务指派
	NotifyTaskReassigned    NotificationType = "task_reassigned"     // 任务转派
	NotifyAccessTokenIssued NotificationType = "access_token_issued" // 访客码签发
	NotifyMembershipDecided NotificationType = "membership_decided"  // 加入申请已处理
)

// NotificationMessage 通知消息, To 为收件邮箱
type NotificationMessage struct {
	Type      NotificationType       `json:"type"`
	To        []string               `json:"to"`
	Title     string                 `json:"title"`
	Content   string                 `json:"content"`
	Timestamp time.Time              `json:"timestamp"`
	Extra     map[string]interface{} `json:"extra,omitempty"` // 额外信息
}

// Notifier 通知器接口
type Notifier interface {
	// Send 发送通知
	Send(ctx context.Context, msg *NotificationMessage) error
}

// New 按配置组装通知器, 未知的 provider 记录告警后忽略
func New(cfg *config.NotificationConfig, logger *zap.Logger) Notifier {
	notifiers := make([]Notifier, 0, len(cfg.Providers))
	for _, provider := range cfg.Providers {
		switch strings.ToLower(provider) {
		case "log":
			notifiers = append(notifiers, NewLogNotifier(logger))
		case "lark":
			notifiers = append(notifiers, NewLarkNotifier(cfg.LarkWebhook, cfg.Enabled, logger))
		case "email":
			notifiers = append(notifiers, NewEmailNotifier(&cfg.Email, cfg.Enabled, logger))
		default:
			logger.Warn("未知的通知渠道", zap.String("provider", provider))
		}
	}
	if len(notifiers) == 0 {
		return NewLogNotifier(logger)
	}
	if len(notifiers) == 1 {
		return notifiers[0]
	}
	return NewMultiNotifier(logger, notifiers...)
}

// ============= 多通知器 =============

// MultiNotifier 多通知器(支持同时发送到多个渠道)
type MultiNotifier struct {
	notifiers []Notifier
	logger    *zap.Logger
}

// NewMultiNotifier 创建多通知器
func NewMultiNotifier(logger *zap.Logger, notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{
		notifiers: notifiers,
		logger:    logger,
	}
}

// Send 发送到所有通知器, 单个渠道失败不影响其他渠道
func (m *MultiNotifier) Send(ctx context.Context, msg *NotificationMessage) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, msg); err != nil {
			m.logger.Error("发送通知失败", zap.String("type", string(msg.Type)), zap.Error(err))
			lastErr = err
		}
	}
	return lastErr
}

// ============= 日志通知器(仅记录日志,不发送实际通知) =============

// LogNotifier 日志通知器
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier 创建日志通知器
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{
		logger: logger,
	}
}

// Send 记录通知到日志
func (n *LogNotifier) Send(_ context.Context, msg *NotificationMessage) error {
	n.logger.Info("📢 通知",
		zap.String("type", string(msg.Type)),
		zap.Strings("to", msg.To),
		zap.String("title", msg.Title),
		zap.String("content", msg.Content),
		zap.Any("extra", msg.Extra))
	return nil
}

func describe(msg *NotificationMessage) string {
	return fmt.Sprintf("%s(%s)", msg.Type, msg.Title)
}
