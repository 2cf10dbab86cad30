package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// LarkNotifier 群机器人通知, 不区分收件人
type LarkNotifier struct {
	webhookURL string
	enabled    bool
	logger     *zap.Logger
	client     *http.Client
}

// NewLarkNotifier 创建Lark通知器
func NewLarkNotifier(webhookURL string, enabled bool, logger *zap.Logger) *LarkNotifier {
	return &LarkNotifier{
		webhookURL: webhookURL,
		enabled:    enabled,
		logger:     logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Send 发送通知
func (n *LarkNotifier) Send(ctx context.Context, msg *NotificationMessage) error {
	if !n.enabled {
		n.logger.Debug("通知已禁用,跳过发送")
		return nil
	}

	if n.webhookURL == "" {
		n.logger.Warn("Lark Webhook URL未配置")
		return nil
	}

	jsonData, err := json.Marshal(n.buildLarkMessage(msg))
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Lark API返回错误状态码: %d", resp.StatusCode)
	}

	n.logger.Info("Lark通知发送成功", zap.String("message", describe(msg)))
	return nil
}

func colorOf(t NotificationType) string {
	switch t {
	case NotifyProjectClosed:
		return "green"
	case NotifyTaskAssigned, NotifyTaskReassigned:
		return "blue"
	case NotifyAccessTokenIssued:
		return "purple"
	default:
		return "grey"
	}
}

// buildLarkMessage 构建Lark卡片消息
func (n *LarkNotifier) buildLarkMessage(msg *NotificationMessage) map[string]interface{} {
	return map[string]interface{}{
		"msg_type": "interactive",
		"card": map[string]interface{}{
			"header": map[string]interface{}{
				"title": map[string]interface{}{
					"tag":     "plain_text",
					"content": msg.Title,
				},
				"template": colorOf(msg.Type),
			},
			"elements": []interface{}{
				map[string]interface{}{
					"tag": "div",
					"text": map[string]interface{}{
						"tag":     "lark_md",
						"content": msg.Content,
					},
				},
				map[string]interface{}{
					"tag": "div",
					"text": map[string]interface{}{
						"tag":     "plain_text",
						"content": fmt.Sprintf("时间: %s", msg.Timestamp.Format("2006-01-02 15:04:05")),
					},
				},
			},
		},
	}
}
