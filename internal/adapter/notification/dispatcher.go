package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Dispatcher 异步投递通知, 发送失败只记录日志, 不影响触发方
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	logger   *zap.Logger
	wg       sync.WaitGroup
}

func NewDispatcher(notifier Notifier, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{notifier: notifier, timeout: timeout, logger: logger}
}

// Notify 立即返回
func (d *Dispatcher) Notify(msg *NotificationMessage) {
	if d == nil || msg == nil {
		return
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("发送通知panic", zap.String("message", describe(msg)), zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.notifier.Send(ctx, msg); err != nil {
			d.logger.Warn("发送通知失败", zap.String("message", describe(msg)), zap.Error(err))
		}
	}()
}

// Wait 等待已投递的通知发送完成, 用于退出前和测试
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
