package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"taskhub/internal/pkg/config"
)

const jobTokenCleanup = "token_cleanup"

// TokenCleaner 停用过期访客码, 由 service.AccessTokenService 实现
type TokenCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Scheduler 调度器
type Scheduler struct {
	cron          *cron.Cron
	logger        *zap.Logger
	cleaner       TokenCleaner
	timeout       time.Duration
	cronSchedules map[string]cron.EntryID // 存储任务ID，便于管理
}

// NewScheduler 创建调度器
func NewScheduler(cleaner TokenCleaner, logger *zap.Logger) *Scheduler {
	// 创建 cron 实例（带秒级支持）
	c := cron.New(cron.WithSeconds())

	return &Scheduler{
		cron:          c,
		logger:        logger,
		cleaner:       cleaner,
		timeout:       time.Minute,
		cronSchedules: make(map[string]cron.EntryID),
	}
}

// Start 启动调度器
func (s *Scheduler) Start(cfg *config.SchedulerConfig) error {
	log := s.logger.Sugar()

	log.Info("启动定时任务调度器...")

	// cron 表达式格式: 秒 分 时 日 月 周
	cronExpr := cfg.TokenCleanupCron
	if cronExpr == "" {
		cronExpr = "0 0 3 * * *"
		log.Warnw("未配置scheduler.token_cleanup_cron，使用默认值", "cron", cronExpr)
	}

	entryID, err := s.cron.AddFunc(cronExpr, func() {
		if _, err := s.TriggerTokenCleanup(context.Background()); err != nil {
			log.Errorf("访客码清理任务执行失败: %v", err)
		}
	})
	if err != nil {
		log.Errorf("注册访客码清理任务失败: %s: %v", cronExpr, err)
		return err
	}

	s.cronSchedules[jobTokenCleanup] = entryID
	log.Infof("访客码清理任务已注册: %s entry_id=%d", cronExpr, entryID)

	s.cron.Start()
	log.Info("定时任务调度器启动成功")

	return nil
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	s.logger.Info("正在停止定时任务调度器...")

	// 等待正在执行的任务完成
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.logger.Info("定时任务调度器已停止")
}

// Entries 已注册的任务, 键为任务名
func (s *Scheduler) Entries() map[string]cron.Entry {
	entries := make(map[string]cron.Entry, len(s.cronSchedules))
	for name, id := range s.cronSchedules {
		entries[name] = s.cron.Entry(id)
	}
	return entries
}

// TriggerTokenCleanup 立即执行一次访客码清理
func (s *Scheduler) TriggerTokenCleanup(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.logger.Debug("执行定时任务: 访客码清理")
	return s.cleaner.CleanupExpired(ctx)
}
