package schedule

// 截止提醒调度器：每分钟扫描订阅，截止前 lead 时间内且今天尚未认证的发布一条提醒

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"WorkoutMate/config"
	"WorkoutMate/internal/cache"
	"WorkoutMate/internal/model"
	"WorkoutMate/internal/queue"
	"WorkoutMate/internal/repository"
	"WorkoutMate/internal/service"
	"WorkoutMate/pkg/logger"
)

const scanLockTTL = 2 * time.Minute

type ReminderSource interface {
	ListAfter(ctx context.Context, afterID int64, limit int) ([]model.ReminderSubscription, error)
}

type CompletionHint interface {
	Get(ctx context.Context, userID, communityID string, day time.Time) (bool, error)
}

type PublishFunc func(ctx context.Context, msg model.DeadlineReminderMessage) error

// ScanResult 一次扫描的统计
type ScanResult struct {
	Scanned   int
	Due       int
	Certified int
	Published int
	Failed    int
}

type ReminderScheduler struct {
	logger    *zap.Logger
	source    ReminderSource
	hints     CompletionHint
	publish   PublishFunc
	lead      time.Duration
	batchSize int
	now       func() time.Time

	running bool
	mu      sync.Mutex
}

var (
	reminderSchedulerOnce sync.Once
	reminderSchedulerInst *ReminderScheduler
)

func GetReminderScheduler() *ReminderScheduler {
	reminderSchedulerOnce.Do(func() {
		reminderSchedulerInst = NewReminderScheduler(
			repository.Reminders(),
			cache.NewHintStore(),
			queue.PublishDeadlineReminder,
			time.Duration(config.Cfg.ReminderLeadMinutes)*time.Minute,
			config.Cfg.ReminderScanBatchSize,
			time.Now,
		)
	})
	return reminderSchedulerInst
}

func NewReminderScheduler(source ReminderSource, hints CompletionHint, publish PublishFunc, lead time.Duration, batchSize int, now func() time.Time) *ReminderScheduler {
	if batchSize <= 0 {
		batchSize = 500
	}
	if now == nil {
		now = time.Now
	}
	return &ReminderScheduler{
		logger:    logger.Component("reminder_scheduler"),
		source:    source,
		hints:     hints,
		publish:   publish,
		lead:      lead,
		batchSize: batchSize,
		now:       now,
	}
}

// ScanDueReminders 按 id 分批扫描全部订阅。同一分钟只有一个副本能拿到锁
func (s *ReminderScheduler) ScanDueReminders(ctx context.Context) (ScanResult, error) {
	var result ScanResult

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Info("Reminder scan already running, skipping")
		return result, nil
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	now := s.now()
	locked, err := cache.TryLock(ctx, "reminder_scan:"+now.Format("200601021504"), scanLockTTL)
	if err != nil {
		return result, fmt.Errorf("failed to acquire scan lock: %w", err)
	}
	if !locked {
		s.logger.Debug("Another scheduler holds this minute, skipping")
		return result, nil
	}

	var afterID int64
	for {
		batch, err := s.source.ListAfter(ctx, afterID, s.batchSize)
		if err != nil {
			return result, fmt.Errorf("failed to list reminder subscriptions: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for i := range batch {
			s.scanOne(ctx, batch[i], now, &result)
		}
		afterID = batch[len(batch)-1].ID

		if len(batch) < s.batchSize {
			break
		}
	}

	if result.Due > 0 {
		s.logger.Info("Reminder scan finished",
			zap.Int("scanned", result.Scanned),
			zap.Int("due", result.Due),
			zap.Int("certified", result.Certified),
			zap.Int("published", result.Published),
			zap.Int("failed", result.Failed),
		)
	}
	return result, nil
}

func (s *ReminderScheduler) scanOne(ctx context.Context, sub model.ReminderSubscription, now time.Time, result *ScanResult) {
	result.Scanned++

	status, due := service.ReminderDue(sub, now, s.lead)
	if !due {
		return
	}
	result.Due++

	certified, err := s.hints.Get(ctx, sub.UserID, sub.CommunityID, now)
	if err != nil {
		s.logger.Warn("Completion hint unavailable, reminding anyway",
			zap.Int64("subscription_id", sub.ID),
			zap.Error(err),
		)
	}
	if certified {
		result.Certified++
		return
	}

	today := now.Format("2006-01-02")
	first, err := cache.TryMarkReminderSent(ctx, today, sub.ID)
	if err != nil {
		s.logger.Warn("Failed to mark reminder sent",
			zap.Int64("subscription_id", sub.ID),
			zap.Error(err),
		)
		result.Failed++
		return
	}
	if !first {
		return
	}

	msg := model.DeadlineReminderMessage{
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		CommunityID:    sub.CommunityID,
		CommunityName:  sub.CommunityName,
		Date:           today,
		Deadline:       status.Deadline.Format(time.RFC3339),
		TimeRemaining:  status.TimeRemaining,
		ScheduledAt:    now.Format(time.RFC3339),
	}
	if err := s.publish(ctx, msg); err != nil {
		// 撤销标记，下一分钟重试
		if unmarkErr := cache.UnmarkReminderSent(ctx, today, sub.ID); unmarkErr != nil {
			s.logger.Warn("Failed to unmark reminder sent",
				zap.Int64("subscription_id", sub.ID),
				zap.Error(unmarkErr),
			)
		}
		result.Failed++
		return
	}
	result.Published++
}
