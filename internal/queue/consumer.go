package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"WorkoutMate/internal/cache"
	"WorkoutMate/internal/model"
	"WorkoutMate/pkg/errors"
	"WorkoutMate/pkg/logger"
	"WorkoutMate/pkg/metrics"
	"WorkoutMate/storage/mq"
)

// ReminderStamper 记录最近一次提醒时间，实现见 repository.ReminderRepository
type ReminderStamper interface {
	MarkReminded(ctx context.Context, subscriptionID int64, at time.Time) error
}

// CompletionHint 读取今日认证提示，实现见 cache.HintStore
type CompletionHint interface {
	Get(ctx context.Context, userID, communityID string, day time.Time) (bool, error)
}

type ReminderHandler struct {
	reminders ReminderStamper
	hints     CompletionHint
	now       func() time.Time
}

func NewReminderHandler(reminders ReminderStamper, hints CompletionHint, now func() time.Time) *ReminderHandler {
	if now == nil {
		now = time.Now
	}
	return &ReminderHandler{reminders: reminders, hints: hints, now: now}
}

// Handle 处理一条截止提醒。重复消息返回 SkipMessageError；
// 发布之后用户已经认证的，只记录不提醒
func (h *ReminderHandler) Handle(ctx context.Context, body []byte) error {
	var msg model.DeadlineReminderMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		metrics.RecordReminderDelivered(ctx, OutcomeFailed)
		return &errors.SkipMessageError{Reason: fmt.Sprintf("malformed deadline reminder: %v", err)}
	}

	processing, err := cache.TryMarkMessageProcessing(ctx, msg.MessageID, 24*time.Hour)
	if err != nil {
		// 检查失败时继续处理，可能重复提醒
		logger.Logger.Warn("Failed to check message processed status",
			zap.String("message_id", msg.MessageID),
			zap.Error(err),
		)
	} else if !processing {
		metrics.RecordReminderDelivered(ctx, OutcomeDuplicate)
		return &errors.SkipMessageError{Reason: fmt.Sprintf("message %s already processed", msg.MessageID)}
	}

	now := h.now()
	outcome := OutcomeDelivered
	if certified, err := h.hints.Get(ctx, msg.UserID, msg.CommunityID, now); err == nil && certified {
		outcome = OutcomeCertified
	}

	if outcome == OutcomeDelivered {
		logger.Logger.Info("Deadline reminder delivered",
			zap.String("message_id", msg.MessageID),
			zap.String("user_id", msg.UserID),
			zap.String("community_id", msg.CommunityID),
			zap.String("community_name", msg.CommunityName),
			zap.String("deadline", msg.Deadline),
			zap.String("time_remaining", msg.TimeRemaining),
		)

		if err := h.reminders.MarkReminded(ctx, msg.SubscriptionID, now); err != nil {
			_ = cache.UnmarkMessageProcessing(ctx, msg.MessageID)
			metrics.RecordReminderDelivered(ctx, OutcomeFailed)
			return fmt.Errorf("failed to stamp reminder %d: %w", msg.SubscriptionID, err)
		}
	} else {
		logger.Logger.Info("User already certified, reminder dropped",
			zap.String("message_id", msg.MessageID),
			zap.String("user_id", msg.UserID),
			zap.String("community_id", msg.CommunityID),
		)
	}

	if err := cache.MarkMessageProcessed(ctx, msg.MessageID, 48*time.Hour); err != nil {
		logger.Logger.Warn("Failed to mark message as processed",
			zap.String("message_id", msg.MessageID),
			zap.Error(err),
		)
	}

	metrics.RecordReminderDelivered(ctx, outcome)
	return nil
}

// StartDeadlineReminderConsumer 阻塞消费截止提醒队列
func StartDeadlineReminderConsumer(ctx context.Context, handler *ReminderHandler) error {
	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         deadlineReminderQueue,
		ConsumerTag:   deadlineReminderConsumerTag,
		PrefetchCount: deadlineReminderPrefetch,
		Handler:       handler.Handle,
	})
}
