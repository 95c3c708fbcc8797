package queue

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"WorkoutMate/internal/model"
	"WorkoutMate/pkg/logger"
	"WorkoutMate/pkg/metrics"
	"WorkoutMate/pkg/snowflake"
	"WorkoutMate/storage/mq"
)

// PublishDeadlineReminder 发布截止提醒，MessageID 为空时生成
func PublishDeadlineReminder(ctx context.Context, msg model.DeadlineReminderMessage) error {
	if msg.MessageID == "" {
		id, err := snowflake.NextMessageID(messageIDPrefix)
		if err != nil {
			logger.Logger.Error("Failed to generate message ID",
				zap.Int64("subscription_id", msg.SubscriptionID),
				zap.Error(err),
			)
			return fmt.Errorf("failed to generate message ID: %w", err)
		}
		msg.MessageID = id
	}

	err := mq.PublishMessage(ctx, deadlineReminderExchange, deadlineReminderRoutingKey, msg.MessageID, msg)
	metrics.RecordReminderPublished(ctx, err == nil)
	if err != nil {
		logger.Logger.Error("Failed to publish deadline reminder",
			zap.String("message_id", msg.MessageID),
			zap.Int64("subscription_id", msg.SubscriptionID),
			zap.String("community_id", msg.CommunityID),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published deadline reminder",
		zap.String("message_id", msg.MessageID),
		zap.Int64("subscription_id", msg.SubscriptionID),
		zap.String("user_id", msg.UserID),
		zap.String("community_id", msg.CommunityID),
		zap.String("time_remaining", msg.TimeRemaining),
	)
	return nil
}
