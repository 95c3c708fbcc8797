package queue

import "WorkoutMate/storage/mq"

// 截止提醒的发布与消费参数
const (
	deadlineReminderExchange   = mq.ReminderExchange
	deadlineReminderRoutingKey = mq.ReminderRoutingKey
	deadlineReminderQueue      = mq.ReminderQueue

	deadlineReminderConsumerTag = "deadline_reminder_consumer"
	deadlineReminderPrefetch    = 10

	messageIDPrefix = "reminder"
)

// 投递结果，用于日志与指标
const (
	OutcomeDelivered = "delivered"
	OutcomeCertified = "certified"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)
