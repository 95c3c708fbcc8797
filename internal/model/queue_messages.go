package model

// DeadlineReminderMessage 截止提醒消息，由 scheduler 发布、worker 消费
type DeadlineReminderMessage struct {
	MessageID      string `json:"message_id"` // 消息唯一ID，用于幂等性检查
	SubscriptionID int64  `json:"subscription_id"`
	UserID         string `json:"user_id"`
	CommunityID    string `json:"community_id"`
	CommunityName  string `json:"community_name"`
	Date           string `json:"date"`
	Deadline       string `json:"deadline"` // RFC3339
	TimeRemaining  string `json:"time_remaining"`
	ScheduledAt    string `json:"scheduled_at"`
}
