package model

import (
	"strings"
	"time"

	"WorkoutMate/internal/certification"
)

// ReminderSubscription 用户订阅某个社区的截止提醒，保存订阅时的认证配置快照。
// 退订即删除行，没有软删除列；ID 递增，调度器按 ID 分页扫描
type ReminderSubscription struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	PublicID       int64      `gorm:"uniqueIndex;not null" json:"public_id"`
	UserID         string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_reminder_user_community" json:"user_id"`
	CommunityID    string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_reminder_user_community" json:"community_id"`
	CommunityName  string     `gorm:"type:varchar(128);not null;default:''" json:"community_name"`
	CertDays       string     `gorm:"type:varchar(32);not null" json:"cert_days"` // 规范化标记，逗号分隔
	CertTime       string     `gorm:"type:varchar(8);not null" json:"cert_time"`  // "HH:MM"
	LastRemindedAt *time.Time `json:"last_reminded_at,omitempty"`
	CreatedAt      time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (ReminderSubscription) TableName() string {
	return "reminder_subscriptions"
}

// Schedule 从快照还原认证配置
func (r ReminderSubscription) Schedule() certification.Schedule {
	return certification.NewSchedule(certification.DaysFromText(r.CertDays), r.CertTime)
}

// SnapshotSchedule 把规范化后的配置写入快照字段
func (r *ReminderSubscription) SnapshotSchedule(schedule certification.Schedule) {
	r.CertDays = strings.Join(schedule.Days.Tokens(), ",")
	r.CertTime = schedule.Deadline.String()
}
