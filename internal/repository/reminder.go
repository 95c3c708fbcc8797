package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"WorkoutMate/internal/model"
	"WorkoutMate/storage/database"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// ReminderRepository 提醒订阅的持久化
type ReminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// Reminders 使用全局数据库连接
func Reminders() *ReminderRepository {
	return NewReminderRepository(database.DB())
}

// Upsert 同一用户同一社区只有一条订阅，重复订阅时刷新配置快照
func (r *ReminderRepository) Upsert(ctx context.Context, sub *model.ReminderSubscription) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "community_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"community_name", "cert_days", "cert_time", "updated_at"}),
		}).
		Create(sub).Error
}

// Delete 退订即删除行，唯一索引随之释放
func (r *ReminderRepository) Delete(ctx context.Context, userID, communityID string) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND community_id = ?", userID, communityID).
		Delete(&model.ReminderSubscription{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ReminderRepository) Get(ctx context.Context, userID, communityID string) (*model.ReminderSubscription, error) {
	var sub model.ReminderSubscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND community_id = ?", userID, communityID).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListAfter 按主键游标分页扫描，供调度器使用
func (r *ReminderRepository) ListAfter(ctx context.Context, afterID int64, limit int) ([]model.ReminderSubscription, error) {
	var subs []model.ReminderSubscription
	err := r.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&subs).Error
	return subs, err
}

// MarkReminded worker 投递成功后记录时间
func (r *ReminderRepository) MarkReminded(ctx context.Context, subscriptionID int64, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.ReminderSubscription{}).
		Where("id = ?", subscriptionID).
		Update("last_reminded_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
