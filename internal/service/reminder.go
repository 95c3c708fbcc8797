package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"WorkoutMate/config"
	"WorkoutMate/internal/certification"
	"WorkoutMate/internal/model"
	"WorkoutMate/internal/model/dto"
	"WorkoutMate/internal/repository"
	"WorkoutMate/pkg/errors"
	"WorkoutMate/pkg/logger"
	"WorkoutMate/pkg/snowflake"
)

// ReminderStore 订阅存储，实现见 repository.ReminderRepository
type ReminderStore interface {
	Upsert(ctx context.Context, sub *model.ReminderSubscription) error
	Delete(ctx context.Context, userID, communityID string) error
	Get(ctx context.Context, userID, communityID string) (*model.ReminderSubscription, error)
}

type ReminderService struct {
	store       ReminderStore
	communities *CommunityService
	leadMinutes int
	nextID      func() (int64, error)
}

var (
	reminderService *ReminderService
	reminderOnce    sync.Once
)

func Reminder() *ReminderService {
	reminderOnce.Do(func() {
		reminderService = NewReminderService(repository.Reminders(), Community(), config.Cfg.ReminderLeadMinutes, snowflake.NextID)
	})

	return reminderService
}

func NewReminderService(store ReminderStore, communities *CommunityService, leadMinutes int, nextID func() (int64, error)) *ReminderService {
	return &ReminderService{
		store:       store,
		communities: communities,
		leadMinutes: leadMinutes,
		nextID:      nextID,
	}
}

// Subscribe 保存社区当前认证配置的快照。未配置认证日的社区无法订阅
func (s *ReminderService) Subscribe(ctx context.Context, session model.Session, communityID string) (*dto.ReminderData, error) {
	if !session.Authenticated() {
		return nil, errors.Unauthorized
	}

	community, err := s.communities.getCommunity(ctx, session.Token, communityID)
	if err != nil {
		return nil, err
	}

	schedule := community.Schedule()
	if !certification.Scheduled(schedule.Days) {
		return nil, errors.ReminderUnscheduled
	}

	publicID, err := s.nextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate reminder id: %w", err)
	}

	sub := &model.ReminderSubscription{
		PublicID:      publicID,
		UserID:        NormalizeID(session.UserID),
		CommunityID:   community.ID,
		CommunityName: community.Name,
	}
	sub.SnapshotSchedule(schedule)

	if err := s.store.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to save reminder subscription: %w", err)
	}

	logger.Logger.Info("Reminder subscribed",
		zap.String("user_id", sub.UserID),
		zap.String("community_id", sub.CommunityID),
		zap.String("cert_days", sub.CertDays),
		zap.String("cert_time", sub.CertTime),
	)

	return s.toDTO(sub), nil
}

// Unsubscribe 删除订阅，不存在时返回 ReminderNotFound
func (s *ReminderService) Unsubscribe(ctx context.Context, session model.Session, communityID string) error {
	if !session.Authenticated() {
		return errors.Unauthorized
	}

	err := s.store.Delete(ctx, NormalizeID(session.UserID), communityID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return errors.ReminderNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete reminder subscription: %w", err)
	}
	return nil
}

// Get 查询当前订阅
func (s *ReminderService) Get(ctx context.Context, session model.Session, communityID string) (*dto.ReminderData, error) {
	sub, err := s.store.Get(ctx, NormalizeID(session.UserID), communityID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.ReminderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load reminder subscription: %w", err)
	}
	return s.toDTO(sub), nil
}

func (s *ReminderService) toDTO(sub *model.ReminderSubscription) *dto.ReminderData {
	schedule := sub.Schedule()
	return &dto.ReminderData{
		CommunityID:    sub.CommunityID,
		CommunityName:  sub.CommunityName,
		CertDays:       schedule.Days.Tokens(),
		CertTime:       schedule.Deadline.String(),
		LeadMinutes:    s.leadMinutes,
		LastRemindedAt: sub.LastRemindedAt,
	}
}

// ReminderDue 调度器用：今天是认证日、截止前 lead 时间内，返回当天的状态
func ReminderDue(sub model.ReminderSubscription, now time.Time, lead time.Duration) (certification.Status, bool) {
	status := certification.Calculate(sub.Schedule(), now)
	if !status.Live() {
		return status, false
	}
	return status, status.Remaining <= lead
}
