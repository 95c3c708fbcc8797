package service

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"WorkoutMate/internal/cache"
	"WorkoutMate/pkg/backend"
	"WorkoutMate/pkg/logger"
	"WorkoutMate/pkg/metrics"
)

// CompletionHints 本地“今日已认证”提示的存取，实现见 cache.HintStore
type CompletionHints interface {
	Get(ctx context.Context, userID, communityID string, day time.Time) (bool, error)
	Set(ctx context.Context, userID, communityID string, day time.Time) error
	Clear(ctx context.Context, userID, communityID string) error
}

// DailyCompletionState 对账结果。HasCertifiedToday 永远以后端帖子为准
type DailyCompletionState struct {
	HasCertifiedToday bool
	CacheHint         bool // 对账前缓存的说法
	CacheCleared      bool // 缓存说已认证但后端数据不支持，已清除
}

// HasCertifiedToday 当且仅当 posts 中存在当前用户发布的记录。userID 为空时恒为 false
func HasCertifiedToday(userID string, posts []backend.Post) bool {
	uid := NormalizeID(userID)
	if uid == "" {
		return false
	}
	for _, post := range posts {
		if NormalizeID(post.AuthorID) == uid {
			return true
		}
	}
	return false
}

// NormalizeID 不同接口返回的 id 可能是 "42"、"42.0" 或带空白，统一成同一个字符串
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if !strings.ContainsAny(id, ".eE") {
		return id
	}
	f, err := strconv.ParseFloat(id, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return id
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// TodaysPosts 按 now 所在的本地日期过滤；没有时间戳的记录视为当天
func TodaysPosts(posts []backend.Post, now time.Time) []backend.Post {
	y, m, d := now.Date()
	today := make([]backend.Post, 0, len(posts))
	for _, post := range posts {
		if post.CreatedAt.IsZero() {
			today = append(today, post)
			continue
		}
		py, pm, pd := post.CreatedAt.In(now.Location()).Date()
		if py == y && pm == m && pd == d {
			today = append(today, post)
		}
	}
	return today
}

type CompletionService struct {
	hints CompletionHints
	now   func() time.Time
}

var (
	completionService *CompletionService
	completionOnce    sync.Once
)

func Completion() *CompletionService {
	completionOnce.Do(func() {
		completionService = NewCompletionService(cache.NewHintStore(), time.Now)
	})

	return completionService
}

func NewCompletionService(hints CompletionHints, now func() time.Time) *CompletionService {
	if now == nil {
		now = time.Now
	}
	return &CompletionService{hints: hints, now: now}
}

// Reconcile 以后端帖子为准修正缓存：结果为 false 时无条件清除提示，为 true 时写入今天
func (s *CompletionService) Reconcile(ctx context.Context, userID, communityID string, posts []backend.Post) DailyCompletionState {
	return s.ReconcileAt(ctx, userID, communityID, posts, s.now())
}

func (s *CompletionService) ReconcileAt(ctx context.Context, userID, communityID string, posts []backend.Post, now time.Time) DailyCompletionState {
	state := DailyCompletionState{
		HasCertifiedToday: HasCertifiedToday(userID, TodaysPosts(posts, now)),
	}
	uid := NormalizeID(userID)
	if uid == "" {
		return state
	}

	log := logger.Logger.With(
		zap.String("user_id", uid),
		zap.String("community_id", communityID),
	)

	hint, err := s.hints.Get(ctx, uid, communityID, now)
	if err != nil {
		log.Warn("Failed to read completion hint", zap.Error(err))
	}
	state.CacheHint = hint

	if !state.HasCertifiedToday {
		if err := s.hints.Clear(ctx, uid, communityID); err != nil {
			log.Warn("Failed to clear completion hint", zap.Error(err))
			return state
		}
		if hint {
			state.CacheCleared = true
			metrics.RecordHintCleared(ctx)
			log.Info("Cleared stale completion hint")
		}
		return state
	}

	if !hint {
		if err := s.hints.Set(ctx, uid, communityID, now); err != nil {
			log.Warn("Failed to write completion hint", zap.Error(err))
		}
	}
	return state
}

// Hint 弱读取，只在后端帖子不可用时使用
func (s *CompletionService) Hint(ctx context.Context, userID, communityID string) bool {
	return s.HintAt(ctx, userID, communityID, s.now())
}

func (s *CompletionService) HintAt(ctx context.Context, userID, communityID string, now time.Time) bool {
	uid := NormalizeID(userID)
	if uid == "" {
		return false
	}
	hint, err := s.hints.Get(ctx, uid, communityID, now)
	if err != nil {
		logger.Logger.Warn("Failed to read completion hint",
			zap.String("user_id", uid),
			zap.String("community_id", communityID),
			zap.Error(err),
		)
		return false
	}
	return hint
}

// MarkCertified 上传成功后调用，用重新拉取的帖子对账，不直接写入提示
func (s *CompletionService) MarkCertified(ctx context.Context, userID, communityID string, posts []backend.Post) DailyCompletionState {
	return s.Reconcile(ctx, userID, communityID, posts)
}
