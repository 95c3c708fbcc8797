package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"WorkoutMate/config"
	"WorkoutMate/internal/cache"
	"WorkoutMate/internal/certification"
	"WorkoutMate/internal/model"
	"WorkoutMate/internal/model/dto"
	"WorkoutMate/pkg/backend"
	"WorkoutMate/pkg/errors"
	"WorkoutMate/pkg/logger"
	"WorkoutMate/pkg/metrics"
)

const (
	// DefaultIcon 图标缺失或明显损坏时使用
	DefaultIcon = "💪"
	// MaxEmojiIconRunes 超过这个长度的“emoji”视为损坏数据
	MaxEmojiIconRunes = 16

	defaultFanoutConcurrency = 8
)

type CommunityService struct {
	backend     backend.Client
	completion  *CompletionService
	concurrency int
	now         func() time.Time

	// 为 nil 时不缓存
	directory *cache.ProtectedCache
	records   *cache.ProtectedCache
}

var (
	communityService *CommunityService
	communityOnce    sync.Once
)

func Community() *CommunityService {
	communityOnce.Do(func() {
		communityService = NewCommunityService(backend.GetClient(), Completion(), config.Cfg.FanoutConcurrency, time.Now)
		communityService.directory = cache.CommunityDirectoryCache
		communityService.records = cache.CommunityRecordCache
	})

	return communityService
}

func NewCommunityService(client backend.Client, completion *CompletionService, concurrency int, now func() time.Time) *CommunityService {
	if concurrency <= 0 {
		concurrency = defaultFanoutConcurrency
	}
	if now == nil {
		now = time.Now
	}
	return &CommunityService{
		backend:     client,
		completion:  completion,
		concurrency: concurrency,
		now:         now,
	}
}

// Now 当前时刻，handler 用它保证同一请求内只取一次时间
func (s *CommunityService) Now() time.Time {
	return s.now()
}

// communityFetch 单个社区的并发拉取结果，失败的部分保持零值
type communityFetch struct {
	memberCount int
	posts       []backend.Post
	postsOK     bool
	completion  DailyCompletionState
}

// Assemble 组装首页：基础列表失败才整体失败，单个社区的成员或帖子失败按 0 处理
func (s *CommunityService) Assemble(ctx context.Context, session model.Session, now time.Time) (*dto.HomeData, error) {
	communities, err := s.backend.MyCommunities(ctx, session.Token)
	if err != nil {
		if stderrors.Is(err, backend.ErrUnauthorized) {
			return nil, errors.Unauthorized
		}
		logger.Logger.Error("Failed to fetch membership list",
			zap.String("user_id", session.UserID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", errors.CommunityListUnavailable, err)
	}

	communities = dedupeCommunities(communities)
	fetched := s.fanOut(ctx, session, communities, now)

	rows := make([]dto.CommunityRow, len(communities))
	statuses := make([]certification.Status, len(communities))
	for i, c := range communities {
		statuses[i] = certification.Calculate(c.Schedule(), now)
		f := fetched[i]

		row := dto.CommunityRow{
			ID:          c.ID,
			Name:        c.Name,
			Icon:        ClassifyIcon(c.IconURL),
			MemberCount: f.memberCount,
			PostCount:   len(TodaysPosts(f.posts, now)),
			Status:      StatusDTO(statuses[i]),
		}
		if f.postsOK {
			row.HasCertifiedToday = f.completion.HasCertifiedToday
			row.CompletionSource = dto.CompletionSourceServer
		} else {
			row.HasCertifiedToday = s.completion.HintAt(ctx, session.UserID, c.ID, now)
			row.CompletionSource = dto.CompletionSourceCache
		}
		rows[i] = row
	}

	return &dto.HomeData{
		Communities: rows,
		Urgent:      SelectUrgent(rows, statuses),
	}, nil
}

// fanOut 每个社区两次独立请求，最多 concurrency 个同时进行，互不取消
func (s *CommunityService) fanOut(ctx context.Context, session model.Session, communities []backend.Community, now time.Time) []communityFetch {
	results := make([]communityFetch, len(communities))

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i := range communities {
		i, c := i, communities[i]

		g.Go(func() error {
			members, err := s.backend.ListMembers(ctx, session.Token, c.ID)
			if err != nil {
				logSubFetchFailure(ctx, "members", c.ID, err)
				return nil
			}
			results[i].memberCount = len(members)
			return nil
		})

		g.Go(func() error {
			posts, err := s.backend.ListPosts(ctx, session.Token, c.ID)
			if err != nil {
				logSubFetchFailure(ctx, "posts", c.ID, err)
				return nil
			}
			results[i].posts = posts
			results[i].postsOK = true
			results[i].completion = s.completion.ReconcileAt(ctx, session.UserID, c.ID, posts, now)
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func logSubFetchFailure(ctx context.Context, what, communityID string, err error) {
	metrics.RecordFanoutSubstitution(ctx)
	logger.Logger.Warn("Community sub-fetch failed, defaulting to zero",
		zap.String("fetch", what),
		zap.String("community_id", communityID),
		zap.Error(err),
	)
}

func dedupeCommunities(communities []backend.Community) []backend.Community {
	seen := make(map[string]struct{}, len(communities))
	out := communities[:0:0]
	for _, c := range communities {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

// ClassifyIcon http / 开头的路径 / data: 视为图片，否则按 emoji 文本处理
func ClassifyIcon(raw string) dto.CommunityIcon {
	icon := strings.TrimSpace(raw)
	lower := strings.ToLower(icon)

	if strings.HasPrefix(lower, "http") || strings.HasPrefix(icon, "/") || strings.HasPrefix(lower, "data:") {
		return dto.CommunityIcon{Kind: dto.IconKindImage, Value: icon}
	}
	if icon == "" || utf8.RuneCountInString(icon) > MaxEmojiIconRunes {
		return dto.CommunityIcon{Kind: dto.IconKindEmoji, Value: DefaultIcon}
	}
	return dto.CommunityIcon{Kind: dto.IconKindEmoji, Value: icon}
}

// StatusDTO 把计算结果转换为响应结构
func StatusDTO(status certification.Status) dto.CertificationStatus {
	switch {
	case status.Live():
		deadline := status.Deadline
		return dto.CertificationStatus{
			State:            dto.StatusLive,
			TimeRemaining:    status.TimeRemaining,
			RemainingSeconds: int64(status.Remaining / time.Second),
			Deadline:         &deadline,
		}
	case status.Upcoming():
		next := status.NextAt
		return dto.CertificationStatus{
			State:          dto.StatusUpcoming,
			NextOccurrence: status.NextOccurrence,
			NextAt:         &next,
		}
	default:
		return dto.CertificationStatus{State: dto.StatusUnscheduled}
	}
}

// SelectUrgent 先放所有倒计时中的社区（剩余时间升序），再放至多一个即将开始的社区
// （today 优先于 tomorrow 优先于具体日期，同级比较截止时刻）。按 id 去重
func SelectUrgent(rows []dto.CommunityRow, statuses []certification.Status) []dto.CommunityRow {
	var live []int
	upcoming := -1

	for i, status := range statuses {
		switch {
		case status.Live():
			live = append(live, i)
		case status.Upcoming():
			if upcoming < 0 || moreUrgent(status, statuses[upcoming]) {
				upcoming = i
			}
		}
	}

	sort.SliceStable(live, func(a, b int) bool {
		return statuses[live[a]].Remaining < statuses[live[b]].Remaining
	})
	if upcoming >= 0 {
		live = append(live, upcoming)
	}

	seen := make(map[string]struct{}, len(live))
	urgent := make([]dto.CommunityRow, 0, len(live))
	for _, i := range live {
		if _, ok := seen[rows[i].ID]; ok {
			continue
		}
		seen[rows[i].ID] = struct{}{}
		urgent = append(urgent, rows[i])
	}
	return urgent
}

func moreUrgent(a, b certification.Status) bool {
	if a.NextLabel.Rank() != b.NextLabel.Rank() {
		return a.NextLabel.Rank() < b.NextLabel.Rank()
	}
	return a.NextAt.Before(b.NextAt)
}
