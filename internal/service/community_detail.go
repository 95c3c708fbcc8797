package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"WorkoutMate/internal/cache"
	"WorkoutMate/internal/certification"
	"WorkoutMate/internal/model"
	"WorkoutMate/internal/model/dto"
	"WorkoutMate/pkg/backend"
	"WorkoutMate/pkg/errors"
	"WorkoutMate/pkg/logger"
)

const directoryKey = "all"

// getCommunity 先查记录缓存；后端 404 会写入空值，短时间内不再回源
func (s *CommunityService) getCommunity(ctx context.Context, token, communityID string) (*backend.Community, error) {
	if s.records != nil {
		var cached backend.Community
		hit, err := s.records.Get(ctx, communityID, &cached)
		switch {
		case hit && stderrors.Is(err, cache.ErrEmptyValue):
			return nil, errors.CommunityNotFound
		case hit && err == nil:
			return &cached, nil
		case err != nil:
			logger.Logger.Warn("Community record cache unavailable",
				zap.String("community_id", communityID),
				zap.Error(err),
			)
		}
	}

	community, err := s.backend.GetCommunity(ctx, token, communityID)
	if err != nil {
		if stderrors.Is(err, backend.ErrNotFound) && s.records != nil {
			_ = s.records.Set(ctx, communityID, nil)
		}
		return nil, mapBackendError(err)
	}

	if s.records != nil {
		if err := s.records.Set(ctx, communityID, community); err != nil {
			logger.Logger.Warn("Failed to cache community record",
				zap.String("community_id", communityID),
				zap.Error(err),
			)
		}
	}
	return community, nil
}

// Detail 社区资料页，成员与帖子拉取失败时计数为 0
func (s *CommunityService) Detail(ctx context.Context, session model.Session, communityID string, now time.Time) (*dto.CommunityDetail, error) {
	community, err := s.getCommunity(ctx, session.Token, communityID)
	if err != nil {
		return nil, err
	}

	var memberCount, postCount int
	var g errgroup.Group
	g.Go(func() error {
		members, err := s.backend.ListMembers(ctx, session.Token, communityID)
		if err != nil {
			logSubFetchFailure(ctx, "members", communityID, err)
			return nil
		}
		memberCount = len(members)
		return nil
	})
	g.Go(func() error {
		posts, err := s.backend.ListPosts(ctx, session.Token, communityID)
		if err != nil {
			logSubFetchFailure(ctx, "posts", communityID, err)
			return nil
		}
		postCount = len(TodaysPosts(posts, now))
		return nil
	})
	_ = g.Wait()

	schedule := community.Schedule()
	return &dto.CommunityDetail{
		ID:           community.ID,
		Name:         community.Name,
		Icon:         ClassifyIcon(community.IconURL),
		Description:  community.Description,
		CertDays:     schedule.Days.Tokens(),
		CertDaysText: certification.FormatDays(schedule.Days),
		CertTime:     schedule.Deadline.String(),
		MemberCount:  memberCount,
		PostCount:    postCount,
		Status:       StatusDTO(certification.Calculate(schedule, now)),
	}, nil
}

// Status 只返回认证状态
func (s *CommunityService) Status(ctx context.Context, session model.Session, communityID string, now time.Time) (*dto.CertificationStatus, error) {
	community, err := s.getCommunity(ctx, session.Token, communityID)
	if err != nil {
		return nil, err
	}
	status := StatusDTO(certification.Calculate(community.Schedule(), now))
	return &status, nil
}

// Feed 帖子列表与本人今日认证状态；未认证时 Locked
func (s *CommunityService) Feed(ctx context.Context, session model.Session, communityID string, now time.Time) (*dto.FeedData, error) {
	posts, err := s.backend.ListPosts(ctx, session.Token, communityID)
	if err != nil {
		return nil, mapBackendError(err)
	}

	state := s.completion.ReconcileAt(ctx, session.UserID, communityID, posts, now)

	sorted := append([]backend.Post(nil), posts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].CreatedAt, sorted[j].CreatedAt
		if a.IsZero() != b.IsZero() {
			return !a.IsZero()
		}
		return a.After(b)
	})

	uid := NormalizeID(session.UserID)
	feed := make([]dto.FeedPost, 0, len(sorted))
	for _, post := range sorted {
		item := dto.FeedPost{
			ID:       post.ID,
			AuthorID: post.AuthorID,
			UserName: post.UserName,
			ImageURL: post.ImageURL,
			Content:  post.Content,
			IsMine:   uid != "" && NormalizeID(post.AuthorID) == uid,
		}
		if !post.CreatedAt.IsZero() {
			createdAt := post.CreatedAt
			item.CreatedAt = &createdAt
		}
		feed = append(feed, item)
	}

	return &dto.FeedData{
		CommunityID:       communityID,
		Posts:             feed,
		HasCertifiedToday: state.HasCertifiedToday,
		CompletionSource:  dto.CompletionSourceServer,
		Locked:            !state.HasCertifiedToday,
	}, nil
}

// Certified 上传成功后由客户端调用：重新拉取帖子并对账
func (s *CommunityService) Certified(ctx context.Context, session model.Session, communityID string, now time.Time) (*dto.CompletionData, error) {
	posts, err := s.backend.ListPosts(ctx, session.Token, communityID)
	if err != nil {
		return nil, mapBackendError(err)
	}

	state := s.completion.ReconcileAt(ctx, session.UserID, communityID, posts, now)
	return &dto.CompletionData{
		CommunityID:       communityID,
		HasCertifiedToday: state.HasCertifiedToday,
		CacheHint:         state.CacheHint,
		CacheCleared:      state.CacheCleared,
	}, nil
}

// Search 在全部社区中按 id 或名称做大小写不敏感的子串匹配
func (s *CommunityService) Search(ctx context.Context, session model.Session, query string) ([]dto.CommunitySummary, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, errors.SearchQueryEmpty
	}

	communities, err := s.directoryList(ctx, session.Token)
	if err != nil {
		return nil, err
	}

	matches := make([]dto.CommunitySummary, 0)
	for _, c := range communities {
		if !strings.Contains(strings.ToLower(c.ID), query) && !strings.Contains(strings.ToLower(c.Name), query) {
			continue
		}
		schedule := c.Schedule()
		matches = append(matches, dto.CommunitySummary{
			ID:          c.ID,
			Name:        c.Name,
			Icon:        ClassifyIcon(c.IconURL),
			Description: c.Description,
			CertDays:    schedule.Days.Tokens(),
			CertTime:    schedule.Deadline.String(),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Name != matches[j].Name {
			return matches[i].Name < matches[j].Name
		}
		return matches[i].ID < matches[j].ID
	})
	return matches, nil
}

func (s *CommunityService) directoryList(ctx context.Context, token string) ([]backend.Community, error) {
	if s.directory != nil {
		var cached []backend.Community
		hit, err := s.directory.Get(ctx, directoryKey, &cached)
		if hit && err == nil {
			return cached, nil
		}
		if err != nil && !stderrors.Is(err, cache.ErrEmptyValue) {
			logger.Logger.Warn("Community directory cache unavailable", zap.Error(err))
		}
	}

	communities, err := s.backend.ListCommunities(ctx, token)
	if err != nil {
		return nil, mapBackendError(err)
	}

	if s.directory != nil {
		if err := s.directory.Set(ctx, directoryKey, communities); err != nil {
			logger.Logger.Warn("Failed to cache community directory", zap.Error(err))
		}
	}
	return communities, nil
}

// Shame 原样透传后端的 shame 数据
func (s *CommunityService) Shame(ctx context.Context, session model.Session, communityID string) (json.RawMessage, error) {
	raw, err := s.backend.ShameBoard(ctx, session.Token, communityID)
	if err != nil {
		return nil, mapBackendError(err)
	}
	return raw, nil
}
