package service

import (
	"context"
	"sort"
	"time"

	"WorkoutMate/internal/model"
	"WorkoutMate/internal/model/dto"
	"WorkoutMate/pkg/backend"
	"WorkoutMate/pkg/errors"
)

// 排行榜统计周期
const (
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodAll   = "all"
)

var periodDays = map[string]int{
	PeriodWeek:  7,
	PeriodMonth: 30,
	PeriodAll:   0,
}

type authorStats struct {
	userID   string
	userName string
	count    int
	days     map[string]struct{}
}

// Leaderboard 统计周期内每个作者的帖子数并排名；streak 是截至今天或昨天的连续认证天数
func (s *CommunityService) Leaderboard(ctx context.Context, session model.Session, communityID, period string, now time.Time) (*dto.LeaderboardData, error) {
	if period == "" {
		period = PeriodWeek
	}
	if _, ok := periodDays[period]; !ok {
		return nil, errors.LeaderboardPeriodInvalid
	}

	posts, err := s.backend.ListPosts(ctx, session.Token, communityID)
	if err != nil {
		return nil, mapBackendError(err)
	}

	// 成员列表只用来补全昵称
	names := make(map[string]string)
	if members, err := s.backend.ListMembers(ctx, session.Token, communityID); err == nil {
		for _, m := range members {
			if m.UserName != "" {
				names[NormalizeID(m.UserID)] = m.UserName
			}
		}
	}

	return &dto.LeaderboardData{
		CommunityID: communityID,
		Period:      period,
		Entries:     RankAuthors(posts, period, now, NormalizeID(session.UserID), names),
	}, nil
}

// RankAuthors 按数量降序、用户 id 升序排名，名次连续不并列
func RankAuthors(posts []backend.Post, period string, now time.Time, me string, names map[string]string) []dto.LeaderboardEntry {
	since := periodStart(period, now)
	stats := make(map[string]*authorStats)

	for _, post := range posts {
		uid := NormalizeID(post.AuthorID)
		if uid == "" {
			continue
		}
		st, ok := stats[uid]
		if !ok {
			st = &authorStats{userID: uid, days: make(map[string]struct{})}
			stats[uid] = st
		}
		if st.userName == "" {
			st.userName = post.UserName
		}

		if post.CreatedAt.IsZero() {
			// 没有时间戳只能计入全部周期
			if since.IsZero() {
				st.count++
			}
			continue
		}

		local := post.CreatedAt.In(now.Location())
		st.days[local.Format("2006-01-02")] = struct{}{}
		if since.IsZero() || !local.Before(since) {
			st.count++
		}
	}

	ranked := make([]*authorStats, 0, len(stats))
	for _, st := range stats {
		if st.count > 0 {
			ranked = append(ranked, st)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].userID < ranked[j].userID
	})

	entries := make([]dto.LeaderboardEntry, 0, len(ranked))
	for i, st := range ranked {
		name := st.userName
		if n, ok := names[st.userID]; ok {
			name = n
		}
		entries = append(entries, dto.LeaderboardEntry{
			Rank:     i + 1,
			UserID:   st.userID,
			UserName: name,
			Count:    st.count,
			Streak:   streak(st.days, now),
			IsMe:     me != "" && st.userID == me,
		})
	}
	return entries
}

// periodStart 返回周期起点（本地零点），全部周期返回零值
func periodStart(period string, now time.Time) time.Time {
	days := periodDays[period]
	if days == 0 {
		return time.Time{}
	}
	y, m, d := now.Date()
	return time.Date(y, m, d-(days-1), 0, 0, 0, 0, now.Location())
}

func streak(days map[string]struct{}, now time.Time) int {
	y, m, d := now.Date()
	day := time.Date(y, m, d, 12, 0, 0, 0, now.Location())

	if _, ok := days[day.Format("2006-01-02")]; !ok {
		// 今天还没认证不算断签，从昨天开始数
		day = day.AddDate(0, 0, -1)
	}

	n := 0
	for {
		if _, ok := days[day.Format("2006-01-02")]; !ok {
			return n
		}
		n++
		day = day.AddDate(0, 0, -1)
	}
}
