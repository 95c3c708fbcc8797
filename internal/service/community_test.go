package service

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WorkoutMate/internal/certification"
	"WorkoutMate/internal/model"
	"WorkoutMate/internal/model/dto"
	"WorkoutMate/pkg/backend"
	"WorkoutMate/pkg/errors"
)

var me = model.Session{UserID: "42", Token: "tok"}

func community(id, name, icon, days, deadline string) backend.Community {
	return backend.Community{
		ID:       id,
		Name:     name,
		IconURL:  icon,
		CertDays: certification.DaysFromText(days),
		CertTime: deadline,
	}
}

func newCommunityFixture(t *testing.T) (*CommunityService, *backend.MockClient, *memoryHints) {
	t.Helper()
	mock := backend.NewMockClient()
	hints := newMemoryHints()
	now := at(0, 18, 0)
	completion := NewCompletionService(hints, func() time.Time { return now })
	return NewCommunityService(mock, completion, 4, func() time.Time { return now }), mock, hints
}

func rowIDs(rows []dto.CommunityRow) []string {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestAssemble(t *testing.T) {
	svc, mock, hints := newCommunityFixture(t)
	ctx := context.Background()
	now := at(0, 18, 0) // 周一 18:00

	mock.AddCommunity(community("run", "Run", "🏃", "mon, wed", "19:00"), true)          // 剩 60 分钟
	mock.AddCommunity(community("lift", "Lift", "https://cdn/x.png", "['mon']", "18:30"), true) // 剩 30 分钟
	mock.AddCommunity(community("swim", "Swim", "", "tue", "07:00"), true)               // 明天
	mock.AddCommunity(community("yoga", "Yoga", "/icons/y.png", "fri", "07:00"), true)   // 周五
	mock.AddCommunity(community("none", "None", "🧘", "", "07:00"), true)                // 未排期

	mock.Members["run"] = []backend.Member{{UserID: "1"}, {UserID: "42"}}
	mock.Posts["run"] = []backend.Post{
		{AuthorID: "42", CreatedAt: at(0, 9, 0)},
		{AuthorID: "1", CreatedAt: at(-1, 9, 0)},
	}
	mock.Members["lift"] = []backend.Member{{UserID: "1"}}
	mock.SetError("get_members", "swim", errBoom)
	mock.SetError("list_posts", "swim", errBoom)

	// 帖子拉取失败时退回缓存提示
	_ = hints.Set(ctx, "42", "swim", now)

	home, err := svc.Assemble(ctx, me, now)
	require.NoError(t, err)

	assert.Equal(t, []string{"run", "lift", "swim", "yoga", "none"}, rowIDs(home.Communities))

	run := home.Communities[0]
	assert.Equal(t, 2, run.MemberCount)
	assert.Equal(t, 1, run.PostCount)
	assert.True(t, run.HasCertifiedToday)
	assert.Equal(t, dto.CompletionSourceServer, run.CompletionSource)
	assert.Equal(t, dto.StatusLive, run.Status.State)
	assert.Equal(t, "1 hour 0 minutes", run.Status.TimeRemaining)
	assert.Equal(t, dto.CommunityIcon{Kind: dto.IconKindEmoji, Value: "🏃"}, run.Icon)

	lift := home.Communities[1]
	assert.Equal(t, dto.IconKindImage, lift.Icon.Kind)
	assert.False(t, lift.HasCertifiedToday)

	swim := home.Communities[2]
	assert.Equal(t, 0, swim.MemberCount)
	assert.Equal(t, 0, swim.PostCount)
	assert.True(t, swim.HasCertifiedToday)
	assert.Equal(t, dto.CompletionSourceCache, swim.CompletionSource)
	assert.True(t, hints.has("42", "swim"), "hint must survive a failed posts fetch")
	assert.Equal(t, "tomorrow 7:00 AM", swim.Status.NextOccurrence)

	assert.Equal(t, dto.IconKindImage, home.Communities[3].Icon.Kind)
	assert.Equal(t, dto.StatusUnscheduled, home.Communities[4].Status.State)
	assert.Empty(t, home.Communities[4].Status.TimeRemaining)
	assert.Empty(t, home.Communities[4].Status.NextOccurrence)

	// 倒计时按剩余时间升序，之后只有一个即将开始的社区
	assert.Equal(t, []string{"lift", "run", "swim"}, rowIDs(home.Urgent))
}

func TestAssemble_BaseListFailure(t *testing.T) {
	svc, mock, _ := newCommunityFixture(t)

	mock.SetError("my_communities", "", &backend.StatusError{Operation: "my_communities", Code: 401})
	_, err := svc.Assemble(context.Background(), me, at(0, 18, 0))
	assert.ErrorIs(t, err, errors.Unauthorized)

	mock.SetError("my_communities", "", &backend.StatusError{Operation: "my_communities", Code: 503})
	_, err = svc.Assemble(context.Background(), me, at(0, 18, 0))
	assert.ErrorIs(t, err, errors.CommunityListUnavailable)
	assert.Zero(t, mock.CallCount("list_posts"))
}

func TestAssemble_DuplicateMembershipCollapses(t *testing.T) {
	svc, mock, _ := newCommunityFixture(t)
	c := community("run", "Run", "🏃", "mon", "19:00")
	mock.AddCommunity(c, true)
	mock.Mine = append(mock.Mine, c)

	home, err := svc.Assemble(context.Background(), me, at(0, 18, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"run"}, rowIDs(home.Communities))
	assert.Equal(t, []string{"run"}, rowIDs(home.Urgent))
}

// countingClient 记录并发中的请求数峰值
type countingClient struct {
	*backend.MockClient
	inflight int64
	peak     int64
	mu       sync.Mutex
}

func (c *countingClient) track() func() {
	n := atomic.AddInt64(&c.inflight, 1)
	c.mu.Lock()
	if n > c.peak {
		c.peak = n
	}
	c.mu.Unlock()
	time.Sleep(5 * time.Millisecond)
	return func() { atomic.AddInt64(&c.inflight, -1) }
}

func (c *countingClient) ListMembers(ctx context.Context, token, id string) ([]backend.Member, error) {
	defer c.track()()
	return c.MockClient.ListMembers(ctx, token, id)
}

func (c *countingClient) ListPosts(ctx context.Context, token, id string) ([]backend.Post, error) {
	defer c.track()()
	return c.MockClient.ListPosts(ctx, token, id)
}

func TestAssemble_FanOutIsBounded(t *testing.T) {
	mock := backend.NewMockClient()
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		mock.AddCommunity(community(id, id, "", "mon", "19:00"), true)
	}
	client := &countingClient{MockClient: mock}
	now := at(0, 18, 0)
	svc := NewCommunityService(client, NewCompletionService(newMemoryHints(), nil), 2, func() time.Time { return now })

	home, err := svc.Assemble(context.Background(), me, now)
	require.NoError(t, err)
	assert.Len(t, home.Communities, 6)
	assert.LessOrEqual(t, client.peak, int64(2))
	assert.Equal(t, 6, mock.CallCount("list_posts"))
	assert.Equal(t, 6, mock.CallCount("get_members"))
}

func TestClassifyIcon(t *testing.T) {
	tests := []struct {
		raw  string
		want dto.CommunityIcon
	}{
		{"https://cdn.example.com/a.png", dto.CommunityIcon{Kind: dto.IconKindImage, Value: "https://cdn.example.com/a.png"}},
		{"http://x/y.png", dto.CommunityIcon{Kind: dto.IconKindImage, Value: "http://x/y.png"}},
		{"/media/icon.png", dto.CommunityIcon{Kind: dto.IconKindImage, Value: "/media/icon.png"}},
		{"data:image/png;base64,AAA", dto.CommunityIcon{Kind: dto.IconKindImage, Value: "data:image/png;base64,AAA"}},
		{"🏋️", dto.CommunityIcon{Kind: dto.IconKindEmoji, Value: "🏋️"}},
		{"  ", dto.CommunityIcon{Kind: dto.IconKindEmoji, Value: DefaultIcon}},
		{"iVBORw0KGgoAAAANSUhEUgAAAAEAAAAB", dto.CommunityIcon{Kind: dto.IconKindEmoji, Value: DefaultIcon}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyIcon(tt.raw), tt.raw)
	}
}

func TestSelectUrgent(t *testing.T) {
	now := at(0, 18, 0)
	rows := []dto.CommunityRow{{ID: "date"}, {ID: "live-late"}, {ID: "tomorrow"}, {ID: "none"}, {ID: "live-soon"}, {ID: "tomorrow-early"}}
	statuses := []certification.Status{
		certification.Calculate(certification.NewSchedule(certification.DaysFromText("thu"), "09:00"), now),
		certification.Calculate(certification.NewSchedule(certification.DaysFromText("mon"), "23:00"), now),
		certification.Calculate(certification.NewSchedule(certification.DaysFromText("tue"), "09:00"), now),
		{},
		certification.Calculate(certification.NewSchedule(certification.DaysFromText("mon"), "18:10"), now),
		certification.Calculate(certification.NewSchedule(certification.DaysFromText("tue"), "06:00"), now),
	}

	assert.Equal(t, []string{"live-soon", "live-late", "tomorrow-early"}, rowIDs(SelectUrgent(rows, statuses)))
}

func TestSelectUrgent_OnlyUpcoming(t *testing.T) {
	now := at(0, 20, 0)
	rows := []dto.CommunityRow{{ID: "a"}, {ID: "b"}}
	statuses := []certification.Status{
		certification.Calculate(certification.NewSchedule(certification.DaysFromText("fri"), "09:00"), now),
		certification.Calculate(certification.NewSchedule(certification.DaysFromText("thu"), "09:00"), now),
	}
	assert.Equal(t, []string{"b"}, rowIDs(SelectUrgent(rows, statuses)))
	assert.Empty(t, SelectUrgent(nil, nil))
}

func TestDetail(t *testing.T) {
	svc, mock, _ := newCommunityFixture(t)
	c := community("run", "Run", "🏃", "['fri', 'mon']", "19:00:00")
	c.Description = "daily 5k"
	mock.AddCommunity(c, false)
	mock.Members["run"] = []backend.Member{{UserID: "1"}, {UserID: "2"}, {UserID: "3"}}
	mock.SetError("list_posts", "run", errBoom)

	detail, err := svc.Detail(context.Background(), me, "run", at(0, 18, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"mon", "fri"}, detail.CertDays)
	assert.Equal(t, "mon, fri", detail.CertDaysText)
	assert.Equal(t, "19:00", detail.CertTime)
	assert.Equal(t, 3, detail.MemberCount)
	assert.Equal(t, 0, detail.PostCount)
	assert.Equal(t, dto.StatusLive, detail.Status.State)
	assert.EqualValues(t, 3600, detail.Status.RemainingSeconds)

	_, err = svc.Detail(context.Background(), me, "missing", at(0, 18, 0))
	assert.ErrorIs(t, err, errors.CommunityNotFound)
}

func TestStatus(t *testing.T) {
	svc, mock, _ := newCommunityFixture(t)
	mock.AddCommunity(community("run", "Run", "", "wed", "19:00"), false)

	status, err := svc.Status(context.Background(), me, "run", at(0, 20, 0))
	require.NoError(t, err)
	assert.Equal(t, dto.StatusUpcoming, status.State)
	assert.Equal(t, "Jun 18 7:00 PM", status.NextOccurrence)
}

func TestFeed(t *testing.T) {
	svc, mock, hints := newCommunityFixture(t)
	ctx := context.Background()
	now := at(0, 18, 0)

	mock.Posts["run"] = []backend.Post{
		{ID: "p1", AuthorID: "1", CreatedAt: at(0, 8, 0)},
		{ID: "p2", AuthorID: "2", CreatedAt: at(0, 9, 0)},
		{ID: "p3", AuthorID: "3"},
	}
	_ = hints.Set(ctx, "42", "run", now)

	feed, err := svc.Feed(ctx, me, "run", now)
	require.NoError(t, err)
	assert.False(t, feed.HasCertifiedToday)
	assert.True(t, feed.Locked)
	assert.False(t, hints.has("42", "run"))
	require.Len(t, feed.Posts, 3)
	assert.Equal(t, "p2", feed.Posts[0].ID)
	assert.Equal(t, "p1", feed.Posts[1].ID)
	assert.Nil(t, feed.Posts[2].CreatedAt)

	mock.Posts["run"] = append(mock.Posts["run"], backend.Post{ID: "p4", AuthorID: "42", CreatedAt: at(0, 17, 0)})
	feed, err = svc.Feed(ctx, me, "run", now)
	require.NoError(t, err)
	assert.False(t, feed.Locked)
	assert.True(t, feed.Posts[0].IsMine)

	mock.SetError("list_posts", "run", &backend.StatusError{Code: 500})
	_, err = svc.Feed(ctx, me, "run", now)
	assert.ErrorIs(t, err, errors.BackendUnavailable)
}

func TestCertified(t *testing.T) {
	svc, mock, hints := newCommunityFixture(t)
	ctx := context.Background()
	now := at(0, 18, 0)

	result, err := svc.Certified(ctx, me, "run", now)
	require.NoError(t, err)
	assert.False(t, result.HasCertifiedToday)

	mock.Posts["run"] = []backend.Post{{AuthorID: "42", CreatedAt: now}}
	result, err = svc.Certified(ctx, me, "run", now)
	require.NoError(t, err)
	assert.True(t, result.HasCertifiedToday)
	assert.True(t, hints.has("42", "run"))
}

func TestSearch(t *testing.T) {
	svc, mock, _ := newCommunityFixture(t)
	mock.AddCommunity(community("run-club", "Morning Run", "", "mon", "07:00"), false)
	mock.AddCommunity(community("c2", "Evening RUNNERS", "", "tue", "19:00"), false)
	mock.AddCommunity(community("c3", "Swim", "", "wed", "19:00"), false)

	results, err := svc.Search(context.Background(), me, " run ")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c2", results[0].ID)
	assert.Equal(t, "run-club", results[1].ID)
	assert.Equal(t, []string{"mon"}, results[1].CertDays)

	results, err = svc.Search(context.Background(), me, "c3")
	require.NoError(t, err)
	require.Len(t, results, 1)

	_, err = svc.Search(context.Background(), me, "   ")
	assert.ErrorIs(t, err, errors.SearchQueryEmpty)
}

func TestShame(t *testing.T) {
	svc, mock, _ := newCommunityFixture(t)
	mock.Shame["run"] = json.RawMessage(`{"shamed":["7"]}`)

	raw, err := svc.Shame(context.Background(), me, "run")
	require.NoError(t, err)
	assert.JSONEq(t, `{"shamed":["7"]}`, string(raw))

	mock.SetError("shame_board", "run", &backend.StatusError{Code: 403})
	_, err = svc.Shame(context.Background(), me, "run")
	assert.ErrorIs(t, err, errors.Unauthorized)
}
