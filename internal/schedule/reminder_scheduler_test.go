package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WorkoutMate/config"
	"WorkoutMate/internal/model"
	"WorkoutMate/storage/redis"
)

type sliceSource []model.ReminderSubscription

func (s sliceSource) ListAfter(ctx context.Context, afterID int64, limit int) ([]model.ReminderSubscription, error) {
	var out []model.ReminderSubscription
	for _, sub := range s {
		if sub.ID > afterID {
			out = append(out, sub)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type certifiedSet map[string]bool

func (c certifiedSet) Get(ctx context.Context, userID, communityID string, day time.Time) (bool, error) {
	return c[userID+"|"+communityID], nil
}

func subscription(id int64, user, community, days string) model.ReminderSubscription {
	sub := model.ReminderSubscription{UserID: user, CommunityID: community, CertDays: days, CertTime: "19:00"}
	sub.ID = id
	return sub
}

func setupRedis(t *testing.T) {
	t.Helper()
	config.Cfg.RedisPrefix = "test"
	mr := miniredis.RunT(t)
	c := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	redis.SetClient(c)
	t.Cleanup(func() { _ = c.Close() })
}

func TestScanDueReminders(t *testing.T) {
	setupRedis(t)
	ctx := context.Background()

	source := sliceSource{
		subscription(1, "42", "run", "mon"),
		subscription(2, "43", "run", "mon"),
		subscription(3, "42", "swim", "tue"),
		subscription(4, "44", "flaky", "mon,wed"),
		subscription(5, "45", "lift", "mon"),
	}
	hints := certifiedSet{"43|run": true}

	var published []model.DeadlineReminderMessage
	flaky := true
	publish := func(ctx context.Context, msg model.DeadlineReminderMessage) error {
		if msg.CommunityID == "flaky" && flaky {
			return errors.New("broker down")
		}
		published = append(published, msg)
		return nil
	}

	// 周一 18:45，截止 19:00
	now := time.Date(2025, 6, 16, 18, 45, 0, 0, time.Local)
	s := NewReminderScheduler(source, hints, publish, 30*time.Minute, 2, func() time.Time { return now })

	result, err := s.ScanDueReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Scanned: 5, Due: 4, Certified: 1, Published: 2, Failed: 1}, result)
	require.Len(t, published, 2)
	assert.Equal(t, int64(1), published[0].SubscriptionID)
	assert.Equal(t, "2025-06-16", published[0].Date)
	assert.Equal(t, "15 minutes", published[0].TimeRemaining)

	// 同一分钟再次扫描被锁挡住
	result, err = s.ScanDueReminders(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Scanned)

	// 下一分钟只重试失败的那条
	flaky = false
	now = now.Add(time.Minute)
	result, err = s.ScanDueReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Published)
	require.Len(t, published, 3)
	assert.Equal(t, int64(4), published[2].SubscriptionID)
}

func TestScanDueReminders_OutsideWindow(t *testing.T) {
	setupRedis(t)
	published := 0
	publish := func(ctx context.Context, msg model.DeadlineReminderMessage) error {
		published++
		return nil
	}
	now := time.Date(2025, 6, 16, 12, 0, 0, 0, time.Local)
	s := NewReminderScheduler(sliceSource{subscription(1, "42", "run", "mon")}, certifiedSet{}, publish, 30*time.Minute, 10, func() time.Time { return now })

	result, err := s.ScanDueReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scanned)
	assert.Zero(t, result.Due)
	assert.Zero(t, published)
}
