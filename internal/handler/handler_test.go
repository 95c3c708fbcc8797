package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	hconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WorkoutMate/config"
	"WorkoutMate/internal/certification"
	"WorkoutMate/internal/handler"
	"WorkoutMate/internal/middleware"
	"WorkoutMate/internal/model"
	"WorkoutMate/internal/repository"
	"WorkoutMate/internal/router"
	"WorkoutMate/internal/service"
	"WorkoutMate/pkg/backend"
	"WorkoutMate/pkg/token"
)

type noHints struct{}

func (noHints) Get(ctx context.Context, userID, communityID string, day time.Time) (bool, error) {
	return false, nil
}
func (noHints) Set(ctx context.Context, userID, communityID string, day time.Time) error { return nil }
func (noHints) Clear(ctx context.Context, userID, communityID string) error               { return nil }

type reminderMap struct {
	mu   sync.Mutex
	subs map[string]model.ReminderSubscription
}

func (m *reminderMap) Upsert(ctx context.Context, sub *model.ReminderSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub.UserID+"|"+sub.CommunityID] = *sub
	return nil
}

func (m *reminderMap) Delete(ctx context.Context, userID, communityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[userID+"|"+communityID]; !ok {
		return repository.ErrNotFound
	}
	delete(m.subs, userID+"|"+communityID)
	return nil
}

func (m *reminderMap) Get(ctx context.Context, userID, communityID string) (*model.ReminderSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[userID+"|"+communityID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sub, nil
}

// fakeAuth 用固定身份代替 JWT 校验
func fakeAuth(ctx context.Context, c *app.RequestContext) {
	middleware.SetSession(c, model.Session{UserID: "42", Token: "tok"})
	c.Next(ctx)
}

func newTestEngine(t *testing.T) (*route.Engine, *backend.MockClient) {
	t.Helper()
	return newTestEngineWithAuth(t, fakeAuth)
}

// newTestEngineWithAuth auth 为 nil 时走真实的 JWT 中间件
func newTestEngineWithAuth(t *testing.T, auth app.HandlerFunc) (*route.Engine, *backend.MockClient) {
	t.Helper()
	mock := backend.NewMockClient()
	now := time.Date(2025, 6, 16, 18, 0, 0, 0, time.Local) // 周一
	clock := func() time.Time { return now }

	communities := service.NewCommunityService(mock, service.NewCompletionService(noHints{}, clock), 4, clock)
	reminders := service.NewReminderService(&reminderMap{subs: map[string]model.ReminderSubscription{}}, communities, 30, func() (int64, error) { return 1, nil })

	e := route.NewEngine(hconfig.NewOptions([]hconfig.Option{}))
	router.Mount(e, router.Handlers{
		Communities: handler.NewCommunityHandler(communities),
		Reminders:   handler.NewReminderHandler(reminders),
		Auth:        auth,
	})
	return e, mock
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Meta  map[string]interface{} `json:"meta"`
	Error struct {
		Code    string                 `json:"code"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

func perform(t *testing.T, e *route.Engine, method, path string) (int, envelope) {
	t.Helper()
	resp := ut.PerformRequest(e, method, path, nil).Result()
	var env envelope
	if len(resp.Body()) > 0 {
		require.NoError(t, json.Unmarshal(resp.Body(), &env))
	}
	return resp.StatusCode(), env
}

func TestHome(t *testing.T) {
	e, mock := newTestEngine(t)
	mock.AddCommunity(backend.Community{ID: "run", Name: "Run", IconURL: "🏃", CertDays: certification.DaysFromText("mon"), CertTime: "19:00"}, true)
	mock.Posts["run"] = []backend.Post{{AuthorID: "42", CreatedAt: time.Date(2025, 6, 16, 9, 0, 0, 0, time.Local)}}

	code, env := perform(t, e, http.MethodGet, "/v1/home/communities")
	require.Equal(t, http.StatusOK, code)

	var data struct {
		Communities []struct {
			ID                string `json:"id"`
			PostCount         int    `json:"post_count"`
			HasCertifiedToday bool   `json:"has_certified_today"`
		} `json:"communities"`
		Urgent []struct {
			ID string `json:"id"`
		} `json:"urgent"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Communities, 1)
	assert.Equal(t, 1, data.Communities[0].PostCount)
	assert.True(t, data.Communities[0].HasCertifiedToday)
	require.Len(t, data.Urgent, 1)
}

func TestHome_WithJWT(t *testing.T) {
	config.Cfg.JWTSecret = "test-secret"
	config.Cfg.JWTExpireMinutes = 60
	config.Cfg.JWTRefreshDays = 7
	require.NoError(t, token.Init())
	require.NoError(t, middleware.Init())

	e, mock := newTestEngineWithAuth(t, nil)
	mock.AddCommunity(backend.Community{ID: "run", Name: "Run", IconURL: "🏃", CertDays: certification.DaysFromText("mon"), CertTime: "19:00"}, true)
	mock.Posts["run"] = []backend.Post{{AuthorID: "42", CreatedAt: time.Date(2025, 6, 16, 9, 0, 0, 0, time.Local)}}

	tok, err := token.GenerateAccessToken("42")
	require.NoError(t, err)

	resp := ut.PerformRequest(e, http.MethodGet, "/v1/home/communities", nil,
		ut.Header{Key: "Authorization", Value: "Bearer " + tok}).Result()
	require.Equal(t, http.StatusOK, resp.StatusCode(), string(resp.Body()))

	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body(), &env))
	var data struct {
		Communities []struct {
			HasCertifiedToday bool `json:"has_certified_today"`
		} `json:"communities"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Communities, 1)
	assert.True(t, data.Communities[0].HasCertifiedToday)

	require.NotEmpty(t, mock.Calls)
	assert.Equal(t, tok, mock.Calls[0].Token)

	code, env := perform(t, e, http.MethodGet, "/v1/home/communities")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "/login", env.Error.Details["redirect"])
}

func TestHome_BackendDown(t *testing.T) {
	e, mock := newTestEngine(t)
	mock.SetError("my_communities", "", &backend.StatusError{Operation: "my_communities", Code: 503})

	code, env := perform(t, e, http.MethodGet, "/v1/home/communities")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "COMMUNITY_LIST_UNAVAILABLE", env.Error.Code)

	mock.SetError("my_communities", "", &backend.StatusError{Operation: "my_communities", Code: 401})
	code, env = perform(t, e, http.MethodGet, "/v1/home/communities")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "/login", env.Error.Details["redirect"])
}

func TestSearchAndDetail(t *testing.T) {
	e, mock := newTestEngine(t)
	mock.AddCommunity(backend.Community{ID: "run", Name: "Morning Run", CertDays: certification.DaysFromText("mon"), CertTime: "19:00"}, false)

	code, env := perform(t, e, http.MethodGet, "/v1/communities/search?q=morning")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, env.Meta["count"])

	code, env = perform(t, e, http.MethodGet, "/v1/communities/search?q=")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "SEARCH_QUERY_EMPTY", env.Error.Code)

	code, _ = perform(t, e, http.MethodGet, "/v1/communities/run")
	assert.Equal(t, http.StatusOK, code)

	code, env = perform(t, e, http.MethodGet, "/v1/communities/nope/status")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "COMMUNITY_NOT_FOUND", env.Error.Code)
}

func TestLeaderboardPeriod(t *testing.T) {
	e, _ := newTestEngine(t)

	code, _ := perform(t, e, http.MethodGet, "/v1/communities/run/leaderboard?period=month")
	assert.Equal(t, http.StatusOK, code)

	code, env := perform(t, e, http.MethodGet, "/v1/communities/run/leaderboard?period=decade")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "LEADERBOARD_PERIOD_INVALID", env.Error.Code)
}

func TestShamePassThrough(t *testing.T) {
	e, mock := newTestEngine(t)
	mock.Shame["run"] = json.RawMessage(`{"shamed":[{"user_id":"7"}]}`)

	code, env := perform(t, e, http.MethodGet, "/v1/communities/run/shame")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"shamed":[{"user_id":"7"}]}`, string(env.Data))
}

func TestReminderRoutes(t *testing.T) {
	e, mock := newTestEngine(t)
	mock.AddCommunity(backend.Community{ID: "run", Name: "Run", CertDays: certification.DaysFromText("mon"), CertTime: "19:00"}, false)
	mock.AddCommunity(backend.Community{ID: "idle", Name: "Idle"}, false)

	code, _ := perform(t, e, http.MethodGet, "/v1/communities/run/reminders")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = perform(t, e, http.MethodPost, "/v1/communities/run/reminders")
	assert.Equal(t, http.StatusOK, code)

	code, _ = perform(t, e, http.MethodGet, "/v1/communities/run/reminders")
	assert.Equal(t, http.StatusOK, code)

	code, _ = perform(t, e, http.MethodDelete, "/v1/communities/run/reminders")
	assert.Equal(t, http.StatusNoContent, code)

	code, env := perform(t, e, http.MethodPost, "/v1/communities/idle/reminders")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "REMINDER_UNSCHEDULED", env.Error.Code)
}

func TestHealthz(t *testing.T) {
	e, _ := newTestEngine(t)
	code, _ := perform(t, e, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, code)
}
