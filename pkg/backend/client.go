package backend

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"WorkoutMate/config"
	"WorkoutMate/internal/certification"
	"WorkoutMate/pkg/logger"
)

var (
	// ErrUnauthorized 后端返回 401/403，调用方应让用户重新登录
	ErrUnauthorized = stderrors.New("backend: unauthorized")
	// ErrNotFound 后端返回 404
	ErrNotFound = stderrors.New("backend: not found")
	// ErrUnexpectedStatus 其他非 2xx 响应
	ErrUnexpectedStatus = stderrors.New("backend: unexpected status")
)

// StatusError 携带后端的原始状态码
type StatusError struct {
	Operation string
	Code      int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s: status %d", e.Operation, e.Code)
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.Code == 401 || e.Code == 403:
		return ErrUnauthorized
	case e.Code == 404:
		return ErrNotFound
	default:
		return ErrUnexpectedStatus
	}
}

// Community 后端社区记录，cert_days 保留原始形态交给 certification 解析
type Community struct {
	ID          string                      `json:"id"`
	Name        string                      `json:"name"`
	IconURL     string                      `json:"icon_url"`
	Description string                      `json:"description"`
	CertDays    certification.WeekdaysInput `json:"cert_days"`
	CertTime    string                      `json:"cert_time"`
	MemberCount int                         `json:"member_count"`
}

// Schedule 规范化认证配置
func (c Community) Schedule() certification.Schedule {
	return certification.NewSchedule(c.CertDays, c.CertTime)
}

type Member struct {
	UserID   string
	UserName string
}

type Post struct {
	ID        string
	AuthorID  string
	UserName  string
	ImageURL  string
	Content   string
	CreatedAt time.Time
}

// Client 社区后端接口，每个调用都携带会话的 bearer token
type Client interface {
	GetCommunity(ctx context.Context, token, communityID string) (*Community, error)
	ListCommunities(ctx context.Context, token string) ([]Community, error)
	MyCommunities(ctx context.Context, token string) ([]Community, error)
	ListMembers(ctx context.Context, token, communityID string) ([]Member, error)
	ListPosts(ctx context.Context, token, communityID string) ([]Post, error)
	// ShameBoard 原样返回后端 payload
	ShameBoard(ctx context.Context, token, communityID string) (json.RawMessage, error)
}

var (
	backendClient Client
	backendOnce   sync.Once
	backendErr    error
)

// Init 基于配置初始化共享客户端
func Init() error {
	backendOnce.Do(func() {
		cfg := config.Cfg
		timeout := time.Duration(cfg.BackendTimeoutSeconds) * time.Second

		backendClient, backendErr = NewHertzClient(cfg.BackendBaseURL, timeout)
		if backendErr != nil {
			logger.Logger.Error("Failed to initialize backend client", zap.Error(backendErr))
			return
		}

		logger.Logger.Info("Backend client initialized",
			zap.String("base_url", cfg.BackendBaseURL),
			zap.Duration("timeout", timeout),
		)
	})

	return backendErr
}

// Close 在进程退出时释放共享客户端的空闲连接，未初始化时为空操作
func Close(ctx context.Context) error {
	if hc, ok := backendClient.(*HertzClient); ok {
		hc.CloseIdleConnections()
	}
	return nil
}

func GetClient() Client {
	if backendClient == nil {
		panic("backend client not initialized, call backend.Init() first")
	}
	return backendClient
}
