package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/trace"

	"WorkoutMate/pkg/metrics"
	wkotel "WorkoutMate/pkg/otel"
)

const defaultTimeout = 5 * time.Second

// HertzClient 基于 hertz HTTP 客户端访问社区后端
type HertzClient struct {
	cli     *client.Client
	baseURL string
	timeout time.Duration
}

func NewHertzClient(baseURL string, timeout time.Duration) (*HertzClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("backend base url is empty")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	cli, err := client.NewClient(
		client.WithDialTimeout(timeout),
		client.WithClientReadTimeout(timeout),
		client.WithWriteTimeout(timeout),
		client.WithMaxConnsPerHost(256),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create hertz client: %w", err)
	}
	cli.Use(sampledOnly(hertztracing.ClientMiddleware()))

	return &HertzClient{
		cli:     cli,
		baseURL: baseURL,
		timeout: timeout,
	}, nil
}

// CloseIdleConnections 释放连接池中的空闲连接
func (c *HertzClient) CloseIdleConnections() {
	c.cli.CloseIdleConnections()
}

// sampledOnly 仅在 SDK 已安装且当前链路被采样时创建客户端 span。
// hertztracing 把 span 断言为 trace.ReadOnlySpan，非记录 span 会 panic
func sampledOnly(mw client.Middleware) client.Middleware {
	return func(next client.Endpoint) client.Endpoint {
		traced := mw(next)
		return func(ctx context.Context, req *protocol.Request, resp *protocol.Response) error {
			if wkotel.TracingEnabled() && trace.SpanContextFromContext(ctx).IsSampled() {
				return traced(ctx, req, resp)
			}
			return next(ctx, req, resp)
		}
	}
}

func (c *HertzClient) GetCommunity(ctx context.Context, token, communityID string) (*Community, error) {
	body, err := c.get(ctx, "get_community", token, "/communities/"+url.PathEscape(communityID))
	if err != nil {
		return nil, err
	}

	community := decodeCommunity(objectOf(body))
	if community.ID == "" {
		community.ID = communityID
	}
	return &community, nil
}

func (c *HertzClient) ListCommunities(ctx context.Context, token string) ([]Community, error) {
	body, err := c.get(ctx, "list_communities", token, "/communities")
	if err != nil {
		return nil, err
	}
	return decodeCommunities(body), nil
}

func (c *HertzClient) MyCommunities(ctx context.Context, token string) ([]Community, error) {
	body, err := c.get(ctx, "my_communities", token, "/members/my_communities")
	if err != nil {
		return nil, err
	}
	return decodeCommunities(body), nil
}

func (c *HertzClient) ListMembers(ctx context.Context, token, communityID string) ([]Member, error) {
	body, err := c.get(ctx, "get_members", token, "/members/get_members?com_uuid="+url.QueryEscape(communityID))
	if err != nil {
		return nil, err
	}
	return decodeMembers(body), nil
}

func (c *HertzClient) ListPosts(ctx context.Context, token, communityID string) ([]Post, error) {
	body, err := c.get(ctx, "list_posts", token, "/posts?com_uuid="+url.QueryEscape(communityID))
	if err != nil {
		return nil, err
	}
	return decodePosts(body), nil
}

func (c *HertzClient) ShameBoard(ctx context.Context, token, communityID string) (json.RawMessage, error) {
	body, err := c.get(ctx, "shame_board", token, "/communities/"+url.PathEscape(communityID)+"/shame")
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("backend shame_board: invalid json payload")
	}
	return json.RawMessage(body), nil
}

// get 返回响应体的副本，非 2xx 转换为 *StatusError
func (c *HertzClient) get(ctx context.Context, operation, token, path string) ([]byte, error) {
	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer protocol.ReleaseRequest(req)
	defer protocol.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.SetMethod(consts.MethodGet)
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	err := c.cli.DoTimeout(ctx, req, resp, c.timeout)
	if err != nil {
		metrics.RecordBackendCall(ctx, operation, 0, time.Since(start))
		return nil, fmt.Errorf("backend %s: %w", operation, err)
	}

	status := resp.StatusCode()
	metrics.RecordBackendCall(ctx, operation, status, time.Since(start))
	if status < 200 || status >= 300 {
		return nil, &StatusError{Operation: operation, Code: status}
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}
