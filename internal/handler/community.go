package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"WorkoutMate/internal/model/dto"
	"WorkoutMate/internal/service"
	"WorkoutMate/pkg/response"
)

type CommunityHandler struct {
	communities *service.CommunityService
}

func NewCommunityHandler(communities *service.CommunityService) *CommunityHandler {
	return &CommunityHandler{communities: communities}
}

// Home 首页社区列表与紧急列表
// GET /v1/home/communities
func (h *CommunityHandler) Home(ctx context.Context, c *app.RequestContext) {
	session, ok := requireSession(ctx, c)
	if !ok {
		return
	}

	data, err := h.communities.Assemble(ctx, session, h.communities.Now())
	if err != nil {
		fail(ctx, c, "home", err)
		return
	}
	response.Success(ctx, c, data)
}

// Search 按 id 或名称搜索社区
// GET /v1/communities/search?q=
func (h *CommunityHandler) Search(ctx context.Context, c *app.RequestContext) {
	session, ok := requireSession(ctx, c)
	if !ok {
		return
	}

	var query dto.SearchQuery
	if err := c.BindQuery(&query); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	results, err := h.communities.Search(ctx, session, query.Q)
	if err != nil {
		fail(ctx, c, "search", err)
		return
	}
	response.SuccessWithMeta(ctx, c, results, map[string]interface{}{"count": len(results)})
}

// Detail 社区详情
// GET /v1/communities/:id
func (h *CommunityHandler) Detail(ctx context.Context, c *app.RequestContext) {
	session, ok := requireSession(ctx, c)
	if !ok {
		return
	}

	data, err := h.communities.Detail(ctx, session, c.Param("id"), h.communities.Now())
	if err != nil {
		fail(ctx, c, "detail", err)
		return
	}
	response.Success(ctx, c, data)
}

// Status 认证倒计时
// GET /v1/communities/:id/status
func (h *CommunityHandler) Status(ctx context.Context, c *app.RequestContext) {
	session, ok := requireSession(ctx, c)
	if !ok {
		return
	}

	data, err := h.communities.Status(ctx, session, c.Param("id"), h.communities.Now())
	if err != nil {
		fail(ctx, c, "status", err)
		return
	}
	response.Success(ctx, c, data)
}

// Feed 帖子列表
// GET /v1/communities/:id/feed
func (h *CommunityHandler) Feed(ctx context.Context, c *app.RequestContext) {
	session, ok := requireSession(ctx, c)
	if !ok {
		return
	}

	data, err := h.communities.Feed(ctx, session, c.Param("id"), h.communities.Now())
	if err != nil {
		fail(ctx, c, "feed", err)
		return
	}
	response.Success(ctx, c, data)
}

// Certified 上传认证后重新对账
// POST /v1/communities/:id/certified
func (h *CommunityHandler) Certified(ctx context.Context, c *app.RequestContext) {
	session, ok := requireSession(ctx, c)
	if !ok {
		return
	}

	data, err := h.communities.Certified(ctx, session, c.Param("id"), h.communities.Now())
	if err != nil {
		fail(ctx, c, "certified", err)
		return
	}
	response.Success(ctx, c, data)
}

// Leaderboard 排行榜
// GET /v1/communities/:id/leaderboard?period=week|month|all
func (h *CommunityHandler) Leaderboard(ctx context.Context, c *app.RequestContext) {
	session, ok := requireSession(ctx, c)
	if !ok {
		return
	}

	var query dto.LeaderboardQuery
	if err := c.BindQuery(&query); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	data, err := h.communities.Leaderboard(ctx, session, c.Param("id"), query.Period, h.communities.Now())
	if err != nil {
		fail(ctx, c, "leaderboard", err)
		return
	}
	response.Success(ctx, c, data)
}

// Shame 原样透传
// GET /v1/communities/:id/shame
func (h *CommunityHandler) Shame(ctx context.Context, c *app.RequestContext) {
	session, ok := requireSession(ctx, c)
	if !ok {
		return
	}

	raw, err := h.communities.Shame(ctx, session, c.Param("id"))
	if err != nil {
		fail(ctx, c, "shame", err)
		return
	}
	response.Success(ctx, c, raw)
}
