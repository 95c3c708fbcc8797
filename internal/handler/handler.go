package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"WorkoutMate/internal/middleware"
	"WorkoutMate/internal/model"
	"WorkoutMate/pkg/errors"
	"WorkoutMate/pkg/logger"
	"WorkoutMate/pkg/response"
)

// requireSession 路由组已挂认证中间件，这里只是兜底
func requireSession(ctx context.Context, c *app.RequestContext) (model.Session, bool) {
	session, ok := middleware.GetSession(c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return model.Session{}, false
	}
	return session, true
}

// fail 业务错误直接返回，其余错误记录日志后按 500 返回
func fail(ctx context.Context, c *app.RequestContext, op string, err error) {
	def, ok := errors.AsDefinition(err)
	switch {
	case !ok:
		logger.Logger.Error("Request failed",
			zap.String("op", op),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		)
	case def.Code == errors.BackendUnavailable.Code || def.Code == errors.CommunityListUnavailable.Code:
		logger.Logger.Warn("Backend request failed",
			zap.String("op", op),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		)
	}
	response.Error(ctx, c, err)
}
