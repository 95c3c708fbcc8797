package response

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"

	"WorkoutMate/pkg/errors"
)

// ErrorResponse 统一的错误响应格式
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Details map[string]interface{} `json:"details,omitempty"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
}

// SuccessResponse 统一的成功响应格式
type SuccessResponse struct {
	Data interface{}            `json:"data"`
	Meta map[string]interface{} `json:"meta,omitempty"`
}

// LoginRedirect 认证失败时客户端应跳转的入口
const LoginRedirect = "/login"

func errorToHTTPStatus(err error) int {
	def, ok := errors.AsDefinition(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch def.Code {
	case errors.TooManyRequests.Code:
		return http.StatusTooManyRequests // 429
	case errors.Unauthorized.Code, errors.InvalidUserID.Code:
		return http.StatusUnauthorized // 401
	case errors.InvalidRequest.Code, errors.SearchQueryEmpty.Code,
		errors.LeaderboardPeriodInvalid.Code, errors.ReminderUnscheduled.Code:
		return http.StatusBadRequest // 400
	case errors.CommunityNotFound.Code, errors.ReminderNotFound.Code:
		return http.StatusNotFound // 404
	case errors.CommunityListUnavailable.Code, errors.BackendUnavailable.Code:
		return http.StatusBadGateway // 502
	default:
		return http.StatusInternalServerError // 500
	}
}

func buildDetail(err error, details map[string]interface{}) ErrorDetail {
	var code, message string
	if def, ok := errors.AsDefinition(err); ok {
		code = def.Code
		message = def.Message
	} else {
		code = errors.Internal.Code
		message = errors.Internal.Message
	}

	// 未认证时提示客户端重新登录
	if code == errors.Unauthorized.Code {
		if details == nil {
			details = map[string]interface{}{}
		}
		details["redirect"] = LoginRedirect
	}

	return ErrorDetail{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Error 返回错误响应
func Error(ctx context.Context, c *app.RequestContext, err error) {
	c.JSON(errorToHTTPStatus(err), ErrorResponse{Error: buildDetail(err, nil)})
}

func ErrorWithDetails(ctx context.Context, c *app.RequestContext, err error, details map[string]interface{}) {
	c.JSON(errorToHTTPStatus(err), ErrorResponse{Error: buildDetail(err, details)})
}

func Success(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
	})
}

func SuccessWithMeta(ctx context.Context, c *app.RequestContext, data interface{}, meta map[string]interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

func BindError(ctx context.Context, c *app.RequestContext, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    errors.InvalidRequest.Code,
			Message: err.Error(),
		},
	})
}

// NoContent 返回 204 No Content（用于 DELETE 等操作）
func NoContent(ctx context.Context, c *app.RequestContext) {
	c.Status(http.StatusNoContent)
}
